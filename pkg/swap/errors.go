package swap

import (
	"errors"
	"fmt"
)

// ErrQuoteExpired signals a swap request carrying a quote the provider will
// no longer honor.
var ErrQuoteExpired = errors.New("quote expired")

// InvalidTxTypeError reports a fee estimate request for a transaction type
// the provider never produces. It marks a programming error at the call
// site, not a transient condition.
type InvalidTxTypeError struct {
	Provider string
	TxType   TxType
}

func (e *InvalidTxTypeError) Error() string {
	return fmt.Sprintf("provider %s: invalid tx type %q", e.Provider, e.TxType)
}

// UnknownStatusError reports an order whose status is absent from its
// provider's table, typically after a bad migration or manual edit.
type UnknownStatusError struct {
	Provider string
	Status   string
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("provider %s: unknown order status %q", e.Provider, e.Status)
}
