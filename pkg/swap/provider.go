package swap

import (
	"context"
	"fmt"

	"crosswap/pkg/chain"
)

// StateStore is the slice of wallet state providers need while creating and
// advancing swaps. Implementations persist orders atomically; a provider
// never writes an order itself.
type StateStore interface {
	// Account resolves an account by id within a wallet and network.
	Account(network Network, walletID, accountID string) (*Account, error)
	// Client returns the chain client serving the given asset's chain.
	Client(network Network, walletID, asset string) (chain.Client, error)
	// UpdateBalances refreshes cached balances for the given assets.
	UpdateBalances(ctx context.Context, network Network, walletID string, assets []string) error
	// NotifyLedger prompts hardware-wallet users that a signature is needed.
	// No-op for software accounts.
	NotifyLedger(network Network, walletID, accountID string)
}

// Info is a provider's static metadata. Constructed once and validated at
// provider construction time so a missing field fails loudly up front.
type Info struct {
	ID            string
	Statuses      map[string]Status
	FromTxType    TxType
	ToTxType      TxType
	TimelineSteps []string
	TotalSteps    int
}

// Validate checks that every field required to drive a swap is populated.
func (i Info) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("provider info: missing id")
	}
	if len(i.Statuses) == 0 {
		return fmt.Errorf("provider %s: missing statuses", i.ID)
	}
	if i.FromTxType == "" {
		return fmt.Errorf("provider %s: missing fromTxType", i.ID)
	}
	if len(i.TimelineSteps) == 0 {
		return fmt.Errorf("provider %s: missing timeline steps", i.ID)
	}
	if i.TotalSteps <= 0 {
		return fmt.Errorf("provider %s: missing totalSteps", i.ID)
	}
	terminal := false
	for name, st := range i.Statuses {
		if st.Label == "" {
			return fmt.Errorf("provider %s: status %s has no label", i.ID, name)
		}
		if st.Terminal() {
			terminal = true
		}
	}
	if !terminal {
		return fmt.Errorf("provider %s: no terminal status", i.ID)
	}
	return nil
}

// Owns reports whether the given status name belongs to this provider's table.
func (i Info) Owns(status string) bool {
	_, ok := i.Statuses[status]
	return ok
}

// IsTerminal reports whether the named status ends the swap's lifecycle.
// Unknown statuses are not terminal.
func (i Info) IsTerminal(status string) bool {
	st, ok := i.Statuses[status]
	return ok && st.Terminal()
}

// Provider is the contract every swap source implements. Implementations
// must be safe for concurrent use; per-order serialization is the caller's
// concern.
type Provider interface {
	// Info returns the provider's static metadata.
	Info() Info

	// GetSupportedPairs lists the pairs this provider can currently serve.
	GetSupportedPairs(ctx context.Context, network Network) ([]PairEntry, error)

	// GetQuote prices a route. Returns (nil, nil) when the pair is not
	// routable or the amount is not positive.
	GetQuote(ctx context.Context, req QuoteRequest) (*Quote, error)

	// NewSwap commits a quote: it may submit the first on-chain action and
	// returns the initial order. The caller persists the order.
	NewSwap(ctx context.Context, st StateStore, req SwapRequest) (*Order, error)

	// EstimateFees prices one of the provider's declared transaction types
	// per gas-price tier. Unknown txType yields an InvalidTxTypeError.
	EstimateFees(ctx context.Context, st StateStore, req FeeRequest) (FeeEstimates, error)

	// PerformNextSwapAction attempts one step of the order's state machine.
	// A nil order with nil error means nothing is ready yet; the caller
	// retries on its next tick. A non-nil order is the full updated record
	// the caller must persist atomically.
	PerformNextSwapAction(ctx context.Context, st StateStore, order Order) (*Order, error)
}
