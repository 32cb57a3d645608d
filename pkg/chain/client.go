package chain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrTxNotFound is returned by GetTransactionByHash while a transaction has
// not yet been observed by the node. Callers treat it as "not yet", never as
// failure.
var ErrTxNotFound = errors.New("transaction not found")

// TxStatus is the outcome of a mined transaction.
type TxStatus string

const (
	TxPending TxStatus = "PENDING"
	TxSuccess TxStatus = "SUCCESS"
	TxFailed  TxStatus = "FAILED"
)

// Transaction is the chain-agnostic view of a submitted transaction.
type Transaction struct {
	Hash          string
	Confirmations uint64
	Status        TxStatus
	BlockNumber   uint64
}

// TxRequest describes a transaction to build, sign and submit. Value is in
// the chain's smallest unit. GasPrice is in gwei; zero means use the node's
// suggestion. TokenContract switches native transfers to token transfers.
type TxRequest struct {
	To            string
	Value         decimal.Decimal
	Data          []byte
	GasPrice      decimal.Decimal
	GasLimit      uint64
	TokenContract string
}

// Client abstracts one chain connection bound to a funded signing key.
type Client interface {
	// Addresses returns the client's signing addresses, primary first.
	Addresses() []string
	// Balance returns the asset balance in smallest units. An empty
	// tokenContract means the native asset.
	Balance(ctx context.Context, tokenContract string) (decimal.Decimal, error)
	// GetTransactionByHash looks a transaction up, returning ErrTxNotFound
	// while the node has not seen it.
	GetTransactionByHash(ctx context.Context, hash string) (*Transaction, error)
	// SendTransaction signs and submits, returning the transaction hash.
	SendTransaction(ctx context.Context, req TxRequest) (string, error)
}
