package swap

import (
	"time"

	"github.com/shopspring/decimal"
)

// Network selects the set of chains and provider endpoints in use.
type Network string

const (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
)

// TxType names a transaction kind a provider can estimate fees for.
type TxType string

// StatusCategory buckets statuses for filtering and terminal detection.
type StatusCategory string

const (
	CategoryPending   StatusCategory = "PENDING"
	CategoryCompleted StatusCategory = "COMPLETED"
	CategoryRefunded  StatusCategory = "REFUNDED"
)

// Status describes one entry of a provider's status table.
type Status struct {
	Step     int
	Label    string
	Category StatusCategory
	// Notification renders a user-facing message for orders entering this
	// status. Optional.
	Notification func(Order) string
}

// Terminal reports whether no further advancement is attempted from this status.
func (s Status) Terminal() bool {
	return s.Category == CategoryCompleted || s.Category == CategoryRefunded
}

// QuoteRequest asks a provider to price a route. Amount is in the source
// asset's currency units, not smallest units.
type QuoteRequest struct {
	Network Network
	From    string
	To      string
	Amount  decimal.Decimal
}

// Quote is an unpersisted priced route proposal. Amounts are in smallest
// units of their respective assets. Routing metadata beyond the core fields
// is provider-specific and copied onto the order by NewSwap.
type Quote struct {
	Provider   string          `json:"provider"`
	From       string          `json:"from"`
	To         string          `json:"to"`
	FromAmount decimal.Decimal `json:"fromAmount"`
	ToAmount   decimal.Decimal `json:"toAmount"`

	// Account bindings, attached by the caller before NewSwap.
	FromAccountID string `json:"fromAccountId,omitempty"`
	ToAccountID   string `json:"toAccountId,omitempty"`

	// Fee is the gas-price tier (gwei) the caller committed to for the
	// source-chain leg; ClaimFee the tier for the destination-chain leg.
	Fee      decimal.Decimal `json:"fee,omitempty"`
	ClaimFee decimal.Decimal `json:"claimFee,omitempty"`
	// Slippage tolerance in basis points.
	Slippage int `json:"slippage,omitempty"`

	// Bridge routing metadata.
	FromChain         string          `json:"fromChain,omitempty"`
	ToChain           string          `json:"toChain,omitempty"`
	BridgeAsset       string          `json:"bridgeAsset,omitempty"`
	BridgeAssetAmount decimal.Decimal `json:"bridgeAssetAmount,omitempty"`
	ReceiveFee        decimal.Decimal `json:"receiveFee,omitempty"`

	// AMM routing metadata.
	Path []string `json:"path,omitempty"`

	// Intent routing metadata.
	DepositAddress string `json:"depositAddress,omitempty"`
}

// SwapRequest commits a confirmed quote to a provider.
type SwapRequest struct {
	Network  Network
	WalletID string
	Quote    Quote
}

// FeeRequest asks a provider to price one of its declared transaction types
// across the supplied gas-price tiers (gwei).
type FeeRequest struct {
	Network   Network
	WalletID  string
	Asset     string
	TxType    TxType
	Quote     Quote
	FeePrices []float64
	Max       bool
}

// FeeEstimates maps a gas-price tier (gwei) to the resulting fee in the fee
// asset's currency units.
type FeeEstimates map[float64]decimal.Decimal

// PairEntry is one supported trading pair, tagged with the provider that
// serves it after aggregation.
type PairEntry struct {
	From     string          `json:"from"`
	To       string          `json:"to"`
	Provider string          `json:"provider,omitempty"`
	Rate     decimal.Decimal `json:"rate,omitempty"`
	Min      decimal.Decimal `json:"min,omitempty"`
	Max      decimal.Decimal `json:"max,omitempty"`
}

// Order is a persisted in-flight or completed swap record. It is created by
// a provider's NewSwap, advanced exclusively through updates returned by
// PerformNextSwapAction, and immutable once its status is terminal. Providers
// receive it by value and return an updated copy; only the orchestration
// layer commits the copy, atomically.
type Order struct {
	ID       string  `json:"id"`
	Provider string  `json:"provider"`
	Network  Network `json:"network"`
	WalletID string  `json:"walletId"`

	From       string          `json:"from"`
	To         string          `json:"to"`
	FromAmount decimal.Decimal `json:"fromAmount"`
	ToAmount   decimal.Decimal `json:"toAmount"`

	FromAccountID string `json:"fromAccountId"`
	ToAccountID   string `json:"toAccountId"`

	Status    string    `json:"status"`
	StartTime time.Time `json:"startTime"`
	// EndTime is set only when a terminal status is reached.
	EndTime time.Time `json:"endTime,omitempty"`

	// Per-leg transaction hashes, filled in as they become known.
	ApproveTxHash string `json:"approveTxHash,omitempty"`
	FromFundHash  string `json:"fromFundHash,omitempty"`
	ReceiveTxHash string `json:"receiveTxHash,omitempty"`
	ToFundHash    string `json:"toFundHash,omitempty"`

	Fee      decimal.Decimal `json:"fee,omitempty"`
	ClaimFee decimal.Decimal `json:"claimFee,omitempty"`
	// Slippage tolerance in basis points.
	Slippage int `json:"slippage,omitempty"`

	FromChain         string          `json:"fromChain,omitempty"`
	ToChain           string          `json:"toChain,omitempty"`
	BridgeAsset       string          `json:"bridgeAsset,omitempty"`
	BridgeAssetAmount decimal.Decimal `json:"bridgeAssetAmount,omitempty"`

	Path           []string `json:"path,omitempty"`
	DepositAddress string   `json:"depositAddress,omitempty"`
}

// Account is the projection of a wallet account the swap layer needs.
type Account struct {
	ID        string   `json:"id"`
	WalletID  string   `json:"walletId"`
	Type      string   `json:"type"`
	Chain     string   `json:"chain"`
	Addresses []string `json:"addresses"`
}
