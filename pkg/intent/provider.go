// Package intent implements a swap provider over the NEAR Intents 1Click
// API: fund a deposit address on the source chain, report the deposit, then
// let the intents engine execute the route and poll it to completion.
package intent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	oneclick "github.com/defuse-protocol/one-click-sdk-go"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"crosswap/pkg/assets"
	"crosswap/pkg/chain"
	"crosswap/pkg/lock"
	"crosswap/pkg/poll"
	"crosswap/pkg/swap"
)

const ProviderID = "intent"

const (
	StatusWaitingForDeposit   = "WAITING_FOR_DEPOSIT_CONFIRMATIONS"
	StatusDepositReported     = "DEPOSIT_REPORTED"
	StatusWaitingForExecution = "WAITING_FOR_EXECUTION"
	StatusSuccess             = "SUCCESS"
	StatusFailed              = "FAILED"
)

const TxTypeDeposit swap.TxType = "DEPOSIT"

var feeSafetyMultiplier = decimal.NewFromFloat(1.1)

// API is the 1Click surface the provider consumes. *Client satisfies it.
type API interface {
	Tokens(ctx context.Context) ([]oneclick.TokenResponse, error)
	Quote(ctx context.Context, params QuoteParams) (*oneclick.QuoteResponse, error)
	SubmitDepositTx(ctx context.Context, depositAddress, txHash string) error
	ExecutionStatus(ctx context.Context, depositAddress string) (*oneclick.GetExecutionStatusResponse, error)
}

// RecipientResolver supplies the destination-chain receive address for a
// wallet, used both for dry pricing quotes and committed swaps.
type RecipientResolver func(network swap.Network, walletID, chainName string) (string, error)

// Config configures the intent provider.
type Config struct {
	// ChainAliases maps registry chain names to the API's blockchain names.
	ChainAliases map[string]string
	// Deposit gas limits on EVM source chains.
	NativeGasLimit uint64
	TokenGasLimit  uint64
	SlippageBps    int32
	Poll           poll.Config
}

// DefaultConfig returns the provider defaults.
func DefaultConfig() Config {
	return Config{
		ChainAliases:   map[string]string{"ethereum": "eth", "arbitrum": "arb", "solana": "sol", "polygon": "pol"},
		NativeGasLimit: 21000,
		TokenGasLimit:  65000,
		SlippageBps:    100,
	}
}

// Provider routes swaps through the intents engine.
type Provider struct {
	info      swap.Info
	cfg       Config
	api       API
	registry  *assets.Registry
	locks     *lock.Keyed
	recipient RecipientResolver
	log       *zap.Logger
}

// NewProvider validates configuration and builds the provider.
func NewProvider(cfg Config, api API, registry *assets.Registry, locks *lock.Keyed, recipient RecipientResolver, log *zap.Logger) (*Provider, error) {
	if api == nil {
		return nil, fmt.Errorf("intent: no API client")
	}
	if recipient == nil {
		return nil, fmt.Errorf("intent: no recipient resolver")
	}
	if cfg.Poll.Interval == 0 {
		cfg.Poll = poll.DefaultConfig()
	}
	if log == nil {
		log = zap.NewNop()
	}

	p := &Provider{cfg: cfg, api: api, registry: registry, locks: locks, recipient: recipient, log: log}
	p.info = swap.Info{
		ID: ProviderID,
		Statuses: map[string]swap.Status{
			StatusWaitingForDeposit:   {Step: 0, Label: "Depositing {from}", Category: swap.CategoryPending},
			StatusDepositReported:     {Step: 1, Label: "Deposit reported", Category: swap.CategoryPending},
			StatusWaitingForExecution: {Step: 2, Label: "Executing swap", Category: swap.CategoryPending},
			StatusSuccess: {Step: 3, Label: "Completed", Category: swap.CategoryCompleted,
				Notification: func(o swap.Order) string {
					return fmt.Sprintf("Swap completed, %s ready to use", o.To)
				}},
			StatusFailed: {Step: 3, Label: "Swap Failed", Category: swap.CategoryRefunded,
				Notification: func(o swap.Order) string {
					return fmt.Sprintf("Swap failed, %s refunded", o.From)
				}},
		},
		FromTxType:    TxTypeDeposit,
		TimelineSteps: []string{"DEPOSIT", "EXECUTION"},
		TotalSteps:    4,
	}
	if err := p.info.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Info implements swap.Provider.
func (p *Provider) Info() swap.Info { return p.info }

// findToken matches a registry asset to its API token by symbol and chain.
func (p *Provider) findToken(tokens []oneclick.TokenResponse, asset assets.Asset) *oneclick.TokenResponse {
	blockchain := p.cfg.ChainAliases[asset.Chain]
	if blockchain == "" {
		blockchain = asset.Chain
	}
	for i := range tokens {
		if strings.EqualFold(tokens[i].GetSymbol(), asset.Code) &&
			strings.EqualFold(tokens[i].GetBlockchain(), blockchain) {
			return &tokens[i]
		}
	}
	return nil
}

// GetSupportedPairs pairs up every registry asset the API can route.
func (p *Provider) GetSupportedPairs(ctx context.Context, network swap.Network) ([]swap.PairEntry, error) {
	tokens, err := p.api.Tokens(ctx)
	if err != nil {
		return nil, err
	}

	var routable []string
	for _, asset := range p.registry.All() {
		if p.findToken(tokens, asset) != nil {
			routable = append(routable, asset.Code)
		}
	}

	var pairs []swap.PairEntry
	for _, from := range routable {
		for _, to := range routable {
			if from == to {
				continue
			}
			pairs = append(pairs, swap.PairEntry{From: from, To: to})
		}
	}
	return pairs, nil
}

// GetQuote prices a route through a dry quote. Assets the API cannot route
// yield (nil, nil).
func (p *Provider) GetQuote(ctx context.Context, req swap.QuoteRequest) (*swap.Quote, error) {
	if !req.Amount.IsPositive() {
		return nil, nil
	}
	from, err := p.registry.Get(req.From)
	if err != nil {
		return nil, nil
	}
	to, err := p.registry.Get(req.To)
	if err != nil {
		return nil, nil
	}

	tokens, err := p.api.Tokens(ctx)
	if err != nil {
		return nil, err
	}
	originToken := p.findToken(tokens, from)
	destToken := p.findToken(tokens, to)
	if originToken == nil || destToken == nil {
		return nil, nil
	}

	fromUnits, err := p.registry.CurrencyToUnit(req.From, req.Amount)
	if err != nil {
		return nil, err
	}
	recipient, err := p.recipient(req.Network, "", to.Chain)
	if err != nil {
		return nil, err
	}

	resp, err := p.api.Quote(ctx, QuoteParams{
		OriginAssetID:      originToken.GetAssetId(),
		DestinationAssetID: destToken.GetAssetId(),
		Amount:             fromUnits.String(),
		Recipient:          recipient,
		SlippageBps:        p.cfg.SlippageBps,
		Dry:                true,
	})
	if err != nil {
		return nil, err
	}

	quote := resp.GetQuote()
	toUnits, err := decimal.NewFromString(quote.GetAmountOut())
	if err != nil {
		return nil, fmt.Errorf("intent: bad amountOut in quote: %w", err)
	}
	if !toUnits.IsPositive() {
		return nil, nil
	}

	return &swap.Quote{
		Provider:   ProviderID,
		From:       req.From,
		To:         req.To,
		FromAmount: fromUnits,
		ToAmount:   toUnits,
		FromChain:  from.Chain,
		ToChain:    to.Chain,
		Slippage:   int(p.cfg.SlippageBps),
	}, nil
}

// NewSwap reserves a deposit address through a committed quote, then funds
// it from the source chain under the account lock.
func (p *Provider) NewSwap(ctx context.Context, st swap.StateStore, req swap.SwapRequest) (*swap.Order, error) {
	q := req.Quote
	from, err := p.registry.Get(q.From)
	if err != nil {
		return nil, err
	}
	to, err := p.registry.Get(q.To)
	if err != nil {
		return nil, err
	}

	tokens, err := p.api.Tokens(ctx)
	if err != nil {
		return nil, err
	}
	originToken := p.findToken(tokens, from)
	destToken := p.findToken(tokens, to)
	if originToken == nil || destToken == nil {
		return nil, fmt.Errorf("%w: pair %s-%s no longer routable", swap.ErrQuoteExpired, q.From, q.To)
	}

	recipient, err := p.recipient(req.Network, req.WalletID, to.Chain)
	if err != nil {
		return nil, err
	}

	resp, err := p.api.Quote(ctx, QuoteParams{
		OriginAssetID:      originToken.GetAssetId(),
		DestinationAssetID: destToken.GetAssetId(),
		Amount:             q.FromAmount.String(),
		Recipient:          recipient,
		SlippageBps:        p.cfg.SlippageBps,
		Dry:                false,
	})
	if err != nil {
		return nil, err
	}
	quoteDetails := resp.GetQuote()
	depositAddress := quoteDetails.GetDepositAddress()
	if depositAddress == "" {
		return nil, fmt.Errorf("intent: quote carried no deposit address")
	}

	release, err := p.locks.Acquire(string(req.Network), req.WalletID, q.From)
	if err != nil {
		return nil, err
	}
	defer release()

	client, err := st.Client(req.Network, req.WalletID, q.From)
	if err != nil {
		return nil, err
	}
	st.NotifyLedger(req.Network, req.WalletID, q.FromAccountID)
	hash, err := client.SendTransaction(ctx, chain.TxRequest{
		To:            depositAddress,
		Value:         q.FromAmount,
		GasPrice:      q.Fee,
		TokenContract: from.ContractAddress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send deposit: %w", err)
	}

	return &swap.Order{
		ID:             uuid.NewString(),
		Provider:       ProviderID,
		Network:        req.Network,
		WalletID:       req.WalletID,
		From:           q.From,
		To:             q.To,
		FromAmount:     q.FromAmount,
		ToAmount:       q.ToAmount,
		FromAccountID:  q.FromAccountID,
		ToAccountID:    q.ToAccountID,
		Fee:            q.Fee,
		FromChain:      from.Chain,
		ToChain:        to.Chain,
		DepositAddress: depositAddress,
		FromFundHash:   hash,
		StartTime:      time.Now(),
		Status:         StatusWaitingForDeposit,
	}, nil
}

// EstimateFees prices the source-chain deposit.
func (p *Provider) EstimateFees(ctx context.Context, st swap.StateStore, req swap.FeeRequest) (swap.FeeEstimates, error) {
	if req.TxType != TxTypeDeposit {
		return nil, &swap.InvalidTxTypeError{Provider: ProviderID, TxType: req.TxType}
	}
	from, err := p.registry.Get(req.Quote.From)
	if err != nil {
		return nil, err
	}
	gas := p.cfg.NativeGasLimit
	if from.IsERC20() {
		gas = p.cfg.TokenGasLimit
	}
	estimates := make(swap.FeeEstimates, len(req.FeePrices))
	gasDec := decimal.NewFromUint64(gas)
	for _, tier := range req.FeePrices {
		estimates[tier] = gasDec.Mul(decimal.NewFromFloat(tier)).Mul(feeSafetyMultiplier).Shift(-9)
	}
	return estimates, nil
}

// PerformNextSwapAction advances the order by at most one status.
func (p *Provider) PerformNextSwapAction(ctx context.Context, st swap.StateStore, order swap.Order) (*swap.Order, error) {
	switch order.Status {
	case StatusWaitingForDeposit:
		return p.waitForDepositConfirmations(ctx, st, order)
	case StatusDepositReported:
		if err := st.UpdateBalances(ctx, order.Network, order.WalletID, []string{order.From}); err != nil {
			p.log.Warn("balance refresh after deposit failed", zap.String("orderId", order.ID), zap.Error(err))
		}
		order.Status = StatusWaitingForExecution
		return &order, nil
	case StatusWaitingForExecution:
		return p.waitForExecution(ctx, order)
	case StatusSuccess, StatusFailed:
		return nil, nil
	default:
		return nil, &swap.UnknownStatusError{Provider: ProviderID, Status: order.Status}
	}
}

func (p *Provider) waitForDepositConfirmations(ctx context.Context, st swap.StateStore, order swap.Order) (*swap.Order, error) {
	client, err := st.Client(order.Network, order.WalletID, order.From)
	if err != nil {
		return nil, err
	}
	tx, err := poll.Until(ctx, p.cfg.Poll, func(ctx context.Context) (*chain.Transaction, error) {
		tx, err := client.GetTransactionByHash(ctx, order.FromFundHash)
		if err != nil {
			if errors.Is(err, chain.ErrTxNotFound) {
				return nil, nil
			}
			return nil, err
		}
		if tx.Status == chain.TxFailed || tx.Confirmations >= 1 {
			return tx, nil
		}
		return nil, nil
	})
	if err != nil || tx == nil {
		return nil, err
	}
	if tx.Status == chain.TxFailed {
		order.Status = StatusFailed
		order.EndTime = time.Now()
		return &order, nil
	}

	if err := p.api.SubmitDepositTx(ctx, order.DepositAddress, order.FromFundHash); err != nil {
		return nil, err
	}
	order.Status = StatusDepositReported
	return &order, nil
}

func (p *Provider) waitForExecution(ctx context.Context, order swap.Order) (*swap.Order, error) {
	resp, err := p.api.ExecutionStatus(ctx, order.DepositAddress)
	if err != nil {
		return nil, err
	}
	switch resp.GetStatus() {
	case "SUCCESS", "COMPLETED":
		order.Status = StatusSuccess
		order.EndTime = time.Now()
		details := resp.GetSwapDetails()
		if hashes := details.GetDestinationChainTxHashes(); len(hashes) > 0 {
			order.ReceiveTxHash = hashes[0].GetHash()
		}
		return &order, nil
	case "REFUNDED", "FAILED":
		order.Status = StatusFailed
		order.EndTime = time.Now()
		return &order, nil
	default:
		return nil, nil
	}
}
