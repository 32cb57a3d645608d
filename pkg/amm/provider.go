// Package amm implements a same-chain swap provider against an automated
// market maker router: approve when the source is a contract token, submit
// the swap, wait for confirmations.
package amm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"crosswap/pkg/assets"
	"crosswap/pkg/chain"
	"crosswap/pkg/lock"
	"crosswap/pkg/poll"
	"crosswap/pkg/swap"
)

const ProviderID = "amm"

const (
	StatusWaitingForApprove = "WAITING_FOR_APPROVE_CONFIRMATIONS"
	StatusApproveConfirmed  = "APPROVE_CONFIRMED"
	StatusWaitingForSwap    = "WAITING_FOR_SWAP_CONFIRMATIONS"
	StatusSuccess           = "SUCCESS"
	StatusFailed            = "FAILED"
)

const TxTypeSwap swap.TxType = "SWAP"

var feeSafetyMultiplier = decimal.NewFromFloat(1.1)

// ChainConfig carries the router deployment on one chain.
type ChainConfig struct {
	Router          string
	SwapGasLimit    uint64
	ApproveGasLimit uint64
}

// Config configures the AMM provider. Pairs carry the tradable pairs with
// their current rates; the market aggregator keeps them fresh.
type Config struct {
	Chains map[string]ChainConfig
	Pairs  []swap.PairEntry
	// FeeBps is the pool fee in basis points.
	FeeBps int64
	Poll   poll.Config
}

// Provider swaps between two assets on the same chain.
type Provider struct {
	info     swap.Info
	cfg      Config
	registry *assets.Registry
	locks    *lock.Keyed
	log      *zap.Logger
	rates    map[string]decimal.Decimal
}

// NewProvider validates configuration and builds the provider.
func NewProvider(cfg Config, registry *assets.Registry, locks *lock.Keyed, log *zap.Logger) (*Provider, error) {
	if len(cfg.Chains) == 0 {
		return nil, fmt.Errorf("amm: no chains configured")
	}
	if cfg.Poll.Interval == 0 {
		cfg.Poll = poll.DefaultConfig()
	}
	if log == nil {
		log = zap.NewNop()
	}

	rates := make(map[string]decimal.Decimal, len(cfg.Pairs))
	for _, pair := range cfg.Pairs {
		if !pair.Rate.IsPositive() {
			return nil, fmt.Errorf("amm: pair %s-%s has no rate", pair.From, pair.To)
		}
		rates[pair.From+"-"+pair.To] = pair.Rate
	}

	p := &Provider{cfg: cfg, registry: registry, locks: locks, log: log, rates: rates}
	p.info = swap.Info{
		ID: ProviderID,
		Statuses: map[string]swap.Status{
			StatusWaitingForApprove: {Step: 0, Label: "Approving {from}", Category: swap.CategoryPending},
			StatusApproveConfirmed:  {Step: 1, Label: "Approved {from}", Category: swap.CategoryPending},
			StatusWaitingForSwap:    {Step: 1, Label: "Swapping {from}", Category: swap.CategoryPending},
			StatusSuccess: {Step: 2, Label: "Completed", Category: swap.CategoryCompleted,
				Notification: func(o swap.Order) string {
					return fmt.Sprintf("Swap completed, %s %s ready to use", p.prettyAmount(o.To, o.ToAmount), o.To)
				}},
			StatusFailed: {Step: 2, Label: "Swap Failed", Category: swap.CategoryRefunded,
				Notification: func(o swap.Order) string {
					return fmt.Sprintf("Swap failed, %s %s refunded", p.prettyAmount(o.From, o.FromAmount), o.From)
				}},
		},
		FromTxType:    TxTypeSwap,
		TimelineSteps: []string{"APPROVE", "SWAP"},
		TotalSteps:    3,
	}
	if err := p.info.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Provider) prettyAmount(asset string, units decimal.Decimal) string {
	currency, err := p.registry.UnitToCurrency(asset, units)
	if err != nil {
		return units.String()
	}
	return currency.String()
}

// Info implements swap.Provider.
func (p *Provider) Info() swap.Info { return p.info }

// GetSupportedPairs returns the configured pairs.
func (p *Provider) GetSupportedPairs(ctx context.Context, network swap.Network) ([]swap.PairEntry, error) {
	pairs := make([]swap.PairEntry, len(p.cfg.Pairs))
	copy(pairs, p.cfg.Pairs)
	return pairs, nil
}

// GetQuote prices a same-chain swap over the configured rate, net of the
// pool fee.
func (p *Provider) GetQuote(ctx context.Context, req swap.QuoteRequest) (*swap.Quote, error) {
	if !req.Amount.IsPositive() {
		return nil, nil
	}
	rate, ok := p.rates[req.From+"-"+req.To]
	if !ok {
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
	if from.Chain != to.Chain {
		return nil, nil
	}
	if _, ok := p.cfg.Chains[from.Chain]; !ok {
		return nil, nil
	}

	fromUnits, err := p.registry.CurrencyToUnit(req.From, req.Amount)
	if err != nil {
		return nil, err
	}
	feeFactor := decimal.NewFromInt(10000 - p.cfg.FeeBps).Div(decimal.NewFromInt(10000))
	toCurrency := req.Amount.Mul(rate).Mul(feeFactor)
	toUnits, err := p.registry.CurrencyToUnit(req.To, toCurrency)
	if err != nil {
		return nil, err
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
		Path:       []string{req.From, req.To},
	}, nil
}

// NewSwap creates the order and, for contract-token sources, submits the
// router approval.
func (p *Provider) NewSwap(ctx context.Context, st swap.StateStore, req swap.SwapRequest) (*swap.Order, error) {
	q := req.Quote
	from, err := p.registry.Get(q.From)
	if err != nil {
		return nil, err
	}
	chainCfg, ok := p.cfg.Chains[from.Chain]
	if !ok {
		return nil, fmt.Errorf("amm: chain %q not configured", from.Chain)
	}

	order := &swap.Order{
		ID:            uuid.NewString(),
		Provider:      ProviderID,
		Network:       req.Network,
		WalletID:      req.WalletID,
		From:          q.From,
		To:            q.To,
		FromAmount:    q.FromAmount,
		ToAmount:      q.ToAmount,
		FromAccountID: q.FromAccountID,
		ToAccountID:   q.ToAccountID,
		Fee:           q.Fee,
		FromChain:     q.FromChain,
		ToChain:       q.ToChain,
		Path:          q.Path,
		Slippage:      q.Slippage,
		StartTime:     time.Now(),
		Status:        StatusApproveConfirmed,
	}

	if !from.IsERC20() {
		return order, nil
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
	data, err := chain.PackApprove(chainCfg.Router, q.FromAmount.BigInt())
	if err != nil {
		return nil, err
	}
	st.NotifyLedger(req.Network, req.WalletID, q.FromAccountID)
	hash, err := client.SendTransaction(ctx, chain.TxRequest{
		To:            from.ContractAddress,
		Data:          data,
		GasPrice:      q.Fee,
		GasLimit:      chainCfg.ApproveGasLimit,
		TokenContract: from.ContractAddress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send approval: %w", err)
	}

	order.ApproveTxHash = hash
	order.Status = StatusWaitingForApprove
	return order, nil
}

// EstimateFees prices the swap transaction on the source chain.
func (p *Provider) EstimateFees(ctx context.Context, st swap.StateStore, req swap.FeeRequest) (swap.FeeEstimates, error) {
	if req.TxType != TxTypeSwap {
		return nil, &swap.InvalidTxTypeError{Provider: ProviderID, TxType: req.TxType}
	}
	from, err := p.registry.Get(req.Quote.From)
	if err != nil {
		return nil, err
	}
	chainCfg, ok := p.cfg.Chains[from.Chain]
	if !ok {
		return nil, fmt.Errorf("amm: chain %q not configured", from.Chain)
	}
	gas := chainCfg.SwapGasLimit
	if from.IsERC20() {
		gas += chainCfg.ApproveGasLimit
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
	case StatusWaitingForApprove:
		return p.waitForApproveConfirmations(ctx, st, order)
	case StatusApproveConfirmed:
		return p.sendSwapTransaction(ctx, st, order)
	case StatusWaitingForSwap:
		return p.waitForSwapConfirmations(ctx, st, order)
	case StatusSuccess, StatusFailed:
		return nil, nil
	default:
		return nil, &swap.UnknownStatusError{Provider: ProviderID, Status: order.Status}
	}
}

func (p *Provider) waitForApproveConfirmations(ctx context.Context, st swap.StateStore, order swap.Order) (*swap.Order, error) {
	client, err := st.Client(order.Network, order.WalletID, order.From)
	if err != nil {
		return nil, err
	}
	tx, err := poll.Until(ctx, p.cfg.Poll, func(ctx context.Context) (*chain.Transaction, error) {
		tx, err := client.GetTransactionByHash(ctx, order.ApproveTxHash)
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
		return p.fail(order), nil
	}
	order.Status = StatusApproveConfirmed
	return &order, nil
}

func (p *Provider) sendSwapTransaction(ctx context.Context, st swap.StateStore, order swap.Order) (*swap.Order, error) {
	release, err := p.locks.Acquire(string(order.Network), order.WalletID, order.From)
	if err != nil {
		return nil, err
	}
	defer release()

	from, err := p.registry.Get(order.From)
	if err != nil {
		return nil, err
	}
	chainCfg, ok := p.cfg.Chains[from.Chain]
	if !ok {
		return nil, fmt.Errorf("amm: chain %q not configured", from.Chain)
	}
	client, err := st.Client(order.Network, order.WalletID, order.From)
	if err != nil {
		return nil, err
	}

	req := chain.TxRequest{
		To:       chainCfg.Router,
		Value:    order.FromAmount,
		GasPrice: order.Fee,
		GasLimit: chainCfg.SwapGasLimit,
	}
	if from.IsERC20() {
		req.TokenContract = from.ContractAddress
	}

	st.NotifyLedger(order.Network, order.WalletID, order.FromAccountID)
	hash, err := client.SendTransaction(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to send swap transaction: %w", err)
	}

	order.FromFundHash = hash
	order.Status = StatusWaitingForSwap
	return &order, nil
}

func (p *Provider) waitForSwapConfirmations(ctx context.Context, st swap.StateStore, order swap.Order) (*swap.Order, error) {
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
		return p.fail(order), nil
	}
	if err := st.UpdateBalances(ctx, order.Network, order.WalletID, []string{order.From, order.To}); err != nil {
		p.log.Warn("balance refresh after swap failed", zap.String("orderId", order.ID), zap.Error(err))
	}
	order.Status = StatusSuccess
	order.EndTime = time.Now()
	return &order, nil
}

func (p *Provider) fail(order swap.Order) *swap.Order {
	order.Status = StatusFailed
	order.EndTime = time.Now()
	return &order
}
