// Package bridge implements a swap provider that moves a canonical asset
// between chains through an external token bridge: approve on the source
// chain when needed, send into the bridge, then follow the transfer through
// the bridge's subgraph indexer to its destination-chain transaction.
package bridge

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

const ProviderID = "bridge"

// Order statuses, in pipeline order.
const (
	StatusWaitingForApprove = "WAITING_FOR_APPROVE_CONFIRMATIONS"
	StatusApproveConfirmed  = "APPROVE_CONFIRMED"
	StatusWaitingForSend    = "WAITING_FOR_SEND_CONFIRMATIONS"
	StatusWaitingForReceive = "WAITING_FOR_RECEIVE_CONFIRMATIONS"
	StatusSuccess           = "SUCCESS"
	StatusFailed            = "FAILED"
)

// Transaction types this provider estimates fees for.
const (
	TxTypeSwap  swap.TxType = "SWAP"
	TxTypeClaim swap.TxType = "CLAIM"
)

// feeSafetyMultiplier pads gas limits against estimation drift.
var feeSafetyMultiplier = decimal.NewFromFloat(1.1)

// ChainConfig carries the per-chain parameters of the bridge.
type ChainConfig struct {
	// Confirmations required on this chain before a transaction counts as
	// final for bridge purposes.
	Confirmations uint64
	SendGasLimit    uint64
	ApproveGasLimit uint64
	ClaimGasLimit   uint64
	// BridgeContract receives sends and approvals on this chain.
	BridgeContract string
	// IsL1 switches the subgraph lookup strategy for transfers leaving
	// this chain.
	IsL1 bool
}

// Config configures the bridge provider.
type Config struct {
	Chains map[string]ChainConfig
	// FeeBps is the bonder fee in basis points, deducted from the sent
	// amount before it is credited on the destination chain.
	FeeBps int64
	Poll   poll.Config
}

// DefaultChains returns the supported chains with their confirmation
// thresholds and gas limits.
func DefaultChains() map[string]ChainConfig {
	return map[string]ChainConfig{
		"ethereum": {Confirmations: 1, SendGasLimit: 150000, ApproveGasLimit: 100000, ClaimGasLimit: 120000, IsL1: true},
		"arbitrum": {Confirmations: 20, SendGasLimit: 900000, ApproveGasLimit: 500000, ClaimGasLimit: 700000},
		"polygon":  {Confirmations: 256, SendGasLimit: 160000, ApproveGasLimit: 110000, ClaimGasLimit: 130000},
	}
}

// Provider bridges matching assets across chains.
type Provider struct {
	info     swap.Info
	cfg      Config
	registry *assets.Registry
	subgraph *SubgraphClient
	locks    *lock.Keyed
	log      *zap.Logger
}

// NewProvider validates configuration and builds the provider.
func NewProvider(cfg Config, registry *assets.Registry, subgraph *SubgraphClient, locks *lock.Keyed, log *zap.Logger) (*Provider, error) {
	if len(cfg.Chains) == 0 {
		return nil, fmt.Errorf("bridge: no chains configured")
	}
	if cfg.Poll.Interval == 0 {
		cfg.Poll = poll.DefaultConfig()
	}
	if log == nil {
		log = zap.NewNop()
	}

	p := &Provider{
		cfg:      cfg,
		registry: registry,
		subgraph: subgraph,
		locks:    locks,
		log:      log,
	}
	p.info = swap.Info{
		ID: ProviderID,
		Statuses: map[string]swap.Status{
			StatusWaitingForApprove: {Step: 0, Label: "Approving {from}", Category: swap.CategoryPending},
			StatusApproveConfirmed:  {Step: 1, Label: "Approved {from}", Category: swap.CategoryPending},
			StatusWaitingForSend:    {Step: 1, Label: "Sending {from}", Category: swap.CategoryPending},
			StatusWaitingForReceive: {Step: 2, Label: "Receiving {to}", Category: swap.CategoryPending},
			StatusSuccess: {Step: 3, Label: "Completed", Category: swap.CategoryCompleted,
				Notification: func(o swap.Order) string {
					return fmt.Sprintf("Swap completed, %s %s ready to use", p.prettyAmount(o.To, o.ToAmount), o.To)
				}},
			StatusFailed: {Step: 3, Label: "Swap Failed", Category: swap.CategoryRefunded,
				Notification: func(o swap.Order) string {
					return fmt.Sprintf("Swap failed, %s %s refunded", p.prettyAmount(o.From, o.FromAmount), o.From)
				}},
		},
		FromTxType:    TxTypeSwap,
		ToTxType:      TxTypeClaim,
		TimelineSteps: []string{"APPROVE", "INITIATION", "RECEIVE"},
		TotalSteps:    4,
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

// GetSupportedPairs lists every matching-asset pair whose two chains are
// both configured. Bridged pairs always carry a 1:1 rate; fees are applied
// at quote time.
func (p *Provider) GetSupportedPairs(ctx context.Context, network swap.Network) ([]swap.PairEntry, error) {
	var pairs []swap.PairEntry
	for _, from := range p.registry.All() {
		if _, ok := p.cfg.Chains[from.Chain]; !ok {
			continue
		}
		for chainName := range p.cfg.Chains {
			if chainName == from.Chain {
				continue
			}
			to, err := p.registry.MatchingOnChain(from.Code, chainName)
			if err != nil {
				continue
			}
			pairs = append(pairs, swap.PairEntry{
				From: from.Code,
				To:   to.Code,
				Rate: decimal.NewFromInt(1),
			})
		}
	}
	return pairs, nil
}

// GetQuote prices a bridge transfer. Unroutable pairs and non-positive
// amounts yield (nil, nil).
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
	if from.Chain == to.Chain {
		return nil, nil
	}
	if _, ok := p.cfg.Chains[from.Chain]; !ok {
		return nil, nil
	}
	if _, ok := p.cfg.Chains[to.Chain]; !ok {
		return nil, nil
	}
	match, err := p.registry.MatchingOnChain(req.From, to.Chain)
	if err != nil || match.Code != req.To {
		return nil, nil
	}

	fromUnits, err := p.registry.CurrencyToUnit(req.From, req.Amount)
	if err != nil {
		return nil, err
	}
	bonderFee := fromUnits.Mul(decimal.NewFromInt(p.cfg.FeeBps)).Div(decimal.NewFromInt(10000)).Truncate(0)
	bridged := fromUnits.Sub(bonderFee)
	if !bridged.IsPositive() {
		return nil, nil
	}
	bridgedCurrency, err := p.registry.UnitToCurrency(req.From, bridged)
	if err != nil {
		return nil, err
	}
	toUnits, err := p.registry.CurrencyToUnit(req.To, bridgedCurrency)
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
		ReceiveFee: bonderFee,
	}, nil
}

// NewSwap creates the order and, for ERC20 sources, submits the bridge
// approval. Native sources skip straight to the approved state; the send
// happens on the first scheduler tick.
func (p *Provider) NewSwap(ctx context.Context, st swap.StateStore, req swap.SwapRequest) (*swap.Order, error) {
	q := req.Quote
	from, err := p.registry.Get(q.From)
	if err != nil {
		return nil, err
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
	data, err := chain.PackApprove(p.cfg.Chains[from.Chain].BridgeContract, q.FromAmount.BigInt())
	if err != nil {
		return nil, err
	}
	st.NotifyLedger(req.Network, req.WalletID, q.FromAccountID)
	hash, err := client.SendTransaction(ctx, chain.TxRequest{
		To:            from.ContractAddress,
		Data:          data,
		GasPrice:      q.Fee,
		GasLimit:      p.cfg.Chains[from.Chain].ApproveGasLimit,
		TokenContract: from.ContractAddress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send approval: %w", err)
	}

	order.ApproveTxHash = hash
	order.Status = StatusWaitingForApprove
	return order, nil
}

// EstimateFees prices SWAP on the source chain and CLAIM on the destination
// chain. Results are in the respective chain's native asset currency units.
func (p *Provider) EstimateFees(ctx context.Context, st swap.StateStore, req swap.FeeRequest) (swap.FeeEstimates, error) {
	switch req.TxType {
	case TxTypeSwap:
		from, err := p.registry.Get(req.Quote.From)
		if err != nil {
			return nil, err
		}
		chainCfg, ok := p.cfg.Chains[from.Chain]
		if !ok {
			return nil, fmt.Errorf("bridge: chain %q not configured", from.Chain)
		}
		gas := chainCfg.SendGasLimit
		if from.IsERC20() {
			gas += chainCfg.ApproveGasLimit
		}
		return p.feePerTier(gas, req.FeePrices), nil
	case TxTypeClaim:
		to, err := p.registry.Get(req.Quote.To)
		if err != nil {
			return nil, err
		}
		chainCfg, ok := p.cfg.Chains[to.Chain]
		if !ok {
			return nil, fmt.Errorf("bridge: chain %q not configured", to.Chain)
		}
		return p.feePerTier(chainCfg.ClaimGasLimit, req.FeePrices), nil
	default:
		return nil, &swap.InvalidTxTypeError{Provider: ProviderID, TxType: req.TxType}
	}
}

// feePerTier converts gasLimit × gwei tier × safety margin to native
// currency units.
func (p *Provider) feePerTier(gasLimit uint64, tiers []float64) swap.FeeEstimates {
	estimates := make(swap.FeeEstimates, len(tiers))
	gas := decimal.NewFromUint64(gasLimit)
	for _, tier := range tiers {
		fee := gas.Mul(decimal.NewFromFloat(tier)).Mul(feeSafetyMultiplier).Shift(-9)
		estimates[tier] = fee
	}
	return estimates
}

// PerformNextSwapAction advances the order by at most one status. A nil
// return means the current step has not completed yet.
func (p *Provider) PerformNextSwapAction(ctx context.Context, st swap.StateStore, order swap.Order) (*swap.Order, error) {
	switch order.Status {
	case StatusWaitingForApprove:
		return p.waitForApproveConfirmations(ctx, st, order)
	case StatusApproveConfirmed:
		return p.sendBridgeTransaction(ctx, st, order)
	case StatusWaitingForSend:
		return p.waitForSendConfirmations(ctx, st, order)
	case StatusWaitingForReceive:
		return p.WaitForReceiveConfirmations(ctx, st, order)
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

// sendBridgeTransaction submits the send into the bridge contract. The send
// mutates the source account's transaction set, so it runs under the keyed
// lock.
func (p *Provider) sendBridgeTransaction(ctx context.Context, st swap.StateStore, order swap.Order) (*swap.Order, error) {
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
		return nil, fmt.Errorf("bridge: chain %q not configured", from.Chain)
	}
	client, err := st.Client(order.Network, order.WalletID, order.From)
	if err != nil {
		return nil, err
	}

	req := chain.TxRequest{
		To:       chainCfg.BridgeContract,
		GasPrice: order.Fee,
		GasLimit: chainCfg.SendGasLimit,
	}
	if from.IsERC20() {
		req.TokenContract = from.ContractAddress
		req.Value = order.FromAmount
	} else {
		req.Value = order.FromAmount
	}

	st.NotifyLedger(order.Network, order.WalletID, order.FromAccountID)
	hash, err := client.SendTransaction(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to send bridge transaction: %w", err)
	}

	order.FromFundHash = hash
	order.Status = StatusWaitingForSend
	return &order, nil
}

func (p *Provider) waitForSendConfirmations(ctx context.Context, st swap.StateStore, order swap.Order) (*swap.Order, error) {
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
	if err := st.UpdateBalances(ctx, order.Network, order.WalletID, []string{order.From}); err != nil {
		p.log.Warn("balance refresh after send failed", zap.String("orderId", order.ID), zap.Error(err))
	}
	order.Status = StatusWaitingForReceive
	return &order, nil
}

// WaitForReceiveConfirmations follows the transfer to its destination-chain
// transaction and waits for that chain's confirmation threshold. Exported
// for composite providers that finish this leg before starting their next.
func (p *Provider) WaitForReceiveConfirmations(ctx context.Context, st swap.StateStore, order swap.Order) (*swap.Order, error) {
	fromChainCfg, ok := p.cfg.Chains[order.FromChain]
	if !ok {
		return nil, fmt.Errorf("bridge: chain %q not configured", order.FromChain)
	}
	toChainCfg, ok := p.cfg.Chains[order.ToChain]
	if !ok {
		return nil, fmt.Errorf("bridge: chain %q not configured", order.ToChain)
	}
	destClient, err := st.Client(order.Network, order.WalletID, order.To)
	if err != nil {
		return nil, err
	}

	receiveHash := order.ReceiveTxHash
	tx, err := poll.Until(ctx, p.cfg.Poll, func(ctx context.Context) (*chain.Transaction, error) {
		if receiveHash == "" {
			hash, err := p.resolveDestinationTx(ctx, fromChainCfg, destClient, order)
			if err != nil {
				return nil, err
			}
			if hash == "" {
				return nil, nil
			}
			receiveHash = hash
		}
		tx, err := destClient.GetTransactionByHash(ctx, receiveHash)
		if err != nil {
			if errors.Is(err, chain.ErrTxNotFound) {
				return nil, nil
			}
			return nil, err
		}
		if tx.Status == chain.TxFailed || tx.Confirmations >= toChainCfg.Confirmations {
			return tx, nil
		}
		return nil, nil
	})
	if err != nil || tx == nil {
		return nil, err
	}

	order.ReceiveTxHash = receiveHash
	if tx.Status == chain.TxFailed {
		return p.fail(order), nil
	}
	if err := st.UpdateBalances(ctx, order.Network, order.WalletID, []string{order.To}); err != nil {
		p.log.Warn("balance refresh after receive failed", zap.String("orderId", order.ID), zap.Error(err))
	}
	order.Status = StatusSuccess
	order.EndTime = time.Now()
	return &order, nil
}

// resolveDestinationTx finds the destination transaction hash through the
// subgraph. L1-originated transfers are indexed by recipient; L2-originated
// transfers resolve via transfer id. An empty hash means not yet indexed.
func (p *Provider) resolveDestinationTx(ctx context.Context, fromChainCfg ChainConfig, destClient chain.Client, order swap.Order) (string, error) {
	if fromChainCfg.IsL1 {
		addrs := destClient.Addresses()
		if len(addrs) == 0 {
			return "", fmt.Errorf("bridge: destination client has no addresses")
		}
		return p.subgraph.L1DestinationTxHash(ctx, order.ToChain, addrs[0])
	}
	transferID, err := p.subgraph.TransferID(ctx, order.FromChain, order.FromFundHash)
	if err != nil {
		return "", err
	}
	if transferID == "" {
		return "", nil
	}
	return p.subgraph.DestinationTxHash(ctx, order.ToChain, transferID)
}

func (p *Provider) fail(order swap.Order) *swap.Order {
	order.Status = StatusFailed
	order.EndTime = time.Now()
	return &order
}
