// Package boost composes the bridge and AMM providers into one route: a
// native asset bridged to the destination chain, then swapped there into a
// contract token. One order record tracks both legs.
package boost

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"crosswap/pkg/amm"
	"crosswap/pkg/assets"
	"crosswap/pkg/bridge"
	"crosswap/pkg/swap"
)

const ProviderID = "boost"

// Composite statuses. The bridge leg's names are kept; the AMM leg's
// post-approve state is renamed READY_FOR_SWAP so the two legs' tables
// stay disjoint.
const (
	StatusWaitingForApprove = bridge.StatusWaitingForApprove
	StatusApproveConfirmed  = bridge.StatusApproveConfirmed
	StatusWaitingForSend    = bridge.StatusWaitingForSend
	StatusWaitingForReceive = bridge.StatusWaitingForReceive
	StatusReadyForSwap      = "READY_FOR_SWAP"
	StatusWaitingForSwap    = amm.StatusWaitingForSwap
	StatusSuccess           = "SUCCESS"
	StatusFailed            = "FAILED"
)

const (
	TxTypeFromChain swap.TxType = "FROM_CHAIN"
	TxTypeToChain   swap.TxType = "TO_CHAIN"
)

// BridgeLeg is the cross-chain leg's contract. Beyond the plain provider
// surface the composite needs to finish the receive wait itself, so it can
// hand over to the second leg the moment the bridged funds land.
type BridgeLeg interface {
	swap.Provider
	WaitForReceiveConfirmations(ctx context.Context, st swap.StateStore, order swap.Order) (*swap.Order, error)
}

// AMMLeg is the destination-chain leg's contract.
type AMMLeg interface {
	swap.Provider
}

// defaultSlippageBps is applied to composite quotes; the AMM leg executes
// against a rate quoted before the bridge completes.
const defaultSlippageBps = 300

// Provider chains a bridge transfer into an AMM swap.
type Provider struct {
	info     swap.Info
	bridge   BridgeLeg
	amm      AMMLeg
	registry *assets.Registry
	log      *zap.Logger
}

// NewProvider builds the composite over its two legs.
func NewProvider(bridgeLeg BridgeLeg, ammLeg AMMLeg, registry *assets.Registry, log *zap.Logger) (*Provider, error) {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Provider{bridge: bridgeLeg, amm: ammLeg, registry: registry, log: log}
	p.info = mergeStatusTables(bridgeLeg.Info())
	if err := p.info.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// mergeStatusTables builds the composite table: the bridge leg's statuses
// keep their steps, the AMM leg's are renumbered to follow them, and the
// terminal pair moves to the final step.
func mergeStatusTables(bridgeInfo swap.Info) swap.Info {
	statuses := map[string]swap.Status{
		StatusWaitingForApprove: bridgeInfo.Statuses[bridge.StatusWaitingForApprove],
		StatusApproveConfirmed:  bridgeInfo.Statuses[bridge.StatusApproveConfirmed],
		StatusWaitingForSend:    bridgeInfo.Statuses[bridge.StatusWaitingForSend],
		StatusWaitingForReceive: {Step: 2, Label: "Receiving {bridgeAsset}", Category: swap.CategoryPending},
		StatusReadyForSwap:      {Step: 3, Label: "Ready to swap {bridgeAsset}", Category: swap.CategoryPending},
		StatusWaitingForSwap:    {Step: 3, Label: "Swapping {bridgeAsset} for {to}", Category: swap.CategoryPending},
		StatusSuccess: {Step: 4, Label: "Completed", Category: swap.CategoryCompleted,
			Notification: func(o swap.Order) string {
				return fmt.Sprintf("Swap completed, %s ready to use", o.To)
			}},
		StatusFailed: {Step: 4, Label: "Swap Failed", Category: swap.CategoryRefunded,
			Notification: func(o swap.Order) string {
				return fmt.Sprintf("Swap failed, %s refunded", o.From)
			}},
	}
	return swap.Info{
		ID:            ProviderID,
		Statuses:      statuses,
		FromTxType:    TxTypeFromChain,
		ToTxType:      TxTypeToChain,
		TimelineSteps: []string{"APPROVE", "INITIATION", "RECEIVE", "SWAP"},
		TotalSteps:    5,
	}
}

// Info implements swap.Provider.
func (p *Provider) Info() swap.Info { return p.info }

// GetSupportedPairs composes bridge pairs with AMM pairs through the shared
// bridge asset.
func (p *Provider) GetSupportedPairs(ctx context.Context, network swap.Network) ([]swap.PairEntry, error) {
	bridgePairs, err := p.bridge.GetSupportedPairs(ctx, network)
	if err != nil {
		return nil, err
	}
	ammPairs, err := p.amm.GetSupportedPairs(ctx, network)
	if err != nil {
		return nil, err
	}

	var pairs []swap.PairEntry
	for _, bp := range bridgePairs {
		from, err := p.registry.Get(bp.From)
		if err != nil || from.IsERC20() {
			continue
		}
		for _, ap := range ammPairs {
			if ap.From != bp.To {
				continue
			}
			to, err := p.registry.Get(ap.To)
			if err != nil || !to.IsERC20() {
				continue
			}
			pairs = append(pairs, swap.PairEntry{
				From: bp.From,
				To:   ap.To,
				Rate: bp.Rate.Mul(ap.Rate),
			})
		}
	}
	return pairs, nil
}

// GetQuote prices the route leg by leg: bridge the native asset, then feed
// the bridged amount into the AMM quote. A nil quote from either leg makes
// the whole route unroutable.
func (p *Provider) GetQuote(ctx context.Context, req swap.QuoteRequest) (*swap.Quote, error) {
	if !req.Amount.IsPositive() {
		return nil, nil
	}
	from, err := p.registry.Get(req.From)
	if err != nil || from.IsERC20() {
		return nil, nil
	}
	to, err := p.registry.Get(req.To)
	if err != nil || !to.IsERC20() {
		return nil, nil
	}
	bridgeAsset, err := p.registry.MatchingOnChain(req.From, to.Chain)
	if err != nil {
		return nil, nil
	}

	legA, err := p.bridge.GetQuote(ctx, swap.QuoteRequest{
		Network: req.Network,
		From:    req.From,
		To:      bridgeAsset.Code,
		Amount:  req.Amount,
	})
	if err != nil {
		return nil, err
	}
	if legA == nil {
		return nil, nil
	}

	bridgedCurrency, err := p.registry.UnitToCurrency(bridgeAsset.Code, legA.ToAmount)
	if err != nil {
		return nil, err
	}
	legB, err := p.amm.GetQuote(ctx, swap.QuoteRequest{
		Network: req.Network,
		From:    bridgeAsset.Code,
		To:      req.To,
		Amount:  bridgedCurrency,
	})
	if err != nil {
		return nil, err
	}
	if legB == nil {
		return nil, nil
	}

	return &swap.Quote{
		Provider:          ProviderID,
		From:              req.From,
		To:                req.To,
		FromAmount:        legA.FromAmount,
		ToAmount:          legB.ToAmount,
		FromChain:         legA.FromChain,
		ToChain:           legA.ToChain,
		BridgeAsset:       bridgeAsset.Code,
		BridgeAssetAmount: legA.ToAmount,
		ReceiveFee:        legA.ReceiveFee,
		Path:              legB.Path,
		Slippage:          defaultSlippageBps,
	}, nil
}

// NewSwap starts the bridge leg and rebuilds the result as a composite
// order.
func (p *Provider) NewSwap(ctx context.Context, st swap.StateStore, req swap.SwapRequest) (*swap.Order, error) {
	q := req.Quote
	if q.BridgeAsset == "" {
		return nil, fmt.Errorf("boost: quote is missing the bridge asset")
	}

	legReq := req
	legReq.Quote.To = q.BridgeAsset
	legReq.Quote.ToAmount = q.BridgeAssetAmount
	legOrder, err := p.bridge.NewSwap(ctx, st, legReq)
	if err != nil {
		return nil, err
	}

	order := *legOrder
	order.Provider = ProviderID
	order.To = q.To
	order.ToAmount = q.ToAmount
	order.BridgeAsset = q.BridgeAsset
	order.BridgeAssetAmount = q.BridgeAssetAmount
	order.Path = q.Path
	order.ClaimFee = q.ClaimFee
	order.Slippage = q.Slippage
	if order.Slippage == 0 {
		order.Slippage = defaultSlippageBps
	}
	return &order, nil
}

// EstimateFees prices FROM_CHAIN as the bridge leg's initiation and
// TO_CHAIN as the bridge claim plus the AMM swap, summed per tier. Both
// legs must quote exactly the same tiers.
func (p *Provider) EstimateFees(ctx context.Context, st swap.StateStore, req swap.FeeRequest) (swap.FeeEstimates, error) {
	switch req.TxType {
	case TxTypeFromChain:
		legReq := req
		legReq.TxType = p.bridge.Info().FromTxType
		legReq.Quote.To = req.Quote.BridgeAsset
		legReq.Quote.ToAmount = req.Quote.BridgeAssetAmount
		return p.bridge.EstimateFees(ctx, st, legReq)
	case TxTypeToChain:
		claimReq := req
		claimReq.TxType = p.bridge.Info().ToTxType
		claimReq.Quote.To = req.Quote.BridgeAsset
		claimReq.Quote.ToAmount = req.Quote.BridgeAssetAmount
		claimFees, err := p.bridge.EstimateFees(ctx, st, claimReq)
		if err != nil {
			return nil, err
		}

		swapReq := req
		swapReq.TxType = p.amm.Info().FromTxType
		swapReq.Quote.From = req.Quote.BridgeAsset
		swapReq.Quote.FromAmount = req.Quote.BridgeAssetAmount
		swapFees, err := p.amm.EstimateFees(ctx, st, swapReq)
		if err != nil {
			return nil, err
		}

		return sumFees(claimFees, swapFees)
	default:
		return nil, &swap.InvalidTxTypeError{Provider: ProviderID, TxType: req.TxType}
	}
}

// sumFees adds two estimates tier by tier. A tier present on one side only
// means the legs were priced against different tier sets, which would
// silently understate the total, so it is an error.
func sumFees(a, b swap.FeeEstimates) (swap.FeeEstimates, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("boost: fee tier sets differ (%d vs %d tiers)", len(a), len(b))
	}
	out := make(swap.FeeEstimates, len(a))
	for tier, fee := range a {
		other, ok := b[tier]
		if !ok {
			return nil, fmt.Errorf("boost: fee tier %v missing from one leg", tier)
		}
		out[tier] = fee.Add(other)
	}
	return out, nil
}

// PerformNextSwapAction advances whichever leg owns the current status. The
// handover from bridge to AMM happens inside the receive wait: the bridge
// leg must be terminal before the AMM leg starts.
func (p *Provider) PerformNextSwapAction(ctx context.Context, st swap.StateStore, order swap.Order) (*swap.Order, error) {
	if p.info.IsTerminal(order.Status) {
		return nil, nil
	}

	if order.Status == StatusWaitingForReceive {
		return p.finishBridgeLeg(ctx, st, order)
	}

	if p.bridge.Info().Owns(order.Status) {
		updated, err := p.bridge.PerformNextSwapAction(ctx, st, toBridgeLeg(order))
		if err != nil {
			return nil, err
		}
		if updated != nil {
			merged := fromBridgeLeg(order, *updated)
			return &merged, nil
		}
		// fall through: a status the bridge owns but will not advance may
		// belong to the next leg
	}

	if p.amm.Info().Owns(toAMMStatus(order.Status)) {
		updated, err := p.amm.PerformNextSwapAction(ctx, st, toAMMLeg(order))
		if err != nil {
			return nil, err
		}
		if updated == nil {
			return nil, nil
		}
		merged := fromAMMLeg(order, *updated)
		return &merged, nil
	}

	return nil, &swap.UnknownStatusError{Provider: ProviderID, Status: order.Status}
}

// finishBridgeLeg waits out the bridge leg's receive confirmations. Only a
// terminal bridge result moves the composite on: success hands over to the
// AMM leg, failure ends the order.
func (p *Provider) finishBridgeLeg(ctx context.Context, st swap.StateStore, order swap.Order) (*swap.Order, error) {
	updated, err := p.bridge.WaitForReceiveConfirmations(ctx, st, toBridgeLeg(order))
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, nil
	}
	if !p.bridge.Info().IsTerminal(updated.Status) {
		return nil, nil
	}

	merged := fromBridgeLeg(order, *updated)
	if updated.Status == bridge.StatusFailed {
		merged.Status = StatusFailed
		return &merged, nil
	}

	// The bridge leg's end time is not the composite's: the AMM leg is
	// still ahead.
	merged.Status = StatusReadyForSwap
	merged.EndTime = time.Time{}
	p.log.Info("bridge leg complete, starting destination swap",
		zap.String("orderId", order.ID),
		zap.String("bridgeAsset", order.BridgeAsset))
	return &merged, nil
}
