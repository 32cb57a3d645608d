package boost

import (
	"github.com/shopspring/decimal"

	"crosswap/pkg/amm"
	"crosswap/pkg/swap"
)

// The composite order stores both legs in one record. These adapters project
// it into the shape each sub-provider expects and merge the sub-provider's
// update back. They are pure: no I/O, no mutation of their inputs.

// toBridgeLeg is the cross-chain leg's view: the swap ends at the bridge
// asset, not the final token.
func toBridgeLeg(o swap.Order) swap.Order {
	leg := o
	leg.To = o.BridgeAsset
	leg.ToAmount = o.BridgeAssetAmount
	leg.Path = nil
	leg.ToFundHash = ""
	return leg
}

// fromBridgeLeg merges a bridge-leg update back into the composite record.
// The composite's destination fields are preserved; only the fields the
// bridge leg advances flow back.
func fromBridgeLeg(composite, updated swap.Order) swap.Order {
	merged := composite
	merged.Status = updated.Status
	merged.ApproveTxHash = updated.ApproveTxHash
	merged.FromFundHash = updated.FromFundHash
	merged.ReceiveTxHash = updated.ReceiveTxHash
	merged.EndTime = updated.EndTime
	return merged
}

// toAMMLeg is the destination-chain leg's view: a same-chain swap of the
// bridged amount into the final token, funded from the destination account
// and priced at the destination-chain fee tier.
func toAMMLeg(o swap.Order) swap.Order {
	leg := o
	leg.From = o.BridgeAsset
	leg.FromAmount = o.BridgeAssetAmount
	leg.FromChain = o.ToChain
	leg.FromAccountID = o.ToAccountID
	leg.Fee = o.ClaimFee
	leg.ApproveTxHash = ""
	leg.FromFundHash = o.ToFundHash
	leg.ReceiveTxHash = ""
	leg.BridgeAsset = ""
	leg.BridgeAssetAmount = decimal.Decimal{}
	leg.Status = toAMMStatus(o.Status)
	return leg
}

// fromAMMLeg merges an AMM-leg update back into the composite record.
func fromAMMLeg(composite, updated swap.Order) swap.Order {
	merged := composite
	merged.Status = fromAMMStatus(updated.Status)
	merged.ToFundHash = updated.FromFundHash
	merged.EndTime = updated.EndTime
	return merged
}

// toAMMStatus maps composite status names onto the AMM provider's table.
// READY_FOR_SWAP namespaces the AMM's post-approve state so it cannot
// collide with the bridge leg's identically named status.
func toAMMStatus(status string) string {
	if status == StatusReadyForSwap {
		return amm.StatusApproveConfirmed
	}
	return status
}

// fromAMMStatus is the inverse mapping.
func fromAMMStatus(status string) string {
	if status == amm.StatusApproveConfirmed {
		return StatusReadyForSwap
	}
	return status
}
