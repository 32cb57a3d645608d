package boost

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"crosswap/pkg/amm"
	"crosswap/pkg/swap"
)

func compositeOrder() swap.Order {
	return swap.Order{
		ID:                "o1",
		Provider:          ProviderID,
		Network:           swap.Mainnet,
		WalletID:          "w1",
		From:              "ETH",
		To:                "ARBDAI",
		FromAmount:        decimal.RequireFromString("1000000000000000000"),
		ToAmount:          decimal.RequireFromString("1994000000000000000000"),
		FromAccountID:     "acct-from",
		ToAccountID:       "acct-to",
		Fee:               decimal.NewFromInt(10),
		ClaimFee:          decimal.NewFromInt(2),
		FromChain:         "ethereum",
		ToChain:           "arbitrum",
		BridgeAsset:       "AETH",
		BridgeAssetAmount: decimal.RequireFromString("997000000000000000"),
		Path:              []string{"AETH", "ARBDAI"},
		Status:            StatusWaitingForSend,
		FromFundHash:      "0xsend",
		ToFundHash:        "0xswap",
	}
}

func TestToBridgeLeg(t *testing.T) {
	o := compositeOrder()
	leg := toBridgeLeg(o)

	assert.Equal(t, "AETH", leg.To)
	assert.True(t, leg.ToAmount.Equal(o.BridgeAssetAmount))
	assert.Nil(t, leg.Path)
	assert.Empty(t, leg.ToFundHash)
	// Source side passes through untouched.
	assert.Equal(t, o.From, leg.From)
	assert.Equal(t, o.FromFundHash, leg.FromFundHash)
	assert.Equal(t, o.Status, leg.Status)
}

func TestFromBridgeLegPreservesDestination(t *testing.T) {
	o := compositeOrder()
	updated := toBridgeLeg(o)
	updated.Status = StatusWaitingForReceive
	updated.ReceiveTxHash = "0xrecv"

	merged := fromBridgeLeg(o, updated)
	assert.Equal(t, StatusWaitingForReceive, merged.Status)
	assert.Equal(t, "0xrecv", merged.ReceiveTxHash)
	// The composite's real destination survives the merge.
	assert.Equal(t, "ARBDAI", merged.To)
	assert.True(t, merged.ToAmount.Equal(o.ToAmount))
	assert.Equal(t, "0xswap", merged.ToFundHash)
}

func TestToAMMLeg(t *testing.T) {
	o := compositeOrder()
	o.Status = StatusReadyForSwap
	leg := toAMMLeg(o)

	assert.Equal(t, "AETH", leg.From)
	assert.True(t, leg.FromAmount.Equal(o.BridgeAssetAmount))
	assert.Equal(t, "arbitrum", leg.FromChain)
	assert.Equal(t, "acct-to", leg.FromAccountID)
	assert.True(t, leg.Fee.Equal(o.ClaimFee))
	assert.Equal(t, "0xswap", leg.FromFundHash)
	assert.Empty(t, leg.ApproveTxHash)
	assert.Empty(t, leg.ReceiveTxHash)
	assert.Empty(t, leg.BridgeAsset)
	assert.True(t, leg.BridgeAssetAmount.IsZero())
	assert.Equal(t, amm.StatusApproveConfirmed, leg.Status)
}

func TestFromAMMLeg(t *testing.T) {
	o := compositeOrder()
	o.Status = StatusReadyForSwap

	updated := toAMMLeg(o)
	updated.Status = amm.StatusWaitingForSwap
	updated.FromFundHash = "0xswap2"

	merged := fromAMMLeg(o, updated)
	assert.Equal(t, StatusWaitingForSwap, merged.Status)
	assert.Equal(t, "0xswap2", merged.ToFundHash)
	// Bridge-leg history is untouched.
	assert.Equal(t, "0xsend", merged.FromFundHash)
	assert.Equal(t, "AETH", merged.BridgeAsset)

	updated.Status = amm.StatusSuccess
	updated.EndTime = time.Now()
	merged = fromAMMLeg(o, updated)
	assert.Equal(t, StatusSuccess, merged.Status)
	assert.False(t, merged.EndTime.IsZero())
}

func TestStatusTranslationRoundTrip(t *testing.T) {
	assert.Equal(t, amm.StatusApproveConfirmed, toAMMStatus(StatusReadyForSwap))
	assert.Equal(t, StatusReadyForSwap, fromAMMStatus(amm.StatusApproveConfirmed))

	// Everything else passes through unchanged.
	assert.Equal(t, StatusWaitingForSwap, toAMMStatus(StatusWaitingForSwap))
	assert.Equal(t, StatusSuccess, fromAMMStatus(StatusSuccess))
}
