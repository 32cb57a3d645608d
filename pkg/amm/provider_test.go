package amm

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"crosswap/pkg/assets"
	"crosswap/pkg/chain"
	"crosswap/pkg/lock"
	"crosswap/pkg/poll"
	"crosswap/pkg/swap"
	"crosswap/pkg/swap/swaptest"
)

const testRouter = "0xrouter000000000000000000000000000000arb"

func testProvider(t *testing.T) *Provider {
	t.Helper()
	registry, err := assets.NewRegistry(assets.DefaultAssets())
	require.NoError(t, err)

	p, err := NewProvider(Config{
		Chains: map[string]ChainConfig{
			"arbitrum": {Router: testRouter, SwapGasLimit: 200000, ApproveGasLimit: 100000},
		},
		Pairs: []swap.PairEntry{
			{From: "AETH", To: "ARBDAI", Rate: decimal.NewFromInt(2000)},
			{From: "ARBDAI", To: "AETH", Rate: decimal.RequireFromString("0.0005")},
		},
		FeeBps: 30,
		Poll:   poll.Config{Interval: time.Millisecond, Timeout: 5 * time.Millisecond},
	}, registry, lock.NewKeyed(), zap.NewNop())
	require.NoError(t, err)
	return p
}

func TestNewProviderRejectsRatelessPair(t *testing.T) {
	registry, err := assets.NewRegistry(assets.DefaultAssets())
	require.NoError(t, err)

	_, err = NewProvider(Config{
		Chains: map[string]ChainConfig{"arbitrum": {Router: testRouter}},
		Pairs:  []swap.PairEntry{{From: "AETH", To: "ARBDAI"}},
	}, registry, lock.NewKeyed(), zap.NewNop())
	assert.ErrorContains(t, err, "no rate")
}

func TestStatusStepsNeverDecrease(t *testing.T) {
	info := testProvider(t).Info()

	paths := [][]string{
		{StatusWaitingForApprove, StatusApproveConfirmed, StatusWaitingForSwap, StatusSuccess},
		{StatusWaitingForApprove, StatusFailed},
		{StatusWaitingForSwap, StatusFailed},
	}
	for _, path := range paths {
		swaptest.RequireMonotonicSteps(t, info, path)
	}
}

func TestGetQuoteAppliesRateAndPoolFee(t *testing.T) {
	p := testProvider(t)

	q, err := p.GetQuote(context.Background(), swap.QuoteRequest{
		Network: swap.Mainnet, From: "AETH", To: "ARBDAI", Amount: decimal.NewFromInt(1),
	})
	require.NoError(t, err)
	require.NotNil(t, q)

	assert.True(t, q.FromAmount.Equal(decimal.RequireFromString("1000000000000000000")))
	// 1 AETH at 2000 less 30 bps is 1994 DAI.
	assert.True(t, q.ToAmount.Equal(decimal.RequireFromString("1994000000000000000000")), q.ToAmount.String())
	assert.Equal(t, []string{"AETH", "ARBDAI"}, q.Path)
	assert.Equal(t, "arbitrum", q.FromChain)
}

func TestGetQuoteUnroutablePairs(t *testing.T) {
	p := testProvider(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  swap.QuoteRequest
	}{
		{"non-positive amount", swap.QuoteRequest{From: "AETH", To: "ARBDAI", Amount: decimal.Zero}},
		{"no configured rate", swap.QuoteRequest{From: "ETH", To: "DAI", Amount: decimal.NewFromInt(1)}},
		{"reverse only one way", swap.QuoteRequest{From: "ARBDAI", To: "USDC", Amount: decimal.NewFromInt(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := p.GetQuote(ctx, tt.req)
			assert.NoError(t, err)
			assert.Nil(t, q)
		})
	}
}

func TestEstimateFees(t *testing.T) {
	p := testProvider(t)
	st := swaptest.NewFakeStore(swaptest.NewFakeChain())
	ctx := context.Background()

	// Native source: 200000 gas at 10 gwei with the 1.1 margin.
	fees, err := p.EstimateFees(ctx, st, swap.FeeRequest{
		TxType: TxTypeSwap, Quote: swap.Quote{From: "AETH", To: "ARBDAI"}, FeePrices: []float64{10},
	})
	require.NoError(t, err)
	assert.True(t, fees[10].Equal(decimal.RequireFromString("0.0022")), fees[10].String())

	// Contract-token source pays for approval too.
	fees, err = p.EstimateFees(ctx, st, swap.FeeRequest{
		TxType: TxTypeSwap, Quote: swap.Quote{From: "ARBDAI", To: "AETH"}, FeePrices: []float64{10},
	})
	require.NoError(t, err)
	assert.True(t, fees[10].Equal(decimal.RequireFromString("0.0033")), fees[10].String())

	_, err = p.EstimateFees(ctx, st, swap.FeeRequest{TxType: "CLAIM", Quote: swap.Quote{From: "AETH"}})
	var invalidType *swap.InvalidTxTypeError
	assert.ErrorAs(t, err, &invalidType)
}

func TestSwapWalkNativeSource(t *testing.T) {
	p := testProvider(t)
	client := swaptest.NewFakeChain()
	st := swaptest.NewFakeStore(client)
	ctx := context.Background()

	order, err := p.NewSwap(ctx, st, swap.SwapRequest{
		Network:  swap.Mainnet,
		WalletID: "w1",
		Quote: swap.Quote{
			Provider: ProviderID, From: "AETH", To: "ARBDAI",
			FromAmount: decimal.RequireFromString("1000000000000000000"),
			ToAmount:   decimal.RequireFromString("1994000000000000000000"),
			FromChain:  "arbitrum", ToChain: "arbitrum",
			Path: []string{"AETH", "ARBDAI"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, StatusApproveConfirmed, order.Status)
	assert.Empty(t, client.Sent)

	updated, err := p.PerformNextSwapAction(ctx, st, *order)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, StatusWaitingForSwap, updated.Status)
	require.Len(t, client.Sent, 1)
	assert.Equal(t, testRouter, client.Sent[0].To)
	assert.True(t, client.Sent[0].Value.Equal(order.FromAmount))
	order = updated

	// Unconfirmed swap: not ready yet.
	updated, err = p.PerformNextSwapAction(ctx, st, *order)
	require.NoError(t, err)
	assert.Nil(t, updated)

	client.SetTx(order.FromFundHash, 1, chain.TxSuccess)
	updated, err = p.PerformNextSwapAction(ctx, st, *order)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, StatusSuccess, updated.Status)
	assert.False(t, updated.EndTime.IsZero())
	assert.Contains(t, st.BalanceCalls, []string{"AETH", "ARBDAI"})
}

func TestSwapWalkERC20Source(t *testing.T) {
	p := testProvider(t)
	client := swaptest.NewFakeChain()
	st := swaptest.NewFakeStore(client)
	ctx := context.Background()

	order, err := p.NewSwap(ctx, st, swap.SwapRequest{
		Network:  swap.Mainnet,
		WalletID: "w1",
		Quote: swap.Quote{
			Provider: ProviderID, From: "ARBDAI", To: "AETH",
			FromAmount: decimal.RequireFromString("2000000000000000000000"),
			ToAmount:   decimal.RequireFromString("997000000000000000"),
			FromChain:  "arbitrum", ToChain: "arbitrum",
			Path: []string{"ARBDAI", "AETH"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, StatusWaitingForApprove, order.Status)
	require.Len(t, client.Sent, 1)
	assert.NotEmpty(t, client.Sent[0].Data)

	// Approval still pending.
	updated, err := p.PerformNextSwapAction(ctx, st, *order)
	require.NoError(t, err)
	assert.Nil(t, updated)

	client.SetTx(order.ApproveTxHash, 1, chain.TxSuccess)
	updated, err = p.PerformNextSwapAction(ctx, st, *order)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, StatusApproveConfirmed, updated.Status)
	order = updated

	updated, err = p.PerformNextSwapAction(ctx, st, *order)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, StatusWaitingForSwap, updated.Status)
	require.Len(t, client.Sent, 2)
	assert.Equal(t, testRouter, client.Sent[1].To)
	assert.NotEmpty(t, client.Sent[1].TokenContract)
}

func TestFailedApprovalRefundsOrder(t *testing.T) {
	p := testProvider(t)
	client := swaptest.NewFakeChain()
	st := swaptest.NewFakeStore(client)

	client.SetTx("0xapprove", 0, chain.TxFailed)
	order := swap.Order{
		ID: "o1", Provider: ProviderID, Network: swap.Mainnet, WalletID: "w1",
		From: "ARBDAI", To: "AETH", FromChain: "arbitrum", ToChain: "arbitrum",
		ApproveTxHash: "0xapprove", Status: StatusWaitingForApprove,
	}

	updated, err := p.PerformNextSwapAction(context.Background(), st, order)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, StatusFailed, updated.Status)
	assert.False(t, updated.EndTime.IsZero())
}
