package intent

import (
	"context"
	"testing"
	"time"

	oneclick "github.com/defuse-protocol/one-click-sdk-go"
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

func apiToken(assetID, symbol, blockchain string) oneclick.TokenResponse {
	var tok oneclick.TokenResponse
	tok.SetAssetId(assetID)
	tok.SetSymbol(symbol)
	tok.SetBlockchain(blockchain)
	return tok
}

func quoteResponse(amountOut, depositAddress string) *oneclick.QuoteResponse {
	var q oneclick.Quote
	q.SetAmountOut(amountOut)
	if depositAddress != "" {
		q.SetDepositAddress(depositAddress)
	}
	var resp oneclick.QuoteResponse
	resp.SetQuote(q)
	return &resp
}

func executionResponse(status, destHash string) *oneclick.GetExecutionStatusResponse {
	var resp oneclick.GetExecutionStatusResponse
	resp.SetStatus(status)
	if destHash != "" {
		var tx oneclick.TransactionDetails
		tx.SetHash(destHash)
		var details oneclick.SwapDetails
		details.SetDestinationChainTxHashes([]oneclick.TransactionDetails{tx})
		resp.SetSwapDetails(details)
	}
	return &resp
}

// stubAPI scripts the 1Click surface and records submissions.
type stubAPI struct {
	tokens    []oneclick.TokenResponse
	quote     *oneclick.QuoteResponse
	quoteReqs []QuoteParams
	execution *oneclick.GetExecutionStatusResponse
	submitted [][2]string
	submitErr error
}

func (s *stubAPI) Tokens(ctx context.Context) ([]oneclick.TokenResponse, error) {
	return s.tokens, nil
}

func (s *stubAPI) Quote(ctx context.Context, params QuoteParams) (*oneclick.QuoteResponse, error) {
	s.quoteReqs = append(s.quoteReqs, params)
	return s.quote, nil
}

func (s *stubAPI) SubmitDepositTx(ctx context.Context, depositAddress, txHash string) error {
	s.submitted = append(s.submitted, [2]string{depositAddress, txHash})
	return s.submitErr
}

func (s *stubAPI) ExecutionStatus(ctx context.Context, depositAddress string) (*oneclick.GetExecutionStatusResponse, error) {
	return s.execution, nil
}

func routableTokens() []oneclick.TokenResponse {
	return []oneclick.TokenResponse{
		apiToken("nep141:eth.omft.near", "ETH", "eth"),
		apiToken("nep141:sol.omft.near", "SOL", "sol"),
	}
}

func testProvider(t *testing.T, api API) *Provider {
	t.Helper()
	registry, err := assets.NewRegistry(assets.DefaultAssets())
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Poll = poll.Config{Interval: time.Millisecond, Timeout: 5 * time.Millisecond}
	resolver := func(network swap.Network, walletID, chainName string) (string, error) {
		return "recipient-on-" + chainName, nil
	}
	p, err := NewProvider(cfg, api, registry, lock.NewKeyed(), resolver, zap.NewNop())
	require.NoError(t, err)
	return p
}

func TestStatusStepsNeverDecrease(t *testing.T) {
	info := testProvider(t, &stubAPI{}).Info()

	paths := [][]string{
		{StatusWaitingForDeposit, StatusDepositReported, StatusWaitingForExecution, StatusSuccess},
		{StatusWaitingForDeposit, StatusFailed},
		{StatusWaitingForExecution, StatusFailed},
	}
	for _, path := range paths {
		swaptest.RequireMonotonicSteps(t, info, path)
	}
}

func TestGetSupportedPairs(t *testing.T) {
	p := testProvider(t, &stubAPI{tokens: routableTokens()})

	pairs, err := p.GetSupportedPairs(context.Background(), swap.Mainnet)
	require.NoError(t, err)

	// Two routable assets pair up both ways.
	require.Len(t, pairs, 2)
	assert.ElementsMatch(t, []swap.PairEntry{
		{From: "ETH", To: "SOL"},
		{From: "SOL", To: "ETH"},
	}, pairs)
}

func TestGetQuoteUsesDryQuote(t *testing.T) {
	api := &stubAPI{tokens: routableTokens(), quote: quoteResponse("12500000000", "")}
	p := testProvider(t, api)

	q, err := p.GetQuote(context.Background(), swap.QuoteRequest{
		Network: swap.Mainnet, From: "ETH", To: "SOL", Amount: decimal.NewFromInt(1),
	})
	require.NoError(t, err)
	require.NotNil(t, q)

	assert.True(t, q.FromAmount.Equal(decimal.RequireFromString("1000000000000000000")))
	assert.True(t, q.ToAmount.Equal(decimal.NewFromInt(12500000000)))
	assert.Equal(t, "ethereum", q.FromChain)
	assert.Equal(t, "solana", q.ToChain)

	require.Len(t, api.quoteReqs, 1)
	assert.True(t, api.quoteReqs[0].Dry)
	assert.Equal(t, "nep141:eth.omft.near", api.quoteReqs[0].OriginAssetID)
	assert.Equal(t, "recipient-on-solana", api.quoteReqs[0].Recipient)
}

func TestGetQuoteUnroutable(t *testing.T) {
	p := testProvider(t, &stubAPI{tokens: routableTokens()})
	ctx := context.Background()

	q, err := p.GetQuote(ctx, swap.QuoteRequest{From: "ETH", To: "SOL", Amount: decimal.Zero})
	assert.NoError(t, err)
	assert.Nil(t, q)

	// DAI is in the registry but not routable through the API.
	q, err = p.GetQuote(ctx, swap.QuoteRequest{From: "DAI", To: "SOL", Amount: decimal.NewFromInt(1)})
	assert.NoError(t, err)
	assert.Nil(t, q)
}

func TestNewSwapFundsDepositAddress(t *testing.T) {
	api := &stubAPI{tokens: routableTokens(), quote: quoteResponse("12500000000", "0xdeposit")}
	p := testProvider(t, api)
	client := swaptest.NewFakeChain()
	st := swaptest.NewFakeStore(client)

	order, err := p.NewSwap(context.Background(), st, swap.SwapRequest{
		Network:  swap.Mainnet,
		WalletID: "w1",
		Quote: swap.Quote{
			Provider: ProviderID, From: "ETH", To: "SOL",
			FromAmount: decimal.RequireFromString("1000000000000000000"),
			ToAmount:   decimal.NewFromInt(12500000000),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusWaitingForDeposit, order.Status)
	assert.Equal(t, "0xdeposit", order.DepositAddress)
	assert.NotEmpty(t, order.FromFundHash)
	require.Len(t, client.Sent, 1)
	assert.Equal(t, "0xdeposit", client.Sent[0].To)
	assert.True(t, client.Sent[0].Value.Equal(order.FromAmount))

	// The committed quote reserved the address.
	require.Len(t, api.quoteReqs, 1)
	assert.False(t, api.quoteReqs[0].Dry)
}

func TestNewSwapRequiresDepositAddress(t *testing.T) {
	api := &stubAPI{tokens: routableTokens(), quote: quoteResponse("12500000000", "")}
	p := testProvider(t, api)

	_, err := p.NewSwap(context.Background(), swaptest.NewFakeStore(swaptest.NewFakeChain()), swap.SwapRequest{
		Network:  swap.Mainnet,
		WalletID: "w1",
		Quote:    swap.Quote{From: "ETH", To: "SOL", FromAmount: decimal.NewFromInt(1)},
	})
	assert.ErrorContains(t, err, "deposit address")
}

func TestEstimateFees(t *testing.T) {
	p := testProvider(t, &stubAPI{tokens: routableTokens()})
	st := swaptest.NewFakeStore(swaptest.NewFakeChain())
	ctx := context.Background()

	// Native deposit: 21000 gas at 10 gwei with the 1.1 margin.
	fees, err := p.EstimateFees(ctx, st, swap.FeeRequest{
		TxType: TxTypeDeposit, Quote: swap.Quote{From: "ETH"}, FeePrices: []float64{10},
	})
	require.NoError(t, err)
	assert.True(t, fees[10].Equal(decimal.RequireFromString("0.000231")), fees[10].String())

	// Token deposits cost the transfer-call limit.
	fees, err = p.EstimateFees(ctx, st, swap.FeeRequest{
		TxType: TxTypeDeposit, Quote: swap.Quote{From: "DAI"}, FeePrices: []float64{10},
	})
	require.NoError(t, err)
	assert.True(t, fees[10].Equal(decimal.RequireFromString("0.000715")), fees[10].String())

	_, err = p.EstimateFees(ctx, st, swap.FeeRequest{TxType: "SWAP", Quote: swap.Quote{From: "ETH"}})
	var invalidType *swap.InvalidTxTypeError
	assert.ErrorAs(t, err, &invalidType)
}

func TestDepositWalkToSuccess(t *testing.T) {
	api := &stubAPI{tokens: routableTokens(), quote: quoteResponse("12500000000", "0xdeposit")}
	p := testProvider(t, api)
	client := swaptest.NewFakeChain()
	st := swaptest.NewFakeStore(client)
	ctx := context.Background()

	order, err := p.NewSwap(ctx, st, swap.SwapRequest{
		Network:  swap.Mainnet,
		WalletID: "w1",
		Quote: swap.Quote{
			Provider: ProviderID, From: "ETH", To: "SOL",
			FromAmount: decimal.RequireFromString("1000000000000000000"),
			ToAmount:   decimal.NewFromInt(12500000000),
		},
	})
	require.NoError(t, err)

	// Deposit unconfirmed: nothing to do yet.
	updated, err := p.PerformNextSwapAction(ctx, st, *order)
	require.NoError(t, err)
	assert.Nil(t, updated)
	assert.Empty(t, api.submitted)

	client.SetTx(order.FromFundHash, 1, chain.TxSuccess)
	updated, err = p.PerformNextSwapAction(ctx, st, *order)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, StatusDepositReported, updated.Status)
	require.Len(t, api.submitted, 1)
	assert.Equal(t, [2]string{"0xdeposit", order.FromFundHash}, api.submitted[0])
	order = updated

	updated, err = p.PerformNextSwapAction(ctx, st, *order)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, StatusWaitingForExecution, updated.Status)
	assert.Contains(t, st.BalanceCalls, []string{"ETH"})
	order = updated

	// Still executing.
	api.execution = executionResponse("PENDING_DEPOSIT", "")
	updated, err = p.PerformNextSwapAction(ctx, st, *order)
	require.NoError(t, err)
	assert.Nil(t, updated)

	api.execution = executionResponse("SUCCESS", "0xdestination")
	updated, err = p.PerformNextSwapAction(ctx, st, *order)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, StatusSuccess, updated.Status)
	assert.Equal(t, "0xdestination", updated.ReceiveTxHash)
	assert.False(t, updated.EndTime.IsZero())
}

func TestRefundedExecutionFailsOrder(t *testing.T) {
	api := &stubAPI{execution: executionResponse("REFUNDED", "")}
	p := testProvider(t, api)

	order := swap.Order{
		ID: "o1", Provider: ProviderID, Network: swap.Mainnet, WalletID: "w1",
		From: "ETH", To: "SOL", DepositAddress: "0xdeposit",
		Status: StatusWaitingForExecution,
	}
	updated, err := p.PerformNextSwapAction(context.Background(), swaptest.NewFakeStore(swaptest.NewFakeChain()), order)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, StatusFailed, updated.Status)
	assert.False(t, updated.EndTime.IsZero())
}

func TestFailedDepositFailsOrder(t *testing.T) {
	p := testProvider(t, &stubAPI{})
	client := swaptest.NewFakeChain()
	st := swaptest.NewFakeStore(client)

	client.SetTx("0xfund", 0, chain.TxFailed)
	order := swap.Order{
		ID: "o1", Provider: ProviderID, Network: swap.Mainnet, WalletID: "w1",
		From: "ETH", To: "SOL", DepositAddress: "0xdeposit",
		FromFundHash: "0xfund", Status: StatusWaitingForDeposit,
	}
	updated, err := p.PerformNextSwapAction(context.Background(), st, order)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, StatusFailed, updated.Status)
}
