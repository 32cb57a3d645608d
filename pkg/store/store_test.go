package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crosswap/pkg/assets"
	"crosswap/pkg/swap"
	"crosswap/pkg/swap/swaptest"
)

func testStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.json")
	registry, err := assets.NewRegistry(assets.DefaultAssets())
	require.NoError(t, err)
	s, err := New(path, registry, nil)
	require.NoError(t, err)
	return s, path
}

func reopen(t *testing.T, path string) *Store {
	t.Helper()
	registry, err := assets.NewRegistry(assets.DefaultAssets())
	require.NoError(t, err)
	s, err := New(path, registry, nil)
	require.NoError(t, err)
	return s
}

func sampleOrder(id string) *swap.Order {
	return &swap.Order{
		ID:         id,
		Provider:   "bridge",
		Network:    swap.Mainnet,
		WalletID:   "w1",
		From:       "ETH",
		To:         "AETH",
		FromAmount: decimal.RequireFromString("1000000000000000000"),
		ToAmount:   decimal.RequireFromString("997000000000000000"),
		Status:     "WAITING_FOR_SEND_CONFIRMATIONS",
		StartTime:  time.Now().UTC(),
	}
}

func TestOrderLifecycle(t *testing.T) {
	s, _ := testStore(t)

	order := sampleOrder("o1")
	require.NoError(t, s.CreateOrder(order))
	assert.ErrorContains(t, s.CreateOrder(order), "already exists")

	got, err := s.Order("o1")
	require.NoError(t, err)
	assert.Equal(t, "WAITING_FOR_SEND_CONFIRMATIONS", got.Status)
	assert.True(t, got.FromAmount.Equal(order.FromAmount))

	got.Status = "SUCCESS"
	got.EndTime = time.Now().UTC()
	require.NoError(t, s.UpdateOrder(got))

	reloaded, err := s.Order("o1")
	require.NoError(t, err)
	assert.Equal(t, "SUCCESS", reloaded.Status)

	assert.ErrorContains(t, s.UpdateOrder(sampleOrder("missing")), "not found")
	_, err = s.Order("missing")
	assert.Error(t, err)
}

func TestActiveOrdersFiltersTerminalAndNetwork(t *testing.T) {
	s, _ := testStore(t)

	open := sampleOrder("open")
	require.NoError(t, s.CreateOrder(open))

	done := sampleOrder("done")
	done.EndTime = time.Now()
	require.NoError(t, s.CreateOrder(done))

	testnet := sampleOrder("testnet")
	testnet.Network = swap.Testnet
	require.NoError(t, s.CreateOrder(testnet))

	active := s.ActiveOrders(swap.Mainnet)
	require.Len(t, active, 1)
	assert.Equal(t, "open", active[0].ID)
}

func TestStateSurvivesReload(t *testing.T) {
	s, path := testStore(t)

	require.NoError(t, s.CreateOrder(sampleOrder("o1")))
	require.NoError(t, s.AddAccount(&swap.Account{ID: "primary", WalletID: "w1", Type: "default", Chain: "ethereum"}))
	require.NoError(t, s.ReplacePairs([]swap.PairEntry{
		{From: "ETH", To: "AETH", Provider: "bridge", Rate: decimal.NewFromInt(1)},
	}))

	s2 := reopen(t, path)

	order, err := s2.Order("o1")
	require.NoError(t, err)
	assert.True(t, order.FromAmount.Equal(decimal.RequireFromString("1000000000000000000")))

	acct, err := s2.Account(swap.Mainnet, "w1", "primary")
	require.NoError(t, err)
	assert.Equal(t, "ethereum", acct.Chain)

	pairs := s2.Pairs()
	require.Len(t, pairs, 1)
	assert.Equal(t, "bridge", pairs[0].Provider)
}

func TestAccountLookupChecksWallet(t *testing.T) {
	s, _ := testStore(t)
	require.NoError(t, s.AddAccount(&swap.Account{ID: "primary", WalletID: "w1", Type: "default"}))

	_, err := s.Account(swap.Mainnet, "other-wallet", "primary")
	assert.Error(t, err)
}

func TestClientResolvesAssetChain(t *testing.T) {
	s, _ := testStore(t)
	fake := swaptest.NewFakeChain()
	s.RegisterClient("ethereum", fake)

	// DAI lives on ethereum, so both resolve to the same client.
	c, err := s.Client(swap.Mainnet, "w1", "DAI")
	require.NoError(t, err)
	assert.Equal(t, fake.Addresses(), c.Addresses())

	_, err = s.Client(swap.Mainnet, "w1", "SOL")
	assert.ErrorContains(t, err, "no client")

	c, err = s.ClientForChain("ethereum")
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestUpdateBalancesCachesUnits(t *testing.T) {
	s, _ := testStore(t)
	fake := swaptest.NewFakeChain()
	fake.BalanceOf[""] = decimal.RequireFromString("2000000000000000000")
	s.RegisterClient("ethereum", fake)

	require.NoError(t, s.UpdateBalances(context.Background(), swap.Mainnet, "w1", []string{"ETH"}))
	assert.True(t, s.Balance("w1", "ETH").Equal(decimal.RequireFromString("2000000000000000000")))

	// An unknown asset is a hard error, not a skip.
	assert.Error(t, s.UpdateBalances(context.Background(), swap.Mainnet, "w1", []string{"WAT"}))
}
