// Package swaptest provides scripted fakes for provider and engine tests:
// a chain client with preloaded transactions and a state store that records
// what providers ask of it.
package swaptest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"crosswap/pkg/chain"
	"crosswap/pkg/swap"
)

// RequireMonotonicSteps asserts that walking the given status sequence never
// moves to a lower step in the provider's status table.
func RequireMonotonicSteps(t *testing.T, info swap.Info, path []string) {
	t.Helper()
	for i, name := range path {
		st, ok := info.Statuses[name]
		require.True(t, ok, "status %s is not in the %s table", name, info.ID)
		if i == 0 {
			continue
		}
		prev := info.Statuses[path[i-1]]
		require.GreaterOrEqual(t, st.Step, prev.Step, "step drops between %s and %s", path[i-1], name)
	}
}

// FakeChain is a chain.Client backed by in-memory state. Transactions are
// looked up from Txs; anything absent is chain.ErrTxNotFound. Sends record
// the request and hand out deterministic hashes.
type FakeChain struct {
	mu sync.Mutex

	Addrs      []string
	Txs        map[string]*chain.Transaction
	BalanceOf  map[string]decimal.Decimal
	LookupErr  error
	SendErr    error
	NextHashes []string
	Sent       []chain.TxRequest
}

// NewFakeChain returns an empty fake with one address.
func NewFakeChain() *FakeChain {
	return &FakeChain{
		Addrs:     []string{"0xfake0000000000000000000000000000000000aa"},
		Txs:       make(map[string]*chain.Transaction),
		BalanceOf: make(map[string]decimal.Decimal),
	}
}

// SetTx scripts a transaction lookup result.
func (f *FakeChain) SetTx(hash string, confirmations uint64, status chain.TxStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Txs[hash] = &chain.Transaction{Hash: hash, Confirmations: confirmations, Status: status}
}

func (f *FakeChain) Addresses() []string { return f.Addrs }

func (f *FakeChain) Balance(ctx context.Context, tokenContract string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.BalanceOf[tokenContract], nil
}

func (f *FakeChain) GetTransactionByHash(ctx context.Context, hash string) (*chain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.LookupErr != nil {
		return nil, f.LookupErr
	}
	tx, ok := f.Txs[hash]
	if !ok {
		return nil, chain.ErrTxNotFound
	}
	copied := *tx
	return &copied, nil
}

func (f *FakeChain) SendTransaction(ctx context.Context, req chain.TxRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SendErr != nil {
		return "", f.SendErr
	}
	f.Sent = append(f.Sent, req)
	if len(f.NextHashes) >= len(f.Sent) {
		return f.NextHashes[len(f.Sent)-1], nil
	}
	return fmt.Sprintf("0xsent%04d", len(f.Sent)), nil
}

// FakeStore is a swap.StateStore routing every asset to per-asset fake
// chains and recording balance refreshes and ledger prompts.
type FakeStore struct {
	mu sync.Mutex

	// ClientByAsset routes Client lookups. A "*" entry is the fallback.
	ClientByAsset map[string]chain.Client
	AccountsByID  map[string]*swap.Account
	BalanceCalls  [][]string
	LedgerCalls   []string
}

// NewFakeStore routes every asset to the given client.
func NewFakeStore(defaultClient chain.Client) *FakeStore {
	return &FakeStore{
		ClientByAsset: map[string]chain.Client{"*": defaultClient},
		AccountsByID:  make(map[string]*swap.Account),
	}
}

func (f *FakeStore) Account(network swap.Network, walletID, accountID string) (*swap.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if acct, ok := f.AccountsByID[accountID]; ok {
		return acct, nil
	}
	return &swap.Account{ID: accountID, WalletID: walletID, Type: "default"}, nil
}

func (f *FakeStore) Client(network swap.Network, walletID, asset string) (chain.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.ClientByAsset[asset]; ok {
		return c, nil
	}
	if c, ok := f.ClientByAsset["*"]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("no client for asset %q", asset)
}

func (f *FakeStore) UpdateBalances(ctx context.Context, network swap.Network, walletID string, assets []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.BalanceCalls = append(f.BalanceCalls, assets)
	return nil
}

func (f *FakeStore) NotifyLedger(network swap.Network, walletID, accountID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LedgerCalls = append(f.LedgerCalls, accountID)
}
