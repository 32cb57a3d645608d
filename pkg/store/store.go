// Package store persists wallet state to a JSON file and exposes the state
// surface swap providers operate against.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"crosswap/pkg/assets"
	"crosswap/pkg/chain"
	"crosswap/pkg/swap"
)

const DefaultStorageFileName = ".crosswap-state.json"

// Store is a JSON-file-backed state store. Every mutation rewrites the file
// through a temp-file rename, so a crash never leaves a torn record.
type Store struct {
	filePath string
	registry *assets.Registry
	log      *zap.Logger

	mu      sync.Mutex
	state   fileState
	clients map[string]chain.Client
}

type fileState struct {
	Orders       map[string]*swap.Order          `json:"orders"`
	Accounts     map[string]*swap.Account        `json:"accounts"`
	Balances     map[string]decimal.Decimal      `json:"balances"`
	Pairs        []swap.PairEntry                `json:"pairs"`
	PairsUpdated time.Time                       `json:"pairsUpdated,omitempty"`
}

// New opens (or creates on first save) the store at filePath. An empty path
// defaults to the user's home directory.
func New(filePath string, registry *assets.Registry, log *zap.Logger) (*Store, error) {
	if filePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		filePath = filepath.Join(home, DefaultStorageFileName)
	}
	if log == nil {
		log = zap.NewNop()
	}

	s := &Store{
		filePath: filePath,
		registry: registry,
		log:      log,
		state: fileState{
			Orders:   make(map[string]*swap.Order),
			Accounts: make(map[string]*swap.Account),
			Balances: make(map[string]decimal.Decimal),
		},
		clients: make(map[string]chain.Client),
	}

	if err := s.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load state: %w", err)
		}
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}
	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to unmarshal state: %w", err)
	}
	if state.Orders == nil {
		state.Orders = make(map[string]*swap.Order)
	}
	if state.Accounts == nil {
		state.Accounts = make(map[string]*swap.Account)
	}
	if state.Balances == nil {
		state.Balances = make(map[string]decimal.Decimal)
	}
	s.state = state
	return nil
}

// save must be called with s.mu held.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := os.Rename(tempFile, s.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// RegisterClient binds a chain client for all assets on the named chain.
func (s *Store) RegisterClient(chainName string, c chain.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[chainName] = c
}

// ClientForChain resolves a chain client by chain name.
func (s *Store) ClientForChain(chainName string) (chain.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, exists := s.clients[chainName]
	if !exists {
		return nil, fmt.Errorf("no client for chain '%s'", chainName)
	}
	return c, nil
}

// AddAccount registers an account.
func (s *Store) AddAccount(acct *swap.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.state.Accounts[acct.ID]; exists {
		return fmt.Errorf("account '%s' already exists", acct.ID)
	}
	s.state.Accounts[acct.ID] = acct
	return s.save()
}

// CreateOrder persists a freshly created order.
func (s *Store) CreateOrder(order *swap.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.state.Orders[order.ID]; exists {
		return fmt.Errorf("order '%s' already exists", order.ID)
	}
	copied := *order
	s.state.Orders[order.ID] = &copied
	return s.save()
}

// UpdateOrder replaces the full order record atomically.
func (s *Store) UpdateOrder(order *swap.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.state.Orders[order.ID]; !exists {
		return fmt.Errorf("order '%s' not found", order.ID)
	}
	copied := *order
	s.state.Orders[order.ID] = &copied
	return s.save()
}

// Order retrieves an order by id.
func (s *Store) Order(id string) (*swap.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, exists := s.state.Orders[id]
	if !exists {
		return nil, fmt.Errorf("order '%s' not found", id)
	}
	copied := *order
	return &copied, nil
}

// Orders lists all orders.
func (s *Store) Orders() []*swap.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	orders := make([]*swap.Order, 0, len(s.state.Orders))
	for _, o := range s.state.Orders {
		copied := *o
		orders = append(orders, &copied)
	}
	return orders
}

// ActiveOrders lists orders that have not reached a terminal status, i.e.
// those with no end time yet.
func (s *Store) ActiveOrders(network swap.Network) []*swap.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	orders := make([]*swap.Order, 0)
	for _, o := range s.state.Orders {
		if o.Network == network && o.EndTime.IsZero() {
			copied := *o
			orders = append(orders, &copied)
		}
	}
	return orders
}

// ReplacePairs swaps in a freshly aggregated market pair set.
func (s *Store) ReplacePairs(pairs []swap.PairEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Pairs = pairs
	s.state.PairsUpdated = time.Now()
	return s.save()
}

// Pairs returns the last aggregated market pair set.
func (s *Store) Pairs() []swap.PairEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	pairs := make([]swap.PairEntry, len(s.state.Pairs))
	copy(pairs, s.state.Pairs)
	return pairs
}

// Balance returns the cached balance in smallest units.
func (s *Store) Balance(walletID, asset string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Balances[walletID+"|"+asset]
}

// Account implements swap.StateStore.
func (s *Store) Account(network swap.Network, walletID, accountID string) (*swap.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, exists := s.state.Accounts[accountID]
	if !exists || acct.WalletID != walletID {
		return nil, fmt.Errorf("account '%s' not found in wallet '%s'", accountID, walletID)
	}
	copied := *acct
	return &copied, nil
}

// Client implements swap.StateStore, resolving the asset's chain through the
// registry.
func (s *Store) Client(network swap.Network, walletID, asset string) (chain.Client, error) {
	chainName, err := s.registry.Chain(asset)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, exists := s.clients[chainName]
	if !exists {
		return nil, fmt.Errorf("no client for chain '%s'", chainName)
	}
	return c, nil
}

// UpdateBalances implements swap.StateStore. Failures on individual assets
// are logged and skipped; a stale cached balance is preferable to blocking a
// swap step.
func (s *Store) UpdateBalances(ctx context.Context, network swap.Network, walletID string, assetCodes []string) error {
	for _, code := range assetCodes {
		asset, err := s.registry.Get(code)
		if err != nil {
			return err
		}
		client, err := s.Client(network, walletID, code)
		if err != nil {
			return err
		}
		balance, err := client.Balance(ctx, asset.ContractAddress)
		if err != nil {
			s.log.Warn("balance refresh failed",
				zap.String("asset", code),
				zap.String("walletId", walletID),
				zap.Error(err))
			continue
		}
		s.mu.Lock()
		s.state.Balances[walletID+"|"+code] = balance
		err = s.save()
		s.mu.Unlock()
		if err != nil {
			return err
		}
	}
	return nil
}

// NotifyLedger implements swap.StateStore. Hardware-wallet signing prompts
// are surfaced through the log in this build.
func (s *Store) NotifyLedger(network swap.Network, walletID, accountID string) {
	acct, err := s.Account(network, walletID, accountID)
	if err != nil || acct.Type != "ledger" {
		return
	}
	s.log.Info("ledger signature required",
		zap.String("walletId", walletID),
		zap.String("accountId", accountID))
}

// FilePath returns the backing file path.
func (s *Store) FilePath() string {
	return s.filePath
}
