package swap

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// Registry holds the providers enabled per network, preserving registration
// order so deterministic iteration (pair aggregation, quote listing) is
// stable across runs.
type Registry struct {
	mu        sync.RWMutex
	providers map[Network][]Provider
	byID      map[Network]map[string]Provider
	log       *zap.Logger
}

// NewRegistry returns an empty registry. A nil logger disables logging.
func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		providers: make(map[Network][]Provider),
		byID:      make(map[Network]map[string]Provider),
		log:       log,
	}
}

// Register adds a provider under the given network. The provider's Info is
// validated here so malformed metadata fails at startup rather than
// mid-swap.
func (r *Registry) Register(network Network, p Provider) error {
	info := p.Info()
	if err := info.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byID[network][info.ID]; dup {
		return fmt.Errorf("provider %s already registered on %s", info.ID, network)
	}
	if r.byID[network] == nil {
		r.byID[network] = make(map[string]Provider)
	}
	r.byID[network][info.ID] = p
	r.providers[network] = append(r.providers[network], p)
	return nil
}

// Provider looks up a provider by id on a network.
func (r *Registry) Provider(network Network, id string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[network][id]
	if !ok {
		return nil, fmt.Errorf("no provider %q on %s", id, network)
	}
	return p, nil
}

// Providers returns the providers for a network in registration order.
func (r *Registry) Providers(network Network) []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, len(r.providers[network]))
	copy(out, r.providers[network])
	return out
}

// GetQuotes fans the request out to every registered provider and returns
// the successful quotes sorted by ToAmount descending. Provider failures and
// unroutable pairs are skipped; a failure on one provider never hides
// another's quote.
func (r *Registry) GetQuotes(ctx context.Context, req QuoteRequest) []Quote {
	providers := r.Providers(req.Network)
	var mu sync.Mutex
	var quotes []Quote
	p := pool.New().WithMaxGoroutines(len(providers) + 1)
	for _, prov := range providers {
		prov := prov
		p.Go(func() {
			q, err := prov.GetQuote(ctx, req)
			if err != nil {
				r.log.Warn("quote failed",
					zap.String("provider", prov.Info().ID),
					zap.String("from", req.From),
					zap.String("to", req.To),
					zap.Error(err))
				return
			}
			if q == nil {
				return
			}
			q.Provider = prov.Info().ID
			mu.Lock()
			quotes = append(quotes, *q)
			mu.Unlock()
		})
	}
	p.Wait()
	sort.SliceStable(quotes, func(i, j int) bool {
		return quotes[i].ToAmount.GreaterThan(quotes[j].ToAmount)
	})
	return quotes
}
