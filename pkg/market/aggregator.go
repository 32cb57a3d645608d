// Package market aggregates supported pairs across all registered swap
// providers into the state container's market data.
package market

import (
	"context"
	"sync"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"crosswap/pkg/swap"
)

// PairStore receives the aggregated market data.
type PairStore interface {
	ReplacePairs(pairs []swap.PairEntry) error
}

// Aggregator fans pair discovery out across providers. A provider that
// fails contributes nothing; the others still land.
type Aggregator struct {
	registry *swap.Registry
	store    PairStore
	log      *zap.Logger
}

// NewAggregator builds an aggregator over the registry.
func NewAggregator(registry *swap.Registry, store PairStore, log *zap.Logger) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{registry: registry, store: store, log: log}
}

// Update queries every provider concurrently, tags each pair with its
// provider id, commits the merged set and returns it.
func (a *Aggregator) Update(ctx context.Context, network swap.Network) ([]swap.PairEntry, error) {
	providers := a.registry.Providers(network)

	var mu sync.Mutex
	merged := make([]swap.PairEntry, 0)
	p := pool.New().WithMaxGoroutines(len(providers) + 1)
	for _, prov := range providers {
		prov := prov
		p.Go(func() {
			id := prov.Info().ID
			pairs, err := prov.GetSupportedPairs(ctx, network)
			if err != nil {
				a.log.Warn("market data update failed for provider",
					zap.String("provider", id),
					zap.Error(err))
				return
			}
			for i := range pairs {
				pairs[i].Provider = id
			}
			mu.Lock()
			merged = append(merged, pairs...)
			mu.Unlock()
		})
	}
	p.Wait()

	if a.store != nil {
		if err := a.store.ReplacePairs(merged); err != nil {
			return nil, err
		}
	}
	return merged, nil
}
