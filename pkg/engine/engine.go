// Package engine drives pending orders to completion. Each order gets its
// own ticker goroutine; every tick asks the owning provider for the next
// state transition and persists whatever comes back.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"crosswap/pkg/lock"
	"crosswap/pkg/swap"
)

// OrderStore is the persistence surface the engine drives orders through.
type OrderStore interface {
	swap.StateStore
	UpdateOrder(order *swap.Order) error
	ActiveOrders(network swap.Network) []*swap.Order
}

// Engine advances orders independently of one another. Safe for concurrent
// use; Track may be called while Run is in flight.
type Engine struct {
	registry *swap.Registry
	store    OrderStore
	interval time.Duration
	log      *zap.Logger

	mu     sync.Mutex
	active map[string]struct{}
	wg     sync.WaitGroup
}

// New builds an engine ticking each order at the given interval.
func New(registry *swap.Registry, store OrderStore, interval time.Duration, log *zap.Logger) *Engine {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		registry: registry,
		store:    store,
		interval: interval,
		log:      log,
		active:   make(map[string]struct{}),
	}
}

// Resume picks up every persisted non-terminal order on the network.
func (e *Engine) Resume(ctx context.Context, network swap.Network) int {
	orders := e.store.ActiveOrders(network)
	for _, order := range orders {
		e.Track(ctx, *order)
	}
	return len(orders)
}

// Track starts advancing an order. Tracking an already tracked order is a
// no-op.
func (e *Engine) Track(ctx context.Context, order swap.Order) {
	e.mu.Lock()
	if _, running := e.active[order.ID]; running {
		e.mu.Unlock()
		return
	}
	e.active[order.ID] = struct{}{}
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() {
			e.mu.Lock()
			delete(e.active, order.ID)
			e.mu.Unlock()
		}()
		e.run(ctx, order)
	}()
}

// Wait blocks until every tracked order has stopped, either by reaching a
// terminal status or through context cancellation.
func (e *Engine) Wait() {
	e.wg.Wait()
}

func (e *Engine) run(ctx context.Context, order swap.Order) {
	provider, err := e.registry.Provider(order.Network, order.Provider)
	if err != nil {
		e.log.Error("order references unknown provider",
			zap.String("orderId", order.ID),
			zap.String("provider", order.Provider),
			zap.Error(err))
		return
	}
	info := provider.Info()
	if info.IsTerminal(order.Status) {
		return
	}

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		updated, err := provider.PerformNextSwapAction(ctx, e.store, order)
		switch {
		case err != nil && errors.Is(err, lock.ErrContended):
			e.log.Debug("order step waiting on account lock",
				zap.String("orderId", order.ID))
		case err != nil:
			// The order is left untouched; the same step retries next tick.
			e.log.Warn("order step failed",
				zap.String("orderId", order.ID),
				zap.String("status", order.Status),
				zap.Error(err))
		case updated != nil:
			if err := e.store.UpdateOrder(updated); err != nil {
				e.log.Error("failed to persist order update",
					zap.String("orderId", order.ID),
					zap.Error(err))
			} else {
				e.announce(info, order, *updated)
				order = *updated
				if info.IsTerminal(order.Status) {
					return
				}
				// A transition landed; try the next step right away.
				continue
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// announce logs status transitions and renders the status table's
// notification when one is defined.
func (e *Engine) announce(info swap.Info, before, after swap.Order) {
	if before.Status == after.Status {
		return
	}
	e.log.Info("order advanced",
		zap.String("orderId", after.ID),
		zap.String("from", before.Status),
		zap.String("to", after.Status))
	if st, ok := info.Statuses[after.Status]; ok && st.Notification != nil {
		e.log.Info(st.Notification(after), zap.String("orderId", after.ID))
	}
}
