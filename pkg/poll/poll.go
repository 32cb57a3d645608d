// Package poll runs bounded probe loops for conditions that become true
// eventually, like on-chain confirmations.
package poll

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Config bounds one polling loop.
type Config struct {
	// Interval between probes.
	Interval time.Duration
	// Timeout caps the whole loop. Zero means a single probe.
	Timeout time.Duration
}

// DefaultConfig suits confirmation polling within one orchestrator tick.
func DefaultConfig() Config {
	return Config{Interval: 5 * time.Second, Timeout: 30 * time.Second}
}

// Until probes until the condition resolves. The probe returns (nil, nil)
// while the condition is not yet met, a value when it is, and an error to
// abort. On timeout Until returns (nil, nil) so the caller can retry on its
// next tick; context cancellation returns the context error.
func Until[T any](ctx context.Context, cfg Config, probe func(ctx context.Context) (*T, error)) (*T, error) {
	deadline := time.Now().Add(cfg.Timeout)
	bo := backoff.NewConstantBackOff(cfg.Interval)

	for {
		v, err := probe(ctx)
		if err != nil {
			return nil, err
		}
		if v != nil {
			return v, nil
		}
		if time.Now().Add(bo.NextBackOff()).After(deadline) {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(cfg.Interval):
		}
	}
}
