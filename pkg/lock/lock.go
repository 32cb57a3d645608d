// Package lock serializes transaction-submitting steps per wallet asset so
// concurrent orders never race on the same account's nonce.
package lock

import (
	"errors"
	"fmt"
	"sync"
)

// ErrContended is returned when the key is already held. The caller backs
// off and retries on its next tick instead of blocking.
var ErrContended = errors.New("lock contended")

// Keyed is a set of non-blocking named locks.
type Keyed struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewKeyed returns an empty lock set.
func NewKeyed() *Keyed {
	return &Keyed{held: make(map[string]struct{})}
}

// Acquire takes the lock for (network, walletID, asset), failing fast with
// ErrContended when held. The returned release func is idempotent.
func (k *Keyed) Acquire(network, walletID, asset string) (func(), error) {
	key := fmt.Sprintf("%s|%s|%s", network, walletID, asset)
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, taken := k.held[key]; taken {
		return nil, fmt.Errorf("%w: %s", ErrContended, key)
	}
	k.held[key] = struct{}{}

	var once sync.Once
	release := func() {
		once.Do(func() {
			k.mu.Lock()
			delete(k.held, key)
			k.mu.Unlock()
		})
	}
	return release, nil
}
