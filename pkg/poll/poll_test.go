package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{Interval: time.Millisecond, Timeout: 50 * time.Millisecond}
}

func TestUntilReturnsValueWhenReady(t *testing.T) {
	calls := 0
	v, err := Until(context.Background(), testConfig(), func(ctx context.Context) (*int, error) {
		calls++
		if calls < 3 {
			return nil, nil
		}
		n := 42
		return &n, nil
	})
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, 42, *v)
	assert.Equal(t, 3, calls)
}

func TestUntilTimeoutIsNotAnError(t *testing.T) {
	v, err := Until(context.Background(), Config{Interval: time.Millisecond, Timeout: 5 * time.Millisecond},
		func(ctx context.Context) (*int, error) {
			return nil, nil
		})
	assert.NoError(t, err)
	assert.Nil(t, v)
}

func TestUntilPropagatesProbeError(t *testing.T) {
	boom := errors.New("boom")
	v, err := Until(context.Background(), testConfig(), func(ctx context.Context) (*int, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, v)
}

func TestUntilStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Until(ctx, Config{Interval: 10 * time.Millisecond, Timeout: time.Minute},
		func(ctx context.Context) (*int, error) {
			return nil, nil
		})
	assert.ErrorIs(t, err, context.Canceled)
}
