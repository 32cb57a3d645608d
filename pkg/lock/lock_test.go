package lock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireContention(t *testing.T) {
	locks := NewKeyed()

	release, err := locks.Acquire("mainnet", "w1", "ETH")
	require.NoError(t, err)

	_, err = locks.Acquire("mainnet", "w1", "ETH")
	assert.ErrorIs(t, err, ErrContended)

	// Different asset or wallet is an independent key.
	otherRelease, err := locks.Acquire("mainnet", "w1", "DAI")
	require.NoError(t, err)
	otherRelease()

	release()
	release2, err := locks.Acquire("mainnet", "w1", "ETH")
	require.NoError(t, err)
	release2()
}

func TestReleaseIsIdempotent(t *testing.T) {
	locks := NewKeyed()

	release, err := locks.Acquire("mainnet", "w1", "ETH")
	require.NoError(t, err)
	release()
	release()

	// A double release must not free a lock someone else now holds.
	releaseSecond, err := locks.Acquire("mainnet", "w1", "ETH")
	require.NoError(t, err)
	release()
	_, err = locks.Acquire("mainnet", "w1", "ETH")
	assert.ErrorIs(t, err, ErrContended)
	releaseSecond()
}
