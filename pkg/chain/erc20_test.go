package chain

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const spender = "0x7F5c764cBc14f9669B88837ca1490cCa17c31607"

func TestPackTransfer(t *testing.T) {
	data, err := PackTransfer(spender, big.NewInt(1000))
	require.NoError(t, err)

	require.Len(t, data, 4+32+32)
	assert.Equal(t, "a9059cbb", hex.EncodeToString(data[:4]))
}

func TestPackApprove(t *testing.T) {
	data, err := PackApprove(spender, big.NewInt(1000))
	require.NoError(t, err)

	require.Len(t, data, 4+32+32)
	assert.Equal(t, "095ea7b3", hex.EncodeToString(data[:4]))
}

func TestPackBalanceOf(t *testing.T) {
	data, err := PackBalanceOf(spender)
	require.NoError(t, err)

	require.Len(t, data, 4+32)
	assert.Equal(t, "70a08231", hex.EncodeToString(data[:4]))
}
