package assets

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(DefaultAssets())
	require.NoError(t, err)
	return r
}

func TestNewRegistryValidation(t *testing.T) {
	_, err := NewRegistry([]Asset{{Code: "X", Chain: "ethereum"}})
	assert.ErrorContains(t, err, "decimals")

	_, err = NewRegistry([]Asset{{Code: "X", Chain: "ethereum", Kind: ERC20, Decimals: 18}})
	assert.ErrorContains(t, err, "contract address")

	_, err = NewRegistry([]Asset{
		{Code: "X", Chain: "ethereum", Kind: Native, Decimals: 18},
		{Code: "X", Chain: "polygon", Kind: Native, Decimals: 18},
	})
	assert.ErrorContains(t, err, "duplicate")
}

func TestUnitConversions(t *testing.T) {
	r := testRegistry(t)

	units, err := r.CurrencyToUnit("ETH", decimal.RequireFromString("1.5"))
	require.NoError(t, err)
	assert.True(t, units.Equal(decimal.RequireFromString("1500000000000000000")))

	currency, err := r.UnitToCurrency("USDC", decimal.NewFromInt(2500000))
	require.NoError(t, err)
	assert.True(t, currency.Equal(decimal.RequireFromString("2.5")))

	// Sub-unit dust is truncated, never rounded up.
	units, err = r.CurrencyToUnit("USDC", decimal.RequireFromString("0.0000019"))
	require.NoError(t, err)
	assert.True(t, units.Equal(decimal.NewFromInt(1)))
}

func TestMatchingOnChain(t *testing.T) {
	r := testRegistry(t)

	aeth, err := r.MatchingOnChain("ETH", "arbitrum")
	require.NoError(t, err)
	assert.Equal(t, "AETH", aeth.Code)

	// And the reverse direction of the link.
	eth, err := r.MatchingOnChain("AETH", "ethereum")
	require.NoError(t, err)
	assert.Equal(t, "ETH", eth.Code)

	usdce, err := r.MatchingOnChain("USDC", "polygon")
	require.NoError(t, err)
	assert.Equal(t, "USDC.e", usdce.Code)

	_, err = r.MatchingOnChain("DAI", "solana")
	assert.Error(t, err)
}

func TestNativeAsset(t *testing.T) {
	r := testRegistry(t)

	sol, err := r.NativeAsset("solana")
	require.NoError(t, err)
	assert.Equal(t, "SOL", sol.Code)

	_, err = r.NativeAsset("bitcoin")
	assert.Error(t, err)
}
