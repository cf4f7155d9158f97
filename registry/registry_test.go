package registry

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tesoro-hq/tesoro/api/config"
)

func testConfig() *config.Config {
	return &config.Config{
		ChainConfigs: map[uint64]*config.ChainConfig{
			8453: {
				ChainID: 8453,
				Assets: map[string]config.AssetConfig{
					"IDRX": {Address: "0x18Bc5bcC660cf2B9cE3cd51a404aFe1a0cBD3C22", Decimals: 2},
					"USDC": {Address: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", Decimals: 6},
				},
				Routes: config.RoutePolicy{RFQAllowed: true, FallbackAllowed: true},
				PairOverrides: map[string]config.RoutePolicy{
					"USDC/IDRX": {RFQAllowed: false, FallbackAllowed: false},
				},
			},
			1135: {
				ChainID: 1135,
				Assets: map[string]config.AssetConfig{
					"IDRX": {Address: "0x18Bc5bcC660cf2B9cE3cd51a404aFe1a0cBD3C22", Decimals: 2},
					"USDT": {Address: "0x05D032ac25d322df992303dCa074EE7392C117b9", Decimals: 6},
				},
				// Fallback AMM only, no RFQ venue.
				Routes: config.RoutePolicy{RFQAllowed: false, FallbackAllowed: true},
			},
		},
	}
}

func TestResolveAsset(t *testing.T) {
	reg := New(testConfig())

	asset, err := reg.ResolveAsset(8453, "idrx")
	require.NoError(t, err)
	assert.Equal(t, "IDRX", asset.Symbol)
	assert.Equal(t, 2, asset.Decimals)
	assert.Equal(t, uint64(8453), asset.ChainID)

	_, err = reg.ResolveAsset(8453, "WETH")
	assert.True(t, errors.Is(err, ErrUnknownAsset))

	_, err = reg.ResolveAsset(1, "IDRX")
	assert.True(t, errors.Is(err, ErrUnknownChain))
}

func TestDecideRouteSameAsset(t *testing.T) {
	reg := New(testConfig())

	decision, err := reg.DecideRoute(8453, "IDRX", "idrx", RouteRFQOnly)
	require.NoError(t, err)
	assert.False(t, decision.SwapRequired)
	assert.False(t, decision.UseRFQ)
	assert.False(t, decision.UseFallback)
}

func TestDecideRouteSwap(t *testing.T) {
	reg := New(testConfig())

	decision, err := reg.DecideRoute(8453, "IDRX", "USDC", RouteAllowFallback)
	require.NoError(t, err)
	assert.True(t, decision.SwapRequired)
	assert.True(t, decision.UseRFQ)
	assert.True(t, decision.UseFallback)

	decision, err = reg.DecideRoute(8453, "IDRX", "USDC", RouteRFQOnly)
	require.NoError(t, err)
	assert.True(t, decision.UseRFQ)
	assert.False(t, decision.UseFallback)
}

func TestDecideRouteDefaultPreferenceOnFallbackOnlyChain(t *testing.T) {
	reg := New(testConfig())

	// A request without a preference must still route on a chain whose
	// policy only offers the fallback venue.
	pref, err := ParseRoutePreference("")
	require.NoError(t, err)

	decision, err := reg.DecideRoute(1135, "IDRX", "USDT", pref)
	require.NoError(t, err)
	assert.True(t, decision.SwapRequired)
	assert.False(t, decision.UseRFQ)
	assert.True(t, decision.UseFallback)
}

func TestDecideRouteNoVenue(t *testing.T) {
	reg := New(testConfig())

	// Pair override disables both venues for USDC -> IDRX.
	_, err := reg.DecideRoute(8453, "USDC", "IDRX", RouteAllowFallback)
	assert.True(t, errors.Is(err, ErrNoRouteAvailable))
}

func TestParseRoutePreference(t *testing.T) {
	tests := []struct {
		input    string
		expected RoutePreference
		wantErr  bool
	}{
		{"", RouteAllowFallback, false},
		{"RFQ_ONLY", RouteRFQOnly, false},
		{"fallback_only", RouteFallbackOnly, false},
		{" ALLOW_FALLBACK ", RouteAllowFallback, false},
		{"BEST_PRICE", 0, true},
	}

	for _, tc := range tests {
		pref, err := ParseRoutePreference(tc.input)
		if tc.wantErr {
			assert.Error(t, err, "input %q", tc.input)
			continue
		}
		require.NoError(t, err, "input %q", tc.input)
		assert.Equal(t, tc.expected, pref, "input %q", tc.input)
	}
}
