package types

import (
	"encoding/json"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) sdkmath.LegacyDec { return sdkmath.LegacyMustNewDecFromStr(s) }

func testBounds() ProtocolBounds {
	return ProtocolBounds{
		MinTokens:                     2,
		MaxTokens:                     8,
		MaxManagedTokens:              50,
		MinWeight:                     dec("0.01"),
		MinSwapFeePercentage:          dec("0.000001"),
		MaxSwapFeePercentage:          dec("0.1"),
		MaxManagedSwapFeePercentage:   dec("0.95"),
		MaxManagementAumFeePercentage: dec("0.1"),
		MaxProtocolFeePercentage:      dec("0.5"),
		MaxPauseWindowDuration:        Duration(270 * 24 * time.Hour),
		MaxBufferPeriodDuration:       Duration(90 * 24 * time.Hour),
		MinimumBpt:                    sdkmath.NewInt(1_000_000),
		MaxCircuitBreakerUpperBound:   dec("10"),
	}
}

func twoTokens() []Token {
	return []Token{
		{Symbol: "WETH", Address: "0x00000000000000000000000000000000000000a1", Decimals: 18},
		{Symbol: "USDC", Address: "0x00000000000000000000000000000000000000a2", Decimals: 6},
	}
}

func TestPoolTypeTagsAreContiguous(t *testing.T) {
	all := AllPoolTypes()
	require.Len(t, all, 5)
	for i, pt := range all {
		assert.Equal(t, i, int(pt))
		assert.True(t, pt.IsValid())

		parsed, err := ParsePoolType(pt.String())
		require.NoError(t, err)
		assert.Equal(t, pt, parsed)
	}
	assert.False(t, PoolType(5).IsValid())
	assert.False(t, PoolType(-1).IsValid())
	assert.Equal(t, "PoolType(7)", PoolType(7).String())
}

func TestParsePoolType(t *testing.T) {
	cases := []struct {
		in   string
		want PoolType
	}{
		{"WEIGHTED_POOL", WeightedPool},
		{"liquidity_bootstrapping_pool", LiquidityBootstrappingPool},
		{" MANAGED_POOL ", ManagedPool},
		{"3", MockManagedPool},
		{"4", MockManagedPoolSettings},
	}
	for _, tc := range cases {
		got, err := ParsePoolType(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}

	for _, bad := range []string{"STABLE_POOL", "5", "-1", ""} {
		_, err := ParsePoolType(bad)
		assert.ErrorIs(t, err, ErrUnknownPoolType, bad)
	}
}

func TestPoolTypeJSON(t *testing.T) {
	data, err := json.Marshal(ManagedPool)
	require.NoError(t, err)
	assert.Equal(t, `"MANAGED_POOL"`, string(data))

	var pt PoolType
	require.NoError(t, json.Unmarshal([]byte(`"LIQUIDITY_BOOTSTRAPPING_POOL"`), &pt))
	assert.Equal(t, LiquidityBootstrappingPool, pt)
	require.NoError(t, json.Unmarshal([]byte(`4`), &pt))
	assert.Equal(t, MockManagedPoolSettings, pt)
	assert.Error(t, json.Unmarshal([]byte(`9`), &pt))

	_, err = json.Marshal(PoolType(9))
	assert.Error(t, err)
}

func TestManagedVariants(t *testing.T) {
	assert.False(t, WeightedPool.IsManaged())
	assert.False(t, LiquidityBootstrappingPool.IsManaged())
	assert.True(t, ManagedPool.IsManaged())
	assert.True(t, MockManagedPool.IsManaged())
	assert.True(t, MockManagedPoolSettings.IsManaged())
}

func TestResolveDefaults(t *testing.T) {
	d, err := RawDeployment{Tokens: twoTokens()}.Resolve()
	require.NoError(t, err)

	assert.Len(t, d.Tokens, 2)
	require.Len(t, d.Weights, 2)
	assert.Equal(t, "0.500000000000000000", d.Weights[0].String())
	assert.Equal(t, "0.500000000000000000", d.Weights[1].String())
	assert.Equal(t, []string{ZeroAddress, ZeroAddress}, d.RateProviders)
	assert.Equal(t, []string{ZeroAddress, ZeroAddress}, d.AssetManagers)
	assert.Equal(t, "0.010000000000000000", d.SwapFeePercentage.String())
	assert.Equal(t, 90*24*time.Hour, d.PauseWindowDuration.Std())
	assert.Equal(t, 30*24*time.Hour, d.BufferPeriodDuration.Std())
	assert.Equal(t, WeightedPool, d.PoolType)
	assert.True(t, d.SwapEnabledOnStart)
	assert.False(t, d.MustAllowlistLPs)
	assert.True(t, d.ManagementAumFeePercentage.IsZero())
	assert.Equal(t, uint64(3), d.AumFeeID)
	assert.Equal(t, DefaultFactoryVersion, d.FactoryVersion)
	assert.Equal(t, DefaultPoolVersion, d.PoolVersion)
	assert.Equal(t, ZeroAddress, d.Owner)

	empty, err := RawDeployment{}.Resolve()
	require.NoError(t, err)
	assert.Empty(t, empty.Tokens)
	assert.Empty(t, empty.Weights)
}

func TestResolvePreservesExplicitValues(t *testing.T) {
	fee := dec("0.003")
	aum := dec("0.02")
	pause := Duration(10 * 24 * time.Hour)
	buffer := Duration(5 * 24 * time.Hour)
	disabled := false
	allowlist := true
	pt := ManagedPool
	aumID := uint64(7)

	raw := RawDeployment{
		Tokens:                     twoTokens(),
		Weights:                    []sdkmath.LegacyDec{dec("0.8"), dec("0.2")},
		RateProviders:              []string{"0xrate", ""},
		AssetManagers:              []string{"0xam1", "0xam2"},
		SwapFeePercentage:          &fee,
		PauseWindowDuration:        &pause,
		BufferPeriodDuration:       &buffer,
		SwapEnabledOnStart:         &disabled,
		MustAllowlistLPs:           &allowlist,
		ManagementAumFeePercentage: &aum,
		Owner:                      "0xowner",
		Admin:                      "0xadmin",
		From:                       "0xfrom",
		PoolType:                   &pt,
		AumFeeID:                   &aumID,
		FactoryVersion:             "factory v2",
		PoolVersion:                "pool v2",
	}
	d, err := raw.Resolve()
	require.NoError(t, err)

	assert.Equal(t, raw.Tokens, d.Tokens)
	assert.Equal(t, "0.800000000000000000", d.Weights[0].String())
	assert.Equal(t, "0.200000000000000000", d.Weights[1].String())
	assert.Equal(t, []string{"0xrate", ZeroAddress}, d.RateProviders)
	assert.Equal(t, raw.AssetManagers, d.AssetManagers)
	assert.True(t, d.SwapFeePercentage.Equal(fee))
	assert.Equal(t, pause, d.PauseWindowDuration)
	assert.Equal(t, buffer, d.BufferPeriodDuration)
	assert.False(t, d.SwapEnabledOnStart)
	assert.True(t, d.MustAllowlistLPs)
	assert.True(t, d.ManagementAumFeePercentage.Equal(aum))
	assert.Equal(t, "0xowner", d.Owner)
	assert.Equal(t, "0xadmin", d.Admin)
	assert.Equal(t, "0xfrom", d.From)
	assert.Equal(t, ManagedPool, d.PoolType)
	assert.Equal(t, aumID, d.AumFeeID)
	assert.Equal(t, "factory v2", d.FactoryVersion)
	assert.Equal(t, "pool v2", d.PoolVersion)

	// Resolve does not alias the caller's slices.
	d.Tokens[0].Symbol = "CHANGED"
	assert.Equal(t, "WETH", raw.Tokens[0].Symbol)
}

func TestResolveErrors(t *testing.T) {
	_, err := RawDeployment{Tokens: twoTokens(), Weights: []sdkmath.LegacyDec{dec("1")}}.Resolve()
	assert.ErrorIs(t, err, ErrWeightCount)

	_, err = RawDeployment{Tokens: twoTokens(), Weights: []sdkmath.LegacyDec{dec("1"), dec("0")}}.Resolve()
	assert.ErrorIs(t, err, ErrNonPositiveWeight)

	_, err = RawDeployment{Tokens: twoTokens(), RateProviders: []string{"0x1"}}.Resolve()
	assert.ErrorIs(t, err, ErrRateProviderCount)

	_, err = RawDeployment{Tokens: twoTokens(), AssetManagers: []string{"0x1", "0x2", "0x3"}}.Resolve()
	assert.ErrorIs(t, err, ErrAssetManagerCount)
}

func TestNormalizeWeights(t *testing.T) {
	w, err := NormalizeWeights([]sdkmath.LegacyDec{dec("1"), dec("1"), dec("1")})
	require.NoError(t, err)
	assert.Equal(t, "0.333333333333333333", w[0].String())
	assert.Equal(t, "0.333333333333333333", w[1].String())
	assert.Equal(t, "0.333333333333333334", w[2].String())

	w, err = NormalizeWeights([]sdkmath.LegacyDec{dec("80"), dec("20")})
	require.NoError(t, err)
	assert.Equal(t, "0.800000000000000000", w[0].String())
	assert.Equal(t, "0.200000000000000000", w[1].String())
}

func TestTokenRefResolve(t *testing.T) {
	tokens := twoTokens()

	i, err := TokenIndex(1).Resolve(tokens)
	require.NoError(t, err)
	assert.Equal(t, 1, i)

	i, err = TokenAddress("0x00000000000000000000000000000000000000A1").Resolve(tokens)
	require.NoError(t, err)
	assert.Equal(t, 0, i)

	_, err = TokenIndex(2).Resolve(tokens)
	assert.ErrorIs(t, err, ErrTokenNotFound)
	_, err = TokenAddress("0xdead").Resolve(tokens)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	assert.Equal(t, "#1", TokenIndex(1).String())
}

func TestNAryExpand(t *testing.T) {
	amounts, err := NAry{sdkmath.NewInt(5)}.Expand(3)
	require.NoError(t, err)
	require.Len(t, amounts, 3)
	for _, a := range amounts {
		assert.Equal(t, "5", a.String())
	}

	amounts, err = NAry{sdkmath.NewInt(1), sdkmath.NewInt(2)}.Expand(2)
	require.NoError(t, err)
	assert.Equal(t, "2", amounts[1].String())

	_, err = NAry{sdkmath.NewInt(1), sdkmath.NewInt(2)}.Expand(3)
	assert.ErrorIs(t, err, ErrNAryLength)
}

func TestDefaultRights(t *testing.T) {
	weighted := DefaultRights(WeightedPool)
	assert.True(t, weighted.Base.CanChangeSwapFee)
	assert.False(t, weighted.Base.CanTransferOwnership)
	assert.Equal(t, ManagedPoolRights{}, weighted.Managed)

	lbp := DefaultRights(LiquidityBootstrappingPool)
	assert.True(t, lbp.Base.CanChangeSwapFee)
	assert.True(t, lbp.Managed.CanChangeWeights)
	assert.True(t, lbp.Managed.CanDisableSwaps)
	assert.False(t, lbp.Managed.CanSetCircuitBreakers)

	for _, pt := range []PoolType{ManagedPool, MockManagedPool, MockManagedPoolSettings} {
		r := DefaultRights(pt)
		assert.True(t, r.Base.CanTransferOwnership && r.Base.CanUpdateMetadata, pt.String())
		assert.True(t, r.Managed.CanChangeTokens && r.Managed.CanDisableJoinExit && r.Managed.CanChangeMgmtFees, pt.String())
	}
}

func TestDeploymentValidate(t *testing.T) {
	b := testBounds()
	valid := func() Deployment {
		d, err := RawDeployment{Tokens: twoTokens()}.Resolve()
		require.NoError(t, err)
		return d
	}
	require.NoError(t, valid().Validate(b))

	cases := []struct {
		name   string
		mutate func(*Deployment)
		want   error
	}{
		{"one token", func(d *Deployment) {
			d.Tokens = d.Tokens[:1]
			d.Weights = []sdkmath.LegacyDec{dec("1")}
		}, ErrTokenCount},
		{"duplicate token", func(d *Deployment) { d.Tokens[1].Address = d.Tokens[0].Address }, ErrDuplicateToken},
		{"zero address token", func(d *Deployment) { d.Tokens[0].Address = ZeroAddress }, ErrInvalidToken},
		{"too many decimals", func(d *Deployment) { d.Tokens[0].Decimals = 19 }, ErrInvalidToken},
		{"weight below minimum", func(d *Deployment) {
			d.Weights = []sdkmath.LegacyDec{dec("0.995"), dec("0.005")}
		}, ErrMinWeight},
		{"weights not normalized", func(d *Deployment) {
			d.Weights = []sdkmath.LegacyDec{dec("0.6"), dec("0.6")}
		}, ErrWeightSum},
		{"fee too low", func(d *Deployment) { d.SwapFeePercentage = dec("0") }, ErrSwapFeeTooLow},
		{"fee too high", func(d *Deployment) { d.SwapFeePercentage = dec("0.2") }, ErrSwapFeeTooHigh},
		{"pause window", func(d *Deployment) { d.PauseWindowDuration = Duration(271 * 24 * time.Hour) }, ErrPauseWindowTooLong},
		{"buffer period", func(d *Deployment) { d.BufferPeriodDuration = Duration(91 * 24 * time.Hour) }, ErrBufferPeriodTooLong},
		{"aum fee on weighted pool", func(d *Deployment) { d.ManagementAumFeePercentage = dec("0.01") }, ErrAumFeeUnsupported},
		{"aum fee too high", func(d *Deployment) {
			d.PoolType = ManagedPool
			d.ManagementAumFeePercentage = dec("0.2")
		}, ErrAumFeeTooHigh},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := valid()
			tc.mutate(&d)
			assert.ErrorIs(t, d.Validate(b), tc.want)
		})
	}

	managed := valid()
	managed.PoolType = ManagedPool
	managed.SwapFeePercentage = dec("0.9")
	assert.NoError(t, managed.Validate(b))
}
