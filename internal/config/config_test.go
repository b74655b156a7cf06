package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/elys-network/wpool/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"LOG_LEVEL", "LOG_FILE", "WPOOL_AUM_INTERVAL", "WPOOL_DEPLOYMENTS", "WPOOL_BOUNDS_CONFIG",
	"WPOOL_HTTP_PORT", "WPOOL_DB_ENABLED",
	"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)
	require.NoError(t, LoadConfig())

	assert.Equal(t, "info", LogLevel)
	assert.Empty(t, LogFile)
	assert.Equal(t, time.Hour, AumInterval)
	assert.Empty(t, DeploymentsFile)
	assert.Equal(t, DefaultBoundsConfigName, BoundsConfigName)
	assert.Equal(t, "8080", HTTPPort)
	assert.False(t, DBEnabled)
	assert.Equal(t, "localhost", DBHost)
	assert.Equal(t, uint64(5432), DBPort)
	assert.Equal(t, "disable", DBSSLMode)
}

func TestLoadConfigOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FILE", "/var/log/wpool.log")
	t.Setenv("WPOOL_AUM_INTERVAL", "15m")
	t.Setenv("WPOOL_HTTP_PORT", "9090")
	t.Setenv("WPOOL_DB_ENABLED", "true")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_NAME", "pools")
	require.NoError(t, LoadConfig())

	assert.Equal(t, "debug", LogLevel)
	assert.Equal(t, "/var/log/wpool.log", LogFile)
	assert.Equal(t, 15*time.Minute, AumInterval)
	assert.Equal(t, "9090", HTTPPort)
	assert.True(t, DBEnabled)
	assert.Equal(t, uint64(6543), DBPort)
	assert.Equal(t, "pools", DBName)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"WPOOL_AUM_INTERVAL": "soon",
		"WPOOL_HTTP_PORT":    "http",
		"WPOOL_DB_ENABLED":   "maybe",
		"DB_PORT":            "-1",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}

	t.Run("non positive interval", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("WPOOL_AUM_INTERVAL", "-1h")
		assert.Error(t, LoadConfig())
	})
}

func TestDefaultProtocolBounds(t *testing.T) {
	b := DefaultProtocolBounds
	assert.Equal(t, 8, b.MaxTokensFor(types.WeightedPool))
	assert.Equal(t, 8, b.MaxTokensFor(types.LiquidityBootstrappingPool))
	assert.Equal(t, 50, b.MaxTokensFor(types.ManagedPool))
	assert.Equal(t, "0.100000000000000000", b.MaxSwapFeeFor(types.WeightedPool).String())
	assert.Equal(t, "0.950000000000000000", b.MaxSwapFeeFor(types.MockManagedPool).String())
	assert.Equal(t, "1000000", b.MinimumBpt.String())
	assert.True(t, b.MinSwapFeePercentage.LT(b.MaxSwapFeePercentage))
}

const deploymentYAML = `
pools:
  - name: weth-usdc
    pool_type: WEIGHTED_POOL
    tokens:
      - symbol: WETH
        address: "0x00000000000000000000000000000000000000a1"
      - symbol: USDC
        address: "0x00000000000000000000000000000000000000a2"
    weights: ["0.8", "0.2"]
    swap_fee_percentage: "0.003"
    pause_window_duration: 720h
    owner: "0x00000000000000000000000000000000000000f1"
    initial_balances: ["1000000000000000000", "4000000000"]
  - name: managed
    pool_type: "2"
    tokens:
      - symbol: XYZ
        address: "0x00000000000000000000000000000000000000b1"
        decimals: 12
      - symbol: DAI
        address: "0x00000000000000000000000000000000000000b2"
    management_aum_fee_percentage: "0.01"
    swap_enabled_on_start: false
`

func TestParseDeploymentFile(t *testing.T) {
	file, err := ParseDeploymentFile([]byte(deploymentYAML))
	require.NoError(t, err)
	require.Len(t, file.Pools, 2)

	raw, err := file.Pools[0].ToRaw()
	require.NoError(t, err)
	require.Len(t, raw.Tokens, 2)
	assert.Equal(t, 18, raw.Tokens[0].Decimals)
	assert.Equal(t, 6, raw.Tokens[1].Decimals)
	require.NotNil(t, raw.SwapFeePercentage)
	assert.Equal(t, "0.003000000000000000", raw.SwapFeePercentage.String())
	require.NotNil(t, raw.PauseWindowDuration)
	assert.Equal(t, 720*time.Hour, raw.PauseWindowDuration.Std())
	assert.Nil(t, raw.BufferPeriodDuration)
	require.NotNil(t, raw.PoolType)
	assert.Equal(t, types.WeightedPool, *raw.PoolType)
	assert.Nil(t, raw.SwapEnabledOnStart)

	amounts, err := file.Pools[0].InitialAmounts()
	require.NoError(t, err)
	require.Len(t, amounts, 2)
	assert.Equal(t, "4000000000", amounts[1].String())

	managed, err := file.Pools[1].ToRaw()
	require.NoError(t, err)
	assert.Equal(t, 12, managed.Tokens[0].Decimals)
	assert.Equal(t, types.ManagedPool, *managed.PoolType)
	require.NotNil(t, managed.SwapEnabledOnStart)
	assert.False(t, *managed.SwapEnabledOnStart)
	assert.Nil(t, managed.Weights)

	resolved, err := managed.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "0.500000000000000000", resolved.Weights[0].String())
	assert.Equal(t, "0.010000000000000000", resolved.ManagementAumFeePercentage.String())
}

func TestPoolSpecErrors(t *testing.T) {
	_, err := PoolSpec{Tokens: []TokenSpec{{Symbol: "NOPE", Address: "0x1"}}}.ToRaw()
	assert.ErrorIs(t, err, ErrUnknownTokenDecimals)

	_, err = PoolSpec{Weights: []string{"heavy"}}.ToRaw()
	assert.Error(t, err)

	_, err = PoolSpec{PoolType: "STABLE_POOL"}.ToRaw()
	assert.ErrorIs(t, err, types.ErrUnknownPoolType)

	_, err = PoolSpec{PauseWindowDuration: "a while"}.ToRaw()
	assert.Error(t, err)

	_, err = PoolSpec{InitialBalances: []string{"1.5"}}.InitialAmounts()
	assert.Error(t, err)
}

func TestLoadDeploymentFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pools.yaml")
	require.NoError(t, os.WriteFile(path, []byte(deploymentYAML), 0o600))

	file, err := LoadDeploymentFile(path)
	require.NoError(t, err)
	assert.Len(t, file.Pools, 2)
	assert.Equal(t, "weth-usdc", file.Pools[0].Name)

	_, err = LoadDeploymentFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
