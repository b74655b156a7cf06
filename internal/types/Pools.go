/*

This file contains the pool variant tag and the deployment configuration of a weighted pool,
in both its raw (every field optional) and resolved (every required field set) forms.

*/

package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	sdkmath "cosmossdk.io/math"
)

type PoolID uint64

// PoolType is the variant of weighted pool being deployed.
type PoolType int

const (
	WeightedPool PoolType = iota
	LiquidityBootstrappingPool
	ManagedPool
	MockManagedPool
	MockManagedPoolSettings
)

var poolTypeNames = [...]string{
	"WEIGHTED_POOL",
	"LIQUIDITY_BOOTSTRAPPING_POOL",
	"MANAGED_POOL",
	"MOCK_MANAGED_POOL",
	"MOCK_MANAGED_POOL_SETTINGS",
}

var ErrUnknownPoolType = errors.New("unknown pool type")

// AllPoolTypes returns every pool variant in tag order.
func AllPoolTypes() []PoolType {
	all := make([]PoolType, len(poolTypeNames))
	for i := range poolTypeNames {
		all[i] = PoolType(i)
	}
	return all
}

func (t PoolType) IsValid() bool {
	return t >= 0 && int(t) < len(poolTypeNames)
}

// IsManaged reports whether the variant carries the managed pool feature set
// (management fees, token changes, circuit breakers, join/exit toggles).
func (t PoolType) IsManaged() bool {
	return t == ManagedPool || t == MockManagedPool || t == MockManagedPoolSettings
}

func (t PoolType) String() string {
	if !t.IsValid() {
		return fmt.Sprintf("PoolType(%d)", int(t))
	}
	return poolTypeNames[t]
}

// ParsePoolType accepts either the variant name (case insensitive) or its integer tag.
func ParsePoolType(s string) (PoolType, error) {
	s = strings.TrimSpace(s)
	for i, name := range poolTypeNames {
		if strings.EqualFold(name, s) {
			return PoolType(i), nil
		}
	}
	if tag, err := strconv.Atoi(s); err == nil {
		if t := PoolType(tag); t.IsValid() {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPoolType, s)
}

func (t PoolType) MarshalJSON() ([]byte, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPoolType, int(t))
	}
	return json.Marshal(t.String())
}

func (t *PoolType) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		var tag int
		if err := json.Unmarshal(data, &tag); err != nil {
			return fmt.Errorf("pool type must be a name or an integer tag: %w", err)
		}
		name = strconv.Itoa(tag)
	}
	parsed, err := ParsePoolType(name)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Duration is a time.Duration that encodes as a Go duration string ("720h").
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// RawDeployment is the caller-facing pool configuration: every field is optional and
// missing fields receive defaults in Resolve.
type RawDeployment struct {
	Tokens                     []Token             `json:"tokens,omitempty"`
	Weights                    []sdkmath.LegacyDec `json:"weights,omitempty"`
	RateProviders              []string            `json:"rate_providers,omitempty"`
	AssetManagers              []string            `json:"asset_managers,omitempty"`
	SwapFeePercentage          *sdkmath.LegacyDec  `json:"swap_fee_percentage,omitempty"`
	PauseWindowDuration        *Duration           `json:"pause_window_duration,omitempty"`
	BufferPeriodDuration       *Duration           `json:"buffer_period_duration,omitempty"`
	SwapEnabledOnStart         *bool               `json:"swap_enabled_on_start,omitempty"`
	MustAllowlistLPs           *bool               `json:"must_allowlist_lps,omitempty"`
	ManagementAumFeePercentage *sdkmath.LegacyDec  `json:"management_aum_fee_percentage,omitempty"`
	Owner                      string              `json:"owner,omitempty"`
	Admin                      string              `json:"admin,omitempty"`
	From                       string              `json:"from,omitempty"`
	PoolType                   *PoolType           `json:"pool_type,omitempty"`
	AumFeeID                   *uint64             `json:"aum_fee_id,omitempty"`
	FactoryVersion             string              `json:"factory_version,omitempty"`
	PoolVersion                string              `json:"pool_version,omitempty"`
}

// Deployment is the resolved pool configuration. Weights are normalized and sum to exactly one.
type Deployment struct {
	Tokens                     []Token             `json:"tokens"`
	Weights                    []sdkmath.LegacyDec `json:"weights"`
	RateProviders              []string            `json:"rate_providers"`
	AssetManagers              []string            `json:"asset_managers"`
	SwapFeePercentage          sdkmath.LegacyDec   `json:"swap_fee_percentage"`
	PauseWindowDuration        Duration            `json:"pause_window_duration"`
	BufferPeriodDuration       Duration            `json:"buffer_period_duration"`
	PoolType                   PoolType            `json:"pool_type"`
	SwapEnabledOnStart         bool                `json:"swap_enabled_on_start"`
	MustAllowlistLPs           bool                `json:"must_allowlist_lps"`
	ManagementAumFeePercentage sdkmath.LegacyDec   `json:"management_aum_fee_percentage"`
	FactoryVersion             string              `json:"factory_version"`
	PoolVersion                string              `json:"pool_version"`
	AumFeeID                   uint64              `json:"aum_fee_id"`
	Owner                      string              `json:"owner,omitempty"`
	Admin                      string              `json:"admin,omitempty"`
	From                       string              `json:"from,omitempty"`
}

// ManagedPoolParams returns the managed pool constructor parameters derived from the deployment.
func (d Deployment) ManagedPoolParams(name, symbol string) ManagedPoolParams {
	return ManagedPoolParams{
		Name:          name,
		Symbol:        symbol,
		AssetManagers: append([]string(nil), d.AssetManagers...),
	}
}

// ManagedPoolSettingsParams returns the managed pool settings parameters derived from the deployment.
func (d Deployment) ManagedPoolSettingsParams() ManagedPoolSettingsParams {
	addrs := make([]string, len(d.Tokens))
	for i, t := range d.Tokens {
		addrs[i] = t.Address
	}
	return ManagedPoolSettingsParams{
		Tokens:                     addrs,
		NormalizedWeights:          append([]sdkmath.LegacyDec(nil), d.Weights...),
		SwapFeePercentage:          d.SwapFeePercentage,
		SwapEnabledOnStart:         d.SwapEnabledOnStart,
		MustAllowlistLPs:           d.MustAllowlistLPs,
		ManagementAumFeePercentage: d.ManagementAumFeePercentage,
		AumFeeID:                   d.AumFeeID,
	}
}

// PoolSnapshot is a read-only view of a pool's state.
type PoolSnapshot struct {
	ID                         PoolID              `json:"id"`
	PoolType                   PoolType            `json:"pool_type"`
	Tokens                     []Token             `json:"tokens"`
	Balances                   []sdkmath.Int       `json:"balances"`
	NormalizedWeights          []sdkmath.LegacyDec `json:"normalized_weights"`
	TotalSupply                sdkmath.Int         `json:"total_supply"`
	SwapFeePercentage          sdkmath.LegacyDec   `json:"swap_fee_percentage"`
	ManagementAumFeePercentage sdkmath.LegacyDec   `json:"management_aum_fee_percentage"`
	Invariant                  sdkmath.LegacyDec   `json:"invariant"`
	Owner                      string              `json:"owner"`
	Paused                     bool                `json:"paused"`
	SwapEnabled                bool                `json:"swap_enabled"`
	JoinExitEnabled            bool                `json:"join_exit_enabled"`
	MustAllowlistLPs           bool                `json:"must_allowlist_lps"`
	LastChangeBlock            uint64              `json:"last_change_block"`
	Timestamp                  time.Time           `json:"timestamp"`
}
