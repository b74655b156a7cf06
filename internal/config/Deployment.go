package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/wpool/internal/types"
	"gopkg.in/yaml.v3"
)

var ErrUnknownTokenDecimals = errors.New("token decimals not set and symbol not registered")

// DeploymentFile is the YAML document listing pools to deploy at startup.
type DeploymentFile struct {
	Pools []PoolSpec `yaml:"pools"`
}

// TokenSpec is a pool token. Decimals default to the KnownTokenDecimals entry of the symbol.
type TokenSpec struct {
	Symbol   string `yaml:"symbol"`
	Address  string `yaml:"address"`
	Decimals *int   `yaml:"decimals"`
}

// PoolSpec mirrors types.RawDeployment with YAML friendly scalars. Decimal values are strings
// so that no precision is lost to float parsing, and durations use Go syntax ("2160h").
type PoolSpec struct {
	Name                       string      `yaml:"name"`
	PoolType                   string      `yaml:"pool_type"`
	Tokens                     []TokenSpec `yaml:"tokens"`
	Weights                    []string    `yaml:"weights"`
	RateProviders              []string    `yaml:"rate_providers"`
	AssetManagers              []string    `yaml:"asset_managers"`
	SwapFeePercentage          string      `yaml:"swap_fee_percentage"`
	PauseWindowDuration        string      `yaml:"pause_window_duration"`
	BufferPeriodDuration       string      `yaml:"buffer_period_duration"`
	SwapEnabledOnStart         *bool       `yaml:"swap_enabled_on_start"`
	MustAllowlistLPs           *bool       `yaml:"must_allowlist_lps"`
	ManagementAumFeePercentage string      `yaml:"management_aum_fee_percentage"`
	Owner                      string      `yaml:"owner"`
	Admin                      string      `yaml:"admin"`
	From                       string      `yaml:"from"`
	AumFeeID                   *uint64     `yaml:"aum_fee_id"`
	FactoryVersion             string      `yaml:"factory_version"`
	PoolVersion                string      `yaml:"pool_version"`

	// InitialBalances, when set, initializes the pool right after deployment.
	InitialBalances []string `yaml:"initial_balances"`
}

// LoadDeploymentFile reads a deployment file from the given path and unmarshals it
// into a DeploymentFile struct.
func LoadDeploymentFile(path string) (*DeploymentFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseDeploymentFile(data)
}

// ParseDeploymentFile unmarshals a YAML deployment document.
func ParseDeploymentFile(data []byte) (*DeploymentFile, error) {
	var file DeploymentFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse deployment file: %w", err)
	}
	return &file, nil
}

// ToRaw converts the pool entry into a RawDeployment. Empty scalars stay unset so Resolve applies
// the defaults.
func (s PoolSpec) ToRaw() (types.RawDeployment, error) {
	raw := types.RawDeployment{
		RateProviders:      s.RateProviders,
		AssetManagers:      s.AssetManagers,
		SwapEnabledOnStart: s.SwapEnabledOnStart,
		MustAllowlistLPs:   s.MustAllowlistLPs,
		Owner:              s.Owner,
		Admin:              s.Admin,
		From:               s.From,
		AumFeeID:           s.AumFeeID,
		FactoryVersion:     s.FactoryVersion,
		PoolVersion:        s.PoolVersion,
	}

	for _, t := range s.Tokens {
		token := types.Token{Symbol: t.Symbol, Address: t.Address}
		if t.Decimals != nil {
			token.Decimals = *t.Decimals
		} else if decimals, ok := LookupTokenDecimals(t.Symbol); ok {
			token.Decimals = decimals
		} else {
			return types.RawDeployment{}, fmt.Errorf("%w: %s", ErrUnknownTokenDecimals, t.Symbol)
		}
		raw.Tokens = append(raw.Tokens, token)
	}

	if s.Weights != nil {
		raw.Weights = make([]sdkmath.LegacyDec, len(s.Weights))
		for i, w := range s.Weights {
			dec, err := parseDec("weights", w)
			if err != nil {
				return types.RawDeployment{}, err
			}
			raw.Weights[i] = dec
		}
	}

	var err error
	if raw.SwapFeePercentage, err = parseOptionalDec("swap_fee_percentage", s.SwapFeePercentage); err != nil {
		return types.RawDeployment{}, err
	}
	if raw.ManagementAumFeePercentage, err = parseOptionalDec("management_aum_fee_percentage", s.ManagementAumFeePercentage); err != nil {
		return types.RawDeployment{}, err
	}
	if raw.PauseWindowDuration, err = parseOptionalDuration("pause_window_duration", s.PauseWindowDuration); err != nil {
		return types.RawDeployment{}, err
	}
	if raw.BufferPeriodDuration, err = parseOptionalDuration("buffer_period_duration", s.BufferPeriodDuration); err != nil {
		return types.RawDeployment{}, err
	}

	if s.PoolType != "" {
		t, err := types.ParsePoolType(s.PoolType)
		if err != nil {
			return types.RawDeployment{}, fmt.Errorf("pool_type: %w", err)
		}
		raw.PoolType = &t
	}
	return raw, nil
}

// InitialAmounts parses the initial balances in native token units.
func (s PoolSpec) InitialAmounts() (types.NAry, error) {
	if len(s.InitialBalances) == 0 {
		return nil, nil
	}
	out := make(types.NAry, len(s.InitialBalances))
	for i, b := range s.InitialBalances {
		amount, ok := sdkmath.NewIntFromString(strings.TrimSpace(b))
		if !ok {
			return nil, fmt.Errorf("initial_balances[%d]: invalid integer %q", i, b)
		}
		out[i] = amount
	}
	return out, nil
}

func parseDec(field, value string) (sdkmath.LegacyDec, error) {
	dec, err := sdkmath.LegacyNewDecFromStr(strings.TrimSpace(value))
	if err != nil {
		return sdkmath.LegacyDec{}, fmt.Errorf("%s: invalid decimal %q: %w", field, value, err)
	}
	return dec, nil
}

func parseOptionalDec(field, value string) (*sdkmath.LegacyDec, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	dec, err := parseDec(field, value)
	if err != nil {
		return nil, err
	}
	return &dec, nil
}

func parseOptionalDuration(field, value string) (*types.Duration, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return nil, fmt.Errorf("%s: invalid duration %q: %w", field, value, err)
	}
	td := types.Duration(d)
	return &td, nil
}
