/*

This file contains the governance records of a pool: gradual parameter updates, the rights that
partition which privileged actions a pool variant allows, managed pool parameters, and circuit
breaker state.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// GradualWeightUpdateParams bounds a linear interpolation of the normalized weights.
type GradualWeightUpdateParams struct {
	StartTime    time.Time           `json:"start_time"`
	EndTime      time.Time           `json:"end_time"`
	StartWeights []sdkmath.LegacyDec `json:"start_weights"`
	EndWeights   []sdkmath.LegacyDec `json:"end_weights"`
}

// GradualSwapFeeUpdateParams bounds a linear interpolation of the swap fee percentage.
type GradualSwapFeeUpdateParams struct {
	StartTime              time.Time         `json:"start_time"`
	EndTime                time.Time         `json:"end_time"`
	StartSwapFeePercentage sdkmath.LegacyDec `json:"start_swap_fee_percentage"`
	EndSwapFeePercentage   sdkmath.LegacyDec `json:"end_swap_fee_percentage"`
}

type BasePoolRights struct {
	CanTransferOwnership bool `json:"can_transfer_ownership"`
	CanChangeSwapFee     bool `json:"can_change_swap_fee"`
	CanUpdateMetadata    bool `json:"can_update_metadata"`
}

type ManagedPoolRights struct {
	CanChangeWeights       bool `json:"can_change_weights"`
	CanDisableSwaps        bool `json:"can_disable_swaps"`
	CanSetMustAllowlistLPs bool `json:"can_set_must_allowlist_lps"`
	CanSetCircuitBreakers  bool `json:"can_set_circuit_breakers"`
	CanChangeTokens        bool `json:"can_change_tokens"`
	CanChangeMgmtFees      bool `json:"can_change_mgmt_fees"`
	CanDisableJoinExit     bool `json:"can_disable_join_exit"`
}

// PoolRights is the full set of owner capabilities of a pool.
type PoolRights struct {
	Base    BasePoolRights    `json:"base"`
	Managed ManagedPoolRights `json:"managed"`
}

// DefaultRights returns the capabilities a pool variant grants its owner.
func DefaultRights(t PoolType) PoolRights {
	switch {
	case t == LiquidityBootstrappingPool:
		return PoolRights{
			Base:    BasePoolRights{CanChangeSwapFee: true},
			Managed: ManagedPoolRights{CanChangeWeights: true, CanDisableSwaps: true},
		}
	case t.IsManaged():
		return PoolRights{
			Base: BasePoolRights{
				CanTransferOwnership: true,
				CanChangeSwapFee:     true,
				CanUpdateMetadata:    true,
			},
			Managed: ManagedPoolRights{
				CanChangeWeights:       true,
				CanDisableSwaps:        true,
				CanSetMustAllowlistLPs: true,
				CanSetCircuitBreakers:  true,
				CanChangeTokens:        true,
				CanChangeMgmtFees:      true,
				CanDisableJoinExit:     true,
			},
		}
	default:
		return PoolRights{Base: BasePoolRights{CanChangeSwapFee: true}}
	}
}

type ManagedPoolParams struct {
	Name          string   `json:"name"`
	Symbol        string   `json:"symbol"`
	AssetManagers []string `json:"asset_managers"`
}

type ManagedPoolSettingsParams struct {
	Tokens                     []string            `json:"tokens"`
	NormalizedWeights          []sdkmath.LegacyDec `json:"normalized_weights"`
	SwapFeePercentage          sdkmath.LegacyDec   `json:"swap_fee_percentage"`
	SwapEnabledOnStart         bool                `json:"swap_enabled_on_start"`
	MustAllowlistLPs           bool                `json:"must_allowlist_lps"`
	ManagementAumFeePercentage sdkmath.LegacyDec   `json:"management_aum_fee_percentage"`
	AumFeeID                   uint64              `json:"aum_fee_id"`
}

// CircuitBreakerParams configures the breaker of one token.
type CircuitBreakerParams struct {
	Token      TokenRef          `json:"token"`
	BptPrice   sdkmath.LegacyDec `json:"bpt_price"`   // Reference BPT price in terms of the token
	LowerBound sdkmath.LegacyDec `json:"lower_bound"` // In [0, 1]
	UpperBound sdkmath.LegacyDec `json:"upper_bound"` // In [1, 10]
}

// CircuitBreakerState is the configured reference of a token breaker and its current absolute bounds.
type CircuitBreakerState struct {
	BptPrice           sdkmath.LegacyDec `json:"bpt_price"`
	ReferenceWeight    sdkmath.LegacyDec `json:"reference_weight"`
	LowerBound         sdkmath.LegacyDec `json:"lower_bound"`
	UpperBound         sdkmath.LegacyDec `json:"upper_bound"`
	LowerBptPriceBound sdkmath.LegacyDec `json:"lower_bpt_price_bound"`
	UpperBptPriceBound sdkmath.LegacyDec `json:"upper_bpt_price_bound"`
}
