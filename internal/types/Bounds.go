/*

This file contains the protocol bounds a deployment and its governance actions are validated against.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

// ProtocolBounds holds the limits enforced when a pool is deployed and whenever a privileged
// action changes one of its parameters. Different sets can be versioned in the database.
type ProtocolBounds struct {
	// --- Token Set ---
	MinTokens        int `json:"min_tokens"`         // Minimum number of tokens in any pool.
	MaxTokens        int `json:"max_tokens"`         // Maximum number of tokens in weighted and liquidity bootstrapping pools.
	MaxManagedTokens int `json:"max_managed_tokens"` // Maximum number of tokens in managed pools.

	// --- Weights ---
	MinWeight sdkmath.LegacyDec `json:"min_weight"` // Minimum normalized weight of a single token.

	// --- Fees ---
	MinSwapFeePercentage          sdkmath.LegacyDec `json:"min_swap_fee_percentage"`
	MaxSwapFeePercentage          sdkmath.LegacyDec `json:"max_swap_fee_percentage"`
	MaxManagedSwapFeePercentage   sdkmath.LegacyDec `json:"max_managed_swap_fee_percentage"`
	MaxManagementAumFeePercentage sdkmath.LegacyDec `json:"max_management_aum_fee_percentage"`
	MaxProtocolFeePercentage      sdkmath.LegacyDec `json:"max_protocol_fee_percentage"` // Upper bound of the protocol share of swap fees.

	// --- Emergency Windows ---
	MaxPauseWindowDuration  Duration `json:"max_pause_window_duration"`
	MaxBufferPeriodDuration Duration `json:"max_buffer_period_duration"`

	// --- Supply ---
	MinimumBpt sdkmath.Int `json:"minimum_bpt"` // BPT locked to the zero address on initialization.

	// --- Circuit Breakers ---
	MaxCircuitBreakerUpperBound sdkmath.LegacyDec `json:"max_circuit_breaker_upper_bound"`
}

// MaxTokensFor returns the token count limit of a pool variant.
func (b ProtocolBounds) MaxTokensFor(t PoolType) int {
	if t.IsManaged() {
		return b.MaxManagedTokens
	}
	return b.MaxTokens
}

// MaxSwapFeeFor returns the swap fee limit of a pool variant.
func (b ProtocolBounds) MaxSwapFeeFor(t PoolType) sdkmath.LegacyDec {
	if t.IsManaged() {
		return b.MaxManagedSwapFeePercentage
	}
	return b.MaxSwapFeePercentage
}
