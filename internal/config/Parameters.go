/*

This file contains the default protocol bounds for weighted pools.

Deployments and every privileged parameter change are validated against these values unless a
versioned set has been activated in the database.

*/

package config

import (
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/wpool/internal/types"
)

const (
	// DefaultBoundsConfigName is the database config name the default bounds are stored under.
	DefaultBoundsConfigName = "default"
	// DefaultBoundsConfigVersion is the version of DefaultProtocolBounds.
	DefaultBoundsConfigVersion = 1
)

// DefaultProtocolBounds is the baseline set of limits. It is saved to the database on first
// start when persistence is enabled and no active set exists.
var DefaultProtocolBounds = types.ProtocolBounds{
	// --- Token Set ---
	MinTokens: 2, // A pool prices one token against another.

	MaxTokens: 8, // Weighted and liquidity bootstrapping pools.

	MaxManagedTokens: 50, // Managed pools may hold a larger basket.

	// --- Weights ---
	MinWeight: sdkmath.LegacyNewDecWithPrec(1, 2), // 1%.
	// Bounds the exponent wO / wI of the swap formulas to at most 99.

	// --- Fees ---
	MinSwapFeePercentage: sdkmath.LegacyNewDecWithPrec(1, 6), // 0.0001%.

	MaxSwapFeePercentage: sdkmath.LegacyNewDecWithPrec(1, 1), // 10%.

	MaxManagedSwapFeePercentage: sdkmath.LegacyNewDecWithPrec(95, 2), // 95%.
	// Managed pools use very high fees to effectively halt trading during rebalances.

	MaxManagementAumFeePercentage: sdkmath.LegacyNewDecWithPrec(1, 1), // 10% per year.

	MaxProtocolFeePercentage: sdkmath.LegacyNewDecWithPrec(5, 1), // 50% of swap fees.

	// --- Emergency Windows ---
	MaxPauseWindowDuration: types.Duration(270 * 24 * time.Hour), // 9 months.

	MaxBufferPeriodDuration: types.Duration(90 * 24 * time.Hour), // 3 months.

	// --- Supply ---
	MinimumBpt: sdkmath.NewInt(1_000_000), // 1e6 wei, locked to the zero address forever.

	// --- Circuit Breakers ---
	MaxCircuitBreakerUpperBound: sdkmath.LegacyNewDec(10),
}
