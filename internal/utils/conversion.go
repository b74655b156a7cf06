/*
This file contains common utility functions for converting between native token amounts
and 18-decimal scaled values used by the pool math, with explicit rounding direction.
*/

package utils

import (
	"errors"
	"fmt"
	"math/big"

	sdkmath "cosmossdk.io/math"
)

// ScaledDecimals is the precision every amount is upscaled to before pool math runs.
const ScaledDecimals = 18

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidPrecision = errors.New("precision is invalid")
	ErrAmountNil        = errors.New("amount is nil")
	ErrAmountNegative   = errors.New("amount is negative")
	ErrInvalidRate      = errors.New("rate must be positive")
)

// ValidatePrecision checks that a token precision can be upscaled to 18 decimals.
func ValidatePrecision(precision int) error {
	if precision < 0 || precision > ScaledDecimals {
		return fmt.Errorf("%w: %d (must be between 0 and %d)", ErrInvalidPrecision, precision, ScaledDecimals)
	}
	return nil
}

// ScalingFactor returns the multiplier taking a native amount of a token with the given
// precision to its 18-decimal value: 10^(18-precision) * rate, expressed in whole units.
func ScalingFactor(precision int, rate sdkmath.LegacyDec) (sdkmath.LegacyDec, error) {
	if err := ValidatePrecision(precision); err != nil {
		return sdkmath.LegacyDec{}, err
	}
	if rate.IsNil() || !rate.IsPositive() {
		return sdkmath.LegacyDec{}, ErrInvalidRate
	}
	base := sdkmath.LegacyNewDecFromBigIntWithPrec(big.NewInt(1), int64(precision))
	return base.Mul(rate), nil
}

// Upscale converts a native amount to its scaled value, rounding down.
func Upscale(amount sdkmath.Int, factor sdkmath.LegacyDec) (sdkmath.LegacyDec, error) {
	if amount.IsNil() {
		return sdkmath.LegacyDec{}, ErrAmountNil
	}
	if amount.IsNegative() {
		return sdkmath.LegacyDec{}, ErrAmountNegative
	}
	return sdkmath.LegacyNewDecFromInt(amount).MulTruncate(factor), nil
}

// UpscaleAll converts every amount; see Upscale.
func UpscaleAll(amounts []sdkmath.Int, factors []sdkmath.LegacyDec) ([]sdkmath.LegacyDec, error) {
	if len(amounts) != len(factors) {
		return nil, fmt.Errorf("amount count %d does not match scaling factor count %d", len(amounts), len(factors))
	}
	out := make([]sdkmath.LegacyDec, len(amounts))
	for i, a := range amounts {
		scaled, err := Upscale(a, factors[i])
		if err != nil {
			return nil, fmt.Errorf("token %d: %w", i, err)
		}
		out[i] = scaled
	}
	return out, nil
}

// DownscaleDown converts a scaled value back to native units, rounding down.
// Used for amounts leaving the pool.
func DownscaleDown(value sdkmath.LegacyDec, factor sdkmath.LegacyDec) sdkmath.Int {
	if !value.IsPositive() {
		return sdkmath.ZeroInt()
	}
	return value.QuoTruncate(factor).TruncateInt()
}

// DownscaleUp converts a scaled value back to native units, rounding up.
// Used for amounts entering the pool.
func DownscaleUp(value sdkmath.LegacyDec, factor sdkmath.LegacyDec) sdkmath.Int {
	if !value.IsPositive() {
		return sdkmath.ZeroInt()
	}
	return value.QuoRoundUp(factor).Ceil().TruncateInt()
}

// BptToDec converts a BPT amount (18 decimals) to its whole-unit decimal value exactly.
func BptToDec(amount sdkmath.Int) sdkmath.LegacyDec {
	return sdkmath.LegacyNewDecFromBigIntWithPrec(amount.BigInt(), ScaledDecimals)
}

// DecToBpt converts a whole-unit decimal value to a BPT amount. Exact: the decimal carries
// exactly 18 fractional digits.
func DecToBpt(value sdkmath.LegacyDec) sdkmath.Int {
	if !value.IsPositive() {
		return sdkmath.ZeroInt()
	}
	return sdkmath.NewIntFromBigInt(value.BigInt())
}
