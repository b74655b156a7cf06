// Package fixedpoint implements 18-decimal fixed point arithmetic with an explicit rounding
// direction on top of cosmossdk.io/math LegacyDec. Every pool computation picks the
// direction that favours the pool.
package fixedpoint

import (
	"errors"

	sdkmath "cosmossdk.io/math"
)

var (
	ErrNegativeBase = errors.New("pow base and exponent must not be negative")
	ErrZeroDivision = errors.New("division by zero")
)

var (
	// MaxPowRelativeError bounds the relative error of Pow (1e-14).
	MaxPowRelativeError = sdkmath.LegacyNewDecWithPrec(1, 14)

	// powPrecision is the smallest series term still added by Pow.
	powPrecision = sdkmath.LegacySmallestDec()

	seriesRadius = sdkmath.LegacyNewDecWithPrec(5, 1)

	two = sdkmath.LegacyNewDec(2)
)

const (
	maxSeriesTerms = 200
	maxRootSteps   = 64
)

func One() sdkmath.LegacyDec  { return sdkmath.LegacyOneDec() }
func Zero() sdkmath.LegacyDec { return sdkmath.LegacyZeroDec() }

func MulDown(a, b sdkmath.LegacyDec) sdkmath.LegacyDec { return a.MulTruncate(b) }
func MulUp(a, b sdkmath.LegacyDec) sdkmath.LegacyDec   { return a.MulRoundUp(b) }

func DivDown(a, b sdkmath.LegacyDec) (sdkmath.LegacyDec, error) {
	if b.IsZero() {
		return sdkmath.LegacyDec{}, ErrZeroDivision
	}
	return a.QuoTruncate(b), nil
}

func DivUp(a, b sdkmath.LegacyDec) (sdkmath.LegacyDec, error) {
	if b.IsZero() {
		return sdkmath.LegacyDec{}, ErrZeroDivision
	}
	return a.QuoRoundUp(b), nil
}

// Complement returns 1 - x, or zero when x >= 1.
func Complement(x sdkmath.LegacyDec) sdkmath.LegacyDec {
	if x.GTE(sdkmath.LegacyOneDec()) {
		return sdkmath.LegacyZeroDec()
	}
	return sdkmath.LegacyOneDec().Sub(x)
}

// PowDown returns base^exp rounded down by the maximum relative error of Pow.
func PowDown(base, exp sdkmath.LegacyDec) (sdkmath.LegacyDec, error) {
	if exact, ok := exactPow(base, exp, MulDown); ok {
		return exact, nil
	}
	raw, err := Pow(base, exp)
	if err != nil {
		return sdkmath.LegacyDec{}, err
	}
	maxErr := MulUp(raw, MaxPowRelativeError).Add(powPrecision)
	if raw.LT(maxErr) {
		return sdkmath.LegacyZeroDec(), nil
	}
	return raw.Sub(maxErr), nil
}

// PowUp returns base^exp rounded up by the maximum relative error of Pow.
func PowUp(base, exp sdkmath.LegacyDec) (sdkmath.LegacyDec, error) {
	if exact, ok := exactPow(base, exp, MulUp); ok {
		return exact, nil
	}
	raw, err := Pow(base, exp)
	if err != nil {
		return sdkmath.LegacyDec{}, err
	}
	return raw.Add(MulUp(raw, MaxPowRelativeError)).Add(powPrecision), nil
}

// exactPow handles the exponents that need no approximation. mul sets the rounding of the
// square.
func exactPow(base, exp sdkmath.LegacyDec, mul func(a, b sdkmath.LegacyDec) sdkmath.LegacyDec) (sdkmath.LegacyDec, bool) {
	one := sdkmath.LegacyOneDec()
	switch {
	case exp.IsZero():
		return one, true
	case base.IsZero():
		return sdkmath.LegacyZeroDec(), true
	case base.Equal(one):
		return one, true
	case exp.Equal(one):
		return base, true
	case exp.Equal(two):
		return mul(base, base), true
	}
	return sdkmath.LegacyDec{}, false
}

// Pow approximates base^exp for a non-negative base and exponent. The integer part of the
// exponent is computed exactly. For the fractional part the base is square-rooted (doubling
// the exponent) until it lies within 0.5 of one, then the binomial series
// (1+x)^a = sum_k C(a, k) x^k is evaluated.
func Pow(base, exp sdkmath.LegacyDec) (sdkmath.LegacyDec, error) {
	if base.IsNegative() || exp.IsNegative() {
		return sdkmath.LegacyDec{}, ErrNegativeBase
	}
	if exact, ok := exactPow(base, exp, sdkmath.LegacyDec.Mul); ok {
		return exact, nil
	}
	whole := exp.TruncateInt()
	result := base.Power(whole.Uint64())
	frac := exp.Sub(sdkmath.LegacyNewDecFromInt(whole))
	if frac.IsZero() {
		return result, nil
	}
	fracPow, err := powFraction(base, frac)
	if err != nil {
		return sdkmath.LegacyDec{}, err
	}
	return result.Mul(fracPow), nil
}

func powFraction(base, frac sdkmath.LegacyDec) (sdkmath.LegacyDec, error) {
	one := sdkmath.LegacyOneDec()
	for i := 0; i < maxRootSteps && base.Sub(one).Abs().GT(seriesRadius); i++ {
		root, err := base.ApproxSqrt()
		if err != nil {
			return sdkmath.LegacyDec{}, err
		}
		base = root
		frac = frac.MulInt64(2)
	}
	whole := frac.TruncateInt()
	result := base.Power(whole.Uint64())
	rest := frac.Sub(sdkmath.LegacyNewDecFromInt(whole))
	if rest.IsZero() {
		return result, nil
	}
	return result.Mul(powSeries(base, rest)), nil
}

// powSeries evaluates base^a for a in (0, 1) and base in [0.5, 1.5].
func powSeries(base, a sdkmath.LegacyDec) sdkmath.LegacyDec {
	one := sdkmath.LegacyOneDec()
	x := base.Sub(one)
	term := one
	sum := one
	for k := int64(1); k <= maxSeriesTerms; k++ {
		kDec := sdkmath.LegacyNewDec(k)
		term = term.Mul(a.Sub(kDec.Sub(one))).Mul(x).Quo(kDec)
		if term.Abs().LT(powPrecision) {
			break
		}
		sum = sum.Add(term)
	}
	return sum
}

// Max returns the larger of a and b.
func Max(a, b sdkmath.LegacyDec) sdkmath.LegacyDec {
	if a.GT(b) {
		return a
	}
	return b
}

// Min returns the smaller of a and b.
func Min(a, b sdkmath.LegacyDec) sdkmath.LegacyDec {
	if a.LT(b) {
		return a
	}
	return b
}

// Sum adds every value.
func Sum(values []sdkmath.LegacyDec) sdkmath.LegacyDec {
	total := sdkmath.LegacyZeroDec()
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
