/*

This file contains the constant weighted product math: V = prod(balance_i ^ weight_i).

All balances and amounts are 18-decimal scaled values and weights are normalized. Every
function rounds in the direction that favours the pool: amounts paid by the pool round
down, amounts paid to the pool round up.

*/

package weightedmath

import (
	"errors"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/wpool/internal/fixedpoint"
)

var (
	ErrZeroInvariant         = errors.New("zero invariant")
	ErrInvalidBalance        = errors.New("balances must be positive")
	ErrInvalidWeight         = errors.New("weights must be in (0, 1]")
	ErrInvalidAmount         = errors.New("amounts must not be negative")
	ErrInputLength           = errors.New("input lengths mismatch")
	ErrMaxInRatio            = errors.New("amount in exceeds max in ratio")
	ErrMaxOutRatio           = errors.New("amount out exceeds max out ratio")
	ErrMaxInvariantRatio     = errors.New("invariant ratio above maximum")
	ErrMinInvariantRatio     = errors.New("invariant ratio below minimum")
	ErrInsufficientLiquidity = errors.New("amount out exceeds pool balance")
	ErrZeroSupply            = errors.New("total supply is zero")
	ErrInvalidBptAmount      = errors.New("bpt amount must be positive")
	ErrInvalidFeePercentage  = errors.New("fee percentage must be in [0, 1)")
)

var (
	// MaxInRatio caps a swap input at 30% of the input balance.
	MaxInRatio = sdkmath.LegacyNewDecWithPrec(3, 1)

	// MaxOutRatio caps a swap output at 30% of the output balance.
	MaxOutRatio = sdkmath.LegacyNewDecWithPrec(3, 1)

	// MaxInvariantRatio caps the invariant growth of a single token join.
	MaxInvariantRatio = sdkmath.LegacyNewDec(3)

	// MinInvariantRatio caps the invariant decrease of a single token exit.
	MinInvariantRatio = sdkmath.LegacyNewDecWithPrec(7, 1)

	// MinPowBaseFreeExponent floors the base of the protocol fee power so it stays well conditioned.
	MinPowBaseFreeExponent = sdkmath.LegacyNewDecWithPrec(7, 1)

	secondsPerYear = sdkmath.LegacyNewDec(365 * 24 * 60 * 60)
)

func one() sdkmath.LegacyDec { return sdkmath.LegacyOneDec() }

// divDown and divUp require a non-zero denominator, checked by the callers.
func divDown(a, b sdkmath.LegacyDec) sdkmath.LegacyDec { return a.QuoTruncate(b) }
func divUp(a, b sdkmath.LegacyDec) sdkmath.LegacyDec   { return a.QuoRoundUp(b) }

func checkBalance(b sdkmath.LegacyDec) error {
	if b.IsNil() || !b.IsPositive() {
		return ErrInvalidBalance
	}
	return nil
}

func checkWeight(w sdkmath.LegacyDec) error {
	if w.IsNil() || !w.IsPositive() || w.GT(one()) {
		return ErrInvalidWeight
	}
	return nil
}

func checkAmount(a sdkmath.LegacyDec) error {
	if a.IsNil() || a.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

func checkPool(balances, weights []sdkmath.LegacyDec) error {
	if len(balances) != len(weights) {
		return fmt.Errorf("%w: %d balances, %d weights", ErrInputLength, len(balances), len(weights))
	}
	for i := range balances {
		if err := checkBalance(balances[i]); err != nil {
			return fmt.Errorf("token %d: %w", i, err)
		}
		if err := checkWeight(weights[i]); err != nil {
			return fmt.Errorf("token %d: %w", i, err)
		}
	}
	return nil
}

// CalcInvariant returns prod(balance_i ^ weight_i), rounded down.
func CalcInvariant(weights, balances []sdkmath.LegacyDec) (sdkmath.LegacyDec, error) {
	if err := checkPool(balances, weights); err != nil {
		return sdkmath.LegacyDec{}, err
	}
	invariant := one()
	for i := range weights {
		p, err := fixedpoint.PowDown(balances[i], weights[i])
		if err != nil {
			return sdkmath.LegacyDec{}, err
		}
		invariant = fixedpoint.MulDown(invariant, p)
	}
	if !invariant.IsPositive() {
		return sdkmath.LegacyDec{}, ErrZeroInvariant
	}
	return invariant, nil
}

// CalcOutGivenIn returns the amount of token out for an exact amount in (fee already deducted).
//
//	aO = bO * (1 - (bI / (bI + aI)) ^ (wI / wO))
func CalcOutGivenIn(balanceIn, weightIn, balanceOut, weightOut, amountIn sdkmath.LegacyDec) (sdkmath.LegacyDec, error) {
	if err := errors.Join(checkBalance(balanceIn), checkBalance(balanceOut), checkWeight(weightIn), checkWeight(weightOut), checkAmount(amountIn)); err != nil {
		return sdkmath.LegacyDec{}, err
	}
	if amountIn.GT(fixedpoint.MulDown(balanceIn, MaxInRatio)) {
		return sdkmath.LegacyDec{}, ErrMaxInRatio
	}
	denominator := balanceIn.Add(amountIn)
	base := divUp(balanceIn, denominator)
	exponent := divDown(weightIn, weightOut)
	power, err := fixedpoint.PowUp(base, exponent)
	if err != nil {
		return sdkmath.LegacyDec{}, err
	}
	return fixedpoint.MulDown(balanceOut, fixedpoint.Complement(power)), nil
}

// CalcInGivenOut returns the amount of token in (before fee) for an exact amount out.
//
//	aI = bI * ((bO / (bO - aO)) ^ (wO / wI) - 1)
func CalcInGivenOut(balanceIn, weightIn, balanceOut, weightOut, amountOut sdkmath.LegacyDec) (sdkmath.LegacyDec, error) {
	if err := errors.Join(checkBalance(balanceIn), checkBalance(balanceOut), checkWeight(weightIn), checkWeight(weightOut), checkAmount(amountOut)); err != nil {
		return sdkmath.LegacyDec{}, err
	}
	if amountOut.GT(fixedpoint.MulDown(balanceOut, MaxOutRatio)) {
		return sdkmath.LegacyDec{}, ErrMaxOutRatio
	}
	base := divUp(balanceOut, balanceOut.Sub(amountOut))
	exponent := divUp(weightOut, weightIn)
	power, err := fixedpoint.PowUp(base, exponent)
	if err != nil {
		return sdkmath.LegacyDec{}, err
	}
	ratio := power.Sub(one())
	return fixedpoint.MulUp(balanceIn, ratio), nil
}

func checkFee(fee sdkmath.LegacyDec) error {
	if fee.IsNil() || fee.IsNegative() || fee.GTE(one()) {
		return ErrInvalidFeePercentage
	}
	return nil
}

func checkSupply(supply sdkmath.LegacyDec) error {
	if supply.IsNil() || !supply.IsPositive() {
		return ErrZeroSupply
	}
	return nil
}

func checkAmounts(amounts []sdkmath.LegacyDec, n int) error {
	if len(amounts) != n {
		return fmt.Errorf("%w: %d amounts for %d tokens", ErrInputLength, len(amounts), n)
	}
	for i, a := range amounts {
		if err := checkAmount(a); err != nil {
			return fmt.Errorf("token %d: %w", i, err)
		}
	}
	return nil
}

func checkBpt(bpt sdkmath.LegacyDec) error {
	if bpt.IsNil() || !bpt.IsPositive() {
		return ErrInvalidBptAmount
	}
	return nil
}

// CalcBptOutGivenExactTokensIn returns the BPT minted for exact amounts in. The part of each
// amount exceeding a proportional deposit is charged the swap fee.
func CalcBptOutGivenExactTokensIn(balances, weights, amountsIn []sdkmath.LegacyDec, totalSupply, swapFee sdkmath.LegacyDec) (sdkmath.LegacyDec, error) {
	if err := checkPool(balances, weights); err != nil {
		return sdkmath.LegacyDec{}, err
	}
	if err := errors.Join(checkAmounts(amountsIn, len(balances)), checkSupply(totalSupply), checkFee(swapFee)); err != nil {
		return sdkmath.LegacyDec{}, err
	}

	balanceRatiosWithFee := make([]sdkmath.LegacyDec, len(amountsIn))
	invariantRatioWithFees := sdkmath.LegacyZeroDec()
	for i := range balances {
		balanceRatiosWithFee[i] = divDown(balances[i].Add(amountsIn[i]), balances[i])
		invariantRatioWithFees = invariantRatioWithFees.Add(fixedpoint.MulDown(balanceRatiosWithFee[i], weights[i]))
	}

	invariantRatio := one()
	for i := range balances {
		amountInWithoutFee := amountsIn[i]
		if balanceRatiosWithFee[i].GT(invariantRatioWithFees) {
			nonTaxable := sdkmath.LegacyZeroDec()
			if invariantRatioWithFees.GT(one()) {
				nonTaxable = fixedpoint.MulDown(balances[i], invariantRatioWithFees.Sub(one()))
			}
			taxable := amountsIn[i].Sub(nonTaxable)
			amountInWithoutFee = nonTaxable.Add(taxable.Sub(fixedpoint.MulUp(taxable, swapFee)))
		}
		if amountInWithoutFee.IsZero() {
			continue
		}
		balanceRatio := divDown(balances[i].Add(amountInWithoutFee), balances[i])
		p, err := fixedpoint.PowDown(balanceRatio, weights[i])
		if err != nil {
			return sdkmath.LegacyDec{}, err
		}
		invariantRatio = fixedpoint.MulDown(invariantRatio, p)
	}

	if invariantRatio.LTE(one()) {
		return sdkmath.LegacyZeroDec(), nil
	}
	return fixedpoint.MulDown(totalSupply, invariantRatio.Sub(one())), nil
}

// CalcTokenInGivenExactBptOut returns the amount of a single token needed to mint an exact
// BPT amount.
func CalcTokenInGivenExactBptOut(balance, weight, bptOut, totalSupply, swapFee sdkmath.LegacyDec) (sdkmath.LegacyDec, error) {
	if err := errors.Join(checkBalance(balance), checkWeight(weight), checkBpt(bptOut), checkSupply(totalSupply), checkFee(swapFee)); err != nil {
		return sdkmath.LegacyDec{}, err
	}
	invariantRatio := divUp(totalSupply.Add(bptOut), totalSupply)
	if invariantRatio.GT(MaxInvariantRatio) {
		return sdkmath.LegacyDec{}, ErrMaxInvariantRatio
	}
	balanceRatio, err := fixedpoint.PowUp(invariantRatio, divUp(one(), weight))
	if err != nil {
		return sdkmath.LegacyDec{}, err
	}
	amountInWithoutFee := fixedpoint.MulUp(balance, balanceRatio.Sub(one()))

	// Only the share not matching the token's weight is a swap.
	taxable := fixedpoint.MulUp(amountInWithoutFee, fixedpoint.Complement(weight))
	nonTaxable := amountInWithoutFee.Sub(taxable)
	return nonTaxable.Add(divUp(taxable, fixedpoint.Complement(swapFee))), nil
}

// CalcAllTokensInGivenExactBptOut returns the proportional amounts needed to mint bptOut.
func CalcAllTokensInGivenExactBptOut(balances []sdkmath.LegacyDec, bptOut, totalSupply sdkmath.LegacyDec) ([]sdkmath.LegacyDec, error) {
	if err := errors.Join(checkBpt(bptOut), checkSupply(totalSupply)); err != nil {
		return nil, err
	}
	ratio := divUp(bptOut, totalSupply)
	amounts := make([]sdkmath.LegacyDec, len(balances))
	for i, b := range balances {
		if err := checkBalance(b); err != nil {
			return nil, fmt.Errorf("token %d: %w", i, err)
		}
		amounts[i] = fixedpoint.MulUp(b, ratio)
	}
	return amounts, nil
}

// CalcBptInGivenExactTokensOut returns the BPT burned for exact amounts out. The part of each
// amount exceeding a proportional withdrawal is charged the swap fee.
func CalcBptInGivenExactTokensOut(balances, weights, amountsOut []sdkmath.LegacyDec, totalSupply, swapFee sdkmath.LegacyDec) (sdkmath.LegacyDec, error) {
	if err := checkPool(balances, weights); err != nil {
		return sdkmath.LegacyDec{}, err
	}
	if err := errors.Join(checkAmounts(amountsOut, len(balances)), checkSupply(totalSupply), checkFee(swapFee)); err != nil {
		return sdkmath.LegacyDec{}, err
	}

	balanceRatiosWithoutFee := make([]sdkmath.LegacyDec, len(amountsOut))
	invariantRatioWithoutFees := sdkmath.LegacyZeroDec()
	for i := range balances {
		if amountsOut[i].GT(balances[i]) {
			return sdkmath.LegacyDec{}, fmt.Errorf("token %d: %w", i, ErrInsufficientLiquidity)
		}
		balanceRatiosWithoutFee[i] = divUp(balances[i].Sub(amountsOut[i]), balances[i])
		invariantRatioWithoutFees = invariantRatioWithoutFees.Add(fixedpoint.MulUp(balanceRatiosWithoutFee[i], weights[i]))
	}

	invariantRatio := one()
	for i := range balances {
		amountOutWithFee := amountsOut[i]
		if invariantRatioWithoutFees.GT(balanceRatiosWithoutFee[i]) {
			nonTaxable := fixedpoint.MulDown(balances[i], fixedpoint.Complement(invariantRatioWithoutFees))
			taxable := amountsOut[i].Sub(nonTaxable)
			amountOutWithFee = nonTaxable.Add(divUp(taxable, fixedpoint.Complement(swapFee)))
		}
		if amountOutWithFee.GTE(balances[i]) {
			return sdkmath.LegacyDec{}, fmt.Errorf("token %d: %w", i, ErrInsufficientLiquidity)
		}
		balanceRatio := divDown(balances[i].Sub(amountOutWithFee), balances[i])
		p, err := fixedpoint.PowDown(balanceRatio, weights[i])
		if err != nil {
			return sdkmath.LegacyDec{}, err
		}
		invariantRatio = fixedpoint.MulDown(invariantRatio, p)
	}

	return fixedpoint.MulUp(totalSupply, fixedpoint.Complement(invariantRatio)), nil
}

// CalcTokenOutGivenExactBptIn returns the amount of a single token paid out for burning an
// exact BPT amount.
func CalcTokenOutGivenExactBptIn(balance, weight, bptIn, totalSupply, swapFee sdkmath.LegacyDec) (sdkmath.LegacyDec, error) {
	if err := errors.Join(checkBalance(balance), checkWeight(weight), checkBpt(bptIn), checkSupply(totalSupply), checkFee(swapFee)); err != nil {
		return sdkmath.LegacyDec{}, err
	}
	if bptIn.GTE(totalSupply) {
		return sdkmath.LegacyDec{}, ErrMinInvariantRatio
	}
	invariantRatio := divUp(totalSupply.Sub(bptIn), totalSupply)
	if invariantRatio.LT(MinInvariantRatio) {
		return sdkmath.LegacyDec{}, ErrMinInvariantRatio
	}
	balanceRatio, err := fixedpoint.PowUp(invariantRatio, divDown(one(), weight))
	if err != nil {
		return sdkmath.LegacyDec{}, err
	}
	amountOutWithoutFee := fixedpoint.MulDown(balance, fixedpoint.Complement(balanceRatio))

	taxable := fixedpoint.MulUp(amountOutWithoutFee, fixedpoint.Complement(weight))
	nonTaxable := amountOutWithoutFee.Sub(taxable)
	return nonTaxable.Add(fixedpoint.MulDown(taxable, fixedpoint.Complement(swapFee))), nil
}

// CalcTokensOutGivenExactBptIn returns the proportional amounts paid out for burning bptIn.
func CalcTokensOutGivenExactBptIn(balances []sdkmath.LegacyDec, bptIn, totalSupply sdkmath.LegacyDec) ([]sdkmath.LegacyDec, error) {
	if err := errors.Join(checkBpt(bptIn), checkSupply(totalSupply)); err != nil {
		return nil, err
	}
	if bptIn.GT(totalSupply) {
		return nil, ErrInsufficientLiquidity
	}
	ratio := divDown(bptIn, totalSupply)
	amounts := make([]sdkmath.LegacyDec, len(balances))
	for i, b := range balances {
		if err := checkAmount(b); err != nil {
			return nil, fmt.Errorf("token %d: %w", i, err)
		}
		amounts[i] = fixedpoint.MulDown(b, ratio)
	}
	return amounts, nil
}

// CalcDueTokenProtocolSwapFeeAmount returns the amount of one token owed to the protocol
// out of the invariant growth since the last join or exit.
func CalcDueTokenProtocolSwapFeeAmount(balance, weight, previousInvariant, currentInvariant, protocolSwapFee sdkmath.LegacyDec) (sdkmath.LegacyDec, error) {
	if err := errors.Join(checkAmount(balance), checkWeight(weight), checkFee(protocolSwapFee)); err != nil {
		return sdkmath.LegacyDec{}, err
	}
	if previousInvariant.IsNil() || !previousInvariant.IsPositive() || currentInvariant.LTE(previousInvariant) || protocolSwapFee.IsZero() {
		return sdkmath.LegacyZeroDec(), nil
	}
	base := fixedpoint.Max(divUp(previousInvariant, currentInvariant), MinPowBaseFreeExponent)
	power, err := fixedpoint.PowUp(base, divDown(one(), weight))
	if err != nil {
		return sdkmath.LegacyDec{}, err
	}
	accrued := fixedpoint.MulDown(balance, fixedpoint.Complement(power))
	return fixedpoint.MulDown(accrued, protocolSwapFee), nil
}

// CalcSpotPrice returns the price of token out in units of token in, without fees:
// (bI / wI) / (bO / wO).
func CalcSpotPrice(balanceIn, weightIn, balanceOut, weightOut sdkmath.LegacyDec) (sdkmath.LegacyDec, error) {
	if err := errors.Join(checkBalance(balanceIn), checkBalance(balanceOut), checkWeight(weightIn), checkWeight(weightOut)); err != nil {
		return sdkmath.LegacyDec{}, err
	}
	numerator := divUp(balanceIn, weightIn)
	denominator := divDown(balanceOut, weightOut)
	return divUp(numerator, denominator), nil
}

// CalcBptPrice returns the value of one token in BPT: totalSupply * weight / balance.
func CalcBptPrice(balance, weight, totalSupply sdkmath.LegacyDec) (sdkmath.LegacyDec, error) {
	if err := errors.Join(checkBalance(balance), checkWeight(weight), checkSupply(totalSupply)); err != nil {
		return sdkmath.LegacyDec{}, err
	}
	return divUp(fixedpoint.MulUp(totalSupply, weight), balance), nil
}

// CalcAumFeeBptAmount returns the BPT to mint so the manager ends up owning
// annualFee * elapsed / 365 days of the pool.
func CalcAumFeeBptAmount(totalSupply, annualFee sdkmath.LegacyDec, elapsed time.Duration) (sdkmath.LegacyDec, error) {
	if err := checkFee(annualFee); err != nil {
		return sdkmath.LegacyDec{}, err
	}
	if elapsed <= 0 || annualFee.IsZero() || totalSupply.IsNil() || !totalSupply.IsPositive() {
		return sdkmath.LegacyZeroDec(), nil
	}
	seconds := sdkmath.LegacyNewDec(int64(elapsed / time.Second))
	feePct := divDown(fixedpoint.MulDown(annualFee, seconds), secondsPerYear)
	if feePct.GTE(one()) {
		return sdkmath.LegacyDec{}, ErrInvalidFeePercentage
	}
	return divDown(fixedpoint.MulDown(totalSupply, feePct), fixedpoint.Complement(feePct)), nil
}
