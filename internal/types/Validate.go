package types

import (
	"errors"
	"fmt"
	"strings"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/wpool/internal/utils"
)

var (
	ErrTokenCount          = errors.New("token count out of bounds")
	ErrInvalidToken        = errors.New("invalid token")
	ErrDuplicateToken      = errors.New("duplicate token address")
	ErrMinWeight           = errors.New("weight below minimum")
	ErrWeightSum           = errors.New("normalized weights must sum to one")
	ErrSwapFeeTooLow       = errors.New("swap fee percentage below minimum")
	ErrSwapFeeTooHigh      = errors.New("swap fee percentage above maximum")
	ErrPauseWindowTooLong  = errors.New("pause window duration above maximum")
	ErrBufferPeriodTooLong = errors.New("buffer period duration above maximum")
	ErrAumFeeTooHigh       = errors.New("management aum fee percentage above maximum")
	ErrAumFeeUnsupported   = errors.New("management aum fee requires a managed pool")
)

// Validate checks a resolved deployment against the protocol bounds of its pool type.
func (d Deployment) Validate(b ProtocolBounds) error {
	if !d.PoolType.IsValid() {
		return fmt.Errorf("%w: %d", ErrUnknownPoolType, int(d.PoolType))
	}

	n := len(d.Tokens)
	if n < b.MinTokens || n > b.MaxTokensFor(d.PoolType) {
		return fmt.Errorf("%w: %d tokens for %s (allowed %d..%d)", ErrTokenCount, n, d.PoolType, b.MinTokens, b.MaxTokensFor(d.PoolType))
	}
	if err := ValidateTokens(d.Tokens); err != nil {
		return err
	}
	if len(d.Weights) != n {
		return fmt.Errorf("%w: %d weights for %d tokens", ErrWeightCount, len(d.Weights), n)
	}
	if err := ValidateWeights(d.Weights, b.MinWeight); err != nil {
		return err
	}
	if err := ValidateSwapFee(d.SwapFeePercentage, d.PoolType, b); err != nil {
		return err
	}
	if d.PauseWindowDuration.Std() > b.MaxPauseWindowDuration.Std() {
		return fmt.Errorf("%w: %s", ErrPauseWindowTooLong, d.PauseWindowDuration.Std())
	}
	if d.BufferPeriodDuration.Std() > b.MaxBufferPeriodDuration.Std() {
		return fmt.Errorf("%w: %s", ErrBufferPeriodTooLong, d.BufferPeriodDuration.Std())
	}
	return ValidateAumFee(d.ManagementAumFeePercentage, d.PoolType, b)
}

// ValidateTokens checks token addresses are set and unique and decimals are supported.
func ValidateTokens(tokens []Token) error {
	seen := make(map[string]struct{}, len(tokens))
	for i, t := range tokens {
		if IsZeroAddress(t.Address) {
			return fmt.Errorf("%w: token %d has no address", ErrInvalidToken, i)
		}
		if err := utils.ValidatePrecision(t.Decimals); err != nil {
			return fmt.Errorf("%w: token %s: %w", ErrInvalidToken, t.Address, err)
		}
		key := strings.ToLower(t.Address)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateToken, t.Address)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// ValidateWeights checks normalized weights: each at least minWeight, summing to exactly one.
func ValidateWeights(weights []sdkmath.LegacyDec, minWeight sdkmath.LegacyDec) error {
	sum := sdkmath.LegacyZeroDec()
	for i, w := range weights {
		if w.IsNil() || w.LT(minWeight) {
			return fmt.Errorf("%w: weight %d is %s (minimum %s)", ErrMinWeight, i, w, minWeight)
		}
		sum = sum.Add(w)
	}
	if !sum.Equal(sdkmath.LegacyOneDec()) {
		return fmt.Errorf("%w: got %s", ErrWeightSum, sum)
	}
	return nil
}

// ValidateSwapFee checks a swap fee percentage against the bounds of a pool type.
func ValidateSwapFee(fee sdkmath.LegacyDec, t PoolType, b ProtocolBounds) error {
	if fee.IsNil() || fee.LT(b.MinSwapFeePercentage) {
		return fmt.Errorf("%w: %s", ErrSwapFeeTooLow, fee)
	}
	if fee.GT(b.MaxSwapFeeFor(t)) {
		return fmt.Errorf("%w: %s (maximum %s)", ErrSwapFeeTooHigh, fee, b.MaxSwapFeeFor(t))
	}
	return nil
}

// ValidateAumFee checks a management fee: non-zero only on managed pools and within bounds.
func ValidateAumFee(fee sdkmath.LegacyDec, t PoolType, b ProtocolBounds) error {
	if fee.IsNil() || fee.IsZero() {
		return nil
	}
	if fee.IsNegative() || fee.GT(b.MaxManagementAumFeePercentage) {
		return fmt.Errorf("%w: %s", ErrAumFeeTooHigh, fee)
	}
	if !t.IsManaged() {
		return fmt.Errorf("%w: %s", ErrAumFeeUnsupported, t)
	}
	return nil
}
