/*

Default resolution from RawDeployment to Deployment.

*/

package types

import (
	"errors"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
)

const (
	Month = 30 * 24 * time.Hour

	DefaultPauseWindowDuration  = 3 * Month
	DefaultBufferPeriodDuration = Month
	DefaultFactoryVersion       = "default factory version"
	DefaultPoolVersion          = "default pool version"

	// ProtocolFeeAum is the protocol fee type id used for AUM fees
	// (SWAP=0, FLASH_LOAN=1, YIELD=2, AUM=3).
	ProtocolFeeAum uint64 = 3
)

var (
	ErrWeightCount       = errors.New("weight count does not match token count")
	ErrNonPositiveWeight = errors.New("weights must be positive")
	ErrRateProviderCount = errors.New("rate provider count does not match token count")
	ErrAssetManagerCount = errors.New("asset manager count does not match token count")
)

// DefaultSwapFeePercentage is 1%.
func DefaultSwapFeePercentage() sdkmath.LegacyDec {
	return sdkmath.LegacyNewDecWithPrec(1, 2)
}

// Resolve fills every missing field with its default. Values the caller supplied are kept
// as given, except weights which are always normalized (a no-op when they already sum to one).
func (r RawDeployment) Resolve() (Deployment, error) {
	d := Deployment{
		Tokens:                     append([]Token{}, r.Tokens...),
		SwapFeePercentage:          DefaultSwapFeePercentage(),
		PauseWindowDuration:        Duration(DefaultPauseWindowDuration),
		BufferPeriodDuration:       Duration(DefaultBufferPeriodDuration),
		PoolType:                   WeightedPool,
		SwapEnabledOnStart:         true,
		MustAllowlistLPs:           false,
		ManagementAumFeePercentage: sdkmath.LegacyZeroDec(),
		FactoryVersion:             DefaultFactoryVersion,
		PoolVersion:                DefaultPoolVersion,
		AumFeeID:                   ProtocolFeeAum,
		Owner:                      ZeroAddress,
		Admin:                      r.Admin,
		From:                       r.From,
	}
	n := len(d.Tokens)

	weights := r.Weights
	if weights == nil {
		weights = make([]sdkmath.LegacyDec, n)
		for i := range weights {
			weights[i] = sdkmath.LegacyOneDec()
		}
	}
	if len(weights) != n {
		return Deployment{}, fmt.Errorf("%w: %d weights for %d tokens", ErrWeightCount, len(weights), n)
	}
	normalized, err := NormalizeWeights(weights)
	if err != nil {
		return Deployment{}, err
	}
	d.Weights = normalized

	d.RateProviders, err = resolveAccounts(r.RateProviders, n, ErrRateProviderCount)
	if err != nil {
		return Deployment{}, err
	}
	d.AssetManagers, err = resolveAccounts(r.AssetManagers, n, ErrAssetManagerCount)
	if err != nil {
		return Deployment{}, err
	}

	if r.SwapFeePercentage != nil {
		d.SwapFeePercentage = *r.SwapFeePercentage
	}
	if r.PauseWindowDuration != nil {
		d.PauseWindowDuration = *r.PauseWindowDuration
	}
	if r.BufferPeriodDuration != nil {
		d.BufferPeriodDuration = *r.BufferPeriodDuration
	}
	if r.PoolType != nil {
		d.PoolType = *r.PoolType
	}
	if r.SwapEnabledOnStart != nil {
		d.SwapEnabledOnStart = *r.SwapEnabledOnStart
	}
	if r.MustAllowlistLPs != nil {
		d.MustAllowlistLPs = *r.MustAllowlistLPs
	}
	if r.ManagementAumFeePercentage != nil {
		d.ManagementAumFeePercentage = *r.ManagementAumFeePercentage
	}
	if r.AumFeeID != nil {
		d.AumFeeID = *r.AumFeeID
	}
	if r.FactoryVersion != "" {
		d.FactoryVersion = r.FactoryVersion
	}
	if r.PoolVersion != "" {
		d.PoolVersion = r.PoolVersion
	}
	if r.Owner != "" {
		d.Owner = r.Owner
	}
	return d, nil
}

// NormalizeWeights scales weights so they sum to exactly one. The truncation remainder
// goes to the last weight.
func NormalizeWeights(weights []sdkmath.LegacyDec) ([]sdkmath.LegacyDec, error) {
	if len(weights) == 0 {
		return []sdkmath.LegacyDec{}, nil
	}
	sum := sdkmath.LegacyZeroDec()
	for _, w := range weights {
		if w.IsNil() || !w.IsPositive() {
			return nil, ErrNonPositiveWeight
		}
		sum = sum.Add(w)
	}
	out := make([]sdkmath.LegacyDec, len(weights))
	total := sdkmath.LegacyZeroDec()
	for i, w := range weights {
		out[i] = w.QuoTruncate(sum)
		total = total.Add(out[i])
	}
	last := len(out) - 1
	out[last] = out[last].Add(sdkmath.LegacyOneDec().Sub(total))
	return out, nil
}

func resolveAccounts(accounts []string, n int, countErr error) ([]string, error) {
	if accounts == nil {
		out := make([]string, n)
		for i := range out {
			out[i] = ZeroAddress
		}
		return out, nil
	}
	if len(accounts) != n {
		return nil, fmt.Errorf("%w: %d for %d tokens", countErr, len(accounts), n)
	}
	out := make([]string, n)
	for i, a := range accounts {
		if a == "" {
			a = ZeroAddress
		}
		out[i] = a
	}
	return out, nil
}
