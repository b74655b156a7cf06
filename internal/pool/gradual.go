package pool

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/wpool/internal/types"
)

// progress returns how far now is between start and end, clamped to [0, 1].
func progress(start, end, now time.Time) sdkmath.LegacyDec {
	if !now.After(start) {
		if !end.After(start) {
			return sdkmath.LegacyOneDec()
		}
		return sdkmath.LegacyZeroDec()
	}
	if !now.Before(end) {
		return sdkmath.LegacyOneDec()
	}
	elapsed := sdkmath.LegacyNewDec(int64(now.Sub(start)))
	total := sdkmath.LegacyNewDec(int64(end.Sub(start)))
	return elapsed.QuoTruncate(total)
}

func interpolate(start, end, pct sdkmath.LegacyDec) sdkmath.LegacyDec {
	if pct.IsZero() {
		return start
	}
	if pct.Equal(sdkmath.LegacyOneDec()) {
		return end
	}
	if end.GTE(start) {
		return start.Add(end.Sub(start).MulTruncate(pct))
	}
	return start.Sub(start.Sub(end).MulTruncate(pct))
}

func (p *Pool) weightsAt(now time.Time) []sdkmath.LegacyDec {
	u := p.weightUpdate
	pct := progress(u.StartTime, u.EndTime, now)
	out := make([]sdkmath.LegacyDec, len(u.EndWeights))
	for i := range out {
		out[i] = interpolate(u.StartWeights[i], u.EndWeights[i], pct)
	}
	return out
}

func (p *Pool) swapFeeAt(now time.Time) sdkmath.LegacyDec {
	u := p.swapFeeUpdate
	return interpolate(u.StartSwapFeePercentage, u.EndSwapFeePercentage, progress(u.StartTime, u.EndTime, now))
}

// weightsChanging reports whether a weight update is in progress or scheduled.
func (p *Pool) weightsChanging(now time.Time) bool {
	return now.Before(p.weightUpdate.EndTime)
}

// NormalizedWeights returns the weights at the current time.
func (p *Pool) NormalizedWeights() []sdkmath.LegacyDec {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.weightsAt(p.clock.Now())
}

// SwapFeePercentage returns the swap fee at the current time.
func (p *Pool) SwapFeePercentage() sdkmath.LegacyDec {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.swapFeeAt(p.clock.Now())
}

func (p *Pool) GradualWeightUpdateParams() types.GradualWeightUpdateParams {
	p.mu.RLock()
	defer p.mu.RUnlock()
	u := p.weightUpdate
	u.StartWeights = copyDecs(u.StartWeights)
	u.EndWeights = copyDecs(u.EndWeights)
	return u
}

func (p *Pool) GradualSwapFeeUpdateParams() types.GradualSwapFeeUpdateParams {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.swapFeeUpdate
}

// clampSchedule moves a start time in the past to now and rejects an end before the start.
func clampSchedule(now, start, end time.Time) (time.Time, time.Time, error) {
	if start.Before(now) {
		start = now
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start %s, end %s", ErrInvalidSchedule, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return start, end, nil
}

// UpdateWeightsGradually schedules a linear move from the current weights to endWeights.
func (p *Pool) UpdateWeightsGradually(sender string, startTime, endTime time.Time, endWeights []sdkmath.LegacyDec) (types.VoidResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.authorizeOwner(sender, p.rights.Managed.CanChangeWeights); err != nil {
		return types.VoidResult{}, err
	}
	if len(endWeights) != len(p.tokens) {
		return types.VoidResult{}, fmt.Errorf("%w: %d weights for %d tokens", types.ErrWeightCount, len(endWeights), len(p.tokens))
	}
	if err := types.ValidateWeights(endWeights, p.bounds.MinWeight); err != nil {
		return types.VoidResult{}, err
	}

	now := p.clock.Now()
	start, end, err := clampSchedule(now, startTime, endTime)
	if err != nil {
		return types.VoidResult{}, err
	}

	p.weightUpdate = types.GradualWeightUpdateParams{
		StartTime:    start,
		EndTime:      end,
		StartWeights: p.weightsAt(now),
		EndWeights:   copyDecs(endWeights),
	}
	p.lastInvariant = sdkmath.LegacyZeroDec()

	p.log.Info().
		Time("start", start).
		Time("end", end).
		Strs("end_weights", decStrings(endWeights)).
		Msg("Gradual weight update scheduled")
	return types.VoidResult{Receipt: p.receipt(types.OpUpdateWeights, sender, "", now)}, nil
}

// UpdateSwapFeeGradually schedules a linear move of the swap fee.
func (p *Pool) UpdateSwapFeeGradually(sender string, startTime, endTime time.Time, startFee, endFee sdkmath.LegacyDec) (types.VoidResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.authorizeOwner(sender, p.rights.Base.CanChangeSwapFee); err != nil {
		return types.VoidResult{}, err
	}
	for _, fee := range []sdkmath.LegacyDec{startFee, endFee} {
		if err := types.ValidateSwapFee(fee, p.cfg.PoolType, p.bounds); err != nil {
			return types.VoidResult{}, err
		}
	}

	now := p.clock.Now()
	start, end, err := clampSchedule(now, startTime, endTime)
	if err != nil {
		return types.VoidResult{}, err
	}
	p.swapFeeUpdate = types.GradualSwapFeeUpdateParams{
		StartTime:              start,
		EndTime:                end,
		StartSwapFeePercentage: startFee,
		EndSwapFeePercentage:   endFee,
	}

	p.log.Info().
		Time("start", start).
		Time("end", end).
		Str("start_fee", startFee.String()).
		Str("end_fee", endFee.String()).
		Msg("Gradual swap fee update scheduled")
	return types.VoidResult{Receipt: p.receipt(types.OpUpdateSwapFee, sender, "", now)}, nil
}

func decStrings(values []sdkmath.LegacyDec) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.String()
	}
	return out
}
