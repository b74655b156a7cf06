package pool

import (
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/wpool/internal/utils"
	"github.com/elys-network/wpool/internal/weightedmath"
)

// chargeProtocolFees deducts the protocol share of the swap fees collected since the last
// join or exit from the view and returns it per token. The whole fee is taken in the token
// with the largest weight.
func (p *Pool) chargeProtocolFees(v *view) ([]sdkmath.Int, error) {
	fees := zeroInts(len(v.balances))
	if v.protocolFee.IsZero() || !p.lastInvariant.IsPositive() || p.weightsChanging(v.now) {
		return fees, nil
	}

	current, err := v.invariant()
	if err != nil {
		return nil, err
	}
	i := maxWeightIndex(v.weights)
	due, err := weightedmath.CalcDueTokenProtocolSwapFeeAmount(v.scaled[i], v.weights[i], p.lastInvariant, current, v.protocolFee)
	if err != nil {
		return nil, err
	}
	fee := utils.DownscaleDown(due, v.factors[i])
	if !fee.IsPositive() {
		return fees, nil
	}

	fees[i] = fee
	v.balances[i] = v.balances[i].Sub(fee)
	scaled, err := utils.Upscale(v.balances[i], v.factors[i])
	if err != nil {
		return nil, err
	}
	v.scaled[i] = scaled
	return fees, nil
}

// recordInvariant stores the reference invariant for the next protocol fee computation.
// While the weights move the invariant is not comparable over time, so no reference is kept.
func (p *Pool) recordInvariant(now time.Time, weights, scaled []sdkmath.LegacyDec) {
	if p.weightsChanging(now) {
		p.lastInvariant = sdkmath.LegacyZeroDec()
		return
	}
	inv, err := weightedmath.CalcInvariant(weights, scaled)
	if err != nil {
		p.log.Warn().Err(err).Msg("Failed to compute post-operation invariant; protocol fees reset")
		p.lastInvariant = sdkmath.LegacyZeroDec()
		return
	}
	p.lastInvariant = inv
}

func maxWeightIndex(weights []sdkmath.LegacyDec) int {
	best := 0
	for i := 1; i < len(weights); i++ {
		if weights[i].GT(weights[best]) {
			best = i
		}
	}
	return best
}
