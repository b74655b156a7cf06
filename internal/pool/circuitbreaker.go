package pool

import (
	"fmt"
	"strings"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/wpool/internal/fixedpoint"
	"github.com/elys-network/wpool/internal/types"
	"github.com/elys-network/wpool/internal/weightedmath"
)

// circuitBreaker bounds the BPT price of one token relative to a reference taken when the
// breaker was set. Bounds are percentages of the reference price.
type circuitBreaker struct {
	bptPrice        sdkmath.LegacyDec
	referenceWeight sdkmath.LegacyDec
	lowerBound      sdkmath.LegacyDec
	upperBound      sdkmath.LegacyDec
}

// priceBounds returns the absolute BPT price band at the given weight. The reference price
// moves with the weight; the percentage bounds are raised to 1 - weight.
func (b circuitBreaker) priceBounds(weight sdkmath.LegacyDec) (lower, upper sdkmath.LegacyDec, err error) {
	adjusted := b.bptPrice.MulTruncate(weight).QuoTruncate(b.referenceWeight)
	exp := fixedpoint.Complement(weight)

	lowerFactor, err := fixedpoint.PowDown(b.lowerBound, exp)
	if err != nil {
		return sdkmath.LegacyDec{}, sdkmath.LegacyDec{}, fmt.Errorf("lower bound: %w", err)
	}
	upperFactor, err := fixedpoint.PowUp(b.upperBound, exp)
	if err != nil {
		return sdkmath.LegacyDec{}, sdkmath.LegacyDec{}, fmt.Errorf("upper bound: %w", err)
	}
	return fixedpoint.MulDown(adjusted, lowerFactor), fixedpoint.MulUp(adjusted, upperFactor), nil
}

func (b circuitBreaker) state(weight sdkmath.LegacyDec) (types.CircuitBreakerState, error) {
	lower, upper, err := b.priceBounds(weight)
	if err != nil {
		return types.CircuitBreakerState{}, err
	}
	return types.CircuitBreakerState{
		BptPrice:           b.bptPrice,
		ReferenceWeight:    b.referenceWeight,
		LowerBound:         b.lowerBound,
		UpperBound:         b.upperBound,
		LowerBptPriceBound: lower,
		UpperBptPriceBound: upper,
	}, nil
}

func breakerKey(address string) string {
	return strings.ToLower(address)
}

// checkCircuitBreakers fails when the post-operation BPT price of any listed token leaves
// its band.
func (p *Pool) checkCircuitBreakers(c *change, indices []int) error {
	if len(p.circuitBreakers) == 0 {
		return nil
	}
	supply := c.postSupply()
	for _, i := range indices {
		b, ok := p.circuitBreakers[breakerKey(p.tokens[i].Address)]
		if !ok {
			continue
		}
		price, err := weightedmath.CalcBptPrice(c.scaled[i], c.weights[i], supply)
		if err != nil {
			return err
		}
		lower, upper, err := b.priceBounds(c.weights[i])
		if err != nil {
			return err
		}
		if price.LT(lower) || price.GT(upper) {
			p.log.Warn().
				Str("token", p.tokens[i].Address).
				Str("bpt_price", price.String()).
				Str("lower", lower.String()).
				Str("upper", upper.String()).
				Msg("Circuit breaker tripped")
			return fmt.Errorf("%w: token %s bpt price %s outside [%s, %s]", ErrCircuitBreakerTripped, p.tokens[i].Address, price, lower, upper)
		}
	}
	return nil
}

func (p *Pool) validateCircuitBreaker(params types.CircuitBreakerParams) (int, error) {
	i, err := params.Token.Resolve(p.tokens)
	if err != nil {
		return 0, err
	}
	one := sdkmath.LegacyOneDec()
	switch {
	case params.BptPrice.IsNil() || params.BptPrice.IsNegative():
		return 0, fmt.Errorf("%w: bpt price must not be negative", ErrInvalidCircuitBreaker)
	case params.BptPrice.IsZero():
		return i, nil
	case params.LowerBound.IsNil() || params.LowerBound.IsNegative() || params.LowerBound.GT(one):
		return 0, fmt.Errorf("%w: lower bound %s not in [0, 1]", ErrInvalidCircuitBreaker, params.LowerBound)
	case params.UpperBound.IsNil() || params.UpperBound.LT(one) || params.UpperBound.GT(p.bounds.MaxCircuitBreakerUpperBound):
		return 0, fmt.Errorf("%w: upper bound %s not in [1, %s]", ErrInvalidCircuitBreaker, params.UpperBound, p.bounds.MaxCircuitBreakerUpperBound)
	}
	return i, nil
}

// SetCircuitBreakers configures the breakers of the given tokens. A zero BPT price removes
// the breaker. Either every entry is applied or none.
func (p *Pool) SetCircuitBreakers(sender string, params []types.CircuitBreakerParams) (types.VoidResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.authorizeOwner(sender, p.rights.Managed.CanSetCircuitBreakers); err != nil {
		return types.VoidResult{}, err
	}
	indices := make([]int, len(params))
	for k, cb := range params {
		i, err := p.validateCircuitBreaker(cb)
		if err != nil {
			return types.VoidResult{}, err
		}
		indices[k] = i
	}

	now := p.clock.Now()
	weights := p.weightsAt(now)
	for k, cb := range params {
		i := indices[k]
		key := breakerKey(p.tokens[i].Address)
		if cb.BptPrice.IsZero() {
			delete(p.circuitBreakers, key)
			continue
		}
		p.circuitBreakers[key] = circuitBreaker{
			bptPrice:        cb.BptPrice,
			referenceWeight: weights[i],
			lowerBound:      cb.LowerBound,
			upperBound:      cb.UpperBound,
		}
		p.log.Info().
			Str("token", p.tokens[i].Address).
			Str("bpt_price", cb.BptPrice.String()).
			Str("lower", cb.LowerBound.String()).
			Str("upper", cb.UpperBound.String()).
			Msg("Circuit breaker set")
	}
	return types.VoidResult{Receipt: p.receipt(types.OpSetCircuitBreakers, sender, "", now)}, nil
}

// GetCircuitBreakerState returns the breaker of a token with its bounds at the current weight.
// A token without a breaker yields a zero state.
func (p *Pool) GetCircuitBreakerState(ref types.TokenRef) (types.CircuitBreakerState, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	i, err := ref.Resolve(p.tokens)
	if err != nil {
		return types.CircuitBreakerState{}, err
	}
	b, ok := p.circuitBreakers[breakerKey(p.tokens[i].Address)]
	if !ok {
		zero := sdkmath.LegacyZeroDec()
		return types.CircuitBreakerState{
			BptPrice:           zero,
			ReferenceWeight:    zero,
			LowerBound:         zero,
			UpperBound:         zero,
			LowerBptPriceBound: zero,
			UpperBptPriceBound: zero,
		}, nil
	}
	return b.state(p.weightsAt(p.clock.Now())[i])
}
