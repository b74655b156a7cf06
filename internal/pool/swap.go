package pool

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/wpool/internal/fixedpoint"
	"github.com/elys-network/wpool/internal/types"
	"github.com/elys-network/wpool/internal/utils"
	"github.com/elys-network/wpool/internal/weightedmath"
)

// Swap trades one pool token for another. For GIVEN_IN the swap fee is taken from the amount
// in; for GIVEN_OUT the amount in is grossed up by 1 / (1 - fee).
func (p *Pool) Swap(req types.SwapRequest, settle types.SettleFunc) (types.SwapResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, amount, err := p.priceSwap(req)
	if err != nil {
		return types.SwapResult{}, err
	}
	receipt, err := p.apply(c, settle)
	if err != nil {
		return types.SwapResult{}, err
	}
	return types.SwapResult{Amount: amount, Receipt: receipt}, nil
}

func (p *Pool) QuerySwap(req types.SwapRequest) (types.SwapQueryResult, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	_, amount, err := p.priceSwap(req)
	if err != nil {
		return types.SwapQueryResult{}, err
	}
	return types.SwapQueryResult{Amount: amount}, nil
}

func (p *Pool) priceSwap(req types.SwapRequest) (*change, sdkmath.Int, error) {
	now := p.clock.Now()
	if !p.initialized {
		return nil, sdkmath.Int{}, ErrUninitialized
	}
	if p.isPaused(now) {
		return nil, sdkmath.Int{}, ErrPaused
	}
	if !p.swapEnabled {
		return nil, sdkmath.Int{}, ErrSwapsDisabled
	}
	in, err := req.In.Resolve(p.tokens)
	if err != nil {
		return nil, sdkmath.Int{}, err
	}
	out, err := req.Out.Resolve(p.tokens)
	if err != nil {
		return nil, sdkmath.Int{}, err
	}
	if in == out {
		return nil, sdkmath.Int{}, ErrSameToken
	}
	if req.Amount.IsNil() || !req.Amount.IsPositive() {
		return nil, sdkmath.Int{}, ErrInvalidAmount
	}

	v, err := p.view(now, req.Options)
	if err != nil {
		return nil, sdkmath.Int{}, err
	}
	op := types.OpSwapGivenIn
	var amount sdkmath.Int
	switch req.ResolvedKind() {
	case types.GivenIn:
		amount, err = swapGivenIn(v, in, out, req.Amount)
	case types.GivenOut:
		op = types.OpSwapGivenOut
		amount, err = swapGivenOut(v, in, out, req.Amount)
	default:
		return nil, sdkmath.Int{}, fmt.Errorf("unknown swap kind %q", req.Kind)
	}
	if err != nil {
		return nil, sdkmath.Int{}, err
	}

	c := p.newChange(op, v, req.Options)
	if op == types.OpSwapGivenIn {
		if req.Limit != nil && amount.LT(*req.Limit) {
			return nil, sdkmath.Int{}, fmt.Errorf("%w: amount out %s below limit %s", ErrSwapLimit, amount, req.Limit)
		}
		c.amountsIn[in] = req.Amount
		c.amountsOut[out] = amount
	} else {
		if req.Limit != nil && amount.GT(*req.Limit) {
			return nil, sdkmath.Int{}, fmt.Errorf("%w: amount in %s above limit %s", ErrSwapLimit, amount, req.Limit)
		}
		c.amountsIn[in] = amount
		c.amountsOut[out] = req.Amount
	}
	if err := c.finalize(v); err != nil {
		return nil, sdkmath.Int{}, err
	}
	if err := p.checkCircuitBreakers(c, []int{in, out}); err != nil {
		return nil, sdkmath.Int{}, err
	}
	return c, amount, nil
}

func swapGivenIn(v *view, in, out int, amountIn sdkmath.Int) (sdkmath.Int, error) {
	scaledIn, err := utils.Upscale(amountIn, v.factors[in])
	if err != nil {
		return sdkmath.Int{}, err
	}
	fee := fixedpoint.MulUp(scaledIn, v.swapFee)
	scaledOut, err := weightedmath.CalcOutGivenIn(v.scaled[in], v.weights[in], v.scaled[out], v.weights[out], scaledIn.Sub(fee))
	if err != nil {
		return sdkmath.Int{}, err
	}
	amountOut := utils.DownscaleDown(scaledOut, v.factors[out])
	if amountOut.IsZero() {
		return sdkmath.Int{}, fmt.Errorf("%w: swap yields nothing", ErrInvalidAmount)
	}
	return amountOut, nil
}

func swapGivenOut(v *view, in, out int, amountOut sdkmath.Int) (sdkmath.Int, error) {
	scaledOut, err := utils.Upscale(amountOut, v.factors[out])
	if err != nil {
		return sdkmath.Int{}, err
	}
	scaledIn, err := weightedmath.CalcInGivenOut(v.scaled[in], v.weights[in], v.scaled[out], v.weights[out], scaledOut)
	if err != nil {
		return sdkmath.Int{}, err
	}
	gross, err := fixedpoint.DivUp(scaledIn, fixedpoint.Complement(v.swapFee))
	if err != nil {
		return sdkmath.Int{}, err
	}
	return utils.DownscaleUp(gross, v.factors[in]), nil
}

// SpotPrice returns the price of out in units of in at the current balances, without fees.
// Both sides are rate-adjusted scaled values.
func (p *Pool) SpotPrice(in, out types.TokenRef) (sdkmath.LegacyDec, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.initialized {
		return sdkmath.LegacyDec{}, ErrUninitialized
	}
	i, err := in.Resolve(p.tokens)
	if err != nil {
		return sdkmath.LegacyDec{}, err
	}
	o, err := out.Resolve(p.tokens)
	if err != nil {
		return sdkmath.LegacyDec{}, err
	}
	v, err := p.view(p.clock.Now(), types.Options{})
	if err != nil {
		return sdkmath.LegacyDec{}, err
	}
	return weightedmath.CalcSpotPrice(v.scaled[i], v.weights[i], v.scaled[o], v.weights[o])
}
