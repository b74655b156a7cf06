package pool

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/wpool/internal/types"
	"github.com/elys-network/wpool/internal/utils"
	"github.com/elys-network/wpool/internal/weightedmath"
)

// checkBurn keeps the locked minimum BPT in circulation.
func (p *Pool) checkBurn(bptIn sdkmath.Int) error {
	if bptIn.GT(p.totalSupply.Sub(p.bounds.MinimumBpt)) {
		return fmt.Errorf("%w: burning %s of %s would release the locked minimum", ErrInsufficientLiquidity, bptIn, p.totalSupply)
	}
	return nil
}

// ExitGivenOut withdraws exact amounts of any subset of tokens for the BPT they cost.
func (p *Pool) ExitGivenOut(req types.ExitGivenOutRequest, settle types.SettleFunc) (types.ExitResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, err := p.priceExitGivenOut(req, &collector{settle: settle})
	if err != nil {
		return types.ExitResult{}, err
	}
	receipt, err := p.apply(c, settle)
	if err != nil {
		return types.ExitResult{}, err
	}
	return c.exitResult(receipt), nil
}

func (p *Pool) QueryExitGivenOut(req types.ExitGivenOutRequest) (types.ExitQueryResult, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	c, err := p.priceExitGivenOut(req, nil)
	if err != nil {
		return types.ExitQueryResult{}, err
	}
	return types.ExitQueryResult{BptIn: c.bptBurned, AmountsOut: c.amountsOut}, nil
}

func (p *Pool) priceExitGivenOut(req types.ExitGivenOutRequest, aum *collector) (*change, error) {
	v, fees, err := p.gateJoinExit(types.OpExitGivenOut, req.Options, aum)
	if err != nil {
		return nil, err
	}
	amounts, err := req.AmountsOut.Expand(len(p.tokens))
	if err != nil {
		return nil, err
	}
	if err := validateAmounts(amounts); err != nil {
		return nil, err
	}
	if !anyPositive(amounts) {
		return nil, ErrZeroBpt
	}

	scaledOut, err := v.upscale(amounts)
	if err != nil {
		return nil, err
	}
	bpt, err := weightedmath.CalcBptInGivenExactTokensOut(v.scaled, v.weights, scaledOut, v.supply, v.swapFee)
	if err != nil {
		return nil, err
	}
	bptIn := utils.DecToBpt(bpt)
	if bptIn.IsZero() {
		return nil, ErrZeroBpt
	}
	if req.MaximumBptIn != nil && bptIn.GT(*req.MaximumBptIn) {
		return nil, fmt.Errorf("%w: %s > %s", ErrBptInMaxAmount, bptIn, req.MaximumBptIn)
	}
	if err := p.checkBurn(bptIn); err != nil {
		return nil, err
	}

	c := p.newChange(types.OpExitGivenOut, v, req.Options)
	c.protocolFees = fees
	c.amountsOut = amounts
	c.bptBurned = bptIn
	if err := c.finalize(v); err != nil {
		return nil, err
	}
	if err := p.checkCircuitBreakers(c, positiveIndices(amounts)); err != nil {
		return nil, err
	}
	return c, nil
}

// SingleExitGivenIn burns an exact amount of BPT for a single token.
func (p *Pool) SingleExitGivenIn(req types.SingleExitGivenInRequest, settle types.SettleFunc) (types.ExitResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, err := p.priceSingleExitGivenIn(req, &collector{settle: settle})
	if err != nil {
		return types.ExitResult{}, err
	}
	receipt, err := p.apply(c, settle)
	if err != nil {
		return types.ExitResult{}, err
	}
	return c.exitResult(receipt), nil
}

func (p *Pool) QuerySingleExitGivenIn(req types.SingleExitGivenInRequest) (types.ExitQueryResult, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	c, err := p.priceSingleExitGivenIn(req, nil)
	if err != nil {
		return types.ExitQueryResult{}, err
	}
	return types.ExitQueryResult{BptIn: c.bptBurned, AmountsOut: c.amountsOut}, nil
}

func (p *Pool) priceSingleExitGivenIn(req types.SingleExitGivenInRequest, aum *collector) (*change, error) {
	v, fees, err := p.gateJoinExit(types.OpSingleExitGivenIn, req.Options, aum)
	if err != nil {
		return nil, err
	}
	i, err := req.Token.Resolve(p.tokens)
	if err != nil {
		return nil, err
	}
	if req.BptIn.IsNil() || !req.BptIn.IsPositive() {
		return nil, ErrZeroBpt
	}
	if err := p.checkBurn(req.BptIn); err != nil {
		return nil, err
	}

	amountOut, err := weightedmath.CalcTokenOutGivenExactBptIn(v.scaled[i], v.weights[i], utils.BptToDec(req.BptIn), v.supply, v.swapFee)
	if err != nil {
		return nil, err
	}

	c := p.newChange(types.OpSingleExitGivenIn, v, req.Options)
	c.protocolFees = fees
	c.amountsOut[i] = utils.DownscaleDown(amountOut, v.factors[i])
	c.bptBurned = req.BptIn
	if err := c.finalize(v); err != nil {
		return nil, err
	}
	if err := p.checkCircuitBreakers(c, []int{i}); err != nil {
		return nil, err
	}
	return c, nil
}

// MultiExitGivenIn burns an exact amount of BPT for every token in proportion. It is the
// only exit available while the pool is paused.
func (p *Pool) MultiExitGivenIn(req types.MultiExitGivenInRequest, settle types.SettleFunc) (types.ExitResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, err := p.priceMultiExitGivenIn(req, &collector{settle: settle})
	if err != nil {
		return types.ExitResult{}, err
	}
	receipt, err := p.apply(c, settle)
	if err != nil {
		return types.ExitResult{}, err
	}
	return c.exitResult(receipt), nil
}

func (p *Pool) QueryMultiExitGivenIn(req types.MultiExitGivenInRequest) (types.ExitQueryResult, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	c, err := p.priceMultiExitGivenIn(req, nil)
	if err != nil {
		return types.ExitQueryResult{}, err
	}
	return types.ExitQueryResult{BptIn: c.bptBurned, AmountsOut: c.amountsOut}, nil
}

func (p *Pool) priceMultiExitGivenIn(req types.MultiExitGivenInRequest, aum *collector) (*change, error) {
	v, fees, err := p.gateJoinExit(types.OpMultiExitGivenIn, req.Options, aum)
	if err != nil {
		return nil, err
	}
	if req.BptIn.IsNil() || !req.BptIn.IsPositive() {
		return nil, ErrZeroBpt
	}
	if err := p.checkBurn(req.BptIn); err != nil {
		return nil, err
	}

	amounts, err := weightedmath.CalcTokensOutGivenExactBptIn(v.scaled, utils.BptToDec(req.BptIn), v.supply)
	if err != nil {
		return nil, err
	}

	c := p.newChange(types.OpMultiExitGivenIn, v, req.Options)
	c.protocolFees = fees
	for i, a := range amounts {
		c.amountsOut[i] = utils.DownscaleDown(a, v.factors[i])
	}
	c.bptBurned = req.BptIn
	if err := c.finalize(v); err != nil {
		return nil, err
	}
	return c, nil
}
