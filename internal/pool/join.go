package pool

import (
	"fmt"

	"github.com/elys-network/wpool/internal/types"
	"github.com/elys-network/wpool/internal/utils"
	"github.com/elys-network/wpool/internal/weightedmath"
)

// Initialize seeds the pool with its first balances. The BPT minted is n times the
// invariant; the minimum BPT of it is locked to the zero address.
func (p *Pool) Initialize(req types.InitRequest, settle types.SettleFunc) (types.JoinResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, err := p.priceInit(req)
	if err != nil {
		return types.JoinResult{}, err
	}
	receipt, err := p.apply(c, settle)
	if err != nil {
		return types.JoinResult{}, err
	}
	p.initialized = true
	p.lastAumCollection = c.now

	p.log.Info().
		Str("bpt_minted", c.bptMinted.String()).
		Str("bpt_locked", c.bptLocked.String()).
		Msg("Pool initialized")
	return c.joinResult(receipt), nil
}

// QueryInitialize returns the BPT an initialization would mint.
func (p *Pool) QueryInitialize(req types.InitRequest) (types.JoinQueryResult, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	c, err := p.priceInit(req)
	if err != nil {
		return types.JoinQueryResult{}, err
	}
	return types.JoinQueryResult{BptOut: c.bptMinted, AmountsIn: c.amountsIn}, nil
}

func (p *Pool) priceInit(req types.InitRequest) (*change, error) {
	now := p.clock.Now()
	if p.initialized {
		return nil, ErrAlreadyInitialized
	}
	if p.isPaused(now) {
		return nil, ErrPaused
	}
	if !p.joinExitEnabled {
		return nil, ErrJoinExitDisabled
	}
	if p.mustAllowlist && !p.isAllowlisted(req.From) {
		return nil, fmt.Errorf("%w: %s", ErrAddressNotAllowlisted, req.From)
	}

	n := len(p.tokens)
	amounts, err := req.InitialBalances.Expand(n)
	if err != nil {
		return nil, err
	}
	for i, a := range amounts {
		if a.IsNil() || !a.IsPositive() {
			return nil, fmt.Errorf("%w: initial balance of %s", ErrInvalidAmount, p.tokens[i].Address)
		}
	}

	// The stored balances are zero before initialization, so the view only carries the
	// scaling factors and the weights.
	v, err := p.view(now, types.Options{})
	if err != nil {
		return nil, err
	}
	scaled, err := v.upscale(amounts)
	if err != nil {
		return nil, err
	}
	invariant, err := weightedmath.CalcInvariant(v.weights, scaled)
	if err != nil {
		return nil, err
	}
	bpt := utils.DecToBpt(invariant.MulInt64(int64(n)))
	if bpt.LTE(p.bounds.MinimumBpt) {
		return nil, fmt.Errorf("%w: %s <= %s", ErrMinimumBpt, bpt, p.bounds.MinimumBpt)
	}

	c := p.newChange(types.OpInit, v, req.Options)
	c.amountsIn = amounts
	c.bptLocked = p.bounds.MinimumBpt
	c.bptMinted = bpt.Sub(p.bounds.MinimumBpt)
	c.balances = copyInts(amounts)
	c.scaled = scaled
	c.supply = bpt
	return c, nil
}

// JoinGivenIn deposits exact amounts of any subset of tokens for as much BPT as they buy.
func (p *Pool) JoinGivenIn(req types.JoinGivenInRequest, settle types.SettleFunc) (types.JoinResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, err := p.priceJoinGivenIn(req, &collector{settle: settle})
	if err != nil {
		return types.JoinResult{}, err
	}
	receipt, err := p.apply(c, settle)
	if err != nil {
		return types.JoinResult{}, err
	}
	return c.joinResult(receipt), nil
}

func (p *Pool) QueryJoinGivenIn(req types.JoinGivenInRequest) (types.JoinQueryResult, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	c, err := p.priceJoinGivenIn(req, nil)
	if err != nil {
		return types.JoinQueryResult{}, err
	}
	return types.JoinQueryResult{BptOut: c.bptMinted, AmountsIn: c.amountsIn}, nil
}

func (p *Pool) priceJoinGivenIn(req types.JoinGivenInRequest, aum *collector) (*change, error) {
	v, fees, err := p.gateJoinExit(types.OpJoinGivenIn, req.Options, aum)
	if err != nil {
		return nil, err
	}
	amounts, err := req.AmountsIn.Expand(len(p.tokens))
	if err != nil {
		return nil, err
	}
	if err := validateAmounts(amounts); err != nil {
		return nil, err
	}
	if !anyPositive(amounts) {
		return nil, ErrZeroBpt
	}

	scaledIn, err := v.upscale(amounts)
	if err != nil {
		return nil, err
	}
	bpt, err := weightedmath.CalcBptOutGivenExactTokensIn(v.scaled, v.weights, scaledIn, v.supply, v.swapFee)
	if err != nil {
		return nil, err
	}
	bptOut := utils.DecToBpt(bpt)
	if bptOut.IsZero() {
		return nil, ErrZeroBpt
	}
	if req.MinimumBptOut != nil && bptOut.LT(*req.MinimumBptOut) {
		return nil, fmt.Errorf("%w: %s < %s", ErrBptOutMinAmount, bptOut, req.MinimumBptOut)
	}

	c := p.newChange(types.OpJoinGivenIn, v, req.Options)
	c.protocolFees = fees
	c.amountsIn = amounts
	c.bptMinted = bptOut
	if err := c.finalize(v); err != nil {
		return nil, err
	}
	if err := p.checkCircuitBreakers(c, positiveIndices(amounts)); err != nil {
		return nil, err
	}
	return c, nil
}

// JoinGivenOut deposits a single token for an exact amount of BPT.
func (p *Pool) JoinGivenOut(req types.JoinGivenOutRequest, settle types.SettleFunc) (types.JoinResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, err := p.priceJoinGivenOut(req, &collector{settle: settle})
	if err != nil {
		return types.JoinResult{}, err
	}
	receipt, err := p.apply(c, settle)
	if err != nil {
		return types.JoinResult{}, err
	}
	return c.joinResult(receipt), nil
}

func (p *Pool) QueryJoinGivenOut(req types.JoinGivenOutRequest) (types.JoinQueryResult, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	c, err := p.priceJoinGivenOut(req, nil)
	if err != nil {
		return types.JoinQueryResult{}, err
	}
	return types.JoinQueryResult{BptOut: c.bptMinted, AmountsIn: c.amountsIn}, nil
}

func (p *Pool) priceJoinGivenOut(req types.JoinGivenOutRequest, aum *collector) (*change, error) {
	v, fees, err := p.gateJoinExit(types.OpJoinGivenOut, req.Options, aum)
	if err != nil {
		return nil, err
	}
	i, err := req.Token.Resolve(p.tokens)
	if err != nil {
		return nil, err
	}
	if req.BptOut.IsNil() || !req.BptOut.IsPositive() {
		return nil, ErrZeroBpt
	}

	amountIn, err := weightedmath.CalcTokenInGivenExactBptOut(v.scaled[i], v.weights[i], utils.BptToDec(req.BptOut), v.supply, v.swapFee)
	if err != nil {
		return nil, err
	}

	c := p.newChange(types.OpJoinGivenOut, v, req.Options)
	c.protocolFees = fees
	c.amountsIn[i] = utils.DownscaleUp(amountIn, v.factors[i])
	c.bptMinted = req.BptOut
	if err := c.finalize(v); err != nil {
		return nil, err
	}
	if err := p.checkCircuitBreakers(c, []int{i}); err != nil {
		return nil, err
	}
	return c, nil
}

// JoinAllGivenOut deposits every token in proportion for an exact amount of BPT.
func (p *Pool) JoinAllGivenOut(req types.JoinAllGivenOutRequest, settle types.SettleFunc) (types.JoinResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, err := p.priceJoinAllGivenOut(req, &collector{settle: settle})
	if err != nil {
		return types.JoinResult{}, err
	}
	receipt, err := p.apply(c, settle)
	if err != nil {
		return types.JoinResult{}, err
	}
	return c.joinResult(receipt), nil
}

func (p *Pool) QueryJoinAllGivenOut(req types.JoinAllGivenOutRequest) (types.JoinQueryResult, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	c, err := p.priceJoinAllGivenOut(req, nil)
	if err != nil {
		return types.JoinQueryResult{}, err
	}
	return types.JoinQueryResult{BptOut: c.bptMinted, AmountsIn: c.amountsIn}, nil
}

func (p *Pool) priceJoinAllGivenOut(req types.JoinAllGivenOutRequest, aum *collector) (*change, error) {
	v, fees, err := p.gateJoinExit(types.OpJoinAllGivenOut, req.Options, aum)
	if err != nil {
		return nil, err
	}
	if req.BptOut.IsNil() || !req.BptOut.IsPositive() {
		return nil, ErrZeroBpt
	}

	amounts, err := weightedmath.CalcAllTokensInGivenExactBptOut(v.scaled, utils.BptToDec(req.BptOut), v.supply)
	if err != nil {
		return nil, err
	}

	c := p.newChange(types.OpJoinAllGivenOut, v, req.Options)
	c.protocolFees = fees
	for i, a := range amounts {
		c.amountsIn[i] = utils.DownscaleUp(a, v.factors[i])
	}
	c.bptMinted = req.BptOut
	if err := c.finalize(v); err != nil {
		return nil, err
	}
	return c, nil
}
