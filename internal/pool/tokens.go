package pool

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/wpool/internal/fixedpoint"
	"github.com/elys-network/wpool/internal/types"
)

// gateTokenChange checks the conditions shared by AddToken and RemoveToken.
func (p *Pool) gateTokenChange(sender string) error {
	if err := p.authorizeOwner(sender, p.rights.Managed.CanChangeTokens); err != nil {
		return err
	}
	now := p.clock.Now()
	if !p.initialized {
		return ErrUninitialized
	}
	if p.isPaused(now) {
		return ErrPaused
	}
	if p.weightsChanging(now) {
		return ErrWeightChangeActive
	}
	return nil
}

// setWeights replaces the weights with a constant schedule.
func (p *Pool) setWeights(now time.Time, weights []sdkmath.LegacyDec) {
	p.weightUpdate = types.GradualWeightUpdateParams{
		StartTime:    now,
		EndTime:      now,
		StartWeights: copyDecs(weights),
		EndWeights:   copyDecs(weights),
	}
}

// AddToken registers a new token with the given weight. The existing weights shrink by
// 1 - weight so the sum stays one; the new token takes whatever remains.
func (p *Pool) AddToken(req types.AddTokenRequest, settle types.SettleFunc) (types.JoinResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.gateTokenChange(req.From); err != nil {
		return types.JoinResult{}, err
	}
	n := len(p.tokens)
	if limit := p.bounds.MaxTokensFor(p.cfg.PoolType); n+1 > limit {
		return types.JoinResult{}, fmt.Errorf("%w: pool already holds %d of %d tokens", types.ErrTokenCount, n, limit)
	}
	tokens := append(append([]types.Token(nil), p.tokens...), req.Token)
	if err := types.ValidateTokens(tokens); err != nil {
		return types.JoinResult{}, err
	}
	one := sdkmath.LegacyOneDec()
	if req.Weight.IsNil() || req.Weight.LT(p.bounds.MinWeight) || req.Weight.GTE(one) {
		return types.JoinResult{}, fmt.Errorf("%w: new token weight %s", types.ErrMinWeight, req.Weight)
	}
	if req.Amount.IsNil() || !req.Amount.IsPositive() {
		return types.JoinResult{}, fmt.Errorf("%w: deposit of the new token", ErrInvalidAmount)
	}
	mint := sdkmath.ZeroInt()
	if !req.MintAmount.IsNil() {
		if req.MintAmount.IsNegative() {
			return types.JoinResult{}, fmt.Errorf("%w: mint amount", ErrInvalidAmount)
		}
		mint = req.MintAmount
	}

	now := p.clock.Now()
	current := p.weightsAt(now)
	scale := fixedpoint.Complement(req.Weight)
	weights := make([]sdkmath.LegacyDec, n+1)
	sum := sdkmath.LegacyZeroDec()
	for i, w := range current {
		weights[i] = fixedpoint.MulDown(w, scale)
		if weights[i].LT(p.bounds.MinWeight) {
			return types.JoinResult{}, fmt.Errorf("%w: %s would drop to %s", types.ErrMinWeight, p.tokens[i].Address, weights[i])
		}
		sum = sum.Add(weights[i])
	}
	weights[n] = one.Sub(sum)

	amountsIn := append(zeroInts(n), req.Amount)
	s := types.Settlement{
		PoolID:       p.id,
		Operation:    types.OpAddToken,
		Sender:       req.From,
		Recipient:    req.ResolvedRecipient(),
		Tokens:       append(p.tokenAddresses(), req.Token.Address),
		AmountsIn:    amountsIn,
		AmountsOut:   zeroInts(n + 1),
		ProtocolFees: zeroInts(n + 1),
		BptMinted:    mint,
		BptBurned:    sdkmath.ZeroInt(),
		BptLocked:    sdkmath.ZeroInt(),
	}
	if settle != nil {
		if err := settle(s); err != nil {
			return types.JoinResult{}, fmt.Errorf("settlement of %s failed: %w", types.OpAddToken, err)
		}
	}

	rateProvider := req.RateProvider
	if rateProvider == "" {
		rateProvider = types.ZeroAddress
	}
	assetManager := req.AssetManager
	if assetManager == "" {
		assetManager = types.ZeroAddress
	}
	p.tokens = tokens
	p.rateProviders = append(p.rateProviders, rateProvider)
	p.assetManagers = append(p.assetManagers, assetManager)
	p.rates = append(p.rates, sdkmath.LegacyOneDec())
	p.commitBalances(append(copyInts(p.balances), req.Amount))
	p.totalSupply = p.totalSupply.Add(mint)
	p.setWeights(now, weights)
	p.lastInvariant = sdkmath.LegacyZeroDec()

	p.log.Info().
		Str("token", req.Token.Address).
		Str("weight", weights[n].String()).
		Str("bpt_minted", mint.String()).
		Msg("Token added")
	return types.JoinResult{
		AmountsIn:             amountsIn,
		DueProtocolFeeAmounts: zeroInts(n + 1),
		BptOut:                mint,
		Receipt:               p.receipt(types.OpAddToken, req.From, req.ResolvedRecipient(), now),
	}, nil
}

// RemoveToken pays out the whole balance of a token and drops it from the pool. The
// remaining weights are scaled back up to sum to one.
func (p *Pool) RemoveToken(req types.RemoveTokenRequest, settle types.SettleFunc) (types.ExitResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.gateTokenChange(req.From); err != nil {
		return types.ExitResult{}, err
	}
	n := len(p.tokens)
	if n-1 < p.bounds.MinTokens {
		return types.ExitResult{}, fmt.Errorf("%w: pool must keep at least %d tokens", types.ErrTokenCount, p.bounds.MinTokens)
	}
	idx, err := req.Token.Resolve(p.tokens)
	if err != nil {
		return types.ExitResult{}, err
	}
	burn := sdkmath.ZeroInt()
	if !req.BurnAmount.IsNil() {
		if req.BurnAmount.IsNegative() {
			return types.ExitResult{}, fmt.Errorf("%w: burn amount", ErrInvalidAmount)
		}
		burn = req.BurnAmount
	}
	if err := p.checkBurn(burn); err != nil {
		return types.ExitResult{}, err
	}

	now := p.clock.Now()
	current := p.weightsAt(now)
	remaining := fixedpoint.Complement(current[idx])
	weights := make([]sdkmath.LegacyDec, 0, n-1)
	sum := sdkmath.LegacyZeroDec()
	for i, w := range current {
		if i == idx {
			continue
		}
		scaled := w.QuoTruncate(remaining)
		weights = append(weights, scaled)
		sum = sum.Add(scaled)
	}
	last := len(weights) - 1
	weights[last] = weights[last].Add(sdkmath.LegacyOneDec().Sub(sum))

	amountsOut := zeroInts(n)
	amountsOut[idx] = p.balances[idx]
	s := types.Settlement{
		PoolID:       p.id,
		Operation:    types.OpRemoveToken,
		Sender:       req.From,
		Recipient:    req.ResolvedRecipient(),
		Tokens:       p.tokenAddresses(),
		AmountsIn:    zeroInts(n),
		AmountsOut:   amountsOut,
		ProtocolFees: zeroInts(n),
		BptMinted:    sdkmath.ZeroInt(),
		BptBurned:    burn,
		BptLocked:    sdkmath.ZeroInt(),
	}
	if settle != nil {
		if err := settle(s); err != nil {
			return types.ExitResult{}, fmt.Errorf("settlement of %s failed: %w", types.OpRemoveToken, err)
		}
	}

	removed := p.tokens[idx]
	delete(p.circuitBreakers, breakerKey(removed.Address))
	p.tokens = append(p.tokens[:idx:idx], p.tokens[idx+1:]...)
	p.rateProviders = append(p.rateProviders[:idx:idx], p.rateProviders[idx+1:]...)
	p.assetManagers = append(p.assetManagers[:idx:idx], p.assetManagers[idx+1:]...)
	p.rates = append(p.rates[:idx:idx], p.rates[idx+1:]...)
	balances := copyInts(p.balances)
	p.commitBalances(append(balances[:idx:idx], balances[idx+1:]...))
	p.totalSupply = p.totalSupply.Sub(burn)
	p.setWeights(now, weights)
	p.lastInvariant = sdkmath.LegacyZeroDec()

	p.log.Info().
		Str("token", removed.Address).
		Str("amount_out", amountsOut[idx].String()).
		Str("bpt_burned", burn.String()).
		Msg("Token removed")
	return types.ExitResult{
		AmountsOut:            amountsOut,
		DueProtocolFeeAmounts: zeroInts(n),
		BptIn:                 burn,
		Receipt:               p.receipt(types.OpRemoveToken, req.From, req.ResolvedRecipient(), now),
	}, nil
}

// UpdateTokenRate sets the rate of a token. Only the token's rate provider may call it.
func (p *Pool) UpdateTokenRate(sender string, ref types.TokenRef, rate sdkmath.LegacyDec) (types.VoidResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	i, err := ref.Resolve(p.tokens)
	if err != nil {
		return types.VoidResult{}, err
	}
	provider := p.rateProviders[i]
	if types.IsZeroAddress(provider) || !sameAccount(sender, provider) {
		return types.VoidResult{}, ErrSenderNotRateProvider
	}
	if rate.IsNil() || !rate.IsPositive() {
		return types.VoidResult{}, ErrInvalidRate
	}
	p.rates[i] = rate
	// Scaled balances moved, so the invariant reference no longer applies.
	p.lastInvariant = sdkmath.LegacyZeroDec()

	p.log.Debug().Str("token", p.tokens[i].Address).Str("rate", rate.String()).Msg("Token rate updated")
	return types.VoidResult{Receipt: p.receipt(types.OpUpdateTokenRate, sender, "", p.clock.Now())}, nil
}

// TokenRates returns the rate of every token.
func (p *Pool) TokenRates() []sdkmath.LegacyDec {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return copyDecs(p.rates)
}
