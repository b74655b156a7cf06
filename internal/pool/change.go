package pool

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/wpool/internal/types"
	"github.com/elys-network/wpool/internal/utils"
)

// change is a priced operation that has not been committed yet.
type change struct {
	op        types.OperationType
	now       time.Time
	sender    string
	recipient string

	amountsIn    []sdkmath.Int
	amountsOut   []sdkmath.Int
	protocolFees []sdkmath.Int
	bptMinted    sdkmath.Int
	bptBurned    sdkmath.Int
	bptLocked    sdkmath.Int

	// Post-operation state
	balances []sdkmath.Int
	scaled   []sdkmath.LegacyDec
	weights  []sdkmath.LegacyDec
	supply   sdkmath.Int

	// Priced against caller-supplied balances; cannot be committed.
	overridden bool
}

// collector settles the management fee collected ahead of a committed join or exit.
type collector struct {
	settle types.SettleFunc
}

func (p *Pool) newChange(op types.OperationType, v *view, opts types.Options) *change {
	n := len(p.tokens)
	return &change{
		op:           op,
		now:          v.now,
		sender:       opts.From,
		recipient:    opts.ResolvedRecipient(),
		amountsIn:    zeroInts(n),
		amountsOut:   zeroInts(n),
		protocolFees: zeroInts(n),
		bptMinted:    sdkmath.ZeroInt(),
		bptBurned:    sdkmath.ZeroInt(),
		bptLocked:    sdkmath.ZeroInt(),
		weights:      v.weights,
		supply:       p.totalSupply.Add(v.pendingAum),
		overridden:   v.overridden,
	}
}

// finalize computes the post-operation balances from the view and the change amounts.
func (c *change) finalize(v *view) error {
	balances, scaled, err := v.applyDeltas(c.amountsIn, c.amountsOut)
	if err != nil {
		return err
	}
	c.balances = balances
	c.scaled = scaled
	c.supply = c.supply.Add(c.bptMinted).Add(c.bptLocked).Sub(c.bptBurned)
	return nil
}

func (c *change) postSupply() sdkmath.LegacyDec {
	return utils.BptToDec(c.supply)
}

func (p *Pool) settlement(c *change) types.Settlement {
	return types.Settlement{
		PoolID:       p.id,
		Operation:    c.op,
		Sender:       c.sender,
		Recipient:    c.recipient,
		Tokens:       p.tokenAddresses(),
		AmountsIn:    copyInts(c.amountsIn),
		AmountsOut:   copyInts(c.amountsOut),
		ProtocolFees: copyInts(c.protocolFees),
		BptMinted:    c.bptMinted,
		BptBurned:    c.bptBurned,
		BptLocked:    c.bptLocked,
	}
}

// apply hands the change to the ledger and commits it once the ledger accepted it.
func (p *Pool) apply(c *change, settle types.SettleFunc) (types.Receipt, error) {
	if c.overridden {
		return types.Receipt{}, fmt.Errorf("%w: %s", ErrBalanceOverride, c.op)
	}
	if settle != nil {
		if err := settle(p.settlement(c)); err != nil {
			return types.Receipt{}, fmt.Errorf("settlement of %s failed: %w", c.op, err)
		}
	}

	p.commitBalances(c.balances)
	p.totalSupply = c.supply
	if c.op.IsJoin() || c.op.IsExit() {
		p.recordInvariant(c.now, c.weights, c.scaled)
	}

	p.log.Debug().
		Str("operation", string(c.op)).
		Str("sender", c.sender).
		Str("bpt_minted", c.bptMinted.String()).
		Str("bpt_burned", c.bptBurned.String()).
		Uint64("block", p.lastChangeBlock).
		Msg("Operation committed")
	return p.receipt(c.op, c.sender, c.recipient, c.now), nil
}

func (c *change) joinResult(r types.Receipt) types.JoinResult {
	return types.JoinResult{
		AmountsIn:             c.amountsIn,
		DueProtocolFeeAmounts: c.protocolFees,
		BptOut:                c.bptMinted,
		Receipt:               r,
	}
}

func (c *change) exitResult(r types.Receipt) types.ExitResult {
	return types.ExitResult{
		AmountsOut:            c.amountsOut,
		DueProtocolFeeAmounts: c.protocolFees,
		BptIn:                 c.bptBurned,
		Receipt:               r,
	}
}

// gateJoinExit enforces the pool switches for a join or exit and returns the priced view
// with protocol fees already deducted. A committed operation collects the accrued
// management fee first; a query prices against the supply that collection would leave.
func (p *Pool) gateJoinExit(op types.OperationType, opts types.Options, aum *collector) (*view, []sdkmath.Int, error) {
	now := p.clock.Now()
	if !p.initialized {
		return nil, nil, ErrUninitialized
	}
	if !p.joinExitEnabled {
		return nil, nil, ErrJoinExitDisabled
	}
	paused := p.isPaused(now)
	if paused && op != types.OpMultiExitGivenIn {
		return nil, nil, ErrPaused
	}
	if !p.swapEnabled && !op.IsProportional() {
		return nil, nil, fmt.Errorf("%w: only proportional joins and exits are allowed", ErrSwapsDisabled)
	}
	if op.IsJoin() && p.mustAllowlist && !p.isAllowlisted(opts.From) {
		return nil, nil, fmt.Errorf("%w: %s", ErrAddressNotAllowlisted, opts.From)
	}

	v, err := p.view(now, opts)
	if err != nil {
		return nil, nil, err
	}
	if aum != nil {
		if v.overridden {
			return nil, nil, fmt.Errorf("%w: %s", ErrBalanceOverride, op)
		}
		if _, err := p.collectAum(now, aum.settle); err != nil {
			return nil, nil, fmt.Errorf("aum fees: %w", err)
		}
		v.supply = utils.BptToDec(p.totalSupply)
	} else {
		pending, err := p.pendingAum(now)
		if err != nil {
			return nil, nil, fmt.Errorf("aum fees: %w", err)
		}
		v.pendingAum = pending
		v.supply = utils.BptToDec(p.totalSupply.Add(pending))
	}
	if paused {
		return v, zeroInts(len(p.tokens)), nil
	}
	fees, err := p.chargeProtocolFees(v)
	if err != nil {
		return nil, nil, fmt.Errorf("protocol fees: %w", err)
	}
	return v, fees, nil
}
