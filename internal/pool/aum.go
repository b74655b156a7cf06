package pool

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/wpool/internal/types"
	"github.com/elys-network/wpool/internal/utils"
	"github.com/elys-network/wpool/internal/weightedmath"
)

func (p *Pool) ManagementAumFeePercentage() sdkmath.LegacyDec {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.managementAumFee
}

func (p *Pool) LastAumFeeCollection() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastAumCollection
}

// aumFeeRecipient is the owner, or the admin for pools without an owner.
func (p *Pool) aumFeeRecipient() string {
	if types.IsZeroAddress(p.owner) {
		return p.admin
	}
	return p.owner
}

// pendingAum is the BPT a collection at now would mint.
func (p *Pool) pendingAum(now time.Time) (sdkmath.Int, error) {
	elapsed := now.Sub(p.lastAumCollection)
	if !p.initialized || p.managementAumFee.IsZero() || elapsed <= 0 {
		return sdkmath.ZeroInt(), nil
	}
	amount, err := weightedmath.CalcAumFeeBptAmount(utils.BptToDec(p.totalSupply), p.managementAumFee, elapsed)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return utils.DecToBpt(amount), nil
}

// collectAum mints the management fee accrued since the last collection. When the accrued
// amount rounds to zero BPT the collection time is kept so the fee keeps accruing.
func (p *Pool) collectAum(now time.Time, settle types.SettleFunc) (sdkmath.Int, error) {
	if p.managementAumFee.IsZero() {
		p.lastAumCollection = now
		return sdkmath.ZeroInt(), nil
	}
	elapsed := now.Sub(p.lastAumCollection)
	bpt, err := p.pendingAum(now)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if !bpt.IsPositive() {
		return sdkmath.ZeroInt(), nil
	}

	n := len(p.tokens)
	recipient := p.aumFeeRecipient()
	if settle != nil {
		err := settle(types.Settlement{
			PoolID:       p.id,
			Operation:    types.OpCollectAumFees,
			Recipient:    recipient,
			Tokens:       p.tokenAddresses(),
			AmountsIn:    zeroInts(n),
			AmountsOut:   zeroInts(n),
			ProtocolFees: zeroInts(n),
			BptMinted:    bpt,
			BptBurned:    sdkmath.ZeroInt(),
			BptLocked:    sdkmath.ZeroInt(),
		})
		if err != nil {
			return sdkmath.Int{}, fmt.Errorf("settlement of %s failed: %w", types.OpCollectAumFees, err)
		}
	}
	p.totalSupply = p.totalSupply.Add(bpt)
	p.lastAumCollection = now

	p.log.Info().
		Str("recipient", recipient).
		Str("bpt_minted", bpt.String()).
		Dur("elapsed", elapsed).
		Msg("Management AUM fees collected")
	return bpt, nil
}

// CollectAumManagementFees mints the accrued management fee to the pool owner. Anyone may
// trigger a collection.
func (p *Pool) CollectAumManagementFees(settle types.SettleFunc) (types.AumFeeResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return types.AumFeeResult{}, ErrUninitialized
	}
	now := p.clock.Now()
	bpt, err := p.collectAum(now, settle)
	if err != nil {
		return types.AumFeeResult{}, err
	}
	return types.AumFeeResult{
		BptMinted: bpt,
		Receipt:   p.receipt(types.OpCollectAumFees, "", p.aumFeeRecipient(), now),
	}, nil
}

// SetManagementAumFeePercentage collects the fees accrued at the old rate before switching.
func (p *Pool) SetManagementAumFeePercentage(sender string, fee sdkmath.LegacyDec, settle types.SettleFunc) (types.AumFeeResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.authorizeOwner(sender, p.rights.Managed.CanChangeMgmtFees); err != nil {
		return types.AumFeeResult{}, err
	}
	if err := types.ValidateAumFee(fee, p.cfg.PoolType, p.bounds); err != nil {
		return types.AumFeeResult{}, err
	}

	now := p.clock.Now()
	bpt := sdkmath.ZeroInt()
	if p.initialized {
		collected, err := p.collectAum(now, settle)
		if err != nil {
			return types.AumFeeResult{}, err
		}
		bpt = collected
	}
	p.managementAumFee = fee
	if !p.initialized {
		p.lastAumCollection = now
	}

	p.log.Info().Str("fee", fee.String()).Msg("Management AUM fee updated")
	return types.AumFeeResult{
		BptMinted: bpt,
		Receipt:   p.receipt(types.OpGovernance, sender, "", now),
	}, nil
}
