package pool

import (
	"fmt"
	"sort"
	"strings"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/wpool/internal/types"
)

func (p *Pool) governed(sender string) types.VoidResult {
	return types.VoidResult{Receipt: p.receipt(types.OpGovernance, sender, "", p.clock.Now())}
}

// SetSwapFeePercentage replaces the swap fee immediately, cancelling any gradual update.
func (p *Pool) SetSwapFeePercentage(sender string, fee sdkmath.LegacyDec) (types.VoidResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.authorizeOwner(sender, p.rights.Base.CanChangeSwapFee); err != nil {
		return types.VoidResult{}, err
	}
	if err := types.ValidateSwapFee(fee, p.cfg.PoolType, p.bounds); err != nil {
		return types.VoidResult{}, err
	}
	now := p.clock.Now()
	p.swapFeeUpdate = types.GradualSwapFeeUpdateParams{
		StartTime:              now,
		EndTime:                now,
		StartSwapFeePercentage: fee,
		EndSwapFeePercentage:   fee,
	}
	p.log.Info().Str("fee", fee.String()).Msg("Swap fee updated")
	return p.governed(sender), nil
}

func (p *Pool) SetSwapEnabled(sender string, enabled bool) (types.VoidResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.authorizeOwner(sender, p.rights.Managed.CanDisableSwaps); err != nil {
		return types.VoidResult{}, err
	}
	p.swapEnabled = enabled
	p.log.Info().Bool("enabled", enabled).Msg("Swaps toggled")
	return p.governed(sender), nil
}

func (p *Pool) SwapEnabled() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.swapEnabled
}

// SetJoinExitEnabled toggles every join and exit, proportional ones included.
func (p *Pool) SetJoinExitEnabled(sender string, enabled bool) (types.VoidResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.authorizeOwner(sender, p.rights.Managed.CanDisableJoinExit); err != nil {
		return types.VoidResult{}, err
	}
	p.joinExitEnabled = enabled
	p.log.Info().Bool("enabled", enabled).Msg("Joins and exits toggled")
	return p.governed(sender), nil
}

func (p *Pool) JoinExitEnabled() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.joinExitEnabled
}

// --- LP allowlist ---

func (p *Pool) SetMustAllowlistLPs(sender string, must bool) (types.VoidResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.authorizeOwner(sender, p.rights.Managed.CanSetMustAllowlistLPs); err != nil {
		return types.VoidResult{}, err
	}
	p.mustAllowlist = must
	p.log.Info().Bool("must_allowlist", must).Msg("LP allowlist toggled")
	return p.governed(sender), nil
}

func (p *Pool) AddAllowedAddress(sender, account string) (types.VoidResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.authorizeOwner(sender, p.rights.Managed.CanSetMustAllowlistLPs); err != nil {
		return types.VoidResult{}, err
	}
	if types.IsZeroAddress(account) {
		return types.VoidResult{}, ErrInvalidAddress
	}
	p.allowlist[strings.ToLower(account)] = struct{}{}
	p.log.Info().Str("account", account).Msg("Address allowlisted")
	return p.governed(sender), nil
}

func (p *Pool) RemoveAllowedAddress(sender, account string) (types.VoidResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.authorizeOwner(sender, p.rights.Managed.CanSetMustAllowlistLPs); err != nil {
		return types.VoidResult{}, err
	}
	if !p.isAllowlisted(account) {
		return types.VoidResult{}, fmt.Errorf("%w: %s", ErrAddressNotAllowlisted, account)
	}
	delete(p.allowlist, strings.ToLower(account))
	p.log.Info().Str("account", account).Msg("Address removed from allowlist")
	return p.governed(sender), nil
}

// IsAllowlisted reports whether the account may join while the allowlist is enforced.
func (p *Pool) IsAllowlisted(account string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.isAllowlisted(account)
}

func (p *Pool) MustAllowlistLPs() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.mustAllowlist
}

// AllowedAddresses returns the allowlist in lexical order.
func (p *Pool) AllowedAddresses() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.allowlist))
	for a := range p.allowlist {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// --- ownership ---

func (p *Pool) TransferOwnership(sender, newOwner string) (types.VoidResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.authorizeOwner(sender, p.rights.Base.CanTransferOwnership); err != nil {
		return types.VoidResult{}, err
	}
	previous := p.owner
	p.owner = newOwner
	p.log.Info().Str("from", previous).Str("to", newOwner).Msg("Ownership transferred")
	return p.governed(sender), nil
}

// --- emergency pause ---

// Pause stops swaps, joins and non-proportional exits. It is only possible inside the pause
// window.
func (p *Pool) Pause(sender string) (types.VoidResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.authorizeAdmin(sender); err != nil {
		return types.VoidResult{}, err
	}
	now := p.clock.Now()
	end := p.createdAt.Add(p.cfg.PauseWindowDuration.Std())
	if !now.Before(end) {
		return types.VoidResult{}, fmt.Errorf("%w: window ended at %s", ErrNotPausable, end.Format(time.RFC3339))
	}
	p.paused = true
	p.log.Warn().Str("sender", sender).Msg("Pool paused")
	return p.governed(sender), nil
}

func (p *Pool) Unpause(sender string) (types.VoidResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.authorizeAdmin(sender); err != nil {
		return types.VoidResult{}, err
	}
	p.paused = false
	p.log.Info().Str("sender", sender).Msg("Pool unpaused")
	return p.governed(sender), nil
}
