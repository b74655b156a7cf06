package accountant

import (
	"context"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/wpool/internal/pool"
	"github.com/elys-network/wpool/internal/types"
)

// Governance actions carry no settlement except SetManagementAumFeePercentage, which collects
// the fees accrued at the old rate first.

func govern(ctx context.Context, a *Accountant, id types.PoolID, op types.OperationType, run func(p *pool.Pool) (types.VoidResult, error)) (types.VoidResult, error) {
	return execute(ctx, a, id, op, func(p *pool.Pool, _ types.SettleFunc) (types.VoidResult, error) {
		return run(p)
	}, voidReceipt)
}

func (a *Accountant) SetSwapFeePercentage(ctx context.Context, id types.PoolID, sender string, fee sdkmath.LegacyDec) (types.VoidResult, error) {
	return govern(ctx, a, id, types.OpGovernance, func(p *pool.Pool) (types.VoidResult, error) {
		return p.SetSwapFeePercentage(sender, fee)
	})
}

func (a *Accountant) UpdateSwapFeeGradually(ctx context.Context, id types.PoolID, sender string, start, end time.Time, startFee, endFee sdkmath.LegacyDec) (types.VoidResult, error) {
	return govern(ctx, a, id, types.OpUpdateSwapFee, func(p *pool.Pool) (types.VoidResult, error) {
		return p.UpdateSwapFeeGradually(sender, start, end, startFee, endFee)
	})
}

func (a *Accountant) UpdateWeightsGradually(ctx context.Context, id types.PoolID, sender string, start, end time.Time, endWeights []sdkmath.LegacyDec) (types.VoidResult, error) {
	return govern(ctx, a, id, types.OpUpdateWeights, func(p *pool.Pool) (types.VoidResult, error) {
		return p.UpdateWeightsGradually(sender, start, end, endWeights)
	})
}

func (a *Accountant) SetSwapEnabled(ctx context.Context, id types.PoolID, sender string, enabled bool) (types.VoidResult, error) {
	return govern(ctx, a, id, types.OpGovernance, func(p *pool.Pool) (types.VoidResult, error) {
		return p.SetSwapEnabled(sender, enabled)
	})
}

func (a *Accountant) SetJoinExitEnabled(ctx context.Context, id types.PoolID, sender string, enabled bool) (types.VoidResult, error) {
	return govern(ctx, a, id, types.OpGovernance, func(p *pool.Pool) (types.VoidResult, error) {
		return p.SetJoinExitEnabled(sender, enabled)
	})
}

func (a *Accountant) SetMustAllowlistLPs(ctx context.Context, id types.PoolID, sender string, must bool) (types.VoidResult, error) {
	return govern(ctx, a, id, types.OpGovernance, func(p *pool.Pool) (types.VoidResult, error) {
		return p.SetMustAllowlistLPs(sender, must)
	})
}

func (a *Accountant) AddAllowedAddress(ctx context.Context, id types.PoolID, sender, account string) (types.VoidResult, error) {
	return govern(ctx, a, id, types.OpGovernance, func(p *pool.Pool) (types.VoidResult, error) {
		return p.AddAllowedAddress(sender, account)
	})
}

func (a *Accountant) RemoveAllowedAddress(ctx context.Context, id types.PoolID, sender, account string) (types.VoidResult, error) {
	return govern(ctx, a, id, types.OpGovernance, func(p *pool.Pool) (types.VoidResult, error) {
		return p.RemoveAllowedAddress(sender, account)
	})
}

func (a *Accountant) TransferOwnership(ctx context.Context, id types.PoolID, sender, newOwner string) (types.VoidResult, error) {
	return govern(ctx, a, id, types.OpGovernance, func(p *pool.Pool) (types.VoidResult, error) {
		return p.TransferOwnership(sender, newOwner)
	})
}

func (a *Accountant) SetCircuitBreakers(ctx context.Context, id types.PoolID, sender string, params []types.CircuitBreakerParams) (types.VoidResult, error) {
	return govern(ctx, a, id, types.OpSetCircuitBreakers, func(p *pool.Pool) (types.VoidResult, error) {
		return p.SetCircuitBreakers(sender, params)
	})
}

func (a *Accountant) CircuitBreakerState(ctx context.Context, id types.PoolID, token types.TokenRef) (types.CircuitBreakerState, error) {
	return query(ctx, a, id, func(p *pool.Pool) (types.CircuitBreakerState, error) {
		return p.GetCircuitBreakerState(token)
	})
}

func (a *Accountant) Pause(ctx context.Context, id types.PoolID, sender string) (types.VoidResult, error) {
	return govern(ctx, a, id, types.OpGovernance, func(p *pool.Pool) (types.VoidResult, error) {
		return p.Pause(sender)
	})
}

func (a *Accountant) Unpause(ctx context.Context, id types.PoolID, sender string) (types.VoidResult, error) {
	return govern(ctx, a, id, types.OpGovernance, func(p *pool.Pool) (types.VoidResult, error) {
		return p.Unpause(sender)
	})
}

func (a *Accountant) SetManagementAumFeePercentage(ctx context.Context, id types.PoolID, sender string, fee sdkmath.LegacyDec) (types.AumFeeResult, error) {
	return execute(ctx, a, id, types.OpGovernance, func(p *pool.Pool, settle types.SettleFunc) (types.AumFeeResult, error) {
		return p.SetManagementAumFeePercentage(sender, fee, settle)
	}, aumReceipt)
}
