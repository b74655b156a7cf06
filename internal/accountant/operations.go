package accountant

import (
	"context"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/wpool/internal/pool"
	"github.com/elys-network/wpool/internal/types"
)

// execute runs a state-changing pool operation with the vault as its settlement and records
// the receipt.
func execute[T any](ctx context.Context, a *Accountant, id types.PoolID, op types.OperationType,
	run func(p *pool.Pool, settle types.SettleFunc) (T, error), receipt func(T) types.Receipt) (T, error) {

	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	p, err := a.Pool(id)
	if err != nil {
		return zero, err
	}

	started := time.Now()
	res, err := run(p, a.settle(ctx))
	a.observe(id, op, started, err)
	if err != nil {
		return zero, err
	}
	a.record(ctx, p, receipt(res))
	return res, nil
}

// query runs a read-only pool operation.
func query[T any](ctx context.Context, a *Accountant, id types.PoolID, run func(p *pool.Pool) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	p, err := a.Pool(id)
	if err != nil {
		return zero, err
	}
	return run(p)
}

func joinReceipt(r types.JoinResult) types.Receipt { return r.Receipt }
func exitReceipt(r types.ExitResult) types.Receipt { return r.Receipt }
func swapReceipt(r types.SwapResult) types.Receipt { return r.Receipt }
func voidReceipt(r types.VoidResult) types.Receipt { return r.Receipt }
func aumReceipt(r types.AumFeeResult) types.Receipt { return r.Receipt }

// --- joins ---

func (a *Accountant) Initialize(ctx context.Context, id types.PoolID, req types.InitRequest) (types.JoinResult, error) {
	return execute(ctx, a, id, types.OpInit, func(p *pool.Pool, settle types.SettleFunc) (types.JoinResult, error) {
		return p.Initialize(req, settle)
	}, joinReceipt)
}

func (a *Accountant) QueryInitialize(ctx context.Context, id types.PoolID, req types.InitRequest) (types.JoinQueryResult, error) {
	return query(ctx, a, id, func(p *pool.Pool) (types.JoinQueryResult, error) {
		return p.QueryInitialize(req)
	})
}

func (a *Accountant) JoinGivenIn(ctx context.Context, id types.PoolID, req types.JoinGivenInRequest) (types.JoinResult, error) {
	return execute(ctx, a, id, types.OpJoinGivenIn, func(p *pool.Pool, settle types.SettleFunc) (types.JoinResult, error) {
		return p.JoinGivenIn(req, settle)
	}, joinReceipt)
}

func (a *Accountant) QueryJoinGivenIn(ctx context.Context, id types.PoolID, req types.JoinGivenInRequest) (types.JoinQueryResult, error) {
	return query(ctx, a, id, func(p *pool.Pool) (types.JoinQueryResult, error) {
		return p.QueryJoinGivenIn(req)
	})
}

func (a *Accountant) JoinGivenOut(ctx context.Context, id types.PoolID, req types.JoinGivenOutRequest) (types.JoinResult, error) {
	return execute(ctx, a, id, types.OpJoinGivenOut, func(p *pool.Pool, settle types.SettleFunc) (types.JoinResult, error) {
		return p.JoinGivenOut(req, settle)
	}, joinReceipt)
}

func (a *Accountant) QueryJoinGivenOut(ctx context.Context, id types.PoolID, req types.JoinGivenOutRequest) (types.JoinQueryResult, error) {
	return query(ctx, a, id, func(p *pool.Pool) (types.JoinQueryResult, error) {
		return p.QueryJoinGivenOut(req)
	})
}

func (a *Accountant) JoinAllGivenOut(ctx context.Context, id types.PoolID, req types.JoinAllGivenOutRequest) (types.JoinResult, error) {
	return execute(ctx, a, id, types.OpJoinAllGivenOut, func(p *pool.Pool, settle types.SettleFunc) (types.JoinResult, error) {
		return p.JoinAllGivenOut(req, settle)
	}, joinReceipt)
}

func (a *Accountant) QueryJoinAllGivenOut(ctx context.Context, id types.PoolID, req types.JoinAllGivenOutRequest) (types.JoinQueryResult, error) {
	return query(ctx, a, id, func(p *pool.Pool) (types.JoinQueryResult, error) {
		return p.QueryJoinAllGivenOut(req)
	})
}

// --- exits ---

func (a *Accountant) ExitGivenOut(ctx context.Context, id types.PoolID, req types.ExitGivenOutRequest) (types.ExitResult, error) {
	return execute(ctx, a, id, types.OpExitGivenOut, func(p *pool.Pool, settle types.SettleFunc) (types.ExitResult, error) {
		return p.ExitGivenOut(req, settle)
	}, exitReceipt)
}

func (a *Accountant) QueryExitGivenOut(ctx context.Context, id types.PoolID, req types.ExitGivenOutRequest) (types.ExitQueryResult, error) {
	return query(ctx, a, id, func(p *pool.Pool) (types.ExitQueryResult, error) {
		return p.QueryExitGivenOut(req)
	})
}

func (a *Accountant) SingleExitGivenIn(ctx context.Context, id types.PoolID, req types.SingleExitGivenInRequest) (types.ExitResult, error) {
	return execute(ctx, a, id, types.OpSingleExitGivenIn, func(p *pool.Pool, settle types.SettleFunc) (types.ExitResult, error) {
		return p.SingleExitGivenIn(req, settle)
	}, exitReceipt)
}

func (a *Accountant) QuerySingleExitGivenIn(ctx context.Context, id types.PoolID, req types.SingleExitGivenInRequest) (types.ExitQueryResult, error) {
	return query(ctx, a, id, func(p *pool.Pool) (types.ExitQueryResult, error) {
		return p.QuerySingleExitGivenIn(req)
	})
}

func (a *Accountant) MultiExitGivenIn(ctx context.Context, id types.PoolID, req types.MultiExitGivenInRequest) (types.ExitResult, error) {
	return execute(ctx, a, id, types.OpMultiExitGivenIn, func(p *pool.Pool, settle types.SettleFunc) (types.ExitResult, error) {
		return p.MultiExitGivenIn(req, settle)
	}, exitReceipt)
}

func (a *Accountant) QueryMultiExitGivenIn(ctx context.Context, id types.PoolID, req types.MultiExitGivenInRequest) (types.ExitQueryResult, error) {
	return query(ctx, a, id, func(p *pool.Pool) (types.ExitQueryResult, error) {
		return p.QueryMultiExitGivenIn(req)
	})
}

// --- swaps ---

func (a *Accountant) Swap(ctx context.Context, id types.PoolID, req types.SwapRequest) (types.SwapResult, error) {
	op := types.OpSwapGivenIn
	if req.ResolvedKind() == types.GivenOut {
		op = types.OpSwapGivenOut
	}
	return execute(ctx, a, id, op, func(p *pool.Pool, settle types.SettleFunc) (types.SwapResult, error) {
		return p.Swap(req, settle)
	}, swapReceipt)
}

func (a *Accountant) QuerySwap(ctx context.Context, id types.PoolID, req types.SwapRequest) (types.SwapQueryResult, error) {
	return query(ctx, a, id, func(p *pool.Pool) (types.SwapQueryResult, error) {
		return p.QuerySwap(req)
	})
}

func (a *Accountant) SpotPrice(ctx context.Context, id types.PoolID, in, out types.TokenRef) (sdkmath.LegacyDec, error) {
	return query(ctx, a, id, func(p *pool.Pool) (sdkmath.LegacyDec, error) {
		return p.SpotPrice(in, out)
	})
}

// --- token set ---

func (a *Accountant) AddToken(ctx context.Context, id types.PoolID, req types.AddTokenRequest) (types.JoinResult, error) {
	return execute(ctx, a, id, types.OpAddToken, func(p *pool.Pool, settle types.SettleFunc) (types.JoinResult, error) {
		return p.AddToken(req, settle)
	}, joinReceipt)
}

func (a *Accountant) RemoveToken(ctx context.Context, id types.PoolID, req types.RemoveTokenRequest) (types.ExitResult, error) {
	return execute(ctx, a, id, types.OpRemoveToken, func(p *pool.Pool, settle types.SettleFunc) (types.ExitResult, error) {
		return p.RemoveToken(req, settle)
	}, exitReceipt)
}

func (a *Accountant) UpdateTokenRate(ctx context.Context, id types.PoolID, sender string, token types.TokenRef, rate sdkmath.LegacyDec) (types.VoidResult, error) {
	return execute(ctx, a, id, types.OpUpdateTokenRate, func(p *pool.Pool, _ types.SettleFunc) (types.VoidResult, error) {
		return p.UpdateTokenRate(sender, token, rate)
	}, voidReceipt)
}
