package pool

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/wpool/internal/types"
	"github.com/elys-network/wpool/internal/utils"
	"github.com/elys-network/wpool/internal/weightedmath"
)

// view is the pool state an operation is priced against: balances (stored or supplied by
// the caller), their scaled values and the weights and swap fee at the operation time.
// Operations mutate the view, never the pool, until they commit. Supplied balances that
// differ from the stored ones mark the view as overridden; such a view prices queries only.
type view struct {
	now         time.Time
	balances    []sdkmath.Int
	factors     []sdkmath.LegacyDec
	scaled      []sdkmath.LegacyDec
	weights     []sdkmath.LegacyDec
	swapFee     sdkmath.LegacyDec
	supply      sdkmath.LegacyDec
	protocolFee sdkmath.LegacyDec
	overridden  bool

	// BPT the management fee would mint if collected at now; only set for queries.
	pendingAum sdkmath.Int
}

func (p *Pool) view(now time.Time, opts types.Options) (*view, error) {
	n := len(p.tokens)

	balances := copyInts(p.balances)
	overridden := false
	if opts.CurrentBalances != nil {
		if len(opts.CurrentBalances) != n {
			return nil, fmt.Errorf("%w: got %d, want %d", ErrBalanceCount, len(opts.CurrentBalances), n)
		}
		balances = copyInts(opts.CurrentBalances)
		overridden = !equalInts(balances, p.balances)
	}
	if opts.LastChangeBlock != nil && *opts.LastChangeBlock != p.lastChangeBlock {
		return nil, fmt.Errorf("%w: given %d, pool at %d", ErrStaleBalances, *opts.LastChangeBlock, p.lastChangeBlock)
	}

	protocolFee := sdkmath.LegacyZeroDec()
	if opts.ProtocolFeePercentage != nil {
		protocolFee = *opts.ProtocolFeePercentage
		if protocolFee.IsNil() || protocolFee.IsNegative() || protocolFee.GT(p.bounds.MaxProtocolFeePercentage) {
			return nil, fmt.Errorf("%w: %s", ErrProtocolFeeTooHigh, protocolFee)
		}
	}

	factors, err := p.scalingFactors()
	if err != nil {
		return nil, err
	}
	scaled, err := utils.UpscaleAll(balances, factors)
	if err != nil {
		return nil, fmt.Errorf("invalid balances: %w", err)
	}

	return &view{
		now:         now,
		balances:    balances,
		factors:     factors,
		scaled:      scaled,
		weights:     p.weightsAt(now),
		swapFee:     p.swapFeeAt(now),
		supply:      utils.BptToDec(p.totalSupply),
		protocolFee: protocolFee,
		overridden:  overridden,
		pendingAum:  sdkmath.ZeroInt(),
	}, nil
}

func (v *view) invariant() (sdkmath.LegacyDec, error) {
	return weightedmath.CalcInvariant(v.weights, v.scaled)
}

func (v *view) upscale(amounts []sdkmath.Int) ([]sdkmath.LegacyDec, error) {
	return utils.UpscaleAll(amounts, v.factors)
}

// applyDeltas returns balances + in - out and their scaled values. A balance that would
// reach zero or below fails the operation.
func (v *view) applyDeltas(in, out []sdkmath.Int) ([]sdkmath.Int, []sdkmath.LegacyDec, error) {
	next := copyInts(v.balances)
	for i := range next {
		if in != nil {
			next[i] = next[i].Add(in[i])
		}
		if out != nil {
			next[i] = next[i].Sub(out[i])
		}
		if !next[i].IsPositive() {
			return nil, nil, fmt.Errorf("%w: token %d", ErrInsufficientLiquidity, i)
		}
	}
	scaled, err := v.upscale(next)
	if err != nil {
		return nil, nil, err
	}
	return next, scaled, nil
}

func validateAmounts(amounts []sdkmath.Int) error {
	for i, a := range amounts {
		if a.IsNil() || a.IsNegative() {
			return fmt.Errorf("%w: amount %d", ErrInvalidAmount, i)
		}
	}
	return nil
}

func anyPositive(amounts []sdkmath.Int) bool {
	for _, a := range amounts {
		if a.IsPositive() {
			return true
		}
	}
	return false
}

func positiveIndices(amounts []sdkmath.Int) []int {
	var out []int
	for i, a := range amounts {
		if a.IsPositive() {
			out = append(out, i)
		}
	}
	return out
}
