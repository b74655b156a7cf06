package pool

import (
	"errors"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/wpool/internal/config"
	"github.com/elys-network/wpool/internal/types"
	"github.com/elys-network/wpool/internal/utils"
	"github.com/elys-network/wpool/internal/weightedmath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	owner    = "0x00000000000000000000000000000000000000f1"
	admin    = "0x00000000000000000000000000000000000000f2"
	lp       = "0x00000000000000000000000000000000000000f3"
	provider = "0x00000000000000000000000000000000000000f4"

	tokenA = "0x00000000000000000000000000000000000000a1"
	tokenB = "0x00000000000000000000000000000000000000a2"
	tokenC = "0x00000000000000000000000000000000000000a3"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func dec(s string) sdkmath.LegacyDec { return sdkmath.LegacyMustNewDecFromStr(s) }

// units returns n whole tokens of an 18-decimal token.
func units(n int64) sdkmath.Int { return sdkmath.NewIntWithDecimal(n, 18) }

func ptr[T any](v T) *T { return &v }

func newTestPool(t *testing.T, pt types.PoolType, mutate ...func(*types.RawDeployment)) (*Pool, *fakeClock) {
	t.Helper()
	raw := types.RawDeployment{
		Tokens: []types.Token{
			{Symbol: "AAA", Address: tokenA, Decimals: 18},
			{Symbol: "BBB", Address: tokenB, Decimals: 18},
		},
		Weights:  []sdkmath.LegacyDec{dec("0.5"), dec("0.5")},
		Owner:    owner,
		Admin:    admin,
		PoolType: &pt,
	}
	for _, m := range mutate {
		m(&raw)
	}
	cfg, err := raw.Resolve()
	require.NoError(t, err)

	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	p, err := New(1, cfg, config.DefaultProtocolBounds, WithClock(clock))
	require.NoError(t, err)
	return p, clock
}

func initPool(t *testing.T, p *Pool) types.JoinResult {
	t.Helper()
	res, err := p.Initialize(types.InitRequest{
		InitialBalances: types.NAry{units(100)},
		Options:         types.Options{From: lp},
	}, nil)
	require.NoError(t, err)
	return res
}

func recorder(into *[]types.Settlement) types.SettleFunc {
	return func(s types.Settlement) error {
		*into = append(*into, s)
		return nil
	}
}

func TestNewRejectsInvalidDeployment(t *testing.T) {
	raw := types.RawDeployment{Tokens: []types.Token{{Symbol: "AAA", Address: tokenA, Decimals: 18}}}
	cfg, err := raw.Resolve()
	require.NoError(t, err)

	_, err = New(1, cfg, config.DefaultProtocolBounds)
	assert.ErrorIs(t, err, types.ErrTokenCount)
}

func TestInitialize(t *testing.T) {
	p, _ := newTestPool(t, types.WeightedPool)

	var settled []types.Settlement
	res, err := p.Initialize(types.InitRequest{
		InitialBalances: types.NAry{units(100)},
		Options:         types.Options{From: lp},
	}, recorder(&settled))
	require.NoError(t, err)

	minimum := config.DefaultProtocolBounds.MinimumBpt
	assert.True(t, p.IsInitialized())
	assert.Equal(t, uint64(1), p.LastChangeBlock())
	assert.Equal(t, uint64(1), res.Receipt.Block)
	assert.Equal(t, types.OpInit, res.Receipt.Operation)
	assert.NotEmpty(t, res.Receipt.ID)
	assert.True(t, res.BptOut.Add(minimum).Equal(p.TotalSupply()))

	// Two tokens at 100 each: invariant 100, so just under 200 BPT.
	supply := p.TotalSupply()
	assert.True(t, supply.LTE(units(200)), supply.String())
	assert.True(t, supply.GT(units(199)), supply.String())

	require.Len(t, settled, 1)
	assert.True(t, settled[0].BptLocked.Equal(minimum))
	assert.Equal(t, []string{tokenA, tokenB}, settled[0].Tokens)
	assert.Equal(t, lp, settled[0].Recipient)
	for _, b := range p.Balances() {
		assert.True(t, b.Equal(units(100)))
	}
	assert.True(t, p.Snapshot().Invariant.IsPositive())

	_, err = p.Initialize(types.InitRequest{InitialBalances: types.NAry{units(100)}}, nil)
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
}

func TestInitializeRejectsBadBalances(t *testing.T) {
	p, _ := newTestPool(t, types.WeightedPool)

	_, err := p.Initialize(types.InitRequest{InitialBalances: types.NAry{units(1), sdkmath.ZeroInt()}}, nil)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = p.Initialize(types.InitRequest{InitialBalances: types.NAry{units(1), units(1), units(1)}}, nil)
	assert.ErrorIs(t, err, types.ErrNAryLength)

	// 1e-12 of each token yields less BPT than the locked minimum.
	_, err = p.Initialize(types.InitRequest{InitialBalances: types.NAry{sdkmath.NewInt(1_000)}}, nil)
	assert.ErrorIs(t, err, ErrMinimumBpt)
	assert.False(t, p.IsInitialized())
}

func TestOperationsRequireInitialization(t *testing.T) {
	p, _ := newTestPool(t, types.WeightedPool)

	_, err := p.JoinAllGivenOut(types.JoinAllGivenOutRequest{BptOut: units(1)}, nil)
	assert.ErrorIs(t, err, ErrUninitialized)
	_, err = p.Swap(types.SwapRequest{In: types.TokenIndex(0), Out: types.TokenIndex(1), Amount: units(1)}, nil)
	assert.ErrorIs(t, err, ErrUninitialized)
	_, err = p.CollectAumManagementFees(nil)
	assert.ErrorIs(t, err, ErrUninitialized)
}

func TestProportionalJoinThenExitNeverPaysMore(t *testing.T) {
	p, _ := newTestPool(t, types.WeightedPool)
	initPool(t, p)

	join, err := p.JoinAllGivenOut(types.JoinAllGivenOutRequest{BptOut: units(10), Options: types.Options{From: lp}}, nil)
	require.NoError(t, err)
	exit, err := p.MultiExitGivenIn(types.MultiExitGivenInRequest{BptIn: units(10), Options: types.Options{From: lp}}, nil)
	require.NoError(t, err)

	for i := range join.AmountsIn {
		assert.True(t, join.AmountsIn[i].IsPositive())
		assert.True(t, exit.AmountsOut[i].LTE(join.AmountsIn[i]), "token %d: out %s > in %s", i, exit.AmountsOut[i], join.AmountsIn[i])
		assert.True(t, p.Balances()[i].GTE(units(100)))
	}
	assert.Equal(t, uint64(3), p.LastChangeBlock())
}

func TestJoinGivenInMatchesQuery(t *testing.T) {
	p, _ := newTestPool(t, types.WeightedPool)
	initPool(t, p)

	req := types.JoinGivenInRequest{
		AmountsIn: types.NAry{units(10), sdkmath.ZeroInt()},
		Options:   types.Options{From: lp},
	}
	q, err := p.QueryJoinGivenIn(req)
	require.NoError(t, err)
	assert.True(t, q.BptOut.IsPositive())
	assert.Equal(t, uint64(1), p.LastChangeBlock(), "queries must not change state")

	req.MinimumBptOut = ptr(q.BptOut.AddRaw(1))
	_, err = p.JoinGivenIn(req, nil)
	assert.ErrorIs(t, err, ErrBptOutMinAmount)

	req.MinimumBptOut = ptr(q.BptOut)
	res, err := p.JoinGivenIn(req, nil)
	require.NoError(t, err)
	assert.True(t, res.BptOut.Equal(q.BptOut))
	assert.True(t, p.Balances()[0].Equal(units(110)))
	assert.True(t, p.Balances()[1].Equal(units(100)))

	// A one-sided deposit is charged the swap fee, so it buys less than a proportional share.
	assert.True(t, res.BptOut.LT(units(10)))

	_, err = p.JoinGivenIn(types.JoinGivenInRequest{AmountsIn: types.NAry{sdkmath.ZeroInt()}}, nil)
	assert.ErrorIs(t, err, ErrZeroBpt)
}

func TestSingleTokenJoinAndExit(t *testing.T) {
	p, _ := newTestPool(t, types.WeightedPool)
	initPool(t, p)

	join, err := p.JoinGivenOut(types.JoinGivenOutRequest{Token: types.TokenAddress(tokenB), BptOut: units(2), Options: types.Options{From: lp}}, nil)
	require.NoError(t, err)
	assert.True(t, join.AmountsIn[0].IsZero())
	assert.True(t, join.AmountsIn[1].IsPositive())

	exit, err := p.SingleExitGivenIn(types.SingleExitGivenInRequest{Token: types.TokenAddress(tokenB), BptIn: units(2), Options: types.Options{From: lp}}, nil)
	require.NoError(t, err)
	assert.True(t, exit.AmountsOut[0].IsZero())
	assert.True(t, exit.AmountsOut[1].LT(join.AmountsIn[1]))

	_, err = p.JoinGivenOut(types.JoinGivenOutRequest{Token: types.TokenAddress(tokenC), BptOut: units(1)}, nil)
	assert.ErrorIs(t, err, types.ErrTokenNotFound)
}

func TestExitGivenOutMaximumBptIn(t *testing.T) {
	p, _ := newTestPool(t, types.WeightedPool)
	initPool(t, p)

	req := types.ExitGivenOutRequest{AmountsOut: types.NAry{units(1), sdkmath.ZeroInt()}, Options: types.Options{From: lp}}
	q, err := p.QueryExitGivenOut(req)
	require.NoError(t, err)
	require.True(t, q.BptIn.IsPositive())

	req.MaximumBptIn = ptr(q.BptIn.SubRaw(1))
	_, err = p.ExitGivenOut(req, nil)
	assert.ErrorIs(t, err, ErrBptInMaxAmount)

	req.MaximumBptIn = ptr(q.BptIn)
	res, err := p.ExitGivenOut(req, nil)
	require.NoError(t, err)
	assert.True(t, res.BptIn.Equal(q.BptIn))
	assert.True(t, p.Balances()[0].Equal(units(99)))
}

func TestExitCannotReleaseLockedBpt(t *testing.T) {
	p, _ := newTestPool(t, types.WeightedPool)
	initPool(t, p)

	_, err := p.MultiExitGivenIn(types.MultiExitGivenInRequest{BptIn: p.TotalSupply()}, nil)
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)
}

func TestSwapGivenIn(t *testing.T) {
	p, _ := newTestPool(t, types.WeightedPool)
	initPool(t, p)

	req := types.SwapRequest{In: types.TokenIndex(0), Out: types.TokenIndex(1), Amount: units(1), Options: types.Options{From: lp}}
	q, err := p.QuerySwap(req)
	require.NoError(t, err)

	// 100 * (1 - 100/100.99) = 0.98029...
	assert.True(t, q.Amount.GT(dec("0.98").MulInt(units(1)).TruncateInt()), q.Amount.String())
	assert.True(t, q.Amount.LT(dec("0.99").MulInt(units(1)).TruncateInt()), q.Amount.String())

	req.Limit = ptr(q.Amount.AddRaw(1))
	_, err = p.Swap(req, nil)
	assert.ErrorIs(t, err, ErrSwapLimit)

	req.Limit = ptr(q.Amount)
	res, err := p.Swap(req, nil)
	require.NoError(t, err)
	assert.True(t, res.Amount.Equal(q.Amount))
	assert.True(t, p.Balances()[0].Equal(units(101)))
	assert.True(t, p.Balances()[1].Equal(units(100).Sub(q.Amount)))
	assert.Equal(t, types.OpSwapGivenIn, res.Receipt.Operation)
}

func TestSwapGivenOutGrossesUpFee(t *testing.T) {
	p, _ := newTestPool(t, types.WeightedPool)
	initPool(t, p)

	req := types.SwapRequest{In: types.TokenIndex(0), Out: types.TokenIndex(1), Amount: units(1), Kind: types.GivenOut}
	res, err := p.Swap(req, nil)
	require.NoError(t, err)

	// The amount in net of the 1% fee still exceeds the amount out.
	net := dec("0.99").MulInt(res.Amount).TruncateInt()
	assert.True(t, net.GT(units(1)), res.Amount.String())
	assert.True(t, p.Balances()[1].Equal(units(99)))
	assert.Equal(t, types.OpSwapGivenOut, res.Receipt.Operation)

	req.Limit = ptr(res.Amount.SubRaw(1))
	_, err = p.Swap(req, nil)
	assert.ErrorIs(t, err, ErrSwapLimit)
}

func TestSwapRejections(t *testing.T) {
	p, _ := newTestPool(t, types.WeightedPool)
	initPool(t, p)

	_, err := p.Swap(types.SwapRequest{In: types.TokenIndex(0), Out: types.TokenAddress(tokenA), Amount: units(1)}, nil)
	assert.ErrorIs(t, err, ErrSameToken)
	_, err = p.Swap(types.SwapRequest{In: types.TokenIndex(0), Out: types.TokenIndex(1), Amount: sdkmath.ZeroInt()}, nil)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = p.Swap(types.SwapRequest{In: types.TokenIndex(0), Out: types.TokenIndex(1), Amount: units(40)}, nil)
	assert.ErrorIs(t, err, weightedmath.ErrMaxInRatio)
}

func TestFailedSettlementLeavesStateUntouched(t *testing.T) {
	p, _ := newTestPool(t, types.WeightedPool)
	initPool(t, p)
	before := p.Snapshot()

	ledgerDown := errors.New("ledger down")
	_, err := p.Swap(types.SwapRequest{In: types.TokenIndex(0), Out: types.TokenIndex(1), Amount: units(1)}, func(types.Settlement) error {
		return ledgerDown
	})
	require.ErrorIs(t, err, ledgerDown)

	after := p.Snapshot()
	assert.Equal(t, before.LastChangeBlock, after.LastChangeBlock)
	assert.Equal(t, before.Balances, after.Balances)
	assert.True(t, before.TotalSupply.Equal(after.TotalSupply))
}

func TestStalenessAndBalanceOverride(t *testing.T) {
	p, _ := newTestPool(t, types.WeightedPool)
	initPool(t, p)

	_, err := p.QueryJoinAllGivenOut(types.JoinAllGivenOutRequest{BptOut: units(1), Options: types.Options{LastChangeBlock: ptr(uint64(0))}})
	assert.ErrorIs(t, err, ErrStaleBalances)

	_, err = p.QueryJoinAllGivenOut(types.JoinAllGivenOutRequest{BptOut: units(1), Options: types.Options{LastChangeBlock: ptr(uint64(1))}})
	assert.NoError(t, err)

	_, err = p.QueryJoinAllGivenOut(types.JoinAllGivenOutRequest{BptOut: units(1), Options: types.Options{CurrentBalances: []sdkmath.Int{units(1)}}})
	assert.ErrorIs(t, err, ErrBalanceCount)

	// Doubling the balances doubles the proportional deposit.
	stored, err := p.QueryJoinAllGivenOut(types.JoinAllGivenOutRequest{BptOut: units(1)})
	require.NoError(t, err)
	doubled, err := p.QueryJoinAllGivenOut(types.JoinAllGivenOutRequest{
		BptOut:  units(1),
		Options: types.Options{CurrentBalances: []sdkmath.Int{units(200), units(200)}},
	})
	require.NoError(t, err)
	assert.True(t, doubled.AmountsIn[0].GT(stored.AmountsIn[0]))
}

func TestCommitRejectsBalanceOverride(t *testing.T) {
	p, _ := newTestPool(t, types.WeightedPool)
	initPool(t, p)
	before := p.Snapshot()
	skewed := types.Options{From: lp, CurrentBalances: []sdkmath.Int{units(10), units(100)}}

	quote, err := p.QuerySwap(types.SwapRequest{In: types.TokenIndex(0), Out: types.TokenIndex(1), Amount: units(1), Options: skewed})
	require.NoError(t, err)
	assert.True(t, quote.Amount.IsPositive())

	var settled []types.Settlement
	_, err = p.Swap(types.SwapRequest{In: types.TokenIndex(0), Out: types.TokenIndex(1), Amount: units(1), Options: skewed}, recorder(&settled))
	assert.ErrorIs(t, err, ErrBalanceOverride)
	_, err = p.JoinAllGivenOut(types.JoinAllGivenOutRequest{BptOut: units(1), Options: skewed}, recorder(&settled))
	assert.ErrorIs(t, err, ErrBalanceOverride)
	_, err = p.MultiExitGivenIn(types.MultiExitGivenInRequest{BptIn: units(1), Options: skewed}, recorder(&settled))
	assert.ErrorIs(t, err, ErrBalanceOverride)
	assert.Empty(t, settled)

	after := p.Snapshot()
	assert.Equal(t, before.LastChangeBlock, after.LastChangeBlock)
	assert.Equal(t, before.Balances, after.Balances)
	assert.True(t, before.TotalSupply.Equal(after.TotalSupply))

	// Balances matching the stored ones are not an override.
	same := types.Options{From: lp, CurrentBalances: []sdkmath.Int{units(100), units(100)}}
	_, err = p.Swap(types.SwapRequest{In: types.TokenIndex(0), Out: types.TokenIndex(1), Amount: units(1), Options: same}, nil)
	assert.NoError(t, err)
}

func TestPauseWindow(t *testing.T) {
	p, clock := newTestPool(t, types.WeightedPool)
	initPool(t, p)

	_, err := p.Pause(owner)
	assert.ErrorIs(t, err, ErrSenderNotAdmin)
	_, err = p.Pause(admin)
	require.NoError(t, err)

	_, err = p.Swap(types.SwapRequest{In: types.TokenIndex(0), Out: types.TokenIndex(1), Amount: units(1)}, nil)
	assert.ErrorIs(t, err, ErrPaused)
	_, err = p.JoinAllGivenOut(types.JoinAllGivenOutRequest{BptOut: units(1)}, nil)
	assert.ErrorIs(t, err, ErrPaused)
	_, err = p.SingleExitGivenIn(types.SingleExitGivenInRequest{Token: types.TokenIndex(0), BptIn: units(1)}, nil)
	assert.ErrorIs(t, err, ErrPaused)

	// Proportional exits stay available, even with a protocol fee requested.
	_, err = p.MultiExitGivenIn(types.MultiExitGivenInRequest{
		BptIn:   units(1),
		Options: types.Options{From: lp, ProtocolFeePercentage: ptr(dec("0.5"))},
	}, nil)
	assert.NoError(t, err)

	// Past the buffer period the pool behaves as unpaused.
	clock.Advance(types.DefaultPauseWindowDuration + types.DefaultBufferPeriodDuration)
	paused, _, _ := p.PauseState()
	assert.False(t, paused)
	_, err = p.Swap(types.SwapRequest{In: types.TokenIndex(0), Out: types.TokenIndex(1), Amount: units(1)}, nil)
	assert.NoError(t, err)

	_, err = p.Unpause(admin)
	require.NoError(t, err)
	_, err = p.Pause(admin)
	assert.ErrorIs(t, err, ErrNotPausable)
}

func TestRightsAndOwnership(t *testing.T) {
	p, _ := newTestPool(t, types.WeightedPool)
	initPool(t, p)

	_, err := p.SetSwapEnabled(owner, false)
	assert.ErrorIs(t, err, ErrRightNotGranted)
	_, err = p.SetSwapFeePercentage(lp, dec("0.02"))
	assert.ErrorIs(t, err, ErrSenderNotOwner)
	_, err = p.SetSwapFeePercentage(owner, dec("0.2"))
	assert.ErrorIs(t, err, types.ErrSwapFeeTooHigh)
	_, err = p.SetSwapFeePercentage(owner, dec("0.02"))
	require.NoError(t, err)
	assert.Equal(t, "0.020000000000000000", p.SwapFeePercentage().String())
	_, err = p.TransferOwnership(owner, lp)
	assert.ErrorIs(t, err, ErrRightNotGranted)

	m, _ := newTestPool(t, types.ManagedPool)
	_, err = m.TransferOwnership(owner, lp)
	require.NoError(t, err)
	assert.Equal(t, lp, m.Owner())
	_, err = m.SetSwapEnabled(owner, false)
	assert.ErrorIs(t, err, ErrSenderNotOwner)
}

func TestSwapsDisabledAllowsProportionalOnly(t *testing.T) {
	p, _ := newTestPool(t, types.ManagedPool)
	initPool(t, p)

	_, err := p.SetSwapEnabled(owner, false)
	require.NoError(t, err)
	assert.False(t, p.SwapEnabled())

	_, err = p.Swap(types.SwapRequest{In: types.TokenIndex(0), Out: types.TokenIndex(1), Amount: units(1)}, nil)
	assert.ErrorIs(t, err, ErrSwapsDisabled)
	_, err = p.JoinGivenIn(types.JoinGivenInRequest{AmountsIn: types.NAry{units(1)}}, nil)
	assert.ErrorIs(t, err, ErrSwapsDisabled)
	_, err = p.JoinAllGivenOut(types.JoinAllGivenOutRequest{BptOut: units(1), Options: types.Options{From: lp}}, nil)
	assert.NoError(t, err)

	_, err = p.SetJoinExitEnabled(owner, false)
	require.NoError(t, err)
	_, err = p.MultiExitGivenIn(types.MultiExitGivenInRequest{BptIn: units(1)}, nil)
	assert.ErrorIs(t, err, ErrJoinExitDisabled)
}

func TestAllowlist(t *testing.T) {
	p, _ := newTestPool(t, types.ManagedPool, func(r *types.RawDeployment) {
		r.MustAllowlistLPs = ptr(true)
	})

	_, err := p.Initialize(types.InitRequest{InitialBalances: types.NAry{units(100)}, Options: types.Options{From: lp}}, nil)
	assert.ErrorIs(t, err, ErrAddressNotAllowlisted)

	_, err = p.AddAllowedAddress(owner, types.ZeroAddress)
	assert.ErrorIs(t, err, ErrInvalidAddress)
	_, err = p.AddAllowedAddress(owner, lp)
	require.NoError(t, err)
	assert.True(t, p.IsAllowlisted(lp))
	initPool(t, p)

	_, err = p.RemoveAllowedAddress(owner, lp)
	require.NoError(t, err)
	_, err = p.JoinAllGivenOut(types.JoinAllGivenOutRequest{BptOut: units(1), Options: types.Options{From: lp}}, nil)
	assert.ErrorIs(t, err, ErrAddressNotAllowlisted)

	// Exits are never gated by the allowlist.
	_, err = p.MultiExitGivenIn(types.MultiExitGivenInRequest{BptIn: units(1), Options: types.Options{From: lp}}, nil)
	assert.NoError(t, err)

	_, err = p.SetMustAllowlistLPs(owner, false)
	require.NoError(t, err)
	_, err = p.JoinAllGivenOut(types.JoinAllGivenOutRequest{BptOut: units(1), Options: types.Options{From: lp}}, nil)
	assert.NoError(t, err)
}

func TestGradualWeightUpdate(t *testing.T) {
	p, clock := newTestPool(t, types.LiquidityBootstrappingPool)
	start := clock.Now()

	_, err := p.UpdateWeightsGradually(owner, start, start.Add(-time.Hour), []sdkmath.LegacyDec{dec("0.2"), dec("0.8")})
	assert.ErrorIs(t, err, ErrInvalidSchedule)
	_, err = p.UpdateWeightsGradually(owner, start, start.Add(time.Hour), []sdkmath.LegacyDec{dec("0.005"), dec("0.995")})
	assert.ErrorIs(t, err, types.ErrMinWeight)

	// A start in the past is moved to now.
	_, err = p.UpdateWeightsGradually(owner, start.Add(-time.Hour), start.Add(100*time.Hour), []sdkmath.LegacyDec{dec("0.2"), dec("0.8")})
	require.NoError(t, err)
	assert.Equal(t, start, p.GradualWeightUpdateParams().StartTime)

	clock.Advance(50 * time.Hour)
	w := p.NormalizedWeights()
	assert.Equal(t, "0.350000000000000000", w[0].String())
	assert.Equal(t, "0.650000000000000000", w[1].String())

	clock.Advance(100 * time.Hour)
	w = p.NormalizedWeights()
	assert.Equal(t, "0.200000000000000000", w[0].String())
	assert.Equal(t, "0.800000000000000000", w[1].String())
}

func TestGradualSwapFeeUpdate(t *testing.T) {
	p, clock := newTestPool(t, types.LiquidityBootstrappingPool)
	now := clock.Now()

	_, err := p.UpdateSwapFeeGradually(owner, now, now.Add(10*time.Hour), dec("0.01"), dec("0.03"))
	require.NoError(t, err)

	clock.Advance(5 * time.Hour)
	assert.Equal(t, "0.020000000000000000", p.SwapFeePercentage().String())
	clock.Advance(10 * time.Hour)
	assert.Equal(t, "0.030000000000000000", p.SwapFeePercentage().String())
}

func TestProtocolFeesChargedOnJoin(t *testing.T) {
	p, _ := newTestPool(t, types.WeightedPool, func(r *types.RawDeployment) {
		r.Weights = []sdkmath.LegacyDec{dec("0.6"), dec("0.4")}
	})
	initPool(t, p)

	for i := 0; i < 3; i++ {
		_, err := p.Swap(types.SwapRequest{In: types.TokenIndex(0), Out: types.TokenIndex(1), Amount: units(5)}, nil)
		require.NoError(t, err)
		_, err = p.Swap(types.SwapRequest{In: types.TokenIndex(1), Out: types.TokenIndex(0), Amount: units(3)}, nil)
		require.NoError(t, err)
	}

	_, err := p.QueryJoinAllGivenOut(types.JoinAllGivenOutRequest{BptOut: units(1), Options: types.Options{ProtocolFeePercentage: ptr(dec("0.6"))}})
	assert.ErrorIs(t, err, ErrProtocolFeeTooHigh)

	free, err := p.JoinAllGivenOut(types.JoinAllGivenOutRequest{BptOut: units(1), Options: types.Options{From: lp}}, nil)
	require.NoError(t, err)
	for _, f := range free.DueProtocolFeeAmounts {
		assert.True(t, f.IsZero())
	}

	for i := 0; i < 3; i++ {
		_, err := p.Swap(types.SwapRequest{In: types.TokenIndex(0), Out: types.TokenIndex(1), Amount: units(5)}, nil)
		require.NoError(t, err)
	}
	before := p.Balances()
	var settled []types.Settlement
	res, err := p.JoinAllGivenOut(types.JoinAllGivenOutRequest{
		BptOut:  units(1),
		Options: types.Options{From: lp, ProtocolFeePercentage: ptr(dec("0.5"))},
	}, recorder(&settled))
	require.NoError(t, err)

	// The whole fee is taken in the heaviest token.
	assert.True(t, res.DueProtocolFeeAmounts[0].IsPositive())
	assert.True(t, res.DueProtocolFeeAmounts[1].IsZero())
	assert.Equal(t, res.DueProtocolFeeAmounts, settled[0].ProtocolFees)
	want := before[0].Sub(res.DueProtocolFeeAmounts[0]).Add(res.AmountsIn[0])
	assert.True(t, p.Balances()[0].Equal(want))

	// No swaps since the last join: nothing more is due.
	again, err := p.JoinAllGivenOut(types.JoinAllGivenOutRequest{
		BptOut:  units(1),
		Options: types.Options{From: lp, ProtocolFeePercentage: ptr(dec("0.5"))},
	}, nil)
	require.NoError(t, err)
	assert.True(t, again.DueProtocolFeeAmounts[0].IsZero())
}

func TestCircuitBreaker(t *testing.T) {
	p, _ := newTestPool(t, types.ManagedPool)
	initPool(t, p)

	supply := utils.BptToDec(p.TotalSupply())
	ref, err := weightedmath.CalcBptPrice(dec("100"), dec("0.5"), supply)
	require.NoError(t, err)

	_, err = p.SetCircuitBreakers(lp, []types.CircuitBreakerParams{{Token: types.TokenIndex(1), BptPrice: ref, LowerBound: dec("0.9"), UpperBound: dec("1.1")}})
	assert.ErrorIs(t, err, ErrSenderNotOwner)
	_, err = p.SetCircuitBreakers(owner, []types.CircuitBreakerParams{{Token: types.TokenIndex(1), BptPrice: ref, LowerBound: dec("0.9"), UpperBound: dec("11")}})
	assert.ErrorIs(t, err, ErrInvalidCircuitBreaker)
	_, err = p.SetCircuitBreakers(owner, []types.CircuitBreakerParams{{Token: types.TokenIndex(1), BptPrice: ref, LowerBound: dec("0.9"), UpperBound: dec("1.1")}})
	require.NoError(t, err)

	state, err := p.GetCircuitBreakerState(types.TokenIndex(1))
	require.NoError(t, err)
	assert.True(t, state.BptPrice.Equal(ref))
	assert.Equal(t, "0.500000000000000000", state.ReferenceWeight.String())
	assert.True(t, state.LowerBptPriceBound.LT(ref))
	assert.True(t, state.UpperBptPriceBound.GT(ref))

	empty, err := p.GetCircuitBreakerState(types.TokenIndex(0))
	require.NoError(t, err)
	assert.True(t, empty.BptPrice.IsZero())

	// A small trade keeps the price inside the band.
	_, err = p.Swap(types.SwapRequest{In: types.TokenIndex(0), Out: types.TokenIndex(1), Amount: units(1)}, nil)
	require.NoError(t, err)

	// Draining a fifth of token B moves its BPT price by ~25%, above 1.1^0.5.
	before := p.Snapshot()
	_, err = p.Swap(types.SwapRequest{In: types.TokenIndex(0), Out: types.TokenIndex(1), Amount: units(25)}, nil)
	assert.ErrorIs(t, err, ErrCircuitBreakerTripped)
	assert.Equal(t, before.Balances, p.Balances())

	// Clearing the breaker lets the same trade through.
	_, err = p.SetCircuitBreakers(owner, []types.CircuitBreakerParams{{Token: types.TokenIndex(1), BptPrice: sdkmath.LegacyZeroDec()}})
	require.NoError(t, err)
	_, err = p.Swap(types.SwapRequest{In: types.TokenIndex(0), Out: types.TokenIndex(1), Amount: units(25)}, nil)
	assert.NoError(t, err)
}

func TestAumFeeAccrual(t *testing.T) {
	p, clock := newTestPool(t, types.ManagedPool, func(r *types.RawDeployment) {
		r.ManagementAumFeePercentage = ptr(dec("0.1"))
	})
	initPool(t, p)

	supply := p.TotalSupply()
	clock.Advance(365 * 24 * time.Hour)
	expected, err := weightedmath.CalcAumFeeBptAmount(utils.BptToDec(supply), dec("0.1"), 365*24*time.Hour)
	require.NoError(t, err)

	var settled []types.Settlement
	res, err := p.CollectAumManagementFees(recorder(&settled))
	require.NoError(t, err)
	assert.True(t, res.BptMinted.Equal(utils.DecToBpt(expected)))
	assert.True(t, p.TotalSupply().Equal(supply.Add(res.BptMinted)))
	require.Len(t, settled, 1)
	assert.Equal(t, owner, settled[0].Recipient)

	// The manager now holds a tenth of the supply.
	share := utils.BptToDec(res.BptMinted).Quo(utils.BptToDec(p.TotalSupply()))
	assert.InDelta(t, 0.1, share.MustFloat64(), 1e-12)

	again, err := p.CollectAumManagementFees(nil)
	require.NoError(t, err)
	assert.True(t, again.BptMinted.IsZero())

	_, err = p.SetManagementAumFeePercentage(owner, dec("0.2"), nil)
	assert.ErrorIs(t, err, types.ErrAumFeeTooHigh)
	_, err = p.SetManagementAumFeePercentage(owner, sdkmath.LegacyZeroDec(), nil)
	require.NoError(t, err)
	assert.True(t, p.ManagementAumFeePercentage().IsZero())
}

func TestJoinCollectsAccruedAumFirst(t *testing.T) {
	p, clock := newTestPool(t, types.ManagedPool, func(r *types.RawDeployment) {
		r.ManagementAumFeePercentage = ptr(dec("0.1"))
	})
	initPool(t, p)

	supply := p.TotalSupply()
	clock.Advance(365 * 24 * time.Hour)
	accrued, err := weightedmath.CalcAumFeeBptAmount(utils.BptToDec(supply), dec("0.1"), 365*24*time.Hour)
	require.NoError(t, err)
	fee := utils.DecToBpt(accrued)

	// The quote already prices against the diluted supply.
	req := types.JoinAllGivenOutRequest{BptOut: supply, Options: types.Options{From: lp}}
	quote, err := p.QueryJoinAllGivenOut(req)
	require.NoError(t, err)
	assert.True(t, p.TotalSupply().Equal(supply))

	var settled []types.Settlement
	res, err := p.JoinAllGivenOut(req, recorder(&settled))
	require.NoError(t, err)
	assert.Equal(t, quote.AmountsIn, res.AmountsIn)

	require.Len(t, settled, 2)
	assert.Equal(t, types.OpCollectAumFees, settled[0].Operation)
	assert.Equal(t, owner, settled[0].Recipient)
	assert.True(t, settled[0].BptMinted.Equal(fee))
	assert.Equal(t, types.OpJoinAllGivenOut, settled[1].Operation)
	assert.True(t, p.TotalSupply().Equal(supply.Add(fee).Add(supply)))
	assert.Equal(t, clock.Now(), p.LastAumFeeCollection())

	// The manager took a tenth first, so the same BPT now costs nine tenths of the balances.
	ratio := sdkmath.LegacyNewDecFromInt(res.AmountsIn[0]).Quo(sdkmath.LegacyNewDecFromInt(units(100)))
	assert.InDelta(t, 0.9, ratio.MustFloat64(), 1e-9)

	// Nothing left to collect at the same instant, so the new LP keeps the share it paid for.
	again, err := p.CollectAumManagementFees(nil)
	require.NoError(t, err)
	assert.True(t, again.BptMinted.IsZero())
	share := utils.BptToDec(res.BptOut).Quo(utils.BptToDec(p.TotalSupply()))
	assert.InDelta(t, 0.9/1.9, share.MustFloat64(), 1e-9)
}

func TestExitCollectsAccruedAumFirst(t *testing.T) {
	p, clock := newTestPool(t, types.ManagedPool, func(r *types.RawDeployment) {
		r.ManagementAumFeePercentage = ptr(dec("0.1"))
	})
	res := initPool(t, p)
	clock.Advance(365 * 24 * time.Hour)

	var settled []types.Settlement
	exit, err := p.MultiExitGivenIn(types.MultiExitGivenInRequest{BptIn: res.BptOut, Options: types.Options{From: lp}}, recorder(&settled))
	require.NoError(t, err)
	require.Len(t, settled, 2)
	assert.Equal(t, types.OpCollectAumFees, settled[0].Operation)

	// The LP's claim shrank by the manager's tenth.
	ratio := sdkmath.LegacyNewDecFromInt(exit.AmountsOut[0]).Quo(sdkmath.LegacyNewDecFromInt(units(100)))
	assert.InDelta(t, 0.9, ratio.MustFloat64(), 1e-9)
}

func TestAddAndRemoveToken(t *testing.T) {
	p, clock := newTestPool(t, types.ManagedPool)
	initPool(t, p)
	supply := p.TotalSupply()

	add := types.AddTokenRequest{
		Token:      types.Token{Symbol: "CCC", Address: tokenC, Decimals: 18},
		Weight:     dec("0.2"),
		Amount:     units(25),
		MintAmount: units(50),
		Options:    types.Options{From: owner},
	}
	_, err := p.AddToken(types.AddTokenRequest{Token: add.Token, Weight: add.Weight, Amount: add.Amount, Options: types.Options{From: lp}}, nil)
	assert.ErrorIs(t, err, ErrSenderNotOwner)

	res, err := p.AddToken(add, nil)
	require.NoError(t, err)
	assert.True(t, res.BptOut.Equal(units(50)))
	require.Len(t, p.Tokens(), 3)
	w := p.NormalizedWeights()
	assert.Equal(t, "0.400000000000000000", w[0].String())
	assert.Equal(t, "0.400000000000000000", w[1].String())
	assert.Equal(t, "0.200000000000000000", w[2].String())
	assert.True(t, p.Balances()[2].Equal(units(25)))

	_, err = p.AddToken(add, nil)
	assert.ErrorIs(t, err, types.ErrDuplicateToken)

	out, err := p.RemoveToken(types.RemoveTokenRequest{Token: types.TokenAddress(tokenC), BurnAmount: units(50), Options: types.Options{From: owner}}, nil)
	require.NoError(t, err)
	assert.True(t, out.AmountsOut[2].Equal(units(25)))
	require.Len(t, p.Tokens(), 2)
	w = p.NormalizedWeights()
	assert.Equal(t, "0.500000000000000000", w[0].String())
	assert.Equal(t, "0.500000000000000000", w[1].String())
	assert.True(t, p.TotalSupply().Equal(supply))

	_, err = p.RemoveToken(types.RemoveTokenRequest{Token: types.TokenIndex(0), Options: types.Options{From: owner}}, nil)
	assert.ErrorIs(t, err, types.ErrTokenCount)

	_, err = p.UpdateWeightsGradually(owner, clock.Now(), clock.Now().Add(time.Hour), []sdkmath.LegacyDec{dec("0.3"), dec("0.7")})
	require.NoError(t, err)
	_, err = p.AddToken(add, nil)
	assert.ErrorIs(t, err, ErrWeightChangeActive)
}

func TestUpdateTokenRate(t *testing.T) {
	p, _ := newTestPool(t, types.WeightedPool, func(r *types.RawDeployment) {
		r.RateProviders = []string{provider, ""}
	})
	initPool(t, p)

	_, err := p.UpdateTokenRate(lp, types.TokenIndex(0), dec("2"))
	assert.ErrorIs(t, err, ErrSenderNotRateProvider)
	_, err = p.UpdateTokenRate(provider, types.TokenIndex(1), dec("2"))
	assert.ErrorIs(t, err, ErrSenderNotRateProvider)
	_, err = p.UpdateTokenRate(provider, types.TokenIndex(0), sdkmath.LegacyZeroDec())
	assert.ErrorIs(t, err, ErrInvalidRate)

	_, err = p.UpdateTokenRate(provider, types.TokenIndex(0), dec("2"))
	require.NoError(t, err)
	assert.Equal(t, "2.000000000000000000", p.TokenRates()[0].String())

	// The math now sees 200 of token A against 100 of token B.
	price, err := p.SpotPrice(types.TokenIndex(1), types.TokenIndex(0))
	require.NoError(t, err)
	assert.Equal(t, "0.500000000000000000", price.String())
}
