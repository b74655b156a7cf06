// Package pool implements a stateful weighted pool: it holds reserves and the BPT supply,
// prices joins, exits and swaps with the weighted product math and enforces governance,
// pause and circuit breaker rules. Ledger movements are delegated to a settle callback so
// the pool only commits once the caller has applied them.
package pool

import (
	"fmt"
	"strings"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/wpool/internal/types"
	"github.com/elys-network/wpool/internal/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Clock supplies the current time to gradual updates, pause windows and fee accrual.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }

type Option func(*Pool)

func WithClock(c Clock) Option {
	return func(p *Pool) { p.clock = c }
}

func WithLogger(l zerolog.Logger) Option {
	return func(p *Pool) { p.log = l }
}

// WithRights overrides the rights implied by the pool type.
func WithRights(r types.PoolRights) Option {
	return func(p *Pool) { p.rights = r }
}

type Pool struct {
	mu sync.RWMutex

	id     types.PoolID
	cfg    types.Deployment
	bounds types.ProtocolBounds
	clock  Clock
	log    zerolog.Logger

	tokens        []types.Token
	rateProviders []string
	assetManagers []string
	rates         []sdkmath.LegacyDec
	balances      []sdkmath.Int
	totalSupply   sdkmath.Int

	// lastInvariant is the invariant after the last join or exit. Zero means there is no
	// reference and no protocol fee is due on the next join or exit.
	lastInvariant sdkmath.LegacyDec

	initialized     bool
	createdAt       time.Time
	lastChangeBlock uint64

	paused          bool
	swapEnabled     bool
	joinExitEnabled bool
	mustAllowlist   bool
	allowlist       map[string]struct{}

	owner  string
	admin  string
	rights types.PoolRights

	weightUpdate  types.GradualWeightUpdateParams
	swapFeeUpdate types.GradualSwapFeeUpdateParams

	managementAumFee  sdkmath.LegacyDec
	lastAumCollection time.Time

	circuitBreakers map[string]circuitBreaker
}

// New creates an uninitialized pool from a validated deployment.
func New(id types.PoolID, cfg types.Deployment, bounds types.ProtocolBounds, opts ...Option) (*Pool, error) {
	if err := cfg.Validate(bounds); err != nil {
		return nil, fmt.Errorf("invalid deployment: %w", err)
	}

	p := &Pool{
		id:               id,
		cfg:              cfg,
		bounds:           bounds,
		clock:            SystemClock(),
		log:              zerolog.Nop(),
		tokens:           append([]types.Token(nil), cfg.Tokens...),
		rateProviders:    append([]string(nil), cfg.RateProviders...),
		assetManagers:    append([]string(nil), cfg.AssetManagers...),
		totalSupply:      sdkmath.ZeroInt(),
		lastInvariant:    sdkmath.LegacyZeroDec(),
		swapEnabled:      cfg.SwapEnabledOnStart,
		joinExitEnabled:  true,
		mustAllowlist:    cfg.MustAllowlistLPs,
		allowlist:        make(map[string]struct{}),
		owner:            cfg.Owner,
		admin:            cfg.Admin,
		rights:           types.DefaultRights(cfg.PoolType),
		managementAumFee: cfg.ManagementAumFeePercentage,
		circuitBreakers:  make(map[string]circuitBreaker),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.With().Uint64("pool_id", uint64(id)).Str("pool_type", cfg.PoolType.String()).Logger()

	n := len(p.tokens)
	p.rates = make([]sdkmath.LegacyDec, n)
	p.balances = make([]sdkmath.Int, n)
	for i := range p.tokens {
		p.rates[i] = sdkmath.LegacyOneDec()
		p.balances[i] = sdkmath.ZeroInt()
	}

	now := p.clock.Now()
	p.createdAt = now
	p.weightUpdate = types.GradualWeightUpdateParams{
		StartTime:    now,
		EndTime:      now,
		StartWeights: copyDecs(cfg.Weights),
		EndWeights:   copyDecs(cfg.Weights),
	}
	p.swapFeeUpdate = types.GradualSwapFeeUpdateParams{
		StartTime:              now,
		EndTime:                now,
		StartSwapFeePercentage: cfg.SwapFeePercentage,
		EndSwapFeePercentage:   cfg.SwapFeePercentage,
	}
	return p, nil
}

func (p *Pool) ID() types.PoolID { return p.id }

func (p *Pool) Type() types.PoolType { return p.cfg.PoolType }

// Deployment returns the configuration the pool was created with.
func (p *Pool) Deployment() types.Deployment { return p.cfg }

func (p *Pool) Tokens() []types.Token {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]types.Token(nil), p.tokens...)
}

// TokenAddresses returns the ledger asset key of each token.
func (p *Pool) TokenAddresses() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tokenAddresses()
}

func (p *Pool) tokenAddresses() []string {
	out := make([]string, len(p.tokens))
	for i, t := range p.tokens {
		out[i] = t.Address
	}
	return out
}

func (p *Pool) Owner() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.owner
}

func (p *Pool) Admin() string { return p.admin }

func (p *Pool) Rights() types.PoolRights {
	return p.rights
}

// Balances returns the stored native balances.
func (p *Pool) Balances() []sdkmath.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return copyInts(p.balances)
}

func (p *Pool) TotalSupply() sdkmath.Int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.totalSupply
}

// LastChangeBlock is bumped every time the pool balances change.
func (p *Pool) LastChangeBlock() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastChangeBlock
}

func (p *Pool) IsInitialized() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.initialized
}

// Snapshot returns a read-only view of the pool state.
func (p *Pool) Snapshot() types.PoolSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	now := p.clock.Now()
	snap := types.PoolSnapshot{
		ID:                         p.id,
		PoolType:                   p.cfg.PoolType,
		Tokens:                     append([]types.Token(nil), p.tokens...),
		Balances:                   copyInts(p.balances),
		NormalizedWeights:          p.weightsAt(now),
		TotalSupply:                p.totalSupply,
		SwapFeePercentage:          p.swapFeeAt(now),
		ManagementAumFeePercentage: p.managementAumFee,
		Invariant:                  sdkmath.LegacyZeroDec(),
		Owner:                      p.owner,
		Paused:                     p.isPaused(now),
		SwapEnabled:                p.swapEnabled,
		JoinExitEnabled:            p.joinExitEnabled,
		MustAllowlistLPs:           p.mustAllowlist,
		LastChangeBlock:            p.lastChangeBlock,
		Timestamp:                  now,
	}
	if p.initialized {
		if v, err := p.view(now, types.Options{}); err == nil {
			if inv, err := v.invariant(); err == nil {
				snap.Invariant = inv
			}
		}
	}
	return snap
}

// commitBalances stores post-operation balances and bumps the change block.
func (p *Pool) commitBalances(balances []sdkmath.Int) {
	p.balances = copyInts(balances)
	p.lastChangeBlock++
}

func (p *Pool) receipt(op types.OperationType, sender, recipient string, now time.Time) types.Receipt {
	return types.Receipt{
		ID:        uuid.New().String(),
		PoolID:    p.id,
		Operation: op,
		Block:     p.lastChangeBlock,
		Timestamp: now,
		Sender:    sender,
		Recipient: recipient,
	}
}

// --- access control ---

func sameAccount(a, b string) bool {
	return a != "" && strings.EqualFold(a, b)
}

// authorizeOwner checks the right is granted to this pool variant and the sender may use it.
// Pools without an owner delegate owner actions to the admin.
func (p *Pool) authorizeOwner(sender string, granted bool) error {
	if !granted {
		return ErrRightNotGranted
	}
	if types.IsZeroAddress(p.owner) {
		if !sameAccount(sender, p.admin) {
			return ErrSenderNotOwner
		}
		return nil
	}
	if !sameAccount(sender, p.owner) {
		return ErrSenderNotOwner
	}
	return nil
}

func (p *Pool) authorizeAdmin(sender string) error {
	if !sameAccount(sender, p.admin) {
		return ErrSenderNotAdmin
	}
	return nil
}

func (p *Pool) isAllowlisted(account string) bool {
	_, ok := p.allowlist[strings.ToLower(account)]
	return ok
}

// --- pause window ---

// isPaused reports the effective pause state: once the buffer period after the pause window
// has ended the pool is unpaused regardless of the flag.
func (p *Pool) isPaused(now time.Time) bool {
	if !p.paused {
		return false
	}
	end := p.createdAt.Add(p.cfg.PauseWindowDuration.Std()).Add(p.cfg.BufferPeriodDuration.Std())
	return now.Before(end)
}

// PauseState returns whether the pool is paused and the end of its pause window and
// buffer period.
func (p *Pool) PauseState() (paused bool, pauseWindowEnd, bufferPeriodEnd time.Time) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pauseWindowEnd = p.createdAt.Add(p.cfg.PauseWindowDuration.Std())
	bufferPeriodEnd = pauseWindowEnd.Add(p.cfg.BufferPeriodDuration.Std())
	return p.isPaused(p.clock.Now()), pauseWindowEnd, bufferPeriodEnd
}

// --- helpers ---

func copyInts(in []sdkmath.Int) []sdkmath.Int {
	return append([]sdkmath.Int(nil), in...)
}

func equalInts(a, b []sdkmath.Int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func copyDecs(in []sdkmath.LegacyDec) []sdkmath.LegacyDec {
	return append([]sdkmath.LegacyDec(nil), in...)
}

func zeroInts(n int) []sdkmath.Int {
	out := make([]sdkmath.Int, n)
	for i := range out {
		out[i] = sdkmath.ZeroInt()
	}
	return out
}

// scalingFactors returns 10^-decimals * rate for every token.
func (p *Pool) scalingFactors() ([]sdkmath.LegacyDec, error) {
	factors := make([]sdkmath.LegacyDec, len(p.tokens))
	for i, t := range p.tokens {
		f, err := utils.ScalingFactor(t.Decimals, p.rates[i])
		if err != nil {
			return nil, fmt.Errorf("token %s: %w", t.Address, err)
		}
		factors[i] = f
	}
	return factors, nil
}
