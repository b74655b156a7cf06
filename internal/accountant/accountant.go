package accountant

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/wpool/internal/config"
	"github.com/elys-network/wpool/internal/logger"
	"github.com/elys-network/wpool/internal/metrics"
	"github.com/elys-network/wpool/internal/pool"
	"github.com/elys-network/wpool/internal/types"
	"github.com/elys-network/wpool/internal/utils"
	"github.com/elys-network/wpool/internal/vault"

	"github.com/rs/zerolog"
)

// DefaultReceiptHistory is the number of receipts kept in memory for the API.
const DefaultReceiptHistory = 1000

var ErrPoolNotFound = errors.New("pool not found")

// Store persists deployments, receipts and pool snapshots. A nil Store disables persistence.
type Store interface {
	SaveDeployment(ctx context.Context, id types.PoolID, name string, d types.Deployment) error
	SaveReceipt(ctx context.Context, r types.Receipt) error
	SaveSnapshot(ctx context.Context, s types.PoolSnapshot) error
}

// Accountant owns the pools and settles every state-changing operation against the vault.
type Accountant struct {
	// Core dependencies
	logger  zerolog.Logger
	vault   vault.Ledger
	store   Store
	metrics *metrics.Metrics
	clock   pool.Clock
	bounds  types.ProtocolBounds

	// Runtime state
	mu          sync.RWMutex
	pools       map[types.PoolID]*pool.Pool
	names       map[types.PoolID]string
	nextID      types.PoolID
	receipts    []types.Receipt // ring buffer, oldest at receiptHead once full
	receiptCap  int
	receiptHead int
	cycleCount  int
}

// Config holds the configuration for creating a new Accountant instance
type Config struct {
	Vault          vault.Ledger
	Store          Store                 // Optional
	Metrics        *metrics.Metrics      // Optional
	Clock          pool.Clock            // Defaults to the wall clock
	Bounds         *types.ProtocolBounds // Defaults to config.DefaultProtocolBounds
	ReceiptHistory int                   // Defaults to DefaultReceiptHistory
}

// New creates a new Accountant instance with dependency injection
func New(cfg Config) (*Accountant, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("accountant configuration validation failed: %w", err)
	}

	a := &Accountant{
		logger:     logger.GetForComponent("accountant"),
		vault:      cfg.Vault,
		store:      cfg.Store,
		metrics:    cfg.Metrics,
		clock:      cfg.Clock,
		bounds:     config.DefaultProtocolBounds,
		pools:      make(map[types.PoolID]*pool.Pool),
		names:      make(map[types.PoolID]string),
		nextID:     1,
		receiptCap: cfg.ReceiptHistory,
	}
	if a.clock == nil {
		a.clock = pool.SystemClock()
	}
	if cfg.Bounds != nil {
		a.bounds = *cfg.Bounds
	}
	if a.receiptCap == 0 {
		a.receiptCap = DefaultReceiptHistory
	}

	a.logger.Info().
		Bool("persistence", a.store != nil).
		Bool("metrics", a.metrics != nil).
		Int("receiptHistory", a.receiptCap).
		Msg("Accountant instance created")
	return a, nil
}

func validateConfig(cfg Config) error {
	if cfg.Vault == nil {
		return fmt.Errorf("vault cannot be nil")
	}
	if cfg.ReceiptHistory < 0 {
		return fmt.Errorf("receipt history must not be negative")
	}
	if cfg.Bounds != nil {
		if cfg.Bounds.MinTokens < 2 || cfg.Bounds.MaxTokens < cfg.Bounds.MinTokens {
			return fmt.Errorf("invalid token count bounds [%d, %d]", cfg.Bounds.MinTokens, cfg.Bounds.MaxTokens)
		}
		if cfg.Bounds.MinimumBpt.IsNil() || cfg.Bounds.MinimumBpt.IsNegative() {
			return fmt.Errorf("minimum bpt must not be negative")
		}
	}
	return nil
}

// Bounds returns the protocol bounds new pools are validated against.
func (a *Accountant) Bounds() types.ProtocolBounds { return a.bounds }

func (a *Accountant) Vault() vault.Ledger { return a.vault }

// Deploy resolves and validates a deployment, creates the pool and registers it under a fresh
// pool id. The deployment is persisted before the pool becomes visible.
func (a *Accountant) Deploy(ctx context.Context, name string, raw types.RawDeployment) (types.PoolID, error) {
	cfg, err := raw.Resolve()
	if err != nil {
		return 0, fmt.Errorf("failed to resolve deployment: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	id := a.nextID
	p, err := pool.New(id, cfg, a.bounds,
		pool.WithClock(a.clock),
		pool.WithLogger(logger.GetForComponent("pool")),
	)
	if err != nil {
		a.logger.Warn().Err(err).Str("name", name).Msg("Deployment rejected")
		return 0, err
	}
	if a.store != nil {
		if err := a.store.SaveDeployment(ctx, id, name, cfg); err != nil {
			return 0, fmt.Errorf("failed to persist deployment %d: %w", id, err)
		}
	}

	a.pools[id] = p
	a.names[id] = name
	a.nextID++
	a.metrics.SetPoolsDeployed(len(a.pools))

	a.logger.Info().
		Uint64("pool_id", uint64(id)).
		Str("name", name).
		Str("pool_type", cfg.PoolType.String()).
		Int("tokens", len(cfg.Tokens)).
		Msg("Pool deployed")
	return id, nil
}

// Pool returns a registered pool.
func (a *Accountant) Pool(id types.PoolID) (*pool.Pool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	p, ok := a.pools[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrPoolNotFound, id)
	}
	return p, nil
}

func (a *Accountant) Name(id types.PoolID) string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.names[id]
}

// PoolIDs returns the registered pool ids in ascending order.
func (a *Accountant) PoolIDs() []types.PoolID {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ids := make([]types.PoolID, 0, len(a.pools))
	for id := range a.pools {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Snapshots returns the state of every pool, ordered by id.
func (a *Accountant) Snapshots() []types.PoolSnapshot {
	ids := a.PoolIDs()
	out := make([]types.PoolSnapshot, 0, len(ids))
	for _, id := range ids {
		if p, err := a.Pool(id); err == nil {
			out = append(out, p.Snapshot())
		}
	}
	return out
}

func (a *Accountant) Snapshot(id types.PoolID) (types.PoolSnapshot, error) {
	p, err := a.Pool(id)
	if err != nil {
		return types.PoolSnapshot{}, err
	}
	return p.Snapshot(), nil
}

// settle applies a settlement to the vault unless the request was cancelled.
func (a *Accountant) settle(ctx context.Context) types.SettleFunc {
	return func(s types.Settlement) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return a.vault.Settle(s)
	}
}

// record keeps a committed receipt, persists it together with a pool snapshot and refreshes
// the pool metrics. Persistence failures are logged: the operation has already committed.
func (a *Accountant) record(ctx context.Context, p *pool.Pool, r types.Receipt) {
	a.mu.Lock()
	if len(a.receipts) < a.receiptCap {
		a.receipts = append(a.receipts, r)
	} else {
		a.receipts[a.receiptHead] = r
		a.receiptHead = (a.receiptHead + 1) % a.receiptCap
	}
	a.mu.Unlock()

	id := strconv.FormatUint(uint64(p.ID()), 10)
	if f, err := utils.BptToDec(p.TotalSupply()).Float64(); err == nil {
		a.metrics.SetBptSupply(id, f)
	}

	if a.store == nil {
		return
	}
	if err := a.store.SaveReceipt(ctx, r); err != nil {
		a.logger.Error().Err(err).Str("receipt_id", r.ID).Msg("Failed to persist receipt")
	}
	if err := a.store.SaveSnapshot(ctx, p.Snapshot()); err != nil {
		a.logger.Error().Err(err).Str("pool_id", id).Msg("Failed to persist pool snapshot")
	}
}

// Receipts returns up to limit receipts, newest first. A zero pool id matches every pool.
func (a *Accountant) Receipts(id types.PoolID, limit int) []types.Receipt {
	a.mu.RLock()
	defer a.mu.RUnlock()

	n := len(a.receipts)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]types.Receipt, 0, limit)
	for i := 0; i < n && len(out) < limit; i++ {
		// Walk backwards from the newest entry.
		idx := (a.receiptHead - 1 - i + 2*n) % n
		r := a.receipts[idx]
		if id != 0 && r.PoolID != id {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Balance returns an account's holding of an asset in the vault.
func (a *Accountant) Balance(account, asset string) sdkmath.Int {
	return a.vault.Balance(account, asset)
}

// observe is called once per execute or query with the outcome.
func (a *Accountant) observe(id types.PoolID, op types.OperationType, started time.Time, err error) {
	a.metrics.ObserveOperation(op, started, err)
	if err == nil {
		a.logger.Debug().Uint64("pool_id", uint64(id)).Str("operation", string(op)).Msg("Operation completed")
		return
	}
	if errors.Is(err, pool.ErrCircuitBreakerTripped) {
		a.metrics.IncBreakerTrip(strconv.FormatUint(uint64(id), 10))
	}
	a.logger.Warn().Err(err).Uint64("pool_id", uint64(id)).Str("operation", string(op)).Msg("Operation rejected")
}
