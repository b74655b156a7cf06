package accountant

import (
	"context"
	"strconv"
	"time"

	"github.com/elys-network/wpool/internal/pool"
	"github.com/elys-network/wpool/internal/types"

	"github.com/google/uuid"
)

// CollectAumFees mints the management fees a pool has accrued since its last collection.
func (a *Accountant) CollectAumFees(ctx context.Context, id types.PoolID) (types.AumFeeResult, error) {
	res, err := execute(ctx, a, id, types.OpCollectAumFees, func(p *pool.Pool, settle types.SettleFunc) (types.AumFeeResult, error) {
		return p.CollectAumManagementFees(settle)
	}, aumReceipt)
	if err == nil && res.BptMinted.IsPositive() {
		a.metrics.IncAumCollection(strconv.FormatUint(uint64(id), 10))
	}
	return res, err
}

// RunAumLoop collects management fees of every managed pool on each tick until ctx is done.
func (a *Accountant) RunAumLoop(ctx context.Context, interval time.Duration) {
	a.logger.Info().
		Dur("interval", interval).
		Msg("Starting management fee collection loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info().Msg("Management fee loop stopped due to context cancellation")
			return
		case <-ticker.C:
			a.RunAumCycle(ctx)
		}
	}
}

// RunAumCycle performs one collection pass and returns the number of pools that minted fees.
func (a *Accountant) RunAumCycle(ctx context.Context) int {
	a.mu.Lock()
	a.cycleCount++
	cycle := a.cycleCount
	a.mu.Unlock()

	// Unique cycle ID for tracing logs across the pass
	cycleLogger := a.logger.With().Str("cycle_id", uuid.New().String()).Int("cycle", cycle).Logger()
	cycleLogger.Debug().Msg("Initiating management fee cycle")

	collected := 0
	for _, id := range a.PoolIDs() {
		if ctx.Err() != nil {
			break
		}
		p, err := a.Pool(id)
		if err != nil || !p.Type().IsManaged() || !p.IsInitialized() || p.ManagementAumFeePercentage().IsZero() {
			continue
		}
		res, err := a.CollectAumFees(ctx, id)
		if err != nil {
			cycleLogger.Error().Err(err).Uint64("pool_id", uint64(id)).Msg("Failed to collect management fees")
			continue
		}
		if res.BptMinted.IsPositive() {
			collected++
		}
	}

	cycleLogger.Debug().Int("collected", collected).Msg("Management fee cycle completed")
	return collected
}
