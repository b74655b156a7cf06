// ./internal/state/snapshot_store.go
package state

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/elys-network/wpool/internal/types"
	"github.com/lib/pq" // PostgreSQL driver for array support
	"github.com/rs/zerolog/log"
)

// SaveSnapshot saves a pool snapshot to the database.
func SaveSnapshot(ctx context.Context, snapshot types.PoolSnapshot) (int64, error) {
	if DB == nil {
		return 0, ErrDBNotInitialized
	}

	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	balances := make([]string, len(snapshot.Balances))
	for i, b := range snapshot.Balances {
		balances[i] = b.String()
	}
	weights := make([]string, len(snapshot.NormalizedWeights))
	for i, w := range snapshot.NormalizedWeights {
		weights[i] = w.String()
	}

	query := `
		INSERT INTO pool_snapshots (
			pool_id, change_block, snapshot_timestamp,
			balances, normalized_weights, total_supply, invariant,
			swap_fee_percentage, paused, snapshot
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING snapshot_id;
	`

	var snapshotID int64
	err = DB.QueryRowContext(
		ctx,
		query,
		int64(snapshot.ID), int64(snapshot.LastChangeBlock), snapshot.Timestamp,
		pq.Array(balances), pq.Array(weights), snapshot.TotalSupply.String(), snapshot.Invariant.String(),
		snapshot.SwapFeePercentage.String(), snapshot.Paused, snapshotJSON,
	).Scan(&snapshotID)

	if err != nil {
		return 0, fmt.Errorf("failed to save pool snapshot: %w", err)
	}

	log.Debug().
		Int64("snapshot_id", snapshotID).
		Uint64("pool_id", uint64(snapshot.ID)).
		Uint64("change_block", snapshot.LastChangeBlock).
		Msg("Pool snapshot saved to database")

	return snapshotID, nil
}

// SaveReceipt stores a receipt. Receipts are immutable, so a replay is ignored.
func SaveReceipt(ctx context.Context, r types.Receipt) error {
	if DB == nil {
		return ErrDBNotInitialized
	}

	query := `
		INSERT INTO pool_receipts (receipt_id, pool_id, operation, change_block, sender, recipient, receipt_timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (receipt_id) DO NOTHING;
	`
	if _, err := DB.ExecContext(ctx, query, r.ID, int64(r.PoolID), string(r.Operation), int64(r.Block), r.Sender, r.Recipient, r.Timestamp); err != nil {
		return fmt.Errorf("failed to save receipt %s: %w", r.ID, err)
	}
	return nil
}
