package state

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/elys-network/wpool/internal/types"
	"github.com/rs/zerolog/log"
)

// PoolStats summarizes the persisted activity of a pool.
type PoolStats struct {
	PoolID          types.PoolID                `json:"pool_id"`
	TotalOperations int                         `json:"total_operations"`
	ByOperation     map[types.OperationType]int `json:"by_operation"`
	Snapshots       int                         `json:"snapshots"`
	LastActivity    string                      `json:"last_activity,omitempty"`
}

// GetPoolHistory retrieves recent snapshots of a pool with pagination
func GetPoolHistory(ctx context.Context, id types.PoolID, limit int) ([]types.PoolSnapshot, error) {
	if DB == nil {
		return nil, ErrDBNotInitialized
	}

	if limit <= 0 || limit > 100 {
		limit = 10 // Default limit
	}

	query := `
		SELECT snapshot
		FROM pool_snapshots
		WHERE pool_id = $1
		ORDER BY snapshot_timestamp DESC, snapshot_id DESC
		LIMIT $2
	`

	rows, err := DB.QueryContext(ctx, query, int64(id), limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to query pool history")
		return nil, fmt.Errorf("failed to query pool history: %w", err)
	}
	defer rows.Close()

	var snapshots []types.PoolSnapshot
	for rows.Next() {
		var snapshotJSON []byte
		if err := rows.Scan(&snapshotJSON); err != nil {
			log.Error().Err(err).Msg("Failed to scan snapshot row")
			continue // Skip this row and continue with others
		}
		var snap types.PoolSnapshot
		if err := json.Unmarshal(snapshotJSON, &snap); err != nil {
			log.Error().Err(err).Uint64("pool_id", uint64(id)).Msg("Failed to unmarshal pool snapshot")
			continue
		}
		snapshots = append(snapshots, snap)
	}

	if err := rows.Err(); err != nil {
		log.Error().Err(err).Msg("Error occurred during row iteration")
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	log.Debug().Int("count", len(snapshots)).Int("limit", limit).Msg("Retrieved pool history")
	return snapshots, nil
}

// GetPoolStats aggregates the receipts and snapshots of a pool.
func GetPoolStats(ctx context.Context, id types.PoolID) (*PoolStats, error) {
	if DB == nil {
		return nil, ErrDBNotInitialized
	}

	stats := &PoolStats{PoolID: id, ByOperation: make(map[types.OperationType]int)}

	rows, err := DB.QueryContext(ctx, `
		SELECT operation, COUNT(*)
		FROM pool_receipts
		WHERE pool_id = $1
		GROUP BY operation
	`, int64(id))
	if err != nil {
		return nil, fmt.Errorf("failed to count receipts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var op string
		var count int
		if err := rows.Scan(&op, &count); err != nil {
			return nil, fmt.Errorf("failed to scan receipt count: %w", err)
		}
		stats.ByOperation[types.OperationType(op)] = count
		stats.TotalOperations += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	var last *string
	err = DB.QueryRowContext(ctx, `
		SELECT COUNT(*), to_char(MAX(snapshot_timestamp), 'YYYY-MM-DD"T"HH24:MI:SSOF')
		FROM pool_snapshots
		WHERE pool_id = $1
	`, int64(id)).Scan(&stats.Snapshots, &last)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get snapshot count")
	}
	if last != nil {
		stats.LastActivity = *last
	}
	return stats, nil
}
