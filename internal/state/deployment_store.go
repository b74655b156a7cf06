package state

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/elys-network/wpool/internal/types"
	"github.com/lib/pq" // PostgreSQL driver for array support
	"github.com/rs/zerolog/log"
)

// SaveDeployment stores the resolved configuration of a newly deployed pool.
func SaveDeployment(ctx context.Context, id types.PoolID, name string, d types.Deployment) error {
	if DB == nil {
		return ErrDBNotInitialized
	}

	deploymentJSON, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal deployment: %w", err)
	}
	tokens := make([]string, len(d.Tokens))
	for i, t := range d.Tokens {
		tokens[i] = t.Address
	}

	query := `
		INSERT INTO pool_deployments (pool_id, name, pool_type, tokens, deployment)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (pool_id) DO UPDATE SET name = EXCLUDED.name, deployment = EXCLUDED.deployment;
	`
	if _, err := DB.ExecContext(ctx, query, int64(id), name, d.PoolType.String(), pq.Array(tokens), deploymentJSON); err != nil {
		return fmt.Errorf("failed to save deployment %d: %w", id, err)
	}

	log.Info().Uint64("pool_id", uint64(id)).Str("name", name).Msg("Pool deployment saved to database")
	return nil
}
