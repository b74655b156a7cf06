package state

import (
	"context"

	"github.com/elys-network/wpool/internal/types"
)

// PostgresStore persists accountant records through the package-level connection pool.
type PostgresStore struct{}

func (PostgresStore) SaveDeployment(ctx context.Context, id types.PoolID, name string, d types.Deployment) error {
	return SaveDeployment(ctx, id, name, d)
}

func (PostgresStore) SaveReceipt(ctx context.Context, r types.Receipt) error {
	return SaveReceipt(ctx, r)
}

func (PostgresStore) SaveSnapshot(ctx context.Context, s types.PoolSnapshot) error {
	_, err := SaveSnapshot(ctx, s)
	return err
}

func (PostgresStore) PoolHistory(ctx context.Context, id types.PoolID, limit int) ([]types.PoolSnapshot, error) {
	return GetPoolHistory(ctx, id, limit)
}

func (PostgresStore) PoolStats(ctx context.Context, id types.PoolID) (*PoolStats, error) {
	return GetPoolStats(ctx, id)
}
