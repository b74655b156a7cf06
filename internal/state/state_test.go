package state

import (
	"context"
	"testing"

	"github.com/elys-network/wpool/internal/config"
	"github.com/elys-network/wpool/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestDSN(t *testing.T) {
	cfg := DBConfig{Host: "db", Port: 5433, User: "wpool", Password: "secret", DBName: "pools", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=wpool password=secret dbname=pools sslmode=disable", cfg.DSN())
}

func TestStoreRequiresConnection(t *testing.T) {
	DB = nil
	ctx := context.Background()
	var store PostgresStore

	assert.ErrorIs(t, EnsureSchema(), ErrDBNotInitialized)
	assert.ErrorIs(t, ResetSchema(), ErrDBNotInitialized)
	assert.ErrorIs(t, store.SaveDeployment(ctx, 1, "p", types.Deployment{}), ErrDBNotInitialized)
	assert.ErrorIs(t, store.SaveReceipt(ctx, types.Receipt{}), ErrDBNotInitialized)
	assert.ErrorIs(t, store.SaveSnapshot(ctx, types.PoolSnapshot{}), ErrDBNotInitialized)

	_, err := store.PoolHistory(ctx, 1, 10)
	assert.ErrorIs(t, err, ErrDBNotInitialized)
	_, err = store.PoolStats(ctx, 1)
	assert.ErrorIs(t, err, ErrDBNotInitialized)

	_, err = SaveProtocolBounds(config.DefaultProtocolBounds, config.DefaultBoundsConfigName, 1, true)
	assert.ErrorIs(t, err, ErrDBNotInitialized)
	_, err = LoadOrSeedProtocolBounds(config.DefaultBoundsConfigName, 1, config.DefaultProtocolBounds)
	assert.ErrorIs(t, err, ErrDBNotInitialized)
	assert.Error(t, TestDBConnection())
}
