// ./internal/state/parameters_store.go
package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/elys-network/wpool/internal/types"
	"github.com/rs/zerolog/log"
)

var ErrNoActiveBounds = errors.New("no active protocol bounds")

// SaveProtocolBounds saves a new version of the protocol bounds.
func SaveProtocolBounds(bounds types.ProtocolBounds, configName string, version int, makeActive bool) (int64, error) {
	if DB == nil {
		return 0, ErrDBNotInitialized
	}

	boundsJSON, err := json.Marshal(bounds)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal protocol bounds: %w", err)
	}

	tx, err := DB.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p) // Re-panic after rollback
		} else if err != nil {
			tx.Rollback() // Rollback if error occurred
		}
	}()

	if makeActive {
		stmtDeactivate := `UPDATE protocol_bounds SET is_active = FALSE WHERE config_name = $1 AND is_active = TRUE;`
		_, err = tx.Exec(stmtDeactivate, configName)
		if err != nil {
			return 0, fmt.Errorf("failed to deactivate existing active bounds for %s: %w", configName, err)
		}
	}

	stmt := `
        INSERT INTO protocol_bounds (version, config_name, is_active, activated_at, created_at, bounds)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING bounds_id;`

	var boundsID int64
	currentTime := time.Now()
	err = tx.QueryRow(stmt, version, configName, makeActive, currentTime, currentTime, boundsJSON).Scan(&boundsID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert protocol bounds: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Info().
		Int("version", version).
		Str("config", configName).
		Int64("bounds_id", boundsID).
		Bool("active", makeActive).
		Msg("Saved protocol bounds")
	return boundsID, nil
}

// LoadActiveProtocolBounds loads the currently active protocol bounds. It returns
// ErrNoActiveBounds when none has been activated for the config name.
func LoadActiveProtocolBounds(configName string) (*types.ProtocolBounds, error) {
	if DB == nil {
		return nil, ErrDBNotInitialized
	}

	query := `
        SELECT bounds
        FROM protocol_bounds
        WHERE config_name = $1 AND is_active = TRUE
        ORDER BY activated_at DESC
        LIMIT 1;`

	var boundsJSON []byte
	err := DB.QueryRow(query, configName).Scan(&boundsJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w for config '%s'", ErrNoActiveBounds, configName)
		}
		return nil, fmt.Errorf("failed to scan active protocol bounds for config '%s': %w", configName, err)
	}

	bounds := &types.ProtocolBounds{}
	if err := json.Unmarshal(boundsJSON, bounds); err != nil {
		return nil, fmt.Errorf("failed to unmarshal protocol bounds for config '%s': %w", configName, err)
	}
	log.Info().Str("config", configName).Msg("Loaded active protocol bounds")
	return bounds, nil
}

// LoadOrSeedProtocolBounds returns the active bounds, saving fallback as the active version
// when none exists yet.
func LoadOrSeedProtocolBounds(configName string, version int, fallback types.ProtocolBounds) (types.ProtocolBounds, error) {
	bounds, err := LoadActiveProtocolBounds(configName)
	if err == nil {
		return *bounds, nil
	}
	if !errors.Is(err, ErrNoActiveBounds) {
		return types.ProtocolBounds{}, err
	}
	if _, err := SaveProtocolBounds(fallback, configName, version, true); err != nil {
		return types.ProtocolBounds{}, err
	}
	return fallback, nil
}
