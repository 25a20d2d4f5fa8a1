// Package snapshots provides persistent caching of reconciled trade sets.
// Unification is recomputed from the full leg set on every pass, so read
// endpoints serve the last snapshot instead of re-unifying per request.
// Snapshots are stored as msgpack blobs with their write time for
// staleness checks; they are rebuildable and live in the cache database.
package snapshots

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/alevras/tally/internal/domain"
)

// Schema is the DDL for the snapshots table
const Schema = `
CREATE TABLE IF NOT EXISTS trade_snapshots (
	agent_id    TEXT PRIMARY KEY,
	data        BLOB NOT NULL,
	trade_count INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL
);
`

// Repository provides snapshot storage over the cache database
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new snapshot repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// InitSchema creates the snapshots table if missing
func (r *Repository) InitSchema() error {
	if _, err := r.db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to create snapshots schema: %w", err)
	}
	return nil
}

// Store upserts the reconciled trade set for an agent
func (r *Repository) Store(agentID string, trades []domain.UnifiedTrade) error {
	data, err := msgpack.Marshal(trades)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot for agent %s: %w", agentID, err)
	}

	query := `
		INSERT OR REPLACE INTO trade_snapshots (agent_id, data, trade_count, updated_at)
		VALUES (?, ?, ?, ?)
	`
	if _, err := r.db.Exec(query, agentID, data, len(trades), time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to store snapshot for agent %s: %w", agentID, err)
	}
	return nil
}

// Get returns the stored trade set for an agent if one exists and is no
// older than maxAge. A zero maxAge accepts any snapshot age.
func (r *Repository) Get(agentID string, maxAge time.Duration) ([]domain.UnifiedTrade, bool, error) {
	query := `SELECT data, updated_at FROM trade_snapshots WHERE agent_id = ?`

	var data []byte
	var updatedAt int64
	err := r.db.QueryRow(query, agentID).Scan(&data, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read snapshot for agent %s: %w", agentID, err)
	}

	if maxAge > 0 {
		age := time.Since(time.UnixMilli(updatedAt))
		if age > maxAge {
			return nil, false, nil
		}
	}

	var trades []domain.UnifiedTrade
	if err := msgpack.Unmarshal(data, &trades); err != nil {
		// A corrupt snapshot is a cache miss, not a failure: the caller
		// re-unifies and overwrites it.
		return nil, false, nil
	}
	return trades, true, nil
}

// Invalidate removes the stored snapshot for an agent
func (r *Repository) Invalidate(agentID string) error {
	if _, err := r.db.Exec(`DELETE FROM trade_snapshots WHERE agent_id = ?`, agentID); err != nil {
		return fmt.Errorf("failed to invalidate snapshot for agent %s: %w", agentID, err)
	}
	return nil
}
