package ledger

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/alevras/tally/internal/domain"
)

// Repository handles trade leg database operations
type Repository struct {
	ledgerDB *sql.DB // ledger.db - trade_legs table
	log      zerolog.Logger
}

// legColumns is the list of columns for the trade_legs table
// Used to avoid SELECT * which can break when schema changes
// Column order must match scanLeg() expectations
const legColumns = `id, agent_id, side, status, token_symbol, token_address, ref_url,
	quantity, entry_price, exit_price, position_size_sol, exit_position_sol,
	pnl, pnl_percent, fees, timestamp, exit_timestamp, linked_leg_id,
	error_type, error_message, dex, tx_signature, source_format, created_at`

// Schema is the DDL for the trade_legs table. Quantity and entry price
// carry CHECK constraints mirroring domain validation so a future write
// path cannot sneak invalid legs past the normalizer.
const Schema = `
CREATE TABLE IF NOT EXISTS trade_legs (
	id                TEXT PRIMARY KEY,
	agent_id          TEXT NOT NULL,
	side              TEXT NOT NULL CHECK (side IN ('BUY', 'SELL')),
	status            TEXT NOT NULL,
	token_symbol      TEXT NOT NULL DEFAULT '',
	token_address     TEXT,
	ref_url           TEXT,
	quantity          REAL NOT NULL CHECK (quantity > 0),
	entry_price       REAL NOT NULL CHECK (entry_price > 0),
	exit_price        REAL NOT NULL DEFAULT 0,
	position_size_sol REAL NOT NULL DEFAULT 0,
	exit_position_sol REAL NOT NULL DEFAULT 0,
	pnl               REAL NOT NULL DEFAULT 0,
	pnl_percent       REAL NOT NULL DEFAULT 0,
	fees              REAL NOT NULL DEFAULT 0,
	timestamp         INTEGER NOT NULL,
	exit_timestamp    INTEGER NOT NULL DEFAULT 0,
	linked_leg_id     TEXT,
	error_type        TEXT,
	error_message     TEXT,
	dex               TEXT,
	tx_signature      TEXT,
	source_format     TEXT NOT NULL DEFAULT '',
	created_at        INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trade_legs_agent ON trade_legs(agent_id);
CREATE INDEX IF NOT EXISTS idx_trade_legs_agent_ts ON trade_legs(agent_id, timestamp);
`

// NewRepository creates a new trade leg repository
func NewRepository(ledgerDB *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "ledger").Logger(),
	}
}

// InitSchema creates the trade_legs table and indexes if missing
func (r *Repository) InitSchema() error {
	if _, err := r.ledgerDB.Exec(Schema); err != nil {
		return fmt.Errorf("failed to create ledger schema: %w", err)
	}
	return nil
}

// InsertLeg persists a single normalized leg. Re-inserting an already
// stored id is a no-op (INSERT OR IGNORE): identity duplicates are
// filtered upstream by dedup, this is the storage-level backstop.
// Returns true when a row was actually written.
func (r *Repository) InsertLeg(leg domain.TradeLeg) (bool, error) {
	if err := leg.Validate(); err != nil {
		return false, fmt.Errorf("failed to insert leg: %w", err)
	}

	query := `
		INSERT OR IGNORE INTO trade_legs
		(id, agent_id, side, status, token_symbol, token_address, ref_url,
		 quantity, entry_price, exit_price, position_size_sol, exit_position_sol,
		 pnl, pnl_percent, fees, timestamp, exit_timestamp, linked_leg_id,
		 error_type, error_message, dex, tx_signature, source_format, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := r.ledgerDB.Exec(query,
		leg.ID,
		leg.AgentID,
		string(leg.Side),
		string(leg.Status),
		leg.TokenSymbol,
		nullString(leg.TokenAddress),
		nullString(leg.RefURL),
		leg.Quantity,
		leg.EntryPrice,
		leg.ExitPrice,
		leg.PositionSizeSol,
		leg.ExitPositionSol,
		leg.Pnl,
		leg.PnlPercent,
		leg.Fees,
		leg.Timestamp,
		leg.ExitTimestamp,
		nullString(leg.LinkedLegID),
		nullString(leg.ErrorType),
		nullString(leg.ErrorMessage),
		nullString(leg.Dex),
		nullString(leg.TxSignature),
		leg.SourceFormat,
		time.Now().UnixMilli(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert leg %s: %w", leg.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to insert leg %s: %w", leg.ID, err)
	}
	return affected > 0, nil
}

// InsertLegs persists a batch of legs inside one transaction and returns
// the number of rows actually written (previously stored ids are skipped)
func (r *Repository) InsertLegs(legs []domain.TradeLeg) (int, error) {
	if len(legs) == 0 {
		return 0, nil
	}

	tx, err := r.ledgerDB.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin insert transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT OR IGNORE INTO trade_legs
		(id, agent_id, side, status, token_symbol, token_address, ref_url,
		 quantity, entry_price, exit_price, position_size_sol, exit_position_sol,
		 pnl, pnl_percent, fees, timestamp, exit_timestamp, linked_leg_id,
		 error_type, error_message, dex, tx_signature, source_format, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	stmt, err := tx.Prepare(query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UnixMilli()
	inserted := 0
	for _, leg := range legs {
		if err := leg.Validate(); err != nil {
			return 0, fmt.Errorf("failed to insert batch: %w", err)
		}
		res, err := stmt.Exec(
			leg.ID,
			leg.AgentID,
			string(leg.Side),
			string(leg.Status),
			leg.TokenSymbol,
			nullString(leg.TokenAddress),
			nullString(leg.RefURL),
			leg.Quantity,
			leg.EntryPrice,
			leg.ExitPrice,
			leg.PositionSizeSol,
			leg.ExitPositionSol,
			leg.Pnl,
			leg.PnlPercent,
			leg.Fees,
			leg.Timestamp,
			leg.ExitTimestamp,
			nullString(leg.LinkedLegID),
			nullString(leg.ErrorType),
			nullString(leg.ErrorMessage),
			nullString(leg.Dex),
			nullString(leg.TxSignature),
			leg.SourceFormat,
			now,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert leg %s: %w", leg.ID, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to insert leg %s: %w", leg.ID, err)
		}
		if affected > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit insert transaction: %w", err)
	}

	r.log.Debug().
		Int("legs", len(legs)).
		Int("inserted", inserted).
		Msg("Leg batch persisted")

	return inserted, nil
}

// GetByAgent retrieves all legs recorded for an agent, newest first
func (r *Repository) GetByAgent(agentID string) ([]domain.TradeLeg, error) {
	query := "SELECT " + legColumns + " FROM trade_legs WHERE agent_id = ? ORDER BY timestamp DESC"

	rows, err := r.ledgerDB.Query(query, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get legs for agent %s: %w", agentID, err)
	}
	defer rows.Close()

	var legs []domain.TradeLeg
	for rows.Next() {
		leg, err := r.scanLeg(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leg: %w", err)
		}
		legs = append(legs, leg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate legs: %w", err)
	}

	return legs, nil
}

// GetByID retrieves a single leg, or nil when no such id exists
func (r *Repository) GetByID(id string) (*domain.TradeLeg, error) {
	query := "SELECT " + legColumns + " FROM trade_legs WHERE id = ?"

	rows, err := r.ledgerDB.Query(query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get leg %s: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	leg, err := r.scanLeg(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan leg %s: %w", id, err)
	}
	return &leg, nil
}

// ListAgents returns the distinct agent ids present in the ledger
func (r *Repository) ListAgents() ([]string, error) {
	rows, err := r.ledgerDB.Query(`SELECT DISTINCT agent_id FROM trade_legs ORDER BY agent_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	defer rows.Close()

	var agents []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan agent id: %w", err)
		}
		agents = append(agents, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate agents: %w", err)
	}

	return agents, nil
}

// KnownIDs returns the set of leg ids already stored for an agent,
// used to seed duplicate filtering before a batch import
func (r *Repository) KnownIDs(agentID string) (map[string]struct{}, error) {
	rows, err := r.ledgerDB.Query(`SELECT id FROM trade_legs WHERE agent_id = ?`, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get known ids for agent %s: %w", agentID, err)
	}
	defer rows.Close()

	known := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan leg id: %w", err)
		}
		known[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leg ids: %w", err)
	}

	return known, nil
}

// CountByAgent returns the number of stored legs for an agent
func (r *Repository) CountByAgent(agentID string) (int, error) {
	var count int
	err := r.ledgerDB.QueryRow(`SELECT COUNT(*) FROM trade_legs WHERE agent_id = ?`, agentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count legs for agent %s: %w", agentID, err)
	}
	return count, nil
}

// Helper methods

func (r *Repository) scanLeg(rows *sql.Rows) (domain.TradeLeg, error) {
	var leg domain.TradeLeg
	var tokenAddress, refURL, linkedLegID sql.NullString
	var errorType, errorMessage, dex, txSignature sql.NullString
	var createdAt int64

	err := rows.Scan(
		&leg.ID,
		&leg.AgentID,
		&leg.Side,
		&leg.Status,
		&leg.TokenSymbol,
		&tokenAddress,
		&refURL,
		&leg.Quantity,
		&leg.EntryPrice,
		&leg.ExitPrice,
		&leg.PositionSizeSol,
		&leg.ExitPositionSol,
		&leg.Pnl,
		&leg.PnlPercent,
		&leg.Fees,
		&leg.Timestamp,
		&leg.ExitTimestamp,
		&linkedLegID,
		&errorType,
		&errorMessage,
		&dex,
		&txSignature,
		&leg.SourceFormat,
		&createdAt,
	)
	if err != nil {
		return leg, err
	}

	// Handle optional fields
	if tokenAddress.Valid {
		leg.TokenAddress = tokenAddress.String
	}
	if refURL.Valid {
		leg.RefURL = refURL.String
	}
	if linkedLegID.Valid {
		leg.LinkedLegID = linkedLegID.String
	}
	if errorType.Valid {
		leg.ErrorType = errorType.String
	}
	if errorMessage.Valid {
		leg.ErrorMessage = errorMessage.String
	}
	if dex.Valid {
		leg.Dex = dex.String
	}
	if txSignature.Valid {
		leg.TxSignature = txSignature.String
	}

	return leg, nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}
