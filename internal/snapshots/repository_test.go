package snapshots

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alevras/tally/internal/domain"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := NewRepository(db)
	require.NoError(t, repo.InitSchema())
	return repo
}

func sampleTrades() []domain.UnifiedTrade {
	return []domain.UnifiedTrade{
		{
			ID:          "BONK-1717243200000-12",
			Status:      domain.TradeStatusClosed,
			AgentID:     "agent-1",
			TokenSymbol: "BONK",
			EntryPrice:  0.0000123,
			ExitPrice:   0.0000150,
			EntryTime:   1717243200000,
			ExitTime:    1717246800000,
			Quantity:    1000,
			Pnl:         0.0027,
			Confidence:  domain.PairingInferred,
			EntryLegID:  "leg-a",
			ExitLegID:   "leg-b",
		},
		{
			ID:          "WIF-1717250400000-2100",
			Status:      domain.TradeStatusOpen,
			AgentID:     "agent-1",
			TokenSymbol: "WIF",
			EntryPrice:  0.0021,
			EntryTime:   1717250400000,
			Quantity:    500,
			Unrealized:  true,
			Confidence:  domain.PairingExact,
			EntryLegID:  "leg-c",
		},
	}
}

func TestStoreAndGet_RoundTrip(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Store("agent-1", sampleTrades()))

	got, ok, err := repo.Get("agent-1", 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleTrades(), got)
}

func TestGet_MissingAgent(t *testing.T) {
	repo := newTestRepo(t)

	_, ok, err := repo.Get("nobody", 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Overwrites(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Store("agent-1", sampleTrades()))
	require.NoError(t, repo.Store("agent-1", sampleTrades()[:1]))

	got, ok, err := repo.Get("agent-1", 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, got, 1)
}

func TestGet_StaleSnapshotIsMiss(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Store("agent-1", sampleTrades()))

	// Backdate the snapshot past any reasonable staleness bound
	_, err := repo.db.Exec(`UPDATE trade_snapshots SET updated_at = ?`,
		time.Now().Add(-time.Hour).UnixMilli())
	require.NoError(t, err)

	_, ok, err := repo.Get("agent-1", 10*time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// Zero maxAge accepts any age
	_, ok, err = repo.Get("agent-1", 0)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGet_CorruptSnapshotIsMiss(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.db.Exec(
		`INSERT INTO trade_snapshots (agent_id, data, trade_count, updated_at) VALUES (?, ?, ?, ?)`,
		"agent-1", []byte("not msgpack"), 1, time.Now().UnixMilli())
	require.NoError(t, err)

	_, ok, err := repo.Get("agent-1", 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInvalidate(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Store("agent-1", sampleTrades()))
	require.NoError(t, repo.Invalidate("agent-1"))

	_, ok, err := repo.Get("agent-1", 0)
	require.NoError(t, err)
	assert.False(t, ok)
}
