package ledger

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alevras/tally/internal/domain"
	"github.com/alevras/tally/internal/events"
	"github.com/alevras/tally/internal/ingest"
)

const testMint = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"

// memSnapshots is an in-memory SnapshotStore for service tests
type memSnapshots struct {
	trades map[string][]domain.UnifiedTrade
	stores int
}

func newMemSnapshots() *memSnapshots {
	return &memSnapshots{trades: make(map[string][]domain.UnifiedTrade)}
}

func (m *memSnapshots) Store(agentID string, trades []domain.UnifiedTrade) error {
	m.trades[agentID] = trades
	m.stores++
	return nil
}

func (m *memSnapshots) Get(agentID string, _ time.Duration) ([]domain.UnifiedTrade, bool, error) {
	trades, ok := m.trades[agentID]
	return trades, ok, nil
}

func newTestService(t *testing.T) (*Service, *memSnapshots, *events.Bus) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewRepository(db, log)
	require.NoError(t, repo.InitSchema())

	snaps := newMemSnapshots()
	bus := events.NewBus(log)
	svc := NewService(repo, snaps, bus, 150.0, log)
	return svc, snaps, bus
}

func TestImportBatch_TokenBotCSV(t *testing.T) {
	svc, snaps, _ := newTestService(t)

	csv := "token_symbol,side,purchase_price,profit_loss,amount,timestamp\n" +
		"BONK,BUY,0.0000123,0.005,1000,2024-06-01T12:00:00Z\n" +
		"WIF,BUY,0.0021,-0.002,500,2024-06-01T13:00:00Z\n" +
		"PEPE,BUY,0.0000005,0.001,2000,2024-06-01T14:00:00Z\n"

	report, err := svc.ImportBatch(csv, "", "agent-1")
	require.NoError(t, err)

	assert.Equal(t, "tokenbot", report.Dialect)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 3, report.Imported)
	assert.Equal(t, 0, report.Duplicates)
	assert.Empty(t, report.Errors)

	// Embedded P&L closes each entry without a paired sell
	trades, err := svc.Trades("agent-1", 0)
	require.NoError(t, err)
	require.Len(t, trades, 3)
	for _, trade := range trades {
		assert.Equal(t, domain.TradeStatusClosed, trade.Status)
		assert.Equal(t, domain.PairingExact, trade.Confidence)
	}

	// Import refreshed the snapshot eagerly
	assert.Equal(t, 1, snaps.stores)
}

func TestImportBatch_ReimportIsAllDuplicates(t *testing.T) {
	svc, _, _ := newTestService(t)

	csv := "token_symbol,purchase_price,profit_loss,amount,timestamp\n" +
		"BONK,0.0000123,0.005,1000,2024-06-01T12:00:00Z\n"

	report, err := svc.ImportBatch(csv, "", "agent-1")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Imported)

	report, err = svc.ImportBatch(csv, "", "agent-1")
	require.NoError(t, err)
	assert.Equal(t, 0, report.Imported)
	assert.Equal(t, 1, report.Duplicates)
}

func TestImportBatch_AccountsForEveryRecord(t *testing.T) {
	svc, _, _ := newTestService(t)

	// Row 2 has a placeholder token, row 3 is ragged
	csv := "token_symbol,purchase_price,profit_loss,amount,timestamp\n" +
		"BONK,0.0000123,0.005,1000,2024-06-01T12:00:00Z\n" +
		"Unknown,0.0021,-0.002,500,2024-06-01T13:00:00Z\n" +
		"WIF,0.0021\n"

	report, err := svc.ImportBatch(csv, "", "agent-1")
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 1, report.Imported)
	assert.Equal(t, 1, report.ParseErrors)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, 2, report.Errors[0].Line)
	assert.Contains(t, report.Errors[0].Reasons, "missing token")
	assert.Equal(t, report.Total, report.Imported+report.Duplicates+report.ParseErrors+len(report.Errors))
}

func TestImportBatch_EmptyInput(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.ImportBatch("   \n", "", "agent-1")
	assert.Error(t, err)
}

func TestImportBatch_PublishesEvent(t *testing.T) {
	svc, _, bus := newTestService(t)

	var got events.BatchImportedData
	bus.Subscribe(events.BatchImported, func(e events.Event) {
		got = e.Data.(events.BatchImportedData)
	})

	csv := "token_symbol,purchase_price,profit_loss,amount,timestamp\n" +
		"BONK,0.0000123,0.005,1000,2024-06-01T12:00:00Z\n"
	_, err := svc.ImportBatch(csv, "", "agent-1")
	require.NoError(t, err)

	assert.Equal(t, "agent-1", got.AgentID)
	assert.Equal(t, "tokenbot", got.Dialect)
	assert.Equal(t, 1, got.Imported)
}

func TestIngestWebhook(t *testing.T) {
	svc, _, bus := newTestService(t)

	var ingested events.LegIngestedData
	bus.Subscribe(events.LegIngested, func(e events.Event) {
		ingested = e.Data.(events.LegIngestedData)
	})

	raw := ingest.RawRecord{
		"action":       "buy",
		"token":        testMint,
		"amount":       0.5,
		"denominated":  "SOL",
		"currentPrice": 0.0000123,
	}

	leg, fresh, err := svc.IngestWebhook(raw, "agent-7")
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.Equal(t, domain.LegStatusPending, leg.Status)
	assert.Equal(t, "agent-7", leg.AgentID)
	assert.Equal(t, leg.ID, ingested.LegID)
	assert.Equal(t, ingest.SourceWebhook, ingested.Source)
}

func TestIngestWebhook_InvalidPayload(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, _, err := svc.IngestWebhook(ingest.RawRecord{"action": "buy"}, "agent-7")
	assert.Error(t, err)
}

func TestIngestStreamEvent_IgnoresNonTradeKinds(t *testing.T) {
	svc, _, _ := newTestService(t)

	leg, fresh, err := svc.IngestStreamEvent("agent_heartbeat", ingest.RawRecord{}, "agent-1")
	require.NoError(t, err)
	assert.Nil(t, leg)
	assert.False(t, fresh)
}

func TestIngestStreamEvent_TradePersisted(t *testing.T) {
	svc, _, _ := newTestService(t)

	raw := ingest.RawRecord{
		"tokenSymbol": "BONK",
		"entryPrice":  0.0000123,
		"quantity":    1000.0,
		"side":        "BUY",
		"status":      "open",
		"timestamp":   "2024-06-01T12:00:00Z",
	}

	leg, fresh, err := svc.IngestStreamEvent("new_trade", raw, "agent-1")
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.Equal(t, ingest.SourceStream, leg.SourceFormat)

	// Duplicate delivery of the same event is skipped
	_, fresh, err = svc.IngestStreamEvent("new_trade", raw, "agent-1")
	require.NoError(t, err)
	assert.False(t, fresh)
}

func TestTrades_RateOverrideBypassesSnapshot(t *testing.T) {
	svc, snaps, _ := newTestService(t)

	csv := "token_symbol,side,purchase_price,amount,timestamp\n" +
		"BONK,BUY,0.01,100,2024-06-01T12:00:00Z\n" +
		"BONK,SELL,0.015,100,2024-06-01T13:00:00Z\n"
	_, err := svc.ImportBatch(csv, "", "agent-1")
	require.NoError(t, err)

	// Poison the snapshot; the default-rate path must serve it
	snaps.trades["agent-1"] = []domain.UnifiedTrade{}
	trades, err := svc.Trades("agent-1", 0)
	require.NoError(t, err)
	assert.Empty(t, trades)

	// An explicit override recomputes from the leg store
	trades, err = svc.Trades("agent-1", 100.0)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.InDelta(t, 0.5, trades[0].Pnl, 1e-9)
	assert.InDelta(t, 0.005, trades[0].PnlSol, 1e-9)
}

func TestSummary(t *testing.T) {
	svc, _, _ := newTestService(t)

	csv := "token_symbol,side,purchase_price,profit_loss,amount,timestamp\n" +
		"BONK,BUY,0.0000123,0.005,1000,2024-06-01T12:00:00Z\n" +
		"WIF,BUY,0.0021,-0.002,500,2024-06-01T13:00:00Z\n"
	_, err := svc.ImportBatch(csv, "", "agent-1")
	require.NoError(t, err)

	summary, err := svc.Summary("agent-1", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalTrades)
	assert.Equal(t, 1, summary.Wins)
	assert.Equal(t, 1, summary.Losses)
	assert.InDelta(t, 50.0, summary.WinRate, 1e-9)
}

func TestAgents(t *testing.T) {
	svc, _, _ := newTestService(t)

	csv := "token_symbol,purchase_price,profit_loss,amount,timestamp\n" +
		"BONK,0.0000123,0.005,1000,2024-06-01T12:00:00Z\n"
	_, err := svc.ImportBatch(csv, "", "agent-b")
	require.NoError(t, err)
	_, err = svc.ImportBatch(csv, "", "agent-a")
	require.NoError(t, err)

	agents, err := svc.Agents()
	require.NoError(t, err)
	assert.Equal(t, []string{"agent-a", "agent-b"}, agents)
}
