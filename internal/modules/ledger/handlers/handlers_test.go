package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alevras/tally/internal/modules/ledger"
)

const sampleCSV = "token_symbol,side,purchase_price,profit_loss,amount,timestamp\n" +
	"BONK,BUY,0.0000123,0.005,1000,2024-06-01T12:00:00Z\n" +
	"WIF,BUY,0.0021,-0.002,500,2024-06-01T13:00:00Z\n"

// setupTestRouter wires a real service over an in-memory database
func setupTestRouter(t *testing.T) chi.Router {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := ledger.NewRepository(db, log)
	require.NoError(t, repo.InitSchema())

	svc := ledger.NewService(repo, nil, nil, 150.0, log)
	h := NewLedgerHandlers(svc, log)

	r := chi.NewRouter()
	r.Route("/api", h.RegisterRoutes)
	return r
}

func doRequest(t *testing.T, router chi.Router, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleImport(t *testing.T) {
	router := setupTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/import?agent_id=agent-1", sampleCSV)
	require.Equal(t, http.StatusOK, rec.Code)

	var report ledger.ImportReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "tokenbot", report.Dialect)
	assert.Equal(t, 2, report.Imported)
	assert.Equal(t, 0, report.Duplicates)
}

func TestHandleImport_EmptyBody(t *testing.T) {
	router := setupTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/import", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleImport_UnknownFormatHint(t *testing.T) {
	router := setupTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/import?format=xlsx", sampleCSV)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetTrades(t *testing.T) {
	router := setupTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/import?agent_id=agent-1", sampleCSV)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/trades?agent_id=agent-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		AgentID string                   `json:"agent_id"`
		Count   int                      `json:"count"`
		Trades  []map[string]interface{} `json:"trades"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "agent-1", resp.AgentID)
	assert.Equal(t, 2, resp.Count)
	assert.Len(t, resp.Trades, 2)
}

func TestHandleGetTrades_LimitAndRate(t *testing.T) {
	router := setupTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/import?agent_id=agent-1", sampleCSV)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/trades?agent_id=agent-1&limit=1&rate=100", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Count  int                      `json:"count"`
		Trades []map[string]interface{} `json:"trades"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Trades, 1)
}

func TestHandleGetTrades_InvalidRate(t *testing.T) {
	router := setupTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/api/trades?rate=fast", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetSummary(t *testing.T) {
	router := setupTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/import?agent_id=agent-1", sampleCSV)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/trades/summary?agent_id=agent-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var summary struct {
		TotalTrades int     `json:"total_trades"`
		Wins        int     `json:"wins"`
		Losses      int     `json:"losses"`
		WinRate     float64 `json:"win_rate"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 2, summary.TotalTrades)
	assert.Equal(t, 1, summary.Wins)
	assert.Equal(t, 1, summary.Losses)
	assert.InDelta(t, 50.0, summary.WinRate, 1e-9)
}

func TestHandleWebhook(t *testing.T) {
	router := setupTestRouter(t)

	body := `{"action":"buy","token":"DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263","amount":0.5,"denominated":"SOL","currentPrice":0.0000123}`
	rec := doRequest(t, router, http.MethodPost, "/api/webhook/trade?agent_id=agent-9", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Duplicate bool `json:"duplicate"`
		Leg       struct {
			AgentID string `json:"agent_id"`
			Status  string `json:"status"`
		} `json:"leg"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Duplicate)
	assert.Equal(t, "agent-9", resp.Leg.AgentID)
	assert.Equal(t, "PENDING", resp.Leg.Status)
}

func TestHandleWebhook_MissingToken(t *testing.T) {
	router := setupTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/webhook/trade", `{"action":"buy"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleAgentRoutes(t *testing.T) {
	router := setupTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/api/import?agent_id=agent-1", sampleCSV)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/agents/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var agents struct {
		Agents []string `json:"agents"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &agents))
	assert.Equal(t, []string{"agent-1"}, agents.Agents)

	rec = doRequest(t, router, http.MethodGet, "/api/agents/agent-1/trades", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/agents/agent-2/trades", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Count)
}
