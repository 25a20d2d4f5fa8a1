// Package handlers provides HTTP handlers for the ledger API.
package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/alevras/tally/internal/importer"
	"github.com/alevras/tally/internal/ingest"
	"github.com/alevras/tally/internal/modules/ledger"
)

// maxImportBytes bounds a single batch upload
const maxImportBytes = 32 << 20 // 32 MB

// defaultAgentID scopes requests that carry no agent identity
const defaultAgentID = "default"

// LedgerHandlers contains HTTP handlers for the ledger API
type LedgerHandlers struct {
	log     zerolog.Logger
	service *ledger.Service
}

// NewLedgerHandlers creates a new ledger handlers instance
func NewLedgerHandlers(service *ledger.Service, log zerolog.Logger) *LedgerHandlers {
	return &LedgerHandlers{
		log:     log.With().Str("handler", "ledger").Logger(),
		service: service,
	}
}

// HandleImport accepts a raw CSV or JSON batch and runs the import pipeline
// POST /api/import?agent_id=...&format=...
func (h *LedgerHandlers) HandleImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	hint, ok := dialectHint(r.URL.Query().Get("format"))
	if !ok {
		h.writeError(w, http.StatusBadRequest, "Unknown format hint")
		return
	}

	agentID := h.agentID(r)
	report, err := h.service.ImportBatch(string(body), hint, agentID)
	if err != nil {
		h.log.Warn().Err(err).Str("agent_id", agentID).Msg("Import rejected")
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, report)
}

// HandleWebhook accepts a single trade notification
// POST /api/webhook/trade
func (h *LedgerHandlers) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	var raw ingest.RawRecord
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	leg, fresh, err := h.service.IngestWebhook(raw, h.agentID(r))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"leg":       leg,
		"duplicate": !fresh,
	})
}

// HandleGetTrades returns the reconciled trade set for an agent
// GET /api/trades?agent_id=...&rate=...&limit=...
func (h *LedgerHandlers) HandleGetTrades(w http.ResponseWriter, r *http.Request) {
	rate, err := rateParam(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid rate parameter")
		return
	}

	agentID := h.agentID(r)
	trades, err := h.service.Trades(agentID, rate)
	if err != nil {
		h.log.Error().Err(err).Str("agent_id", agentID).Msg("Failed to get trades")
		h.writeError(w, http.StatusInternalServerError, "Failed to get trades")
		return
	}

	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		if limit, err := strconv.Atoi(limitParam); err == nil && limit >= 0 && limit < len(trades) {
			trades = trades[:limit]
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"agent_id": agentID,
		"count":    len(trades),
		"trades":   trades,
	})
}

// HandleGetSummary returns aggregate statistics over the reconciled set
// GET /api/trades/summary?agent_id=...&rate=...
func (h *LedgerHandlers) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	rate, err := rateParam(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid rate parameter")
		return
	}

	agentID := h.agentID(r)
	summary, err := h.service.Summary(agentID, rate)
	if err != nil {
		h.log.Error().Err(err).Str("agent_id", agentID).Msg("Failed to get summary")
		h.writeError(w, http.StatusInternalServerError, "Failed to get summary")
		return
	}

	h.writeJSON(w, http.StatusOK, summary)
}

// HandleGetAgentTrades returns trades for the agent in the URL path
// GET /api/agents/{agentID}/trades?rate=...
func (h *LedgerHandlers) HandleGetAgentTrades(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	if agentID == "" {
		h.writeError(w, http.StatusBadRequest, "Missing agent id")
		return
	}

	rate, err := rateParam(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid rate parameter")
		return
	}

	trades, err := h.service.Trades(agentID, rate)
	if err != nil {
		h.log.Error().Err(err).Str("agent_id", agentID).Msg("Failed to get trades")
		h.writeError(w, http.StatusInternalServerError, "Failed to get trades")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"agent_id": agentID,
		"count":    len(trades),
		"trades":   trades,
	})
}

// HandleListAgents returns the agent ids present in the ledger
// GET /api/agents
func (h *LedgerHandlers) HandleListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.service.Agents()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list agents")
		h.writeError(w, http.StatusInternalServerError, "Failed to list agents")
		return
	}
	if agents == nil {
		agents = []string{}
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"agents": agents})
}

// agentID resolves the request's agent scope, defaulting when absent
func (h *LedgerHandlers) agentID(r *http.Request) string {
	if id := strings.TrimSpace(r.URL.Query().Get("agent_id")); id != "" {
		return id
	}
	return defaultAgentID
}

// rateParam parses an optional SOL rate override; 0 means service default
func rateParam(r *http.Request) (float64, error) {
	param := r.URL.Query().Get("rate")
	if param == "" {
		return 0, nil
	}
	rate, err := strconv.ParseFloat(param, 64)
	if err != nil || rate < 0 {
		return 0, fmt.Errorf("invalid rate %q", param)
	}
	return rate, nil
}

// dialectHint maps the user-facing format parameter to a parser dialect
func dialectHint(format string) (importer.Dialect, bool) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "":
		return importer.DialectAuto, true
	case "tokenbot":
		return importer.DialectTokenBot, true
	case "position":
		return importer.DialectPosition, true
	case "generic", "csv":
		return importer.DialectGeneric, true
	case "json":
		return importer.DialectJSON, true
	default:
		return importer.DialectAuto, false
	}
}

// writeJSON writes a JSON response
func (h *LedgerHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (h *LedgerHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
