package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all ledger routes
func (h *LedgerHandlers) RegisterRoutes(r chi.Router) {
	r.Post("/import", h.HandleImport)
	r.Post("/webhook/trade", h.HandleWebhook)

	r.Route("/trades", func(r chi.Router) {
		r.Get("/", h.HandleGetTrades)
		r.Get("/summary", h.HandleGetSummary)
	})

	r.Route("/agents", func(r chi.Router) {
		r.Get("/", h.HandleListAgents)
		r.Get("/{agentID}/trades", h.HandleGetAgentTrades)
	})
}
