// Package domain provides core domain models and types.
package domain

import (
	"fmt"
	"strings"
)

// Side identifies a leg as an entry or an exit
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// LegStatus represents the execution status reported by the source
type LegStatus string

const (
	LegStatusOpen      LegStatus = "OPEN"
	LegStatusClosed    LegStatus = "CLOSED"
	LegStatusPending   LegStatus = "PENDING"
	LegStatusCancelled LegStatus = "CANCELLED"
	LegStatusFailed    LegStatus = "FAILED"
)

// TradeStatus classifies a reconciled trade
type TradeStatus string

const (
	TradeStatusClosed     TradeStatus = "closed"
	TradeStatusOpen       TradeStatus = "open"
	TradeStatusFailed     TradeStatus = "failed"
	TradeStatusOrphanExit TradeStatus = "orphanExit"
)

// PairingConfidence reports how an exit leg was matched to its entry.
// Explicit links and self-contained closes are exact; same-token
// timestamp matching is inferred and may be wrong when multiple
// concurrent positions exist in the same token.
type PairingConfidence string

const (
	PairingExact    PairingConfidence = "exact"
	PairingInferred PairingConfidence = "inferred"
)

// TradeLeg is one observed execution (a buy or a sell) after normalization.
// Legs are immutable once created; re-normalizing the same raw event
// yields an identical leg, including its ID.
type TradeLeg struct {
	ID           string    `json:"id"`
	Side         Side      `json:"side"`
	Status       LegStatus `json:"status"`
	TokenSymbol  string    `json:"token_symbol"`
	TokenAddress string    `json:"token_address,omitempty"`
	RefURL       string    `json:"ref_url,omitempty"` // DexScreener-style chart reference
	Quantity     float64   `json:"quantity"`
	EntryPrice   float64   `json:"entry_price"`
	ExitPrice    float64   `json:"exit_price"` // Defaults to EntryPrice when the source omits it

	// PositionSizeSol is the amount of quote currency (SOL) committed at entry.
	// ExitPositionSol is the quote amount received on exit when the source
	// reported it inline on the entry record (self-contained close).
	PositionSizeSol float64 `json:"position_size_sol"`
	ExitPositionSol float64 `json:"exit_position_sol,omitempty"`

	Pnl        float64 `json:"pnl"`
	PnlPercent float64 `json:"pnl_percent"`
	Fees       float64 `json:"fees"`

	// Timestamp is epoch milliseconds, normalized regardless of
	// seconds/ISO/SQL-timestamp input. ExitTimestamp is 0 when unknown.
	Timestamp     int64 `json:"timestamp"`
	ExitTimestamp int64 `json:"exit_timestamp,omitempty"`

	AgentID     string `json:"agent_id"`
	LinkedLegID string `json:"linked_leg_id,omitempty"` // Explicit pairing hint from the source

	ErrorType    string `json:"error_type,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	Dex          string `json:"dex,omitempty"`
	TxSignature  string `json:"tx_signature,omitempty"`
	SourceFormat string `json:"source_format"` // Dialect tag identifying which source shape produced this leg
}

// Validate checks the invariants a leg must satisfy before entering the
// pipeline. Legs failing validation are rejected into an error list by the
// caller, never silently dropped.
func (l TradeLeg) Validate() error {
	if l.ID == "" {
		return fmt.Errorf("leg has no id")
	}
	if l.Side != SideBuy && l.Side != SideSell {
		return fmt.Errorf("leg %s: invalid side %q", l.ID, l.Side)
	}
	if l.TokenSymbol == "" && l.TokenAddress == "" {
		return fmt.Errorf("leg %s: no token identity", l.ID)
	}
	if l.Quantity <= 0 {
		return fmt.Errorf("leg %s: quantity must be positive, got %f", l.ID, l.Quantity)
	}
	if l.EntryPrice <= 0 {
		return fmt.Errorf("leg %s: entry price must be positive, got %f", l.ID, l.EntryPrice)
	}
	return nil
}

// Token returns the best available token identity for pairing purposes:
// the mint address when known, otherwise the symbol.
func (l TradeLeg) Token() string {
	if l.TokenAddress != "" {
		return l.TokenAddress
	}
	return strings.ToUpper(l.TokenSymbol)
}

// Failed reports whether the source marked this leg as a failed execution
func (l TradeLeg) Failed() bool {
	return l.Status == LegStatusFailed || l.ErrorType != "" || l.ErrorMessage != ""
}

// HasEmbeddedExit reports whether the entry record itself carries exit
// information supplied by the source (pre-computed P&L, an exit quote
// amount, or an exit price distinct from entry), allowing the trade to
// close without a paired SELL leg.
func (l TradeLeg) HasEmbeddedExit() bool {
	if l.ExitPositionSol > 0 {
		return true
	}
	if l.Pnl != 0 {
		return true
	}
	return l.ExitPrice > 0 && l.ExitPrice != l.EntryPrice
}

// UnifiedTrade is the reconciled, analysis-ready record representing one
// logical position lifecycle (entry, optional exit).
type UnifiedTrade struct {
	ID           string      `json:"id"`
	Status       TradeStatus `json:"status"`
	AgentID      string      `json:"agent_id"`
	TokenSymbol  string      `json:"token_symbol"`
	TokenAddress string      `json:"token_address,omitempty"`

	EntryPrice float64 `json:"entry_price"`
	ExitPrice  float64 `json:"exit_price,omitempty"`
	EntryTime  int64   `json:"entry_time"`
	ExitTime   int64   `json:"exit_time,omitempty"`

	Quantity        float64 `json:"quantity"`
	PositionSizeSol float64 `json:"position_size_sol"`
	ExitPositionSol float64 `json:"exit_position_sol,omitempty"`

	// Pnl is in quote-currency units; PnlSol is the SOL-display equivalent
	// derived via the injected conversion rate. Unrealized marks P&L computed
	// against a live price for a still-open position; such figures must not
	// be summed into realized aggregates.
	Pnl        float64 `json:"pnl"`
	PnlSol     float64 `json:"pnl_sol"`
	PnlPercent float64 `json:"pnl_percent"`
	Unrealized bool    `json:"unrealized,omitempty"`

	HoldTimeMs int64   `json:"hold_time_ms,omitempty"`
	Fees       float64 `json:"fees,omitempty"`

	EntryTxSignature string `json:"entry_tx_signature,omitempty"`
	ExitTxSignature  string `json:"exit_tx_signature,omitempty"`
	Dex              string `json:"dex,omitempty"`

	ErrorType    string `json:"error_type,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	Confidence PairingConfidence `json:"confidence"`

	// Back-references to the contributing legs. ExitLegID is empty for
	// open, failed and self-contained closed trades; EntryLegID is empty
	// for orphan exits.
	EntryLegID string `json:"entry_leg_id,omitempty"`
	ExitLegID  string `json:"exit_leg_id,omitempty"`
}

// LegIDs returns the ids of every leg that contributed to this trade
func (t UnifiedTrade) LegIDs() []string {
	ids := make([]string, 0, 2)
	if t.EntryLegID != "" {
		ids = append(ids, t.EntryLegID)
	}
	if t.ExitLegID != "" {
		ids = append(ids, t.ExitLegID)
	}
	return ids
}

// TradeSummary aggregates a reconciled trade set for display.
// Only realized (closed) trades contribute to the P&L figures.
type TradeSummary struct {
	TotalTrades      int     `json:"total_trades"`
	TotalPnl         float64 `json:"total_pnl"`
	TotalPnlSol      float64 `json:"total_pnl_sol"`
	Wins             int     `json:"wins"`
	Losses           int     `json:"losses"`
	WinRate          float64 `json:"win_rate"`
	UniqueTokenCount int     `json:"unique_token_count"`
	OpenTrades       int     `json:"open_trades"`
	FailedTrades     int     `json:"failed_trades"`
	OrphanExits      int     `json:"orphan_exits"`
	MeanPnl          float64 `json:"mean_pnl"`
	PnlStdDev        float64 `json:"pnl_std_dev"`
}
