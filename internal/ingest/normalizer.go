// Package ingest normalizes raw trade records from any known source shape
// (CSV/JSON exports, webhook deliveries, live-feed events, API echoes) onto
// the canonical TradeLeg. Normalization is a pure function of the record
// plus fallback options; it performs no I/O and never fails a record.
package ingest

import (
	"strings"
	"time"

	"github.com/alevras/tally/internal/domain"
)

// Source format tags carried on normalized legs
const (
	SourceTokenBotCSV = "tokenbot_csv"
	SourcePositionCSV = "position_csv"
	SourceGenericCSV  = "generic_csv"
	SourceJSON        = "json"
	SourceWebhook     = "webhook"
	SourceStream      = "stream"
	SourceAPI         = "api"
)

// Options supplies per-call fallbacks to Normalize
type Options struct {
	AgentID      string    // Used when the record carries no agent identity
	SourceFormat string    // Dialect tag recorded on the produced leg
	Now          time.Time // Clock for timestamp fallback; zero value means time.Now()
}

// Normalize maps one raw record onto a canonical TradeLeg by alias
// resolution, type coercion and timestamp parsing. It never rejects the
// record; business validation happens separately via TradeLeg.Validate.
func Normalize(raw RawRecord, opts Options) domain.TradeLeg {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	symbol, address := resolveToken(raw)

	entryPrice := resolveFloat(raw, entryPriceAliases, 0)
	exitPrice := resolveFloat(raw, exitPriceAliases, 0)
	if exitPrice == 0 {
		// Absent exit defaults to entry (no price movement)
		exitPrice = entryPrice
	}

	quantity := resolveFloat(raw, quantityAliases, 0)
	pnl := resolveSignedFloat(raw, pnlAliases, 0)
	pnlPercent := resolveSignedFloat(raw, pnlPercentAliases, 0)
	fees := resolveFloat(raw, feesAliases, 0)

	timestamp := now.UnixMilli()
	if tsVal, ok := resolveRaw(raw, timestampAliases); ok {
		timestamp = ParseTimestamp(tsVal, now)
	}
	var exitTimestamp int64
	if tsVal, ok := resolveRaw(raw, exitTimestampAliases); ok {
		exitTimestamp = ParseTimestamp(tsVal, now)
	}

	positionSize := resolveFloat(raw, positionSizeAliases, 0)
	if positionSize == 0 {
		positionSize = entryPrice * quantity
	}

	token := address
	if token == "" {
		token = symbol
	}

	id := resolveString(raw, idAliases)
	if id == "" {
		id = SynthesizeID(token, timestamp, entryPrice)
	}

	agentID := resolveString(raw, agentAliases)
	if agentID == "" {
		agentID = opts.AgentID
	}

	refURL := resolveString(raw, refURLAliases)
	if refURL == "" {
		refURL = DexScreenerURL(address)
	}

	return domain.TradeLeg{
		ID:              id,
		Side:            resolveSide(raw, entryPrice, exitPrice, pnl),
		Status:          resolveStatus(raw),
		TokenSymbol:     symbol,
		TokenAddress:    address,
		RefURL:          refURL,
		Quantity:        quantity,
		EntryPrice:      entryPrice,
		ExitPrice:       exitPrice,
		PositionSizeSol: positionSize,
		ExitPositionSol: resolveFloat(raw, exitPositionAliases, 0),
		Pnl:             pnl,
		PnlPercent:      pnlPercent,
		Fees:            fees,
		Timestamp:       timestamp,
		ExitTimestamp:   exitTimestamp,
		AgentID:         agentID,
		LinkedLegID:     resolveString(raw, linkedLegAliases),
		ErrorType:       resolveString(raw, errorTypeAliases),
		ErrorMessage:    resolveString(raw, errorMessageAliases),
		Dex:             resolveString(raw, dexAliases),
		TxSignature:     resolveString(raw, txSignatureAliases),
		SourceFormat:    opts.SourceFormat,
	}
}

// resolveToken splits token identity into symbol and mint address. A value
// under a symbol alias that looks like a base58 mint (32-44 chars) is
// rerouted to the address; short strings are upper-cased symbols.
func resolveToken(raw RawRecord) (symbol, address string) {
	address = resolveString(raw, addressAliases)
	symbol = resolveString(raw, symbolAliases)

	if IsMintAddress(symbol) {
		if address == "" {
			address = symbol
		}
		symbol = ""
	}
	if symbol != "" {
		symbol = strings.ToUpper(symbol)
	}
	return symbol, address
}

// resolveSide returns the explicit side when the record carries one, and
// otherwise infers it: exit vs entry price first, then the sign of pnl,
// then BUY.
func resolveSide(raw RawRecord, entryPrice, exitPrice, pnl float64) domain.Side {
	if side, ok := explicitSide(resolveString(raw, sideAliases)); ok {
		return side
	}

	if entryPrice > 0 && exitPrice > 0 && exitPrice != entryPrice {
		if exitPrice > entryPrice {
			return domain.SideBuy
		}
		return domain.SideSell
	}

	if pnl > 0 {
		return domain.SideBuy
	}
	if pnl < 0 {
		return domain.SideSell
	}

	return domain.SideBuy
}

// explicitSide normalizes the many spellings sources use for side/action
func explicitSide(s string) (domain.Side, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy", "b", "long", "entry", "open_position":
		return domain.SideBuy, true
	case "sell", "s", "short", "exit", "close_position":
		return domain.SideSell, true
	default:
		return "", false
	}
}

// resolveStatus maps the explicit status field when recognizable. Absent or
// non-matching values default to CLOSED, except strings containing
// "open"/"active" which map to OPEN.
func resolveStatus(raw RawRecord) domain.LegStatus {
	s := strings.ToLower(resolveString(raw, statusAliases))

	if strings.Contains(s, "open") || strings.Contains(s, "active") {
		return domain.LegStatusOpen
	}

	switch s {
	case "pending", "submitted", "in_progress":
		return domain.LegStatusPending
	case "cancelled", "canceled":
		return domain.LegStatusCancelled
	case "failed", "error", "rejected":
		return domain.LegStatusFailed
	default:
		return domain.LegStatusClosed
	}
}
