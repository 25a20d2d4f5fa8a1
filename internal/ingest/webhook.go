package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/alevras/tally/internal/domain"
)

// Webhook payload defaults
const (
	DefaultWebhookAmount   = 0.1
	DefaultWebhookUnit     = "SOL"
	DefaultWebhookSlippage = 1.0
	MaxWebhookSlippage     = 50.0
)

// WebhookTrade is a validated webhook delivery. The webhook path is the one
// intake that rejects malformed payloads outright instead of best-effort
// normalizing: it drives real activity, so a missing action or mint is a
// caller error, not a data-quality gap.
type WebhookTrade struct {
	Action       domain.Side
	TokenAddress string
	TokenSymbol  string
	Amount       float64
	AmountType   string
	Slippage     float64
	Price        float64
}

// ParseWebhook validates a raw webhook payload and applies defaults:
// amount 0.1, amountType "SOL", slippage 1.0 (valid range 0-50).
func ParseWebhook(raw RawRecord) (*WebhookTrade, error) {
	action, ok := explicitSide(getString(raw, "action"))
	if !ok {
		return nil, fmt.Errorf("webhook requires action BUY or SELL, got %q", getString(raw, "action"))
	}

	address := resolveString(raw, addressAliases)
	if address == "" {
		// Some senders put the mint under the symbol field
		if candidate := resolveString(raw, symbolAliases); IsMintAddress(candidate) {
			address = candidate
		}
	}
	if address == "" {
		return nil, fmt.Errorf("webhook requires a token mint address")
	}
	if !IsMintAddress(address) {
		return nil, fmt.Errorf("webhook token address %q is not a valid base58 mint", address)
	}

	amount := getFloat64(raw, "amount")
	if amount <= 0 {
		amount = DefaultWebhookAmount
	}

	amountType := strings.ToUpper(strings.TrimSpace(getString(raw, "amountType")))
	if amountType == "" {
		amountType = DefaultWebhookUnit
	}

	slippage := DefaultWebhookSlippage
	if val, exists := raw["slippage"]; exists && val != nil {
		slippage = getFloat64FromValue(val)
		if slippage < 0 || slippage > MaxWebhookSlippage {
			return nil, fmt.Errorf("webhook slippage %.2f out of range 0-%.0f", slippage, MaxWebhookSlippage)
		}
	}

	symbol := resolveString(raw, symbolAliases)
	if IsMintAddress(symbol) {
		symbol = ""
	}

	return &WebhookTrade{
		Action:       action,
		TokenAddress: address,
		TokenSymbol:  strings.ToUpper(symbol),
		Amount:       amount,
		AmountType:   amountType,
		Slippage:     slippage,
		Price:        resolveFloat(raw, webhookPriceAliases, 0),
	}, nil
}

// Leg converts the webhook delivery into a canonical TradeLeg via the
// normalizer, so webhook trades carry the same derived identity and
// defaults as every other source.
func (w *WebhookTrade) Leg(agentID string, now time.Time) domain.TradeLeg {
	record := RawRecord{
		"action":       string(w.Action),
		"tokenAddress": w.TokenAddress,
		"price":        w.Price,
		"timestamp":    now.UnixMilli(),
	}
	if w.TokenSymbol != "" {
		record["tokenSymbol"] = w.TokenSymbol
	}
	if w.AmountType == DefaultWebhookUnit {
		// Amount denominated in SOL is the committed position size, not a
		// token quantity. Token quantity follows from price when known;
		// without a price the SOL amount is the only size figure there is.
		record["positionSizeSol"] = w.Amount
		if w.Price > 0 {
			record["quantity"] = w.Amount / w.Price
		} else {
			record["quantity"] = w.Amount
		}
	} else {
		record["quantity"] = w.Amount
	}

	leg := Normalize(record, Options{
		AgentID:      agentID,
		SourceFormat: SourceWebhook,
		Now:          now,
	})
	// A webhook delivery reports intent; execution has not completed yet
	leg.Status = domain.LegStatusPending
	return leg
}
