// Package reconcile pairs normalized trade legs into unified trades and
// derives P&L. A unification pass is a pure function over the full leg set
// the caller wants reconciled; it keeps no state between calls.
package reconcile

import (
	"sort"

	"github.com/alevras/tally/internal/domain"
)

// Options parameterizes one unification pass
type Options struct {
	// SolRate converts between quote-currency P&L and SOL-display P&L.
	// Zero means no conversion (rate 1); it is never defaulted to a market
	// rate silently - callers inject the rate they want.
	SolRate float64

	// LivePrices supplies current prices keyed by token identity
	// (mint address or upper-cased symbol) for unrealized P&L on open
	// positions. A missing token falls back to its entry price.
	LivePrices map[string]float64
}

func (o Options) rate() float64 {
	if o.SolRate > 0 {
		return o.SolRate
	}
	return 1.0
}

// Unify reconciles a set of trade legs into unified trades, sorted by
// timestamp descending. Every input leg is represented in exactly one
// output trade: no leg vanishes and no leg contributes twice.
func Unify(legs []domain.TradeLeg, opts Options) []domain.UnifiedTrade {
	var buys, sells []domain.TradeLeg
	for _, leg := range legs {
		if leg.Side == domain.SideSell {
			sells = append(sells, leg)
		} else {
			buys = append(buys, leg)
		}
	}
	sortByTimestampDesc(buys)
	sortByTimestampDesc(sells)

	consumed := make([]bool, len(sells))
	trades := make([]domain.UnifiedTrade, 0, len(buys))

	for _, buy := range buys {
		if buy.Failed() {
			trades = append(trades, failedTrade(buy))
			continue
		}

		if idx := findExit(buy, sells, consumed); idx >= 0 {
			consumed[idx] = true
			confidence := domain.PairingExact
			if sells[idx].LinkedLegID != buy.ID {
				confidence = domain.PairingInferred
			}
			trades = append(trades, closedTrade(buy, &sells[idx], confidence, opts))
			continue
		}

		if buy.Status == domain.LegStatusClosed && buy.HasEmbeddedExit() {
			// Self-contained close: the entry record already carries its
			// exit figures, no paired SELL leg required.
			trades = append(trades, closedTrade(buy, nil, domain.PairingExact, opts))
			continue
		}

		// Entry with an unresolved exit: an open position as far as this
		// pass can tell. P&L against the live price is display-only.
		trades = append(trades, openTrade(buy, opts))
	}

	for i, sell := range sells {
		if consumed[i] {
			continue
		}
		if sell.Failed() {
			trades = append(trades, failedTrade(sell))
			continue
		}
		trades = append(trades, orphanExitTrade(sell, opts))
	}

	sort.SliceStable(trades, func(i, j int) bool {
		return tradeTime(trades[i]) > tradeTime(trades[j])
	})
	return trades
}

// findExit locates the exit leg for a BUY: an unconsumed SELL explicitly
// linked to it wins; failing that, a CLOSED buy takes the earliest
// unconsumed same-token SELL at or after its timestamp. The inferred path
// is best effort and ambiguous when several positions in the same token
// overlap, which is why pairing confidence is surfaced on the trade.
func findExit(buy domain.TradeLeg, sells []domain.TradeLeg, consumed []bool) int {
	for i, sell := range sells {
		if !consumed[i] && sell.LinkedLegID != "" && sell.LinkedLegID == buy.ID {
			return i
		}
	}

	if buy.Status != domain.LegStatusClosed {
		return -1
	}

	best := -1
	for i, sell := range sells {
		if consumed[i] || sell.LinkedLegID != "" {
			continue
		}
		if sell.Token() != buy.Token() || sell.Timestamp < buy.Timestamp {
			continue
		}
		if best < 0 || sell.Timestamp < sells[best].Timestamp {
			best = i
		}
	}
	return best
}

// closedTrade emits a closed trade from an entry leg and an optional exit
// leg. P&L prefers the figures the source pre-computed on the entry record
// (it had full internal context: fees, partial exits) over this pass's
// simplified two-leg subtraction.
func closedTrade(buy domain.TradeLeg, sell *domain.TradeLeg, confidence domain.PairingConfidence, opts Options) domain.UnifiedTrade {
	rate := opts.rate()

	exitPrice := buy.ExitPrice
	exitTime := buy.ExitTimestamp
	fees := buy.Fees
	exitTx := ""
	exitLegID := ""
	if sell != nil {
		exitPrice = sell.ExitPrice
		exitTime = sell.Timestamp
		fees += sell.Fees
		exitTx = sell.TxSignature
		exitLegID = sell.ID
	}

	var pnl, pnlSol float64
	switch {
	case buy.ExitPositionSol > 0:
		// Quote-denominated figures straight from the source
		pnlSol = buy.ExitPositionSol - buy.PositionSizeSol
		pnl = pnlSol * rate
	case buy.Pnl != 0:
		pnl = buy.Pnl
		pnlSol = pnl / rate
	default:
		pnl = (exitPrice - buy.EntryPrice) * buy.Quantity
		pnlSol = pnl / rate
	}

	pnlPercent := buy.PnlPercent
	if pnlPercent == 0 {
		pnlPercent = percentGain(buy.EntryPrice, exitPrice)
	}

	var holdTime int64
	if exitTime > buy.Timestamp {
		holdTime = exitTime - buy.Timestamp
	}

	return domain.UnifiedTrade{
		ID:               buy.ID,
		Status:           domain.TradeStatusClosed,
		AgentID:          buy.AgentID,
		TokenSymbol:      buy.TokenSymbol,
		TokenAddress:     buy.TokenAddress,
		EntryPrice:       buy.EntryPrice,
		ExitPrice:        exitPrice,
		EntryTime:        buy.Timestamp,
		ExitTime:         exitTime,
		Quantity:         buy.Quantity,
		PositionSizeSol:  buy.PositionSizeSol,
		ExitPositionSol:  buy.ExitPositionSol,
		Pnl:              pnl,
		PnlSol:           pnlSol,
		PnlPercent:       pnlPercent,
		HoldTimeMs:       holdTime,
		Fees:             fees,
		EntryTxSignature: buy.TxSignature,
		ExitTxSignature:  exitTx,
		Dex:              buy.Dex,
		Confidence:       confidence,
		EntryLegID:       buy.ID,
		ExitLegID:        exitLegID,
	}
}

// openTrade emits an entry whose exit is unresolved. Its P&L is unrealized,
// computed against the supplied live price (entry price when none), and
// must not be summed into realized aggregates.
func openTrade(buy domain.TradeLeg, opts Options) domain.UnifiedTrade {
	rate := opts.rate()

	livePrice := buy.EntryPrice
	if price, ok := opts.LivePrices[buy.Token()]; ok && price > 0 {
		livePrice = price
	}

	pnl := (livePrice - buy.EntryPrice) * buy.Quantity

	return domain.UnifiedTrade{
		ID:               buy.ID,
		Status:           domain.TradeStatusOpen,
		AgentID:          buy.AgentID,
		TokenSymbol:      buy.TokenSymbol,
		TokenAddress:     buy.TokenAddress,
		EntryPrice:       buy.EntryPrice,
		ExitPrice:        livePrice,
		EntryTime:        buy.Timestamp,
		Quantity:         buy.Quantity,
		PositionSizeSol:  buy.PositionSizeSol,
		Pnl:              pnl,
		PnlSol:           pnl / rate,
		PnlPercent:       percentGain(buy.EntryPrice, livePrice),
		Unrealized:       true,
		Fees:             buy.Fees,
		EntryTxSignature: buy.TxSignature,
		Dex:              buy.Dex,
		Confidence:       domain.PairingExact,
		EntryLegID:       buy.ID,
	}
}

// failedTrade propagates an upstream execution failure with its original
// error payload preserved verbatim and zero P&L.
func failedTrade(leg domain.TradeLeg) domain.UnifiedTrade {
	trade := domain.UnifiedTrade{
		ID:           leg.ID,
		Status:       domain.TradeStatusFailed,
		AgentID:      leg.AgentID,
		TokenSymbol:  leg.TokenSymbol,
		TokenAddress: leg.TokenAddress,
		EntryPrice:   leg.EntryPrice,
		EntryTime:    leg.Timestamp,
		Quantity:     leg.Quantity,
		ErrorType:    leg.ErrorType,
		ErrorMessage: leg.ErrorMessage,
		Dex:          leg.Dex,
		Confidence:   domain.PairingExact,
	}
	if leg.Side == domain.SideSell {
		trade.ExitLegID = leg.ID
		trade.ExitTime = leg.Timestamp
		trade.ExitTxSignature = leg.TxSignature
	} else {
		trade.EntryLegID = leg.ID
		trade.PositionSizeSol = leg.PositionSizeSol
		trade.EntryTxSignature = leg.TxSignature
	}
	return trade
}

// orphanExitTrade emits a SELL with no discoverable entry as its own trade.
// A data quality gap, not an error: the leg is surfaced, never dropped.
func orphanExitTrade(sell domain.TradeLeg, opts Options) domain.UnifiedTrade {
	rate := opts.rate()

	// With no entry leg there is nothing to subtract against; the only
	// P&L available is whatever the source embedded on the sell itself.
	pnl := sell.Pnl

	return domain.UnifiedTrade{
		ID:              sell.ID,
		Status:          domain.TradeStatusOrphanExit,
		AgentID:         sell.AgentID,
		TokenSymbol:     sell.TokenSymbol,
		TokenAddress:    sell.TokenAddress,
		ExitPrice:       sell.ExitPrice,
		ExitTime:        sell.Timestamp,
		Quantity:        sell.Quantity,
		Pnl:             pnl,
		PnlSol:          pnl / rate,
		PnlPercent:      sell.PnlPercent,
		Fees:            sell.Fees,
		ExitTxSignature: sell.TxSignature,
		Dex:             sell.Dex,
		Confidence:      domain.PairingExact,
		ExitLegID:       sell.ID,
	}
}

func percentGain(entry, exit float64) float64 {
	if entry <= 0 {
		return 0
	}
	return (exit - entry) / entry * 100
}

func tradeTime(t domain.UnifiedTrade) int64 {
	if t.EntryTime > 0 {
		return t.EntryTime
	}
	return t.ExitTime
}

func sortByTimestampDesc(legs []domain.TradeLeg) {
	sort.SliceStable(legs, func(i, j int) bool {
		return legs[i].Timestamp > legs[j].Timestamp
	})
}
