package reconcile

import (
	"gonum.org/v1/gonum/stat"

	"github.com/alevras/tally/internal/domain"
)

// Summarize aggregates a reconciled trade set into display statistics.
// Only realized (closed) trades contribute to P&L figures; unrealized
// open-position P&L is display-only and deliberately excluded.
func Summarize(trades []domain.UnifiedTrade) domain.TradeSummary {
	summary := domain.TradeSummary{TotalTrades: len(trades)}

	tokens := make(map[string]bool)
	var realized []float64

	for _, trade := range trades {
		token := trade.TokenAddress
		if token == "" {
			token = trade.TokenSymbol
		}
		if token != "" {
			tokens[token] = true
		}

		switch trade.Status {
		case domain.TradeStatusClosed:
			summary.TotalPnl += trade.Pnl
			summary.TotalPnlSol += trade.PnlSol
			realized = append(realized, trade.Pnl)
			if trade.Pnl > 0 {
				summary.Wins++
			} else if trade.Pnl < 0 {
				summary.Losses++
			}
		case domain.TradeStatusOpen:
			summary.OpenTrades++
		case domain.TradeStatusFailed:
			summary.FailedTrades++
		case domain.TradeStatusOrphanExit:
			summary.OrphanExits++
		}
	}

	summary.UniqueTokenCount = len(tokens)

	if decided := summary.Wins + summary.Losses; decided > 0 {
		summary.WinRate = float64(summary.Wins) / float64(decided) * 100
	}
	if len(realized) > 0 {
		summary.MeanPnl = stat.Mean(realized, nil)
	}
	if len(realized) > 1 {
		summary.PnlStdDev = stat.StdDev(realized, nil)
	}

	return summary
}
