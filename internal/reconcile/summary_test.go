package reconcile

import (
	"testing"

	"github.com/alevras/tally/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	trades := []domain.UnifiedTrade{
		{Status: domain.TradeStatusClosed, TokenSymbol: "BONK", Pnl: 1.0, PnlSol: 0.01},
		{Status: domain.TradeStatusClosed, TokenSymbol: "WIF", Pnl: -0.5, PnlSol: -0.005},
		{Status: domain.TradeStatusClosed, TokenSymbol: "BONK", Pnl: 0.5, PnlSol: 0.005},
		{Status: domain.TradeStatusOpen, TokenSymbol: "PEPE", Pnl: 3.0, Unrealized: true},
		{Status: domain.TradeStatusFailed, TokenSymbol: "BONK"},
		{Status: domain.TradeStatusOrphanExit, TokenSymbol: "MEW"},
	}

	summary := Summarize(trades)

	assert.Equal(t, 6, summary.TotalTrades)
	// Unrealized open-position P&L never enters realized totals
	assert.InDelta(t, 1.0, summary.TotalPnl, 1e-9)
	assert.InDelta(t, 0.01, summary.TotalPnlSol, 1e-9)
	assert.Equal(t, 2, summary.Wins)
	assert.Equal(t, 1, summary.Losses)
	assert.InDelta(t, 66.666, summary.WinRate, 0.01)
	assert.Equal(t, 4, summary.UniqueTokenCount)
	assert.Equal(t, 1, summary.OpenTrades)
	assert.Equal(t, 1, summary.FailedTrades)
	assert.Equal(t, 1, summary.OrphanExits)
	assert.InDelta(t, 1.0/3.0, summary.MeanPnl, 1e-9)
	assert.Greater(t, summary.PnlStdDev, 0.0)
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(nil)

	assert.Zero(t, summary.TotalTrades)
	assert.Zero(t, summary.WinRate)
	assert.Zero(t, summary.MeanPnl)
	assert.Zero(t, summary.PnlStdDev)
}

func TestSummarizeBreakevenNeitherWinNorLoss(t *testing.T) {
	trades := []domain.UnifiedTrade{
		{Status: domain.TradeStatusClosed, TokenSymbol: "BONK", Pnl: 0},
	}

	summary := Summarize(trades)
	assert.Zero(t, summary.Wins)
	assert.Zero(t, summary.Losses)
	assert.Zero(t, summary.WinRate)
}

func TestSummarizeTokenIdentityPrefersAddress(t *testing.T) {
	// Same token seen once by address and once by symbol counts twice only
	// when the identities genuinely differ; address-bearing trades dedupe
	// by address.
	mint := "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
	trades := []domain.UnifiedTrade{
		{Status: domain.TradeStatusClosed, TokenAddress: mint, TokenSymbol: "BONK"},
		{Status: domain.TradeStatusClosed, TokenAddress: mint},
	}

	summary := Summarize(trades)
	assert.Equal(t, 1, summary.UniqueTokenCount)
}
