package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapEventKind(t *testing.T) {
	assert.Equal(t, KindTrade, MapEventKind("new_trade"))
	assert.Equal(t, KindTrade, MapEventKind("trade_update"))
	assert.Equal(t, KindTrade, MapEventKind("trade_closed"))
	assert.Equal(t, KindSignal, MapEventKind("signal_detected"))
	assert.Equal(t, KindAgentStatus, MapEventKind("status_update"))
	assert.Equal(t, KindBalance, MapEventKind("balance_update"))
	assert.Equal(t, KindPosition, MapEventKind("position_opened"))
	assert.Equal(t, KindError, MapEventKind("execution_error"))
}

func TestMapEventKindPassesUnknownThrough(t *testing.T) {
	assert.Equal(t, "fee_rebate", MapEventKind("fee_rebate"))
	assert.Equal(t, "", MapEventKind(""))
}

func TestIsTradeEvent(t *testing.T) {
	assert.True(t, IsTradeEvent("new_trade"))
	assert.True(t, IsTradeEvent("trade_closed"))
	assert.False(t, IsTradeEvent("balance_update"))
	assert.False(t, IsTradeEvent("mystery_event"))
}
