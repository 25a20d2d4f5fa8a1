package ingest

// EventKind is the closed set of canonical live-feed event kinds
type EventKind = string

const (
	KindTrade       EventKind = "trade"
	KindSignal      EventKind = "signal"
	KindAgentStatus EventKind = "agent_status"
	KindBalance     EventKind = "balance"
	KindPosition    EventKind = "position"
	KindError       EventKind = "error"
)

// eventKindMap maps the agent feed's event-type vocabulary onto canonical
// kinds. The feed vocabulary is known but non-exhaustive; tags missing from
// this table pass through verbatim rather than being rejected, so a feed
// upgrade cannot silently drop events.
var eventKindMap = map[string]EventKind{
	"new_trade":       KindTrade,
	"trade_update":    KindTrade,
	"trade_closed":    KindTrade,
	"trade_executed":  KindTrade,
	"signal_detected": KindSignal,
	"signal":          KindSignal,
	"status_update":   KindAgentStatus,
	"agent_status":    KindAgentStatus,
	"heartbeat":       KindAgentStatus,
	"balance_update":  KindBalance,
	"wallet_balance":  KindBalance,
	"position_update": KindPosition,
	"position_opened": KindPosition,
	"position_closed": KindPosition,
	"error":           KindError,
	"execution_error": KindError,
}

// MapEventKind resolves a feed event-type tag to a canonical kind,
// passing unrecognized tags through unchanged.
func MapEventKind(tag string) EventKind {
	if kind, ok := eventKindMap[tag]; ok {
		return kind
	}
	return tag
}

// IsTradeEvent reports whether a feed event tag carries trade leg data
func IsTradeEvent(tag string) bool {
	return MapEventKind(tag) == KindTrade
}
