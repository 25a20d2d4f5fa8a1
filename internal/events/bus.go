// Package events provides the in-process pub/sub bus connecting ingestion
// paths (webhook, batch import, live feed) to the reconciliation trigger.
package events

import (
	"sync"

	"github.com/rs/zerolog"
)

// EventType identifies the kind of event published on the bus
type EventType string

const (
	// LegIngested fires for every leg accepted from any source
	LegIngested EventType = "leg_ingested"
	// BatchImported fires after a CSV/JSON batch completes
	BatchImported EventType = "batch_imported"
	// FeedStateChanged fires when the live feed connects or drops
	FeedStateChanged EventType = "feed_state_changed"
)

// Event is one published occurrence with its payload
type Event struct {
	Type EventType
	Data interface{}
}

// LegIngestedData is the payload for LegIngested events
type LegIngestedData struct {
	LegID   string
	AgentID string
	Source  string
}

// BatchImportedData is the payload for BatchImported events
type BatchImportedData struct {
	AgentID    string
	Dialect    string
	Imported   int
	Duplicates int
	Errors     int
}

// FeedStateChangedData is the payload for FeedStateChanged events
type FeedStateChangedData struct {
	Connected bool
	URL       string
}

// Handler processes one event. Handlers run synchronously on the
// publisher's goroutine and must not block.
type Handler func(Event)

// Bus is a synchronous in-process event bus
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	log      zerolog.Logger
}

// NewBus creates a new event bus
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
		log:      log.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe registers a handler for an event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish delivers an event to every subscribed handler
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := b.handlers[event.Type]
	b.mu.RUnlock()

	b.log.Debug().Str("event", string(event.Type)).Int("handlers", len(handlers)).Msg("Publishing event")
	for _, handler := range handlers {
		handler(event)
	}
}
