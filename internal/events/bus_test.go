package events

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus(zerolog.New(nil).Level(zerolog.Disabled))

	var received []Event
	bus.Subscribe(LegIngested, func(e Event) {
		received = append(received, e)
	})

	bus.Publish(Event{Type: LegIngested, Data: LegIngestedData{LegID: "b1", AgentID: "agent-1"}})
	bus.Publish(Event{Type: BatchImported, Data: BatchImportedData{Imported: 3}})

	assert.Len(t, received, 1)
	data, ok := received[0].Data.(LegIngestedData)
	assert.True(t, ok)
	assert.Equal(t, "b1", data.LegID)
}

func TestBusMultipleHandlers(t *testing.T) {
	bus := NewBus(zerolog.New(nil).Level(zerolog.Disabled))

	count := 0
	bus.Subscribe(BatchImported, func(Event) { count++ })
	bus.Subscribe(BatchImported, func(Event) { count++ })

	bus.Publish(Event{Type: BatchImported})
	assert.Equal(t, 2, count)
}

func TestBusNoHandlers(t *testing.T) {
	bus := NewBus(zerolog.New(nil).Level(zerolog.Disabled))
	// Publishing with no subscribers must not panic
	bus.Publish(Event{Type: FeedStateChanged})
}
