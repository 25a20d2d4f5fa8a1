package events

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestFeedStateTracksBusEvents(t *testing.T) {
	bus := NewBus(zerolog.New(nil).Level(zerolog.Disabled))
	state := NewFeedState()
	bus.Subscribe(FeedStateChanged, state.Handle)

	assert.False(t, state.IsConnected())

	bus.Publish(Event{Type: FeedStateChanged, Data: FeedStateChangedData{Connected: true, URL: "ws://feed"}})
	assert.True(t, state.IsConnected())

	bus.Publish(Event{Type: FeedStateChanged, Data: FeedStateChangedData{Connected: false}})
	assert.False(t, state.IsConnected())
}

func TestFeedStateIgnoresForeignPayloads(t *testing.T) {
	state := NewFeedState()
	state.Handle(Event{Type: FeedStateChanged, Data: LegIngestedData{LegID: "b1"}})
	assert.False(t, state.IsConnected())
}
