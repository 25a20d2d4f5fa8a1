package events

import "sync"

// FeedState tracks the live feed's connection state from FeedStateChanged
// events, so status surfaces read the bus instead of holding a handle on
// the feed client itself. Zero value reports disconnected.
type FeedState struct {
	mu        sync.RWMutex
	connected bool
}

// NewFeedState creates a tracker; wire it with Subscribe(FeedStateChanged, f.Handle)
func NewFeedState() *FeedState {
	return &FeedState{}
}

// Handle consumes FeedStateChanged events from the bus
func (f *FeedState) Handle(event Event) {
	data, ok := event.Data.(FeedStateChangedData)
	if !ok {
		return
	}
	f.mu.Lock()
	f.connected = data.Connected
	f.mu.Unlock()
}

// IsConnected reports the last state the feed published
func (f *FeedState) IsConnected() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.connected
}
