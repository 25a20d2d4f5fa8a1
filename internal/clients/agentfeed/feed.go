// Package agentfeed maintains the live WebSocket connection to a trading
// agent's event stream and forwards trade events into the ledger.
package agentfeed

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/alevras/tally/internal/domain"
	"github.com/alevras/tally/internal/events"
	"github.com/alevras/tally/internal/ingest"
)

const (
	dialTimeout = 30 * time.Second

	// Reconnection constants
	baseReconnectDelay   = 5 * time.Second
	maxReconnectDelay    = 5 * time.Minute
	maxReconnectAttempts = 10
)

// TradeSink receives trade events extracted from the feed
type TradeSink interface {
	IngestStreamEvent(kind string, raw ingest.RawRecord, agentID string) (*domain.TradeLeg, bool, error)
}

// Client handles the real-time agent event feed
type Client struct {
	// Connection
	url        string
	agentID    string // Fallback scope for events without an agent identity
	httpClient *http.Client
	conn       *websocket.Conn
	connCtx    context.Context
	cancelFunc context.CancelFunc
	mu         sync.RWMutex

	// Dependencies
	sink TradeSink
	bus  *events.Bus
	log  zerolog.Logger

	// State
	connected    bool
	reconnecting bool
	stopChan     chan struct{}
	stopped      bool
}

// createHTTP1Client creates an HTTP client that forces HTTP/1.1.
// Proxies in front of agent feeds negotiate HTTP/2 via TLS ALPN, but the
// WebSocket upgrade handshake requires HTTP/1.1.
func createHTTP1Client() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSClientConfig: &tls.Config{
				NextProtos: []string{"http/1.1"},
			},
			ForceAttemptHTTP2: false,
		},
	}
}

// NewClient creates a new agent feed client
func NewClient(url, agentID string, sink TradeSink, bus *events.Bus, log zerolog.Logger) *Client {
	return &Client{
		url:        url,
		agentID:    agentID,
		httpClient: createHTTP1Client(),
		sink:       sink,
		bus:        bus,
		log:        log.With().Str("component", "agent_feed").Logger(),
		stopChan:   make(chan struct{}),
	}
}

// Start initializes the WebSocket connection and starts the read loop
func (c *Client) Start() error {
	c.log.Info().Str("url", c.url).Msg("Starting agent feed client")

	if err := c.Connect(); err != nil {
		c.log.Warn().Err(err).Msg("Initial feed connection failed, will retry in background")
		go c.reconnectLoop()
		return err
	}

	c.mu.RLock()
	ctx := c.connCtx
	c.mu.RUnlock()
	go c.readMessages(ctx)

	c.log.Info().Msg("Agent feed client started")
	return nil
}

// Stop gracefully shuts down the feed connection
func (c *Client) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	c.mu.Unlock()

	c.log.Info().Msg("Stopping agent feed client")
	close(c.stopChan)

	return c.Disconnect()
}

// Connect establishes the WebSocket connection
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	dialCtx, dialCancel := context.WithTimeout(context.Background(), dialTimeout)
	defer dialCancel()

	conn, _, err := websocket.Dial(dialCtx, c.url, &websocket.DialOptions{
		HTTPClient: c.httpClient,
	})
	if err != nil {
		return fmt.Errorf("failed to dial feed: %w", err)
	}

	connCtx, connCancel := context.WithCancel(context.Background())
	c.conn = conn
	c.connCtx = connCtx
	c.cancelFunc = connCancel
	c.connected = true

	c.log.Info().Msg("Connected to agent feed")
	c.publishState(true)
	return nil
}

// Disconnect closes the WebSocket connection
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}

	if c.cancelFunc != nil {
		c.cancelFunc()
		c.cancelFunc = nil
	}

	err := c.conn.Close(websocket.StatusNormalClosure, "")
	c.conn = nil
	c.connCtx = nil
	c.connected = false
	c.publishState(false)

	if err != nil {
		return fmt.Errorf("error closing feed connection: %w", err)
	}
	return nil
}

// IsConnected returns current connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// readMessages continuously reads messages from the feed
func (c *Client) readMessages(ctx context.Context) {
	defer func() {
		c.log.Info().Msg("Feed read loop stopped")
		c.mu.RLock()
		stopped := c.stopped
		c.mu.RUnlock()
		if !stopped {
			go c.reconnectLoop()
		}
	}()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ctx.Done():
			c.log.Debug().Msg("Read loop context cancelled")
			return
		default:
		}

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()

		if conn == nil {
			c.log.Warn().Msg("Connection is nil, stopping read loop")
			return
		}

		msgType, message, err := conn.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				c.log.Info().Int("status", int(closeStatus)).Msg("Feed closed normally")
			} else if ctx.Err() != nil {
				c.log.Debug().Msg("Read cancelled by context")
			} else {
				c.log.Error().Err(err).Msg("Unexpected feed read error")
			}
			return
		}

		if msgType != websocket.MessageText {
			c.log.Debug().Int("type", int(msgType)).Msg("Ignoring non-text message")
			continue
		}

		if err := c.handleMessage(message); err != nil {
			c.log.Error().Err(err).Str("message", string(message)).Msg("Failed to handle feed message")
			// Continue reading despite bad messages
		}
	}
}

// envelope is the wire shape of one feed message. The payload is either
// nested under data or inlined on the envelope itself; both occur in the
// wild depending on the agent runtime version.
type envelope struct {
	Type    string                 `json:"type"`
	Event   string                 `json:"event"`
	AgentID string                 `json:"agentId"`
	Data    map[string]interface{} `json:"data"`
}

// handleMessage parses one feed message and forwards trade events
func (c *Client) handleMessage(message []byte) error {
	var env envelope
	if err := json.Unmarshal(message, &env); err != nil {
		return fmt.Errorf("failed to parse feed message: %w", err)
	}

	tag := env.Type
	if tag == "" {
		tag = env.Event
	}
	if tag == "" {
		return fmt.Errorf("feed message has no event type")
	}

	kind := ingest.MapEventKind(tag)
	if !ingest.IsTradeEvent(tag) {
		c.log.Debug().Str("kind", kind).Msg("Ignoring non-trade feed event")
		return nil
	}

	payload := env.Data
	if payload == nil {
		// Inline payload: re-parse the envelope as the record itself
		if err := json.Unmarshal(message, &payload); err != nil {
			return fmt.Errorf("failed to parse inline payload: %w", err)
		}
	}

	agentID := env.AgentID
	if agentID == "" {
		agentID = c.agentID
	}

	leg, fresh, err := c.sink.IngestStreamEvent(kind, ingest.RawRecord(payload), agentID)
	if err != nil {
		return fmt.Errorf("failed to ingest feed trade: %w", err)
	}
	if leg != nil && fresh {
		c.log.Info().
			Str("leg_id", leg.ID).
			Str("agent_id", leg.AgentID).
			Str("token", leg.Token()).
			Msg("Feed trade ingested")
	}
	return nil
}

// publishState emits a feed connectivity change. Callers hold c.mu.
func (c *Client) publishState(connected bool) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(events.Event{
		Type: events.FeedStateChanged,
		Data: events.FeedStateChangedData{
			Connected: connected,
			URL:       c.url,
		},
	})
}

// reconnectLoop handles automatic reconnection with exponential backoff
func (c *Client) reconnectLoop() {
	c.mu.Lock()
	if c.reconnecting || c.stopped {
		c.mu.Unlock()
		return
	}
	c.reconnecting = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.reconnecting = false
		c.mu.Unlock()
	}()

	attempt := 0
	for {
		select {
		case <-c.stopChan:
			c.log.Info().Msg("Reconnection loop stopped")
			return
		default:
		}

		c.mu.RLock()
		stopped := c.stopped
		c.mu.RUnlock()
		if stopped {
			return
		}

		attempt++
		delay := calculateBackoff(attempt)

		if attempt <= maxReconnectAttempts {
			c.log.Info().
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("Attempting to reconnect to feed")
		} else {
			c.log.Warn().
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("Reconnection attempt (exceeded max attempts, will keep retrying)")
		}

		select {
		case <-time.After(delay):
		case <-c.stopChan:
			return
		}

		if err := c.Connect(); err != nil {
			c.log.Error().Err(err).
				Int("attempt", attempt).
				Msg("Reconnection failed")
			continue
		}

		c.log.Info().
			Int("attempt", attempt).
			Msg("Reconnected to feed")
		attempt = 0

		c.mu.RLock()
		ctx := c.connCtx
		c.mu.RUnlock()
		go c.readMessages(ctx)
		return
	}
}

// calculateBackoff calculates exponential backoff delay
func calculateBackoff(attempt int) time.Duration {
	delay := float64(baseReconnectDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(maxReconnectDelay) {
		delay = float64(maxReconnectDelay)
	}
	return time.Duration(delay)
}
