package socket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Temkum/voting-system-demo/pkg/log"
	"github.com/Temkum/voting-system-demo/pkg/metrics"
)

// Event names on the wire.
const (
	EventJoinPoll    = "join-poll"
	EventLeavePoll   = "leave-poll"
	EventPollCreated = "poll-created"
	EventPollUpdated = "poll-updated"
)

// ErrNotConnected is returned by Emit when the channel is down.
var ErrNotConnected = fmt.Errorf("socket: not connected")

// Frame is the JSON envelope carried over the websocket in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ReconnectPolicy bounds automatic recovery after a dial failure or a
// mid-session drop.
type ReconnectPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Options configures a Conn.
type Options struct {
	URL         string
	AuthToken   string
	DialTimeout time.Duration
	Reconnect   ReconnectPolicy
}

// Conn owns the single shared bidirectional channel to the poll server.
//
// The raw channel does not remember subscriptions across a drop, so a
// recovery after a drop fires the reconnect callbacks (distinct from the
// plain connect callbacks) and the room registry re-asserts every room it
// still tracks. When the retry budget is exhausted the Conn stays
// disconnected until the caller invokes Connect again.
type Conn struct {
	opts Options

	mu            sync.Mutex
	ws            *websocket.Conn
	connected     bool
	everConnected bool
	closed        bool

	cbMu         sync.Mutex
	onConnect    []func()
	onDisconnect []func()
	onReconnect  []func()

	inbound chan Frame
}

// New creates a connection manager. No network activity happens until
// Connect is called.
func New(opts Options) *Conn {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 10 * time.Second
	}
	if opts.Reconnect.InitialBackoff <= 0 {
		opts.Reconnect.InitialBackoff = 500 * time.Millisecond
	}
	if opts.Reconnect.MaxBackoff < opts.Reconnect.InitialBackoff {
		opts.Reconnect.MaxBackoff = 30 * time.Second
	}
	return &Conn{
		opts:    opts,
		inbound: make(chan Frame, 64),
	}
}

// OnConnect registers a callback fired after every successful connect,
// including reconnects.
func (c *Conn) OnConnect(fn func()) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.onConnect = append(c.onConnect, fn)
}

// OnDisconnect registers a callback fired when the channel drops or is
// closed deliberately.
func (c *Conn) OnDisconnect(fn func()) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.onDisconnect = append(c.onDisconnect, fn)
}

// OnReconnect registers a callback fired when the channel is re-established
// after having been connected before. Subscription state must be re-asserted
// from here.
func (c *Conn) OnReconnect(fn func()) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.onReconnect = append(c.onReconnect, fn)
}

// IsConnected reports current connectivity.
func (c *Conn) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Inbound returns the channel of server-pushed frames. The channel is never
// closed; consumers stop on their own signal.
func (c *Conn) Inbound() <-chan Frame {
	return c.inbound
}

// Connect establishes the shared channel, retrying per the reconnect policy.
// Calling Connect on an already connected Conn is a no-op. After the retry
// budget is exhausted Connect returns the last dial error and the Conn stays
// disconnected until the caller tries again.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return nil
	}
	c.closed = false
	c.mu.Unlock()

	logger := log.WithComponent("socket")

	var lastErr error
	backoff := c.opts.Reconnect.InitialBackoff
	for attempt := 0; attempt <= c.opts.Reconnect.MaxAttempts; attempt++ {
		if attempt > 0 {
			logger.Debug().
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("retrying connect")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff *= 2
			if backoff > c.opts.Reconnect.MaxBackoff {
				backoff = c.opts.Reconnect.MaxBackoff
			}
		}

		ws, err := c.dial(ctx)
		if err != nil {
			lastErr = err
			continue
		}

		c.attach(ws)
		return nil
	}

	return fmt.Errorf("failed to connect after %d attempts: %w",
		c.opts.Reconnect.MaxAttempts+1, lastErr)
}

// Close tears down the channel deliberately. Automatic reconnection is
// suppressed; disconnect callbacks still fire.
func (c *Conn) Close() error {
	c.mu.Lock()
	c.closed = true
	ws := c.ws
	wasConnected := c.connected
	c.ws = nil
	c.connected = false
	c.mu.Unlock()

	if ws != nil {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = ws.Close()
	}
	if wasConnected {
		metrics.SocketConnected.Set(0)
		c.fire(c.snapshotCallbacks(&c.onDisconnect))
	}
	return nil
}

// Emit sends an outbound frame. The payload is marshaled as the frame data.
func (c *Conn) Emit(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", event, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected || c.ws == nil {
		return ErrNotConnected
	}
	if err := c.ws.WriteJSON(Frame{Event: event, Data: data}); err != nil {
		return fmt.Errorf("failed to send %s: %w", event, err)
	}
	return nil
}

func (c *Conn) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: c.opts.DialTimeout}
	header := http.Header{}
	if c.opts.AuthToken != "" {
		header.Set("Authorization", "Bearer "+c.opts.AuthToken)
	}
	ws, _, err := dialer.DialContext(ctx, c.opts.URL, header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.opts.URL, err)
	}
	return ws, nil
}

// attach installs a freshly dialed websocket, fires the appropriate
// transition callbacks, and starts the read loop.
func (c *Conn) attach(ws *websocket.Conn) {
	c.mu.Lock()
	c.ws = ws
	c.connected = true
	reconnected := c.everConnected
	c.everConnected = true
	c.mu.Unlock()

	metrics.SocketConnected.Set(1)
	logger := log.WithComponent("socket")
	if reconnected {
		metrics.SocketReconnectsTotal.Inc()
		logger.Info().Msg("channel reconnected")
		c.fire(c.snapshotCallbacks(&c.onReconnect))
	} else {
		logger.Info().Msg("channel connected")
	}
	c.fire(c.snapshotCallbacks(&c.onConnect))

	go c.readLoop(ws)
}

// readLoop pumps inbound frames until the websocket errors. A drop while the
// Conn is not deliberately closed triggers the automatic reconnect loop.
func (c *Conn) readLoop(ws *websocket.Conn) {
	logger := log.WithComponent("socket")
	for {
		var frame Frame
		if err := ws.ReadJSON(&frame); err != nil {
			c.mu.Lock()
			deliberate := c.closed || c.ws != ws
			if c.ws == ws {
				c.ws = nil
				c.connected = false
			}
			c.mu.Unlock()

			if deliberate {
				return
			}

			metrics.SocketConnected.Set(0)
			logger.Warn().Err(err).Msg("channel dropped")
			c.fire(c.snapshotCallbacks(&c.onDisconnect))
			c.reconnectLoop()
			return
		}

		select {
		case c.inbound <- frame:
		default:
			logger.Warn().Str("event", frame.Event).Msg("inbound buffer full, frame dropped")
		}
	}
}

// reconnectLoop retries the dial with increasing backoff after a drop. On
// exhaustion the Conn stays disconnected; only an explicit Connect restarts
// recovery.
func (c *Conn) reconnectLoop() {
	logger := log.WithComponent("socket")
	backoff := c.opts.Reconnect.InitialBackoff

	for attempt := 1; attempt <= c.opts.Reconnect.MaxAttempts; attempt++ {
		time.Sleep(backoff)
		backoff *= 2
		if backoff > c.opts.Reconnect.MaxBackoff {
			backoff = c.opts.Reconnect.MaxBackoff
		}

		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), c.opts.DialTimeout)
		ws, err := c.dial(ctx)
		cancel()
		if err != nil {
			logger.Debug().Err(err).Int("attempt", attempt).Msg("reconnect failed")
			continue
		}

		c.attach(ws)
		return
	}

	logger.Error().
		Int("attempts", c.opts.Reconnect.MaxAttempts).
		Msg("reconnect attempts exhausted, channel stays down")
}

func (c *Conn) snapshotCallbacks(list *[]func()) []func() {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	out := make([]func(), len(*list))
	copy(out, *list)
	return out
}

func (c *Conn) fire(callbacks []func()) {
	for _, fn := range callbacks {
		fn()
	}
}
