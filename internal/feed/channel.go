// Package feed maintains a live order feed over a reconnecting websocket.
//
// A Channel owns exactly one socket handle, its retry counter and the pending
// reconnect timer; the guard on Connect guarantees at most one dial attempt
// in flight. Two independent instances exist in the application: the public
// order feed and the per-user feed, with no shared connection state.
package feed

import (
	"encoding/json"
	"errors"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/VolegzhaninaEM/stellar-burger-sub000/internal/model"
)

// EventType discriminates channel events.
type EventType int

const (
	// EventConnected fires after a successful open. The retry counter is
	// not reset yet: a connection only proves live, and frees its retry
	// budget, once the first frame arrives.
	EventConnected EventType = iota + 1
	// EventDisconnected fires on every close, clean or not.
	EventDisconnected
	// EventSnapshot carries a full snapshot that wholesale-replaced the
	// previous one.
	EventSnapshot
	// EventError carries a diagnostic or server-supplied message. Terminal
	// is set once retries are exhausted and the channel stops trying.
	EventError
)

// Event is pushed to the channel's handler. Handlers are invoked from the
// channel's reader goroutine and must not block.
type Event struct {
	Type     EventType
	Snapshot model.FeedSnapshot
	Message  string
	Terminal bool
}

// State is the observable slice of channel state.
type State struct {
	Snapshot  model.FeedSnapshot
	Connected bool
	Err       string
}

// Options tune the reconnect policy; zero values select the defaults.
type Options struct {
	RetryBase  time.Duration // first reconnect delay, doubles per attempt (default 2s)
	MaxRetries int           // reconnect attempts before giving up (default 3)
	Dialer     *websocket.Dialer
	Logger     *zap.Logger
}

// Channel is one reconnecting feed connection.
type Channel struct {
	url     string
	handler func(Event)
	dialer  *websocket.Dialer
	log     *zap.Logger

	retryBase  time.Duration
	maxRetries int

	mu         sync.Mutex
	conn       *websocket.Conn
	dialing    bool
	stopped    bool
	attempts   int
	retryTimer *time.Timer
	token      string
	snapshot   model.FeedSnapshot
	connected  bool
	lastErr    string
}

// New constructs a Channel for the given websocket URL. handler may be nil.
func New(wsURL string, handler func(Event), opts Options) *Channel {
	if opts.RetryBase <= 0 {
		opts.RetryBase = 2 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.Dialer == nil {
		opts.Dialer = &websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Channel{
		url:        wsURL,
		handler:    handler,
		dialer:     opts.Dialer,
		log:        opts.Logger,
		retryBase:  opts.RetryBase,
		maxRetries: opts.MaxRetries,
	}
}

// State returns the latest snapshot plus connectivity flags. Connected and
// Err are not mutually exclusive: an error can arrive after a disconnect.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := c.snapshot
	snap.Orders = append([]model.Order(nil), c.snapshot.Orders...)
	return State{Snapshot: snap, Connected: c.connected, Err: c.lastErr}
}

// Connect opens the socket, appending token as a query credential when
// non-empty. While a dial is in flight or a connection is open the call is a
// no-op, so rapid repeated connects cannot race two sockets into existence.
func (c *Channel) Connect(token string) {
	c.mu.Lock()
	if c.dialing || c.conn != nil {
		c.mu.Unlock()
		return
	}
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	c.token = token
	c.stopped = false
	c.attempts = 0
	c.dialing = true
	c.mu.Unlock()

	go c.dial()
}

// Disconnect closes the socket with a clean-close code and suppresses any
// scheduled reconnect, including a dial currently parked in the handshake.
// This is the only path that intentionally prevents auto-reconnect; the
// channel stays down until the next Connect.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	c.stopped = true
	c.attempts = c.maxRetries
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	conn := c.conn
	c.conn = nil
	c.connected = false
	c.mu.Unlock()

	if conn != nil {
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = conn.Close()
		c.emit(Event{Type: EventDisconnected})
	}
}

func (c *Channel) dial() {
	target := c.url
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token != "" {
		if u, err := url.Parse(target); err == nil {
			q := u.Query()
			q.Set("token", token)
			u.RawQuery = q.Encode()
			target = u.String()
		}
	}

	conn, resp, err := c.dialer.Dial(target, nil) //nolint:bodyclose // no body on a successful upgrade
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		c.mu.Lock()
		c.dialing = false
		c.mu.Unlock()
		c.log.Warn("feed dial failed", zap.String("url", c.url), zap.Error(err))
		c.setErr(dialMessage(err))
		c.emit(Event{Type: EventError, Message: dialMessage(err)})
		c.scheduleRetry()
		return
	}

	c.mu.Lock()
	if c.stopped {
		// Disconnect arrived while the handshake was in flight.
		c.dialing = false
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.dialing = false
	c.connected = true
	c.lastErr = ""
	c.mu.Unlock()
	c.log.Info("feed connected", zap.String("url", c.url))
	c.emit(Event{Type: EventConnected})

	c.readLoop(conn)
}

type frame struct {
	Success    bool          `json:"success"`
	Message    string        `json:"message"`
	Orders     []model.Order `json:"orders"`
	Total      int           `json:"total"`
	TotalToday int           `json:"totalToday"`
}

func (c *Channel) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			owned := c.conn == conn
			if owned {
				c.conn = nil
				c.connected = false
			}
			c.mu.Unlock()
			if !owned {
				// Disconnect already took the handle and announced the close.
				return
			}
			c.emit(Event{Type: EventDisconnected})
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				c.log.Info("feed closed cleanly", zap.String("url", c.url))
				return
			}
			c.log.Warn("feed closed abnormally", zap.String("url", c.url), zap.Error(err))
			c.scheduleRetry()
			return
		}

		// Any frame proves the connection live and frees the retry budget.
		c.mu.Lock()
		c.attempts = 0
		c.mu.Unlock()

		var f frame
		if jerr := json.Unmarshal(raw, &f); jerr != nil {
			c.setErr("malformed feed frame")
			c.emit(Event{Type: EventError, Message: "malformed feed frame"})
			continue
		}
		if !f.Success {
			// Existing snapshot stays untouched.
			c.setErr(f.Message)
			c.emit(Event{Type: EventError, Message: f.Message})
			continue
		}

		snap := model.FeedSnapshot{Orders: f.Orders, Total: f.Total, TotalToday: f.TotalToday}
		c.mu.Lock()
		c.snapshot = snap
		c.lastErr = ""
		c.mu.Unlock()
		c.emit(Event{Type: EventSnapshot, Snapshot: snap})
	}
}

func (c *Channel) scheduleRetry() {
	c.mu.Lock()
	if c.stopped {
		// Intentional disconnect; neither a retry nor a terminal error.
		c.mu.Unlock()
		return
	}
	if c.attempts >= c.maxRetries {
		c.lastErr = "connection lost"
		c.mu.Unlock()
		c.log.Warn("feed reconnect attempts exhausted", zap.String("url", c.url))
		c.emit(Event{Type: EventError, Message: "connection lost", Terminal: true})
		return
	}
	c.attempts++
	delay := c.retryBase << (c.attempts - 1)
	c.log.Info("scheduling feed reconnect",
		zap.String("url", c.url),
		zap.Int("attempt", c.attempts),
		zap.Duration("delay", delay),
	)
	c.retryTimer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		if c.stopped || c.dialing || c.conn != nil {
			c.mu.Unlock()
			return
		}
		c.retryTimer = nil
		c.dialing = true
		c.mu.Unlock()
		c.dial()
	})
	c.mu.Unlock()
}

func (c *Channel) setErr(msg string) {
	c.mu.Lock()
	c.lastErr = msg
	c.mu.Unlock()
}

func (c *Channel) emit(ev Event) {
	if c.handler != nil {
		c.handler(ev)
	}
}

// dialMessage distinguishes "offline" from "server unreachable" as far as the
// platform lets us tell them apart.
func dialMessage(err error) string {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "network offline or host unknown"
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return "connection timed out"
	}
	return "server unreachable"
}
