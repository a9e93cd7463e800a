// Package livefeed is a WebSocket client for the backend's /ws/live
// channel. It delivers raw data_update frames on a channel and answers the
// server's heartbeat contract (text "ping" out, {"type":"pong"} back).
package livefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Message type values in the stream envelope.
const (
	TypeDataUpdate = "data_update"
	TypePong       = "pong"
)

// Envelope is the typed union of every frame the stream can send. Type
// selects the variant: data_update carries Data, pong carries nothing.
type Envelope struct {
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
	Count     int             `json:"count"`
	Data      json.RawMessage `json:"data"`
}

// ParseEnvelope decodes a raw frame. Frames without a recognized type
// return an error so the caller can log and drop them.
func ParseEnvelope(data json.RawMessage) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	switch env.Type {
	case TypeDataUpdate, TypePong:
		return &env, nil
	default:
		return nil, fmt.Errorf("unknown message type %q", env.Type)
	}
}

// Client maintains one /ws/live connection. It does not reconnect by
// itself; the owner watches Errors() and redials.
type Client struct {
	logger *zap.Logger

	url          string
	dialer       *websocket.Dialer
	pingInterval time.Duration

	connMu  sync.Mutex
	writeMu sync.Mutex
	conn    *websocket.Conn

	msgCh   chan json.RawMessage
	errCh   chan error
	closeCh chan struct{}

	msgCount        uint64
	lastMsgUnixNano int64
}

// NewClient creates a live feed client for the given ws:// URL.
func NewClient(logger *zap.Logger, url string, pingInterval time.Duration) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}

	return &Client{
		logger:       logger,
		url:          url,
		dialer:       websocket.DefaultDialer,
		pingInterval: pingInterval,

		msgCh:   make(chan json.RawMessage, 64),
		errCh:   make(chan error, 16),
		closeCh: make(chan struct{}),
	}
}

// Connect dials the live channel. On success the server immediately pushes
// the current snapshot, so the first data_update usually arrives without
// any request. The heartbeat loop starts with the connection.
func (c *Client) Connect(ctx context.Context) error {
	c.connMu.Lock()
	alreadyConnected := c.conn != nil
	c.connMu.Unlock()
	if alreadyConnected {
		return fmt.Errorf("already connected")
	}

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial live feed: %w", err)
	}

	c.logger.Info("live feed dialed", zap.String("url", c.url))

	conn.SetCloseHandler(func(code int, text string) error {
		c.logger.Warn(
			"live feed close frame received",
			zap.Int("code", code),
			zap.String("reason", text),
		)
		return nil
	})

	// Capture the stop channel for this connection's loops. Close replaces
	// c.closeCh for the next Connect, so the loops must not re-read it.
	c.connMu.Lock()
	c.conn = conn
	done := c.closeCh
	c.connMu.Unlock()

	go c.readLoop(done)
	go c.pingLoop(done)

	go func() {
		select {
		case <-ctx.Done():
			_ = c.Close()
		case <-done:
		}
	}()

	return nil
}

// Connected reports whether a connection is currently open.
func (c *Client) Connected() bool {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn != nil
}

// RequestRefresh sends the refresh directive over the open stream. The
// server answers with a fresh data_update on the same connection.
func (c *Client) RequestRefresh() error {
	return c.writeText("refresh")
}

// Messages delivers raw frames for the owner to parse.
func (c *Client) Messages() <-chan json.RawMessage {
	return c.msgCh
}

// Errors delivers the read error that ended a connection.
func (c *Client) Errors() <-chan error {
	return c.errCh
}

// Stats describes stream liveness for the dashboard.
type Stats struct {
	MessageCount  uint64
	LastMessageAt time.Time
}

func (c *Client) Stats() Stats {
	n := atomic.LoadUint64(&c.msgCount)
	ns := atomic.LoadInt64(&c.lastMsgUnixNano)

	var t time.Time
	if ns > 0 {
		t = time.Unix(0, ns)
	}

	return Stats{
		MessageCount:  n,
		LastMessageAt: t,
	}
}

// Close tears down the connection and stops the loops. The client can be
// reconnected with Connect afterwards.
func (c *Client) Close() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	select {
	case <-c.closeCh:
		// Channel was already closed
	default:
		close(c.closeCh)
	}

	// Fresh channel so a later Connect gets working loops
	c.closeCh = make(chan struct{})

	var err error
	if c.conn != nil {
		err = c.conn.Close()
		c.conn = nil
	}

	return err
}

func (c *Client) writeText(s string) error {
	c.connMu.Lock()
	conn := c.conn
	c.connMu.Unlock()

	if conn == nil {
		return fmt.Errorf("not connected")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return conn.WriteMessage(websocket.TextMessage, []byte(s))
}

// pingLoop probes liveness at a fixed interval, independent of data
// traffic. The server acknowledges with a pong envelope.
func (c *Client) pingLoop(done <-chan struct{}) {
	c.logger.Debug("live feed ping loop started", zap.Duration("interval", c.pingInterval))

	t := time.NewTicker(c.pingInterval)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			c.connMu.Lock()
			conn := c.conn
			c.connMu.Unlock()

			if conn != nil {
				c.writeMu.Lock()
				_ = conn.WriteMessage(websocket.TextMessage, []byte("ping"))
				c.writeMu.Unlock()
			}

		case <-done:
			return
		}
	}
}

func (c *Client) readLoop(done <-chan struct{}) {
	c.logger.Debug("live feed read loop started")

	for {
		select {
		case <-done:
			c.logger.Debug("live feed read loop exiting: stop signaled")
			return
		default:
		}

		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			c.logger.Debug("live feed read loop exiting: conn is nil")
			return
		}

		_, b, err := conn.ReadMessage()
		if err != nil {
			c.logger.Warn("live feed read loop exiting: read error", zap.Error(err))
			select {
			case c.errCh <- err:
			default:
			}
			_ = c.Close()
			return
		}

		atomic.AddUint64(&c.msgCount, 1)
		atomic.StoreInt64(&c.lastMsgUnixNano, time.Now().UnixNano())

		c.forward(json.RawMessage(append([]byte(nil), b...)))
	}
}

func (c *Client) forward(msg json.RawMessage) {
	select {
	case c.msgCh <- msg:
	default:
		c.logger.Warn("dropping live feed message: msgCh full")
	}
}
