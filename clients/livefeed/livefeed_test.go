package livefeed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(nil, "ws://localhost:8001/ws/live", 0)

	if c.logger == nil {
		t.Error("expected nop logger when nil is passed")
	}
	if c.pingInterval != 30*time.Second {
		t.Errorf("unexpected default ping interval: %v", c.pingInterval)
	}
	if c.Connected() {
		t.Error("expected new client to be disconnected")
	}
	if cap(c.msgCh) != 64 {
		t.Errorf("unexpected msgCh capacity: %d", cap(c.msgCh))
	}
}

func TestParseEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		wantTyp string
		wantErr bool
	}{
		{
			name:    "data update",
			frame:   `{"type":"data_update","timestamp":"2026-08-30T12:00:00","count":1,"data":[{"currency":"ETH"}]}`,
			wantTyp: TypeDataUpdate,
		},
		{
			name:    "pong",
			frame:   `{"type":"pong"}`,
			wantTyp: TypePong,
		},
		{
			name:    "unknown type",
			frame:   `{"type":"surprise"}`,
			wantErr: true,
		},
		{
			name:    "missing type",
			frame:   `{"data":[]}`,
			wantErr: true,
		},
		{
			name:    "malformed json",
			frame:   `{"type":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := ParseEnvelope(json.RawMessage(tt.frame))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if env.Type != tt.wantTyp {
				t.Errorf("unexpected type: %s", env.Type)
			}
		})
	}
}

func TestForward_DropsWhenFull(t *testing.T) {
	c := NewClient(zap.NewNop(), "ws://unused", time.Second)

	for i := 0; i < cap(c.msgCh)+10; i++ {
		c.forward(json.RawMessage(`{}`))
	}

	if len(c.msgCh) != cap(c.msgCh) {
		t.Errorf("expected full channel, got %d of %d", len(c.msgCh), cap(c.msgCh))
	}
}

func TestRequestRefresh_NotConnected(t *testing.T) {
	c := NewClient(zap.NewNop(), "ws://unused", time.Second)

	if err := c.RequestRefresh(); err == nil {
		t.Fatal("expected error when not connected")
	}
}

// liveServer upgrades connections and speaks the backend's framing: an
// immediate data_update on connect, a pong for each "ping", a fresh
// data_update for each "refresh".
func liveServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		push := func() {
			_ = conn.WriteJSON(map[string]any{
				"type":      "data_update",
				"timestamp": time.Now().Format(time.RFC3339),
				"count":     1,
				"data":      []map[string]any{{"currency": "ETH", "net_apr": 42.0}},
			})
		}
		push()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			switch string(msg) {
			case "ping":
				_ = conn.WriteJSON(map[string]string{"type": "pong"})
			case "refresh":
				push()
			}
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestConnect_ReceivesInitialSnapshot(t *testing.T) {
	server := liveServer(t)
	c := NewClient(zap.NewNop(), wsURL(server), time.Hour)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Connect(ctx); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if !c.Connected() {
		t.Fatal("expected connected state")
	}

	select {
	case raw := <-c.Messages():
		env, err := ParseEnvelope(raw)
		if err != nil {
			t.Fatalf("bad frame: %v", err)
		}
		if env.Type != TypeDataUpdate {
			t.Errorf("unexpected type: %s", env.Type)
		}
		if env.Count != 1 {
			t.Errorf("unexpected count: %d", env.Count)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for initial snapshot")
	}

	stats := c.Stats()
	if stats.MessageCount == 0 {
		t.Error("expected message count to advance")
	}
	if stats.LastMessageAt.IsZero() {
		t.Error("expected last message time to be set")
	}
}

func TestRequestRefresh_TriggersDataUpdate(t *testing.T) {
	server := liveServer(t)
	c := NewClient(zap.NewNop(), wsURL(server), time.Hour)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Connect(ctx); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	// Drain the connect-time push first.
	select {
	case <-c.Messages():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for initial snapshot")
	}

	if err := c.RequestRefresh(); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	select {
	case raw := <-c.Messages():
		env, err := ParseEnvelope(raw)
		if err != nil {
			t.Fatalf("bad frame: %v", err)
		}
		if env.Type != TypeDataUpdate {
			t.Errorf("unexpected type: %s", env.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for refresh push")
	}
}

func TestReadError_SurfacesOnErrorChannel(t *testing.T) {
	server := liveServer(t)
	c := NewClient(zap.NewNop(), wsURL(server), time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Connect(ctx); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	server.CloseClientConnections()

	select {
	case err := <-c.Errors():
		if err == nil {
			t.Fatal("expected non-nil read error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for read error")
	}

	// The read loop tears the connection down just after reporting the
	// error, so give it a moment.
	deadline := time.Now().Add(2 * time.Second)
	for c.Connected() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if c.Connected() {
		t.Error("expected disconnected state after read error")
	}
}

func TestConnect_AlreadyConnected(t *testing.T) {
	server := liveServer(t)
	c := NewClient(zap.NewNop(), wsURL(server), time.Hour)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Connect(ctx); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	if err := c.Connect(ctx); err == nil {
		t.Fatal("expected error on double connect")
	}
}

func TestPingLoop_ExitsAfterCloseReplacesStopChannel(t *testing.T) {
	c := NewClient(zap.NewNop(), "ws://127.0.0.1:1/ws/live", 5*time.Millisecond)

	c.connMu.Lock()
	done := c.closeCh
	c.connMu.Unlock()

	exited := make(chan struct{})
	go func() {
		c.pingLoop(done)
		close(exited)
	}()

	// Close swaps in a fresh closeCh for the next Connect. The loop holds
	// the old channel and must still stop.
	_ = c.Close()

	select {
	case <-exited:
	case <-time.After(2 * time.Second):
		t.Fatal("ping loop kept running after close")
	}
}
