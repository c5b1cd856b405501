package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// mockWSServer creates a test WebSocket server. handler receives the
// 1-based connection number.
func mockWSServer(t *testing.T, handler func(n int, conn *websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	var conns atomic.Int32

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(int(conns.Add(1)), conn)
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

// inbox collects decoded frames.
type inbox struct {
	mu   sync.Mutex
	msgs []PushMessage
}

func (in *inbox) add(t *testing.T, data []byte) {
	var msg PushMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Errorf("bad frame %q: %v", data, err)
		return
	}
	in.mu.Lock()
	in.msgs = append(in.msgs, msg)
	in.mu.Unlock()
}

func (in *inbox) wait(t *testing.T, n int) []PushMessage {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		in.mu.Lock()
		if len(in.msgs) >= n {
			msgs := append([]PushMessage(nil), in.msgs...)
			in.mu.Unlock()
			return msgs
		}
		in.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d messages", n)
	return nil
}

func TestPusher_Deliver(t *testing.T) {
	in := &inbox{}
	server := mockWSServer(t, func(_ int, conn *websocket.Conn) {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			in.add(t, data)
		}
	})
	defer server.Close()

	p := NewPusher(PusherConfig{URL: wsURL(server)}, nil)
	defer p.Close()

	rec := Record{Watch: "new_items", Entities: []EntityRecord{{Name: "Mystic Coin", ID: 19976, Code: "[&AgEITgAA]"}}}
	if err := p.Deliver(context.Background(), "a@example.com", rec); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	if !p.IsConnected() {
		t.Error("expected connection after first delivery")
	}

	msgs := in.wait(t, 1)
	if msgs[0].Account != "a@example.com" || msgs[0].Watch != "new_items" || msgs[0].Entities[0].ID != 19976 {
		t.Errorf("received %+v", msgs[0])
	}
}

func TestPusher_SendsAPIKey(t *testing.T) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	auth := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth <- r.Header.Get("Authorization")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	p := NewPusher(PusherConfig{URL: wsURL(server), APIKey: "relay-secret"}, nil)
	defer p.Close()

	if err := p.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	select {
	case got := <-auth:
		if got != "Bearer relay-secret" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer relay-secret")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("relay never saw the handshake")
	}
}

func TestPusher_ReconnectsAfterDrop(t *testing.T) {
	in := &inbox{}
	server := mockWSServer(t, func(n int, conn *websocket.Conn) {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			in.add(t, data)
			if n == 1 {
				return // drop the first connection after one frame
			}
		}
	})
	defer server.Close()

	p := NewPusher(PusherConfig{URL: wsURL(server)}, nil)
	defer p.Close()
	ctx := context.Background()

	if err := p.Deliver(ctx, "a", Record{Watch: "first"}); err != nil {
		t.Fatalf("first Deliver failed: %v", err)
	}
	in.wait(t, 1)

	deadline := time.Now().Add(2 * time.Second)
	for p.IsConnected() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if p.IsConnected() {
		t.Fatal("expected pusher to notice the dropped connection")
	}

	if err := p.Deliver(ctx, "a", Record{Watch: "second"}); err != nil {
		t.Fatalf("second Deliver failed: %v", err)
	}
	msgs := in.wait(t, 2)
	if msgs[1].Watch != "second" {
		t.Errorf("second frame = %+v", msgs[1])
	}
}

func TestPusher_Close(t *testing.T) {
	server := mockWSServer(t, func(_ int, conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	p := NewPusher(PusherConfig{URL: wsURL(server)}, nil)
	if err := p.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if p.IsConnected() {
		t.Error("expected IsConnected false after Close")
	}

	err := p.Deliver(context.Background(), "a", Record{})
	if !errors.Is(err, ErrPusherClosed) {
		t.Errorf("Deliver after Close = %v, want ErrPusherClosed", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}

func TestPusher_DialFailure(t *testing.T) {
	server := mockWSServer(t, func(int, *websocket.Conn) {})
	url := wsURL(server)
	server.Close()

	p := NewPusher(PusherConfig{URL: url, HandshakeTimeout: time.Second}, nil)
	defer p.Close()

	if err := p.Deliver(context.Background(), "a", Record{}); err == nil {
		t.Error("expected error dialing a closed server")
	}
}

func TestNewPusher_Defaults(t *testing.T) {
	p := NewPusher(PusherConfig{URL: "ws://example.invalid"}, nil)
	if p.cfg != (PusherConfig{URL: "ws://example.invalid", HandshakeTimeout: 10 * time.Second, WriteTimeout: 5 * time.Second, PingInterval: 30 * time.Second, PingTimeout: 90 * time.Second}) {
		t.Errorf("cfg = %+v", p.cfg)
	}
}
