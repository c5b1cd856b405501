package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	ErrNotConnected = errors.New("not connected")
	ErrPusherClosed = errors.New("pusher closed")
)

// PusherConfig configures a Pusher.
type PusherConfig struct {
	URL              string        // Relay endpoint, ws:// or wss://
	APIKey           string        // Sent as a bearer token when set
	HandshakeTimeout time.Duration // Dial timeout
	WriteTimeout     time.Duration // Write deadline per message
	PingInterval     time.Duration // How often to ping the relay
	PingTimeout      time.Duration // Max time without a pong before the connection is dropped
}

// DefaultPusherConfig returns sensible defaults.
func DefaultPusherConfig() PusherConfig {
	return PusherConfig{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		PingInterval:     30 * time.Second,
		PingTimeout:      90 * time.Second,
	}
}

// PushMessage is the JSON frame sent for each delivery.
type PushMessage struct {
	Account string `json:"account"`
	Record
}

// Pusher forwards records to a WebSocket relay. It implements Deliverer and
// reconnects on demand when the connection drops.
type Pusher struct {
	cfg    PusherConfig
	logger *slog.Logger

	// Write serialization
	writeMu sync.Mutex

	// State
	mu         sync.RWMutex
	conn       *websocket.Conn
	stop       chan struct{}
	lastPongAt time.Time
	closed     bool
}

// NewPusher creates a Pusher. It does not dial until Connect or the first delivery.
func NewPusher(cfg PusherConfig, logger *slog.Logger) *Pusher {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultPusherConfig()
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = def.HandshakeTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = def.PingTimeout
	}
	return &Pusher{
		cfg:    cfg,
		logger: logger,
	}
}

// Connect dials the relay. It is a no-op while a connection is up.
func (p *Pusher) Connect(ctx context.Context) error {
	p.mu.RLock()
	closed, connected := p.closed, p.conn != nil
	p.mu.RUnlock()
	if closed {
		return ErrPusherClosed
	}
	if connected {
		return nil
	}

	// Build headers
	header := http.Header{}
	if p.cfg.APIKey != "" {
		header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: p.cfg.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, p.cfg.URL, header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", p.cfg.URL, err)
	}

	stop := make(chan struct{})

	p.mu.Lock()
	if p.closed || p.conn != nil {
		closed := p.closed
		p.mu.Unlock()
		conn.Close()
		if closed {
			return ErrPusherClosed
		}
		return nil
	}
	p.conn = conn
	p.stop = stop
	p.lastPongAt = time.Now()
	p.mu.Unlock()

	conn.SetPongHandler(func(string) error {
		p.mu.Lock()
		p.lastPongAt = time.Now()
		p.mu.Unlock()
		return nil
	})

	go p.readLoop(conn, stop)
	go p.heartbeatLoop(conn, stop)

	p.logger.Debug("websocket connected", "url", p.cfg.URL)

	return nil
}

// IsConnected returns the current connection state.
func (p *Pusher) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.conn != nil
}

// Deliver implements Deliverer.
func (p *Pusher) Deliver(ctx context.Context, account string, rec Record) error {
	return p.Push(ctx, PushMessage{Account: account, Record: rec})
}

// Push sends v as a JSON text frame, reconnecting once if the connection is gone
// or the write fails.
func (p *Pusher) Push(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	err = p.send(ctx, data)
	if err == nil || errors.Is(err, ErrPusherClosed) {
		return err
	}

	p.logger.Debug("push failed, reconnecting", "err", err)
	return p.send(ctx, data)
}

func (p *Pusher) send(ctx context.Context, data []byte) error {
	if err := p.Connect(ctx); err != nil {
		return err
	}

	p.mu.RLock()
	conn := p.conn
	p.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(p.cfg.WriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		p.detach(conn)
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Close gracefully closes the connection. Later deliveries fail with ErrPusherClosed.
func (p *Pusher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	conn := p.conn
	p.mu.Unlock()

	if conn == nil {
		return nil
	}

	// Send close message
	conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	p.detach(conn)
	return nil
}

// detach drops conn if it is still the current connection.
func (p *Pusher) detach(conn *websocket.Conn) {
	p.mu.Lock()
	if p.conn != conn {
		p.mu.Unlock()
		return
	}
	p.conn = nil
	close(p.stop)
	p.mu.Unlock()

	conn.Close()
}

// readLoop drains the relay so control frames are processed.
func (p *Pusher) readLoop(conn *websocket.Conn, stop chan struct{}) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			select {
			case <-stop:
			default:
				p.logger.Debug("websocket read failed", "err", err)
				p.detach(conn)
			}
			return
		}
	}
}

// heartbeatLoop pings the relay and drops a stale connection.
func (p *Pusher) heartbeatLoop(conn *websocket.Conn, stop chan struct{}) {
	ticker := time.NewTicker(p.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			deadline := time.Now().Add(p.cfg.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
				p.logger.Debug("failed to send ping", "err", err)
			}

			p.mu.RLock()
			lastPong := p.lastPongAt
			p.mu.RUnlock()

			if time.Since(lastPong) > p.cfg.PingTimeout {
				p.logger.Warn("no pong received, connection stale",
					"last_pong", lastPong,
					"timeout", p.cfg.PingTimeout,
				)
				p.detach(conn)
				return
			}
		}
	}
}
