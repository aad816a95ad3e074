package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iskinnyufat-del/mc/internal/observability"
)

// SlotMonitorConfig configures SlotMonitor behavior.
type SlotMonitorConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultSlotMonitorConfig returns default monitor configuration.
func DefaultSlotMonitorConfig() SlotMonitorConfig {
	return SlotMonitorConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// SlotMonitor keeps a slotSubscribe subscription open against one WebSocket
// endpoint and tracks the most recently observed slot. It reconnects with
// exponential backoff and resubscribes after a drop.
type SlotMonitor struct {
	endpoint string
	config   SlotMonitorConfig
	logger   *log.Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	requestID atomic.Uint64

	slot       atomic.Int64
	lastUpdate atomic.Int64 // unix seconds of the last slot notification

	// OnSlot, when set before Start, is invoked for every slot notification.
	OnSlot func(slot int64)

	done chan struct{}
	wg   sync.WaitGroup
}

// NewSlotMonitor creates a monitor for the given WebSocket endpoint.
// Start must be called to connect.
func NewSlotMonitor(endpoint string, config *SlotMonitorConfig, logger *log.Logger) *SlotMonitor {
	cfg := DefaultSlotMonitorConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = log.Default()
	}
	return &SlotMonitor{
		endpoint: endpoint,
		config:   cfg,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start connects, subscribes, and launches the read and ping loops.
func (m *SlotMonitor) Start(ctx context.Context) error {
	if err := m.connect(ctx); err != nil {
		return err
	}

	m.wg.Add(2)
	go m.readLoop()
	go m.pingLoop()

	return nil
}

// CurrentSlot returns the most recently observed slot, 0 before the first
// notification.
func (m *SlotMonitor) CurrentSlot() int64 {
	return m.slot.Load()
}

// LastUpdate returns the time of the last slot notification, zero before the
// first one.
func (m *SlotMonitor) LastUpdate() time.Time {
	sec := m.lastUpdate.Load()
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}

// Close stops the monitor and closes the connection.
func (m *SlotMonitor) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(m.done)

	m.connMu.Lock()
	if m.conn != nil {
		m.conn.Close()
	}
	m.connMu.Unlock()

	m.wg.Wait()
	return nil
}

// wsMessage covers both the subscription confirmation and slot notifications.
type wsMessage struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Method string          `json:"method"`
	Params *struct {
		Result struct {
			Slot int64 `json:"slot"`
		} `json:"result"`
		Subscription int64 `json:"subscription"`
	} `json:"params"`
	Error *rpcError `json:"error"`
}

func (m *SlotMonitor) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: m.config.WriteTimeout}
	conn, _, err := dialer.DialContext(ctx, m.endpoint, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", m.endpoint, err)
	}

	m.connMu.Lock()
	m.conn = conn
	m.connMu.Unlock()

	return m.subscribe(conn)
}

func (m *SlotMonitor) subscribe(conn *websocket.Conn) error {
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      m.requestID.Add(1),
		Method:  "slotSubscribe",
	}

	conn.SetWriteDeadline(time.Now().Add(m.config.WriteTimeout))
	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("send slotSubscribe: %w", err)
	}
	return nil
}

// readLoop reads notifications until shutdown, reconnecting on error.
func (m *SlotMonitor) readLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.done:
			return
		default:
		}

		m.connMu.Lock()
		conn := m.conn
		m.connMu.Unlock()

		conn.SetReadDeadline(time.Now().Add(m.config.ReadTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if m.closed.Load() {
				return
			}
			m.logger.Printf("slot monitor read: %v, reconnecting", err)
			if !m.reconnect() {
				return
			}
			continue
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			m.logger.Printf("slot monitor: malformed message: %v", err)
			continue
		}

		if msg.Error != nil {
			m.logger.Printf("slot monitor: subscription error: %v", msg.Error)
			continue
		}

		if msg.Method == "slotNotification" && msg.Params != nil {
			slot := msg.Params.Result.Slot
			m.slot.Store(slot)
			m.lastUpdate.Store(time.Now().Unix())
			if m.OnSlot != nil {
				m.OnSlot(slot)
			}
		}
	}
}

// reconnect redials with exponential backoff until success or shutdown.
// Returns false when the monitor was closed.
func (m *SlotMonitor) reconnect() bool {
	m.connMu.Lock()
	if m.conn != nil {
		m.conn.Close()
	}
	m.connMu.Unlock()

	delay := m.config.ReconnectDelay
	for {
		select {
		case <-m.done:
			return false
		case <-time.After(delay):
		}

		if err := m.connect(context.Background()); err != nil {
			m.logger.Printf("slot monitor reconnect: %v", err)
			delay *= 2
			if delay > m.config.MaxReconnectDelay {
				delay = m.config.MaxReconnectDelay
			}
			continue
		}

		observability.RecordWSReconnect()
		return true
	}
}

// pingLoop keeps the connection alive.
func (m *SlotMonitor) pingLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.connMu.Lock()
			conn := m.conn
			m.connMu.Unlock()

			conn.SetWriteDeadline(time.Now().Add(m.config.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil && !m.closed.Load() {
				m.logger.Printf("slot monitor ping: %v", err)
			}
		}
	}
}

// WSEndpoint derives a WebSocket endpoint URL from an HTTP RPC endpoint,
// following the Solana convention (https -> wss, http -> ws).
func WSEndpoint(httpEndpoint string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(httpEndpoint))
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	case "ws", "wss":
		// already a websocket URL
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	return u.String(), nil
}
