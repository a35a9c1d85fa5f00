// Package bridge hosts the WebSocket endpoint the companion browser
// extension connects to, and correlates request/response frames over
// that single connection.
//
// The daemon is the WebSocket server; the extension dials in. At most
// one connection is active at a time and correlation state lives for
// the lifetime of that connection. Calls are fire-and-collect: each
// outbound frame carries a fresh uuid, the matching inbound frame
// releases the waiting caller, and anything late or unknown is
// dropped on the floor.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/browsergate/browsergate/pkg/logging"
)

// Sentinel errors for extension calls.
var (
	// ErrNotConnected is returned immediately when no extension is
	// connected; requests are never queued.
	ErrNotConnected = errors.New("extension not connected")

	// ErrRequestTimeout is returned when the extension does not answer
	// within the call timeout.
	ErrRequestTimeout = errors.New("extension request timed out")
)

const (
	// DefaultAddr is the bridge listen address.
	DefaultAddr = "127.0.0.1:9223"

	// DefaultCallTimeout bounds each extension round-trip.
	DefaultCallTimeout = 30 * time.Second

	endpointPath = "/extension"
)

// Request is the outbound frame sent to the extension.
type Request struct {
	ID     string         `json:"id"`
	Method string         `json:"method"`
	Params map[string]any `json:"params,omitempty"`
}

// Response is the inbound frame from the extension.
type Response struct {
	ID     string          `json:"id"`
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Bridge owns the WebSocket server and the pending-call table.
type Bridge struct {
	logger      *logging.Logger
	addr        string
	callTimeout time.Duration

	upgrader websocket.Upgrader
	server   *http.Server

	connMu  sync.RWMutex
	conn    *websocket.Conn
	writeMu sync.Mutex

	pendingMu sync.RWMutex
	pending   map[string]chan *Response
}

// New creates a bridge listening on addr (DefaultAddr when empty).
// Start must be called before the extension can connect.
func New(addr string, logger *logging.Logger) *Bridge {
	if addr == "" {
		addr = DefaultAddr
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Bridge{
		logger:      logger,
		addr:        addr,
		callTimeout: DefaultCallTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" ||
					strings.HasPrefix(origin, "chrome-extension://") ||
					strings.HasPrefix(origin, "moz-extension://")
			},
		},
		pending: make(map[string]chan *Response),
	}
}

// SetCallTimeout overrides the per-call timeout. Call before Start.
func (b *Bridge) SetCallTimeout(d time.Duration) {
	if d > 0 {
		b.callTimeout = d
	}
}

// Handler returns the HTTP handler serving the extension endpoint.
func (b *Bridge) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(endpointPath, b.handleExtension)
	return mux
}

// Start begins listening for the extension connection.
func (b *Bridge) Start() error {
	ln, err := net.Listen("tcp", b.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", b.addr, err)
	}

	b.server = &http.Server{Handler: b.Handler()}
	go func() {
		if err := b.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			b.logger.Errorf("bridge server stopped: %v", err)
		}
	}()

	b.logger.Infof("extension bridge listening on ws://%s%s", b.addr, endpointPath)
	return nil
}

// Close stops the server and drops the active connection.
func (b *Bridge) Close() error {
	b.connMu.Lock()
	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
	b.connMu.Unlock()

	if b.server != nil {
		return b.server.Close()
	}
	return nil
}

// IsConnected reports whether an extension is currently connected.
func (b *Bridge) IsConnected() bool {
	b.connMu.RLock()
	defer b.connMu.RUnlock()
	return b.conn != nil
}

func (b *Bridge) handleExtension(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warnf("extension upgrade failed: %v", err)
		return
	}

	b.connMu.Lock()
	if b.conn != nil {
		b.connMu.Unlock()
		b.logger.Warnf("rejecting second extension connection from %s", r.RemoteAddr)
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "extension already connected"))
		conn.Close()
		return
	}
	b.conn = conn
	b.connMu.Unlock()

	b.logger.Infof("extension connected from %s", r.RemoteAddr)
	b.readLoop(conn)
}

func (b *Bridge) readLoop(conn *websocket.Conn) {
	defer func() {
		b.connMu.Lock()
		if b.conn == conn {
			b.conn = nil
		}
		b.connMu.Unlock()
		conn.Close()
		b.logger.Infof("extension disconnected")
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var resp Response
		if err := json.Unmarshal(data, &resp); err != nil {
			b.logger.Warnf("dropping malformed extension frame: %v", err)
			continue
		}
		b.deliver(&resp)
	}
}

// deliver routes a response to its waiting caller. Responses with no
// pending slot (late arrivals after a timeout, or ids we never issued)
// are dropped.
func (b *Bridge) deliver(resp *Response) {
	b.pendingMu.RLock()
	ch, ok := b.pending[resp.ID]
	b.pendingMu.RUnlock()

	if !ok {
		b.logger.Debugf("dropping extension response for unknown id %s", resp.ID)
		return
	}

	select {
	case ch <- resp:
	default:
	}
}

// Call sends one request to the extension and waits for the matching
// response. When no extension is connected it fails immediately with
// ErrNotConnected. A timeout removes the pending slot first, so a
// response arriving afterwards is dropped rather than delivered to a
// later call.
func (b *Bridge) Call(ctx context.Context, method string, params map[string]any) (json.RawMessage, error) {
	b.connMu.RLock()
	conn := b.conn
	b.connMu.RUnlock()
	if conn == nil {
		return nil, ErrNotConnected
	}

	id := uuid.New().String()
	ch := make(chan *Response, 1)
	b.pendingMu.Lock()
	b.pending[id] = ch
	b.pendingMu.Unlock()
	defer b.removePending(id)

	req := &Request{ID: id, Method: method, Params: params}
	b.writeMu.Lock()
	err := conn.WriteJSON(req)
	b.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to send extension request: %w", err)
	}

	timer := time.NewTimer(b.callTimeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		if !resp.OK {
			msg := resp.Error
			if msg == "" {
				msg = "unknown extension error"
			}
			return nil, fmt.Errorf("extension error: %s", msg)
		}
		return resp.Result, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: %s after %s", ErrRequestTimeout, method, b.callTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *Bridge) removePending(id string) {
	b.pendingMu.Lock()
	delete(b.pending, id)
	b.pendingMu.Unlock()
}

func (b *Bridge) pendingCount() int {
	b.pendingMu.RLock()
	defer b.pendingMu.RUnlock()
	return len(b.pending)
}
