package bridge

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startBridge(t *testing.T) (*Bridge, *httptest.Server) {
	t.Helper()
	b := New("", nil)
	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)
	return b, srv
}

func dialExtension(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/extension"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestCallWithoutConnection(t *testing.T) {
	b, _ := startBridge(t)

	_, err := b.Call(context.Background(), "tabs.group", nil)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, 0, b.pendingCount(), "nothing is queued for a later connection")
}

func TestCallRoundTrip(t *testing.T) {
	b, srv := startBridge(t)
	ext := dialExtension(t, srv)
	require.Eventually(t, b.IsConnected, time.Second, 10*time.Millisecond)

	go func() {
		var req Request
		if err := ext.ReadJSON(&req); err != nil {
			return
		}
		ext.WriteJSON(Response{
			ID:     req.ID,
			OK:     true,
			Result: json.RawMessage(`{"groupId": 7}`),
		})
	}()

	result, err := b.Call(context.Background(), "tabs.group", map[string]any{"tabIds": []int{1, 2}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"groupId": 7}`, string(result))
	assert.Equal(t, 0, b.pendingCount())
}

func TestCallExtensionError(t *testing.T) {
	b, srv := startBridge(t)
	ext := dialExtension(t, srv)
	require.Eventually(t, b.IsConnected, time.Second, 10*time.Millisecond)

	go func() {
		var req Request
		if err := ext.ReadJSON(&req); err != nil {
			return
		}
		ext.WriteJSON(Response{ID: req.ID, OK: false, Error: "no such tab group"})
	}()

	_, err := b.Call(context.Background(), "tabGroups.update", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such tab group")
}

func TestCallTimeoutClearsPending(t *testing.T) {
	b, srv := startBridge(t)
	b.SetCallTimeout(50 * time.Millisecond)
	ext := dialExtension(t, srv)
	require.Eventually(t, b.IsConnected, time.Second, 10*time.Millisecond)

	// Extension reads the request but never answers
	go func() {
		var req Request
		_ = ext.ReadJSON(&req)
	}()

	_, err := b.Call(context.Background(), "storage.get", nil)
	assert.ErrorIs(t, err, ErrRequestTimeout)
	assert.Equal(t, 0, b.pendingCount(), "timed-out slot must be removed")
}

func TestUnknownResponseIDDropped(t *testing.T) {
	b, srv := startBridge(t)
	ext := dialExtension(t, srv)
	require.Eventually(t, b.IsConnected, time.Second, 10*time.Millisecond)

	go func() {
		var req Request
		if err := ext.ReadJSON(&req); err != nil {
			return
		}
		// A stray frame first; it must not disturb the pending call
		ext.WriteJSON(Response{ID: "never-issued", OK: true})
		ext.WriteJSON(Response{ID: req.ID, OK: true, Result: json.RawMessage(`"done"`)})
	}()

	result, err := b.Call(context.Background(), "cookies.getAll", nil)
	require.NoError(t, err)
	assert.Equal(t, `"done"`, string(result))
}

func TestSecondConnectionRejected(t *testing.T) {
	b, srv := startBridge(t)
	dialExtension(t, srv)
	require.Eventually(t, b.IsConnected, time.Second, 10*time.Millisecond)

	second := dialExtension(t, srv)
	second.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := second.ReadMessage()
	assert.Error(t, err, "second connection is closed by the server")
	assert.True(t, b.IsConnected(), "first connection stays active")
}

func TestDisconnectClearsConnection(t *testing.T) {
	b, srv := startBridge(t)
	ext := dialExtension(t, srv)
	require.Eventually(t, b.IsConnected, time.Second, 10*time.Millisecond)

	ext.Close()
	require.Eventually(t, func() bool { return !b.IsConnected() }, time.Second, 10*time.Millisecond)

	_, err := b.Call(context.Background(), "tabs.group", nil)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestCallContextCancelled(t *testing.T) {
	b, srv := startBridge(t)
	ext := dialExtension(t, srv)
	require.Eventually(t, b.IsConnected, time.Second, 10*time.Millisecond)

	go func() {
		var req Request
		_ = ext.ReadJSON(&req)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := b.Call(ctx, "notifications.create", nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, b.pendingCount())
}

func TestIsExtensionMethod(t *testing.T) {
	for _, method := range []string{
		"tabs.group", "tabs.ungroup",
		"tabGroups.update", "tabGroups.query", "tabGroups.collapse",
		"cookies.get", "cookies.getAll", "cookies.set",
		"notifications.create",
		"storage.get", "storage.set",
	} {
		assert.True(t, IsExtensionMethod(method), method)
	}

	assert.False(t, IsExtensionMethod("browser.open"))
	assert.False(t, IsExtensionMethod("tabs.create"))
	assert.False(t, IsExtensionMethod(""))
}

func TestMethodsSorted(t *testing.T) {
	methods := Methods()
	require.Len(t, methods, 11)
	for i := 1; i < len(methods); i++ {
		assert.Less(t, methods[i-1], methods[i])
	}
}
