// Package testhelpers provides common utilities for testing the chat relay
// over real WebSocket connections.
package testhelpers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/relaychat/internal/protocol"
)

// TestOrigin is accepted by the default server configuration.
const TestOrigin = "http://localhost:3000"

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// WebSocketURL turns an httptest server URL into its /ws endpoint.
func WebSocketURL(serverURL string) string {
	return "ws" + strings.TrimPrefix(serverURL, "http") + "/ws"
}

// ConnectWebSocket dials url with the given Origin header.
func ConnectWebSocket(url, origin string) (*websocket.Conn, *http.Response, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, resp, err
}

// MustConnect dials url with TestOrigin and closes the connection at cleanup.
func MustConnect(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := ConnectWebSocket(url, TestOrigin)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// Emit sends one event envelope.
func Emit(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	frame, err := protocol.Encode(event, data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
}

// ReadEnvelope reads the next envelope within timeout.
func ReadEnvelope(conn *websocket.Conn, timeout time.Duration) (protocol.Envelope, error) {
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return protocol.Envelope{}, err
	}
	_, frame, err := conn.ReadMessage()
	if err != nil {
		return protocol.Envelope{}, err
	}
	return protocol.Decode(frame)
}

// ExpectEvent reads the next envelope, requires its event name and decodes
// its payload into out (if non-nil).
func ExpectEvent(t *testing.T, conn *websocket.Conn, event string, out any) {
	t.Helper()
	env, err := ReadEnvelope(conn, 2*time.Second)
	require.NoError(t, err, "waiting for %q", event)
	require.Equal(t, event, env.Event)
	if out != nil {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
}

// ExpectNoMessage fails if anything arrives on conn within d.
func ExpectNoMessage(t *testing.T, conn *websocket.Conn, d time.Duration) {
	t.Helper()
	env, err := ReadEnvelope(conn, d)
	if err == nil {
		t.Fatalf("expected no message, got %q: %s", env.Event, string(env.Data))
	}
}

// CloseWebSocket sends a normal close frame and closes the connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}

// AssertStatusCode checks if the HTTP response has the expected status code.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}
