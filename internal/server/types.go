package server

import (
	"errors"
	"net"
	"strings"

	"github.com/Tyrowin/relaychat/internal/protocol"
)

// Inbound is an event read from a client, queued for the hub loop.
type Inbound struct {
	Client   *Client
	Envelope protocol.Envelope
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, net.ErrClosed) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
