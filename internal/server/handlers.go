package server

import (
	_ "embed"
	"fmt"
	"net/http"
)

//go:embed static/index.html
var indexHTML []byte

// WebSocketHandler upgrades the request to a WebSocket connection and hands
// the resulting client to the hub, which launches its pumps. Routes restricts
// it to GET.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", "addr", r.RemoteAddr, "error", err)
		return
	}

	client := NewClient(conn, s.hub, r.RemoteAddr, s.cfg)
	if !s.hub.Register(client) {
		s.log.Warn("Hub is shutting down; rejecting connection", "addr", r.RemoteAddr)
		_ = conn.Close()
	}
}

// HealthHandler provides a simple health check endpoint that returns server status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprint(w, "Chat relay is running!")
}

// IndexHandler serves the browser chat client.
func (s *Server) IndexHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(indexHTML); err != nil {
		s.log.Warn("Error writing HTML response", "error", err)
	}
}
