package server

import (
	"log/slog"

	"github.com/gorilla/websocket"
)

// Server bundles the configuration, hub and upgrader behind the HTTP handlers.
type Server struct {
	cfg      *Config
	log      *slog.Logger
	hub      *Hub
	upgrader websocket.Upgrader
}

// New creates a Server with its own Hub. Call Start before serving traffic.
func New(cfg *Config, log *slog.Logger) *Server {
	origins := newOriginPolicy(log, cfg.AllowedOrigins)
	return &Server{
		cfg: cfg,
		log: log,
		hub: NewHub(log),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.checkOrigin,
		},
	}
}

// Hub returns the server's hub for shutdown coordination.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start launches the hub loop in its own goroutine.
func (s *Server) Start() {
	go s.hub.Run()
	s.log.Info("Hub started and ready to manage WebSocket connections")
}
