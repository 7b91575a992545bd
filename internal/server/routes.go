package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Routes returns the application router: the browser client at "/", the
// health probe and the WebSocket endpoint.
func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", HealthHandler)
	r.HandleFunc("/ws", s.WebSocketHandler).Methods(http.MethodGet)
	r.HandleFunc("/", s.IndexHandler).Methods(http.MethodGet, http.MethodHead)
	return r
}
