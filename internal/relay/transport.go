//go:generate go run go.uber.org/mock/mockgen -source=transport.go -destination=../mocks/mock_transport.go -package=mocks
package relay

// Transport delivers encoded frames to live connections.
type Transport interface {
	// Connections lists every live connection, joined or not.
	Connections() []string
	// Send queues payload for connID and reports whether it was accepted.
	Send(connID string, payload []byte) bool
}
