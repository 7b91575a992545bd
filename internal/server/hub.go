// Package server coordinates client registration, event dispatch and
// connection cleanup for the chat relay via the Hub type.
package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/Tyrowin/relaychat/internal/presence"
	"github.com/Tyrowin/relaychat/internal/protocol"
	"github.com/Tyrowin/relaychat/internal/relay"
)

type eventHandler func(c *Client, env protocol.Envelope) error

// Hub owns every live connection, the presence registry and the router.
// All of them are only touched from Run, so each inbound event, join or
// disconnect is handled to completion before the next one starts.
type Hub struct {
	log        *slog.Logger
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	inbound    chan Inbound
	registry   *presence.Registry
	router     *relay.Router
	handlers   map[string]eventHandler
	evicted    []*Client
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHub creates a Hub ready to be started with Run.
func NewHub(log *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		log:        log,
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan Inbound),
		registry:   presence.NewRegistry(),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	h.router = relay.NewRouter(log, h.registry, h)
	h.handlers = map[string]eventHandler{
		protocol.EventSetUsername: h.handleSetUsername,
		protocol.EventChatMessage: h.handleChatMessage,
		protocol.EventPrivate:     h.handlePrivateMessage,
		protocol.EventTyping:      h.handleTyping,
	}
	return h
}

// Run starts the hub's main event loop. It returns once Shutdown is called.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.disconnect(client)

		case in := <-h.inbound:
			h.dispatch(in)
		}

		h.dropEvicted()
	}
}

// ClientCount returns the number of live connections.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Connections lists the ids of all live connections.
func (h *Hub) Connections() []string {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return lo.Keys(h.clients)
}

// Send queues payload for connID. A client whose buffer is full is evicted
// once the current event has been handled.
func (h *Hub) Send(connID string, payload []byte) bool {
	h.mutex.RLock()
	client, ok := h.clients[connID]
	h.mutex.RUnlock()
	if !ok {
		return false
	}

	select {
	case client.send <- payload:
		return true
	default:
		h.log.Warn("Send buffer full; evicting client", "conn_id", connID, "addr", client.addr)
		h.evicted = append(h.evicted, client)
		return false
	}
}

// Register hands a new client to the hub, which starts its pumps.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) deliver(in Inbound) bool {
	select {
	case h.inbound <- in:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) registerClient(client *Client) {
	if client == nil {
		h.log.Warn("Received nil client registration; skipping")
		return
	}

	h.mutex.Lock()
	h.clients[client.id] = client
	clientCount := len(h.clients)
	h.mutex.Unlock()
	h.log.Info("Client registered", "conn_id", client.id, "addr", client.addr, "clients", clientCount)

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

// disconnect removes client from the live set and, if it had joined, from
// the presence registry. Unknown clients are ignored.
func (h *Hub) disconnect(client *Client) {
	h.mutex.Lock()
	if _, ok := h.clients[client.id]; !ok {
		h.mutex.Unlock()
		return
	}
	delete(h.clients, client.id)
	clientCount := len(h.clients)
	h.mutex.Unlock()

	// Close the channel after releasing the lock
	close(client.send)
	h.log.Info("Client unregistered", "conn_id", client.id, "addr", client.addr, "clients", clientCount)

	h.router.Leave(client.id)
}

func (h *Hub) dropEvicted() {
	for len(h.evicted) > 0 {
		client := h.evicted[0]
		h.evicted = h.evicted[1:]
		h.disconnect(client)
	}
}

func (h *Hub) dispatch(in Inbound) {
	h.mutex.RLock()
	_, live := h.clients[in.Client.id]
	h.mutex.RUnlock()
	if !live {
		return
	}

	handler, ok := h.handlers[in.Envelope.Event]
	if !ok {
		h.log.Debug("Ignoring unknown event", "conn_id", in.Client.id, "event", in.Envelope.Event)
		return
	}
	if err := handler(in.Client, in.Envelope); err != nil {
		h.log.Warn("Dropping event", "conn_id", in.Client.id, "event", in.Envelope.Event, "error", err)
	}
}

// Payloads are not validated: scalars of any JSON type are relayed as text
// and typing state follows truthiness.
func (h *Hub) handleSetUsername(c *Client, env protocol.Envelope) error {
	h.router.Join(c.id, env.Text())
	return nil
}

func (h *Hub) handleChatMessage(c *Client, env protocol.Envelope) error {
	n := h.router.Broadcast(h.router.Sender(c.id), env.Text())
	h.log.Debug("Broadcast chat message", "conn_id", c.id, "delivered", n)
	return nil
}

func (h *Hub) handlePrivateMessage(c *Client, env protocol.Envelope) error {
	req, err := env.PrivateRequest()
	if err != nil {
		return err
	}
	h.router.RoutePrivate(h.router.Sender(c.id), req.To, req.Message)
	return nil
}

func (h *Hub) handleTyping(c *Client, env protocol.Envelope) error {
	h.router.RelayTyping(c.id, h.router.Sender(c.id), env.Flag())
	return nil
}

// shutdownClients gracefully closes all active client connections
func (h *Hub) shutdownClients() {
	h.log.Info("Shutting down all client connections...")

	h.mutex.Lock()
	clients := lo.Values(h.clients)
	h.mutex.Unlock()

	for _, client := range clients {
		if client.conn == nil {
			continue
		}
		if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
			h.log.Error("Error closing client connection", "conn_id", client.id, "addr", client.addr, "error", err)
		}
	}

	h.log.Info("Closed client connections", "clients", len(clients))
}

// Shutdown initiates graceful shutdown of the hub and waits for all goroutines to complete.
// It returns after all client connections are closed and goroutines have finished,
// or when the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info("Initiating hub shutdown...")

	h.cancel()
	deadline := time.After(timeout)

	done := make(chan struct{})
	go func() {
		<-h.done
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.log.Info("Hub shutdown completed successfully")
		return nil
	case <-deadline:
		h.log.Warn("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
