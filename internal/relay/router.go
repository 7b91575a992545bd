// Package relay routes chat events to their recipients: everyone, everyone
// but the sender, or a single named user.
package relay

import (
	"log/slog"

	"github.com/samber/lo"

	"github.com/Tyrowin/relaychat/internal/presence"
	"github.com/Tyrowin/relaychat/internal/protocol"
)

// Router couples the presence registry with a transport. It is not safe for
// concurrent use; the hub calls it from its event loop only.
type Router struct {
	log       *slog.Logger
	registry  *presence.Registry
	transport Transport
}

func NewRouter(log *slog.Logger, registry *presence.Registry, transport Transport) *Router {
	return &Router{log: log, registry: registry, transport: transport}
}

// Sender returns the name connID joined with, or "" before joining.
func (r *Router) Sender(connID string) string {
	name, _ := r.registry.Lookup(connID)
	return name
}

// Users returns the presence set.
func (r *Router) Users() []presence.User {
	return r.registry.List()
}

// Join registers username for connID, announces it and publishes the
// updated presence set to every connection.
func (r *Router) Join(connID, username string) {
	r.registry.Join(connID, username)
	r.log.Info("User joined", "conn_id", connID, "username", username, "users", r.registry.Len())

	r.emitAll(protocol.EventUserJoined, username)
	r.PublishPresence()
}

// Leave drops connID from the registry. Connections that never joined leave
// silently; otherwise the departure is announced with the name captured at
// join time, followed by the presence set.
func (r *Router) Leave(connID string) bool {
	u, ok := r.registry.Leave(connID)
	if !ok {
		return false
	}
	r.log.Info("User left", "conn_id", connID, "username", u.Username, "users", r.registry.Len())

	r.emitAll(protocol.EventUserLeft, u.Username)
	r.PublishPresence()
	return true
}

// PublishPresence sends "update users" to every connection.
func (r *Router) PublishPresence() int {
	return r.emitAll(protocol.EventUpdateUsers, r.Users())
}

// Broadcast delivers a chat message to every connection, sender included.
func (r *Router) Broadcast(sender, body string) int {
	return r.emitAll(protocol.EventChatMessage, protocol.ChatMessage{User: sender, Message: body})
}

// RoutePrivate delivers body to the first user named recipient. Unknown
// recipients are dropped without notifying the sender.
func (r *Router) RoutePrivate(sender, recipient, body string) int {
	u, ok := r.registry.FindByUsername(recipient)
	if !ok {
		r.log.Debug("Private message recipient not found; dropping", "from", sender, "to", recipient)
		return 0
	}

	payload, ok := r.encode(protocol.EventPrivate, protocol.PrivateMessage{From: sender, Message: body})
	if !ok {
		return 0
	}
	if !r.transport.Send(u.ID, payload) {
		return 0
	}
	return 1
}

// RelayTyping tells every connection except senderConnID that sender started
// or stopped typing.
func (r *Router) RelayTyping(senderConnID, sender string, isTyping bool) int {
	payload, ok := r.encode(protocol.EventUserTyping, protocol.UserTyping{User: sender, IsTyping: isTyping})
	if !ok {
		return 0
	}
	return r.sendTo(lo.Without(r.transport.Connections(), senderConnID), payload)
}

func (r *Router) emitAll(event string, data any) int {
	payload, ok := r.encode(event, data)
	if !ok {
		return 0
	}
	return r.sendTo(r.transport.Connections(), payload)
}

func (r *Router) sendTo(connIDs []string, payload []byte) int {
	delivered := 0
	for _, id := range connIDs {
		if r.transport.Send(id, payload) {
			delivered++
		}
	}
	return delivered
}

func (r *Router) encode(event string, data any) ([]byte, bool) {
	payload, err := protocol.Encode(event, data)
	if err != nil {
		r.log.Error("Failed to encode event", "event", event, "error", err)
		return nil, false
	}
	return payload, true
}
