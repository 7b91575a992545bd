// Package chatclient is a terminal chat client for the relay. View holds what
// a user sees: the message log, who is online and who is typing.
package chatclient

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/Tyrowin/relaychat/internal/presence"
	"github.com/Tyrowin/relaychat/internal/protocol"
)

// Entry is one line of the message log.
type Entry struct {
	User    string
	Message string
	To      string
	Private bool
	System  bool
}

// View is the client-side state built from server events and local sends.
// It is not safe for concurrent use.
type View struct {
	username string
	messages []Entry
	users    []presence.User
	typing   []string
}

func NewView(username string) *View {
	return &View{username: username}
}

// Apply folds a server event into the view. It returns the log entry the
// event produced, if any.
func (v *View) Apply(env protocol.Envelope) (*Entry, error) {
	switch env.Event {
	case protocol.EventChatMessage:
		var msg protocol.ChatMessage
		if err := env.Payload(&msg); err != nil {
			return nil, err
		}
		return v.append(Entry{User: msg.User, Message: msg.Message}), nil

	case protocol.EventUserJoined, protocol.EventUserLeft:
		var name string
		if err := env.Payload(&name); err != nil {
			return nil, err
		}
		verb := "joined"
		if env.Event == protocol.EventUserLeft {
			verb = "left"
		}
		return v.append(Entry{System: true, Message: fmt.Sprintf("%s %s the chat", name, verb)}), nil

	case protocol.EventUpdateUsers:
		var users []presence.User
		if err := env.Payload(&users); err != nil {
			return nil, err
		}
		v.users = users
		return nil, nil

	case protocol.EventPrivate:
		var msg protocol.PrivateMessage
		if err := env.Payload(&msg); err != nil {
			return nil, err
		}
		return v.append(Entry{User: msg.From, Message: msg.Message, Private: true}), nil

	case protocol.EventUserTyping:
		var ut protocol.UserTyping
		if err := env.Payload(&ut); err != nil {
			return nil, err
		}
		if ut.IsTyping {
			v.typing = lo.Uniq(append(v.typing, ut.User))
		} else {
			v.typing = lo.Without(v.typing, ut.User)
		}
		return nil, nil
	}
	return nil, nil
}

// Whispered records an outbound private message locally; the server never
// echoes it back.
func (v *View) Whispered(to, body string) *Entry {
	return v.append(Entry{User: v.username, Message: body, To: to, Private: true})
}

func (v *View) append(e Entry) *Entry {
	v.messages = append(v.messages, e)
	return &e
}

func (v *View) Username() string { return v.username }

func (v *View) Messages() []Entry { return v.messages }

func (v *View) Users() []presence.User { return v.users }

func (v *View) Typing() []string { return v.typing }

// TypingLine renders the typing indicator, or "" when nobody is typing.
func (v *View) TypingLine() string {
	switch len(v.typing) {
	case 0:
		return ""
	case 1:
		return v.typing[0] + " is typing..."
	default:
		return strings.Join(v.typing, ", ") + " are typing..."
	}
}
