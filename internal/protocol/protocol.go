// Package protocol defines the event envelope exchanged over the chat
// WebSocket and the payload shapes carried for each event name.
//
// Every text frame holds exactly one envelope:
//
//	{"event": "chat message", "data": "hello"}
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Events sent by clients.
const (
	EventSetUsername = "set username"
	EventChatMessage = "chat message"
	EventPrivate     = "private message"
	EventTyping      = "typing"
)

// Events sent by the server. "chat message" and "private message" share their
// names with the client events but carry a different payload.
const (
	EventUserJoined  = "user joined"
	EventUserLeft    = "user left"
	EventUpdateUsers = "update users"
	EventUserTyping  = "user typing"
)

var (
	ErrMalformedEnvelope = errors.New("malformed envelope")
	ErrMissingEvent      = errors.New("envelope has no event name")
)

// Envelope is the framing for every event in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// PrivateRequest is the client payload of a private message.
type PrivateRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// ChatMessage is the server payload of a broadcast chat message.
type ChatMessage struct {
	User    string `json:"user"`
	Message string `json:"message"`
}

// PrivateMessage is the server payload delivered to a private recipient.
type PrivateMessage struct {
	From    string `json:"from"`
	Message string `json:"message"`
}

// UserTyping is the server payload relayed for typing state changes.
type UserTyping struct {
	User     string `json:"user"`
	IsTyping bool   `json:"isTyping"`
}

// Encode wraps data into an envelope for the named event and marshals it.
func Encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %q payload: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

// Decode parses a raw frame into an envelope.
func Decode(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if env.Event == "" {
		return Envelope{}, ErrMissingEvent
	}
	return env, nil
}

// Payload decodes the envelope data into v. Absent data leaves v untouched so
// missing payloads behave as zero values.
func (e Envelope) Payload(v any) error {
	if len(e.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("%w: %q payload: %v", ErrMalformedEnvelope, e.Event, err)
	}
	return nil
}

// Text returns the payload as a string. JSON strings are unquoted, absent or
// null data is "", and any other value keeps its compact JSON text, so
// `42` becomes "42".
func (e Envelope) Text() string {
	return text(e.Data)
}

// Flag returns the truthiness of the payload: absent, null, false, 0 and ""
// are false, everything else is true.
func (e Envelope) Flag() bool {
	var v any
	if len(e.Data) == 0 || json.Unmarshal(e.Data, &v) != nil {
		return false
	}
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	default:
		return true
	}
}

// PrivateRequest decodes a private message request. Fields of any JSON type
// are read as Text; a payload that is not an object is malformed.
func (e Envelope) PrivateRequest() (PrivateRequest, error) {
	var fields struct {
		To      json.RawMessage `json:"to"`
		Message json.RawMessage `json:"message"`
	}
	if err := e.Payload(&fields); err != nil {
		return PrivateRequest{}, err
	}
	return PrivateRequest{To: text(fields.To), Message: text(fields.Message)}, nil
}

func text(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return string(raw)
	}
	if compact.String() == "null" {
		return ""
	}
	return compact.String()
}
