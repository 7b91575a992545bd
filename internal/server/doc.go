// Package server implements the HTTP and WebSocket side of the chat relay.
//
// The implementation is organized into specialized files for configuration,
// hub event dispatch, clients, routing, and HTTP handlers. Presence tracking
// and message routing live in the presence and relay packages; the Hub owns
// one of each and drives them from a single goroutine.
package server
