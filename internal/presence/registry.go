// Package presence tracks which connections have joined the chat and under
// which display name.
//
// A Registry has a single owner. It carries no lock: the hub goroutine is the
// only caller, so a join or leave and the broadcasts it triggers are applied
// as one step relative to every other event.
package presence

import "github.com/samber/lo"

// User is a joined connection and the name it chose.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Registry maps connection ids to users, remembering join order.
type Registry struct {
	users map[string]User
	order []string
}

func NewRegistry() *Registry {
	return &Registry{users: make(map[string]User)}
}

// Join records username for connID. Names are neither validated nor required
// to be unique; joining again overwrites the name and keeps the position.
func (r *Registry) Join(connID, username string) User {
	if _, ok := r.users[connID]; !ok {
		r.order = append(r.order, connID)
	}
	u := User{ID: connID, Username: username}
	r.users[connID] = u
	return u
}

// Leave removes connID and returns the entry as it was at join time.
// ok is false when connID never joined.
func (r *Registry) Leave(connID string) (User, bool) {
	u, ok := r.users[connID]
	if !ok {
		return User{}, false
	}
	delete(r.users, connID)
	r.order = lo.Without(r.order, connID)
	return u, true
}

// Lookup returns the username of a joined connection.
func (r *Registry) Lookup(connID string) (string, bool) {
	u, ok := r.users[connID]
	return u.Username, ok
}

// FindByUsername returns the earliest joined user with the given name.
// Duplicate names are not disambiguated: the first match wins.
func (r *Registry) FindByUsername(username string) (User, bool) {
	id, ok := lo.Find(r.order, func(id string) bool {
		return r.users[id].Username == username
	})
	if !ok {
		return User{}, false
	}
	return r.users[id], true
}

// List returns the current users in join order.
func (r *Registry) List() []User {
	return lo.Map(r.order, func(id string, _ int) User {
		return r.users[id]
	})
}

func (r *Registry) Len() int {
	return len(r.users)
}
