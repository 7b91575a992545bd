package presence

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Join_One_User(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connID := uuid.NewString()

	// Given nobody has joined
	req.Empty(registry.List())
	req.Zero(registry.Len())

	// When a connection joins
	u := registry.Join(connID, "alice")

	// Then it is listed under its name
	req.Equal(User{ID: connID, Username: "alice"}, u)
	req.Equal([]User{u}, registry.List())
	name, ok := registry.Lookup(connID)
	req.True(ok)
	req.Equal("alice", name)
}

func TestRegistry_Join_Again_Overwrites_And_Keeps_Position(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	first, second := uuid.NewString(), uuid.NewString()

	registry.Join(first, "alice")
	registry.Join(second, "bob")

	// When the first connection picks another name
	registry.Join(first, "carol")

	// Then there is still one entry per connection, in join order
	req.Equal([]User{
		{ID: first, Username: "carol"},
		{ID: second, Username: "bob"},
	}, registry.List())
}

func TestRegistry_Join_Accepts_Empty_And_Duplicate_Names(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	registry.Join(uuid.NewString(), "")
	registry.Join(uuid.NewString(), "dup")
	registry.Join(uuid.NewString(), "dup")

	req.Equal(3, registry.Len())
}

func TestRegistry_Leave_Returns_Name_Captured_At_Join(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connID := uuid.NewString()
	registry.Join(connID, "bob")

	u, ok := registry.Leave(connID)

	req.True(ok)
	req.Equal("bob", u.Username)
	req.Empty(registry.List())
	_, ok = registry.Lookup(connID)
	req.False(ok)
}

func TestRegistry_Leave_Unknown_Is_Noop(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	registry.Join("a", "alice")

	_, ok := registry.Leave("nobody")

	req.False(ok)
	req.Equal(1, registry.Len())
}

func TestRegistry_FindByUsername_First_Match_Wins(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	registry.Join("c1", "bob")
	registry.Join("c2", "bob")

	u, ok := registry.FindByUsername("bob")
	req.True(ok)
	req.Equal("c1", u.ID)

	// When the earliest bob leaves, the next one is found
	registry.Leave("c1")
	u, ok = registry.FindByUsername("bob")
	req.True(ok)
	req.Equal("c2", u.ID)

	_, ok = registry.FindByUsername("nobody")
	req.False(ok)
}

// Any interleaving of joins and leaves leaves exactly the joined-and-not-left
// connections in the registry.
func TestRegistry_List_Matches_Live_Set(t *testing.T) {
	req := require.New(t)
	rng := rand.New(rand.NewSource(42))
	ids := []string{"a", "b", "c", "d", "e", "f"}

	for round := 0; round < 50; round++ {
		registry := NewRegistry()
		live := map[string]string{}

		for step := 0; step < 40; step++ {
			id := ids[rng.Intn(len(ids))]
			if rng.Intn(2) == 0 {
				name := ids[rng.Intn(len(ids))]
				registry.Join(id, name)
				live[id] = name
			} else {
				_, ok := registry.Leave(id)
				_, wasLive := live[id]
				req.Equal(wasLive, ok)
				delete(live, id)
			}

			got := map[string]string{}
			for _, u := range registry.List() {
				_, dup := got[u.ID]
				req.False(dup, "connection %s listed twice", u.ID)
				got[u.ID] = u.Username
			}
			req.Equal(live, got)
			req.Equal(len(live), registry.Len())
		}
	}
}
