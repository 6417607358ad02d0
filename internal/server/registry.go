package server

import (
	"slices"
	"sync"

	"github.com/disasternet/chatd/internal/types"
	"github.com/samber/lo"
)

// ConnectionRegistry maps live connections to the identity and room they
// joined with. All mutation happens on the chat server's dispatch goroutine;
// the lock only guards reads from the HTTP status surface.
type ConnectionRegistry struct {
	mu    sync.RWMutex
	users map[string]types.User
	order []string
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		users: make(map[string]types.User),
	}
}

// Join inserts or replaces the record for connID. A re-join keeps the
// connection's original position in listing order, matching first-insertion
// ordering of the underlying store.
func (r *ConnectionRegistry) Join(connID, username, room string) types.User {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[connID]; !ok {
		r.order = append(r.order, connID)
	}

	user := types.User{ID: connID, Username: username, Room: room}
	r.users[connID] = user
	return user
}

func (r *ConnectionRegistry) Get(connID string) (types.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[connID]
	return user, ok
}

// Remove deletes the record for connID and returns it for downstream
// leave notifications.
func (r *ConnectionRegistry) Remove(connID string) (types.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[connID]
	if !ok {
		return types.User{}, false
	}

	delete(r.users, connID)
	if i := slices.Index(r.order, connID); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
	return user, true
}

// ListByRoom returns the users joined to room in insertion order.
func (r *ConnectionRegistry) ListByRoom(room string) []types.User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.FilterMap(r.order, func(connID string, _ int) (types.User, bool) {
		user, ok := r.users[connID]
		return user, ok && user.Room == room
	})
}

// ListAll returns every joined user across rooms in insertion order.
func (r *ConnectionRegistry) ListAll() []types.User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.FilterMap(r.order, func(connID string, _ int) (types.User, bool) {
		user, ok := r.users[connID]
		return user, ok
	})
}

func (r *ConnectionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.users)
}
