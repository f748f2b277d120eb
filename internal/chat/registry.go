package chat

import (
	"slices"
	"strings"
	"sync"
	"time"
)

type entry struct {
	username string
	addr     string
	joinedAt time.Time
}

// Registry is the single source of truth for who is online.
// Entries are kept in join order; the map is never handed out to callers.
type Registry struct {
	mu      sync.RWMutex
	entries map[*Conn]entry
	order   []*Conn
	unique  bool
}

// NewRegistry builds an empty registry. When unique is set, usernames must
// differ case-insensitively from every registered name.
func NewRegistry(unique bool) *Registry {
	return &Registry{
		entries: make(map[*Conn]entry),
		unique:  unique,
	}
}

// Register inserts c under username and returns the new number of users online.
func (r *Registry) Register(c *Conn, username string) (int, error) {
	if c == nil || username == "" {
		return 0, ErrUsernameInvalid
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[c]; exists {
		return len(r.entries), ErrAlreadyRegistered
	}
	if r.unique && r.findLocked(username) != nil {
		return len(r.entries), ErrUsernameTaken
	}

	c.setUsername(username)
	r.entries[c] = entry{username: username, addr: c.Addr, joinedAt: time.Now()}
	r.order = append(r.order, c)
	ConnectedClients.Set(float64(len(r.entries)))
	return len(r.entries), nil
}

// Unregister removes c. It reports the removed username and whether c was present;
// calling it again for the same conn is a no-op.
func (r *Registry) Unregister(c *Conn) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[c]
	if !ok {
		return "", false
	}
	delete(r.entries, c)
	if i := slices.Index(r.order, c); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
	ConnectedClients.Set(float64(len(r.entries)))
	return e.username, true
}

// List returns a snapshot of usernames in join order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.order))
	for _, c := range r.order {
		names = append(names, r.entries[c].username)
	}
	return names
}

// FindByUsername does a case-insensitive exact match; the earliest joiner wins.
func (r *Registry) FindByUsername(name string) (*Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c := r.findLocked(name)
	return c, c != nil
}

// Len returns the number of registered conns.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// recipients snapshots every registered conn except exclude.
func (r *Registry) recipients(exclude *Conn) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Conn, 0, len(r.order))
	for _, c := range r.order {
		if c != exclude {
			out = append(out, c)
		}
	}
	return out
}

func (r *Registry) findLocked(name string) *Conn {
	for _, c := range r.order {
		if strings.EqualFold(r.entries[c].username, name) {
			return c
		}
	}
	return nil
}
