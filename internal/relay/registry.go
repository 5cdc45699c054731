package relay

import (
	"errors"
	"sort"
)

// ErrAlreadyBound is returned when Bind is called on a connection that is
// already bound. That is a programmer error in the caller: a connection binds
// at most once in its lifetime and never rebinds.
var ErrAlreadyBound = errors.New("connection already bound")

// Registry is the set of live connections and their authentication state.
// It is owned exclusively by the hub goroutine; every mutation happens on the
// single event-processing path, so no locking is needed by construction.
type Registry struct {
	clients map[string]*Client // keyed by connection id
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*Client)}
}

// OnConnect records a new, anonymous connection.
func (r *Registry) OnConnect(c *Client) {
	r.clients[c.id] = c
}

// Bind associates a connection with a verified user identity. It fails on an
// unknown or already-bound connection and never overwrites a binding.
func (r *Registry) Bind(connID, userID, name string) error {
	c, ok := r.clients[connID]
	if !ok {
		return errors.New("unknown connection")
	}
	if c.userID != "" {
		return ErrAlreadyBound
	}
	c.userID = userID
	c.userName = name
	return nil
}

// OnDisconnect removes a connection regardless of bound state and reports
// whether it was present and whether it was bound.
func (r *Registry) OnDisconnect(connID string) (present, bound bool) {
	c, ok := r.clients[connID]
	if !ok {
		return false, false
	}
	delete(r.clients, connID)
	return true, c.userID != ""
}

// Contains reports whether the connection is still live.
func (r *Registry) Contains(connID string) bool {
	_, ok := r.clients[connID]
	return ok
}

// IsBound reports whether the connection is bound to a user.
func (r *Registry) IsBound(connID string) bool {
	c, ok := r.clients[connID]
	return ok && c.userID != ""
}

// BoundUser returns the user id bound to a connection, if any.
func (r *Registry) BoundUser(connID string) (string, bool) {
	c, ok := r.clients[connID]
	if !ok || c.userID == "" {
		return "", false
	}
	return c.userID, true
}

// BoundClients returns every currently bound connection.
func (r *Registry) BoundClients() []*Client {
	out := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		if c.userID != "" {
			out = append(out, c)
		}
	}
	return out
}

// All returns every live connection, bound or not.
func (r *Registry) All() []*Client {
	out := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}

// Snapshot returns the bound users, deduplicated by user id and sorted by
// name so every recipient of one recompute sees an identical list.
func (r *Registry) Snapshot() []PresenceUser {
	seen := make(map[string]bool)
	out := make([]PresenceUser, 0, len(r.clients))
	for _, c := range r.clients {
		if c.userID == "" || seen[c.userID] {
			continue
		}
		seen[c.userID] = true
		out = append(out, PresenceUser{ID: c.userID, Name: c.userName})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Len returns the number of live connections, bound or not.
func (r *Registry) Len() int {
	return len(r.clients)
}
