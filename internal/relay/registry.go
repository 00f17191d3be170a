package relay

import (
	"errors"
	"sync"

	"github.com/samber/lo"
)

// Registry - set of live connections.
// Every operation holds the same mutex, so critical sections never interleave.
type Registry struct {
	mu    sync.Mutex
	conns map[ConnID]*Conn
}

// NewRegistry - builds empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[ConnID]*Conn),
	}
}

// Add - registers connection, fails if its id is present already.
func (r *Registry) Add(c *Conn) error {
	if c == nil {
		return errors.New("relay.Registry: connection is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[c.ID()]; ok {
		return ErrDuplicateConn
	}
	r.conns[c.ID()] = c
	return nil
}

// Remove - unregisters connection, does nothing if id is unknown.
func (r *Registry) Remove(id ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, id)
}

// Snapshot - returns point-in-time copy of registered connections in no particular order.
func (r *Registry) Snapshot() []*Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.Values(r.conns)
}

// Len - returns number of registered connections.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}
