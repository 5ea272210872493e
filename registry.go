package aradel

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/tfkr-ae/aradel/core"
)

// Registry owns the process-wide view of the layer: the shared counter set
// and every connection opened through it. Totals aggregate across
// connections because each one is wired to the same counters.
type Registry struct {
	Counters    *core.Counters // Counter set shared by every registered connection
	mu          sync.Mutex
	connections map[uuid.UUID]*Connection
}

// NewRegistry creates an empty registry with a fresh counter set.
func NewRegistry() *Registry {
	return &Registry{
		Counters:    core.NewCounters(),
		connections: make(map[uuid.UUID]*Connection),
	}
}

// Open creates a connection wired to the shared counters, applies the given
// options, connects it and registers it. The returned connection is ready
// for use.
func (r *Registry) Open(ctx context.Context, options ...func(*Connection) error) (*Connection, error) {
	combined := append([]func(*Connection) error{WithCounters(r.Counters)}, options...)
	conn, err := New(combined...)
	if err != nil {
		return nil, err
	}
	if err := conn.Connect(ctx); err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.connections[conn.ID] = conn
	r.mu.Unlock()
	return conn, nil
}

// Get returns a registered connection by id.
func (r *Registry) Get(id uuid.UUID) (*Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.connections[id]
	return conn, ok
}

// Connections returns the registered connections. The order is unspecified.
func (r *Registry) Connections() []*Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	conns := make([]*Connection, 0, len(r.connections))
	for _, conn := range r.connections {
		conns = append(conns, conn)
	}
	return conns
}

// Close closes a registered connection and removes it from the registry.
func (r *Registry) Close(id uuid.UUID) error {
	r.mu.Lock()
	conn, ok := r.connections[id]
	delete(r.connections, id)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("no connection registered for id %s", id)
	}
	return conn.Close()
}

// CloseAll closes every registered connection, returning the first error
// encountered after attempting all of them.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	conns := make([]*Connection, 0, len(r.connections))
	for _, conn := range r.connections {
		conns = append(conns, conn)
	}
	r.connections = make(map[uuid.UUID]*Connection)
	r.mu.Unlock()

	var firstErr error
	for _, conn := range conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// TotalQueries returns the number of statements issued across every
// connection opened through the registry.
func (r *Registry) TotalQueries() uint64 {
	return r.Counters.Queries()
}

// TotalAffected returns the number of rows affected by exec calls across
// every connection opened through the registry.
func (r *Registry) TotalAffected() uint64 {
	return r.Counters.Affected()
}
