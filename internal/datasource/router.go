package datasource

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/sqlgate/internal/domain"
)

// healthCheckTimeout bounds the ping of a pooled adapter. The ping runs
// detached from the caller so a cancelled request cannot evict a shared
// adapter.
const healthCheckTimeout = 2 * time.Second

// Router owns one connected adapter per registered connection
type Router struct {
	factories map[domain.DatabaseType]AdapterFactory
	pool      map[uuid.UUID]Adapter
	mu        sync.RWMutex
}

// NewRouter creates a new adapter router
func NewRouter() *Router {
	return &Router{
		factories: make(map[domain.DatabaseType]AdapterFactory),
		pool:      make(map[uuid.UUID]Adapter),
	}
}

// RegisterAdapter registers an adapter factory for a database type
func (r *Router) RegisterAdapter(dbType domain.DatabaseType, factory AdapterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[dbType] = factory
}

// Supports reports whether an adapter is registered for dbType
func (r *Router) Supports(dbType domain.DatabaseType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[dbType]
	return ok
}

// SupportedDatabases returns the registered database types in sorted order
func (r *Router) SupportedDatabases() []domain.DatabaseType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]domain.DatabaseType, 0, len(r.factories))
	for dbType := range r.factories {
		types = append(types, dbType)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Get returns the adapter for a connection, connecting on first use and
// reconnecting when the pooled one fails its health check
func (r *Router) Get(ctx context.Context, connectionID uuid.UUID, dbType domain.DatabaseType, config ConnectionConfig) (Adapter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	adapter, ok := r.pool[connectionID]
	r.mu.RUnlock()
	if ok && healthy(ctx, adapter) {
		return adapter, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// another caller may have replaced it while we waited
	if current, ok := r.pool[connectionID]; ok {
		if current != adapter && healthy(ctx, current) {
			return current, nil
		}
		log.Warn().Str("connection_id", connectionID.String()).Msg("dropping unhealthy datasource connection")
		current.Close()
		delete(r.pool, connectionID)
	}

	factory, ok := r.factories[dbType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedDatabase, dbType)
	}

	adapter = factory()
	if err := adapter.Connect(ctx, config); err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	r.pool[connectionID] = adapter
	return adapter, nil
}

// Probe connects with a fresh adapter, checks health and closes it again
func (r *Router) Probe(ctx context.Context, dbType domain.DatabaseType, config ConnectionConfig) error {
	r.mu.RLock()
	factory, ok := r.factories[dbType]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedDatabase, dbType)
	}

	adapter := factory()
	if err := adapter.Connect(ctx, config); err != nil {
		return err
	}
	defer adapter.Close()
	return adapter.HealthCheck(ctx)
}

// CloseConnection closes a specific connection
func (r *Router) CloseConnection(connectionID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if adapter, ok := r.pool[connectionID]; ok {
		delete(r.pool, connectionID)
		return adapter.Close()
	}
	return nil
}

// CloseAll closes all connections
func (r *Router) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, adapter := range r.pool {
		adapter.Close()
		delete(r.pool, id)
	}
}

// PoolSize returns the current number of pooled connections
func (r *Router) PoolSize() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pool)
}

func healthy(ctx context.Context, adapter Adapter) bool {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), healthCheckTimeout)
	defer cancel()
	return adapter.HealthCheck(ctx) == nil
}
