package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/sqlgate/internal/datasource"
	"github.com/Rrens/sqlgate/internal/domain"
)

// SchemaCache stores introspected schemas per connection. Get returns
// nil, nil on a miss.
type SchemaCache interface {
	Get(ctx context.Context, connectionID uuid.UUID) (*domain.SchemaInfo, error)
	Set(ctx context.Context, connectionID uuid.UUID, schema *domain.SchemaInfo) error
	Invalidate(ctx context.Context, connectionID uuid.UUID) error
	FlushAll(ctx context.Context) (int64, error)
}

// SchemaService introspects target databases, backed by an optional cache
type SchemaService struct {
	connections *ConnectionService
	cache       SchemaCache
}

// NewSchemaService creates a new schema service; cache may be nil
func NewSchemaService(connections *ConnectionService, cache SchemaCache) *SchemaService {
	return &SchemaService{connections: connections, cache: cache}
}

// Get returns the cached schema of a connection, introspecting on a miss
func (s *SchemaService) Get(ctx context.Context, connectionID uuid.UUID) (*domain.SchemaInfo, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, connectionID)
		if err != nil {
			log.Warn().Err(err).Str("connection_id", connectionID.String()).Msg("schema cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}
	return s.Refresh(ctx, connectionID)
}

// Refresh introspects a connection and replaces its cached schema
func (s *SchemaService) Refresh(ctx context.Context, connectionID uuid.UUID) (*domain.SchemaInfo, error) {
	_, adapter, err := s.connections.Adapter(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	schema, err := introspect(ctx, adapter)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, connectionID, schema); err != nil {
			log.Warn().Err(err).Str("connection_id", connectionID.String()).Msg("schema cache write failed")
		}
	}
	return schema, nil
}

// DescribeTable returns live metadata of one table
func (s *SchemaService) DescribeTable(ctx context.Context, connectionID uuid.UUID, table string) (*domain.TableInfo, error) {
	_, adapter, err := s.connections.Adapter(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	return adapter.DescribeTable(ctx, table)
}

// Invalidate drops the cached schema of a connection
func (s *SchemaService) Invalidate(ctx context.Context, connectionID uuid.UUID) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx, connectionID)
}

// FlushAll drops every cached schema and reports how many were removed
func (s *SchemaService) FlushAll(ctx context.Context) (int64, error) {
	if s.cache == nil {
		return 0, nil
	}
	return s.cache.FlushAll(ctx)
}

func introspect(ctx context.Context, adapter datasource.Adapter) (*domain.SchemaInfo, error) {
	tables, err := adapter.ListTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	tableInfos := make([]domain.TableInfo, 0, len(tables))
	for _, tableName := range tables {
		info, err := adapter.DescribeTable(ctx, tableName)
		if err != nil {
			log.Debug().Err(err).Str("table", tableName).Msg("skipping table")
			continue
		}
		tableInfos = append(tableInfos, *info)
	}

	ddl, err := adapter.SchemaDDL(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get DDL: %w", err)
	}

	return &domain.SchemaInfo{
		DatabaseType: string(adapter.DatabaseType()),
		Tables:       tableInfos,
		DDL:          ddl,
		CachedAt:     time.Now().UTC(),
	}, nil
}
