package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Rrens/sqlgate/internal/domain"
)

const (
	schemaCachePrefix = "schema:"
	defaultSchemaTTL  = time.Hour
)

// SchemaCache handles schema caching in Redis
type SchemaCache struct {
	client *Client
	ttl    time.Duration
}

// NewSchemaCache creates a new schema cache; a zero ttl means one hour
func NewSchemaCache(client *Client, ttl time.Duration) *SchemaCache {
	if ttl <= 0 {
		ttl = defaultSchemaTTL
	}
	return &SchemaCache{client: client, ttl: ttl}
}

func schemaKey(connectionID uuid.UUID) string {
	return schemaCachePrefix + connectionID.String()
}

// Get retrieves cached schema for a connection. A miss returns nil, nil.
func (c *SchemaCache) Get(ctx context.Context, connectionID uuid.UUID) (*domain.SchemaInfo, error) {
	data, err := c.client.rdb.Get(ctx, schemaKey(connectionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read schema cache: %w", err)
	}

	var schema domain.SchemaInfo
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema: %w", err)
	}

	return &schema, nil
}

// Set caches schema for a connection
func (c *SchemaCache) Set(ctx context.Context, connectionID uuid.UUID, schema *domain.SchemaInfo) error {
	data, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}

	return c.client.rdb.Set(ctx, schemaKey(connectionID), data, c.ttl).Err()
}

// Invalidate removes cached schema for a connection
func (c *SchemaCache) Invalidate(ctx context.Context, connectionID uuid.UUID) error {
	return c.client.rdb.Del(ctx, schemaKey(connectionID)).Err()
}

// FlushAll removes all cached schemas
func (c *SchemaCache) FlushAll(ctx context.Context) (int64, error) {
	pattern := schemaCachePrefix + "*"
	var cursor uint64
	var deleted int64

	for {
		keys, nextCursor, err := c.client.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return deleted, fmt.Errorf("failed to scan keys: %w", err)
		}

		if len(keys) > 0 {
			count, err := c.client.rdb.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("failed to delete keys: %w", err)
			}
			deleted += count
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return deleted, nil
}
