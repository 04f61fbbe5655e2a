package datasource

import (
	"context"
	"errors"
	"time"

	"github.com/Rrens/sqlgate/internal/domain"
	"github.com/Rrens/sqlgate/internal/sqlguard"
)

var (
	ErrNotConnected  = errors.New("not connected")
	ErrTableNotFound = errors.New("table not found")
	// ErrNotValidated is returned for an empty Executable
	ErrNotValidated = errors.New("statement has not been validated")
)

// ConnectionConfig contains database connection parameters
type ConnectionConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string
}

// QueryOptions contains query execution options
type QueryOptions struct {
	MaxRows int64
	Timeout time.Duration
}

// Adapter defines the interface for target database adapters
type Adapter interface {
	// DatabaseType returns the database type identifier
	DatabaseType() domain.DatabaseType

	// PromptHints returns SQL dialect hints for LLM prompting
	PromptHints() string

	// Connect establishes connection to database
	Connect(ctx context.Context, config ConnectionConfig) error

	// Close closes the connection
	Close() error

	// HealthCheck verifies connection is alive
	HealthCheck(ctx context.Context) error

	// ListTables returns list of table names
	ListTables(ctx context.Context) ([]string, error)

	// DescribeTable returns detailed table schema
	DescribeTable(ctx context.Context, tableName string) (*domain.TableInfo, error)

	// SchemaDDL returns full schema as DDL for LLM context
	SchemaDDL(ctx context.Context) (string, error)

	// Query runs a validated statement inside a read-only transaction
	Query(ctx context.Context, stmt sqlguard.Executable, opts QueryOptions) (*domain.QueryResult, error)
}

// AdapterFactory creates a new adapter instance
type AdapterFactory func() Adapter

// WithTimeout derives a query context when opts carries a timeout
func WithTimeout(ctx context.Context, opts QueryOptions) (context.Context, context.CancelFunc) {
	if opts.Timeout > 0 {
		return context.WithTimeout(ctx, opts.Timeout)
	}
	return ctx, func() {}
}

// CheckExecutable refuses the zero Executable
func CheckExecutable(stmt sqlguard.Executable) error {
	if stmt.SQL() == "" {
		return ErrNotValidated
	}
	return nil
}
