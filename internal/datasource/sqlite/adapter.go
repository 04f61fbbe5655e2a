package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/Rrens/sqlgate/internal/datasource"
	"github.com/Rrens/sqlgate/internal/domain"
	"github.com/Rrens/sqlgate/internal/sqlguard"
)

// Adapter implements datasource.Adapter for SQLite files
type Adapter struct {
	mu sync.RWMutex
	db *sql.DB
}

// NewAdapter creates a new SQLite adapter
func NewAdapter() datasource.Adapter {
	return &Adapter{}
}

func (a *Adapter) DatabaseType() domain.DatabaseType {
	return domain.DatabaseTypeSQLite
}

func (a *Adapter) PromptHints() string {
	return `SQLite database. Queries are checked with the PostgreSQL grammar and run on SQLite as written:
- Use double quotes for identifiers: "column_name"
- String concatenation: col1 || ' ' || col2
- Pagination: LIMIT n OFFSET m
- Boolean values are 0 and 1
- Type conversion: CAST(expr AS INTEGER), never expr::type
- Avoid SQLite-only syntax such as GLOB, [bracket] identifiers or backtick quoting`
}

// DSN opens the file read-only with query_only set, so even a statement
// that slipped past validation cannot write.
func DSN(path string) string {
	q := url.Values{}
	q.Set("mode", "ro")
	q.Add("_pragma", "query_only(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	return "file:" + path + "?" + q.Encode()
}

func (a *Adapter) Connect(ctx context.Context, config datasource.ConnectionConfig) error {
	if config.Database == "" {
		return errors.New("database file path is required")
	}

	db, err := sql.Open("sqlite", DSN(config.Database))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	a.mu.Lock()
	a.db = db
	a.mu.Unlock()
	return nil
}

func (a *Adapter) Close() error {
	a.mu.Lock()
	db := a.db
	a.db = nil
	a.mu.Unlock()
	if db != nil {
		return db.Close()
	}
	return nil
}

// handle returns the open database; Close may run concurrently with callers.
func (a *Adapter) handle() (*sql.DB, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.db == nil {
		return nil, datasource.ErrNotConnected
	}
	return a.db, nil
}

func (a *Adapter) HealthCheck(ctx context.Context) error {
	db, err := a.handle()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

func (a *Adapter) ListTables(ctx context.Context) ([]string, error) {
	db, err := a.handle()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, tableName)
	}
	return tables, rows.Err()
}

func (a *Adapter) DescribeTable(ctx context.Context, tableName string) (*domain.TableInfo, error) {
	db, err := a.handle()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT name, type, "notnull", pk
		FROM pragma_table_info(?)
		ORDER BY cid
	`, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to describe table: %w", err)
	}
	defer rows.Close()

	var columns []domain.ColumnInfo
	for rows.Next() {
		var name, dataType string
		var notNull, pk int
		if err := rows.Scan(&name, &dataType, &notNull, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		columns = append(columns, domain.ColumnInfo{
			Name:       name,
			DataType:   dataType,
			Nullable:   notNull == 0,
			PrimaryKey: pk > 0,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: %s", datasource.ErrTableNotFound, tableName)
	}

	info := &domain.TableInfo{Name: tableName, Columns: columns}

	var rowCount int64
	quoted := `"` + strings.ReplaceAll(tableName, `"`, `""`) + `"`
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoted).Scan(&rowCount); err == nil {
		info.RowCount = &rowCount
	}
	return info, nil
}

func (a *Adapter) SchemaDDL(ctx context.Context) (string, error) {
	db, err := a.handle()
	if err != nil {
		return "", err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT sql
		FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		  AND sql IS NOT NULL
		ORDER BY name
	`)
	if err != nil {
		return "", fmt.Errorf("failed to get schema: %w", err)
	}
	defer rows.Close()

	var ddl strings.Builder
	for rows.Next() {
		var createSQL string
		if err := rows.Scan(&createSQL); err != nil {
			return "", fmt.Errorf("failed to scan: %w", err)
		}
		ddl.WriteString(createSQL)
		ddl.WriteString(";\n\n")
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("failed to read schema: %w", err)
	}
	return strings.TrimSpace(ddl.String()), nil
}

func (a *Adapter) Query(ctx context.Context, stmt sqlguard.Executable, opts datasource.QueryOptions) (*domain.QueryResult, error) {
	if err := datasource.CheckExecutable(stmt); err != nil {
		return nil, err
	}
	db, err := a.handle()
	if err != nil {
		return nil, err
	}

	ctx, cancel := datasource.WithTimeout(ctx, opts)
	defer cancel()

	rows, err := db.QueryContext(ctx, stmt.SQL())
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	return datasource.CollectRows(rows, opts.MaxRows)
}
