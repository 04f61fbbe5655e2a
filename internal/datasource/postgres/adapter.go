package postgres

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Rrens/sqlgate/internal/datasource"
	"github.com/Rrens/sqlgate/internal/domain"
	"github.com/Rrens/sqlgate/internal/sqlguard"
)

// Adapter implements datasource.Adapter for PostgreSQL
type Adapter struct {
	mu sync.RWMutex
	pool *pgxpool.Pool
}

// NewAdapter creates a new PostgreSQL adapter
func NewAdapter() datasource.Adapter {
	return &Adapter{}
}

func (a *Adapter) DatabaseType() domain.DatabaseType {
	return domain.DatabaseTypePostgres
}

func (a *Adapter) PromptHints() string {
	return `PostgreSQL SQL dialect:
- Use double quotes for identifiers with special characters: "column name"
- String concatenation: column1 || column2
- Case-insensitive matching: ILIKE instead of LIKE
- Date truncation: DATE_TRUNC('month', date_column)
- Date extraction: EXTRACT(YEAR FROM date_column)
- Pagination: LIMIT n OFFSET m
- NULL handling: COALESCE(column, default_value), NULLIF(a, b)
- JSON access: ->, ->>
- Window functions: ROW_NUMBER(), RANK(), LAG(), LEAD()
- Common table expressions: WITH cte AS (SELECT ...)`
}

// DSN builds a pgx connection string
func DSN(config datasource.ConnectionConfig) string {
	sslMode := config.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(config.Username, config.Password),
		Host:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		Path:     "/" + config.Database,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	return u.String()
}

func (a *Adapter) Connect(ctx context.Context, config datasource.ConnectionConfig) error {
	poolConfig, err := pgxpool.ParseConfig(DSN(config))
	if err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	poolConfig.MaxConns = 5
	poolConfig.MinConns = 0
	poolConfig.ConnConfig.RuntimeParams["default_transaction_read_only"] = "on"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to ping: %w", err)
	}

	a.mu.Lock()
	a.pool = pool
	a.mu.Unlock()
	return nil
}

func (a *Adapter) Close() error {
	a.mu.Lock()
	pool := a.pool
	a.pool = nil
	a.mu.Unlock()
	if pool != nil {
		pool.Close()
	}
	return nil
}

// handle returns the open pool; Close may run concurrently with callers.
func (a *Adapter) handle() (*pgxpool.Pool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.pool == nil {
		return nil, datasource.ErrNotConnected
	}
	return a.pool, nil
}

func (a *Adapter) HealthCheck(ctx context.Context) error {
	pool, err := a.handle()
	if err != nil {
		return err
	}
	return pool.Ping(ctx)
}

func (a *Adapter) ListTables(ctx context.Context) ([]string, error) {
	pool, err := a.handle()
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	tables, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan table name: %w", err)
	}
	return tables, nil
}

func (a *Adapter) DescribeTable(ctx context.Context, tableName string) (*domain.TableInfo, error) {
	pool, err := a.handle()
	if err != nil {
		return nil, err
	}

	rows, err := pool.Query(ctx, `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable = 'YES' AS nullable,
			EXISTS (
				SELECT 1 FROM information_schema.key_column_usage kcu
				JOIN information_schema.table_constraints tc
				  ON kcu.constraint_name = tc.constraint_name
				WHERE tc.constraint_type = 'PRIMARY KEY'
				  AND kcu.table_name = c.table_name
				  AND kcu.column_name = c.column_name
			) AS primary_key,
			COALESCE(col_description(
				(SELECT oid FROM pg_class WHERE relname = c.table_name LIMIT 1),
				c.ordinal_position
			), '') AS description
		FROM information_schema.columns c
		WHERE c.table_schema = 'public' AND c.table_name = $1
		ORDER BY c.ordinal_position
	`, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to describe table: %w", err)
	}

	columns, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ColumnInfo, error) {
		var col domain.ColumnInfo
		err := row.Scan(&col.Name, &col.DataType, &col.Nullable, &col.PrimaryKey, &col.Description)
		return col, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan column: %w", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: %s", datasource.ErrTableNotFound, tableName)
	}

	info := &domain.TableInfo{Name: tableName, SchemaName: "public", Columns: columns}

	var rowCount int64
	err = pool.QueryRow(ctx, `SELECT reltuples::bigint FROM pg_class WHERE relname = $1`, tableName).Scan(&rowCount)
	if err == nil && rowCount >= 0 {
		info.RowCount = &rowCount
	}
	return info, nil
}

func (a *Adapter) SchemaDDL(ctx context.Context) (string, error) {
	pool, err := a.handle()
	if err != nil {
		return "", err
	}

	rows, err := pool.Query(ctx, `
		SELECT
			c.table_name,
			c.column_name,
			c.data_type,
			c.is_nullable,
			EXISTS (
				SELECT 1 FROM information_schema.key_column_usage kcu
				JOIN information_schema.table_constraints tc
				  ON kcu.constraint_name = tc.constraint_name
				WHERE tc.constraint_type = 'PRIMARY KEY'
				  AND kcu.table_name = c.table_name
				  AND kcu.column_name = c.column_name
			)
		FROM information_schema.columns c
		JOIN information_schema.tables t
		  ON t.table_name = c.table_name AND t.table_schema = c.table_schema
		WHERE c.table_schema = 'public' AND t.table_type = 'BASE TABLE'
		ORDER BY c.table_name, c.ordinal_position
	`)
	if err != nil {
		return "", fmt.Errorf("failed to get schema: %w", err)
	}
	defer rows.Close()

	var ddl strings.Builder
	currentTable := ""
	for rows.Next() {
		var tableName, columnName, dataType, isNullable string
		var primaryKey bool
		if err := rows.Scan(&tableName, &columnName, &dataType, &isNullable, &primaryKey); err != nil {
			return "", fmt.Errorf("failed to scan: %w", err)
		}

		if tableName != currentTable {
			if currentTable != "" {
				ddl.WriteString("\n);\n\n")
			}
			fmt.Fprintf(&ddl, "CREATE TABLE %s (\n", tableName)
			currentTable = tableName
		} else {
			ddl.WriteString(",\n")
		}

		fmt.Fprintf(&ddl, "  %s %s", columnName, dataType)
		if isNullable == "NO" {
			ddl.WriteString(" NOT NULL")
		}
		if primaryKey {
			ddl.WriteString(" PRIMARY KEY")
		}
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("failed to read schema: %w", err)
	}

	if currentTable != "" {
		ddl.WriteString("\n);")
	}
	return ddl.String(), nil
}

func (a *Adapter) Query(ctx context.Context, stmt sqlguard.Executable, opts datasource.QueryOptions) (*domain.QueryResult, error) {
	if err := datasource.CheckExecutable(stmt); err != nil {
		return nil, err
	}
	pool, err := a.handle()
	if err != nil {
		return nil, err
	}

	ctx, cancel := datasource.WithTimeout(ctx, opts)
	defer cancel()

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("failed to begin read-only transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, stmt.SQL())
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	result := &domain.QueryResult{Columns: make([]string, len(fields)), Rows: [][]any{}}
	for i, fd := range fields {
		result.Columns[i] = fd.Name
	}

	for rows.Next() {
		if opts.MaxRows > 0 && int64(len(result.Rows)) >= opts.MaxRows {
			result.Truncated = true
			break
		}
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to get row values: %w", err)
		}
		result.Rows = append(result.Rows, values)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	result.RowCount = len(result.Rows)
	return result, nil
}
