package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	driver "github.com/go-sql-driver/mysql"

	"github.com/Rrens/sqlgate/internal/datasource"
	"github.com/Rrens/sqlgate/internal/domain"
	"github.com/Rrens/sqlgate/internal/sqlguard"
)

// Adapter implements datasource.Adapter for MySQL
type Adapter struct {
	mu sync.RWMutex
	db       *sql.DB
	database string
}

// NewAdapter creates a new MySQL adapter
func NewAdapter() datasource.Adapter {
	return &Adapter{}
}

func (a *Adapter) DatabaseType() domain.DatabaseType {
	return domain.DatabaseTypeMySQL
}

func (a *Adapter) PromptHints() string {
	return `MySQL SQL dialect:
- Use backticks for identifiers: ` + "`column_name`" + `
- String concatenation: CONCAT(a, b)
- Date formatting: DATE_FORMAT(date, '%Y-%m-%d')
- Date extraction: YEAR(date), MONTH(date), DAY(date)
- Pagination: LIMIT n OFFSET m or LIMIT offset, count
- NULL handling: IFNULL(column, default), COALESCE()
- Aggregates: COUNT(), SUM(), AVG(), MIN(), MAX(), GROUP_CONCAT()
- Do not use WITH (common table expressions); use subqueries instead`
}

// DSN builds a go-sql-driver connection string
func DSN(config datasource.ConnectionConfig) string {
	cfg := driver.NewConfig()
	cfg.User = config.Username
	cfg.Passwd = config.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", config.Host, config.Port)
	cfg.DBName = config.Database
	cfg.ParseTime = true
	cfg.Timeout = 10 * time.Second
	if config.SSLMode == "require" || config.SSLMode == "verify-ca" || config.SSLMode == "verify-full" {
		cfg.TLSConfig = "true"
	}
	return cfg.FormatDSN()
}

func (a *Adapter) Connect(ctx context.Context, config datasource.ConnectionConfig) error {
	db, err := sql.Open("mysql", DSN(config))
	if err != nil {
		return fmt.Errorf("failed to open connection: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping: %w", err)
	}

	a.mu.Lock()
	a.db = db
	a.database = config.Database
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
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ?
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`, a.database)
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
		SELECT
			column_name,
			column_type,
			is_nullable = 'YES',
			column_key = 'PRI',
			COALESCE(column_comment, '')
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position
	`, a.database, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to describe table: %w", err)
	}
	defer rows.Close()

	var columns []domain.ColumnInfo
	for rows.Next() {
		var col domain.ColumnInfo
		if err := rows.Scan(&col.Name, &col.DataType, &col.Nullable, &col.PrimaryKey, &col.Description); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		columns = append(columns, col)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: %s", datasource.ErrTableNotFound, tableName)
	}

	info := &domain.TableInfo{Name: tableName, SchemaName: a.database, Columns: columns}

	var rowCount sql.NullInt64
	err = db.QueryRowContext(ctx, `
		SELECT table_rows
		FROM information_schema.tables
		WHERE table_schema = ? AND table_name = ?
	`, a.database, tableName).Scan(&rowCount)
	if err == nil && rowCount.Valid && rowCount.Int64 >= 0 {
		info.RowCount = &rowCount.Int64
	}
	return info, nil
}

func (a *Adapter) SchemaDDL(ctx context.Context) (string, error) {
	db, err := a.handle()
	if err != nil {
		return "", err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT table_name, column_name, column_type, is_nullable, column_key
		FROM information_schema.columns
		WHERE table_schema = ?
		ORDER BY table_name, ordinal_position
	`, a.database)
	if err != nil {
		return "", fmt.Errorf("failed to get schema: %w", err)
	}
	defer rows.Close()

	var ddl strings.Builder
	currentTable := ""
	for rows.Next() {
		var tableName, columnName, dataType, isNullable, columnKey string
		if err := rows.Scan(&tableName, &columnName, &dataType, &isNullable, &columnKey); err != nil {
			return "", fmt.Errorf("failed to scan: %w", err)
		}

		if tableName != currentTable {
			if currentTable != "" {
				ddl.WriteString("\n);\n\n")
			}
			fmt.Fprintf(&ddl, "CREATE TABLE `%s` (\n", tableName)
			currentTable = tableName
		} else {
			ddl.WriteString(",\n")
		}

		fmt.Fprintf(&ddl, "  `%s` %s", columnName, dataType)
		if isNullable == "NO" {
			ddl.WriteString(" NOT NULL")
		}
		if columnKey == "PRI" {
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
	db, err := a.handle()
	if err != nil {
		return nil, err
	}

	ctx, cancel := datasource.WithTimeout(ctx, opts)
	defer cancel()

	tx, err := db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin read-only transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, stmt.SQL())
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	return datasource.CollectRows(rows, opts.MaxRows)
}
