package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Rrens/sqlgate/internal/domain"
)

const connectionColumns = `
	id, name, database_type, host, port,
	database_name, username, credentials_encrypted, ssl_mode,
	max_rows, timeout_seconds, created_at, updated_at`

// ConnectionRepository handles registered connection data access
type ConnectionRepository struct {
	db *DB
}

// NewConnectionRepository creates a new connection repository
func NewConnectionRepository(db *DB) *ConnectionRepository {
	return &ConnectionRepository{db: db}
}

func scanConnection(row pgx.Row) (*domain.Connection, error) {
	var conn domain.Connection
	err := row.Scan(
		&conn.ID,
		&conn.Name,
		&conn.DatabaseType,
		&conn.Host,
		&conn.Port,
		&conn.Database,
		&conn.Username,
		&conn.CredentialsEncrypted,
		&conn.SSLMode,
		&conn.MaxRows,
		&conn.TimeoutSeconds,
		&conn.CreatedAt,
		&conn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

// Create creates a new connection
func (r *ConnectionRepository) Create(ctx context.Context, conn *domain.Connection) error {
	query := `
		INSERT INTO connections (` + connectionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		conn.ID,
		conn.Name,
		conn.DatabaseType,
		conn.Host,
		conn.Port,
		conn.Database,
		conn.Username,
		conn.CredentialsEncrypted,
		conn.SSLMode,
		conn.MaxRows,
		conn.TimeoutSeconds,
		conn.CreatedAt,
		conn.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create connection: %w", err)
	}

	return nil
}

// GetByID retrieves a connection by ID
func (r *ConnectionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM connections WHERE id = $1`

	conn, err := scanConnection(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("connection %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}

	return conn, nil
}

// List retrieves all connections, newest first
func (r *ConnectionRepository) List(ctx context.Context) ([]domain.Connection, error) {
	query := `SELECT ` + connectionColumns + ` FROM connections ORDER BY created_at DESC`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}

	connections, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Connection, error) {
		conn, err := scanConnection(row)
		if err != nil {
			return domain.Connection{}, err
		}
		return *conn, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan connection: %w", err)
	}

	return connections, nil
}

// Update updates a connection
func (r *ConnectionRepository) Update(ctx context.Context, id uuid.UUID, conn *domain.Connection) error {
	query := `
		UPDATE connections
		SET name = $2,
		    host = $3,
		    port = $4,
		    database_name = $5,
		    username = $6,
		    credentials_encrypted = $7,
		    ssl_mode = $8,
		    max_rows = $9,
		    timeout_seconds = $10,
		    updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query,
		id,
		conn.Name,
		conn.Host,
		conn.Port,
		conn.Database,
		conn.Username,
		conn.CredentialsEncrypted,
		conn.SSLMode,
		conn.MaxRows,
		conn.TimeoutSeconds,
	)
	if err != nil {
		return fmt.Errorf("failed to update connection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("connection %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// Delete deletes a connection and, by cascade, its history
func (r *ConnectionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM connections WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete connection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("connection %s: %w", id, domain.ErrNotFound)
	}

	return nil
}
