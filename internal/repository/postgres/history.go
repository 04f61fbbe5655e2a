package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Rrens/sqlgate/internal/domain"
	"github.com/Rrens/sqlgate/internal/sqlguard"
)

// HistoryRepository stores execute attempts per connection
type HistoryRepository struct {
	db *DB
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Add inserts entry and trims the connection's history to the newest keep
// rows in the same transaction. keep <= 0 disables trimming.
func (r *HistoryRepository) Add(ctx context.Context, entry *domain.QueryHistory, keep int) error {
	return pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO query_history (
				id, connection_id, sql_text, transformed_sql, accepted,
				rejection_kind, success, row_count, execution_time_ms,
				error_message, created_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`,
			entry.ID,
			entry.ConnectionID,
			entry.SQLText,
			entry.TransformedSQL,
			entry.Accepted,
			string(entry.RejectionKind),
			entry.Success,
			entry.RowCount,
			entry.ExecutionTimeMs,
			entry.ErrorMessage,
			entry.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to add history: %w", err)
		}

		if keep <= 0 {
			return nil
		}

		_, err = tx.Exec(ctx, `
			DELETE FROM query_history
			WHERE connection_id = $1
			  AND id NOT IN (
				SELECT id FROM query_history
				WHERE connection_id = $1
				ORDER BY created_at DESC, id DESC
				LIMIT $2
			  )
		`, entry.ConnectionID, keep)
		if err != nil {
			return fmt.Errorf("failed to trim history: %w", err)
		}
		return nil
	})
}

// ListByConnection returns at most limit entries, newest first
func (r *HistoryRepository) ListByConnection(ctx context.Context, connectionID uuid.UUID, limit int) ([]domain.QueryHistory, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT
			id, connection_id, sql_text, transformed_sql, accepted,
			rejection_kind, success, row_count, execution_time_ms,
			error_message, created_at
		FROM query_history
		WHERE connection_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, connectionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.QueryHistory, error) {
		var h domain.QueryHistory
		var kind string
		err := row.Scan(
			&h.ID,
			&h.ConnectionID,
			&h.SQLText,
			&h.TransformedSQL,
			&h.Accepted,
			&kind,
			&h.Success,
			&h.RowCount,
			&h.ExecutionTimeMs,
			&h.ErrorMessage,
			&h.CreatedAt,
		)
		h.RejectionKind = sqlguard.RejectionKind(kind)
		return h, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan history: %w", err)
	}

	return entries, nil
}
