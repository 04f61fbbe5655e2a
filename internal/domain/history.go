package domain

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Rrens/sqlgate/internal/sqlguard"
)

// QueryHistory records one execute attempt, accepted or not
type QueryHistory struct {
	ID              uuid.UUID              `json:"id"`
	ConnectionID    uuid.UUID              `json:"connection_id"`
	SQLText         string                 `json:"sql_text"`
	TransformedSQL  string                 `json:"transformed_sql,omitempty"`
	Accepted        bool                   `json:"accepted"`
	RejectionKind   sqlguard.RejectionKind `json:"rejection_kind,omitempty"`
	Success         bool                   `json:"success"`
	RowCount        int                    `json:"row_count"`
	ExecutionTimeMs int64                  `json:"execution_time_ms"`
	ErrorMessage    string                 `json:"error_message,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
}

// HistoryRepository stores query history per connection
type HistoryRepository interface {
	// Add stores entry and drops all but the newest keep entries of its
	// connection
	Add(ctx context.Context, entry *QueryHistory, keep int) error
	// ListByConnection returns at most limit entries, newest first
	ListByConnection(ctx context.Context, connectionID uuid.UUID, limit int) ([]QueryHistory, error)
}
