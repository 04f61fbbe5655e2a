package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/Rrens/sqlgate/internal/sqlguard"
)

// ValidateRequest asks for a verdict on SQL without running it. The dialect
// comes from Dialect, else from the connection, else the server default.
type ValidateRequest struct {
	SQL          string     `json:"sql" validate:"required"`
	ConnectionID *uuid.UUID `json:"connection_id,omitempty"`
	Dialect      string     `json:"dialect,omitempty" validate:"omitempty,oneof=postgres mysql sqlite"`
	MaxRows      int64      `json:"max_rows,omitempty" validate:"omitempty,min=1"`
}

// ValidationResponse is the wire form of a sqlguard.Result
type ValidationResponse struct {
	Accepted       bool                   `json:"accepted"`
	TransformedSQL string                 `json:"transformed_sql,omitempty"`
	LimitApplied   bool                   `json:"limit_applied"`
	RejectionKind  sqlguard.RejectionKind `json:"rejection_kind,omitempty"`
	Message        string                 `json:"message"`
	Position       *sqlguard.Position     `json:"position,omitempty"`
	Dialect        string                 `json:"dialect"`
	MaxRows        int64                  `json:"max_rows"`
}

func NewValidationResponse(res sqlguard.Result) ValidationResponse {
	out := ValidationResponse{
		Accepted:       res.Accepted,
		TransformedSQL: res.TransformedSQL,
		LimitApplied:   res.LimitApplied,
		Message:        res.Message(),
		Dialect:        res.Dialect,
		MaxRows:        res.Ceiling,
	}
	if res.Rejection != nil {
		out.RejectionKind = res.Rejection.Kind
		out.Position = res.Rejection.Position
	}
	return out
}

// ExecuteRequest runs SQL against a registered connection
type ExecuteRequest struct {
	ConnectionID   uuid.UUID `json:"connection_id" validate:"required"`
	SQL            string    `json:"sql" validate:"required"`
	MaxRows        int64     `json:"max_rows,omitempty" validate:"omitempty,min=1"`
	TimeoutSeconds int       `json:"timeout_seconds,omitempty" validate:"omitempty,min=1,max=300"`
}

// ExecuteResponse represents query execution result
type ExecuteResponse struct {
	RequestID       string       `json:"request_id"`
	ConnectionID    uuid.UUID    `json:"connection_id"`
	SQL             string       `json:"sql"`
	TransformedSQL  string       `json:"transformed_sql"`
	LimitApplied    bool         `json:"limit_applied"`
	Message         string       `json:"message"`
	Result          *QueryResult `json:"result"`
	ExecutionTimeMs int64        `json:"execution_time_ms"`
}

// QueryResult contains query execution data
type QueryResult struct {
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	RowCount  int      `json:"row_count"`
	Truncated bool     `json:"truncated"`
}

// TableInfo contains table metadata
type TableInfo struct {
	Name       string       `json:"name"`
	SchemaName string       `json:"schema_name,omitempty"`
	Columns    []ColumnInfo `json:"columns"`
	RowCount   *int64       `json:"row_count,omitempty"`
}

// ColumnInfo contains column metadata
type ColumnInfo struct {
	Name        string `json:"name"`
	DataType    string `json:"data_type"`
	Nullable    bool   `json:"nullable"`
	PrimaryKey  bool   `json:"primary_key"`
	Description string `json:"description,omitempty"`
}

// SchemaInfo contains database schema information
type SchemaInfo struct {
	DatabaseType string      `json:"database_type"`
	Tables       []TableInfo `json:"tables"`
	DDL          string      `json:"ddl"`
	CachedAt     time.Time   `json:"cached_at"`
}
