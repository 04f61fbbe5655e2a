package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/sqlgate/internal/datasource"
	"github.com/Rrens/sqlgate/internal/domain"
	"github.com/Rrens/sqlgate/internal/sqlguard"
)

// Validator is the part of sqlguard.Engine the services depend on
type Validator interface {
	Validate(text string, opts ...sqlguard.Option) (sqlguard.Result, error)
	DefaultDialect() string
	Ceiling() int64
}

// RejectedError is returned by Execute when the engine refuses the query.
// It unwraps to the *sqlguard.Rejection.
type RejectedError struct {
	Validation domain.ValidationResponse
	Rejection  *sqlguard.Rejection
}

func (e *RejectedError) Error() string {
	return "query rejected: " + e.Rejection.Error()
}

func (e *RejectedError) Unwrap() error {
	return e.Rejection
}

// QueryConfig holds the query service limits
type QueryConfig struct {
	// MaxSQLBytes caps the size of submitted SQL text; zero disables it
	MaxSQLBytes  int
	HistoryLimit int
	Timeout      time.Duration
}

// QueryService validates and runs SQL against registered connections
type QueryService struct {
	engine      Validator
	connections *ConnectionService
	historyRepo domain.HistoryRepository
	cfg         QueryConfig
}

// NewQueryService creates a new query service
func NewQueryService(
	engine Validator,
	connections *ConnectionService,
	historyRepo domain.HistoryRepository,
	cfg QueryConfig,
) *QueryService {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 50
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &QueryService{
		engine:      engine,
		connections: connections,
		historyRepo: historyRepo,
		cfg:         cfg,
	}
}

// Validate returns the engine's verdict without running anything. A
// connection, when given, supplies the dialect and a tighter row ceiling.
func (s *QueryService) Validate(ctx context.Context, req domain.ValidateRequest) (*domain.ValidationResponse, error) {
	if err := s.checkSize(req.SQL); err != nil {
		return nil, err
	}

	dialect := req.Dialect
	var connMaxRows int64
	if req.ConnectionID != nil {
		info, err := s.connections.Get(ctx, *req.ConnectionID)
		if err != nil {
			return nil, err
		}
		if dialect == "" {
			dialect = info.DatabaseType.Dialect()
		}
		connMaxRows = info.MaxRows
	}

	res, err := s.validate(req.SQL, dialect, req.MaxRows, connMaxRows)
	if err != nil {
		return nil, err
	}

	out := domain.NewValidationResponse(res)
	return &out, nil
}

// Execute validates SQL for the connection's dialect and runs the rewritten
// statement read-only. A rejected query is recorded in history and returned
// as *RejectedError.
func (s *QueryService) Execute(ctx context.Context, req domain.ExecuteRequest) (*domain.ExecuteResponse, error) {
	if err := s.checkSize(req.SQL); err != nil {
		return nil, err
	}

	requestID := uuid.New().String()
	startTime := time.Now()

	conn, adapter, err := s.connections.Adapter(ctx, req.ConnectionID)
	if err != nil {
		return nil, err
	}

	res, err := s.validate(req.SQL, conn.DatabaseType.Dialect(), req.MaxRows, conn.MaxRows)
	if err != nil {
		return nil, err
	}

	entry := &domain.QueryHistory{
		ID:           uuid.New(),
		ConnectionID: conn.ID,
		SQLText:      req.SQL,
		CreatedAt:    startTime.UTC(),
	}

	stmt, ok := res.Executable()
	if !ok {
		entry.RejectionKind = res.Rejection.Kind
		entry.ErrorMessage = res.Rejection.Message
		s.record(ctx, entry)

		log.Info().
			Str("request_id", requestID).
			Str("connection_id", conn.ID.String()).
			Str("rejection_kind", string(res.Rejection.Kind)).
			Msg("query rejected")

		return nil, &RejectedError{Validation: domain.NewValidationResponse(res), Rejection: res.Rejection}
	}

	entry.Accepted = true
	entry.TransformedSQL = stmt.SQL()

	timeout := s.cfg.Timeout
	if conn.TimeoutSeconds > 0 {
		timeout = time.Duration(conn.TimeoutSeconds) * time.Second
	}
	if req.TimeoutSeconds > 0 {
		timeout = time.Duration(req.TimeoutSeconds) * time.Second
	}

	result, err := adapter.Query(ctx, stmt, datasource.QueryOptions{
		MaxRows: res.Ceiling,
		Timeout: timeout,
	})
	entry.ExecutionTimeMs = time.Since(startTime).Milliseconds()
	if err != nil {
		entry.ErrorMessage = err.Error()
		s.record(ctx, entry)
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}

	entry.Success = true
	entry.RowCount = result.RowCount
	s.record(ctx, entry)

	log.Debug().
		Str("request_id", requestID).
		Str("connection_id", conn.ID.String()).
		Bool("limit_applied", res.LimitApplied).
		Int("row_count", result.RowCount).
		Int64("execution_time_ms", entry.ExecutionTimeMs).
		Msg("query executed")

	return &domain.ExecuteResponse{
		RequestID:       requestID,
		ConnectionID:    conn.ID,
		SQL:             req.SQL,
		TransformedSQL:  stmt.SQL(),
		LimitApplied:    res.LimitApplied,
		Message:         res.Message(),
		Result:          result,
		ExecutionTimeMs: entry.ExecutionTimeMs,
	}, nil
}

// History returns recent queries of a connection, newest first
func (s *QueryService) History(ctx context.Context, connectionID uuid.UUID, limit int) ([]domain.QueryHistory, error) {
	if _, err := s.connections.Get(ctx, connectionID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > s.cfg.HistoryLimit {
		limit = s.cfg.HistoryLimit
	}
	return s.historyRepo.ListByConnection(ctx, connectionID, limit)
}

func (s *QueryService) validate(sql, dialect string, limits ...int64) (sqlguard.Result, error) {
	ceiling := s.engine.Ceiling()
	for _, n := range limits {
		if n > 0 && n < ceiling {
			ceiling = n
		}
	}

	res, err := s.engine.Validate(sql, sqlguard.WithDialect(dialect), sqlguard.WithCeiling(ceiling))
	if errors.Is(err, sqlguard.ErrUnknownDialect) {
		return sqlguard.Result{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedDatabase, dialect)
	}
	return res, err
}

func (s *QueryService) checkSize(sql string) error {
	if s.cfg.MaxSQLBytes > 0 && len(sql) > s.cfg.MaxSQLBytes {
		return fmt.Errorf("%w: %d bytes, limit is %d", domain.ErrSQLTooLarge, len(sql), s.cfg.MaxSQLBytes)
	}
	return nil
}

func (s *QueryService) record(ctx context.Context, entry *domain.QueryHistory) {
	if s.historyRepo == nil {
		return
	}
	if err := s.historyRepo.Add(ctx, entry, s.cfg.HistoryLimit); err != nil {
		log.Error().Err(err).Str("connection_id", entry.ConnectionID.String()).Msg("failed to save query history")
	}
}
