package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/sqlgate/internal/datasource"
	"github.com/Rrens/sqlgate/internal/domain"
	"github.com/Rrens/sqlgate/internal/sqlguard"
)

func (f *fixture) expectAdapter(conn *domain.Connection) {
	f.adapters.On("Get", mock.Anything, conn.ID, conn.DatabaseType, mock.MatchedBy(func(c datasource.ConnectionConfig) bool {
		return c.Password == "s3cret" && c.Database == conn.Database
	})).Return(f.adapter, nil)
}

func TestQueryService_Validate(t *testing.T) {
	ctx := context.Background()

	t.Run("default dialect and ceiling", func(t *testing.T) {
		f := newFixture(t)

		out, err := f.queries.Validate(ctx, domain.ValidateRequest{SQL: "SELECT 1"})
		require.NoError(t, err)
		assert.True(t, out.Accepted)
		assert.Equal(t, "SELECT 1 LIMIT 1000", out.TransformedSQL)
		assert.True(t, out.LimitApplied)
		assert.Equal(t, "postgres", out.Dialect)
		assert.Equal(t, int64(1000), out.MaxRows)
	})

	t.Run("connection supplies dialect and ceiling", func(t *testing.T) {
		f := newFixture(t)
		conn := f.connection(t, domain.DatabaseTypeMySQL, 10)

		out, err := f.queries.Validate(ctx, domain.ValidateRequest{
			SQL:          "select id from orders",
			ConnectionID: &conn.ID,
		})
		require.NoError(t, err)
		assert.True(t, out.Accepted)
		assert.Equal(t, "mysql", out.Dialect)
		assert.Equal(t, int64(10), out.MaxRows)
		assert.Contains(t, strings.ToLower(out.TransformedSQL), "limit 10")
	})

	t.Run("request max rows tightens the connection ceiling", func(t *testing.T) {
		f := newFixture(t)
		conn := f.connection(t, domain.DatabaseTypePostgres, 500)

		out, err := f.queries.Validate(ctx, domain.ValidateRequest{
			SQL:          "SELECT id FROM orders LIMIT 900",
			ConnectionID: &conn.ID,
			MaxRows:      20,
		})
		require.NoError(t, err)
		assert.True(t, out.Accepted)
		assert.Equal(t, int64(20), out.MaxRows)
		assert.Contains(t, out.TransformedSQL, "LIMIT 20")
	})

	t.Run("request max rows cannot raise the ceiling", func(t *testing.T) {
		f := newFixture(t)

		out, err := f.queries.Validate(ctx, domain.ValidateRequest{SQL: "SELECT 1", MaxRows: 5000})
		require.NoError(t, err)
		assert.Equal(t, int64(1000), out.MaxRows)
	})

	t.Run("rejection is a verdict, not an error", func(t *testing.T) {
		f := newFixture(t)

		out, err := f.queries.Validate(ctx, domain.ValidateRequest{SQL: "DELETE FROM orders"})
		require.NoError(t, err)
		assert.False(t, out.Accepted)
		assert.Equal(t, sqlguard.RejectForbiddenStatement, out.RejectionKind)
		assert.Empty(t, out.TransformedSQL)
	})

	t.Run("oversized text", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.queries.Validate(ctx, domain.ValidateRequest{SQL: "SELECT '" + strings.Repeat("x", 2048) + "'"})
		assert.ErrorIs(t, err, domain.ErrSQLTooLarge)
	})

	t.Run("unknown connection", func(t *testing.T) {
		f := newFixture(t)
		id := uuid.New()
		f.connRepo.On("GetByID", mock.Anything, id).Return(nil, domain.ErrNotFound)

		_, err := f.queries.Validate(ctx, domain.ValidateRequest{SQL: "SELECT 1", ConnectionID: &id})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestQueryService_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("accepted query runs the rewritten statement", func(t *testing.T) {
		f := newFixture(t)
		conn := f.connection(t, domain.DatabaseTypePostgres, 100)
		f.expectAdapter(conn)

		result := &domain.QueryResult{Columns: []string{"id"}, Rows: [][]any{{int64(1)}}, RowCount: 1}
		f.adapter.On("Query", mock.Anything,
			mock.MatchedBy(func(x sqlguard.Executable) bool { return x.SQL() == "SELECT id FROM orders LIMIT 100" }),
			datasource.QueryOptions{MaxRows: 100, Timeout: 10 * time.Second},
		).Return(result, nil)
		f.historyRepo.On("Add", mock.Anything, mock.MatchedBy(func(h *domain.QueryHistory) bool {
			return h.Accepted && h.Success && h.RowCount == 1 && h.ConnectionID == conn.ID
		}), 50).Return(nil)

		resp, err := f.queries.Execute(ctx, domain.ExecuteRequest{ConnectionID: conn.ID, SQL: "SELECT id FROM orders"})
		require.NoError(t, err)
		assert.Equal(t, "SELECT id FROM orders LIMIT 100", resp.TransformedSQL)
		assert.True(t, resp.LimitApplied)
		assert.Equal(t, "LIMIT 100 automatically applied", resp.Message)
		assert.Equal(t, result, resp.Result)
		assert.NotEmpty(t, resp.RequestID)

		f.adapter.AssertExpectations(t)
		f.historyRepo.AssertExpectations(t)
	})

	t.Run("request timeout overrides the connection", func(t *testing.T) {
		f := newFixture(t)
		conn := f.connection(t, domain.DatabaseTypePostgres, 100)
		f.expectAdapter(conn)

		f.adapter.On("Query", mock.Anything, mock.Anything, datasource.QueryOptions{MaxRows: 100, Timeout: 3 * time.Second}).
			Return(&domain.QueryResult{Rows: [][]any{}}, nil)
		f.historyRepo.On("Add", mock.Anything, mock.Anything, 50).Return(nil)

		_, err := f.queries.Execute(ctx, domain.ExecuteRequest{ConnectionID: conn.ID, SQL: "SELECT 1", TimeoutSeconds: 3})
		require.NoError(t, err)
		f.adapter.AssertExpectations(t)
	})

	t.Run("rejected query never reaches the database", func(t *testing.T) {
		f := newFixture(t)
		conn := f.connection(t, domain.DatabaseTypePostgres, 100)
		f.expectAdapter(conn)
		f.historyRepo.On("Add", mock.Anything, mock.MatchedBy(func(h *domain.QueryHistory) bool {
			return !h.Accepted && h.RejectionKind == sqlguard.RejectForbiddenStatement && h.TransformedSQL == ""
		}), 50).Return(nil)

		_, err := f.queries.Execute(ctx, domain.ExecuteRequest{ConnectionID: conn.ID, SQL: "DROP TABLE orders"})
		require.Error(t, err)

		var rejected *RejectedError
		require.True(t, errors.As(err, &rejected))
		assert.False(t, rejected.Validation.Accepted)

		var rejection *sqlguard.Rejection
		require.True(t, errors.As(err, &rejection))
		assert.Equal(t, sqlguard.RejectForbiddenStatement, rejection.Kind)

		f.adapter.AssertNotCalled(t, "Query", mock.Anything, mock.Anything, mock.Anything)
		f.historyRepo.AssertExpectations(t)
	})

	t.Run("driver failure is recorded", func(t *testing.T) {
		f := newFixture(t)
		conn := f.connection(t, domain.DatabaseTypePostgres, 100)
		f.expectAdapter(conn)

		f.adapter.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("relation \"orders\" does not exist"))
		f.historyRepo.On("Add", mock.Anything, mock.MatchedBy(func(h *domain.QueryHistory) bool {
			return h.Accepted && !h.Success && strings.Contains(h.ErrorMessage, "does not exist")
		}), 50).Return(nil)

		_, err := f.queries.Execute(ctx, domain.ExecuteRequest{ConnectionID: conn.ID, SQL: "SELECT * FROM orders"})
		assert.ErrorContains(t, err, "failed to execute query")
		f.historyRepo.AssertExpectations(t)
	})

	t.Run("history failure does not fail the query", func(t *testing.T) {
		f := newFixture(t)
		conn := f.connection(t, domain.DatabaseTypePostgres, 100)
		f.expectAdapter(conn)

		f.adapter.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(&domain.QueryResult{Rows: [][]any{}}, nil)
		f.historyRepo.On("Add", mock.Anything, mock.Anything, 50).Return(errors.New("connection reset"))

		_, err := f.queries.Execute(ctx, domain.ExecuteRequest{ConnectionID: conn.ID, SQL: "SELECT 1"})
		assert.NoError(t, err)
	})
}

func TestQueryService_History(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	conn := f.connection(t, domain.DatabaseTypePostgres, 100)

	entries := []domain.QueryHistory{{ID: uuid.New(), ConnectionID: conn.ID, SQLText: "SELECT 1"}}
	f.historyRepo.On("ListByConnection", mock.Anything, conn.ID, 50).Return(entries, nil)

	got, err := f.queries.History(ctx, conn.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, entries, got)

	got, err = f.queries.History(ctx, conn.ID, 500)
	require.NoError(t, err)
	assert.Equal(t, entries, got)
	f.historyRepo.AssertNumberOfCalls(t, "ListByConnection", 2)
}

func TestNewQueryService_Defaults(t *testing.T) {
	f := newFixture(t)
	queries := NewQueryService(f.engine, f.connections, f.historyRepo, QueryConfig{})

	assert.Equal(t, 50, queries.cfg.HistoryLimit)
	assert.Equal(t, 30*time.Second, queries.cfg.Timeout)
	assert.Zero(t, queries.cfg.MaxSQLBytes)

	conn := f.connection(t, domain.DatabaseTypePostgres, 100)
	f.historyRepo.On("ListByConnection", mock.Anything, conn.ID, 50).Return([]domain.QueryHistory{}, nil)
	_, err := queries.History(context.Background(), conn.ID, 0)
	require.NoError(t, err)
	f.historyRepo.AssertExpectations(t)
}
