package sqlguard_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/sqlgate/internal/sqlguard"
)

func newEngine(t *testing.T, cfg sqlguard.Config) *sqlguard.Engine {
	t.Helper()
	engine, err := sqlguard.NewEngine(cfg)
	require.NoError(t, err)
	return engine
}

func validate(t *testing.T, engine *sqlguard.Engine, sql string, opts ...sqlguard.Option) sqlguard.Result {
	t.Helper()
	res, err := engine.Validate(sql, opts...)
	require.NoError(t, err)
	return res
}

func TestEngine_Scenarios(t *testing.T) {
	engine := newEngine(t, sqlguard.Config{})

	t.Run("select without limit", func(t *testing.T) {
		res := validate(t, engine, "SELECT id FROM users")
		require.True(t, res.Accepted)
		assert.Contains(t, res.TransformedSQL, "LIMIT 1000")
		assert.True(t, res.LimitApplied)
		assert.Equal(t, "LIMIT 1000 automatically applied", res.Message())
	})

	t.Run("update", func(t *testing.T) {
		res := validate(t, engine, "UPDATE users SET active=false")
		require.False(t, res.Accepted)
		assert.Equal(t, sqlguard.RejectForbiddenStatement, res.Rejection.Kind)
		assert.Contains(t, res.Rejection.Message, "UPDATE")
	})

	t.Run("limit below ceiling", func(t *testing.T) {
		res := validate(t, engine, "SELECT id FROM users LIMIT 50")
		require.True(t, res.Accepted)
		assert.Equal(t, "SELECT id FROM users LIMIT 50", res.TransformedSQL)
		assert.False(t, res.LimitApplied)
	})

	t.Run("stacked drop", func(t *testing.T) {
		res := validate(t, engine, "SELECT 1; DROP TABLE users")
		require.False(t, res.Accepted)
		assert.Equal(t, sqlguard.RejectMultipleStatements, res.Rejection.Kind)
	})

	t.Run("empty", func(t *testing.T) {
		res := validate(t, engine, "")
		require.False(t, res.Accepted)
		assert.Equal(t, sqlguard.RejectEmptyInput, res.Rejection.Kind)
	})
}

func TestEngine_ReadOnlyStatements(t *testing.T) {
	engine := newEngine(t, sqlguard.Config{})

	tests := []struct {
		name string
		sql  string
	}{
		{"simple select", "SELECT * FROM users"},
		{"select with join", "SELECT u.id, o.total FROM users u JOIN orders o ON u.id = o.user_id"},
		{"aggregate", "SELECT status, COUNT(*) FROM orders GROUP BY status"},
		{"cte", "WITH active AS (SELECT * FROM users WHERE active) SELECT * FROM active"},
		{"union", "SELECT a FROM t UNION SELECT a FROM u"},
		{"intersect", "SELECT a FROM t INTERSECT SELECT a FROM u"},
		{"subquery", "SELECT * FROM users WHERE id IN (SELECT user_id FROM orders)"},
		{"trailing semicolon", "SELECT 1;"},
		{"keyword in string", "SELECT * FROM accounts WHERE note = 'please DROP nothing'"},
		{"keyword in identifier", `SELECT "delete", updated_at FROM "insert"`},
		{"keyword in comment", "SELECT 1 -- DROP TABLE users"},
		{"harmless function", "SELECT lower(name), now() FROM users"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := validate(t, engine, tt.sql)
			assert.True(t, res.Accepted, "rejection: %v", res.Rejection)
			assert.Nil(t, res.Rejection)
		})
	}
}

func TestEngine_ForbiddenStatements(t *testing.T) {
	engine := newEngine(t, sqlguard.Config{})

	tests := []struct {
		name    string
		sql     string
		message string
	}{
		{"insert", "INSERT INTO users (name) VALUES ('test')", "INSERT"},
		{"update", "UPDATE users SET name = 'test' WHERE id = 1", "UPDATE"},
		{"delete", "DELETE FROM users WHERE id = 1", "DELETE"},
		{"drop", "DROP TABLE users", "DROP"},
		{"alter", "ALTER TABLE users ADD COLUMN email text", "ALTER"},
		{"create", "CREATE TABLE test (id int)", "CREATE"},
		{"create view", "CREATE VIEW v AS SELECT 1", "CREATE"},
		{"truncate", "TRUNCATE TABLE users", "TRUNCATE"},
		{"merge", "MERGE INTO t USING s ON t.id = s.id WHEN MATCHED THEN DELETE", "MERGE"},
		{"grant", "GRANT SELECT ON users TO readonly", "GRANT"},
		{"revoke", "REVOKE SELECT ON users FROM readonly", "REVOKE"},
		{"copy", "COPY users TO STDOUT", "COPY"},
		{"explain", "EXPLAIN ANALYZE DELETE FROM users", "EXPLAIN"},
		{"call", "CALL refresh_all()", "CALL"},
		{"do block", "DO $$ BEGIN PERFORM 1; END $$", "CALL"},
		{"begin", "BEGIN", "TRANSACTION"},
		{"set", "SET search_path = public", "SET"},
		{"show", "SHOW work_mem", "SHOW"},
		{"lock table", "LOCK TABLE users", "row locking"},
		{"vacuum", "VACUUM users", "OTHER"},
		{"select into", "SELECT * INTO backup FROM users", "SELECT INTO"},
		{"for update", "SELECT * FROM users FOR UPDATE", "row locking"},
		{"for share in subquery", "SELECT * FROM (SELECT * FROM users FOR SHARE) s", "row locking"},
		{"data-modifying cte", "WITH d AS (DELETE FROM users RETURNING *) SELECT * FROM d", "DeleteStmt"},
		{"insert cte", "WITH i AS (INSERT INTO log VALUES (1) RETURNING id) SELECT id FROM i", "InsertStmt"},
		{"blocked function", "SELECT pg_read_file('/etc/passwd')", "pg_read_file"},
		{"qualified blocked function", "SELECT pg_catalog.pg_sleep(10)", "pg_sleep"},
		{"blocked function in where", "SELECT id FROM users WHERE nextval('s') > 0", "nextval"},
		{"blocked function upper case", "SELECT SET_CONFIG('role', 'admin', false)", "set_config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := validate(t, engine, tt.sql)
			require.False(t, res.Accepted)
			require.NotNil(t, res.Rejection)
			assert.Equal(t, sqlguard.RejectForbiddenStatement, res.Rejection.Kind)
			assert.Contains(t, res.Rejection.Message, tt.message)
			assert.Empty(t, res.TransformedSQL)
			_, ok := res.Executable()
			assert.False(t, ok)
		})
	}
}

func TestEngine_StatementStacking(t *testing.T) {
	engine := newEngine(t, sqlguard.Config{})

	for _, sql := range []string{
		"SELECT 1; DELETE FROM t",
		"SELECT 1; SELECT 2",
		"SELECT 1;;SELECT 2;",
		"SELECT * FROM t WHERE a = 'x'; UPDATE t SET a = 1",
	} {
		res := validate(t, engine, sql)
		require.False(t, res.Accepted, sql)
		assert.Contains(t,
			[]sqlguard.RejectionKind{sqlguard.RejectMultipleStatements, sqlguard.RejectForbiddenStatement},
			res.Rejection.Kind, sql)
	}
}

func TestEngine_CeilingEnforcement(t *testing.T) {
	engine := newEngine(t, sqlguard.Config{})

	tests := []struct {
		name    string
		sql     string
		want    string
		applied bool
	}{
		{"absent", "SELECT * FROM t", "SELECT * FROM t LIMIT 1000", true},
		{"below", "SELECT * FROM t LIMIT 10", "SELECT * FROM t LIMIT 10", false},
		{"equal", "SELECT * FROM t LIMIT 1000", "SELECT * FROM t LIMIT 1000", false},
		{"above", "SELECT * FROM t LIMIT 5000", "SELECT * FROM t LIMIT 1000", true},
		{"huge", "SELECT * FROM t LIMIT 99999999999999999999", "SELECT * FROM t LIMIT 1000", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := validate(t, engine, tt.sql)
			require.True(t, res.Accepted, "rejection: %v", res.Rejection)
			assert.Equal(t, tt.want, res.TransformedSQL)
			assert.Equal(t, tt.applied, res.LimitApplied)
		})
	}
}

func TestEngine_OffsetIsPreserved(t *testing.T) {
	engine := newEngine(t, sqlguard.Config{})

	for _, sql := range []string{
		"SELECT * FROM t LIMIT 5000 OFFSET 20",
		"SELECT * FROM t OFFSET 20",
	} {
		res := validate(t, engine, sql)
		require.True(t, res.Accepted, sql)
		assert.True(t, res.LimitApplied, sql)
		assert.Contains(t, res.TransformedSQL, "LIMIT 1000", sql)
		assert.Contains(t, res.TransformedSQL, "OFFSET 20", sql)
	}
}

func TestEngine_NonLiteralLimitsAreReplaced(t *testing.T) {
	engine := newEngine(t, sqlguard.Config{})

	for _, sql := range []string{
		"SELECT * FROM t LIMIT ALL",
		"SELECT * FROM t LIMIT $1",
		"SELECT * FROM t LIMIT 2 * 500",
		"SELECT * FROM t LIMIT (SELECT count(*) FROM u)",
		"SELECT * FROM t ORDER BY a FETCH FIRST 5 ROWS WITH TIES",
	} {
		res := validate(t, engine, sql)
		require.True(t, res.Accepted, sql)
		assert.True(t, res.LimitApplied, sql)
		assert.Contains(t, res.TransformedSQL, "LIMIT 1000", sql)
		assert.NotContains(t, res.TransformedSQL, "TIES", sql)
		assert.NotContains(t, res.TransformedSQL, "$1", sql)
	}
}

func TestEngine_SetOperationLimitAppliesToWholeResult(t *testing.T) {
	engine := newEngine(t, sqlguard.Config{})

	res := validate(t, engine, "SELECT a FROM t UNION ALL SELECT a FROM u")
	require.True(t, res.Accepted)
	assert.True(t, res.LimitApplied)
	assert.Regexp(t, `UNION ALL SELECT a FROM u LIMIT 1000$`, res.TransformedSQL)
}

func TestEngine_Idempotence(t *testing.T) {
	engine := newEngine(t, sqlguard.Config{})

	for _, sql := range []string{
		"SELECT id FROM users",
		"select id, name from users where id > 10 order by name",
		"SELECT * FROM t LIMIT 5000 OFFSET 3",
		"SELECT * FROM t LIMIT ALL",
		"WITH x AS (SELECT 1 AS a) SELECT a FROM x",
		"SELECT a FROM t UNION SELECT a FROM u",
		"SELECT * FROM t ORDER BY a FETCH FIRST 5 ROWS WITH TIES",
	} {
		first := validate(t, engine, sql)
		require.True(t, first.Accepted, sql)

		second := validate(t, engine, first.TransformedSQL)
		require.True(t, second.Accepted, sql)
		assert.Equal(t, first.TransformedSQL, second.TransformedSQL, sql)
		assert.False(t, second.LimitApplied, sql)
	}
}

func TestEngine_EmptyInput(t *testing.T) {
	engine := newEngine(t, sqlguard.Config{})

	for _, sql := range []string{"", "   ", "\n\t ", "-- only a comment", "/* nothing */", ";"} {
		res := validate(t, engine, sql)
		require.False(t, res.Accepted, "%q", sql)
		assert.Equal(t, sqlguard.RejectEmptyInput, res.Rejection.Kind, "%q", sql)
	}
}

func TestEngine_SyntaxErrorPosition(t *testing.T) {
	engine := newEngine(t, sqlguard.Config{})

	t.Run("first token", func(t *testing.T) {
		res := validate(t, engine, "SELEC * FROM t")
		require.False(t, res.Accepted)
		assert.Equal(t, sqlguard.RejectSyntaxError, res.Rejection.Kind)
		assert.Contains(t, res.Rejection.Message, "SELEC")
		require.NotNil(t, res.Rejection.Position)
		assert.Equal(t, 1, res.Rejection.Position.Line)
		assert.Equal(t, 1, res.Rejection.Position.Column)
	})

	t.Run("second line", func(t *testing.T) {
		res := validate(t, engine, "SELECT id\nFROM users WHERE WHERE x")
		require.False(t, res.Accepted)
		assert.Equal(t, sqlguard.RejectSyntaxError, res.Rejection.Kind)
		require.NotNil(t, res.Rejection.Position)
		assert.Equal(t, 2, res.Rejection.Position.Line)
		assert.Equal(t, 18, res.Rejection.Position.Column)
	})
}

func TestEngine_OverLimitReject(t *testing.T) {
	engine := newEngine(t, sqlguard.Config{OverLimit: sqlguard.OverLimitReject})

	res := validate(t, engine, "SELECT * FROM t LIMIT 5000")
	require.False(t, res.Accepted)
	assert.Equal(t, sqlguard.RejectLimitExceeded, res.Rejection.Kind)
	assert.Equal(t, "requested limit 5000 exceeds the maximum of 1000 rows", res.Rejection.Message)

	res = validate(t, engine, "SELECT * FROM t")
	require.True(t, res.Accepted)
	assert.Equal(t, "SELECT * FROM t LIMIT 1000", res.TransformedSQL)

	res = validate(t, engine, "SELECT * FROM t LIMIT ALL")
	require.True(t, res.Accepted)
	assert.True(t, res.LimitApplied)
}

func TestEngine_Options(t *testing.T) {
	engine := newEngine(t, sqlguard.Config{})

	res := validate(t, engine, "SELECT * FROM t LIMIT 100", sqlguard.WithCeiling(50))
	require.True(t, res.Accepted)
	assert.Equal(t, "SELECT * FROM t LIMIT 50", res.TransformedSQL)
	assert.Equal(t, int64(50), res.Ceiling)
	assert.Equal(t, "LIMIT 50 automatically applied", res.Message())

	res = validate(t, engine, "select * from t", sqlguard.WithDialect(sqlguard.DialectMySQL))
	require.True(t, res.Accepted)
	assert.Equal(t, sqlguard.DialectMySQL, res.Dialect)

	_, err := engine.Validate("SELECT 1", sqlguard.WithDialect("oracle"))
	assert.ErrorIs(t, err, sqlguard.ErrUnknownDialect)

	for _, ceiling := range []int64{-1, 1 << 40} {
		_, err = engine.Validate("SELECT 1", sqlguard.WithCeiling(ceiling))
		assert.ErrorIs(t, err, sqlguard.ErrInvalidCeiling)
	}
}

func TestNewEngine_Config(t *testing.T) {
	engine, err := sqlguard.NewEngine(sqlguard.Config{})
	require.NoError(t, err)
	assert.Equal(t, sqlguard.DialectPostgres, engine.DefaultDialect())
	assert.Equal(t, int64(sqlguard.DefaultCeiling), engine.Ceiling())
	assert.Equal(t, sqlguard.OverLimitClamp, engine.OverLimit())
	assert.Equal(t, []string{"mysql", "postgres", "sqlite"}, engine.Dialects())

	_, err = sqlguard.NewEngine(sqlguard.Config{Ceiling: -5})
	assert.ErrorIs(t, err, sqlguard.ErrInvalidCeiling)

	_, err = sqlguard.NewEngine(sqlguard.Config{OverLimit: "truncate"})
	assert.Error(t, err)

	_, err = sqlguard.NewEngine(sqlguard.Config{DefaultDialect: "oracle"})
	assert.ErrorIs(t, err, sqlguard.ErrUnknownDialect)

	_, err = sqlguard.NewEngine(sqlguard.Config{}, sqlguard.NewPostgres(), sqlguard.NewPostgres())
	assert.Error(t, err)
}

func TestEngine_ExtraBlockedFunctions(t *testing.T) {
	engine, err := sqlguard.NewEngine(sqlguard.Config{}, sqlguard.NewPostgres("Audit_Export"))
	require.NoError(t, err)

	res := validate(t, engine, "SELECT audit_export(id) FROM users")
	require.False(t, res.Accepted)
	assert.Equal(t, sqlguard.RejectForbiddenStatement, res.Rejection.Kind)
	assert.Contains(t, res.Rejection.Message, "audit_export")

	res = validate(t, engine, "SELECT pg_sleep(1)")
	assert.False(t, res.Accepted)
}

func TestEngine_PipelineStagesAreCopyOnWrite(t *testing.T) {
	engine := newEngine(t, sqlguard.Config{})

	parsed, err := engine.Parse("SELECT id FROM users", sqlguard.DialectPostgres)
	require.NoError(t, err)
	assert.Equal(t, 1, parsed.Statements())

	stmt, err := sqlguard.Classify(parsed)
	require.NoError(t, err)

	limited, applied := sqlguard.EnforceLimit(stmt, 10)
	assert.True(t, applied)
	assert.Equal(t, sqlguard.LimitClause{Present: true, Literal: true, Value: 10}, limited.Limit())

	assert.False(t, stmt.Limit().Present)
	original, err := parsed.Tree(0).SQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM users", original)

	again, applied := sqlguard.EnforceLimit(limited, 10)
	assert.False(t, applied)
	assert.Same(t, limited, again)
}

func TestEngine_ExecutableOnlyFromAcceptedResult(t *testing.T) {
	engine := newEngine(t, sqlguard.Config{})

	res := validate(t, engine, "SELECT id FROM users")
	exec, ok := res.Executable()
	require.True(t, ok)
	assert.Equal(t, res.TransformedSQL, exec.SQL())
	assert.Equal(t, sqlguard.DialectPostgres, exec.Dialect())

	var zero sqlguard.Result
	_, ok = zero.Executable()
	assert.False(t, ok)
	assert.Empty(t, sqlguard.Executable{}.SQL())
}

func TestRejection_IsAnError(t *testing.T) {
	engine := newEngine(t, sqlguard.Config{})

	_, err := engine.Parse("   ", sqlguard.DialectPostgres)
	var rejection *sqlguard.Rejection
	require.True(t, errors.As(err, &rejection))
	assert.Equal(t, sqlguard.RejectEmptyInput, rejection.Kind)
	assert.Equal(t, "EmptyInput: query is empty", err.Error())

	_, err = engine.Parse("SELEC 1", sqlguard.DialectPostgres)
	require.True(t, errors.As(err, &rejection))
	assert.Contains(t, err.Error(), "line 1, column 1")
}

func TestEngine_ConcurrentValidate(t *testing.T) {
	engine := newEngine(t, sqlguard.Config{})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			opts := []sqlguard.Option{sqlguard.WithCeiling(int64(i + 1))}
			res, err := engine.Validate("SELECT * FROM t", opts...)
			assert.NoError(t, err)
			assert.True(t, res.Accepted)
			assert.Equal(t, int64(i+1), res.Ceiling)
		}(i)
	}
	wg.Wait()
}

type panicDialect struct{}

func (panicDialect) Name() string { return "panicky" }

func (panicDialect) BlockedFunction(string) bool { return false }

func (panicDialect) Parse(string) ([]sqlguard.Tree, error) {
	panic("grammar table corrupted")
}

func TestEngine_RecoversParserPanic(t *testing.T) {
	engine, err := sqlguard.NewEngine(sqlguard.Config{DefaultDialect: "panicky"}, panicDialect{})
	require.NoError(t, err)

	res, err := engine.Validate("SELECT 1")
	require.NoError(t, err)
	require.False(t, res.Accepted)
	assert.Equal(t, sqlguard.RejectSyntaxError, res.Rejection.Kind)
	assert.Contains(t, res.Rejection.Message, "grammar table corrupted")
}
