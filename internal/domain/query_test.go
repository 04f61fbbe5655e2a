package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/sqlgate/internal/domain"
	"github.com/Rrens/sqlgate/internal/sqlguard"
)

func TestDatabaseType_Dialect(t *testing.T) {
	assert.Equal(t, "postgres", domain.DatabaseTypePostgres.Dialect())
	assert.Equal(t, "mysql", domain.DatabaseTypeMySQL.Dialect())
	assert.Equal(t, "sqlite", domain.DatabaseTypeSQLite.Dialect())
}

func TestNewValidationResponse(t *testing.T) {
	engine, err := sqlguard.NewEngine(sqlguard.Config{})
	require.NoError(t, err)

	res, err := engine.Validate("SELEC 1")
	require.NoError(t, err)

	body, err := json.Marshal(domain.NewValidationResponse(res))
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(body, &wire))
	assert.Equal(t, false, wire["accepted"])
	assert.Equal(t, "SyntaxError", wire["rejection_kind"])
	assert.Equal(t, map[string]any{"line": float64(1), "column": float64(1)}, wire["position"])
	assert.NotContains(t, wire, "transformed_sql")

	res, err = engine.Validate("SELECT 1")
	require.NoError(t, err)
	out := domain.NewValidationResponse(res)
	assert.True(t, out.Accepted)
	assert.Equal(t, "SELECT 1 LIMIT 1000", out.TransformedSQL)
	assert.Equal(t, "LIMIT 1000 automatically applied", out.Message)
	assert.Empty(t, out.RejectionKind)
}
