package llm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/sqlgate/internal/llm"
)

func TestBuildPrompt(t *testing.T) {
	req := llm.Request{
		Question:     "Show me all active users",
		SchemaDDL:    "CREATE TABLE users (id INT, name VARCHAR, active BOOLEAN);",
		SQLDialect:   "PostgreSQL SQL dialect with ILIKE, LIMIT/OFFSET",
		DatabaseType: "postgres",
	}

	prompt := llm.BuildPrompt(req)

	for _, s := range []string{
		"postgres",
		"Show me all active users",
		"CREATE TABLE users",
		"one SELECT statement",
		"LIMIT",
	} {
		assert.Contains(t, prompt, s)
	}
	assert.NotContains(t, prompt, "Examples:")
}

func TestBuildPrompt_MaxRows(t *testing.T) {
	prompt := llm.BuildPrompt(llm.Request{Question: "q", DatabaseType: "mysql", MaxRows: 250})
	assert.Contains(t, prompt, "Never return more than 250 rows")
}

func TestBuildPrompt_WithExamples(t *testing.T) {
	req := llm.Request{
		Question:     "Count users by status",
		SchemaDDL:    "CREATE TABLE users (id INT, status VARCHAR);",
		DatabaseType: "postgres",
		Examples: []llm.Example{
			{Question: "Get all users", SQL: "SELECT * FROM users"},
			{Question: "Count total users", SQL: "SELECT COUNT(*) FROM users"},
		},
	}

	prompt := llm.BuildPrompt(req)

	for _, s := range []string{
		"Get all users",
		"SELECT * FROM users",
		"Count total users",
		"SELECT COUNT(*) FROM users",
	} {
		assert.Contains(t, prompt, s)
	}
}

func TestExtractSQL(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{"plain sql", "SELECT * FROM users", "SELECT * FROM users"},
		{"sql with semicolon", "SELECT * FROM users;", "SELECT * FROM users"},
		{"sql in code block", "```sql\nSELECT * FROM users\n```", "SELECT * FROM users"},
		{"sql in generic code block", "```\nSELECT * FROM users\n```", "SELECT * FROM users"},
		{"sql with explanation before", "Here is the query:\n```sql\nSELECT * FROM users\n```", "SELECT * FROM users"},
		{"sql with whitespace", "  SELECT * FROM users  ", "SELECT * FROM users"},
		{"unterminated fence", "```sql\nSELECT 1", "```sql\nSELECT 1"},
		{
			"complex query",
			"```sql\nSELECT u.id, COUNT(o.id) as order_count\nFROM users u\nLEFT JOIN orders o ON u.id = o.user_id\nGROUP BY u.id\nORDER BY order_count DESC\nLIMIT 10\n```",
			"SELECT u.id, COUNT(o.id) as order_count\nFROM users u\nLEFT JOIN orders o ON u.id = o.user_id\nGROUP BY u.id\nORDER BY order_count DESC\nLIMIT 10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, llm.ExtractSQL(tt.content))
		})
	}
}

type stubProvider struct {
	name       string
	configured bool
}

func (s stubProvider) Name() string              { return s.name }
func (s stubProvider) AvailableModels() []string { return []string{"m1"} }
func (s stubProvider) DefaultModel() string      { return "m1" }
func (s stubProvider) IsConfigured() bool        { return s.configured }

func (s stubProvider) GenerateSQL(context.Context, llm.Request, string) (*llm.Response, error) {
	return &llm.Response{SQL: "SELECT 1"}, nil
}

func TestRouter(t *testing.T) {
	router := llm.NewRouter("openai")
	router.RegisterProvider(stubProvider{name: "openai", configured: true})
	router.RegisterProvider(stubProvider{name: "anthropic", configured: true})
	router.RegisterProvider(stubProvider{name: "gemini"})

	p, err := router.GetProvider("")
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	_, err = router.GetProvider("gemini")
	assert.ErrorIs(t, err, llm.ErrProviderNotConfigured)

	_, err = router.GetProvider("ollama")
	assert.ErrorIs(t, err, llm.ErrProviderNotFound)

	assert.Equal(t, []string{"anthropic", "openai"}, router.ListProviders())

	infos := router.ProvidersInfo()
	require.Len(t, infos, 3)
	assert.Equal(t, "anthropic", infos[0].Name)
	assert.True(t, infos[2].Default)
	assert.False(t, infos[1].Configured)
}
