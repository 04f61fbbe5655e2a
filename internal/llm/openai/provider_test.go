package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/sqlgate/internal/llm"
	"github.com/Rrens/sqlgate/internal/llm/deepseek"
	"github.com/Rrens/sqlgate/internal/llm/ollama"
	"github.com/Rrens/sqlgate/internal/llm/openai"
)

func completionServer(t *testing.T, content string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		if seen != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "cmpl-1",
			"object": "chat.completion",
			"model":  "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
			"usage": map[string]any{"prompt_tokens": 40, "completion_tokens": 2, "total_tokens": 42},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestProvider_GenerateSQL(t *testing.T) {
	var seen map[string]any
	srv := completionServer(t, "```sql\nSELECT id FROM users;\n```", &seen)

	p := openai.NewCompatible(openai.Options{Name: "openai", APIKey: "k", BaseURL: srv.URL, DefaultModel: "gpt-test"})
	resp, err := p.GenerateSQL(context.Background(), llm.Request{Question: "list users", DatabaseType: "postgres"}, "")
	require.NoError(t, err)

	assert.Equal(t, "SELECT id FROM users", resp.SQL)
	assert.Equal(t, "gpt-test", resp.Model)
	assert.Equal(t, 42, resp.TokensUsed)
	assert.Equal(t, "gpt-test", seen["model"])

	messages, ok := seen["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
}

func TestProvider_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[],"usage":{"total_tokens":0}}`))
	}))
	t.Cleanup(srv.Close)

	p := openai.NewCompatible(openai.Options{Name: "openai", APIKey: "k", BaseURL: srv.URL})
	_, err := p.GenerateSQL(context.Background(), llm.Request{}, "m")
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)
}

func TestProvider_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	t.Cleanup(srv.Close)

	p := openai.NewCompatible(openai.Options{Name: "openai", APIKey: "k", BaseURL: srv.URL})
	_, err := p.GenerateSQL(context.Background(), llm.Request{}, "m")
	assert.Error(t, err)
}

func TestCompatibleProviders(t *testing.T) {
	assert.False(t, openai.NewProvider("", "", 0).IsConfigured())
	assert.True(t, openai.NewProvider("sk-1", "", 0).IsConfigured())

	ds := deepseek.NewProvider("key", "", "", 0)
	assert.Equal(t, "deepseek", ds.Name())
	assert.Equal(t, "deepseek-chat", ds.DefaultModel())
	assert.True(t, ds.IsConfigured())

	assert.False(t, ollama.NewProvider("", "", 0).IsConfigured())
	local := ollama.NewProvider("http://localhost:11434/", "", 0)
	assert.True(t, local.IsConfigured())
	assert.Equal(t, "ollama", local.Name())
}

func TestOllama_UsesV1Endpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"SELECT 1"}}],"usage":{"total_tokens":3}}`))
	}))
	t.Cleanup(srv.Close)

	resp, err := ollama.NewProvider(srv.URL, "llama3", 0).GenerateSQL(context.Background(), llm.Request{}, "")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", resp.SQL)
}
