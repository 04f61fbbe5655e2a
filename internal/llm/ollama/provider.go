package ollama

import (
	"strings"
	"time"

	"github.com/Rrens/sqlgate/internal/llm/openai"
)

// NewProvider creates an Ollama provider backed by the server's
// OpenAI-compatible /v1 endpoint. An empty host leaves it unconfigured.
func NewProvider(host, defaultModel string, timeout time.Duration) *openai.Provider {
	if defaultModel == "" {
		defaultModel = "llama3"
	}
	baseURL := ""
	if host != "" {
		baseURL = strings.TrimSuffix(host, "/") + "/v1"
	}
	return openai.NewCompatible(openai.Options{
		Name:         "ollama",
		BaseURL:      baseURL,
		DefaultModel: defaultModel,
		Models: []string{
			"llama3",
			"llama3.1",
			"llama3.2",
			"codellama",
			"sqlcoder",
			"deepseek-coder",
			"mistral",
			"qwen2",
		},
		Timeout: timeout,
		Keyless: true,
	})
}
