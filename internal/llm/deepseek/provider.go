package deepseek

import (
	"time"

	"github.com/Rrens/sqlgate/internal/llm/openai"
)

const defaultBaseURL = "https://api.deepseek.com/v1"

// NewProvider creates a DeepSeek provider. DeepSeek serves the OpenAI chat
// completion API, so the OpenAI client is pointed at its base URL.
func NewProvider(apiKey, defaultModel, baseURL string, timeout time.Duration) *openai.Provider {
	if defaultModel == "" {
		defaultModel = "deepseek-chat"
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return openai.NewCompatible(openai.Options{
		Name:         "deepseek",
		APIKey:       apiKey,
		BaseURL:      baseURL,
		DefaultModel: defaultModel,
		Models:       []string{"deepseek-chat", "deepseek-coder", "deepseek-reasoner"},
		Timeout:      timeout,
	})
}
