package anthropic

import (
	"context"
	"fmt"
	"time"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/Rrens/sqlgate/internal/llm"
)

// Provider implements llm.Provider for Anthropic
type Provider struct {
	apiKey       string
	defaultModel string
	timeout      time.Duration
	client       *anthropic.Client
}

// NewProvider creates a new Anthropic provider. A non-empty baseURL
// overrides the public API endpoint.
func NewProvider(apiKey, defaultModel, baseURL string, timeout time.Duration) *Provider {
	if defaultModel == "" {
		defaultModel = "claude-sonnet-4-5-20250929"
	}
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	return &Provider{
		apiKey:       apiKey,
		defaultModel: defaultModel,
		timeout:      timeout,
		client:       anthropic.NewClient(apiKey, opts...),
	}
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return "anthropic"
}

// AvailableModels returns list of supported models
func (p *Provider) AvailableModels() []string {
	return []string{
		"claude-sonnet-4-5-20250929",
		"claude-3-7-sonnet-20250219",
		"claude-3-5-sonnet-20241022",
		"claude-3-5-haiku-20241022",
	}
}

// DefaultModel returns the default model
func (p *Provider) DefaultModel() string {
	return p.defaultModel
}

// IsConfigured checks if provider has valid credentials
func (p *Provider) IsConfigured() bool {
	return p.apiKey != ""
}

// GenerateSQL generates SQL from natural language
func (p *Provider) GenerateSQL(ctx context.Context, req llm.Request, model string) (*llm.Response, error) {
	if model == "" {
		model = p.defaultModel
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	prompt := llm.BuildPrompt(req)
	var temperature float32

	start := time.Now()
	resp, err := p.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(model),
		MaxTokens:   2048,
		System:      llm.SystemPrompt,
		Temperature: &temperature,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
				{Type: "text", Text: &prompt},
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}

	text := firstText(resp)
	if text == "" {
		return nil, fmt.Errorf("anthropic: %w", llm.ErrEmptyResponse)
	}

	return &llm.Response{
		SQL:        llm.ExtractSQL(text),
		Raw:        text,
		Model:      model,
		TokensUsed: resp.Usage.InputTokens + resp.Usage.OutputTokens,
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

func firstText(resp anthropic.MessagesResponse) string {
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			return *block.Text
		}
	}
	return ""
}
