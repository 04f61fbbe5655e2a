package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/Rrens/sqlgate/internal/llm"
)

// Options configures an OpenAI-compatible chat completion backend
type Options struct {
	Name         string
	APIKey       string
	BaseURL      string
	DefaultModel string
	Models       []string
	Timeout      time.Duration
	// Keyless backends such as a local Ollama are configured by BaseURL alone
	Keyless bool
}

// Provider implements llm.Provider for OpenAI and any server speaking its
// chat completion API
type Provider struct {
	opts   Options
	client *goopenai.Client
}

// NewProvider creates a new OpenAI provider
func NewProvider(apiKey, defaultModel string, timeout time.Duration) *Provider {
	if defaultModel == "" {
		defaultModel = "gpt-4o-mini"
	}
	return NewCompatible(Options{
		Name:         "openai",
		APIKey:       apiKey,
		DefaultModel: defaultModel,
		Models: []string{
			"gpt-4o",
			"gpt-4o-mini",
			"gpt-4-turbo",
			"gpt-4.1",
			"gpt-4.1-mini",
		},
		Timeout: timeout,
	})
}

// NewCompatible creates a provider for an OpenAI-compatible endpoint
func NewCompatible(opts Options) *Provider {
	key := opts.APIKey
	if key == "" && opts.Keyless {
		key = "unused"
	}
	cfg := goopenai.DefaultConfig(key)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
	}
	return &Provider{opts: opts, client: goopenai.NewClientWithConfig(cfg)}
}

func (p *Provider) Name() string { return p.opts.Name }

func (p *Provider) AvailableModels() []string { return p.opts.Models }

func (p *Provider) DefaultModel() string { return p.opts.DefaultModel }

func (p *Provider) IsConfigured() bool {
	if p.opts.Keyless {
		return p.opts.BaseURL != ""
	}
	return p.opts.APIKey != ""
}

// GenerateSQL generates SQL from natural language
func (p *Provider) GenerateSQL(ctx context.Context, req llm.Request, model string) (*llm.Response, error) {
	if model == "" {
		model = p.opts.DefaultModel
	}
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: llm.SystemPrompt},
			{Role: goopenai.ChatMessageRoleUser, Content: llm.BuildPrompt(req)},
		},
		Temperature: 0,
		MaxTokens:   2048,
	})
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", p.opts.Name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s: %w", p.opts.Name, llm.ErrEmptyResponse)
	}

	content := resp.Choices[0].Message.Content
	return &llm.Response{
		SQL:        llm.ExtractSQL(content),
		Raw:        content,
		Model:      model,
		TokensUsed: resp.Usage.TotalTokens,
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}
