package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/Rrens/sqlgate/internal/config"
	"github.com/Rrens/sqlgate/internal/llm"
)

type Provider struct {
	apiKey  string
	model   string
	timeout time.Duration
}

func NewProvider(cfg config.GeminiConfig, timeout time.Duration) *Provider {
	return &Provider{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		timeout: timeout,
	}
}

func (p *Provider) Name() string {
	return "gemini"
}

func (p *Provider) AvailableModels() []string {
	return []string{
		"gemini-2.5-flash",
		"gemini-2.5-pro",
		"gemini-1.5-flash",
		"gemini-1.5-pro",
	}
}

func (p *Provider) DefaultModel() string {
	if p.model != "" {
		return p.model
	}
	return "gemini-2.5-flash"
}

func (p *Provider) IsConfigured() bool {
	return p.apiKey != ""
}

func (p *Provider) GenerateSQL(ctx context.Context, req llm.Request, model string) (*llm.Response, error) {
	if !p.IsConfigured() {
		return nil, fmt.Errorf("%w: gemini (missing API key)", llm.ErrProviderNotConfigured)
	}
	if model == "" {
		model = p.DefaultModel()
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	defer client.Close()

	generativeModel := client.GenerativeModel(model)
	generativeModel.SetTemperature(0)
	generativeModel.SystemInstruction = genai.NewUserContent(genai.Text(llm.SystemPrompt))

	start := time.Now()
	resp, err := generativeModel.GenerateContent(ctx, genai.Text(llm.BuildPrompt(req)))
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return nil, fmt.Errorf("gemini generation error: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("gemini: %w", llm.ErrEmptyResponse)
	}

	var output strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			output.WriteString(string(text))
		}
	}
	if output.Len() == 0 {
		return nil, fmt.Errorf("gemini: %w", llm.ErrEmptyResponse)
	}

	tokensUsed := 0
	if resp.UsageMetadata != nil {
		tokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}

	return &llm.Response{
		SQL:        llm.ExtractSQL(output.String()),
		Raw:        output.String(),
		Model:      model,
		TokensUsed: tokensUsed,
		LatencyMs:  latency,
	}, nil
}
