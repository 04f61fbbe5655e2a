package llm

import (
	"context"
	"errors"
)

var (
	ErrProviderNotFound      = errors.New("llm provider not found")
	ErrProviderNotConfigured = errors.New("llm provider not configured")
	ErrEmptyResponse         = errors.New("llm returned an empty response")
)

// Request contains text-to-SQL generation parameters
type Request struct {
	Question     string
	SchemaDDL    string
	SQLDialect   string
	DatabaseType string
	// MaxRows is the row ceiling the generated query will be held to
	MaxRows  int64
	Examples []Example
}

// Example represents a question-SQL pair for few-shot learning
type Example struct {
	Question string
	SQL      string
}

// Response contains LLM generation result. SQL is unvalidated model output.
type Response struct {
	SQL        string
	Raw        string
	Model      string
	TokensUsed int
	LatencyMs  int64
}

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// AvailableModels returns list of supported models
	AvailableModels() []string

	// DefaultModel returns the default model
	DefaultModel() string

	// IsConfigured checks if provider has valid credentials
	IsConfigured() bool

	// GenerateSQL generates SQL from natural language
	GenerateSQL(ctx context.Context, req Request, model string) (*Response, error)
}
