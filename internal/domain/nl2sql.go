package domain

import "github.com/google/uuid"

// NL2SQLRequest asks an LLM to write SQL for a question. Nothing is executed.
type NL2SQLRequest struct {
	ConnectionID uuid.UUID `json:"connection_id" validate:"required"`
	Question     string    `json:"question" validate:"required,max=2000"`
	LLMProvider  string    `json:"llm_provider" validate:"omitempty,oneof=openai anthropic ollama deepseek gemini"`
	LLMModel     string    `json:"llm_model,omitempty"`
	MaxRows      int64     `json:"max_rows,omitempty" validate:"omitempty,min=1"`
}

// NL2SQLResponse carries the generated SQL and the engine's verdict on it
type NL2SQLResponse struct {
	RequestID  string             `json:"request_id"`
	Question   string             `json:"question"`
	SQL        string             `json:"sql"`
	Validation ValidationResponse `json:"validation"`
	Metadata   NL2SQLMetadata     `json:"metadata"`
}

type NL2SQLMetadata struct {
	ConnectionID uuid.UUID `json:"connection_id"`
	DatabaseType string    `json:"database_type"`
	LLMProvider  string    `json:"llm_provider"`
	LLMModel     string    `json:"llm_model"`
	LLMLatencyMs int64     `json:"llm_latency_ms"`
	TokensUsed   int       `json:"tokens_used"`
}
