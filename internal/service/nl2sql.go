package service

import (
	"context"
	"fmt"
	"time"

	libinjection "github.com/corazawaf/libinjection-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/sqlgate/internal/domain"
	"github.com/Rrens/sqlgate/internal/llm"
)

// ProviderSource resolves LLM providers by name
type ProviderSource interface {
	GetProvider(name string) (llm.Provider, error)
	DefaultProvider() string
}

// NL2SQLService turns questions into SQL and runs the result through the
// engine. Generated SQL is never executed here.
type NL2SQLService struct {
	connections *ConnectionService
	schemas     *SchemaService
	queries     *QueryService
	providers   ProviderSource
}

// NewNL2SQLService creates a new text-to-SQL service
func NewNL2SQLService(connections *ConnectionService, schemas *SchemaService, queries *QueryService, providers ProviderSource) *NL2SQLService {
	return &NL2SQLService{
		connections: connections,
		schemas:     schemas,
		queries:     queries,
		providers:   providers,
	}
}

// Generate asks an LLM for SQL answering req.Question and returns it with
// the engine's verdict
func (s *NL2SQLService) Generate(ctx context.Context, req domain.NL2SQLRequest) (*domain.NL2SQLResponse, error) {
	if isSQLi, fingerprint := libinjection.IsSQLi(req.Question); isSQLi {
		log.Warn().
			Str("connection_id", req.ConnectionID.String()).
			Str("fingerprint", string(fingerprint)).
			Msg("question rejected by injection screen")
		return nil, fmt.Errorf("%w: fingerprint %s", domain.ErrSuspiciousInput, fingerprint)
	}

	requestID := uuid.New().String()

	conn, adapter, err := s.connections.Adapter(ctx, req.ConnectionID)
	if err != nil {
		return nil, err
	}

	schema, err := s.schemas.Get(ctx, conn.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get schema: %w", err)
	}

	providerName := req.LLMProvider
	if providerName == "" {
		providerName = s.providers.DefaultProvider()
	}
	provider, err := s.providers.GetProvider(providerName)
	if err != nil {
		return nil, err
	}

	modelName := req.LLMModel
	if modelName == "" {
		modelName = provider.DefaultModel()
	}

	maxRows := conn.MaxRows
	if req.MaxRows > 0 && (maxRows <= 0 || req.MaxRows < maxRows) {
		maxRows = req.MaxRows
	}

	log.Debug().
		Str("request_id", requestID).
		Int("schema_ddl_length", len(schema.DDL)).
		Str("llm_provider", providerName).
		Str("llm_model", modelName).
		Msg("preparing LLM request")

	llmResp, err := provider.GenerateSQL(ctx, llm.Request{
		Question:     req.Question,
		SchemaDDL:    schema.DDL,
		SQLDialect:   adapter.PromptHints(),
		DatabaseType: string(conn.DatabaseType),
		MaxRows:      maxRows,
	}, modelName)
	if err != nil {
		return nil, fmt.Errorf("failed to generate SQL: %w", err)
	}

	connectionID := conn.ID
	validation, err := s.queries.Validate(ctx, domain.ValidateRequest{
		SQL:          llmResp.SQL,
		ConnectionID: &connectionID,
		MaxRows:      maxRows,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to validate generated SQL: %w", err)
	}

	if llmResp.Model != "" {
		modelName = llmResp.Model
	}

	log.Info().
		Str("request_id", requestID).
		Str("connection_id", conn.ID.String()).
		Bool("accepted", validation.Accepted).
		Int("tokens_used", llmResp.TokensUsed).
		Dur("llm_latency", time.Duration(llmResp.LatencyMs)*time.Millisecond).
		Msg("sql generated")

	return &domain.NL2SQLResponse{
		RequestID:  requestID,
		Question:   req.Question,
		SQL:        llmResp.SQL,
		Validation: *validation,
		Metadata: domain.NL2SQLMetadata{
			ConnectionID: conn.ID,
			DatabaseType: string(conn.DatabaseType),
			LLMProvider:  providerName,
			LLMModel:     modelName,
			LLMLatencyMs: llmResp.LatencyMs,
			TokensUsed:   llmResp.TokensUsed,
		},
	}, nil
}
