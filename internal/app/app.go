// Package app wires configuration into the stores, engine and services
// shared by the HTTP server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Rrens/sqlgate/internal/config"
	"github.com/Rrens/sqlgate/internal/datasource"
	dsMySQL "github.com/Rrens/sqlgate/internal/datasource/mysql"
	dsPostgres "github.com/Rrens/sqlgate/internal/datasource/postgres"
	dsSQLite "github.com/Rrens/sqlgate/internal/datasource/sqlite"
	"github.com/Rrens/sqlgate/internal/domain"
	"github.com/Rrens/sqlgate/internal/llm"
	"github.com/Rrens/sqlgate/internal/llm/anthropic"
	"github.com/Rrens/sqlgate/internal/llm/deepseek"
	"github.com/Rrens/sqlgate/internal/llm/gemini"
	"github.com/Rrens/sqlgate/internal/llm/ollama"
	"github.com/Rrens/sqlgate/internal/llm/openai"
	"github.com/Rrens/sqlgate/internal/mcp"
	"github.com/Rrens/sqlgate/internal/repository/postgres"
	"github.com/Rrens/sqlgate/internal/repository/redis"
	"github.com/Rrens/sqlgate/internal/security"
	"github.com/Rrens/sqlgate/internal/service"
	"github.com/Rrens/sqlgate/internal/sqlguard"
)

// Version is reported by the MCP server and the CLI
var Version = "dev"

const developmentEncryptionKey = "sqlgate-development-only-key"

// NewEngine builds the validation engine from the guard section
func NewEngine(cfg config.GuardConfig) (*sqlguard.Engine, error) {
	return sqlguard.NewEngine(
		sqlguard.Config{
			DefaultDialect: cfg.DefaultDialect,
			Ceiling:        cfg.MaxRows,
			OverLimit:      sqlguard.OverLimitPolicy(cfg.OverLimitPolicy),
		},
		sqlguard.NewPostgres(cfg.BlockedFunctions...),
		sqlguard.NewMySQL(cfg.BlockedFunctions...),
		sqlguard.NewSQLite(cfg.BlockedFunctions...),
	)
}

// NewDatasources registers an adapter for every supported target database
func NewDatasources() *datasource.Router {
	router := datasource.NewRouter()
	router.RegisterAdapter(domain.DatabaseTypePostgres, dsPostgres.NewAdapter)
	router.RegisterAdapter(domain.DatabaseTypeMySQL, dsMySQL.NewAdapter)
	router.RegisterAdapter(domain.DatabaseTypeSQLite, dsSQLite.NewAdapter)
	return router
}

// NewLLMRouter registers every provider the config has credentials for
func NewLLMRouter(cfg config.LLMConfig) *llm.Router {
	router := llm.NewRouter(cfg.DefaultProvider)

	log.Info().Str("default_provider", cfg.DefaultProvider).Msg("initializing LLM providers")

	if cfg.Ollama.Host != "" {
		router.RegisterProvider(ollama.NewProvider(cfg.Ollama.Host, cfg.Ollama.DefaultModel, cfg.Timeout))
	}
	if cfg.OpenAI.APIKey != "" {
		router.RegisterProvider(openai.NewProvider(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.Timeout))
	}
	if cfg.Anthropic.APIKey != "" {
		router.RegisterProvider(anthropic.NewProvider(cfg.Anthropic.APIKey, cfg.Anthropic.Model, "", cfg.Timeout))
	}
	if cfg.DeepSeek.APIKey != "" {
		router.RegisterProvider(deepseek.NewProvider(cfg.DeepSeek.APIKey, cfg.DeepSeek.Model, cfg.DeepSeek.BaseURL, cfg.Timeout))
	}
	if cfg.Gemini.APIKey != "" {
		router.RegisterProvider(gemini.NewProvider(cfg.Gemini, cfg.Timeout))
	}

	log.Info().Strs("providers", router.ListProviders()).Msg("LLM providers ready")
	return router
}

// App holds the long-lived dependencies of a running process
type App struct {
	Config *config.Config
	DB     *postgres.DB
	Redis  *redis.Client

	Engine      *sqlguard.Engine
	Datasources *datasource.Router
	LLM         *llm.Router
	JWT         *security.JWTManager
	RateLimiter *redis.RateLimiter

	Connections *service.ConnectionService
	Queries     *service.QueryService
	Schemas     *service.SchemaService
	NL2SQL      *service.NL2SQLService
	MCP         *mcp.Server
}

// New connects to the application store and Redis, applies migrations and
// builds the services. Redis is optional: without it the schema cache and
// rate limiting are disabled.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	engine, err := NewEngine(cfg.Guard)
	if err != nil {
		return nil, fmt.Errorf("failed to build engine: %w", err)
	}

	encryptor, err := newEncryptor(cfg)
	if err != nil {
		return nil, err
	}

	if err := postgres.RunMigrations(cfg.Database.DSN(), cfg.Database.MigrationsPath); err != nil {
		return nil, err
	}

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:      cfg,
		DB:          db,
		Engine:      engine,
		Datasources: NewDatasources(),
		LLM:         NewLLMRouter(cfg.LLM),
	}

	var schemaCache service.SchemaCache
	redisClient, err := redis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, schema cache and rate limiting disabled")
	} else {
		a.Redis = redisClient
		schemaCache = redis.NewSchemaCache(redisClient, cfg.Metadata.CacheTTL)
		if cfg.Server.RateLimit.Requests > 0 {
			a.RateLimiter = redis.NewRateLimiter(redisClient, cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Window)
		}
	}

	if cfg.Auth.JWTSecret != "" {
		a.JWT = security.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	}

	a.Connections = service.NewConnectionService(
		postgres.NewConnectionRepository(db),
		a.Datasources,
		encryptor,
		engine.Ceiling(),
		cfg.Query.Timeout,
	)
	a.Queries = service.NewQueryService(
		engine,
		a.Connections,
		postgres.NewHistoryRepository(db),
		service.QueryConfig{
			MaxSQLBytes:  cfg.Guard.MaxSQLBytes,
			HistoryLimit: cfg.Query.HistoryLimit,
			Timeout:      cfg.Query.Timeout,
		},
	)
	a.Schemas = service.NewSchemaService(a.Connections, schemaCache)
	a.NL2SQL = service.NewNL2SQLService(a.Connections, a.Schemas, a.Queries, a.LLM)

	a.MCP = mcp.NewServer(Version, mcp.Deps{
		Queries:     a.Queries,
		Connections: a.Connections,
		Schemas:     a.Schemas,
		Generator:   a.NL2SQL,
	})

	return a, nil
}

// Close releases every pooled connection
func (a *App) Close() error {
	a.Datasources.CloseAll()
	a.DB.Close()
	if a.Redis != nil {
		return a.Redis.Close()
	}
	return nil
}

func newEncryptor(cfg *config.Config) (*security.Encryptor, error) {
	secret := cfg.Auth.EncryptionKey
	if secret == "" {
		if cfg.IsProduction() {
			return nil, errors.New("auth.encryption_key is required in production")
		}
		log.Warn().Msg("auth.encryption_key is not set, using the development key")
		secret = developmentEncryptionKey
	}
	return security.NewEncryptorFromSecret(secret)
}
