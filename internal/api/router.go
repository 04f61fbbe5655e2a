package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Rrens/sqlgate/internal/api/handler"
	customMiddleware "github.com/Rrens/sqlgate/internal/api/middleware"
	"github.com/Rrens/sqlgate/internal/config"
	"github.com/Rrens/sqlgate/internal/llm"
	"github.com/Rrens/sqlgate/internal/security"
	"github.com/Rrens/sqlgate/internal/service"
)

// Deps are the services the routes are served from. JWT, RateLimiter and
// MCP are optional.
type Deps struct {
	Queries     *service.QueryService
	Connections *service.ConnectionService
	Schemas     *service.SchemaService
	NL2SQL      *service.NL2SQLService
	LLM         *llm.Router

	JWT         *security.JWTManager
	RateLimiter customMiddleware.RateLimiter
	Ready       map[string]handler.Pinger
	MCP         http.Handler
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg config.ServerConfig, deps Deps) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Mcp-Session-Id"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	queryHandler := handler.NewQueryHandler(deps.Queries)
	connectionHandler := handler.NewConnectionHandler(deps.Connections)
	schemaHandler := handler.NewSchemaHandler(deps.Schemas)
	nl2sqlHandler := handler.NewNL2SQLHandler(deps.NL2SQL)

	protect := func(r chi.Router) {
		if deps.JWT != nil {
			r.Use(customMiddleware.NewAuthMiddleware(deps.JWT).Authenticate)
		}
		if deps.RateLimiter != nil {
			r.Use(customMiddleware.NewRateLimitMiddleware(deps.RateLimiter).Limit)
		}
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(deps.Ready))

		r.Group(func(r chi.Router) {
			protect(r)
			r.Use(middleware.Timeout(cfg.MiddlewareTimeout))

			r.Get("/llm-providers", handler.ListLLMProviders(deps.LLM))
			r.Post("/cache/flush", schemaHandler.FlushCache)
			r.Post("/nl2sql", nl2sqlHandler.Generate)

			r.Route("/queries", func(r chi.Router) {
				r.Post("/validate", queryHandler.Validate)
				r.Post("/execute", queryHandler.Execute)
				r.Get("/history/{connectionID}", queryHandler.History)
			})

			r.Route("/connections", func(r chi.Router) {
				r.Get("/", connectionHandler.List)
				r.Post("/", connectionHandler.Create)

				r.Route("/{connectionID}", func(r chi.Router) {
					r.Get("/", connectionHandler.Get)
					r.Patch("/", connectionHandler.Update)
					r.Delete("/", connectionHandler.Delete)
					r.Post("/test", connectionHandler.Test)
					r.Get("/schema", schemaHandler.Get)
					r.Post("/schema/refresh", schemaHandler.Refresh)
					r.Get("/tables/{table}", schemaHandler.DescribeTable)
				})
			})
		})
	})

	if deps.MCP != nil {
		r.Group(func(r chi.Router) {
			protect(r)
			r.Handle("/mcp", deps.MCP)
		})
	}

	return r
}
