package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/sqlgate/internal/api"
	"github.com/Rrens/sqlgate/internal/api/handler"
	"github.com/Rrens/sqlgate/internal/app"
	"github.com/Rrens/sqlgate/internal/config"
	"github.com/Rrens/sqlgate/internal/logger"
)

func main() {
	// Load .env file - try multiple locations
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logCloser, err := logger.Setup(cfg.Logging, cfg.IsProduction())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("version", app.Version).
		Msg("Starting sqlgate API server")

	ctx := context.Background()
	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer a.Close()

	deps := api.Deps{
		Queries:     a.Queries,
		Connections: a.Connections,
		Schemas:     a.Schemas,
		NL2SQL:      a.NL2SQL,
		LLM:         a.LLM,
		JWT:         a.JWT,
		Ready:       map[string]handler.Pinger{"database": a.DB},
		MCP:         a.MCP.HTTPHandler(),
	}
	if a.Redis != nil {
		deps.Ready["redis"] = a.Redis
	}
	if a.RateLimiter != nil {
		deps.RateLimiter = a.RateLimiter
	}
	if a.JWT == nil {
		log.Warn().Msg("auth.jwt_secret is not set, API is unauthenticated")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(cfg.Server, deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
