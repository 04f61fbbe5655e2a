// Package mcp exposes the validation engine and the registered connections
// as Model Context Protocol tools.
package mcp

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Rrens/sqlgate/internal/domain"
)

const serverName = "sqlgate"

// QueryRunner validates and executes SQL
type QueryRunner interface {
	Validate(ctx context.Context, req domain.ValidateRequest) (*domain.ValidationResponse, error)
	Execute(ctx context.Context, req domain.ExecuteRequest) (*domain.ExecuteResponse, error)
}

// ConnectionLister lists registered connections
type ConnectionLister interface {
	List(ctx context.Context) ([]domain.ConnectionInfo, error)
}

// SchemaReader reads target database metadata
type SchemaReader interface {
	Get(ctx context.Context, connectionID uuid.UUID) (*domain.SchemaInfo, error)
	DescribeTable(ctx context.Context, connectionID uuid.UUID, table string) (*domain.TableInfo, error)
}

// SQLGenerator writes SQL from a question
type SQLGenerator interface {
	Generate(ctx context.Context, req domain.NL2SQLRequest) (*domain.NL2SQLResponse, error)
}

// Deps are the services behind the tools. Only Queries is required; tools
// whose service is nil are not registered.
type Deps struct {
	Queries     QueryRunner
	Connections ConnectionLister
	Schemas     SchemaReader
	Generator   SQLGenerator
}

// Server wraps the mcp-go MCPServer
type Server struct {
	mcp *server.MCPServer
}

// NewServer creates an MCP server with every tool its deps can serve
func NewServer(version string, deps Deps) *Server {
	s := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(true),
	)

	registerValidateTool(s, deps.Queries)
	registerExecuteTool(s, deps.Queries)
	if deps.Connections != nil {
		registerListConnectionsTool(s, deps.Connections)
	}
	if deps.Schemas != nil {
		registerSchemaTools(s, deps.Schemas)
	}
	if deps.Generator != nil {
		registerGenerateTool(s, deps.Generator)
	}

	return &Server{mcp: s}
}

// MCP returns the underlying MCPServer
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// HTTPHandler serves the streamable HTTP transport. The caller's mux
// decides the mount path.
func (s *Server) HTTPHandler() http.Handler {
	return server.NewStreamableHTTPServer(
		s.mcp,
		server.WithStateLess(true),
	)
}

// ServeStdio serves the stdio transport until stdin closes
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}
