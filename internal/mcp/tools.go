package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/sqlgate/internal/domain"
	"github.com/Rrens/sqlgate/internal/service"
)

func registerValidateTool(s *server.MCPServer, queries QueryRunner) {
	tool := mcp.NewTool(
		"validate_sql",
		mcp.WithDescription(
			"Checks that SQL is exactly one read-only query and returns the statement "+
				"rewritten with a row limit, or the reason it was rejected. Nothing is executed.",
		),
		mcp.WithString("sql", mcp.Required(), mcp.Description("SQL text to validate")),
		mcp.WithString("dialect", mcp.Description("Grammar to parse with: postgres, mysql or sqlite"), mcp.Enum("postgres", "mysql", "sqlite")),
		mcp.WithString("connection_id", mcp.Description("Connection whose dialect and row ceiling apply")),
		mcp.WithNumber("max_rows", mcp.Description("Row ceiling for this call; cannot exceed the configured one")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sql, err := req.RequireString("sql")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		in := domain.ValidateRequest{
			SQL:     sql,
			Dialect: req.GetString("dialect", ""),
			MaxRows: int64(req.GetFloat("max_rows", 0)),
		}
		if raw := req.GetString("connection_id", ""); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				return mcp.NewToolResultError("invalid connection_id"), nil
			}
			in.ConnectionID = &id
		}

		out, err := queries.Validate(ctx, in)
		if err != nil {
			return toolError("validate_sql", err)
		}
		return jsonResult(out)
	})
}

func registerExecuteTool(s *server.MCPServer, queries QueryRunner) {
	tool := mcp.NewTool(
		"execute_sql",
		mcp.WithDescription(
			"Validates SQL and runs it read-only against a registered connection. "+
				"Queries without a LIMIT get one; writes and multiple statements are refused.",
		),
		mcp.WithString("connection_id", mcp.Required(), mcp.Description("Connection to run against")),
		mcp.WithString("sql", mcp.Required(), mcp.Description("A single SELECT statement")),
		mcp.WithNumber("max_rows", mcp.Description("Row ceiling for this call; cannot exceed the connection's")),
		mcp.WithNumber("timeout_seconds", mcp.Description("Statement timeout, 1 to 300 seconds")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, result := requireConnection(req)
		if result != nil {
			return result, nil
		}
		sql, err := req.RequireString("sql")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		out, err := queries.Execute(ctx, domain.ExecuteRequest{
			ConnectionID:   id,
			SQL:            sql,
			MaxRows:        int64(req.GetFloat("max_rows", 0)),
			TimeoutSeconds: min(int(req.GetFloat("timeout_seconds", 0)), 300),
		})
		var rejected *service.RejectedError
		if errors.As(err, &rejected) {
			body, merr := json.Marshal(rejected.Validation)
			if merr != nil {
				return nil, fmt.Errorf("failed to marshal validation: %w", merr)
			}
			return mcp.NewToolResultError(string(body)), nil
		}
		if err != nil {
			return toolError("execute_sql", err)
		}
		return jsonResult(out)
	})
}

func registerListConnectionsTool(s *server.MCPServer, connections ConnectionLister) {
	tool := mcp.NewTool(
		"list_connections",
		mcp.WithDescription("Lists the registered databases that execute_sql can run against"),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		infos, err := connections.List(ctx)
		if err != nil {
			return toolError("list_connections", err)
		}
		return jsonResult(infos)
	})
}

func registerSchemaTools(s *server.MCPServer, schemas SchemaReader) {
	schemaTool := mcp.NewTool(
		"get_schema",
		mcp.WithDescription("Returns the CREATE TABLE statements of a connection's tables"),
		mcp.WithString("connection_id", mcp.Required(), mcp.Description("Connection to inspect")),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(schemaTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, result := requireConnection(req)
		if result != nil {
			return result, nil
		}
		schema, err := schemas.Get(ctx, id)
		if err != nil {
			return toolError("get_schema", err)
		}
		return mcp.NewToolResultText(schema.DDL), nil
	})

	describeTool := mcp.NewTool(
		"describe_table",
		mcp.WithDescription("Returns the columns and approximate row count of one table"),
		mcp.WithString("connection_id", mcp.Required(), mcp.Description("Connection to inspect")),
		mcp.WithString("table", mcp.Required(), mcp.Description("Table name")),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(describeTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, result := requireConnection(req)
		if result != nil {
			return result, nil
		}
		table, err := req.RequireString("table")
		if err != nil || strings.TrimSpace(table) == "" {
			return mcp.NewToolResultError("table parameter is required"), nil
		}
		info, err := schemas.DescribeTable(ctx, id, table)
		if err != nil {
			return toolError("describe_table", err)
		}
		return jsonResult(info)
	})
}

func registerGenerateTool(s *server.MCPServer, generator SQLGenerator) {
	tool := mcp.NewTool(
		"generate_sql",
		mcp.WithDescription(
			"Asks the configured LLM to write SQL answering a question about a connection's data. "+
				"The result is validated but not executed.",
		),
		mcp.WithString("connection_id", mcp.Required(), mcp.Description("Connection the question is about")),
		mcp.WithString("question", mcp.Required(), mcp.Description("Question in plain language")),
		mcp.WithString("provider", mcp.Description("LLM provider; the server default when empty")),
		mcp.WithString("model", mcp.Description("Model name; the provider default when empty")),
		mcp.WithNumber("max_rows", mcp.Description("Row ceiling the generated query is validated with")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, result := requireConnection(req)
		if result != nil {
			return result, nil
		}
		question, err := req.RequireString("question")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		out, err := generator.Generate(ctx, domain.NL2SQLRequest{
			ConnectionID: id,
			Question:     question,
			LLMProvider:  req.GetString("provider", ""),
			LLMModel:     req.GetString("model", ""),
			MaxRows:      int64(req.GetFloat("max_rows", 0)),
		})
		if err != nil {
			return toolError("generate_sql", err)
		}
		return jsonResult(out)
	})
}

func requireConnection(req mcp.CallToolRequest) (uuid.UUID, *mcp.CallToolResult) {
	raw, err := req.RequireString("connection_id")
	if err != nil {
		return uuid.Nil, mcp.NewToolResultError(err.Error())
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, mcp.NewToolResultError("invalid connection_id")
	}
	return id, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(body)), nil
}

// toolError reports a service failure to the calling model as a tool error
func toolError(tool string, err error) (*mcp.CallToolResult, error) {
	log.Warn().Err(err).Str("tool", tool).Msg("mcp tool failed")
	return mcp.NewToolResultError(err.Error()), nil
}
