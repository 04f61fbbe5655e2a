package llm

import (
	"fmt"
	"strings"
)

// SystemPrompt is sent as the system message where the provider supports one
const SystemPrompt = "You are an expert SQL query generator. Respond with ONLY the SQL query, no explanations or markdown formatting."

// BuildPrompt creates a prompt for SQL generation
func BuildPrompt(req Request) string {
	var examples strings.Builder
	if len(req.Examples) > 0 {
		examples.WriteString("\n\nExamples:\n")
		for _, ex := range req.Examples {
			fmt.Fprintf(&examples, "Question: %s\nSQL: %s\n\n", ex.Question, ex.SQL)
		}
	}

	limitRule := "Always include appropriate LIMIT clauses for safety"
	if req.MaxRows > 0 {
		limitRule = fmt.Sprintf("Never return more than %d rows; results are capped at that LIMIT", req.MaxRows)
	}

	return fmt.Sprintf(`You are an expert SQL query generator for %s databases.

%s

Rules:
1. Generate ONLY the SQL query, no explanations or markdown
2. Write exactly one SELECT statement (no INSERT, UPDATE, DELETE, DROP, etc.)
3. %s
4. Use only tables and columns from the provided schema
5. Handle NULL values appropriately
6. Use proper date/time functions for the database dialect
7. Prefer explicit column names over SELECT *

Database Schema:
%s
%s
Question: %s

SQL:`, req.DatabaseType, req.SQLDialect, limitRule, req.SchemaDDL, examples.String(), req.Question)
}

// ExtractSQL pulls the query out of a model reply, preferring a fenced
// code block when there is one
func ExtractSQL(content string) string {
	if sql, ok := fenced(content, "```sql"); ok {
		return trimSQL(sql)
	}
	if sql, ok := fenced(content, "```"); ok {
		return trimSQL(sql)
	}
	return trimSQL(content)
}

func fenced(content, marker string) (string, bool) {
	_, rest, ok := strings.Cut(content, marker)
	if !ok {
		return "", false
	}
	rest = strings.TrimPrefix(rest, "\n")
	body, _, ok := strings.Cut(rest, "```")
	return body, ok
}

func trimSQL(sql string) string {
	sql = strings.TrimSpace(sql)
	return strings.TrimSpace(strings.TrimSuffix(sql, ";"))
}
