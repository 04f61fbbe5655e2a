package datasource

import (
	"database/sql"
	"fmt"

	"github.com/Rrens/sqlgate/internal/domain"
)

// CollectRows drains rows from a database/sql driver into a QueryResult,
// keeping at most maxRows. A zero maxRows keeps everything.
func CollectRows(rows *sql.Rows, maxRows int64) (*domain.QueryResult, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	result := &domain.QueryResult{Columns: columns, Rows: [][]any{}}
	for rows.Next() {
		if maxRows > 0 && int64(len(result.Rows)) >= maxRows {
			result.Truncated = true
			break
		}

		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		// []byte would marshal as base64
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	result.RowCount = len(result.Rows)
	return result, nil
}
