package sqlguard

// EnforceLimit bounds the rows stmt can return by ceiling. A literal limit
// at or below the ceiling is kept as written. Anything else, including no
// limit, LIMIT ALL, parameters, expressions and WITH TIES, is replaced by
// the ceiling. Offsets are preserved. stmt itself is never modified.
func EnforceLimit(stmt *SelectStatement, ceiling int64) (*SelectStatement, bool) {
	limit := stmt.tree.Limit()
	if limit.Present && limit.Literal && limit.Value <= ceiling {
		return stmt, false
	}
	return &SelectStatement{dialect: stmt.dialect, tree: stmt.tree.WithLimit(ceiling)}, true
}
