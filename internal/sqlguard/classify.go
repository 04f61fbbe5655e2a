package sqlguard

import (
	"errors"
	"fmt"
)

// Classify proves that ps is exactly one read-only query. Every node of the
// tree is checked, so a write hidden in a CTE or subquery is refused as well
// as one at the root.
func Classify(ps *ParsedStatement) (*SelectStatement, error) {
	if ps == nil || ps.grammar == nil {
		return nil, errors.New("sqlguard: classify called without a parsed statement")
	}

	switch n := ps.Statements(); {
	case n == 0:
		return nil, reject(RejectEmptyInput, "query contains no statements")
	case n > 1:
		return nil, reject(RejectMultipleStatements, "found %d statements; submit exactly one query", n)
	}

	tree := ps.trees[0]
	if kind := tree.Kind(); !kind.ReadOnly() {
		return nil, reject(RejectForbiddenStatement, "%s; only read-only queries are allowed", forbidden(kind))
	}
	if err := tree.Inspect(readOnlyVisitor{dialect: ps.grammar}); err != nil {
		return nil, err
	}
	return &SelectStatement{dialect: ps.Dialect, tree: tree}, nil
}

type readOnlyVisitor struct {
	dialect Dialect
}

func (v readOnlyVisitor) Statement(kind StatementKind, node string) error {
	if kind.ReadOnly() {
		return nil
	}
	return reject(RejectForbiddenStatement, "%s inside the query (%s)", forbidden(kind), node)
}

func (v readOnlyVisitor) Function(name string) error {
	if v.dialect.BlockedFunction(name) {
		return reject(RejectForbiddenStatement, "function %s() is not allowed", name)
	}
	return nil
}

func forbidden(kind StatementKind) string {
	switch kind {
	case KindLock:
		return "row locking (FOR UPDATE, FOR SHARE, LOCK) is not allowed"
	case KindSelectInto:
		return "SELECT INTO creates a table and is not allowed"
	}
	return fmt.Sprintf("%s statements are not allowed", kind)
}
