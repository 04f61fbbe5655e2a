package sqlguard

// Dialect turns text into trees for one SQL grammar. Implementations must be
// safe for concurrent use and must not keep per-call state.
type Dialect interface {
	// Name is the identifier callers select the dialect with
	Name() string

	// Parse returns one Tree per top-level statement. Grammar failures are
	// returned as a *Rejection of kind SyntaxError.
	Parse(text string) ([]Tree, error)

	// BlockedFunction reports whether a call to the named function is refused
	// even inside a read-only query. name is lower-case and unqualified.
	BlockedFunction(name string) bool
}

// Tree is a dialect's immutable view of a single parsed statement.
type Tree interface {
	// Kind is the kind of the root node
	Kind() StatementKind

	// Inspect visits every statement node and function call in the tree,
	// root included. It stops at the first error returned by the visitor.
	Inspect(v Visitor) error

	// Limit describes the outermost row limit
	Limit() LimitClause

	// WithLimit returns a new tree whose outermost row limit is n.
	// The receiver is left unchanged.
	WithLimit(n int64) Tree

	// SQL serializes the tree in its own dialect
	SQL() (string, error)
}

// Visitor receives the nodes a Tree reports during Inspect.
type Visitor interface {
	Statement(kind StatementKind, node string) error
	Function(name string) error
}

// LimitClause is the outermost row limit of a statement.
type LimitClause struct {
	Present bool
	// Literal is false for LIMIT ALL, parameters, expressions and
	// limits that can return more than Value rows (WITH TIES).
	Literal bool
	Value   int64
}

// ParsedStatement is the parse of one input text
type ParsedStatement struct {
	Dialect string
	Text    string
	grammar Dialect
	trees   []Tree
}

// Statements returns the number of top-level statements
func (p *ParsedStatement) Statements() int {
	return len(p.trees)
}

// Tree returns the i-th top-level statement
func (p *ParsedStatement) Tree(i int) Tree {
	return p.trees[i]
}

// SelectStatement is a statement the classifier proved read-only.
type SelectStatement struct {
	dialect string
	tree    Tree
}

// Dialect returns the dialect the statement was parsed with
func (s *SelectStatement) Dialect() string {
	return s.dialect
}

// Limit returns the outermost row limit
func (s *SelectStatement) Limit() LimitClause {
	return s.tree.Limit()
}

// SQL serializes the statement
func (s *SelectStatement) SQL() (string, error) {
	return s.tree.SQL()
}
