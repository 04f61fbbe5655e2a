package sqlguard

import (
	"strconv"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

const DialectSQLite = "sqlite"

// SQLiteBlockedFunctions are refused in every sqlite query. They touch the
// filesystem or load native code.
var SQLiteBlockedFunctions = []string{
	"load_extension", "readfile", "writefile", "edit", "fts3_tokenizer",
}

// SQLiteDialect classifies with the PostgreSQL grammar and executes the
// statement text as written, so portable SQL reaches SQLite unchanged. Input
// the two lexers would split differently is refused, which keeps the text
// SQLite runs identical to the text that was classified.
type SQLiteDialect struct {
	blocked functionSet
}

// NewSQLite returns the sqlite dialect. extraBlocked is added to
// SQLiteBlockedFunctions.
func NewSQLite(extraBlocked ...string) *SQLiteDialect {
	return &SQLiteDialect{blocked: newFunctionSet(SQLiteBlockedFunctions, extraBlocked)}
}

func (d *SQLiteDialect) Name() string { return DialectSQLite }

func (d *SQLiteDialect) BlockedFunction(name string) bool { return d.blocked.has(name) }

func (d *SQLiteDialect) Parse(text string) ([]Tree, error) {
	if i := strings.IndexByte(text, 0); i >= 0 {
		return nil, SyntaxError("query contains a NUL byte", positionAtByte(text, i))
	}

	result, err := pg_query.Parse(text)
	if err != nil {
		return nil, postgresSyntaxError(text, err)
	}
	scan, err := pg_query.Scan(text)
	if err != nil {
		return nil, postgresSyntaxError(text, err)
	}

	var code []*pg_query.ScanToken
	for _, tok := range scan.GetTokens() {
		if err := sqliteLexable(text, tok); err != nil {
			return nil, err
		}
		switch tok.GetToken() {
		case pg_query.Token_SQL_COMMENT, pg_query.Token_C_COMMENT, pg_query.Token_ASCII_59:
		default:
			code = append(code, tok)
		}
	}

	trees := make([]Tree, 0, len(result.GetStmts()))
	for _, raw := range result.GetStmts() {
		if raw.GetStmt() == nil {
			continue
		}
		from := int(raw.GetStmtLocation())
		to := len(text)
		if raw.GetStmtLen() > 0 {
			to = from + int(raw.GetStmtLen())
		}
		tree := &sqliteTree{
			pg:    &postgresTree{version: result.GetVersion(), raw: raw},
			text:  text,
			start: -1,
		}
		for _, tok := range code {
			if int(tok.GetStart()) < from || int(tok.GetEnd()) > to {
				continue
			}
			if tree.start < 0 {
				tree.start = int(tok.GetStart())
			}
			tree.end = int(tok.GetEnd())
			tree.tokens = append(tree.tokens, tok)
		}
		if tree.start < 0 {
			continue
		}
		trees = append(trees, tree)
	}
	return trees, nil
}

// sqliteLexable refuses tokens SQLite reads differently from PostgreSQL:
// nested block comments, escape and dollar-quoted strings, unicode escapes,
// bit strings and square brackets, which SQLite takes as identifier quotes.
func sqliteLexable(text string, tok *pg_query.ScanToken) error {
	start, end := int(tok.GetStart()), int(tok.GetEnd())
	src := text[start:end]
	var what string
	switch tok.GetToken() {
	case pg_query.Token_C_COMMENT:
		if len(src) > 2 && strings.Contains(src[2:], "/*") {
			what = "nested comments"
		}
	case pg_query.Token_SCONST:
		if !strings.HasPrefix(src, "'") {
			what = "escape and dollar-quoted strings"
		}
	case pg_query.Token_USCONST, pg_query.Token_UIDENT:
		what = "unicode escapes"
	case pg_query.Token_BCONST:
		what = "bit strings"
	case pg_query.Token_ASCII_91:
		what = "array subscripts"
	}
	if what == "" {
		return nil
	}
	return SyntaxError(what+" are not supported by sqlite", positionAtByte(text, start))
}

// sqliteTree renders the original statement text. A new limit replaces a
// literal count in place or is written in front of OFFSET or at the end. Any
// other limit is kept and the statement is wrapped in a limited subquery.
type sqliteTree struct {
	pg     *postgresTree
	text   string
	start  int
	end    int
	tokens []*pg_query.ScanToken
	limit  int64
}

func (t *sqliteTree) Kind() StatementKind { return t.pg.Kind() }

func (t *sqliteTree) Inspect(v Visitor) error { return t.pg.Inspect(v) }

func (t *sqliteTree) Limit() LimitClause {
	if t.limit > 0 {
		return LimitClause{Present: true, Literal: true, Value: t.limit}
	}
	return t.pg.Limit()
}

func (t *sqliteTree) WithLimit(n int64) Tree {
	clone := *t
	clone.limit = n
	return &clone
}

func (t *sqliteTree) SQL() (string, error) {
	body := t.text[t.start:t.end]
	if t.limit == 0 {
		return body, nil
	}
	n := strconv.FormatInt(t.limit, 10)

	sel := t.pg.raw.GetStmt().GetSelectStmt()
	written := t.pg.Limit()
	switch {
	case sel == nil:
		return body, nil
	case !written.Present && sel.GetLimitOffset() == nil:
		return body + " LIMIT " + n, nil
	case !written.Present:
		// SQLite only accepts OFFSET after LIMIT
		if tok := t.offsetToken(); tok != nil {
			return t.text[t.start:tok.GetStart()] + "LIMIT " + n + " " + t.text[tok.GetStart():t.end], nil
		}
	case written.Literal:
		if tok := t.countToken(sel); tok != nil {
			return t.text[t.start:tok.GetStart()] + n + t.text[tok.GetEnd():t.end], nil
		}
	}
	return "SELECT * FROM (" + body + ") LIMIT " + n, nil
}

// offsetToken finds the OFFSET keyword of the outermost query.
func (t *sqliteTree) offsetToken() *pg_query.ScanToken {
	var found *pg_query.ScanToken
	depth := 0
	for _, tok := range t.tokens {
		switch tok.GetToken() {
		case pg_query.Token_ASCII_40:
			depth++
		case pg_query.Token_ASCII_41:
			depth--
		case pg_query.Token_OFFSET:
			if depth == 0 {
				found = tok
			}
		}
	}
	return found
}

// countToken finds the integer token holding the written limit count.
func (t *sqliteTree) countToken(sel *pg_query.SelectStmt) *pg_query.ScanToken {
	c := sel.GetLimitCount().GetAConst()
	if c == nil {
		return nil
	}
	for _, tok := range t.tokens {
		if tok.GetStart() != c.GetLocation() {
			continue
		}
		switch tok.GetToken() {
		case pg_query.Token_ICONST, pg_query.Token_FCONST:
			return tok
		}
		return nil
	}
	return nil
}
