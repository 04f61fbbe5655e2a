package sqlguard

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/xwb1989/sqlparser"
)

const DialectMySQL = "mysql"

// MySQLBlockedFunctions are refused in every mysql query.
var MySQLBlockedFunctions = []string{
	"load_file", "sleep", "benchmark",
	"get_lock", "release_lock", "release_all_locks", "is_free_lock", "is_used_lock",
	"sys_eval", "sys_exec",
}

var mysqlErrPosition = regexp.MustCompile(`at position (\d+)(?: near '(.*)')?`)

// MySQLDialect parses with the Vitess MySQL grammar. The grammar has no
// common table expressions, so WITH queries fail as syntax errors.
type MySQLDialect struct {
	blocked functionSet
}

// NewMySQL returns the mysql dialect. extraBlocked is added to
// MySQLBlockedFunctions.
func NewMySQL(extraBlocked ...string) *MySQLDialect {
	return &MySQLDialect{blocked: newFunctionSet(MySQLBlockedFunctions, extraBlocked)}
}

func (d *MySQLDialect) Name() string { return DialectMySQL }

func (d *MySQLDialect) BlockedFunction(name string) bool { return d.blocked.has(name) }

func (d *MySQLDialect) Parse(text string) ([]Tree, error) {
	pieces, err := sqlparser.SplitStatementToPieces(text)
	if err != nil {
		return nil, mysqlSyntaxError(text, 0, err)
	}

	var trees []Tree
	offset := 0
	for _, piece := range pieces {
		start := offset
		if i := strings.Index(text[offset:], piece); i >= 0 {
			start = offset + i
			offset = start + len(piece)
		}
		if mysqlBlank(piece) {
			continue
		}

		stmt, err := sqlparser.Parse(piece)
		if err != nil {
			return nil, mysqlSyntaxError(text, start, err)
		}
		trees = append(trees, &mysqlTree{stmt: stmt})
	}
	return trees, nil
}

// mysqlBlank reports whether piece holds nothing but whitespace and comments.
func mysqlBlank(piece string) bool {
	tokenizer := sqlparser.NewStringTokenizer(piece)
	for {
		tkn, _ := tokenizer.Scan()
		switch tkn {
		case sqlparser.COMMENT:
		case 0:
			return true
		default:
			return false
		}
	}
}

// mysqlSyntaxError locates the token the tokenizer stopped at. base is the
// byte offset of the failing piece within text.
func mysqlSyntaxError(text string, base int, err error) *Rejection {
	msg := err.Error()
	m := mysqlErrPosition.FindStringSubmatch(msg)
	if m == nil {
		return SyntaxError(msg, nil)
	}
	end, convErr := strconv.Atoi(m[1])
	if convErr != nil {
		return SyntaxError(msg, nil)
	}
	// the tokenizer has consumed one byte past the offending token
	start := end - 1 - len(m[2])
	if start < 0 {
		start = 0
	}
	return SyntaxError(msg, positionAtByte(text, base+start))
}

type mysqlTree struct {
	stmt sqlparser.Statement
}

func (t *mysqlTree) Kind() StatementKind {
	return mysqlKind(t.stmt)
}

func (t *mysqlTree) Inspect(v Visitor) error {
	return sqlparser.Walk(func(node sqlparser.SQLNode) (bool, error) {
		switch n := node.(type) {
		case *sqlparser.FuncExpr:
			if err := v.Function(n.Name.Lowered()); err != nil {
				return false, err
			}
		case sqlparser.Statement:
			name := strings.TrimPrefix(fmt.Sprintf("%T", n), "*sqlparser.")
			if err := v.Statement(mysqlKind(n), name); err != nil {
				return false, err
			}
		}
		return true, nil
	}, t.stmt)
}

func (t *mysqlTree) Limit() LimitClause {
	limit := mysqlLimitOf(t.stmt)
	if limit == nil || limit.Rowcount == nil {
		return LimitClause{}
	}

	lc := LimitClause{Present: true}
	val, ok := limit.Rowcount.(*sqlparser.SQLVal)
	if !ok || val.Type != sqlparser.IntVal {
		return lc
	}
	n, err := strconv.ParseInt(string(val.Val), 10, 64)
	switch {
	case err == nil:
		lc.Literal, lc.Value = true, n
	case errors.Is(err, strconv.ErrRange):
		lc.Literal, lc.Value = true, math.MaxInt64
	}
	return lc
}

func (t *mysqlTree) WithLimit(n int64) Tree {
	sel, ok := t.stmt.(sqlparser.SelectStatement)
	if !ok {
		return t
	}
	return &mysqlTree{stmt: mysqlWithLimit(sel, n)}
}

func (t *mysqlTree) SQL() (string, error) {
	return sqlparser.String(t.stmt), nil
}

func mysqlKind(stmt sqlparser.SQLNode) StatementKind {
	switch s := stmt.(type) {
	case *sqlparser.Select:
		if s.Lock != "" {
			return KindLock
		}
		return KindSelect
	case *sqlparser.Union:
		if s.Lock != "" {
			return KindLock
		}
		return KindSetOperation
	case *sqlparser.ParenSelect:
		return mysqlKind(s.Select)
	case *sqlparser.Insert:
		return KindInsert
	case *sqlparser.Update:
		return KindUpdate
	case *sqlparser.Delete:
		return KindDelete
	case *sqlparser.DDL:
		switch s.Action {
		case sqlparser.CreateStr:
			return KindCreate
		case sqlparser.AlterStr, sqlparser.RenameStr:
			return KindAlter
		case sqlparser.DropStr:
			return KindDrop
		case sqlparser.TruncateStr:
			return KindTruncate
		}
		return KindOther
	case *sqlparser.DBDDL:
		switch s.Action {
		case sqlparser.CreateStr:
			return KindCreate
		case sqlparser.DropStr:
			return KindDrop
		}
		return KindOther
	case *sqlparser.Set:
		return KindSet
	case *sqlparser.Show:
		return KindShow
	case *sqlparser.OtherRead:
		return KindExplain
	}
	return KindOther
}

func mysqlLimitOf(node sqlparser.SQLNode) *sqlparser.Limit {
	switch s := node.(type) {
	case *sqlparser.Select:
		return s.Limit
	case *sqlparser.Union:
		return s.Limit
	case *sqlparser.ParenSelect:
		return mysqlLimitOf(s.Select)
	}
	return nil
}

// mysqlWithLimit copies the path from sel to its outermost limit and leaves
// every other node shared with the original.
func mysqlWithLimit(sel sqlparser.SelectStatement, n int64) sqlparser.SelectStatement {
	switch s := sel.(type) {
	case *sqlparser.Select:
		cp := *s
		cp.Limit = mysqlLimit(s.Limit, n)
		return &cp
	case *sqlparser.Union:
		cp := *s
		cp.Limit = mysqlLimit(s.Limit, n)
		return &cp
	case *sqlparser.ParenSelect:
		cp := *s
		cp.Select = mysqlWithLimit(s.Select, n)
		return &cp
	}
	return sel
}

func mysqlLimit(prev *sqlparser.Limit, n int64) *sqlparser.Limit {
	limit := &sqlparser.Limit{Rowcount: sqlparser.NewIntVal([]byte(strconv.FormatInt(n, 10)))}
	if prev != nil {
		limit.Offset = prev.Offset
	}
	return limit
}
