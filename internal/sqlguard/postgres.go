package sqlguard

import (
	"errors"
	"math"
	"strconv"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
	"github.com/pganalyze/pg_query_go/v6/parser"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

const DialectPostgres = "postgres"

// PostgresBlockedFunctions are refused in every postgres query. They read
// server files, reach other servers, mutate state or stall the backend.
var PostgresBlockedFunctions = []string{
	"pg_read_file", "pg_read_binary_file", "pg_ls_dir", "pg_stat_file",
	"pg_ls_logdir", "pg_ls_waldir",
	"lo_import", "lo_export", "lo_unlink", "lo_create", "lo_from_bytea", "lo_put",
	"dblink", "dblink_exec", "dblink_connect",
	"pg_terminate_backend", "pg_cancel_backend", "pg_reload_conf", "pg_rotate_logfile",
	"set_config", "nextval", "setval",
	"pg_sleep", "pg_sleep_for", "pg_sleep_until",
	"pg_advisory_lock", "pg_advisory_xact_lock",
	"query_to_xml", "query_to_xml_and_xmlschema",
}

// PostgresDialect parses with the PostgreSQL server grammar (libpg_query).
type PostgresDialect struct {
	blocked functionSet
}

// NewPostgres returns the postgres dialect. extraBlocked is added to
// PostgresBlockedFunctions.
func NewPostgres(extraBlocked ...string) *PostgresDialect {
	return &PostgresDialect{blocked: newFunctionSet(PostgresBlockedFunctions, extraBlocked)}
}

func (d *PostgresDialect) Name() string { return DialectPostgres }

func (d *PostgresDialect) BlockedFunction(name string) bool { return d.blocked.has(name) }

func (d *PostgresDialect) Parse(text string) ([]Tree, error) {
	result, err := pg_query.Parse(text)
	if err != nil {
		return nil, postgresSyntaxError(text, err)
	}

	trees := make([]Tree, 0, len(result.GetStmts()))
	for _, raw := range result.GetStmts() {
		if raw.GetStmt() == nil {
			continue
		}
		trees = append(trees, &postgresTree{version: result.GetVersion(), raw: raw})
	}
	return trees, nil
}

func postgresSyntaxError(text string, err error) *Rejection {
	var pgErr *parser.Error
	if !errors.As(err, &pgErr) {
		return SyntaxError(err.Error(), nil)
	}
	var pos *Position
	if pgErr.Cursorpos > 0 {
		pos = positionAtRune(text, pgErr.Cursorpos-1)
	}
	return SyntaxError(pgErr.Message, pos)
}

type postgresTree struct {
	version int32
	raw     *pg_query.RawStmt
}

func (t *postgresTree) Kind() StatementKind {
	root := unwrapNode(t.raw.GetStmt().ProtoReflect())
	if root == nil {
		return KindUnknown
	}
	kind, ok := postgresKind(root)
	if !ok {
		return KindOther
	}
	return kind
}

func (t *postgresTree) Inspect(v Visitor) error {
	return walkMessage(t.raw.GetStmt().ProtoReflect(), func(m protoreflect.Message) error {
		if fc, ok := m.Interface().(*pg_query.FuncCall); ok {
			return v.Function(postgresFuncName(fc))
		}
		if kind, ok := postgresKind(m); ok {
			return v.Statement(kind, string(m.Descriptor().Name()))
		}
		return nil
	})
}

func (t *postgresTree) Limit() LimitClause {
	sel := t.raw.GetStmt().GetSelectStmt()
	if sel == nil || sel.GetLimitCount() == nil {
		return LimitClause{}
	}

	lc := LimitClause{Present: true}
	if sel.GetLimitOption() == pg_query.LimitOption_LIMIT_OPTION_WITH_TIES {
		return lc
	}
	c := sel.GetLimitCount().GetAConst()
	if c == nil || c.GetIsnull() {
		return lc
	}
	switch {
	case c.GetIval() != nil:
		lc.Literal, lc.Value = true, int64(c.GetIval().GetIval())
	case c.GetFval() != nil:
		// integers wider than int32 arrive as Float nodes
		n, err := strconv.ParseInt(c.GetFval().GetFval(), 10, 64)
		switch {
		case err == nil:
			lc.Literal, lc.Value = true, n
		case errors.Is(err, strconv.ErrRange):
			lc.Literal, lc.Value = true, math.MaxInt64
		}
	}
	if lc.Value < 0 {
		lc.Literal = false
	}
	return lc
}

func (t *postgresTree) WithLimit(n int64) Tree {
	raw := proto.Clone(t.raw).(*pg_query.RawStmt)
	if sel := raw.GetStmt().GetSelectStmt(); sel != nil {
		sel.LimitCount = postgresIntConst(n)
		sel.LimitOption = pg_query.LimitOption_LIMIT_OPTION_COUNT
	}
	return &postgresTree{version: t.version, raw: raw}
}

func (t *postgresTree) SQL() (string, error) {
	return pg_query.Deparse(&pg_query.ParseResult{
		Version: t.version,
		Stmts:   []*pg_query.RawStmt{t.raw},
	})
}

func postgresIntConst(n int64) *pg_query.Node {
	c := &pg_query.A_Const{Location: -1}
	if n <= math.MaxInt32 && n >= math.MinInt32 {
		c.Val = &pg_query.A_Const_Ival{Ival: &pg_query.Integer{Ival: int32(n)}}
	} else {
		c.Val = &pg_query.A_Const_Fval{Fval: &pg_query.Float{Fval: strconv.FormatInt(n, 10)}}
	}
	return &pg_query.Node{Node: &pg_query.Node_AConst{AConst: c}}
}

func postgresFuncName(fc *pg_query.FuncCall) string {
	parts := fc.GetFuncname()
	if len(parts) == 0 {
		return ""
	}
	return strings.ToLower(parts[len(parts)-1].GetString_().GetSval())
}

// postgresKind maps a parse node onto a StatementKind. ok is false for nodes
// that are not statements.
func postgresKind(m protoreflect.Message) (StatementKind, bool) {
	name := string(m.Descriptor().Name())
	switch name {
	case "RawStmt":
		return KindUnknown, false
	case "SelectStmt":
		sel := m.Interface().(*pg_query.SelectStmt)
		switch {
		case sel.GetIntoClause() != nil:
			return KindSelectInto, true
		case len(sel.GetLockingClause()) > 0:
			return KindLock, true
		case sel.GetOp() != pg_query.SetOperation_SETOP_NONE:
			return KindSetOperation, true
		}
		return KindSelect, true
	case "InsertStmt":
		return KindInsert, true
	case "UpdateStmt":
		return KindUpdate, true
	case "DeleteStmt":
		return KindDelete, true
	case "MergeStmt":
		return KindMerge, true
	case "TruncateStmt":
		return KindTruncate, true
	case "CopyStmt":
		return KindCopy, true
	case "ExplainStmt":
		return KindExplain, true
	case "CallStmt", "DoStmt":
		return KindCall, true
	case "TransactionStmt":
		return KindTransaction, true
	case "VariableSetStmt":
		return KindSet, true
	case "VariableShowStmt":
		return KindShow, true
	case "LockStmt":
		return KindLock, true
	case "GrantStmt":
		if m.Interface().(*pg_query.GrantStmt).GetIsGrant() {
			return KindGrant, true
		}
		return KindRevoke, true
	case "GrantRoleStmt":
		if m.Interface().(*pg_query.GrantRoleStmt).GetIsGrant() {
			return KindGrant, true
		}
		return KindRevoke, true
	case "RenameStmt":
		return KindAlter, true
	case "ViewStmt", "IndexStmt", "RuleStmt", "DefineStmt", "CompositeTypeStmt":
		return KindCreate, true
	}

	if !strings.HasSuffix(name, "Stmt") {
		return KindUnknown, false
	}
	switch {
	case strings.HasPrefix(name, "Create"):
		return KindCreate, true
	case strings.HasPrefix(name, "Alter"):
		return KindAlter, true
	case strings.HasPrefix(name, "Drop"):
		return KindDrop, true
	}
	return KindOther, true
}

// unwrapNode returns the message held by a Node's oneof.
func unwrapNode(m protoreflect.Message) protoreflect.Message {
	var inner protoreflect.Message
	m.Range(func(fd protoreflect.FieldDescriptor, v protoreflect.Value) bool {
		if fd.Message() != nil && !fd.IsList() && !fd.IsMap() {
			inner = v.Message()
		}
		return false
	})
	return inner
}

// walkMessage calls fn for m and every message reachable from it, depth first.
func walkMessage(m protoreflect.Message, fn func(protoreflect.Message) error) error {
	if err := fn(m); err != nil {
		return err
	}

	var err error
	m.Range(func(fd protoreflect.FieldDescriptor, v protoreflect.Value) bool {
		switch {
		case fd.IsMap() || fd.Message() == nil:
		case fd.IsList():
			list := v.List()
			for i := 0; i < list.Len() && err == nil; i++ {
				err = walkMessage(list.Get(i).Message(), fn)
			}
		default:
			err = walkMessage(v.Message(), fn)
		}
		return err == nil
	})
	return err
}

type functionSet map[string]struct{}

func newFunctionSet(lists ...[]string) functionSet {
	set := functionSet{}
	for _, list := range lists {
		for _, name := range list {
			if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
				set[name] = struct{}{}
			}
		}
	}
	return set
}

func (s functionSet) has(name string) bool {
	_, ok := s[strings.ToLower(name)]
	return ok
}
