// Package sqlguard decides whether untrusted SQL text may run against a
// database. A statement is accepted only when the dialect's grammar parses it
// to exactly one read-only query; the accepted statement is rewritten so that
// it can never return more than a configured number of rows.
//
// The pipeline has three stages, each usable on its own:
//
//	Engine.Parse -> Classify -> EnforceLimit
//
// Engine.Validate runs all three and folds every outcome into a Result.
package sqlguard

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

const (
	// DefaultCeiling is the row cap used when none is configured.
	DefaultCeiling = 1000
	// MaxCeiling is the largest ceiling every dialect can express.
	MaxCeiling = math.MaxInt32
)

var (
	// ErrUnknownDialect is returned when a dialect name is not registered
	ErrUnknownDialect = errors.New("sqlguard: unknown dialect")
	// ErrInvalidCeiling is returned for a ceiling outside 1..MaxCeiling
	ErrInvalidCeiling = errors.New("sqlguard: ceiling must be between 1 and 2147483647")
)

// OverLimitPolicy decides what happens to a literal limit above the ceiling.
type OverLimitPolicy string

const (
	// OverLimitClamp rewrites the limit down to the ceiling
	OverLimitClamp OverLimitPolicy = "clamp"
	// OverLimitReject refuses the query with RejectLimitExceeded
	OverLimitReject OverLimitPolicy = "reject"
)

// Config holds the engine-wide defaults a Validate call starts from.
type Config struct {
	DefaultDialect string
	Ceiling        int64
	OverLimit      OverLimitPolicy
}

// Engine runs the validation pipeline. It holds no mutable state after
// NewEngine returns and is safe for concurrent use.
type Engine struct {
	cfg      Config
	dialects map[string]Dialect
}

// NewEngine builds an engine over the given dialects. With no dialects it
// registers postgres, mysql and sqlite with their default blocked functions. Zero
// config fields take their defaults: postgres, DefaultCeiling, clamp.
func NewEngine(cfg Config, dialects ...Dialect) (*Engine, error) {
	if len(dialects) == 0 {
		dialects = []Dialect{NewPostgres(), NewMySQL(), NewSQLite()}
	}
	if cfg.DefaultDialect == "" {
		cfg.DefaultDialect = DialectPostgres
	}
	if cfg.Ceiling == 0 {
		cfg.Ceiling = DefaultCeiling
	}
	if cfg.OverLimit == "" {
		cfg.OverLimit = OverLimitClamp
	}

	if err := checkCeiling(cfg.Ceiling); err != nil {
		return nil, err
	}
	switch cfg.OverLimit {
	case OverLimitClamp, OverLimitReject:
	default:
		return nil, fmt.Errorf("sqlguard: unknown over-limit policy %q", cfg.OverLimit)
	}

	registry := make(map[string]Dialect, len(dialects))
	for _, d := range dialects {
		if _, dup := registry[d.Name()]; dup {
			return nil, fmt.Errorf("sqlguard: dialect %q registered twice", d.Name())
		}
		registry[d.Name()] = d
	}
	if _, ok := registry[cfg.DefaultDialect]; !ok {
		return nil, fmt.Errorf("%w: default %q", ErrUnknownDialect, cfg.DefaultDialect)
	}

	return &Engine{cfg: cfg, dialects: registry}, nil
}

// DefaultDialect is the dialect used when a call names none
func (e *Engine) DefaultDialect() string { return e.cfg.DefaultDialect }

// Ceiling is the default row cap
func (e *Engine) Ceiling() int64 { return e.cfg.Ceiling }

// OverLimit is the policy for literal limits above the ceiling
func (e *Engine) OverLimit() OverLimitPolicy { return e.cfg.OverLimit }

// Dialects returns the registered dialect names in sorted order
func (e *Engine) Dialects() []string {
	names := make([]string, 0, len(e.dialects))
	for name := range e.dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasDialect reports whether name is registered
func (e *Engine) HasDialect(name string) bool {
	_, ok := e.dialects[name]
	return ok
}

// Parse runs the first stage. Blank input is rejected without reaching the
// grammar, and a panic inside a parser library becomes a SyntaxError.
func (e *Engine) Parse(text, dialect string) (ps *ParsedStatement, err error) {
	d, ok := e.dialects[dialect]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDialect, dialect)
	}
	if strings.TrimSpace(text) == "" {
		return nil, reject(RejectEmptyInput, "query is empty")
	}

	defer func() {
		if r := recover(); r != nil {
			ps, err = nil, SyntaxError(fmt.Sprintf("could not parse query: %v", r), nil)
		}
	}()

	trees, err := d.Parse(text)
	if err != nil {
		return nil, err
	}
	if len(trees) == 0 {
		return nil, reject(RejectEmptyInput, "query contains no statements")
	}
	return &ParsedStatement{Dialect: d.Name(), Text: text, grammar: d, trees: trees}, nil
}

// Option overrides engine configuration for a single Validate call
type Option func(*request)

type request struct {
	dialect string
	ceiling int64
}

// WithDialect validates with the named dialect instead of the default
func WithDialect(name string) Option {
	return func(r *request) {
		if name != "" {
			r.dialect = name
		}
	}
}

// WithCeiling caps the rows of this call at n instead of the engine ceiling
func WithCeiling(n int64) Option {
	return func(r *request) {
		r.ceiling = n
	}
}

// Validate runs the full pipeline. Every verdict about the input, accepted or
// rejected, is reported in Result with a nil error. The error is non-nil only
// for an unknown dialect, an invalid ceiling or a failure to serialize an
// accepted tree.
func (e *Engine) Validate(text string, opts ...Option) (Result, error) {
	req := request{dialect: e.cfg.DefaultDialect, ceiling: e.cfg.Ceiling}
	for _, opt := range opts {
		opt(&req)
	}
	if err := checkCeiling(req.ceiling); err != nil {
		return Result{}, err
	}

	res := Result{Dialect: req.dialect, Ceiling: req.ceiling}
	sql, applied, err := e.run(text, req)
	var rejection *Rejection
	switch {
	case errors.As(err, &rejection):
		res.Rejection = rejection
		return res, nil
	case err != nil:
		return Result{}, err
	}

	res.Accepted = true
	res.TransformedSQL = sql
	res.LimitApplied = applied
	res.executable = Executable{sql: sql, dialect: req.dialect}
	return res, nil
}

func (e *Engine) run(text string, req request) (string, bool, error) {
	parsed, err := e.Parse(text, req.dialect)
	if err != nil {
		return "", false, err
	}
	stmt, err := Classify(parsed)
	if err != nil {
		return "", false, err
	}

	if e.cfg.OverLimit == OverLimitReject {
		if limit := stmt.Limit(); limit.Present && limit.Literal && limit.Value > req.ceiling {
			return "", false, reject(RejectLimitExceeded,
				"requested limit %d exceeds the maximum of %d rows", limit.Value, req.ceiling)
		}
	}

	stmt, applied := EnforceLimit(stmt, req.ceiling)
	sql, err := stmt.SQL()
	if err != nil {
		return "", false, fmt.Errorf("serialize %s statement: %w", req.dialect, err)
	}
	return sql, applied, nil
}

func checkCeiling(n int64) error {
	if n < 1 || n > MaxCeiling {
		return fmt.Errorf("%w: got %d", ErrInvalidCeiling, n)
	}
	return nil
}
