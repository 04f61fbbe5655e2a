package sqlguard

import "fmt"

// Result is the verdict of Engine.Validate. Exactly one of TransformedSQL
// (Accepted) or Rejection is set.
type Result struct {
	Accepted       bool       `json:"accepted"`
	TransformedSQL string     `json:"transformed_sql,omitempty"`
	LimitApplied   bool       `json:"limit_applied"`
	Dialect        string     `json:"dialect"`
	Ceiling        int64      `json:"ceiling"`
	Rejection      *Rejection `json:"rejection,omitempty"`

	executable Executable
}

// Executable returns the statement a driver may run. ok is false for a
// rejected result.
func (r Result) Executable() (Executable, bool) {
	if !r.Accepted || r.executable.sql == "" {
		return Executable{}, false
	}
	return r.executable, true
}

// Message is a one-line summary suitable for showing to the user
func (r Result) Message() string {
	switch {
	case r.Rejection != nil:
		return r.Rejection.Message
	case r.LimitApplied:
		return fmt.Sprintf("LIMIT %d automatically applied", r.Ceiling)
	case r.Accepted:
		return "query is valid"
	}
	return ""
}

// Executable is SQL that passed validation. Its zero value is empty and
// rejected by every datasource adapter; only a Result can produce a
// non-empty one.
type Executable struct {
	sql     string
	dialect string
}

func (x Executable) SQL() string { return x.sql }

func (x Executable) Dialect() string { return x.dialect }

func (x Executable) String() string { return x.sql }
