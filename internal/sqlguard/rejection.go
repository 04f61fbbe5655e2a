package sqlguard

import "fmt"

// RejectionKind identifies why a statement was refused
type RejectionKind string

const (
	RejectEmptyInput         RejectionKind = "EmptyInput"
	RejectSyntaxError        RejectionKind = "SyntaxError"
	RejectMultipleStatements RejectionKind = "MultipleStatements"
	RejectForbiddenStatement RejectionKind = "ForbiddenStatementType"
	// RejectLimitExceeded is only produced under OverLimitReject.
	RejectLimitExceeded RejectionKind = "LimitExceeded"
)

// Position is a 1-based line/column location in the submitted text
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

func (p Position) String() string {
	return fmt.Sprintf("line %d, column %d", p.Line, p.Column)
}

// Rejection is the error value returned for input the engine refuses.
// It is an expected outcome, never a fault.
type Rejection struct {
	Kind     RejectionKind `json:"rejection_kind"`
	Message  string        `json:"message"`
	Position *Position     `json:"position,omitempty"`
}

func (r *Rejection) Error() string {
	if r.Position != nil {
		return fmt.Sprintf("%s: %s (%s)", r.Kind, r.Message, r.Position)
	}
	return fmt.Sprintf("%s: %s", r.Kind, r.Message)
}

func reject(kind RejectionKind, format string, args ...any) *Rejection {
	return &Rejection{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// SyntaxError builds a SyntaxError rejection. pos may be nil when the grammar
// does not report a location.
func SyntaxError(message string, pos *Position) *Rejection {
	return &Rejection{Kind: RejectSyntaxError, Message: message, Position: pos}
}
