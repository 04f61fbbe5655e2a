package sqlguard

// StatementKind is the closed set of statement shapes a dialect can report.
// Dialects map every node of their grammar onto one of these.
type StatementKind int

const (
	KindUnknown StatementKind = iota
	KindSelect
	KindSetOperation
	KindInsert
	KindUpdate
	KindDelete
	KindMerge
	KindCreate
	KindAlter
	KindDrop
	KindTruncate
	KindGrant
	KindRevoke
	KindCopy
	KindExplain
	KindCall
	KindTransaction
	KindSet
	KindShow
	KindLock
	KindSelectInto
	KindOther
)

// ReadOnly reports whether a statement of this kind can neither change data
// nor hold locks. Every kind is listed; unknown values are never read-only.
func (k StatementKind) ReadOnly() bool {
	switch k {
	case KindSelect, KindSetOperation:
		return true
	case KindInsert, KindUpdate, KindDelete, KindMerge,
		KindCreate, KindAlter, KindDrop, KindTruncate,
		KindGrant, KindRevoke, KindCopy, KindExplain,
		KindCall, KindTransaction, KindSet, KindShow,
		KindLock, KindSelectInto, KindOther, KindUnknown:
		return false
	default:
		return false
	}
}

func (k StatementKind) String() string {
	switch k {
	case KindSelect:
		return "SELECT"
	case KindSetOperation:
		return "SET OPERATION"
	case KindInsert:
		return "INSERT"
	case KindUpdate:
		return "UPDATE"
	case KindDelete:
		return "DELETE"
	case KindMerge:
		return "MERGE"
	case KindCreate:
		return "CREATE"
	case KindAlter:
		return "ALTER"
	case KindDrop:
		return "DROP"
	case KindTruncate:
		return "TRUNCATE"
	case KindGrant:
		return "GRANT"
	case KindRevoke:
		return "REVOKE"
	case KindCopy:
		return "COPY"
	case KindExplain:
		return "EXPLAIN"
	case KindCall:
		return "CALL"
	case KindTransaction:
		return "TRANSACTION"
	case KindSet:
		return "SET"
	case KindShow:
		return "SHOW"
	case KindLock:
		return "LOCKING"
	case KindSelectInto:
		return "SELECT INTO"
	case KindOther:
		return "OTHER"
	default:
		return "UNKNOWN"
	}
}
