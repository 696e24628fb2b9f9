// Package dbferr defines the error-kind registry shared by the table
// engine, index engine, evaluator, and command executor.
//
// The teacher (CodeBase) represents errors as small negative return codes
// threaded through every call; this package keeps that same shape — a
// compact Kind enum plus a structured error carrying it — so callers that
// need to branch on error kind (the executor, the REST facade described
// in spec.md §7) can do so with errors.As instead of string matching.
package dbferr

// Kind identifies the category of a core-engine failure.
type Kind int

const (
	None Kind = iota
	FileNotFound
	FileCreate
	FileRead
	FileWrite
	InvalidDBF
	InvalidIndex
	InvalidField
	InvalidRecord
	OutOfMemory
	Syntax
	TypeMismatch
	UndefinedVariable
	UndefinedFunction
	DivisionByZero
	Overflow
	NoDatabaseOpen
	DuplicateKey
	EOF
	BOF
	NotImplemented
	Internal
)

// String returns the lowercase, hyphenated text used in
// "Error: <kind text> — <message>" lines (spec.md §7).
func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case FileNotFound:
		return "file-not-found"
	case FileCreate:
		return "file-create"
	case FileRead:
		return "file-read"
	case FileWrite:
		return "file-write"
	case InvalidDBF:
		return "invalid-DBF"
	case InvalidIndex:
		return "invalid-index"
	case InvalidField:
		return "invalid-field"
	case InvalidRecord:
		return "invalid-record"
	case OutOfMemory:
		return "out-of-memory"
	case Syntax:
		return "syntax"
	case TypeMismatch:
		return "type-mismatch"
	case UndefinedVariable:
		return "undefined-variable"
	case UndefinedFunction:
		return "undefined-function"
	case DivisionByZero:
		return "division-by-zero"
	case Overflow:
		return "overflow"
	case NoDatabaseOpen:
		return "no-database-open"
	case DuplicateKey:
		return "duplicate-key"
	case EOF:
		return "EOF"
	case BOF:
		return "BOF"
	case NotImplemented:
		return "not-implemented"
	case Internal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is the structured error value returned by core operations. It
// implements the standard error interface so Go call sites can use plain
// `if err != nil`, while the Kind remains available via errors.As for
// hosts (REPL, REST facade) that must map it to an exit code or HTTP
// status.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Message
}

// New builds an *Error for the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf extracts the Kind from err, returning Internal if err does not
// carry one (e.g. a stdlib I/O error that was not wrapped).
func KindOf(err error) Kind {
	if err == nil {
		return None
	}
	var e *Error
	if As(err, &e) {
		return e.Kind
	}
	return Internal
}

// As walks err's single-error Unwrap chain and stores the first *Error
// it finds in target, so callers of this package don't need a second
// import for the common case. Unlike errors.As it does not follow
// Unwrap() []error.
func As(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
