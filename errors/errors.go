package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseRegister Phase = "register" // type, capability and export registration
	PhaseLower    Phase = "lower"    // host to foreign
	PhaseLift     Phase = "lift"     // foreign to host
	PhaseValidate Phase = "validate" // canonical byte validation
	PhaseCall     Phase = "call"     // closure and vtable dispatch
	PhaseRelease  Phase = "release"  // pointer, closure and object release
	PhaseContract Phase = "contract" // caller contract violations
	PhaseGenerate Phase = "generate" // header generation
	PhaseConfig   Phase = "config"   // generator configuration
	PhaseMemory   Phase = "memory"   // foreign memory access
)

// Kind categorizes the error
type Kind string

const (
	KindTypeMismatch    Kind = "type_mismatch"
	KindOutOfBounds     Kind = "out_of_bounds"
	KindInvalidData     Kind = "invalid_data"
	KindUnsupported     Kind = "unsupported"
	KindAllocation      Kind = "allocation"
	KindOverflow        Kind = "overflow"
	KindNilPointer      Kind = "nil_pointer"
	KindInvalidEnum     Kind = "invalid_enum"
	KindArity           Kind = "arity"
	KindEmbeddedNul     Kind = "embedded_nul"
	KindDuplicate       Kind = "duplicate"
	KindFrozen          Kind = "frozen"
	KindNotFound        Kind = "not_found"
	KindInvalidInput    Kind = "invalid_input"
	KindUseAfterRelease Kind = "use_after_release"
	KindDoubleRelease   Kind = "double_release"
	KindConcurrentPoll  Kind = "concurrent_poll"
	KindIO              Kind = "io"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	GoType   string
	ReprType string
	Detail   string
	Path     []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.ReprType != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.ReprType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", repr ")
			b.WriteString(e.ReprType)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("repr ")
			b.WriteString(e.ReprType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.ReprType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// ReprType sets the canonical layout name
func (b *Builder) ReprType(t string) *Builder {
	b.err.ReprType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, goType, reprType string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindTypeMismatch,
		Path:     path,
		GoType:   goType,
		ReprType: reprType,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, align uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
	}
}

// Unsupported creates an unsupported shape error
func Unsupported(phase Phase, path []string, goType, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Path:   path,
		GoType: goType,
		Detail: what,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// NilPointer creates a nil pointer error
func NilPointer(phase Phase, path []string, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		Path:   path,
		GoType: goType,
		Detail: "nil pointer",
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, target string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindOverflow,
		Path:     path,
		ReprType: target,
		Detail:   fmt.Sprintf("value %v overflows %s", value, target),
		Value:    value,
	}
}

// InvalidEnum creates an invalid enum discriminant error
func InvalidEnum(phase Phase, path []string, value any, enumType string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindInvalidEnum,
		Path:     path,
		ReprType: enumType,
		Detail:   fmt.Sprintf("invalid discriminant %v for %s", value, enumType),
		Value:    value,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// InvalidBytes reports canonical bytes rejected by a validity predicate.
func InvalidBytes(reprType string, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:    PhaseValidate,
		Kind:     KindInvalidData,
		ReprType: reprType,
		Detail:   fmt.Sprintf("invalid canonical bytes: %x", preview),
	}
}

// Arity creates an error for callables with too many parameters or results
func Arity(phase Phase, goType string, got, max int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindArity,
		GoType: goType,
		Detail: fmt.Sprintf("%d parameters exceeds the supported maximum of %d", got, max),
		Value:  got,
	}
}

// EmbeddedNul reports a string that cannot be represented as a C string.
func EmbeddedNul(phase Phase, index int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindEmbeddedNul,
		Detail: fmt.Sprintf("string contains NUL byte at index %d", index),
		Value:  index,
	}
}

// Duplicate creates a duplicate registration error
func Duplicate(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDuplicate,
		Detail: fmt.Sprintf("%s %q already registered", what, name),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Violation creates a contract violation error
func Violation(kind Kind, detail string) *Error {
	return &Error{
		Phase:  PhaseContract,
		Kind:   kind,
		Detail: detail,
	}
}

// WriteFailed wraps an output sink failure during generation
func WriteFailed(item string, cause error) *Error {
	return &Error{
		Phase:  PhaseGenerate,
		Kind:   KindIO,
		Path:   []string{item},
		Detail: "write declaration",
		Cause:  cause,
	}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}
