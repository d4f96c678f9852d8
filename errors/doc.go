// Package errors provides structured error types for ffi-bridge.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: field path, Go type and canonical layout
// names, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseRegister, errors.KindUnsupported).
//		Path("Config", "Tags").
//		GoType("[]string").
//		Detail("slices have no fixed-size layout").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.TypeMismatch(errors.PhaseCall, path, "string", "int32_t")
//	err := errors.Arity(errors.PhaseRegister, "func(...)", 10, 9)
//
// Contract violations use PhaseContract; in checked builds they are raised as
// panics carrying an *Error, never returned.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
