package headers

import (
	"github.com/wippyai/ffi-bridge/repr"
)

// Backend renders declarations in one target language. It decides all
// syntax; the engine only decides what is emitted and in which order.
// Methods return the declaration text; an empty string emits nothing.
type Backend interface {
	// Name is the language name, e.g. "c".
	Name() string
	// Extension is the output file extension without the dot.
	Extension() string

	Prologue(opts Options) string
	Epilogue(opts Options) string

	// Primitive declares a named alias of a primitive layout.
	Primitive(l *repr.Layout) string
	// Forward declares a struct before its definition so that
	// self-referencing and mutually referencing structs can name it.
	Forward(l *repr.Layout) string
	Struct(l *repr.Layout, opts Options) string
	Enum(l *repr.Layout) string
	Opaque(l *repr.Layout) string
	Func(name string, sig *repr.Signature, doc string, opts Options) string
	Const(name string, l *repr.Layout, value any, doc string) string
}

// Options control one generation pass.
type Options struct {
	// Guard is the C include guard; empty derives one from the library.
	Guard string
	// Banner is emitted as a comment at the top of the output.
	Banner string
	// Library names the native library functions are imported from.
	Library string
	// Namespace wraps declarations in languages that have namespaces.
	Namespace string
	// LayoutAsserts emits static size and alignment checks for structs.
	LayoutAsserts bool
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		Banner:        "Generated by ffigen. Do not edit.",
		Library:       "ffibridge",
		Namespace:     "FfiBridge",
		LayoutAsserts: true,
	}
}
