package repr

import (
	"reflect"

	ffibridge "github.com/wippyai/ffi-bridge"
	"github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/internal/contract"
)

// Descriptor is the typed view of a compiled Go type: its layout, validity
// predicate and the lower/lift conversions.
type Descriptor[T any] struct {
	c *Compiled
}

// Of compiles T with the process-wide compiler.
func Of[T any]() (*Descriptor[T], error) {
	c, err := defaultCompiler.Compile(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	return &Descriptor[T]{c: c}, nil
}

// MustOf is like Of but panics when T has no canonical layout. It is meant
// for package-level declarations.
func MustOf[T any]() *Descriptor[T] {
	d, err := Of[T]()
	if err != nil {
		panic(err)
	}
	return d
}

// Type returns the untyped canonical type.
func (d *Descriptor[T]) Type() Type { return d.c }

// Compiled returns the reflect-level binding.
func (d *Descriptor[T]) Compiled() *Compiled { return d.c }

// Layout returns the canonical layout.
func (d *Descriptor[T]) Layout() *Layout { return d.c.layout }

// Name returns the layout's compact name.
func (d *Descriptor[T]) Name() string { return d.c.layout.String() }

// Size returns the canonical size in bytes.
func (d *Descriptor[T]) Size() uint32 { return d.c.layout.Size }

// IsValid reports whether b holds a valid T.
func (d *Descriptor[T]) IsValid(b []byte) bool { return d.c.IsValid(b) }

// Niche returns T's niche, if any.
func (d *Descriptor[T]) Niche() (Niche, bool) { return d.c.Niche() }

// Lower returns the canonical bytes of v. Lowering never fails: every host
// value of T is representable.
func (d *Descriptor[T]) Lower(v T) []byte {
	b := make([]byte, d.c.layout.Size)
	d.c.lower(reflect.ValueOf(&v).Elem(), b)
	return b
}

// LowerInto writes the canonical bytes of v into dst.
func (d *Descriptor[T]) LowerInto(dst []byte, v T) {
	if len(dst) < int(d.c.layout.Size) {
		contract.Violation(errors.KindOutOfBounds, "lower %s: destination holds %d bytes, need %d", d.Name(), len(dst), d.c.layout.Size)
	}
	d.c.lower(reflect.ValueOf(&v).Elem(), dst)
}

// Lift reads a T from b. The caller must have established IsValid(b);
// checked builds verify it and raise a contract violation.
func (d *Descriptor[T]) Lift(b []byte) T {
	if contract.Checked && !d.c.IsValid(b) {
		contract.Violation(errors.KindInvalidData, "lift %s from invalid bytes %x", d.Name(), preview(b, d.c.layout.Size))
	}
	var v T
	d.c.lift(b, reflect.ValueOf(&v).Elem())
	return v
}

// TryLift validates b and lifts it.
func (d *Descriptor[T]) TryLift(b []byte) (T, error) {
	if !d.c.IsValid(b) {
		var zero T
		return zero, errors.InvalidBytes(d.Name(), preview(b, d.c.layout.Size))
	}
	var v T
	d.c.lift(b, reflect.ValueOf(&v).Elem())
	return v, nil
}

// Store lowers v into mem at offset.
func (d *Descriptor[T]) Store(mem ffibridge.Memory, offset uint32, v T) error {
	return mem.Write(offset, d.Lower(v))
}

// Load reads, validates and lifts a T from mem at offset.
func (d *Descriptor[T]) Load(mem ffibridge.Memory, offset uint32) (T, error) {
	b, err := mem.Read(offset, d.c.layout.Size)
	if err != nil {
		var zero T
		return zero, err
	}
	return d.TryLift(b)
}

func preview(b []byte, size uint32) []byte {
	if len(b) > int(size) {
		return b[:size]
	}
	return b
}
