package repr

import (
	"reflect"

	ffibridge "github.com/wippyai/ffi-bridge"
)

// Ptr is a nullable pointer to a T living on the other side of the boundary
// (or in the host address space). It carries only the address.
type Ptr[T any] ffibridge.Addr

// Addr returns the address.
func (p Ptr[T]) Addr() ffibridge.Addr { return ffibridge.Addr(p) }

// IsNull reports whether p is null.
func (p Ptr[T]) IsNull() bool { return p == 0 }

func (Ptr[T]) pointee() reflect.Type { return reflect.TypeFor[T]() }
func (Ptr[T]) nullable() bool        { return true }

// NonNull is a pointer to a T that is never null. The zero pattern is its
// niche, so Option[NonNull[T]] costs one word.
type NonNull[T any] ffibridge.Addr

// Addr returns the address.
func (p NonNull[T]) Addr() ffibridge.Addr { return ffibridge.Addr(p) }

func (NonNull[T]) pointee() reflect.Type { return reflect.TypeFor[T]() }
func (NonNull[T]) nullable() bool        { return false }

type pointerMarker interface {
	pointee() reflect.Type
	nullable() bool
}

// CStr is a non-null pointer to a NUL-terminated, read-only byte string.
type CStr ffibridge.Addr

// Addr returns the address.
func (s CStr) Addr() ffibridge.Addr { return ffibridge.Addr(s) }

// Char is a Unicode scalar value. Surrogates and values above U+10FFFF are
// invalid; 0x110000 is the niche.
type Char rune

// Enum is implemented by named integer types that model a field-less enum.
// Case i has discriminant i; the first unused discriminant is the niche.
type Enum interface {
	EnumCases() []string
}

// Named overrides the declared short name of a struct. Generic and
// anonymous structs must implement it.
type Named interface {
	ReprName() string
}

// Annotated lets a type refine its compiled layout, e.g. attach function
// pointer signatures or documentation. It is called once per Go type, after
// fields are placed; it must not change sizes or offsets.
type Annotated interface {
	AnnotateLayout(l *Layout)
}

// Option is a niche-encoded optional T. It occupies exactly the bytes of T;
// the absent state is T's niche. Option of a type without a niche is
// rejected when compiled.
type Option[T any] struct {
	value T
	some  bool
}

// Some returns a present option.
func Some[T any](v T) Option[T] { return Option[T]{value: v, some: true} }

// None returns an absent option.
func None[T any]() Option[T] { return Option[T]{} }

// Get returns the value and whether it is present.
func (o Option[T]) Get() (T, bool) { return o.value, o.some }

// IsSome reports whether the option holds a value.
func (o Option[T]) IsSome() bool { return o.some }

// OrElse returns the value or def when absent.
func (o Option[T]) OrElse(def T) T {
	if o.some {
		return o.value
	}
	return def
}

func (Option[T]) optionInner() reflect.Type { return reflect.TypeFor[T]() }
func (o Option[T]) optionValue() (any, bool) {
	return o.value, o.some
}
func (o *Option[T]) optionSet(v reflect.Value, some bool) {
	if !some {
		*o = Option[T]{}
		return
	}
	o.value = v.Interface().(T)
	o.some = true
}

type optionMarker interface {
	optionInner() reflect.Type
	optionValue() (any, bool)
}

type optionSetter interface {
	optionSet(v reflect.Value, some bool)
}
