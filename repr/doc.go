// Package repr defines the representation contract for values that cross
// the foreign boundary.
//
// Every boundary type has a canonical layout (flat, fixed size, fixed
// alignment, little-endian, pointers one 8-byte word) and a pure validity
// predicate over its bytes. Host to foreign lowering never fails. Foreign
// to host lifting is only sound on bytes that passed IsValid:
//
//	d := repr.MustOf[Point]()
//	b := d.Lower(Point{X: 1, Y: 2})
//	p, err := d.TryLift(b) // validates first
//	p = d.Lift(b)          // caller has validated
//
// Go types map to layouts through a reflect compiler cached per type.
// Structs use their exported fields in declaration order; field names come
// from the `ffi:"name"` tag or the snake_case Go name. Named integer types
// implementing Enum become field-less enums. Ptr, NonNull, CStr, Char and
// fnptr.Ptr model pointers, strings, scalar values and function pointers.
//
// Option[T] reuses an invalid bit pattern of T (its niche) for the absent
// state and adds no bytes. Types without a niche cannot be made optional.
//
// Variable-length and managed values (strings, slices, maps, interfaces,
// channels, Go pointers and funcs) are rejected at compile time.
package repr
