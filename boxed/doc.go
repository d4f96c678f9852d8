// Package boxed provides owning and reference-counted pointers whose
// addresses can cross the boundary.
//
// A Box[T] owns one value. Ownership either stays on the host (Drop,
// Release, Into) or moves to the foreign side with Leak, after which the
// foreign side must hand the address back to an exported function that
// calls Free or FromAddr(...).Release.
//
// A Shared[T] is a canonical record {ptr, retain, release}. Each holder
// calls retain when it copies the record and release when it is done; the
// value is freed exactly once when the count drops to zero.
//
// Double release and use after release are contract violations.
package boxed
