// Package closure bridges host functions to foreign callers as FFI-safe
// closures.
//
// A closure crosses as a record of an opaque environment address and the
// function pointers that call and release it; the shared flavor adds
// retain. Trampolines are built once per flavor and concrete function type
// and live in the process function table.
//
//	add, _ := closure.New(func(a, b int32) int32 { return a + b })
//	defer add.Release()
//	sum, _ := closure.Result[int32](add.Call(int32(1), int32(2)))
//
// Three flavors exist. Once may be called a single time. Multi may be
// called repeatedly by its single owner. Shared may be cloned and called
// concurrently; its environment is freed when the last holder releases it.
//
// Closures accept at most MaxArity parameters and one result, each with a
// canonical layout. Anything else is rejected at construction.
package closure
