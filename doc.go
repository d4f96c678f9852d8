// Package ffibridge lets values, closures and polymorphic objects cross a
// foreign-function boundary safely, and generates foreign-language
// declarations for everything exported.
//
// Nothing crosses the boundary except flat, fixed-size data and function
// pointers. Every type that crosses has a canonical layout and a validity
// predicate; closures and objects travel as opaque state pointers paired
// with function pointers that were generated for one concrete host type.
//
// # Architecture Overview
//
//	ffibridge/           Root package with Addr, Memory and Allocator
//	├── repr/            Canonical layouts, validity predicates, niche optionals
//	├── heap/            Address space for host allocations handed out as pointers
//	├── fnptr/           Append-only function table behind every function pointer
//	├── boxed/           Owning and reference-counted pointer wrappers
//	├── closure/         FFI-safe closures (once, multi-call, shared)
//	├── dyn/             Virtual pointers and statically built vtables
//	├── future/          Poll-based async bridge
//	├── memory/          Foreign linear memory (byte buffer or wazero)
//	├── headers/         Header generation engine with C and C# backends
//	├── errors/          Structured error types
//	├── examples/        Example boundary registered by ffigen
//	└── cmd/ffigen/      Generator CLI
//
// # Quick Start
//
// Describe a type and move it across the boundary:
//
//	type Point struct {
//	    X float32
//	    Y float32
//	}
//
//	d := repr.MustOf[Point]()
//	raw := d.Lower(Point{X: 1, Y: 2}) // 8 bytes, infallible
//
//	p, err := d.TryLift(raw) // validates before lifting
//
// Export a closure:
//
//	cb, err := closure.New(func(x int32) int32 { return x * 2 })
//	rec := cb.Record() // {env, call, release}
//
// Generate a header:
//
//	reg := headers.NewRegistry()
//	reg.Register(headers.TypeItem(d.Layout()))
//	err := headers.Generate(os.Stdout, reg, c.New(), headers.Options{})
//
// # Contract Checks
//
// Invalid foreign bytes, double release and calls through released or null
// function pointers are contract violations. The default build checks them
// and panics with an *errors.Error of phase "contract". Building with
// -tags ffiunchecked removes the checks; behaviour on violation is then
// unspecified.
//
// # Thread Safety
//
// Layout descriptors, vtables and the function table are immutable after
// construction and safe for concurrent use. Shared pointers and shared
// closures count references atomically. Owning pointers, once/multi
// closures and futures assume a single owner.
package ffibridge
