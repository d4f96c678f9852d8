// Package memory provides foreign memory implementations.
//
// Buffer is a fixed byte slice, useful in tests and for host-side staging.
// Wasm backs foreign memory with a real WebAssembly linear memory run by
// wazero, and Wrap adapts a memory exported by any wazero module. Arena is
// a bump allocator over either. WriteCString and ReadCString move
// NUL-terminated strings across.
package memory
