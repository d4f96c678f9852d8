// Package abi provides low-level helpers shared by the canonical layout
// compiler and the boundary wrappers.
//
// # Contents
//
//   - helpers.go: alignment, overflow-safe arithmetic, char validation and
//     little-endian pointer words
//
// This package is internal to ffi-bridge.
package abi
