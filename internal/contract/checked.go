//go:build !ffiunchecked

package contract

// Checked reports whether contract violations are detected.
const Checked = true
