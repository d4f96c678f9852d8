// Package contract raises caller contract violations.
//
// A violation is an unrecoverable caller error: invalid foreign bytes lifted
// without validation, double release, use after release, a null function
// pointer invoked, concurrent polling of one future. The default build
// detects them and panics with an *errors.Error of PhaseContract. Building
// with -tags ffiunchecked compiles the checks away; the behaviour on
// violation is then unspecified.
package contract

import (
	"fmt"

	"github.com/wippyai/ffi-bridge/errors"
)

// Violation panics with a contract error.
func Violation(kind errors.Kind, format string, args ...any) {
	panic(errors.Violation(kind, fmt.Sprintf(format, args...)))
}

// Assert raises a violation when cond is false. It is a no-op in unchecked
// builds.
func Assert(cond bool, kind errors.Kind, format string, args ...any) {
	if Checked && !cond {
		Violation(kind, format, args...)
	}
}

// Catch runs fn and returns the contract violation it raised, if any. Other
// panics propagate.
func Catch(fn func()) (err *errors.Error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if e, ok := r.(*errors.Error); ok && e.Phase == errors.PhaseContract {
			err = e
			return
		}
		panic(r)
	}()
	fn()
	return nil
}
