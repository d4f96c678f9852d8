package closure

import (
	ffibridge "github.com/wippyai/ffi-bridge"
	"github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/fnptr"
	"github.com/wippyai/ffi-bridge/heap"
	"github.com/wippyai/ffi-bridge/internal/contract"
)

// CallFn is the erased call entry point every closure trampoline has.
type CallFn = func(env ffibridge.Addr, args []any) any

// EnvFn is the erased signature of release and retain entry points.
type EnvFn = func(env ffibridge.Addr)

// Record is the canonical closure: an opaque environment and the entry
// points that call and release it. It is what crosses the boundary.
type Record struct {
	Env     ffibridge.Addr
	Call    fnptr.Ptr
	Release fnptr.Ptr
}

// SharedRecord is a closure that any number of holders may call
// concurrently. Each copy must be retained; the environment is freed when
// the last holder releases it.
type SharedRecord struct {
	Env     ffibridge.Addr
	Call    fnptr.Ptr
	Release fnptr.Ptr
	Retain  fnptr.Ptr
}

func checkRecord(env ffibridge.Addr, call, release fnptr.Ptr) {
	if !contract.Checked {
		return
	}
	if call.IsNull() || release.IsNull() {
		contract.Violation(errors.KindNilPointer, "closure record has a null function pointer (call=%d, release=%d)", call, release)
	}
	if !heap.Default.Live(env) {
		contract.Violation(errors.KindUseAfterRelease, "closure environment %#x invoked after release", uint64(env))
	}
}

// Invoke calls the closure the way a foreign caller does. Arguments must
// match the closure's parameters exactly.
func (r Record) Invoke(args ...any) any {
	checkRecord(r.Env, r.Call, r.Release)
	return fnptr.Call[CallFn](fnptr.Default, r.Call)(r.Env, args)
}

// Free releases the environment.
func (r Record) Free() {
	if contract.Checked && r.Release.IsNull() {
		contract.Violation(errors.KindNilPointer, "closure record has a null release pointer")
	}
	fnptr.Call[EnvFn](fnptr.Default, r.Release)(r.Env)
}

// IsNull reports whether the record is the zero record.
func (r Record) IsNull() bool {
	return r.Env.IsNull() && r.Call.IsNull() && r.Release.IsNull()
}

// Invoke calls the closure the way a foreign caller does.
func (r SharedRecord) Invoke(args ...any) any {
	checkRecord(r.Env, r.Call, r.Release)
	return fnptr.Call[CallFn](fnptr.Default, r.Call)(r.Env, args)
}

// Clone retains the environment for a new holder.
func (r SharedRecord) Clone() SharedRecord {
	if contract.Checked && r.Retain.IsNull() {
		contract.Violation(errors.KindNilPointer, "shared closure record has a null retain pointer")
	}
	fnptr.Call[EnvFn](fnptr.Default, r.Retain)(r.Env)
	return r
}

// Free releases this holder's reference.
func (r SharedRecord) Free() {
	if contract.Checked && r.Release.IsNull() {
		contract.Violation(errors.KindNilPointer, "shared closure record has a null release pointer")
	}
	fnptr.Call[EnvFn](fnptr.Default, r.Release)(r.Env)
}
