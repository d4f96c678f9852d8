package closure

import (
	"reflect"
	"sync/atomic"

	"github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/heap"
	"github.com/wippyai/ffi-bridge/internal/abi"
	"github.com/wippyai/ffi-bridge/internal/contract"
	"github.com/wippyai/ffi-bridge/internal/invoke"
	"github.com/wippyai/ffi-bridge/repr"
)

// MaxArity is the largest number of parameters a closure may declare.
const MaxArity = abi.MaxArity

// Multi is an owned closure that may be called any number of times and is
// released once.
type Multi struct {
	layout   *repr.Layout
	typ      reflect.Type
	rec      Record
	released atomic.Bool
}

// New wraps fn, which must be a non-variadic func of at most MaxArity
// parameters and at most one result, all with canonical layouts.
func New(fn any) (*Multi, error) {
	v, layout, err := prepare(flavorMulti, fn)
	if err != nil {
		return nil, err
	}
	typ := v.Type()
	return &Multi{
		layout: layout,
		typ:    typ,
		rec: Record{
			Env:     heap.Default.Alloc(&env{fn: v}),
			Call:    callEntry(flavorMulti, typ),
			Release: releaseEntry(flavorMulti, typ),
		},
	}, nil
}

// Record returns the canonical record. Ownership stays with m unless the
// caller arranges otherwise.
func (m *Multi) Record() Record { return m.rec }

// Layout returns the typed record layout used in generated headers.
func (m *Multi) Layout() *repr.Layout { return m.layout }

// Call checks args against the signature and invokes the closure.
func (m *Multi) Call(args ...any) (any, error) {
	if _, err := invoke.Args(m.typ, 0, args); err != nil {
		return nil, err
	}
	return m.rec.Invoke(args...), nil
}

// Release frees the environment. Releasing twice is a contract violation.
func (m *Multi) Release() {
	if !m.released.CompareAndSwap(false, true) {
		contract.Violation(errors.KindDoubleRelease, "closure %#x released twice", uint64(m.rec.Env))
		return
	}
	m.rec.Free()
}

const (
	onceReady uint32 = iota
	onceCalled
	onceReleased
)

// Once is an owned closure that may be called at most once. Calling it
// consumes the environment.
type Once struct {
	layout *repr.Layout
	typ    reflect.Type
	rec    Record
	state  atomic.Uint32
}

// NewOnce wraps fn as a call-once closure.
func NewOnce(fn any) (*Once, error) {
	v, layout, err := prepare(flavorOnce, fn)
	if err != nil {
		return nil, err
	}
	typ := v.Type()
	return &Once{
		layout: layout,
		typ:    typ,
		rec: Record{
			Env:     heap.Default.Alloc(&env{fn: v}),
			Call:    callEntry(flavorOnce, typ),
			Release: releaseEntry(flavorOnce, typ),
		},
	}, nil
}

// Record returns the canonical record.
func (o *Once) Record() Record { return o.rec }

// Layout returns the typed record layout used in generated headers.
func (o *Once) Layout() *repr.Layout { return o.layout }

// Call invokes the closure and consumes it. A second call is a contract
// violation.
func (o *Once) Call(args ...any) (any, error) {
	if _, err := invoke.Args(o.typ, 0, args); err != nil {
		return nil, err
	}
	if !o.state.CompareAndSwap(onceReady, onceCalled) {
		contract.Violation(errors.KindUseAfterRelease, "once closure %#x called after it was consumed", uint64(o.rec.Env))
		return nil, nil
	}
	return o.rec.Invoke(args...), nil
}

// Release frees a closure that was never called. After a call it is a
// no-op.
func (o *Once) Release() {
	switch {
	case o.state.CompareAndSwap(onceReady, onceReleased):
		o.rec.Free()
	case o.state.CompareAndSwap(onceCalled, onceReleased):
	default:
		contract.Violation(errors.KindDoubleRelease, "once closure %#x released twice", uint64(o.rec.Env))
	}
}

// Shared is a reference-counted closure safe to call from many goroutines.
// Every holder owns one reference.
type Shared struct {
	layout   *repr.Layout
	typ      reflect.Type
	rec      SharedRecord
	released atomic.Bool
}

// NewShared wraps fn as a shared closure with one reference.
func NewShared(fn any) (*Shared, error) {
	v, layout, err := prepare(flavorShared, fn)
	if err != nil {
		return nil, err
	}
	typ := v.Type()
	e := &env{fn: v}
	e.count.Store(1)
	return &Shared{
		layout: layout,
		typ:    typ,
		rec: SharedRecord{
			Env:     heap.Default.Alloc(e),
			Call:    callEntry(flavorShared, typ),
			Release: releaseEntry(flavorShared, typ),
			Retain:  retainEntry(typ),
		},
	}, nil
}

// Record returns this holder's record without retaining it.
func (s *Shared) Record() SharedRecord { return s.rec }

// Layout returns the typed record layout used in generated headers.
func (s *Shared) Layout() *repr.Layout { return s.layout }

// Clone retains the closure and returns a handle for a new holder.
func (s *Shared) Clone() *Shared {
	return &Shared{layout: s.layout, typ: s.typ, rec: s.rec.Clone()}
}

// Call checks args against the signature and invokes the closure.
func (s *Shared) Call(args ...any) (any, error) {
	if _, err := invoke.Args(s.typ, 0, args); err != nil {
		return nil, err
	}
	return s.rec.Invoke(args...), nil
}

// Count returns the number of live references, or zero once freed.
func (s *Shared) Count() int64 {
	e, ok := heap.Typed[*env](heap.Default, s.rec.Env)
	if !ok {
		return 0
	}
	return e.count.Load()
}

// Release drops this holder's reference.
func (s *Shared) Release() {
	if !s.released.CompareAndSwap(false, true) {
		contract.Violation(errors.KindDoubleRelease, "shared closure handle %#x released twice", uint64(s.rec.Env))
		return
	}
	s.rec.Free()
}

// Result converts a closure result to R.
func Result[R any](v any, err error) (R, error) {
	var zero R
	if err != nil {
		return zero, err
	}
	r, ok := v.(R)
	if !ok {
		return zero, errors.TypeMismatch(errors.PhaseCall, []string{"result"}, abi.TypeName(v), reflect.TypeFor[R]().String())
	}
	return r, nil
}

func prepare(f flavor, fn any) (reflect.Value, *repr.Layout, error) {
	if fn == nil {
		return reflect.Value{}, nil, errors.InvalidInput(errors.PhaseRegister, "closure target is nil")
	}
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return reflect.Value{}, nil, errors.New(errors.PhaseRegister, errors.KindInvalidInput).
			GoType(abi.TypeName(fn)).
			Detail("closure target must be a non-nil func").
			Build()
	}
	layout, err := recordLayout(f, v.Type())
	if err != nil {
		return reflect.Value{}, nil, err
	}
	return v, layout, nil
}
