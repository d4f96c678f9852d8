// Package fnptr implements the function table behind every function pointer
// that crosses the boundary.
//
// A Ptr is a 1-based index into an append-only Table; zero is the null
// function pointer. Entries are registered once (trampolines are interned per
// concrete host type) and never removed, so a Ptr stays callable for the
// lifetime of the process.
//
// Resolve is the single place where an erased entry is reinterpreted as a
// concrete signature.
package fnptr

import (
	"reflect"
	"sync"

	"github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/internal/contract"
)

// Ptr is a foreign-visible function pointer. Zero is null.
type Ptr uint64

// IsNull reports whether p is the null function pointer.
func (p Ptr) IsNull() bool { return p == 0 }

// Table is an append-only function table.
type Table struct {
	keys  map[any]Ptr
	slots []slot
	mu    sync.RWMutex
}

type slot struct {
	fn   any
	typ  reflect.Type
	name string
}

// Default is the process-wide function table.
var Default = NewTable()

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{keys: make(map[any]Ptr)}
}

// Register appends fn and returns its pointer. fn must be a non-nil func.
func (t *Table) Register(name string, fn any) (Ptr, error) {
	typ := reflect.TypeOf(fn)
	if typ == nil || typ.Kind() != reflect.Func || reflect.ValueOf(fn).IsNil() {
		return 0, errors.New(errors.PhaseRegister, errors.KindInvalidInput).
			Path(name).
			Detail("function pointer target must be a non-nil func, got %T", fn).
			Build()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.appendLocked(name, fn, typ), nil
}

// Intern returns the pointer registered under key, building and registering
// it on first use. build must return a non-nil func.
func (t *Table) Intern(key any, name string, build func() any) Ptr {
	t.mu.RLock()
	p, ok := t.keys[key]
	t.mu.RUnlock()
	if ok {
		return p
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.keys[key]; ok {
		return p
	}
	fn := build()
	p = t.appendLocked(name, fn, reflect.TypeOf(fn))
	t.keys[key] = p
	return p
}

func (t *Table) appendLocked(name string, fn any, typ reflect.Type) Ptr {
	t.slots = append(t.slots, slot{fn: fn, typ: typ, name: name})
	return Ptr(len(t.slots))
}

// Name returns the debug name registered for p.
func (t *Table) Name(p Ptr) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if p == 0 || int(p) > len(t.slots) {
		return ""
	}
	return t.slots[p-1].name
}

// Len returns the number of registered entries.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.slots)
}

// Resolve reinterprets p as a function of type F. It reports false for the
// null pointer, unknown pointers and signature mismatches.
func Resolve[F any](t *Table, p Ptr) (F, bool) {
	var zero F
	if p == 0 {
		return zero, false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if int(p) > len(t.slots) {
		return zero, false
	}
	f, ok := t.slots[p-1].fn.(F)
	return f, ok
}

// Call resolves p for immediate invocation. A null, unknown or mistyped
// pointer is a contract violation.
func Call[F any](t *Table, p Ptr) F {
	f, ok := Resolve[F](t, p)
	if !ok {
		if p == 0 {
			contract.Violation(errors.KindNilPointer, "null function pointer invoked")
		}
		contract.Violation(errors.KindTypeMismatch, "function pointer %d (%s) does not have the declared signature", p, t.Name(p))
	}
	return f
}
