package boxed

import (
	"reflect"
	"sync/atomic"

	ffibridge "github.com/wippyai/ffi-bridge"
	"github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/fnptr"
	"github.com/wippyai/ffi-bridge/heap"
	"github.com/wippyai/ffi-bridge/internal/contract"
	"github.com/wippyai/ffi-bridge/repr"
)

// Shared is a reference-counted pointer record: the data pointer and the
// retain/release entry points the foreign side calls. The value is freed
// exactly once, when the count reaches zero.
type Shared[T any] struct {
	Ptr     repr.NonNull[T]
	Retain  fnptr.Ptr
	Release fnptr.Ptr
}

// ReprName names the record after its element, e.g. Arc_Point.
func (Shared[T]) ReprName() string {
	return "Arc_" + repr.IdentOf(reflect.TypeFor[T]())
}

// AnnotateLayout attaches the retain/release signatures.
func (Shared[T]) AnnotateLayout(l *repr.Layout) {
	sig := &repr.Signature{Params: []repr.Param{{Name: "ptr", Layout: l.Fields[0].Layout}}}
	l.Fields[1].Layout = repr.FuncPtr(sig, false)
	l.Fields[2].Layout = repr.FuncPtr(sig, false)
}

type sharedCell[T any] struct {
	value T
	count atomic.Int64
}

// Drop forwards to the value's Drop once the last reference is gone.
func (c *sharedCell[T]) Drop() {
	if d, ok := any(&c.value).(heap.Dropper); ok {
		d.Drop()
	}
}

type sharedKey struct {
	op  string
	typ reflect.Type
}

// NewShared moves v into the address space with a count of one.
func NewShared[T any](v T) Shared[T] {
	cell := &sharedCell[T]{value: v}
	cell.count.Store(1)
	addr := heap.Default.Alloc(cell)

	typ := reflect.TypeFor[T]()
	name := Shared[T]{}.ReprName()
	return Shared[T]{
		Ptr: repr.NonNull[T](addr),
		Retain: fnptr.Default.Intern(sharedKey{"retain", typ}, name+"_retain", func() any {
			return func(addr ffibridge.Addr) { retainShared[T](addr) }
		}),
		Release: fnptr.Default.Intern(sharedKey{"release", typ}, name+"_release", func() any {
			return func(addr ffibridge.Addr) { releaseShared[T](addr) }
		}),
	}
}

func loadCell[T any](addr ffibridge.Addr) *sharedCell[T] {
	cell, ok := heap.Typed[*sharedCell[T]](heap.Default, addr)
	if !ok {
		contract.Violation(errors.KindUseAfterRelease, "shared pointer %#x used after its last release", uint64(addr))
	}
	return cell
}

func retainShared[T any](addr ffibridge.Addr) {
	cell := loadCell[T](addr)
	if cell == nil {
		return
	}
	if n := cell.count.Add(1); n <= 1 {
		contract.Violation(errors.KindUseAfterRelease, "shared pointer %#x retained after its last release", uint64(addr))
	}
}

func releaseShared[T any](addr ffibridge.Addr) {
	cell, ok := heap.Typed[*sharedCell[T]](heap.Default, addr)
	if !ok {
		contract.Violation(errors.KindDoubleRelease, "shared pointer %#x released after its last release", uint64(addr))
		return
	}
	switch n := cell.count.Add(-1); {
	case n == 0:
		heap.Default.Free(addr)
	case n < 0:
		contract.Violation(errors.KindDoubleRelease, "shared pointer %#x released more times than retained", uint64(addr))
	}
}

// Addr returns the data address.
func (s Shared[T]) Addr() ffibridge.Addr { return ffibridge.Addr(s.Ptr) }

// Clone retains the value through the record's retain entry point and
// returns the same record for the new holder.
func (s Shared[T]) Clone() Shared[T] {
	fnptr.Call[func(ffibridge.Addr)](fnptr.Default, s.Retain)(s.Addr())
	return s
}

// Drop releases this holder's reference through the record's release entry
// point.
func (s Shared[T]) Drop() {
	fnptr.Call[func(ffibridge.Addr)](fnptr.Default, s.Release)(s.Addr())
}

// Get returns the shared value. Using a fully released pointer is a
// contract violation.
func (s Shared[T]) Get() *T {
	cell := loadCell[T](s.Addr())
	if cell == nil {
		return nil
	}
	return &cell.value
}

// Count returns the current reference count, or zero once freed.
func (s Shared[T]) Count() int64 {
	cell, ok := heap.Typed[*sharedCell[T]](heap.Default, s.Addr())
	if !ok {
		return 0
	}
	return cell.count.Load()
}
