package boxed

import (
	"sync/atomic"

	ffibridge "github.com/wippyai/ffi-bridge"
	"github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/heap"
	"github.com/wippyai/ffi-bridge/internal/abi"
	"github.com/wippyai/ffi-bridge/internal/contract"
)

const (
	stateLive uint32 = iota
	stateLeaked
	stateReleased
)

// Box owns one host value in the process address space. The value is
// released exactly once: by Release or Into, by Drop when the box never
// crossed the boundary, or by the foreign side calling Free on a leaked
// address.
type Box[T any] struct {
	addr  ffibridge.Addr
	state atomic.Uint32
}

// New moves v into the address space.
func New[T any](v T) *Box[T] {
	p := new(T)
	*p = v
	return &Box[T]{addr: heap.Default.Alloc(p)}
}

// FromAddr takes ownership of a leaked address, typically in an exported
// release function. The address must hold a live T.
func FromAddr[T any](addr ffibridge.Addr) *Box[T] {
	if _, ok := heap.Typed[*T](heap.Default, addr); !ok {
		if heap.Default.Live(addr) {
			contract.Violation(errors.KindTypeMismatch, "address %#x does not hold a %s", uint64(addr), abi.TypeName(new(T)))
		}
		contract.Violation(errors.KindUseAfterRelease, "address %#x is not live", uint64(addr))
	}
	return &Box[T]{addr: addr}
}

// Addr returns the foreign-visible address.
func (b *Box[T]) Addr() ffibridge.Addr { return b.addr }

// Get returns the boxed value. Using a released box is a contract
// violation.
func (b *Box[T]) Get() *T {
	p, ok := heap.Typed[*T](heap.Default, b.addr)
	if !ok {
		contract.Violation(errors.KindUseAfterRelease, "box %#x used after release", uint64(b.addr))
	}
	return p
}

// Leak hands ownership to the foreign side and returns the address. The
// box will no longer release the value on Drop.
func (b *Box[T]) Leak() ffibridge.Addr {
	if !b.state.CompareAndSwap(stateLive, stateLeaked) {
		contract.Violation(errors.KindUseAfterRelease, "box %#x leaked after release", uint64(b.addr))
	}
	return b.addr
}

// Into releases the box and returns the value.
func (b *Box[T]) Into() T {
	v := *b.Get()
	b.Release()
	return v
}

// Release frees the value. Releasing twice is a contract violation.
func (b *Box[T]) Release() {
	prev := b.state.Swap(stateReleased)
	if prev == stateReleased {
		contract.Violation(errors.KindDoubleRelease, "box %#x released twice", uint64(b.addr))
		return
	}
	if _, ok := heap.Default.Free(b.addr); !ok {
		contract.Violation(errors.KindDoubleRelease, "box %#x already freed", uint64(b.addr))
	}
}

// Drop releases the value unless it was leaked or already released. It is
// meant for defer.
func (b *Box[T]) Drop() {
	if b.state.CompareAndSwap(stateLive, stateReleased) {
		heap.Default.Free(b.addr)
	}
}

// Free releases the allocation at addr. It is the release entry point for
// any leaked box or boxed object. Freeing a dead address is a contract
// violation.
func Free(addr ffibridge.Addr) {
	if addr.IsNull() {
		return
	}
	if _, ok := heap.Default.Free(addr); !ok {
		contract.Violation(errors.KindDoubleRelease, "address %#x freed twice or never allocated", uint64(addr))
	}
}
