package memory

import (
	"sync"

	ffibridge "github.com/wippyai/ffi-bridge"
	"github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/internal/abi"
)

// Arena is a bump allocator over a sized memory. Only the most recent
// allocation can be freed; Reset releases everything.
type Arena struct {
	mem  ffibridge.MemorySizer
	base uint32
	next uint32
	last uint32
	mu   sync.Mutex
}

var _ ffibridge.Allocator = (*Arena)(nil)

// NewArena allocates from mem starting at base. Offset zero is never handed
// out so it stays usable as a null pointer.
func NewArena(mem ffibridge.MemorySizer, base uint32) *Arena {
	if base == 0 {
		base = 8
	}
	return &Arena{mem: mem, base: base, next: base, last: base}
}

// Alloc reserves size bytes aligned to align.
func (a *Arena) Alloc(size, align uint32) (uint32, error) {
	if align == 0 || align&(align-1) != 0 {
		return 0, errors.InvalidInput(errors.PhaseMemory, "alignment must be a power of two")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	ptr := abi.AlignTo(a.next, align)
	end, ok := abi.SafeAddU32(ptr, size)
	if !ok || end > a.mem.Size() {
		return 0, errors.AllocationFailed(errors.PhaseMemory, size, align)
	}
	a.last = a.next
	a.next = end
	return ptr, nil
}

// Free rolls back the most recent allocation; other frees are ignored.
func (a *Arena) Free(ptr, size, align uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if ptr+size == a.next && ptr >= a.last {
		a.next = a.last
	}
}

// Used returns the number of bytes handed out, including alignment gaps.
func (a *Arena) Used() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.next - a.base
}

// Reset releases every allocation.
func (a *Arena) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.next = a.base
	a.last = a.base
}
