package heap

import (
	"sync"

	"go.uber.org/zap"

	ffibridge "github.com/wippyai/ffi-bridge"
)

// Heap maps foreign-visible addresses to host values.
//
// An address packs a 1-based slot index in its low 32 bits and the slot's
// generation in its high 32 bits. Slots are reused through a free list; the
// generation changes on every release so a stale address never resolves to
// the slot's next occupant.
type Heap struct {
	entries   []entry
	freeList  []uint32
	observers []Observer
	mu        sync.RWMutex
	obsMu     sync.RWMutex
	closed    bool
}

type entry struct {
	value any
	gen   uint32
	valid bool
}

// Default is the process-wide address space.
var Default = New()

// New creates an empty heap.
func New() *Heap {
	return &Heap{
		entries:  make([]entry, 0, 64),
		freeList: make([]uint32, 0, 16),
	}
}

func pack(idx, gen uint32) ffibridge.Addr {
	return ffibridge.Addr(uint64(gen)<<32 | uint64(idx+1))
}

func unpack(addr ffibridge.Addr) (idx, gen uint32, ok bool) {
	low := uint32(addr)
	if low == 0 {
		return 0, 0, false
	}
	return low - 1, uint32(addr >> 32), true
}

// Alloc stores value and returns its address. It returns the null address
// once the heap is closed.
func (h *Heap) Alloc(value any) ffibridge.Addr {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ffibridge.Null
	}

	var idx uint32
	if n := len(h.freeList); n > 0 {
		idx = h.freeList[n-1]
		h.freeList = h.freeList[:n-1]
	} else {
		h.entries = append(h.entries, entry{})
		idx = uint32(len(h.entries) - 1)
	}

	e := &h.entries[idx]
	e.value = value
	e.valid = true
	addr := pack(idx, e.gen)
	h.mu.Unlock()

	Logger().Debug("alloc", zap.Uint64("addr", uint64(addr)))
	h.notify(Event{Type: EventAllocated, Addr: addr, Value: value})
	return addr
}

// Load returns the value stored at addr.
func (h *Heap) Load(addr ffibridge.Addr) (any, bool) {
	idx, gen, ok := unpack(addr)
	if !ok {
		return nil, false
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if int(idx) >= len(h.entries) {
		return nil, false
	}
	e := h.entries[idx]
	if !e.valid || e.gen != gen {
		return nil, false
	}
	return e.value, true
}

// Live reports whether addr refers to a live allocation.
func (h *Heap) Live(addr ffibridge.Addr) bool {
	_, ok := h.Load(addr)
	return ok
}

// Free releases the allocation at addr and returns its value. Values that
// implement Dropper are dropped after the slot is released. Free reports
// false for null, stale or unknown addresses.
func (h *Heap) Free(addr ffibridge.Addr) (any, bool) {
	idx, gen, ok := unpack(addr)
	if !ok {
		return nil, false
	}

	h.mu.Lock()
	if int(idx) >= len(h.entries) {
		h.mu.Unlock()
		return nil, false
	}
	e := &h.entries[idx]
	if !e.valid || e.gen != gen {
		h.mu.Unlock()
		return nil, false
	}

	value := e.value
	e.value = nil
	e.valid = false
	e.gen++
	h.freeList = append(h.freeList, idx)
	h.mu.Unlock()

	if d, ok := value.(Dropper); ok {
		d.Drop()
	}

	Logger().Debug("free", zap.Uint64("addr", uint64(addr)))
	h.notify(Event{Type: EventReleased, Addr: addr, Value: value})
	return value, true
}

// Len returns the number of live allocations.
func (h *Heap) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries) - len(h.freeList)
}

// Each iterates over live allocations.
func (h *Heap) Each(fn func(ffibridge.Addr, any) bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for i, e := range h.entries {
		if e.valid {
			if !fn(pack(uint32(i), e.gen), e.value) {
				break
			}
		}
	}
}

// Subscribe adds an observer for lifecycle events.
func (h *Heap) Subscribe(o Observer) {
	h.obsMu.Lock()
	defer h.obsMu.Unlock()
	h.observers = append(h.observers, o)
}

// Unsubscribe removes an observer.
func (h *Heap) Unsubscribe(o Observer) {
	h.obsMu.Lock()
	defer h.obsMu.Unlock()
	for i, obs := range h.observers {
		if obs == o {
			h.observers = append(h.observers[:i], h.observers[i+1:]...)
			return
		}
	}
}

// Close releases every live allocation and stops accepting new ones.
func (h *Heap) Close() error {
	var addrs []ffibridge.Addr
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	for i, e := range h.entries {
		if e.valid {
			addrs = append(addrs, pack(uint32(i), e.gen))
		}
	}
	h.mu.Unlock()

	for _, a := range addrs {
		h.Free(a)
	}
	return nil
}

func (h *Heap) notify(e Event) {
	h.obsMu.RLock()
	defer h.obsMu.RUnlock()
	for _, o := range h.observers {
		o.OnHeapEvent(e)
	}
}

// Typed loads the value at addr as a T.
func Typed[T any](h *Heap, addr ffibridge.Addr) (T, bool) {
	v, ok := h.Load(addr)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
