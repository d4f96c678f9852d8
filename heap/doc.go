// Package heap provides the address space behind every host allocation that
// crosses the boundary as a pointer.
//
// Go values cannot be handed to foreign code by address: the collector may
// move or reclaim them. Instead, the value is stored in a Heap and the
// foreign side receives an opaque, non-null Addr. The value stays reachable
// until exactly one matching Free.
//
//	addr := heap.Default.Alloc(&state)
//
//	v, ok := heap.Default.Load(addr)  // dereference
//	v, ok = heap.Default.Free(addr)   // release, once
//
// Addresses carry a generation, so a released address never resolves again,
// even after its slot is reused. Owning wrappers use this to detect double
// release and use after release in checked builds.
//
// # Observers
//
// Register observers to track allocation lifecycle events:
//
//	heap.Default.Subscribe(heap.ObserverFunc(func(e heap.Event) {
//	    if e.Type == heap.EventReleased {
//	        log.Printf("released %#x", e.Addr)
//	    }
//	}))
//
// # Memory Management
//
// Values are not reclaimed automatically. Every allocation must be released
// by its owner; values implementing Dropper are dropped on release.
package heap
