package heap

import (
	"sync"
	"testing"

	ffibridge "github.com/wippyai/ffi-bridge"
)

type testObserver struct {
	events []Event
}

func (o *testObserver) OnHeapEvent(e Event) {
	o.events = append(o.events, e)
}

func TestHeap_Basic(t *testing.T) {
	h := New()

	addr := h.Alloc("test")
	if addr.IsNull() {
		t.Fatal("Expected non-null address")
	}

	val, ok := h.Load(addr)
	if !ok {
		t.Fatal("Load failed")
	}
	if val != "test" {
		t.Fatalf("Expected 'test', got %v", val)
	}

	s, ok := Typed[string](h, addr)
	if !ok || s != "test" {
		t.Fatalf("Typed[string] = %q, %v", s, ok)
	}
	if _, ok := Typed[int](h, addr); ok {
		t.Fatal("Typed[int] should fail for a string value")
	}

	val, ok = h.Free(addr)
	if !ok || val != "test" {
		t.Fatalf("Free = %v, %v", val, ok)
	}

	if h.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Free")
	}
}

func TestHeap_NullAddress(t *testing.T) {
	h := New()
	if _, ok := h.Load(ffibridge.Null); ok {
		t.Fatal("Load(Null) should fail")
	}
	if _, ok := h.Free(ffibridge.Null); ok {
		t.Fatal("Free(Null) should fail")
	}
}

func TestHeap_StaleAddressAfterReuse(t *testing.T) {
	h := New()

	first := h.Alloc("a")
	h.Free(first)

	second := h.Alloc("b")
	if uint32(first) != uint32(second) {
		t.Fatalf("expected slot reuse, got %#x and %#x", first, second)
	}
	if first == second {
		t.Fatal("reused slot must carry a new generation")
	}

	if h.Live(first) {
		t.Fatal("stale address must not resolve")
	}
	if _, ok := h.Free(first); ok {
		t.Fatal("second release of stale address must fail")
	}
	if v, _ := h.Load(second); v != "b" {
		t.Fatalf("Load(second) = %v", v)
	}
}

func TestHeap_Observer(t *testing.T) {
	h := New()
	obs := &testObserver{}
	h.Subscribe(obs)

	addr := h.Alloc("test")
	if len(obs.events) != 1 || obs.events[0].Type != EventAllocated {
		t.Fatalf("expected EventAllocated, got %v", obs.events)
	}
	if obs.events[0].Addr != addr {
		t.Fatal("Wrong address in event")
	}

	h.Free(addr)
	if len(obs.events) != 2 || obs.events[1].Type != EventReleased {
		t.Fatalf("expected EventReleased, got %v", obs.events)
	}

	h.Unsubscribe(obs)
	h.Alloc("test2")
	if len(obs.events) != 2 {
		t.Fatal("Should not receive events after Unsubscribe")
	}
}

type dropCounter struct {
	count int
}

func (d *dropCounter) Drop() {
	d.count++
}

func TestHeap_Dropper(t *testing.T) {
	h := New()
	d := &dropCounter{}

	addr := h.Alloc(d)
	h.Free(addr)
	h.Free(addr)

	if d.count != 1 {
		t.Fatalf("Expected Drop() to be called once, called %d times", d.count)
	}
}

func TestHeap_Close(t *testing.T) {
	h := New()
	d := &dropCounter{}

	h.Alloc(d)
	h.Alloc("b")

	if err := h.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if d.count != 1 {
		t.Fatalf("Close should drop live values, dropped %d", d.count)
	}
	if h.Len() != 0 {
		t.Fatalf("Len() = %d after Close", h.Len())
	}
	if !h.Alloc("c").IsNull() {
		t.Fatal("Expected Alloc to fail after Close")
	}
}

func TestHeap_Each(t *testing.T) {
	h := New()
	a := h.Alloc(1)
	h.Alloc(2)
	h.Free(a)
	h.Alloc(3)

	sum := 0
	h.Each(func(_ ffibridge.Addr, v any) bool {
		sum += v.(int)
		return true
	})
	if sum != 5 {
		t.Fatalf("sum = %d, want 5", sum)
	}
}

func TestHeap_Concurrent(t *testing.T) {
	h := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				addr := h.Alloc(n)
				if v, ok := h.Load(addr); !ok || v != n {
					t.Errorf("Load = %v, %v", v, ok)
					return
				}
				h.Free(addr)
			}
		}(i)
	}
	wg.Wait()
	if h.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", h.Len())
	}
}

func BenchmarkHeap_AllocFree(b *testing.B) {
	h := New()
	for i := 0; i < b.N; i++ {
		h.Free(h.Alloc(i))
	}
}
