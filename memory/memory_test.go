package memory

import (
	"context"
	"testing"

	ffibridge "github.com/wippyai/ffi-bridge"
	"github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/repr"
)

type vec2 struct {
	X float32
	Y float32
}

type sprite struct {
	Pos  vec2
	Name repr.CStr
	Next repr.Option[repr.NonNull[sprite]]
}

func TestWrap_Nil(t *testing.T) {
	if Wrap(nil) != nil {
		t.Error("expected nil for nil memory")
	}
}

func TestBuffer_ReadWrite(t *testing.T) {
	buf := NewBuffer(16)

	if err := buf.WriteU32(4, 0xdeadbeef); err != nil {
		t.Fatalf("WriteU32 failed: %v", err)
	}
	v, err := buf.ReadU32(4)
	if err != nil || v != 0xdeadbeef {
		t.Errorf("ReadU32 = %x, %v", v, err)
	}
	if b := buf.Bytes(); b[4] != 0xef {
		t.Errorf("not little-endian: %x", b)
	}

	if err := buf.WriteU64(12, 1); err == nil {
		t.Error("write past end should fail")
	}
	if _, err := buf.Read(15, 2); err == nil {
		t.Error("read past end should fail")
	}
}

func TestWasm_RoundTrip(t *testing.T) {
	ctx := context.Background()
	mem, err := NewWasm(ctx, 1, 4)
	if err != nil {
		t.Fatalf("NewWasm failed: %v", err)
	}
	defer mem.Close(ctx)

	if mem.Size() != PageSize {
		t.Fatalf("Size = %d, want %d", mem.Size(), PageSize)
	}

	arena := NewArena(mem, 0)
	name, err := WriteCString(mem, arena, "ship")
	if err != nil {
		t.Fatalf("WriteCString failed: %v", err)
	}

	d := repr.MustOf[sprite]()
	ptr, err := arena.Alloc(d.Size(), d.Layout().Align)
	if err != nil {
		t.Fatalf("Alloc failed: %v", err)
	}

	in := sprite{Pos: vec2{X: 3, Y: 4}, Name: repr.CStr(name)}
	if err := d.Store(mem, ptr, in); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	out, err := d.Load(mem, ptr)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if out != in {
		t.Errorf("Load = %+v, want %+v", out, in)
	}

	s, err := ReadCString(mem, out.Name.Addr(), 64)
	if err != nil || s != "ship" {
		t.Errorf("ReadCString = %q, %v", s, err)
	}
}

func TestWasm_Grow(t *testing.T) {
	ctx := context.Background()
	mem, err := NewWasm(ctx, 1, 2)
	if err != nil {
		t.Fatalf("NewWasm failed: %v", err)
	}
	defer mem.Close(ctx)

	prev, ok := mem.Grow(1)
	if !ok || prev != 1 {
		t.Errorf("Grow = %d, %v", prev, ok)
	}
	if _, ok := mem.Grow(1); ok {
		t.Error("growing past the limit should fail")
	}
}

func TestNewWasm_InvalidPages(t *testing.T) {
	if _, err := NewWasm(context.Background(), 0, 1); err == nil {
		t.Error("zero pages should be rejected")
	}
}

func TestWriteCString_EmbeddedNul(t *testing.T) {
	buf := NewBuffer(64)
	arena := NewArena(buf, 0)

	_, err := WriteCString(buf, arena, "ab\x00cd")
	var e *errors.Error
	if !errors.As(err, &e) || e.Kind != errors.KindEmbeddedNul {
		t.Fatalf("got %v, want embedded_nul", err)
	}
	if e.Value != 2 {
		t.Errorf("Value = %v, want 2", e.Value)
	}
	if arena.Used() != 0 {
		t.Error("nothing should be allocated for a rejected string")
	}
}

func TestReadCString(t *testing.T) {
	buf := NewBuffer(200)
	long := make([]byte, 150)
	for i := range long {
		long[i] = 'a'
	}
	if err := buf.Write(10, long); err != nil {
		t.Fatal(err)
	}
	if err := buf.Write(195, []byte("bbbbb")); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		addr  ffibridge.Addr
		limit uint32
		want  string
		fail  bool
	}{
		{"spans chunks", 10, 200, string(long), false},
		{"limit", 10, 20, "", true},
		{"null", 0, 10, "", true},
		{"tail", 150, 64, "aaaaaaaaaa", false},
		{"runs off the end", 195, 64, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadCString(buf, tt.addr, tt.limit)
			if tt.fail {
				if err == nil {
					t.Errorf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadCString failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %d bytes, want %d", len(got), len(tt.want))
			}
		})
	}
}

func TestArena(t *testing.T) {
	buf := NewBuffer(64)
	a := NewArena(buf, 0)

	p1, err := a.Alloc(3, 1)
	if err != nil || p1 != 8 {
		t.Fatalf("first alloc = %d, %v", p1, err)
	}
	p2, err := a.Alloc(8, 8)
	if err != nil || p2 != 16 {
		t.Fatalf("aligned alloc = %d, %v", p2, err)
	}
	a.Free(p2, 8, 8)
	p3, _ := a.Alloc(8, 8)
	if p3 != p2 {
		t.Errorf("freeing the last allocation should allow reuse: %d != %d", p3, p2)
	}

	if _, err := a.Alloc(128, 1); err == nil {
		t.Error("oversized allocation should fail")
	}
	if _, err := a.Alloc(1, 3); err == nil {
		t.Error("non power of two alignment should fail")
	}

	a.Reset()
	if a.Used() != 0 {
		t.Errorf("Used after Reset = %d", a.Used())
	}
}
