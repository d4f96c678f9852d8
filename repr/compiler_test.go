package repr

import (
	"reflect"
	"testing"

	ffibridge "github.com/wippyai/ffi-bridge"
	"github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/fnptr"
)

type point struct {
	X float32
	Y float32
}

type mixed struct {
	Flag    bool
	Count   uint64
	Code    int16
	Letter  Char
	OriginX float32 `ffi:"origin"`
}

type padded struct {
	Tag uint8
	_   [3]uint8
	Len uint32
}

type node struct {
	Value int32
	Next  Ptr[node]
}

type status uint8

func (status) EnumCases() []string { return []string{"idle", "running", "done"} }

type pair[T any] struct {
	A T
	B T
}

func (pair[T]) ReprName() string { return "Pair" }

type callbacks struct {
	OnEvent fnptr.Ptr
	Ctx     ffibridge.Addr
}

func (callbacks) AnnotateLayout(l *Layout) {
	l.Doc = "event callbacks"
	l.Fields[0].Layout = FuncPtr(&Signature{Params: []Param{{Name: "ctx", Layout: PointerTo(nil, true)}}}, false)
}

func TestCompiler_Primitives(t *testing.T) {
	tests := []struct {
		name  string
		typ   reflect.Type
		kind  Kind
		size  uint32
		align uint32
	}{
		{"bool", reflect.TypeFor[bool](), KindBool, 1, 1},
		{"int8", reflect.TypeFor[int8](), KindI8, 1, 1},
		{"uint16", reflect.TypeFor[uint16](), KindU16, 2, 2},
		{"int32", reflect.TypeFor[int32](), KindI32, 4, 4},
		{"uint64", reflect.TypeFor[uint64](), KindU64, 8, 8},
		{"float32", reflect.TypeFor[float32](), KindF32, 4, 4},
		{"float64", reflect.TypeFor[float64](), KindF64, 8, 8},
		{"uintptr", reflect.TypeFor[uintptr](), KindUsize, 8, 8},
		{"char", reflect.TypeFor[Char](), KindChar, 4, 4},
		{"addr", reflect.TypeFor[ffibridge.Addr](), KindPointer, 8, 8},
		{"cstr", reflect.TypeFor[CStr](), KindPointer, 8, 8},
		{"fnptr", reflect.TypeFor[fnptr.Ptr](), KindFuncPtr, 8, 8},
	}

	c := NewCompiler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct, err := c.Compile(tt.typ)
			if err != nil {
				t.Fatalf("Compile failed: %v", err)
			}
			l := ct.Layout()
			if l.Kind != tt.kind || l.Size != tt.size || l.Align != tt.align {
				t.Errorf("got %v size %d align %d, want %v size %d align %d",
					l.Kind, l.Size, l.Align, tt.kind, tt.size, tt.align)
			}
		})
	}
}

func TestCompiler_StructLayout(t *testing.T) {
	c := NewCompiler()

	ct, err := c.Compile(reflect.TypeFor[point]())
	if err != nil {
		t.Fatalf("Compile point failed: %v", err)
	}
	l := ct.Layout()
	if l.Name != "point" || l.Size != 8 || l.Align != 4 {
		t.Errorf("point layout = %s size %d align %d", l.Name, l.Size, l.Align)
	}
	if l.Fields[0].Name != "x" || l.Fields[1].Offset != 4 {
		t.Errorf("point fields = %+v", l.Fields)
	}

	ct, err = c.Compile(reflect.TypeFor[mixed]())
	if err != nil {
		t.Fatalf("Compile mixed failed: %v", err)
	}
	l = ct.Layout()
	wantOffsets := map[string]uint32{"flag": 0, "count": 8, "code": 16, "letter": 20, "origin": 24}
	for name, off := range wantOffsets {
		f, ok := l.Field(name)
		if !ok {
			t.Errorf("field %q missing", name)
			continue
		}
		if f.Offset != off {
			t.Errorf("field %q offset = %d, want %d", name, f.Offset, off)
		}
	}
	if l.Size != 32 || l.Align != 8 {
		t.Errorf("mixed size %d align %d, want 32/8", l.Size, l.Align)
	}
}

func TestCompiler_Padding(t *testing.T) {
	d := mustDescriptor[padded](t)
	l := d.Layout()
	if l.Size != 8 || !l.Fields[1].Padding {
		t.Fatalf("padded layout = %+v", l)
	}

	b := d.Lower(padded{Tag: 7, Len: 9})
	if b[1] != 0 || b[2] != 0 || b[3] != 0 {
		t.Errorf("padding not zeroed: %x", b)
	}
	b[2] = 0xff
	if !d.IsValid(b) {
		t.Error("padding bytes must not affect validity")
	}
}

func TestCompiler_Recursive(t *testing.T) {
	c := NewCompiler()
	ct, err := c.Compile(reflect.TypeFor[node]())
	if err != nil {
		t.Fatalf("Compile node failed: %v", err)
	}
	l := ct.Layout()
	next, _ := l.Field("next")
	if next.Layout.Kind != KindPointer || next.Layout.Elem != l {
		t.Errorf("next should point back to node layout, got %v", next.Layout)
	}
	if !next.Layout.Nullable {
		t.Error("Ptr should be nullable")
	}
}

func TestCompiler_Enum(t *testing.T) {
	d := mustDescriptor[status](t)
	l := d.Layout()
	if l.Kind != KindEnum || l.Size != 1 || len(l.Cases) != 3 {
		t.Fatalf("status layout = %+v", l)
	}
	if !d.IsValid([]byte{2}) || d.IsValid([]byte{3}) {
		t.Error("enum validity should accept 0..2 only")
	}
	n, ok := d.Niche()
	if !ok || n.Pattern[0] != 3 {
		t.Errorf("enum niche = %+v, %v", n, ok)
	}
}

func TestCompiler_NamedAndAnnotated(t *testing.T) {
	c := NewCompiler()

	ct, err := c.Compile(reflect.TypeFor[pair[int32]]())
	if err != nil {
		t.Fatalf("Compile pair failed: %v", err)
	}
	if ct.Layout().Name != "Pair" {
		t.Errorf("Name = %q, want Pair", ct.Layout().Name)
	}

	ct, err = c.Compile(reflect.TypeFor[callbacks]())
	if err != nil {
		t.Fatalf("Compile callbacks failed: %v", err)
	}
	l := ct.Layout()
	if l.Doc != "event callbacks" {
		t.Errorf("Doc = %q", l.Doc)
	}
	if sig := l.Fields[0].Layout.Sig; sig == nil || len(sig.Params) != 1 {
		t.Errorf("annotated signature missing: %+v", l.Fields[0].Layout)
	}
}

func TestCompiler_Rejects(t *testing.T) {
	tests := []struct {
		name string
		typ  reflect.Type
	}{
		{"string", reflect.TypeFor[string]()},
		{"slice", reflect.TypeFor[[]int32]()},
		{"map", reflect.TypeFor[map[string]int32]()},
		{"interface", reflect.TypeFor[any]()},
		{"chan", reflect.TypeFor[chan int32]()},
		{"func", reflect.TypeFor[func()]()},
		{"go pointer", reflect.TypeFor[*point]()},
		{"int", reflect.TypeFor[int]()},
		{"complex", reflect.TypeFor[complex128]()},
		{"anonymous struct", reflect.TypeFor[struct{ A int32 }]()},
		{"empty struct", reflect.TypeFor[struct{}]()},
		{"nested slice", reflect.TypeFor[struct{ Items []int32 }]()},
		{"option without niche", reflect.TypeFor[Option[uint32]]()},
		{"option of nullable pointer", reflect.TypeFor[Option[Ptr[point]]]()},
	}

	c := NewCompiler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Compile(tt.typ)
			if err == nil {
				t.Fatal("expected error")
			}
			var e *errors.Error
			if !errors.As(err, &e) || e.Kind != errors.KindUnsupported {
				t.Errorf("got %v, want unsupported", err)
			}
		})
	}
}

func TestCompiler_Cache(t *testing.T) {
	c := NewCompiler()
	a, err := c.Compile(reflect.TypeFor[point]())
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.Compile(reflect.TypeFor[point]())
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("compiled types should be cached per Go type")
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"X":         "x",
		"OriginX":   "origin_x",
		"HTTPCode":  "http_code",
		"Count2D":   "count2_d",
		"lowercase": "lowercase",
	}
	for in, want := range tests {
		if got := toSnakeCase(in); got != want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func mustDescriptor[T any](t *testing.T) *Descriptor[T] {
	t.Helper()
	d, err := Of[T]()
	if err != nil {
		t.Fatalf("Of[%T] failed: %v", *new(T), err)
	}
	return d
}
