package repr

import (
	"bytes"
	"testing"
)

// Every niche must be rejected by its type and accepted by the Option of
// that type, and writing the niche must be recognised as absent.
func TestNicheLaw(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
		opt  Type
	}{
		{"bool", mustDescriptor[bool](t).Type(), mustDescriptor[Option[bool]](t).Type()},
		{"char", mustDescriptor[Char](t).Type(), mustDescriptor[Option[Char]](t).Type()},
		{"non-null", mustDescriptor[NonNull[point]](t).Type(), mustDescriptor[Option[NonNull[point]]](t).Type()},
		{"cstr", mustDescriptor[CStr](t).Type(), mustDescriptor[Option[CStr]](t).Type()},
		{"enum", mustDescriptor[status](t).Type(), mustDescriptor[Option[status]](t).Type()},
		{"struct", mustDescriptor[rect](t).Type(), mustDescriptor[Option[rect]](t).Type()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := tt.typ.Niche()
			if !ok {
				t.Fatal("expected a niche")
			}
			b := make([]byte, tt.typ.Layout().Size)
			for i := range b {
				b[i] = 0xaa
			}
			n.Write(b)
			if tt.typ.IsValid(b) {
				t.Errorf("niche %x accepted by the type", b)
			}
			if !tt.opt.IsValid(b) {
				t.Errorf("niche %x rejected by the option", b)
			}
			if !n.Matches(b) {
				t.Error("written niche does not match")
			}
			if tt.opt.Layout().Size != tt.typ.Layout().Size {
				t.Errorf("option size %d != type size %d", tt.opt.Layout().Size, tt.typ.Layout().Size)
			}
			if _, ok := tt.opt.Niche(); ok {
				t.Error("an option must not expose a second niche")
			}
		})
	}
}

func TestNiche_Write(t *testing.T) {
	n := Niche{Offset: 2, Pattern: []byte{9, 9}}
	b := []byte{1, 1, 1, 1, 1}
	n.Write(b)
	if !bytes.Equal(b, []byte{0, 0, 9, 9, 0}) {
		t.Errorf("Write = %x", b)
	}
	if !n.Matches(b) || n.Matches(b[:3]) {
		t.Error("Matches mismatch")
	}
}

func TestValidity_StructConjunction(t *testing.T) {
	d := mustDescriptor[rect](t)
	good := d.Lower(rect{Label: 1})

	tests := []struct {
		name   string
		offset string
		patch  func(b []byte, off uint32)
		valid  bool
	}{
		{"untouched", "", nil, true},
		{"null label", "label", func(b []byte, off uint32) { clear(b[off : off+8]) }, false},
		{"bad kind", "kind", func(b []byte, off uint32) { b[off] = 5 }, false},
		{"absent next", "next", func(b []byte, off uint32) { clear(b[off : off+8]) }, true},
		{"float noise", "min", func(b []byte, off uint32) { b[off] = 0xff; b[off+3] = 0xff }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := append([]byte(nil), good...)
			if tt.patch != nil {
				f, ok := d.Layout().Field(tt.offset)
				if !ok {
					t.Fatalf("field %q missing", tt.offset)
				}
				tt.patch(b, f.Offset)
			}
			if got := d.IsValid(b); got != tt.valid {
				t.Errorf("IsValid = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestValidity_Array(t *testing.T) {
	d := mustDescriptor[[3]bool](t)
	if !d.IsValid([]byte{0, 1, 0}) {
		t.Error("valid array rejected")
	}
	if d.IsValid([]byte{0, 1, 2}) {
		t.Error("invalid element accepted")
	}
	if d.IsValid([]byte{0, 1}) {
		t.Error("short buffer accepted")
	}
}

func TestValidity_Deterministic(t *testing.T) {
	d := mustDescriptor[rect](t)
	b := d.Lower(rect{Label: 1, Kind: 1})
	snapshot := append([]byte(nil), b...)
	for i := 0; i < 3; i++ {
		if !d.IsValid(b) {
			t.Fatal("IsValid changed its answer")
		}
	}
	if !bytes.Equal(b, snapshot) {
		t.Error("IsValid modified its input")
	}
}

func TestLayoutType_Flags(t *testing.T) {
	l := Primitive(KindU8)
	l.Name = "Perms"
	l.Bits = 3
	typ := LayoutType(l)
	if !typ.IsValid([]byte{0b111}) || typ.IsValid([]byte{0b1000}) {
		t.Error("flag mask not enforced")
	}
	n, ok := typ.Niche()
	if !ok || n.Pattern[0] != 0b1000 {
		t.Errorf("flags niche = %+v", n)
	}
}

func TestStructOf(t *testing.T) {
	l, err := StructOf("Sample",
		Field{Name: "a", Layout: Primitive(KindU8)},
		Field{Name: "b", Layout: Primitive(KindU64)},
		Field{Name: "c", Layout: Primitive(KindU16)},
	)
	if err != nil {
		t.Fatal(err)
	}
	want := []uint32{0, 8, 16}
	for i, f := range l.Fields {
		if f.Offset != want[i] {
			t.Errorf("field %s offset %d, want %d", f.Name, f.Offset, want[i])
		}
	}
	if l.Size != 24 || l.Align != 8 {
		t.Errorf("size %d align %d", l.Size, l.Align)
	}

	if _, err := StructOf("Empty"); err == nil {
		t.Error("zero-sized struct accepted")
	}
}

func TestLayout_String(t *testing.T) {
	pt := mustDescriptor[point](t).Layout()
	tests := []struct {
		l    *Layout
		want string
	}{
		{Primitive(KindF32), "f32"},
		{pt, "point"},
		{PointerTo(pt, true), "*point"},
		{ConstPointerTo(CChar(), false), "*const i8"},
		{FuncPtr(&Signature{Params: []Param{{Layout: pt}}, Result: Primitive(KindBool)}, false), "fn(point) -> bool"},
		{mustDescriptor[Option[NonNull[point]]](t).Layout(), "Option<*point>"},
		{mustDescriptor[[4]uint8](t).Layout(), "[u8; 4]"},
	}
	for _, tt := range tests {
		if got := tt.l.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
