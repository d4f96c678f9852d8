package repr

import (
	"testing"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/ffi-bridge/errors"
)

func witName(s string) *string { return &s }

func TestFromWIT_Record(t *testing.T) {
	rec := &wit.TypeDef{
		Name: witName("point-3d"),
		Kind: &wit.Record{Fields: []wit.Field{
			{Name: "x", Type: wit.F32{}},
			{Name: "y", Type: wit.F32{}},
			{Name: "z-index", Type: wit.U16{}},
		}},
	}

	typ, err := FromWIT(rec)
	if err != nil {
		t.Fatalf("FromWIT failed: %v", err)
	}
	l := typ.Layout()
	if l.Name != "Point3d" || l.Size != 12 || l.Align != 4 {
		t.Errorf("layout = %s size %d align %d", l.Name, l.Size, l.Align)
	}
	if f, ok := l.Field("z_index"); !ok || f.Offset != 8 {
		t.Errorf("z_index = %+v, %v", f, ok)
	}
}

func TestFromWIT_Enum(t *testing.T) {
	enum := &wit.TypeDef{
		Name: witName("color"),
		Kind: &wit.Enum{Cases: []wit.EnumCase{{Name: "red"}, {Name: "green"}, {Name: "blue"}}},
	}
	typ, err := FromWIT(enum)
	if err != nil {
		t.Fatalf("FromWIT failed: %v", err)
	}
	if typ.Layout().Kind != KindEnum || typ.Layout().Size != 1 {
		t.Errorf("layout = %+v", typ.Layout())
	}
	if !typ.IsValid([]byte{2}) || typ.IsValid([]byte{3}) {
		t.Error("enum validity mismatch")
	}
}

func TestFromWIT_Flags(t *testing.T) {
	flags := &wit.TypeDef{
		Name: witName("perms"),
		Kind: &wit.Flags{Flags: []wit.Flag{{Name: "read"}, {Name: "write"}}},
	}
	typ, err := FromWIT(flags)
	if err != nil {
		t.Fatalf("FromWIT failed: %v", err)
	}
	if typ.Layout().Kind != KindU8 || typ.Layout().Bits != 2 {
		t.Errorf("layout = %+v", typ.Layout())
	}
	if !typ.IsValid([]byte{3}) || typ.IsValid([]byte{4}) {
		t.Error("flags validity mismatch")
	}
}

func TestFromWIT_Tuple(t *testing.T) {
	tuple := &wit.TypeDef{
		Kind: &wit.Tuple{Types: []wit.Type{wit.U32{}, wit.U64{}}},
	}
	typ, err := FromWIT(tuple)
	if err != nil {
		t.Fatalf("FromWIT failed: %v", err)
	}
	l := typ.Layout()
	if l.Name != "Tuple2_u32_u64" || l.Size != 16 {
		t.Errorf("layout = %s size %d", l.Name, l.Size)
	}
}

func TestFromWIT_Rejects(t *testing.T) {
	tests := []struct {
		name string
		typ  wit.Type
	}{
		{"string", wit.String{}},
		{"list", &wit.TypeDef{Kind: &wit.List{Type: wit.U8{}}}},
		{"option", &wit.TypeDef{Kind: &wit.Option{Type: wit.U32{}}}},
		{"record with string", &wit.TypeDef{
			Name: witName("named"),
			Kind: &wit.Record{Fields: []wit.Field{{Name: "s", Type: wit.String{}}}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromWIT(tt.typ)
			var e *errors.Error
			if !errors.As(err, &e) || e.Kind != errors.KindUnsupported {
				t.Errorf("got %v, want unsupported", err)
			}
		})
	}
}

func TestFromResolve(t *testing.T) {
	point := &wit.TypeDef{
		Name: witName("point"),
		Kind: &wit.Record{Fields: []wit.Field{
			{Name: "x", Type: wit.S32{}},
			{Name: "y", Type: wit.S32{}},
		}},
	}
	res := &wit.Resolve{TypeDefs: []*wit.TypeDef{
		point,
		{Name: witName("label"), Kind: wit.String{}},
		{Kind: &wit.Tuple{Types: []wit.Type{wit.U8{}}}},
		{Name: witName("mode"), Kind: &wit.Enum{Cases: []wit.EnumCase{{Name: "read-only"}, {Name: "read-write"}}}},
		{Name: witName("segment"), Kind: &wit.Record{Fields: []wit.Field{
			{Name: "from", Type: point},
			{Name: "to", Type: point},
		}}},
		{Name: witName("position"), Kind: point},
	}}

	types, skipped := FromResolve(res)
	if len(skipped) != 2 || skipped[0] != "label" || skipped[1] != "position" {
		t.Errorf("skipped = %v, want [label position]", skipped)
	}
	if len(types) != 3 {
		t.Fatalf("imported %d types, want 3", len(types))
	}
	names := map[string]bool{}
	for _, typ := range types {
		name := typ.Layout().Name
		if names[name] {
			t.Errorf("%s imported twice", name)
		}
		names[name] = true
	}
	if got := types[1].Layout().Cases[0].Name; got != "read_only" {
		t.Errorf("case name = %q, want read_only", got)
	}
	seg := types[2].Layout()
	if seg.Name != "Segment" || seg.Size != 16 {
		t.Errorf("segment = %s size %d", seg.Name, seg.Size)
	}
	if f, _ := seg.Field("to"); f.Layout != types[0].Layout() {
		t.Error("records should share the imported point layout")
	}
}
