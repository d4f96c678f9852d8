package repr

import (
	"strconv"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/ffi-bridge/errors"
)

// FromWIT imports a WIT-described type as a layout-only Type.
//
// Primitives, records, enums, flags (up to 64) and tuples have a flat
// canonical layout. Strings, lists, variants, options, results and
// resources do not and are rejected.
func FromWIT(t wit.Type) (Type, error) {
	l, err := newWITImporter().layout(t, nil)
	if err != nil {
		return nil, err
	}
	return LayoutType(l), nil
}

// FromResolve imports every named type definition in res that has a flat
// canonical layout, in definition order. The names of definitions without
// one are returned in skipped, as are aliases of another named definition:
// an alias shares its target's layout and name, which is imported once.
func FromResolve(res *wit.Resolve) (types []Type, skipped []string) {
	w := newWITImporter()
	for _, td := range res.TypeDefs {
		if td.Name == nil {
			continue
		}
		l, err := w.layout(td, nil)
		if err != nil || l.Name != toPascalCase(*td.Name) {
			skipped = append(skipped, *td.Name)
			continue
		}
		types = append(types, LayoutType(l))
	}
	return types, skipped
}

type witImporter struct {
	cache map[*wit.TypeDef]*Layout
}

func newWITImporter() *witImporter {
	return &witImporter{cache: make(map[*wit.TypeDef]*Layout)}
}

func (w *witImporter) layout(t wit.Type, path []string) (*Layout, error) {
	switch typ := t.(type) {
	case wit.Bool:
		return Primitive(KindBool), nil
	case wit.U8:
		return Primitive(KindU8), nil
	case wit.S8:
		return Primitive(KindI8), nil
	case wit.U16:
		return Primitive(KindU16), nil
	case wit.S16:
		return Primitive(KindI16), nil
	case wit.U32:
		return Primitive(KindU32), nil
	case wit.S32:
		return Primitive(KindI32), nil
	case wit.U64:
		return Primitive(KindU64), nil
	case wit.S64:
		return Primitive(KindI64), nil
	case wit.F32:
		return Primitive(KindF32), nil
	case wit.F64:
		return Primitive(KindF64), nil
	case wit.Char:
		return Primitive(KindChar), nil
	case wit.String:
		return nil, errors.Unsupported(errors.PhaseRegister, path, "", "WIT string is variable-length")
	case *wit.TypeDef:
		return w.typeDef(typ, path)
	default:
		return nil, errors.New(errors.PhaseRegister, errors.KindUnsupported).
			Path(path...).
			Detail("unsupported WIT type: %T", t).
			Build()
	}
}

func (w *witImporter) typeDef(t *wit.TypeDef, path []string) (*Layout, error) {
	if cached, ok := w.cache[t]; ok {
		return cached, nil
	}

	name := ""
	if t.Name != nil {
		name = toPascalCase(*t.Name)
		path = sub(path, *t.Name)
	}

	var (
		l   *Layout
		err error
	)
	switch kind := t.Kind.(type) {
	case *wit.Record:
		l, err = w.record(name, kind, path)
	case *wit.Tuple:
		l, err = w.tuple(name, kind, path)
	case *wit.Enum:
		cases := make([]string, len(kind.Cases))
		for i, c := range kind.Cases {
			cases[i] = strings.ReplaceAll(c.Name, "-", "_")
		}
		if name == "" {
			return nil, errors.Unsupported(errors.PhaseRegister, path, "", "anonymous WIT enum")
		}
		l, err = EnumOf(name, discriminantKind(len(cases)), cases...)
	case *wit.Flags:
		l, err = w.flags(name, kind, path)
	case wit.Type:
		l, err = w.layout(kind, path)
	default:
		return nil, errors.New(errors.PhaseRegister, errors.KindUnsupported).
			Path(path...).
			Detail("WIT %T has no flat canonical layout", t.Kind).
			Build()
	}
	if err != nil {
		return nil, err
	}

	w.cache[t] = l
	return l, nil
}

func (w *witImporter) record(name string, r *wit.Record, path []string) (*Layout, error) {
	if name == "" {
		return nil, errors.Unsupported(errors.PhaseRegister, path, "", "anonymous WIT record")
	}
	fields := make([]Field, 0, len(r.Fields))
	for _, f := range r.Fields {
		fl, err := w.layout(f.Type, sub(path, f.Name))
		if err != nil {
			return nil, err
		}
		fields = append(fields, Field{Name: strings.ReplaceAll(f.Name, "-", "_"), Layout: fl})
	}
	return StructOf(name, fields...)
}

func (w *witImporter) tuple(name string, t *wit.Tuple, path []string) (*Layout, error) {
	fields := make([]Field, 0, len(t.Types))
	idents := make([]string, 0, len(t.Types))
	for i, typ := range t.Types {
		fl, err := w.layout(typ, sub(path, strconv.Itoa(i)))
		if err != nil {
			return nil, err
		}
		fields = append(fields, Field{Name: "f" + strconv.Itoa(i), Layout: fl})
		idents = append(idents, fl.Ident())
	}
	if name == "" {
		name = "Tuple" + strconv.Itoa(len(t.Types)) + "_" + strings.Join(idents, "_")
	}
	return StructOf(name, fields...)
}

func (w *witImporter) flags(name string, f *wit.Flags, path []string) (*Layout, error) {
	n := len(f.Flags)
	var k Kind
	switch {
	case n == 0:
		return nil, errors.Unsupported(errors.PhaseRegister, path, "", "WIT flags without members")
	case n <= 8:
		k = KindU8
	case n <= 16:
		k = KindU16
	case n <= 32:
		k = KindU32
	case n <= 64:
		k = KindU64
	default:
		return nil, errors.Unsupported(errors.PhaseRegister, path, "", "WIT flags wider than 64 bits")
	}
	l := Primitive(k)
	l.Name = name
	l.Bits = uint32(n)
	for i, flag := range f.Flags {
		l.Cases = append(l.Cases, EnumCase{Name: strings.ReplaceAll(flag.Name, "-", "_"), Value: uint64(1) << i})
	}
	return l, nil
}

func discriminantKind(n int) Kind {
	switch {
	case n <= 1<<8:
		return KindU8
	case n <= 1<<16:
		return KindU16
	default:
		return KindU32
	}
}

// toPascalCase converts a kebab-case WIT name: point-3d -> Point3d.
func toPascalCase(s string) string {
	var b strings.Builder
	upper := true
	for _, r := range s {
		if r == '-' || r == '_' {
			upper = true
			continue
		}
		if upper && r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		upper = false
		b.WriteRune(r)
	}
	return b.String()
}
