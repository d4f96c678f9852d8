package repr

import (
	"strconv"
	"strings"

	"github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/internal/abi"
)

// Layout is the canonical in-memory shape of a boundary type: flat,
// fixed-size, little-endian, pointers one 8-byte word.
type Layout struct {
	// Elem is the pointee of a pointer or the element of an array.
	Elem *Layout
	// Sig describes a function pointer's signature when known.
	Sig    *Signature
	Name   string
	Doc    string
	Fields []Field
	Cases  []EnumCase
	Size   uint32
	Align  uint32
	Len    uint32
	// Bits, when non-zero, restricts an integer to its low Bits bits.
	Bits uint32
	Kind Kind
	// Nullable marks pointers and function pointers that admit zero.
	Nullable bool
	// Optional marks a niche-encoded Option of an otherwise identical layout.
	Optional bool
	// Const marks a pointer to read-only data.
	Const bool
}

// Field is a struct member placed at Offset.
type Field struct {
	Layout *Layout
	Name   string
	Doc    string
	Offset uint32
	// Padding marks reserved bytes: always valid, always lowered as zero.
	Padding bool
}

// EnumCase is one discriminant of a field-less enum.
type EnumCase struct {
	Name  string
	Value uint64
}

// Signature describes a function pointer.
type Signature struct {
	// Result is nil for functions returning nothing.
	Result *Layout
	Params []Param
}

// Param is one positional function parameter.
type Param struct {
	Layout *Layout
	Name   string
}

// Primitive returns the layout of a scalar kind.
func Primitive(k Kind) *Layout {
	size := primitiveSize(k)
	align := size
	if align == 0 {
		align = 1
	}
	return &Layout{Kind: k, Size: size, Align: align}
}

// Void is the empty result type.
func Void() *Layout {
	return &Layout{Kind: KindVoid, Align: 1}
}

// PointerTo returns a pointer to elem. A nil elem is void*.
func PointerTo(elem *Layout, nullable bool) *Layout {
	if elem == nil {
		elem = Void()
	}
	return &Layout{Kind: KindPointer, Size: 8, Align: 8, Elem: elem, Nullable: nullable}
}

// ConstPointerTo returns a pointer to read-only elem.
func ConstPointerTo(elem *Layout, nullable bool) *Layout {
	l := PointerTo(elem, nullable)
	l.Const = true
	return l
}

// FuncPtr returns a function pointer with the given signature.
func FuncPtr(sig *Signature, nullable bool) *Layout {
	return &Layout{Kind: KindFuncPtr, Size: 8, Align: 8, Sig: sig, Nullable: nullable}
}

// ArrayOf returns a fixed-length inline array.
func ArrayOf(elem *Layout, n uint32) (*Layout, error) {
	size, ok := abi.SafeMulU32(elem.Size, n)
	if !ok {
		return nil, errors.Overflow(errors.PhaseRegister, nil, n, elem.String())
	}
	return &Layout{Kind: KindArray, Size: size, Align: elem.Align, Elem: elem, Len: n}, nil
}

// Opaque returns a named type with no visible layout. It can only be used
// behind a pointer.
func Opaque(name string) *Layout {
	return &Layout{Kind: KindOpaque, Name: name, Align: 1}
}

// EnumOf returns a field-less enum with the given integer representation.
// Cases are numbered 0..n-1.
func EnumOf(name string, repr Kind, cases ...string) (*Layout, error) {
	if !repr.IsInteger() {
		return nil, errors.Unsupported(errors.PhaseRegister, []string{name}, "", "enum representation must be an integer, got "+repr.String())
	}
	if len(cases) == 0 {
		return nil, errors.Unsupported(errors.PhaseRegister, []string{name}, "", "enum has no cases")
	}
	size := primitiveSize(repr)
	if size < 8 && uint64(len(cases)) > uint64(1)<<(8*size) {
		return nil, errors.Overflow(errors.PhaseRegister, []string{name}, len(cases), repr.String())
	}
	l := &Layout{Kind: KindEnum, Name: name, Size: size, Align: size, Elem: Primitive(repr)}
	for i, c := range cases {
		l.Cases = append(l.Cases, EnumCase{Name: c, Value: uint64(i)})
	}
	return l, nil
}

// StructOf lays out fields in declaration order: each field at the next
// offset aligned to its own alignment, the struct aligned to its widest
// field and padded to a multiple of that alignment. The Offset of each
// input field is ignored.
func StructOf(name string, fields ...Field) (*Layout, error) {
	l := &Layout{Kind: KindStruct, Name: name}
	if err := l.place(fields); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Layout) place(fields []Field) error {
	if len(fields) == 0 {
		return errors.Unsupported(errors.PhaseRegister, []string{l.Name}, "", "zero-sized structs have no canonical layout")
	}

	maxAlign := uint32(1)
	offset := uint32(0)
	placed := make([]Field, len(fields))

	for i, f := range fields {
		if f.Layout == nil || f.Layout.Kind == KindVoid || f.Layout.Kind == KindOpaque {
			return errors.Unsupported(errors.PhaseRegister, []string{l.Name, f.Name}, "", "field has no by-value layout")
		}
		offset = abi.AlignTo(offset, f.Layout.Align)
		f.Offset = offset
		placed[i] = f

		if f.Layout.Align > maxAlign {
			maxAlign = f.Layout.Align
		}

		next, ok := abi.SafeAddU32(offset, f.Layout.Size)
		if !ok {
			return errors.Overflow(errors.PhaseRegister, []string{l.Name, f.Name}, offset, "u32")
		}
		offset = next
	}

	l.Fields = placed
	l.Align = maxAlign
	l.Size = abi.AlignTo(offset, maxAlign)
	return nil
}

// Field returns the field with the given name.
func (l *Layout) Field(name string) (Field, bool) {
	for _, f := range l.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// String returns a compact description: the declared name for named kinds,
// the kind name for scalars, and a structural rendering otherwise.
func (l *Layout) String() string {
	if l == nil {
		return "void"
	}
	switch l.Kind {
	case KindStruct, KindEnum, KindOpaque:
		if l.Optional {
			return "Option<" + l.Name + ">"
		}
		return l.Name
	case KindPointer:
		s := "*" + l.Elem.String()
		if l.Const {
			s = "*const " + l.Elem.String()
		}
		if l.Optional {
			return "Option<" + s + ">"
		}
		return s
	case KindFuncPtr:
		var b strings.Builder
		b.WriteString("fn(")
		if l.Sig != nil {
			for i, p := range l.Sig.Params {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(p.Layout.String())
			}
		}
		b.WriteByte(')')
		if l.Sig != nil && l.Sig.Result != nil && l.Sig.Result.Kind != KindVoid {
			b.WriteString(" -> ")
			b.WriteString(l.Sig.Result.String())
		}
		if l.Optional {
			return "Option<" + b.String() + ">"
		}
		return b.String()
	case KindArray:
		return "[" + l.Elem.String() + "; " + strconv.FormatUint(uint64(l.Len), 10) + "]"
	default:
		if l.Optional {
			return "Option<" + l.Kind.String() + ">"
		}
		return l.Kind.String()
	}
}

// Ident returns an identifier-safe short name used when deriving names of
// generated types, e.g. "f32", "Point", "ptr_Point", "arr4_u8".
func (l *Layout) Ident() string {
	if l == nil {
		return "void"
	}
	var s string
	switch l.Kind {
	case KindStruct, KindEnum, KindOpaque:
		s = l.Name
	case KindPointer:
		s = "ptr_" + l.Elem.Ident()
	case KindFuncPtr:
		s = "fn"
		if l.Sig != nil {
			s += strconv.Itoa(len(l.Sig.Params))
		}
	case KindArray:
		s = "arr" + strconv.FormatUint(uint64(l.Len), 10) + "_" + l.Elem.Ident()
	default:
		s = l.Kind.String()
	}
	if l.Optional {
		return "opt_" + s
	}
	return s
}
