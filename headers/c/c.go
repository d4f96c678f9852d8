// Package c renders C declarations.
package c

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wippyai/ffi-bridge/headers"
	"github.com/wippyai/ffi-bridge/repr"
)

var primitives = map[repr.Kind]string{
	repr.KindVoid:  "void",
	repr.KindBool:  "bool",
	repr.KindU8:    "uint8_t",
	repr.KindI8:    "int8_t",
	repr.KindU16:   "uint16_t",
	repr.KindI16:   "int16_t",
	repr.KindU32:   "uint32_t",
	repr.KindI32:   "int32_t",
	repr.KindU64:   "uint64_t",
	repr.KindI64:   "int64_t",
	repr.KindF32:   "float",
	repr.KindF64:   "double",
	repr.KindChar:  "uint32_t",
	repr.KindUsize: "uintptr_t",
}

// builtins are named primitives that map onto C types directly.
var builtins = map[string]string{
	"c_char": "char",
}

// Backend is the C backend. Structs are declared as struct tags with a
// matching _t typedef; enums are a fixed-width integer typedef plus
// constants, since C enums have no fixed size.
type Backend struct{}

// New returns the C backend.
func New() *Backend { return &Backend{} }

func (*Backend) Name() string      { return "c" }
func (*Backend) Extension() string { return "h" }

func guard(opts headers.Options) string {
	if opts.Guard != "" {
		return opts.Guard
	}
	lib := opts.Library
	if lib == "" {
		lib = "ffibridge"
	}
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(lib)) + "_H"
}

func (*Backend) Prologue(opts headers.Options) string {
	var b strings.Builder
	if opts.Banner != "" {
		fmt.Fprintf(&b, "/* %s */\n\n", opts.Banner)
	}
	g := guard(opts)
	fmt.Fprintf(&b, "#ifndef %s\n#define %s\n\n", g, g)
	b.WriteString("#include <stdbool.h>\n#include <stddef.h>\n#include <stdint.h>\n\n")
	if opts.LayoutAsserts {
		b.WriteString(assertMacros)
	}
	b.WriteString("#ifdef __cplusplus\nextern \"C\" {\n#endif\n\n")
	return b.String()
}

// assertMacros spell the layout assertions for both C11 and C++.
const assertMacros = `#ifndef FFI_STATIC_ASSERT
#ifdef __cplusplus
#define FFI_STATIC_ASSERT(cond, msg) static_assert(cond, msg)
#define FFI_ALIGNOF(type) alignof(type)
#else
#define FFI_STATIC_ASSERT(cond, msg) _Static_assert(cond, msg)
#define FFI_ALIGNOF(type) _Alignof(type)
#endif
#endif

`

func (*Backend) Epilogue(opts headers.Options) string {
	return "#ifdef __cplusplus\n} /* extern \"C\" */\n#endif\n\n#endif /* " + guard(opts) + " */\n"
}

// TypeName returns the C spelling of l as it appears in a declaration
// without a declarator.
func TypeName(l *repr.Layout) string {
	if l == nil {
		return "void"
	}
	switch l.Kind {
	case repr.KindStruct, repr.KindEnum, repr.KindOpaque:
		return l.Name + "_t"
	case repr.KindPointer:
		elem := "void"
		switch {
		case l.Elem == nil || l.Elem.Kind == repr.KindFuncPtr:
		case l.Elem.Kind == repr.KindArray:
			// pointers to arrays point at the first element
			elem = TypeName(l.Elem.Elem)
		default:
			elem = TypeName(l.Elem)
		}
		if l.Const {
			return "const " + elem + " *"
		}
		return elem + " *"
	case repr.KindFuncPtr, repr.KindArray:
		return declare(l, "")
	}
	if name, ok := builtins[l.Name]; ok {
		return name
	}
	if l.Name != "" {
		return l.Name + "_t"
	}
	return primitives[l.Kind]
}

// declare returns a C declarator of name with type l, e.g. "float x",
// "uint8_t data[4]" or "void (*release)(void *env)".
func declare(l *repr.Layout, name string) string {
	switch {
	case l == nil:
		return join("void", name)
	case l.Kind == repr.KindFuncPtr:
		return declareFunc(l.Sig, "(*"+name+")")
	case l.Kind == repr.KindArray:
		return declare(l.Elem, name+"["+strconv.FormatUint(uint64(l.Len), 10)+"]")
	}
	return join(TypeName(l), name)
}

func declareFunc(sig *repr.Signature, name string) string {
	var b strings.Builder
	var result *repr.Layout
	if sig != nil {
		result = sig.Result
	}
	b.WriteString(declare(result, name))
	b.WriteByte('(')
	if sig == nil || len(sig.Params) == 0 {
		b.WriteString("void")
	} else {
		for i, p := range sig.Params {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(declare(p.Layout, p.Name))
		}
	}
	b.WriteByte(')')
	return b.String()
}

func join(typ, name string) string {
	switch {
	case name == "":
		return strings.TrimSpace(typ)
	case strings.HasSuffix(typ, "*"):
		return typ + name
	default:
		return typ + " " + name
	}
}

func comment(b *strings.Builder, doc, indent string) {
	if doc == "" {
		return
	}
	lines := strings.Split(doc, "\n")
	if len(lines) == 1 {
		fmt.Fprintf(b, "%s/** %s */\n", indent, doc)
		return
	}
	fmt.Fprintf(b, "%s/**\n", indent)
	for _, line := range lines {
		fmt.Fprintf(b, "%s * %s\n", indent, line)
	}
	fmt.Fprintf(b, "%s */\n", indent)
}

func (*Backend) Primitive(l *repr.Layout) string {
	if _, ok := builtins[l.Name]; ok {
		return ""
	}
	var b strings.Builder
	comment(&b, l.Doc, "")
	fmt.Fprintf(&b, "typedef %s %s_t;\n", primitives[l.Kind], l.Name)
	if len(l.Cases) > 0 {
		b.WriteString("enum {\n")
		for _, c := range l.Cases {
			fmt.Fprintf(&b, "\t%s_%s = %#x,\n", l.Name, c.Name, c.Value)
		}
		b.WriteString("};\n")
	}
	b.WriteByte('\n')
	return b.String()
}

func (*Backend) Forward(l *repr.Layout) string {
	return fmt.Sprintf("typedef struct %s %s_t;\n\n", l.Name, l.Name)
}

func (*Backend) Struct(l *repr.Layout, opts headers.Options) string {
	var b strings.Builder
	comment(&b, l.Doc, "")
	fmt.Fprintf(&b, "struct %s {\n", l.Name)
	for _, f := range l.Fields {
		comment(&b, f.Doc, "\t")
		fmt.Fprintf(&b, "\t%s;\n", declare(f.Layout, f.Name))
	}
	b.WriteString("};\n")
	if opts.LayoutAsserts {
		name := l.Name + "_t"
		fmt.Fprintf(&b, "FFI_STATIC_ASSERT(sizeof(%s) == %d, \"%s size\");\n", name, l.Size, name)
		fmt.Fprintf(&b, "FFI_STATIC_ASSERT(FFI_ALIGNOF(%s) == %d, \"%s alignment\");\n", name, l.Align, name)
		for _, f := range l.Fields {
			if f.Padding {
				continue
			}
			fmt.Fprintf(&b, "FFI_STATIC_ASSERT(offsetof(%s, %s) == %d, \"%s.%s offset\");\n", name, f.Name, f.Offset, name, f.Name)
		}
	}
	b.WriteByte('\n')
	return b.String()
}

func (*Backend) Enum(l *repr.Layout) string {
	var b strings.Builder
	comment(&b, l.Doc, "")
	fmt.Fprintf(&b, "typedef %s %s_t;\n", primitives[l.Elem.Kind], l.Name)
	b.WriteString("enum {\n")
	for _, c := range l.Cases {
		fmt.Fprintf(&b, "\t%s_%s = %d,\n", l.Name, c.Name, c.Value)
	}
	b.WriteString("};\n\n")
	return b.String()
}

func (*Backend) Opaque(l *repr.Layout) string {
	var b strings.Builder
	comment(&b, l.Doc, "")
	fmt.Fprintf(&b, "typedef struct %s %s_t;\n\n", l.Name, l.Name)
	return b.String()
}

func (*Backend) Func(name string, sig *repr.Signature, doc string, _ headers.Options) string {
	var b strings.Builder
	comment(&b, doc, "")
	b.WriteString(declareFunc(sig, name))
	b.WriteString(";\n\n")
	return b.String()
}

func (*Backend) Const(name string, l *repr.Layout, value any, doc string) string {
	var b strings.Builder
	comment(&b, doc, "")
	fmt.Fprintf(&b, "#define %s ((%s)%s)\n\n", name, TypeName(l), literal(l, value))
	return b.String()
}

func literal(l *repr.Layout, value any) string {
	switch v := value.(type) {
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float32:
		return floatLiteral(float64(v), 32) + "f"
	case float64:
		return floatLiteral(v, 64)
	case string:
		return strconv.Quote(v)
	}
	s := fmt.Sprint(value)
	switch l.Kind {
	case repr.KindU32, repr.KindChar:
		return s + "u"
	case repr.KindU64, repr.KindUsize:
		return s + "ull"
	case repr.KindI64:
		return s + "ll"
	}
	return s
}

func floatLiteral(f float64, bits int) string {
	s := strconv.FormatFloat(f, 'g', -1, bits)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}
