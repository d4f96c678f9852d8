// Package csharp renders C# interop declarations: explicit-layout structs,
// sized enums and DllImport entry points.
package csharp

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
	repr.KindU8:    "byte",
	repr.KindI8:    "sbyte",
	repr.KindU16:   "ushort",
	repr.KindI16:   "short",
	repr.KindU32:   "uint",
	repr.KindI32:   "int",
	repr.KindU64:   "ulong",
	repr.KindI64:   "long",
	repr.KindF32:   "float",
	repr.KindF64:   "double",
	repr.KindChar:  "uint",
	repr.KindUsize: "nuint",
}

var keywords = map[string]bool{
	"base": true, "checked": true, "class": true, "default": true, "event": true,
	"fixed": true, "in": true, "internal": true, "lock": true, "object": true,
	"operator": true, "out": true, "override": true, "params": true, "ref": true,
	"string": true, "this": true, "unchecked": true,
}

const nativeClass = "NativeMethods"

// Backend is the C# backend.
type Backend struct{}

// New returns the C# backend.
func New() *Backend { return &Backend{} }

func (*Backend) Name() string      { return "csharp" }
func (*Backend) Extension() string { return "cs" }

func ident(name string) string {
	if keywords[name] {
		return "@" + name
	}
	return name
}

func (*Backend) Prologue(opts headers.Options) string {
	var b strings.Builder
	if opts.Banner != "" {
		fmt.Fprintf(&b, "// %s\n\n", opts.Banner)
	}
	b.WriteString("using System;\nusing System.Runtime.InteropServices;\n\n")
	if opts.Namespace != "" {
		fmt.Fprintf(&b, "namespace %s\n{\n\n", opts.Namespace)
	}
	return b.String()
}

func (*Backend) Epilogue(opts headers.Options) string {
	if opts.Namespace != "" {
		return "}\n"
	}
	return ""
}

// TypeName returns the C# spelling of l.
func TypeName(l *repr.Layout) string {
	if l == nil {
		return "void"
	}
	switch l.Kind {
	case repr.KindStruct, repr.KindEnum, repr.KindOpaque:
		return l.Name
	case repr.KindPointer:
		if l.Elem == nil || l.Elem.Kind == repr.KindFuncPtr || l.Elem.Kind == repr.KindVoid {
			return "void*"
		}
		if l.Elem.Kind == repr.KindArray {
			return TypeName(l.Elem.Elem) + "*"
		}
		return TypeName(l.Elem) + "*"
	case repr.KindFuncPtr:
		var b strings.Builder
		b.WriteString("delegate* unmanaged[Cdecl]<")
		if l.Sig != nil {
			for _, p := range l.Sig.Params {
				b.WriteString(TypeName(p.Layout))
				b.WriteString(", ")
			}
			b.WriteString(TypeName(l.Sig.Result))
		} else {
			b.WriteString("void")
		}
		b.WriteByte('>')
		return b.String()
	case repr.KindBool:
		// blittable one-byte bool
		return "byte"
	}
	if l.Name == "c_char" {
		return "sbyte"
	}
	if l.Name != "" && len(l.Cases) > 0 {
		return l.Name
	}
	return primitives[l.Kind]
}

func comment(b *strings.Builder, doc, indent string) {
	if doc == "" {
		return
	}
	fmt.Fprintf(b, "%s/// <summary>\n", indent)
	for _, line := range strings.Split(doc, "\n") {
		fmt.Fprintf(b, "%s/// %s\n", indent, line)
	}
	fmt.Fprintf(b, "%s/// </summary>\n", indent)
}

// Primitive declares flag sets as [Flags] enums; other named primitives
// are spelled as their underlying type.
func (*Backend) Primitive(l *repr.Layout) string {
	if len(l.Cases) == 0 {
		return ""
	}
	var b strings.Builder
	comment(&b, l.Doc, "")
	fmt.Fprintf(&b, "[Flags]\npublic enum %s : %s\n{\n", l.Name, primitives[l.Kind])
	for _, c := range l.Cases {
		fmt.Fprintf(&b, "    %s = %#x,\n", ident(c.Name), c.Value)
	}
	b.WriteString("}\n\n")
	return b.String()
}

func (*Backend) Forward(*repr.Layout) string { return "" }

func (*Backend) Struct(l *repr.Layout, _ headers.Options) string {
	var b strings.Builder
	comment(&b, l.Doc, "")
	fmt.Fprintf(&b, "[StructLayout(LayoutKind.Explicit, Size = %d)]\n", l.Size)
	fmt.Fprintf(&b, "public unsafe partial struct %s\n{\n", l.Name)
	for _, f := range l.Fields {
		field(&b, f)
	}
	b.WriteString("}\n\n")
	return b.String()
}

func field(b *strings.Builder, f repr.Field) {
	comment(b, f.Doc, "    ")
	if f.Layout.Kind != repr.KindArray {
		fmt.Fprintf(b, "    [FieldOffset(%d)] public %s %s;\n", f.Offset, TypeName(f.Layout), ident(f.Name))
		return
	}
	elem := f.Layout.Elem
	if elem.Kind.IsPrimitive() && elem.Kind != repr.KindUsize {
		fmt.Fprintf(b, "    [FieldOffset(%d)] public fixed %s %s[%d];\n", f.Offset, TypeName(elem), ident(f.Name), f.Layout.Len)
		return
	}
	// fixed buffers only hold primitives; spell other arrays element-wise
	for i := uint32(0); i < f.Layout.Len; i++ {
		sub := repr.Field{Layout: elem, Name: f.Name + "_" + strconv.FormatUint(uint64(i), 10), Offset: f.Offset + i*elem.Size}
		field(b, sub)
	}
}

func (*Backend) Enum(l *repr.Layout) string {
	var b strings.Builder
	comment(&b, l.Doc, "")
	fmt.Fprintf(&b, "public enum %s : %s\n{\n", l.Name, primitives[l.Elem.Kind])
	for _, c := range l.Cases {
		fmt.Fprintf(&b, "    %s = %d,\n", ident(c.Name), c.Value)
	}
	b.WriteString("}\n\n")
	return b.String()
}

func (*Backend) Opaque(l *repr.Layout) string {
	var b strings.Builder
	comment(&b, l.Doc, "")
	fmt.Fprintf(&b, "public partial struct %s\n{\n}\n\n", l.Name)
	return b.String()
}

func (*Backend) Func(name string, sig *repr.Signature, doc string, opts headers.Options) string {
	var b strings.Builder
	fmt.Fprintf(&b, "public static unsafe partial class %s\n{\n", nativeClass)
	comment(&b, doc, "    ")
	fmt.Fprintf(&b, "    [DllImport(%q, EntryPoint = %q, CallingConvention = CallingConvention.Cdecl)]\n", opts.Library, name)

	var result *repr.Layout
	if sig != nil {
		result = sig.Result
	}
	fmt.Fprintf(&b, "    public static extern %s %s(", TypeName(result), ident(name))
	if sig != nil {
		for i, p := range sig.Params {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s %s", TypeName(p.Layout), ident(p.Name))
		}
	}
	b.WriteString(");\n}\n\n")
	return b.String()
}

func (*Backend) Const(name string, l *repr.Layout, value any, doc string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "public static partial class %s\n{\n", nativeClass)
	comment(&b, doc, "    ")
	fmt.Fprintf(&b, "    public const %s %s = %s;\n}\n\n", constType(l), ident(name), literal(l, value))
	return b.String()
}

func constType(l *repr.Layout) string {
	if l.Kind == repr.KindBool {
		return "bool"
	}
	return TypeName(l)
}

func literal(l *repr.Layout, value any) string {
	switch v := value.(type) {
	case bool:
		return strconv.FormatBool(v)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32) + "f"
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64) + "d"
	case string:
		return strconv.Quote(v)
	}
	s := fmt.Sprint(value)
	switch l.Kind {
	case repr.KindU32, repr.KindChar:
		return s + "u"
	case repr.KindU64:
		return s + "UL"
	case repr.KindI64:
		return s + "L"
	}
	return s
}
