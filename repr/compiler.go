package repr

import (
	"math"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"unicode"

	ffibridge "github.com/wippyai/ffi-bridge"
	"github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/fnptr"
)

var (
	addrType      = reflect.TypeFor[ffibridge.Addr]()
	cstrType      = reflect.TypeFor[CStr]()
	charType      = reflect.TypeFor[Char]()
	fnptrType     = reflect.TypeFor[fnptr.Ptr]()
	enumType      = reflect.TypeFor[Enum]()
	namedType     = reflect.TypeFor[Named]()
	annotatedType = reflect.TypeFor[Annotated]()
	pointerType   = reflect.TypeFor[pointerMarker]()
	optionType    = reflect.TypeFor[optionMarker]()
	optionPkg     = reflect.TypeFor[Option[bool]]().PkgPath()
)

// Compiler maps Go types to canonical types. Results are cached per Go type
// and safe for concurrent use.
type Compiler struct {
	cache sync.Map // reflect.Type -> *Compiled
	mu    sync.Mutex
}

// NewCompiler creates a compiler with an empty cache.
func NewCompiler() *Compiler {
	return &Compiler{}
}

var defaultCompiler = NewCompiler()

// TypeOf compiles t with the process-wide compiler.
func TypeOf(t reflect.Type) (*Compiled, error) {
	return defaultCompiler.Compile(t)
}

// Compiled is a Go type bound to its canonical layout.
type Compiled struct {
	goType reflect.Type
	layout *Layout
	check  func([]byte) bool
	niche  *Niche
	lower  func(v reflect.Value, b []byte)
	lift   func(b []byte, v reflect.Value)
}

// GoType returns the bound Go type.
func (c *Compiled) GoType() reflect.Type { return c.goType }

// Layout returns the canonical layout.
func (c *Compiled) Layout() *Layout { return c.layout }

// IsValid reports whether b holds a valid value of the type.
func (c *Compiled) IsValid(b []byte) bool {
	if len(b) < int(c.layout.Size) {
		return false
	}
	return c.check == nil || c.check(b)
}

// Niche returns the type's niche, if it has one.
func (c *Compiled) Niche() (Niche, bool) {
	if c.niche == nil {
		return Niche{}, false
	}
	return *c.niche, true
}

// LowerValue writes v into b, which must hold at least Layout().Size bytes.
func (c *Compiled) LowerValue(v reflect.Value, b []byte) {
	c.lower(v, b)
}

// LiftValue reads a value from b without validating it.
func (c *Compiled) LiftValue(b []byte) reflect.Value {
	v := reflect.New(c.goType).Elem()
	c.lift(b, v)
	return v
}

// compileState tracks one top-level compilation. Nothing is published to
// the shared cache until the whole type graph compiled successfully.
type compileState struct {
	inflight map[reflect.Type]*Layout
	done     map[reflect.Type]*Compiled
}

// Compile returns the canonical type for t.
func (c *Compiler) Compile(t reflect.Type) (*Compiled, error) {
	if t == nil {
		return nil, errors.New(errors.PhaseRegister, errors.KindNilPointer).
			Detail("Go type cannot be nil").
			Build()
	}
	if cached, ok := c.cache.Load(t); ok {
		return cached.(*Compiled), nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.cache.Load(t); ok {
		return cached.(*Compiled), nil
	}

	st := &compileState{
		inflight: make(map[reflect.Type]*Layout),
		done:     make(map[reflect.Type]*Compiled),
	}
	ct, err := c.compile(st, t, nil)
	if err != nil {
		return nil, err
	}

	// Layouts are complete only now; recursive types reference each other's
	// layouts through pointers.
	for typ, done := range st.done {
		done.check = checks(done.layout)
		if n, ok := nicheOf(done.layout); ok {
			done.niche = &n
		}
		c.cache.Store(typ, done)
	}
	return ct, nil
}

func (c *Compiler) lookup(st *compileState, t reflect.Type) (*Compiled, bool) {
	if cached, ok := c.cache.Load(t); ok {
		return cached.(*Compiled), true
	}
	ct, ok := st.done[t]
	return ct, ok
}

func (c *Compiler) compile(st *compileState, t reflect.Type, path []string) (*Compiled, error) {
	if ct, ok := c.lookup(st, t); ok {
		return ct, nil
	}

	ct, err := c.compileType(st, t, path)
	if err != nil {
		return nil, err
	}
	st.done[t] = ct
	return ct, nil
}

// layoutOf returns the layout of t for use behind a pointer. A type that is
// still being compiled yields its partially built layout.
func (c *Compiler) layoutOf(st *compileState, t reflect.Type, path []string) (*Layout, error) {
	if l, ok := st.inflight[t]; ok {
		return l, nil
	}
	ct, err := c.compile(st, t, path)
	if err != nil {
		return nil, err
	}
	return ct.layout, nil
}

func (c *Compiler) compileType(st *compileState, t reflect.Type, path []string) (*Compiled, error) {
	switch {
	case t == charType:
		return scalar(t, Primitive(KindChar)), nil
	case t == addrType:
		return scalar(t, PointerTo(nil, true)), nil
	case t == cstrType:
		return scalar(t, ConstPointerTo(CChar(), false)), nil
	case t == fnptrType:
		return scalar(t, FuncPtr(nil, false)), nil
	case t.Kind() == reflect.Uint64 && t.Implements(pointerType):
		return c.compilePointer(st, t, path)
	case isOption(t):
		return c.compileOption(st, t, path)
	case isInteger(t.Kind()) && t.Implements(enumType):
		return c.compileEnum(t, path)
	}

	switch t.Kind() {
	case reflect.Bool:
		return scalar(t, Primitive(KindBool)), nil
	case reflect.Int8:
		return scalar(t, Primitive(KindI8)), nil
	case reflect.Int16:
		return scalar(t, Primitive(KindI16)), nil
	case reflect.Int32:
		return scalar(t, Primitive(KindI32)), nil
	case reflect.Int64:
		return scalar(t, Primitive(KindI64)), nil
	case reflect.Uint8:
		return scalar(t, Primitive(KindU8)), nil
	case reflect.Uint16:
		return scalar(t, Primitive(KindU16)), nil
	case reflect.Uint32:
		return scalar(t, Primitive(KindU32)), nil
	case reflect.Uint64:
		return scalar(t, Primitive(KindU64)), nil
	case reflect.Uintptr:
		return scalar(t, Primitive(KindUsize)), nil
	case reflect.Float32:
		return scalar(t, Primitive(KindF32)), nil
	case reflect.Float64:
		return scalar(t, Primitive(KindF64)), nil
	case reflect.Array:
		return c.compileArray(st, t, path)
	case reflect.Struct:
		return c.compileStruct(st, t, path)
	case reflect.Int, reflect.Uint:
		return nil, errors.Unsupported(errors.PhaseRegister, path, t.String(), "platform-sized integers have no fixed width; use a sized integer type")
	case reflect.String:
		return nil, errors.Unsupported(errors.PhaseRegister, path, t.String(), "strings are variable-length; use CStr")
	case reflect.Slice, reflect.Map, reflect.Chan:
		return nil, errors.Unsupported(errors.PhaseRegister, path, t.String(), "variable-length or managed values cannot cross by value")
	case reflect.Pointer, reflect.UnsafePointer:
		return nil, errors.Unsupported(errors.PhaseRegister, path, t.String(), "Go pointers cannot cross; use Ptr, NonNull or a boxed value")
	case reflect.Func:
		return nil, errors.Unsupported(errors.PhaseRegister, path, t.String(), "Go funcs cannot cross; use a closure or fnptr.Ptr")
	default:
		return nil, errors.Unsupported(errors.PhaseRegister, path, t.String(), t.Kind().String()+" has no canonical layout")
	}
}

func (c *Compiler) compilePointer(st *compileState, t reflect.Type, path []string) (*Compiled, error) {
	m := reflect.Zero(t).Interface().(pointerMarker)
	elem, err := c.layoutOf(st, m.pointee(), sub(path, "*"))
	if err != nil {
		return nil, err
	}
	return scalar(t, PointerTo(elem, m.nullable())), nil
}

func (c *Compiler) compileOption(st *compileState, t reflect.Type, path []string) (*Compiled, error) {
	innerType := reflect.Zero(t).Interface().(optionMarker).optionInner()
	inner, err := c.compile(st, innerType, path)
	if err != nil {
		return nil, err
	}
	niche, ok := nicheOf(inner.layout)
	if !ok {
		return nil, errors.Unsupported(errors.PhaseRegister, path, t.String(),
			inner.layout.String()+" has no niche: every bit pattern is a valid value")
	}

	l := *inner.layout
	l.Optional = true
	size := l.Size

	return &Compiled{
		goType: t,
		layout: &l,
		lower: func(v reflect.Value, b []byte) {
			val, some := v.Interface().(optionMarker).optionValue()
			if !some {
				niche.Write(b[:size])
				return
			}
			inner.lower(reflect.ValueOf(val), b)
		},
		lift: func(b []byte, v reflect.Value) {
			setter := v.Addr().Interface().(optionSetter)
			if niche.Matches(b) {
				setter.optionSet(reflect.Value{}, false)
				return
			}
			iv := reflect.New(innerType).Elem()
			inner.lift(b, iv)
			setter.optionSet(iv, true)
		},
	}, nil
}

func (c *Compiler) compileEnum(t reflect.Type, path []string) (*Compiled, error) {
	cases := reflect.Zero(t).Interface().(Enum).EnumCases()
	name, err := declaredName(t, path)
	if err != nil {
		return nil, err
	}
	l, err := EnumOf(name, integerKind(t.Kind()), cases...)
	if err != nil {
		return nil, err
	}
	annotate(t, l)
	return scalar(t, l), nil
}

func (c *Compiler) compileArray(st *compileState, t reflect.Type, path []string) (*Compiled, error) {
	elem, err := c.compile(st, t.Elem(), sub(path, "[]"))
	if err != nil {
		return nil, err
	}
	l, err := ArrayOf(elem.layout, uint32(t.Len()))
	if err != nil {
		return nil, err
	}
	n := t.Len()
	stride := elem.layout.Size

	return &Compiled{
		goType: t,
		layout: l,
		lower: func(v reflect.Value, b []byte) {
			for i := 0; i < n; i++ {
				elem.lower(v.Index(i), b[uint32(i)*stride:])
			}
		},
		lift: func(b []byte, v reflect.Value) {
			for i := 0; i < n; i++ {
				elem.lift(b[uint32(i)*stride:], v.Index(i))
			}
		},
	}, nil
}

type structField struct {
	lower  func(v reflect.Value, b []byte)
	lift   func(b []byte, v reflect.Value)
	index  int
	offset uint32
	size   uint32
	pad    bool
}

func (c *Compiler) compileStruct(st *compileState, t reflect.Type, path []string) (*Compiled, error) {
	name, err := declaredName(t, path)
	if err != nil {
		return nil, err
	}

	l := &Layout{Kind: KindStruct, Name: name}
	st.inflight[t] = l
	defer delete(st.inflight, t)

	path = sub(path, name)
	var (
		fields []Field
		plan   []structField
	)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		fieldPath := sub(path, f.Name)

		tag := f.Tag.Get("ffi")
		if tag == "-" {
			continue
		}

		if f.Name == "_" {
			ft, err := c.compile(st, f.Type, fieldPath)
			if err != nil {
				return nil, err
			}
			fields = append(fields, Field{Name: "_pad" + strconv.Itoa(len(fields)), Layout: ft.layout, Padding: true})
			plan = append(plan, structField{index: i, pad: true, size: ft.layout.Size})
			continue
		}
		if !f.IsExported() {
			return nil, errors.Unsupported(errors.PhaseRegister, fieldPath, t.String(), "unexported field "+f.Name+" has no boundary name")
		}

		ft, err := c.compile(st, f.Type, fieldPath)
		if err != nil {
			return nil, err
		}

		fieldName := tag
		if fieldName == "" {
			fieldName = toSnakeCase(f.Name)
		}
		fields = append(fields, Field{Name: fieldName, Layout: ft.layout})
		plan = append(plan, structField{index: i, lower: ft.lower, lift: ft.lift})
	}

	if err := l.place(fields); err != nil {
		return nil, err
	}
	for i := range plan {
		plan[i].offset = l.Fields[i].Offset
	}
	annotate(t, l)

	return &Compiled{
		goType: t,
		layout: l,
		lower: func(v reflect.Value, b []byte) {
			for _, f := range plan {
				if f.pad {
					clear(b[f.offset : f.offset+f.size])
					continue
				}
				f.lower(v.Field(f.index), b[f.offset:])
			}
		},
		lift: func(b []byte, v reflect.Value) {
			for _, f := range plan {
				if f.pad {
					continue
				}
				f.lift(b[f.offset:], v.Field(f.index))
			}
		},
	}, nil
}

// declaredName returns the boundary name of a named Go type.
func declaredName(t reflect.Type, path []string) (string, error) {
	if t.Implements(namedType) {
		return reflect.Zero(t).Interface().(Named).ReprName(), nil
	}
	if reflect.PointerTo(t).Implements(namedType) {
		return reflect.New(t).Interface().(Named).ReprName(), nil
	}
	name := t.Name()
	switch {
	case name == "":
		return "", errors.Unsupported(errors.PhaseRegister, path, t.String(), "anonymous types have no declared name")
	case strings.ContainsAny(name, "[]"):
		return "", errors.Unsupported(errors.PhaseRegister, path, t.String(), "generic types must implement repr.Named")
	}
	return name, nil
}

func annotate(t reflect.Type, l *Layout) {
	switch {
	case t.Implements(annotatedType):
		reflect.Zero(t).Interface().(Annotated).AnnotateLayout(l)
	case reflect.PointerTo(t).Implements(annotatedType):
		reflect.New(t).Interface().(Annotated).AnnotateLayout(l)
	}
}

// scalar binds a single-word value (integer, float, bool, pointer) to l
// using the Go kind of t.
func scalar(t reflect.Type, l *Layout) *Compiled {
	size := l.Size
	ct := &Compiled{goType: t, layout: l}

	switch t.Kind() {
	case reflect.Bool:
		ct.lower = func(v reflect.Value, b []byte) {
			if v.Bool() {
				b[0] = 1
			} else {
				b[0] = 0
			}
		}
		ct.lift = func(b []byte, v reflect.Value) { v.SetBool(b[0] != 0) }

	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		ct.lower = func(v reflect.Value, b []byte) { writeUint(b, size, uint64(v.Int())) }
		ct.lift = func(b []byte, v reflect.Value) { v.SetInt(signExtend(readUint(b, size), size)) }

	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		ct.lower = func(v reflect.Value, b []byte) { writeUint(b, size, v.Uint()) }
		ct.lift = func(b []byte, v reflect.Value) { v.SetUint(readUint(b, size)) }

	case reflect.Float32:
		ct.lower = func(v reflect.Value, b []byte) { writeUint(b, 4, uint64(math.Float32bits(float32(v.Float())))) }
		ct.lift = func(b []byte, v reflect.Value) { v.SetFloat(float64(math.Float32frombits(uint32(readUint(b, 4))))) }

	case reflect.Float64:
		ct.lower = func(v reflect.Value, b []byte) { writeUint(b, 8, math.Float64bits(v.Float())) }
		ct.lift = func(b []byte, v reflect.Value) { v.SetFloat(math.Float64frombits(readUint(b, 8))) }
	}
	return ct
}

func isOption(t reflect.Type) bool {
	return t.Kind() == reflect.Struct &&
		t.PkgPath() == optionPkg &&
		strings.HasPrefix(t.Name(), "Option[") &&
		t.Implements(optionType)
}

func signExtend(v uint64, size uint32) int64 {
	switch size {
	case 1:
		return int64(int8(v))
	case 2:
		return int64(int16(v))
	case 4:
		return int64(int32(v))
	default:
		return int64(v)
	}
}

func isInteger(k reflect.Kind) bool {
	switch k {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func integerKind(k reflect.Kind) Kind {
	switch k {
	case reflect.Int8:
		return KindI8
	case reflect.Int16:
		return KindI16
	case reflect.Int32:
		return KindI32
	case reflect.Int64:
		return KindI64
	case reflect.Uint8:
		return KindU8
	case reflect.Uint16:
		return KindU16
	case reflect.Uint32:
		return KindU32
	default:
		return KindU64
	}
}

// IdentOf returns the identifier Layout.Ident would give t, without
// compiling it. It is safe to call from Named and Annotated hooks.
func IdentOf(t reflect.Type) string {
	switch {
	case t.Implements(namedType):
		return reflect.Zero(t).Interface().(Named).ReprName()
	case t == charType:
		return "char"
	case t == addrType:
		return "ptr_void"
	case t == cstrType:
		return "ptr_c_char"
	case t == fnptrType:
		return "fn"
	case t.Kind() == reflect.Uint64 && t.Implements(pointerType):
		return "ptr_" + IdentOf(reflect.Zero(t).Interface().(pointerMarker).pointee())
	case isOption(t):
		return "opt_" + IdentOf(reflect.Zero(t).Interface().(optionMarker).optionInner())
	case isInteger(t.Kind()) && t.Implements(enumType):
		return t.Name()
	}

	switch t.Kind() {
	case reflect.Bool:
		return "bool"
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return integerKind(t.Kind()).String()
	case reflect.Uintptr:
		return "usize"
	case reflect.Float32:
		return "f32"
	case reflect.Float64:
		return "f64"
	case reflect.Array:
		return "arr" + strconv.Itoa(t.Len()) + "_" + IdentOf(t.Elem())
	}
	return t.Name()
}

// CChar is the element of a C string.
func CChar() *Layout {
	l := Primitive(KindI8)
	l.Name = "c_char"
	return l
}

// SnakeCase converts a Go identifier to the boundary naming convention.
func SnakeCase(s string) string { return toSnakeCase(s) }

// toSnakeCase converts a Go identifier to snake_case, keeping acronyms
// together: OriginX -> origin_x, HTTPCode -> http_code.
func toSnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func sub(path []string, elem string) []string {
	return append(append(make([]string, 0, len(path)+1), path...), elem)
}
