package repr

// Kind classifies a canonical layout.
type Kind uint8

const (
	KindVoid Kind = iota
	KindBool
	KindU8
	KindI8
	KindU16
	KindI16
	KindU32
	KindI32
	KindU64
	KindI64
	KindF32
	KindF64
	KindChar
	KindUsize
	KindPointer
	KindFuncPtr
	KindStruct
	KindArray
	KindEnum
	KindOpaque
)

var kindNames = [...]string{
	KindVoid:    "void",
	KindBool:    "bool",
	KindU8:      "u8",
	KindI8:      "i8",
	KindU16:     "u16",
	KindI16:     "i16",
	KindU32:     "u32",
	KindI32:     "i32",
	KindU64:     "u64",
	KindI64:     "i64",
	KindF32:     "f32",
	KindF64:     "f64",
	KindChar:    "char",
	KindUsize:   "usize",
	KindPointer: "pointer",
	KindFuncPtr: "funcptr",
	KindStruct:  "struct",
	KindArray:   "array",
	KindEnum:    "enum",
	KindOpaque:  "opaque",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsPrimitive reports whether k is a scalar with no nested layout.
func (k Kind) IsPrimitive() bool {
	return k >= KindBool && k <= KindUsize
}

// IsInteger reports whether k is a fixed-width integer.
func (k Kind) IsInteger() bool {
	return k >= KindU8 && k <= KindI64
}

// IsSigned reports whether k is a signed integer.
func (k Kind) IsSigned() bool {
	switch k {
	case KindI8, KindI16, KindI32, KindI64:
		return true
	}
	return false
}

// IsNamed reports whether layouts of kind k carry a declaration name.
func (k Kind) IsNamed() bool {
	return k == KindStruct || k == KindEnum || k == KindOpaque
}

// primitiveSize returns the size (and alignment) of a scalar kind.
func primitiveSize(k Kind) uint32 {
	switch k {
	case KindBool, KindU8, KindI8:
		return 1
	case KindU16, KindI16:
		return 2
	case KindU32, KindI32, KindF32, KindChar:
		return 4
	case KindU64, KindI64, KindF64, KindUsize, KindPointer, KindFuncPtr:
		return 8
	default:
		return 0
	}
}
