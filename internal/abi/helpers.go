package abi

import (
	"encoding/binary"
	"math"
	"reflect"
)

// MaxArity is the largest number of positional parameters a closure or
// vtable slot may declare.
const MaxArity = 9

func SafeMulU32(a, b uint32) (uint32, bool) {
	if b != 0 && a > math.MaxUint32/b {
		return 0, false
	}
	return a * b, true
}

func SafeAddU32(a, b uint32) (uint32, bool) {
	if a > math.MaxUint32-b {
		return 0, false
	}
	return a + b, true
}

// TypeName returns "nil" for nil values, avoiding reflect.TypeOf(nil) panic.
func TypeName(value any) string {
	if value == nil {
		return "nil"
	}
	return reflect.TypeOf(value).String()
}

func AlignTo(offset, align uint32) uint32 {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

// ValidateChar rejects surrogates (0xD800-0xDFFF) and values >= 0x110000.
func ValidateChar(r uint32) bool {
	if r >= 0xD800 && r <= 0xDFFF {
		return false
	}
	return r < 0x110000
}

// CharNiche is the first code point no valid char can hold.
const CharNiche = 0x110000

// ReadWord reads one pointer word.
func ReadWord(b []byte) uint64 {
	return binary.LittleEndian.Uint64(b)
}

// WriteWord writes one pointer word.
func WriteWord(b []byte, v uint64) {
	binary.LittleEndian.PutUint64(b, v)
}

// IsZero reports whether every byte of b is zero.
func IsZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
