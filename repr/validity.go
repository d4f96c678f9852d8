package repr

import (
	"bytes"
	"encoding/binary"

	"github.com/wippyai/ffi-bridge/internal/abi"
)

// Type is a canonical boundary type: a layout plus its validity predicate.
type Type interface {
	// Layout returns the canonical layout.
	Layout() *Layout
	// IsValid reports whether b holds a valid value. It reads at most
	// Layout().Size bytes and has no side effects.
	IsValid(b []byte) bool
	// Niche returns a bit pattern that IsValid rejects, if one exists.
	Niche() (Niche, bool)
}

// Niche is a byte pattern at Offset that no valid value holds. It encodes
// the absent state of an Option without extra bytes.
type Niche struct {
	Pattern []byte
	Offset  uint32
}

// Matches reports whether b carries the niche pattern.
func (n Niche) Matches(b []byte) bool {
	end := int(n.Offset) + len(n.Pattern)
	if len(b) < end {
		return false
	}
	return bytes.Equal(b[n.Offset:end], n.Pattern)
}

// Write zero-fills b and writes the pattern at its offset.
func (n Niche) Write(b []byte) {
	clear(b)
	copy(b[n.Offset:], n.Pattern)
}

func (n Niche) shift(by uint32) Niche {
	return Niche{Offset: n.Offset + by, Pattern: n.Pattern}
}

// LayoutType returns the Type described by l alone. Validity and niche are
// derived from the layout; there is no Go value mapping.
func LayoutType(l *Layout) Type {
	lt := &layoutType{layout: l, check: checks(l)}
	if n, ok := nicheOf(l); ok {
		lt.niche = &n
	}
	return lt
}

type layoutType struct {
	layout *Layout
	check  func([]byte) bool
	niche  *Niche
}

func (t *layoutType) Layout() *Layout { return t.layout }

func (t *layoutType) IsValid(b []byte) bool {
	if len(b) < int(t.layout.Size) {
		return false
	}
	return t.check == nil || t.check(b)
}

func (t *layoutType) Niche() (Niche, bool) {
	if t.niche == nil {
		return Niche{}, false
	}
	return *t.niche, true
}

// checks builds the validity predicate for l. A nil result means every bit
// pattern of the right size is valid.
func checks(l *Layout) func([]byte) bool {
	base := baseChecks(l)
	if !l.Optional {
		return base
	}
	n, ok := nicheOf(stripOptional(l))
	if !ok {
		return base
	}
	if base == nil {
		return nil
	}
	return func(b []byte) bool {
		return n.Matches(b) || base(b)
	}
}

func stripOptional(l *Layout) *Layout {
	if !l.Optional {
		return l
	}
	inner := *l
	inner.Optional = false
	return &inner
}

func baseChecks(l *Layout) func([]byte) bool {
	switch l.Kind {
	case KindBool:
		return func(b []byte) bool { return b[0] <= 1 }

	case KindChar:
		return func(b []byte) bool {
			return abi.ValidateChar(binary.LittleEndian.Uint32(b))
		}

	case KindPointer, KindFuncPtr:
		if l.Nullable {
			return nil
		}
		return func(b []byte) bool { return abi.ReadWord(b) != 0 }

	case KindU8, KindU16, KindU32, KindU64:
		if l.Bits == 0 || l.Bits >= 8*l.Size {
			return nil
		}
		size := l.Size
		mask := ^(uint64(1)<<l.Bits - 1)
		return func(b []byte) bool { return readUint(b, size)&mask == 0 }

	case KindEnum:
		size := l.Size
		n := uint64(len(l.Cases))
		contiguous := true
		for i, c := range l.Cases {
			if c.Value != uint64(i) {
				contiguous = false
				break
			}
		}
		if contiguous {
			return func(b []byte) bool { return readUint(b, size) < n }
		}
		values := make(map[uint64]struct{}, len(l.Cases))
		for _, c := range l.Cases {
			values[c.Value] = struct{}{}
		}
		return func(b []byte) bool {
			_, ok := values[readUint(b, size)]
			return ok
		}

	case KindArray:
		elem := checks(l.Elem)
		if elem == nil || l.Len == 0 {
			return nil
		}
		stride := l.Elem.Size
		count := l.Len
		return func(b []byte) bool {
			for i := uint32(0); i < count; i++ {
				if !elem(b[i*stride:]) {
					return false
				}
			}
			return true
		}

	case KindStruct:
		type fieldCheck struct {
			check  func([]byte) bool
			offset uint32
		}
		var fcs []fieldCheck
		for _, f := range l.Fields {
			if f.Padding {
				continue
			}
			if c := checks(f.Layout); c != nil {
				fcs = append(fcs, fieldCheck{check: c, offset: f.Offset})
			}
		}
		if len(fcs) == 0 {
			return nil
		}
		return func(b []byte) bool {
			for _, fc := range fcs {
				if !fc.check(b[fc.offset:]) {
					return false
				}
			}
			return true
		}

	default:
		return nil
	}
}

// nicheOf finds an invalid bit pattern of l. Optional layouts have none:
// their niche is already taken by the absent state.
func nicheOf(l *Layout) (Niche, bool) {
	if l.Optional {
		return Niche{}, false
	}
	switch l.Kind {
	case KindBool:
		return Niche{Pattern: []byte{2}}, true

	case KindChar:
		p := make([]byte, 4)
		binary.LittleEndian.PutUint32(p, abi.CharNiche)
		return Niche{Pattern: p}, true

	case KindPointer, KindFuncPtr:
		if l.Nullable {
			return Niche{}, false
		}
		return Niche{Pattern: make([]byte, 8)}, true

	case KindU8, KindU16, KindU32, KindU64:
		if l.Bits == 0 || l.Bits >= 8*l.Size {
			return Niche{}, false
		}
		p := make([]byte, l.Size)
		writeUint(p, l.Size, uint64(1)<<l.Bits)
		return Niche{Pattern: p}, true

	case KindEnum:
		var next uint64
		for _, c := range l.Cases {
			if c.Value >= next {
				next = c.Value + 1
			}
		}
		if l.Size < 8 && next >= uint64(1)<<(8*l.Size) {
			return Niche{}, false
		}
		if next == 0 {
			return Niche{}, false
		}
		p := make([]byte, l.Size)
		writeUint(p, l.Size, next)
		return Niche{Pattern: p}, true

	case KindArray:
		if l.Len == 0 {
			return Niche{}, false
		}
		return nicheOf(l.Elem)

	case KindStruct:
		for _, f := range l.Fields {
			if f.Padding {
				continue
			}
			if n, ok := nicheOf(f.Layout); ok {
				return n.shift(f.Offset), true
			}
		}
	}
	return Niche{}, false
}

func readUint(b []byte, size uint32) uint64 {
	switch size {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(b))
	case 4:
		return uint64(binary.LittleEndian.Uint32(b))
	default:
		return binary.LittleEndian.Uint64(b)
	}
}

func writeUint(b []byte, size uint32, v uint64) {
	switch size {
	case 1:
		b[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(v))
	default:
		binary.LittleEndian.PutUint64(b, v)
	}
}
