package memory

import (
	"bytes"

	ffibridge "github.com/wippyai/ffi-bridge"
	"github.com/wippyai/ffi-bridge/errors"
)

// WriteCString allocates len(s)+1 bytes and writes s followed by a NUL.
// A string with an interior NUL cannot be represented and is rejected
// before anything is allocated.
func WriteCString(mem ffibridge.Memory, alloc ffibridge.Allocator, s string) (ffibridge.Addr, error) {
	if i := bytes.IndexByte([]byte(s), 0); i >= 0 {
		return ffibridge.Null, errors.EmbeddedNul(errors.PhaseLower, i)
	}

	size := uint32(len(s)) + 1
	ptr, err := alloc.Alloc(size, 1)
	if err != nil {
		return ffibridge.Null, err
	}

	buf := make([]byte, size)
	copy(buf, s)
	if err := mem.Write(ptr, buf); err != nil {
		alloc.Free(ptr, size, 1)
		return ffibridge.Null, err
	}
	return ffibridge.Addr(ptr), nil
}

// ReadCString reads a NUL-terminated string at addr, scanning at most
// limit bytes.
func ReadCString(mem ffibridge.Memory, addr ffibridge.Addr, limit uint32) (string, error) {
	if addr.IsNull() {
		return "", errors.NilPointer(errors.PhaseLift, nil, "CStr")
	}

	const chunk = 64
	var out []byte
	offset := uint32(addr)
	for uint32(len(out)) < limit {
		n := uint32(chunk)
		if rest := limit - uint32(len(out)); rest < n {
			n = rest
		}
		b, err := readUpTo(mem, offset, n)
		if err != nil {
			return "", err
		}
		if i := bytes.IndexByte(b, 0); i >= 0 {
			return string(append(out, b[:i]...)), nil
		}
		out = append(out, b...)
		offset += uint32(len(b))
	}
	return "", errors.InvalidData(errors.PhaseLift, nil, "C string is not terminated within the scan limit")
}

// readUpTo reads n bytes, or byte by byte near the end of memory.
func readUpTo(mem ffibridge.Memory, offset, n uint32) ([]byte, error) {
	b, err := mem.Read(offset, n)
	if err == nil {
		return b, nil
	}
	var out []byte
	for i := uint32(0); i < n; i++ {
		c, err := mem.ReadU8(offset + i)
		if err != nil {
			if len(out) == 0 {
				return nil, err
			}
			break
		}
		out = append(out, c)
		if c == 0 {
			break
		}
	}
	return out, nil
}
