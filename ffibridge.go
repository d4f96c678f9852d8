package ffibridge

// Addr is a foreign-visible address. Zero is the null address.
//
// Addresses of host allocations are handles into the process address space
// (see package heap); addresses into a foreign linear memory are plain
// offsets. Both occupy one 8-byte little-endian pointer word at the boundary.
type Addr uint64

// Null is the zero address.
const Null Addr = 0

// PointerSize is the size and alignment of every pointer and function
// pointer in a canonical layout.
const PointerSize = 8

// IsNull reports whether a is the null address.
func (a Addr) IsNull() bool { return a == 0 }

// Memory represents foreign linear memory.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU8(offset uint32) (uint8, error)
	ReadU16(offset uint32) (uint16, error)
	ReadU32(offset uint32) (uint32, error)
	ReadU64(offset uint32) (uint64, error)
	WriteU8(offset uint32, value uint8) error
	WriteU16(offset uint32, value uint16) error
	WriteU32(offset uint32, value uint32) error
	WriteU64(offset uint32, value uint64) error
}

// MemorySizer provides the current size of foreign memory in bytes.
type MemorySizer interface {
	Size() uint32
}

// Allocator allocates blocks in foreign memory.
type Allocator interface {
	Alloc(size, align uint32) (uint32, error)
	Free(ptr, size, align uint32)
}
