package memory

import (
	"encoding/binary"

	ffibridge "github.com/wippyai/ffi-bridge"
)

// Buffer is foreign memory backed by a fixed byte slice.
type Buffer struct {
	data []byte
}

var (
	_ ffibridge.Memory      = (*Buffer)(nil)
	_ ffibridge.MemorySizer = (*Buffer)(nil)
)

// NewBuffer allocates a zeroed buffer of size bytes.
func NewBuffer(size uint32) *Buffer {
	return &Buffer{data: make([]byte, size)}
}

// Bytes returns the underlying storage.
func (b *Buffer) Bytes() []byte { return b.data }

// Size returns the buffer length.
func (b *Buffer) Size() uint32 { return uint32(len(b.data)) }

func (b *Buffer) span(offset, length uint32) ([]byte, bool) {
	end := uint64(offset) + uint64(length)
	if end > uint64(len(b.data)) {
		return nil, false
	}
	return b.data[offset:end], true
}

// Read returns a copy of length bytes at offset.
func (b *Buffer) Read(offset uint32, length uint32) ([]byte, error) {
	s, ok := b.span(offset, length)
	if !ok {
		return nil, readFault(offset, length)
	}
	return append([]byte(nil), s...), nil
}

// Write copies data to offset.
func (b *Buffer) Write(offset uint32, data []byte) error {
	s, ok := b.span(offset, uint32(len(data)))
	if !ok {
		return writeFault(offset, uint32(len(data)))
	}
	copy(s, data)
	return nil
}

func (b *Buffer) ReadU8(offset uint32) (uint8, error) {
	s, ok := b.span(offset, 1)
	if !ok {
		return 0, readFault(offset, 1)
	}
	return s[0], nil
}

func (b *Buffer) ReadU16(offset uint32) (uint16, error) {
	s, ok := b.span(offset, 2)
	if !ok {
		return 0, readFault(offset, 2)
	}
	return binary.LittleEndian.Uint16(s), nil
}

func (b *Buffer) ReadU32(offset uint32) (uint32, error) {
	s, ok := b.span(offset, 4)
	if !ok {
		return 0, readFault(offset, 4)
	}
	return binary.LittleEndian.Uint32(s), nil
}

func (b *Buffer) ReadU64(offset uint32) (uint64, error) {
	s, ok := b.span(offset, 8)
	if !ok {
		return 0, readFault(offset, 8)
	}
	return binary.LittleEndian.Uint64(s), nil
}

func (b *Buffer) WriteU8(offset uint32, value uint8) error {
	s, ok := b.span(offset, 1)
	if !ok {
		return writeFault(offset, 1)
	}
	s[0] = value
	return nil
}

func (b *Buffer) WriteU16(offset uint32, value uint16) error {
	s, ok := b.span(offset, 2)
	if !ok {
		return writeFault(offset, 2)
	}
	binary.LittleEndian.PutUint16(s, value)
	return nil
}

func (b *Buffer) WriteU32(offset uint32, value uint32) error {
	s, ok := b.span(offset, 4)
	if !ok {
		return writeFault(offset, 4)
	}
	binary.LittleEndian.PutUint32(s, value)
	return nil
}

func (b *Buffer) WriteU64(offset uint32, value uint64) error {
	s, ok := b.span(offset, 8)
	if !ok {
		return writeFault(offset, 8)
	}
	binary.LittleEndian.PutUint64(s, value)
	return nil
}
