// Package emu provides functional RV64I emulation.
package emu

import (
	"encoding/binary"
	"fmt"
)

// Memory is a flat, little-endian, byte-addressable backing store.
// Offsets are relative to the start of the store; address translation is
// the Bus's job.
type Memory struct {
	data []byte
}

// NewMemory creates a zero-filled memory of the given size in bytes.
func NewMemory(size uint64) *Memory {
	return &Memory{data: make([]byte, size)}
}

// Size returns the size of the backing store in bytes.
func (m *Memory) Size() uint64 {
	return uint64(len(m.data))
}

// LoadImage copies an initial program image to offset 0.
func (m *Memory) LoadImage(image []byte) error {
	return m.LoadSegment(0, image)
}

// LoadSegment copies data to the given offset.
func (m *Memory) LoadSegment(offset uint64, data []byte) error {
	if err := m.WriteBytes(offset, data); err != nil {
		return fmt.Errorf("image of %d bytes does not fit: %w", len(data), err)
	}
	return nil
}

// WriteBytes copies data to the given offset.
func (m *Memory) WriteBytes(offset uint64, data []byte) error {
	if err := m.check(offset, len(data)); err != nil {
		return err
	}
	copy(m.data[offset:], data)
	return nil
}

// Bytes returns a copy of size bytes starting at offset.
func (m *Memory) Bytes(offset uint64, size int) ([]byte, error) {
	if err := m.check(offset, size); err != nil {
		return nil, err
	}
	out := make([]byte, size)
	copy(out, m.data[offset:])
	return out, nil
}

// check fails unless [offset, offset+size) lies inside the store.
func (m *Memory) check(offset uint64, size int) error {
	n := uint64(len(m.data))
	if uint64(size) > n || offset > n-uint64(size) {
		return &AddressError{Addr: offset, Size: size, Err: ErrOutOfBounds}
	}
	return nil
}

// Load8 reads a byte.
func (m *Memory) Load8(offset uint64) (uint8, error) {
	if err := m.check(offset, 1); err != nil {
		return 0, err
	}
	return m.data[offset], nil
}

// Load16 reads a little-endian halfword.
func (m *Memory) Load16(offset uint64) (uint16, error) {
	if err := m.check(offset, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(m.data[offset:]), nil
}

// Load32 reads a little-endian word.
func (m *Memory) Load32(offset uint64) (uint32, error) {
	if err := m.check(offset, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(m.data[offset:]), nil
}

// Load64 reads a little-endian doubleword.
func (m *Memory) Load64(offset uint64) (uint64, error) {
	if err := m.check(offset, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(m.data[offset:]), nil
}

// Store8 writes a byte.
func (m *Memory) Store8(offset uint64, value uint8) error {
	if err := m.check(offset, 1); err != nil {
		return err
	}
	m.data[offset] = value
	return nil
}

// Store16 writes a little-endian halfword.
func (m *Memory) Store16(offset uint64, value uint16) error {
	if err := m.check(offset, 2); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(m.data[offset:], value)
	return nil
}

// Store32 writes a little-endian word.
func (m *Memory) Store32(offset uint64, value uint32) error {
	if err := m.check(offset, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(m.data[offset:], value)
	return nil
}

// Store64 writes a little-endian doubleword.
func (m *Memory) Store64(offset uint64, value uint64) error {
	if err := m.check(offset, 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(m.data[offset:], value)
	return nil
}

// Clear zeroes the whole store.
func (m *Memory) Clear() {
	clear(m.data)
}
