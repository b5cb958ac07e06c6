// Package emu provides functional RV64I emulation.
package emu

import "errors"

// DefaultBaseAddress is where DRAM is mapped on the bus.
const DefaultBaseAddress uint64 = 0x8000_0000

// DefaultMemorySize is the default DRAM size (128MB).
const DefaultMemorySize uint64 = 128 * 1024 * 1024

// AccessKind identifies the source of a bus access.
type AccessKind uint8

// Access kinds.
const (
	AccessFetch AccessKind = iota
	AccessLoad
	AccessStore
)

// AccessObserver is notified of every successful bus access. Observers
// must not modify memory.
type AccessObserver interface {
	ObserveAccess(kind AccessKind, addr uint64, size int)
}

// Bus translates machine addresses to memory offsets by subtracting a
// fixed base address.
type Bus struct {
	base     uint64
	memory   *Memory
	observer AccessObserver
}

// NewBus creates a bus mapping memory at base.
func NewBus(base uint64, memory *Memory) *Bus {
	return &Bus{base: base, memory: memory}
}

// Base returns the base address of memory on the bus.
func (b *Bus) Base() uint64 {
	return b.base
}

// Memory returns the memory behind the bus.
func (b *Bus) Memory() *Memory {
	return b.memory
}

// SetObserver attaches an access observer. A nil observer detaches it.
func (b *Bus) SetObserver(observer AccessObserver) {
	b.observer = observer
}

func (b *Bus) translate(addr uint64, size int) (uint64, error) {
	if addr < b.base {
		return 0, &AddressError{Addr: addr, Size: size, Err: ErrAddressNotFound}
	}
	return addr - b.base, nil
}

// machineAddr rewrites a memory fault to carry the bus address.
func (b *Bus) machineAddr(err error) error {
	var addrErr *AddressError
	if errors.As(err, &addrErr) {
		addrErr.Addr += b.base
	}
	return err
}

func (b *Bus) notify(kind AccessKind, addr uint64, size int) {
	if b.observer != nil {
		b.observer.ObserveAccess(kind, addr, size)
	}
}

// Fetch reads a 32-bit instruction word.
func (b *Bus) Fetch(addr uint64) (uint32, error) {
	offset, err := b.translate(addr, 4)
	if err != nil {
		return 0, err
	}
	word, err := b.memory.Load32(offset)
	if err != nil {
		return 0, b.machineAddr(err)
	}
	b.notify(AccessFetch, addr, 4)
	return word, nil
}

// Load8 reads a byte.
func (b *Bus) Load8(addr uint64) (uint8, error) {
	offset, err := b.translate(addr, 1)
	if err != nil {
		return 0, err
	}
	v, err := b.memory.Load8(offset)
	if err != nil {
		return 0, b.machineAddr(err)
	}
	b.notify(AccessLoad, addr, 1)
	return v, nil
}

// Load16 reads a halfword.
func (b *Bus) Load16(addr uint64) (uint16, error) {
	offset, err := b.translate(addr, 2)
	if err != nil {
		return 0, err
	}
	v, err := b.memory.Load16(offset)
	if err != nil {
		return 0, b.machineAddr(err)
	}
	b.notify(AccessLoad, addr, 2)
	return v, nil
}

// Load32 reads a word.
func (b *Bus) Load32(addr uint64) (uint32, error) {
	offset, err := b.translate(addr, 4)
	if err != nil {
		return 0, err
	}
	v, err := b.memory.Load32(offset)
	if err != nil {
		return 0, b.machineAddr(err)
	}
	b.notify(AccessLoad, addr, 4)
	return v, nil
}

// Load64 reads a doubleword.
func (b *Bus) Load64(addr uint64) (uint64, error) {
	offset, err := b.translate(addr, 8)
	if err != nil {
		return 0, err
	}
	v, err := b.memory.Load64(offset)
	if err != nil {
		return 0, b.machineAddr(err)
	}
	b.notify(AccessLoad, addr, 8)
	return v, nil
}

// Store8 writes a byte.
func (b *Bus) Store8(addr uint64, value uint8) error {
	offset, err := b.translate(addr, 1)
	if err != nil {
		return err
	}
	if err := b.memory.Store8(offset, value); err != nil {
		return b.machineAddr(err)
	}
	b.notify(AccessStore, addr, 1)
	return nil
}

// Store16 writes a halfword.
func (b *Bus) Store16(addr uint64, value uint16) error {
	offset, err := b.translate(addr, 2)
	if err != nil {
		return err
	}
	if err := b.memory.Store16(offset, value); err != nil {
		return b.machineAddr(err)
	}
	b.notify(AccessStore, addr, 2)
	return nil
}

// Store32 writes a word.
func (b *Bus) Store32(addr uint64, value uint32) error {
	offset, err := b.translate(addr, 4)
	if err != nil {
		return err
	}
	if err := b.memory.Store32(offset, value); err != nil {
		return b.machineAddr(err)
	}
	b.notify(AccessStore, addr, 4)
	return nil
}

// Store64 writes a doubleword.
func (b *Bus) Store64(addr uint64, value uint64) error {
	offset, err := b.translate(addr, 8)
	if err != nil {
		return err
	}
	if err := b.memory.Store64(offset, value); err != nil {
		return b.machineAddr(err)
	}
	b.notify(AccessStore, addr, 8)
	return nil
}

// ReadBytes copies n bytes starting at addr without notifying the observer.
// It serves host-side copies such as syscall buffers.
func (b *Bus) ReadBytes(addr uint64, n int) ([]byte, error) {
	offset, err := b.translate(addr, n)
	if err != nil {
		return nil, err
	}
	data, err := b.memory.Bytes(offset, n)
	if err != nil {
		return nil, b.machineAddr(err)
	}
	return data, nil
}

// WriteBytes copies data to addr without notifying the observer.
func (b *Bus) WriteBytes(addr uint64, data []byte) error {
	offset, err := b.translate(addr, len(data))
	if err != nil {
		return err
	}
	if err := b.memory.WriteBytes(offset, data); err != nil {
		return b.machineAddr(err)
	}
	return nil
}
