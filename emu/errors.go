// Package emu provides functional RV64I emulation.
package emu

import (
	"errors"
	"fmt"
)

// Sentinel errors for address faults. Use errors.Is against an
// *AddressError to tell them apart.
var (
	// ErrOutOfBounds is returned when an access extends past the end of
	// the backing store.
	ErrOutOfBounds = errors.New("cannot access memory that is out of bounds")

	// ErrAddressNotFound is returned when an address is below the bus base
	// address.
	ErrAddressNotFound = errors.New("cannot access specified address")
)

// ErrMaxInstructions is returned by Step once the configured instruction
// limit has been reached.
var ErrMaxInstructions = errors.New("max instructions reached")

// AddressError is an address fault raised by a memory or bus access.
type AddressError struct {
	Addr uint64 // Address as presented to the faulting component
	Size int    // Access size in bytes
	Err  error  // ErrOutOfBounds or ErrAddressNotFound
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("%v: addr=0x%X size=%d", e.Err, e.Addr, e.Size)
}

func (e *AddressError) Unwrap() error {
	return e.Err
}

// RegisterIndexError is returned by the bounds-checked register read path
// for an index >= 32.
type RegisterIndexError struct {
	Index int
}

func (e *RegisterIndexError) Error() string {
	return fmt.Sprintf("cannot access register x%d which is out of bounds", e.Index)
}
