// Package emu provides functional RV64I emulation.
package emu

// NumRegisters is the number of integer registers.
const NumRegisters = 32

// ABI register numbers used by the emulator.
const (
	RegZero uint8 = 0
	RegRA   uint8 = 1
	RegSP   uint8 = 2
	RegA0   uint8 = 10
	RegA1   uint8 = 11
	RegA2   uint8 = 12
	RegA3   uint8 = 13
	RegA7   uint8 = 17
)

// RegFile represents the RV64I register file.
// It contains 32 general-purpose registers (x0-x31) and the program
// counter (PC).
type RegFile struct {
	// X holds general-purpose registers x0-x31.
	// X[0] is hardwired to zero.
	X [NumRegisters]uint64

	// PC is the program counter.
	PC uint64
}

// ReadReg reads a register value. Register 0 and out-of-range indices
// return 0.
func (r *RegFile) ReadReg(reg uint8) uint64 {
	if reg == 0 || reg >= NumRegisters {
		return 0
	}
	return r.X[reg]
}

// ReadRegChecked reads a register value, failing for indices >= 32.
func (r *RegFile) ReadRegChecked(reg int) (uint64, error) {
	if reg < 0 || reg >= NumRegisters {
		return 0, &RegisterIndexError{Index: reg}
	}
	return r.ReadReg(uint8(reg)), nil
}

// WriteReg writes a value to a register. Writes to register 0 are
// discarded, so x0 can be used as a sink.
func (r *RegFile) WriteReg(reg uint8, value uint64) {
	if reg == 0 || reg >= NumRegisters {
		return
	}
	r.X[reg] = value
}

// Snapshot returns a copy of all 32 registers.
func (r *RegFile) Snapshot() [NumRegisters]uint64 {
	return r.X
}
