// Package emu provides functional RV64I emulation.
package emu

// NumCSRs is the size of the CSR address space.
const NumCSRs = 4096

// Machine-level CSR addresses.
const (
	CSRMStatus uint16 = 0x300 // Machine status register
	CSRMEDeleg uint16 = 0x302 // Machine exception delegation register
	CSRMIDeleg uint16 = 0x303 // Machine interrupt delegation register
	CSRMIE     uint16 = 0x304 // Machine interrupt-enable register
	CSRMTVec   uint16 = 0x305 // Machine trap-handler base address
	CSRMEPC    uint16 = 0x341 // Machine exception program counter
	CSRMCause  uint16 = 0x342 // Machine trap cause
	CSRMTVal   uint16 = 0x343 // Machine bad address or instruction
	CSRMIP     uint16 = 0x344 // Machine interrupt pending
)

// Supervisor-level CSR addresses.
const (
	CSRSStatus uint16 = 0x100 // Supervisor status register
	CSRSIE     uint16 = 0x104 // Supervisor interrupt-enable register
	CSRSTVec   uint16 = 0x105 // Supervisor trap handler base address
	CSRSEPC    uint16 = 0x141 // Supervisor exception program counter
	CSRSCause  uint16 = 0x142 // Supervisor trap cause
	CSRSTVal   uint16 = 0x143 // Supervisor bad address or instruction
	CSRSIP     uint16 = 0x144 // Supervisor interrupt pending
	CSRSATP    uint16 = 0x180 // Supervisor address translation and protection
)

// CSRFile is the control/status register bank.
type CSRFile struct {
	regs [NumCSRs]uint64
}

// NewCSRFile creates a zeroed CSR file.
func NewCSRFile() *CSRFile {
	return &CSRFile{}
}

// Read reads a CSR. SIE is a view of the delegated bits of MIE.
func (c *CSRFile) Read(addr uint16) uint64 {
	addr &= NumCSRs - 1
	switch addr {
	case CSRSIE:
		return c.regs[CSRMIE] & c.regs[CSRMIDeleg]
	default:
		return c.regs[addr]
	}
}

// Write writes a CSR. Writing SIE only updates the delegated bits of MIE.
func (c *CSRFile) Write(addr uint16, value uint64) {
	addr &= NumCSRs - 1
	switch addr {
	case CSRSIE:
		deleg := c.regs[CSRMIDeleg]
		c.regs[CSRMIE] = (c.regs[CSRMIE] &^ deleg) | (value & deleg)
	default:
		c.regs[addr] = value
	}
}
