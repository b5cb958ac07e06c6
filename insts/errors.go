package insts

import "fmt"

// DecodeError reports a recognized opcode whose funct3/funct7 combination
// does not name an implemented instruction.
type DecodeError struct {
	Opcode uint8
	Funct3 uint8
	Funct7 uint8

	// HasFunct7 is set when Funct7 took part in the dispatch. For
	// 64-bit immediate shifts Funct7 holds the top six immediate bits.
	HasFunct7 bool
}

func newDecodeError(opcode, funct3 uint8) *DecodeError {
	return &DecodeError{Opcode: opcode, Funct3: funct3}
}

func newFunct7DecodeError(opcode, funct3, funct7 uint8) *DecodeError {
	return &DecodeError{Opcode: opcode, Funct3: funct3, Funct7: funct7, HasFunct7: true}
}

func (e *DecodeError) Error() string {
	if e.HasFunct7 {
		return fmt.Sprintf("function not implemented: opcode=0x%02X funct3=0x%X funct7=0x%02X",
			e.Opcode, e.Funct3, e.Funct7)
	}
	return fmt.Sprintf("function not implemented: opcode=0x%02X funct3=0x%X", e.Opcode, e.Funct3)
}

// UnsupportedOpcodeError reports an opcode that is not recognized at all.
type UnsupportedOpcodeError struct {
	Word   uint32
	Opcode uint8
}

func (e *UnsupportedOpcodeError) Error() string {
	return fmt.Sprintf("instruction not implemented: opcode=0x%02X word=0x%08X", e.Opcode, e.Word)
}

// UnsupportedWidthError reports an instruction whose opcode implies a width
// other than 32 bits.
type UnsupportedWidthError struct {
	Word   uint32
	Opcode uint8
	Size   Size
}

func (e *UnsupportedWidthError) Error() string {
	return fmt.Sprintf("instruction size not supported: %d-byte instruction (opcode=0x%02X word=0x%08X)",
		e.Size, e.Opcode, e.Word)
}
