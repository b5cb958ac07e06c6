// Package insts provides RV64I instruction definitions and decoding.
package insts

// Major opcodes, bits [6:0].
const (
	OpcodeLoad    uint8 = 0b0000011 // 0x03
	OpcodeMiscMem uint8 = 0b0001111 // 0x0F
	OpcodeOpImm   uint8 = 0b0010011 // 0x13
	OpcodeAUIPC   uint8 = 0b0010111 // 0x17
	OpcodeOpImm32 uint8 = 0b0011011 // 0x1B
	OpcodeStore   uint8 = 0b0100011 // 0x23
	OpcodeOp      uint8 = 0b0110011 // 0x33
	OpcodeLUI     uint8 = 0b0110111 // 0x37
	OpcodeOp32    uint8 = 0b0111011 // 0x3B
	OpcodeBranch  uint8 = 0b1100011 // 0x63
	OpcodeJALR    uint8 = 0b1100111 // 0x67
	OpcodeJAL     uint8 = 0b1101111 // 0x6F
	OpcodeSystem  uint8 = 0b1110011 // 0x73
)

// funct7 values distinguishing overlapping funct3 encodings.
const (
	Funct7Base uint8 = 0b0000000
	Funct7Alt  uint8 = 0b0100000 // SUB, SRA, SUBW, SRAW, SRAIW
)

// Top six bits of the I-immediate for 64-bit immediate right shifts.
const (
	shiftTypeLogical    uint8 = 0b000000
	shiftTypeArithmetic uint8 = 0b010000
)

// SYSTEM funct12 values with funct3 == 0.
const (
	funct12ECALL  = 0x000
	funct12EBREAK = 0x001
)

// Op represents a RISC-V operation.
type Op uint16

// RV64I and Zicsr operations.
const (
	OpUnknown Op = iota

	// Integer register-immediate
	OpADDI
	OpSLTI
	OpSLTIU
	OpXORI
	OpORI
	OpANDI
	OpSLLI
	OpSRLI
	OpSRAI
	OpADDIW
	OpSLLIW
	OpSRLIW
	OpSRAIW

	// Upper immediate
	OpLUI
	OpAUIPC

	// Integer register-register
	OpADD
	OpSUB
	OpSLL
	OpSLT
	OpSLTU
	OpXOR
	OpSRL
	OpSRA
	OpOR
	OpAND
	OpADDW
	OpSUBW
	OpSLLW
	OpSRLW
	OpSRAW

	// Loads
	OpLB
	OpLH
	OpLW
	OpLD
	OpLBU
	OpLHU
	OpLWU

	// Stores
	OpSB
	OpSH
	OpSW
	OpSD

	// Control transfer
	OpJAL
	OpJALR
	OpBEQ
	OpBNE
	OpBLT
	OpBGE
	OpBLTU
	OpBGEU

	// Memory ordering and system
	OpFENCE
	OpFENCEI
	OpECALL
	OpEBREAK
	OpCSRRW
	OpCSRRS
	OpCSRRC
	OpCSRRWI
	OpCSRRSI
	OpCSRRCI
)

// Format represents an instruction encoding format.
type Format uint8

// Instruction formats.
const (
	FormatUnknown Format = iota
	FormatR
	FormatI
	FormatS
	FormatB
	FormatU
	FormatJ
)

// Instruction represents a decoded RISC-V instruction.
// Fields not used by the instruction's format are zero.
type Instruction struct {
	Word   uint32 // Raw instruction word
	Op     Op     // Operation
	Format Format // Encoding format

	Opcode uint8
	Rd     uint8
	Rs1    uint8
	Rs2    uint8
	Funct3 uint8
	Funct7 uint8

	// Imm is the format-specific immediate, sign-extended.
	// For B and J formats this is a byte offset relative to the instruction.
	Imm int64

	// Shamt is the shift amount for immediate shifts.
	Shamt uint8

	// CSR is the control/status register address for Zicsr instructions.
	CSR uint16
}

// Size returns the width of the instruction in bytes.
func (i *Instruction) Size() Size {
	return InstructionSize(i.Opcode)
}

// Decoder decodes RISC-V machine code into instructions.
type Decoder struct{}

// NewDecoder creates a new RISC-V instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit instruction word.
// Unknown opcodes and unknown funct3/funct7 combinations are reported as
// *UnsupportedOpcodeError and *DecodeError respectively.
func (d *Decoder) Decode(word uint32) (*Instruction, error) {
	opcode := Opcode(word)

	if size := InstructionSize(opcode); size != Size32 {
		return nil, &UnsupportedWidthError{Word: word, Opcode: opcode, Size: size}
	}

	inst := &Instruction{Word: word, Opcode: opcode}

	var err error
	switch opcode {
	case OpcodeOpImm:
		err = d.decodeOpImm(word, inst)
	case OpcodeOpImm32:
		err = d.decodeOpImm32(word, inst)
	case OpcodeLUI:
		d.decodeU(word, inst)
		inst.Op = OpLUI
	case OpcodeAUIPC:
		d.decodeU(word, inst)
		inst.Op = OpAUIPC
	case OpcodeOp:
		err = d.decodeOp(word, inst)
	case OpcodeOp32:
		err = d.decodeOp32(word, inst)
	case OpcodeLoad:
		err = d.decodeLoad(word, inst)
	case OpcodeStore:
		err = d.decodeStore(word, inst)
	case OpcodeJAL:
		inst.Format = FormatJ
		inst.Rd = Rd(word)
		inst.Imm = ImmJ(word)
		inst.Op = OpJAL
	case OpcodeJALR:
		err = d.decodeJALR(word, inst)
	case OpcodeBranch:
		err = d.decodeBranch(word, inst)
	case OpcodeMiscMem:
		err = d.decodeMiscMem(word, inst)
	case OpcodeSystem:
		err = d.decodeSystem(word, inst)
	default:
		return nil, &UnsupportedOpcodeError{Word: word, Opcode: opcode}
	}

	if err != nil {
		return nil, err
	}

	return inst, nil
}

// decodeI fills the fields shared by every I-format instruction.
func (d *Decoder) decodeI(word uint32, inst *Instruction) {
	inst.Format = FormatI
	inst.Rd = Rd(word)
	inst.Funct3 = Funct3(word)
	inst.Rs1 = Rs1(word)
	inst.Imm = ImmI(word)
}

// decodeR fills the fields shared by every R-format instruction.
func (d *Decoder) decodeR(word uint32, inst *Instruction) {
	inst.Format = FormatR
	inst.Rd = Rd(word)
	inst.Funct3 = Funct3(word)
	inst.Rs1 = Rs1(word)
	inst.Rs2 = Rs2(word)
	inst.Funct7 = Funct7(word)
}

// decodeU decodes LUI and AUIPC.
func (d *Decoder) decodeU(word uint32, inst *Instruction) {
	inst.Format = FormatU
	inst.Rd = Rd(word)
	inst.Imm = ImmU(word)
}

// decodeOpImm decodes integer register-immediate instructions (opcode 0x13).
func (d *Decoder) decodeOpImm(word uint32, inst *Instruction) error {
	d.decodeI(word, inst)

	switch inst.Funct3 {
	case 0b000:
		inst.Op = OpADDI
	case 0b010:
		inst.Op = OpSLTI
	case 0b011:
		inst.Op = OpSLTIU
	case 0b100:
		inst.Op = OpXORI
	case 0b110:
		inst.Op = OpORI
	case 0b111:
		inst.Op = OpANDI
	case 0b001, 0b101:
		// RV64I: shamt is imm[5:0], the shift type lives in imm[11:6]
		shiftType := uint8(word >> 26)
		inst.Shamt = Shamt(word)
		switch {
		case inst.Funct3 == 0b001 && shiftType == shiftTypeLogical:
			inst.Op = OpSLLI
		case inst.Funct3 == 0b101 && shiftType == shiftTypeLogical:
			inst.Op = OpSRLI
		case inst.Funct3 == 0b101 && shiftType == shiftTypeArithmetic:
			inst.Op = OpSRAI
		default:
			return newFunct7DecodeError(inst.Opcode, inst.Funct3, shiftType)
		}
	default:
		return newDecodeError(inst.Opcode, inst.Funct3)
	}

	return nil
}

// decodeOpImm32 decodes the 32-bit word register-immediate instructions
// (opcode 0x1B).
func (d *Decoder) decodeOpImm32(word uint32, inst *Instruction) error {
	d.decodeI(word, inst)

	if inst.Funct3 == 0b000 {
		inst.Op = OpADDIW
		return nil
	}

	// Word shifts: shamt is imm[4:0], funct7 selects the shift type
	funct7 := Funct7(word)
	inst.Funct7 = funct7
	inst.Shamt = Shamt(word) & 0x1F

	switch {
	case inst.Funct3 == 0b001 && funct7 == Funct7Base:
		inst.Op = OpSLLIW
	case inst.Funct3 == 0b101 && funct7 == Funct7Base:
		inst.Op = OpSRLIW
	case inst.Funct3 == 0b101 && funct7 == Funct7Alt:
		inst.Op = OpSRAIW
	default:
		return newFunct7DecodeError(inst.Opcode, inst.Funct3, funct7)
	}

	return nil
}

// decodeOp decodes integer register-register instructions (opcode 0x33).
func (d *Decoder) decodeOp(word uint32, inst *Instruction) error {
	d.decodeR(word, inst)

	switch {
	case inst.Funct7 == Funct7Base:
		switch inst.Funct3 {
		case 0b000:
			inst.Op = OpADD
		case 0b001:
			inst.Op = OpSLL
		case 0b010:
			inst.Op = OpSLT
		case 0b011:
			inst.Op = OpSLTU
		case 0b100:
			inst.Op = OpXOR
		case 0b101:
			inst.Op = OpSRL
		case 0b110:
			inst.Op = OpOR
		case 0b111:
			inst.Op = OpAND
		}
	case inst.Funct7 == Funct7Alt && inst.Funct3 == 0b000:
		inst.Op = OpSUB
	case inst.Funct7 == Funct7Alt && inst.Funct3 == 0b101:
		inst.Op = OpSRA
	}

	if inst.Op == OpUnknown {
		return newFunct7DecodeError(inst.Opcode, inst.Funct3, inst.Funct7)
	}

	return nil
}

// decodeOp32 decodes the 32-bit word register-register instructions
// (opcode 0x3B).
func (d *Decoder) decodeOp32(word uint32, inst *Instruction) error {
	d.decodeR(word, inst)

	switch {
	case inst.Funct3 == 0b000 && inst.Funct7 == Funct7Base:
		inst.Op = OpADDW
	case inst.Funct3 == 0b000 && inst.Funct7 == Funct7Alt:
		inst.Op = OpSUBW
	case inst.Funct3 == 0b001 && inst.Funct7 == Funct7Base:
		inst.Op = OpSLLW
	case inst.Funct3 == 0b101 && inst.Funct7 == Funct7Base:
		inst.Op = OpSRLW
	case inst.Funct3 == 0b101 && inst.Funct7 == Funct7Alt:
		inst.Op = OpSRAW
	default:
		return newFunct7DecodeError(inst.Opcode, inst.Funct3, inst.Funct7)
	}

	return nil
}

// decodeLoad decodes load instructions (opcode 0x03).
func (d *Decoder) decodeLoad(word uint32, inst *Instruction) error {
	d.decodeI(word, inst)

	switch inst.Funct3 {
	case 0b000:
		inst.Op = OpLB
	case 0b001:
		inst.Op = OpLH
	case 0b010:
		inst.Op = OpLW
	case 0b011:
		inst.Op = OpLD
	case 0b100:
		inst.Op = OpLBU
	case 0b101:
		inst.Op = OpLHU
	case 0b110:
		inst.Op = OpLWU
	default:
		return newDecodeError(inst.Opcode, inst.Funct3)
	}

	return nil
}

// decodeStore decodes store instructions (opcode 0x23).
func (d *Decoder) decodeStore(word uint32, inst *Instruction) error {
	inst.Format = FormatS
	inst.Funct3 = Funct3(word)
	inst.Rs1 = Rs1(word)
	inst.Rs2 = Rs2(word)
	inst.Imm = ImmS(word)

	switch inst.Funct3 {
	case 0b000:
		inst.Op = OpSB
	case 0b001:
		inst.Op = OpSH
	case 0b010:
		inst.Op = OpSW
	case 0b011:
		inst.Op = OpSD
	default:
		return newDecodeError(inst.Opcode, inst.Funct3)
	}

	return nil
}

// decodeJALR decodes JALR (opcode 0x67). funct3 must be zero.
func (d *Decoder) decodeJALR(word uint32, inst *Instruction) error {
	d.decodeI(word, inst)

	if inst.Funct3 != 0 {
		return newDecodeError(inst.Opcode, inst.Funct3)
	}
	inst.Op = OpJALR

	return nil
}

// decodeBranch decodes conditional branches (opcode 0x63).
func (d *Decoder) decodeBranch(word uint32, inst *Instruction) error {
	inst.Format = FormatB
	inst.Funct3 = Funct3(word)
	inst.Rs1 = Rs1(word)
	inst.Rs2 = Rs2(word)
	inst.Imm = ImmB(word)

	switch inst.Funct3 {
	case 0b000:
		inst.Op = OpBEQ
	case 0b001:
		inst.Op = OpBNE
	case 0b100:
		inst.Op = OpBLT
	case 0b101:
		inst.Op = OpBGE
	case 0b110:
		inst.Op = OpBLTU
	case 0b111:
		inst.Op = OpBGEU
	default:
		return newDecodeError(inst.Opcode, inst.Funct3)
	}

	return nil
}

// decodeMiscMem decodes FENCE and FENCE.I (opcode 0x0F).
func (d *Decoder) decodeMiscMem(word uint32, inst *Instruction) error {
	d.decodeI(word, inst)

	switch inst.Funct3 {
	case 0b000:
		inst.Op = OpFENCE
	case 0b001:
		inst.Op = OpFENCEI
	default:
		return newDecodeError(inst.Opcode, inst.Funct3)
	}

	return nil
}

// decodeSystem decodes ECALL, EBREAK and the Zicsr instructions
// (opcode 0x73).
func (d *Decoder) decodeSystem(word uint32, inst *Instruction) error {
	d.decodeI(word, inst)
	inst.CSR = CSRAddr(word)

	switch inst.Funct3 {
	case 0b000:
		// MRET, SRET, WFI and SFENCE.VMA share this funct3 and are not
		// implemented.
		if inst.Rd != 0 || inst.Rs1 != 0 {
			return newFunct7DecodeError(inst.Opcode, inst.Funct3, Funct7(word))
		}
		switch inst.CSR {
		case funct12ECALL:
			inst.Op = OpECALL
		case funct12EBREAK:
			inst.Op = OpEBREAK
		default:
			return newFunct7DecodeError(inst.Opcode, inst.Funct3, Funct7(word))
		}
	case 0b001:
		inst.Op = OpCSRRW
	case 0b010:
		inst.Op = OpCSRRS
	case 0b011:
		inst.Op = OpCSRRC
	case 0b101:
		inst.Op = OpCSRRWI
	case 0b110:
		inst.Op = OpCSRRSI
	case 0b111:
		inst.Op = OpCSRRCI
	default:
		return newDecodeError(inst.Opcode, inst.Funct3)
	}

	return nil
}
