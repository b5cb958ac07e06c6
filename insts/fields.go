package insts

// Opcode returns bits [6:0] of an instruction word.
func Opcode(word uint32) uint8 {
	return uint8(word & 0x7F)
}

// Rd returns the destination register index, bits [11:7].
func Rd(word uint32) uint8 {
	return uint8((word >> 7) & 0x1F)
}

// Funct3 returns bits [14:12].
func Funct3(word uint32) uint8 {
	return uint8((word >> 12) & 0x7)
}

// Rs1 returns the first source register index, bits [19:15].
func Rs1(word uint32) uint8 {
	return uint8((word >> 15) & 0x1F)
}

// Rs2 returns the second source register index, bits [24:20].
func Rs2(word uint32) uint8 {
	return uint8((word >> 20) & 0x1F)
}

// Funct7 returns bits [31:25].
func Funct7(word uint32) uint8 {
	return uint8((word >> 25) & 0x7F)
}

// Shamt returns the 6-bit shift amount held in bits [25:20].
func Shamt(word uint32) uint8 {
	return uint8((word >> 20) & 0x3F)
}

// CSRAddr returns the 12-bit CSR address held in bits [31:20].
func CSRAddr(word uint32) uint16 {
	return uint16(word >> 20)
}

// ImmI returns the sign-extended I-format immediate, bits [31:20].
func ImmI(word uint32) int64 {
	return int64(int32(word) >> 20)
}

// ImmS returns the sign-extended S-format immediate.
// imm[11:5] = bits [31:25], imm[4:0] = bits [11:7]
func ImmS(word uint32) int64 {
	hi := int64(int32(word&0xFE000000) >> 20) // imm[11:5], sign-extended
	lo := int64((word >> 7) & 0x1F)           // imm[4:0]
	return hi | lo
}

// ImmB returns the sign-extended B-format branch offset.
// imm[12] = bit 31, imm[11] = bit 7, imm[10:5] = bits [30:25],
// imm[4:1] = bits [11:8], imm[0] = 0
func ImmB(word uint32) int64 {
	imm12 := int64(int32(word&0x80000000) >> 19)
	imm11 := int64((word & 0x80) << 4)
	imm10to5 := int64((word >> 20) & 0x7E0)
	imm4to1 := int64((word >> 7) & 0x1E)
	return imm12 | imm11 | imm10to5 | imm4to1
}

// ImmU returns the U-format immediate: bits [31:12] in place, low 12 bits
// zero, sign-extended from bit 31.
func ImmU(word uint32) int64 {
	return int64(int32(word & 0xFFFFF000))
}

// ImmJ returns the sign-extended J-format jump offset.
// imm[20] = bit 31, imm[19:12] = bits [19:12], imm[11] = bit 20,
// imm[10:1] = bits [30:21], imm[0] = 0
func ImmJ(word uint32) int64 {
	imm20 := int64(int32(word&0x80000000) >> 11)
	imm19to12 := int64(word & 0xFF000)
	imm11 := int64((word >> 9) & 0x800)
	imm10to1 := int64((word >> 20) & 0x7FE)
	return imm20 | imm19to12 | imm11 | imm10to1
}

// Size is the encoded width of an instruction in bytes.
type Size uint8

// Instruction widths.
const (
	Size16 Size = 2 // Compressed (C extension), classified only
	Size32 Size = 4
)

// InstructionSize classifies an instruction width from its opcode.
// The two least significant bits are 0b11 for every 32-bit instruction.
func InstructionSize(opcode uint8) Size {
	if opcode&0b11 == 0b11 {
		return Size32
	}
	return Size16
}
