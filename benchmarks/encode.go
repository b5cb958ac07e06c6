package benchmarks

import "encoding/binary"

// Helper functions for building RV64I programs.

// BuildProgram assembles instruction words into a little-endian byte slice.
func BuildProgram(instrs ...uint32) []byte {
	program := make([]byte, 4*len(instrs))
	for i, inst := range instrs {
		binary.LittleEndian.PutUint32(program[4*i:], inst)
	}
	return program
}

func encodeR(funct7 uint32, rs2, rs1 uint8, funct3 uint32, rd uint8, opcode uint32) uint32 {
	return funct7<<25 | uint32(rs2&0x1F)<<20 | uint32(rs1&0x1F)<<15 |
		funct3<<12 | uint32(rd&0x1F)<<7 | opcode
}

func encodeI(imm int32, rs1 uint8, funct3 uint32, rd uint8, opcode uint32) uint32 {
	return (uint32(imm)&0xFFF)<<20 | uint32(rs1&0x1F)<<15 |
		funct3<<12 | uint32(rd&0x1F)<<7 | opcode
}

func encodeS(imm int32, rs2, rs1 uint8, funct3 uint32) uint32 {
	u := uint32(imm)
	return (u>>5&0x7F)<<25 | uint32(rs2&0x1F)<<20 | uint32(rs1&0x1F)<<15 |
		funct3<<12 | (u&0x1F)<<7 | 0x23
}

func encodeB(offset int32, rs2, rs1 uint8, funct3 uint32) uint32 {
	u := uint32(offset)
	return (u>>12&1)<<31 | (u>>5&0x3F)<<25 | uint32(rs2&0x1F)<<20 |
		uint32(rs1&0x1F)<<15 | funct3<<12 | (u>>1&0xF)<<8 | (u>>11&1)<<7 | 0x63
}

// EncodeADDI encodes ADDI: rd = rs1 + imm12
func EncodeADDI(rd, rs1 uint8, imm int32) uint32 {
	return encodeI(imm, rs1, 0, rd, 0x13)
}

// EncodeADD encodes ADD: rd = rs1 + rs2
func EncodeADD(rd, rs1, rs2 uint8) uint32 {
	return encodeR(0, rs2, rs1, 0, rd, 0x33)
}

// EncodeSUB encodes SUB: rd = rs1 - rs2
func EncodeSUB(rd, rs1, rs2 uint8) uint32 {
	return encodeR(0b0100000, rs2, rs1, 0, rd, 0x33)
}

// EncodeLD encodes LD: rd = mem64[rs1 + imm12]
func EncodeLD(rd, rs1 uint8, imm int32) uint32 {
	return encodeI(imm, rs1, 0b011, rd, 0x03)
}

// EncodeSD encodes SD: mem64[rs1 + imm12] = rs2
func EncodeSD(rs2, rs1 uint8, imm int32) uint32 {
	return encodeS(imm, rs2, rs1, 0b011)
}

// EncodeBEQ encodes BEQ with a byte offset relative to the branch.
func EncodeBEQ(rs1, rs2 uint8, offset int32) uint32 {
	return encodeB(offset, rs2, rs1, 0b000)
}

// EncodeBNE encodes BNE with a byte offset relative to the branch.
func EncodeBNE(rs1, rs2 uint8, offset int32) uint32 {
	return encodeB(offset, rs2, rs1, 0b001)
}

// EncodeBLT encodes BLT with a byte offset relative to the branch.
func EncodeBLT(rs1, rs2 uint8, offset int32) uint32 {
	return encodeB(offset, rs2, rs1, 0b100)
}

// EncodeJAL encodes JAL: rd = pc + 4; pc += offset
func EncodeJAL(rd uint8, offset int32) uint32 {
	u := uint32(offset)
	return (u>>20&1)<<31 | (u>>1&0x3FF)<<21 | (u>>11&1)<<20 |
		(u>>12&0xFF)<<12 | uint32(rd&0x1F)<<7 | 0x6F
}

// EncodeJALR encodes JALR: rd = pc + 4; pc = (rs1 + imm12) &^ 1
func EncodeJALR(rd, rs1 uint8, imm int32) uint32 {
	return encodeI(imm, rs1, 0, rd, 0x67)
}

// EncodeRET encodes the RET pseudo-instruction (jalr zero, 0(ra)).
func EncodeRET() uint32 {
	return EncodeJALR(0, 1, 0)
}

// EncodeECALL encodes ECALL.
func EncodeECALL() uint32 {
	return 0x00000073
}
