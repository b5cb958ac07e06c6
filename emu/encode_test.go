package emu_test

import "encoding/binary"

// Instruction encoders for building test programs.

func encodeR(opcode, rd, funct3, rs1, rs2, funct7 uint32) uint32 {
	return funct7<<25 | rs2<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func encodeI(opcode, rd, funct3, rs1 uint32, imm int32) uint32 {
	return (uint32(imm)&0xFFF)<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func encodeS(funct3, rs1, rs2 uint32, imm int32) uint32 {
	u := uint32(imm)
	return (u>>5&0x7F)<<25 | rs2<<20 | rs1<<15 | funct3<<12 | (u&0x1F)<<7 | 0x23
}

func encodeB(funct3, rs1, rs2 uint32, imm int32) uint32 {
	u := uint32(imm)
	return (u>>12&1)<<31 | (u>>5&0x3F)<<25 | rs2<<20 | rs1<<15 |
		funct3<<12 | (u>>1&0xF)<<8 | (u>>11&1)<<7 | 0x63
}

func encodeU(opcode, rd, imm20 uint32) uint32 {
	return imm20<<12 | rd<<7 | opcode
}

func encodeJ(rd uint32, imm int32) uint32 {
	u := uint32(imm)
	return (u>>20&1)<<31 | (u>>1&0x3FF)<<21 | (u>>11&1)<<20 |
		(u>>12&0xFF)<<12 | rd<<7 | 0x6F
}

func addi(rd, rs1 uint8, imm int32) uint32 {
	return encodeI(0x13, uint32(rd), 0, uint32(rs1), imm)
}

const (
	wordECALL  uint32 = 0x00000073
	wordEBREAK uint32 = 0x00100073
	wordFENCE  uint32 = 0x0FF0000F
	wordNOP    uint32 = 0x00000013
)

func program(words ...uint32) []byte {
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[4*i:], w)
	}
	return buf
}
