// Package emu provides functional RV64I emulation.
package emu

// ALU implements RV64I integer arithmetic and logic operations.
// All arithmetic wraps on overflow.
type ALU struct {
	regFile *RegFile
}

// NewALU creates a new ALU connected to the given register file.
func NewALU(regFile *RegFile) *ALU {
	return &ALU{regFile: regFile}
}

func boolToReg(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// signExtend32 sign-extends a 32-bit result to 64 bits.
func signExtend32(v uint32) uint64 {
	return uint64(int64(int32(v)))
}

// ADD performs 64-bit addition: rd = rs1 + rs2
func (a *ALU) ADD(rd, rs1, rs2 uint8) {
	a.regFile.WriteReg(rd, a.regFile.ReadReg(rs1)+a.regFile.ReadReg(rs2))
}

// SUB performs 64-bit subtraction: rd = rs1 - rs2
func (a *ALU) SUB(rd, rs1, rs2 uint8) {
	a.regFile.WriteReg(rd, a.regFile.ReadReg(rs1)-a.regFile.ReadReg(rs2))
}

// SLL shifts left by the low 6 bits of rs2.
func (a *ALU) SLL(rd, rs1, rs2 uint8) {
	shamt := a.regFile.ReadReg(rs2) & 0x3F
	a.regFile.WriteReg(rd, a.regFile.ReadReg(rs1)<<shamt)
}

// SLT sets rd to 1 if rs1 < rs2 as signed integers.
func (a *ALU) SLT(rd, rs1, rs2 uint8) {
	lt := int64(a.regFile.ReadReg(rs1)) < int64(a.regFile.ReadReg(rs2))
	a.regFile.WriteReg(rd, boolToReg(lt))
}

// SLTU sets rd to 1 if rs1 < rs2 as unsigned integers.
func (a *ALU) SLTU(rd, rs1, rs2 uint8) {
	lt := a.regFile.ReadReg(rs1) < a.regFile.ReadReg(rs2)
	a.regFile.WriteReg(rd, boolToReg(lt))
}

// XOR performs bitwise exclusive or: rd = rs1 ^ rs2
func (a *ALU) XOR(rd, rs1, rs2 uint8) {
	a.regFile.WriteReg(rd, a.regFile.ReadReg(rs1)^a.regFile.ReadReg(rs2))
}

// SRL shifts right logically by the low 6 bits of rs2.
func (a *ALU) SRL(rd, rs1, rs2 uint8) {
	shamt := a.regFile.ReadReg(rs2) & 0x3F
	a.regFile.WriteReg(rd, a.regFile.ReadReg(rs1)>>shamt)
}

// SRA shifts right arithmetically by the low 6 bits of rs2.
func (a *ALU) SRA(rd, rs1, rs2 uint8) {
	shamt := a.regFile.ReadReg(rs2) & 0x3F
	a.regFile.WriteReg(rd, uint64(int64(a.regFile.ReadReg(rs1))>>shamt))
}

// OR performs bitwise or: rd = rs1 | rs2
func (a *ALU) OR(rd, rs1, rs2 uint8) {
	a.regFile.WriteReg(rd, a.regFile.ReadReg(rs1)|a.regFile.ReadReg(rs2))
}

// AND performs bitwise and: rd = rs1 & rs2
func (a *ALU) AND(rd, rs1, rs2 uint8) {
	a.regFile.WriteReg(rd, a.regFile.ReadReg(rs1)&a.regFile.ReadReg(rs2))
}

// ADDI adds a sign-extended immediate: rd = rs1 + imm
func (a *ALU) ADDI(rd, rs1 uint8, imm int64) {
	a.regFile.WriteReg(rd, a.regFile.ReadReg(rs1)+uint64(imm))
}

// SLTI sets rd to 1 if rs1 < imm as signed integers.
func (a *ALU) SLTI(rd, rs1 uint8, imm int64) {
	a.regFile.WriteReg(rd, boolToReg(int64(a.regFile.ReadReg(rs1)) < imm))
}

// SLTIU sets rd to 1 if rs1 < imm as unsigned integers. The immediate is
// sign-extended first, then compared unsigned.
func (a *ALU) SLTIU(rd, rs1 uint8, imm int64) {
	a.regFile.WriteReg(rd, boolToReg(a.regFile.ReadReg(rs1) < uint64(imm)))
}

// XORI performs rd = rs1 ^ imm
func (a *ALU) XORI(rd, rs1 uint8, imm int64) {
	a.regFile.WriteReg(rd, a.regFile.ReadReg(rs1)^uint64(imm))
}

// ORI performs rd = rs1 | imm
func (a *ALU) ORI(rd, rs1 uint8, imm int64) {
	a.regFile.WriteReg(rd, a.regFile.ReadReg(rs1)|uint64(imm))
}

// ANDI performs rd = rs1 & imm
func (a *ALU) ANDI(rd, rs1 uint8, imm int64) {
	a.regFile.WriteReg(rd, a.regFile.ReadReg(rs1)&uint64(imm))
}

// SLLI shifts left by a 6-bit immediate.
func (a *ALU) SLLI(rd, rs1, shamt uint8) {
	a.regFile.WriteReg(rd, a.regFile.ReadReg(rs1)<<(shamt&0x3F))
}

// SRLI shifts right logically by a 6-bit immediate.
func (a *ALU) SRLI(rd, rs1, shamt uint8) {
	a.regFile.WriteReg(rd, a.regFile.ReadReg(rs1)>>(shamt&0x3F))
}

// SRAI shifts right arithmetically by a 6-bit immediate.
func (a *ALU) SRAI(rd, rs1, shamt uint8) {
	a.regFile.WriteReg(rd, uint64(int64(a.regFile.ReadReg(rs1))>>(shamt&0x3F)))
}

// ADDW adds the low 32 bits and sign-extends the result.
func (a *ALU) ADDW(rd, rs1, rs2 uint8) {
	sum := uint32(a.regFile.ReadReg(rs1)) + uint32(a.regFile.ReadReg(rs2))
	a.regFile.WriteReg(rd, signExtend32(sum))
}

// SUBW subtracts the low 32 bits and sign-extends the result.
func (a *ALU) SUBW(rd, rs1, rs2 uint8) {
	diff := uint32(a.regFile.ReadReg(rs1)) - uint32(a.regFile.ReadReg(rs2))
	a.regFile.WriteReg(rd, signExtend32(diff))
}

// SLLW shifts the low 32 bits left by the low 5 bits of rs2.
func (a *ALU) SLLW(rd, rs1, rs2 uint8) {
	shamt := a.regFile.ReadReg(rs2) & 0x1F
	a.regFile.WriteReg(rd, signExtend32(uint32(a.regFile.ReadReg(rs1))<<shamt))
}

// SRLW shifts the low 32 bits right logically by the low 5 bits of rs2.
func (a *ALU) SRLW(rd, rs1, rs2 uint8) {
	shamt := a.regFile.ReadReg(rs2) & 0x1F
	a.regFile.WriteReg(rd, signExtend32(uint32(a.regFile.ReadReg(rs1))>>shamt))
}

// SRAW shifts the low 32 bits right arithmetically by the low 5 bits of rs2.
func (a *ALU) SRAW(rd, rs1, rs2 uint8) {
	shamt := a.regFile.ReadReg(rs2) & 0x1F
	a.regFile.WriteReg(rd, uint64(int64(int32(a.regFile.ReadReg(rs1))>>shamt)))
}

// ADDIW adds an immediate to the low 32 bits and sign-extends the result.
func (a *ALU) ADDIW(rd, rs1 uint8, imm int64) {
	sum := uint32(a.regFile.ReadReg(rs1)) + uint32(imm)
	a.regFile.WriteReg(rd, signExtend32(sum))
}

// SLLIW shifts the low 32 bits left by a 5-bit immediate.
func (a *ALU) SLLIW(rd, rs1, shamt uint8) {
	a.regFile.WriteReg(rd, signExtend32(uint32(a.regFile.ReadReg(rs1))<<(shamt&0x1F)))
}

// SRLIW shifts the low 32 bits right logically by a 5-bit immediate.
func (a *ALU) SRLIW(rd, rs1, shamt uint8) {
	a.regFile.WriteReg(rd, signExtend32(uint32(a.regFile.ReadReg(rs1))>>(shamt&0x1F)))
}

// SRAIW shifts the low 32 bits right arithmetically by a 5-bit immediate.
func (a *ALU) SRAIW(rd, rs1, shamt uint8) {
	a.regFile.WriteReg(rd, uint64(int64(int32(a.regFile.ReadReg(rs1))>>(shamt&0x1F))))
}

// LUI loads the U immediate: rd = imm
func (a *ALU) LUI(rd uint8, imm int64) {
	a.regFile.WriteReg(rd, uint64(imm))
}

// AUIPC adds the U immediate to the address of the instruction itself.
func (a *ALU) AUIPC(rd uint8, imm int64) {
	a.regFile.WriteReg(rd, a.regFile.PC+uint64(imm))
}
