// Package emu provides functional RV64I emulation.
package emu

// BranchCond identifies a conditional branch comparison.
type BranchCond uint8

// Branch conditions, numbered by their funct3 encoding.
const (
	CondEQ  BranchCond = 0b000
	CondNE  BranchCond = 0b001
	CondLT  BranchCond = 0b100
	CondGE  BranchCond = 0b101
	CondLTU BranchCond = 0b110
	CondGEU BranchCond = 0b111
)

// BranchUnit implements RV64I control transfer instructions.
// All targets are relative to the address of the branch itself, and every
// operation leaves the PC pointing at the next instruction to execute.
type BranchUnit struct {
	regFile *RegFile
}

// NewBranchUnit creates a new BranchUnit connected to the given register file.
func NewBranchUnit(regFile *RegFile) *BranchUnit {
	return &BranchUnit{regFile: regFile}
}

// JAL jumps to PC + imm and links the return address in rd.
func (b *BranchUnit) JAL(rd uint8, imm int64) {
	pc := b.regFile.PC
	b.regFile.WriteReg(rd, pc+4)
	b.regFile.PC = pc + uint64(imm)
}

// JALR jumps to (rs1 + imm) with the low bit cleared and links the return
// address in rd. The target is read before rd is written, so rd == rs1 is
// safe.
func (b *BranchUnit) JALR(rd, rs1 uint8, imm int64) {
	pc := b.regFile.PC
	target := (b.regFile.ReadReg(rs1) + uint64(imm)) &^ 1
	b.regFile.WriteReg(rd, pc+4)
	b.regFile.PC = target
}

// CheckCondition evaluates a branch comparison between two register values.
func (b *BranchUnit) CheckCondition(cond BranchCond, lhs, rhs uint64) bool {
	switch cond {
	case CondEQ:
		return lhs == rhs
	case CondNE:
		return lhs != rhs
	case CondLT:
		return int64(lhs) < int64(rhs)
	case CondGE:
		return int64(lhs) >= int64(rhs)
	case CondLTU:
		return lhs < rhs
	case CondGEU:
		return lhs >= rhs
	default:
		return false
	}
}

// Branch compares rs1 and rs2 and moves the PC to PC + imm when the
// condition holds, otherwise to PC + 4. It reports whether it was taken.
func (b *BranchUnit) Branch(cond BranchCond, rs1, rs2 uint8, imm int64) bool {
	taken := b.CheckCondition(cond, b.regFile.ReadReg(rs1), b.regFile.ReadReg(rs2))
	if taken {
		b.regFile.PC += uint64(imm)
	} else {
		b.regFile.PC += 4
	}
	return taken
}
