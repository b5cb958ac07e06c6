// Package emu provides functional RV64I emulation.
package emu

// LoadStoreUnit implements RV64I load and store operations.
// A faulting access leaves the register file and memory untouched.
type LoadStoreUnit struct {
	regFile *RegFile
	bus     *Bus
}

// NewLoadStoreUnit creates a new LoadStoreUnit connected to the given
// register file and bus.
func NewLoadStoreUnit(regFile *RegFile, bus *Bus) *LoadStoreUnit {
	return &LoadStoreUnit{
		regFile: regFile,
		bus:     bus,
	}
}

func (lsu *LoadStoreUnit) effectiveAddr(rs1 uint8, imm int64) uint64 {
	return lsu.regFile.ReadReg(rs1) + uint64(imm)
}

// LB loads a byte with sign extension: rd = sext(mem8[rs1 + imm])
func (lsu *LoadStoreUnit) LB(rd, rs1 uint8, imm int64) error {
	v, err := lsu.bus.Load8(lsu.effectiveAddr(rs1, imm))
	if err != nil {
		return err
	}
	lsu.regFile.WriteReg(rd, uint64(int64(int8(v))))
	return nil
}

// LH loads a halfword with sign extension: rd = sext(mem16[rs1 + imm])
func (lsu *LoadStoreUnit) LH(rd, rs1 uint8, imm int64) error {
	v, err := lsu.bus.Load16(lsu.effectiveAddr(rs1, imm))
	if err != nil {
		return err
	}
	lsu.regFile.WriteReg(rd, uint64(int64(int16(v))))
	return nil
}

// LW loads a word with sign extension: rd = sext(mem32[rs1 + imm])
func (lsu *LoadStoreUnit) LW(rd, rs1 uint8, imm int64) error {
	v, err := lsu.bus.Load32(lsu.effectiveAddr(rs1, imm))
	if err != nil {
		return err
	}
	lsu.regFile.WriteReg(rd, signExtend32(v))
	return nil
}

// LD loads a doubleword: rd = mem64[rs1 + imm]
func (lsu *LoadStoreUnit) LD(rd, rs1 uint8, imm int64) error {
	v, err := lsu.bus.Load64(lsu.effectiveAddr(rs1, imm))
	if err != nil {
		return err
	}
	lsu.regFile.WriteReg(rd, v)
	return nil
}

// LBU loads a byte with zero extension: rd = mem8[rs1 + imm]
func (lsu *LoadStoreUnit) LBU(rd, rs1 uint8, imm int64) error {
	v, err := lsu.bus.Load8(lsu.effectiveAddr(rs1, imm))
	if err != nil {
		return err
	}
	lsu.regFile.WriteReg(rd, uint64(v))
	return nil
}

// LHU loads a halfword with zero extension: rd = mem16[rs1 + imm]
func (lsu *LoadStoreUnit) LHU(rd, rs1 uint8, imm int64) error {
	v, err := lsu.bus.Load16(lsu.effectiveAddr(rs1, imm))
	if err != nil {
		return err
	}
	lsu.regFile.WriteReg(rd, uint64(v))
	return nil
}

// LWU loads a word with zero extension: rd = mem32[rs1 + imm]
func (lsu *LoadStoreUnit) LWU(rd, rs1 uint8, imm int64) error {
	v, err := lsu.bus.Load32(lsu.effectiveAddr(rs1, imm))
	if err != nil {
		return err
	}
	lsu.regFile.WriteReg(rd, uint64(v))
	return nil
}

// SB stores the low byte of rs2: mem8[rs1 + imm] = rs2
func (lsu *LoadStoreUnit) SB(rs1, rs2 uint8, imm int64) error {
	return lsu.bus.Store8(lsu.effectiveAddr(rs1, imm), uint8(lsu.regFile.ReadReg(rs2)))
}

// SH stores the low halfword of rs2: mem16[rs1 + imm] = rs2
func (lsu *LoadStoreUnit) SH(rs1, rs2 uint8, imm int64) error {
	return lsu.bus.Store16(lsu.effectiveAddr(rs1, imm), uint16(lsu.regFile.ReadReg(rs2)))
}

// SW stores the low word of rs2: mem32[rs1 + imm] = rs2
func (lsu *LoadStoreUnit) SW(rs1, rs2 uint8, imm int64) error {
	return lsu.bus.Store32(lsu.effectiveAddr(rs1, imm), uint32(lsu.regFile.ReadReg(rs2)))
}

// SD stores rs2: mem64[rs1 + imm] = rs2
func (lsu *LoadStoreUnit) SD(rs1, rs2 uint8, imm int64) error {
	return lsu.bus.Store64(lsu.effectiveAddr(rs1, imm), lsu.regFile.ReadReg(rs2))
}
