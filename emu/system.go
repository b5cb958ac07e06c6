// Package emu provides functional RV64I emulation.
package emu

// SystemUnit implements the Zicsr instructions against a CSR file.
type SystemUnit struct {
	regFile *RegFile
	csrs    *CSRFile
}

// NewSystemUnit creates a new SystemUnit.
func NewSystemUnit(regFile *RegFile, csrs *CSRFile) *SystemUnit {
	return &SystemUnit{regFile: regFile, csrs: csrs}
}

// CSRRW atomically swaps rs1 into the CSR and the old value into rd.
func (s *SystemUnit) CSRRW(rd, rs1 uint8, csr uint16) {
	src := s.regFile.ReadReg(rs1)
	old := s.csrs.Read(csr)
	s.csrs.Write(csr, src)
	s.regFile.WriteReg(rd, old)
}

// CSRRS sets the bits of rs1 in the CSR. rs1 == x0 only reads.
func (s *SystemUnit) CSRRS(rd, rs1 uint8, csr uint16) {
	src := s.regFile.ReadReg(rs1)
	old := s.csrs.Read(csr)
	if rs1 != RegZero {
		s.csrs.Write(csr, old|src)
	}
	s.regFile.WriteReg(rd, old)
}

// CSRRC clears the bits of rs1 in the CSR. rs1 == x0 only reads.
func (s *SystemUnit) CSRRC(rd, rs1 uint8, csr uint16) {
	src := s.regFile.ReadReg(rs1)
	old := s.csrs.Read(csr)
	if rs1 != RegZero {
		s.csrs.Write(csr, old&^src)
	}
	s.regFile.WriteReg(rd, old)
}

// CSRRWI writes the 5-bit immediate carried in the rs1 field.
func (s *SystemUnit) CSRRWI(rd, zimm uint8, csr uint16) {
	old := s.csrs.Read(csr)
	s.csrs.Write(csr, uint64(zimm&0x1F))
	s.regFile.WriteReg(rd, old)
}

// CSRRSI sets the bits of the immediate. zimm == 0 only reads.
func (s *SystemUnit) CSRRSI(rd, zimm uint8, csr uint16) {
	old := s.csrs.Read(csr)
	if zimm != 0 {
		s.csrs.Write(csr, old|uint64(zimm&0x1F))
	}
	s.regFile.WriteReg(rd, old)
}

// CSRRCI clears the bits of the immediate. zimm == 0 only reads.
func (s *SystemUnit) CSRRCI(rd, zimm uint8, csr uint16) {
	old := s.csrs.Read(csr)
	if zimm != 0 {
		s.csrs.Write(csr, old&^uint64(zimm&0x1F))
	}
	s.regFile.WriteReg(rd, old)
}
