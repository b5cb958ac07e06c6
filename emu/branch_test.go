package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/emu"
)

var _ = Describe("BranchUnit", func() {
	var (
		regFile    *emu.RegFile
		branchUnit *emu.BranchUnit
	)

	BeforeEach(func() {
		regFile = &emu.RegFile{PC: 0x1000}
		branchUnit = emu.NewBranchUnit(regFile)
	})

	DescribeTable("CheckCondition",
		func(cond emu.BranchCond, lhs, rhs uint64, expected bool) {
			Expect(branchUnit.CheckCondition(cond, lhs, rhs)).To(Equal(expected))
		},
		Entry("EQ equal", emu.CondEQ, uint64(3), uint64(3), true),
		Entry("EQ different", emu.CondEQ, uint64(3), uint64(4), false),
		Entry("NE", emu.CondNE, uint64(3), uint64(4), true),
		Entry("LT signed negative", emu.CondLT, ^uint64(0), uint64(0), true),
		Entry("LTU same bits", emu.CondLTU, ^uint64(0), uint64(0), false),
		Entry("GE equal", emu.CondGE, uint64(5), uint64(5), true),
		Entry("GE signed", emu.CondGE, uint64(0), ^uint64(0), true),
		Entry("GEU", emu.CondGEU, uint64(0), ^uint64(0), false),
	)

	Describe("Branch", func() {
		It("should jump relative to the branch when taken", func() {
			taken := branchUnit.Branch(emu.CondEQ, 0, 0, -16)

			Expect(taken).To(BeTrue())
			Expect(regFile.PC).To(Equal(uint64(0x1000 - 16)))
		})

		It("should move to the next instruction when not taken", func() {
			regFile.WriteReg(1, 1)

			taken := branchUnit.Branch(emu.CondEQ, 1, 0, -16)

			Expect(taken).To(BeFalse())
			Expect(regFile.PC).To(Equal(uint64(0x1004)))
		})
	})

	Describe("JAL", func() {
		It("should link the next instruction", func() {
			branchUnit.JAL(emu.RegRA, 0x800)

			Expect(regFile.ReadReg(emu.RegRA)).To(Equal(uint64(0x1004)))
			Expect(regFile.PC).To(Equal(uint64(0x1800)))
		})

		It("should not link through x0", func() {
			branchUnit.JAL(0, -4)

			Expect(regFile.ReadReg(0)).To(BeZero())
			Expect(regFile.PC).To(Equal(uint64(0xFFC)))
		})
	})

	Describe("JALR", func() {
		It("should clear bit 0 of the target", func() {
			regFile.WriteReg(5, 0x2000)

			branchUnit.JALR(emu.RegRA, 5, 3)

			Expect(regFile.PC).To(Equal(uint64(0x2002)))
			Expect(regFile.ReadReg(emu.RegRA)).To(Equal(uint64(0x1004)))
		})

		It("should use a negative offset", func() {
			regFile.WriteReg(5, 0x2000)

			branchUnit.JALR(0, 5, -8)

			Expect(regFile.PC).To(Equal(uint64(0x1FF8)))
		})
	})
})
