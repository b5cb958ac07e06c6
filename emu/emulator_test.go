package emu_test

import (
	"bytes"
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
)

const (
	testMemSize uint64 = 64 * 1024
	base               = emu.DefaultBaseAddress
)

type recordingTracer struct {
	pcs   []uint64
	words []uint32
}

func (t *recordingTracer) TraceInstruction(pc uint64, word uint32, _ [emu.NumRegisters]uint64) {
	t.pcs = append(t.pcs, pc)
	t.words = append(t.words, word)
}

type countingObserver struct {
	counts map[emu.AccessKind]int
}

func (o *countingObserver) ObserveAccess(kind emu.AccessKind, _ uint64, _ int) {
	o.counts[kind]++
}

var _ = Describe("Emulator", func() {
	var (
		e         *emu.Emulator
		stdoutBuf *bytes.Buffer
	)

	BeforeEach(func() {
		stdoutBuf = &bytes.Buffer{}
		e = emu.NewEmulator(
			emu.WithMemorySize(testMemSize),
			emu.WithStdout(stdoutBuf),
		)
	})

	load := func(words ...uint32) {
		Expect(e.LoadProgram(program(words...))).To(Succeed())
	}

	Describe("NewEmulator", func() {
		It("should create an emulator with initialized components", func() {
			Expect(e.RegFile()).NotTo(BeNil())
			Expect(e.Memory()).NotTo(BeNil())
			Expect(e.Bus().Base()).To(Equal(base))
			Expect(e.Memory().Size()).To(Equal(testMemSize))
		})

		It("should start at the base address with sp at the top of memory", func() {
			Expect(e.RegFile().PC).To(Equal(base))
			Expect(e.RegFile().ReadReg(emu.RegSP)).To(Equal(base + testMemSize - 1))
			Expect(e.RegFile().ReadReg(emu.RegRA)).To(BeZero())
		})

		It("should honour a custom base address", func() {
			e = emu.NewEmulator(emu.WithMemorySize(testMemSize), emu.WithBaseAddress(0x1000))
			Expect(e.RegFile().PC).To(Equal(uint64(0x1000)))
			Expect(e.RegFile().ReadReg(emu.RegSP)).To(Equal(0x1000 + testMemSize - 1))
		})
	})

	Describe("LoadProgram", func() {
		It("should load program bytes at the base address", func() {
			Expect(e.LoadProgram([]byte{0xDE, 0xAD, 0xBE, 0xEF})).To(Succeed())
			Expect(e.Bus().Load32(base)).To(Equal(uint32(0xEFBEADDE)))
			Expect(e.RegFile().PC).To(Equal(base))
		})

		It("should reject an image larger than memory", func() {
			err := e.LoadProgram(make([]byte, testMemSize+1))
			Expect(errors.Is(err, emu.ErrOutOfBounds)).To(BeTrue())
		})
	})

	Describe("Step", func() {
		Context("ALU instructions", func() {
			It("should execute addi a0, a0, 10", func() {
				load(0x00A50513)

				result := e.Step()

				Expect(result.Err).NotTo(HaveOccurred())
				Expect(result.Stopped()).To(BeFalse())
				Expect(e.RegFile().ReadReg(emu.RegA0)).To(Equal(uint64(10)))
				Expect(e.RegFile().PC).To(Equal(base + 4))
				Expect(e.InstructionCount()).To(Equal(uint64(1)))
			})

			It("should keep x0 zero when it is the destination", func() {
				load(addi(0, 0, 5))

				Expect(e.Step().Err).NotTo(HaveOccurred())
				Expect(e.RegFile().ReadReg(0)).To(BeZero())
				Expect(e.RegFile().PC).To(Equal(base + 4))
			})

			It("should wrap on 64-bit overflow", func() {
				e.RegFile().WriteReg(1, math.MaxUint64)
				e.RegFile().WriteReg(2, 1)
				load(encodeR(0x33, 3, 0, 1, 2, 0))

				Expect(e.Step().Err).NotTo(HaveOccurred())
				Expect(e.RegFile().ReadReg(3)).To(BeZero())
			})

			It("should sign-extend the ADDI immediate", func() {
				load(addi(1, 0, -1))

				Expect(e.Step().Err).NotTo(HaveOccurred())
				Expect(e.RegFile().ReadReg(1)).To(Equal(uint64(math.MaxUint64)))
			})

			It("should sign-extend word results", func() {
				e.RegFile().WriteReg(1, 0x7FFFFFFF)
				load(encodeI(0x1B, 2, 0, 1, 1)) // addiw x2, x1, 1

				Expect(e.Step().Err).NotTo(HaveOccurred())
				Expect(e.RegFile().ReadReg(2)).To(Equal(uint64(0xFFFFFFFF80000000)))
			})

			It("should load upper immediates", func() {
				load(encodeU(0x37, 5, 0x12345), encodeU(0x37, 6, 0x80000))

				Expect(e.Step().Err).NotTo(HaveOccurred())
				Expect(e.Step().Err).NotTo(HaveOccurred())
				Expect(e.RegFile().ReadReg(5)).To(Equal(uint64(0x12345000)))
				Expect(e.RegFile().ReadReg(6)).To(Equal(uint64(0xFFFFFFFF80000000)))
			})

			It("should add AUIPC to the address of the instruction itself", func() {
				load(wordNOP, 0x00001297) // auipc t0, 1

				Expect(e.Step().Err).NotTo(HaveOccurred())
				Expect(e.Step().Err).NotTo(HaveOccurred())
				Expect(e.RegFile().ReadReg(5)).To(Equal(base + 4 + 0x1000))
				Expect(e.RegFile().PC).To(Equal(base + 8))
			})
		})

		Context("Load and store instructions", func() {
			It("should round-trip a 64-bit value through memory", func() {
				e.RegFile().WriteReg(1, base+0x100)
				e.RegFile().WriteReg(2, 0x1122334455667788)
				load(
					encodeS(3, 1, 2, 8),           // sd x2, 8(x1)
					encodeI(0x03, 3, 3, 1, 8),     // ld x3, 8(x1)
					encodeI(0x03, 4, 0b100, 1, 8), // lbu x4, 8(x1)
				)

				for i := 0; i < 3; i++ {
					Expect(e.Step().Err).NotTo(HaveOccurred())
				}
				Expect(e.RegFile().ReadReg(3)).To(Equal(uint64(0x1122334455667788)))
				Expect(e.RegFile().ReadReg(4)).To(Equal(uint64(0x88)))
				Expect(e.Memory().Load64(0x108)).To(Equal(uint64(0x1122334455667788)))
			})

			DescribeTable("sign and zero extension",
				func(funct3 uint32, stored, expected uint64) {
					e.RegFile().WriteReg(1, base+0x200)
					Expect(e.Bus().Store64(base+0x200, stored)).To(Succeed())
					load(encodeI(0x03, 2, funct3, 1, 0))

					Expect(e.Step().Err).NotTo(HaveOccurred())
					Expect(e.RegFile().ReadReg(2)).To(Equal(expected))
				},
				Entry("LB", uint32(0b000), uint64(0x80), uint64(0xFFFFFFFFFFFFFF80)),
				Entry("LBU", uint32(0b100), uint64(0x80), uint64(0x80)),
				Entry("LH", uint32(0b001), uint64(0x8000), uint64(0xFFFFFFFFFFFF8000)),
				Entry("LHU", uint32(0b101), uint64(0x8000), uint64(0x8000)),
				Entry("LW", uint32(0b010), uint64(0x80000000), uint64(0xFFFFFFFF80000000)),
				Entry("LWU", uint32(0b110), uint64(0x80000000), uint64(0x80000000)),
			)

			It("should fault without touching rd or PC when out of bounds", func() {
				e.RegFile().WriteReg(1, base+testMemSize-4)
				e.RegFile().WriteReg(3, 0xAA)
				load(encodeI(0x03, 3, 3, 1, 0)) // ld x3, 0(x1)

				result := e.Step()

				Expect(errors.Is(result.Err, emu.ErrOutOfBounds)).To(BeTrue())
				var addrErr *emu.AddressError
				Expect(errors.As(result.Err, &addrErr)).To(BeTrue())
				Expect(addrErr.Addr).To(Equal(base + testMemSize - 4))
				Expect(e.RegFile().ReadReg(3)).To(Equal(uint64(0xAA)))
				Expect(e.RegFile().PC).To(Equal(base))
				Expect(e.InstructionCount()).To(BeZero())
			})

			It("should fault on addresses below the base", func() {
				e.RegFile().WriteReg(1, 0x100)
				load(encodeS(2, 1, 0, 0)) // sw x0, 0(x1)

				result := e.Step()

				Expect(errors.Is(result.Err, emu.ErrAddressNotFound)).To(BeTrue())
				Expect(e.RegFile().PC).To(Equal(base))
			})
		})

		Context("Control transfer instructions", func() {
			It("should take BEQ backwards relative to the branch", func() {
				load(wordNOP, encodeB(0, 0, 0, -4))

				Expect(e.Step().Err).NotTo(HaveOccurred())
				Expect(e.Step().Err).NotTo(HaveOccurred())
				Expect(e.RegFile().PC).To(Equal(base))
			})

			It("should fall through a BNE that is not taken", func() {
				load(wordNOP, encodeB(1, 0, 0, -4))

				Expect(e.Step().Err).NotTo(HaveOccurred())
				Expect(e.Step().Err).NotTo(HaveOccurred())
				Expect(e.RegFile().PC).To(Equal(base + 8))
			})

			It("should link and jump with JAL", func() {
				load(0x008000EF) // jal ra, 8

				Expect(e.Step().Err).NotTo(HaveOccurred())
				Expect(e.RegFile().ReadReg(emu.RegRA)).To(Equal(base + 4))
				Expect(e.RegFile().PC).To(Equal(base + 8))
			})

			It("should clear the low bit of the JALR target", func() {
				e.RegFile().WriteReg(5, base+0x41)
				load(encodeI(0x67, 1, 0, 5, 0)) // jalr ra, 0(t0)

				Expect(e.Step().Err).NotTo(HaveOccurred())
				Expect(e.RegFile().PC).To(Equal(base + 0x40))
				Expect(e.RegFile().ReadReg(emu.RegRA)).To(Equal(base + 4))
			})

			It("should read the JALR base before writing rd", func() {
				e.RegFile().WriteReg(5, base+0x80)
				load(encodeI(0x67, 5, 0, 5, 4)) // jalr t0, 4(t0)

				Expect(e.Step().Err).NotTo(HaveOccurred())
				Expect(e.RegFile().PC).To(Equal(base + 0x84))
				Expect(e.RegFile().ReadReg(5)).To(Equal(base + 4))
			})
		})

		Context("System instructions", func() {
			It("should treat FENCE as a no-op", func() {
				e.RegFile().WriteReg(7, 77)
				before := e.RegFile().Snapshot()
				load(wordFENCE, wordFENCE)

				Expect(e.Step().Err).NotTo(HaveOccurred())
				Expect(e.Step().Err).NotTo(HaveOccurred())
				Expect(e.RegFile().Snapshot()).To(Equal(before))
				Expect(e.RegFile().PC).To(Equal(base + 8))
			})

			It("should stop on EBREAK with the PC on the breakpoint", func() {
				load(wordNOP, wordEBREAK)

				Expect(e.Step().Stopped()).To(BeFalse())
				result := e.Step()

				Expect(result.Breakpoint).To(BeTrue())
				Expect(result.Err).NotTo(HaveOccurred())
				Expect(e.RegFile().PC).To(Equal(base + 4))
			})

			It("should read and write CSRs", func() {
				e.RegFile().WriteReg(1, 5)
				load(
					encodeI(0x73, 2, 1, 1, 0x300), // csrrw x2, mstatus, x1
					encodeI(0x73, 3, 2, 0, 0x300), // csrrs x3, mstatus, x0
					encodeI(0x73, 4, 6, 2, 0x300), // csrrsi x4, mstatus, 2
				)

				for i := 0; i < 3; i++ {
					Expect(e.Step().Err).NotTo(HaveOccurred())
				}
				Expect(e.RegFile().ReadReg(2)).To(BeZero())
				Expect(e.RegFile().ReadReg(3)).To(Equal(uint64(5)))
				Expect(e.RegFile().ReadReg(4)).To(Equal(uint64(5)))
				Expect(e.CSRs().Read(emu.CSRMStatus)).To(Equal(uint64(7)))
			})
		})

		Context("Faults", func() {
			It("should report unsupported opcodes without moving the PC", func() {
				load(0x00208053) // fadd.s

				result := e.Step()

				var opErr *insts.UnsupportedOpcodeError
				Expect(errors.As(result.Err, &opErr)).To(BeTrue())
				Expect(opErr.Opcode).To(Equal(uint8(0x53)))
				Expect(e.RegFile().PC).To(Equal(base))
			})

			It("should report unimplemented SYSTEM encodings", func() {
				load(0x30200073) // mret

				var decErr *insts.DecodeError
				Expect(errors.As(e.Step().Err, &decErr)).To(BeTrue())
			})

			It("should report compressed instructions as unsupported widths", func() {
				load(0x00004501)

				var widthErr *insts.UnsupportedWidthError
				Expect(errors.As(e.Step().Err, &widthErr)).To(BeTrue())
			})

			It("should fault when fetching past the end of memory", func() {
				e.SetPC(base + testMemSize)

				Expect(errors.Is(e.Step().Err, emu.ErrOutOfBounds)).To(BeTrue())
			})
		})
	})

	Describe("Execute", func() {
		It("should report side effects", func() {
			Expect(e.Execute(wordNOP)).To(Equal(emu.SideEffectNone))
			Expect(e.Execute(encodeJ(0, 8))).To(Equal(emu.SideEffectSkipPCIncrease))
			Expect(e.Execute(wordECALL)).To(Equal(emu.SideEffectSyscall))
			Expect(e.Execute(wordEBREAK)).To(Equal(emu.SideEffectBreakpoint))
			Expect(e.RegFile().PC).To(Equal(base + 12))
		})
	})

	Describe("Run", func() {
		It("should return the exit code of the exit syscall", func() {
			load(
				addi(emu.RegA0, 0, 42),
				addi(emu.RegA7, 0, 93),
				wordECALL,
			)

			result := e.Run(context.Background())

			Expect(result.Err).NotTo(HaveOccurred())
			Expect(result.Exited).To(BeTrue())
			Expect(result.ExitCode).To(Equal(int64(42)))
			Expect(e.RegFile().PC).To(Equal(base + 12))
			Expect(e.InstructionCount()).To(Equal(uint64(3)))
		})

		It("should write to stdout through the write syscall", func() {
			Expect(e.LoadSegment(base+0x100, []byte("hi\n"))).To(Succeed())
			e.RegFile().WriteReg(emu.RegA1, base+0x100)
			load(
				addi(emu.RegA0, 0, 1),
				addi(emu.RegA2, 0, 3),
				addi(emu.RegA7, 0, 64),
				wordECALL,
				wordEBREAK,
			)

			result := e.Run(context.Background())

			Expect(result.Breakpoint).To(BeTrue())
			Expect(stdoutBuf.String()).To(Equal("hi\n"))
			Expect(e.RegFile().ReadReg(emu.RegA0)).To(Equal(uint64(3)))
		})

		It("should stop at the instruction limit", func() {
			e = emu.NewEmulator(emu.WithMemorySize(testMemSize), emu.WithMaxInstructions(5))
			load(encodeJ(0, 0)) // j .

			result := e.Run(context.Background())

			Expect(errors.Is(result.Err, emu.ErrMaxInstructions)).To(BeTrue())
			Expect(e.InstructionCount()).To(Equal(uint64(5)))
		})

		It("should stop when the context is cancelled", func() {
			load(encodeJ(0, 0))
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			result := e.Run(ctx)

			Expect(errors.Is(result.Err, context.Canceled)).To(BeTrue())
			Expect(e.InstructionCount()).To(BeZero())
		})
	})

	Describe("Reset", func() {
		It("should clear state and memory", func() {
			load(addi(1, 0, 1))
			Expect(e.Step().Err).NotTo(HaveOccurred())
			e.CSRs().Write(emu.CSRMTVec, 0x10)

			e.Reset()

			Expect(e.RegFile().ReadReg(1)).To(BeZero())
			Expect(e.RegFile().PC).To(Equal(base))
			Expect(e.InstructionCount()).To(BeZero())
			Expect(e.CSRs().Read(emu.CSRMTVec)).To(BeZero())
			Expect(e.Bus().Load32(base)).To(BeZero())
		})
	})

	Describe("Observers", func() {
		It("should trace every retired instruction", func() {
			tracer := &recordingTracer{}
			e = emu.NewEmulator(emu.WithMemorySize(testMemSize), emu.WithTracer(tracer))
			load(wordNOP, addi(1, 0, 1), wordEBREAK)

			Expect(e.Run(context.Background()).Breakpoint).To(BeTrue())
			Expect(tracer.pcs).To(Equal([]uint64{base, base + 4, base + 8}))
			Expect(tracer.words[1]).To(Equal(addi(1, 0, 1)))
		})

		It("should notify the access observer", func() {
			observer := &countingObserver{counts: map[emu.AccessKind]int{}}
			e = emu.NewEmulator(emu.WithMemorySize(testMemSize), emu.WithAccessObserver(observer))
			e.RegFile().WriteReg(1, base+0x100)
			load(encodeS(3, 1, 0, 0), encodeI(0x03, 2, 3, 1, 0), wordEBREAK)

			Expect(e.Run(context.Background()).Breakpoint).To(BeTrue())
			Expect(observer.counts[emu.AccessFetch]).To(Equal(3))
			Expect(observer.counts[emu.AccessStore]).To(Equal(1))
			Expect(observer.counts[emu.AccessLoad]).To(Equal(1))
		})
	})
})
