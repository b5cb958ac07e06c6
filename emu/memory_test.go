package emu_test

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/emu"
)

var _ = Describe("Memory", func() {
	var mem *emu.Memory

	BeforeEach(func() {
		mem = emu.NewMemory(16)
	})

	It("should round-trip every access width", func() {
		Expect(mem.Store8(0, 0xAB)).To(Succeed())
		Expect(mem.Store16(2, 0xBEEF)).To(Succeed())
		Expect(mem.Store32(4, 0xDEADBEEF)).To(Succeed())
		Expect(mem.Store64(8, 0x0123456789ABCDEF)).To(Succeed())

		Expect(mem.Load8(0)).To(Equal(uint8(0xAB)))
		Expect(mem.Load16(2)).To(Equal(uint16(0xBEEF)))
		Expect(mem.Load32(4)).To(Equal(uint32(0xDEADBEEF)))
		Expect(mem.Load64(8)).To(Equal(uint64(0x0123456789ABCDEF)))
	})

	It("should store little-endian", func() {
		Expect(mem.Store32(0, 0x11223344)).To(Succeed())

		Expect(mem.Bytes(0, 4)).To(Equal([]byte{0x44, 0x33, 0x22, 0x11}))
	})

	It("should allow the last byte and reject one past it", func() {
		Expect(mem.Store64(8, 1)).To(Succeed())

		_, err := mem.Load64(9)
		Expect(errors.Is(err, emu.ErrOutOfBounds)).To(BeTrue())

		_, err = mem.Load8(16)
		Expect(errors.Is(err, emu.ErrOutOfBounds)).To(BeTrue())
	})

	It("should not wrap around on huge offsets", func() {
		_, err := mem.Load64(math.MaxUint64 - 3)
		Expect(errors.Is(err, emu.ErrOutOfBounds)).To(BeTrue())

		err = mem.Store16(math.MaxUint64, 0)
		Expect(errors.Is(err, emu.ErrOutOfBounds)).To(BeTrue())
	})

	It("should leave memory untouched after a faulting store", func() {
		Expect(mem.Store64(12, math.MaxUint64)).NotTo(Succeed())

		Expect(mem.Bytes(12, 4)).To(Equal([]byte{0, 0, 0, 0}))
	})

	It("should report the faulting offset and size", func() {
		_, err := mem.Load32(14)

		var addrErr *emu.AddressError
		Expect(errors.As(err, &addrErr)).To(BeTrue())
		Expect(addrErr.Addr).To(Equal(uint64(14)))
		Expect(addrErr.Size).To(Equal(4))
	})

	Describe("LoadImage", func() {
		It("should copy the image to offset 0", func() {
			Expect(mem.LoadImage([]byte{1, 2, 3})).To(Succeed())

			Expect(mem.Load8(2)).To(Equal(uint8(3)))
		})

		It("should reject an image larger than memory", func() {
			err := mem.LoadImage(make([]byte, 17))

			Expect(errors.Is(err, emu.ErrOutOfBounds)).To(BeTrue())
		})
	})

	It("should zero everything on Clear", func() {
		Expect(mem.Store64(0, math.MaxUint64)).To(Succeed())

		mem.Clear()

		Expect(mem.Load64(0)).To(BeZero())
	})
})

var _ = Describe("Bus", func() {
	var (
		bus      *emu.Bus
		observer *countingObserver
	)

	BeforeEach(func() {
		bus = emu.NewBus(base, emu.NewMemory(64))
		observer = &countingObserver{counts: map[emu.AccessKind]int{}}
		bus.SetObserver(observer)
	})

	It("should translate addresses by the base", func() {
		Expect(bus.Store32(base+8, 0xCAFEF00D)).To(Succeed())

		Expect(bus.Memory().Load32(8)).To(Equal(uint32(0xCAFEF00D)))
		Expect(bus.Fetch(base + 8)).To(Equal(uint32(0xCAFEF00D)))
	})

	It("should reject addresses below the base", func() {
		_, err := bus.Load8(base - 1)

		Expect(errors.Is(err, emu.ErrAddressNotFound)).To(BeTrue())
		var addrErr *emu.AddressError
		Expect(errors.As(err, &addrErr)).To(BeTrue())
		Expect(addrErr.Addr).To(Equal(base - 1))
	})

	It("should report out-of-bounds faults with the bus address", func() {
		_, err := bus.Load64(base + 60)

		var addrErr *emu.AddressError
		Expect(errors.As(err, &addrErr)).To(BeTrue())
		Expect(addrErr.Err).To(Equal(emu.ErrOutOfBounds))
		Expect(addrErr.Addr).To(Equal(base + 60))
	})

	It("should notify the observer of successful accesses only", func() {
		_, _ = bus.Fetch(base)
		_, _ = bus.Load16(base + 2)
		_ = bus.Store8(base+3, 1)
		_, _ = bus.Load64(base + 64)

		Expect(observer.counts[emu.AccessFetch]).To(Equal(1))
		Expect(observer.counts[emu.AccessLoad]).To(Equal(1))
		Expect(observer.counts[emu.AccessStore]).To(Equal(1))
	})

	It("should copy bulk data without notifying the observer", func() {
		Expect(bus.WriteBytes(base+4, []byte("abc"))).To(Succeed())

		Expect(bus.ReadBytes(base+4, 3)).To(Equal([]byte("abc")))
		Expect(observer.counts).To(BeEmpty())
	})
})

var _ = Describe("RegFile", func() {
	var regFile *emu.RegFile

	BeforeEach(func() {
		regFile = &emu.RegFile{}
	})

	It("should discard writes to x0", func() {
		regFile.WriteReg(0, 42)

		Expect(regFile.ReadReg(0)).To(BeZero())
		Expect(regFile.X[0]).To(BeZero())
	})

	It("should read back written registers", func() {
		for i := uint8(1); i < emu.NumRegisters; i++ {
			regFile.WriteReg(i, uint64(i)*3)
		}

		Expect(regFile.ReadReg(31)).To(Equal(uint64(93)))
		Expect(regFile.Snapshot()[5]).To(Equal(uint64(15)))
	})

	It("should fail checked reads outside the register file", func() {
		_, err := regFile.ReadRegChecked(32)

		var idxErr *emu.RegisterIndexError
		Expect(errors.As(err, &idxErr)).To(BeTrue())
		Expect(idxErr.Index).To(Equal(32))
	})

	It("should serve checked reads inside the register file", func() {
		regFile.WriteReg(31, 7)

		Expect(regFile.ReadRegChecked(31)).To(Equal(uint64(7)))
	})
})
