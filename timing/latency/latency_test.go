package latency_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/timing/latency"
)

const (
	wordADDI   uint32 = 0x00100093 // addi x1, x0, 1
	wordADD    uint32 = 0x002081B3 // add x3, x1, x2
	wordLD     uint32 = 0x00013283 // ld x5, 0(x2)
	wordLW     uint32 = 0x00002083 // lw x1, 0(x0)
	wordSD     uint32 = 0x00513423 // sd x5, 8(x2)
	wordBEQ    uint32 = 0x00000463 // beq x0, x0, 8
	wordJAL    uint32 = 0x0000006F // jal x0, 0
	wordCSRRW  uint32 = 0x340110F3 // csrrw x1, mscratch, x2
	wordFENCE  uint32 = 0x0FF0000F
	wordECALL  uint32 = 0x00000073
	wordEBREAK uint32 = 0x00100073
)

var _ = Describe("Latency", func() {
	var (
		table   *latency.Table
		decoder *insts.Decoder
	)

	decode := func(word uint32) *insts.Instruction {
		inst, err := decoder.Decode(word)
		Expect(err).NotTo(HaveOccurred())
		return inst
	}

	BeforeEach(func() {
		table = latency.NewTable()
		decoder = insts.NewDecoder()
	})

	Describe("Default Timing Values", func() {
		It("should have correct defaults", func() {
			config := table.Config()
			Expect(config.ALULatency).To(Equal(uint64(1)))
			Expect(config.BranchLatency).To(Equal(uint64(1)))
			Expect(config.RedirectPenalty).To(Equal(uint64(2)))
			Expect(config.MispredictPenalty).To(Equal(uint64(3)))
			Expect(config.Predictor).To(Equal(latency.DefaultPredictorConfig()))
			Expect(config.LoadLatency).To(Equal(uint64(2)))
			Expect(config.StoreLatency).To(Equal(uint64(1)))
			Expect(config.CSRLatency).To(Equal(uint64(2)))
		})
	})

	Describe("GetLatency", func() {
		DescribeTable("instruction classes",
			func(word uint32, expected uint64) {
				Expect(table.GetLatency(decode(word))).To(Equal(expected))
			},
			Entry("addi", wordADDI, uint64(1)),
			Entry("add", wordADD, uint64(1)),
			Entry("ld", wordLD, uint64(2)),
			Entry("sd", wordSD, uint64(1)),
			Entry("beq", wordBEQ, uint64(1)),
			Entry("jal", wordJAL, uint64(1)),
			Entry("csrrw", wordCSRRW, uint64(2)),
			Entry("fence", wordFENCE, uint64(1)),
			Entry("ecall", wordECALL, uint64(1)),
		)

		It("should return 1 for nil instruction", func() {
			Expect(table.GetLatency(nil)).To(Equal(uint64(1)))
		})

		It("should use custom configuration", func() {
			config := latency.DefaultTimingConfig()
			config.LoadLatency = 7
			config.CSRLatency = 9
			custom := latency.NewTableWithConfig(config)

			Expect(custom.GetLatency(decode(wordLW))).To(Equal(uint64(7)))
			Expect(custom.GetLatency(decode(wordCSRRW))).To(Equal(uint64(9)))
		})
	})

	Describe("Classification", func() {
		It("should identify memory operations", func() {
			Expect(table.IsLoadOp(decode(wordLD))).To(BeTrue())
			Expect(table.IsStoreOp(decode(wordSD))).To(BeTrue())
			Expect(table.IsMemoryOp(decode(wordLD))).To(BeTrue())
			Expect(table.IsMemoryOp(decode(wordADD))).To(BeFalse())
		})

		It("should separate branches from jumps", func() {
			Expect(table.IsBranchOp(decode(wordBEQ))).To(BeTrue())
			Expect(table.IsBranchOp(decode(wordJAL))).To(BeFalse())
			Expect(table.IsControlTransfer(decode(wordJAL))).To(BeTrue())
			Expect(table.IsControlTransfer(decode(wordEBREAK))).To(BeFalse())
		})

		It("should treat nil as no class", func() {
			Expect(table.IsMemoryOp(nil)).To(BeFalse())
			Expect(table.IsControlTransfer(nil)).To(BeFalse())
		})
	})

	Describe("TimingConfig", func() {
		It("should validate the default config", func() {
			Expect(latency.DefaultTimingConfig().Validate()).To(Succeed())
		})

		It("should reject zero latencies", func() {
			config := latency.DefaultTimingConfig()
			config.LoadLatency = 0
			Expect(config.Validate()).To(MatchError(ContainSubstring("load_latency")))
		})

		It("should allow zero penalties", func() {
			config := latency.DefaultTimingConfig()
			config.RedirectPenalty = 0
			config.MispredictPenalty = 0
			Expect(config.Validate()).To(Succeed())
		})

		It("should reject predictor tables that are not powers of two", func() {
			config := latency.DefaultTimingConfig()
			config.Predictor.BTBSize = 100
			Expect(config.Validate()).To(MatchError(ContainSubstring("btb_size")))
		})

		It("should clone independently", func() {
			config := latency.DefaultTimingConfig()
			clone := config.Clone()
			clone.ALULatency = 5
			Expect(config.ALULatency).To(Equal(uint64(1)))
		})

		Context("file round trip", func() {
			var dir string

			BeforeEach(func() {
				var err error
				dir, err = os.MkdirTemp("", "latency-config")
				Expect(err).NotTo(HaveOccurred())
			})

			AfterEach(func() {
				os.RemoveAll(dir)
			})

			It("should save and load a config", func() {
				path := filepath.Join(dir, "timing.json")
				config := latency.DefaultTimingConfig()
				config.StoreLatency = 4
				Expect(config.SaveConfig(path)).To(Succeed())

				loaded, err := latency.LoadConfig(path)
				Expect(err).NotTo(HaveOccurred())
				Expect(loaded).To(Equal(config))
			})

			It("should keep defaults for missing fields", func() {
				path := filepath.Join(dir, "partial.json")
				Expect(os.WriteFile(path, []byte(`{"load_latency": 5}`), 0644)).To(Succeed())

				loaded, err := latency.LoadConfig(path)
				Expect(err).NotTo(HaveOccurred())
				Expect(loaded.LoadLatency).To(Equal(uint64(5)))
				Expect(loaded.ALULatency).To(Equal(uint64(1)))
			})

			It("should fail on a missing file", func() {
				_, err := latency.LoadConfig(filepath.Join(dir, "missing.json"))
				Expect(err).To(HaveOccurred())
			})

			It("should fail on malformed JSON", func() {
				path := filepath.Join(dir, "bad.json")
				Expect(os.WriteFile(path, []byte("{"), 0644)).To(Succeed())

				_, err := latency.LoadConfig(path)
				Expect(err).To(MatchError(ContainSubstring("failed to parse")))
			})
		})
	})
})
