package cache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/timing/cache"
)

// recordingLevel is a fixed-latency next level that remembers writebacks.
type recordingLevel struct {
	latency    uint64
	fills      []uint64
	writebacks []uint64
}

func (r *recordingLevel) Fill(blockAddr uint64, _ int) uint64 {
	r.fills = append(r.fills, blockAddr)
	return r.latency
}

func (r *recordingLevel) Writeback(blockAddr uint64, _ int) {
	r.writebacks = append(r.writebacks, blockAddr)
}

var _ = Describe("Cache", func() {
	var (
		c      *cache.Cache
		config cache.Config
	)

	BeforeEach(func() {
		// Small cache for testing: 4KB, 4-way, 64B lines, 16 sets
		config = cache.Config{
			Size:          4 * 1024,
			Associativity: 4,
			BlockSize:     64,
			HitLatency:    1,
			MissLatency:   10,
		}
		var err error
		c, err = cache.New("test", config, nil)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Read operations", func() {
		It("should miss on cold cache", func() {
			result := c.Read(0x1000, 8)
			Expect(result.Hit).To(BeFalse())
			Expect(result.Latency).To(Equal(uint64(10)))

			stats := c.Stats()
			Expect(stats.Reads).To(Equal(uint64(1)))
			Expect(stats.Misses).To(Equal(uint64(1)))
			Expect(stats.Hits).To(Equal(uint64(0)))
			Expect(stats.Cycles).To(Equal(uint64(10)))
		})

		It("should hit on cached data", func() {
			c.Read(0x1000, 8)

			result := c.Read(0x1000, 8)
			Expect(result.Hit).To(BeTrue())
			Expect(result.Latency).To(Equal(uint64(1)))

			stats := c.Stats()
			Expect(stats.Reads).To(Equal(uint64(2)))
			Expect(stats.Hits).To(Equal(uint64(1)))
			Expect(stats.HitRate()).To(BeNumerically("~", 0.5))
		})

		It("should hit on different addresses in same cache line", func() {
			c.Read(0x1000, 4)

			Expect(c.Read(0x1004, 4).Hit).To(BeTrue())
			Expect(c.Read(0x103C, 4).Hit).To(BeTrue())
			Expect(c.Read(0x1040, 4).Hit).To(BeFalse())
		})

		It("should touch both lines of a misaligned access", func() {
			result := c.Read(0x103C, 8)

			Expect(result.Hit).To(BeFalse())
			Expect(c.Contains(0x1000)).To(BeTrue())
			Expect(c.Contains(0x1040)).To(BeTrue())
			Expect(c.Stats().Misses).To(Equal(uint64(2)))
			Expect(c.Stats().Reads).To(Equal(uint64(1)))
		})
	})

	Describe("Write operations", func() {
		It("should write-allocate on miss", func() {
			result := c.Write(0x1000, 8)
			Expect(result.Hit).To(BeFalse())
			Expect(result.Latency).To(Equal(uint64(10)))

			Expect(c.Read(0x1000, 8).Hit).To(BeTrue())
		})

		It("should hit on cached data", func() {
			c.Write(0x1000, 8)

			result := c.Write(0x1000, 8)
			Expect(result.Hit).To(BeTrue())
			Expect(result.Latency).To(Equal(uint64(1)))
		})
	})

	Describe("Eviction", func() {
		It("should evict when cache is full", func() {
			// Set 0 addresses: 0, 1024, 2048, 3072, 4096
			c.Read(0x0000, 8)
			c.Read(0x0400, 8)
			c.Read(0x0800, 8)
			c.Read(0x0C00, 8)

			Expect(c.Read(0x0000, 8).Hit).To(BeTrue())
			Expect(c.Read(0x0C00, 8).Hit).To(BeTrue())

			// 0x0400 is now the LRU block of set 0
			result := c.Read(0x1000, 8)
			Expect(result.Hit).To(BeFalse())
			Expect(result.Evicted).To(BeTrue())
			Expect(result.EvictedAddr).To(Equal(uint64(0x0400)))
			Expect(result.Writeback).To(BeFalse())

			Expect(c.Contains(0x0400)).To(BeFalse())
			Expect(c.Stats().Evictions).To(Equal(uint64(1)))
		})

		It("should write back dirty evicted blocks", func() {
			next := &recordingLevel{latency: 5}
			var err error
			c, err = cache.New("test", config, next)
			Expect(err).NotTo(HaveOccurred())

			c.Write(0x0000, 8)
			c.Write(0x0400, 8)
			c.Write(0x0800, 8)
			c.Write(0x0C00, 8)

			// Access the others to make 0x0000 the LRU
			c.Read(0x0400, 8)
			c.Read(0x0800, 8)
			c.Read(0x0C00, 8)

			result := c.Write(0x1000, 8)

			Expect(result.Writeback).To(BeTrue())
			Expect(result.Latency).To(Equal(uint64(1 + 5)))
			Expect(next.writebacks).To(Equal([]uint64{0x0000}))
			Expect(next.fills).To(HaveLen(5))
			Expect(c.Stats().Writebacks).To(Equal(uint64(1)))
		})
	})

	Describe("Flush", func() {
		It("should write back all dirty blocks", func() {
			next := &recordingLevel{latency: 5}
			var err error
			c, err = cache.New("test", config, next)
			Expect(err).NotTo(HaveOccurred())

			c.Write(0x0000, 8)
			c.Write(0x1000, 8)
			c.Read(0x2000, 8)

			c.Flush()

			Expect(next.writebacks).To(ConsistOf(uint64(0x0000), uint64(0x1000)))
			Expect(c.Stats().Writebacks).To(Equal(uint64(2)))
			Expect(c.Contains(0x2000)).To(BeFalse())
		})
	})

	Describe("Invalidate and Reset", func() {
		It("should drop lines", func() {
			c.Read(0x0000, 8)
			c.Read(0x0040, 8)

			c.Invalidate(0x0000)
			Expect(c.Contains(0x0000)).To(BeFalse())
			Expect(c.Contains(0x0040)).To(BeTrue())

			c.Reset()
			Expect(c.Contains(0x0040)).To(BeFalse())
			Expect(c.Stats()).To(Equal(cache.Statistics{}))
		})
	})

	Describe("Config validation", func() {
		DescribeTable("rejecting bad geometry",
			func(size, assoc, block int) {
				_, err := cache.New("bad", cache.Config{Size: size, Associativity: assoc, BlockSize: block}, nil)
				Expect(err).To(HaveOccurred())
			},
			Entry("non power-of-two block", 4096, 4, 48),
			Entry("zero associativity", 4096, 0, 64),
			Entry("size not a multiple of a set", 1000, 4, 64),
			Entry("zero size", 0, 4, 64),
		)

		It("should accept the defaults", func() {
			Expect(cache.DefaultL1IConfig().Validate()).To(Succeed())
			Expect(cache.DefaultL1DConfig().Validate()).To(Succeed())
			Expect(cache.DefaultL2Config().Validate()).To(Succeed())
			Expect(cache.DefaultL1DConfig().NumSets()).To(Equal(64))
		})
	})
})
