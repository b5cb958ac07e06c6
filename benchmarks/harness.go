package benchmarks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/xlab/treeprint"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/timing/cache"
	"github.com/sarchlab/rvsim/timing/latency"
)

// MemorySize is the guest memory size used for every benchmark.
const MemorySize = 1 << 20

// dataOffset is where benchmark data lives relative to the memory base.
const dataOffset = 0x8000

// maxInstructions bounds any single benchmark run.
const maxInstructions = 1_000_000

// DataAddress returns the guest address of the benchmark data region.
func DataAddress(e *emu.Emulator) uint64 {
	return e.Bus().Base() + dataOffset
}

// BenchmarkResult is the outcome of one benchmark run.
type BenchmarkResult struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	// Latency model output
	EstimatedCycles     uint64  `json:"estimated_cycles"`
	InstructionsRetired uint64  `json:"instructions_retired"`
	CPI                 float64 `json:"cpi"`

	Loads          uint64 `json:"loads"`
	Stores         uint64 `json:"stores"`
	Branches       uint64 `json:"branches"`
	Mispredictions uint64 `json:"mispredictions"`
	Jumps          uint64 `json:"jumps"`
	Redirects      uint64 `json:"redirects"`

	// Cache model output, zero when caches are off
	ICacheHits   uint64 `json:"icache_hits,omitempty"`
	ICacheMisses uint64 `json:"icache_misses,omitempty"`
	DCacheHits   uint64 `json:"dcache_hits,omitempty"`
	DCacheMisses uint64 `json:"dcache_misses,omitempty"`
	MemoryCycles uint64 `json:"memory_cycles,omitempty"`

	ExitCode int64 `json:"exit_code"`

	// Error is set when the run faulted or exited with the wrong status.
	Error string `json:"error,omitempty"`

	// WallTime is host time spent in Run.
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark is a hand-assembled program with its expected exit status.
type Benchmark struct {
	Name        string
	Description string

	// Setup runs after the program is loaded, before the first step.
	Setup func(e *emu.Emulator) error

	// Program is RV64I machine code loaded at the memory base.
	Program []byte

	ExpectedExit int64
}

// HarnessConfig controls which models are attached and where reports go.
type HarnessConfig struct {
	EnableCaches bool
	Caches       cache.HierarchyConfig

	// Timing is the latency table. Nil means the defaults.
	Timing *latency.TimingConfig

	// Output receives reports. Nil means os.Stdout.
	Output io.Writer

	// Verbose logs each result as it completes.
	Verbose bool
}

// DefaultConfig returns a harness with caches on and default latencies.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		EnableCaches: true,
		Caches:       cache.DefaultHierarchyConfig(),
		Timing:       latency.DefaultTimingConfig(),
		Output:       os.Stdout,
	}
}

// Harness runs benchmarks on fresh emulators and formats the results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
	logger     log.Logger
}

// NewHarness returns an empty harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Timing == nil {
		config.Timing = latency.DefaultTimingConfig()
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
		logger:     log.Root().With("component", "benchmarks"),
	}
}

// AddBenchmark queues b to run.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks queues benchmarks in order.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll runs the queued benchmarks in order. A failing benchmark records
// its error in the result and does not stop the rest.
func (h *Harness) RunAll(ctx context.Context) []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, b := range h.benchmarks {
		result := h.runBenchmark(ctx, b)
		if h.config.Verbose {
			h.logger.Info("Benchmark finished",
				"name", result.Name,
				"cycles", result.EstimatedCycles,
				"instructions", result.InstructionsRetired,
				"exit", result.ExitCode)
		}
		results = append(results, result)
	}

	return results
}

// runBenchmark executes a single benchmark on a fresh emulator.
func (h *Harness) runBenchmark(ctx context.Context, bench Benchmark) BenchmarkResult {
	result := BenchmarkResult{
		Name:        bench.Name,
		Description: bench.Description,
	}

	estimator := latency.NewEstimator(latency.NewTableWithConfig(h.config.Timing))
	opts := []emu.EmulatorOption{
		emu.WithMemorySize(MemorySize),
		emu.WithMaxInstructions(maxInstructions),
		emu.WithStdout(io.Discard),
		emu.WithStderr(io.Discard),
		emu.WithTracer(estimator),
	}

	var hierarchy *cache.Hierarchy
	if h.config.EnableCaches {
		var err error
		hierarchy, err = cache.NewHierarchy(h.config.Caches)
		if err != nil {
			result.Error = err.Error()
			return result
		}
		opts = append(opts, emu.WithAccessObserver(hierarchy))
	}

	e := emu.NewEmulator(opts...)
	if err := e.LoadProgram(bench.Program); err != nil {
		result.Error = err.Error()
		return result
	}
	if bench.Setup != nil {
		if err := bench.Setup(e); err != nil {
			result.Error = fmt.Sprintf("setup: %v", err)
			return result
		}
	}

	// Observe only the program, not the setup stores.
	if hierarchy != nil {
		hierarchy.Reset()
	}

	start := time.Now()
	step := e.Run(ctx)
	result.WallTime = time.Since(start)

	stats := estimator.Stats()
	result.EstimatedCycles = stats.Cycles
	result.InstructionsRetired = e.InstructionCount()
	result.CPI = stats.CPI()
	result.Loads = stats.Loads
	result.Stores = stats.Stores
	result.Branches = stats.Branches
	result.Mispredictions = stats.Mispredictions
	result.Jumps = stats.Jumps
	result.Redirects = stats.Redirects
	result.ExitCode = step.ExitCode

	if hierarchy != nil {
		ic := hierarchy.L1I().Stats()
		dc := hierarchy.L1D().Stats()
		result.ICacheHits = ic.Hits
		result.ICacheMisses = ic.Misses
		result.DCacheHits = dc.Hits
		result.DCacheMisses = dc.Misses
		result.MemoryCycles = hierarchy.Cycles()
	}

	switch {
	case step.Err != nil:
		result.Error = step.Err.Error()
	case !step.Exited:
		result.Error = "stopped without exiting"
	case step.ExitCode != bench.ExpectedExit:
		result.Error = fmt.Sprintf("exit code %d, expected %d", step.ExitCode, bench.ExpectedExit)
	}

	return result
}

// PrintResults writes one tree per benchmark.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	for _, r := range results {
		tree := treeprint.NewWithRoot(fmt.Sprintf("%s: %s", r.Name, r.Description))
		if r.Error != "" {
			tree.AddNode("error " + r.Error)
		}
		tree.AddNode(fmt.Sprintf("exit %d", r.ExitCode))
		tree.AddNode(fmt.Sprintf("timing cycles=%d instructions=%d cpi=%.3f",
			r.EstimatedCycles, r.InstructionsRetired, r.CPI))
		tree.AddNode(fmt.Sprintf("classes loads=%d stores=%d branches=%d mispredictions=%d jumps=%d redirects=%d",
			r.Loads, r.Stores, r.Branches, r.Mispredictions, r.Jumps, r.Redirects))
		if h.config.EnableCaches {
			tree.AddNode(fmt.Sprintf("l1i hits=%d misses=%d", r.ICacheHits, r.ICacheMisses))
			tree.AddNode(fmt.Sprintf("l1d hits=%d misses=%d", r.DCacheHits, r.DCacheMisses))
			tree.AddNode(fmt.Sprintf("memory cycles=%d", r.MemoryCycles))
		}
		tree.AddNode(fmt.Sprintf("wall %v", r.WallTime))

		_, _ = fmt.Fprintln(h.config.Output, tree.String())
	}
}

// PrintCSV writes a header and one row per result.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,cycles,instructions,cpi,loads,stores,branches,mispredictions,jumps,redirects,icache_hits,icache_misses,dcache_hits,dcache_misses,exit_code")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%.3f,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d\n",
			r.Name, r.EstimatedCycles, r.InstructionsRetired, r.CPI,
			r.Loads, r.Stores, r.Branches, r.Mispredictions, r.Jumps, r.Redirects,
			r.ICacheHits, r.ICacheMisses, r.DCacheHits, r.DCacheMisses,
			r.ExitCode)
	}
}

// BenchmarkReport is the document PrintJSON emits and CompareReport reads.
type BenchmarkReport struct {
	Metadata ReportMetadata    `json:"metadata"`
	Results  []BenchmarkResult `json:"results"`
	Summary  ReportSummary     `json:"summary"`
}

// ReportMetadata records how the results were produced.
type ReportMetadata struct {
	Timestamp     string                `json:"timestamp"`
	CachesEnabled bool                  `json:"caches_enabled"`
	Timing        *latency.TimingConfig `json:"timing"`
}

// ReportSummary aggregates a result set.
type ReportSummary struct {
	TotalBenchmarks   int           `json:"total_benchmarks"`
	Failed            int           `json:"failed"`
	TotalCycles       uint64        `json:"total_cycles"`
	TotalInstructions uint64        `json:"total_instructions"`
	AverageCPI        float64       `json:"average_cpi"`
	TotalWallTime     time.Duration `json:"total_wall_time_ns"`
}

// Summarize computes aggregate statistics over results.
func Summarize(results []BenchmarkResult) ReportSummary {
	summary := ReportSummary{TotalBenchmarks: len(results)}
	for _, r := range results {
		summary.TotalCycles += r.EstimatedCycles
		summary.TotalInstructions += r.InstructionsRetired
		summary.TotalWallTime += r.WallTime
		if r.Error != "" {
			summary.Failed++
		}
	}

	if summary.TotalInstructions > 0 {
		summary.AverageCPI = float64(summary.TotalCycles) / float64(summary.TotalInstructions)
	}

	return summary
}

// Report assembles the JSON report for results.
func (h *Harness) Report(results []BenchmarkResult) BenchmarkReport {
	return BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp:     time.Now().UTC().Format(time.RFC3339),
			CachesEnabled: h.config.EnableCaches,
			Timing:        h.config.Timing,
		},
		Results: results,
		Summary: Summarize(results),
	}
}

// PrintJSON writes the indented report for results.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(h.Report(results))
}
