package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"

	"github.com/sarchlab/rvsim/config"
	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/loader"
	"github.com/sarchlab/rvsim/timing/cache"
	"github.com/sarchlab/rvsim/timing/latency"
	"github.com/sarchlab/rvsim/trace"
)

// run loads and executes the program at path. Trace lines and reports go
// to stderr; the guest's standard streams are stdin, stdout and stderr.
// The returned code is the guest exit status, 0 after a breakpoint and 1
// after a fault.
func run(
	ctx context.Context,
	path string,
	cfg *config.Config,
	stdin io.Reader,
	stdout, stderr io.Writer,
) (int, error) {
	logger := log.Root()

	prog, err := loader.Load(path, cfg.BaseAddress)
	if err != nil {
		return 1, err
	}

	logger.Debug("Program loaded",
		"path", path,
		"format", prog.Format,
		"entry", hexutil.Uint64(prog.EntryPoint),
		"segments", len(prog.Segments),
		"size", prog.Size())

	opts := []emu.EmulatorOption{
		emu.WithMemorySize(cfg.MemorySize),
		emu.WithBaseAddress(cfg.BaseAddress),
		emu.WithMaxInstructions(cfg.MaxInstructions),
		emu.WithStdin(stdin),
		emu.WithStdout(stdout),
		emu.WithStderr(stderr),
		emu.WithLogger(logger),
	}

	if cfg.HostRoot != "" {
		root, err := os.OpenRoot(cfg.HostRoot)
		if err != nil {
			return 1, fmt.Errorf("failed to open host root: %w", err)
		}
		defer root.Close()
		opts = append(opts, emu.WithHostRoot(root))
	}

	var tracer *trace.Tracer
	if cfg.Trace.Enabled {
		tracer = trace.NewTracer(stderr,
			trace.WithBufferSize(cfg.Trace.BufferSize),
			trace.WithDisassembly(cfg.Trace.Disassemble))
		opts = append(opts, emu.WithTracer(tracer))
	}

	var hierarchy *cache.Hierarchy
	if cfg.Cache.Enabled {
		hierarchy, err = cache.NewHierarchy(cfg.Cache.Hierarchy)
		if err != nil {
			return 1, fmt.Errorf("failed to build cache hierarchy: %w", err)
		}
		opts = append(opts, emu.WithAccessObserver(hierarchy))
		if cfg.Verbose {
			fmt.Fprint(stderr, hierarchy.Layout())
		}
	}

	var estimator *latency.Estimator
	if cfg.Timing.Enabled {
		estimator = latency.NewEstimator(latency.NewTableWithConfig(cfg.Timing.Latencies))
		opts = append(opts, emu.WithTracer(estimator))
	}

	e := emu.NewEmulator(opts...)
	defer func() {
		if err := e.Close(); err != nil {
			logger.Warn("Failed to close guest files", "err", err)
		}
	}()

	if err := prog.LoadInto(e); err != nil {
		return 1, fmt.Errorf("failed to load program: %w", err)
	}
	e.SetPC(prog.EntryPoint)

	result := e.Run(ctx)

	if cfg.DumpRegisters {
		if tracer != nil {
			tracer.DumpRegisters(e.RegFile().Snapshot())
		} else {
			fmt.Fprintln(stderr, trace.FormatRegisters(e.RegFile().Snapshot()))
		}
	}

	if tracer != nil {
		if err := tracer.Close(cfg.Trace.CloseTimeout()); err != nil {
			logger.Warn("Trace shutdown incomplete", "err", err)
		}
		if dropped := tracer.Dropped(); dropped > 0 {
			logger.Warn("Trace events dropped", "dropped", dropped)
		}
		if err := tracer.Err(); err != nil {
			logger.Warn("Trace output failed", "err", err)
		}
	}

	if hierarchy != nil {
		if err := hierarchy.WriteReport(stderr); err != nil {
			logger.Warn("Failed to write cache report", "err", err)
		}
	}

	if estimator != nil {
		stats := estimator.Stats()
		fmt.Fprintf(stderr,
			"timing instructions=%d cycles=%d cpi=%.2f loads=%d stores=%d branches=%d mispredictions=%d jumps=%d redirects=%d\n",
			stats.Instructions, stats.Cycles, stats.CPI(),
			stats.Loads, stats.Stores, stats.Branches, stats.Mispredictions,
			stats.Jumps, stats.Redirects)
	}

	logger.Info("Run finished",
		"instructions", e.InstructionCount(),
		"pc", hexutil.Uint64(e.RegFile().PC),
		"exited", result.Exited,
		"breakpoint", result.Breakpoint)

	return exitStatus(result)
}

// exitStatus maps a final step result to a process exit code.
func exitStatus(result emu.StepResult) (int, error) {
	switch {
	case result.Err != nil:
		if errors.Is(result.Err, emu.ErrMaxInstructions) {
			return 1, fmt.Errorf("instruction limit reached: %w", result.Err)
		}
		return 1, result.Err
	case result.Exited:
		return int(result.ExitCode), nil
	default:
		return 0, nil
	}
}
