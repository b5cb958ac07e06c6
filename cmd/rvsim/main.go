// Package main provides the rvsim command, an RV64I functional emulator.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/cobra"

	"github.com/sarchlab/rvsim/config"
)

func main() {
	os.Exit(execute(os.Args[1:]))
}

func execute(args []string) int {
	var (
		configPath      string
		verbose         bool
		traceEnabled    bool
		cacheEnabled    bool
		timingEnabled   bool
		maxInstructions uint64
		dumpRegisters   bool
		hostRoot        string
		exitCode        int
	)

	rootCmd := &cobra.Command{
		Use:           "rvsim [flags] <image>",
		Short:         "RV64I functional emulator",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultConfig()
			if configPath != "" {
				loaded, err := config.LoadConfig(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}

			flags := cmd.Flags()
			if flags.Changed("verbose") {
				cfg.Verbose = verbose
			}
			if flags.Changed("trace") {
				cfg.Trace.Enabled = traceEnabled
			}
			if flags.Changed("cache") {
				cfg.Cache.Enabled = cacheEnabled
			}
			if flags.Changed("timing") {
				cfg.Timing.Enabled = timingEnabled
			}
			if flags.Changed("max-instructions") {
				cfg.MaxInstructions = maxInstructions
			}
			if flags.Changed("dump-registers") {
				cfg.DumpRegisters = dumpRegisters
			}
			if flags.Changed("host-root") {
				cfg.HostRoot = hostRoot
			}

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			setupLogging(cfg.Verbose)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			code, err := run(ctx, args[0], cfg, os.Stdin, os.Stdout, os.Stderr)
			exitCode = code
			return err
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.Flags()
	flags.StringVar(&configPath, "config", "", "Path to JSON run configuration")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	flags.BoolVar(&traceEnabled, "trace", false, "Trace every retired instruction to stderr")
	flags.BoolVar(&cacheEnabled, "cache", false, "Model L1 caches and print a report")
	flags.BoolVar(&timingEnabled, "timing", false, "Estimate cycles with the latency model")
	flags.Uint64Var(&maxInstructions, "max-instructions", 0, "Stop after this many instructions (0 = unlimited)")
	flags.BoolVar(&dumpRegisters, "dump-registers", false, "Print the register file when the run stops")
	flags.StringVar(&hostRoot, "host-root", "", "Directory the guest may open files in")

	rootCmd.SetArgs(args)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Error("rvsim failed", "err", err)
		if exitCode == 0 {
			exitCode = 1
		}
	}

	return exitCode
}

func setupLogging(verbose bool) {
	lvl := log.LevelInfo
	if verbose {
		lvl = log.LevelDebug
	}
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, lvl, true)))
}
