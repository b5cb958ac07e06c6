// Command benchmark runs the rvsim microbenchmark harness.
//
// Usage:
//
//	go run ./cmd/benchmark [flags]
//
// Flags:
//
//	--format    Output format: text, csv, json or html (default: text)
//	--no-cache  Disable the L1 cache model
//	--core      Run only the three core benchmarks
//	--timing    Path to a latency configuration JSON file
//	--baseline  JSON report to compare against; differences fail the run
//
// Example:
//
//	# Output CSV for spreadsheet comparison
//	go run ./cmd/benchmark --format csv > results.csv
//
//	# Check a change against saved results
//	go run ./cmd/benchmark --format json > baseline.json
//	go run ./cmd/benchmark --baseline baseline.json
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/cobra"

	"github.com/sarchlab/rvsim/benchmarks"
	"github.com/sarchlab/rvsim/timing/latency"
)

func main() {
	var (
		format     string
		noCache    bool
		coreOnly   bool
		timingPath string
		baseline   string
		verbose    bool
	)

	rootCmd := &cobra.Command{
		Use:          "benchmark",
		Short:        "Run the rvsim microbenchmarks",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			lvl := log.LevelWarn
			if verbose {
				lvl = log.LevelInfo
			}
			log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, lvl, true)))

			config := benchmarks.DefaultConfig()
			config.EnableCaches = !noCache
			config.Output = cmd.OutOrStdout()
			config.Verbose = verbose

			if timingPath != "" {
				timing, err := latency.LoadConfig(timingPath)
				if err != nil {
					return err
				}
				if err := timing.Validate(); err != nil {
					return fmt.Errorf("invalid timing config: %w", err)
				}
				config.Timing = timing
			}

			harness := benchmarks.NewHarness(config)
			if coreOnly {
				harness.AddBenchmarks(benchmarks.GetCoreBenchmarks())
			} else {
				harness.AddBenchmarks(benchmarks.GetMicrobenchmarks())
			}

			results := harness.RunAll(cmd.Context())

			switch format {
			case "text":
				harness.PrintResults(results)
			case "csv":
				harness.PrintCSV(results)
			case "json":
				if err := harness.PrintJSON(results); err != nil {
					return err
				}
			case "html":
				if err := harness.PrintHTML(results); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown format %q", format)
			}

			if baseline != "" {
				data, err := os.ReadFile(baseline)
				if err != nil {
					return fmt.Errorf("failed to read baseline: %w", err)
				}
				same, err := benchmarks.CompareReport(data, harness.Report(results), cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				if !same {
					return fmt.Errorf("results differ from baseline %s", baseline)
				}
			}

			if failed := benchmarks.Summarize(results).Failed; failed > 0 {
				return fmt.Errorf("%d benchmark(s) failed", failed)
			}
			return nil
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.Flags()
	flags.StringVar(&format, "format", "text", "Output format: text, csv, json or html")
	flags.BoolVar(&noCache, "no-cache", false, "Disable the L1 cache model")
	flags.BoolVar(&coreOnly, "core", false, "Run only the core benchmarks")
	flags.StringVar(&timingPath, "timing", "", "Path to latency configuration JSON file")
	flags.StringVar(&baseline, "baseline", "", "JSON report to compare results against")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Log each benchmark as it finishes")

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
