package benchmarks

import (
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// PrintHTML renders the results as a page of bar charts: estimated cycles
// against retired instructions, and CPI.
func (h *Harness) PrintHTML(results []BenchmarkResult) error {
	names := make([]string, 0, len(results))
	cycles := make([]opts.BarData, 0, len(results))
	instructions := make([]opts.BarData, 0, len(results))
	cpi := make([]opts.BarData, 0, len(results))

	for _, r := range results {
		names = append(names, r.Name)
		cycles = append(cycles, opts.BarData{Value: r.EstimatedCycles})
		instructions = append(instructions, opts.BarData{Value: r.InstructionsRetired})
		cpi = append(cpi, opts.BarData{Value: r.CPI})
	}

	counts := charts.NewBar()
	counts.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "rvsim microbenchmarks",
			Subtitle: "estimated cycles and retired instructions",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	counts.SetXAxis(names).
		AddSeries("cycles", cycles).
		AddSeries("instructions", instructions)

	ratio := charts.NewBar()
	ratio.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "CPI"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	ratio.SetXAxis(names).AddSeries("cpi", cpi)

	page := components.NewPage()
	page.AddCharts(counts, ratio)
	return page.Render(h.config.Output)
}
