package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"
)

// CompareReport diffs current against a baseline written by PrintJSON.
// Timestamps and wall times are ignored. A difference is written to w as
// an ASCII diff and reported as false.
func CompareReport(baseline []byte, current BenchmarkReport, w io.Writer) (bool, error) {
	var base BenchmarkReport
	if err := json.Unmarshal(baseline, &base); err != nil {
		return false, fmt.Errorf("failed to parse baseline report: %w", err)
	}

	left, err := json.Marshal(deterministic(base))
	if err != nil {
		return false, err
	}
	right, err := json.Marshal(deterministic(current))
	if err != nil {
		return false, err
	}

	delta, err := gojsondiff.New().Compare(left, right)
	if err != nil {
		return false, fmt.Errorf("failed to diff reports: %w", err)
	}
	if !delta.Modified() {
		return true, nil
	}

	var leftObj map[string]interface{}
	if err := json.Unmarshal(left, &leftObj); err != nil {
		return false, err
	}

	diff, err := formatter.NewAsciiFormatter(leftObj, formatter.AsciiFormatterConfig{
		ShowArrayIndex: true,
	}).Format(delta)
	if err != nil {
		return false, fmt.Errorf("failed to format diff: %w", err)
	}

	_, err = io.WriteString(w, diff)
	return false, err
}

// deterministic strips the fields that change from run to run.
func deterministic(report BenchmarkReport) BenchmarkReport {
	report.Metadata.Timestamp = ""
	report.Summary.TotalWallTime = 0

	results := make([]BenchmarkResult, len(report.Results))
	copy(results, report.Results)
	for i := range results {
		results[i].WallTime = 0
	}
	report.Results = results

	return report
}
