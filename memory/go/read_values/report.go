package read_values

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/aclements/go-moremath/stats"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"go.skia.org/infra/go/skerr"
	"golang.org/x/perf/benchfmt"
	"golang.org/x/perf/benchunit"
)

// Output formats.
const (
	FormatTable    = "table"
	FormatBenchfmt = "benchfmt"
	FormatJSON     = "json"
)

// Formats lists every supported output format.
var Formats = []string{FormatTable, FormatBenchfmt, FormatJSON}

const sizeInBytes = "sizeInBytes"

// baseUnit strips the improvement direction from a histogram unit, e.g.
// "sizeInBytes_smallerIsBetter" becomes "sizeInBytes".
func baseUnit(unit string) string {
	if i := strings.Index(unit, "_"); i >= 0 {
		return unit[:i]
	}
	return unit
}

// goUnit converts a histogram unit to a Go benchmark format unit and the
// factor to apply to values.
func goUnit(unit string) (string, float64) {
	switch baseUnit(unit) {
	case sizeInBytes:
		return "B", 1
	case "ms", "msBestFitFormat":
		return "sec", 1e-3
	case "ns":
		return "sec", 1e-9
	case "":
		return "unitless", 1
	}
	factor, tidied := benchunit.Tidy(1, baseUnit(unit))
	return tidied, factor
}

func formatValue(unit string, v float64) string {
	if baseUnit(unit) == sizeInBytes && v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0) {
		return humanize.IBytes(uint64(v))
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// WriteTable writes one row per kept chart with the sample count, mean and
// standard deviation.
func (f *FilteredResults) WriteTable(w io.Writer) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Chart", "Unit", "Count", "Mean", "Stddev"})
	table.SetAutoWrapText(false)
	for _, name := range f.ChartNames() {
		cv := f.Charts[name]
		mean, stddev := "-", "-"
		if len(cv.SampleValues) > 0 {
			mean = formatValue(cv.Unit, stats.Mean(cv.SampleValues))
		}
		if len(cv.SampleValues) > 1 {
			stddev = formatValue(cv.Unit, stats.StdDev(cv.SampleValues))
		}
		table.Append([]string{name, baseUnit(cv.Unit), strconv.Itoa(len(cv.SampleValues)), mean, stddev})
	}
	table.Render()
	if len(f.Dropped) > 0 {
		if _, err := fmt.Fprintf(w, "%d charts dropped by %s\n", len(f.Dropped), f.Benchmark); err != nil {
			return skerr.Wrap(err)
		}
	}
	return nil
}

// WriteBenchfmt writes every kept sample as a line of the Go benchmark
// format, so runs can be compared with benchstat.
func (f *FilteredResults) WriteBenchfmt(w io.Writer) error {
	bw := benchfmt.NewWriter(w)
	res := &benchfmt.Result{Iters: 1}
	res.Config = append(res.Config, benchfmt.Config{Key: "benchmark", Value: []byte(f.Benchmark), File: true})
	for _, name := range f.ChartNames() {
		cv := f.Charts[name]
		unit, factor := goUnit(cv.Unit)
		res.Name = benchfmt.Name(strings.ReplaceAll(name, " ", "_"))
		for _, s := range cv.SampleValues {
			res.Values = []benchfmt.Value{{Value: s * factor, Unit: unit}}
			if err := bw.Write(res); err != nil {
				return skerr.Wrapf(err, "writing %s", name)
			}
		}
	}
	return nil
}

// WriteJSON writes f as indented JSON.
func (f *FilteredResults) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(f); err != nil {
		return skerr.Wrap(err)
	}
	return nil
}

// Write writes f in format.
func (f *FilteredResults) Write(w io.Writer, format string) error {
	switch format {
	case FormatTable, "":
		return f.WriteTable(w)
	case FormatBenchfmt:
		return f.WriteBenchfmt(w)
	case FormatJSON:
		return f.WriteJSON(w)
	}
	return skerr.Fmt("unknown output format %q, want one of %v", format, Formats)
}
