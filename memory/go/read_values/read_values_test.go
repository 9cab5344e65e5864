package read_values

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.skia.org/infra/perf/go/perfresults"

	"go.skia.org/membench/memory/go/benchmarks"
)

const (
	effectiveSize   = "memory:chrome:all_processes:reported_by_chrome:effective_size"
	effectiveMax    = "memory:chrome:all_processes:reported_by_chrome:effective_size_max"
	processCount    = "memory:chrome:gpu_process:process_count"
	v8EffectiveSize = "memory:chrome:renderer_processes:reported_by_chrome:v8:effective_size"
	bytesUnit       = "sizeInBytes_smallerIsBetter"
	countUnit       = "count_smallerIsBetter"
)

func testRuns() []*perfresults.PerfResults {
	first := &perfresults.PerfResults{
		Histograms: map[perfresults.TraceKey]perfresults.Histogram{
			{ChartName: effectiveSize, Unit: bytesUnit, Story: "load:news"}: {SampleValues: []float64{1024, 2048}},
			{ChartName: effectiveMax, Unit: bytesUnit, Story: "load:news"}:  {SampleValues: []float64{2048}},
			{ChartName: processCount, Unit: countUnit}:                       {SampleValues: []float64{1}},
			{ChartName: v8EffectiveSize, Unit: bytesUnit}:                    {SampleValues: []float64{512}},
		},
	}
	second := &perfresults.PerfResults{
		Histograms: map[perfresults.TraceKey]perfresults.Histogram{
			{ChartName: effectiveSize, Unit: bytesUnit, Story: "load:search"}: {SampleValues: []float64{4096}},
		},
	}
	return []*perfresults.PerfResults{first, second}
}

func getBenchmark(t *testing.T, name string) *benchmarks.Benchmark {
	b, err := benchmarks.Get(name)
	require.NoError(t, err)
	return b
}

func TestIsSupportedAggregation(t *testing.T) {
	assert.True(t, IsSupportedAggregation(""))
	assert.False(t, IsSupportedAggregation("fake"))
}

func TestLoadResults(t *testing.T) {
	pr, err := LoadResults(strings.NewReader("[]"))
	require.NoError(t, err)
	assert.Empty(t, pr.Histograms)

	_, err = LoadResults(strings.NewReader("not json"))
	assert.Error(t, err)
}

func TestLoadResultsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "perf_results.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0644))

	pr, err := LoadResultsFile(path)
	require.NoError(t, err)
	assert.Empty(t, pr.Histograms)

	_, err = LoadResultsFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestFilterResults_Top10Mobile_DropsSummaries(t *testing.T) {
	f := FilterResults(getBenchmark(t, "memory.top_10_mobile"), testRuns()...)

	assert.Equal(t, "memory.top_10_mobile", f.Benchmark)
	assert.Equal(t, []string{effectiveSize, processCount, v8EffectiveSize}, f.ChartNames())
	assert.Equal(t, []string{effectiveMax}, f.Dropped)

	cv := f.Charts[effectiveSize]
	assert.Equal(t, bytesUnit, cv.Unit)
	assert.Equal(t, []float64{1024, 2048, 4096}, cv.SampleValues)
	assert.Equal(t, []string{"load:news", "load:search"}, cv.Stories)
	assert.Empty(t, f.Charts[processCount].Stories)
}

func TestFilterResults_Gmail_KeepsV8Only(t *testing.T) {
	f := FilterResults(getBenchmark(t, "memory.long_running_idle_gmail_tbmv2"), testRuns()...)

	assert.Equal(t, []string{v8EffectiveSize}, f.ChartNames())
	assert.Equal(t, []string{effectiveSize, effectiveMax, processCount}, f.Dropped)
}

func TestFilterResults_NoResults_Empty(t *testing.T) {
	f := FilterResults(getBenchmark(t, "memory.top_10_mobile"), nil)
	assert.Empty(t, f.Charts)
	assert.Empty(t, f.Dropped)
}

func TestFilterResults_IsFirstResult_OnlyForFirstRun(t *testing.T) {
	var firsts []bool
	b := &benchmarks.Benchmark{
		Name: "memory.test",
		ValueCanBeAdded: func(v benchmarks.Value, isFirstResult bool) bool {
			firsts = append(firsts, isFirstResult)
			return true
		},
	}
	runs := testRuns()
	FilterResults(b, runs...)
	assert.Equal(t, []bool{true, true, true, true, false}, firsts)
}

func TestValuesByChart(t *testing.T) {
	f := FilterResults(getBenchmark(t, "memory.top_10_mobile"), testRuns()...)

	values, err := f.ValuesByChart("")
	require.NoError(t, err)
	assert.Equal(t, []float64{1024, 2048, 4096}, values[effectiveSize])
	assert.Equal(t, []float64{1}, values[processCount])

	values[effectiveSize][0] = 0
	assert.Equal(t, float64(1024), f.Charts[effectiveSize].SampleValues[0], "values are copies")

	_, err = f.ValuesByChart("fake")
	assert.ErrorContains(t, err, "unsupported aggregation method")
}

func TestWriteTable(t *testing.T) {
	f := FilterResults(getBenchmark(t, "memory.top_10_mobile"), testRuns()...)

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf, FormatTable))
	out := buf.String()
	assert.Contains(t, out, effectiveSize)
	assert.Contains(t, out, "2.3 KiB")
	assert.Contains(t, out, "sizeInBytes")
	assert.Contains(t, out, "1 charts dropped by memory.top_10_mobile")
}

func TestWriteBenchfmt(t *testing.T) {
	f := FilterResults(getBenchmark(t, "memory.top_10_mobile"), testRuns()...)

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf, FormatBenchfmt))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "benchmark: memory.top_10_mobile\n"), out)
	assert.Contains(t, out, "Benchmark"+effectiveSize+" 1 1024 B\n")
	assert.Contains(t, out, "Benchmark"+effectiveSize+" 1 4096 B\n")
	assert.Contains(t, out, "Benchmark"+processCount+" 1 1 count\n")
	assert.NotContains(t, out, effectiveMax)
}

func TestWriteJSON(t *testing.T) {
	f := FilterResults(getBenchmark(t, "memory.top_10_mobile"), testRuns()...)

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf, FormatJSON))

	var decoded FilteredResults
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, f.Benchmark, decoded.Benchmark)
	assert.Equal(t, f.Dropped, decoded.Dropped)
	assert.Equal(t, f.Charts[effectiveSize].SampleValues, decoded.Charts[effectiveSize].SampleValues)
}

func TestWrite_UnknownFormat_Error(t *testing.T) {
	f := &FilteredResults{Benchmark: "memory.test"}
	assert.ErrorContains(t, f.Write(&bytes.Buffer{}, "xml"), "unknown output format")
}

func TestGoUnit(t *testing.T) {
	test := func(unit, expectedUnit string, expectedFactor float64) {
		t.Run(unit, func(t *testing.T) {
			u, factor := goUnit(unit)
			assert.Equal(t, expectedUnit, u)
			assert.Equal(t, expectedFactor, factor)
		})
	}
	test("sizeInBytes_smallerIsBetter", "B", 1)
	test("ms_smallerIsBetter", "sec", 1e-3)
	test("count", "count", 1)
	test("MB_smallerIsBetter", "B", 1e6)
	test("", "unitless", 1)
}
