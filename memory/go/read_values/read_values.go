// Package read_values reads the perf results of a memory benchmark run and
// keeps only the values the benchmark reports to the dashboard.
package read_values

import (
	"io"
	"os"
	"sort"

	"go.skia.org/infra/go/metrics2"
	"go.skia.org/infra/go/skerr"
	"go.skia.org/infra/go/sklog"
	"go.skia.org/infra/go/util"
	"go.skia.org/infra/perf/go/perfresults"

	"go.skia.org/membench/memory/go/benchmarks"
)

// IsSupportedAggregation checks if the aggregation method is supported.
// Empty string is supported and means that no data will be aggregated.
func IsSupportedAggregation(aggregationMethod string) bool {
	if aggregationMethod == "" {
		return true
	}
	_, ok := perfresults.AggregationMapping[aggregationMethod]
	return ok
}

// LoadResults parses a perf_results.json histogram set.
func LoadResults(r io.Reader) (*perfresults.PerfResults, error) {
	pr, err := perfresults.NewResults(r)
	if err != nil {
		return nil, skerr.Wrapf(err, "unable to parse perf results")
	}
	return pr, nil
}

// LoadResultsFile is LoadResults for a file on disk.
func LoadResultsFile(path string) (*perfresults.PerfResults, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, skerr.Wrap(err)
	}
	defer util.Close(f)
	pr, err := LoadResults(f)
	if err != nil {
		return nil, skerr.Wrapf(err, "reading %s", path)
	}
	return pr, nil
}

// ChartValues are the samples of one chart across stories and runs.
type ChartValues struct {
	Unit         string    `json:"unit"`
	Stories      []string  `json:"stories,omitempty"`
	SampleValues []float64 `json:"sample_values"`
}

// FilteredResults are the values of a benchmark run that passed the
// benchmark's value predicate.
type FilteredResults struct {
	Benchmark string `json:"benchmark"`
	// Charts maps chart name to its kept values.
	Charts map[string]*ChartValues `json:"charts"`
	// Dropped are the names of charts with at least one dropped value.
	Dropped []string `json:"dropped,omitempty"`
}

func sortedTraceKeys(pr *perfresults.PerfResults) []perfresults.TraceKey {
	keys := make([]perfresults.TraceKey, 0, len(pr.Histograms))
	for k := range pr.Histograms {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ChartName != keys[j].ChartName {
			return keys[i].ChartName < keys[j].ChartName
		}
		if keys[i].Story != keys[j].Story {
			return keys[i].Story < keys[j].Story
		}
		return keys[i].Unit < keys[j].Unit
	})
	return keys
}

// FilterResults applies b's value predicate to every histogram in results.
// results are the runs of the benchmark in order; values from the first run
// are reported as first results.
func FilterResults(b *benchmarks.Benchmark, results ...*perfresults.PerfResults) *FilteredResults {
	ret := &FilteredResults{
		Benchmark: b.Name,
		Charts:    map[string]*ChartValues{},
	}
	dropped := util.StringSet{}
	var keptCount, droppedCount int64
	for i, pr := range results {
		if pr == nil {
			continue
		}
		for _, k := range sortedTraceKeys(pr) {
			h := pr.Histograms[k]
			v := benchmarks.Value{
				Name:         k.ChartName,
				Unit:         k.Unit,
				Story:        k.Story,
				SampleValues: h.SampleValues,
			}
			if !b.CanAddValue(v, i == 0) {
				dropped[k.ChartName] = true
				droppedCount++
				continue
			}
			keptCount++
			cv, ok := ret.Charts[k.ChartName]
			if !ok {
				cv = &ChartValues{Unit: k.Unit}
				ret.Charts[k.ChartName] = cv
			}
			if k.Story != "" && !util.In(k.Story, cv.Stories) {
				cv.Stories = append(cv.Stories, k.Story)
			}
			cv.SampleValues = append(cv.SampleValues, h.SampleValues...)
		}
	}
	ret.Dropped = dropped.Keys()
	sort.Strings(ret.Dropped)

	tags := map[string]string{"benchmark": b.Name}
	metrics2.GetCounter("membench_values_kept", tags).Inc(keptCount)
	metrics2.GetCounter("membench_values_dropped", tags).Inc(droppedCount)
	sklog.Infof("%s: kept %d values in %d charts, dropped %d values", b.Name, keptCount, len(ret.Charts), droppedCount)
	return ret
}

// ChartNames returns the sorted names of the kept charts.
func (f *FilteredResults) ChartNames() []string {
	ret := make([]string, 0, len(f.Charts))
	for name := range f.Charts {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

// ValuesByChart returns the kept values of every chart, aggregated with agg
// unless agg is empty.
func (f *FilteredResults) ValuesByChart(agg string) (map[string][]float64, error) {
	aggMethod, ok := perfresults.AggregationMapping[agg]
	if !ok && agg != "" {
		return nil, skerr.Fmt("unsupported aggregation method (%s).", agg)
	}

	ret := make(map[string][]float64, len(f.Charts))
	for name, cv := range f.Charts {
		if aggMethod != nil && len(cv.SampleValues) > 0 {
			ret[name] = []float64{aggMethod(perfresults.Histogram{SampleValues: cv.SampleValues})}
		} else {
			ret[name] = append([]float64{}, cv.SampleValues...)
		}
	}
	return ret, nil
}
