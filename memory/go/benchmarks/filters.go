package benchmarks

import (
	"regexp"
	"strings"
)

// Value is a single named result reported by a benchmark run.
type Value struct {
	Name         string
	Unit         string
	Story        string
	SampleValues []float64
}

// ValuePredicate decides whether a value is reported to the dashboard.
//
// isFirstResult is set for values from the first run of a story. None of the
// memory predicates look at it yet.
type ValuePredicate func(v Value, isFirstResult bool) bool

// summarizedStatsRE matches the suffixes the metrics engine appends to the
// scalar summaries of a histogram (see
// tr.v.Numeric.getSummarizedScalarNumericsWithNames in catapult).
var summarizedStatsRE = regexp.MustCompile(`_(std|count|max|min|sum|pct_\d{4}(_\d+)?)$`)

// Summaries are kept when the suffix belongs to a dump or process name, e.g.
// "process_count".
var keptStatPrefixes = []string{"dump", "process"}

// v8AndOverallMemoryRE selects V8 specific and overall renderer memory.
// Detailed values reported by the OS (such as native heap) do not match.
var v8AndOverallMemoryRE = regexp.MustCompile(
	`renderer_processes:(reported_by_chrome:v8|reported_by_os:system_memory:[^:]+$)`)

// IsSummarizedStat reports whether name is a summary statistic of a
// histogram that the dashboard does not need, like "foo_max" or
// "foo_pct_0950". Names where the suffix directly follows "dump" or
// "process" are not summaries.
func IsSummarizedStat(name string) bool {
	loc := summarizedStatsRE.FindStringIndex(name)
	if loc == nil {
		return false
	}
	head := name[:loc[0]]
	for _, p := range keptStatPrefixes {
		if strings.HasSuffix(head, p) {
			return false
		}
	}
	return true
}

// KeepAll keeps every value.
func KeepAll(Value, bool) bool {
	return true
}

// IgnoreSummarizedStats drops summary statistics.
// TODO(crbug.com/610962): Remove when the perf dashboard can cope with the
// data load of the full set of summaries.
func IgnoreSummarizedStats(v Value, _ bool) bool {
	return !IsSummarizedStat(v.Name)
}

// RendererMemoryOnly keeps non summary values of renderer processes.
func RendererMemoryOnly(v Value, isFirstResult bool) bool {
	return IgnoreSummarizedStats(v, isFirstResult) && strings.Contains(v.Name, "renderer_processes")
}

// V8AndOverallMemoryOnly keeps V8 values and overall renderer memory.
func V8AndOverallMemoryOnly(v Value, isFirstResult bool) bool {
	if !IgnoreSummarizedStats(v, isFirstResult) {
		return false
	}
	if strings.Contains(v.Name, "memory:chrome") {
		return strings.Contains(v.Name, "renderer:subsystem:v8") ||
			strings.Contains(v.Name, "renderer:vmstats:overall") ||
			v8AndOverallMemoryRE.MatchString(v.Name)
	}
	return strings.Contains(v.Name, "v8")
}
