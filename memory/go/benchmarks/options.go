package benchmarks

import (
	"strings"

	"go.skia.org/membench/memory/go/tracing"
)

// Metric names understood by the timeline based metrics engine.
const (
	MemoryMetric       = "memoryMetric"
	V8AndMemoryMetrics = "v8AndMemoryMetrics"
)

// Options are the timeline based measurement options of a benchmark run:
// what to trace and which metrics to compute from the trace.
type Options struct {
	Config *tracing.Config

	metrics []string
}

// NewOptions returns options that trace the categories selected by filter.
func NewOptions(filter *tracing.CategoryFilter) *Options {
	return &Options{
		Config: tracing.NewConfig(filter),
	}
}

// SetTimelineBasedMetrics replaces the metrics computed from the trace.
func (o *Options) SetTimelineBasedMetrics(metrics []string) {
	o.metrics = append([]string{}, metrics...)
}

// TimelineBasedMetrics returns a copy of the metric list.
func (o *Options) TimelineBasedMetrics() []string {
	return append([]string{}, o.metrics...)
}

// CategoryFilterString is the filter string of the Chrome trace config, or ""
// if Chrome tracing is not configured.
func (o *Options) CategoryFilterString() string {
	if o.Config == nil || o.Config.ChromeTraceConfig == nil || o.Config.ChromeTraceConfig.CategoryFilter == nil {
		return ""
	}
	return o.Config.ChromeTraceConfig.CategoryFilter.FilterString()
}

// PeriodicDumpsEnabled is false when memory dumps are only taken on explicit
// request.
func (o *Options) PeriodicDumpsEnabled() bool {
	if o.Config == nil || o.Config.ChromeTraceConfig == nil {
		return false
	}
	return o.Config.ChromeTraceConfig.MemoryDumpConfig.PeriodicDumpsEnabled()
}

// OptionsFactory builds fresh Options for one run.
type OptionsFactory func() *Options

// disablePeriodicDumps sets an empty memory dump config, which stops Chrome
// from dumping on a timer. Dumps are requested by the story instead.
func disablePeriodicDumps(o *Options) {
	o.Config.ChromeTraceConfig.SetMemoryDumpConfig(tracing.NewMemoryDumpConfig())
}

// MemoryInfraOptions records only memory-infra, to get memory dumps, and
// blink.console, to get the timeline markers used for mapping threads to
// tabs.
func MemoryInfraOptions() *Options {
	o := NewOptions(tracing.MustNewCategoryFilter(strings.Join([]string{
		tracing.ExcludeAll,
		tracing.BlinkConsole,
		tracing.MemoryInfra,
	}, ",")))
	o.Config.EnableAndroidGraphicsMemtrack = true
	o.SetTimelineBasedMetrics([]string{MemoryMetric})
	disablePeriodicDumps(o)
	return o
}

// V8MemoryOptions adds the V8 and scheduler categories needed by the V8
// metrics on top of memory-infra.
func V8MemoryOptions() *Options {
	v8Categories := []string{tracing.BlinkConsole, tracing.RendererScheduler, tracing.V8, tracing.WebkitConsole}
	memoryCategories := []string{tracing.BlinkConsole, tracing.MemoryInfra}

	categories := append([]string{tracing.ExcludeAll}, v8Categories...)
	categories = append(categories, memoryCategories...)
	o := NewOptions(tracing.MustNewCategoryFilter(strings.Join(categories, ",")))
	o.SetTimelineBasedMetrics([]string{V8AndMemoryMetrics})
	disablePeriodicDumps(o)
	return o
}
