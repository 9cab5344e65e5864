package run_benchmark

import (
	"go.skia.org/infra/go/skerr"
	"go.skia.org/infra/go/sklog"

	"go.skia.org/membench/memory/go/benchmarks"
	"go.skia.org/membench/memory/go/platform"
)

// BenchmarkTest is a runnable benchmark invocation.
type BenchmarkTest interface {
	GetCommand() []string
}

// BenchmarkRequest holds everything needed to build a benchmark invocation.
type BenchmarkRequest struct {
	// Commit is the chromium commit under test. Only used for labels.
	Commit string
	// Bot is the device configuration name.
	Bot string
	// Browser overrides the bot's default browser when set.
	Browser string
	// Benchmark is the registered memory benchmark name.
	Benchmark string
	// Story restricts the run to a single story.
	Story string
	// StoryTags restricts the run to stories with these tags.
	StoryTags string
	// AlsoRunDisabled forces benchmarks that are disabled on the bot to run.
	AlsoRunDisabled bool
	// ExtraArgs are appended verbatim to the command.
	ExtraArgs []string
}

// NewBenchmarkTest returns a BenchmarkTest for req. It fails if the benchmark
// or bot are unknown, or if the benchmark is disabled on the bot and
// AlsoRunDisabled is not set.
func NewBenchmarkTest(req BenchmarkRequest) (BenchmarkTest, error) {
	t, err := newTelemetryTest(req)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// newTelemetryTest resolves the benchmark and the bot's device once; the
// swarming request is built from the same values as the command.
func newTelemetryTest(req BenchmarkRequest) (*telemetryTest, error) {
	b, err := benchmarks.Get(req.Benchmark)
	if err != nil {
		return nil, skerr.Wrapf(err, "Failed to find benchmark to create benchmark test")
	}
	device, err := platform.GetDeviceConfig(req.Bot)
	if err != nil {
		return nil, skerr.Wrapf(err, "Failed to fetch device configs to create benchmark test")
	}
	browser := platform.NewPossibleBrowser(device, req.Browser)

	ok, reason := b.CanRunOn(browser)
	if !ok {
		if !req.AlsoRunDisabled {
			return nil, skerr.Fmt("%s; force with --also-run-disabled-tests", reason)
		}
		sklog.Warningf("Running disabled benchmark: %s", reason)
	}

	return &telemetryTest{
		benchmark:       b,
		device:          device,
		browser:         browser.BrowserType,
		commit:          req.Commit,
		story:           req.Story,
		storyTags:       req.StoryTags,
		alsoRunDisabled: !ok,
		extraArgs:       req.ExtraArgs,
	}, nil
}
