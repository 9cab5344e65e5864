// Package benchmarks defines the memory benchmarks: what each one traces,
// which metrics it computes, which page set it replays, which devices it
// runs on and which of its results are reported.
//
// Benchmarks are plain data registered in a table; behavior that varies
// between them is expressed as functions stored in the table.
package benchmarks

import (
	"fmt"

	"go.skia.org/membench/memory/go/platform"
)

// Benchmark is one memory benchmark.
type Benchmark struct {
	// Name is used to select the benchmark on the command line and groups its
	// results on the dashboard.
	Name string
	// Description is a one paragraph summary.
	Description string
	// PageSet names the recorded story set to replay.
	PageSet string
	// PagesetRepeat is the number of times the whole story set is run. Zero
	// means once.
	PagesetRepeat int

	// TearDownStateAfterEachStoryRun restarts the browser after every story.
	TearDownStateAfterEachStoryRun bool
	// TearDownStateAfterEachStorySetRun restarts the browser after each
	// repeat of the story set.
	TearDownStateAfterEachStorySetRun bool

	// ExtraBrowserArgs are appended to the browser command line.
	ExtraBrowserArgs []string

	// Enabled limits the benchmark to browsers matching one of these tags.
	// Empty means every browser.
	Enabled []string
	// Disabled skips the benchmark on browsers matching one of these tags.
	// platform.TagAll disables it everywhere unless forced.
	Disabled []string
	// ShouldDisable is an additional check run against the browser. May be
	// nil.
	ShouldDisable func(b *platform.PossibleBrowser) bool

	// CreateOptions builds the timeline based measurement options.
	CreateOptions OptionsFactory
	// ValueCanBeAdded filters the reported values. nil keeps everything.
	ValueCanBeAdded ValuePredicate
}

// CanAddValue applies the benchmark's value predicate.
func (b *Benchmark) CanAddValue(v Value, isFirstResult bool) bool {
	if b.ValueCanBeAdded == nil {
		return KeepAll(v, isFirstResult)
	}
	return b.ValueCanBeAdded(v, isFirstResult)
}

// Options returns fresh measurement options for a run.
func (b *Benchmark) Options() *Options {
	return b.CreateOptions()
}

// Repeat is the effective story set repeat count.
func (b *Benchmark) Repeat() int {
	if b.PagesetRepeat <= 0 {
		return 1
	}
	return b.PagesetRepeat
}

// CanRunOn decides whether the benchmark runs on browser. When it does not,
// the returned string says why.
func (b *Benchmark) CanRunOn(browser *platform.PossibleBrowser) (bool, string) {
	if len(b.Disabled) > 0 && browser.MatchesAny(b.Disabled) {
		return false, fmt.Sprintf("%s is disabled on %v", b.Name, b.Disabled)
	}
	if len(b.Enabled) > 0 && !browser.MatchesAny(b.Enabled) {
		return false, fmt.Sprintf("%s is only enabled on %v", b.Name, b.Enabled)
	}
	if b.ShouldDisable != nil && b.ShouldDisable(browser) {
		return false, fmt.Sprintf("%s is disabled on browser %s on device %q", b.Name, browser.BrowserType, deviceTypeName(browser))
	}
	return true, ""
}

func deviceTypeName(browser *platform.PossibleBrowser) string {
	if browser.Platform == nil {
		return ""
	}
	return browser.Platform.GetDeviceTypeName()
}
