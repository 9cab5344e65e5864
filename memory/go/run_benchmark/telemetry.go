package run_benchmark

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.skia.org/membench/memory/go/benchmarks"
	"go.skia.org/membench/memory/go/platform"
)

var defaultExtraArgs = []string{
	"-v",
	"--upload-results",
	"--output-format",
	"histograms",
	"--isolated-script-test-output",
	"${ISOLATED_OUTDIR}/output.json",
}

var nonAlphanumericRegex = regexp.MustCompile(`[^a-zA-Z0-9 ]`)

type telemetryTest struct {
	benchmark       *benchmarks.Benchmark
	device          platform.DeviceConfig
	browser         string
	commit          string
	story           string
	storyTags       string
	alsoRunDisabled bool
	extraArgs       []string
}

// GetCommand generates the command that runs the memory benchmark through
// telemetry's run_benchmark.
func (t *telemetryTest) GetCommand() []string {
	cmd := []string{
		"luci-auth",
		"context",
		"--",
		"vpython3",
		"../../testing/test_env.py",
		"../../testing/scripts/run_performance_tests.py",
		"../../tools/perf/run_benchmark",
	}
	return append(cmd, t.GetTelemetryExtraArgs()...)
}

// GetTelemetryExtraArgs returns the arguments passed to run_benchmark.
func (t *telemetryTest) GetTelemetryExtraArgs() []string {
	cmd := []string{"--benchmarks", t.benchmark.Name}

	if t.story != "" {
		// story-filter is preferred over --story since stories can sometimes use
		// mismatched characters like ":" or "_"
		cmd = append(cmd, "--story-filter", fmt.Sprintf("^%s$", replaceNonAlphaNumeric(t.story)))
	}

	if t.storyTags != "" {
		cmd = append(cmd, "--story-tag-filter", t.storyTags)
	}

	cmd = append(cmd, "--pageset-repeat", strconv.Itoa(t.benchmark.Repeat()), "--browser", t.browser)

	if len(t.benchmark.ExtraBrowserArgs) > 0 {
		cmd = append(cmd, "--extra-browser-args="+strings.Join(t.benchmark.ExtraBrowserArgs, " "))
	}

	if t.alsoRunDisabled {
		cmd = append(cmd, "--also-run-disabled-tests")
	}

	cmd = append(cmd, defaultExtraArgs...)

	// Results from different builds are told apart by their label.
	if len(t.commit) >= 7 {
		cmd = append(cmd, "--results-label", t.commit[:7])
	}

	cmd = append(cmd, t.extraArgs...)

	return cmd
}

// replaceNonAlphaNumeric replaces all non alpha-numeric characters
// in a string with ".". The story-filter arg is a regex, so periods match
// the ambiguous characters in story names like browse:media or browse_media.
func replaceNonAlphaNumeric(s string) string {
	return nonAlphanumericRegex.ReplaceAllString(s, ".")
}
