package benchmarks

import (
	"sort"

	"go.skia.org/infra/go/skerr"

	"go.skia.org/membench/memory/go/platform"
)

// Page sets replayed by the memory benchmarks.
const (
	PageSetTop10Mobile                    = "memory.top_10_mobile"
	PageSetTop10MobileRealistic           = "memory.top_10_mobile_realistic"
	PageSetDualBrowserStory               = "dual_browser_story"
	PageSetBlinkMemoryMobile              = "blink_memory_mobile"
	PageSetLongRunningIdleGmail           = "long_running_idle_gmail"
	PageSetLongRunningIdleGmailBackground = "long_running_idle_gmail_background"
)

const deskClockApp = "com.google.android.deskclock"

func deskClockMissing(b *platform.PossibleBrowser) bool {
	return b.Platform == nil || !b.Platform.CanLaunchApplication(deskClockApp)
}

// Reference builds crash on Nexus 5X, see http://crbug.com/634319.
func referenceOnNexus5X(b *platform.PossibleBrowser) bool {
	return b.BrowserType == platform.BrowserTypeReference && deviceTypeName(b) == "Nexus 5X"
}

// Gmail does not fit in memory on svelte devices, see http://crbug.com/611167.
func isSvelte(b *platform.PossibleBrowser) bool {
	return b.Platform != nil && b.Platform.IsSvelte()
}

var registry = map[string]*Benchmark{}

func register(benchmarks ...*Benchmark) {
	for _, b := range benchmarks {
		if _, ok := registry[b.Name]; ok {
			panic("duplicate benchmark " + b.Name)
		}
		registry[b.Name] = b
	}
}

func init() {
	register(
		&Benchmark{
			Name: "memory.top_10_mobile",
			Description: "Measure foreground/background memory on the top 10 mobile page set. " +
				"Provides memory measurements for the System Health Plan of Chrome on Android.",
			PageSet:                           PageSetTop10Mobile,
			PagesetRepeat:                     5,
			TearDownStateAfterEachStoryRun:    false,
			TearDownStateAfterEachStorySetRun: true,
			Enabled:                           []string{platform.OSAndroid},
			ShouldDisable:                     deskClockMissing,
			CreateOptions:                     MemoryInfraOptions,
			ValueCanBeAdded:                   IgnoreSummarizedStats,
		},
		&Benchmark{
			Name: "memory.top_10_mobile_stress",
			Description: "Run the top 10 mobile page set without closing or restarting the browser, " +
				"to catch memory leaks and crashes after prolonged interaction.",
			PageSet:                           PageSetTop10MobileRealistic,
			PagesetRepeat:                     5,
			TearDownStateAfterEachStoryRun:    false,
			TearDownStateAfterEachStorySetRun: false,
			Enabled:                           []string{platform.OSAndroid},
			ShouldDisable:                     deskClockMissing,
			CreateOptions:                     MemoryInfraOptions,
			ValueCanBeAdded:                   IgnoreSummarizedStats,
		},
		&Benchmark{
			Name: "memory.dual_browser_test",
			Description: "Measure memory while going back and forth between Google searches in a " +
				"webview based browser and page loads in a selected browser.",
			PageSet:                           PageSetDualBrowserStory,
			PagesetRepeat:                     5,
			TearDownStateAfterEachStoryRun:    false,
			TearDownStateAfterEachStorySetRun: true,
			Disabled:                          []string{platform.TagAll},
			CreateOptions:                     MemoryInfraOptions,
			ValueCanBeAdded:                   IgnoreSummarizedStats,
		},
		&Benchmark{
			Name: "memory.long_running_dual_browser_test",
			Description: "Same as memory.dual_browser_test, but run for 60 iterations without " +
				"restarting the browser between page set repeats.",
			PageSet:                           PageSetDualBrowserStory,
			PagesetRepeat:                     60,
			TearDownStateAfterEachStoryRun:    false,
			TearDownStateAfterEachStorySetRun: false,
			Disabled:                          []string{platform.TagAll},
			CreateOptions:                     MemoryInfraOptions,
			ValueCanBeAdded:                   IgnoreSummarizedStats,
		},
		&Benchmark{
			Name: "memory.blink_memory_mobile",
			Description: "Measure renderer memory on mobile sites where Blink's memory " +
				"consumption is relatively high.",
			PageSet:                           PageSetBlinkMemoryMobile,
			TearDownStateAfterEachStoryRun:    true,
			TearDownStateAfterEachStorySetRun: true,
			// The recordings cannot replay certificates correctly for some
			// sites (e.g. WordPress).
			ExtraBrowserArgs: []string{"--ignore-certificate-errors"},
			Enabled:          []string{platform.OSAndroid},
			ShouldDisable:    referenceOnNexus5X,
			CreateOptions:    MemoryInfraOptions,
			ValueCanBeAdded:  RendererMemoryOnly,
		},
		&Benchmark{
			Name:                              "memory.long_running_idle_gmail_tbmv2",
			Description:                       "Measure memory consumption of a long running idle Gmail page.",
			PageSet:                           PageSetLongRunningIdleGmail,
			TearDownStateAfterEachStoryRun:    true,
			TearDownStateAfterEachStorySetRun: true,
			ShouldDisable:                     isSvelte,
			CreateOptions:                     V8MemoryOptions,
			ValueCanBeAdded:                   V8AndOverallMemoryOnly,
		},
		&Benchmark{
			Name:                              "memory.long_running_idle_gmail_background_tbmv2",
			Description:                       "Measure memory consumption of a long running idle Gmail page in a background tab.",
			PageSet:                           PageSetLongRunningIdleGmailBackground,
			TearDownStateAfterEachStoryRun:    true,
			TearDownStateAfterEachStorySetRun: true,
			// Backgrounding needs a second tab, see http://crbug.com/612210.
			Enabled:         []string{platform.TagHasTabs},
			ShouldDisable:   isSvelte,
			CreateOptions:   V8MemoryOptions,
			ValueCanBeAdded: V8AndOverallMemoryOnly,
		},
	)
}

// Get returns the benchmark called name.
func Get(name string) (*Benchmark, error) {
	b, ok := registry[name]
	if !ok {
		return nil, skerr.Fmt("unknown benchmark %q", name)
	}
	return b, nil
}

// Names returns the sorted names of all benchmarks.
func Names() []string {
	ret := make([]string, 0, len(registry))
	for name := range registry {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

// All returns every benchmark, sorted by name.
func All() []*Benchmark {
	ret := make([]*Benchmark, 0, len(registry))
	for _, name := range Names() {
		ret = append(ret, registry[name])
	}
	return ret
}
