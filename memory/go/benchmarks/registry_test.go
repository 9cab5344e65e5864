package benchmarks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.skia.org/membench/memory/go/platform"
)

type fakePlatform struct {
	os         string
	deviceType string
	svelte     bool
	apps       []string
}

func (p fakePlatform) CanLaunchApplication(appID string) bool {
	for _, a := range p.apps {
		if a == appID {
			return true
		}
	}
	return false
}

func (p fakePlatform) GetDeviceTypeName() string { return p.deviceType }
func (p fakePlatform) GetOSName() string         { return p.os }
func (p fakePlatform) IsSvelte() bool            { return p.svelte }

func androidBrowser(browserType, deviceType string, hasTabs, svelte bool, apps ...string) *platform.PossibleBrowser {
	return &platform.PossibleBrowser{
		BrowserType:        browserType,
		SupportsTabControl: hasTabs,
		Platform: fakePlatform{
			os:         platform.OSAndroid,
			deviceType: deviceType,
			svelte:     svelte,
			apps:       apps,
		},
	}
}

func linuxBrowser() *platform.PossibleBrowser {
	return &platform.PossibleBrowser{
		BrowserType:        "release",
		SupportsTabControl: true,
		Platform:           fakePlatform{os: platform.OSLinux, deviceType: "desktop"},
	}
}

func TestNames_AllMemoryBenchmarks_Sorted(t *testing.T) {
	assert.Equal(t, []string{
		"memory.blink_memory_mobile",
		"memory.dual_browser_test",
		"memory.long_running_dual_browser_test",
		"memory.long_running_idle_gmail_background_tbmv2",
		"memory.long_running_idle_gmail_tbmv2",
		"memory.top_10_mobile",
		"memory.top_10_mobile_stress",
	}, Names())

	all := All()
	require.Len(t, all, len(Names()))
	for i, b := range all {
		assert.Equal(t, Names()[i], b.Name)
		assert.NotNil(t, b.CreateOptions, b.Name)
		assert.NotEmpty(t, b.PageSet, b.Name)
		assert.NotEmpty(t, b.Description, b.Name)
	}
}

func TestGet(t *testing.T) {
	b, err := Get("memory.top_10_mobile_stress")
	require.NoError(t, err)
	assert.Equal(t, PageSetTop10MobileRealistic, b.PageSet)
	assert.Equal(t, 5, b.Repeat())
	assert.False(t, b.TearDownStateAfterEachStoryRun)
	assert.False(t, b.TearDownStateAfterEachStorySetRun)

	_, err = Get("memory.fake")
	assert.ErrorContains(t, err, "unknown benchmark")
}

func TestRegistry_Options_MatchVariant(t *testing.T) {
	for _, name := range []string{"memory.top_10_mobile", "memory.top_10_mobile_stress", "memory.dual_browser_test", "memory.long_running_dual_browser_test", "memory.blink_memory_mobile"} {
		b, err := Get(name)
		require.NoError(t, err)
		assert.Equal(t, []string{MemoryMetric}, b.Options().TimelineBasedMetrics(), name)
	}
	for _, name := range []string{"memory.long_running_idle_gmail_tbmv2", "memory.long_running_idle_gmail_background_tbmv2"} {
		b, err := Get(name)
		require.NoError(t, err)
		assert.Equal(t, []string{V8AndMemoryMetrics}, b.Options().TimelineBasedMetrics(), name)
	}
}

func TestRegistry_Predicates_MatchVariant(t *testing.T) {
	top10, err := Get("memory.top_10_mobile")
	require.NoError(t, err)
	assert.False(t, top10.CanAddValue(v("foo_std"), true))
	assert.True(t, top10.CanAddValue(v("other_processes:v8:bytes"), true))

	blink, err := Get("memory.blink_memory_mobile")
	require.NoError(t, err)
	assert.True(t, blink.CanAddValue(v("renderer_processes:v8:bytes"), false))
	assert.False(t, blink.CanAddValue(v("other_processes:v8:bytes"), false))

	gmail, err := Get("memory.long_running_idle_gmail_background_tbmv2")
	require.NoError(t, err)
	assert.True(t, gmail.CanAddValue(v("renderer_processes:memory:chrome:renderer:subsystem:v8"), true))
	assert.False(t, gmail.CanAddValue(v("renderer_processes:memory:chrome:renderer:heap:detail"), true))
	assert.True(t, gmail.CanAddValue(v("renderer_processes:v8:heap_size"), true))
}

func TestCanAddValue_NoPredicate_KeepsEverything(t *testing.T) {
	b := &Benchmark{Name: "memory.test"}
	assert.True(t, b.CanAddValue(v("foo_std"), true))
	assert.Equal(t, 1, b.Repeat())
}

func TestCanRunOn_Top10Mobile(t *testing.T) {
	b, err := Get("memory.top_10_mobile")
	require.NoError(t, err)

	ok, reason := b.CanRunOn(androidBrowser("android-chrome", "Pixel 6", true, false, deskClockApp))
	assert.True(t, ok)
	assert.Empty(t, reason)

	ok, reason = b.CanRunOn(androidBrowser("android-chrome", "Pixel 6", true, false))
	assert.False(t, ok)
	assert.Contains(t, reason, "Pixel 6")

	ok, reason = b.CanRunOn(linuxBrowser())
	assert.False(t, ok)
	assert.Contains(t, reason, "only enabled on")
}

func TestCanRunOn_DualBrowser_DisabledEverywhere(t *testing.T) {
	for _, name := range []string{"memory.dual_browser_test", "memory.long_running_dual_browser_test"} {
		b, err := Get(name)
		require.NoError(t, err)
		ok, reason := b.CanRunOn(androidBrowser("android-chrome", "Pixel 6", true, false, deskClockApp))
		assert.False(t, ok)
		assert.Contains(t, reason, "disabled on")
		ok, _ = b.CanRunOn(linuxBrowser())
		assert.False(t, ok)
	}
}

func TestCanRunOn_BlinkMemoryMobile_ReferenceNexus5X(t *testing.T) {
	b, err := Get("memory.blink_memory_mobile")
	require.NoError(t, err)
	assert.Equal(t, []string{"--ignore-certificate-errors"}, b.ExtraBrowserArgs)

	ok, _ := b.CanRunOn(androidBrowser(platform.BrowserTypeReference, "Nexus 5X", true, false))
	assert.False(t, ok)
	ok, _ = b.CanRunOn(androidBrowser("android-chromium", "Nexus 5X", true, false))
	assert.True(t, ok)
	ok, _ = b.CanRunOn(androidBrowser(platform.BrowserTypeReference, "Pixel 6", true, false))
	assert.True(t, ok)
}

func TestCanRunOn_Gmail(t *testing.T) {
	fg, err := Get("memory.long_running_idle_gmail_tbmv2")
	require.NoError(t, err)
	bg, err := Get("memory.long_running_idle_gmail_background_tbmv2")
	require.NoError(t, err)

	ok, _ := fg.CanRunOn(linuxBrowser())
	assert.True(t, ok)
	ok, _ = bg.CanRunOn(linuxBrowser())
	assert.True(t, ok)

	noTabs := androidBrowser("android-webview-google", "Pixel 2", false, false)
	ok, _ = fg.CanRunOn(noTabs)
	assert.True(t, ok)
	ok, reason := bg.CanRunOn(noTabs)
	assert.False(t, ok)
	assert.Contains(t, reason, "has tabs")

	svelte := androidBrowser("android-chrome", "gobo", true, true)
	ok, _ = fg.CanRunOn(svelte)
	assert.False(t, ok)
	ok, _ = bg.CanRunOn(svelte)
	assert.False(t, ok)
}

func TestCanRunOn_EmbeddedDevices(t *testing.T) {
	b, err := Get("memory.top_10_mobile")
	require.NoError(t, err)

	pixel6, err := platform.GetPossibleBrowser("android-pixel6-perf", "")
	require.NoError(t, err)
	ok, _ := b.CanRunOn(pixel6)
	assert.True(t, ok)

	webview, err := platform.GetPossibleBrowser("android-pixel2_webview-perf", "")
	require.NoError(t, err)
	ok, _ = b.CanRunOn(webview)
	assert.False(t, ok, "the webview bot has no desk clock")
}
