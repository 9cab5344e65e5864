// Package platform describes the devices memory benchmarks run on and the
// browsers available on them.
//
// The device table is embedded from devices.json. Entries either define a
// device fully or alias another entry, the same way pinpoint's bot
// configurations do.
package platform

import (
	_ "embed"
	"encoding/json"
	"sync"

	"go.skia.org/infra/go/skerr"
	"go.skia.org/infra/go/sklog"
	"go.skia.org/infra/go/util"
)

// OS names reported by GetOSName.
const (
	OSAndroid  = "android"
	OSChromeOS = "chromeos"
	OSLinux    = "linux"
	OSMac      = "mac"
	OSWin      = "win"
)

// Tags that are not derived from the OS or browser type.
const (
	TagAll     = "all"
	TagHasTabs = "has tabs"
)

// BrowserTypeReference is the browser type of the reference (last stable)
// build that is run side by side with the build under test.
const BrowserTypeReference = "reference"

//go:embed devices.json
var devicesJSON []byte
var devices map[string]DeviceConfig
var onceDevices sync.Once

func getDevices() map[string]DeviceConfig {
	onceDevices.Do(func() {
		if err := json.Unmarshal(devicesJSON, &devices); err != nil {
			devices = map[string]DeviceConfig{}
			sklog.Errorf("Fail to load device config file: %s", err)
		}
	})
	return devices
}

// DeviceConfig describes one bot.
type DeviceConfig struct {
	// Alias names another entry that has the same configuration.
	Alias string `json:"alias"`
	// OS is one of the OS* constants.
	OS string `json:"os"`
	// DeviceType is the marketing name of the device, e.g. "Nexus 5X", or
	// "desktop".
	DeviceType string `json:"device_type"`
	// Browser is the telemetry browser type to run by default.
	Browser string `json:"browser"`
	// LowRAM marks svelte devices.
	LowRAM bool `json:"low_ram"`
	// HasTabs is set if the default browser supports tab control.
	HasTabs bool `json:"has_tabs"`
	// Applications installed on the device that benchmarks may launch.
	Applications []string `json:"applications"`
	// Dimensions are used by Swarming to find the device pool.
	Dimensions []map[string]string `json:"dimensions"`
	// SwarmingServer that owns the device pool.
	SwarmingServer string `json:"swarming_server"`
	// Bot is the key this config was looked up with.
	Bot string `json:"-"`
}

// GetDeviceConfig returns the config for bot, following an alias if there is
// one.
func GetDeviceConfig(bot string) (DeviceConfig, error) {
	all := getDevices()
	cfg, ok := all[bot]
	if !ok {
		return DeviceConfig{}, skerr.Fmt("bot %s was not found in device configuration data", bot)
	}
	if cfg.Alias != "" {
		aliased, ok := all[cfg.Alias]
		if !ok {
			return DeviceConfig{}, skerr.Fmt("bot %s is an alias of unknown bot %s", bot, cfg.Alias)
		}
		cfg = aliased
	}
	cfg.Bot = bot
	return cfg, nil
}

// Bots returns the names of every configured bot, aliases included.
func Bots() []string {
	ret := make([]string, 0, len(getDevices()))
	for name := range getDevices() {
		ret = append(ret, name)
	}
	return ret
}

// Platform reports the device capabilities the benchmarks use to decide
// whether they can run.
type Platform interface {
	// CanLaunchApplication reports whether the application with the given
	// package or bundle id is installed.
	CanLaunchApplication(appID string) bool
	// GetDeviceTypeName returns the device model, e.g. "Nexus 5X".
	GetDeviceTypeName() string
	// GetOSName returns one of the OS* constants.
	GetOSName() string
	// IsSvelte is true for low memory devices.
	IsSvelte() bool
}

// devicePlatform implements Platform from a DeviceConfig.
type devicePlatform struct {
	cfg  DeviceConfig
	apps util.StringSet
}

// NewPlatform returns a Platform backed by cfg.
func NewPlatform(cfg DeviceConfig) Platform {
	return &devicePlatform{
		cfg:  cfg,
		apps: util.NewStringSet(cfg.Applications),
	}
}

func (p *devicePlatform) CanLaunchApplication(appID string) bool {
	return p.apps[appID]
}

func (p *devicePlatform) GetDeviceTypeName() string {
	return p.cfg.DeviceType
}

func (p *devicePlatform) GetOSName() string {
	return p.cfg.OS
}

// IsSvelte only applies to Android; desktops are never svelte.
func (p *devicePlatform) IsSvelte() bool {
	return p.cfg.OS == OSAndroid && p.cfg.LowRAM
}

// PossibleBrowser is a browser that could be launched on a Platform.
type PossibleBrowser struct {
	BrowserType        string
	SupportsTabControl bool
	Platform           Platform
}

// Tags returns the decorator tags that match this browser.
func (b *PossibleBrowser) Tags() util.StringSet {
	tags := util.StringSet{TagAll: true}
	if b.BrowserType != "" {
		tags[b.BrowserType] = true
	}
	if b.Platform != nil {
		if os := b.Platform.GetOSName(); os != "" {
			tags[os] = true
		}
	}
	if b.SupportsTabControl {
		tags[TagHasTabs] = true
	}
	return tags
}

// MatchesAny reports whether any of tags applies to this browser.
func (b *PossibleBrowser) MatchesAny(tags []string) bool {
	have := b.Tags()
	for _, t := range tags {
		if have[t] {
			return true
		}
	}
	return false
}

// GetPossibleBrowser returns the browser to run on bot. If browserType is
// empty the bot's default browser is used.
func GetPossibleBrowser(bot, browserType string) (*PossibleBrowser, error) {
	cfg, err := GetDeviceConfig(bot)
	if err != nil {
		return nil, skerr.Wrap(err)
	}
	return NewPossibleBrowser(cfg, browserType), nil
}

// NewPossibleBrowser returns a browser of type browserType, or the default
// browser of cfg when browserType is empty.
func NewPossibleBrowser(cfg DeviceConfig, browserType string) *PossibleBrowser {
	if browserType == "" {
		browserType = cfg.Browser
	}
	return &PossibleBrowser{
		BrowserType:        browserType,
		SupportsTabControl: cfg.HasTabs,
		Platform:           NewPlatform(cfg),
	}
}

// validate checks the embedded device table:
// - aliases point at a defined, non-alias entry
// - an alias entry defines nothing else
// - every other entry defines os, browser, dimensions and swarming server
func validate() error {
	var all map[string]DeviceConfig
	if err := json.Unmarshal(devicesJSON, &all); err != nil {
		return skerr.Wrap(err)
	}
	for name, d := range all {
		if d.Alias != "" {
			next, ok := all[d.Alias]
			if !ok {
				return skerr.Fmt("%s uses alias %s that is not defined", name, d.Alias)
			}
			if next.Alias != "" {
				return skerr.Fmt("%s cannot have nested aliases in device configurations", name)
			}
			if d.OS != "" || d.Browser != "" || d.DeviceType != "" || len(d.Dimensions) > 0 || d.SwarmingServer != "" {
				return skerr.Fmt("%s defines both an alias and other fields. Do one or the other.", name)
			}
			continue
		}
		if !util.In(d.OS, []string{OSAndroid, OSChromeOS, OSLinux, OSMac, OSWin}) {
			return skerr.Fmt("%s has unknown os %q", name, d.OS)
		} else if d.Browser == "" {
			return skerr.Fmt("%s is missing browser configs", name)
		} else if len(d.Dimensions) == 0 {
			return skerr.Fmt("%s does not have any dimensions", name)
		} else if d.SwarmingServer == "" {
			return skerr.Fmt("%s is missing swarming server configs", name)
		}
	}
	return nil
}
