package tracing

import (
	"encoding/json"
	"io"

	"go.skia.org/infra/go/skerr"
)

// Record modes understood by Chrome's tracing controller.
const (
	RecordUntilFull          = "record-until-full"
	RecordContinuously       = "record-continuously"
	RecordAsMuchAsPossible   = "record-as-much-as-possible"
	defaultRecordMode        = RecordAsMuchAsPossible
	startupConfigTraceConfig = "trace_config"
)

// Memory dump levels of detail.
const (
	DumpModeBackground = "background"
	DumpModeLight      = "light"
	DumpModeDetailed   = "detailed"
)

var validDumpModes = []string{DumpModeBackground, DumpModeLight, DumpModeDetailed}

// MemoryDumpTrigger requests a memory dump of the given level of detail every
// PeriodicIntervalMs milliseconds.
type MemoryDumpTrigger struct {
	Mode               string `json:"mode"`
	PeriodicIntervalMs int    `json:"periodic_interval_ms"`
}

// MemoryDumpConfig controls periodic memory dumps. A config with no
// triggers disables periodic dumps entirely, leaving dumps to be requested
// explicitly while the story runs.
type MemoryDumpConfig struct {
	Triggers []MemoryDumpTrigger `json:"triggers"`
}

// NewMemoryDumpConfig returns a config with no triggers.
func NewMemoryDumpConfig() *MemoryDumpConfig {
	return &MemoryDumpConfig{Triggers: []MemoryDumpTrigger{}}
}

// AddTrigger appends a periodic trigger.
func (c *MemoryDumpConfig) AddTrigger(mode string, periodicIntervalMs int) error {
	found := false
	for _, m := range validDumpModes {
		if m == mode {
			found = true
			break
		}
	}
	if !found {
		return skerr.Fmt("invalid memory dump mode %q", mode)
	}
	if periodicIntervalMs <= 0 {
		return skerr.Fmt("periodic interval must be positive, got %d", periodicIntervalMs)
	}
	c.Triggers = append(c.Triggers, MemoryDumpTrigger{
		Mode:               mode,
		PeriodicIntervalMs: periodicIntervalMs,
	})
	return nil
}

// PeriodicDumpsEnabled is true if at least one trigger is set.
func (c *MemoryDumpConfig) PeriodicDumpsEnabled() bool {
	return c != nil && len(c.Triggers) > 0
}

// ChromeTraceConfig is the Chrome side of the tracing configuration.
type ChromeTraceConfig struct {
	RecordMode     string
	CategoryFilter *CategoryFilter

	// MemoryDumpConfig is nil when Chrome should use its own default dump
	// schedule.
	MemoryDumpConfig *MemoryDumpConfig
}

// NewChromeTraceConfig returns a config that records categories selected by
// filter.
func NewChromeTraceConfig(filter *CategoryFilter) *ChromeTraceConfig {
	return &ChromeTraceConfig{
		RecordMode:     defaultRecordMode,
		CategoryFilter: filter,
	}
}

// SetMemoryDumpConfig replaces the memory dump configuration.
func (c *ChromeTraceConfig) SetMemoryDumpConfig(cfg *MemoryDumpConfig) {
	c.MemoryDumpConfig = cfg
}

type chromeTraceConfigJSON struct {
	RecordMode         string            `json:"record_mode"`
	IncludedCategories []string          `json:"included_categories"`
	ExcludedCategories []string          `json:"excluded_categories"`
	MemoryDumpConfig   *MemoryDumpConfig `json:"memory_dump_config,omitempty"`
}

// MarshalJSON produces the dictionary Chrome expects for a trace config.
func (c *ChromeTraceConfig) MarshalJSON() ([]byte, error) {
	out := chromeTraceConfigJSON{
		RecordMode:         c.RecordMode,
		IncludedCategories: []string{},
		ExcludedCategories: []string{},
		MemoryDumpConfig:   c.MemoryDumpConfig,
	}
	if out.RecordMode == "" {
		out.RecordMode = defaultRecordMode
	}
	if c.CategoryFilter != nil {
		out.IncludedCategories = append(out.IncludedCategories, c.CategoryFilter.enabledCategories()...)
		out.ExcludedCategories = append(out.ExcludedCategories, c.CategoryFilter.Excluded()...)
	}
	return json.Marshal(out)
}

// Config holds every tracing knob a benchmark can set.
type Config struct {
	EnableChromeTrace bool

	// EnableAndroidGraphicsMemtrack adds the memtrack graphics memory
	// provider on Android devices. Ignored on other platforms.
	EnableAndroidGraphicsMemtrack bool

	ChromeTraceConfig *ChromeTraceConfig
}

// NewConfig returns a config with Chrome tracing enabled for filter.
func NewConfig(filter *CategoryFilter) *Config {
	return &Config{
		EnableChromeTrace: true,
		ChromeTraceConfig: NewChromeTraceConfig(filter),
	}
}

// WriteStartupConfig writes cfg in the format read by Chrome's
// --trace-config-file flag.
func WriteStartupConfig(w io.Writer, cfg *Config) error {
	if cfg == nil || cfg.ChromeTraceConfig == nil {
		return skerr.Fmt("no chrome trace config to write")
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]interface{}{
		startupConfigTraceConfig: cfg.ChromeTraceConfig,
	}); err != nil {
		return skerr.Wrapf(err, "writing trace startup config")
	}
	return nil
}
