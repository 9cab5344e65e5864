// Package config holds the configuration of membench-tool, read from a YAML
// file.
package config

import (
	"os"

	"go.skia.org/infra/go/skerr"
	"go.skia.org/infra/go/util"
	"gopkg.in/yaml.v3"

	"go.skia.org/membench/memory/go/read_values"
)

const (
	// DefaultSwarmingServer hosts the perf device pools.
	DefaultSwarmingServer = "chrome-swarming.appspot.com"

	defaultBot        = "android-pixel6-perf"
	defaultIterations = 1
	maxIterations     = 100
)

// SwarmingConfig configures task scheduling.
type SwarmingConfig struct {
	// Server is the swarming host, without scheme.
	Server string `yaml:"server"`
	// JobID tags the triggered tasks.
	JobID string `yaml:"job_id"`
	// Iterations is the number of tasks to trigger.
	Iterations int `yaml:"iterations"`
	// CASInstance, CASHash and CASSizeBytes locate the isolated build.
	CASInstance  string `yaml:"cas_instance"`
	CASHash      string `yaml:"cas_hash"`
	CASSizeBytes int64  `yaml:"cas_size_bytes"`
}

// Config is the membench-tool configuration.
type Config struct {
	Bot             string         `yaml:"bot"`
	Browser         string         `yaml:"browser"`
	Commit          string         `yaml:"commit"`
	Story           string         `yaml:"story"`
	StoryTags       string         `yaml:"story_tags"`
	AlsoRunDisabled bool           `yaml:"also_run_disabled_tests"`
	ExtraArgs       []string       `yaml:"extra_args"`
	OutputFormat    string         `yaml:"output_format"`
	Aggregation     string         `yaml:"aggregation"`
	Swarming        SwarmingConfig `yaml:"swarming"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Bot:          defaultBot,
		OutputFormat: read_values.FormatTable,
		Swarming: SwarmingConfig{
			Server:     DefaultSwarmingServer,
			Iterations: defaultIterations,
		},
	}
}

// Load reads the YAML file at path on top of the defaults and validates the
// result.
func Load(path string) (*Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, skerr.Wrapf(err, "reading config %s", path)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, skerr.Wrapf(err, "parsing config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, skerr.Wrapf(err, "invalid config %s", path)
	}
	return cfg, nil
}

// Validate checks the fields that have a fixed set of values.
func (c *Config) Validate() error {
	if c.Bot == "" {
		return skerr.Fmt("bot is required")
	}
	if c.OutputFormat != "" && !util.In(c.OutputFormat, read_values.Formats) {
		return skerr.Fmt("output_format %q is not one of %v", c.OutputFormat, read_values.Formats)
	}
	if !read_values.IsSupportedAggregation(c.Aggregation) {
		return skerr.Fmt("unsupported aggregation %q", c.Aggregation)
	}
	if c.Swarming.Iterations < 1 || c.Swarming.Iterations > maxIterations {
		return skerr.Fmt("swarming.iterations must be in [1, %d], got %d", maxIterations, c.Swarming.Iterations)
	}
	if c.Swarming.CASSizeBytes < 0 {
		return skerr.Fmt("swarming.cas_size_bytes must not be negative")
	}
	return nil
}
