// Package config provides the configuration schema, loader, and provider
// registry for scriptforge.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings in Go's
// duration syntax ("30s", "1m30s").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for scriptforge.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	// LogLevel controls verbosity. Default: info.
	LogLevel LogLevel `yaml:"log_level"`

	// InputDir is the directory scanned for downloaded transcript files.
	InputDir string `yaml:"input_dir"`

	// Recursive includes subdirectories of InputDir in the scan.
	Recursive bool `yaml:"recursive"`

	// OutputDir is the root directory generated documents are written under.
	// Default: "processed".
	OutputDir string `yaml:"output_dir"`

	// Provider selects the entry in Providers used for this run. Selection is
	// static per run.
	Provider string `yaml:"provider"`

	// Providers holds one configuration block per provider name
	// (e.g. "openai", "anthropic", "ollama").
	Providers map[string]ProviderEntry `yaml:"providers"`

	// PromptsFile is an optional YAML file holding the active prompt template.
	// When set, the file is watched and edits take effect for subsequently
	// dispatched jobs without restarting the batch.
	PromptsFile string `yaml:"prompts_file"`

	// Retry tunes the per-job retry policy.
	Retry RetryConfig `yaml:"retry"`

	// Workers bounds concurrent jobs. Default: 1 (strictly sequential).
	Workers int `yaml:"workers"`

	// Temperature is passed through to every provider request. Zero means the
	// provider default.
	Temperature float64 `yaml:"temperature"`

	// MaxTokens caps completion tokens per request. Zero means the provider
	// default.
	MaxTokens int `yaml:"max_tokens"`

	// MetricsAddr, when non-empty, serves Prometheus metrics at this address
	// under /metrics (e.g. ":9090").
	MetricsAddr string `yaml:"metrics_addr"`
}

// ProviderEntry is the common configuration block shared by all providers.
type ProviderEntry struct {
	// APIKey is the authentication key for the provider's API, if any.
	// Local providers (ollama, llamacpp, llamafile) do not need one.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "gpt-4o").
	Model string `yaml:"model"`

	// Timeout bounds a single request; a request exceeding it fails as a
	// transient error. Zero means the provider default.
	Timeout Duration `yaml:"timeout"`
}

// RetryConfig tunes the bounded-retry policy applied to every provider call.
// The original behaviour ("retry a few times") is configuration here, not a
// hard-coded constant.
type RetryConfig struct {
	// MaxAttempts is the total number of calls permitted per job, including
	// the first. Default: 3.
	MaxAttempts int `yaml:"max_attempts"`

	// Backoff is the wait before the second attempt; it doubles per failure.
	// Default: 1s.
	Backoff Duration `yaml:"backoff"`

	// MaxBackoff caps the backoff growth. Default: 30s.
	MaxBackoff Duration `yaml:"max_backoff"`
}
