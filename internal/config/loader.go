package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists the provider names scriptforge ships factories for.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = []string{
	"openai", "anthropic", "gemini", "ollama",
	"deepseek", "mistral", "groq", "llamacpp", "llamafile",
}

// localProviders run on the operator's machine and need no API key.
var localProviders = []string{"ollama", "llamacpp", "llamafile"}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and validates
// the result. Useful in tests where configs are constructed from string
// literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills zero-value fields with their documented defaults.
func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = LogInfo
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "processed"
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found.
//
// A missing or credential-less selected provider is a validation error, not a
// per-job failure: the run must abort before any job starts rather than fail
// every job individually.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	if cfg.Provider == "" {
		errs = append(errs, errors.New("provider is required; set it to one of the configured providers"))
	} else {
		entry, ok := cfg.Providers[cfg.Provider]
		if !ok {
			errs = append(errs, fmt.Errorf("provider %q has no matching entry under providers", cfg.Provider))
		} else {
			if entry.Model == "" {
				errs = append(errs, fmt.Errorf("providers.%s.model is required", cfg.Provider))
			}
			if entry.APIKey == "" && !slices.Contains(localProviders, cfg.Provider) {
				errs = append(errs, fmt.Errorf("providers.%s.api_key is required for a remote provider", cfg.Provider))
			}
		}
	}

	for name := range cfg.Providers {
		if !slices.Contains(ValidProviderNames, name) {
			slog.Warn("unrecognised provider name in providers",
				"name", name, "known", ValidProviderNames)
		}
	}

	if cfg.Retry.MaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("retry.max_attempts must not be negative, got %d", cfg.Retry.MaxAttempts))
	}
	if cfg.Retry.Backoff < 0 || cfg.Retry.MaxBackoff < 0 {
		errs = append(errs, errors.New("retry backoff durations must not be negative"))
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		errs = append(errs, fmt.Errorf("temperature %.2f is out of range [0.0, 2.0]", cfg.Temperature))
	}

	return errors.Join(errs...)
}
