package prompt

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML prompts file at path and returns a validated [Template].
func Load(path string) (Template, error) {
	f, err := os.Open(path)
	if err != nil {
		return Template{}, fmt.Errorf("prompt: open %q: %w", path, err)
	}
	defer f.Close()

	tpl, err := LoadFromReader(f)
	if err != nil {
		return Template{}, fmt.Errorf("prompt: parse %q: %w", path, err)
	}
	return tpl, nil
}

// LoadFromReader decodes a YAML template from r and validates the result.
// Useful in tests where templates are constructed from string literals.
func LoadFromReader(r io.Reader) (Template, error) {
	tpl := Template{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&tpl); err != nil {
		return Template{}, fmt.Errorf("prompt: decode yaml: %w", err)
	}
	if tpl.Name == "" {
		tpl.Name = "custom"
	}
	if tpl.System == "" {
		tpl.System = Default().System
	}
	if err := tpl.Validate(); err != nil {
		return Template{}, err
	}
	return tpl, nil
}

// loadFromBytes is a convenience for the watcher's hash-then-parse path.
func loadFromBytes(data []byte) (Template, error) {
	return LoadFromReader(bytes.NewReader(data))
}
