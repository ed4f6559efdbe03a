// Package config defines the listx configuration file and its embedded defaults.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var embeddedDefaultConfig []byte

// Control kinds for a filter field.
const (
	ControlAuto        = "auto"
	ControlToggle      = "toggle"
	ControlMultiSelect = "multiselect"
)

// Empty-selection policies.
const (
	EmptyIgnore  = "ignore"
	EmptyExclude = "exclude"
)

// Config is the merged configuration.
type Config struct {
	Engine EngineConfig `yaml:"engine"`
	Fields []Field      `yaml:"fields"`
	Output OutputConfig `yaml:"output"`
}

// EngineConfig holds the filter engine settings.
type EngineConfig struct {
	MinSearchChars    int      `yaml:"min_search_chars"`
	SearchFields      []string `yaml:"search_fields"`
	DropdownThreshold int      `yaml:"dropdown_threshold"`
	DebounceMs        int      `yaml:"debounce_ms"`
	SearchParam       string   `yaml:"search_param"`
	EmptySelection    string   `yaml:"empty_selection"`
	SearchEnabled     *bool    `yaml:"search_enabled,omitempty"`
}

// Field declares one filterable field.
type Field struct {
	// Name is the URL parameter and selection key.
	Name string `yaml:"name"`
	// Label is shown on the control; defaults to the capitalized name.
	Label string `yaml:"label,omitempty"`
	// Control is auto, toggle or multiselect.
	Control string `yaml:"control,omitempty"`
	// Source is the item key to read values from; defaults to Name.
	Source string `yaml:"source,omitempty"`
}

// OutputConfig holds CLI rendering defaults.
type OutputConfig struct {
	Format  string   `yaml:"format"`
	Columns []string `yaml:"columns,omitempty"`
	NoColor bool     `yaml:"no_color,omitempty"`
}

// DefaultYAML returns a copy of the embedded default config.
func DefaultYAML() []byte {
	return append([]byte(nil), embeddedDefaultConfig...)
}

// Default parses the embedded default configuration.
func Default() (Config, error) {
	var cfg Config
	if len(embeddedDefaultConfig) == 0 {
		return cfg, fmt.Errorf("embedded default config is empty")
	}
	if err := yaml.Unmarshal(embeddedDefaultConfig, &cfg); err != nil {
		return cfg, fmt.Errorf("decode default config: %w", err)
	}
	return cfg, nil
}

// Load returns the defaults merged with the file at path. An empty path
// returns the defaults. Keys present in the file replace the defaults; lists
// are replaced, not appended.
func Load(path string) (Config, error) {
	cfg, err := Default()
	if err != nil {
		return cfg, err
	}
	if path == "" {
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := Merge(&cfg, data); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Merge decodes data on top of cfg.
func Merge(cfg *Config, data []byte) error {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// Validate checks for settings the engine cannot honor.
func (c Config) Validate() error {
	e := c.Engine
	if e.MinSearchChars < 0 {
		return fmt.Errorf("engine.min_search_chars must be non-negative, got %d", e.MinSearchChars)
	}
	if e.DropdownThreshold < 0 {
		return fmt.Errorf("engine.dropdown_threshold must be non-negative, got %d", e.DropdownThreshold)
	}
	if e.DebounceMs < 0 {
		return fmt.Errorf("engine.debounce_ms must be non-negative, got %d", e.DebounceMs)
	}
	if strings.TrimSpace(e.SearchParam) == "" {
		return fmt.Errorf("engine.search_param must not be empty")
	}
	switch e.EmptySelection {
	case "", EmptyIgnore, EmptyExclude:
	default:
		return fmt.Errorf("engine.empty_selection: unknown policy %q (expected %q or %q)", e.EmptySelection, EmptyIgnore, EmptyExclude)
	}
	seen := make(map[string]bool, len(c.Fields))
	for i, f := range c.Fields {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			return fmt.Errorf("fields[%d]: name is required", i)
		}
		if name == e.SearchParam {
			return fmt.Errorf("fields[%d]: %q collides with the search parameter", i, name)
		}
		if seen[name] {
			return fmt.Errorf("fields[%d]: duplicate field %q", i, name)
		}
		seen[name] = true
		switch f.Control {
		case "", ControlAuto, ControlToggle, ControlMultiSelect:
		default:
			return fmt.Errorf("fields[%d]: unknown control %q", i, f.Control)
		}
	}
	return nil
}

// FieldNames returns the declared field names in order.
func (c Config) FieldNames() []string {
	out := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		out[i] = f.Name
	}
	return out
}

// Debounce returns the search debounce window.
func (e EngineConfig) Debounce() time.Duration {
	return time.Duration(e.DebounceMs) * time.Millisecond
}

// IsSearchEnabled reports whether free-text search is on (default true).
func (e EngineConfig) IsSearchEnabled() bool {
	return e.SearchEnabled == nil || *e.SearchEnabled
}

// ExcludeEmpty reports whether an empty selection matches nothing.
func (e EngineConfig) ExcludeEmpty() bool {
	return e.EmptySelection == EmptyExclude
}

// Key returns the item key the field reads from.
func (f Field) Key() string {
	if f.Source != "" {
		return f.Source
	}
	return f.Name
}

// Title returns the control label.
func (f Field) Title() string {
	if f.Label != "" {
		return f.Label
	}
	if f.Name == "" {
		return ""
	}
	return strings.ToUpper(f.Name[:1]) + f.Name[1:]
}
