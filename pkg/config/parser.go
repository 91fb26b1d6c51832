// pkg/config/parser.go

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// VariableExpander expands placeholders (such as "${TOKEN}") in raw
// config bytes before they're parsed as YAML.
type VariableExpander interface {
	Expand(data []byte) []byte
}

// EnvExpander implements VariableExpander using OS environment variables.
type EnvExpander struct{}

// Expand replaces "${VAR}"/"$VAR" references with their environment
// values.
func (EnvExpander) Expand(data []byte) []byte {
	return []byte(os.Expand(string(data), os.Getenv))
}

// Loader loads and validates a BenchmarkConfig from a YAML file.
type Loader struct {
	Expander VariableExpander
}

// NewLoader builds a Loader. A nil expander falls back to EnvExpander.
func NewLoader(expander VariableExpander) *Loader {
	if expander == nil {
		expander = EnvExpander{}
	}
	return &Loader{Expander: expander}
}

// Load reads path, expands variables, parses it as YAML, fills in
// defaults, and validates the result.
func (l *Loader) Load(path string) (*BenchmarkConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}
	return l.Parse(raw)
}

// Parse expands, parses, defaults, and validates raw YAML bytes.
func (l *Loader) Parse(raw []byte) (*BenchmarkConfig, error) {
	expanded := l.Expander.Expand(raw)

	var cfg BenchmarkConfig
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("parse config YAML: %w", err)
	}
	cfg.SetDefaults()
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *BenchmarkConfig) error {
	if len(cfg.Owners) == 0 {
		return fmt.Errorf("config: at least one owner is required")
	}
	if cfg.Variant != VariantFat && cfg.Variant != VariantThin {
		return fmt.Errorf("config: unsupported variant %q", cfg.Variant)
	}
	if cfg.RetryConfig != nil && cfg.RetryConfig.MaxAttempts < 0 {
		return fmt.Errorf("config: retry.max_attempts must be >= 0")
	}
	return nil
}
