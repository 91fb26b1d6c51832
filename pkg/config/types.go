// pkg/config/types.go

// Package config loads the YAML configuration a benchmark run is driven
// from: which owners to enumerate, the batching/page-size parameters the
// engine's components are constructed with, which pipeline variant to
// run, and where to write the persisted incremental store.
package config

// BenchmarkConfig is the full configuration for one benchmark run.
type BenchmarkConfig struct {
	Name          string       `yaml:"name"`                      // Human-readable run identifier
	Owners        []string     `yaml:"owners"`                    // Repository owners to enumerate
	Variant       Variant      `yaml:"variant,omitempty"`         // Pipeline variant; defaults to "fat"
	Endpoint      string       `yaml:"endpoint,omitempty"`        // GraphQL endpoint URL
	TokenEnv      string       `yaml:"token_env,omitempty"`        // Env var holding the bearer token
	BatchSize     uint         `yaml:"batch_size,omitempty"`      // Max selections per document
	PageSize      uint         `yaml:"page_size,omitempty"`       // Items per page for top-level lists
	LabelPageSize uint         `yaml:"label_page_size,omitempty"` // Items per page for nested label lists
	RetryConfig   *RetryConfig `yaml:"retry,omitempty"`           // Optional transport retry policy
	StorePath     string       `yaml:"store_path,omitempty"`      // Optional incremental store file
}

// Variant selects which pipeline shape drives the run.
type Variant string

const (
	VariantFat  Variant = "fat"  // fat repo then more issues
	VariantThin Variant = "thin" // thin repo then fat issues
)

// RetryConfig controls the transport-level retry policy wrapped around
// the HTTP round-tripper. It is ambient HTTP plumbing, not a core policy
// the BatchPaginator/QueryMachine types are aware of.
type RetryConfig struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	InitialBackoff    float64 `yaml:"initial_backoff,omitempty"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier,omitempty"`
	RetryableStatuses []int   `yaml:"retryable_statuses,omitempty"`
}

// SetDefaults fills in the engine's documented defaults for any zero
// fields.
func (c *BenchmarkConfig) SetDefaults() {
	if c.Variant == "" {
		c.Variant = VariantFat
	}
	if c.Endpoint == "" {
		c.Endpoint = "https://api.github.com/graphql"
	}
	if c.BatchSize == 0 {
		c.BatchSize = 50
	}
	if c.PageSize == 0 {
		c.PageSize = 100
	}
	if c.LabelPageSize == 0 {
		c.LabelPageSize = 10
	}
}
