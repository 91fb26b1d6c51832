package config

import (
	"strings"
	"testing"
)

type stubExpander struct{ env map[string]string }

func (s stubExpander) Expand(data []byte) []byte {
	out := string(data)
	for k, v := range s.env {
		out = strings.ReplaceAll(out, "${"+k+"}", v)
	}
	return []byte(out)
}

func TestParseFillsDocumentedDefaults(t *testing.T) {
	l := NewLoader(stubExpander{})
	cfg, err := l.Parse([]byte(`
name: smoke
owners: [acme]
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Variant != VariantFat {
		t.Errorf("Variant = %q, want %q", cfg.Variant, VariantFat)
	}
	if cfg.Endpoint != "https://api.github.com/graphql" {
		t.Errorf("Endpoint = %q, want the default GitHub endpoint", cfg.Endpoint)
	}
	if cfg.BatchSize != 50 || cfg.PageSize != 100 || cfg.LabelPageSize != 10 {
		t.Errorf("unexpected size defaults: batch=%d page=%d label=%d", cfg.BatchSize, cfg.PageSize, cfg.LabelPageSize)
	}
}

func TestParseExpandsEnvPlaceholdersBeforeYAML(t *testing.T) {
	l := NewLoader(stubExpander{env: map[string]string{"ENDPOINT": "https://example.invalid/graphql"}})
	cfg, err := l.Parse([]byte(`
name: smoke
owners: [acme]
endpoint: "${ENDPOINT}"
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Endpoint != "https://example.invalid/graphql" {
		t.Errorf("Endpoint = %q, want the expanded value", cfg.Endpoint)
	}
}

func TestParseRejectsEmptyOwners(t *testing.T) {
	l := NewLoader(stubExpander{})
	if _, err := l.Parse([]byte(`name: smoke`)); err == nil {
		t.Fatal("expected an error for an empty owner list")
	}
}

func TestParseRejectsUnsupportedVariant(t *testing.T) {
	l := NewLoader(stubExpander{})
	_, err := l.Parse([]byte(`
name: smoke
owners: [acme]
variant: bogus
`))
	if err == nil {
		t.Fatal("expected an error for an unsupported variant")
	}
}

func TestParseRejectsNegativeMaxAttempts(t *testing.T) {
	l := NewLoader(stubExpander{})
	_, err := l.Parse([]byte(`
name: smoke
owners: [acme]
retry:
  max_attempts: -1
`))
	if err == nil {
		t.Fatal("expected an error for a negative retry.max_attempts")
	}
}

func TestParseAcceptsThinVariant(t *testing.T) {
	l := NewLoader(stubExpander{})
	cfg, err := l.Parse([]byte(`
name: smoke
owners: [acme, widgets]
variant: thin
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Variant != VariantThin {
		t.Errorf("Variant = %q, want %q", cfg.Variant, VariantThin)
	}
	if len(cfg.Owners) != 2 {
		t.Errorf("Owners = %v, want 2 entries", cfg.Owners)
	}
}
