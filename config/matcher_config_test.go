package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeFile(path, contents string) error {
	return os.WriteFile(path, []byte(contents), 0o644)
}

func TestDefaultConfigValidates(t *testing.T) {
	if err := DefaultMatcherConfig().Validate(); err != nil {
		t.Fatalf("DefaultMatcherConfig() should validate, got %v", err)
	}
}

func TestValidateRejectsBadFields(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*MatcherConfig)
	}{
		{"usable range", func(c *MatcherConfig) { c.UsableRange = 0 }},
		{"gaussian sigma", func(c *MatcherConfig) { c.GaussianSigma = -1 }},
		{"recursive iterations", func(c *MatcherConfig) { c.OptRecursiveIterations = 0 }},
		{"patch size", func(c *MatcherConfig) { c.PatchSize = 0 }},
		{"delta", func(c *MatcherConfig) { c.Delta = 0 }},
	}
	for _, c := range cases {
		cfg := DefaultMatcherConfig()
		c.mut(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", c.name)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "matcher.json")
	cfg := DefaultMatcherConfig()
	cfg.KernelSize = 3
	cfg.Delta = 0.025

	if err := SaveMatcherConfig(path, cfg); err != nil {
		t.Fatalf("SaveMatcherConfig: %v", err)
	}
	loaded, err := LoadMatcherConfig(path)
	if err != nil {
		t.Fatalf("LoadMatcherConfig: %v", err)
	}
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Fatalf("config did not round-trip through JSON (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsWrongExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "matcher.txt")
	if err := SaveMatcherConfig(path, DefaultMatcherConfig()); err != nil {
		t.Fatalf("SaveMatcherConfig: %v", err)
	}
	if _, err := LoadMatcherConfig(path); err == nil {
		t.Fatal("expected error loading a .txt config file")
	}
}

func TestLoadOverlaysPartialFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "matcher.json")
	if err := writeFile(path, `{"kernel_size": 5}`); err != nil {
		t.Fatalf("writeFile: %v", err)
	}
	cfg, err := LoadMatcherConfig(path)
	if err != nil {
		t.Fatalf("LoadMatcherConfig: %v", err)
	}
	if cfg.KernelSize != 5 {
		t.Fatalf("kernel_size = %v, want 5", cfg.KernelSize)
	}
	if cfg.Delta != DefaultMatcherConfig().Delta {
		t.Fatalf("delta should keep default, got %v", cfg.Delta)
	}
}
