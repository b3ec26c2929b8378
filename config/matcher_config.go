// Package config loads and validates scan matcher tuning parameters from
// JSON, following the same load/validate discipline the rest of the
// reference stack uses for its tuning files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// MatcherConfig holds every tunable parameter of the scan matcher.
// Every field always carries a value: a scan matcher has no sensible
// behavior with half its parameters missing, so LoadMatcherConfig always
// starts from DefaultMatcherConfig and overlays the file on top of it; a
// file may set only some of the fields.
type MatcherConfig struct {
	// Laser geometry and usable range.
	UsableRange  float64 `json:"usable_range"`
	MaxRange     float64 `json:"max_range"`
	InitialBeamsSkip int `json:"initial_beams_skip"`

	// Scoring kernel.
	KernelSize    int     `json:"kernel_size"`
	GaussianSigma float64 `json:"gaussian_sigma"`
	FullnessThreshold float64 `json:"fullness_threshold"`
	FreeCellRatio float64 `json:"free_cell_ratio"`

	// Likelihood field.
	LikelihoodSigma float64 `json:"likelihood_sigma"`
	LikelihoodSkip  int     `json:"likelihood_skip"`

	// Hill-climbing optimizer.
	OptLinearDelta       float64 `json:"opt_linear_delta"`
	OptAngularDelta      float64 `json:"opt_angular_delta"`
	OptRecursiveIterations int   `json:"opt_recursive_iterations"`

	// Odometry gating (disabled when <= 0).
	AngularOdometryReliability float64 `json:"angular_odometry_reliability"`
	LinearOdometryReliability  float64 `json:"linear_odometry_reliability"`

	// Posterior sampling grid.
	LinearSampleRange float64 `json:"linear_sample_range"`
	LinearSampleStep  float64 `json:"linear_sample_step"`
	AngularSampleRange float64 `json:"angular_sample_range"`
	AngularSampleStep  float64 `json:"angular_sample_step"`

	// Map growth.
	EnlargeStep float64 `json:"enlarge_step"`

	// Whether RegisterScan traces each full beam, marking the cells along
	// it as free and the hit cell as occupied (true), or only marks hit
	// cells without touching free space (false).
	GenerateMap bool `json:"generate_map"`

	// Map geometry.
	Delta     float64 `json:"delta"`
	PatchSize int     `json:"patch_size"`

	// RasterCapacity bounds the scratch buffer used to rasterize beams
	// into grid lines; a beam whose line would exceed it is a
	// misconfiguration (max range too large for delta), not recoverable.
	RasterCapacity int `json:"raster_capacity"`
}

// DefaultMatcherConfig returns the reference tuning defaults for a
// laser with roughly 80m usable range and a 5cm grid resolution.
func DefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{
		UsableRange:      80,
		MaxRange:         80,
		InitialBeamsSkip: 0,

		KernelSize:        1,
		GaussianSigma:      0.05,
		FullnessThreshold: 0.1,
		FreeCellRatio:     1.4142135623730951, // sqrt(2)

		LikelihoodSigma: 0.2,
		LikelihoodSkip:  0,

		OptLinearDelta:         0.05,
		OptAngularDelta:        0.05,
		OptRecursiveIterations: 3,

		AngularOdometryReliability: 0,
		LinearOdometryReliability:  0,

		LinearSampleRange:  0.01,
		LinearSampleStep:   0.01,
		AngularSampleRange: 0.005,
		AngularSampleStep:  0.005,

		EnlargeStep: 10,

		GenerateMap: true,

		Delta:     0.05,
		PatchSize: 32,

		RasterCapacity: 20000,
	}
}

// Validate reports the first structurally invalid field. It does not
// second-guess tuning choices (e.g. an unusually large GaussianSigma is
// legal, just probably wrong) — only conditions that would panic or loop
// forever downstream.
func (c MatcherConfig) Validate() error {
	switch {
	case c.UsableRange <= 0:
		return fmt.Errorf("config: usable_range must be positive, got %v", c.UsableRange)
	case c.MaxRange <= 0:
		return fmt.Errorf("config: max_range must be positive, got %v", c.MaxRange)
	case c.InitialBeamsSkip < 0:
		return fmt.Errorf("config: initial_beams_skip must be non-negative, got %v", c.InitialBeamsSkip)
	case c.KernelSize < 0:
		return fmt.Errorf("config: kernel_size must be non-negative, got %v", c.KernelSize)
	case c.GaussianSigma <= 0:
		return fmt.Errorf("config: gaussian_sigma must be positive, got %v", c.GaussianSigma)
	case c.LikelihoodSigma <= 0:
		return fmt.Errorf("config: likelihood_sigma must be positive, got %v", c.LikelihoodSigma)
	case c.FreeCellRatio <= 0:
		return fmt.Errorf("config: free_cell_ratio must be positive, got %v", c.FreeCellRatio)
	case c.OptLinearDelta <= 0:
		return fmt.Errorf("config: opt_linear_delta must be positive, got %v", c.OptLinearDelta)
	case c.OptAngularDelta <= 0:
		return fmt.Errorf("config: opt_angular_delta must be positive, got %v", c.OptAngularDelta)
	case c.OptRecursiveIterations < 1:
		return fmt.Errorf("config: opt_recursive_iterations must be >= 1, got %v", c.OptRecursiveIterations)
	case c.LinearSampleStep <= 0:
		return fmt.Errorf("config: linear_sample_step must be positive, got %v", c.LinearSampleStep)
	case c.AngularSampleStep <= 0:
		return fmt.Errorf("config: angular_sample_step must be positive, got %v", c.AngularSampleStep)
	case c.LinearSampleRange < 0:
		return fmt.Errorf("config: linear_sample_range must be non-negative, got %v", c.LinearSampleRange)
	case c.AngularSampleRange < 0:
		return fmt.Errorf("config: angular_sample_range must be non-negative, got %v", c.AngularSampleRange)
	case c.Delta <= 0:
		return fmt.Errorf("config: delta must be positive, got %v", c.Delta)
	case c.PatchSize <= 0:
		return fmt.Errorf("config: patch_size must be positive, got %v", c.PatchSize)
	case c.RasterCapacity <= 0:
		return fmt.Errorf("config: raster_capacity must be positive, got %v", c.RasterCapacity)
	}
	return nil
}

const maxConfigFileSize = 1 << 20 // 1MB

// LoadMatcherConfig reads a MatcherConfig from a JSON file, overlaying it
// onto DefaultMatcherConfig so omitted fields keep their defaults. The path
// must have a .json extension and the file must be under 1MB, matching the
// guard this stack applies to every tuning file it loads.
func LoadMatcherConfig(path string) (MatcherConfig, error) {
	cfg := DefaultMatcherConfig()

	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return cfg, fmt.Errorf("config: file must have .json extension, got %q", ext)
	}
	info, err := os.Stat(cleanPath)
	if err != nil {
		return cfg, fmt.Errorf("config: stat: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return cfg, fmt.Errorf("config: file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return cfg, fmt.Errorf("config: read: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// SaveMatcherConfig writes cfg to path as indented JSON.
func SaveMatcherConfig(path string, cfg MatcherConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write: %w", err)
	}
	return nil
}
