package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/adaptive-select/go-controller/internal/controller"
	"github.com/danielpatrickdp/adaptive-select/go-controller/internal/metrics"
	"github.com/danielpatrickdp/adaptive-select/go-controller/internal/sla"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture: a
// controller configuration, an ordered batch sequence, and the decisions
// the sequence is expected to reproduce under the fixed seed.
type Fixture struct {
	Description     string                  `json:"description"`
	Config          FixtureConfig           `json:"config"`
	Batches         []controller.Batch      `json:"batches"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results,omitempty"`
}

// FixtureConfig mirrors controller.Config with JSON tags.
type FixtureConfig struct {
	Candidates []string `json:"candidates"`
	Metric     string   `json:"metric"`
	WindowSize int      `json:"window_size"`
	Bins       int      `json:"bins"`
	Dims       int      `json:"dims"`
	Alpha      float64  `json:"alpha"`
	V          float64  `json:"v"`
	Seed       int64    `json:"seed"`
}

// FixtureExpectedResult captures the expected decision per batch.
type FixtureExpectedResult struct {
	Iteration       int    `json:"iteration"`
	Chosen          string `json:"chosen_candidate"`
	RewardCandidate string `json:"reward_candidate"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// SaveFixture writes a fixture as indented JSON.
func SaveFixture(path string, f *Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// ToControllerConfig converts a FixtureConfig to a domain Config.
func (fc *FixtureConfig) ToControllerConfig() (controller.Config, error) {
	metric, err := metrics.ParseMetric(fc.Metric)
	if err != nil {
		return controller.Config{}, fmt.Errorf("fixture config: %w", err)
	}
	if fc.Seed == 0 {
		return controller.Config{}, fmt.Errorf("fixture config: seed must be fixed for replay")
	}
	cfg := controller.Config{
		Candidates: fc.Candidates,
		Metric:     metric,
		WindowSize: fc.WindowSize,
		Bins:       fc.Bins,
		Dims:       fc.Dims,
		SLA:        sla.Config{Alpha: fc.Alpha, V: fc.V},
		Seed:       fc.Seed,
	}
	return cfg, nil
}

// FromControllerConfig converts a domain Config for serialization.
func FromControllerConfig(cfg controller.Config) FixtureConfig {
	return FixtureConfig{
		Candidates: cfg.Candidates,
		Metric:     cfg.Metric.String(),
		WindowSize: cfg.WindowSize,
		Bins:       cfg.Bins,
		Dims:       cfg.Dims,
		Alpha:      cfg.SLA.Alpha,
		V:          cfg.SLA.V,
		Seed:       cfg.Seed,
	}
}

// #endregion fixture-loader
