package controller

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/danielpatrickdp/adaptive-select/go-controller/internal/metrics"
	"github.com/danielpatrickdp/adaptive-select/go-controller/internal/parzen"
	"github.com/danielpatrickdp/adaptive-select/go-controller/internal/sla"
)

// #region rows

// Rows is a rank-2 distribution payload: one or more rows of class
// probabilities. JSON accepts either a flat vector (treated as a
// singleton batch) or a matrix.
type Rows [][]float64

// UnmarshalJSON accepts [0.1, 0.9] and [[0.1, 0.9], ...] alike.
func (r *Rows) UnmarshalJSON(data []byte) error {
	var matrix [][]float64
	if err := json.Unmarshal(data, &matrix); err == nil {
		*r = matrix
		return nil
	}
	var flat []float64
	if err := json.Unmarshal(data, &flat); err != nil {
		return fmt.Errorf("rows: expected vector or matrix: %w", err)
	}
	*r = Rows{flat}
	return nil
}

// #endregion rows

// #region batch

// Batch is one unit of work: one output per configured candidate plus
// the ground-truth target. Context is opaque pass-through for callers.
type Batch struct {
	Outputs map[string]Rows `json:"outputs"`
	Target  Rows            `json:"target"`
	Context map[string]any  `json:"context,omitempty"`
}

// #endregion batch

// #region decision

// Decision is the structured response for one committed batch.
type Decision struct {
	BatchID         string             `json:"batch_id"`
	Chosen          string             `json:"chosen_candidate"`
	RewardCandidate string             `json:"reward_candidate"`
	Probabilities   map[string]float64 `json:"probabilities"`
	Distances       map[string]float64 `json:"distances"`
	Iteration       int                `json:"iteration"`
	Duration        time.Duration      `json:"duration_ns"`
}

// #endregion decision

// #region config

// Config fixes the candidate set and learning parameters at
// construction. The candidate set is immutable afterwards.
type Config struct {
	Candidates []string
	Metric     metrics.Metric
	WindowSize int
	Bins       int
	Dims       int
	SLA        sla.Config
	Seed       int64 // 0 = derive from wall clock
	Metadata   map[string]string
}

// DefaultConfig returns the standard loop parameters for a candidate set.
func DefaultConfig(candidates []string) Config {
	return Config{
		Candidates: candidates,
		Metric:     metrics.JSDivergence,
		WindowSize: 64,
		Bins:       16,
		Dims:       1,
		SLA:        sla.DefaultConfig(),
	}
}

// #endregion config

// #region snapshot

// Snapshot is the serializable whole-state view of a controller. It is
// also what State() returns for inspection: a pure value, never a handle
// into live state.
type Snapshot struct {
	Candidates []string                   `json:"candidates"`
	Metric     string                     `json:"distance_metric"`
	WindowSize int                        `json:"window_size"`
	Bins       int                        `json:"bins"`
	Dims       int                        `json:"dims"`
	ClassDim   int                        `json:"class_dim"`
	Iteration  int                        `json:"iteration"`
	LastReward float64                    `json:"last_reward"`
	Metadata   map[string]string          `json:"metadata,omitempty"`
	Estimators map[string]parzen.Snapshot `json:"estimators"`
	Selector   sla.Snapshot               `json:"selector"`
}

// #endregion snapshot
