package parzen

import (
	"errors"
	"fmt"
	"time"
)

// #region errors

// ErrNotImplemented is returned for estimator paths that are recognized
// but deliberately unimplemented (2-D histogram binning).
var ErrNotImplemented = errors.New("not implemented")

// ConfigError reports an invalid estimator configuration at construction.
type ConfigError struct {
	Field  string
	Value  int
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("parzen config: %s=%d %s", e.Field, e.Value, e.Reason)
}

// #endregion errors

// #region snapshot

// Snapshot is the serializable form of an Estimator. The raw sample
// window is deliberately omitted: a restored estimator starts with an
// empty window and serves the stored histogram/PCA until the next Fit
// fully replaces them.
type Snapshot struct {
	WindowSize  int       `json:"window_size"`
	Dims        int       `json:"dims"`
	Bins        int       `json:"bins"`
	FeatureDim  int       `json:"feature_dim"`
	Mean        []float64 `json:"pca_mean,omitempty"`
	Basis       []float64 `json:"pca_basis,omitempty"` // row-major FeatureDim x Dims
	Edges       []float64 `json:"bin_edges,omitempty"`
	Probs       []float64 `json:"bin_probs,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
}

// #endregion snapshot

// #region histogram

// HistogramView is a read-only copy of the current binned density.
type HistogramView struct {
	Edges []float64
	Probs []float64
}

// #endregion histogram
