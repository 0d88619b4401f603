// Package parzen maintains an online, non-parametric density estimate of
// a candidate's output stream: a bounded FIFO sample window is projected
// through PCA and binned into an equal-width histogram. This approximates
// true kernel density estimation at near-constant update cost.
package parzen

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// degenerateRange is the minimum projected span before edges are widened.
const degenerateRange = 1e-6

// minSingular is the covariance rank cutoff below which PCA is degenerate.
const minSingular = 1e-12

// #region estimator

// Estimator is the per-candidate online density estimator. Not safe for
// concurrent use; the owning controller serializes all access.
type Estimator struct {
	windowSize int
	dims       int
	bins       int

	featDim int         // set by the first Fit, 0 until then
	window  [][]float64 // FIFO, at most windowSize rows

	mean  []float64
	basis []float64 // row-major featDim x dims, nil while degenerate

	edges []float64 // bins+1 entries when fitted
	probs []float64 // bins entries when fitted

	lastUpdated time.Time
}

// New returns an empty, unfit estimator. dims must be 1 or 2.
func New(windowSize, bins, dims int) (*Estimator, error) {
	if windowSize < 1 {
		return nil, &ConfigError{Field: "window_size", Value: windowSize, Reason: "must be >= 1"}
	}
	if bins < 1 {
		return nil, &ConfigError{Field: "bins", Value: bins, Reason: "must be >= 1"}
	}
	if dims != 1 && dims != 2 {
		return nil, &ConfigError{Field: "dims", Value: dims, Reason: "must be 1 or 2"}
	}
	return &Estimator{windowSize: windowSize, bins: bins, dims: dims}, nil
}

// WindowSize returns the configured window bound.
func (e *Estimator) WindowSize() int { return e.windowSize }

// Dims returns the configured projection dimensionality.
func (e *Estimator) Dims() int { return e.dims }

// Bins returns the configured histogram bin count.
func (e *Estimator) Bins() int { return e.bins }

// LastUpdated returns the time of the last Fit call (zero if never fit).
func (e *Estimator) LastUpdated() time.Time { return e.lastUpdated }

// #endregion estimator

// #region fit

// Fit appends batch rows to the sliding window, trims the oldest rows
// beyond the window bound, and rebuilds the PCA projection and histogram
// over the entire retained window. A degenerate window (fewer than two
// distinct samples) degrades to a no-op histogram rather than failing.
func (e *Estimator) Fit(batch [][]float64) error {
	if len(batch) == 0 {
		return fmt.Errorf("parzen fit: empty batch")
	}
	cols := len(batch[0])
	if cols == 0 {
		return fmt.Errorf("parzen fit: empty row")
	}
	if e.featDim != 0 && cols != e.featDim {
		return fmt.Errorf("parzen fit: row width %d, estimator bound to %d", cols, e.featDim)
	}
	for i, row := range batch {
		if len(row) != cols {
			return fmt.Errorf("parzen fit: ragged batch at row %d", i)
		}
	}
	if e.featDim == 0 {
		e.featDim = cols
	}

	// Append then trim: newest data is never discarded in favor of older.
	for _, row := range batch {
		cp := make([]float64, cols)
		copy(cp, row)
		e.window = append(e.window, cp)
	}
	if excess := len(e.window) - e.windowSize; excess > 0 {
		e.window = e.window[excess:]
	}
	e.lastUpdated = time.Now().UTC()

	if len(e.window) < 2 {
		return nil // nothing to decompose yet
	}

	if !e.recomputePCA() {
		// Singular covariance: drop the derived estimate and degrade.
		e.basis = nil
		e.edges = nil
		e.probs = nil
		return nil
	}

	if e.dims == 2 {
		return fmt.Errorf("parzen fit: 2-D histogram binning: %w", ErrNotImplemented)
	}

	e.rebuildHistogram()
	return nil
}

// recomputePCA centers the retained window, decomposes its covariance by
// SVD, and stores the top dims components. Returns false when the
// covariance is effectively rank-zero.
func (e *Estimator) recomputePCA() bool {
	n := len(e.window)
	d := e.featDim

	flat := make([]float64, 0, n*d)
	for _, row := range e.window {
		flat = append(flat, row...)
	}
	x := mat.NewDense(n, d, flat)

	mean := make([]float64, d)
	for j := 0; j < d; j++ {
		mean[j] = stat.Mean(mat.Col(nil, j, x), nil)
	}
	e.mean = mean

	cov := mat.NewSymDense(d, nil)
	stat.CovarianceMatrix(cov, x, nil)

	var svd mat.SVD
	if !svd.Factorize(cov, mat.SVDThin) {
		return false
	}
	values := svd.Values(nil)
	if len(values) == 0 || values[0] < minSingular {
		return false
	}

	var u mat.Dense
	svd.UTo(&u)

	// U has at most d columns; a feature space narrower than dims keeps
	// what exists and leaves the trailing components zero.
	keep := e.dims
	if d < keep {
		keep = d
	}
	basis := make([]float64, d*e.dims)
	for i := 0; i < d; i++ {
		for j := 0; j < keep; j++ {
			basis[i*e.dims+j] = u.At(i, j)
		}
	}
	e.basis = basis
	return true
}

// rebuildHistogram bins the first principal component of the retained
// window into equal-width cells over [min, max].
func (e *Estimator) rebuildHistogram() {
	proj := make([]float64, len(e.window))
	for i, row := range e.window {
		proj[i] = e.projectFirst(row)
	}

	lo, hi := proj[0], proj[0]
	for _, v := range proj[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	// Widen degenerate ranges symmetrically to avoid zero-width bins.
	if hi-lo < degenerateRange {
		lo -= degenerateRange
		hi += degenerateRange
	}

	edges := make([]float64, e.bins+1)
	width := (hi - lo) / float64(e.bins)
	for i := range edges {
		edges[i] = lo + float64(i)*width
	}
	edges[e.bins] = hi // exact upper edge, no accumulation error

	counts := make([]float64, e.bins)
	for _, v := range proj {
		counts[binIndex(edges, v)]++
	}
	total := float64(len(proj))
	probs := make([]float64, e.bins)
	for i, c := range counts {
		probs[i] = c / total
	}

	e.edges = edges
	e.probs = probs
}

// binIndex assigns v to the half-open cell [edge_i, edge_i+1), except the
// last cell which is closed on both ends. v must lie within the edges.
func binIndex(edges []float64, v float64) int {
	bins := len(edges) - 1
	i := sort.SearchFloat64s(edges, v)
	if i < len(edges) && edges[i] == v {
		if i >= bins {
			return bins - 1 // upper boundary belongs to the last cell
		}
		return i
	}
	i--
	if i < 0 {
		return 0
	}
	if i >= bins {
		return bins - 1
	}
	return i
}

// projectFirst maps a raw row onto the first principal component.
func (e *Estimator) projectFirst(row []float64) float64 {
	var sum float64
	for i := 0; i < e.featDim; i++ {
		sum += (row[i] - e.mean[i]) * e.basis[i*e.dims]
	}
	return sum
}

// #endregion fit

// #region histogram

// Histogram returns the current edges and probabilities. ok is false when
// the estimator has never fit or the last window was degenerate.
func (e *Estimator) Histogram() (HistogramView, bool) {
	if len(e.probs) == 0 {
		return HistogramView{}, false
	}
	edges := make([]float64, len(e.edges))
	copy(edges, e.edges)
	probs := make([]float64, len(e.probs))
	copy(probs, e.probs)
	return HistogramView{Edges: edges, Probs: probs}, true
}

// DensityAt projects point into PCA space and returns the estimated
// density at its bin (probability / bin width). Returns 0 when unfit,
// shape-mismatched, or outside the histogram range.
func (e *Estimator) DensityAt(point []float64) float64 {
	if len(e.probs) == 0 || e.basis == nil || len(point) != e.featDim {
		return 0
	}
	v := e.projectFirst(point)
	if v < e.edges[0] || v > e.edges[len(e.edges)-1] {
		return 0
	}
	idx := binIndex(e.edges, v)
	width := e.edges[idx+1] - e.edges[idx]
	if width <= 0 {
		return 0
	}
	return e.probs[idx] / width
}

// WindowLen returns the number of retained sample rows.
func (e *Estimator) WindowLen() int { return len(e.window) }

// #endregion histogram

// #region clone

// Clone returns a deep copy. Used by the controller to stage a batch
// without touching committed state.
func (e *Estimator) Clone() *Estimator {
	cp := &Estimator{
		windowSize:  e.windowSize,
		dims:        e.dims,
		bins:        e.bins,
		featDim:     e.featDim,
		lastUpdated: e.lastUpdated,
	}
	if e.window != nil {
		cp.window = make([][]float64, len(e.window))
		for i, row := range e.window {
			r := make([]float64, len(row))
			copy(r, row)
			cp.window[i] = r
		}
	}
	cp.mean = append([]float64(nil), e.mean...)
	cp.basis = append([]float64(nil), e.basis...)
	cp.edges = append([]float64(nil), e.edges...)
	cp.probs = append([]float64(nil), e.probs...)
	return cp
}

// #endregion clone

// #region snapshot

// Snapshot serializes the derived state as flat numeric buffers. The raw
// window is not included.
func (e *Estimator) Snapshot() Snapshot {
	return Snapshot{
		WindowSize:  e.windowSize,
		Dims:        e.dims,
		Bins:        e.bins,
		FeatureDim:  e.featDim,
		Mean:        append([]float64(nil), e.mean...),
		Basis:       append([]float64(nil), e.basis...),
		Edges:       append([]float64(nil), e.edges...),
		Probs:       append([]float64(nil), e.probs...),
		LastUpdated: e.lastUpdated,
	}
}

// FromSnapshot reconstructs an estimator. The restored window is empty:
// derived histogram/PCA reflect pre-restart history until the next Fit.
func FromSnapshot(s Snapshot) (*Estimator, error) {
	e, err := New(s.WindowSize, s.Bins, s.Dims)
	if err != nil {
		return nil, err
	}
	if s.FeatureDim > 0 && len(s.Basis) != 0 && len(s.Basis) != s.FeatureDim*s.Dims {
		return nil, fmt.Errorf("parzen snapshot: basis has %d values, want %d", len(s.Basis), s.FeatureDim*s.Dims)
	}
	if len(s.Edges) != 0 && len(s.Edges) != s.Bins+1 {
		return nil, fmt.Errorf("parzen snapshot: %d edges, want %d", len(s.Edges), s.Bins+1)
	}
	if len(s.Probs) != 0 && len(s.Probs) != s.Bins {
		return nil, fmt.Errorf("parzen snapshot: %d probs, want %d", len(s.Probs), s.Bins)
	}
	e.featDim = s.FeatureDim
	e.mean = append([]float64(nil), s.Mean...)
	e.basis = append([]float64(nil), s.Basis...)
	e.edges = append([]float64(nil), s.Edges...)
	e.probs = append([]float64(nil), s.Probs...)
	e.lastUpdated = s.LastUpdated
	return e, nil
}

// #endregion snapshot
