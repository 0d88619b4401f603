// Package controller implements the single-writer control loop that
// adapts a probability distribution over candidate models. Per batch it
// updates every candidate's density estimator, scores each candidate's
// fit to the target, rewards the closest candidate through the learning
// automaton, and samples the next preferred candidate.
package controller

import (
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/adaptive-select/go-controller/internal/metrics"
	"github.com/danielpatrickdp/adaptive-select/go-controller/internal/parzen"
	"github.com/danielpatrickdp/adaptive-select/go-controller/internal/sla"
	"github.com/danielpatrickdp/adaptive-select/go-controller/internal/telemetry"
)

// #region controller-struct

// Controller owns one density estimator per candidate plus the learning
// automaton. All mutating calls serialize on an internal mutex: batches
// commit strictly one at a time, in submission order.
type Controller struct {
	mu sync.Mutex

	candidates []string
	metric     metrics.Metric
	windowSize int
	bins       int
	dims       int
	metadata   map[string]string

	classDim   int // bound by the first committed batch, 0 until then
	estimators map[string]*parzen.Estimator
	selector   *sla.Selector
	iteration  int
	lastReward float64

	emitter telemetry.Emitter
}

// New constructs a controller for a fixed candidate set. emitter may be
// nil. Construction is the only fatal error path; per-batch failures
// never invalidate a controller.
func New(cfg Config, emitter telemetry.Emitter) (*Controller, error) {
	if len(cfg.Candidates) == 0 {
		return nil, &ConfigError{Reason: "at least one candidate required"}
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	selector, err := sla.New(cfg.Candidates, cfg.SLA, seed)
	if err != nil {
		return nil, &ConfigError{Reason: err.Error()}
	}

	estimators := make(map[string]*parzen.Estimator, len(cfg.Candidates))
	for _, id := range cfg.Candidates {
		est, err := parzen.New(cfg.WindowSize, cfg.Bins, cfg.Dims)
		if err != nil {
			return nil, &ConfigError{Reason: err.Error()}
		}
		estimators[id] = est
	}

	if emitter == nil {
		emitter = telemetry.Nop{}
	}
	meta := make(map[string]string, len(cfg.Metadata))
	for k, v := range cfg.Metadata {
		meta[k] = v
	}

	return &Controller{
		candidates: append([]string(nil), cfg.Candidates...),
		metric:     cfg.Metric,
		windowSize: cfg.WindowSize,
		bins:       cfg.Bins,
		dims:       cfg.Dims,
		metadata:   meta,
		estimators: estimators,
		selector:   selector,
		emitter:    emitter,
	}, nil
}

// #endregion controller-struct

// #region process-batch

// ProcessBatch runs one control-loop step. Validation failures return
// before any mutation; numerical failures inside the step degrade
// locally; the commit at the end is all-or-nothing.
func (c *Controller) ProcessBatch(batch Batch) (Decision, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()

	if err := c.validate(batch); err != nil {
		return Decision{}, err
	}

	// Stage estimator updates on clones so a mid-step failure can never
	// leave committed state half-written.
	staged := make(map[string]*parzen.Estimator, len(c.candidates))
	for _, id := range c.candidates {
		est := c.estimators[id].Clone()
		if err := est.Fit(batch.Outputs[id]); err != nil {
			// Absorbed: the estimator degrades, the loop never stalls.
			log.Printf("[CTRL] estimator %s degraded this batch: %v", id, err)
		}
		staged[id] = est
	}

	// Score each candidate's raw output against the raw target. The
	// estimator tracks long-run drift independently of this score.
	distances := make(map[string]float64, len(c.candidates))
	for _, id := range c.candidates {
		distances[id] = c.score(batch.Outputs[id], batch.Target)
	}

	// Arg-min distance wins the reward. Ties break to the first
	// candidate in configured order.
	winner := c.candidates[0]
	best := distances[winner]
	for _, id := range c.candidates[1:] {
		if distances[id] < best {
			winner, best = id, distances[id]
		}
	}

	sel := c.selector.Clone()
	for _, id := range c.candidates {
		if err := sel.Update(id, id == winner, distances[id]); err != nil {
			log.Printf("[CTRL] sla update %s: %v", id, err)
		}
	}
	chosen := sel.Choose()

	decision := Decision{
		BatchID:         uuid.New().String(),
		Chosen:          chosen,
		RewardCandidate: winner,
		Probabilities:   sel.Probabilities(),
		Distances:       distances,
		Iteration:       sel.Iteration(),
		Duration:        time.Since(start),
	}

	// Commit: whole-state replacement in one step.
	c.estimators = staged
	c.selector = sel
	c.iteration = sel.Iteration()
	c.lastReward = -distances[winner]
	c.classDim = len(batch.Target[0])

	c.emitter.Emit(telemetry.Measurement{
		BatchID:         decision.BatchID,
		Iteration:       decision.Iteration,
		BatchSize:       len(batch.Target),
		CandidateCount:  len(c.candidates),
		Duration:        decision.Duration,
		Chosen:          decision.Chosen,
		RewardCandidate: decision.RewardCandidate,
		Distances:       decision.Distances,
	})

	return decision, nil
}

// score averages row-wise metric distances between output and target.
// Shapes were validated; any residual metric failure degrades to +Inf so
// a broken candidate can never win the reward.
func (c *Controller) score(output, target Rows) float64 {
	var sum float64
	for r := range target {
		d, err := c.metric.Compute(output[r], target[r])
		if err != nil {
			return math.Inf(1)
		}
		sum += d
	}
	return sum / float64(len(target))
}

// #endregion process-batch

// #region validate

// validate checks a batch against the configured candidate set and the
// target's shape. It reads committed state but never writes it.
func (c *Controller) validate(batch Batch) error {
	if len(batch.Outputs) == 0 {
		return &InvalidBatchError{Reason: "no outputs"}
	}
	if len(batch.Target) == 0 {
		return &InvalidTargetError{Reason: "empty target"}
	}
	cols := len(batch.Target[0])
	if cols == 0 {
		return &InvalidTargetError{Reason: "empty target row"}
	}
	for _, row := range batch.Target {
		if len(row) != cols {
			return &InvalidTargetError{Reason: "ragged target rows"}
		}
		for _, v := range row {
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return &InvalidTargetError{Reason: "target values must be finite and non-negative"}
			}
		}
	}
	if c.classDim != 0 && cols != c.classDim {
		return &InvalidTargetError{
			Reason: fmt.Sprintf("target class dimension %d conflicts with bound dimension %d", cols, c.classDim),
		}
	}

	var missing []string
	for _, id := range c.candidates {
		if _, ok := batch.Outputs[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return &MissingCandidateOutputError{Candidates: missing}
	}
	for id := range batch.Outputs {
		if !c.isCandidate(id) {
			return &InvalidBatchError{Reason: "output for unknown candidate " + id}
		}
	}

	for _, id := range c.candidates {
		out := batch.Outputs[id]
		if len(out) != len(batch.Target) {
			return &ShapeMismatchError{
				Candidate: id,
				GotRows:   len(out), GotCols: rowCols(out),
				WantRows: len(batch.Target), WantCols: cols,
			}
		}
		for _, row := range out {
			if len(row) != cols {
				return &ShapeMismatchError{
					Candidate: id,
					GotRows:   len(out), GotCols: len(row),
					WantRows: len(batch.Target), WantCols: cols,
				}
			}
			for _, v := range row {
				if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
					return &InvalidBatchError{Reason: "candidate " + id + " output must be finite and non-negative"}
				}
			}
		}
	}
	return nil
}

func (c *Controller) isCandidate(id string) bool {
	for _, cand := range c.candidates {
		if cand == id {
			return true
		}
	}
	return false
}

func rowCols(r Rows) int {
	if len(r) == 0 {
		return 0
	}
	return len(r[0])
}

// #endregion validate

// #region accessors

// Candidates returns the immutable candidate set in configured order.
func (c *Controller) Candidates() []string {
	return append([]string(nil), c.candidates...)
}

// Iteration returns the global iteration counter.
func (c *Controller) Iteration() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.iteration
}

// LastReward returns the negated distance of the last reward candidate
// (smaller distance means larger reward).
func (c *Controller) LastReward() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastReward
}

// State exposes the full internal state for inspection as a pure copy.
func (c *Controller) State() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// #endregion accessors

// #region snapshot

// Snapshot serializes the whole controller state for persistence.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	ests := make(map[string]parzen.Snapshot, len(c.estimators))
	for id, est := range c.estimators {
		ests[id] = est.Snapshot()
	}
	meta := make(map[string]string, len(c.metadata))
	for k, v := range c.metadata {
		meta[k] = v
	}
	return Snapshot{
		Candidates: append([]string(nil), c.candidates...),
		Metric:     c.metric.String(),
		WindowSize: c.windowSize,
		Bins:       c.bins,
		Dims:       c.dims,
		ClassDim:   c.classDim,
		Iteration:  c.iteration,
		LastReward: c.lastReward,
		Metadata:   meta,
		Estimators: ests,
		Selector:   c.selector.Snapshot(),
	}
}

// FromSnapshot reconstructs a controller value from a snapshot. It never
// resumes a live process: the caller owns starting the result. seed
// replays the sampling stream; pass 0 for a fresh wall-clock seed.
func FromSnapshot(snap Snapshot, seed int64, emitter telemetry.Emitter) (*Controller, error) {
	metric, err := metrics.ParseMetric(snap.Metric)
	if err != nil {
		return nil, &ConfigError{Reason: err.Error()}
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	selector, err := sla.FromSnapshot(snap.Selector, seed)
	if err != nil {
		return nil, &ConfigError{Reason: err.Error()}
	}

	estimators := make(map[string]*parzen.Estimator, len(snap.Candidates))
	for _, id := range snap.Candidates {
		psnap, ok := snap.Estimators[id]
		if !ok {
			return nil, &ConfigError{Reason: "snapshot missing estimator for candidate " + id}
		}
		est, err := parzen.FromSnapshot(psnap)
		if err != nil {
			return nil, &ConfigError{Reason: err.Error()}
		}
		estimators[id] = est
	}

	if emitter == nil {
		emitter = telemetry.Nop{}
	}
	meta := make(map[string]string, len(snap.Metadata))
	for k, v := range snap.Metadata {
		meta[k] = v
	}

	return &Controller{
		candidates: append([]string(nil), snap.Candidates...),
		metric:     metric,
		windowSize: snap.WindowSize,
		bins:       snap.Bins,
		dims:       snap.Dims,
		metadata:   meta,
		classDim:   snap.ClassDim,
		estimators: estimators,
		selector:   selector,
		iteration:  snap.Iteration,
		lastReward: snap.LastReward,
		emitter:    emitter,
	}, nil
}

// #endregion snapshot
