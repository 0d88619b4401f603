package eval

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/adaptive-select/go-controller/internal/controller"
)

// #region eval-harness
// EvalHarness runs lightweight post-batch invariant checks on controller
// state. It validates the guarantees the control loop promises rather
// than re-deriving the batch: selector simplex, histogram mass, counter
// sanity.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// Run checks one controller state view. Single pass, no side effects.
func (h *EvalHarness) Run(state controller.Snapshot) EvalResult {
	var metrics []EvalMetric
	passed := true
	var failReasons []string

	// 1. Selector simplex: probabilities non-negative, summing to 1.
	var probSum float64
	minProb := math.Inf(1)
	for _, p := range state.Selector.Probabilities {
		probSum += p
		if p < minProb {
			minProb = p
		}
	}
	sumPass := math.Abs(probSum-1) <= h.config.ProbabilityTolerance
	metrics = append(metrics, EvalMetric{Name: "probability_sum", Value: probSum, Pass: sumPass})
	if !sumPass {
		passed = false
		failReasons = append(failReasons, fmt.Sprintf("probability sum %.9f outside 1±%g", probSum, h.config.ProbabilityTolerance))
	}
	negPass := minProb >= 0
	metrics = append(metrics, EvalMetric{Name: "probability_min", Value: minProb, Pass: negPass})
	if !negPass {
		passed = false
		failReasons = append(failReasons, fmt.Sprintf("negative probability %.9f", minProb))
	}

	// 2. Histogram mass per candidate, when a histogram is defined.
	for _, id := range state.Candidates {
		est, ok := state.Estimators[id]
		if !ok || len(est.Probs) == 0 {
			continue
		}
		var mass float64
		for _, p := range est.Probs {
			mass += p
		}
		massPass := math.Abs(mass-1) <= h.config.HistogramTolerance
		metrics = append(metrics, EvalMetric{
			Name:  fmt.Sprintf("histogram_mass_%s", id),
			Value: mass,
			Pass:  massPass,
		})
		if !massPass {
			passed = false
			failReasons = append(failReasons, fmt.Sprintf("%s histogram mass %.12f outside 1±%g", id, mass, h.config.HistogramTolerance))
		}
	}

	// 3. Iteration counter never regresses below zero.
	iterPass := state.Iteration >= 0 && state.Selector.Iteration == state.Iteration
	metrics = append(metrics, EvalMetric{Name: "iteration", Value: float64(state.Iteration), Pass: iterPass})
	if !iterPass {
		passed = false
		failReasons = append(failReasons, fmt.Sprintf("iteration %d disagrees with selector iteration %d", state.Iteration, state.Selector.Iteration))
	}

	reason := "all checks passed"
	if !passed {
		reason = fmt.Sprintf("eval failed: %s", failReasons[0])
		if len(failReasons) > 1 {
			reason = fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
		}
	}

	return EvalResult{
		Passed:  passed,
		Metrics: metrics,
		Reason:  reason,
	}
}

// #endregion eval-harness
