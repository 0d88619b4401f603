package eval

import (
	"testing"

	"github.com/danielpatrickdp/adaptive-select/go-controller/internal/controller"
	"github.com/danielpatrickdp/adaptive-select/go-controller/internal/parzen"
	"github.com/danielpatrickdp/adaptive-select/go-controller/internal/sla"
)

func makeState(probs []float64, iteration int) controller.Snapshot {
	arms := make([]string, len(probs))
	for i := range arms {
		arms[i] = string(rune('a' + i))
	}
	return controller.Snapshot{
		Candidates: arms,
		Metric:     "js_divergence",
		Iteration:  iteration,
		Estimators: map[string]parzen.Snapshot{},
		Selector: sla.Snapshot{
			Arms:          arms,
			Probabilities: probs,
			Alpha:         0.1,
			V:             0.05,
			Iteration:     iteration,
		},
	}
}

func TestEvalPassesOnUniformState(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	result := h.Run(makeState([]float64{0.5, 0.5}, 0))

	if !result.Passed {
		t.Fatalf("expected pass on uniform state, got fail: %s", result.Reason)
	}
	if len(result.Metrics) == 0 {
		t.Fatal("expected metrics")
	}
}

func TestEvalFailsOnBrokenSimplex(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	result := h.Run(makeState([]float64{0.7, 0.7}, 3))

	if result.Passed {
		t.Fatal("expected fail when probabilities sum to 1.4")
	}
	foundFail := false
	for _, m := range result.Metrics {
		if m.Name == "probability_sum" && !m.Pass {
			foundFail = true
		}
	}
	if !foundFail {
		t.Fatal("expected probability_sum metric to fail")
	}
}

func TestEvalFailsOnNegativeProbability(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	result := h.Run(makeState([]float64{1.2, -0.2}, 1))

	if result.Passed {
		t.Fatal("expected fail on negative probability")
	}
}

func TestEvalChecksHistogramMass(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	st := makeState([]float64{0.5, 0.5}, 2)
	st.Estimators["a"] = parzen.Snapshot{
		WindowSize: 16, Dims: 1, Bins: 2,
		Edges: []float64{0, 0.5, 1},
		Probs: []float64{0.6, 0.3}, // mass 0.9
	}

	result := h.Run(st)
	if result.Passed {
		t.Fatalf("expected fail on histogram mass 0.9: %s", result.Reason)
	}
}

func TestEvalSkipsUnfitEstimators(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	st := makeState([]float64{0.5, 0.5}, 0)
	st.Estimators["a"] = parzen.Snapshot{WindowSize: 16, Dims: 1, Bins: 8}

	result := h.Run(st)
	if !result.Passed {
		t.Fatalf("unfit estimator must not fail eval: %s", result.Reason)
	}
}

func TestEvalFailsOnIterationDisagreement(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	st := makeState([]float64{0.5, 0.5}, 4)
	st.Selector.Iteration = 9

	result := h.Run(st)
	if result.Passed {
		t.Fatal("expected fail when controller and selector iterations disagree")
	}
}
