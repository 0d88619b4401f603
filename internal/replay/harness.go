package replay

import (
	"fmt"

	"github.com/danielpatrickdp/adaptive-select/go-controller/internal/controller"
	"github.com/danielpatrickdp/adaptive-select/go-controller/internal/eval"
)

// #region types
// ReplayResult captures the outcome of replaying one batch.
type ReplayResult struct {
	Index    int
	Decision controller.Decision
	Err      error

	// Mismatch is set when the fixture carried an expectation for this
	// batch and the replayed decision disagrees with it.
	Mismatch string

	// Eval holds the post-batch invariant check (nil when the batch
	// failed validation).
	Eval *eval.EvalResult
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalBatches   int
	Committed      int
	Failed         int
	Mismatches     int
	EvalFailures   int
	FinalState     controller.Snapshot
	FinalIteration int
}

// #endregion types

// #region replay
// Replay runs every fixture batch through a fresh controller built from
// the fixture config, checking invariants after each commit and
// comparing against the fixture's expected decisions. Operates entirely
// in-memory with the fixture's fixed seed, so two runs of the same
// fixture produce identical decision sequences.
func Replay(f *Fixture) ([]ReplayResult, ReplaySummary, error) {
	cfg, err := f.Config.ToControllerConfig()
	if err != nil {
		return nil, ReplaySummary{}, err
	}
	ctrl, err := controller.New(cfg, nil)
	if err != nil {
		return nil, ReplaySummary{}, err
	}
	harness := eval.NewEvalHarness(eval.DefaultEvalConfig())

	results := make([]ReplayResult, 0, len(f.Batches))
	for i, batch := range f.Batches {
		res := ReplayResult{Index: i}

		decision, err := ctrl.ProcessBatch(batch)
		if err != nil {
			res.Err = err
			results = append(results, res)
			continue
		}
		res.Decision = decision

		evalResult := harness.Run(ctrl.State())
		res.Eval = &evalResult

		if i < len(f.ExpectedResults) {
			res.Mismatch = compare(f.ExpectedResults[i], decision)
		}
		results = append(results, res)
	}

	summary := Summarize(results, ctrl.State())
	return results, summary, nil
}

// compare reports the first disagreement between expectation and
// decision, or "" when they agree.
func compare(want FixtureExpectedResult, got controller.Decision) string {
	if want.Iteration != 0 && want.Iteration != got.Iteration {
		return fmt.Sprintf("iteration: want %d, got %d", want.Iteration, got.Iteration)
	}
	if want.Chosen != "" && want.Chosen != got.Chosen {
		return fmt.Sprintf("chosen: want %s, got %s", want.Chosen, got.Chosen)
	}
	if want.RewardCandidate != "" && want.RewardCandidate != got.RewardCandidate {
		return fmt.Sprintf("reward: want %s, got %s", want.RewardCandidate, got.RewardCandidate)
	}
	return ""
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult, finalState controller.Snapshot) ReplaySummary {
	s := ReplaySummary{
		TotalBatches:   len(results),
		FinalState:     finalState,
		FinalIteration: finalState.Iteration,
	}
	for _, r := range results {
		switch {
		case r.Err != nil:
			s.Failed++
		default:
			s.Committed++
		}
		if r.Mismatch != "" {
			s.Mismatches++
		}
		if r.Eval != nil && !r.Eval.Passed {
			s.EvalFailures++
		}
	}
	return s
}

// #endregion replay
