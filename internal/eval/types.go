package eval

// #region eval-config
// EvalConfig holds tolerances for post-batch invariant checks.
type EvalConfig struct {
	ProbabilityTolerance float64 // simplex sum tolerance for selector probabilities
	HistogramTolerance   float64 // mass tolerance for estimator histograms
}

// DefaultEvalConfig returns the tolerances the control loop guarantees.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		ProbabilityTolerance: 1e-6,
		HistogramTolerance:   1e-9,
	}
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures a single validation check result.
type EvalMetric struct {
	Name  string
	Value float64
	Pass  bool
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the output of one invariant pass over controller state.
type EvalResult struct {
	Passed  bool
	Metrics []EvalMetric
	Reason  string
}

// #endregion eval-result
