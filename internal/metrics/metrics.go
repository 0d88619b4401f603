// Package metrics provides pure statistical divergence functions between
// two distribution-like vectors. All functions clamp zero terms inside
// logarithms with a small epsilon so results stay finite.
package metrics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// epsilon guards log terms against zero probabilities.
const epsilon = 1e-10

// #region dispatch

// Compute evaluates the metric between p and q.
func (m Metric) Compute(p, q []float64) (float64, error) {
	switch m {
	case JSDivergence:
		return JS(p, q)
	case KLDivergence:
		return KL(p, q)
	case Hellinger:
		return HellingerDistance(p, q)
	case CrossEntropy:
		return CrossEntropyLoss(p, q)
	default:
		return 0, fmt.Errorf("unknown metric %s", m)
	}
}

// #endregion dispatch

// #region kl

// KL computes the Kullback-Leibler divergence KL(p || q).
// Directional: KL(p, q) != KL(q, p) in general.
func KL(p, q []float64) (float64, error) {
	if len(p) != len(q) {
		return 0, &LengthMismatchError{LenP: len(p), LenQ: len(q)}
	}
	var sum float64
	for i := range p {
		if p[i] <= 0 {
			continue // 0*log(0) term contributes nothing
		}
		sum += p[i] * math.Log(p[i]/math.Max(q[i], epsilon))
	}
	if sum < 0 {
		sum = 0 // epsilon clamping can push slightly negative
	}
	return sum, nil
}

// #endregion kl

// #region js

// JS computes the Jensen-Shannon divergence between p and q.
// Symmetric, bounded by ln(2), zero exactly when p == q.
func JS(p, q []float64) (float64, error) {
	if len(p) != len(q) {
		return 0, &LengthMismatchError{LenP: len(p), LenQ: len(q)}
	}
	m := make([]float64, len(p))
	floats.AddTo(m, p, q)
	floats.Scale(0.5, m)

	left, err := KL(p, m)
	if err != nil {
		return 0, err
	}
	right, err := KL(q, m)
	if err != nil {
		return 0, err
	}
	return 0.5*left + 0.5*right, nil
}

// #endregion js

// #region hellinger

// HellingerDistance computes the Hellinger distance between p and q.
// Symmetric, in [0, 1] for probability vectors, zero exactly when p == q.
func HellingerDistance(p, q []float64) (float64, error) {
	if len(p) != len(q) {
		return 0, &LengthMismatchError{LenP: len(p), LenQ: len(q)}
	}
	var sum float64
	for i := range p {
		d := math.Sqrt(math.Max(p[i], 0)) - math.Sqrt(math.Max(q[i], 0))
		sum += d * d
	}
	return math.Sqrt(sum / 2), nil
}

// #endregion hellinger

// #region cross-entropy

// CrossEntropyLoss computes H(p, q) = -sum p_i * log(q_i).
// Directional; not a distance. Minimized (given p) when q == p.
func CrossEntropyLoss(p, q []float64) (float64, error) {
	if len(p) != len(q) {
		return 0, &LengthMismatchError{LenP: len(p), LenQ: len(q)}
	}
	var sum float64
	for i := range p {
		if p[i] <= 0 {
			continue
		}
		sum -= p[i] * math.Log(math.Max(q[i], epsilon))
	}
	return sum, nil
}

// #endregion cross-entropy
