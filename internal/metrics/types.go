package metrics

import "fmt"

// #region metric-enum

// Metric identifies one of the supported divergence functions.
type Metric int

const (
	JSDivergence Metric = iota
	KLDivergence
	Hellinger
	CrossEntropy
)

// String returns the wire name of the metric.
func (m Metric) String() string {
	switch m {
	case JSDivergence:
		return "js_divergence"
	case KLDivergence:
		return "kl_divergence"
	case Hellinger:
		return "hellinger"
	case CrossEntropy:
		return "cross_entropy"
	default:
		return fmt.Sprintf("metric(%d)", int(m))
	}
}

// ParseMetric maps a wire name back to a Metric.
func ParseMetric(s string) (Metric, error) {
	switch s {
	case "js_divergence", "js":
		return JSDivergence, nil
	case "kl_divergence", "kl":
		return KLDivergence, nil
	case "hellinger":
		return Hellinger, nil
	case "cross_entropy":
		return CrossEntropy, nil
	default:
		return 0, fmt.Errorf("unknown metric %q", s)
	}
}

// Symmetric reports whether the metric is zero exactly when p == q.
// Only symmetric metrics are safe for equality-style tie-breaking.
func (m Metric) Symmetric() bool {
	return m == JSDivergence || m == Hellinger
}

// #endregion metric-enum

// #region errors

// LengthMismatchError is returned when the two vectors differ in length.
type LengthMismatchError struct {
	LenP int
	LenQ int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("distribution length mismatch: %d vs %d", e.LenP, e.LenQ)
}

// #endregion errors
