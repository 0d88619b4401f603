package metrics

import (
	"errors"
	"math"
	"testing"
)

func TestJSZeroOnIdentical(t *testing.T) {
	p := []float64{0.25, 0.25, 0.5}
	d, err := JS(p, p)
	if err != nil {
		t.Fatalf("JS: %v", err)
	}
	if d != 0 {
		t.Fatalf("expected exact zero on identical vectors, got %g", d)
	}
}

func TestHellingerZeroOnIdentical(t *testing.T) {
	p := []float64{0.1, 0.9}
	d, err := HellingerDistance(p, p)
	if err != nil {
		t.Fatalf("Hellinger: %v", err)
	}
	if d != 0 {
		t.Fatalf("expected exact zero on identical vectors, got %g", d)
	}
}

func TestAllMetricsFiniteWithZeroTerms(t *testing.T) {
	p := []float64{1.0, 0.0}
	q := []float64{0.0, 1.0}
	for _, m := range []Metric{JSDivergence, KLDivergence, Hellinger, CrossEntropy} {
		d, err := m.Compute(p, q)
		if err != nil {
			t.Fatalf("%s: %v", m, err)
		}
		if math.IsNaN(d) || math.IsInf(d, 0) {
			t.Fatalf("%s: non-finite result %g with zero terms", m, d)
		}
		if d < 0 {
			t.Fatalf("%s: negative divergence %g", m, d)
		}
	}
}

func TestLengthMismatch(t *testing.T) {
	p := []float64{0.5, 0.5}
	q := []float64{1.0}
	for _, m := range []Metric{JSDivergence, KLDivergence, Hellinger, CrossEntropy} {
		_, err := m.Compute(p, q)
		var lm *LengthMismatchError
		if !errors.As(err, &lm) {
			t.Fatalf("%s: expected LengthMismatchError, got %v", m, err)
		}
		if lm.LenP != 2 || lm.LenQ != 1 {
			t.Fatalf("%s: wrong lengths recorded: %+v", m, lm)
		}
	}
}

func TestKLIsDirectional(t *testing.T) {
	p := []float64{0.9, 0.1}
	q := []float64{0.5, 0.5}
	pq, _ := KL(p, q)
	qp, _ := KL(q, p)
	if pq == qp {
		t.Fatalf("expected KL(p,q) != KL(q,p), both %g", pq)
	}
}

func TestJSOrdersCloserDistribution(t *testing.T) {
	target := []float64{0.8, 0.2}
	near := []float64{0.82, 0.18}
	far := []float64{0.3, 0.7}

	dNear, _ := JS(near, target)
	dFar, _ := JS(far, target)
	if dNear >= dFar {
		t.Fatalf("expected near < far, got %g >= %g", dNear, dFar)
	}
}

func TestJSBoundedByLn2(t *testing.T) {
	p := []float64{1, 0}
	q := []float64{0, 1}
	d, _ := JS(p, q)
	if d > math.Ln2+1e-9 {
		t.Fatalf("JS exceeded ln(2): %g", d)
	}
}

func TestParseMetricRoundTrip(t *testing.T) {
	for _, m := range []Metric{JSDivergence, KLDivergence, Hellinger, CrossEntropy} {
		parsed, err := ParseMetric(m.String())
		if err != nil {
			t.Fatalf("ParseMetric(%s): %v", m, err)
		}
		if parsed != m {
			t.Fatalf("round trip mismatch: %s -> %s", m, parsed)
		}
	}
	if _, err := ParseMetric("bogus"); err == nil {
		t.Fatal("expected error for unknown metric name")
	}
}

func TestComputeRejectsUnknownMetric(t *testing.T) {
	p := []float64{0.5, 0.5}
	if _, err := Metric(99).Compute(p, p); err == nil {
		t.Fatal("expected error for out-of-range metric value")
	}
}

func TestSymmetricFlag(t *testing.T) {
	if !JSDivergence.Symmetric() || !Hellinger.Symmetric() {
		t.Fatal("JS and Hellinger must report symmetric")
	}
	if KLDivergence.Symmetric() || CrossEntropy.Symmetric() {
		t.Fatal("KL and cross-entropy must not report symmetric")
	}
}
