// Package sla implements a linear reward-penalty stochastic learning
// automaton (L_{R-P}) over a fixed discrete action set. The automaton
// holds a probability vector over arms, adapts it from binary
// reward/penalty signals, and samples the next action by inverse-CDF.
package sla

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// #region selector

// Selector is the automaton state. Not safe for concurrent use; the
// owning controller serializes all access.
type Selector struct {
	arms  []string
	index map[string]int
	probs []float64 // aligned with arms, non-negative, sums to 1
	cfg   Config

	iteration int
	rng       *rand.Rand
}

// New creates a Selector with uniform probabilities over arms.
// seed fixes the sampling stream; use the same seed to replay a run.
func New(arms []string, cfg Config, seed int64) (*Selector, error) {
	if len(arms) == 0 {
		return nil, fmt.Errorf("sla: empty arm set")
	}
	if cfg.Alpha <= 0 || cfg.Alpha >= 1 {
		return nil, fmt.Errorf("sla: alpha %g outside (0, 1)", cfg.Alpha)
	}
	if cfg.V < 0 || cfg.V >= 1 {
		return nil, fmt.Errorf("sla: v %g outside [0, 1)", cfg.V)
	}

	index := make(map[string]int, len(arms))
	owned := make([]string, len(arms))
	for i, a := range arms {
		if _, dup := index[a]; dup {
			return nil, fmt.Errorf("sla: duplicate arm %q", a)
		}
		index[a] = i
		owned[i] = a
	}

	probs := make([]float64, len(arms))
	uniform := 1.0 / float64(len(arms))
	for i := range probs {
		probs[i] = uniform
	}

	return &Selector{
		arms:  owned,
		index: index,
		probs: probs,
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(seed)),
	}, nil
}

// Arms returns the fixed action set in configured order.
func (s *Selector) Arms() []string {
	return append([]string(nil), s.arms...)
}

// Iteration returns the number of Choose calls so far.
func (s *Selector) Iteration() int { return s.iteration }

// #endregion selector

// #region update

// Update applies one reward (rewarded=true) or penalty step for arm.
// meta carries an observability-only value (typically the distance that
// produced the signal); it never affects the math.
//
// Reward:  p[arm] += alpha*(1-p[arm]); p[j] -= alpha*p[j] for j != arm.
// Penalty: p[arm] -= v*p[arm]; the removed mass spreads uniformly over
// the other N-1 arms. Single-arm sets are a fixed point at 1.0.
func (s *Selector) Update(arm string, rewarded bool, meta float64) error {
	_ = meta
	i, ok := s.index[arm]
	if !ok {
		return &UnknownArmError{Arm: arm}
	}
	n := len(s.arms)
	if n == 1 {
		s.probs[0] = 1
		return nil
	}

	if rewarded {
		for j := range s.probs {
			if j == i {
				s.probs[j] += s.cfg.Alpha * (1 - s.probs[j])
			} else {
				s.probs[j] -= s.cfg.Alpha * s.probs[j]
			}
		}
	} else {
		removed := s.cfg.V * s.probs[i]
		s.probs[i] -= removed
		share := removed / float64(n-1)
		for j := range s.probs {
			if j != i {
				s.probs[j] += share
			}
		}
	}

	s.renormalize()
	return nil
}

// renormalize absorbs floating-point drift after every update, clamping
// any negative mass and restoring the simplex. A fully collapsed vector
// resets to uniform so no update can ever produce NaN.
func (s *Selector) renormalize() {
	for i, p := range s.probs {
		if p < 0 || math.IsNaN(p) {
			s.probs[i] = 0
		}
	}
	total := floats.Sum(s.probs)
	if total <= 0 {
		uniform := 1.0 / float64(len(s.probs))
		for i := range s.probs {
			s.probs[i] = uniform
		}
		return
	}
	floats.Scale(1/total, s.probs)
}

// #endregion update

// #region choose

// Choose draws the next arm by inverse-CDF sampling over the current
// probabilities using a single uniform draw, and increments the
// iteration counter.
func (s *Selector) Choose() string {
	u := s.rng.Float64()
	s.iteration++

	var cum float64
	for i, p := range s.probs {
		cum += p
		if u < cum {
			return s.arms[i]
		}
	}
	// u landed in residual drift past the last cumulative edge.
	return s.arms[len(s.arms)-1]
}

// #endregion choose

// #region accessors

// Probabilities returns a copy of the probability map keyed by arm.
func (s *Selector) Probabilities() map[string]float64 {
	out := make(map[string]float64, len(s.arms))
	for i, a := range s.arms {
		out[a] = s.probs[i]
	}
	return out
}

// Probability returns a single arm's probability (0 for unknown arms).
func (s *Selector) Probability(arm string) float64 {
	if i, ok := s.index[arm]; ok {
		return s.probs[i]
	}
	return 0
}

// #endregion accessors

// #region clone

// Clone returns a deep copy sharing the random stream. The shared stream
// is intentional: the controller stages updates on a clone and commits
// it, so exactly one draw advances the stream per committed batch.
func (s *Selector) Clone() *Selector {
	cp := &Selector{
		arms:      s.arms, // immutable after construction
		index:     s.index,
		probs:     append([]float64(nil), s.probs...),
		cfg:       s.cfg,
		iteration: s.iteration,
		rng:       s.rng,
	}
	return cp
}

// #endregion clone

// #region snapshot

// Snapshot serializes the automaton. The random stream position is not
// captured; restoring resumes from the configured seed.
func (s *Selector) Snapshot() Snapshot {
	return Snapshot{
		Arms:          append([]string(nil), s.arms...),
		Probabilities: append([]float64(nil), s.probs...),
		Alpha:         s.cfg.Alpha,
		V:             s.cfg.V,
		Iteration:     s.iteration,
	}
}

// FromSnapshot reconstructs a Selector with the given sampling seed.
func FromSnapshot(snap Snapshot, seed int64) (*Selector, error) {
	s, err := New(snap.Arms, Config{Alpha: snap.Alpha, V: snap.V}, seed)
	if err != nil {
		return nil, err
	}
	if len(snap.Probabilities) != len(snap.Arms) {
		return nil, fmt.Errorf("sla snapshot: %d probabilities for %d arms",
			len(snap.Probabilities), len(snap.Arms))
	}
	copy(s.probs, snap.Probabilities)
	s.renormalize()
	s.iteration = snap.Iteration
	return s, nil
}

// #endregion snapshot
