package sla

import (
	"errors"
	"math"
	"testing"
)

func mustNew(t *testing.T, arms []string, cfg Config, seed int64) *Selector {
	t.Helper()
	s, err := New(arms, cfg, seed)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func probSum(s *Selector) float64 {
	var sum float64
	for _, p := range s.Probabilities() {
		sum += p
	}
	return sum
}

func TestNewStartsUniform(t *testing.T) {
	s := mustNew(t, []string{"a", "b", "c", "d"}, DefaultConfig(), 1)
	for arm, p := range s.Probabilities() {
		if math.Abs(p-0.25) > 1e-12 {
			t.Fatalf("arm %s starts at %g, want 0.25", arm, p)
		}
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := New(nil, DefaultConfig(), 1); err == nil {
		t.Fatal("expected error on empty arm set")
	}
	if _, err := New([]string{"a", "a"}, DefaultConfig(), 1); err == nil {
		t.Fatal("expected error on duplicate arms")
	}
	if _, err := New([]string{"a"}, Config{Alpha: 0, V: 0.1}, 1); err == nil {
		t.Fatal("expected error on alpha=0")
	}
	if _, err := New([]string{"a"}, Config{Alpha: 0.1, V: 1}, 1); err == nil {
		t.Fatal("expected error on v=1")
	}
}

func TestRewardShiftsMassToWinner(t *testing.T) {
	s := mustNew(t, []string{"a", "b", "c"}, Config{Alpha: 0.2, V: 0.1}, 1)
	before := s.Probabilities()

	if err := s.Update("b", true, 0.01); err != nil {
		t.Fatalf("Update: %v", err)
	}
	after := s.Probabilities()

	if after["b"] <= before["b"] {
		t.Fatalf("winner probability did not increase: %g -> %g", before["b"], after["b"])
	}
	for _, arm := range []string{"a", "c"} {
		if after[arm] >= before[arm] {
			t.Fatalf("loser %s probability did not decrease: %g -> %g", arm, before[arm], after[arm])
		}
	}
	if sum := probSum(s); math.Abs(sum-1) > 1e-6 {
		t.Fatalf("probabilities sum to %.9f after reward", sum)
	}
}

func TestPenaltyRedistributesUniformly(t *testing.T) {
	s := mustNew(t, []string{"a", "b", "c"}, Config{Alpha: 0.2, V: 0.3}, 1)

	if err := s.Update("a", false, 0.9); err != nil {
		t.Fatalf("Update: %v", err)
	}
	after := s.Probabilities()

	// p[a]: 1/3 - 0.3/3; removed mass 0.1 splits 0.05/0.05.
	if math.Abs(after["a"]-(1.0/3-0.1)) > 1e-9 {
		t.Fatalf("penalized arm at %g", after["a"])
	}
	if math.Abs(after["b"]-after["c"]) > 1e-12 {
		t.Fatalf("redistribution not uniform: b=%g c=%g", after["b"], after["c"])
	}
	if sum := probSum(s); math.Abs(sum-1) > 1e-6 {
		t.Fatalf("probabilities sum to %.9f after penalty", sum)
	}
}

func TestUnknownArmRejected(t *testing.T) {
	s := mustNew(t, []string{"a", "b"}, DefaultConfig(), 1)
	err := s.Update("z", true, 0)
	var ua *UnknownArmError
	if !errors.As(err, &ua) {
		t.Fatalf("expected UnknownArmError, got %v", err)
	}
}

func TestSingleArmFixedPoint(t *testing.T) {
	s := mustNew(t, []string{"only"}, DefaultConfig(), 7)
	for i := 0; i < 50; i++ {
		rewarded := i%2 == 0
		if err := s.Update("only", rewarded, 0); err != nil {
			t.Fatalf("Update: %v", err)
		}
		if p := s.Probability("only"); p != 1 {
			t.Fatalf("single arm probability drifted to %g", p)
		}
		if got := s.Choose(); got != "only" {
			t.Fatalf("Choose returned %q", got)
		}
	}
	if s.Iteration() != 50 {
		t.Fatalf("iteration = %d, want 50", s.Iteration())
	}
}

func TestNoNaNUnderRepeatedUpdates(t *testing.T) {
	s := mustNew(t, []string{"a", "b", "c"}, Config{Alpha: 0.9, V: 0.9}, 3)
	for i := 0; i < 2000; i++ {
		arm := s.arms[i%3]
		if err := s.Update(arm, i%5 == 0, 0); err != nil {
			t.Fatalf("Update: %v", err)
		}
		for armName, p := range s.Probabilities() {
			if math.IsNaN(p) || p < 0 {
				t.Fatalf("iteration %d: arm %s has invalid probability %g", i, armName, p)
			}
		}
		if sum := probSum(s); math.Abs(sum-1) > 1e-6 {
			t.Fatalf("iteration %d: sum drifted to %.9f", i, sum)
		}
	}
}

func TestChooseIsDeterministicPerSeed(t *testing.T) {
	run := func(seed int64) []string {
		s := mustNew(t, []string{"a", "b", "c"}, DefaultConfig(), seed)
		out := make([]string, 0, 20)
		for i := 0; i < 20; i++ {
			s.Update("b", true, 0)
			out = append(out, s.Choose())
		}
		return out
	}
	first := run(42)
	second := run(42)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("draw %d diverged under identical seeds: %s vs %s", i, first[i], second[i])
		}
	}
}

func TestChooseConvergesTowardRewardedArm(t *testing.T) {
	s := mustNew(t, []string{"a", "b"}, Config{Alpha: 0.3, V: 0.1}, 9)
	for i := 0; i < 40; i++ {
		s.Update("a", true, 0)
		s.Update("b", false, 0)
	}
	if p := s.Probability("a"); p < 0.99 {
		t.Fatalf("rewarded arm stuck at %g after 40 rounds", p)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := mustNew(t, []string{"a", "b", "c"}, Config{Alpha: 0.2, V: 0.1}, 5)
	for i := 0; i < 10; i++ {
		s.Update("c", true, 0)
		s.Choose()
	}
	snap := s.Snapshot()

	restored, err := FromSnapshot(snap, 5)
	if err != nil {
		t.Fatalf("FromSnapshot: %v", err)
	}
	if restored.Iteration() != s.Iteration() {
		t.Fatalf("iteration %d, want %d", restored.Iteration(), s.Iteration())
	}
	orig := s.Probabilities()
	for arm, p := range restored.Probabilities() {
		if math.Abs(p-orig[arm]) > 1e-12 {
			t.Fatalf("arm %s restored to %g, want %g", arm, p, orig[arm])
		}
	}
}

func TestCloneStagesWithoutCommitting(t *testing.T) {
	s := mustNew(t, []string{"a", "b"}, DefaultConfig(), 11)
	cp := s.Clone()
	cp.Update("a", true, 0)
	cp.Choose()

	if s.Iteration() != 0 {
		t.Fatalf("original iteration advanced to %d", s.Iteration())
	}
	if p := s.Probability("a"); p != 0.5 {
		t.Fatalf("original probabilities mutated: a=%g", p)
	}
}
