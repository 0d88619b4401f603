package telemetry

import (
	"testing"
	"time"
)

type capture struct {
	got []Measurement
}

func (c *capture) Emit(m Measurement) { c.got = append(c.got, m) }

func TestMultiFansOutInOrder(t *testing.T) {
	a := &capture{}
	b := &capture{}
	multi := Multi{a, b, Nop{}}

	m := Measurement{
		BatchID:         "batch-1",
		Iteration:       3,
		BatchSize:       1,
		CandidateCount:  2,
		Duration:        5 * time.Millisecond,
		Chosen:          "x",
		RewardCandidate: "y",
		Distances:       map[string]float64{"x": 0.2, "y": 0.1},
	}
	multi.Emit(m)

	if len(a.got) != 1 || len(b.got) != 1 {
		t.Fatalf("fan-out missed an emitter: %d/%d", len(a.got), len(b.got))
	}
	if a.got[0].BatchID != "batch-1" || b.got[0].RewardCandidate != "y" {
		t.Fatal("measurement fields lost in fan-out")
	}
}

func TestFormatDistancesStableOrder(t *testing.T) {
	d := map[string]float64{"b": 0.5, "a": 0.25, "c": 1}
	first := formatDistances(d)
	for i := 0; i < 10; i++ {
		if formatDistances(d) != first {
			t.Fatal("distance formatting not deterministic")
		}
	}
	if first != "d[a]=0.250000 d[b]=0.500000 d[c]=1.000000" {
		t.Fatalf("unexpected format: %s", first)
	}
}
