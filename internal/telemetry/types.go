package telemetry

import "time"

// #region measurement

// Measurement is one batch's worth of structured observability data.
// The core emits these; transport to an external pipeline is up to the
// configured Emitter.
type Measurement struct {
	BatchID         string
	Iteration       int
	BatchSize       int // rows in the target
	CandidateCount  int
	Duration        time.Duration
	Chosen          string
	RewardCandidate string
	Distances       map[string]float64
}

// #endregion measurement

// #region emitter-interface

// Emitter receives measurements from the controller. Implementations
// must not block: the controller calls Emit inside its serialized batch
// path.
type Emitter interface {
	Emit(m Measurement)
}

// #endregion emitter-interface
