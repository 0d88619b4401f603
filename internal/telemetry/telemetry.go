// Package telemetry carries per-batch measurements out of the control
// loop. The core only defines the Measurement shape and a few local
// emitters; wiring to an external pipeline is a caller concern.
package telemetry

import (
	"fmt"
	"log"
	"sort"
	"strings"
)

// #region nop

// Nop discards all measurements.
type Nop struct{}

func (Nop) Emit(Measurement) {}

// #endregion nop

// #region log-emitter

// LogEmitter writes one line per batch to the standard logger.
type LogEmitter struct{}

func (LogEmitter) Emit(m Measurement) {
	log.Printf("[TELEM] batch=%s iter=%d size=%d candidates=%d chosen=%s reward=%s dur=%s %s",
		m.BatchID, m.Iteration, m.BatchSize, m.CandidateCount,
		m.Chosen, m.RewardCandidate, m.Duration, formatDistances(m.Distances))
}

func formatDistances(d map[string]float64) string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("d[%s]=%.6f", k, d[k]))
	}
	return strings.Join(parts, " ")
}

// #endregion log-emitter

// #region multi

// Multi fans one measurement out to several emitters in order.
type Multi []Emitter

func (m Multi) Emit(meas Measurement) {
	for _, e := range m {
		e.Emit(meas)
	}
}

// #endregion multi
