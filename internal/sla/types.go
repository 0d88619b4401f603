package sla

import "fmt"

// #region errors

// UnknownArmError is returned when an update names an arm outside the
// automaton's fixed action set.
type UnknownArmError struct {
	Arm string
}

func (e *UnknownArmError) Error() string {
	return fmt.Sprintf("sla: unknown arm %q", e.Arm)
}

// #endregion errors

// #region config

// Config holds the automaton's learning parameters.
type Config struct {
	Alpha float64 // reward learning rate, (0, 1)
	V     float64 // penalty rate, [0, 1)
}

// DefaultConfig returns the rates used by the reference control loop.
func DefaultConfig() Config {
	return Config{Alpha: 0.1, V: 0.05}
}

// #endregion config

// #region snapshot

// Snapshot is the serializable form of a Selector.
type Snapshot struct {
	Arms          []string  `json:"arms"`
	Probabilities []float64 `json:"probabilities"` // aligned with Arms
	Alpha         float64   `json:"alpha"`
	V             float64   `json:"v"`
	Iteration     int       `json:"iteration"`
}

// #endregion snapshot
