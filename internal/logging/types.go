package logging

import "time"

// #region decision-entry
// DecisionEntry is a single row in the decision_log table: one committed
// batch with the decision it produced. BatchJSON retains the raw batch so
// recorded runs can be exported as replay fixtures.
type DecisionEntry struct {
	VersionID         string // snapshot version committed after this batch
	BatchID           string
	Iteration         int
	Chosen            string
	RewardCandidate   string
	DistancesJSON     string
	ProbabilitiesJSON string
	BatchJSON         string
	CreatedAt         time.Time
}

// #endregion decision-entry
