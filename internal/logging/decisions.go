package logging

import (
	"database/sql"
	"fmt"
	"time"
)

// #region schema
const decisionLogSchema = `
CREATE TABLE IF NOT EXISTS decision_log (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	version_id         TEXT NOT NULL,
	batch_id           TEXT NOT NULL,
	iteration          INTEGER NOT NULL,
	chosen             TEXT NOT NULL,
	reward_candidate   TEXT NOT NULL,
	distances_json     TEXT,
	probabilities_json TEXT,
	batch_json         TEXT,
	created_at         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_decision_log_iteration ON decision_log(iteration);
`
// #endregion schema

// #region ensure-schema
// EnsureSchema creates the decision_log table if needed.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(decisionLogSchema); err != nil {
		return fmt.Errorf("create decision_log: %w", err)
	}
	return nil
}
// #endregion ensure-schema

// #region log-decision
// LogDecision writes one decision entry to the decision_log table.
func LogDecision(db *sql.DB, entry DecisionEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO decision_log (version_id, batch_id, iteration, chosen, reward_candidate,
		 distances_json, probabilities_json, batch_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.VersionID,
		entry.BatchID,
		entry.Iteration,
		entry.Chosen,
		entry.RewardCandidate,
		nullIfEmpty(entry.DistancesJSON),
		nullIfEmpty(entry.ProbabilitiesJSON),
		nullIfEmpty(entry.BatchJSON),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}
// #endregion log-decision

// #region list-decisions
// ListDecisions returns decision entries in iteration order, oldest
// first. limit <= 0 returns all entries.
func ListDecisions(db *sql.DB, limit int) ([]DecisionEntry, error) {
	query := `SELECT version_id, batch_id, iteration, chosen, reward_candidate,
	          distances_json, probabilities_json, batch_json, created_at
	          FROM decision_log ORDER BY iteration ASC`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = db.Query(query+" LIMIT ?", limit)
	} else {
		rows, err = db.Query(query)
	}
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var entries []DecisionEntry
	for rows.Next() {
		var e DecisionEntry
		var distances, probs, batch sql.NullString
		var createdStr string
		if err := rows.Scan(&e.VersionID, &e.BatchID, &e.Iteration, &e.Chosen,
			&e.RewardCandidate, &distances, &probs, &batch, &createdStr); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		e.DistancesJSON = distances.String
		e.ProbabilitiesJSON = probs.String
		e.BatchJSON = batch.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
// #endregion list-decisions

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers
