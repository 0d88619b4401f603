package controller

import (
	"fmt"
	"strings"
)

// #region validation-errors

// MissingCandidateOutputError reports configured candidates absent from
// a batch's outputs. Validation-time: the batch was not applied.
type MissingCandidateOutputError struct {
	Candidates []string
}

func (e *MissingCandidateOutputError) Error() string {
	return fmt.Sprintf("missing outputs for candidates: %s", strings.Join(e.Candidates, ", "))
}

// ShapeMismatchError reports an output whose shape disagrees with the
// batch target (or with the class dimension bound by earlier batches).
type ShapeMismatchError struct {
	Candidate string
	GotRows   int
	GotCols   int
	WantRows  int
	WantCols  int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("candidate %s: output shape %dx%d, want %dx%d",
		e.Candidate, e.GotRows, e.GotCols, e.WantRows, e.WantCols)
}

// InvalidTargetError reports a malformed target distribution.
type InvalidTargetError struct {
	Reason string
}

func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("invalid target: %s", e.Reason)
}

// InvalidBatchError reports a structurally malformed batch.
type InvalidBatchError struct {
	Reason string
}

func (e *InvalidBatchError) Error() string {
	return fmt.Sprintf("invalid batch: %s", e.Reason)
}

// #endregion validation-errors

// #region config-errors

// ConfigError reports an invalid controller construction. This is the
// only fatal error class: per-batch failures are always recoverable.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("controller config: %s", e.Reason)
}

// #endregion config-errors
