// Package state records run history in SQLite.
//
// Every check or fix run is stored with its findings so that consecutive runs
// can be compared. The schema is managed with goose migrations embedded in
// the binary.
package state

import (
	"errors"
	"time"

	"github.com/leapstack-labs/leaplint/pkg/core"
)

var (
	// ErrNotOpen is returned when the store is used before Open.
	ErrNotOpen = errors.New("database not opened")
	// ErrRunNotFound is returned when no run matches an ID or prefix.
	ErrRunNotFound = errors.New("run not found")
	// ErrAmbiguousRun is returned when an ID prefix matches several runs.
	ErrAmbiguousRun = errors.New("ambiguous run id")
)

// RunStatus is the outcome of a run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning RunStatus = "running"
	// RunStatusPassed means no finding reached the failure threshold.
	RunStatusPassed RunStatus = "passed"
	// RunStatusFailed means findings or unresolved conflicts failed the run.
	RunStatusFailed RunStatus = "failed"
	// RunStatusError means the run aborted, for example on a graph error.
	RunStatusError RunStatus = "error"
)

// Run is one recorded invocation.
type Run struct {
	ID          string     `json:"id"`
	Command     string     `json:"command"`
	Manifest    string     `json:"manifest"`
	Status      RunStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Nodes       int        `json:"nodes"`
	// Digest fingerprints the fix intents of a fix run
	Digest   string `json:"digest,omitempty"`
	Error    string `json:"error,omitempty"`
	Findings int    `json:"findings"`
}

// Duration returns how long the run took, or zero while it is running.
func (r *Run) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// RunResult is what CompleteRun stores.
type RunResult struct {
	Status RunStatus
	Nodes  int
	Digest string
	Error  string
}

// Comparison lists the difference between two runs' findings.
type Comparison struct {
	Base *Run `json:"base"`
	Head *Run `json:"head"`
	// New findings appear in head only
	New []core.Finding `json:"new"`
	// Resolved findings appear in base only
	Resolved  []core.Finding `json:"resolved"`
	Unchanged int            `json:"unchanged"`
}
