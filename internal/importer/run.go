package importer

import (
	"fmt"
	"math"
	"time"
)

// OutcomeStatus is the per-row result shown to the operator.
// Failure reasons are logged server-side but never attached to an outcome.
type OutcomeStatus string

const (
	StatusSuccess OutcomeStatus = "success"
	StatusFailed  OutcomeStatus = "failed"
)

// Outcome records the result of attempting to create one couple from one
// CSV row. Outcomes are appended in input order and never mutated.
type Outcome struct {
	Name   string        `json:"name"`
	Email  string        `json:"email"`
	Status OutcomeStatus `json:"status"`
}

// RunState is the lifecycle of a bulk import run.
// There is no failed terminal state: a run whose rows all failed still
// completes. There is no cancelled state either; once started, a run
// always finishes.
type RunState string

const (
	StateIdle      RunState = "idle"
	StateRunning   RunState = "running"
	StateCompleted RunState = "completed"
)

// RunProgress is a snapshot of an in-flight or finished run.
type RunProgress struct {
	RunID     string   `json:"run_id"`
	FileName  string   `json:"file_name"`
	State     RunState `json:"state"`
	Percent   int      `json:"percent"`
	TotalRows int      `json:"total_rows"`
	Completed int      `json:"completed"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
}

// RunResult is the final report of one bulk import run.
type RunResult struct {
	RunID        string        `json:"run_id"`
	FileName     string        `json:"file_name"`
	TotalRows    int           `json:"total_rows"`
	Succeeded    int           `json:"succeeded"`
	Failed       int           `json:"failed"`
	Outcomes     []Outcome     `json:"outcomes"`
	Duration     time.Duration `json:"-"`
	DurationMs   int64         `json:"duration_ms"`
	Notification string        `json:"notification"`
}

// completionNotification is the aggregate message emitted when the run
// finishes. It fires even when every row failed; it reports completion of
// the run, not success of the rows.
func completionNotification(succeeded, total int) string {
	return fmt.Sprintf("Import complete: %d of %d couples imported", succeeded, total)
}

// percentDone computes round((completed/total)*100).
func percentDone(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}
