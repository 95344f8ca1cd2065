// Package sagajournal defines the durable intent log for reconciliation runs.
//
// Every reconciliation saga appends a row per state transition. The journal
// serves two purposes: you can query exactly where a run is (or died), and on
// restart the recovery pass can compensate runs that were in flight when the
// process crashed, instead of silently leaving order and credit state drifted.
package sagajournal

import "time"

// Status is the lifecycle state of a saga run.
type Status string

const (
	StatusStarted      Status = "STARTED"
	StatusStepDone     Status = "STEP_DONE"
	StatusCompleted    Status = "COMPLETED"
	StatusCompensating Status = "COMPENSATING"
	StatusStepUndone   Status = "STEP_UNDONE"
	StatusCompensated  Status = "COMPENSATED"
	StatusFailed       Status = "FAILED"
)

// Terminal reports whether no further transitions are expected.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCompensated || s == StatusFailed
}

// Entry is a single row in the recon_journal table.
type Entry struct {
	// SagaID identifies one reconciliation run (a uuid, also returned to the
	// caller so outcomes can be looked up later).
	SagaID string

	Status Status

	// Step is the name of the step just executed, compensated or failed.
	Step string

	// Payload is the JSON-serialised input that started the run. Written once
	// on STARTED so a crashed run can be compensated from the log alone.
	Payload string

	// Errors accumulates failure details as a JSON array of strings.
	Errors string

	CreatedAt time.Time
}
