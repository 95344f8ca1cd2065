// Package saga runs a sequence of remote steps with LIFO compensation.
//
// The reconciliation flow is a multi-resource update against services that
// share no transaction: order update, credit adjustment, amount-due update.
// Instead of firing each call and shrugging at failures, every step declares
// how to undo itself; a failure compensates all previously successful steps
// and the overall result reflects the whole chain, not just the first call.
package saga

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/orderappu/recon-api/internal/logging"
	"github.com/orderappu/recon-api/internal/sagajournal"
)

// Step is a single unit of work with a compensating action.
type Step interface {
	Name() string
	Execute(ctx context.Context) error
	Compensate(ctx context.Context) error
}

// ErrCompensated wraps the step error when the run failed but every earlier
// step was rolled back cleanly.
var ErrCompensated = errors.New("run failed, earlier steps compensated")

// Orchestrator executes steps in order, journaling every transition.
type Orchestrator struct {
	journal sagajournal.Repository
}

func NewOrchestrator(journal sagajournal.Repository) *Orchestrator {
	return &Orchestrator{journal: journal}
}

// Run executes the steps for one saga. payload is journaled on the STARTED
// row so a crashed run can be compensated from the log alone.
func (o *Orchestrator) Run(ctx context.Context, sagaID string, payload any, steps []Step) error {
	log := logging.FromCtx(ctx).With("saga_id", sagaID)

	o.append(ctx, log, sagaID, sagajournal.StatusStarted, "", payload, nil)

	var done []Step
	for _, step := range steps {
		log.Info("saga step", "step", step.Name())
		if err := step.Execute(ctx); err != nil {
			log.Error("saga step failed", "step", step.Name(), "error", err)
			failures := []string{fmt.Sprintf("%s: %v", step.Name(), err)}
			o.append(ctx, log, sagaID, sagajournal.StatusCompensating, step.Name(), nil, failures)

			failures = append(failures, o.rollback(ctx, log, sagaID, done)...)
			status := sagajournal.StatusCompensated
			if len(failures) > 1 {
				// at least one compensation failed too
				status = sagajournal.StatusFailed
			}
			o.append(ctx, log, sagaID, status, step.Name(), nil, failures)

			if status == sagajournal.StatusFailed {
				return fmt.Errorf("step %s: %w (compensation incomplete)", step.Name(), err)
			}
			return fmt.Errorf("step %s: %w: %w", step.Name(), err, ErrCompensated)
		}
		done = append(done, step)
		o.append(ctx, log, sagaID, sagajournal.StatusStepDone, step.Name(), nil, nil)
	}

	o.append(ctx, log, sagaID, sagajournal.StatusCompleted, "", nil, nil)
	log.Info("saga completed")
	return nil
}

// rollback compensates the successful steps in reverse order. Compensation
// failures are collected, never fatal to the remaining compensations. Each
// compensated step is journaled as STEP_UNDONE so the startup recovery pass
// never undoes a step twice, even when the terminal row is lost.
func (o *Orchestrator) rollback(ctx context.Context, log *slog.Logger, sagaID string, done []Step) []string {
	var failures []string
	for i := len(done) - 1; i >= 0; i-- {
		step := done[i]
		log.Info("compensating", "step", step.Name())
		if err := step.Compensate(ctx); err != nil {
			log.Error("compensation failed", "step", step.Name(), "error", err)
			failures = append(failures, fmt.Sprintf("compensate %s: %v", step.Name(), err))
			continue
		}
		o.append(ctx, log, sagaID, sagajournal.StatusStepUndone, step.Name(), nil, nil)
	}
	return failures
}

func (o *Orchestrator) append(ctx context.Context, log *slog.Logger, sagaID string, status sagajournal.Status, step string, payload any, errs []string) {
	var payloadJSON string
	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			payloadJSON = string(b)
		}
	}
	errJSON := "[]"
	if len(errs) > 0 {
		if b, err := json.Marshal(errs); err == nil {
			errJSON = string(b)
		}
	}
	e := &sagajournal.Entry{
		SagaID:    sagaID,
		Status:    status,
		Step:      step,
		Payload:   payloadJSON,
		Errors:    errJSON,
		CreatedAt: time.Now().UTC(),
	}
	// Journal writes are append-only bookkeeping; a write failure must not
	// abort the business flow, only be loud about it.
	if err := o.journal.Append(ctx, e); err != nil {
		log.Error("journal append failed", "status", status, "error", err)
	}
}
