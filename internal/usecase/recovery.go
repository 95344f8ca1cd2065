package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/orderappu/recon-api/internal/sagajournal"
)

// Recovery compensates reconciliation runs that were in flight when the
// process died. It replays the journal: the STARTED row carries the payload,
// the STEP_DONE rows say which calls landed, and each landed call is undone
// in reverse order.
type Recovery struct {
	journal sagajournal.Repository
	orders  OrderService
	credit  CreditService
}

func NewRecovery(journal sagajournal.Repository, orders OrderService, credit CreditService) *Recovery {
	return &Recovery{journal: journal, orders: orders, credit: credit}
}

// Run scans for in-flight sagas and rolls each back. Called once at startup,
// before the HTTP surface accepts traffic.
func (r *Recovery) Run(ctx context.Context) error {
	inFlight, err := r.journal.InFlight(ctx)
	if err != nil {
		return fmt.Errorf("recovery scan: %w", err)
	}

	for sagaID, entries := range inFlight {
		status := sagajournal.StatusCompensated
		var failures []string
		if err := r.rollbackSaga(ctx, entries); err != nil {
			status = sagajournal.StatusFailed
			failures = []string{err.Error()}
		}
		r.append(ctx, sagaID, status, failures)
	}
	return nil
}

func (r *Recovery) rollbackSaga(ctx context.Context, entries []sagajournal.Entry) error {
	var p reconPayload
	var done []string
	undone := map[string]bool{}
	for _, e := range entries {
		switch e.Status {
		case sagajournal.StatusStarted:
			if err := json.Unmarshal([]byte(e.Payload), &p); err != nil {
				return fmt.Errorf("undecodable payload, manual reconciliation required: %w", err)
			}
		case sagajournal.StatusStepDone:
			done = append(done, e.Step)
		case sagajournal.StatusStepUndone:
			undone[e.Step] = true
		}
	}

	for i := len(done) - 1; i >= 0; i-- {
		// A STEP_UNDONE row means the in-process rollback (or an earlier
		// recovery pass) already issued the inverse call; re-issuing it would
		// credit or debit the customer twice.
		if undone[done[i]] {
			continue
		}
		if err := r.undoStep(ctx, p, done[i]); err != nil {
			return fmt.Errorf("undo %s: %w", done[i], err)
		}
		r.appendStepUndone(ctx, entries[0].SagaID, done[i])
	}
	return nil
}

// undoStep issues the inverse call for one landed step. Steps whose inverse
// needs state that only lived in process memory (a placed order's fresh id)
// cannot be undone from the journal alone and are reported for manual repair.
func (r *Recovery) undoStep(ctx context.Context, p reconPayload, step string) error {
	switch step {
	case stepOrderUpdate:
		return r.orders.Update(ctx, p.OrderID, p.PrevItems, p.OriginalCents)
	case stepCreditAdjust:
		return adjustCredit(ctx, r.credit, p.CustomerID, -p.DeltaCents)
	case stepAmountDue:
		return r.credit.SetAmountDue(ctx, p.CustomerID, p.OriginalCents, p.NewCents, p.AmountDueKey+":undo")
	case stepRemoveProduct, stepAddProduct, stepPlaceOrder:
		return fmt.Errorf("step %s not recoverable from journal, manual reconciliation required", step)
	case stepCancelOrder:
		// cancel is ordered last and has no inverse; nothing to undo
		return nil
	}
	return fmt.Errorf("unknown journal step %q", step)
}

func (r *Recovery) appendStepUndone(ctx context.Context, sagaID, step string) {
	_ = r.journal.Append(ctx, &sagajournal.Entry{
		SagaID:    sagaID,
		Status:    sagajournal.StatusStepUndone,
		Step:      step,
		Errors:    "[]",
		CreatedAt: time.Now().UTC(),
	})
}

func (r *Recovery) append(ctx context.Context, sagaID string, status sagajournal.Status, failures []string) {
	errJSON := "[]"
	if len(failures) > 0 {
		if b, err := json.Marshal(failures); err == nil {
			errJSON = string(b)
		}
	}
	_ = r.journal.Append(ctx, &sagajournal.Entry{
		SagaID:    sagaID,
		Status:    status,
		Step:      "recovery",
		Errors:    errJSON,
		CreatedAt: time.Now().UTC(),
	})
}
