package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/orderappu/recon-api/internal/entity"
	"github.com/orderappu/recon-api/internal/logging"
	"github.com/orderappu/recon-api/internal/saga"
)

// Reconciler is the one shared order/credit reconciliation module. Every
// entry point (update, place, cancel, add/remove item, bulk) funnels through
// the same gate and the same saga core, so admin and customer surfaces can no
// longer drift apart.
type Reconciler struct {
	orders    OrderService
	credit    CreditService
	prices    PriceSource
	orch      *saga.Orchestrator
	idem      IdempotencyStore
	snapshots SnapshotStore
	priceCch  PriceCache
	events    OutcomePublisher // optional
}

func NewReconciler(
	orders OrderService,
	credit CreditService,
	prices PriceSource,
	orch *saga.Orchestrator,
	idem IdempotencyStore,
	snapshots SnapshotStore,
	priceCch PriceCache,
	events OutcomePublisher,
) *Reconciler {
	return &Reconciler{
		orders:    orders,
		credit:    credit,
		prices:    prices,
		orch:      orch,
		idem:      idem,
		snapshots: snapshots,
		priceCch:  priceCch,
		events:    events,
	}
}

// ReconcileInput carries one order edit. OriginalCents is the total the
// caller last saw; NewItems is the full edited item set.
type ReconcileInput struct {
	OrderID        string
	CustomerID     string
	OriginalCents  int64
	NewItems       []entity.OrderItem
	Admin          bool
	IdempotencyKey string
}

type ReconcileOutput struct {
	SagaID     string
	OrderID    string
	DeltaCents int64
	CreditOp   string // deduct | increase | none
}

// reconPayload is journaled on the STARTED row; the recovery pass rebuilds
// compensations from it after a crash.
type reconPayload struct {
	Kind          string             `json:"kind"`
	OrderID       string             `json:"order_id"`
	CustomerID    string             `json:"customer_id"`
	OriginalCents int64              `json:"original_cents"`
	NewCents      int64              `json:"new_cents"`
	DeltaCents    int64              `json:"delta_cents"`
	AmountDueKey  string             `json:"amount_due_key"`
	PrevItems     []entity.OrderItem `json:"prev_items,omitempty"`
	NewItems      []entity.OrderItem `json:"new_items,omitempty"`
}

// Reconcile applies an order edit: gate on the new total, update the order,
// adjust credit by the delta, move the amount due. All-or-nothing via saga.
func (r *Reconciler) Reconcile(ctx context.Context, in ReconcileInput) (ReconcileOutput, error) {
	if out, done, err := r.recallDuplicate(ctx, in.IdempotencyKey); done {
		return out, err
	}

	if err := entity.ValidateForSubmit(in.NewItems); err != nil {
		return ReconcileOutput{}, err
	}
	if err := r.guardMutable(ctx, in.CustomerID, in.OrderID, in.Admin); err != nil {
		return ReconcileOutput{}, err
	}

	newTotal := entity.Total(in.NewItems)
	if err := r.gate(ctx, in.CustomerID, newTotal); err != nil {
		return ReconcileOutput{}, err
	}

	// Current server-side items are needed to undo an order update. Failing
	// to read them aborts before any mutation.
	prevItems, err := r.orders.Products(ctx, in.OrderID)
	if err != nil {
		return ReconcileOutput{}, fmt.Errorf("%w: %w", ErrOrderStateFailed, err)
	}

	delta := entity.Delta(in.OriginalCents, newTotal)
	p := reconPayload{
		Kind:          "reconcile",
		OrderID:       in.OrderID,
		CustomerID:    in.CustomerID,
		OriginalCents: in.OriginalCents,
		NewCents:      newTotal,
		DeltaCents:    delta,
		AmountDueKey:  uuid.NewString(),
		PrevItems:     prevItems,
		NewItems:      in.NewItems,
	}

	mutation := &updateOrderStep{
		orders:    r.orders,
		orderID:   in.OrderID,
		newItems:  in.NewItems,
		newTotal:  newTotal,
		prevItems: prevItems,
		prevTotal: in.OriginalCents,
	}
	return r.run(ctx, p, mutation, false, in.IdempotencyKey)
}

// run is the shared saga core: assembles mutation + credit adjust + amount
// due, executes, publishes the outcome, and remembers the idempotency key.
func (r *Reconciler) run(ctx context.Context, p reconPayload, mutation saga.Step, mutationLast bool, idemKey string) (ReconcileOutput, error) {
	sagaID := uuid.NewString()

	steps := make([]saga.Step, 0, 3)
	if !mutationLast {
		steps = append(steps, mutation)
	}
	if p.DeltaCents != 0 {
		steps = append(steps, &creditAdjustStep{
			credit:     r.credit,
			customerID: p.CustomerID,
			deltaCents: p.DeltaCents,
		})
	}
	// The amount-due update is issued regardless of the delta outcome.
	steps = append(steps, &amountDueStep{
		credit:     r.credit,
		customerID: p.CustomerID,
		newTotal:   p.NewCents,
		prevTotal:  p.OriginalCents,
		idemKey:    p.AmountDueKey,
	})
	if mutationLast {
		steps = append(steps, mutation)
	}

	runErr := r.orch.Run(ctx, sagaID, p, steps)

	out := ReconcileOutput{
		SagaID:     sagaID,
		OrderID:    p.OrderID,
		DeltaCents: p.DeltaCents,
		CreditOp:   creditOp(p.DeltaCents),
	}
	if place, ok := mutation.(*placeOrderStep); ok {
		out.OrderID = place.orderID
	}

	r.publish(ctx, p, out, runErr)
	r.remember(ctx, idemKey, sagaID, runErr)

	if runErr != nil {
		return ReconcileOutput{}, runErr
	}
	return out, nil
}

// failedSuffix marks a remembered key whose run ended in failure, so a replay
// reports that failure instead of a bare duplicate conflict.
const failedSuffix = "|failed"

// remember records the key→saga mapping for success and terminal failure
// alike; either way the run has an outcome a replay should get back.
func (r *Reconciler) remember(ctx context.Context, idemKey, sagaID string, runErr error) {
	if idemKey == "" {
		return
	}
	v := sagaID
	if runErr != nil {
		v += failedSuffix
	}
	_ = r.idem.Remember(ctx, "recon", idemKey, v)
}

// gate fetches the ceiling and blocks when the new total would exceed it.
// A fetch failure (anything but the 404 sentinel, which the client already
// maps to NoLimit) aborts the whole submit before any mutation.
func (r *Reconciler) gate(ctx context.Context, customerID string, newTotalCents int64) error {
	limit, err := r.credit.Limit(ctx, customerID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCreditCheckFailed, err)
	}
	if !limit.Allows(newTotalCents) {
		return &CreditLimitExceededError{Limit: limit, NewTotalCents: newTotalCents}
	}
	return nil
}

// guardMutable rejects edits to cancelled or slip-locked orders. The snapshot
// cache (fed by fulfillment events) answers first; on a miss the customer's
// orders are fetched. An order unknown to both is left to the server to police.
func (r *Reconciler) guardMutable(ctx context.Context, customerID, orderID string, admin bool) error {
	if f, ok, err := r.snapshots.OrderFlags(ctx, orderID); err == nil && ok {
		return flagsMutable(f, admin)
	}

	orders, err := r.orders.OrdersForCustomer(ctx, customerID, admin)
	if err != nil {
		logging.FromCtx(ctx).Warn("order lookup for guard failed", "order_id", orderID, "error", err)
		return nil
	}
	for _, o := range orders {
		if o.ID != orderID {
			continue
		}
		f := OrderFlags{LoadingSlip: o.LoadingSlip, Cancelled: o.Cancelled, DeliveryStatus: o.DeliveryStatus}
		_ = r.snapshots.SetOrderFlags(ctx, orderID, f)
		return flagsMutable(f, admin)
	}
	return nil
}

func flagsMutable(f OrderFlags, admin bool) error {
	o := entity.Order{Cancelled: f.Cancelled, LoadingSlip: f.LoadingSlip}
	return o.Mutable(admin)
}

// recallDuplicate resolves repeated submissions: a remembered key returns the
// original outcome, a key locked but not yet remembered is a true duplicate.
func (r *Reconciler) recallDuplicate(ctx context.Context, key string) (ReconcileOutput, bool, error) {
	if key == "" {
		return ReconcileOutput{}, false, nil
	}
	if v, ok, _ := r.idem.Recall(ctx, "recon", key); ok {
		sagaID, failed := strings.CutSuffix(v, failedSuffix)
		if failed {
			return ReconcileOutput{SagaID: sagaID}, true, fmt.Errorf("%w: saga %s", ErrPriorRunFailed, sagaID)
		}
		return ReconcileOutput{SagaID: sagaID}, true, nil
	}
	ok, err := r.idem.TryLock(ctx, "recon", key)
	if err != nil {
		return ReconcileOutput{}, true, err
	}
	if !ok {
		return ReconcileOutput{}, true, ErrDuplicate
	}
	return ReconcileOutput{}, false, nil
}

func (r *Reconciler) publish(ctx context.Context, p reconPayload, out ReconcileOutput, runErr error) {
	if r.events == nil {
		return
	}
	msg := ReconOutcomeMsg{
		SagaID:        out.SagaID,
		Kind:          p.Kind,
		OrderID:       out.OrderID,
		CustomerID:    p.CustomerID,
		OriginalCents: p.OriginalCents,
		NewCents:      p.NewCents,
		DeltaCents:    p.DeltaCents,
		CreditOp:      out.CreditOp,
		Succeeded:     runErr == nil,
		At:            time.Now().Unix(),
	}
	if runErr != nil {
		msg.Error = runErr.Error()
	}
	// Outcome events are best-effort; the journal is the source of truth.
	if err := r.events.PublishOutcome(ctx, msg); err != nil {
		logging.FromCtx(ctx).Warn("outcome publish failed", "saga_id", out.SagaID, "error", err)
	}
}

func creditOp(deltaCents int64) string {
	switch {
	case deltaCents > 0:
		return "deduct"
	case deltaCents < 0:
		return "increase"
	}
	return "none"
}

// IsCompensated reports whether the error came from a run whose earlier steps
// were all rolled back.
func IsCompensated(err error) bool {
	return errors.Is(err, saga.ErrCompensated)
}
