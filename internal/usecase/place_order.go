package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/orderappu/recon-api/internal/entity"
)

type PlaceInput struct {
	CustomerID     string
	Items          []entity.OrderItem
	Shift          entity.Shift
	Currency       string
	IdempotencyKey string
}

// Place creates a new order: gate on the full total, place upstream, deduct
// the total from credit, set the amount due from zero. A later step's failure
// cancels the freshly placed order again.
func (r *Reconciler) Place(ctx context.Context, in PlaceInput) (ReconcileOutput, error) {
	if out, done, err := r.recallDuplicate(ctx, in.IdempotencyKey); done {
		return out, err
	}

	if err := entity.ValidateForSubmit(in.Items); err != nil {
		return ReconcileOutput{}, err
	}

	total := entity.Total(in.Items)
	if err := r.gate(ctx, in.CustomerID, total); err != nil {
		return ReconcileOutput{}, err
	}

	p := reconPayload{
		Kind:          "place",
		CustomerID:    in.CustomerID,
		OriginalCents: 0,
		NewCents:      total,
		DeltaCents:    total,
		AmountDueKey:  uuid.NewString(),
		NewItems:      in.Items,
	}
	mutation := &placeOrderStep{
		orders: r.orders,
		req: PlaceRequest{
			CustomerID: in.CustomerID,
			Items:      in.Items,
			Shift:      in.Shift,
			TotalCents: total,
			Currency:   in.Currency,
		},
	}
	return r.run(ctx, p, mutation, false, in.IdempotencyKey)
}

type CancelInput struct {
	OrderID        string
	CustomerID     string
	TotalCents     int64
	Admin          bool
	IdempotencyKey string
}

// Cancel voids an order and gives its total back: increase credit, move the
// amount due to zero, then cancel. The cancel call runs last because nothing
// upstream can un-cancel an order, so it must not leave steps behind it that
// could still fail.
func (r *Reconciler) Cancel(ctx context.Context, in CancelInput) (ReconcileOutput, error) {
	if out, done, err := r.recallDuplicate(ctx, in.IdempotencyKey); done {
		return out, err
	}
	return r.cancel(ctx, in)
}

// cancel runs the cancellation saga without the duplicate recheck. The
// last-item removal cascade enters here directly: its caller's key is already
// locked by RemoveItem, and re-checking it would collide with that lock.
func (r *Reconciler) cancel(ctx context.Context, in CancelInput) (ReconcileOutput, error) {
	if err := r.guardMutable(ctx, in.CustomerID, in.OrderID, in.Admin); err != nil {
		return ReconcileOutput{}, err
	}

	p := reconPayload{
		Kind:          "cancel",
		OrderID:       in.OrderID,
		CustomerID:    in.CustomerID,
		OriginalCents: in.TotalCents,
		NewCents:      0,
		DeltaCents:    -in.TotalCents,
		AmountDueKey:  uuid.NewString(),
	}
	mutation := &cancelOrderStep{orders: r.orders, orderID: in.OrderID}
	return r.run(ctx, p, mutation, true, in.IdempotencyKey)
}
