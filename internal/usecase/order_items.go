package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/orderappu/recon-api/internal/entity"
	"github.com/orderappu/recon-api/internal/logging"
)

type AddItemInput struct {
	OrderID        string
	CustomerID     string
	ProductID      string
	Name           string
	Category       string
	Quantity       int64
	Admin          bool
	IdempotencyKey string
}

// AddItem appends a product to an order. The unit price is resolved through
// the legacy fallback chain (customer price, latest price used, product
// default) and the credit delta is the new line's subtotal.
func (r *Reconciler) AddItem(ctx context.Context, in AddItemInput) (ReconcileOutput, error) {
	if out, done, err := r.recallDuplicate(ctx, in.IdempotencyKey); done {
		return out, err
	}

	if in.Quantity <= 0 {
		return ReconcileOutput{}, entity.ErrZeroQuantity
	}
	if err := r.guardMutable(ctx, in.CustomerID, in.OrderID, in.Admin); err != nil {
		return ReconcileOutput{}, err
	}

	price, err := r.resolvePrice(ctx, in.CustomerID, in.ProductID)
	if err != nil {
		return ReconcileOutput{}, err
	}
	item := entity.OrderItem{
		ProductID:  in.ProductID,
		Name:       in.Name,
		Category:   in.Category,
		PriceCents: price,
		Quantity:   in.Quantity,
	}

	prevItems, err := r.orders.Products(ctx, in.OrderID)
	if err != nil {
		return ReconcileOutput{}, fmt.Errorf("%w: %w", ErrOrderStateFailed, err)
	}
	prevTotal := entity.Total(prevItems)
	newTotal := prevTotal + item.Subtotal()

	if err := r.gate(ctx, in.CustomerID, newTotal); err != nil {
		return ReconcileOutput{}, err
	}

	p := reconPayload{
		Kind:          "add_item",
		OrderID:       in.OrderID,
		CustomerID:    in.CustomerID,
		OriginalCents: prevTotal,
		NewCents:      newTotal,
		DeltaCents:    item.Subtotal(),
		AmountDueKey:  uuid.NewString(),
		PrevItems:     prevItems,
	}
	mutation := &addProductStep{orders: r.orders, orderID: in.OrderID, item: item}
	return r.run(ctx, p, mutation, false, in.IdempotencyKey)
}

type RemoveItemInput struct {
	OrderID        string
	CustomerID     string
	ItemID         string
	Admin          bool
	IdempotencyKey string
}

// RemoveItem deletes a line item. Removing the last remaining item cascades
// to full order cancellation instead of leaving a zero-item order behind.
func (r *Reconciler) RemoveItem(ctx context.Context, in RemoveItemInput) (ReconcileOutput, error) {
	if out, done, err := r.recallDuplicate(ctx, in.IdempotencyKey); done {
		return out, err
	}

	if err := r.guardMutable(ctx, in.CustomerID, in.OrderID, in.Admin); err != nil {
		return ReconcileOutput{}, err
	}

	items, err := r.orders.Products(ctx, in.OrderID)
	if err != nil {
		return ReconcileOutput{}, fmt.Errorf("%w: %w", ErrOrderStateFailed, err)
	}

	var victim *entity.OrderItem
	for i := range items {
		if items[i].ID == in.ItemID {
			victim = &items[i]
			break
		}
	}
	if victim == nil {
		return ReconcileOutput{}, entity.ErrItemNotFound
	}

	if len(items) == 1 {
		logging.FromCtx(ctx).Info("last item removed, cascading to cancel", "order_id", in.OrderID)
		// The caller's key rides along so a replay of this removal answers
		// with the cancellation's outcome, not a duplicate conflict.
		return r.cancel(ctx, CancelInput{
			OrderID:        in.OrderID,
			CustomerID:     in.CustomerID,
			TotalCents:     entity.Total(items),
			Admin:          in.Admin,
			IdempotencyKey: in.IdempotencyKey,
		})
	}

	prevTotal := entity.Total(items)
	newTotal := prevTotal - victim.Subtotal()

	p := reconPayload{
		Kind:          "remove_item",
		OrderID:       in.OrderID,
		CustomerID:    in.CustomerID,
		OriginalCents: prevTotal,
		NewCents:      newTotal,
		DeltaCents:    -victim.Subtotal(),
		AmountDueKey:  uuid.NewString(),
		PrevItems:     items,
	}
	mutation := &removeProductStep{orders: r.orders, orderID: in.OrderID, item: *victim}
	return r.run(ctx, p, mutation, false, in.IdempotencyKey)
}

// resolvePrice walks the fallback chain, consulting the cache first.
func (r *Reconciler) resolvePrice(ctx context.Context, customerID, productID string) (int64, error) {
	if r.priceCch != nil {
		if cents, ok, err := r.priceCch.GetPrice(ctx, customerID, productID); err == nil && ok {
			return cents, nil
		}
	}

	lookups := []func(context.Context) (int64, bool, error){
		func(ctx context.Context) (int64, bool, error) { return r.prices.CustomerPrice(ctx, customerID, productID) },
		func(ctx context.Context) (int64, bool, error) { return r.prices.LatestPrice(ctx, customerID, productID) },
		func(ctx context.Context) (int64, bool, error) { return r.prices.DefaultPrice(ctx, productID) },
	}
	for _, lookup := range lookups {
		cents, ok, err := lookup(ctx)
		if err != nil {
			return 0, fmt.Errorf("price lookup for product %s: %w", productID, err)
		}
		if ok {
			if r.priceCch != nil {
				_ = r.priceCch.SetPrice(ctx, customerID, productID, cents)
			}
			return cents, nil
		}
	}
	return 0, entity.ErrPriceUnavailable
}
