package usecase

import (
	"context"
	"fmt"

	"github.com/orderappu/recon-api/internal/entity"
)

// Step names are journaled; the recovery pass matches on them.
const (
	stepOrderUpdate   = "order_update"
	stepCreditAdjust  = "credit_adjust"
	stepAmountDue     = "amount_due"
	stepPlaceOrder    = "place_order"
	stepCancelOrder   = "cancel_order"
	stepAddProduct    = "add_product"
	stepRemoveProduct = "remove_product"
)

// updateOrderStep rewrites the order's items upstream. Compensation restores
// the previous item set fetched before the run started.
type updateOrderStep struct {
	orders    OrderService
	orderID   string
	newItems  []entity.OrderItem
	newTotal  int64
	prevItems []entity.OrderItem
	prevTotal int64
}

func (s *updateOrderStep) Name() string { return stepOrderUpdate }

func (s *updateOrderStep) Execute(ctx context.Context) error {
	if err := s.orders.Update(ctx, s.orderID, s.newItems, s.newTotal); err != nil {
		return fmt.Errorf("update order %s: %w", s.orderID, err)
	}
	return nil
}

func (s *updateOrderStep) Compensate(ctx context.Context) error {
	return s.orders.Update(ctx, s.orderID, s.prevItems, s.prevTotal)
}

// creditAdjustStep applies the delta to the customer's credit: a positive
// delta deducts, a negative one increases. Compensation runs the inverse.
type creditAdjustStep struct {
	credit     CreditService
	customerID string
	deltaCents int64
}

func (s *creditAdjustStep) Name() string { return stepCreditAdjust }

func (s *creditAdjustStep) Execute(ctx context.Context) error {
	return adjustCredit(ctx, s.credit, s.customerID, s.deltaCents)
}

func (s *creditAdjustStep) Compensate(ctx context.Context) error {
	return adjustCredit(ctx, s.credit, s.customerID, -s.deltaCents)
}

func adjustCredit(ctx context.Context, credit CreditService, customerID string, deltaCents int64) error {
	switch {
	case deltaCents > 0:
		return credit.Deduct(ctx, customerID, deltaCents)
	case deltaCents < 0:
		return credit.Increase(ctx, customerID, -deltaCents)
	}
	return nil
}

// amountDueStep moves the running amount-due counter from the original order
// total to the new one. The idempotency key makes upstream retries safe.
type amountDueStep struct {
	credit     CreditService
	customerID string
	newTotal   int64
	prevTotal  int64
	idemKey    string
}

func (s *amountDueStep) Name() string { return stepAmountDue }

func (s *amountDueStep) Execute(ctx context.Context) error {
	return s.credit.SetAmountDue(ctx, s.customerID, s.newTotal, s.prevTotal, s.idemKey)
}

func (s *amountDueStep) Compensate(ctx context.Context) error {
	return s.credit.SetAmountDue(ctx, s.customerID, s.prevTotal, s.newTotal, s.idemKey+":undo")
}

// placeOrderStep creates the order and remembers the id it got back so a
// later step's failure can cancel it again.
type placeOrderStep struct {
	orders  OrderService
	req     PlaceRequest
	orderID string
}

func (s *placeOrderStep) Name() string { return stepPlaceOrder }

func (s *placeOrderStep) Execute(ctx context.Context) error {
	id, err := s.orders.Place(ctx, s.req)
	if err != nil {
		return fmt.Errorf("place order: %w", err)
	}
	s.orderID = id
	return nil
}

func (s *placeOrderStep) Compensate(ctx context.Context) error {
	return s.orders.Cancel(ctx, s.orderID)
}

// cancelOrderStep is always ordered last: there is no upstream endpoint that
// un-cancels, so it must have nothing after it to fail.
type cancelOrderStep struct {
	orders  OrderService
	orderID string
}

func (s *cancelOrderStep) Name() string { return stepCancelOrder }

func (s *cancelOrderStep) Execute(ctx context.Context) error {
	if err := s.orders.Cancel(ctx, s.orderID); err != nil {
		return fmt.Errorf("cancel order %s: %w", s.orderID, err)
	}
	return nil
}

func (s *cancelOrderStep) Compensate(ctx context.Context) error { return nil }

// addProductStep appends a line item; compensation deletes the item it added.
type addProductStep struct {
	orders  OrderService
	orderID string
	item    entity.OrderItem
	itemID  string
}

func (s *addProductStep) Name() string { return stepAddProduct }

func (s *addProductStep) Execute(ctx context.Context) error {
	id, err := s.orders.AddProduct(ctx, s.orderID, s.item)
	if err != nil {
		return fmt.Errorf("add product to order %s: %w", s.orderID, err)
	}
	s.itemID = id
	return nil
}

func (s *addProductStep) Compensate(ctx context.Context) error {
	return s.orders.RemoveProduct(ctx, s.itemID)
}

// removeProductStep deletes a line item; compensation re-adds it.
type removeProductStep struct {
	orders  OrderService
	orderID string
	item    entity.OrderItem
}

func (s *removeProductStep) Name() string { return stepRemoveProduct }

func (s *removeProductStep) Execute(ctx context.Context) error {
	if err := s.orders.RemoveProduct(ctx, s.item.ID); err != nil {
		return fmt.Errorf("remove product %s: %w", s.item.ID, err)
	}
	return nil
}

func (s *removeProductStep) Compensate(ctx context.Context) error {
	_, err := s.orders.AddProduct(ctx, s.orderID, s.item)
	return err
}
