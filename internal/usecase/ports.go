package usecase

import (
	"context"

	"github.com/orderappu/recon-api/internal/entity"
)

// PlaceRequest is the wire-shaped input for placing an order upstream.
type PlaceRequest struct {
	CustomerID string
	Items      []entity.OrderItem
	Shift      entity.Shift
	TotalCents int64
	Currency   string
}

// OrderService is the port to the remote order service.
type OrderService interface {
	Place(ctx context.Context, req PlaceRequest) (orderID string, err error)
	Update(ctx context.Context, orderID string, items []entity.OrderItem, totalCents int64) error
	Approve(ctx context.Context, orderID string, status entity.ApproveStatus) error
	Cancel(ctx context.Context, orderID string) error
	AddProduct(ctx context.Context, orderID string, item entity.OrderItem) (itemID string, err error)
	RemoveProduct(ctx context.Context, itemID string) error
	Products(ctx context.Context, orderID string) ([]entity.OrderItem, error)
	OrdersForCustomer(ctx context.Context, customerID string, admin bool) ([]entity.Order, error)
}

// PriceSource resolves unit prices with the legacy fallback chain. ok=false
// means "not defined at this level", not an error.
type PriceSource interface {
	CustomerPrice(ctx context.Context, customerID, productID string) (cents int64, ok bool, err error)
	LatestPrice(ctx context.Context, customerID, productID string) (cents int64, ok bool, err error)
	DefaultPrice(ctx context.Context, productID string) (cents int64, ok bool, err error)
}

// CreditService is the port to the remote credit service.
type CreditService interface {
	// Limit returns the customer ceiling. A 404 upstream is not an error, it
	// is the documented "no limit" sentinel and maps to entity.NoLimit.
	Limit(ctx context.Context, customerID string) (entity.CreditLimit, error)
	Deduct(ctx context.Context, customerID string, cents int64) error
	Increase(ctx context.Context, customerID string, cents int64) error
	SetAmountDue(ctx context.Context, customerID string, newTotalCents, originalTotalCents int64, idemKey string) error
}

// IdempotencyStore dedups inbound submissions.
type IdempotencyStore interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
}

// SnapshotStore caches order flags fed by fulfillment events, so the
// loading-slip guard usually answers without an upstream round trip.
type SnapshotStore interface {
	OrderFlags(ctx context.Context, orderID string) (OrderFlags, bool, error)
	SetOrderFlags(ctx context.Context, orderID string, f OrderFlags) error
}

type OrderFlags struct {
	LoadingSlip    bool
	Cancelled      bool
	DeliveryStatus entity.DeliveryStatus
}

// PriceCache caches resolved per-customer prices.
type PriceCache interface {
	GetPrice(ctx context.Context, customerID, productID string) (cents int64, ok bool, err error)
	SetPrice(ctx context.Context, customerID, productID string, cents int64) error
}

// OutcomePublisher emits one event per finished reconciliation run.
type OutcomePublisher interface {
	PublishOutcome(ctx context.Context, msg ReconOutcomeMsg) error
}
