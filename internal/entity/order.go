package entity

import "errors"

type ApproveStatus string

const (
	ApprovePending  ApproveStatus = "PENDING"
	ApproveAccepted ApproveStatus = "ACCEPTED"
	ApproveAltered  ApproveStatus = "ALTERED"
)

type DeliveryStatus string

const (
	DeliveryPending    DeliveryStatus = "PENDING"
	DeliveryProcessing DeliveryStatus = "PROCESSING"
	DeliveryDelivered  DeliveryStatus = "DELIVERED"
)

// Shift is the daily order-placement window.
type Shift string

const (
	ShiftAM Shift = "AM"
	ShiftPM Shift = "PM"
)

var (
	ErrEmptyOrder       = errors.New("order has no items")
	ErrZeroQuantity     = errors.New("line item quantity must be positive at submit")
	ErrOrderLocked      = errors.New("loading slip generated, order is immutable")
	ErrOrderCancelled   = errors.New("order already cancelled")
	ErrItemNotFound     = errors.New("line item not found on order")
	ErrPriceUnavailable = errors.New("no price could be resolved for product")
)

type OrderItem struct {
	ID         string `json:"id"`
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	PriceCents int64  `json:"price_cents"`
	Quantity   int64  `json:"quantity"`
}

// Subtotal is price x quantity in cents.
func (i OrderItem) Subtotal() int64 { return i.PriceCents * i.Quantity }

type Order struct {
	ID             string         `json:"id"`
	CustomerID     string         `json:"customer_id"`
	Items          []OrderItem    `json:"items"`
	TotalCents     int64          `json:"total_cents"`
	Currency       string         `json:"currency"`
	PlacedOn       int64          `json:"placed_on"` // epoch seconds
	Shift          Shift          `json:"shift"`
	Cancelled      bool           `json:"cancelled"`
	ApproveStatus  ApproveStatus  `json:"approve_status"`
	DeliveryStatus DeliveryStatus `json:"delivery_status"`
	LoadingSlip    bool           `json:"loading_slip"`
}

// Total recomputes the derived order total from its items.
func Total(items []OrderItem) int64 {
	var sum int64
	for _, it := range items {
		sum += it.Subtotal()
	}
	return sum
}

// ValidateForSubmit enforces the submit-time item rules. Quantity zero is
// tolerated while editing but never past this point.
func ValidateForSubmit(items []OrderItem) error {
	if len(items) == 0 {
		return ErrEmptyOrder
	}
	for _, it := range items {
		if it.Quantity <= 0 {
			return ErrZeroQuantity
		}
	}
	return nil
}

// Mutable reports whether the order can still be edited by the given role.
// Admins may override the loading-slip lock; customers may not.
func (o Order) Mutable(admin bool) error {
	if o.Cancelled {
		return ErrOrderCancelled
	}
	if o.LoadingSlip && !admin {
		return ErrOrderLocked
	}
	return nil
}
