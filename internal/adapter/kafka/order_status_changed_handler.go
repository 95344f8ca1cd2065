package kafka

import (
	"context"

	"github.com/orderappu/recon-api/internal/entity"
	"github.com/orderappu/recon-api/internal/usecase"
)

// OrderStatusChangedHandler keeps the order-flags snapshot current so the
// loading-slip guard answers from cache instead of round-tripping upstream.
type OrderStatusChangedHandler struct {
	Snapshots usecase.SnapshotStore
}

func NewOrderStatusChangedHandler(snapshots usecase.SnapshotStore) *OrderStatusChangedHandler {
	return &OrderStatusChangedHandler{Snapshots: snapshots}
}

func (h *OrderStatusChangedHandler) Handle(ctx context.Context, ev usecase.OrderStatusChangedMsg) error {
	return h.Snapshots.SetOrderFlags(ctx, ev.OrderID, usecase.OrderFlags{
		LoadingSlip:    ev.LoadingSlip,
		Cancelled:      ev.Cancelled,
		DeliveryStatus: entity.DeliveryStatus(ev.DeliveryStatus),
	})
}
