package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orderappu/recon-api/internal/adapter/http/middleware"
	"github.com/orderappu/recon-api/internal/entity"
	"github.com/orderappu/recon-api/internal/sagajournal"
	"github.com/orderappu/recon-api/internal/usecase"
)

const handlerTimeout = 30 * time.Second

// ReconHandler exposes the shared reconciler over HTTP. Every screen of the
// old clients maps to one route here; none of them carries its own copy of
// the credit arithmetic anymore.
type ReconHandler struct {
	recon   *usecase.Reconciler
	journal sagajournal.Repository
}

func NewReconHandler(recon *usecase.Reconciler, journal sagajournal.Repository) *ReconHandler {
	return &ReconHandler{recon: recon, journal: journal}
}

type itemReq struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id" binding:"required"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	Price     string `json:"price" binding:"required"`
	Quantity  int64  `json:"quantity"`
}

type reconcileReq struct {
	CustomerID     string    `json:"customer_id" binding:"required"`
	OriginalAmount string    `json:"original_amount" binding:"required"`
	Items          []itemReq `json:"items" binding:"required"`
}

type reconcileResp struct {
	SagaID    string `json:"saga_id"`
	OrderID   string `json:"order_id,omitempty"`
	Delta     string `json:"delta"`
	CreditOp  string `json:"credit_op"`
	Succeeded bool   `json:"succeeded"`
}

// Reconcile handles POST /v1/orders/:id/reconcile.
func (h *ReconHandler) Reconcile(c *gin.Context) {
	var req reconcileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	original, err := entity.ParseAmount(req.OriginalAmount, "")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_amount"})
		return
	}
	items, err := toItems(req.Items)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_amount"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), handlerTimeout)
	defer cancel()

	out, err := h.recon.Reconcile(ctx, usecase.ReconcileInput{
		OrderID:        c.Param("id"),
		CustomerID:     req.CustomerID,
		OriginalCents:  original.Cents,
		NewItems:       items,
		Admin:          middleware.IsAdmin(c),
		IdempotencyKey: c.GetHeader("X-Idempotency-Key"),
	})
	respond(c, "reconcile", out, err)
}

type placeReq struct {
	CustomerID string    `json:"customer_id" binding:"required"`
	Shift      string    `json:"order_type" binding:"required,oneof=AM PM"`
	Currency   string    `json:"currency"`
	Items      []itemReq `json:"items" binding:"required"`
}

// Place handles POST /v1/orders.
func (h *ReconHandler) Place(c *gin.Context) {
	var req placeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}
	items, err := toItems(req.Items)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_amount"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), handlerTimeout)
	defer cancel()

	out, err := h.recon.Place(ctx, usecase.PlaceInput{
		CustomerID:     req.CustomerID,
		Items:          items,
		Shift:          entity.Shift(req.Shift),
		Currency:       req.Currency,
		IdempotencyKey: c.GetHeader("X-Idempotency-Key"),
	})
	respond(c, "place", out, err)
}

type cancelReq struct {
	CustomerID  string `json:"customer_id" binding:"required"`
	TotalAmount string `json:"total_amount" binding:"required"`
}

// Cancel handles POST /v1/orders/:id/cancel.
func (h *ReconHandler) Cancel(c *gin.Context) {
	var req cancelReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}
	total, err := entity.ParseAmount(req.TotalAmount, "")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_amount"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), handlerTimeout)
	defer cancel()

	out, err := h.recon.Cancel(ctx, usecase.CancelInput{
		OrderID:        c.Param("id"),
		CustomerID:     req.CustomerID,
		TotalCents:     total.Cents,
		Admin:          middleware.IsAdmin(c),
		IdempotencyKey: c.GetHeader("X-Idempotency-Key"),
	})
	respond(c, "cancel", out, err)
}

type addItemReq struct {
	CustomerID string `json:"customer_id" binding:"required"`
	ProductID  string `json:"product_id" binding:"required"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	Quantity   int64  `json:"quantity" binding:"required,gt=0"`
}

// AddItem handles POST /v1/orders/:id/items.
func (h *ReconHandler) AddItem(c *gin.Context) {
	var req addItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), handlerTimeout)
	defer cancel()

	out, err := h.recon.AddItem(ctx, usecase.AddItemInput{
		OrderID:        c.Param("id"),
		CustomerID:     req.CustomerID,
		ProductID:      req.ProductID,
		Name:           req.Name,
		Category:       req.Category,
		Quantity:       req.Quantity,
		Admin:          middleware.IsAdmin(c),
		IdempotencyKey: c.GetHeader("X-Idempotency-Key"),
	})
	respond(c, "add_item", out, err)
}

// RemoveItem handles DELETE /v1/orders/:id/items/:itemId. CustomerID rides in
// the query because DELETE bodies are unreliable through legacy proxies.
func (h *ReconHandler) RemoveItem(c *gin.Context) {
	customerID := c.Query("customerId")
	if customerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), handlerTimeout)
	defer cancel()

	out, err := h.recon.RemoveItem(ctx, usecase.RemoveItemInput{
		OrderID:        c.Param("id"),
		CustomerID:     customerID,
		ItemID:         c.Param("itemId"),
		Admin:          middleware.IsAdmin(c),
		IdempotencyKey: c.GetHeader("X-Idempotency-Key"),
	})
	respond(c, "remove_item", out, err)
}

type bulkApproveReq struct {
	OrderIDs []string `json:"order_ids" binding:"required"`
	Status   string   `json:"approve_status" binding:"required,oneof=PENDING ACCEPTED ALTERED"`
}

// BulkApprove handles POST /v1/orders/bulk/approve.
func (h *ReconHandler) BulkApprove(c *gin.Context) {
	var req bulkApproveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), handlerTimeout)
	defer cancel()

	out := h.recon.BulkApprove(ctx, req.OrderIDs, entity.ApproveStatus(req.Status))
	c.JSON(bulkStatus(out), out)
}

type bulkPlaceReq struct {
	Shift  string `json:"order_type" binding:"required,oneof=AM PM"`
	Orders []struct {
		CustomerID string    `json:"customer_id" binding:"required"`
		Currency   string    `json:"currency"`
		Items      []itemReq `json:"items" binding:"required"`
	} `json:"orders" binding:"required"`
}

// BulkPlace handles POST /v1/orders/bulk/place (the AM/PM auto-order run).
func (h *ReconHandler) BulkPlace(c *gin.Context) {
	var req bulkPlaceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	batch := make([]usecase.BulkPlaceItem, 0, len(req.Orders))
	for _, o := range req.Orders {
		items, err := toItems(o.Items)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_amount"})
			return
		}
		batch = append(batch, usecase.BulkPlaceItem{
			CustomerID: o.CustomerID,
			Items:      items,
			Currency:   o.Currency,
		})
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), handlerTimeout)
	defer cancel()

	out := h.recon.BulkPlace(ctx, entity.Shift(req.Shift), batch)
	c.JSON(bulkStatus(out), out)
}

// SagaStatus handles GET /v1/sagas/:id from the journal.
func (h *ReconHandler) SagaStatus(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	e, ok, err := h.journal.Latest(ctx, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "journal_error"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"saga_id":    e.SagaID,
		"status":     e.Status,
		"step":       e.Step,
		"errors":     e.Errors,
		"updated_at": e.CreatedAt,
	})
}

func toItems(reqs []itemReq) ([]entity.OrderItem, error) {
	items := make([]entity.OrderItem, 0, len(reqs))
	for _, r := range reqs {
		m, err := entity.ParseAmount(r.Price, "")
		if err != nil {
			return nil, err
		}
		items = append(items, entity.OrderItem{
			ID:         r.ID,
			ProductID:  r.ProductID,
			Name:       r.Name,
			Category:   r.Category,
			PriceCents: m.Cents,
			Quantity:   r.Quantity,
		})
	}
	return items, nil
}

// respond maps use case outcomes onto HTTP. The gate rejection carries the
// exceeded amount; saga failures distinguish clean rollback from partial.
func respond(c *gin.Context, kind string, out usecase.ReconcileOutput, err error) {
	if err == nil {
		middleware.SagaOutcomes.WithLabelValues(kind, "completed").Inc()
		c.JSON(http.StatusOK, reconcileResp{
			SagaID:    out.SagaID,
			OrderID:   out.OrderID,
			Delta:     entity.CentsToWire(out.DeltaCents),
			CreditOp:  out.CreditOp,
			Succeeded: true,
		})
		return
	}

	var exceeded *usecase.CreditLimitExceededError
	switch {
	case errors.As(err, &exceeded):
		middleware.SagaOutcomes.WithLabelValues(kind, "gate_blocked").Inc()
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "credit_limit_exceeded",
			"excess": entity.CentsToWire(exceeded.ExcessCents()),
		})
	case errors.Is(err, usecase.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": "duplicate_request"})
	case errors.Is(err, usecase.ErrPriorRunFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": "reconciliation_failed", "saga_id": out.SagaID, "detail": err.Error()})
	case errors.Is(err, entity.ErrOrderLocked):
		c.JSON(http.StatusConflict, gin.H{"error": "loading_slip_generated"})
	case errors.Is(err, entity.ErrOrderCancelled):
		c.JSON(http.StatusConflict, gin.H{"error": "order_cancelled"})
	case errors.Is(err, entity.ErrEmptyOrder), errors.Is(err, entity.ErrZeroQuantity),
		errors.Is(err, entity.ErrItemNotFound), errors.Is(err, entity.ErrPriceUnavailable):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, usecase.ErrCreditCheckFailed), errors.Is(err, usecase.ErrOrderStateFailed):
		middleware.SagaOutcomes.WithLabelValues(kind, "aborted").Inc()
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	case usecase.IsCompensated(err):
		middleware.SagaOutcomes.WithLabelValues(kind, "compensated").Inc()
		c.JSON(http.StatusBadGateway, gin.H{"error": "reconciliation_failed", "detail": err.Error()})
	default:
		middleware.SagaOutcomes.WithLabelValues(kind, "failed").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reconciliation_failed", "detail": err.Error()})
	}
}

func bulkStatus(out usecase.BulkOutcome) int {
	if out.Failed > 0 && out.Succeeded == 0 {
		return http.StatusBadGateway
	}
	if out.Failed > 0 {
		return http.StatusMultiStatus
	}
	return http.StatusOK
}
