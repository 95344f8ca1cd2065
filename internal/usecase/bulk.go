package usecase

import (
	"context"
	"sync"

	"github.com/orderappu/recon-api/internal/entity"
	"github.com/orderappu/recon-api/internal/logging"
)

// bulkChunkSize bounds upstream fan-out: chunks run sequentially, items
// within a chunk run concurrently.
const bulkChunkSize = 5

type BulkResult struct {
	OrderID string `json:"order_id"`
	SagaID  string `json:"saga_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

type BulkOutcome struct {
	Results   []BulkResult `json:"results"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
}

// BulkApprove flips approve status on a batch of orders. One order's failure
// never halts its chunk-mates; every result is reported.
func (r *Reconciler) BulkApprove(ctx context.Context, orderIDs []string, status entity.ApproveStatus) BulkOutcome {
	results := make([]BulkResult, len(orderIDs))

	for start := 0; start < len(orderIDs); start += bulkChunkSize {
		end := min(start+bulkChunkSize, len(orderIDs))

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				res := BulkResult{OrderID: orderIDs[i]}
				if err := r.orders.Approve(ctx, orderIDs[i], status); err != nil {
					res.Error = err.Error()
				}
				results[i] = res
			}(i)
		}
		wg.Wait()
	}

	return aggregate(results)
}

// BulkPlaceItem is one customer's default order for a placement window.
type BulkPlaceItem struct {
	CustomerID string
	Items      []entity.OrderItem
	Currency   string
}

// BulkPlace places the AM or PM window's default orders, chunked like
// BulkApprove. Each placement is a full gated saga of its own.
func (r *Reconciler) BulkPlace(ctx context.Context, shift entity.Shift, batch []BulkPlaceItem) BulkOutcome {
	results := make([]BulkResult, len(batch))

	for start := 0; start < len(batch); start += bulkChunkSize {
		end := min(start+bulkChunkSize, len(batch))

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				out, err := r.Place(ctx, PlaceInput{
					CustomerID: batch[i].CustomerID,
					Items:      batch[i].Items,
					Shift:      shift,
					Currency:   batch[i].Currency,
				})
				res := BulkResult{OrderID: out.OrderID, SagaID: out.SagaID}
				if err != nil {
					res.Error = err.Error()
				}
				results[i] = res
			}(i)
		}
		wg.Wait()
	}

	out := aggregate(results)
	logging.FromCtx(ctx).Info("bulk place finished",
		"shift", shift, "total", len(batch), "succeeded", out.Succeeded, "failed", out.Failed)
	return out
}

func aggregate(results []BulkResult) BulkOutcome {
	out := BulkOutcome{Results: results}
	for _, res := range results {
		if res.Error == "" {
			out.Succeeded++
		} else {
			out.Failed++
		}
	}
	return out
}
