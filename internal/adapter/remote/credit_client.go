package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/orderappu/recon-api/internal/entity"
	"github.com/orderappu/recon-api/internal/usecase"
)

// CreditClient talks to the legacy credit service endpoints.
type CreditClient struct {
	c client
}

func NewCreditClient(baseURL, token string, timeout time.Duration, maxRetries int) *CreditClient {
	return &CreditClient{c: newClient(baseURL, token, timeout, maxRetries)}
}

// Limit fetches the customer ceiling. 404 is the documented "no limit"
// sentinel; a null ceiling in the body means the same.
func (cc *CreditClient) Limit(ctx context.Context, customerID string) (entity.CreditLimit, error) {
	q := url.Values{"customerId": {customerID}}
	var resp struct {
		CreditLimit *string `json:"creditLimit"`
	}
	err := cc.c.doJSON(ctx, http.MethodGet, "/credit-limit", q, nil, &resp)
	if err != nil {
		if status, ok := statusOf(err); ok && status == http.StatusNotFound {
			return entity.NoLimit, nil
		}
		return entity.CreditLimit{}, err
	}
	if resp.CreditLimit == nil {
		return entity.NoLimit, nil
	}
	m, err := entity.ParseAmount(*resp.CreditLimit, "")
	if err != nil {
		return entity.CreditLimit{}, fmt.Errorf("credit limit for %s: %w", customerID, err)
	}
	return entity.CreditLimit{CeilingCents: m.Cents}, nil
}

func (cc *CreditClient) Deduct(ctx context.Context, customerID string, cents int64) error {
	body := map[string]any{
		"customerId": customerID,
		"amount":     entity.CentsToWire(cents),
	}
	return cc.c.doJSON(ctx, http.MethodPost, "/credit-limit/deduct", nil, body, nil)
}

func (cc *CreditClient) Increase(ctx context.Context, customerID string, cents int64) error {
	body := map[string]any{
		"customerId": customerID,
		"amount":     entity.CentsToWire(cents),
	}
	return cc.c.doJSON(ctx, http.MethodPost, "/increase-credit-limit", nil, body, nil)
}

func (cc *CreditClient) SetAmountDue(ctx context.Context, customerID string, newTotalCents, originalTotalCents int64, idemKey string) error {
	body := map[string]any{
		"customerId":          customerID,
		"totalOrderAmount":    entity.CentsToWire(newTotalCents),
		"originalOrderAmount": entity.CentsToWire(originalTotalCents),
		"idempotencyKey":      idemKey,
	}
	return cc.c.doJSON(ctx, http.MethodPost, "/credit-limit/update-amount-due-on-order", nil, body, nil)
}

var _ usecase.CreditService = (*CreditClient)(nil)
