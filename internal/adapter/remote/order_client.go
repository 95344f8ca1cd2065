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

// OrderClient talks to the legacy order service endpoints.
type OrderClient struct {
	c client
}

func NewOrderClient(baseURL, token string, timeout time.Duration, maxRetries int) *OrderClient {
	return &OrderClient{c: newClient(baseURL, token, timeout, maxRetries)}
}

// Wire shapes follow the legacy API: amounts travel as decimal strings,
// quantities and epochs as numbers.
type wireItem struct {
	ID        string `json:"order_product_id,omitempty"`
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	Price     string `json:"price"`
	Quantity  int64  `json:"quantity"`
}

type wireOrder struct {
	ID             string     `json:"id"`
	CustomerID     string     `json:"customer_id"`
	TotalAmount    string     `json:"total_amount"`
	Currency       string     `json:"currency"`
	PlacedOn       int64      `json:"placed_on"`
	Shift          string     `json:"order_type"`
	Cancelled      string     `json:"cancelled"` // "Yes" / "No", legacy string flag
	ApproveStatus  string     `json:"approve_status"`
	DeliveryStatus string     `json:"delivery_status"`
	LoadingSlip    string     `json:"loading_slip"`
	Products       []wireItem `json:"products,omitempty"`
}

func (o *OrderClient) Place(ctx context.Context, req usecase.PlaceRequest) (string, error) {
	body := map[string]any{
		"customer_id":  req.CustomerID,
		"order_type":   string(req.Shift),
		"total_amount": entity.CentsToWire(req.TotalCents),
		"currency":     req.Currency,
		"products":     toWireItems(req.Items),
	}
	var resp struct {
		OrderID string `json:"order_id"`
	}
	if err := o.c.doJSON(ctx, http.MethodPost, "/place", nil, body, &resp); err != nil {
		return "", err
	}
	return resp.OrderID, nil
}

func (o *OrderClient) Update(ctx context.Context, orderID string, items []entity.OrderItem, totalCents int64) error {
	body := map[string]any{
		"order_id":     orderID,
		"total_amount": entity.CentsToWire(totalCents),
		"products":     toWireItems(items),
	}
	return o.c.doJSON(ctx, http.MethodPost, "/order_update", nil, body, nil)
}

func (o *OrderClient) Approve(ctx context.Context, orderID string, status entity.ApproveStatus) error {
	body := map[string]any{
		"order_id":       orderID,
		"approve_status": string(status),
	}
	return o.c.doJSON(ctx, http.MethodPost, "/order_update", nil, body, nil)
}

func (o *OrderClient) Cancel(ctx context.Context, orderID string) error {
	return o.c.doJSON(ctx, http.MethodPost, "/cancel_order/"+url.PathEscape(orderID), nil, nil, nil)
}

func (o *OrderClient) AddProduct(ctx context.Context, orderID string, item entity.OrderItem) (string, error) {
	body := map[string]any{
		"order_id":   orderID,
		"product_id": item.ProductID,
		"name":       item.Name,
		"category":   item.Category,
		"price":      entity.CentsToWire(item.PriceCents),
		"quantity":   item.Quantity,
	}
	var resp struct {
		OrderProductID string `json:"order_product_id"`
	}
	if err := o.c.doJSON(ctx, http.MethodPost, "/add-product-to-order", nil, body, &resp); err != nil {
		return "", err
	}
	return resp.OrderProductID, nil
}

func (o *OrderClient) RemoveProduct(ctx context.Context, itemID string) error {
	return o.c.doJSON(ctx, http.MethodDelete, "/delete_order_product/"+url.PathEscape(itemID), nil, nil, nil)
}

func (o *OrderClient) Products(ctx context.Context, orderID string) ([]entity.OrderItem, error) {
	q := url.Values{"orderId": {orderID}}
	var resp []wireItem
	if err := o.c.doJSON(ctx, http.MethodGet, "/order-products", q, nil, &resp); err != nil {
		return nil, err
	}
	items := make([]entity.OrderItem, 0, len(resp))
	for _, w := range resp {
		it, err := fromWireItem(w)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

// OrdersForCustomer reads the customer's orders; admins go through the admin
// read endpoint, which also returns slip-locked historical orders.
func (o *OrderClient) OrdersForCustomer(ctx context.Context, customerID string, admin bool) ([]entity.Order, error) {
	path := "/get-orders/" + url.PathEscape(customerID)
	if admin {
		path = "/get-admin-orders/" + url.PathEscape(customerID)
	}
	var resp []wireOrder
	if err := o.c.doJSON(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	orders := make([]entity.Order, 0, len(resp))
	for _, w := range resp {
		eo, err := fromWireOrder(w)
		if err != nil {
			return nil, err
		}
		orders = append(orders, eo)
	}
	return orders, nil
}

// Price lookups: each level answers 404 for "not defined here", which maps
// to ok=false so the caller can continue the fallback chain.

func (o *OrderClient) CustomerPrice(ctx context.Context, customerID, productID string) (int64, bool, error) {
	return o.priceLookup(ctx, "/customer-price", url.Values{
		"customerId": {customerID},
		"productId":  {productID},
	})
}

func (o *OrderClient) LatestPrice(ctx context.Context, customerID, productID string) (int64, bool, error) {
	return o.priceLookup(ctx, "/latest-ordered-price", url.Values{
		"customerId": {customerID},
		"productId":  {productID},
	})
}

func (o *OrderClient) DefaultPrice(ctx context.Context, productID string) (int64, bool, error) {
	return o.priceLookup(ctx, "/product-price", url.Values{"productId": {productID}})
}

func (o *OrderClient) priceLookup(ctx context.Context, path string, q url.Values) (int64, bool, error) {
	var resp struct {
		Price string `json:"price"`
	}
	err := o.c.doJSON(ctx, http.MethodGet, path, q, nil, &resp)
	if err != nil {
		if status, ok := statusOf(err); ok && status == http.StatusNotFound {
			return 0, false, nil
		}
		return 0, false, err
	}
	m, err := entity.ParseAmount(resp.Price, "")
	if err != nil {
		return 0, false, fmt.Errorf("price from %s: %w", path, err)
	}
	return m.Cents, true, nil
}

func toWireItems(items []entity.OrderItem) []wireItem {
	out := make([]wireItem, 0, len(items))
	for _, it := range items {
		out = append(out, wireItem{
			ID:        it.ID,
			ProductID: it.ProductID,
			Name:      it.Name,
			Category:  it.Category,
			Price:     entity.CentsToWire(it.PriceCents),
			Quantity:  it.Quantity,
		})
	}
	return out
}

func fromWireItem(w wireItem) (entity.OrderItem, error) {
	m, err := entity.ParseAmount(w.Price, "")
	if err != nil {
		return entity.OrderItem{}, fmt.Errorf("item %s price: %w", w.ProductID, err)
	}
	return entity.OrderItem{
		ID:         w.ID,
		ProductID:  w.ProductID,
		Name:       w.Name,
		Category:   w.Category,
		PriceCents: m.Cents,
		Quantity:   w.Quantity,
	}, nil
}

func fromWireOrder(w wireOrder) (entity.Order, error) {
	m, err := entity.ParseAmount(w.TotalAmount, w.Currency)
	if err != nil {
		return entity.Order{}, fmt.Errorf("order %s total: %w", w.ID, err)
	}
	items := make([]entity.OrderItem, 0, len(w.Products))
	for _, wi := range w.Products {
		it, err := fromWireItem(wi)
		if err != nil {
			return entity.Order{}, err
		}
		items = append(items, it)
	}
	return entity.Order{
		ID:             w.ID,
		CustomerID:     w.CustomerID,
		Items:          items,
		TotalCents:     m.Cents,
		Currency:       w.Currency,
		PlacedOn:       w.PlacedOn,
		Shift:          entity.Shift(w.Shift),
		Cancelled:      w.Cancelled == "Yes",
		ApproveStatus:  entity.ApproveStatus(w.ApproveStatus),
		DeliveryStatus: entity.DeliveryStatus(w.DeliveryStatus),
		LoadingSlip:    w.LoadingSlip == "Yes",
	}, nil
}

var (
	_ usecase.OrderService = (*OrderClient)(nil)
	_ usecase.PriceSource  = (*OrderClient)(nil)
)
