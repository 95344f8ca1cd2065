package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/orderappu/recon-api/internal/entity"
	"github.com/orderappu/recon-api/internal/usecase"
)

func TestOrderClient_PlaceWirePayload(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/place" {
			t.Errorf("path: %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]string{"order_id": "ord-7"})
	}))
	defer srv.Close()

	oc := NewOrderClient(srv.URL, "tok", time.Second, 1)
	id, err := oc.Place(context.Background(), usecase.PlaceRequest{
		CustomerID: "c1",
		Shift:      entity.ShiftAM,
		TotalCents: 81250,
		Items: []entity.OrderItem{
			{ProductID: "p1", Name: "Milk 500ml", PriceCents: 1625, Quantity: 50},
		},
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if id != "ord-7" {
		t.Fatalf("order id: %s", id)
	}

	if got["total_amount"] != "812.50" || got["order_type"] != "AM" {
		t.Fatalf("wire payload: %v", got)
	}
	products := got["products"].([]any)
	p0 := products[0].(map[string]any)
	if p0["price"] != "16.25" || p0["quantity"] != float64(50) {
		t.Fatalf("wire item: %v", p0)
	}
}

func TestOrderClient_ProductsRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("orderId") != "o1" {
			t.Errorf("query: %v", r.URL.Query())
		}
		_, _ = w.Write([]byte(`[
			{"order_product_id":"i1","product_id":"p1","price":"16.25","quantity":2},
			{"order_product_id":"i2","product_id":"p2","price":"9.90","quantity":1}
		]`))
	}))
	defer srv.Close()

	oc := NewOrderClient(srv.URL, "tok", time.Second, 1)
	items, err := oc.Products(context.Background(), "o1")
	if err != nil {
		t.Fatalf("products: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items: %+v", items)
	}
	if items[0].PriceCents != 1625 || items[1].PriceCents != 990 {
		t.Fatalf("prices not converted to cents: %+v", items)
	}
	if entity.Total(items) != 4240 {
		t.Fatalf("total: %d", entity.Total(items))
	}
}

func TestOrderClient_LegacyStringFlags(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/get-orders/c1" {
			t.Errorf("path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`[
			{"id":"o1","customer_id":"c1","total_amount":"500.00","cancelled":"No","loading_slip":"Yes","approve_status":"ACCEPTED","delivery_status":"PENDING","order_type":"AM"},
			{"id":"o2","customer_id":"c1","total_amount":"100.00","cancelled":"Yes","loading_slip":"No"}
		]`))
	}))
	defer srv.Close()

	oc := NewOrderClient(srv.URL, "tok", time.Second, 1)
	orders, err := oc.OrdersForCustomer(context.Background(), "c1", false)
	if err != nil {
		t.Fatalf("orders: %v", err)
	}
	if !orders[0].LoadingSlip || orders[0].Cancelled {
		t.Fatalf("flag mapping: %+v", orders[0])
	}
	if !orders[1].Cancelled || orders[1].LoadingSlip {
		t.Fatalf("flag mapping: %+v", orders[1])
	}
}

func TestOrderClient_AdminReadUsesAdminEndpoint(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	oc := NewOrderClient(srv.URL, "tok", time.Second, 1)
	if _, err := oc.OrdersForCustomer(context.Background(), "c1", true); err != nil {
		t.Fatalf("orders: %v", err)
	}
	if path != "/get-admin-orders/c1" {
		t.Fatalf("path: %s", path)
	}
}

func TestOrderClient_PriceLookup404IsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/customer-price":
			http.NotFound(w, r)
		case "/latest-ordered-price":
			_ = json.NewEncoder(w).Encode(map[string]string{"price": "16.25"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	oc := NewOrderClient(srv.URL, "tok", time.Second, 1)

	_, ok, err := oc.CustomerPrice(context.Background(), "c1", "p1")
	if err != nil {
		t.Fatalf("customer price 404: %v", err)
	}
	if ok {
		t.Fatalf("404 should mean not-defined-here")
	}

	cents, ok, err := oc.LatestPrice(context.Background(), "c1", "p1")
	if err != nil || !ok {
		t.Fatalf("latest price: %v %v", ok, err)
	}
	if cents != 1625 {
		t.Fatalf("cents: %d", cents)
	}
}

func TestOrderClient_CancelAndRemoveByPath(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
	}))
	defer srv.Close()

	oc := NewOrderClient(srv.URL, "tok", time.Second, 1)
	if err := oc.Cancel(context.Background(), "o1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := oc.RemoveProduct(context.Background(), "i9"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if paths[0] != "POST /cancel_order/o1" || paths[1] != "DELETE /delete_order_product/i9" {
		t.Fatalf("paths: %v", paths)
	}
}
