package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestCreditClient_Limit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("auth header: %q", got)
		}
		if r.URL.Query().Get("customerId") != "c1" {
			t.Errorf("query: %v", r.URL.Query())
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"creditLimit": "1000.00"})
	}))
	defer srv.Close()

	cc := NewCreditClient(srv.URL, "tok", time.Second, 1)
	limit, err := cc.Limit(context.Background(), "c1")
	if err != nil {
		t.Fatalf("limit: %v", err)
	}
	if limit.Unlimited || limit.CeilingCents != 100000 {
		t.Fatalf("limit: %+v", limit)
	}
}

func TestCreditClient_Limit404MeansUnlimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	cc := NewCreditClient(srv.URL, "tok", time.Second, 1)
	limit, err := cc.Limit(context.Background(), "c1")
	if err != nil {
		t.Fatalf("404 must not be an error: %v", err)
	}
	if !limit.Unlimited {
		t.Fatalf("404 should map to unlimited: %+v", limit)
	}
}

func TestCreditClient_NullCeilingMeansUnlimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"creditLimit": null}`))
	}))
	defer srv.Close()

	cc := NewCreditClient(srv.URL, "tok", time.Second, 1)
	limit, err := cc.Limit(context.Background(), "c1")
	if err != nil {
		t.Fatalf("limit: %v", err)
	}
	if !limit.Unlimited {
		t.Fatalf("null ceiling should map to unlimited: %+v", limit)
	}
}

func TestCreditClient_LimitServerErrorIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	cc := NewCreditClient(srv.URL, "tok", time.Second, 2)
	if _, err := cc.Limit(context.Background(), "c1"); err == nil {
		t.Fatalf("a 5xx must abort, not pass as unlimited")
	}
}

func TestCreditClient_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "try again", http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cc := NewCreditClient(srv.URL, "tok", time.Second, 3)
	if err := cc.Deduct(context.Background(), "c1", 30000); err != nil {
		t.Fatalf("deduct after retry: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestCreditClient_DeductSendsDecimalAmount(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	cc := NewCreditClient(srv.URL, "tok", time.Second, 1)
	if err := cc.Deduct(context.Background(), "c1", 30050); err != nil {
		t.Fatalf("deduct: %v", err)
	}
	if got["customerId"] != "c1" || got["amount"] != "300.50" {
		t.Fatalf("wire payload: %v", got)
	}
}

func TestCreditClient_SetAmountDuePayload(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	cc := NewCreditClient(srv.URL, "tok", time.Second, 1)
	if err := cc.SetAmountDue(context.Background(), "c1", 80000, 50000, "k1"); err != nil {
		t.Fatalf("set amount due: %v", err)
	}
	if got["totalOrderAmount"] != "800.00" || got["originalOrderAmount"] != "500.00" || got["idempotencyKey"] != "k1" {
		t.Fatalf("wire payload: %v", got)
	}
}

func TestClient_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	cc := NewCreditClient(srv.URL, "tok", time.Second, 3)
	err := cc.Deduct(context.Background(), "c1", 100)
	if err == nil {
		t.Fatalf("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("4xx must not be retried: %d attempts", calls.Load())
	}
	if status, ok := statusOf(err); !ok || status != http.StatusUnprocessableEntity {
		t.Fatalf("status not surfaced: %v", err)
	}
}
