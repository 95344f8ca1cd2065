package usecase

import (
	"errors"
	"testing"

	"github.com/orderappu/recon-api/internal/entity"
)

func TestAddItem_DeductsSubtotal(t *testing.T) {
	h := newHarness(entity.NoLimit)
	h.orders.items["o1"] = items(50000, 1)
	h.prices.customer["c1|p9"] = 1500

	out, err := h.recon.AddItem(testCtx(), AddItemInput{
		OrderID:    "o1",
		CustomerID: "c1",
		ProductID:  "p9",
		Quantity:   4,
	})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if out.DeltaCents != 6000 || out.CreditOp != "deduct" {
		t.Fatalf("expected deduct of the new subtotal, got %+v", out)
	}

	if h.orders.calls[0] != "add:o1:p9" {
		t.Fatalf("order calls: %v", h.orders.calls)
	}
	want := []string{"deduct:c1:6000", "due:c1:56000:50000"}
	if h.credit.calls[0] != want[0] || h.credit.calls[1] != want[1] {
		t.Fatalf("credit calls: %v", h.credit.calls)
	}
}

func TestAddItem_PriceFallbackChain(t *testing.T) {
	h := newHarness(entity.NoLimit)
	h.orders.items["o1"] = items(50000, 1)

	// only the product default is defined
	h.prices.def["p9"] = 900

	if _, err := h.recon.AddItem(testCtx(), AddItemInput{
		OrderID: "o1", CustomerID: "c1", ProductID: "p9", Quantity: 1,
	}); err != nil {
		t.Fatalf("default price should be used: %v", err)
	}
	if h.credit.calls[0] != "deduct:c1:900" {
		t.Fatalf("credit calls: %v", h.credit.calls)
	}

	// the resolved price is cached
	if cents, ok, _ := h.cache.GetPrice(testCtx(), "c1", "p9"); !ok || cents != 900 {
		t.Fatalf("price not cached: %d %v", cents, ok)
	}

	// customer price beats latest beats default
	h2 := newHarness(entity.NoLimit)
	h2.orders.items["o1"] = items(50000, 1)
	h2.prices.customer["c1|p9"] = 100
	h2.prices.latest["c1|p9"] = 200
	h2.prices.def["p9"] = 300
	if _, err := h2.recon.AddItem(testCtx(), AddItemInput{
		OrderID: "o1", CustomerID: "c1", ProductID: "p9", Quantity: 1,
	}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if h2.credit.calls[0] != "deduct:c1:100" {
		t.Fatalf("customer price should win: %v", h2.credit.calls)
	}
}

func TestAddItem_NoPriceAnywhere(t *testing.T) {
	h := newHarness(entity.NoLimit)
	h.orders.items["o1"] = items(50000, 1)

	_, err := h.recon.AddItem(testCtx(), AddItemInput{
		OrderID: "o1", CustomerID: "c1", ProductID: "p-unknown", Quantity: 1,
	})
	if !errors.Is(err, entity.ErrPriceUnavailable) {
		t.Fatalf("expected ErrPriceUnavailable, got %v", err)
	}
}

func TestAddItem_CachedPriceSkipsLookups(t *testing.T) {
	h := newHarness(entity.NoLimit)
	h.orders.items["o1"] = items(50000, 1)
	_ = h.cache.SetPrice(testCtx(), "c1", "p9", 700)
	h.prices.err = errors.New("price service down")

	if _, err := h.recon.AddItem(testCtx(), AddItemInput{
		OrderID: "o1", CustomerID: "c1", ProductID: "p9", Quantity: 1,
	}); err != nil {
		t.Fatalf("cached price should avoid the lookup: %v", err)
	}
	if h.credit.calls[0] != "deduct:c1:700" {
		t.Fatalf("credit calls: %v", h.credit.calls)
	}
}

func TestAddItem_GateConsidersNewSubtotal(t *testing.T) {
	h := newHarness(entity.CreditLimit{CeilingCents: 55000})
	h.orders.items["o1"] = items(50000, 1)
	h.prices.customer["c1|p9"] = 1500

	_, err := h.recon.AddItem(testCtx(), AddItemInput{
		OrderID: "o1", CustomerID: "c1", ProductID: "p9", Quantity: 4,
	})
	var exceeded *CreditLimitExceededError
	if !errors.As(err, &exceeded) {
		t.Fatalf("expected gate rejection, got %v", err)
	}
	// 500.00 + 60.00 against a 550.00 ceiling
	if exceeded.ExcessCents() != 1000 {
		t.Fatalf("expected excess 1000, got %d", exceeded.ExcessCents())
	}
}

func TestAddItem_ZeroQuantityRejected(t *testing.T) {
	h := newHarness(entity.NoLimit)
	_, err := h.recon.AddItem(testCtx(), AddItemInput{
		OrderID: "o1", CustomerID: "c1", ProductID: "p9", Quantity: 0,
	})
	if !errors.Is(err, entity.ErrZeroQuantity) {
		t.Fatalf("expected ErrZeroQuantity, got %v", err)
	}
}

func TestRemoveItem_IncreasesCreditBySubtotal(t *testing.T) {
	h := newHarness(entity.NoLimit)
	h.orders.items["o1"] = []entity.OrderItem{
		{ID: "i1", ProductID: "p1", PriceCents: 30000, Quantity: 1},
		{ID: "i2", ProductID: "p2", PriceCents: 10000, Quantity: 2},
	}

	out, err := h.recon.RemoveItem(testCtx(), RemoveItemInput{
		OrderID: "o1", CustomerID: "c1", ItemID: "i2",
	})
	if err != nil {
		t.Fatalf("remove item: %v", err)
	}
	if out.DeltaCents != -20000 || out.CreditOp != "increase" {
		t.Fatalf("expected give-back of the removed subtotal, got %+v", out)
	}

	if h.orders.calls[0] != "remove:i2" {
		t.Fatalf("order calls: %v", h.orders.calls)
	}
	want := []string{"increase:c1:20000", "due:c1:30000:50000"}
	if h.credit.calls[0] != want[0] || h.credit.calls[1] != want[1] {
		t.Fatalf("credit calls: %v", h.credit.calls)
	}
}

func TestRemoveItem_UnknownItem(t *testing.T) {
	h := newHarness(entity.NoLimit)
	h.orders.items["o1"] = items(50000, 1)

	_, err := h.recon.RemoveItem(testCtx(), RemoveItemInput{
		OrderID: "o1", CustomerID: "c1", ItemID: "nope",
	})
	if !errors.Is(err, entity.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}

func TestRemoveItem_LastItemCascadesToCancel(t *testing.T) {
	h := newHarness(entity.NoLimit)
	h.orders.items["o1"] = items(50000, 1)

	out, err := h.recon.RemoveItem(testCtx(), RemoveItemInput{
		OrderID: "o1", CustomerID: "c1", ItemID: "i1",
	})
	if err != nil {
		t.Fatalf("remove last item: %v", err)
	}
	if out.DeltaCents != -50000 {
		t.Fatalf("cancel should give back the full total, got %+v", out)
	}

	// the item is never individually removed; the order is cancelled outright
	if len(h.orders.calls) != 1 || h.orders.calls[0] != "cancel:o1" {
		t.Fatalf("order calls: %v", h.orders.calls)
	}
	if h.credit.calls[0] != "increase:c1:50000" {
		t.Fatalf("credit calls: %v", h.credit.calls)
	}
}

func TestRemoveItem_CascadeReplaysWithSameKey(t *testing.T) {
	h := newHarness(entity.NoLimit)
	h.orders.items["o1"] = items(50000, 1)

	in := RemoveItemInput{
		OrderID: "o1", CustomerID: "c1", ItemID: "i1", IdempotencyKey: "key-7",
	}
	first, err := h.recon.RemoveItem(testCtx(), in)
	if err != nil {
		t.Fatalf("remove last item: %v", err)
	}

	// the cascade to cancel keeps the caller's key bound to its saga
	second, err := h.recon.RemoveItem(testCtx(), in)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if second.SagaID != first.SagaID {
		t.Fatalf("replay should return the original saga id")
	}
	if len(h.orders.calls) != 1 || h.orders.calls[0] != "cancel:o1" {
		t.Fatalf("order calls after replay: %v", h.orders.calls)
	}
}

func TestRemoveItem_FailureReAddsItem(t *testing.T) {
	h := newHarness(entity.NoLimit)
	h.orders.items["o1"] = []entity.OrderItem{
		{ID: "i1", ProductID: "p1", PriceCents: 30000, Quantity: 1},
		{ID: "i2", ProductID: "p2", PriceCents: 20000, Quantity: 1},
	}
	h.credit.failOn["increase"] = errors.New("credit down")

	_, err := h.recon.RemoveItem(testCtx(), RemoveItemInput{
		OrderID: "o1", CustomerID: "c1", ItemID: "i2",
	})
	if !IsCompensated(err) {
		t.Fatalf("expected compensation, got %v", err)
	}
	want := []string{"remove:i2", "add:o1:p2"}
	if len(h.orders.calls) != 2 || h.orders.calls[0] != want[0] || h.orders.calls[1] != want[1] {
		t.Fatalf("order calls: %v", h.orders.calls)
	}
}
