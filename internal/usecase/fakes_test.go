package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/orderappu/recon-api/internal/entity"
	"github.com/orderappu/recon-api/internal/logging"
	"github.com/orderappu/recon-api/internal/saga"
	"github.com/orderappu/recon-api/internal/sagajournal"
)

func testCtx() context.Context {
	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	return logging.WithCtx(context.Background(), l)
}

type memJournal struct {
	mu      sync.Mutex
	entries []sagajournal.Entry
}

func (m *memJournal) Append(_ context.Context, e *sagajournal.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *e)
	return nil
}

func (m *memJournal) Latest(_ context.Context, sagaID string) (*sagajournal.Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].SagaID == sagaID {
			e := m.entries[i]
			return &e, true, nil
		}
	}
	return nil, false, nil
}

func (m *memJournal) InFlight(context.Context) (map[string][]sagajournal.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string][]sagajournal.Entry{}
	for _, e := range m.entries {
		out[e.SagaID] = append(out[e.SagaID], e)
	}
	for id, es := range out {
		if es[len(es)-1].Status.Terminal() {
			delete(out, id)
		}
	}
	return out, nil
}

// fakeOrders records every mutating call as "op:args" and lets tests fail
// specific operations.
type fakeOrders struct {
	mu       sync.Mutex
	calls    []string
	items    map[string][]entity.OrderItem // orderID -> current items
	orders   []entity.Order
	failOn   map[string]error // op name -> error
	placedID string
	nextItem int
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{
		items:    map[string][]entity.OrderItem{},
		failOn:   map[string]error{},
		placedID: "ord-new",
	}
}

func (f *fakeOrders) record(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, s)
}

func (f *fakeOrders) Place(_ context.Context, req PlaceRequest) (string, error) {
	f.record("place:" + req.CustomerID)
	if err := f.failOn["place"]; err != nil {
		return "", err
	}
	return f.placedID, nil
}

func (f *fakeOrders) Update(_ context.Context, orderID string, items []entity.OrderItem, totalCents int64) error {
	f.record(fmt.Sprintf("update:%s:%d", orderID, totalCents))
	if err := f.failOn["update"]; err != nil {
		return err
	}
	f.mu.Lock()
	f.items[orderID] = items
	f.mu.Unlock()
	return nil
}

func (f *fakeOrders) Approve(_ context.Context, orderID string, status entity.ApproveStatus) error {
	f.record(fmt.Sprintf("approve:%s:%s", orderID, status))
	return f.failOn["approve:"+orderID]
}

func (f *fakeOrders) Cancel(_ context.Context, orderID string) error {
	f.record("cancel:" + orderID)
	return f.failOn["cancel"]
}

func (f *fakeOrders) AddProduct(_ context.Context, orderID string, item entity.OrderItem) (string, error) {
	f.record("add:" + orderID + ":" + item.ProductID)
	if err := f.failOn["add"]; err != nil {
		return "", err
	}
	f.mu.Lock()
	f.nextItem++
	id := fmt.Sprintf("item-%d", f.nextItem)
	f.mu.Unlock()
	return id, nil
}

func (f *fakeOrders) RemoveProduct(_ context.Context, itemID string) error {
	f.record("remove:" + itemID)
	return f.failOn["remove"]
}

func (f *fakeOrders) Products(_ context.Context, orderID string) ([]entity.OrderItem, error) {
	if err := f.failOn["products"]; err != nil {
		return nil, err
	}
	return f.items[orderID], nil
}

func (f *fakeOrders) OrdersForCustomer(_ context.Context, customerID string, _ bool) ([]entity.Order, error) {
	if err := f.failOn["orders"]; err != nil {
		return nil, err
	}
	return f.orders, nil
}

// fakePrices answers the fallback chain from three fixed maps.
type fakePrices struct {
	customer map[string]int64 // customerID|productID
	latest   map[string]int64
	def      map[string]int64 // productID
	err      error
}

func (f *fakePrices) CustomerPrice(_ context.Context, customerID, productID string) (int64, bool, error) {
	if f.err != nil {
		return 0, false, f.err
	}
	c, ok := f.customer[customerID+"|"+productID]
	return c, ok, nil
}

func (f *fakePrices) LatestPrice(_ context.Context, customerID, productID string) (int64, bool, error) {
	if f.err != nil {
		return 0, false, f.err
	}
	c, ok := f.latest[customerID+"|"+productID]
	return c, ok, nil
}

func (f *fakePrices) DefaultPrice(_ context.Context, productID string) (int64, bool, error) {
	if f.err != nil {
		return 0, false, f.err
	}
	c, ok := f.def[productID]
	return c, ok, nil
}

// fakeCredit records deduct/increase/amount-due calls.
type fakeCredit struct {
	mu       sync.Mutex
	calls    []string
	limit    entity.CreditLimit
	limitErr error
	failOn   map[string]error
}

func newFakeCredit(limit entity.CreditLimit) *fakeCredit {
	return &fakeCredit{limit: limit, failOn: map[string]error{}}
}

func (f *fakeCredit) record(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, s)
}

func (f *fakeCredit) Limit(context.Context, string) (entity.CreditLimit, error) {
	if f.limitErr != nil {
		return entity.CreditLimit{}, f.limitErr
	}
	return f.limit, nil
}

func (f *fakeCredit) Deduct(_ context.Context, customerID string, cents int64) error {
	f.record(fmt.Sprintf("deduct:%s:%d", customerID, cents))
	return f.failOn["deduct"]
}

func (f *fakeCredit) Increase(_ context.Context, customerID string, cents int64) error {
	f.record(fmt.Sprintf("increase:%s:%d", customerID, cents))
	return f.failOn["increase"]
}

func (f *fakeCredit) SetAmountDue(_ context.Context, customerID string, newTotal, origTotal int64, _ string) error {
	f.record(fmt.Sprintf("due:%s:%d:%d", customerID, newTotal, origTotal))
	return f.failOn["due"]
}

type fakeIdem struct {
	mu     sync.Mutex
	locked map[string]bool
	stored map[string]string
}

func newFakeIdem() *fakeIdem {
	return &fakeIdem{locked: map[string]bool{}, stored: map[string]string{}}
}

func (f *fakeIdem) TryLock(_ context.Context, scope, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := scope + ":" + key
	if f.locked[k] {
		return false, nil
	}
	f.locked[k] = true
	return true, nil
}

func (f *fakeIdem) Remember(_ context.Context, scope, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stored[scope+":"+key] = value
	return nil
}

func (f *fakeIdem) Recall(_ context.Context, scope, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.stored[scope+":"+key]
	return v, ok, nil
}

type fakeSnapshots struct {
	mu    sync.Mutex
	flags map[string]OrderFlags
}

func newFakeSnapshots() *fakeSnapshots {
	return &fakeSnapshots{flags: map[string]OrderFlags{}}
}

func (f *fakeSnapshots) OrderFlags(_ context.Context, orderID string) (OrderFlags, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fl, ok := f.flags[orderID]
	return fl, ok, nil
}

func (f *fakeSnapshots) SetOrderFlags(_ context.Context, orderID string, fl OrderFlags) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flags[orderID] = fl
	return nil
}

type fakePriceCache struct {
	mu     sync.Mutex
	prices map[string]int64
	sets   int
}

func newFakePriceCache() *fakePriceCache {
	return &fakePriceCache{prices: map[string]int64{}}
}

func (f *fakePriceCache) GetPrice(_ context.Context, customerID, productID string) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.prices[customerID+"|"+productID]
	return c, ok, nil
}

func (f *fakePriceCache) SetPrice(_ context.Context, customerID, productID string, cents int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[customerID+"|"+productID] = cents
	f.sets++
	return nil
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []ReconOutcomeMsg
}

func (f *fakePublisher) PublishOutcome(_ context.Context, msg ReconOutcomeMsg) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return nil
}

// harness bundles a reconciler wired entirely to fakes.
type harness struct {
	recon     *Reconciler
	orders    *fakeOrders
	credit    *fakeCredit
	prices    *fakePrices
	journal   *memJournal
	idem      *fakeIdem
	snapshots *fakeSnapshots
	cache     *fakePriceCache
	pub       *fakePublisher
}

func newHarness(limit entity.CreditLimit) *harness {
	h := &harness{
		orders:    newFakeOrders(),
		credit:    newFakeCredit(limit),
		prices:    &fakePrices{customer: map[string]int64{}, latest: map[string]int64{}, def: map[string]int64{}},
		journal:   &memJournal{},
		idem:      newFakeIdem(),
		snapshots: newFakeSnapshots(),
		cache:     newFakePriceCache(),
		pub:       &fakePublisher{},
	}
	h.recon = NewReconciler(
		h.orders, h.credit, h.prices,
		saga.NewOrchestrator(h.journal),
		h.idem, h.snapshots, h.cache, h.pub,
	)
	return h
}
