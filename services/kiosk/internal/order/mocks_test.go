package order

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/appetiteclub/kiosk/pkg/enums/principal"
	"github.com/appetiteclub/kiosk/pkg/event"
	"github.com/appetiteclub/kiosk/pkg/lib/core"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/authn"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/catalog"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/entity"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/notify"
	"github.com/google/uuid"
)

type MockCheckoutCreator struct {
	CreateCheckoutFunc func(ctx context.Context, readerID string, amount int64, reference string) (string, bool)
	calls              int
}

func (m *MockCheckoutCreator) CreateCheckout(ctx context.Context, readerID string, amount int64, reference string) (string, bool) {
	m.calls++
	if m.CreateCheckoutFunc != nil {
		return m.CreateCheckoutFunc(ctx, readerID, amount, reference)
	}
	return "tx-" + reference, true
}

type MockEmitter struct {
	mu       sync.Mutex
	names    []string
	payloads []interface{}
}

func (m *MockEmitter) Emit(ctx context.Context, name string, payload interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names = append(m.names, name)
	m.payloads = append(m.payloads, payload)
	return nil
}

func (m *MockEmitter) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, v := range m.names {
		if v == name {
			n++
		}
	}
	return n
}

// MockLogger records Error messages and drops everything else.
type MockLogger struct {
	mu     sync.Mutex
	errors []string
}

func (m *MockLogger) Debug(msg string, kv ...interface{}) {}
func (m *MockLogger) Info(msg string, kv ...interface{})  {}
func (m *MockLogger) Warn(msg string, kv ...interface{})  {}
func (m *MockLogger) Error(msg string, kv ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}
func (m *MockLogger) Debugf(format string, args ...interface{}) {}
func (m *MockLogger) Infof(format string, args ...interface{})  {}
func (m *MockLogger) Warnf(format string, args ...interface{})  {}
func (m *MockLogger) Errorf(format string, args ...interface{}) {}
func (m *MockLogger) With(kv ...interface{}) core.Logger        { return m }

func (m *MockLogger) errorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors)
}

type failingInsertBackend struct {
	*entity.MemoryBackend[Order]
}

func (f failingInsertBackend) Insert(ctx context.Context, o *Order) error {
	return errors.New("connection refused")
}

type fixture struct {
	service  *Service
	orders   *entity.Store[Order]
	stores   catalog.Stores
	creator  *MockCheckoutCreator
	emitter  *MockEmitter
	activity *catalog.Activity
	room     *catalog.Room
	coffee   *catalog.Product
	soldOut  *catalog.Product
	kiosk    *catalog.Kiosk
	bare     *catalog.Kiosk
	admin    authn.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		stores:  catalog.NewMemoryStores(),
		creator: &MockCheckoutCreator{},
		emitter: &MockEmitter{},
	}
	f.orders = entity.NewStore[Order]("order", entity.NewMemoryBackend[Order](), nil)
	f.orders.SetHooks(notify.For(notify.NewNotifier(f.emitter, nil), event.EntityOrder, ToPublic))

	f.activity = &catalog.Activity{ID: uuid.New(), Name: "Summer Camp", Active: true}
	f.room = &catalog.Room{ID: uuid.New(), Name: "Canteen"}
	f.coffee = &catalog.Product{ID: uuid.New(), Name: "Coffee", Price: 250, Available: true}
	f.soldOut = &catalog.Product{ID: uuid.New(), Name: "Cake", Price: 400, Available: false}
	f.kiosk = &catalog.Kiosk{ID: uuid.New(), Name: "K1", Username: "k1", ActivityID: &f.activity.ID, RoomID: &f.room.ID, ReaderID: "rdr-1"}
	f.bare = &catalog.Kiosk{ID: uuid.New(), Name: "K2", Username: "k2", ActivityID: &f.activity.ID, RoomID: &f.room.ID}
	f.admin = authn.Principal{Type: principal.Admin, ID: uuid.New()}

	must(t, f.stores.Activities.Create(ctx, f.activity))
	must(t, f.stores.Rooms.Create(ctx, f.room))
	must(t, f.stores.Products.Create(ctx, f.coffee))
	must(t, f.stores.Products.Create(ctx, f.soldOut))
	must(t, f.stores.Kiosks.Create(ctx, f.kiosk))
	must(t, f.stores.Kiosks.Create(ctx, f.bare))

	f.service = NewService(ServiceDeps{
		Orders:   f.orders,
		Catalog:  f.stores,
		Checkout: f.creator,
		Emitter:  f.emitter,
	}, nil)
	return f
}

func (f *fixture) kioskPrincipal(k *catalog.Kiosk) authn.Principal {
	return authn.Principal{Type: principal.Kiosk, ID: k.ID}
}

func (f *fixture) coffees(n int) []CheckoutItem {
	return []CheckoutItem{{ProductID: f.coffee.ID.String(), Quantity: n}}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("setup error = %v", err)
	}
}
