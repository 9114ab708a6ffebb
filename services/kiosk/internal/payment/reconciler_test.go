package payment

import (
	"context"
	"sync"
	"testing"

	"github.com/appetiteclub/kiosk/pkg/event"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/entity"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/order"
	"github.com/google/uuid"
)

type MockEmitter struct {
	mu       sync.Mutex
	EmitFunc func(ctx context.Context, name string, payload interface{}) error
	events   []string
	payloads []interface{}
}

func (m *MockEmitter) Emit(ctx context.Context, name string, payload interface{}) error {
	m.mu.Lock()
	m.events = append(m.events, name)
	m.payloads = append(m.payloads, payload)
	m.mu.Unlock()
	if m.EmitFunc != nil {
		return m.EmitFunc(ctx, name, payload)
	}
	return nil
}

func (m *MockEmitter) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e == name {
			n++
		}
	}
	return n
}

func newOrders() *entity.Store[order.Order] {
	return entity.NewStore[order.Order]("order", entity.NewMemoryBackend[order.Order](), nil)
}

func seedOrder(t *testing.T, orders *entity.Store[order.Order], token, status string) *order.Order {
	t.Helper()
	o := order.NewOrder()
	o.CheckoutMethod = "sumUp"
	o.Payment.ClientTransactionID = token
	o.Payment.Status = status
	o.BeforeCreate()
	if err := orders.Create(context.Background(), o); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return o
}

func paymentStatus(t *testing.T, orders *entity.Store[order.Order], id uuid.UUID) string {
	t.Helper()
	o, err := orders.Get(context.Background(), id)
	if err != nil || o == nil {
		t.Fatalf("Get() = %v, %v", o, err)
	}
	return o.Payment.Status
}

func TestApplyStatusUpdateTransitions(t *testing.T) {
	ctx := context.Background()
	orders := newOrders()
	emitter := &MockEmitter{}
	rec := NewReconciler(orders, emitter, nil)

	o := seedOrder(t, orders, "tx-1", "pending")

	res, err := rec.ApplyStatusUpdate(ctx, ByClientTransactionID("tx-1"), "successful", "test")
	if err != nil {
		t.Fatalf("ApplyStatusUpdate() error = %v", err)
	}
	if !res.Applied || res.OrderID != o.ID || res.Status != "successful" {
		t.Errorf("result = %+v", res)
	}
	if emitter.count(event.PaymentStatusUpdated) != 1 {
		t.Fatalf("emitted %d events, want 1", emitter.count(event.PaymentStatusUpdated))
	}
	payload, ok := emitter.payloads[0].(event.PaymentStatusUpdatedPayload)
	if !ok || payload.OrderID != o.ID.String() || payload.PaymentStatus != "successful" {
		t.Errorf("payload = %#v", emitter.payloads[0])
	}
}

func TestApplyStatusUpdateIsIdempotent(t *testing.T) {
	ctx := context.Background()

	for _, terminal := range []string{"successful", "failed", "refunded"} {
		for _, requested := range []string{"successful", "failed"} {
			t.Run(terminal+"->"+requested, func(t *testing.T) {
				orders := newOrders()
				emitter := &MockEmitter{}
				rec := NewReconciler(orders, emitter, nil)
				o := seedOrder(t, orders, "tx-final", terminal)

				for _, key := range []LookupKey{ByClientTransactionID("tx-final"), ByOrderID(o.ID), ByPaymentID(o.Payment.ID)} {
					res, err := rec.ApplyStatusUpdate(ctx, key, requested, "test")
					if err != nil {
						t.Fatalf("ApplyStatusUpdate() error = %v", err)
					}
					if res.Applied || !res.AlreadyFinal || res.Status != terminal {
						t.Errorf("result = %+v, want alreadyFinal with %s", res, terminal)
					}
				}
				if got := paymentStatus(t, orders, o.ID); got != terminal {
					t.Errorf("status = %s, want %s", got, terminal)
				}
				if len(emitter.events) != 0 {
					t.Errorf("emitted %v on no-op", emitter.events)
				}
			})
		}
	}
}

func TestApplyStatusUpdateRejects(t *testing.T) {
	ctx := context.Background()
	orders := newOrders()
	rec := NewReconciler(orders, &MockEmitter{}, nil)
	seedOrder(t, orders, "tx-1", "pending")

	tests := []struct {
		name   string
		key    LookupKey
		status string
	}{
		{"pending is not a resolution", ByClientTransactionID("tx-1"), "pending"},
		{"refunded is not a resolution", ByClientTransactionID("tx-1"), "refunded"},
		{"bad order id", LookupKey{Kind: KeyOrderID, Value: "nope"}, "successful"},
		{"empty token", ByClientTransactionID(""), "successful"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := rec.ApplyStatusUpdate(ctx, tt.key, tt.status, "test"); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestApplyStatusUpdateNotFound(t *testing.T) {
	rec := NewReconciler(newOrders(), &MockEmitter{}, nil)
	res, err := rec.ApplyStatusUpdate(context.Background(), ByClientTransactionID("tx-unknown"), "successful", "test")
	if err != nil {
		t.Fatalf("ApplyStatusUpdate() error = %v", err)
	}
	if !res.NotFound || res.Applied {
		t.Errorf("result = %+v, want not found", res)
	}
}

func TestApplyStatusUpdateRace(t *testing.T) {
	ctx := context.Background()
	orders := newOrders()
	emitter := &MockEmitter{}
	rec := NewReconciler(orders, emitter, nil)
	o := seedOrder(t, orders, "tx-race", "pending")

	const workers = 16
	results := make([]Result, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status := "successful"
			if i%2 == 1 {
				status = "failed"
			}
			res, err := rec.ApplyStatusUpdate(ctx, ByClientTransactionID("tx-race"), status, "test")
			if err != nil {
				t.Errorf("ApplyStatusUpdate() error = %v", err)
			}
			results[i] = res
		}(i)
	}
	wg.Wait()

	applied := 0
	var winner string
	for _, res := range results {
		if res.Applied {
			applied++
			winner = res.Status
		}
	}
	if applied != 1 {
		t.Fatalf("applied = %d, want exactly 1", applied)
	}
	if got := paymentStatus(t, orders, o.ID); got != winner {
		t.Errorf("persisted status = %s, want %s", got, winner)
	}
	for _, res := range results {
		if !res.Applied && res.Status != winner {
			t.Errorf("loser observed %s, want %s", res.Status, winner)
		}
	}
	if n := emitter.count(event.PaymentStatusUpdated); n != 1 {
		t.Errorf("emitted %d events, want 1", n)
	}
}
