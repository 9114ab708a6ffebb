package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/appetiteclub/kiosk/pkg/lib/events"
)

type memBus struct {
	mu       sync.Mutex
	handlers map[string][]events.HandlerFunc
	fail     error
}

func newMemBus() *memBus {
	return &memBus{handlers: make(map[string][]events.HandlerFunc)}
}

func (b *memBus) Publish(ctx context.Context, topic string, msg []byte) error {
	if b.fail != nil {
		return b.fail
	}
	b.mu.Lock()
	hs := append([]events.HandlerFunc(nil), b.handlers[topic]...)
	b.mu.Unlock()
	for _, h := range hs {
		_ = h(ctx, msg)
	}
	return nil
}

func (b *memBus) Subscribe(ctx context.Context, topic string, handler events.HandlerFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], handler)
	return nil
}

func drain(c *Client) []Message {
	var out []Message
	for {
		select {
		case m, ok := <-c.Messages():
			if !ok {
				return out
			}
			out = append(out, m)
		default:
			return out
		}
	}
}

func TestChannelNotReady(t *testing.T) {
	ctx := context.Background()
	ch := NewChannel(NewHub(nil), nil, nil)

	calls := map[string]func() error{
		"emit":       func() error { return ch.Emit(ctx, "orderCreated", map[string]string{"id": "1"}) },
		"emitToRoom": func() error { return ch.EmitToRoom(ctx, "k1", "kiosk-refresh", nil) },
		"broadcast":  func() error { return ch.Broadcast(ctx, "kiosk-refresh") },
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			if err := call(); !errors.Is(err, ErrNotReady) {
				t.Errorf("error = %v, want ErrNotReady", err)
			}
		})
	}

	if err := ch.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := ch.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := ch.Broadcast(ctx, "kiosk-refresh"); !errors.Is(err, ErrNotReady) {
		t.Errorf("after shutdown error = %v, want ErrNotReady", err)
	}
}

func TestChannelRoomScoping(t *testing.T) {
	ctx := context.Background()
	hub := NewHub(nil)
	ch := NewChannel(hub, nil, nil)
	if err := ch.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	admin := hub.Register("admins")
	kioskA := hub.Register("kiosk-a")
	kioskB := hub.Register("kiosk-b")

	if err := ch.Emit(ctx, "orderCreated", map[string]string{"id": "o1"}); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	if err := ch.EmitToRoom(ctx, "kiosk-a", "kiosk-refresh", nil); err != nil {
		t.Fatalf("EmitToRoom() error = %v", err)
	}

	tests := []struct {
		name   string
		client *Client
		want   []string
	}{
		{"admin", admin, []string{"orderCreated"}},
		{"kiosk in room", kioskA, []string{"orderCreated", "kiosk-refresh"}},
		{"kiosk outside room", kioskB, []string{"orderCreated"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := drain(tt.client)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d messages, want %d", len(got), len(tt.want))
			}
			for i, m := range got {
				if m.Event != tt.want[i] {
					t.Errorf("message %d = %s, want %s", i, m.Event, tt.want[i])
				}
			}
		})
	}

	if err := ch.EmitToRoom(ctx, "", "kiosk-refresh", nil); err == nil {
		t.Error("EmitToRoom() with empty room should fail")
	}
}

func TestChannelPayloadEncoding(t *testing.T) {
	ctx := context.Background()
	hub := NewHub(nil)
	ch := NewChannel(hub, nil, nil)
	_ = ch.Initialize(ctx)
	c := hub.Register()

	_ = ch.Emit(ctx, "paymentStatusUpdated", map[string]string{"orderId": "o1", "paymentStatus": "successful"})
	_ = ch.Broadcast(ctx, "kiosk-refresh")

	got := drain(c)
	if len(got) != 2 {
		t.Fatalf("got %d messages, want 2", len(got))
	}
	var p map[string]string
	if err := json.Unmarshal(got[0].Payload, &p); err != nil {
		t.Fatalf("payload decode error = %v", err)
	}
	if p["orderId"] != "o1" || p["paymentStatus"] != "successful" {
		t.Errorf("payload = %v", p)
	}
	if len(got[1].Payload) != 0 {
		t.Errorf("broadcast payload = %s, want empty", got[1].Payload)
	}
}

func TestChannelRelayAcrossProcesses(t *testing.T) {
	ctx := context.Background()
	bus := newMemBus()

	hubA, hubB := NewHub(nil), NewHub(nil)
	chA := NewChannel(hubA, NewBusRelay(bus, bus, "test", nil), nil)
	chB := NewChannel(hubB, NewBusRelay(bus, bus, "test", nil), nil)
	other := NewChannel(NewHub(nil), NewBusRelay(bus, bus, "other", nil), nil)
	for _, ch := range []*Channel{chA, chB, other} {
		if err := ch.Initialize(ctx); err != nil {
			t.Fatalf("Initialize() error = %v", err)
		}
	}

	onA := hubA.Register()
	onB := hubB.Register("kiosk-1")
	onOther := other.Hub().Register()

	if err := chA.EmitToRoom(ctx, "kiosk-1", "kiosk-refresh", nil); err != nil {
		t.Fatalf("EmitToRoom() error = %v", err)
	}
	if err := chA.Emit(ctx, "sessionCreated", map[string]string{"id": "s1"}); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}

	if got := drain(onA); len(got) != 1 || got[0].Event != "sessionCreated" {
		t.Errorf("local client got %+v, want exactly one sessionCreated", got)
	}
	if got := drain(onB); len(got) != 2 {
		t.Errorf("remote client got %d messages, want 2", len(got))
	}
	if got := drain(onOther); len(got) != 0 {
		t.Errorf("other deployment got %d messages, want 0", len(got))
	}
}

func TestChannelRelayFailure(t *testing.T) {
	ctx := context.Background()
	bus := newMemBus()
	hub := NewHub(nil)
	ch := NewChannel(hub, NewBusRelay(bus, bus, "test", nil), nil)
	_ = ch.Initialize(ctx)
	c := hub.Register()

	bus.fail = errors.New("connection refused")
	if err := ch.Broadcast(ctx, "kiosk-refresh"); err == nil {
		t.Error("Broadcast() should report relay failure")
	}
	if got := drain(c); len(got) != 1 {
		t.Errorf("local delivery = %d, want 1", len(got))
	}
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(nil)
	c := hub.Register()

	for i := 0; i < clientBuffer+10; i++ {
		hub.Deliver(Message{Event: "orderUpdated"})
	}
	if got := len(drain(c)); got != clientBuffer {
		t.Errorf("buffered = %d, want %d", got, clientBuffer)
	}

	hub.Unregister(c)
	hub.Unregister(c)
	if _, ok := <-c.Messages(); ok {
		t.Error("messages channel should be closed after unregister")
	}
	if hub.Count() != 0 {
		t.Errorf("Count() = %d, want 0", hub.Count())
	}
}
