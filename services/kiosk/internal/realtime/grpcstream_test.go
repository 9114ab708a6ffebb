package realtime

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

func TestEventStreamServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hub := NewHub(nil)
	ch := NewChannel(hub, nil, nil)
	_ = ch.Initialize(ctx)

	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	NewEventStreamServer(hub, nil).RegisterGRPCService(server)
	go func() { _ = server.Serve(lis) }()
	defer server.Stop()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer conn.Close()

	stream, err := SubscribeEvents(ctx, conn, "admins")
	if err != nil {
		t.Fatalf("SubscribeEvents() error = %v", err)
	}

	for hub.Count() == 0 {
		select {
		case <-ctx.Done():
			t.Fatal("subscriber never registered")
		case <-time.After(10 * time.Millisecond):
		}
	}

	_ = ch.EmitToRoom(ctx, "kiosk-9", "kiosk-refresh", nil)
	_ = ch.Emit(ctx, "paymentStatusUpdated", map[string]string{"orderId": "o1", "paymentStatus": "failed"})

	msg, err := stream.Recv()
	if err != nil {
		t.Fatalf("Recv() error = %v", err)
	}
	if msg.Event != "paymentStatusUpdated" {
		t.Fatalf("event = %s, want paymentStatusUpdated", msg.Event)
	}
	var p map[string]string
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		t.Fatalf("payload error = %v", err)
	}
	if p["paymentStatus"] != "failed" {
		t.Errorf("payload = %v", p)
	}
}
