package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/appetiteclub/kiosk/pkg/lib/core"
	"github.com/appetiteclub/kiosk/pkg/lib/events"
	"github.com/google/uuid"
)

// BusRelay shares messages through a pub/sub bus (NATS or Redis). The topic
// is derived from a deployment prefix so deployments sharing one bus stay
// apart. Messages a process published itself are skipped on receive since
// they were already delivered locally.
type BusRelay struct {
	pub    events.Publisher
	sub    events.Subscriber
	topic  string
	origin string
	logger core.Logger
}

type envelope struct {
	Origin string `json:"origin"`
	Message
}

func NewBusRelay(pub events.Publisher, sub events.Subscriber, prefix string, logger core.Logger) *BusRelay {
	if logger == nil {
		logger = core.NewNoopLogger()
	}
	return &BusRelay{
		pub:    pub,
		sub:    sub,
		topic:  Topic(prefix),
		origin: uuid.NewString(),
		logger: logger.With("component", "BusRelay"),
	}
}

// Topic is the bus subject for a deployment prefix.
func Topic(prefix string) string {
	if prefix == "" {
		prefix = "kiosk"
	}
	return prefix + ".realtime"
}

func (r *BusRelay) Publish(ctx context.Context, msg Message) error {
	data, err := json.Marshal(envelope{Origin: r.origin, Message: msg})
	if err != nil {
		return fmt.Errorf("cannot encode envelope: %w", err)
	}
	return r.pub.Publish(ctx, r.topic, data)
}

func (r *BusRelay) Listen(ctx context.Context, deliver func(Message)) error {
	return r.sub.Subscribe(ctx, r.topic, func(ctx context.Context, data []byte) error {
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			r.logger.Info("invalid relay envelope", "error", err)
			return nil
		}
		if env.Origin == r.origin {
			return nil
		}
		if env.Event == "" {
			r.logger.Info("relay envelope without event", "origin", env.Origin)
			return nil
		}
		deliver(env.Message)
		return nil
	})
}
