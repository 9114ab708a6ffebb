package pkg

import (
	"context"
	"fmt"
	"sync"

	"github.com/appetiteclub/kiosk/pkg/lib/core"
	"github.com/appetiteclub/kiosk/pkg/lib/events"
	"github.com/nats-io/nats.go"
)

type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("kiosk-publisher"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, msg []byte) error {
	return p.conn.Publish(topic, msg)
}

func (p *NATSPublisher) Close() error {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
	return nil
}

type NATSSubscriber struct {
	conn   *nats.Conn
	logger core.Logger

	mu   sync.Mutex
	subs []*nats.Subscription
}

func NewNATSSubscriber(url string, logger core.Logger) (*NATSSubscriber, error) {
	if logger == nil {
		logger = core.NewNoopLogger()
	}
	conn, err := nats.Connect(url, nats.Name("kiosk-subscriber"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSSubscriber{conn: conn, logger: logger}, nil
}

func (s *NATSSubscriber) Subscribe(ctx context.Context, topic string, handler events.HandlerFunc) error {
	sub, err := s.conn.Subscribe(topic, func(msg *nats.Msg) {
		if err := handler(ctx, msg.Data); err != nil {
			s.logger.Info("nats handler failed", "topic", topic, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("cannot subscribe to %s: %w", topic, err)
	}
	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()
	return nil
}

func (s *NATSSubscriber) Close() error {
	s.mu.Lock()
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	s.subs = nil
	s.mu.Unlock()
	s.conn.Close()
	return nil
}
