package pkg

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/appetiteclub/kiosk/pkg/lib/core"
	"github.com/appetiteclub/kiosk/pkg/lib/events"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSStream publishes through a JetStream stream and fans every message out
// to each subscriber with an ordered consumer that starts at the newest
// message. Replicas never share a consumer, so each one sees every message.
type NATSStream struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	stream jetstream.Stream
	logger core.Logger

	mu        sync.Mutex
	consumers []jetstream.ConsumeContext
}

type NATSStreamConfig struct {
	URL        string
	StreamName string
	Subjects   []string
	MaxAge     time.Duration
}

func NewNATSStream(ctx context.Context, cfg NATSStreamConfig, logger core.Logger) (*NATSStream, error) {
	if logger == nil {
		logger = core.NewNoopLogger()
	}

	conn, err := nats.Connect(cfg.URL, nats.Name("kiosk-stream"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     cfg.StreamName,
		Subjects: cfg.Subjects,
		MaxAge:   cfg.MaxAge,
		Storage:  jetstream.MemoryStorage,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create/update stream %s: %w", cfg.StreamName, err)
	}

	return &NATSStream{conn: conn, js: js, stream: stream, logger: logger}, nil
}

func (s *NATSStream) Publish(ctx context.Context, topic string, msg []byte) error {
	if _, err := s.js.Publish(ctx, topic, msg); err != nil {
		return fmt.Errorf("failed to publish to stream: %w", err)
	}
	return nil
}

func (s *NATSStream) Subscribe(ctx context.Context, topic string, handler events.HandlerFunc) error {
	consumer, err := s.stream.OrderedConsumer(ctx, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{topic},
		DeliverPolicy:  jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return fmt.Errorf("cannot create consumer for %s: %w", topic, err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		if err := handler(ctx, msg.Data()); err != nil {
			s.logger.Info("stream handler failed", "topic", topic, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("cannot consume %s: %w", topic, err)
	}

	s.mu.Lock()
	s.consumers = append(s.consumers, cc)
	s.mu.Unlock()
	return nil
}

func (s *NATSStream) Close() error {
	s.mu.Lock()
	for _, cc := range s.consumers {
		cc.Stop()
	}
	s.consumers = nil
	s.mu.Unlock()
	s.conn.Close()
	return nil
}
