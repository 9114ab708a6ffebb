// Package events defines the message bus contracts shared by publishers and
// subscribers, independent of the transport behind them.
package events

import "context"

// HandlerFunc processes one message. Returning an error only affects logging;
// plain pub/sub transports do not redeliver.
type HandlerFunc func(ctx context.Context, msg []byte) error

type Publisher interface {
	Publish(ctx context.Context, topic string, msg []byte) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, topic string, handler HandlerFunc) error
}
