// Package realtime delivers named events to connected kiosk and admin clients.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/appetiteclub/kiosk/pkg/lib/core"
)

var ErrNotReady = errors.New("realtime: channel not ready")

// Relay carries messages between processes sharing one deployment.
type Relay interface {
	Publish(ctx context.Context, msg Message) error
	Listen(ctx context.Context, deliver func(Message)) error
}

// Channel is the broadcast handle passed to every component that emits.
// It rejects every call until Initialize and after Shutdown.
type Channel struct {
	hub    *Hub
	relay  Relay
	logger core.Logger

	mu    sync.RWMutex
	ready bool
}

// NewChannel builds a channel over hub. A nil relay keeps delivery local to
// this process.
func NewChannel(hub *Hub, relay Relay, logger core.Logger) *Channel {
	if logger == nil {
		logger = core.NewNoopLogger()
	}
	return &Channel{
		hub:    hub,
		relay:  relay,
		logger: logger.With("component", "BroadcastChannel"),
	}
}

func (c *Channel) Hub() *Hub {
	return c.hub
}

func (c *Channel) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ready {
		return nil
	}
	if c.relay != nil {
		if err := c.relay.Listen(ctx, c.deliverRemote); err != nil {
			return fmt.Errorf("cannot listen on relay: %w", err)
		}
	}
	c.ready = true
	c.logger.Info("broadcast channel ready", "relay", c.relay != nil)
	return nil
}

// Shutdown disconnects every local client.
func (c *Channel) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ready {
		return nil
	}
	c.ready = false
	c.hub.closeAll()
	c.logger.Info("broadcast channel shut down")
	return nil
}

func (c *Channel) Start(ctx context.Context) error {
	return c.Initialize(ctx)
}

func (c *Channel) Stop(ctx context.Context) error {
	return c.Shutdown(ctx)
}

func (c *Channel) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// Emit delivers payload to every connected client.
func (c *Channel) Emit(ctx context.Context, event string, payload interface{}) error {
	return c.send(ctx, Message{Event: event}, payload)
}

// EmitToRoom delivers payload to the clients in room.
func (c *Channel) EmitToRoom(ctx context.Context, room, event string, payload interface{}) error {
	if room == "" {
		return fmt.Errorf("room is required for %s", event)
	}
	return c.send(ctx, Message{Room: room, Event: event}, payload)
}

// Broadcast delivers a signal without payload to every connected client.
func (c *Channel) Broadcast(ctx context.Context, event string) error {
	return c.send(ctx, Message{Event: event}, nil)
}

func (c *Channel) send(ctx context.Context, msg Message, payload interface{}) error {
	if !c.Ready() {
		return ErrNotReady
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("cannot encode %s payload: %w", msg.Event, err)
		}
		msg.Payload = data
	}

	c.hub.Deliver(msg)

	if c.relay != nil {
		if err := c.relay.Publish(ctx, msg); err != nil {
			return fmt.Errorf("cannot relay %s: %w", msg.Event, err)
		}
	}
	return nil
}

func (c *Channel) deliverRemote(msg Message) {
	if !c.Ready() {
		return
	}
	c.hub.Deliver(msg)
}
