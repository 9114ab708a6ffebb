package core

import "context"

// Starter is implemented by components that must run setup before serving.
type Starter interface {
	Start(ctx context.Context) error
}

// Stopper is implemented by components that hold resources until shutdown.
type Stopper interface {
	Stop(ctx context.Context) error
}

// LifecycleHooks adapts plain functions to Starter and Stopper.
type LifecycleHooks struct {
	OnStart func(ctx context.Context) error
	OnStop  func(ctx context.Context) error
}

func (h LifecycleHooks) Start(ctx context.Context) error {
	if h.OnStart == nil {
		return nil
	}
	return h.OnStart(ctx)
}

func (h LifecycleHooks) Stop(ctx context.Context) error {
	if h.OnStop == nil {
		return nil
	}
	return h.OnStop(ctx)
}
