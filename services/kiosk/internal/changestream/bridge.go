// Package changestream tails a collection's native change feed and replays
// it as entity change notifications, for writers that bypass the entity store.
package changestream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/appetiteclub/kiosk/pkg/lib/core"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/entity"
)

var (
	ErrRetriesExhausted = errors.New("changestream: retries exhausted")
	errStreamEnded      = errors.New("changestream: stream ended")
)

type Operation string

const (
	OpInsert  Operation = "insert"
	OpUpdate  Operation = "update"
	OpReplace Operation = "replace"
	OpDelete  Operation = "delete"
)

// Change is one event of the feed. Document is the full post-change document
// and is nil for deletes.
type Change[E any] struct {
	Operation Operation
	Key       string
	Document  *E
}

// Stream is an open subscription. Next blocks until a change is available,
// the stream fails or ctx is done.
type Stream[E any] interface {
	Next(ctx context.Context) bool
	Change() Change[E]
	Err() error
	Close(ctx context.Context) error
}

type Source[E any] interface {
	Open(ctx context.Context) (Stream[E], error)
}

type State int

const (
	Starting State = iota
	Running
	Retrying
	Stopped
	Fatal
)

func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Retrying:
		return "retrying"
	case Stopped:
		return "stopped"
	case Fatal:
		return "fatal"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type Option func(*options)

type options struct {
	policy   Policy
	reporter core.ErrorReporter
	after    func(time.Duration) <-chan time.Time
	shutdown func(error)
}

func WithPolicy(p Policy) Option {
	return func(o *options) { o.policy = p }
}

func WithReporter(r core.ErrorReporter) Option {
	return func(o *options) { o.reporter = r }
}

// WithTimer replaces time.After for backoff waits.
func WithTimer(after func(time.Duration) <-chan time.Time) Option {
	return func(o *options) { o.after = after }
}

// WithShutdown sets what runs, once, when retries are exhausted.
func WithShutdown(fn func(error)) Option {
	return func(o *options) { o.shutdown = fn }
}

// Bridge drives one subscription: a single loop owns the retry counter and
// hands every change to the entity hooks in feed order.
type Bridge[E any] struct {
	name   string
	source Source[E]
	hooks  entity.Hooks[E]
	opts   options
	logger core.Logger

	mu      sync.Mutex
	state   State
	retries int
	cancel  context.CancelFunc
	done    chan struct{}

	fatalOnce sync.Once
}

func NewBridge[E any](name string, source Source[E], hooks entity.Hooks[E], logger core.Logger, opts ...Option) *Bridge[E] {
	if logger == nil {
		logger = core.NewNoopLogger()
	}
	logger = logger.With("component", "ChangeStreamBridge", "collection", name)
	o := options{
		policy:   DefaultPolicy(),
		reporter: core.NewLogReporter(logger),
		after:    time.After,
		shutdown: func(error) {},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Bridge[E]{
		name:   name,
		source: source,
		hooks:  hooks,
		opts:   o,
		logger: logger,
		state:  Stopped,
	}
}

// State returns the current state and consecutive failure count.
func (b *Bridge[E]) State() (State, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state, b.retries
}

// Start launches the subscription loop. Opening errors are retried by the
// loop, not returned.
func (b *Bridge[E]) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		return nil
	}
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	b.cancel = cancel
	b.done = make(chan struct{})
	b.state = Starting
	b.retries = 0

	go b.run(loopCtx, b.done)
	b.logger.Info("change stream bridge started")
	return nil
}

// Stop closes the subscription and cancels any pending backoff wait.
func (b *Bridge[E]) Stop(ctx context.Context) error {
	b.mu.Lock()
	if b.cancel == nil {
		b.mu.Unlock()
		b.logger.Warn("change stream already stopped")
		return nil
	}
	cancel, done := b.cancel, b.done
	b.cancel = nil
	b.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	b.mu.Lock()
	if b.state != Fatal {
		b.state = Stopped
	}
	b.mu.Unlock()
	b.logger.Info("change stream bridge stopped")
	return nil
}

func (b *Bridge[E]) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		err := b.subscribe(ctx)
		if ctx.Err() != nil {
			return
		}

		b.mu.Lock()
		b.retries++
		n := b.retries
		if b.opts.policy.Exhausted(n) {
			b.state = Fatal
			b.mu.Unlock()
			b.fail(ctx, n, err)
			return
		}
		b.state = Retrying
		b.mu.Unlock()

		delay := b.opts.policy.Delay(n)
		b.logger.Warn("change stream failed, retrying", "attempt", n, "delay", delay.String(), "error", err)

		select {
		case <-ctx.Done():
			return
		case <-b.opts.after(delay):
		}
	}
}

func (b *Bridge[E]) subscribe(ctx context.Context) error {
	stream, err := b.source.Open(ctx)
	if err != nil {
		return fmt.Errorf("cannot open change stream: %w", err)
	}
	defer func() {
		if err := stream.Close(context.Background()); err != nil {
			b.logger.Debug("cannot close change stream", "error", err)
		}
	}()

	b.mu.Lock()
	b.state = Running
	b.retries = 0
	b.mu.Unlock()
	b.logger.Info("change stream running")

	for stream.Next(ctx) {
		b.handle(ctx, stream.Change())
	}
	if err := stream.Err(); err != nil {
		return err
	}
	return errStreamEnded
}

func (b *Bridge[E]) handle(ctx context.Context, ch Change[E]) {
	if err := b.dispatch(ctx, ch); err != nil {
		b.logger.Error("change handling failed", "operation", string(ch.Operation), "key", ch.Key, "error", err)
		b.opts.reporter.Report(ctx, err, "collection", b.name, "operation", string(ch.Operation), "key", ch.Key)
	}
}

// dispatch turns a hook panic into an error so one bad change cannot take
// the subscription down.
func (b *Bridge[E]) dispatch(ctx context.Context, ch Change[E]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s hook panicked: %v", ch.Operation, r)
		}
	}()
	switch ch.Operation {
	case OpInsert:
		return b.forward(ctx, ch, b.hooks.Created)
	case OpUpdate, OpReplace:
		return b.forward(ctx, ch, b.hooks.Updated)
	case OpDelete:
		if b.hooks.Deleted != nil {
			return b.hooks.Deleted(ctx, ch.Key)
		}
		return nil
	default:
		b.logger.Debug("change ignored", "operation", string(ch.Operation))
		return nil
	}
}

func (b *Bridge[E]) forward(ctx context.Context, ch Change[E], hook func(context.Context, *E) error) error {
	if hook == nil {
		return nil
	}
	if ch.Document == nil {
		return fmt.Errorf("%s change for %s has no full document", ch.Operation, ch.Key)
	}
	return hook(ctx, ch.Document)
}

func (b *Bridge[E]) fail(ctx context.Context, attempts int, err error) {
	b.fatalOnce.Do(func() {
		cause := fmt.Errorf("%w after %d attempts on %s: %v", ErrRetriesExhausted, attempts, b.name, err)
		b.logger.Error("change stream unrecoverable, shutting down", "error", cause)
		b.opts.reporter.Report(ctx, cause, "collection", b.name)
		b.opts.shutdown(cause)
	})
}
