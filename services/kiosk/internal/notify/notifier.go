// Package notify turns committed entity writes into real-time events.
package notify

import (
	"context"
	"fmt"

	"github.com/appetiteclub/kiosk/pkg/event"
	"github.com/appetiteclub/kiosk/pkg/lib/core"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/entity"
)

// Emitter is the part of the broadcast channel the notifier needs.
type Emitter interface {
	Emit(ctx context.Context, event string, payload interface{}) error
}

type Notifier struct {
	emitter Emitter
	logger  core.Logger
}

func NewNotifier(emitter Emitter, logger core.Logger) *Notifier {
	if logger == nil {
		logger = core.NewNoopLogger()
	}
	return &Notifier{
		emitter: emitter,
		logger:  logger.With("component", "ChangeNotifier"),
	}
}

func (n *Notifier) Created(ctx context.Context, entityName string, public interface{}) error {
	return n.emit(ctx, event.Created(entityName), public)
}

func (n *Notifier) Updated(ctx context.Context, entityName string, public interface{}) error {
	return n.emit(ctx, event.Updated(entityName), public)
}

func (n *Notifier) Deleted(ctx context.Context, entityName, id string) error {
	return n.emit(ctx, event.Deleted(entityName), event.DeletedPayload{ID: id})
}

func (n *Notifier) emit(ctx context.Context, name string, payload interface{}) error {
	if err := n.emitter.Emit(ctx, name, payload); err != nil {
		return fmt.Errorf("cannot emit %s: %w", name, err)
	}
	n.logger.Debug("entity change emitted", "event", name)
	return nil
}

// For builds the post-commit hooks of one entity type. public maps the stored
// form to what clients may see and must drop every secret.
func For[E any, P any](n *Notifier, entityName string, public func(*E) (P, error)) entity.Hooks[E] {
	return entity.Hooks[E]{
		Created: func(ctx context.Context, e *E) error {
			p, err := public(e)
			if err != nil {
				return fmt.Errorf("cannot build public %s: %w", entityName, err)
			}
			return n.Created(ctx, entityName, p)
		},
		Updated: func(ctx context.Context, e *E) error {
			p, err := public(e)
			if err != nil {
				return fmt.Errorf("cannot build public %s: %w", entityName, err)
			}
			return n.Updated(ctx, entityName, p)
		},
		Deleted: func(ctx context.Context, id string) error {
			return n.Deleted(ctx, entityName, id)
		},
	}
}
