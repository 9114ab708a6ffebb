// Package entity is the write path for tracked entities. Single-document writes
// run post-commit hooks; query-level writes never do.
package entity

import (
	"context"
	"errors"
	"fmt"

	"github.com/appetiteclub/kiosk/pkg/lib/core"
	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("entity: not found")
	ErrDuplicate = errors.New("entity: duplicate id")
)

// Identifiable is implemented by the pointer type of every stored entity.
type Identifiable interface {
	GetID() uuid.UUID
}

// Fields is keyed by storage field name, dotted for nested fields. As a filter
// each value is matched by equality unless it is a Cond.
type Fields map[string]interface{}

// Cond is a comparison operator in a filter. Op uses the MongoDB operator name.
type Cond struct {
	Op    string
	Value interface{}
}

func In[T any](values ...T) Cond {
	vs := make([]interface{}, len(values))
	for i, v := range values {
		vs[i] = v
	}
	return Cond{Op: "$in", Value: vs}
}

func Lt(v interface{}) Cond  { return Cond{Op: "$lt", Value: v} }
func Gte(v interface{}) Cond { return Cond{Op: "$gte", Value: v} }
func Ne(v interface{}) Cond  { return Cond{Op: "$ne", Value: v} }

// Backend is the raw storage of one collection. Find and FindOne return
// (nil, nil) when nothing matches; UpdateWhere returns (nil, nil) when the
// document is absent or does not satisfy where.
type Backend[E any] interface {
	Insert(ctx context.Context, e *E) error
	Find(ctx context.Context, id uuid.UUID) (*E, error)
	FindOne(ctx context.Context, filter Fields) (*E, error)
	List(ctx context.Context, filter Fields) ([]*E, error)
	Replace(ctx context.Context, id uuid.UUID, e *E) error
	Remove(ctx context.Context, id uuid.UUID) error
	UpdateWhere(ctx context.Context, id uuid.UUID, where, set Fields) (*E, error)
	UpdateMany(ctx context.Context, filter, set Fields) (int64, error)
	DeleteMany(ctx context.Context, filter Fields) (int64, error)
}

// Hooks run after a single-document write has been committed. Their errors
// are logged by the store and never returned to the writer.
type Hooks[E any] struct {
	Created func(ctx context.Context, e *E) error
	Updated func(ctx context.Context, e *E) error
	Deleted func(ctx context.Context, id string) error
}

type Store[E any] struct {
	name    string
	backend Backend[E]
	hooks   Hooks[E]
	logger  core.Logger
}

// NewStore panics when *E does not implement Identifiable.
func NewStore[E any](name string, backend Backend[E], logger core.Logger) *Store[E] {
	if _, ok := any(new(E)).(Identifiable); !ok {
		panic(fmt.Sprintf("entity: %T does not implement Identifiable", new(E)))
	}
	if logger == nil {
		logger = core.NewNoopLogger()
	}
	return &Store[E]{
		name:    name,
		backend: backend,
		logger:  logger.With("component", "EntityStore", "entity", name),
	}
}

// SetHooks replaces the post-commit hooks.
func (s *Store[E]) SetHooks(h Hooks[E]) {
	s.hooks = h
}

func (s *Store[E]) Name() string {
	return s.name
}

func (s *Store[E]) Create(ctx context.Context, e *E) error {
	if e == nil {
		return fmt.Errorf("%s is nil", s.name)
	}
	if err := s.backend.Insert(ctx, e); err != nil {
		return fmt.Errorf("cannot create %s: %w", s.name, err)
	}
	s.after(ctx, "created", func() error {
		if s.hooks.Created == nil {
			return nil
		}
		return s.hooks.Created(ctx, e)
	})
	return nil
}

func (s *Store[E]) Get(ctx context.Context, id uuid.UUID) (*E, error) {
	e, err := s.backend.Find(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("cannot get %s: %w", s.name, err)
	}
	return e, nil
}

func (s *Store[E]) FindOne(ctx context.Context, filter Fields) (*E, error) {
	e, err := s.backend.FindOne(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("cannot find %s: %w", s.name, err)
	}
	return e, nil
}

func (s *Store[E]) List(ctx context.Context, filter Fields) ([]*E, error) {
	list, err := s.backend.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("cannot list %s: %w", s.name, err)
	}
	return list, nil
}

func (s *Store[E]) Save(ctx context.Context, e *E) error {
	if e == nil {
		return fmt.Errorf("%s is nil", s.name)
	}
	id := any(e).(Identifiable).GetID()
	if err := s.backend.Replace(ctx, id, e); err != nil {
		return fmt.Errorf("cannot save %s: %w", s.name, err)
	}
	s.after(ctx, "updated", func() error {
		if s.hooks.Updated == nil {
			return nil
		}
		return s.hooks.Updated(ctx, e)
	})
	return nil
}

func (s *Store[E]) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.backend.Remove(ctx, id); err != nil {
		return fmt.Errorf("cannot delete %s: %w", s.name, err)
	}
	s.after(ctx, "deleted", func() error {
		if s.hooks.Deleted == nil {
			return nil
		}
		return s.hooks.Deleted(ctx, id.String())
	})
	return nil
}

// UpdateWhere atomically applies set to the document with id if it still
// matches where. It is a single-document write and runs the Updated hook when
// it matched. A nil result means the precondition did not hold.
func (s *Store[E]) UpdateWhere(ctx context.Context, id uuid.UUID, where, set Fields) (*E, error) {
	e, err := s.backend.UpdateWhere(ctx, id, where, set)
	if err != nil {
		return nil, fmt.Errorf("cannot update %s: %w", s.name, err)
	}
	if e == nil {
		return nil, nil
	}
	s.after(ctx, "updated", func() error {
		if s.hooks.Updated == nil {
			return nil
		}
		return s.hooks.Updated(ctx, e)
	})
	return e, nil
}

// UpdateMany is a query-level write. It does not run hooks: connected clients
// are not told about the affected documents individually.
func (s *Store[E]) UpdateMany(ctx context.Context, filter, set Fields) (int64, error) {
	n, err := s.backend.UpdateMany(ctx, filter, set)
	if err != nil {
		return 0, fmt.Errorf("cannot update %s documents: %w", s.name, err)
	}
	s.logger.Info("bulk update applied", "matched", n)
	return n, nil
}

// DeleteMany is a query-level write. It does not run hooks.
func (s *Store[E]) DeleteMany(ctx context.Context, filter Fields) (int64, error) {
	n, err := s.backend.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("cannot delete %s documents: %w", s.name, err)
	}
	s.logger.Info("bulk delete applied", "deleted", n)
	return n, nil
}

// after runs a post-write hook. The write is already committed, so a failing
// or panicking hook is logged and never reaches the caller.
func (s *Store[E]) after(ctx context.Context, op string, hook func() error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("change notification panicked", "op", op, "panic", r)
		}
	}()
	if err := hook(); err != nil {
		s.logger.Error("change notification failed", "op", op, "error", err)
	}
}
