// Package payment resolves pending order payments from card reader callbacks
// and operator requests.
package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/kiosk/pkg/enums/paymentstatus"
	"github.com/appetiteclub/kiosk/pkg/event"
	"github.com/appetiteclub/kiosk/pkg/lib/core"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/entity"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/order"
	"github.com/google/uuid"
)

type KeyKind int

const (
	KeyOrderID KeyKind = iota
	KeyPaymentID
	KeyClientTransactionID
)

// LookupKey identifies the payment to resolve. Callbacks only know the
// client transaction id handed out at checkout.
type LookupKey struct {
	Kind  KeyKind
	Value string
}

func ByOrderID(id uuid.UUID) LookupKey {
	return LookupKey{Kind: KeyOrderID, Value: id.String()}
}

func ByPaymentID(id uuid.UUID) LookupKey {
	return LookupKey{Kind: KeyPaymentID, Value: id.String()}
}

func ByClientTransactionID(token string) LookupKey {
	return LookupKey{Kind: KeyClientTransactionID, Value: token}
}

func (k LookupKey) filter() (entity.Fields, error) {
	switch k.Kind {
	case KeyOrderID, KeyPaymentID:
		id, err := uuid.Parse(k.Value)
		if err != nil {
			return nil, fmt.Errorf("invalid lookup id %q: %w", k.Value, err)
		}
		if k.Kind == KeyOrderID {
			return entity.Fields{"_id": id}, nil
		}
		return entity.Fields{"payment.id": id}, nil
	case KeyClientTransactionID:
		if k.Value == "" {
			return nil, fmt.Errorf("empty client transaction id")
		}
		return entity.Fields{"payment.client_transaction_id": k.Value}, nil
	}
	return nil, fmt.Errorf("unknown lookup kind %d", k.Kind)
}

// Result describes what ApplyStatusUpdate did. At most one of Applied,
// AlreadyFinal and NotFound is set.
type Result struct {
	Applied      bool
	AlreadyFinal bool
	NotFound     bool
	OrderID      uuid.UUID
	// Status is the persisted payment status after the call.
	Status string
}

type Emitter interface {
	Emit(ctx context.Context, event string, payload interface{}) error
}

type Reconciler struct {
	orders  *entity.Store[order.Order]
	emitter Emitter
	logger  core.Logger
}

func NewReconciler(orders *entity.Store[order.Order], emitter Emitter, logger core.Logger) *Reconciler {
	if logger == nil {
		logger = core.NewNoopLogger()
	}
	return &Reconciler{
		orders:  orders,
		emitter: emitter,
		logger:  logger.With("component", "PaymentReconciler"),
	}
}

// ApplyStatusUpdate moves a pending payment to status. Terminal payments are
// never changed. The write is conditional on the payment still being
// pending, so of two racing updates only the first commits and the other
// reports AlreadyFinal.
func (r *Reconciler) ApplyStatusUpdate(ctx context.Context, key LookupKey, status, source string) (Result, error) {
	if !paymentstatus.IsResolution(status) {
		return Result{}, fmt.Errorf("%w: status %q", ErrInvalidStatus, status)
	}
	filter, err := key.filter()
	if err != nil {
		return Result{}, err
	}

	o, err := r.orders.FindOne(ctx, filter)
	if err != nil {
		return Result{}, err
	}
	if o == nil {
		r.logger.Warn("payment not found", "source", source, "key", key.Value)
		return Result{NotFound: true}, nil
	}
	if paymentstatus.IsTerminal(o.Payment.Status) {
		r.logger.Info("payment already final", "source", source, "order_id", o.ID.String(),
			"status", o.Payment.Status, "requested", status)
		return Result{AlreadyFinal: true, OrderID: o.ID, Status: o.Payment.Status}, nil
	}

	now := time.Now()
	updated, err := r.orders.UpdateWhere(ctx, o.ID,
		entity.Fields{"payment.status": paymentstatus.Statuses.Pending.Code()},
		entity.Fields{
			"payment.status":     status,
			"payment.updated_at": now,
			"updated_at":         now,
		},
	)
	if err != nil {
		return Result{}, err
	}
	if updated == nil {
		current, err := r.orders.Get(ctx, o.ID)
		if err != nil {
			return Result{}, err
		}
		if current == nil {
			return Result{NotFound: true}, nil
		}
		r.logger.Info("payment resolved concurrently", "source", source, "order_id", o.ID.String(),
			"status", current.Payment.Status, "requested", status)
		return Result{AlreadyFinal: true, OrderID: o.ID, Status: current.Payment.Status}, nil
	}

	r.logger.Info("payment status updated", "source", source, "order_id", o.ID.String(), "status", status)
	r.notify(ctx, updated)
	return Result{Applied: true, OrderID: updated.ID, Status: updated.Payment.Status}, nil
}

func (r *Reconciler) notify(ctx context.Context, o *order.Order) {
	if r.emitter == nil {
		return
	}
	payload := event.PaymentStatusUpdatedPayload{OrderID: o.ID.String(), PaymentStatus: o.Payment.Status}
	if err := r.emitter.Emit(ctx, event.PaymentStatusUpdated, payload); err != nil {
		r.logger.Error("cannot emit payment status", "order_id", o.ID.String(), "error", err)
	}
}
