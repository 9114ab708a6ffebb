// Package order places orders at checkout and lets admins move them through
// fulfilment. Payment resolution lives in the payment package.
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/appetiteclub/kiosk/pkg/enums/checkoutmethod"
	"github.com/appetiteclub/kiosk/pkg/enums/orderstatus"
	"github.com/appetiteclub/kiosk/pkg/enums/paymentstatus"
	"github.com/appetiteclub/kiosk/pkg/event"
	"github.com/appetiteclub/kiosk/pkg/lib/core"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/authn"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/catalog"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/entity"
	"github.com/google/uuid"
)

var (
	ErrMethodNotAllowed    = errors.New("checkout method not allowed")
	ErrNoReader            = errors.New("no card reader paired")
	ErrCheckoutUnavailable = errors.New("card reader checkout unavailable")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrNotRefundable       = errors.New("payment is not refundable")
	ErrKioskNotFound       = fmt.Errorf("kiosk %w", entity.ErrNotFound)
)

// CheckoutCreator starts a card reader checkout and returns its correlation
// token. ok is false when the remote call failed.
type CheckoutCreator interface {
	CreateCheckout(ctx context.Context, readerID string, amount int64, reference string) (token string, ok bool)
}

type Emitter interface {
	Emit(ctx context.Context, event string, payload interface{}) error
}

type CheckoutRequest struct {
	CheckoutMethod string         `json:"checkoutMethod"`
	ActivityID     string         `json:"activityId"`
	RoomID         string         `json:"roomId"`
	Items          []CheckoutItem `json:"items"`
}

type CheckoutItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type ServiceDeps struct {
	Orders   *entity.Store[Order]
	Catalog  catalog.Stores
	Checkout CheckoutCreator
	Emitter  Emitter
}

type Service struct {
	orders   *entity.Store[Order]
	catalog  catalog.Stores
	checkout CheckoutCreator
	emitter  Emitter
	logger   core.Logger
}

func NewService(deps ServiceDeps, logger core.Logger) *Service {
	if logger == nil {
		logger = core.NewNoopLogger()
	}
	return &Service{
		orders:   deps.Orders,
		catalog:  deps.Catalog,
		checkout: deps.Checkout,
		emitter:  deps.Emitter,
		logger:   logger.With("component", "OrderService"),
	}
}

// Checkout prices and stores a new order for p. A sumUp order is only stored
// once the reader network accepted the checkout.
func (s *Service) Checkout(ctx context.Context, p authn.Principal, req CheckoutRequest) (*Order, error) {
	method := checkoutmethod.ByName(req.CheckoutMethod)
	if method == nil {
		v := core.NewValidationError()
		v.Add("checkoutMethod", "is not a known method")
		return nil, v
	}
	if !method.Allows(p.Type) {
		return nil, fmt.Errorf("%w: %s for %s", ErrMethodNotAllowed, method.Name, p.Type)
	}

	o := NewOrder()
	o.CheckoutMethod = method.Name
	o.CreatedBy = string(p.Type) + ":" + p.ID.String()

	var kiosk *catalog.Kiosk
	if p.IsKiosk() {
		k, err := s.catalog.Kiosks.Get(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if k == nil {
			return nil, fmt.Errorf("%w: %s", ErrKioskNotFound, p.ID)
		}
		kiosk = k
		o.KioskID = &k.ID
	}

	if err := s.place(ctx, o, kiosk, req); err != nil {
		return nil, err
	}

	switch method.Name {
	case checkoutmethod.Methods.Manual.Name:
		o.Payment.Status = paymentstatus.Statuses.Successful.Code()
	case checkoutmethod.Methods.SumUp.Name:
		if kiosk.ReaderID == "" {
			return nil, ErrNoReader
		}
		token, ok := s.checkout.CreateCheckout(ctx, kiosk.ReaderID, o.Total, o.ID.String())
		if !ok || token == "" {
			return nil, ErrCheckoutUnavailable
		}
		o.Payment.ClientTransactionID = token
	}

	o.BeforeCreate()
	if err := s.orders.Create(ctx, o); err != nil {
		if o.Payment.ClientTransactionID != "" {
			s.logger.Error("order not stored, reader checkout left open",
				"order_id", o.ID.String(),
				"client_transaction_id", o.Payment.ClientTransactionID,
				"error", err)
		}
		return nil, err
	}
	s.logger.Info("order placed", "order_id", o.ID.String(), "method", o.CheckoutMethod, "total", o.Total)
	return o, nil
}

func (s *Service) place(ctx context.Context, o *Order, kiosk *catalog.Kiosk, req CheckoutRequest) error {
	v := core.NewValidationError()

	activityID, roomID := parseOptional(req.ActivityID), parseOptional(req.RoomID)
	if kiosk != nil {
		activityID, roomID = kiosk.ActivityID, kiosk.RoomID
		if activityID == nil || roomID == nil {
			v.Add("kiosk", "is not assigned to an activity and a room")
			return v
		}
	}
	if activityID == nil {
		v.Add("activityId", "is required")
	}
	if roomID == nil {
		v.Add("roomId", "is required")
	}
	if len(req.Items) == 0 {
		v.Add("items", "must not be empty")
	}
	if v.HasErrors() {
		return v
	}

	activity, err := s.catalog.Activities.Get(ctx, *activityID)
	if err != nil {
		return err
	}
	if activity == nil || !activity.Active {
		v.Add("activityId", "is not an active activity")
	}
	room, err := s.catalog.Rooms.Get(ctx, *roomID)
	if err != nil {
		return err
	}
	if room == nil {
		v.Add("roomId", "is not a known room")
	}

	for i, it := range req.Items {
		field := fmt.Sprintf("items[%d]", i)
		if it.Quantity < 1 || it.Quantity > MaxItemQuantity {
			v.Add(field, fmt.Sprintf("quantity must be between 1 and %d", MaxItemQuantity))
			continue
		}
		pid, err := uuid.Parse(strings.TrimSpace(it.ProductID))
		if err != nil {
			v.Add(field, "productId must be a valid id")
			continue
		}
		product, err := s.catalog.Products.Get(ctx, pid)
		if err != nil {
			return err
		}
		if product == nil || !product.Available {
			v.Add(field, "product is not available")
			continue
		}
		if err := o.AddItem(product.ID, product.Name, it.Quantity, product.Price); err != nil {
			v.Add(field, "order total is out of range")
		}
	}
	if v.HasErrors() {
		return v
	}

	o.ActivityID = activity.ID
	o.ActivityName = activity.Name
	o.RoomID = room.ID
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	return s.orders.Get(ctx, id)
}

// List returns orders, optionally filtered by fulfilment status and kiosk.
func (s *Service) List(ctx context.Context, status string, kioskID *uuid.UUID) ([]*Order, error) {
	filter := entity.Fields{}
	if status != "" {
		filter["status"] = status
	}
	if kioskID != nil {
		filter["kiosk_id"] = *kioskID
	}
	return s.orders.List(ctx, filter)
}

// UpdateStatus moves the fulfilment status. The write is conditional on the
// status read, so a concurrent change is reported as an invalid transition
// and the payment sub-document is never rewritten here.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, entity.ErrNotFound
	}
	if !orderstatus.CanTransition(o.Status, status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, o.Status, status)
	}

	updated, err := s.orders.UpdateWhere(ctx, id,
		entity.Fields{"status": o.Status},
		entity.Fields{"status": status, "updated_at": time.Now()},
	)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("%w: order changed concurrently", ErrInvalidTransition)
	}
	s.logger.Info("order status updated", "order_id", id.String(), "from", o.Status, "to", status)
	return updated, nil
}

// Refund moves a successful payment to refunded. Refunded orders still count
// as money received.
func (s *Service) Refund(ctx context.Context, id uuid.UUID) (*Order, error) {
	now := time.Now()
	updated, err := s.orders.UpdateWhere(ctx, id,
		entity.Fields{"payment.status": paymentstatus.Statuses.Successful.Code()},
		entity.Fields{
			"payment.status":     paymentstatus.Statuses.Refunded.Code(),
			"payment.updated_at": now,
			"updated_at":         now,
		},
	)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		o, err := s.orders.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if o == nil {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("%w: payment is %s", ErrNotRefundable, o.Payment.Status)
	}

	if s.emitter != nil {
		payload := event.PaymentStatusUpdatedPayload{OrderID: id.String(), PaymentStatus: updated.Payment.Status}
		if err := s.emitter.Emit(ctx, event.PaymentStatusUpdated, payload); err != nil {
			s.logger.Error("cannot emit payment status", "order_id", id.String(), "error", err)
		}
	}
	s.logger.Info("order refunded", "order_id", id.String())
	return updated, nil
}

// Cleanup deletes every order created before the given time. It is a bulk
// write: clients get no per-order events.
func (s *Service) Cleanup(ctx context.Context, before time.Time) (int64, error) {
	n, err := s.orders.DeleteMany(ctx, entity.Fields{"created_at": entity.Lt(before)})
	if err != nil {
		return 0, err
	}
	s.logger.Info("orders cleaned up", "before", before.Format(time.RFC3339), "deleted", n)
	return n, nil
}

func parseOptional(s string) *uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &id
}
