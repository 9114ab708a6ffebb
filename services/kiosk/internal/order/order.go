package order

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/appetiteclub/kiosk/pkg/enums/orderstatus"
	"github.com/appetiteclub/kiosk/pkg/enums/paymentstatus"
	"github.com/appetiteclub/kiosk/pkg/lib/core"
	"github.com/google/uuid"
)

// MaxItemQuantity bounds a single order line.
const MaxItemQuantity = 999

var ErrInvalidAmount = errors.New("invalid order amount")

// Item prices are copied from the product at checkout, in minor units.
type Item struct {
	ProductID uuid.UUID `bson:"product_id"`
	Name      string    `bson:"name"`
	Quantity  int       `bson:"quantity"`
	UnitPrice int64     `bson:"unit_price"`
}

// Payment is embedded in its order. ClientTransactionID is the token the
// card reader network echoes back in its callbacks.
type Payment struct {
	ID                  uuid.UUID `bson:"id"`
	ClientTransactionID string    `bson:"client_transaction_id,omitempty"`
	Status              string    `bson:"status"`
	Amount              int64     `bson:"amount"`
	UpdatedAt           time.Time `bson:"updated_at"`
}

type Order struct {
	ID             uuid.UUID  `bson:"_id"`
	ActivityID     uuid.UUID  `bson:"activity_id"`
	ActivityName   string     `bson:"activity_name"`
	RoomID         uuid.UUID  `bson:"room_id"`
	KioskID        *uuid.UUID `bson:"kiosk_id,omitempty"`
	CheckoutMethod string     `bson:"checkout_method"`
	Status         string     `bson:"status"`
	Items          []Item     `bson:"items"`
	Total          int64      `bson:"total"`
	Payment        Payment    `bson:"payment"`
	CreatedBy      string     `bson:"created_by"`
	CreatedAt      time.Time  `bson:"created_at"`
	UpdatedAt      time.Time  `bson:"updated_at"`
}

func (o *Order) GetID() uuid.UUID {
	return o.ID
}

func NewOrder() *Order {
	return &Order{
		ID:     core.GenerateNewID(),
		Status: orderstatus.Pending,
		Items:  []Item{},
		Payment: Payment{
			ID:     core.GenerateNewID(),
			Status: paymentstatus.Statuses.Pending.Code(),
		},
	}
}

func (o *Order) BeforeCreate() {
	now := time.Now()
	o.CreatedAt = now
	o.UpdatedAt = now
	o.Payment.UpdatedAt = now
}

func (o *Order) BeforeUpdate() {
	o.UpdatedAt = time.Now()
}

// AddItem appends a line and adds it to the total. The order is left
// unchanged when the line does not fit in the total.
func (o *Order) AddItem(productID uuid.UUID, name string, quantity int, unitPrice int64) error {
	if quantity < 1 || unitPrice < 0 {
		return fmt.Errorf("%w: quantity %d at %d", ErrInvalidAmount, quantity, unitPrice)
	}
	if unitPrice > 0 && int64(quantity) > (math.MaxInt64-o.Total)/unitPrice {
		return fmt.Errorf("%w: total overflows", ErrInvalidAmount)
	}
	o.Items = append(o.Items, Item{ProductID: productID, Name: name, Quantity: quantity, UnitPrice: unitPrice})
	o.Total += int64(quantity) * unitPrice
	o.Payment.Amount = o.Total
	return nil
}

// Public is the client view of an order. The correlation token stays server side.
type Public struct {
	ID             string        `json:"id"`
	ActivityID     string        `json:"activityId"`
	ActivityName   string        `json:"activityName"`
	RoomID         string        `json:"roomId"`
	KioskID        string        `json:"kioskId,omitempty"`
	CheckoutMethod string        `json:"checkoutMethod"`
	Status         string        `json:"status"`
	Items          []PublicItem  `json:"items"`
	Total          int64         `json:"total"`
	Payment        PublicPayment `json:"payment"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

type PublicItem struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
}

type PublicPayment struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount int64  `json:"amount"`
}

func ToPublic(o *Order) (Public, error) {
	p := Public{
		ID:             o.ID.String(),
		ActivityID:     o.ActivityID.String(),
		ActivityName:   o.ActivityName,
		RoomID:         o.RoomID.String(),
		CheckoutMethod: o.CheckoutMethod,
		Status:         o.Status,
		Items:          make([]PublicItem, 0, len(o.Items)),
		Total:          o.Total,
		Payment: PublicPayment{
			ID:     o.Payment.ID.String(),
			Status: o.Payment.Status,
			Amount: o.Payment.Amount,
		},
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
	if o.KioskID != nil {
		p.KioskID = o.KioskID.String()
	}
	for _, it := range o.Items {
		p.Items = append(p.Items, PublicItem{
			ProductID: it.ProductID.String(),
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return p, nil
}
