package event

// Entity names used to build the <entity>Created/Updated/Deleted event names.
const (
	EntityOrder    = "order"
	EntitySession  = "session"
	EntityKiosk    = "kiosk"
	EntityActivity = "activity"
	EntityRoom     = "room"
	EntityProduct  = "product"
	EntityAdmin    = "admin"
)

const (
	// PaymentStatusUpdated is emitted once per pending -> terminal payment transition.
	PaymentStatusUpdated = "paymentStatusUpdated"
	// KioskRefresh carries no payload and forces kiosk clients to reload.
	KioskRefresh = "kiosk-refresh"
)

// Room names for scoped delivery besides per-kiosk rooms, which use the kiosk id.
const (
	RoomAdmins = "admins"
)

func Created(entity string) string { return entity + "Created" }
func Updated(entity string) string { return entity + "Updated" }
func Deleted(entity string) string { return entity + "Deleted" }

// PaymentStatusUpdatedPayload is the wire payload of PaymentStatusUpdated.
type PaymentStatusUpdatedPayload struct {
	OrderID       string `json:"orderId"`
	PaymentStatus string `json:"paymentStatus"`
}

// DeletedPayload is the wire payload of every <entity>Deleted event.
type DeletedPayload struct {
	ID string `json:"id"`
}
