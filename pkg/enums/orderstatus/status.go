package orderstatus

// Fulfilment statuses. Independent from the payment status of the order.
const (
	Pending   = "pending"
	Confirmed = "confirmed"
	Delivered = "delivered"
	Cancelled = "cancelled"
)

var All = []string{Pending, Confirmed, Delivered, Cancelled}

func Valid(s string) bool {
	for _, v := range All {
		if v == s {
			return true
		}
	}
	return false
}

// CanTransition reports whether an admin may move an order from one status to
// another. Cancelled is terminal.
func CanTransition(from, to string) bool {
	if !Valid(to) || from == Cancelled || from == to {
		return false
	}
	switch to {
	case Pending:
		return false
	case Confirmed:
		return from == Pending
	case Delivered:
		return from == Pending || from == Confirmed
	case Cancelled:
		return from != Delivered
	}
	return false
}
