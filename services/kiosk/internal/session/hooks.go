package session

import (
	"context"

	"github.com/appetiteclub/kiosk/pkg/event"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/entity"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/notify"
)

// Hooks maps session changes to sessionCreated/Updated/Deleted. Deletes
// carry the public id so clients can match them to what they listed.
func Hooks(n *notify.Notifier) entity.Hooks[Record] {
	h := notify.For(n, event.EntitySession, ToPublic)
	h.Deleted = func(ctx context.Context, id string) error {
		return n.Deleted(ctx, event.EntitySession, PublicID(id))
	}
	return h
}
