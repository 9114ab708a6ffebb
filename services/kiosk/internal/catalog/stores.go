package catalog

import (
	"github.com/appetiteclub/kiosk/pkg/event"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/entity"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/notify"
)

type Stores struct {
	Activities *entity.Store[Activity]
	Rooms      *entity.Store[Room]
	Products   *entity.Store[Product]
	Kiosks     *entity.Store[Kiosk]
	Admins     *entity.Store[Admin]
}

// Notify wires every catalog store to the change notifier.
func (s Stores) Notify(n *notify.Notifier) {
	s.Activities.SetHooks(notify.For(n, event.EntityActivity, ToPublicActivity))
	s.Rooms.SetHooks(notify.For(n, event.EntityRoom, ToPublicRoom))
	s.Products.SetHooks(notify.For(n, event.EntityProduct, ToPublicProduct))
	s.Kiosks.SetHooks(notify.For(n, event.EntityKiosk, ToPublicKiosk))
	s.Admins.SetHooks(notify.For(n, event.EntityAdmin, ToPublicAdmin))
}

// NewMemoryStores backs every catalog store with memory. Used by tests and
// by the demo mode without a database.
func NewMemoryStores() Stores {
	return Stores{
		Activities: entity.NewStore[Activity]("activity", entity.NewMemoryBackend[Activity](), nil),
		Rooms:      entity.NewStore[Room]("room", entity.NewMemoryBackend[Room](), nil),
		Products:   entity.NewStore[Product]("product", entity.NewMemoryBackend[Product](), nil),
		Kiosks:     entity.NewStore[Kiosk]("kiosk", entity.NewMemoryBackend[Kiosk](), nil),
		Admins:     entity.NewStore[Admin]("admin", entity.NewMemoryBackend[Admin](), nil),
	}
}
