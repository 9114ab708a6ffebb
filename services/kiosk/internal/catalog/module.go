package catalog

import (
	"net/http"

	"github.com/appetiteclub/kiosk/pkg/lib/core"
	"github.com/go-chi/chi/v5"
)

// Module mounts every catalog resource. read guards all routes and write
// additionally guards the writes and the extra kiosk routes.
type Module struct {
	stores      Stores
	read        func(http.Handler) http.Handler
	write       func(http.Handler) http.Handler
	kioskRoutes []func(chi.Router)
	logger      core.Logger
}

func NewModule(stores Stores, read, write func(http.Handler) http.Handler, logger core.Logger, kioskRoutes ...func(chi.Router)) *Module {
	if logger == nil {
		logger = core.NewNoopLogger()
	}
	return &Module{
		stores:      stores,
		read:        read,
		write:       write,
		kioskRoutes: kioskRoutes,
		logger:      logger,
	}
}

func (m *Module) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if m.read != nil {
			r.Use(m.read)
		}
		NewResource[Activity, ActivityInput, *Activity]("activities", m.stores.Activities, ToPublicActivity, m.logger).Mount(r, m.write)
		NewResource[Room, RoomInput, *Room]("rooms", m.stores.Rooms, ToPublicRoom, m.logger).Mount(r, m.write)
		NewResource[Product, ProductInput, *Product]("products", m.stores.Products, ToPublicProduct, m.logger).Mount(r, m.write)
		NewResource[Kiosk, KioskInput, PublicKiosk]("kiosks", m.stores.Kiosks, ToPublicKiosk, m.logger).Mount(r, m.write, m.kioskRoutes...)
		NewResource[Admin, AdminInput, PublicAdmin]("admins", m.stores.Admins, ToPublicAdmin, m.logger).Mount(r, m.write)
	})
}
