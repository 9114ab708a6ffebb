package catalog

import (
	"context"
	"errors"
	"net/http"

	"github.com/appetiteclub/kiosk/pkg/event"
	"github.com/appetiteclub/kiosk/pkg/lib/core"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/entity"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/realtime"
	"github.com/go-chi/chi/v5"
)

type Broadcaster interface {
	Broadcast(ctx context.Context, event string) error
	EmitToRoom(ctx context.Context, room, event string, payload interface{}) error
}

// RefreshHandler forces kiosk clients to reload, all of them or one.
type RefreshHandler struct {
	channel Broadcaster
	kiosks  *entity.Store[Kiosk]
	logger  core.Logger
}

func NewRefreshHandler(channel Broadcaster, kiosks *entity.Store[Kiosk], logger core.Logger) *RefreshHandler {
	if logger == nil {
		logger = core.NewNoopLogger()
	}
	return &RefreshHandler{channel: channel, kiosks: kiosks, logger: logger.With("component", "RefreshHandler")}
}

// Routes is mounted inside the kiosks resource.
func (h *RefreshHandler) Routes(r chi.Router) {
	r.Post("/refresh", h.RefreshAll)
	r.Post("/{id}/refresh", h.RefreshOne)
}

func (h *RefreshHandler) RefreshAll(w http.ResponseWriter, r *http.Request) {
	if err := h.channel.Broadcast(r.Context(), event.KioskRefresh); err != nil {
		h.fail(w, err)
		return
	}
	h.logger.Info("kiosk refresh sent to all kiosks")
	core.RespondMessage(w, http.StatusOK, "Refresh sent")
}

func (h *RefreshHandler) RefreshOne(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	k, err := h.kiosks.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("cannot get kiosk", "id", id.String(), "error", err)
		core.RespondError(w, http.StatusInternalServerError, "Could not get kiosk")
		return
	}
	if k == nil {
		core.RespondError(w, http.StatusNotFound, "Kiosk not found")
		return
	}
	if err := h.channel.EmitToRoom(r.Context(), k.ID.String(), event.KioskRefresh, nil); err != nil {
		h.fail(w, err)
		return
	}
	h.logger.Info("kiosk refresh sent", "kiosk_id", k.ID.String())
	core.RespondMessage(w, http.StatusOK, "Refresh sent")
}

func (h *RefreshHandler) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, realtime.ErrNotReady) {
		core.RespondError(w, http.StatusServiceUnavailable, "Realtime channel not ready")
		return
	}
	h.logger.Error("cannot send kiosk refresh", "error", err)
	core.RespondError(w, http.StatusInternalServerError, "Could not send refresh")
}
