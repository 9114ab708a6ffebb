package session

import (
	"net/http"

	"github.com/appetiteclub/kiosk/pkg/lib/core"
	"github.com/go-chi/chi/v5"
)

// Handler lets admins list and revoke sessions. Revocation deletes the
// record directly; the change feed reports it.
type Handler struct {
	store  Store
	logger core.Logger
}

func NewHandler(store Store, logger core.Logger) *Handler {
	if logger == nil {
		logger = core.NewNoopLogger()
	}
	return &Handler{store: store, logger: logger.With("component", "SessionHandler")}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/sessions", h.List)
	r.Delete("/sessions/{id}", h.Revoke)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("cannot list sessions", "error", err)
		core.RespondError(w, http.StatusInternalServerError, "Could not list sessions")
		return
	}
	out := make([]Public, 0, len(records))
	for _, rec := range records {
		p, err := ToPublic(rec)
		if err != nil {
			h.logger.Info("skipping unreadable session", "error", err)
			continue
		}
		out = append(out, p)
	}
	core.RespondSuccess(w, out)
}

func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	publicID := chi.URLParam(r, "id")
	records, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("cannot list sessions", "error", err)
		core.RespondError(w, http.StatusInternalServerError, "Could not revoke session")
		return
	}
	for _, rec := range records {
		if PublicID(rec.ID) != publicID {
			continue
		}
		if err := h.store.Delete(r.Context(), rec.ID); err != nil {
			h.logger.Error("cannot delete session", "error", err)
			core.RespondError(w, http.StatusInternalServerError, "Could not revoke session")
			return
		}
		core.RespondMessage(w, http.StatusOK, "Session revoked")
		return
	}
	core.RespondError(w, http.StatusNotFound, "Session not found")
}
