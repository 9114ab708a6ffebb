package order

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/appetiteclub/kiosk/pkg/lib/core"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/authn"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/entity"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const MaxBodyBytes = 1 << 20

type StatusRequest struct {
	Status string `json:"status"`
}

type Handler struct {
	service *Service
	logger  core.Logger
}

func NewHandler(service *Service, logger core.Logger) *Handler {
	if logger == nil {
		logger = core.NewNoopLogger()
	}
	return &Handler{service: service, logger: logger.With("component", "OrderHandler")}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Use(authn.RequireAuthenticated)
		r.Post("/", h.Checkout)
		r.Get("/", h.ListOrders)
		r.Get("/{id}", h.GetOrder)

		r.Group(func(r chi.Router) {
			r.Use(authn.RequireAdmin)
			r.Patch("/{id}/status", h.UpdateStatus)
			r.Post("/{id}/refund", h.Refund)
			r.Delete("/", h.Cleanup)
		})
	})
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	p, _ := authn.PrincipalFrom(r.Context())

	var req CheckoutRequest
	if !decode(w, r, &req) {
		return
	}

	o, err := h.service.Checkout(r.Context(), p, req)
	if err != nil {
		h.fail(w, "checkout", err)
		return
	}
	h.respond(w, http.StatusCreated, o)
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	p, _ := authn.PrincipalFrom(r.Context())

	var kioskID *uuid.UUID
	if p.IsKiosk() {
		kioskID = &p.ID
	}
	list, err := h.service.List(r.Context(), r.URL.Query().Get("status"), kioskID)
	if err != nil {
		h.fail(w, "list orders", err)
		return
	}
	out := make([]Public, 0, len(list))
	for _, o := range list {
		pub, _ := ToPublic(o)
		out = append(out, pub)
	}
	core.RespondSuccess(w, out)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	o, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get order", err)
		return
	}
	p, _ := authn.PrincipalFrom(r.Context())
	if o == nil || (p.IsKiosk() && (o.KioskID == nil || *o.KioskID != p.ID)) {
		core.RespondError(w, http.StatusNotFound, "Order not found")
		return
	}
	h.respond(w, http.StatusOK, o)
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req StatusRequest
	if !decode(w, r, &req) {
		return
	}
	o, err := h.service.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		h.fail(w, "update order status", err)
		return
	}
	h.respond(w, http.StatusOK, o)
}

func (h *Handler) Refund(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	o, err := h.service.Refund(r.Context(), id)
	if err != nil {
		h.fail(w, "refund order", err)
		return
	}
	h.respond(w, http.StatusOK, o)
}

func (h *Handler) Cleanup(w http.ResponseWriter, r *http.Request) {
	before, err := time.Parse(time.RFC3339, r.URL.Query().Get("before"))
	if err != nil {
		core.RespondError(w, http.StatusBadRequest, "before must be an RFC3339 timestamp")
		return
	}
	n, err := h.service.Cleanup(r.Context(), before)
	if err != nil {
		h.fail(w, "cleanup orders", err)
		return
	}
	core.RespondSuccess(w, map[string]int64{"deleted": n})
}

func (h *Handler) respond(w http.ResponseWriter, status int, o *Order) {
	pub, _ := ToPublic(o)
	if status == http.StatusCreated {
		core.RespondCreated(w, pub)
		return
	}
	core.RespondSuccess(w, pub)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		core.RespondError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, ErrMethodNotAllowed):
		core.RespondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrKioskNotFound):
		core.RespondError(w, http.StatusNotFound, "Kiosk not found")
	case errors.Is(err, entity.ErrNotFound):
		core.RespondError(w, http.StatusNotFound, "Order not found")
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrNotRefundable), errors.Is(err, ErrNoReader):
		core.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrCheckoutUnavailable):
		core.RespondError(w, http.StatusBadGateway, "Card reader checkout could not be started")
	default:
		h.logger.Error("order request failed", "op", op, "error", err)
		core.RespondError(w, http.StatusInternalServerError, "Could not "+op)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		core.RespondError(w, http.StatusBadRequest, "Failed to read request body")
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		core.RespondError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return false
	}
	return true
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		core.RespondError(w, http.StatusBadRequest, "Invalid id")
		return uuid.Nil, false
	}
	return id, true
}
