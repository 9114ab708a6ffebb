package stats

import (
	"net/http"
	"strings"
	"time"

	"github.com/appetiteclub/kiosk/pkg/lib/core"
	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service *Service
	logger  core.Logger
}

func NewHandler(service *Service, logger core.Logger) *Handler {
	if logger == nil {
		logger = core.NewNoopLogger()
	}
	return &Handler{service: service, logger: logger.With("component", "StatsHandler")}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/stats", func(r chi.Router) {
		r.Get("/count", h.Count)
		r.Get("/activities", h.Activities)
		r.Get("/days", h.Days)
	})
}

func (h *Handler) Count(w http.ResponseWriter, r *http.Request) {
	q, ok := parseQuery(w, r)
	if !ok {
		return
	}
	n, err := h.service.CountByStatus(r.Context(), q)
	if err != nil {
		h.fail(w, "count orders", err)
		return
	}
	core.RespondSuccess(w, map[string]int64{"count": n})
}

func (h *Handler) Activities(w http.ResponseWriter, r *http.Request) {
	q, ok := parseQuery(w, r)
	if !ok {
		return
	}
	list, err := h.service.CountByActivity(r.Context(), q)
	if err != nil {
		h.fail(w, "count orders by activity", err)
		return
	}
	core.RespondSuccess(w, list)
}

func (h *Handler) Days(w http.ResponseWriter, r *http.Request) {
	q, ok := parseQuery(w, r)
	if !ok {
		return
	}
	list, err := h.service.CountByDay(r.Context(), q)
	if err != nil {
		h.fail(w, "count orders by day", err)
		return
	}
	core.RespondSuccess(w, list)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Error("stats query failed", "op", op, "error", err)
	core.RespondError(w, http.StatusInternalServerError, "Could not "+op)
}

// parseQuery reads from, to (RFC3339) and status (comma separated or
// repeated).
func parseQuery(w http.ResponseWriter, r *http.Request) (Query, bool) {
	var q Query
	values := r.URL.Query()
	for _, key := range []string{"from", "to"} {
		raw := values.Get(key)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			core.RespondError(w, http.StatusBadRequest, key+" must be an RFC3339 timestamp")
			return Query{}, false
		}
		if key == "from" {
			q.From = t
		} else {
			q.To = t
		}
	}
	if !q.From.IsZero() && !q.To.IsZero() && !q.From.Before(q.To) {
		core.RespondError(w, http.StatusBadRequest, "from must be before to")
		return Query{}, false
	}
	for _, v := range values["status"] {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				q.Statuses = append(q.Statuses, s)
			}
		}
	}
	return q, true
}
