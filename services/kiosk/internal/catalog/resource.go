// Package catalog manages the admin-maintained entities: activities, rooms,
// products, kiosks and admins.
package catalog

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/appetiteclub/kiosk/pkg/lib/core"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/entity"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const MaxBodyBytes = 1 << 20

type lifecycle interface {
	BeforeCreate()
	BeforeUpdate()
}

// Resource serves CRUD routes for one entity type. Every write goes through
// the entity store so clients are notified.
type Resource[E any, I Input[E], P any] struct {
	path   string
	store  *entity.Store[E]
	public func(*E) (P, error)
	logger core.Logger
}

func NewResource[E any, I Input[E], P any](path string, store *entity.Store[E], public func(*E) (P, error), logger core.Logger) *Resource[E, I, P] {
	if logger == nil {
		logger = core.NewNoopLogger()
	}
	return &Resource[E, I, P]{
		path:   path,
		store:  store,
		public: public,
		logger: logger.With("component", "CatalogResource", "resource", path),
	}
}

// Mount registers the routes. Reads are open to every caller that reached
// r; writes and the extra routes additionally pass through write.
func (rs *Resource[E, I, P]) Mount(r chi.Router, write func(http.Handler) http.Handler, extra ...func(chi.Router)) {
	r.Route("/"+rs.path, func(r chi.Router) {
		r.Get("/", rs.List)
		r.Get("/{id}", rs.Get)
		r.Group(func(r chi.Router) {
			if write != nil {
				r.Use(write)
			}
			r.Post("/", rs.Create)
			r.Put("/{id}", rs.Update)
			r.Delete("/{id}", rs.Delete)
			for _, fn := range extra {
				fn(r)
			}
		})
	})
}

func (rs *Resource[E, I, P]) List(w http.ResponseWriter, r *http.Request) {
	list, err := rs.store.List(r.Context(), nil)
	if err != nil {
		rs.logger.Error("cannot list", "error", err)
		core.RespondError(w, http.StatusInternalServerError, "Could not list "+rs.path)
		return
	}
	out := make([]P, 0, len(list))
	for _, e := range list {
		p, err := rs.public(e)
		if err != nil {
			rs.logger.Error("cannot build public representation", "error", err)
			core.RespondError(w, http.StatusInternalServerError, "Could not list "+rs.path)
			return
		}
		out = append(out, p)
	}
	core.RespondSuccess(w, out)
}

func (rs *Resource[E, I, P]) Get(w http.ResponseWriter, r *http.Request) {
	e, ok := rs.find(w, r)
	if !ok {
		return
	}
	rs.respond(w, http.StatusOK, e)
}

func (rs *Resource[E, I, P]) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := rs.decode(w, r)
	if !ok {
		return
	}
	e := new(E)
	if !rs.apply(w, in, e, true) {
		return
	}
	if lc, ok := any(e).(lifecycle); ok {
		lc.BeforeCreate()
	}
	if err := rs.store.Create(r.Context(), e); err != nil {
		rs.logger.Error("cannot create", "error", err)
		core.RespondError(w, http.StatusInternalServerError, "Could not create")
		return
	}
	rs.respond(w, http.StatusCreated, e)
}

func (rs *Resource[E, I, P]) Update(w http.ResponseWriter, r *http.Request) {
	e, ok := rs.find(w, r)
	if !ok {
		return
	}
	in, ok := rs.decode(w, r)
	if !ok {
		return
	}
	if !rs.apply(w, in, e, false) {
		return
	}
	if lc, ok := any(e).(lifecycle); ok {
		lc.BeforeUpdate()
	}
	if err := rs.store.Save(r.Context(), e); err != nil {
		rs.logger.Error("cannot update", "error", err)
		core.RespondError(w, http.StatusInternalServerError, "Could not update")
		return
	}
	rs.respond(w, http.StatusOK, e)
}

func (rs *Resource[E, I, P]) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	err := rs.store.Delete(r.Context(), id)
	if errors.Is(err, entity.ErrNotFound) {
		core.RespondError(w, http.StatusNotFound, "Not found")
		return
	}
	if err != nil {
		rs.logger.Error("cannot delete", "id", id.String(), "error", err)
		core.RespondError(w, http.StatusInternalServerError, "Could not delete")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rs *Resource[E, I, P]) find(w http.ResponseWriter, r *http.Request) (*E, bool) {
	id, ok := parseID(w, r)
	if !ok {
		return nil, false
	}
	e, err := rs.store.Get(r.Context(), id)
	if err != nil {
		rs.logger.Error("cannot get", "id", id.String(), "error", err)
		core.RespondError(w, http.StatusInternalServerError, "Could not get")
		return nil, false
	}
	if e == nil {
		core.RespondError(w, http.StatusNotFound, "Not found")
		return nil, false
	}
	return e, true
}

func (rs *Resource[E, I, P]) decode(w http.ResponseWriter, r *http.Request) (I, bool) {
	var in I
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		core.RespondError(w, http.StatusBadRequest, "Failed to read request body")
		return in, false
	}
	if err := json.Unmarshal(body, &in); err != nil {
		core.RespondError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return in, false
	}
	return in, true
}

func (rs *Resource[E, I, P]) apply(w http.ResponseWriter, in I, e *E, creating bool) bool {
	err := in.Apply(e, creating)
	if err == nil {
		return true
	}
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		core.RespondError(w, http.StatusBadRequest, verr.Error())
		return false
	}
	rs.logger.Error("cannot apply request", "error", err)
	core.RespondError(w, http.StatusInternalServerError, "Could not process request")
	return false
}

func (rs *Resource[E, I, P]) respond(w http.ResponseWriter, status int, e *E) {
	p, err := rs.public(e)
	if err != nil {
		rs.logger.Error("cannot build public representation", "error", err)
		core.RespondError(w, http.StatusInternalServerError, "Could not build response")
		return
	}
	if status == http.StatusCreated {
		core.RespondCreated(w, p)
		return
	}
	core.RespondSuccess(w, p)
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		core.RespondError(w, http.StatusBadRequest, "Invalid id")
		return uuid.Nil, false
	}
	return id, true
}
