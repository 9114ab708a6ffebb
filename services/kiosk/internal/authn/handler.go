// Package authn logs admins and kiosks in and resolves the principal of
// every request from its session cookie.
package authn

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/appetiteclub/kiosk/pkg/enums/principal"
	"github.com/appetiteclub/kiosk/pkg/lib/auth"
	"github.com/appetiteclub/kiosk/pkg/lib/core"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/catalog"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/entity"
	"github.com/go-chi/chi/v5"
)

const MaxBodyBytes = 1 << 16

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Handler struct {
	sessions *SessionManager
	admins   *entity.Store[catalog.Admin]
	kiosks   *entity.Store[catalog.Kiosk]
	logger   core.Logger
}

func NewHandler(sessions *SessionManager, stores catalog.Stores, logger core.Logger) *Handler {
	if logger == nil {
		logger = core.NewNoopLogger()
	}
	return &Handler{
		sessions: sessions,
		admins:   stores.Admins,
		kiosks:   stores.Kiosks,
		logger:   logger.With("component", "AuthnHandler"),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/admin/login", h.AdminLogin)
		r.Post("/kiosk/login", h.KioskLogin)
		r.Post("/logout", h.Logout)
		r.With(RequireAuthenticated).Get("/me", h.Me)
	})
}

func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeLogin(w, r)
	if !ok {
		return
	}
	a, err := h.admins.FindOne(r.Context(), entity.Fields{"username": auth.NormalizeUsername(req.Username)})
	if err != nil {
		h.logger.Error("cannot look up admin", "error", err)
		core.RespondError(w, http.StatusInternalServerError, "Could not log in")
		return
	}
	if a == nil || !auth.VerifyPassword(a.PasswordHash, req.Password) {
		core.RespondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err := h.sessions.Create(r.Context(), w, r, Principal{Type: principal.Admin, ID: a.ID}); err != nil {
		h.logger.Error("cannot create session", "error", err)
		core.RespondError(w, http.StatusInternalServerError, "Could not log in")
		return
	}
	h.logger.Info("admin logged in", "admin_id", a.ID.String())
	pub, _ := catalog.ToPublicAdmin(a)
	core.RespondSuccess(w, pub)
}

func (h *Handler) KioskLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeLogin(w, r)
	if !ok {
		return
	}
	k, err := h.kiosks.FindOne(r.Context(), entity.Fields{"username": auth.NormalizeUsername(req.Username)})
	if err != nil {
		h.logger.Error("cannot look up kiosk", "error", err)
		core.RespondError(w, http.StatusInternalServerError, "Could not log in")
		return
	}
	if k == nil || !auth.VerifyPassword(k.PasswordHash, req.Password) {
		core.RespondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err := h.sessions.Create(r.Context(), w, r, Principal{Type: principal.Kiosk, ID: k.ID}); err != nil {
		h.logger.Error("cannot create session", "error", err)
		core.RespondError(w, http.StatusInternalServerError, "Could not log in")
		return
	}
	h.logger.Info("kiosk logged in", "kiosk_id", k.ID.String())
	pub, _ := catalog.ToPublicKiosk(k)
	core.RespondSuccess(w, pub)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(r.Context(), w, r); err != nil {
		h.logger.Error("cannot destroy session", "error", err)
		core.RespondError(w, http.StatusInternalServerError, "Could not log out")
		return
	}
	core.RespondMessage(w, http.StatusOK, "Logged out")
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	core.RespondSuccess(w, p)
}

func (h *Handler) decodeLogin(w http.ResponseWriter, r *http.Request) (LoginRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		core.RespondError(w, http.StatusBadRequest, "Failed to read request body")
		return LoginRequest{}, false
	}
	var req LoginRequest
	if err := json.Unmarshal(body, &req); err != nil {
		core.RespondError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return LoginRequest{}, false
	}
	if req.Username == "" || req.Password == "" {
		core.RespondError(w, http.StatusBadRequest, "username and password are required")
		return LoginRequest{}, false
	}
	return req, true
}
