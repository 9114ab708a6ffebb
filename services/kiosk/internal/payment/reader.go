package payment

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/appetiteclub/kiosk/pkg/lib/core"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/catalog"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/entity"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type PairRequest struct {
	PairingCode string `json:"pairingCode"`
}

// ReaderHandler pairs card readers with kiosks. The paired reader id is
// stored on the kiosk and used for its sumUp checkouts.
type ReaderHandler struct {
	client ReaderClient
	kiosks *entity.Store[catalog.Kiosk]
	logger core.Logger
}

func NewReaderHandler(client ReaderClient, kiosks *entity.Store[catalog.Kiosk], logger core.Logger) *ReaderHandler {
	if logger == nil {
		logger = core.NewNoopLogger()
	}
	return &ReaderHandler{client: client, kiosks: kiosks, logger: logger.With("component", "ReaderHandler")}
}

// Routes is mounted inside the kiosks resource.
func (h *ReaderHandler) Routes(r chi.Router) {
	r.Post("/{id}/reader", h.Pair)
	r.Delete("/{id}/reader", h.Unpair)
}

func (h *ReaderHandler) Pair(w http.ResponseWriter, r *http.Request) {
	k, ok := h.kiosk(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		core.RespondError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	var req PairRequest
	if err := json.Unmarshal(body, &req); err != nil {
		core.RespondError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	code := strings.TrimSpace(req.PairingCode)
	if code == "" {
		core.RespondError(w, http.StatusBadRequest, "pairingCode is required")
		return
	}

	readerID, ok := h.client.PairReader(r.Context(), code, k.Name)
	if !ok {
		core.RespondError(w, http.StatusBadGateway, "Card reader could not be paired")
		return
	}

	k.ReaderID = readerID
	k.BeforeUpdate()
	if err := h.kiosks.Save(r.Context(), k); err != nil {
		h.logger.Error("cannot store paired reader", "kiosk_id", k.ID.String(), "reader_id", readerID, "error", err)
		core.RespondError(w, http.StatusInternalServerError, "Could not store paired reader")
		return
	}
	h.logger.Info("reader paired", "kiosk_id", k.ID.String(), "reader_id", readerID)
	pub, _ := catalog.ToPublicKiosk(k)
	core.RespondSuccess(w, pub)
}

func (h *ReaderHandler) Unpair(w http.ResponseWriter, r *http.Request) {
	k, ok := h.kiosk(w, r)
	if !ok {
		return
	}
	if k.ReaderID == "" {
		core.RespondError(w, http.StatusConflict, "Kiosk has no paired reader")
		return
	}
	if !h.client.UnpairReader(r.Context(), k.ReaderID) {
		core.RespondError(w, http.StatusBadGateway, "Card reader could not be unpaired")
		return
	}

	readerID := k.ReaderID
	k.ReaderID = ""
	k.BeforeUpdate()
	if err := h.kiosks.Save(r.Context(), k); err != nil {
		h.logger.Error("cannot clear paired reader", "kiosk_id", k.ID.String(), "error", err)
		core.RespondError(w, http.StatusInternalServerError, "Could not clear paired reader")
		return
	}
	h.logger.Info("reader unpaired", "kiosk_id", k.ID.String(), "reader_id", readerID)
	pub, _ := catalog.ToPublicKiosk(k)
	core.RespondSuccess(w, pub)
}

func (h *ReaderHandler) kiosk(w http.ResponseWriter, r *http.Request) (*catalog.Kiosk, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		core.RespondError(w, http.StatusBadRequest, "Invalid id")
		return nil, false
	}
	k, err := h.kiosks.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("cannot get kiosk", "id", id.String(), "error", err)
		core.RespondError(w, http.StatusInternalServerError, "Could not get kiosk")
		return nil, false
	}
	if k == nil {
		core.RespondError(w, http.StatusNotFound, "Kiosk not found")
		return nil, false
	}
	return k, true
}
