package payment

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/appetiteclub/kiosk/pkg/enums/paymentstatus"
	"github.com/appetiteclub/kiosk/pkg/lib/core"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/authn"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const MaxBodyBytes = 64 << 10

// Webhook acknowledgement messages. The card reader network always gets a
// 200; the message says what happened.
const (
	MsgUpdated   = "Payment status updated"
	MsgDuplicate = "Ignored: payment already final"
	MsgMalformed = "Ignored: malformed callback"
	MsgNotFound  = "Ignored: unknown client transaction id"
	MsgFailed    = "Ignored: callback could not be processed"
)

type DebugStatusRequest struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

type HandlerOptions struct {
	// Debug enables the operator status endpoint.
	Debug    bool
	Reporter core.ErrorReporter
}

type Handler struct {
	reconciler *Reconciler
	debug      bool
	reporter   core.ErrorReporter
	logger     core.Logger
}

func NewHandler(reconciler *Reconciler, opts HandlerOptions, logger core.Logger) *Handler {
	if logger == nil {
		logger = core.NewNoopLogger()
	}
	if opts.Reporter == nil {
		opts.Reporter = core.NewLogReporter(logger)
	}
	return &Handler{
		reconciler: reconciler,
		debug:      opts.Debug,
		reporter:   opts.Reporter,
		logger:     logger.With("component", "PaymentHandler"),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/payments", func(r chi.Router) {
		r.Post("/callback", h.Callback)
		if h.debug {
			r.With(authn.RequireAdmin).Post("/debug/status", h.DebugStatus)
		}
	})
}

// Callback receives card reader status notifications.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Warn("cannot read payment callback", "error", err)
		core.RespondMessage(w, http.StatusOK, MsgMalformed)
		return
	}

	cb, err := ParseCallback(body)
	if err != nil {
		h.logger.Warn("malformed payment callback", "error", err)
		core.RespondMessage(w, http.StatusOK, MsgMalformed+": "+strings.TrimPrefix(err.Error(), ErrInvalidCallback.Error()+": "))
		return
	}

	if cb.TimestampUnparsed() {
		h.logger.Warn("payment callback timestamp ignored", "event_id", cb.EventID, "timestamp", cb.RawTimestamp)
	}

	res, err := h.reconciler.ApplyStatusUpdate(r.Context(), ByClientTransactionID(cb.ClientTransactionID), cb.Status, "callback")
	if err != nil {
		h.reporter.Report(r.Context(), err, "event_id", cb.EventID, "client_transaction_id", cb.ClientTransactionID)
		core.RespondMessage(w, http.StatusOK, MsgFailed)
		return
	}

	switch {
	case res.Applied:
		core.RespondMessage(w, http.StatusOK, MsgUpdated)
	case res.AlreadyFinal:
		core.RespondMessage(w, http.StatusOK, MsgDuplicate)
	default:
		core.RespondMessage(w, http.StatusOK, MsgNotFound)
	}
}

// DebugStatus lets an operator resolve a payment by order id.
func (h *Handler) DebugStatus(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		core.RespondError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	var req DebugStatusRequest
	if err := json.Unmarshal(body, &req); err != nil {
		core.RespondError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	id, err := uuid.Parse(strings.TrimSpace(req.OrderID))
	if err != nil {
		core.RespondError(w, http.StatusBadRequest, "orderId must be a valid id")
		return
	}
	if !paymentstatus.IsResolution(req.Status) {
		core.RespondError(w, http.StatusBadRequest, "status must be successful or failed")
		return
	}

	res, err := h.reconciler.ApplyStatusUpdate(r.Context(), ByOrderID(id), req.Status, "debug")
	if err != nil {
		if errors.Is(err, ErrInvalidStatus) {
			core.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.reporter.Report(r.Context(), err, "order_id", id.String())
		core.RespondError(w, http.StatusInternalServerError, "Could not update payment status")
		return
	}

	switch {
	case res.NotFound:
		core.RespondError(w, http.StatusNotFound, "Order not found")
	case res.AlreadyFinal:
		core.RespondMessage(w, http.StatusOK, "Payment already "+res.Status)
	default:
		core.RespondMessage(w, http.StatusOK, "Payment marked "+res.Status)
	}
}
