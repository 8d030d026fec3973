// Package httpx is the rendering boundary: chi handlers that return
// state snapshots as JSON fragments and translate user gestures into the
// intent events the coordination core consumes. Handlers never mutate
// the stores directly.
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jcmexdev/storefront/internal/basket"
	"github.com/jcmexdev/storefront/internal/catalog"
	"github.com/jcmexdev/storefront/internal/checkout"
	"github.com/jcmexdev/storefront/internal/checkout/checkoutlog"
	"github.com/jcmexdev/storefront/internal/session"
)

// TransitionHistorian is the optional read side of the checkout log,
// backing the operator history endpoint. nil-safe: the endpoint reports
// the log as disabled when absent.
type TransitionHistorian interface {
	History(ctx context.Context, sessionID string) ([]checkoutlog.Entry, error)
}

// Handler serves the storefront session API.
type Handler struct {
	sessions *session.Manager
	history  TransitionHistorian // may be nil
}

// NewHandler wires the handler to the session manager. history may be
// nil when the checkout transition log is disabled.
func NewHandler(sessions *session.Manager, history TransitionHistorian) *Handler {
	return &Handler{
		sessions: sessions,
		history:  history,
	}
}

// CreateSession constructs a fresh coordination core and loads its
// catalog.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Create(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to create session", slog.Any("error", err))
		writeError(w, http.StatusBadGateway, "session_create_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, SessionResponse{SessionID: s.ID})
}

// GetCatalog renders the session's product gallery.
func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	items := s.Catalog.Items()
	writeJSON(w, http.StatusOK, CatalogResponse{Total: len(items), Items: items})
}

// GetProduct renders a single card preview and re-emits card:clicked so
// diagnostics see the same intent stream the browser UI produced.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	product, ok := s.Catalog.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "product_not_found", "")
		return
	}
	s.Bus.Emit(catalog.EventCardClicked, product)
	writeJSON(w, http.StatusOK, product)
}

// GetBasket renders the basket fragment: lines, total, counter.
func (h *Handler) GetBasket(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, basketSnapshot(s))
}

// AddBasketItem reports the add intent.
func (h *Handler) AddBasketItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "product_id_required", "")
		return
	}
	if _, exists := s.Catalog.Get(req.ProductID); !exists {
		writeError(w, http.StatusNotFound, "product_not_found", "")
		return
	}

	s.Bus.Emit(session.IntentBasketAdd, req.ProductID)
	writeJSON(w, http.StatusOK, basketSnapshot(s))
}

// RemoveBasketItem reports the delete intent for one line.
func (h *Handler) RemoveBasketItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Bus.Emit(session.IntentBasketRemove, chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, basketSnapshot(s))
}

// GetCheckout renders the active checkout step.
func (h *Handler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, checkoutSnapshot(s))
}

// OpenCheckout starts the checkout session from basket review.
func (h *Handler) OpenCheckout(w http.ResponseWriter, r *http.Request) {
	h.flowOp(w, r, func(s *session.Session) error {
		return s.Flow.Open(r.Context())
	})
}

// NextCheckout advances from shipping/payment to contact entry.
func (h *Handler) NextCheckout(w http.ResponseWriter, r *http.Request) {
	h.flowOp(w, r, func(s *session.Session) error {
		return s.Flow.Next(r.Context())
	})
}

// SetCheckoutField reports one field edit; validation state in the
// response reflects it immediately.
func (h *Handler) SetCheckoutField(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req SetFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	s.Bus.Emit(session.IntentOrderSetField, session.FieldChange{
		Field: basket.Field(req.Field),
		Value: req.Value,
	})
	writeJSON(w, http.StatusOK, checkoutSnapshot(s))
}

// SubmitCheckout reports the submit intent. The emission is synchronous,
// so the response snapshot already reflects the outcome: success,
// failed, or a refused gate.
func (h *Handler) SubmitCheckout(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	before := s.Flow.State()
	s.Bus.Emit(session.IntentOrderSubmit, r.Context())
	after := s.Flow.State()

	switch {
	case after == checkout.StateSuccess:
		writeJSON(w, http.StatusOK, checkoutSnapshot(s))
	case after == checkout.StateFailed:
		writeJSON(w, http.StatusBadGateway, checkoutSnapshot(s))
	case after == before && before != checkout.StateSubmitting:
		// The gate refused: wrong step or failing validation.
		writeJSON(w, http.StatusConflict, checkoutSnapshot(s))
	default:
		writeJSON(w, http.StatusAccepted, checkoutSnapshot(s))
	}
}

// CancelCheckout returns to the basket, keeping its lines.
func (h *Handler) CancelCheckout(w http.ResponseWriter, r *http.Request) {
	h.flowOp(w, r, func(s *session.Session) error {
		return s.Flow.Cancel(r.Context())
	})
}

// CloseCheckout dismisses the success step.
func (h *Handler) CloseCheckout(w http.ResponseWriter, r *http.Request) {
	h.flowOp(w, r, func(s *session.Session) error {
		return s.Flow.Close(r.Context())
	})
}

// GetCheckoutHistory lists the recorded transitions for a session.
func (h *Handler) GetCheckoutHistory(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if h.history == nil {
		writeError(w, http.StatusNotImplemented, "checkout_log_disabled", "")
		return
	}

	entries, err := h.history.History(r.Context(), s.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "checkout_log_error", err.Error())
		return
	}

	out := make([]TransitionResponse, len(entries))
	for i, e := range entries {
		out[i] = TransitionResponse{
			From:    e.From,
			To:      e.To,
			Reason:  e.Reason,
			TraceID: e.TraceID,
			At:      e.At.UTC().Format(time.RFC3339Nano),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// flowOp runs one checkout flow operation and renders the resulting
// snapshot, mapping refusals to conflict responses.
func (h *Handler) flowOp(w http.ResponseWriter, r *http.Request, op func(*session.Session) error) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := op(s); err != nil {
		status := http.StatusConflict
		code := "transition_refused"
		switch {
		case errors.Is(err, checkout.ErrEmptyBasket):
			code = "basket_empty"
		case errors.Is(err, checkout.ErrNotReady):
			status = http.StatusUnprocessableEntity
			code = "validation_failed"
		case errors.Is(err, checkout.ErrSubmitInFlight):
			code = "submit_in_flight"
		}
		writeError(w, status, code, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, checkoutSnapshot(s))
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := chi.URLParam(r, "sid")
	s, ok := h.sessions.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "session_not_found", "")
		return nil, false
	}
	return s, true
}

func basketSnapshot(s *session.Session) BasketResponse {
	items := s.Basket.Items()
	return BasketResponse{
		Items: items,
		Total: s.Basket.Total(),
		Count: len(items),
	}
}

func checkoutSnapshot(s *session.Session) CheckoutResponse {
	resp := CheckoutResponse{
		State:      string(s.Flow.State()),
		Errors:     s.Flow.Errors(),
		CanProceed: s.Flow.CanProceed(),
		Order:      s.Basket.OrderData(),
	}
	if result, ok := s.Flow.Result(); ok {
		resp.Result = &result
	}
	if resp.Errors == nil {
		resp.Errors = []string{}
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}
