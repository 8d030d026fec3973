// Package checkout sequences the checkout steps: basket review, shipping
// and payment entry, contact entry, submission. Progression between steps
// is gated by field validation, re-evaluated on every draft change.
package checkout

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jcmexdev/storefront/internal/basket"
	"github.com/jcmexdev/storefront/internal/checkout/checkoutlog"
	"github.com/jcmexdev/storefront/internal/pkg/validate"
)

// State is the active checkout step. Exactly one is active at a time.
type State string

const (
	StateBasket          State = "basket"
	StateShippingPayment State = "shipping_payment"
	StateContact         State = "contact"
	StateSubmitting      State = "submitting"
	StateSuccess         State = "success"
	StateFailed          State = "failed"
)

// MsgSubmitFailed is shown on the failed step; the user may retry.
const MsgSubmitFailed = "Ошибка при оформлении заказа. Попробуйте ещё раз."

var (
	// ErrEmptyBasket refuses opening checkout with nothing to buy.
	ErrEmptyBasket = errors.New("checkout: basket is empty")

	// ErrInvalidTransition rejects an operation not defined for the
	// current state.
	ErrInvalidTransition = errors.New("checkout: invalid transition")

	// ErrNotReady blocks progression while required-field validation
	// fails. The reasons are available via Errors().
	ErrNotReady = errors.New("checkout: required fields are not valid")

	// ErrSubmitInFlight marks a re-entrant submit attempt while a
	// submission is already running. Callers treat it as a no-op.
	ErrSubmitInFlight = errors.New("checkout: submission already in progress")
)

// Flow is the checkout state machine for one session. All methods are
// safe for concurrent use; the in-flight submission holds no lock so the
// rest of the session keeps answering reads.
type Flow struct {
	sessionID string
	basket    *basket.Store
	audit     checkoutlog.Repository // nil disables the transition log
	logger    *slog.Logger
	tracer    trace.Tracer

	mu         sync.Mutex
	state      State
	submitErr  string
	lastResult basket.OrderResult
	hasResult  bool
}

func NewFlow(sessionID string, basketStore *basket.Store, audit checkoutlog.Repository, logger *slog.Logger) *Flow {
	return &Flow{
		sessionID: sessionID,
		basket:    basketStore,
		audit:     audit,
		logger:    logger,
		tracer:    otel.Tracer("storefront/checkout"),
		state:     StateBasket,
	}
}

// State returns the active step.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Errors returns the validation reasons blocking progression from the
// active step, or the submission error on the failed step. Empty when
// the progression control should be enabled.
func (f *Flow) Errors() []string {
	f.mu.Lock()
	state := f.state
	submitErr := f.submitErr
	f.mu.Unlock()

	return f.stepErrors(state, submitErr)
}

// CanProceed reports whether the progression control for the active step
// is enabled. Re-evaluated from current draft state on every call, so a
// renderer polling after each field change sees the toggle immediately.
func (f *Flow) CanProceed() bool {
	f.mu.Lock()
	state := f.state
	f.mu.Unlock()

	switch state {
	case StateBasket:
		return f.basket.Len() > 0
	case StateShippingPayment, StateContact:
		return len(f.stepErrors(state, "")) == 0
	case StateFailed, StateSuccess:
		return true
	default: // Submitting
		return false
	}
}

// Open starts a checkout session: basket review to shipping/payment.
// Refused with ErrEmptyBasket when the basket has no lines.
func (f *Flow) Open(ctx context.Context) error {
	f.mu.Lock()
	if f.state != StateBasket {
		f.mu.Unlock()
		return ErrInvalidTransition
	}
	if f.basket.Len() == 0 {
		f.mu.Unlock()
		f.record(ctx, StateBasket, StateBasket, ErrEmptyBasket.Error())
		return ErrEmptyBasket
	}
	f.state = StateShippingPayment
	f.mu.Unlock()

	// A fresh draft for every checkout session.
	f.basket.ResetDraft()
	f.record(ctx, StateBasket, StateShippingPayment, "")
	return nil
}

// Next advances from shipping/payment to contact entry, gated on a valid
// address and a chosen payment method.
func (f *Flow) Next(ctx context.Context) error {
	f.mu.Lock()
	if f.state != StateShippingPayment {
		f.mu.Unlock()
		return ErrInvalidTransition
	}
	if reasons := f.stepErrors(StateShippingPayment, ""); len(reasons) > 0 {
		f.mu.Unlock()
		return ErrNotReady
	}
	f.state = StateContact
	f.mu.Unlock()

	f.record(ctx, StateShippingPayment, StateContact, "")
	return nil
}

// Submit runs the one asynchronous boundary of the flow: the order
// round-trip. Valid from the contact step and, as a retry, from the
// failed step. A submit while one is already in flight returns
// ErrSubmitInFlight and changes nothing.
func (f *Flow) Submit(ctx context.Context) (basket.OrderResult, error) {
	f.mu.Lock()
	if f.state == StateSubmitting {
		f.mu.Unlock()
		return basket.OrderResult{}, ErrSubmitInFlight
	}
	if f.state != StateContact && f.state != StateFailed {
		f.mu.Unlock()
		return basket.OrderResult{}, ErrInvalidTransition
	}
	if reasons := f.submitErrors(); len(reasons) > 0 {
		f.mu.Unlock()
		return basket.OrderResult{}, ErrNotReady
	}
	from := f.state
	f.state = StateSubmitting
	f.submitErr = ""
	f.mu.Unlock()

	ctx, span := f.tracer.Start(ctx, "CheckoutFlow.Submit",
		trace.WithAttributes(attribute.String("session.id", f.sessionID)),
	)
	defer span.End()

	f.record(ctx, from, StateSubmitting, "")

	res, err := f.basket.CreateOrder(ctx)

	f.mu.Lock()
	if err != nil {
		f.state = StateFailed
		f.submitErr = MsgSubmitFailed
	} else {
		f.state = StateSuccess
		f.lastResult = res
		f.hasResult = true
	}
	to := f.state
	f.mu.Unlock()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "order submission failed")
		f.record(ctx, StateSubmitting, to, err.Error())
		return basket.OrderResult{}, err
	}

	span.SetAttributes(
		attribute.String("order.id", res.ID),
		attribute.Int("order.total", res.Total),
	)
	span.SetStatus(codes.Ok, "order completed")
	f.record(ctx, StateSubmitting, to, "")
	return res, nil
}

// Cancel returns any non-terminal step to the basket and discards the
// draft. An in-flight submission cannot be cancelled; wait for it to
// resolve.
func (f *Flow) Cancel(ctx context.Context) error {
	f.mu.Lock()
	switch f.state {
	case StateShippingPayment, StateContact, StateFailed:
	case StateSubmitting:
		f.mu.Unlock()
		return ErrSubmitInFlight
	default:
		f.mu.Unlock()
		return ErrInvalidTransition
	}
	from := f.state
	f.state = StateBasket
	f.submitErr = ""
	f.mu.Unlock()

	f.basket.ResetDraft()
	f.record(ctx, from, StateBasket, "cancelled")
	return nil
}

// Result returns the outcome of the last successful submission, shown by
// the success view ("Списано N синапсов"). Cleared when the session
// closes.
func (f *Flow) Result() (basket.OrderResult, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastResult, f.hasResult
}

// Close leaves the terminal success step and starts a fresh session.
func (f *Flow) Close(ctx context.Context) error {
	f.mu.Lock()
	if f.state != StateSuccess {
		f.mu.Unlock()
		return ErrInvalidTransition
	}
	f.state = StateBasket
	f.lastResult = basket.OrderResult{}
	f.hasResult = false
	f.mu.Unlock()

	f.record(ctx, StateSuccess, StateBasket, "")
	return nil
}

// stepErrors computes the validation reasons for one step from the
// current draft. Pure with respect to flow state.
func (f *Flow) stepErrors(state State, submitErr string) []string {
	draft := f.basket.OrderData()

	var reasons []string
	appendReason := func(r string) {
		if r != "" {
			reasons = append(reasons, r)
		}
	}

	switch state {
	case StateShippingPayment:
		appendReason(validate.Address(draft.Address))
		if draft.Payment == "" {
			appendReason(validate.MsgPaymentRequired)
		}
	case StateContact:
		appendReason(validate.Email(draft.Email))
		appendReason(validate.Phone(draft.Phone))
	case StateFailed:
		appendReason(submitErr)
	}
	return reasons
}

// submitErrors is the strict submission gate: every required field over
// the whole draft plus a non-empty basket.
func (f *Flow) submitErrors() []string {
	reasons := f.stepErrors(StateShippingPayment, "")
	reasons = append(reasons, f.stepErrors(StateContact, "")...)
	if f.basket.Len() == 0 {
		reasons = append(reasons, ErrEmptyBasket.Error())
	}
	return reasons
}

// record writes one transition to the log and the audit repository. The
// repository is nil-safe: transitions are simply not persisted without it.
func (f *Flow) record(ctx context.Context, from, to State, reason string) {
	f.logger.InfoContext(ctx, "checkout transition",
		slog.String("session_id", f.sessionID),
		slog.String("from", string(from)),
		slog.String("to", string(to)),
		slog.String("reason", reason),
	)

	if f.audit == nil {
		return
	}
	entry := checkoutlog.NewEntry(ctx, f.sessionID, string(from), string(to), reason)
	if err := f.audit.Save(ctx, entry); err != nil {
		f.logger.ErrorContext(ctx, "failed to save checkout transition",
			slog.String("session_id", f.sessionID),
			slog.Any("error", err),
		)
	}
}

// Describe renders the reasons the way the form error surface shows
// them, one per line.
func Describe(reasons []string) string {
	return strings.Join(reasons, "\n")
}
