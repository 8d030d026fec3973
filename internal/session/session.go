// Package session constructs one storefront coordination core per user
// session and binds the intent events that the rendering boundary emits.
//
// Every collaborator is passed in explicitly: a session owns its event
// bus, catalog store, basket store and checkout flow, and nothing in the
// process is shared ambient state.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jcmexdev/storefront/internal/basket"
	"github.com/jcmexdev/storefront/internal/catalog"
	"github.com/jcmexdev/storefront/internal/checkout"
	"github.com/jcmexdev/storefront/internal/checkout/checkoutlog"
	"github.com/jcmexdev/storefront/internal/pkg/events"
)

// Intent events consumed by the core. Renderers emit these; they never
// call store mutations directly.
const (
	IntentBasketAdd     = "basket:add"
	IntentBasketRemove  = "basket:remove"
	IntentOrderSetField = "order:setField"
	IntentOrderSubmit   = "order:submit"
)

// ErrMissingCollaborator is the integrity failure raised when a session
// is constructed without a required collaborator. It is fatal at
// initialisation and never retried.
var ErrMissingCollaborator = errors.New("session: required collaborator missing")

// FieldChange is the payload of an order:setField intent.
type FieldChange struct {
	Field basket.Field `json:"field"`
	Value string       `json:"value"`
}

// Collaborators are the external dependencies a session needs. Catalog
// and Orders are required; Audit may be nil.
type Collaborators struct {
	Catalog catalog.Lister
	Orders  basket.Submitter
	Audit   checkoutlog.Repository
	Logger  *slog.Logger
}

// Session is one user's coordination core.
type Session struct {
	ID      string
	Bus     *events.Bus
	Catalog *catalog.Store
	Basket  *basket.Store
	Flow    *checkout.Flow

	logger *slog.Logger
}

// New builds a session and registers its intent handlers once, for the
// session's lifetime. It fails fast when a required collaborator is
// absent rather than probing at use time.
func New(id string, c Collaborators) (*Session, error) {
	if c.Catalog == nil {
		return nil, fmt.Errorf("%w: catalog lister", ErrMissingCollaborator)
	}
	if c.Orders == nil {
		return nil, fmt.Errorf("%w: order submitter", ErrMissingCollaborator)
	}
	if c.Logger == nil {
		return nil, fmt.Errorf("%w: logger", ErrMissingCollaborator)
	}

	logger := c.Logger.With(slog.String("session_id", id))
	bus := events.NewBus(logger)
	basketStore := basket.NewStore(bus, c.Orders, logger)

	s := &Session{
		ID:      id,
		Bus:     bus,
		Catalog: catalog.NewStore(bus, c.Catalog),
		Basket:  basketStore,
		Flow:    checkout.NewFlow(id, basketStore, c.Audit, logger),
		logger:  logger,
	}
	s.bindIntents()
	return s, nil
}

// bindIntents subscribes the stores and flow to the renderer intents.
// Handlers are registered exactly once here; renders only read snapshots
// and never re-wire.
func (s *Session) bindIntents() {
	s.Bus.On(IntentBasketAdd, func(payload any) {
		id, ok := payload.(string)
		if !ok {
			s.logger.Warn("basket:add intent with non-string payload")
			return
		}
		product, ok := s.Catalog.Get(id)
		if !ok {
			s.logger.Warn("basket:add intent for unknown product", slog.String("product_id", id))
			return
		}
		s.Basket.Add(product)
	})

	s.Bus.On(IntentBasketRemove, func(payload any) {
		id, ok := payload.(string)
		if !ok {
			s.logger.Warn("basket:remove intent with non-string payload")
			return
		}
		s.Basket.Remove(id)
	})

	s.Bus.On(IntentOrderSetField, func(payload any) {
		change, ok := payload.(FieldChange)
		if !ok {
			s.logger.Warn("order:setField intent with unexpected payload")
			return
		}
		s.Basket.SetOrderField(change.Field, change.Value)
	})

	s.Bus.On(IntentOrderSubmit, func(payload any) {
		ctx, ok := payload.(context.Context)
		if !ok || ctx == nil {
			ctx = context.Background()
		}
		// Detach from the request context so an in-flight submission is
		// not cancelled when the triggering response is sent, while
		// keeping tracing metadata.
		ctx = context.WithoutCancel(ctx)

		if _, err := s.Flow.Submit(ctx); err != nil {
			switch {
			case errors.Is(err, checkout.ErrSubmitInFlight):
				// Idempotent guard: duplicate submit clicks are dropped.
			case errors.Is(err, basket.ErrSubmitFailed):
				// Already recorded by the flow; the failed step renders it.
			default:
				s.logger.WarnContext(ctx, "order:submit intent refused", slog.Any("error", err))
			}
		}
	})
}

// Open loads the session's catalog. Called once when the session is
// created.
func (s *Session) Open(ctx context.Context) error {
	return s.Catalog.Load(ctx)
}
