// Package basket owns the set of products selected for purchase and the
// in-progress order draft. All mutation goes through the Store; reads
// return snapshots so no caller can hold a mutable reference to the
// underlying collections.
package basket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jcmexdev/storefront/internal/catalog"
	"github.com/jcmexdev/storefront/internal/pkg/events"
)

// Events emitted by the basket store.
const (
	EventChanged        = "basket:changed"
	EventOrderChanged   = "order:changed"
	EventOrderCompleted = "order:completed"
)

// ErrSubmitFailed tags order submission failures so the checkout flow can
// distinguish them from programming errors.
var ErrSubmitFailed = errors.New("не удалось создать заказ")

// Line is one basket entry, snapshotted for display.
type Line struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Price int    `json:"price"`
}

// OrderRequest is the payload handed to the order submission collaborator.
type OrderRequest struct {
	Payment PaymentMethod `json:"payment"`
	Address string        `json:"address"`
	Email   string        `json:"email"`
	Phone   string        `json:"phone"`
	Items   []string      `json:"items"`
	Total   int           `json:"total"`
}

// OrderResult is returned by the remote order service.
type OrderResult struct {
	ID    string `json:"id"`
	Total int    `json:"total"`
}

// Submitter is the order submission collaborator.
type Submitter interface {
	SubmitOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
}

// Store holds the basket set (insertion-ordered, no duplicate product
// IDs) and the current order draft.
type Store struct {
	events *events.Bus
	api    Submitter
	logger *slog.Logger

	mu      sync.Mutex
	items   []catalog.Product
	present map[string]struct{}
	draft   OrderDraft
}

func NewStore(bus *events.Bus, api Submitter, logger *slog.Logger) *Store {
	return &Store{
		events:  bus,
		api:     api,
		logger:  logger,
		present: make(map[string]struct{}),
	}
}

// Add inserts the product if absent. Adding a product already in the
// basket is a no-op, not an error.
func (s *Store) Add(p catalog.Product) {
	s.mu.Lock()
	if _, ok := s.present[p.ID]; ok {
		s.mu.Unlock()
		return
	}
	s.present[p.ID] = struct{}{}
	s.items = append(s.items, p)
	lines := s.lines()
	s.mu.Unlock()

	s.events.Emit(EventChanged, lines)
}

// Remove deletes the product with the given ID if present.
func (s *Store) Remove(productID string) {
	s.mu.Lock()
	if _, ok := s.present[productID]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.present, productID)
	for i, it := range s.items {
		if it.ID == productID {
			s.items = append(s.items[:i:i], s.items[i+1:]...)
			break
		}
	}
	lines := s.lines()
	s.mu.Unlock()

	s.events.Emit(EventChanged, lines)
}

// Clear empties the basket and discards order-draft progress.
func (s *Store) Clear() {
	s.mu.Lock()
	s.items = nil
	s.present = make(map[string]struct{})
	s.draft = OrderDraft{}
	s.mu.Unlock()

	s.events.Emit(EventChanged, []Line{})
}

// Items returns the basket lines in insertion order.
func (s *Store) Items() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines()
}

// ItemIDs returns the product IDs in insertion order.
func (s *Store) ItemIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(s.items))
	for i, it := range s.items {
		ids[i] = it.ID
	}
	return ids
}

// Total is the sum of unit prices over the current basket membership,
// recomputed on every read.
func (s *Store) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total()
}

// Len reports the number of basket lines.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// SetOrderField writes one field of the order draft and emits
// order:changed with the updated snapshot. Unknown fields and unknown
// payment values are logged and ignored; the operation cannot fail.
func (s *Store) SetOrderField(field Field, value string) {
	s.mu.Lock()
	switch field {
	case FieldAddress:
		s.draft.Address = value
	case FieldEmail:
		s.draft.Email = value
	case FieldPhone:
		s.draft.Phone = value
	case FieldPayment:
		method, ok := ParsePaymentMethod(value)
		if !ok {
			s.mu.Unlock()
			s.logger.Warn("ignoring unknown payment method", slog.String("value", value))
			return
		}
		s.draft.Payment = method
	default:
		s.mu.Unlock()
		s.logger.Warn("ignoring unknown order field", slog.String("field", string(field)))
		return
	}
	draft := s.draft
	s.mu.Unlock()

	s.events.Emit(EventOrderChanged, draft)
}

// OrderData returns a snapshot of the current order draft.
func (s *Store) OrderData() OrderDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// ResetDraft discards the order draft without touching basket lines.
// Used when a checkout session starts or is cancelled.
func (s *Store) ResetDraft() {
	s.mu.Lock()
	s.draft = OrderDraft{}
	draft := s.draft
	s.mu.Unlock()

	s.events.Emit(EventOrderChanged, draft)
}

// CreateOrder submits the draft together with the current item IDs and
// total to the order collaborator. On success the basket is cleared and
// order:completed fires exactly once; on failure the basket and draft are
// left untouched and the error is propagated wrapped in ErrSubmitFailed.
func (s *Store) CreateOrder(ctx context.Context) (OrderResult, error) {
	s.mu.Lock()
	req := OrderRequest{
		Payment: s.draft.Payment,
		Address: s.draft.Address,
		Email:   s.draft.Email,
		Phone:   s.draft.Phone,
		Total:   s.total(),
	}
	req.Items = make([]string, len(s.items))
	for i, it := range s.items {
		req.Items[i] = it.ID
	}
	s.mu.Unlock()

	res, err := s.api.SubmitOrder(ctx, req)
	if err != nil {
		s.logger.ErrorContext(ctx, "order submission failed", slog.Any("error", err))
		return OrderResult{}, fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}

	s.logger.InfoContext(ctx, "order completed",
		slog.String("order_id", res.ID),
		slog.Int("total", res.Total),
	)

	s.Clear()
	s.events.Emit(EventOrderCompleted, res)
	return res, nil
}

// lines and total are called with s.mu held.

func (s *Store) lines() []Line {
	out := make([]Line, len(s.items))
	for i, it := range s.items {
		out[i] = Line{ID: it.ID, Title: it.Title, Price: it.Price}
	}
	return out
}

func (s *Store) total() int {
	sum := 0
	for _, it := range s.items {
		sum += it.Price
	}
	return sum
}
