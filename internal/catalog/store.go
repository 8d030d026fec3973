package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/jcmexdev/storefront/internal/pkg/events"
)

// Store holds the loaded product list and answers lookups by ID.
type Store struct {
	events *events.Bus
	api    Lister

	mu       sync.RWMutex
	products []Product
	byID     map[string]Product
	loaded   bool
}

func NewStore(bus *events.Bus, api Lister) *Store {
	return &Store{
		events: bus,
		api:    api,
		byID:   make(map[string]Product),
	}
}

// Load fetches the product list once and emits products:loaded with the
// full list. Subsequent calls after a successful load are no-ops.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.loaded {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	products, err := s.api.ListProducts(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	s.mu.Lock()
	if s.loaded {
		s.mu.Unlock()
		return nil
	}
	s.products = products
	for _, p := range products {
		s.byID[p.ID] = p
	}
	s.loaded = true
	snapshot := s.items()
	s.mu.Unlock()

	s.events.Emit(EventProductsLoaded, snapshot)
	return nil
}

// Items returns a copy of the loaded product list.
func (s *Store) Items() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items()
}

func (s *Store) items() []Product {
	out := make([]Product, len(s.products))
	copy(out, s.products)
	return out
}

// Get looks up a product by ID.
func (s *Store) Get(id string) (Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[id]
	return p, ok
}

// Loaded reports whether the catalog has been fetched.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}
