// Package catalog holds the immutable product list loaded once per
// session from the remote shop service.
package catalog

import "context"

// Events emitted by the catalog store.
const (
	EventProductsLoaded = "products:loaded"
	EventCardClicked    = "card:clicked"
)

// Product is a single catalog entry. Prices are integer "синапсы".
// Products are immutable once loaded; the store owns them exclusively.
type Product struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Price       int    `json:"price"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Category    string `json:"category"`
}

// Lister is the catalog fetch collaborator.
type Lister interface {
	ListProducts(ctx context.Context) ([]Product, error)
}
