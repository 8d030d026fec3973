package httpx

import (
	"github.com/jcmexdev/storefront/internal/basket"
	"github.com/jcmexdev/storefront/internal/catalog"
)

type SessionResponse struct {
	SessionID string `json:"session_id"`
}

type CatalogResponse struct {
	Total int               `json:"total"`
	Items []catalog.Product `json:"items"`
}

type BasketResponse struct {
	Items []basket.Line `json:"items"`
	Total int           `json:"total"`
	Count int           `json:"count"`
}

// CheckoutResponse is the snapshot a checkout view renders: the active
// step, the inline validation reasons, whether the progression control
// is enabled, the current draft, and the order result on the success
// step.
type CheckoutResponse struct {
	State      string              `json:"state"`
	Errors     []string            `json:"errors"`
	CanProceed bool                `json:"can_proceed"`
	Order      basket.OrderDraft   `json:"order"`
	Result     *basket.OrderResult `json:"result,omitempty"`
}

type AddItemRequest struct {
	ProductID string `json:"product_id"`
}

type SetFieldRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type TransitionResponse struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Reason  string `json:"reason,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
	At      string `json:"at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
