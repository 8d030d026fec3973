package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/sessions", handler.CreateSession)
	r.Route("/sessions/{sid}", func(r chi.Router) {
		r.Get("/catalog", handler.GetCatalog)
		r.Get("/catalog/{id}", handler.GetProduct)

		r.Get("/basket", handler.GetBasket)
		r.Post("/basket/items", handler.AddBasketItem)
		r.Delete("/basket/items/{id}", handler.RemoveBasketItem)

		r.Get("/checkout", handler.GetCheckout)
		r.Post("/checkout", handler.OpenCheckout)
		r.Post("/checkout/next", handler.NextCheckout)
		r.Patch("/checkout", handler.SetCheckoutField)
		r.Post("/checkout/submit", handler.SubmitCheckout)
		r.Post("/checkout/cancel", handler.CancelCheckout)
		r.Post("/checkout/close", handler.CloseCheckout)
		r.Get("/checkout/history", handler.GetCheckoutHistory)
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return r
}
