// Package handler exposes the adjustment engine over HTTP. Handlers decode
// JSON requests, delegate to the domain services, and map domain errors to
// status codes; discount ineligibility is never an error status.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mbathie/pos-sub001/internal/domain/checkout"
	"github.com/mbathie/pos-sub001/internal/domain/customer"
	"github.com/mbathie/pos-sub001/internal/domain/discount"
	"github.com/mbathie/pos-sub001/internal/domain/product"
)

// Handler holds the HTTP endpoints and their domain dependencies.
type Handler struct {
	checkout  *checkout.Service
	discounts discount.Repository
	products  product.Repository
	customers customer.Repository
}

// New constructs a Handler with the required domain dependencies.
func New(
	checkoutSvc *checkout.Service,
	discounts discount.Repository,
	products product.Repository,
	customers customer.Repository,
) *Handler {
	return &Handler{
		checkout:  checkoutSvc,
		discounts: discounts,
		products:  products,
		customers: customers,
	}
}

// Routes returns the API router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/checkout", func(r chi.Router) {
		r.Post("/quote", h.Quote)
		r.Post("/commit", h.Commit)
	})

	r.Route("/discounts", func(r chi.Router) {
		r.Post("/", h.CreateDiscount)
		r.Get("/", h.ListDiscounts)
		r.Get("/{id}", h.GetDiscount)
		r.Delete("/{id}", h.ArchiveDiscount)
	})

	r.Get("/products", h.ListProducts)
	r.Get("/products/{id}", h.GetProduct)
	r.Get("/customers/{id}", h.GetCustomer)

	return r
}
