package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mbathie/pos-sub001/internal/domain/product"
)

type productResp struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	CategoryID string          `json:"categoryId"`
}

// ListProducts returns the full catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	list, err := h.products.List(r.Context())
	if err != nil {
		zctx.From(r.Context()).Error("list products failed", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	resp := make([]productResp, len(list))
	for i, p := range list {
		resp[i] = fromProduct(p)
	}
	respondJSON(w, r, http.StatusOK, resp)
}

// GetProduct returns one catalog item by ID.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, err.Error())
			return
		}
		zctx.From(r.Context()).Error("get product failed", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, r, http.StatusOK, fromProduct(*p))
}

func fromProduct(p product.Product) productResp {
	return productResp{ID: p.ID, Name: p.Name, Price: p.Price, CategoryID: p.CategoryID}
}
