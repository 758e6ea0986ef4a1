package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mbathie/pos-sub001/internal/domain/discount"
)

type scopeReq struct {
	Products   []string `json:"products,omitempty"`
	Categories []string `json:"categories,omitempty"`
}

type adjustmentReq struct {
	Products   []string        `json:"products,omitempty"`
	Categories []string        `json:"categories,omitempty"`
	Type       string          `json:"type"`
	Value      decimal.Decimal `json:"value"`
	MaxAmount  decimal.Decimal `json:"maxAmount,omitempty"`
}

type frequencyReq struct {
	Count  int    `json:"count"`
	Period string `json:"period"`
}

type limitsReq struct {
	UsageLimit  int           `json:"usageLimit,omitempty"`
	PerCustomer int           `json:"perCustomer,omitempty"`
	Frequency   *frequencyReq `json:"frequency,omitempty"`
}

type createDiscountReq struct {
	Name            string          `json:"name"`
	Code            string          `json:"code,omitempty"`
	Description     string          `json:"description,omitempty"`
	Mode            string          `json:"mode"`
	Musts           scopeReq        `json:"musts"`
	Adjustments     []adjustmentReq `json:"adjustments"`
	Limits          limitsReq       `json:"limits"`
	DaysOfWeek      *[7]bool        `json:"daysOfWeek,omitempty"`
	Start           *time.Time      `json:"start,omitempty"`
	Expiry          *time.Time      `json:"expiry,omitempty"`
	RequireCustomer bool            `json:"requireCustomer,omitempty"`
}

type discountResp struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Code            string          `json:"code,omitempty"`
	Description     string          `json:"description,omitempty"`
	Mode            string          `json:"mode"`
	Musts           scopeReq        `json:"musts"`
	Adjustments     []adjustmentReq `json:"adjustments"`
	Limits          limitsReq       `json:"limits"`
	DaysOfWeek      [7]bool         `json:"daysOfWeek"`
	Start           *time.Time      `json:"start,omitempty"`
	Expiry          *time.Time      `json:"expiry,omitempty"`
	RequireCustomer bool            `json:"requireCustomer"`
	ArchivedAt      *time.Time      `json:"archivedAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// CreateDiscount validates a new rule definition and persists it. Malformed
// rules are rejected here with a 422 so they never reach the checkout path.
func (h *Handler) CreateDiscount(w http.ResponseWriter, r *http.Request) {
	var req createDiscountReq
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	d := toDiscount(&req)
	if err := d.Validate(); err != nil {
		respondError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := h.discounts.Create(r.Context(), d); err != nil {
		zctx.From(r.Context()).Error("create discount failed", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	respondJSON(w, r, http.StatusCreated, fromDiscount(d))
}

// ListDiscounts returns all rules; archived ones only with ?archived=true.
func (h *Handler) ListDiscounts(w http.ResponseWriter, r *http.Request) {
	includeArchived := r.URL.Query().Get("archived") == "true"

	list, err := h.discounts.List(r.Context(), includeArchived)
	if err != nil {
		zctx.From(r.Context()).Error("list discounts failed", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	resp := make([]discountResp, len(list))
	for i := range list {
		resp[i] = fromDiscount(&list[i])
	}
	respondJSON(w, r, http.StatusOK, resp)
}

// GetDiscount returns a single rule by ID.
func (h *Handler) GetDiscount(w http.ResponseWriter, r *http.Request) {
	d, err := h.discounts.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, discount.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, err.Error())
			return
		}
		zctx.From(r.Context()).Error("get discount failed", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	respondJSON(w, r, http.StatusOK, fromDiscount(d))
}

// ArchiveDiscount soft-deletes a rule. Archived rules stay referenced by
// past transactions and are never eligible again.
func (h *Handler) ArchiveDiscount(w http.ResponseWriter, r *http.Request) {
	err := h.discounts.Archive(r.Context(), chi.URLParam(r, "id"), time.Now())
	if err != nil {
		if errors.Is(err, discount.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, err.Error())
			return
		}
		zctx.From(r.Context()).Error("archive discount failed", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toDiscount(req *createDiscountReq) *discount.Discount {
	d := &discount.Discount{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Code:        req.Code,
		Description: req.Description,
		Mode:        discount.Mode(req.Mode),
		Musts: discount.Scope{
			Products:   req.Musts.Products,
			Categories: req.Musts.Categories,
		},
		Limits: discount.Limits{
			UsageLimit:  req.Limits.UsageLimit,
			PerCustomer: req.Limits.PerCustomer,
		},
		DaysOfWeek:      discount.EveryDay(),
		StartsAt:        req.Start,
		ExpiresAt:       req.Expiry,
		RequireCustomer: req.RequireCustomer,
	}
	if req.DaysOfWeek != nil {
		d.DaysOfWeek = *req.DaysOfWeek
	}
	if f := req.Limits.Frequency; f != nil {
		d.Limits.Frequency = &discount.Frequency{Count: f.Count, Period: discount.Period(f.Period)}
	}
	for _, a := range req.Adjustments {
		d.Adjustments = append(d.Adjustments, discount.Adjustment{
			Scope:     discount.Scope{Products: a.Products, Categories: a.Categories},
			Type:      discount.AdjustType(a.Type),
			Value:     a.Value,
			MaxAmount: a.MaxAmount,
		})
	}
	return d
}

func fromDiscount(d *discount.Discount) discountResp {
	resp := discountResp{
		ID:          d.ID,
		Name:        d.Name,
		Code:        d.Code,
		Description: d.Description,
		Mode:        string(d.Mode),
		Musts: scopeReq{
			Products:   d.Musts.Products,
			Categories: d.Musts.Categories,
		},
		Limits: limitsReq{
			UsageLimit:  d.Limits.UsageLimit,
			PerCustomer: d.Limits.PerCustomer,
		},
		DaysOfWeek:      d.DaysOfWeek,
		Start:           d.StartsAt,
		Expiry:          d.ExpiresAt,
		RequireCustomer: d.RequireCustomer,
		ArchivedAt:      d.ArchivedAt,
		CreatedAt:       d.CreatedAt,
	}
	if f := d.Limits.Frequency; f != nil {
		resp.Limits.Frequency = &frequencyReq{Count: f.Count, Period: string(f.Period)}
	}
	for _, a := range d.Adjustments {
		resp.Adjustments = append(resp.Adjustments, adjustmentReq{
			Products:   a.Scope.Products,
			Categories: a.Scope.Categories,
			Type:       string(a.Type),
			Value:      a.Value,
			MaxAmount:  a.MaxAmount,
		})
	}
	return resp
}
