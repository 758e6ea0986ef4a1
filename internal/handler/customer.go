package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mbathie/pos-sub001/internal/domain/customer"
)

type debitResp struct {
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transactionId"`
	Timestamp     time.Time       `json:"timestamp"`
}

type customerResp struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Credits struct {
		Balance decimal.Decimal `json:"balance"`
		Debits  []debitResp     `json:"debits"`
	} `json:"credits"`
}

// GetCustomer returns a customer with credit balance and debit history.
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := h.customers.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, err.Error())
			return
		}
		zctx.From(r.Context()).Error("get customer failed", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	resp := customerResp{ID: c.ID, Name: c.Name, Email: c.Email}
	resp.Credits.Balance = c.Credits.Balance
	resp.Credits.Debits = make([]debitResp, len(c.Credits.Debits))
	for i, d := range c.Credits.Debits {
		resp.Credits.Debits[i] = debitResp{
			Amount:        d.Amount,
			TransactionID: d.TransactionID,
			Timestamp:     d.CreatedAt,
		}
	}
	respondJSON(w, r, http.StatusOK, resp)
}
