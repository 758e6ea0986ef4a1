package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mbathie/pos-sub001/internal/domain/cart"
	"github.com/mbathie/pos-sub001/internal/domain/checkout"
	"github.com/mbathie/pos-sub001/internal/domain/customer"
	"github.com/mbathie/pos-sub001/internal/domain/ledger"
)

// lineItemReq is an incoming cart line. Subtotal is the pre-adjustment line
// amount; the engine derives tax and totals.
type lineItemReq struct {
	ProductID  string          `json:"productId"`
	CategoryID string          `json:"categoryId"`
	Name       string          `json:"name,omitempty"`
	Quantity   int             `json:"quantity"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

type quoteReq struct {
	Items        []lineItemReq   `json:"items"`
	CustomerID   string          `json:"customerId,omitempty"`
	DiscountID   string          `json:"discountId,omitempty"`
	DiscountCode string          `json:"discountCode,omitempty"`
	CreditAmount decimal.Decimal `json:"creditAmount,omitempty"`
	Now          *time.Time      `json:"now,omitempty"`
}

type appliedResp struct {
	DiscountID string          `json:"discountId"`
	Name       string          `json:"name,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
}

type adjustmentSetResp struct {
	Items []appliedResp   `json:"items"`
	Total decimal.Decimal `json:"total"`
}

type creditsResp struct {
	CustomerID string          `json:"customerId,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
}

type adjustmentsResp struct {
	Discounts  adjustmentSetResp `json:"discounts"`
	Surcharges adjustmentSetResp `json:"surcharges"`
	Credits    creditsResp       `json:"credits"`
}

type lineItemResp struct {
	ProductID   string          `json:"productId"`
	CategoryID  string          `json:"categoryId"`
	Name        string          `json:"name,omitempty"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"total"`
	Adjustments struct {
		Discounts  adjustmentSetResp `json:"discounts"`
		Surcharges adjustmentSetResp `json:"surcharges"`
	} `json:"adjustments"`
}

type cartResp struct {
	Items       []lineItemResp  `json:"items"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"total"`
	Adjustments adjustmentsResp `json:"adjustments"`
}

type quoteResp struct {
	Cart          cartResp        `json:"cart"`
	Adjustments   adjustmentsResp `json:"adjustments"`
	DiscountError string          `json:"discountError,omitempty"`
}

// Quote computes adjustments for a cart. Ineligibility comes back as a 200
// with discountError set, so the register can render the message and proceed
// without the discount.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteReq
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.checkout.Quote(r.Context(), checkout.QuoteRequest{
		Cart:         toCart(req.Items),
		CustomerID:   req.CustomerID,
		DiscountID:   req.DiscountID,
		DiscountCode: req.DiscountCode,
		CreditAmount: req.CreditAmount,
		Now:          derefTime(req.Now),
	})
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrEmptyCart):
			respondError(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, customer.ErrNotFound):
			respondError(w, r, http.StatusNotFound, err.Error())
		default:
			zctx.From(r.Context()).Error("quote failed", zap.Error(err))
			respondError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}

	c := toCartResp(&result.Cart)
	respondJSON(w, r, http.StatusOK, quoteResp{
		Cart:          c,
		Adjustments:   c.Adjustments,
		DiscountError: result.DiscountError,
	})
}

type commitReq struct {
	TransactionID string  `json:"transactionId"`
	CustomerID    string  `json:"customerId,omitempty"`
	Cart          cartReq `json:"cart"`
}

// cartReq carries a previously quoted cart back for commit: the applied
// adjustment aggregates are what the recorder needs.
type cartReq struct {
	Items       []lineItemReq `json:"items"`
	Adjustments struct {
		Discounts  adjustmentSetResp `json:"discounts"`
		Surcharges adjustmentSetResp `json:"surcharges"`
		Credits    creditsResp       `json:"credits"`
	} `json:"adjustments"`
}

type commitResp struct {
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
}

// Commit finalizes a quoted cart after the caller confirmed payment. A 409
// means a concurrent checkout exhausted a limit or the credit balance since
// the quote; the caller must re-quote, not retry.
func (h *Handler) Commit(w http.ResponseWriter, r *http.Request) {
	var req commitReq
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	c := toCart(req.Cart.Items)
	c.Adjustments = cart.Adjustments{
		Discounts:  toAdjustmentSet(req.Cart.Adjustments.Discounts),
		Surcharges: toAdjustmentSet(req.Cart.Adjustments.Surcharges),
		Credits: cart.Credits{
			CustomerID: req.Cart.Adjustments.Credits.CustomerID,
			Amount:     req.Cart.Adjustments.Credits.Amount,
		},
	}

	err := h.checkout.Commit(r.Context(), checkout.CommitRequest{
		TransactionID: req.TransactionID,
		Cart:          c,
		CustomerID:    req.CustomerID,
	})
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrMissingTransactionID):
			respondError(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, ledger.ErrConflict):
			respondError(w, r, http.StatusConflict, ledger.ErrConflict.Error())
		case errors.Is(err, ledger.ErrInsufficientCredit):
			respondError(w, r, http.StatusConflict, ledger.ErrInsufficientCredit.Error())
		default:
			zctx.From(r.Context()).Error("commit failed", zap.Error(err))
			respondError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}

	respondJSON(w, r, http.StatusOK, commitResp{
		TransactionID: req.TransactionID,
		Status:        "committed",
	})
}

func toCart(items []lineItemReq) cart.Cart {
	c := cart.Cart{Items: make([]cart.LineItem, len(items))}
	for i, it := range items {
		c.Items[i] = cart.LineItem{
			ProductID:  it.ProductID,
			CategoryID: it.CategoryID,
			Name:       it.Name,
			Quantity:   it.Quantity,
			Subtotal:   it.Subtotal,
		}
	}
	return c
}

func toAdjustmentSet(s adjustmentSetResp) cart.AdjustmentSet {
	out := cart.AdjustmentSet{Total: s.Total}
	for _, a := range s.Items {
		out.Items = append(out.Items, cart.Applied{DiscountID: a.DiscountID, Name: a.Name, Amount: a.Amount})
	}
	return out
}

func fromAdjustmentSet(s cart.AdjustmentSet) adjustmentSetResp {
	out := adjustmentSetResp{Items: []appliedResp{}, Total: s.Total}
	for _, a := range s.Items {
		out.Items = append(out.Items, appliedResp{DiscountID: a.DiscountID, Name: a.Name, Amount: a.Amount})
	}
	return out
}

func toCartResp(c *cart.Cart) cartResp {
	resp := cartResp{
		Items:    make([]lineItemResp, len(c.Items)),
		Subtotal: c.Subtotal,
		Tax:      c.Tax,
		Total:    c.Total,
		Adjustments: adjustmentsResp{
			Discounts:  fromAdjustmentSet(c.Adjustments.Discounts),
			Surcharges: fromAdjustmentSet(c.Adjustments.Surcharges),
			Credits: creditsResp{
				CustomerID: c.Adjustments.Credits.CustomerID,
				Amount:     c.Adjustments.Credits.Amount,
			},
		},
	}
	for i, li := range c.Items {
		item := lineItemResp{
			ProductID:  li.ProductID,
			CategoryID: li.CategoryID,
			Name:       li.Name,
			Quantity:   li.Quantity,
			Subtotal:   li.Subtotal,
			Tax:        li.Tax,
			Total:      li.Total,
		}
		item.Adjustments.Discounts = fromAdjustmentSet(li.Adjustments.Discounts)
		item.Adjustments.Surcharges = fromAdjustmentSet(li.Adjustments.Surcharges)
		resp.Items[i] = item
	}
	return resp
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
