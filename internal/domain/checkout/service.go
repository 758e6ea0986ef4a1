package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/mbathie/pos-sub001/internal/domain/cart"
	"github.com/mbathie/pos-sub001/internal/domain/customer"
	"github.com/mbathie/pos-sub001/internal/domain/discount"
	"github.com/mbathie/pos-sub001/internal/domain/ledger"
)

// Sentinel errors for request validation.
var (
	ErrEmptyCart            = errors.New("cart items required")
	ErrMissingTransactionID = errors.New("transaction id required")
)

// Service orchestrates the adjustment pipeline: scope matching, eligibility,
// adjustment calculation, credit application, and ledger commit.
type Service struct {
	discounts discount.Repository
	customers customer.Repository
	evaluator *discount.Evaluator
	recorder  ledger.Recorder
	taxRate   decimal.Decimal
	now       func() time.Time
}

// NewService creates a checkout Service. taxRate is a fraction (0.10 = 10%).
func NewService(
	discounts discount.Repository,
	customers customer.Repository,
	view ledger.View,
	recorder ledger.Recorder,
	taxRate decimal.Decimal,
) *Service {
	return &Service{
		discounts: discounts,
		customers: customers,
		evaluator: discount.NewEvaluator(view),
		recorder:  recorder,
		taxRate:   taxRate,
		now:       time.Now,
	}
}

// QuoteRequest is the input for computing adjustments on a cart.
type QuoteRequest struct {
	Cart       cart.Cart
	CustomerID string
	// DiscountID and DiscountCode are alternatives; ID wins when both set.
	DiscountID   string
	DiscountCode string
	// CreditAmount is the store credit the customer asked to apply.
	CreditAmount decimal.Decimal
	// Now overrides the evaluation time; zero means wall clock.
	Now time.Time
}

// QuoteResult is the adjusted cart plus a non-fatal, human-readable reason
// when the requested discount could not be applied.
type QuoteResult struct {
	Cart          cart.Cart
	DiscountError string
}

// Quote computes adjustments for the cart. Ineligibility degrades
// gracefully: the cart comes back valid without the discount and
// DiscountError carries the reason. Only lookup and ledger failures are
// returned as errors.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (*QuoteResult, error) {
	if len(req.Cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	now := req.Now
	if now.IsZero() {
		now = s.now()
	}

	var cust *customer.Customer
	if req.CustomerID != "" {
		var err error
		cust, err = s.customers.GetByID(ctx, req.CustomerID)
		if err != nil {
			return nil, errors.Wrapf(err, "get customer %s", req.CustomerID)
		}
	}

	c := req.Cart
	res := &QuoteResult{}

	d, err := s.resolveDiscount(ctx, req)
	switch {
	case errors.Is(err, discount.ErrNotFound):
		res.DiscountError = "invalid discount code"
	case err != nil:
		return nil, err
	case d != nil:
		ec := discount.EligibilityContext{
			Items:      matcherItems(&c),
			CustomerID: req.CustomerID,
			Now:        now,
		}
		el, err := s.evaluator.Evaluate(ctx, d, ec)
		if err != nil {
			return nil, errors.Wrap(err, "evaluate eligibility")
		}
		if el.Eligible {
			ApplyAdjustments(&c, d, s.taxRate)
		} else {
			res.DiscountError = el.Reason
		}
	}

	if cust != nil && req.CreditAmount.IsPositive() {
		ApplyCredit(&c, cust, req.CreditAmount, s.taxRate)
	} else {
		c.Recalculate(s.taxRate)
	}

	res.Cart = c
	return res, nil
}

// resolveDiscount loads the requested rule, or nil when none was requested.
func (s *Service) resolveDiscount(ctx context.Context, req QuoteRequest) (*discount.Discount, error) {
	switch {
	case req.DiscountID != "":
		return s.discounts.GetByID(ctx, req.DiscountID)
	case req.DiscountCode != "":
		return s.discounts.FindByCode(ctx, req.DiscountCode)
	default:
		return nil, nil
	}
}

// CommitRequest finalizes a quoted cart after payment success.
type CommitRequest struct {
	TransactionID string
	Cart          cart.Cart
	CustomerID    string
}

// Commit records usage for every adjustment on the cart and debits applied
// store credit, atomically and idempotently per transaction ID. A
// ledger.ErrConflict from the recorder means a concurrent checkout won the
// race; the caller must recompute the quote rather than retry blindly.
func (s *Service) Commit(ctx context.Context, req CommitRequest) error {
	if req.TransactionID == "" {
		return ErrMissingTransactionID
	}

	rec := ledger.Commit{
		TransactionID: req.TransactionID,
		CustomerID:    req.CustomerID,
		DiscountIDs:   appliedDiscountIDs(&req.Cart),
		Credit:        req.Cart.Adjustments.Credits.Amount,
		UsedAt:        s.now(),
	}
	if err := s.recorder.Record(ctx, rec); err != nil {
		return errors.Wrapf(err, "record transaction %s", req.TransactionID)
	}
	return nil
}

// appliedDiscountIDs collects the distinct rule IDs referenced by the cart's
// discount and surcharge aggregates, in application order.
func appliedDiscountIDs(c *cart.Cart) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, set := range []cart.AdjustmentSet{c.Adjustments.Discounts, c.Adjustments.Surcharges} {
		for _, a := range set.Items {
			if _, ok := seen[a.DiscountID]; ok {
				continue
			}
			seen[a.DiscountID] = struct{}{}
			ids = append(ids, a.DiscountID)
		}
	}
	return ids
}
