package discount

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"

	"github.com/mbathie/pos-sub001/internal/domain/ledger"
)

// Ineligibility reasons, surfaced verbatim to the checkout UI. Checks run in
// a fixed order and short-circuit, so the reason a caller sees is
// deterministic.
const (
	ReasonArchived         = "archived"
	ReasonRequiresCustomer = "requires customer"
	ReasonNotYetActive     = "not yet active"
	ReasonExpired          = "expired"
	ReasonNotToday         = "not available today"
	ReasonMissingItems     = "required items not in cart"
	ReasonAlreadyUsed      = "already used"
	ReasonUsageLimit       = "maximum usage limit reached"
)

// EligibilityContext carries everything an eligibility decision depends on.
// CustomerID is empty when no customer is attached to the sale.
type EligibilityContext struct {
	Items      []Item
	CustomerID string
	Now        time.Time
}

// Result is an eligibility decision. Reason is set only when ineligible.
type Result struct {
	Eligible bool
	Reason   string
}

func ineligible(reason string) Result {
	return Result{Reason: reason}
}

// Evaluator decides whether a rule is currently usable. It only reads the
// ledger view; this is the advisory pre-check, the recorder repeats the
// limit checks authoritatively at commit time.
type Evaluator struct {
	ledger ledger.View
}

// NewEvaluator returns an Evaluator reading committed usage from view.
func NewEvaluator(view ledger.View) *Evaluator {
	return &Evaluator{ledger: view}
}

// Evaluate runs the eligibility checks in order, short-circuiting on the
// first failure. A returned error means the ledger could not be read, not
// that the rule is ineligible.
func (e *Evaluator) Evaluate(ctx context.Context, d *Discount, ec EligibilityContext) (Result, error) {
	if d.Archived() {
		return ineligible(ReasonArchived), nil
	}
	if d.RequireCustomer && ec.CustomerID == "" {
		return ineligible(ReasonRequiresCustomer), nil
	}
	if d.StartsAt != nil && ec.Now.Before(*d.StartsAt) {
		return ineligible(ReasonNotYetActive), nil
	}
	if d.ExpiresAt != nil && ec.Now.After(*d.ExpiresAt) {
		return ineligible(ReasonExpired), nil
	}
	if !d.DaysOfWeek[weekdayIndex(ec.Now)] {
		return ineligible(ReasonNotToday), nil
	}
	if !d.Musts.IsEmpty() && len(MatchScope(d.Musts, ec.Items)) == 0 {
		return ineligible(ReasonMissingItems), nil
	}

	if d.Limits.PerCustomer > 0 && ec.CustomerID != "" {
		used, err := e.ledger.CustomerUses(ctx, d.ID, ec.CustomerID)
		if err != nil {
			return Result{}, errors.Wrap(err, "count customer uses")
		}
		if used >= d.Limits.PerCustomer {
			return ineligible(ReasonAlreadyUsed), nil
		}
	}

	if d.Limits.UsageLimit > 0 {
		used, err := e.ledger.TotalUses(ctx, d.ID)
		if err != nil {
			return Result{}, errors.Wrap(err, "count total uses")
		}
		if used >= d.Limits.UsageLimit {
			return ineligible(ReasonUsageLimit), nil
		}
	}

	if f := d.Limits.Frequency; f != nil {
		used, err := e.ledger.UsesSince(ctx, d.ID, WindowStart(f.Period, ec.Now))
		if err != nil {
			return Result{}, errors.Wrap(err, "count windowed uses")
		}
		if used >= f.Count {
			return ineligible(FrequencyReason(f)), nil
		}
	}

	return Result{Eligible: true}, nil
}

// FrequencyReason formats the ineligibility message for an exhausted
// frequency window, e.g. "used maximum 1 time per day".
func FrequencyReason(f *Frequency) string {
	times := "times"
	if f.Count == 1 {
		times = "time"
	}
	return fmt.Sprintf("used maximum %d %s per %s", f.Count, times, f.Period)
}
