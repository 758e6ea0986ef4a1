// Package discount implements the adjustment rule engine: rule definitions,
// scope matching, and eligibility evaluation against the usage ledger.
package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Mode determines the sign of a rule's adjustments.
type Mode string

const (
	// ModeDiscount subtracts from the cart.
	ModeDiscount Mode = "discount"
	// ModeSurcharge adds to the cart.
	ModeSurcharge Mode = "surcharge"
)

// AdjustType selects how an adjustment value is interpreted.
type AdjustType string

const (
	// AdjustPercent applies Value as a percentage of the target subtotal.
	AdjustPercent AdjustType = "percent"
	// AdjustAmount applies Value as a fixed monetary amount.
	AdjustAmount AdjustType = "amount"
)

// Period names a recurring calendar bucket for frequency limits.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

var (
	// ErrNotFound is returned when a discount id or code does not resolve.
	ErrNotFound = errors.New("discount not found")
	// ErrInvalidRule is returned when a rule definition fails validation.
	// Malformed rules are rejected at creation time and never reach checkout.
	ErrInvalidRule = errors.New("invalid discount rule")
)

// Scope names the products and categories a clause applies to. An empty
// scope matches every line item.
type Scope struct {
	Products   []string
	Categories []string
}

// IsEmpty reports whether the scope constrains nothing.
func (s Scope) IsEmpty() bool {
	return len(s.Products) == 0 && len(s.Categories) == 0
}

// Adjustment is one entry in a rule's ordered adjustment list.
type Adjustment struct {
	Scope Scope
	Type  AdjustType
	Value decimal.Decimal
	// MaxAmount caps the computed amount per line item when positive;
	// zero means no cap.
	MaxAmount decimal.Decimal
}

// Frequency caps usage within a recurring calendar window. Windows are
// calendar-aligned buckets (the day/week/month/year containing "now"), not
// sliding intervals, so limits reset at bucket boundaries.
type Frequency struct {
	Count  int
	Period Period
}

// Limits bounds how often a rule may be used. Zero values mean unlimited.
type Limits struct {
	// UsageLimit caps total committed uses across all customers.
	UsageLimit int
	// PerCustomer caps committed uses per customer.
	PerCustomer int
	// Frequency caps committed uses within the current calendar window.
	Frequency *Frequency
}

// Discount is a discount or surcharge rule definition.
type Discount struct {
	ID          string
	Name        string
	Code        string
	Description string
	Mode        Mode

	// Musts gates eligibility: when non-empty the cart must contain at
	// least one matching line item.
	Musts Scope
	// Adjustments are applied in list order; each entry scopes its own
	// target items.
	Adjustments []Adjustment
	Limits      Limits

	// DaysOfWeek enables the rule per weekday, Monday first.
	DaysOfWeek [7]bool

	StartsAt        *time.Time
	ExpiresAt       *time.Time
	RequireCustomer bool
	ArchivedAt      *time.Time
	CreatedAt       time.Time
}

// Archived reports whether the rule has been soft-deleted.
func (d *Discount) Archived() bool {
	return d.ArchivedAt != nil
}

// EveryDay is the default day-of-week mask with all days enabled.
func EveryDay() [7]bool {
	return [7]bool{true, true, true, true, true, true, true}
}

// Validate checks the rule definition for configuration errors. It is called
// at creation/edit time; the checkout path assumes rules are well formed.
func (d *Discount) Validate() error {
	if d.Name == "" {
		return errors.Wrap(ErrInvalidRule, "name is required")
	}
	if d.Mode != ModeDiscount && d.Mode != ModeSurcharge {
		return errors.Wrapf(ErrInvalidRule, "unknown mode %q", d.Mode)
	}
	if len(d.Adjustments) == 0 {
		return errors.Wrap(ErrInvalidRule, "at least one adjustment is required")
	}
	for i, a := range d.Adjustments {
		switch a.Type {
		case AdjustPercent:
			if !a.Value.IsPositive() || a.Value.GreaterThan(decimal.NewFromInt(100)) {
				return errors.Wrapf(ErrInvalidRule, "adjustment %d: percent must be in (0, 100]", i)
			}
		case AdjustAmount:
			if !a.Value.IsPositive() {
				return errors.Wrapf(ErrInvalidRule, "adjustment %d: amount must be positive", i)
			}
		default:
			return errors.Wrapf(ErrInvalidRule, "adjustment %d: unknown type %q", i, a.Type)
		}
		if a.MaxAmount.IsNegative() {
			return errors.Wrapf(ErrInvalidRule, "adjustment %d: max amount must not be negative", i)
		}
	}
	if d.StartsAt != nil && d.ExpiresAt != nil && d.StartsAt.After(*d.ExpiresAt) {
		return errors.Wrap(ErrInvalidRule, "start must not be after expiry")
	}
	if f := d.Limits.Frequency; f != nil {
		if f.Count <= 0 {
			return errors.Wrap(ErrInvalidRule, "frequency count must be positive")
		}
		switch f.Period {
		case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear:
		default:
			return errors.Wrapf(ErrInvalidRule, "unknown frequency period %q", f.Period)
		}
	}
	if d.Limits.UsageLimit < 0 || d.Limits.PerCustomer < 0 {
		return errors.Wrap(ErrInvalidRule, "usage limits must not be negative")
	}

	enabled := false
	for _, day := range d.DaysOfWeek {
		if day {
			enabled = true
			break
		}
	}
	if !enabled {
		return errors.Wrap(ErrInvalidRule, "at least one day of week must be enabled")
	}
	return nil
}

// Repository provides lookup and mutation of discount rules.
type Repository interface {
	Create(ctx context.Context, d *Discount) error
	GetByID(ctx context.Context, id string) (*Discount, error)
	// FindByCode resolves a public-facing code, case-insensitively.
	FindByCode(ctx context.Context, code string) (*Discount, error)
	List(ctx context.Context, includeArchived bool) ([]Discount, error)
	Archive(ctx context.Context, id string, at time.Time) error
}
