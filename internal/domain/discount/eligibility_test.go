package discount

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLedgerView returns fixed usage counts.
type mockLedgerView struct {
	total    int
	customer int
	windowed int
	err      error

	lastSince time.Time
}

func (m *mockLedgerView) TotalUses(_ context.Context, _ string) (int, error) {
	return m.total, m.err
}

func (m *mockLedgerView) CustomerUses(_ context.Context, _, _ string) (int, error) {
	return m.customer, m.err
}

func (m *mockLedgerView) UsesSince(_ context.Context, _ string, since time.Time) (int, error) {
	m.lastSince = since
	return m.windowed, m.err
}

// 2025-06-18 is a Wednesday.
var wednesdayNoon = time.Date(2025, time.June, 18, 12, 0, 0, 0, time.UTC)

func activeRule() *Discount {
	return &Discount{
		ID:         "d1",
		Name:       "Test rule",
		Mode:       ModeDiscount,
		DaysOfWeek: EveryDay(),
	}
}

func TestEvaluate_Eligible(t *testing.T) {
	ev := NewEvaluator(&mockLedgerView{})

	res, err := ev.Evaluate(context.Background(), activeRule(), EligibilityContext{
		Items: []Item{{ProductID: "p1"}},
		Now:   wednesdayNoon,
	})

	require.NoError(t, err)
	assert.True(t, res.Eligible)
	assert.Empty(t, res.Reason)
}

func TestEvaluate_Reasons(t *testing.T) {
	past := wednesdayNoon.Add(-24 * time.Hour)
	future := wednesdayNoon.Add(24 * time.Hour)
	weekendOnly := [7]bool{false, false, false, false, false, true, true}

	tests := []struct {
		name   string
		modify func(d *Discount)
		ec     EligibilityContext
		view   *mockLedgerView
		want   string
	}{
		{
			name:   "archived",
			modify: func(d *Discount) { d.ArchivedAt = &past },
			want:   ReasonArchived,
		},
		{
			name:   "requires customer",
			modify: func(d *Discount) { d.RequireCustomer = true },
			want:   ReasonRequiresCustomer,
		},
		{
			name:   "not yet active",
			modify: func(d *Discount) { d.StartsAt = &future },
			want:   ReasonNotYetActive,
		},
		{
			name:   "expired",
			modify: func(d *Discount) { d.ExpiresAt = &past },
			want:   ReasonExpired,
		},
		{
			name:   "wrong day of week",
			modify: func(d *Discount) { d.DaysOfWeek = weekendOnly },
			want:   ReasonNotToday,
		},
		{
			name: "required items missing",
			modify: func(d *Discount) {
				d.Musts = Scope{Categories: []string{"entries"}}
			},
			want: ReasonMissingItems,
		},
		{
			name: "per-customer limit exhausted",
			modify: func(d *Discount) {
				d.Limits.PerCustomer = 1
			},
			ec:   EligibilityContext{CustomerID: "c1"},
			view: &mockLedgerView{customer: 1},
			want: ReasonAlreadyUsed,
		},
		{
			name: "total usage limit exhausted",
			modify: func(d *Discount) {
				d.Limits.UsageLimit = 100
			},
			view: &mockLedgerView{total: 100},
			want: ReasonUsageLimit,
		},
		{
			name: "frequency window exhausted",
			modify: func(d *Discount) {
				d.Limits.Frequency = &Frequency{Count: 1, Period: PeriodWeek}
			},
			view: &mockLedgerView{windowed: 1},
			want: "used maximum 1 time per week",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := activeRule()
			tt.modify(d)

			view := tt.view
			if view == nil {
				view = &mockLedgerView{}
			}
			ec := tt.ec
			ec.Items = []Item{{ProductID: "p1", CategoryID: "retail"}}
			ec.Now = wednesdayNoon

			res, err := NewEvaluator(view).Evaluate(context.Background(), d, ec)
			require.NoError(t, err)
			assert.False(t, res.Eligible)
			assert.Equal(t, tt.want, res.Reason)
		})
	}
}

// Archived wins over every other failure so the reason is stable.
func TestEvaluate_ChecksShortCircuitInOrder(t *testing.T) {
	past := wednesdayNoon.Add(-time.Hour)
	d := activeRule()
	d.ArchivedAt = &past
	d.RequireCustomer = true
	d.ExpiresAt = &past

	res, err := NewEvaluator(&mockLedgerView{}).Evaluate(context.Background(), d, EligibilityContext{
		Items: []Item{{ProductID: "p1"}},
		Now:   wednesdayNoon,
	})

	require.NoError(t, err)
	assert.Equal(t, ReasonArchived, res.Reason)
}

func TestEvaluate_PerCustomerLimitIgnoredWithoutCustomer(t *testing.T) {
	d := activeRule()
	d.Limits.PerCustomer = 1

	res, err := NewEvaluator(&mockLedgerView{customer: 5}).Evaluate(context.Background(), d, EligibilityContext{
		Items: []Item{{ProductID: "p1"}},
		Now:   wednesdayNoon,
	})

	require.NoError(t, err)
	assert.True(t, res.Eligible)
}

func TestEvaluate_FrequencyUsesCalendarWindow(t *testing.T) {
	d := activeRule()
	d.Limits.Frequency = &Frequency{Count: 2, Period: PeriodWeek}
	view := &mockLedgerView{windowed: 1}

	res, err := NewEvaluator(view).Evaluate(context.Background(), d, EligibilityContext{
		Items: []Item{{ProductID: "p1"}},
		Now:   wednesdayNoon,
	})

	require.NoError(t, err)
	assert.True(t, res.Eligible)
	// The count starts at the Monday of the week containing now.
	assert.Equal(t, time.Date(2025, time.June, 16, 0, 0, 0, 0, time.UTC), view.lastSince)
}

func TestEvaluate_LedgerError(t *testing.T) {
	d := activeRule()
	d.Limits.UsageLimit = 10

	_, err := NewEvaluator(&mockLedgerView{err: errors.New("db down")}).Evaluate(
		context.Background(), d, EligibilityContext{
			Items: []Item{{ProductID: "p1"}},
			Now:   wednesdayNoon,
		})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "count total uses")
}
