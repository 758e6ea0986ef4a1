package discount

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRule() *Discount {
	return &Discount{
		ID:   "d1",
		Name: "Ten percent",
		Mode: ModeDiscount,
		Adjustments: []Adjustment{{
			Type:  AdjustPercent,
			Value: decimal.NewFromInt(10),
		}},
		DaysOfWeek: EveryDay(),
	}
}

func TestValidate_OK(t *testing.T) {
	require.NoError(t, validRule().Validate())
}

func TestValidate_Errors(t *testing.T) {
	start := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	expiry := start.Add(-time.Hour)

	tests := []struct {
		name    string
		modify  func(d *Discount)
		wantMsg string
	}{
		{
			name:    "missing name",
			modify:  func(d *Discount) { d.Name = "" },
			wantMsg: "name is required",
		},
		{
			name:    "unknown mode",
			modify:  func(d *Discount) { d.Mode = "rebate" },
			wantMsg: "unknown mode",
		},
		{
			name:    "no adjustments",
			modify:  func(d *Discount) { d.Adjustments = nil },
			wantMsg: "at least one adjustment",
		},
		{
			name: "percent over 100",
			modify: func(d *Discount) {
				d.Adjustments[0].Value = decimal.NewFromInt(101)
			},
			wantMsg: "percent must be in (0, 100]",
		},
		{
			name: "zero percent",
			modify: func(d *Discount) {
				d.Adjustments[0].Value = decimal.Zero
			},
			wantMsg: "percent must be in (0, 100]",
		},
		{
			name: "negative fixed amount",
			modify: func(d *Discount) {
				d.Adjustments[0].Type = AdjustAmount
				d.Adjustments[0].Value = decimal.NewFromInt(-5)
			},
			wantMsg: "amount must be positive",
		},
		{
			name: "unknown adjustment type",
			modify: func(d *Discount) {
				d.Adjustments[0].Type = "ratio"
			},
			wantMsg: "unknown type",
		},
		{
			name: "negative max amount",
			modify: func(d *Discount) {
				d.Adjustments[0].MaxAmount = decimal.NewFromInt(-1)
			},
			wantMsg: "max amount must not be negative",
		},
		{
			name: "start after expiry",
			modify: func(d *Discount) {
				d.StartsAt = &start
				d.ExpiresAt = &expiry
			},
			wantMsg: "start must not be after expiry",
		},
		{
			name: "frequency without count",
			modify: func(d *Discount) {
				d.Limits.Frequency = &Frequency{Period: PeriodWeek}
			},
			wantMsg: "frequency count must be positive",
		},
		{
			name: "frequency with bad period",
			modify: func(d *Discount) {
				d.Limits.Frequency = &Frequency{Count: 1, Period: "fortnight"}
			},
			wantMsg: "unknown frequency period",
		},
		{
			name:    "negative usage limit",
			modify:  func(d *Discount) { d.Limits.UsageLimit = -1 },
			wantMsg: "usage limits must not be negative",
		},
		{
			name:    "all days disabled",
			modify:  func(d *Discount) { d.DaysOfWeek = [7]bool{} },
			wantMsg: "at least one day of week",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validRule()
			tt.modify(d)

			err := d.Validate()
			require.ErrorIs(t, err, ErrInvalidRule)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}
