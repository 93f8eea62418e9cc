package fee

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/trezcool/bursary/core"
)

func TestLateFine(t *testing.T) {
	due := core.NewDate(2024, 1, 10)
	d := decimal.NewFromInt

	tests := []struct {
		name    string
		asOf    core.Date
		perDay  decimal.Decimal
		maxFine decimal.Decimal
		want    decimal.Decimal
	}{
		{name: "on due date", asOf: due, perDay: d(50), maxFine: d(500), want: d(0)},
		{name: "not yet due", asOf: due.AddDays(-1), perDay: d(50), maxFine: d(500), want: d(0)},
		{name: "one day late", asOf: due.AddDays(1), perDay: d(50), maxFine: d(500), want: d(50)},
		{name: "five days late", asOf: core.NewDate(2024, 1, 15), perDay: d(50), maxFine: d(500), want: d(250)},
		{name: "capped", asOf: due.AddDays(20), perDay: d(50), maxFine: d(500), want: d(500)},
		{name: "exactly at cap", asOf: due.AddDays(10), perDay: d(50), maxFine: d(500), want: d(500)},
		{name: "31 days late, capped", asOf: core.NewDate(2024, 2, 10), perDay: d(50), maxFine: d(500), want: d(500)},
		{name: "zero cap is uncapped", asOf: core.NewDate(2024, 2, 9), perDay: d(50), maxFine: d(0), want: d(1500)},
		{name: "no per day rate", asOf: due.AddDays(30), perDay: d(0), maxFine: d(500), want: d(0)},
		{
			name: "fractional rate", asOf: due.AddDays(3),
			perDay: decimal.RequireFromString("12.75"), maxFine: d(0), want: decimal.RequireFromString("38.25"),
		},
		{name: "across a leap day", asOf: core.NewDate(2024, 3, 1), perDay: d(1), maxFine: d(0), want: d(51)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LateFine(due, tt.asOf, tt.perDay, tt.maxFine); !got.Equal(tt.want) {
				t.Errorf("LateFine() = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestFee_LateFineOn(t *testing.T) {
	f := Fee{
		Amount:         decimal.NewFromInt(1000),
		DueDate:        core.NewDate(2024, 1, 10),
		LateFinePerDay: decimal.NewFromInt(50),
		MaxLateFine:    decimal.NewFromInt(500),
	}
	if got := f.LateFineOn(core.NewDate(2024, 1, 15)); !got.Equal(decimal.NewFromInt(250)) {
		t.Errorf("LateFineOn() = %v; want 250", got)
	}
}
