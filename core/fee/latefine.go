package fee

import (
	"github.com/shopspring/decimal"

	"github.com/trezcool/bursary/core"
)

// LateFine returns the fine accrued on a fee due on `due` as of `asOf`:
// perDay for every calendar day past due, capped at maxFine.
// A maxFine of 0 means the fine is uncapped.
// Nothing accrues on or before the due date.
func LateFine(due, asOf core.Date, perDay, maxFine decimal.Decimal) decimal.Decimal {
	if !asOf.After(due) || !perDay.IsPositive() {
		return decimal.Zero
	}
	daysLate := decimal.NewFromInt(int64(asOf.DaysSince(due)))
	fine := daysLate.Mul(perDay)
	if maxFine.IsPositive() && fine.GreaterThan(maxFine) {
		return maxFine
	}
	return fine
}
