package report

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	ExportContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	sheetByFeeType = "By fee type"
	sheetMonthly   = "Monthly"
)

// ExportFinancial renders a financial summary as a spreadsheet.
// The monthly sheet is only present when the summary has a monthly breakdown.
func ExportFinancial(sum Summary) (*excelize.File, error) {
	sum = sum.Rounded()
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", sheetByFeeType)

	rows := [][]interface{}{
		{"Fee type", "Fees", "Collected", "Pending", "Late fines", "Completed payments"},
	}
	var totalFees, totalPayments int
	for _, t := range sum.ByFeeType {
		rows = append(rows, []interface{}{
			t.FeeType, t.TotalFees, money(t.Collected), money(t.Pending),
			money(t.LateFines), t.CompletedPayments,
		})
		totalFees += t.TotalFees
		totalPayments += t.CompletedPayments
	}
	rows = append(rows, []interface{}{
		"Total", totalFees, money(sum.TotalCollected), money(sum.TotalPending),
		money(sum.TotalLateFines), totalPayments,
	})
	if err := writeRows(f, sheetByFeeType, rows); err != nil {
		return nil, err
	}

	if sum.Monthly != nil {
		f.NewSheet(sheetMonthly)
		rows = [][]interface{}{{"Month", "Amount", "Payments"}}
		for _, m := range sum.Monthly {
			rows = append(rows, []interface{}{m.Month, money(m.Amount), m.PaymentCount})
		}
		if err := writeRows(f, sheetMonthly, rows); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func money(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return errors.Wrap(err, "computing cell name")
		}
		if err = f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.Wrapf(err, "writing %s sheet", sheet)
		}
	}
	return nil
}
