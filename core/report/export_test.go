package report

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/bursary/core"
)

func TestExportFinancial(t *testing.T) {
	sum := Summary{
		Period: Period{StartDate: core.NewDate(2024, 1, 1), EndDate: core.NewDate(2024, 1, 31)},
		ByFeeType: []FeeTypeTotals{
			{FeeType: "Exam", TotalFees: 1, Collected: decimal.NewFromInt(400), Pending: decimal.NewFromInt(800), CompletedPayments: 1},
			{FeeType: "Tuition", TotalFees: 2, Collected: decimal.NewFromInt(1250), LateFines: decimal.NewFromInt(250), CompletedPayments: 1},
		},
		TotalCollected: decimal.NewFromInt(1650),
		TotalPending:   decimal.NewFromInt(800),
		TotalLateFines: decimal.NewFromInt(250),
		Monthly:        []MonthTotals{{Month: "2024-01", Amount: decimal.NewFromInt(1650), PaymentCount: 2}},
	}

	f, err := ExportFinancial(sum)
	require.NoError(t, err)

	rows, err := f.GetRows(sheetByFeeType)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Fee type", rows[0][0])
	assert.Equal(t, "Exam", rows[1][0])
	assert.Equal(t, "Tuition", rows[2][0])
	assert.Equal(t, []string{"Total", "3", "1650", "800", "250", "2"}, rows[3])

	rows, err = f.GetRows(sheetMonthly)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"2024-01", "1650", "2"}, rows[1])

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	assert.NotZero(t, buf.Len())
}

func TestExportFinancial_noMonthly(t *testing.T) {
	f, err := ExportFinancial(Summary{ByFeeType: []FeeTypeTotals{}})
	require.NoError(t, err)

	var names []string
	for _, name := range f.GetSheetMap() {
		names = append(names, name)
	}
	assert.Equal(t, []string{sheetByFeeType}, names)

	rows, err := f.GetRows(sheetByFeeType)
	require.NoError(t, err)
	assert.Len(t, rows, 2, "header and total rows only")
}
