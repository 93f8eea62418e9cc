package report

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/bursary/core"
	"github.com/trezcool/bursary/core/fee"
	"github.com/trezcool/bursary/core/payment"
)

// FilterAll is the filter value meaning "no filter".
const FilterAll = "all"

// cleanFilter trims s and turns blank or "all" values into null.
func cleanFilter(s null.String) null.String {
	if !s.Valid {
		return s
	}
	v := core.CleanString(s.String)
	if v == "" || strings.EqualFold(v, FilterAll) {
		return null.String{}
	}
	return null.StringFrom(v)
}

// PendingFilter narrows down the pending students report.
type PendingFilter struct {
	Department null.String `json:"department"`
	FeeType    null.String `json:"fee_type"`
}

func (pf *PendingFilter) Clean() {
	pf.Department = cleanFilter(pf.Department)
	pf.FeeType = cleanFilter(pf.FeeType)
}

// PendingRow is a (student, fee) pair of the same session, in scope, with no completed payment.
type PendingRow struct {
	StudentID      int64           `db:"student_id"`
	RollNo         string          `db:"roll_no"`
	Name           string          `db:"name"`
	Department     string          `db:"department"`
	Semester       int             `db:"semester"`
	FeeID          int64           `db:"fee_id"`
	FeeType        string          `db:"fee_type"`
	FeeName        string          `db:"fee_name"`
	Amount         decimal.Decimal `db:"amount"`
	DueDate        core.Date       `db:"due_date"`
	LateFinePerDay decimal.Decimal `db:"late_fine_per_day"`
	MaxLateFine    decimal.Decimal `db:"max_late_fine"`
}

type PendingStudent struct {
	StudentID   int64           `json:"student_id"`
	RollNo      string          `json:"roll_no"`
	Name        string          `json:"name"`
	Department  string          `json:"department"`
	Semester    int             `json:"semester"`
	Year        int             `json:"year"`
	FeeID       int64           `json:"fee_id"`
	FeeType     string          `json:"fee_type"`
	FeeName     string          `json:"fee_name"`
	Amount      decimal.Decimal `json:"amount"`
	DueDate     core.Date       `json:"due_date"`
	CurrentFine decimal.Decimal `json:"current_fine"`
	MaxLateFine decimal.Decimal `json:"max_late_fine"`
}

type PendingSummary struct {
	Count       int             `json:"count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	TotalFines  decimal.Decimal `json:"total_fines"`
}

type PendingReport struct {
	SessionID int64            `json:"session_id"`
	AsOf      core.Date        `json:"as_of"`
	Students  []PendingStudent `json:"students"`
	Summary   PendingSummary   `json:"summary"`
	Filters   PendingFilter    `json:"filters"`
}

func (r PendingReport) Rounded() PendingReport {
	students := make([]PendingStudent, len(r.Students))
	for i, s := range r.Students {
		s.Amount = core.RoundMoney(s.Amount)
		s.CurrentFine = core.RoundMoney(s.CurrentFine)
		s.MaxLateFine = core.RoundMoney(s.MaxLateFine)
		students[i] = s
	}
	r.Students = students
	r.Summary.TotalAmount = core.RoundMoney(r.Summary.TotalAmount)
	r.Summary.TotalFines = core.RoundMoney(r.Summary.TotalFines)
	return r
}

// SummaryFilter narrows down the financial summary.
// StartDate and EndDate bound fee due dates, both inclusive.
type SummaryFilter struct {
	StartDate  core.Date   `json:"start_date"`
	EndDate    core.Date   `json:"end_date"`
	Department null.String `json:"department"`
}

func (sf *SummaryFilter) Clean() {
	sf.Department = cleanFilter(sf.Department)
}

func (sf SummaryFilter) Validate() error {
	if !sf.StartDate.IsZero() && !sf.EndDate.IsZero() && sf.EndDate.Before(sf.StartDate) {
		return core.NewValidationError(nil, core.FieldError{Field: "end_date", Error: "end_date must not be before start_date"})
	}
	return nil
}

// HasPeriod reports whether both ends of the date range are set.
func (sf SummaryFilter) HasPeriod() bool {
	return !sf.StartDate.IsZero() && !sf.EndDate.IsZero()
}

// FeeTypeTotals rolls up the fees of a given type.
type FeeTypeTotals struct {
	FeeType           string          `json:"fee_type" db:"fee_type"`
	TotalFees         int             `json:"total_fees" db:"total_fees"`
	Collected         decimal.Decimal `json:"collected" db:"collected"`
	Pending           decimal.Decimal `json:"pending" db:"pending"`
	LateFines         decimal.Decimal `json:"late_fines" db:"late_fines"`
	CompletedPayments int             `json:"completed_payments" db:"completed_payments"`
}

// MonthTotals rolls up the completed payments of a month.
type MonthTotals struct {
	Month        string          `json:"month" db:"month"` // YYYY-MM
	Amount       decimal.Decimal `json:"amount" db:"amount"`
	PaymentCount int             `json:"payment_count" db:"payment_count"`
}

type Period struct {
	StartDate core.Date `json:"start_date"`
	EndDate   core.Date `json:"end_date"`
}

type Summary struct {
	SessionID      int64           `json:"session_id"`
	Period         Period          `json:"period"`
	Department     null.String     `json:"department"`
	TotalCollected decimal.Decimal `json:"total_collected"`
	TotalPending   decimal.Decimal `json:"total_pending"`
	TotalLateFines decimal.Decimal `json:"total_late_fines"`
	ByFeeType      []FeeTypeTotals `json:"by_fee_type"`
	Monthly        []MonthTotals   `json:"monthly,omitempty"`
}

func (s Summary) Rounded() Summary {
	s.TotalCollected = core.RoundMoney(s.TotalCollected)
	s.TotalPending = core.RoundMoney(s.TotalPending)
	s.TotalLateFines = core.RoundMoney(s.TotalLateFines)

	byType := make([]FeeTypeTotals, len(s.ByFeeType))
	for i, t := range s.ByFeeType {
		t.Collected = core.RoundMoney(t.Collected)
		t.Pending = core.RoundMoney(t.Pending)
		t.LateFines = core.RoundMoney(t.LateFines)
		byType[i] = t
	}
	s.ByFeeType = byType

	if s.Monthly != nil {
		monthly := make([]MonthTotals, len(s.Monthly))
		for i, m := range s.Monthly {
			m.Amount = core.RoundMoney(m.Amount)
			monthly[i] = m
		}
		s.Monthly = monthly
	}
	return s
}

// LineStatus tells whether a fee of a statement was settled.
type LineStatus string

const (
	LinePaid    LineStatus = "paid"
	LinePending LineStatus = "pending"
)

// StatementLine is a fee applicable to a student, along its settlement if any.
// Status shadows the lifecycle status of the embedded fee, which is always active here.
type StatementLine struct {
	fee.Fee
	Status          LineStatus          `json:"status"`
	CurrentLateFine decimal.Decimal     `json:"current_late_fine"`
	PaymentID       null.Int64          `json:"payment_id"`
	ReceiptNumber   null.String         `json:"receipt_number"`
	AmountPaid      decimal.NullDecimal `json:"amount_paid"`
	PaidLateFine    decimal.NullDecimal `json:"paid_late_fine"`
	TotalPaid       decimal.NullDecimal `json:"total_paid"`
	PaymentDate     core.Date           `json:"payment_date"`
	PaymentMethod   payment.Method      `json:"payment_method,omitempty"`
}

type StatementSummary struct {
	TotalFees      int             `json:"total_fees"`
	PendingCount   int             `json:"pending_count"`
	PaidCount      int             `json:"paid_count"`
	TotalPending   decimal.Decimal `json:"total_pending"`
	TotalPaid      decimal.Decimal `json:"total_paid"`
	TotalLateFines decimal.Decimal `json:"total_late_fines"` // accrued on pending fees
}

type Statement struct {
	StudentID int64            `json:"student_id"`
	SessionID int64            `json:"session_id"`
	AsOf      core.Date        `json:"as_of"`
	Fees      []StatementLine  `json:"fees"`
	Summary   StatementSummary `json:"summary"`
}

func roundNull(d decimal.NullDecimal) decimal.NullDecimal {
	if d.Valid {
		d.Decimal = core.RoundMoney(d.Decimal)
	}
	return d
}

func (s Statement) Rounded() Statement {
	lines := make([]StatementLine, len(s.Fees))
	for i, l := range s.Fees {
		l.CurrentLateFine = core.RoundMoney(l.CurrentLateFine)
		l.AmountPaid = roundNull(l.AmountPaid)
		l.PaidLateFine = roundNull(l.PaidLateFine)
		l.TotalPaid = roundNull(l.TotalPaid)
		lines[i] = l
	}
	s.Fees = lines
	s.Summary.TotalPending = core.RoundMoney(s.Summary.TotalPending)
	s.Summary.TotalPaid = core.RoundMoney(s.Summary.TotalPaid)
	s.Summary.TotalLateFines = core.RoundMoney(s.Summary.TotalLateFines)
	return s
}
