package payment

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/bursary/core"
)

// Method is the channel a settlement was collected through.
type Method string

const (
	MethodCash   Method = "cash"
	MethodCard   Method = "card"
	MethodOnline Method = "online"
	MethodCheque Method = "cheque"
	MethodOther  Method = "other"
)

var Methods = []Method{MethodCash, MethodCard, MethodOnline, MethodCheque, MethodOther}

func (m Method) Valid() bool {
	for _, mt := range Methods {
		if m == mt {
			return true
		}
	}
	return false
}

// Status is the state of a ledger row.
type Status string

const StatusCompleted Status = "completed"

var Statuses = []Status{StatusCompleted}

func (s Status) Valid() bool {
	for _, st := range Statuses {
		if s == st {
			return true
		}
	}
	return false
}

// Payment is an immutable ledger row: the settlement of a fee by a student.
// AmountPaid + LateFine == TotalAmount.
type Payment struct {
	ID            int64           `json:"id" db:"id"`
	StudentID     int64           `json:"student_id" db:"student_id"`
	FeeID         int64           `json:"fee_id" db:"fee_id"`
	AmountPaid    decimal.Decimal `json:"amount_paid" db:"amount_paid"`
	LateFine      decimal.Decimal `json:"late_fine" db:"late_fine"`
	TotalAmount   decimal.Decimal `json:"total_amount" db:"total_amount"`
	PaymentDate   core.Date       `json:"payment_date" db:"payment_date"`
	PaymentMethod Method          `json:"payment_method" db:"payment_method"`
	TransactionID null.String     `json:"transaction_id" db:"transaction_id"`
	Remarks       null.String     `json:"remarks" db:"remarks"`
	ReceiptNumber string          `json:"receipt_number" db:"receipt_number"`
	Status        Status          `json:"status" db:"status"`
	ProcessedBy   string          `json:"processed_by" db:"processed_by"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"` // UTC
}

func (p Payment) IsCompleted() bool { return p.Status == StatusCompleted }

// Detail is a Payment along the fee and student it settles.
type Detail struct {
	Payment
	FeeType     string          `json:"fee_type" db:"fee_type"`
	FeeName     string          `json:"fee_name" db:"fee_name"`
	FeeAmount   decimal.Decimal `json:"fee_amount" db:"fee_amount"`
	Semester    null.Int        `json:"semester" db:"semester"`
	DueDate     core.Date       `json:"due_date" db:"due_date"`
	RollNo      string          `json:"roll_no" db:"roll_no"`
	StudentName string          `json:"student_name" db:"student_name"`
}

// Settlement contains information needed to record the payment of a fee.
// AmountPaid is the whole amount received, late fine included.
type Settlement struct {
	StudentID     int64           `json:"student_id" validate:"required"`
	FeeID         int64           `json:"fee_id" validate:"required"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	PaymentMethod Method          `json:"payment_method" validate:"required,paymethod"`
	TransactionID null.String     `json:"transaction_id" validate:"omitempty,max=100"`
	Remarks       null.String     `json:"remarks" validate:"omitempty,max=500"`
	PaymentDate   core.Date       `json:"payment_date"` // defaults to today
}

func (s *Settlement) Clean() {
	s.PaymentMethod = Method(core.CleanString(string(s.PaymentMethod), true /* lower */))
	s.TransactionID = cleanNullString(s.TransactionID)
	s.Remarks = cleanNullString(s.Remarks)
}

func (s *Settlement) Validate(validate *validator.Validate) error {
	s.Clean()
	if err := validate.Struct(s); err != nil {
		return err
	}
	if !s.AmountPaid.IsPositive() {
		return errInvalidAmount
	}
	if !core.ValidMoney(s.AmountPaid) {
		return errAmountPrecision
	}
	return nil
}

func cleanNullString(s null.String) null.String {
	if !s.Valid {
		return s
	}
	v := core.CleanString(s.String)
	return null.NewString(v, v != "")
}

// QueryFilter applies AND operation on its set fields.
// StartDate and EndDate bound the payment date, both inclusive.
type QueryFilter struct {
	StudentID int64     `json:"student_id"`
	FeeID     int64     `json:"fee_id"`
	Status    Status    `json:"status"`
	Method    Method    `json:"payment_method"`
	StartDate core.Date `json:"start_date"`
	EndDate   core.Date `json:"end_date"`
}

func (qf *QueryFilter) Clean() {
	qf.Status = Status(core.CleanString(string(qf.Status), true /* lower */))
	qf.Method = Method(core.CleanString(string(qf.Method), true /* lower */))
}

func (qf QueryFilter) Validate() error {
	var flds []core.FieldError
	if qf.Status != "" && !qf.Status.Valid() {
		flds = append(flds, core.FieldError{Field: "status", Error: "unknown payment status"})
	}
	if qf.Method != "" && !qf.Method.Valid() {
		flds = append(flds, core.FieldError{Field: "payment_method", Error: paymentMethodText})
	}
	if !qf.StartDate.IsZero() && !qf.EndDate.IsZero() && qf.EndDate.Before(qf.StartDate) {
		flds = append(flds, core.FieldError{Field: "end_date", Error: "end_date must not be before start_date"})
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

// StudentSummary sums up the payment history of a student.
type StudentSummary struct {
	TotalPayments  int             `json:"total_payments"`
	CompletedCount int             `json:"completed_count"`
	PendingCount   int             `json:"pending_count"`
	TotalPaid      decimal.Decimal `json:"total_paid"`
	TotalLateFines decimal.Decimal `json:"total_late_fines"`
}

func (s StudentSummary) Rounded() StudentSummary {
	s.TotalPaid = core.RoundMoney(s.TotalPaid)
	s.TotalLateFines = core.RoundMoney(s.TotalLateFines)
	return s
}

func summarizeStudent(payments []Detail) StudentSummary {
	sum := StudentSummary{TotalPayments: len(payments)}
	for _, p := range payments {
		if p.IsCompleted() {
			sum.CompletedCount++
			sum.TotalPaid = sum.TotalPaid.Add(p.TotalAmount)
			sum.TotalLateFines = sum.TotalLateFines.Add(p.LateFine)
		} else {
			sum.PendingCount++
		}
	}
	return sum
}

type StudentPayments struct {
	StudentID int64          `json:"student_id"`
	Payments  []Detail       `json:"payments"`
	Summary   StudentSummary `json:"summary"`
}

// PageSummary sums up one page of payments.
type PageSummary struct {
	TotalPayments   int             `json:"total_payments"`
	TotalAmountPaid decimal.Decimal `json:"total_amount_paid"`
	TotalLateFines  decimal.Decimal `json:"total_late_fines"`
}

func (s PageSummary) Rounded() PageSummary {
	s.TotalAmountPaid = core.RoundMoney(s.TotalAmountPaid)
	s.TotalLateFines = core.RoundMoney(s.TotalLateFines)
	return s
}

func summarizePage(payments []Detail) PageSummary {
	sum := PageSummary{TotalPayments: len(payments)}
	for _, p := range payments {
		sum.TotalAmountPaid = sum.TotalAmountPaid.Add(p.TotalAmount)
		sum.TotalLateFines = sum.TotalLateFines.Add(p.LateFine)
	}
	return sum
}

type List struct {
	Payments   []Detail        `json:"payments"`
	Pagination core.Pagination `json:"pagination"`
	Summary    PageSummary     `json:"summary"`
	Filters    QueryFilter     `json:"filters"`
}
