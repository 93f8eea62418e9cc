package fee

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/bursary/core"
)

// Status is the lifecycle state of a Fee.
type Status string

const (
	StatusActive  Status = "active"
	StatusRetired Status = "retired"
)

var Statuses = []Status{StatusActive, StatusRetired}

func (s Status) Valid() bool {
	for _, st := range Statuses {
		if s == st {
			return true
		}
	}
	return false
}

const (
	MinSemester = 1
	MaxSemester = 6
)

// Fee is a billable obligation scoped to a cohort of students.
// A null Semester, Department or Program applies to every value of that dimension.
type Fee struct {
	ID             int64           `json:"id" db:"id"`
	FeeType        string          `json:"fee_type" db:"fee_type"`
	FeeName        string          `json:"fee_name" db:"fee_name"`
	Amount         decimal.Decimal `json:"amount" db:"amount"`
	DueDate        core.Date       `json:"due_date" db:"due_date"`
	LateFinePerDay decimal.Decimal `json:"late_fine_per_day" db:"late_fine_per_day"`
	MaxLateFine    decimal.Decimal `json:"max_late_fine" db:"max_late_fine"` // 0: uncapped
	Semester       null.Int        `json:"semester" db:"semester"`
	Department     null.String     `json:"department" db:"department"`
	Program        null.String     `json:"program" db:"program"`
	SessionID      int64           `json:"session_id" db:"session_id"`
	Description    null.String     `json:"description" db:"description"`
	Status         Status          `json:"status" db:"status"`
	CreatedBy      string          `json:"created_by" db:"created_by"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"` // UTC
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"` // UTC
}

func (f Fee) IsActive() bool { return f.Status == StatusActive }

// LateFineOn returns the late fine accrued on the fee as of asOf.
func (f Fee) LateFineOn(asOf core.Date) decimal.Decimal {
	return LateFine(f.DueDate, asOf, f.LateFinePerDay, f.MaxLateFine)
}

// cleanNullString trims s and turns blank strings into null.
func cleanNullString(s null.String) null.String {
	if !s.Valid {
		return s
	}
	v := core.CleanString(s.String)
	return null.NewString(v, v != "")
}

// NewFee contains information needed to create a new Fee.
type NewFee struct {
	FeeType        string          `json:"fee_type" validate:"required,max=50"`
	FeeName        string          `json:"fee_name" validate:"required,max=100"`
	Amount         decimal.Decimal `json:"amount" validate:"gt=0"`
	DueDate        core.Date       `json:"due_date" validate:"required"`
	LateFinePerDay decimal.Decimal `json:"late_fine_per_day" validate:"gte=0"`
	MaxLateFine    decimal.Decimal `json:"max_late_fine" validate:"gte=0"`
	Semester       null.Int        `json:"semester" validate:"omitempty,semester"`
	Department     null.String     `json:"department" validate:"omitempty,max=50"`
	Program        null.String     `json:"program" validate:"omitempty,max=50"`
	Description    null.String     `json:"description"`
}

func (nf *NewFee) Clean() {
	nf.FeeType = core.CleanString(nf.FeeType)
	nf.FeeName = core.CleanString(nf.FeeName)
	nf.Department = cleanNullString(nf.Department)
	nf.Program = cleanNullString(nf.Program)
	nf.Description = cleanNullString(nf.Description)
}

func (nf *NewFee) Validate(validate *validator.Validate) error {
	nf.Clean()
	if err := validate.Struct(nf); err != nil {
		return err
	}
	// omitempty lets an explicit 0 through
	if nf.Semester.Valid && !validSemester(nf.Semester.Int) {
		return errInvalidSemester
	}
	for _, m := range []struct {
		field string
		value decimal.Decimal
	}{
		{"amount", nf.Amount},
		{"late_fine_per_day", nf.LateFinePerDay},
		{"max_late_fine", nf.MaxLateFine},
	} {
		if !core.ValidMoney(m.value) {
			return invalidAmountError(m.field)
		}
	}
	return nil
}

// UpdateFee defines what information may be provided to modify an existing Fee.
// Only present JSON keys are applied; scope fields and description may be cleared with an explicit null.
type UpdateFee struct {
	FeeType        *string          `json:"fee_type"`
	FeeName        *string          `json:"fee_name"`
	Amount         *decimal.Decimal `json:"amount"`
	DueDate        *core.Date       `json:"due_date"`
	LateFinePerDay *decimal.Decimal `json:"late_fine_per_day"`
	MaxLateFine    *decimal.Decimal `json:"max_late_fine"`
	Semester       null.Int         `json:"semester"`
	Department     null.String      `json:"department"`
	Program        null.String      `json:"program"`
	Description    null.String      `json:"description"`

	present map[string]bool
}

func (uf *UpdateFee) UnmarshalJSON(data []byte) error {
	type alias UpdateFee
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*uf = UpdateFee(a)
	uf.present = make(map[string]bool, len(raw))
	for k := range raw {
		uf.present[k] = true
	}
	return nil
}

// Has reports whether the JSON field was present in the update.
func (uf UpdateFee) Has(field string) bool { return uf.present[field] }

// Apply merges the whitelisted fields of the update into orig.
// It returns the merged Fee and whether any field was supplied.
func (uf UpdateFee) Apply(orig Fee) (Fee, bool) {
	f := orig
	var changed bool
	if uf.FeeType != nil {
		f.FeeType, changed = *uf.FeeType, true
	}
	if uf.FeeName != nil {
		f.FeeName, changed = *uf.FeeName, true
	}
	if uf.Amount != nil {
		f.Amount, changed = *uf.Amount, true
	}
	if uf.DueDate != nil {
		f.DueDate, changed = *uf.DueDate, true
	}
	if uf.LateFinePerDay != nil {
		f.LateFinePerDay, changed = *uf.LateFinePerDay, true
	}
	if uf.MaxLateFine != nil {
		f.MaxLateFine, changed = *uf.MaxLateFine, true
	}
	if uf.Has("semester") {
		f.Semester, changed = uf.Semester, true
	}
	if uf.Has("department") {
		f.Department, changed = uf.Department, true
	}
	if uf.Has("program") {
		f.Program, changed = uf.Program, true
	}
	if uf.Has("description") {
		f.Description, changed = uf.Description, true
	}
	return f, changed
}

// asNewFee returns the mutable fields of f, for re-validation after an update.
func asNewFee(f Fee) NewFee {
	return NewFee{
		FeeType:        f.FeeType,
		FeeName:        f.FeeName,
		Amount:         f.Amount,
		DueDate:        f.DueDate,
		LateFinePerDay: f.LateFinePerDay,
		MaxLateFine:    f.MaxLateFine,
		Semester:       f.Semester,
		Department:     f.Department,
		Program:        f.Program,
		Description:    f.Description,
	}
}

// QueryFilter applies AND operation on its set fields.
// Semester and Department also match fees that apply to every semester or department.
type QueryFilter struct {
	SessionID  int64       `json:"session_id"`
	Semester   null.Int    `json:"semester"`
	Department null.String `json:"department"`
	Status     Status      `json:"status"`
}

func (qf *QueryFilter) Clean() {
	qf.Department = cleanNullString(qf.Department)
	qf.Status = Status(core.CleanString(string(qf.Status), true /* lower */))
}

func (qf QueryFilter) Validate() error {
	if qf.Status != "" && !qf.Status.Valid() {
		return core.NewValidationError(nil, core.FieldError{Field: "status", Error: "status must be one of active, retired"})
	}
	if qf.Semester.Valid && !validSemester(qf.Semester.Int) {
		return errInvalidSemester
	}
	return nil
}

// ListResult is a list of fees along the filters that produced it.
type ListResult struct {
	Fees    []Fee       `json:"fees"`
	Total   int         `json:"total"`
	Filters QueryFilter `json:"filters"`
}

// RetireResult is returned when a Fee is retired.
type RetireResult struct {
	Deleted bool   `json:"deleted"`
	FeeID   int64  `json:"fee_id"`
	FeeName string `json:"fee_name"`
}
