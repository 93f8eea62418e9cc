package payment

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/bursary/core"
	"github.com/trezcool/bursary/core/fee"
	"github.com/trezcool/bursary/core/session"
	"github.com/trezcool/bursary/core/student"
)

var (
	nowFunc = time.Now // mockable

	errFeeNotApplicable = core.NewCodedValidationError(CodeFeeNotApplicable, "this fee does not apply to the student")
	errPaymentExists    = core.NewConflictError(CodePaymentExists, "payment already exists for this fee")
)

type (
	Repository interface {
		HasCompletedPayment(ctx context.Context, studentID, feeID int64, exec ...core.DBExecutor) (bool, error)
		// CreatePayment returns a core.ConflictError when the student already settled the fee.
		CreatePayment(ctx context.Context, p Payment, exec ...core.DBExecutor) (Payment, error)
		// QueryStudentPayments returns the payments of a student, newest first.
		QueryStudentPayments(ctx context.Context, studentID int64, exec ...core.DBExecutor) ([]Detail, error)
		// QueryPayments returns one page of the payments matching filter, along the total number of matches.
		QueryPayments(ctx context.Context, filter QueryFilter, page core.Page, exec ...core.DBExecutor) ([]Detail, int, error)
		// GetPaymentByReceipt returns a core.NotFoundError for unknown receipt numbers.
		GetPaymentByReceipt(ctx context.Context, receipt string, exec ...core.DBExecutor) (Detail, error)
	}

	// Ledger records fee settlements. Ledger rows are never updated nor deleted.
	Ledger struct {
		tx          core.Transactor
		repo        Repository
		fees        fee.Repository
		students    student.Repository
		sessions    session.Resolver
		receipts    ReceiptGenerator
		recorder    Recorder
		validate    *validator.Validate
		loc         *time.Location
		maxPageSize int
	}

	LedgerOption func(*Ledger)
)

// WithRecorder sets the Recorder notified of every settlement outcome.
func WithRecorder(r Recorder) LedgerOption {
	return func(l *Ledger) {
		if r != nil {
			l.recorder = r
		}
	}
}

// WithLocation sets the timezone used to resolve "today".
func WithLocation(loc *time.Location) LedgerOption {
	return func(l *Ledger) {
		if loc != nil {
			l.loc = loc
		}
	}
}

func WithMaxPageSize(size int) LedgerOption {
	return func(l *Ledger) { l.maxPageSize = size }
}

func NewLedger(
	tx core.Transactor,
	repo Repository,
	fees fee.Repository,
	students student.Repository,
	sessions session.Resolver,
	receipts ReceiptGenerator,
	validate *validator.Validate,
	opts ...LedgerOption,
) *Ledger {
	l := &Ledger{
		tx:          tx,
		repo:        repo,
		fees:        fees,
		students:    students,
		sessions:    sessions,
		receipts:    receipts,
		recorder:    nopRecorder{},
		validate:    validate,
		loc:         time.UTC,
		maxPageSize: core.MaxPageSize,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Settle records the payment of a fee by a student. It requires an active session.
// The amount received pays the late fine accrued on the payment date first, the rest is the fee amount paid.
func (l *Ledger) Settle(ctx context.Context, actor core.Actor, s Settlement) (Payment, error) {
	if err := s.Validate(l.validate); err != nil {
		l.recorder.Rejected(core.CodeValidation)
		return Payment{}, err
	}
	if _, err := l.sessions.Active(ctx); err != nil {
		l.recorder.Rejected(rejectionReason(err))
		return Payment{}, errors.Wrap(err, "resolving active session")
	}
	if s.PaymentDate.IsZero() {
		s.PaymentDate = core.Today(l.loc)
	}

	var pmt Payment
	err := l.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		stud, err := l.students.GetStudentByID(ctx, s.StudentID, exec)
		if err != nil {
			return err
		}
		f, err := l.fees.GetFeeForUpdate(ctx, s.FeeID, exec)
		if err != nil {
			return err
		}
		if !f.IsActive() {
			return core.NewNotFoundError("fee", s.FeeID)
		}
		if !fee.Matches(f, stud) {
			return errFeeNotApplicable
		}

		paid, err := l.repo.HasCompletedPayment(ctx, stud.ID, f.ID, exec)
		if err != nil {
			return err
		}
		if paid {
			return errPaymentExists
		}

		fine := f.LateFineOn(s.PaymentDate)
		if s.AmountPaid.LessThan(fine) {
			return &core.InsufficientPaymentError{Received: s.AmountPaid, Fine: fine}
		}

		pmt, err = l.repo.CreatePayment(ctx, Payment{
			StudentID:     stud.ID,
			FeeID:         f.ID,
			AmountPaid:    s.AmountPaid.Sub(fine),
			LateFine:      fine,
			TotalAmount:   s.AmountPaid,
			PaymentDate:   s.PaymentDate,
			PaymentMethod: s.PaymentMethod,
			TransactionID: s.TransactionID,
			Remarks:       s.Remarks,
			ReceiptNumber: l.receipts.Next(s.PaymentDate),
			Status:        StatusCompleted,
			ProcessedBy:   actor.ID,
			CreatedAt:     nowFunc().UTC(),
		}, exec)
		return err
	})
	if err != nil {
		l.recorder.Rejected(rejectionReason(err))
		err = core.WithFields(err, core.LogFields{"student_id": s.StudentID, "fee_id": s.FeeID, "actor_id": actor.ID})
		return Payment{}, errors.Wrap(err, "settling fee")
	}
	l.recorder.Settled(pmt)
	return pmt, nil
}

func rejectionReason(err error) string {
	switch e := errors.Cause(err).(type) {
	case *core.ValidationError:
		return e.Code
	case *core.ConflictError:
		return e.Code
	case *core.NotFoundError:
		return core.CodeNotFound
	case *core.InsufficientPaymentError:
		return core.CodeInsufficientPayment
	case *core.NoActiveSessionError:
		return core.CodeNoActiveSession
	default:
		return core.CodeServerError
	}
}

// ListForStudent returns the payment history of a student.
func (l *Ledger) ListForStudent(ctx context.Context, studentID int64) (StudentPayments, error) {
	if _, err := l.students.GetStudentByID(ctx, studentID); err != nil {
		return StudentPayments{}, errors.Wrap(err, "getting student")
	}
	payments, err := l.repo.QueryStudentPayments(ctx, studentID)
	if err != nil {
		err = core.WithFields(err, core.LogFields{"student_id": studentID})
		return StudentPayments{}, errors.Wrap(err, "querying student payments")
	}
	if payments == nil {
		payments = []Detail{}
	}
	return StudentPayments{StudentID: studentID, Payments: payments, Summary: summarizeStudent(payments)}, nil
}

// ListAll returns one page of the payments matching filter.
func (l *Ledger) ListAll(ctx context.Context, filter QueryFilter, page core.Page) (List, error) {
	filter.Clean()
	if err := filter.Validate(); err != nil {
		return List{}, err
	}
	page.Clean(l.maxPageSize)

	payments, total, err := l.repo.QueryPayments(ctx, filter, page)
	if err != nil {
		return List{}, errors.Wrap(err, "querying payments")
	}
	if payments == nil {
		payments = []Detail{}
	}
	return List{
		Payments:   payments,
		Pagination: core.NewPagination(page, total),
		Summary:    summarizePage(payments),
		Filters:    filter,
	}, nil
}

// GetByReceipt returns the payment with the given receipt number.
// Students may only look up their own receipts.
func (l *Ledger) GetByReceipt(ctx context.Context, actor core.Actor, receipt string) (Detail, error) {
	receipt = core.CleanString(receipt)
	if receipt == "" {
		return Detail{}, core.NewNotFoundError("payment", receipt)
	}
	p, err := l.repo.GetPaymentByReceipt(ctx, receipt)
	if err != nil {
		return Detail{}, errors.Wrap(core.WithFields(err, core.LogFields{"receipt": receipt}), "getting payment")
	}
	if !actor.CanAccessStudent(p.StudentID) {
		// do not disclose the existence of receipts of other students
		return Detail{}, core.NewNotFoundError("payment", receipt)
	}
	return p, nil
}
