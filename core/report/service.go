package report

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/bursary/core"
	"github.com/trezcool/bursary/core/fee"
	"github.com/trezcool/bursary/core/payment"
	"github.com/trezcool/bursary/core/session"
	"github.com/trezcool/bursary/core/student"
)

type (
	Repository interface {
		// QueryPendingPairs returns the (student, fee) pairs of the session with no completed payment,
		// ordered by department, semester, roll number and due date.
		QueryPendingPairs(ctx context.Context, sessionID int64, filter PendingFilter, exec ...core.DBExecutor) ([]PendingRow, error)
		// QueryFeeTypeTotals rolls up the fees of the session by fee type, ordered by fee type.
		QueryFeeTypeTotals(ctx context.Context, sessionID int64, filter SummaryFilter, exec ...core.DBExecutor) ([]FeeTypeTotals, error)
		// QueryMonthlyCollections rolls up completed payments dated within the filter period by month.
		QueryMonthlyCollections(ctx context.Context, sessionID int64, filter SummaryFilter, exec ...core.DBExecutor) ([]MonthTotals, error)
	}

	// Service builds read-only reports out of the fee catalog and the payment ledger.
	Service struct {
		repo     Repository
		fees     fee.Repository
		payments payment.Repository
		students student.Repository
		sessions session.Resolver
		loc      *time.Location
	}
)

func NewService(
	repo Repository,
	fees fee.Repository,
	payments payment.Repository,
	students student.Repository,
	sessions session.Resolver,
	loc *time.Location,
) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		repo:     repo,
		fees:     fees,
		payments: payments,
		students: students,
		sessions: sessions,
		loc:      loc,
	}
}

// Today returns the current date in the configured timezone.
func (svc *Service) Today() core.Date {
	return core.Today(svc.loc)
}

func (svc *Service) resolveSession(ctx context.Context, sessionID int64) (int64, error) {
	if sessionID != 0 {
		return sessionID, nil
	}
	sess, err := svc.sessions.Active(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "resolving active session")
	}
	return sess.ID, nil
}

// PendingStudents resolves who still owes what in the session, with late fines accrued as of asOf.
// A zero sessionID means the active session.
func (svc *Service) PendingStudents(ctx context.Context, sessionID int64, filter PendingFilter, asOf core.Date) (PendingReport, error) {
	filter.Clean()
	sessionID, err := svc.resolveSession(ctx, sessionID)
	if err != nil {
		return PendingReport{}, err
	}

	rows, err := svc.repo.QueryPendingPairs(ctx, sessionID, filter)
	if err != nil {
		err = core.WithFields(err, core.LogFields{"session_id": sessionID})
		return PendingReport{}, errors.Wrap(err, "querying pending students")
	}

	rep := PendingReport{
		SessionID: sessionID,
		AsOf:      asOf,
		Students:  make([]PendingStudent, 0, len(rows)),
		Filters:   filter,
	}
	for _, r := range rows {
		fine := fee.LateFine(r.DueDate, asOf, r.LateFinePerDay, r.MaxLateFine)
		rep.Students = append(rep.Students, PendingStudent{
			StudentID:   r.StudentID,
			RollNo:      r.RollNo,
			Name:        r.Name,
			Department:  r.Department,
			Semester:    r.Semester,
			Year:        student.Student{Semester: r.Semester}.Year(),
			FeeID:       r.FeeID,
			FeeType:     r.FeeType,
			FeeName:     r.FeeName,
			Amount:      r.Amount,
			DueDate:     r.DueDate,
			CurrentFine: fine,
			MaxLateFine: r.MaxLateFine,
		})
		rep.Summary.TotalAmount = rep.Summary.TotalAmount.Add(r.Amount)
		rep.Summary.TotalFines = rep.Summary.TotalFines.Add(fine)
	}
	rep.Summary.Count = len(rep.Students)
	return rep, nil
}

// FinancialSummary rolls up collected, pending and late fine totals of the session.
// A zero sessionID means the active session.
func (svc *Service) FinancialSummary(ctx context.Context, sessionID int64, filter SummaryFilter) (Summary, error) {
	filter.Clean()
	if err := filter.Validate(); err != nil {
		return Summary{}, err
	}
	sessionID, err := svc.resolveSession(ctx, sessionID)
	if err != nil {
		return Summary{}, err
	}

	byType, err := svc.repo.QueryFeeTypeTotals(ctx, sessionID, filter)
	if err != nil {
		err = core.WithFields(err, core.LogFields{"session_id": sessionID})
		return Summary{}, errors.Wrap(err, "querying fee type totals")
	}
	if byType == nil {
		byType = []FeeTypeTotals{}
	}

	sum := Summary{
		SessionID:  sessionID,
		Period:     Period{StartDate: filter.StartDate, EndDate: filter.EndDate},
		Department: filter.Department,
		ByFeeType:  byType,
	}
	for _, t := range byType {
		sum.TotalCollected = sum.TotalCollected.Add(t.Collected)
		sum.TotalPending = sum.TotalPending.Add(t.Pending)
		sum.TotalLateFines = sum.TotalLateFines.Add(t.LateFines)
	}

	if filter.HasPeriod() {
		monthly, err := svc.repo.QueryMonthlyCollections(ctx, sessionID, filter)
		if err != nil {
			err = core.WithFields(err, core.LogFields{"session_id": sessionID})
			return Summary{}, errors.Wrap(err, "querying monthly collections")
		}
		if monthly == nil {
			monthly = []MonthTotals{}
		}
		sum.Monthly = monthly
	}
	return sum, nil
}

// StudentStatement lists the active fees of the active session that apply to the student,
// marking the ones already settled. Late fines of pending fees accrue as of asOf.
func (svc *Service) StudentStatement(ctx context.Context, studentID int64, asOf core.Date) (Statement, error) {
	stud, err := svc.students.GetStudentByID(ctx, studentID)
	if err != nil {
		return Statement{}, errors.Wrap(err, "getting student")
	}
	sess, err := svc.sessions.Active(ctx)
	if err != nil {
		return Statement{}, errors.Wrap(err, "resolving active session")
	}

	fees, err := svc.fees.QueryFees(ctx, fee.QueryFilter{
		SessionID:  sess.ID,
		Semester:   null.IntFrom(stud.Semester),
		Department: null.StringFrom(stud.Department),
		Status:     fee.StatusActive,
	})
	if err != nil {
		err = core.WithFields(err, core.LogFields{"student_id": studentID})
		return Statement{}, errors.Wrap(err, "querying fees")
	}
	payments, err := svc.payments.QueryStudentPayments(ctx, studentID)
	if err != nil {
		err = core.WithFields(err, core.LogFields{"student_id": studentID})
		return Statement{}, errors.Wrap(err, "querying student payments")
	}

	return buildStatement(stud, sess.ID, fees, payments, asOf), nil
}

func buildStatement(stud student.Student, sessionID int64, fees []fee.Fee, payments []payment.Detail, asOf core.Date) Statement {
	settled := make(map[int64]payment.Detail, len(payments))
	for _, p := range payments {
		if p.IsCompleted() {
			settled[p.FeeID] = p
		}
	}

	st := Statement{StudentID: stud.ID, SessionID: sessionID, AsOf: asOf, Fees: []StatementLine{}}
	for _, f := range fees {
		if !fee.Matches(f, stud) {
			continue
		}
		line := StatementLine{Fee: f}
		if p, ok := settled[f.ID]; ok {
			line.Status = LinePaid
			line.PaymentID = null.Int64From(p.ID)
			line.ReceiptNumber = null.StringFrom(p.ReceiptNumber)
			line.AmountPaid = decimal.NullDecimal{Decimal: p.AmountPaid, Valid: true}
			line.PaidLateFine = decimal.NullDecimal{Decimal: p.LateFine, Valid: true}
			line.TotalPaid = decimal.NullDecimal{Decimal: p.TotalAmount, Valid: true}
			line.PaymentDate = p.PaymentDate
			line.PaymentMethod = p.PaymentMethod

			st.Summary.PaidCount++
			st.Summary.TotalPaid = st.Summary.TotalPaid.Add(p.TotalAmount)
		} else {
			line.Status = LinePending
			line.CurrentLateFine = f.LateFineOn(asOf)

			st.Summary.PendingCount++
			st.Summary.TotalPending = st.Summary.TotalPending.Add(f.Amount).Add(line.CurrentLateFine)
			st.Summary.TotalLateFines = st.Summary.TotalLateFines.Add(line.CurrentLateFine)
		}
		st.Fees = append(st.Fees, line)
	}
	st.Summary.TotalFees = len(st.Fees)
	return st
}
