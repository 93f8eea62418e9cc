package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/bursary/core"
	"github.com/trezcool/bursary/core/payment"
)

const completedPaymentIndex = "payments_completed_uniq"

var (
	paymentColumns = []string{
		"id", "student_id", "fee_id", "amount_paid", "late_fine", "total_amount", "payment_date",
		"payment_method", "transaction_id", "remarks", "receipt_number", "status", "processed_by", "created_at",
	}
	paymentDetailColumns = append(
		prefixed("p", paymentColumns),
		"f.fee_type", "f.fee_name", "f.amount AS fee_amount", "f.semester", "f.due_date",
		"s.roll_no", "s.name AS student_name",
	)
)

type paymentRepository struct {
	repository
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *sqlx.DB) payment.Repository {
	return &paymentRepository{repository{db: db}}
}

func selectPaymentDetails() sq.SelectBuilder {
	return psql.Select(paymentDetailColumns...).
		From("payments p").
		Join("fees f ON f.id = p.fee_id").
		Join("students s ON s.id = p.student_id")
}

func (repo paymentRepository) HasCompletedPayment(ctx context.Context, studentID, feeID int64, exec ...core.DBExecutor) (bool, error) {
	q := psql.Select().Column(sq.Expr(
		"EXISTS (SELECT 1 FROM payments WHERE student_id = ? AND fee_id = ? AND status = ?) AS found",
		studentID, feeID, payment.StatusCompleted,
	))

	var found struct {
		Found bool `db:"found"`
	}
	if err := getRow(ctx, repo.getExec(exec), &found, q); err != nil {
		return false, core.NewPersistenceError(err, "checking completed payment")
	}
	return found.Found, nil
}

func (repo paymentRepository) CreatePayment(ctx context.Context, p payment.Payment, exec ...core.DBExecutor) (payment.Payment, error) {
	q := psql.Insert("payments").
		Columns(
			"student_id", "fee_id", "amount_paid", "late_fine", "total_amount", "payment_date",
			"payment_method", "transaction_id", "remarks", "receipt_number", "status", "processed_by", "created_at",
		).
		Values(
			p.StudentID, p.FeeID, p.AmountPaid, p.LateFine, p.TotalAmount, p.PaymentDate,
			p.PaymentMethod, p.TransactionID, p.Remarks, p.ReceiptNumber, p.Status, p.ProcessedBy, p.CreatedAt,
		).
		Suffix("RETURNING " + joinColumns(paymentColumns))

	var created payment.Payment
	if err := getRow(ctx, repo.getExec(exec), &created, q); err != nil {
		if isUniqueViolation(err, completedPaymentIndex) {
			return payment.Payment{}, core.NewConflictError(payment.CodePaymentExists, "payment already exists for this fee")
		}
		return payment.Payment{}, core.NewPersistenceError(err, "inserting payment", core.LogFields{"receipt": p.ReceiptNumber})
	}
	return created, nil
}

func (repo paymentRepository) QueryStudentPayments(ctx context.Context, studentID int64, exec ...core.DBExecutor) ([]payment.Detail, error) {
	var payments []payment.Detail
	q := selectPaymentDetails().
		Where(sq.Eq{"p.student_id": studentID}).
		OrderBy("p.payment_date DESC", "p.created_at DESC", "p.id DESC")
	if err := selectRows(ctx, repo.getExec(exec), &payments, q); err != nil {
		return nil, core.NewPersistenceError(err, "querying student payments")
	}
	return payments, nil
}

func paymentWhere(filter payment.QueryFilter) sq.And {
	where := sq.And{}
	if filter.StudentID != 0 {
		where = append(where, sq.Eq{"p.student_id": filter.StudentID})
	}
	if filter.FeeID != 0 {
		where = append(where, sq.Eq{"p.fee_id": filter.FeeID})
	}
	if filter.Status != "" {
		where = append(where, sq.Eq{"p.status": filter.Status})
	}
	if filter.Method != "" {
		where = append(where, sq.Eq{"p.payment_method": filter.Method})
	}
	if !filter.StartDate.IsZero() {
		where = append(where, sq.GtOrEq{"p.payment_date": filter.StartDate})
	}
	if !filter.EndDate.IsZero() {
		where = append(where, sq.LtOrEq{"p.payment_date": filter.EndDate})
	}
	return where
}

func (repo paymentRepository) QueryPayments(ctx context.Context, filter payment.QueryFilter, page core.Page, exec ...core.DBExecutor) ([]payment.Detail, int, error) {
	e := repo.getExec(exec)
	where := paymentWhere(filter)

	var count struct {
		Total int `db:"total"`
	}
	cq := psql.Select("COUNT(*) AS total").From("payments p").Where(where)
	if err := getRow(ctx, e, &count, cq); err != nil {
		return nil, 0, core.NewPersistenceError(err, "counting payments")
	}

	var payments []payment.Detail
	q := selectPaymentDetails().
		Where(where).
		OrderBy("p.payment_date DESC", "p.created_at DESC", "p.id DESC").
		Limit(uint64(page.Limit)).
		Offset(page.Offset())
	if err := selectRows(ctx, e, &payments, q); err != nil {
		return nil, 0, core.NewPersistenceError(err, "querying payments")
	}
	return payments, count.Total, nil
}

func (repo paymentRepository) GetPaymentByReceipt(ctx context.Context, receipt string, exec ...core.DBExecutor) (payment.Detail, error) {
	var p payment.Detail
	q := selectPaymentDetails().Where(sq.Eq{"p.receipt_number": receipt})
	if err := getRow(ctx, repo.getExec(exec), &p, q); err != nil {
		return payment.Detail{}, trapNoRowsErr(err, "payment", receipt, "getting payment")
	}
	return p, nil
}
