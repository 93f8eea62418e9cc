package sqlxrepos_test

import (
	"context"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/bursary/core"
	"github.com/trezcool/bursary/core/fee"
	"github.com/trezcool/bursary/core/payment"
	"github.com/trezcool/bursary/core/report"
	"github.com/trezcool/bursary/core/session"
	"github.com/trezcool/bursary/core/student"
	sqlxrepos "github.com/trezcool/bursary/storage/database/sqlx"
	"github.com/trezcool/bursary/tests"
)

var admin = core.Actor{ID: "admin-1", Name: "Admin", IsAdmin: true}

type dbEnv struct {
	db       *sqlx.DB
	sessRepo session.Repository
	feeRepo  fee.Repository
	payRepo  payment.Repository
	sess     session.Session
	bca1     student.Student
	bca2     student.Student
	bba1     student.Student
	tuition  fee.Fee
	ledger   *payment.Ledger
}

func setup(t *testing.T) dbEnv {
	db := testutil.PrepareDB(t)
	ctx := context.Background()

	env := dbEnv{
		db:       db,
		sessRepo: sqlxrepos.NewSessionRepository(db),
		feeRepo:  sqlxrepos.NewFeeRepository(db),
		payRepo:  sqlxrepos.NewPaymentRepository(db),
	}
	env.sess = testutil.CreateSession(
		t, env.sessRepo, "2023-2024", core.NewDate(2023, 7, 1), core.NewDate(2024, 6, 30), true,
	)

	insert := func(s student.Student) (student.Student, error) { return sqlxrepos.CreateStudent(ctx, db, s) }
	env.bca1 = testutil.CreateStudent(t, insert, env.sess.ID, "BCA301", "Asha", "BCA", 3)
	env.bca2 = testutil.CreateStudent(t, insert, env.sess.ID, "BCA302", "Ravi", "BCA", 3)
	env.bba1 = testutil.CreateStudent(t, insert, env.sess.ID, "BBA101", "Meera", "BBA", 1)

	env.tuition = testutil.CreateFee(t, env.feeRepo, env.sess.ID, "Tuition", 1000, core.NewDate(2024, 1, 10),
		testutil.WithScope(null.StringFrom("BCA"), null.IntFrom(3), null.String{}), testutil.WithLateFine(50, 500))

	receipts, err := payment.NewReceiptGenerator(1)
	require.NoError(t, err)
	validate, _ := testutil.NewValidator()
	env.ledger = payment.NewLedger(
		sqlxrepos.NewTransactor(db), env.payRepo, env.feeRepo, sqlxrepos.NewStudentRepository(db),
		session.NewService(sqlxrepos.NewTransactor(db), env.sessRepo), receipts, validate,
	)
	return env
}

func (env dbEnv) settle(t *testing.T, s student.Student, amount int64, date core.Date) payment.Payment {
	p, err := env.ledger.Settle(context.Background(), admin, payment.Settlement{
		StudentID:     s.ID,
		FeeID:         env.tuition.ID,
		AmountPaid:    decimal.NewFromInt(amount),
		PaymentMethod: payment.MethodCash,
		PaymentDate:   date,
	})
	require.NoError(t, err)
	return p
}

func TestSessionRepository(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	next := testutil.CreateSession(
		t, env.sessRepo, "2024-2025", core.NewDate(2024, 7, 1), core.NewDate(2025, 6, 30), false,
	)

	active, err := env.sessRepo.GetActiveSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, env.sess.ID, active.ID)

	require.NoError(t, env.sessRepo.ActivateSession(ctx, next.ID))
	active, err = env.sessRepo.GetActiveSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, next.ID, active.ID)
	assert.True(t, active.StartDate.Equal(core.NewDate(2024, 7, 1)))

	sessions, err := env.sessRepo.QuerySessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, next.ID, sessions[0].ID) // newest first
	assert.False(t, sessions[1].IsActive)

	_, err = env.sessRepo.GetSessionByID(ctx, 999)
	assert.True(t, core.IsNotFound(err))
}

func TestStudentRepository(t *testing.T) {
	env := setup(t)
	repo := sqlxrepos.NewStudentRepository(env.db)
	ctx := context.Background()

	s, err := repo.GetStudentByID(ctx, env.bca2.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ravi", s.Name)
	assert.Equal(t, null.StringFrom("BCA302@college.test"), s.Email)

	_, err = repo.GetStudentByID(ctx, 999)
	assert.True(t, core.IsNotFound(err))

	students, err := repo.QueryStudents(ctx, student.Target{Department: null.StringFrom("BCA"), Semester: null.IntFrom(3)})
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "BCA301", students[0].RollNo)
}

func TestFeeRepository(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	exam := testutil.CreateFee(t, env.feeRepo, env.sess.ID, "Exam", 400, core.NewDate(2024, 2, 1))
	testutil.CreateFee(t, env.feeRepo, env.sess.ID, "Bus", 300, core.NewDate(2024, 2, 1), testutil.Retired())

	got, err := env.feeRepo.GetFeeByID(ctx, env.tuition.ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, null.StringFrom("BCA"), got.Department)
	assert.False(t, got.Program.Valid)

	fees, err := env.feeRepo.QueryFees(ctx, fee.QueryFilter{SessionID: env.sess.ID, Status: fee.StatusActive})
	require.NoError(t, err)
	assert.Len(t, fees, 2)

	require.NoError(t, env.feeRepo.SetFeeStatus(ctx, exam.ID, fee.StatusRetired, exam.UpdatedAt))
	got, err = env.feeRepo.GetFeeByID(ctx, exam.ID)
	require.NoError(t, err)
	assert.Equal(t, fee.StatusRetired, got.Status)

	_, err = env.feeRepo.GetFeeByID(ctx, 999)
	assert.True(t, core.IsNotFound(err))
}

func TestPaymentRepository_settle(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	p := env.settle(t, env.bca1, 1250, core.NewDate(2024, 1, 15))
	assert.True(t, p.LateFine.Equal(decimal.NewFromInt(250)))
	assert.True(t, p.AmountPaid.Equal(decimal.NewFromInt(1000)))

	found, err := env.payRepo.HasCompletedPayment(ctx, env.bca1.ID, env.tuition.ID)
	require.NoError(t, err)
	assert.True(t, found)

	// the unique index rejects what the pre-check lets through
	dup := p
	dup.ReceiptNumber += "0"
	_, err = env.payRepo.CreatePayment(ctx, dup)
	assert.True(t, core.IsConflict(err))

	detail, err := env.payRepo.GetPaymentByReceipt(ctx, p.ReceiptNumber)
	require.NoError(t, err)
	assert.Equal(t, "Tuition", detail.FeeType)
	assert.Equal(t, "BCA301", detail.RollNo)

	_, err = env.payRepo.GetPaymentByReceipt(ctx, "RCP0")
	assert.True(t, core.IsNotFound(err))
}

func TestPaymentRepository_concurrentSettle(t *testing.T) {
	env := setup(t)

	const attempts = 10
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.ledger.Settle(context.Background(), admin, payment.Settlement{
				StudentID:     env.bca2.ID,
				FeeID:         env.tuition.ID,
				AmountPaid:    decimal.NewFromInt(1000),
				PaymentMethod: payment.MethodOnline,
				PaymentDate:   core.NewDate(2024, 1, 5),
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case core.IsConflict(err):
			conflicts++
		default:
			t.Errorf("Settle() unexpected error = %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, attempts-1, conflicts)
}

func TestPaymentRepository_QueryPayments(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	env.settle(t, env.bca1, 1000, core.NewDate(2024, 1, 8))
	env.settle(t, env.bca2, 1100, core.NewDate(2024, 1, 12))

	payments, total, err := env.payRepo.QueryPayments(ctx, payment.QueryFilter{}, core.Page{Number: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, payments, 1)
	assert.Equal(t, env.bca2.ID, payments[0].StudentID) // newest first

	payments, total, err = env.payRepo.QueryPayments(ctx, payment.QueryFilter{
		StartDate: core.NewDate(2024, 1, 1),
		EndDate:   core.NewDate(2024, 1, 10),
	}, core.Page{Number: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, payments, 1)
	assert.Equal(t, env.bca1.ID, payments[0].StudentID)

	payments, err = env.payRepo.QueryStudentPayments(ctx, env.bba1.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestReportRepository(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	repo := sqlxrepos.NewReportRepository(env.db)

	env.settle(t, env.bca1, 1250, core.NewDate(2024, 1, 15))

	rows, err := repo.QueryPendingPairs(ctx, env.sess.ID, report.PendingFilter{Department: null.StringFrom("BCA")})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, env.bca2.ID, rows[0].StudentID)
	assert.Equal(t, env.tuition.ID, rows[0].FeeID)

	rows, err = repo.QueryPendingPairs(ctx, env.sess.ID, report.PendingFilter{Department: null.StringFrom("BBA")})
	require.NoError(t, err)
	assert.Empty(t, rows)

	totals, err := repo.QueryFeeTypeTotals(ctx, env.sess.ID, report.SummaryFilter{})
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, "Tuition", totals[0].FeeType)
	assert.True(t, totals[0].Collected.Equal(decimal.NewFromInt(1250)), totals[0].Collected.String())
	assert.True(t, totals[0].LateFines.Equal(decimal.NewFromInt(250)), totals[0].LateFines.String())
	assert.True(t, totals[0].Pending.Equal(decimal.NewFromInt(1000)), totals[0].Pending.String())
	assert.Equal(t, 1, totals[0].CompletedPayments)

	months, err := repo.QueryMonthlyCollections(ctx, env.sess.ID, report.SummaryFilter{
		StartDate: core.NewDate(2024, 1, 1),
		EndDate:   core.NewDate(2024, 1, 31),
	})
	require.NoError(t, err)
	require.Len(t, months, 1)
	assert.Equal(t, "2024-01", months[0].Month)
	assert.Equal(t, 1, months[0].PaymentCount)
}
