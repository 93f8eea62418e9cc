package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/bursary/core"
	"github.com/trezcool/bursary/core/report"
)

// rawQuery is a hand written query using psql placeholders.
type rawQuery struct {
	query string
	args  []interface{}
}

func (q rawQuery) ToSql() (string, []interface{}, error) { return q.query, q.args, nil }

// scopePredicate is the join condition of a fee (f) and the students (s) it applies to.
const scopePredicate = `s.session_id = f.session_id
	AND (f.semester IS NULL OR f.semester = s.semester)
	AND (f.department IS NULL OR f.department = s.department)
	AND (f.program IS NULL OR f.program = s.program)`

const unsettled = `NOT EXISTS (
	SELECT 1 FROM payments p WHERE p.student_id = s.id AND p.fee_id = f.id AND p.status = 'completed'
)`

const pendingPairsQuery = `
SELECT s.id AS student_id, s.roll_no, s.name, s.department, s.semester,
	f.id AS fee_id, f.fee_type, f.fee_name, f.amount, f.due_date, f.late_fine_per_day, f.max_late_fine
FROM fees f
JOIN students s ON ` + scopePredicate + `
WHERE f.session_id = $1 AND f.status = 'active'
	AND ($2::text IS NULL OR s.department = $2)
	AND ($3::text IS NULL OR f.fee_type = $3)
	AND ` + unsettled + `
ORDER BY s.department, s.semester, s.roll_no, f.due_date, f.id`

const feeTypeTotalsQuery = `
WITH scoped_fees AS (
	SELECT f.* FROM fees f
	WHERE f.session_id = $1 AND f.status = 'active'
		AND ($2::date IS NULL OR f.due_date >= $2)
		AND ($3::date IS NULL OR f.due_date <= $3)
		AND ($4::text IS NULL OR f.department IS NULL OR f.department = $4)
), fee_counts AS (
	SELECT fee_type, COUNT(*) AS total_fees FROM scoped_fees GROUP BY fee_type
), collected AS (
	SELECT f.fee_type, SUM(p.total_amount) AS collected, SUM(p.late_fine) AS late_fines, COUNT(*) AS completed_payments
	FROM payments p
	JOIN scoped_fees f ON f.id = p.fee_id
	JOIN students s ON s.id = p.student_id
	WHERE p.status = 'completed' AND ($4::text IS NULL OR s.department = $4)
	GROUP BY f.fee_type
), pending AS (
	SELECT f.fee_type, SUM(f.amount) AS pending
	FROM scoped_fees f
	JOIN students s ON ` + scopePredicate + `
	WHERE ($4::text IS NULL OR s.department = $4) AND ` + unsettled + `
	GROUP BY f.fee_type
)
SELECT c.fee_type, c.total_fees,
	COALESCE(col.collected, 0) AS collected,
	COALESCE(pen.pending, 0) AS pending,
	COALESCE(col.late_fines, 0) AS late_fines,
	COALESCE(col.completed_payments, 0) AS completed_payments
FROM fee_counts c
LEFT JOIN collected col ON col.fee_type = c.fee_type
LEFT JOIN pending pen ON pen.fee_type = c.fee_type
ORDER BY c.fee_type`

// the period bounds payment dates here, not due dates
const monthlyCollectionsQuery = `
SELECT to_char(p.payment_date, 'YYYY-MM') AS month, SUM(p.total_amount) AS amount, COUNT(*) AS payment_count
FROM payments p
JOIN fees f ON f.id = p.fee_id
JOIN students s ON s.id = p.student_id
WHERE p.status = 'completed' AND f.session_id = $1 AND f.status = 'active'
	AND p.payment_date BETWEEN $2 AND $3
	AND ($4::text IS NULL OR f.department IS NULL OR f.department = $4)
	AND ($4::text IS NULL OR s.department = $4)
GROUP BY month
ORDER BY month`

type reportRepository struct {
	repository
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(db *sqlx.DB) report.Repository {
	return &reportRepository{repository{db: db}}
}

func (repo reportRepository) QueryPendingPairs(ctx context.Context, sessionID int64, filter report.PendingFilter, exec ...core.DBExecutor) ([]report.PendingRow, error) {
	var rows []report.PendingRow
	q := rawQuery{query: pendingPairsQuery, args: []interface{}{sessionID, filter.Department, filter.FeeType}}
	if err := selectRows(ctx, repo.getExec(exec), &rows, q); err != nil {
		return nil, core.NewPersistenceError(err, "querying pending pairs")
	}
	return rows, nil
}

func (repo reportRepository) QueryFeeTypeTotals(ctx context.Context, sessionID int64, filter report.SummaryFilter, exec ...core.DBExecutor) ([]report.FeeTypeTotals, error) {
	var rows []report.FeeTypeTotals
	q := rawQuery{
		query: feeTypeTotalsQuery,
		args:  []interface{}{sessionID, filter.StartDate, filter.EndDate, filter.Department},
	}
	if err := selectRows(ctx, repo.getExec(exec), &rows, q); err != nil {
		return nil, core.NewPersistenceError(err, "querying fee type totals")
	}
	return rows, nil
}

func (repo reportRepository) QueryMonthlyCollections(ctx context.Context, sessionID int64, filter report.SummaryFilter, exec ...core.DBExecutor) ([]report.MonthTotals, error) {
	var rows []report.MonthTotals
	q := rawQuery{
		query: monthlyCollectionsQuery,
		args:  []interface{}{sessionID, filter.StartDate, filter.EndDate, filter.Department},
	}
	if err := selectRows(ctx, repo.getExec(exec), &rows, q); err != nil {
		return nil, core.NewPersistenceError(err, "querying monthly collections")
	}
	return rows, nil
}
