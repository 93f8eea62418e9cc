package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/bursary/core"
	"github.com/trezcool/bursary/core/fee"
)

var (
	feeColumns = []string{
		"id", "fee_type", "fee_name", "amount", "due_date", "late_fine_per_day", "max_late_fine",
		"semester", "department", "program", "session_id", "description", "status",
		"created_by", "created_at", "updated_at",
	}
	notificationColumns = []string{
		"id", "fee_id", "title", "message", "target_department", "target_semester", "target_program",
		"sent_by", "recipients", "created_at",
	}
)

type feeRepository struct {
	repository
}

var _ fee.Repository = (*feeRepository)(nil) // interface compliance check

func NewFeeRepository(db *sqlx.DB) fee.Repository {
	return &feeRepository{repository{db: db}}
}

func (repo feeRepository) CreateFee(ctx context.Context, f fee.Fee, exec ...core.DBExecutor) (fee.Fee, error) {
	q := psql.Insert("fees").
		Columns(
			"fee_type", "fee_name", "amount", "due_date", "late_fine_per_day", "max_late_fine",
			"semester", "department", "program", "session_id", "description", "status",
			"created_by", "created_at", "updated_at",
		).
		Values(
			f.FeeType, f.FeeName, f.Amount, f.DueDate, f.LateFinePerDay, f.MaxLateFine,
			f.Semester, f.Department, f.Program, f.SessionID, f.Description, f.Status,
			f.CreatedBy, f.CreatedAt, f.UpdatedAt,
		).
		Suffix("RETURNING " + joinColumns(feeColumns))

	var created fee.Fee
	if err := getRow(ctx, repo.getExec(exec), &created, q); err != nil {
		return fee.Fee{}, core.NewPersistenceError(err, "inserting fee", core.LogFields{"session_id": f.SessionID})
	}
	return created, nil
}

func (repo feeRepository) getFee(ctx context.Context, id int64, forUpdate bool, exec []core.DBExecutor) (fee.Fee, error) {
	q := psql.Select(feeColumns...).From("fees").Where(sq.Eq{"id": id})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}
	var f fee.Fee
	if err := getRow(ctx, repo.getExec(exec), &f, q); err != nil {
		return fee.Fee{}, trapNoRowsErr(err, "fee", id, "getting fee")
	}
	return f, nil
}

func (repo feeRepository) GetFeeByID(ctx context.Context, id int64, exec ...core.DBExecutor) (fee.Fee, error) {
	return repo.getFee(ctx, id, false, exec)
}

func (repo feeRepository) GetFeeForUpdate(ctx context.Context, id int64, exec ...core.DBExecutor) (fee.Fee, error) {
	return repo.getFee(ctx, id, true, exec)
}

func (repo feeRepository) QueryFees(ctx context.Context, filter fee.QueryFilter, exec ...core.DBExecutor) ([]fee.Fee, error) {
	where := sq.And{}
	if filter.SessionID != 0 {
		where = append(where, sq.Eq{"session_id": filter.SessionID})
	}
	if filter.Semester.Valid {
		where = append(where, sq.Or{sq.Eq{"semester": nil}, sq.Eq{"semester": filter.Semester.Int}})
	}
	if filter.Department.Valid {
		where = append(where, sq.Or{sq.Eq{"department": nil}, sq.Eq{"department": filter.Department.String}})
	}
	if filter.Status != "" {
		where = append(where, sq.Eq{"status": filter.Status})
	}

	var fees []fee.Fee
	q := psql.Select(feeColumns...).From("fees").Where(where).OrderBy("due_date", "semester", "fee_type", "id")
	if err := selectRows(ctx, repo.getExec(exec), &fees, q); err != nil {
		return nil, core.NewPersistenceError(err, "querying fees")
	}
	return fees, nil
}

func (repo feeRepository) UpdateFee(ctx context.Context, f fee.Fee, exec ...core.DBExecutor) (fee.Fee, error) {
	q := psql.Update("fees").
		SetMap(map[string]interface{}{
			"fee_type":          f.FeeType,
			"fee_name":          f.FeeName,
			"amount":            f.Amount,
			"due_date":          f.DueDate,
			"late_fine_per_day": f.LateFinePerDay,
			"max_late_fine":     f.MaxLateFine,
			"semester":          f.Semester,
			"department":        f.Department,
			"program":           f.Program,
			"description":       f.Description,
			"updated_at":        f.UpdatedAt,
		}).
		Where(sq.Eq{"id": f.ID}).
		Suffix("RETURNING " + joinColumns(feeColumns))

	var updated fee.Fee
	if err := getRow(ctx, repo.getExec(exec), &updated, q); err != nil {
		return fee.Fee{}, trapNoRowsErr(err, "fee", f.ID, "updating fee")
	}
	return updated, nil
}

func (repo feeRepository) SetFeeStatus(ctx context.Context, id int64, status fee.Status, updatedAt time.Time, exec ...core.DBExecutor) error {
	q := psql.Update("fees").Set("status", status).Set("updated_at", updatedAt).Where(sq.Eq{"id": id})
	res, err := execStmt(ctx, repo.getExec(exec), q)
	if err != nil {
		return core.NewPersistenceError(err, "setting fee status", core.LogFields{"status": status})
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.NewNotFoundError("fee", id)
	}
	return nil
}

func (repo feeRepository) CreateNotification(ctx context.Context, n fee.Notification, exec ...core.DBExecutor) (fee.Notification, error) {
	q := psql.Insert("fee_notifications").
		Columns(
			"fee_id", "title", "message", "target_department", "target_semester", "target_program",
			"sent_by", "recipients", "created_at",
		).
		Values(
			n.FeeID, n.Title, n.Message, n.TargetDepartment, n.TargetSemester, n.TargetProgram,
			n.SentBy, n.Recipients, n.CreatedAt,
		).
		Suffix("RETURNING " + joinColumns(notificationColumns))

	var created fee.Notification
	if err := getRow(ctx, repo.getExec(exec), &created, q); err != nil {
		return fee.Notification{}, core.NewPersistenceError(err, "inserting fee notification")
	}
	return created, nil
}
