package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/bursary/core"
	"github.com/trezcool/bursary/core/session"
)

var sessionColumns = []string{"id", "name", "start_date", "end_date", "is_active", "created_at"}

type sessionRepository struct {
	repository
}

var _ session.Repository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *sqlx.DB) session.Repository {
	return &sessionRepository{repository{db: db}}
}

func (repo sessionRepository) GetActiveSession(ctx context.Context, exec ...core.DBExecutor) (session.Session, error) {
	var s session.Session
	q := psql.Select(sessionColumns...).From("sessions").Where("is_active").Limit(1)
	if err := getRow(ctx, repo.getExec(exec), &s, q); err != nil {
		if err = trapNoRowsErr(err, "session", nil, "getting active session"); core.IsNotFound(err) {
			return session.Session{}, core.ErrNoActiveSession
		}
		return session.Session{}, err
	}
	return s, nil
}

func (repo sessionRepository) GetSessionByID(ctx context.Context, id int64, exec ...core.DBExecutor) (session.Session, error) {
	var s session.Session
	q := psql.Select(sessionColumns...).From("sessions").Where(sq.Eq{"id": id})
	if err := getRow(ctx, repo.getExec(exec), &s, q); err != nil {
		return session.Session{}, trapNoRowsErr(err, "session", id, "getting session")
	}
	return s, nil
}

func (repo sessionRepository) QuerySessions(ctx context.Context, exec ...core.DBExecutor) ([]session.Session, error) {
	var sessions []session.Session
	q := psql.Select(sessionColumns...).From("sessions").OrderBy("start_date DESC", "id DESC")
	if err := selectRows(ctx, repo.getExec(exec), &sessions, q); err != nil {
		return nil, core.NewPersistenceError(err, "querying sessions")
	}
	return sessions, nil
}

func (repo sessionRepository) CreateSession(ctx context.Context, s session.Session, exec ...core.DBExecutor) (session.Session, error) {
	q := psql.Insert("sessions").
		Columns("name", "start_date", "end_date", "is_active").
		Values(s.Name, s.StartDate, s.EndDate, false).
		Suffix("RETURNING " + joinColumns(sessionColumns))
	var created session.Session
	if err := getRow(ctx, repo.getExec(exec), &created, q); err != nil {
		return session.Session{}, core.NewPersistenceError(err, "inserting session")
	}
	return created, nil
}

func (repo sessionRepository) ActivateSession(ctx context.Context, id int64, exec ...core.DBExecutor) error {
	e := repo.getExec(exec)
	// two statements: the single active session index is checked row by row
	deactivate := psql.Update("sessions").Set("is_active", false).Where(sq.And{sq.Expr("is_active"), sq.NotEq{"id": id}})
	if _, err := execStmt(ctx, e, deactivate); err != nil {
		return core.NewPersistenceError(err, "deactivating sessions", core.LogFields{"session_id": id})
	}

	activate := psql.Update("sessions").Set("is_active", true).Where(sq.Eq{"id": id})
	res, err := execStmt(ctx, e, activate)
	if err != nil {
		return core.NewPersistenceError(err, "activating session", core.LogFields{"session_id": id})
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.NewNotFoundError("session", id)
	}
	return nil
}
