package session

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/bursary/core"
)

type (
	Repository interface {
		// GetActiveSession returns core.ErrNoActiveSession when no session is active.
		GetActiveSession(ctx context.Context, exec ...core.DBExecutor) (Session, error)
		GetSessionByID(ctx context.Context, id int64, exec ...core.DBExecutor) (Session, error)
		QuerySessions(ctx context.Context, exec ...core.DBExecutor) ([]Session, error)
		CreateSession(ctx context.Context, s Session, exec ...core.DBExecutor) (Session, error)
		// ActivateSession deactivates every session but the one with the given ID.
		ActivateSession(ctx context.Context, id int64, exec ...core.DBExecutor) error
	}

	// Resolver exposes the current active academic term.
	Resolver interface {
		Active(ctx context.Context) (Session, error)
	}

	Service struct {
		tx   core.Transactor
		repo Repository
	}
)

var _ Resolver = (*Service)(nil)

func NewService(tx core.Transactor, repo Repository) *Service {
	return &Service{tx: tx, repo: repo}
}

func (svc *Service) Active(ctx context.Context) (Session, error) {
	return svc.repo.GetActiveSession(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id int64) (Session, error) {
	return svc.repo.GetSessionByID(ctx, id)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Session, error) {
	return svc.repo.QuerySessions(ctx)
}

func (svc *Service) Create(ctx context.Context, validate *validator.Validate, ns NewSession) (Session, error) {
	ns.Clean()
	if err := validate.Struct(ns); err != nil {
		return Session{}, err
	}
	if ns.EndDate.Before(ns.StartDate) {
		return Session{}, core.NewValidationError(nil, core.FieldError{Field: "end_date", Error: "end_date must not be before start_date"})
	}
	s, err := svc.repo.CreateSession(ctx, Session{Name: ns.Name, StartDate: ns.StartDate, EndDate: ns.EndDate})
	return s, errors.Wrap(err, "creating session")
}

// Activate makes the session with the given ID the only active one.
func (svc *Service) Activate(ctx context.Context, id int64) (Session, error) {
	var s Session
	err := svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if s, err = svc.repo.GetSessionByID(ctx, id, exec); err != nil {
			return err
		}
		if err = svc.repo.ActivateSession(ctx, id, exec); err != nil {
			return err
		}
		s.IsActive = true
		return nil
	})
	return s, errors.Wrap(err, "activating session")
}
