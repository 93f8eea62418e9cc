package fee

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/bursary/core"
	"github.com/trezcool/bursary/core/session"
	"github.com/trezcool/bursary/core/student"
)

const CodeNoFields = "no_fields"

var (
	nowFunc = time.Now // mockable

	errNoFields = core.NewCodedValidationError(CodeNoFields, "no fields to update")
)

type (
	Repository interface {
		CreateFee(ctx context.Context, f Fee, exec ...core.DBExecutor) (Fee, error)
		// GetFeeByID returns a core.NotFoundError for unknown IDs.
		GetFeeByID(ctx context.Context, id int64, exec ...core.DBExecutor) (Fee, error)
		// GetFeeForUpdate is GetFeeByID, locking the row until the end of the transaction.
		GetFeeForUpdate(ctx context.Context, id int64, exec ...core.DBExecutor) (Fee, error)
		// QueryFees returns fees ordered by due date, semester and fee type.
		QueryFees(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Fee, error)
		// UpdateFee persists the mutable fields of f.
		UpdateFee(ctx context.Context, f Fee, exec ...core.DBExecutor) (Fee, error)
		SetFeeStatus(ctx context.Context, id int64, status Status, updatedAt time.Time, exec ...core.DBExecutor) error
		CreateNotification(ctx context.Context, n Notification, exec ...core.DBExecutor) (Notification, error)
	}

	// Catalog manages fee definitions.
	Catalog struct {
		tx       core.Transactor
		repo     Repository
		sessions session.Resolver
		students student.Repository
		mailSvc  core.EmailService
		validate *validator.Validate
	}
)

func NewCatalog(
	tx core.Transactor,
	repo Repository,
	sessions session.Resolver,
	students student.Repository,
	mailSvc core.EmailService,
	validate *validator.Validate,
) *Catalog {
	return &Catalog{
		tx:       tx,
		repo:     repo,
		sessions: sessions,
		students: students,
		mailSvc:  mailSvc,
		validate: validate,
	}
}

// Create adds a new active fee to the active session.
func (c *Catalog) Create(ctx context.Context, actor core.Actor, nf NewFee) (Fee, error) {
	if err := nf.Validate(c.validate); err != nil {
		return Fee{}, err
	}

	sess, err := c.sessions.Active(ctx)
	if err != nil {
		return Fee{}, errors.Wrap(err, "resolving active session")
	}

	now := nowFunc().UTC()
	f := Fee{
		FeeType:        nf.FeeType,
		FeeName:        nf.FeeName,
		Amount:         nf.Amount,
		DueDate:        nf.DueDate,
		LateFinePerDay: nf.LateFinePerDay,
		MaxLateFine:    nf.MaxLateFine,
		Semester:       nf.Semester,
		Department:     nf.Department,
		Program:        nf.Program,
		SessionID:      sess.ID,
		Description:    nf.Description,
		Status:         StatusActive,
		CreatedBy:      actor.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	f, err = c.repo.CreateFee(ctx, f)
	if err != nil {
		return Fee{}, errors.Wrap(core.WithFields(err, core.LogFields{"actor_id": actor.ID}), "creating fee")
	}
	return f, nil
}

func (c *Catalog) Get(ctx context.Context, id int64) (Fee, error) {
	f, err := c.repo.GetFeeByID(ctx, id)
	return f, errors.Wrap(core.WithFields(err, core.LogFields{"fee_id": id}), "getting fee")
}

// Update merges the supplied whitelisted fields into the fee and re-validates it.
func (c *Catalog) Update(ctx context.Context, id int64, uf UpdateFee) (Fee, error) {
	if _, err := c.sessions.Active(ctx); err != nil {
		return Fee{}, errors.Wrap(err, "resolving active session")
	}

	var updated Fee
	err := c.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		orig, err := c.repo.GetFeeForUpdate(ctx, id, exec)
		if err != nil {
			return err
		}

		merged, changed := uf.Apply(orig)
		if !changed {
			return errNoFields
		}
		nf := asNewFee(merged)
		if err = nf.Validate(c.validate); err != nil {
			return err
		}
		merged.FeeType = nf.FeeType
		merged.FeeName = nf.FeeName
		merged.Department = nf.Department
		merged.Program = nf.Program
		merged.Description = nf.Description
		merged.UpdatedAt = nowFunc().UTC()

		updated, err = c.repo.UpdateFee(ctx, merged, exec)
		return err
	})
	if err != nil {
		return Fee{}, errors.Wrap(core.WithFields(err, core.LogFields{"fee_id": id}), "updating fee")
	}
	return updated, nil
}

// Retire takes the fee out of circulation. Payments made against it are kept.
func (c *Catalog) Retire(ctx context.Context, id int64) (RetireResult, error) {
	if _, err := c.sessions.Active(ctx); err != nil {
		return RetireResult{}, errors.Wrap(err, "resolving active session")
	}

	var res RetireResult
	err := c.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		f, err := c.repo.GetFeeForUpdate(ctx, id, exec)
		if err != nil {
			return err
		}
		res = RetireResult{Deleted: true, FeeID: f.ID, FeeName: f.FeeName}
		if !f.IsActive() {
			return nil
		}
		return c.repo.SetFeeStatus(ctx, id, StatusRetired, nowFunc().UTC(), exec)
	})
	if err != nil {
		return RetireResult{}, errors.Wrap(core.WithFields(err, core.LogFields{"fee_id": id}), "retiring fee")
	}
	return res, nil
}

// List returns the fees matching filter, defaulting to the fees of the active session.
func (c *Catalog) List(ctx context.Context, filter QueryFilter) (ListResult, error) {
	filter.Clean()
	if err := filter.Validate(); err != nil {
		return ListResult{}, err
	}
	if filter.SessionID == 0 {
		sess, err := c.sessions.Active(ctx)
		if err != nil {
			return ListResult{}, errors.Wrap(err, "resolving active session")
		}
		filter.SessionID = sess.ID
	}

	fees, err := c.repo.QueryFees(ctx, filter)
	if err != nil {
		return ListResult{}, errors.Wrap(err, "querying fees")
	}
	if fees == nil {
		fees = []Fee{}
	}
	return ListResult{Fees: fees, Total: len(fees), Filters: filter}, nil
}
