package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/bursary/core"
	"github.com/trezcool/bursary/core/fee"
)

var nowFunc = time.Now // mockable

type feeRepository struct {
	db *DB
}

var _ fee.Repository = (*feeRepository)(nil)

func NewFeeRepository(db *DB) fee.Repository {
	return &feeRepository{db: db}
}

func (repo *feeRepository) CreateFee(_ context.Context, f fee.Fee, _ ...core.DBExecutor) (fee.Fee, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	f.ID = repo.db.nextPK()
	repo.db.fees[f.ID] = f
	return f, nil
}

func (repo *feeRepository) GetFeeByID(_ context.Context, id int64, _ ...core.DBExecutor) (fee.Fee, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if f, ok := repo.db.fees[id]; ok {
		return f, nil
	}
	return fee.Fee{}, core.NewNotFoundError("fee", id)
}

// GetFeeForUpdate does not lock anything: transactions are serialized already.
func (repo *feeRepository) GetFeeForUpdate(ctx context.Context, id int64, exec ...core.DBExecutor) (fee.Fee, error) {
	return repo.GetFeeByID(ctx, id, exec...)
}

func filtersFee(qf fee.QueryFilter, f fee.Fee) bool {
	switch {
	case qf.SessionID != 0 && f.SessionID != qf.SessionID:
		return false
	case qf.Semester.Valid && f.Semester.Valid && f.Semester.Int != qf.Semester.Int:
		return false
	case qf.Department.Valid && f.Department.Valid && f.Department.String != qf.Department.String:
		return false
	case qf.Status != "" && f.Status != qf.Status:
		return false
	}
	return true
}

// sortFees orders fees by due date, semester (nulls last) and fee type.
func sortFees(fees []fee.Fee) {
	sort.Slice(fees, func(i, j int) bool {
		a, b := fees[i], fees[j]
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		if a.Semester.Valid != b.Semester.Valid {
			return a.Semester.Valid
		}
		if a.Semester.Int != b.Semester.Int {
			return a.Semester.Int < b.Semester.Int
		}
		if a.FeeType != b.FeeType {
			return a.FeeType < b.FeeType
		}
		return a.ID < b.ID
	})
}

func (repo *feeRepository) QueryFees(_ context.Context, filter fee.QueryFilter, _ ...core.DBExecutor) ([]fee.Fee, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var fees []fee.Fee
	for _, f := range repo.db.fees {
		if filtersFee(filter, f) {
			fees = append(fees, f)
		}
	}
	sortFees(fees)
	return fees, nil
}

func (repo *feeRepository) UpdateFee(_ context.Context, f fee.Fee, _ ...core.DBExecutor) (fee.Fee, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.fees[f.ID]
	if !ok {
		return fee.Fee{}, core.NewNotFoundError("fee", f.ID)
	}
	// only save mutable fields
	orig.FeeType = f.FeeType
	orig.FeeName = f.FeeName
	orig.Amount = f.Amount
	orig.DueDate = f.DueDate
	orig.LateFinePerDay = f.LateFinePerDay
	orig.MaxLateFine = f.MaxLateFine
	orig.Semester = f.Semester
	orig.Department = f.Department
	orig.Program = f.Program
	orig.Description = f.Description
	orig.UpdatedAt = f.UpdatedAt

	repo.db.fees[f.ID] = orig
	return orig, nil
}

func (repo *feeRepository) SetFeeStatus(_ context.Context, id int64, status fee.Status, updatedAt time.Time, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	f, ok := repo.db.fees[id]
	if !ok {
		return core.NewNotFoundError("fee", id)
	}
	f.Status = status
	f.UpdatedAt = updatedAt
	repo.db.fees[id] = f
	return nil
}

func (repo *feeRepository) CreateNotification(_ context.Context, n fee.Notification, _ ...core.DBExecutor) (fee.Notification, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.fees[n.FeeID]; !ok {
		return fee.Notification{}, core.NewNotFoundError("fee", n.FeeID)
	}
	n.ID = repo.db.nextPK()
	repo.db.notifications[n.ID] = n
	return n, nil
}

// Notifications returns the recorded notifications of a fee, for assertions in tests.
func (db *DB) Notifications(feeID int64) []fee.Notification {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var notifs []fee.Notification
	for _, n := range db.notifications {
		if n.FeeID == feeID {
			notifs = append(notifs, n)
		}
	}
	sort.Slice(notifs, func(i, j int) bool { return notifs[i].ID < notifs[j].ID })
	return notifs
}
