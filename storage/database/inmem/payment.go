package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/bursary/core"
	"github.com/trezcool/bursary/core/payment"
)

type paymentRepository struct {
	db *DB
}

var _ payment.Repository = (*paymentRepository)(nil)

func NewPaymentRepository(db *DB) payment.Repository {
	return &paymentRepository{db: db}
}

func (repo *paymentRepository) completed(studentID, feeID int64) bool {
	for _, p := range repo.db.payments {
		if p.StudentID == studentID && p.FeeID == feeID && p.IsCompleted() {
			return true
		}
	}
	return false
}

func (repo *paymentRepository) HasCompletedPayment(_ context.Context, studentID, feeID int64, _ ...core.DBExecutor) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.completed(studentID, feeID), nil
}

func (repo *paymentRepository) CreatePayment(_ context.Context, p payment.Payment, _ ...core.DBExecutor) (payment.Payment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	// mirror the storage constraints
	if p.IsCompleted() && repo.completed(p.StudentID, p.FeeID) {
		return payment.Payment{}, core.NewConflictError(payment.CodePaymentExists, "payment already exists for this fee")
	}
	for _, other := range repo.db.payments {
		if other.ReceiptNumber == p.ReceiptNumber {
			return payment.Payment{}, core.NewPersistenceError(nil, "duplicate receipt number")
		}
	}
	if !p.AmountPaid.Add(p.LateFine).Equal(p.TotalAmount) {
		return payment.Payment{}, core.NewPersistenceError(nil, "payment totals do not add up")
	}

	p.ID = repo.db.nextPK()
	repo.db.payments[p.ID] = p
	return p, nil
}

// detail must be called with the read lock held.
func (repo *paymentRepository) detail(p payment.Payment) payment.Detail {
	d := payment.Detail{Payment: p}
	if f, ok := repo.db.fees[p.FeeID]; ok {
		d.FeeType = f.FeeType
		d.FeeName = f.FeeName
		d.FeeAmount = f.Amount
		d.Semester = f.Semester
		d.DueDate = f.DueDate
	}
	if s, ok := repo.db.students[p.StudentID]; ok {
		d.RollNo = s.RollNo
		d.StudentName = s.Name
	}
	return d
}

// sortNewestFirst orders payments by payment date then creation time, newest first.
func sortNewestFirst(payments []payment.Detail) {
	sort.Slice(payments, func(i, j int) bool {
		a, b := payments[i], payments[j]
		if !a.PaymentDate.Equal(b.PaymentDate) {
			return a.PaymentDate.After(b.PaymentDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

func (repo *paymentRepository) QueryStudentPayments(_ context.Context, studentID int64, _ ...core.DBExecutor) ([]payment.Detail, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var payments []payment.Detail
	for _, p := range repo.db.payments {
		if p.StudentID == studentID {
			payments = append(payments, repo.detail(p))
		}
	}
	sortNewestFirst(payments)
	return payments, nil
}

func filtersPayment(qf payment.QueryFilter, p payment.Payment) bool {
	switch {
	case qf.StudentID != 0 && p.StudentID != qf.StudentID:
		return false
	case qf.FeeID != 0 && p.FeeID != qf.FeeID:
		return false
	case qf.Status != "" && p.Status != qf.Status:
		return false
	case qf.Method != "" && p.PaymentMethod != qf.Method:
		return false
	case !qf.StartDate.IsZero() && p.PaymentDate.Before(qf.StartDate):
		return false
	case !qf.EndDate.IsZero() && p.PaymentDate.After(qf.EndDate):
		return false
	}
	return true
}

func (repo *paymentRepository) QueryPayments(_ context.Context, filter payment.QueryFilter, page core.Page, _ ...core.DBExecutor) ([]payment.Detail, int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var matches []payment.Detail
	for _, p := range repo.db.payments {
		if filtersPayment(filter, p) {
			matches = append(matches, repo.detail(p))
		}
	}
	sortNewestFirst(matches)

	total := len(matches)
	start := int(page.Offset())
	if start >= total {
		return []payment.Detail{}, total, nil
	}
	end := start + page.Limit
	if end > total {
		end = total
	}
	return matches[start:end], total, nil
}

func (repo *paymentRepository) GetPaymentByReceipt(_ context.Context, receipt string, _ ...core.DBExecutor) (payment.Detail, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, p := range repo.db.payments {
		if p.ReceiptNumber == receipt {
			return repo.detail(p), nil
		}
	}
	return payment.Detail{}, core.NewNotFoundError("payment", receipt)
}
