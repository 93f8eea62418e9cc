package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/bursary/core"
	"github.com/trezcool/bursary/core/fee"
	"github.com/trezcool/bursary/core/report"
	"github.com/trezcool/bursary/core/student"
)

type reportRepository struct {
	db *DB
}

var _ report.Repository = (*reportRepository)(nil)

func NewReportRepository(db *DB) report.Repository {
	return &reportRepository{db: db}
}

// settled must be called with the read lock held.
func (repo *reportRepository) settled() map[[2]int64]bool {
	paid := make(map[[2]int64]bool)
	for _, p := range repo.db.payments {
		if p.IsCompleted() {
			paid[[2]int64{p.StudentID, p.FeeID}] = true
		}
	}
	return paid
}

func (repo *reportRepository) sessionStudents(sessionID int64, department string) []student.Student {
	var students []student.Student
	for _, s := range repo.db.students {
		if s.SessionID == sessionID && (department == "" || s.Department == department) {
			students = append(students, s)
		}
	}
	return students
}

func (repo *reportRepository) QueryPendingPairs(_ context.Context, sessionID int64, filter report.PendingFilter, _ ...core.DBExecutor) ([]report.PendingRow, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	paid := repo.settled()
	students := repo.sessionStudents(sessionID, filter.Department.String)

	var rows []report.PendingRow
	for _, f := range repo.db.fees {
		if f.SessionID != sessionID || !f.IsActive() {
			continue
		}
		if filter.FeeType.Valid && f.FeeType != filter.FeeType.String {
			continue
		}
		for _, s := range students {
			if !fee.Matches(f, s) || paid[[2]int64{s.ID, f.ID}] {
				continue
			}
			rows = append(rows, report.PendingRow{
				StudentID:      s.ID,
				RollNo:         s.RollNo,
				Name:           s.Name,
				Department:     s.Department,
				Semester:       s.Semester,
				FeeID:          f.ID,
				FeeType:        f.FeeType,
				FeeName:        f.FeeName,
				Amount:         f.Amount,
				DueDate:        f.DueDate,
				LateFinePerDay: f.LateFinePerDay,
				MaxLateFine:    f.MaxLateFine,
			})
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		switch {
		case a.Department != b.Department:
			return a.Department < b.Department
		case a.Semester != b.Semester:
			return a.Semester < b.Semester
		case a.RollNo != b.RollNo:
			return a.RollNo < b.RollNo
		case !a.DueDate.Equal(b.DueDate):
			return a.DueDate.Before(b.DueDate)
		}
		return a.FeeID < b.FeeID
	})
	return rows, nil
}

// scopedFees must be called with the read lock held.
func (repo *reportRepository) scopedFees(sessionID int64, filter report.SummaryFilter) map[int64]fee.Fee {
	fees := make(map[int64]fee.Fee)
	for _, f := range repo.db.fees {
		switch {
		case f.SessionID != sessionID || !f.IsActive():
			continue
		case !filter.StartDate.IsZero() && f.DueDate.Before(filter.StartDate):
			continue
		case !filter.EndDate.IsZero() && f.DueDate.After(filter.EndDate):
			continue
		case filter.Department.Valid && f.Department.Valid && f.Department.String != filter.Department.String:
			continue
		}
		fees[f.ID] = f
	}
	return fees
}

// inDepartment must be called with the read lock held.
func (repo *reportRepository) inDepartment(studentID int64, department string) bool {
	if department == "" {
		return true
	}
	s, ok := repo.db.students[studentID]
	return ok && s.Department == department
}

func (repo *reportRepository) QueryFeeTypeTotals(_ context.Context, sessionID int64, filter report.SummaryFilter, _ ...core.DBExecutor) ([]report.FeeTypeTotals, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	fees := repo.scopedFees(sessionID, filter)
	totals := make(map[string]*report.FeeTypeTotals)
	get := func(feeType string) *report.FeeTypeTotals {
		t, ok := totals[feeType]
		if !ok {
			t = &report.FeeTypeTotals{FeeType: feeType}
			totals[feeType] = t
		}
		return t
	}

	for _, f := range fees {
		get(f.FeeType).TotalFees++
	}
	for _, p := range repo.db.payments {
		f, ok := fees[p.FeeID]
		if !ok || !p.IsCompleted() || !repo.inDepartment(p.StudentID, filter.Department.String) {
			continue
		}
		t := get(f.FeeType)
		t.Collected = t.Collected.Add(p.TotalAmount)
		t.LateFines = t.LateFines.Add(p.LateFine)
		t.CompletedPayments++
	}

	paid := repo.settled()
	students := repo.sessionStudents(sessionID, filter.Department.String)
	for _, f := range fees {
		for _, s := range students {
			if fee.Matches(f, s) && !paid[[2]int64{s.ID, f.ID}] {
				t := get(f.FeeType)
				t.Pending = t.Pending.Add(f.Amount)
			}
		}
	}

	rows := make([]report.FeeTypeTotals, 0, len(totals))
	for _, t := range totals {
		rows = append(rows, *t)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].FeeType < rows[j].FeeType })
	return rows, nil
}

func (repo *reportRepository) QueryMonthlyCollections(_ context.Context, sessionID int64, filter report.SummaryFilter, _ ...core.DBExecutor) ([]report.MonthTotals, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	// the period bounds payment dates here, not due dates
	fees := repo.scopedFees(sessionID, report.SummaryFilter{Department: filter.Department})
	months := make(map[string]*report.MonthTotals)
	for _, p := range repo.db.payments {
		if _, ok := fees[p.FeeID]; !ok || !p.IsCompleted() {
			continue
		}
		if p.PaymentDate.Before(filter.StartDate) || p.PaymentDate.After(filter.EndDate) {
			continue
		}
		if !repo.inDepartment(p.StudentID, filter.Department.String) {
			continue
		}
		key := p.PaymentDate.Month()
		m, ok := months[key]
		if !ok {
			m = &report.MonthTotals{Month: key}
			months[key] = m
		}
		m.Amount = m.Amount.Add(p.TotalAmount)
		m.PaymentCount++
	}

	rows := make([]report.MonthTotals, 0, len(months))
	for _, m := range months {
		rows = append(rows, *m)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Month < rows[j].Month })
	return rows, nil
}
