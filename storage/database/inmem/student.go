package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/bursary/core"
	"github.com/trezcool/bursary/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) GetStudentByID(_ context.Context, id int64, _ ...core.DBExecutor) (student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if s, ok := repo.db.students[id]; ok {
		return s, nil
	}
	return student.Student{}, core.NewNotFoundError("student", id)
}

func targets(t student.Target, s student.Student) bool {
	switch {
	case t.SessionID != 0 && s.SessionID != t.SessionID:
		return false
	case t.Department.Valid && s.Department != t.Department.String:
		return false
	case t.Semester.Valid && s.Semester != t.Semester.Int:
		return false
	case t.Program.Valid && (!s.Program.Valid || s.Program.String != t.Program.String):
		return false
	}
	return true
}

func (repo *studentRepository) QueryStudents(_ context.Context, target student.Target, _ ...core.DBExecutor) ([]student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var students []student.Student
	for _, s := range repo.db.students {
		if targets(target, s) {
			students = append(students, s)
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].RollNo < students[j].RollNo })
	return students, nil
}
