package student

import (
	"context"

	"github.com/trezcool/bursary/core"
)

type (
	Repository interface {
		// GetStudentByID returns a core.NotFoundError for unknown IDs.
		GetStudentByID(ctx context.Context, id int64, exec ...core.DBExecutor) (Student, error)
		// QueryStudents returns the students matching every set field of target.
		QueryStudents(ctx context.Context, target Target, exec ...core.DBExecutor) ([]Student, error)
	}

	// Directory is the read-only student lookup.
	Directory struct {
		repo Repository
	}
)

func NewDirectory(repo Repository) *Directory {
	return &Directory{repo: repo}
}

func (d *Directory) GetByID(ctx context.Context, id int64) (Student, error) {
	return d.repo.GetStudentByID(ctx, id)
}

func (d *Directory) Query(ctx context.Context, target Target) ([]Student, error) {
	return d.repo.QueryStudents(ctx, target)
}
