package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/bursary/core"
	"github.com/trezcool/bursary/core/student"
)

var studentColumns = []string{"id", "user_id", "roll_no", "name", "email", "department", "semester", "program", "session_id"}

type studentRepository struct {
	repository
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) student.Repository {
	return &studentRepository{repository{db: db}}
}

func (repo studentRepository) GetStudentByID(ctx context.Context, id int64, exec ...core.DBExecutor) (student.Student, error) {
	var s student.Student
	q := psql.Select(studentColumns...).From("students").Where(sq.Eq{"id": id})
	if err := getRow(ctx, repo.getExec(exec), &s, q); err != nil {
		return student.Student{}, trapNoRowsErr(err, "student", id, "getting student")
	}
	return s, nil
}

func (repo studentRepository) QueryStudents(ctx context.Context, target student.Target, exec ...core.DBExecutor) ([]student.Student, error) {
	where := sq.Eq{}
	if target.SessionID != 0 {
		where["session_id"] = target.SessionID
	}
	if target.Department.Valid {
		where["department"] = target.Department.String
	}
	if target.Semester.Valid {
		where["semester"] = target.Semester.Int
	}
	if target.Program.Valid {
		where["program"] = target.Program.String
	}

	var students []student.Student
	q := psql.Select(studentColumns...).From("students").Where(where).OrderBy("roll_no")
	if err := selectRows(ctx, repo.getExec(exec), &students, q); err != nil {
		return nil, core.NewPersistenceError(err, "querying students")
	}
	return students, nil
}

// CreateStudent inserts a student. The student directory is read-only for the rest of the app,
// this is meant for fixtures and data imports.
func CreateStudent(ctx context.Context, exec core.DBExecutor, s student.Student) (student.Student, error) {
	q := psql.Insert("students").
		Columns("user_id", "roll_no", "name", "email", "department", "semester", "program", "session_id").
		Values(s.UserID, s.RollNo, s.Name, s.Email, s.Department, s.Semester, s.Program, s.SessionID).
		Suffix("RETURNING " + joinColumns(studentColumns))
	var created student.Student
	if err := getRow(ctx, exec, &created, q); err != nil {
		return student.Student{}, core.NewPersistenceError(err, "inserting student")
	}
	return created, nil
}
