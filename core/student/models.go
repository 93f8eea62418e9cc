package student

import "github.com/volatiletech/null/v8"

// Student is the read-only view of a student used for fee scoping.
type Student struct {
	ID         int64       `json:"id" db:"id"`
	RollNo     string      `json:"roll_no" db:"roll_no"`
	Name       string      `json:"name" db:"name"`
	Email      null.String `json:"email" db:"email"`
	Department string      `json:"department" db:"department"`
	Semester   int         `json:"semester" db:"semester"`
	Program    null.String `json:"program" db:"program"`
	SessionID  int64       `json:"session_id" db:"session_id"`
	UserID     string      `json:"user_id" db:"user_id"`
}

// Year is the approximate year of study, two semesters per year.
func (s Student) Year() int {
	return (s.Semester + 1) / 2
}

// Target narrows down a set of students.
// Zero-valued fields do not filter.
type Target struct {
	SessionID  int64
	Department null.String
	Semester   null.Int
	Program    null.String
}
