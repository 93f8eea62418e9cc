package fee

import (
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/bursary/core/student"
)

// Matches reports whether the fee binds the student.
// Each of the fee's semester, department and program is either null (any value) or equal to the student's.
func Matches(f Fee, s student.Student) bool {
	return matchInt(f.Semester, s.Semester) &&
		matchString(f.Department, s.Department) &&
		matchString(f.Program, s.Program.String)
}

func matchInt(scope null.Int, v int) bool {
	return !scope.Valid || scope.Int == v
}

func matchString(scope null.String, v string) bool {
	return !scope.Valid || scope.String == v
}
