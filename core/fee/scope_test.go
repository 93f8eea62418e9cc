package fee

import (
	"testing"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/bursary/core/student"
)

func TestMatches(t *testing.T) {
	bca3 := student.Student{ID: 1, Department: "BCA", Semester: 3, Program: null.StringFrom("UG")}
	bba3 := student.Student{ID: 2, Department: "BBA", Semester: 3, Program: null.StringFrom("UG")}
	noProgram := student.Student{ID: 3, Department: "BCA", Semester: 3}

	tests := []struct {
		name    string
		fee     Fee
		student student.Student
		want    bool
	}{
		{name: "all wildcards", fee: Fee{}, student: bca3, want: true},
		{name: "department match", fee: Fee{Department: null.StringFrom("BCA")}, student: bca3, want: true},
		{name: "department mismatch", fee: Fee{Department: null.StringFrom("BCA")}, student: bba3, want: false},
		{name: "semester match", fee: Fee{Semester: null.IntFrom(3)}, student: bca3, want: true},
		{name: "semester mismatch", fee: Fee{Semester: null.IntFrom(4)}, student: bca3, want: false},
		{name: "program match", fee: Fee{Program: null.StringFrom("UG")}, student: bca3, want: true},
		{name: "program set, student has none", fee: Fee{Program: null.StringFrom("UG")}, student: noProgram, want: false},
		{
			name:    "all dimensions match",
			fee:     Fee{Department: null.StringFrom("BCA"), Semester: null.IntFrom(3), Program: null.StringFrom("UG")},
			student: bca3, want: true,
		},
		{
			name:    "one dimension off",
			fee:     Fee{Department: null.StringFrom("BCA"), Semester: null.IntFrom(3), Program: null.StringFrom("PG")},
			student: bca3, want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.fee, tt.student); got != tt.want {
				t.Errorf("Matches() = %v; want %v", got, tt.want)
			}
		})
	}
}
