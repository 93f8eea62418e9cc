package core

// Actor is the verified identity behind a request.
type Actor struct {
	ID        string
	Name      string
	IsAdmin   bool
	IsStudent bool
	StudentID int64 // set for students only
}

// CanAccessStudent reports whether the actor may read the records of the student with the given ID.
func (a Actor) CanAccessStudent(studentID int64) bool {
	if a.IsAdmin {
		return true
	}
	return a.IsStudent && a.StudentID != 0 && a.StudentID == studentID
}
