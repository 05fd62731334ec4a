package models

// Section is a grade level and section pair, e.g. "7" "A", optionally owned by a teacher.
type Section struct {
	ID         string  `db:"id" json:"id"`
	Level      string  `db:"level" json:"level"`
	Section    string  `db:"section" json:"section"`
	SchoolYear int     `db:"school_year" json:"school_year"`
	TeacherID  *string `db:"teacher_id" json:"teacher_id,omitempty"`
}

// OwnerID returns the owning teacher id or an empty string.
func (s *Section) OwnerID() string {
	if s == nil || s.TeacherID == nil {
		return ""
	}
	return *s.TeacherID
}
