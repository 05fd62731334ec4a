package models

import "time"

// Subject is an academic subject optionally owned by a teacher.
type Subject struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	TeacherID   *string   `db:"teacher_id" json:"teacher_id,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// OwnerID returns the owning teacher id or an empty string.
func (s *Subject) OwnerID() string {
	if s == nil || s.TeacherID == nil {
		return ""
	}
	return *s.TeacherID
}
