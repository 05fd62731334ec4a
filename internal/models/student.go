package models

import (
	"strings"
	"time"
)

// Student represents a learner enrolled in a section.
type Student struct {
	ID           string    `db:"id" json:"id"`
	FirstNames   string    `db:"first_names" json:"first_names"`
	LastNames    string    `db:"last_names" json:"last_names"`
	Email        *string   `db:"email" json:"email,omitempty"`
	ProgressCode string    `db:"progress_code" json:"progress_code"`
	SectionID    string    `db:"section_id" json:"section_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// DisplayName renders the student as "<last names> <first names>".
func (s *Student) DisplayName() string {
	return strings.TrimSpace(strings.TrimSpace(s.LastNames) + " " + strings.TrimSpace(s.FirstNames))
}
