package models

import "time"

// Term is one of the three grading periods of a school year.
type Term struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	SchoolYear int       `db:"school_year" json:"school_year"`
	StartDate  time.Time `db:"start_date" json:"start_date"`
	EndDate    time.Time `db:"end_date" json:"end_date"`
	Active     bool      `db:"active" json:"active"`
}
