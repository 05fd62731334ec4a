package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Grade is the score one student obtained in one activity.
type Grade struct {
	ID         string          `db:"id" json:"id"`
	StudentID  string          `db:"student_id" json:"student_id"`
	ActivityID string          `db:"activity_id" json:"activity_id"`
	Score      decimal.Decimal `db:"score" json:"score"`
	Remark     *string         `db:"remark" json:"remark,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

// ScoredGrade joins a grade with the activity attributes the report card needs.
type ScoredGrade struct {
	GradeID     string          `db:"grade_id"`
	Score       decimal.Decimal `db:"score"`
	Weight      decimal.Decimal `db:"weight"`
	TermName    string          `db:"term_name"`
	SubjectID   string          `db:"subject_id"`
	SubjectName string          `db:"subject_name"`
}

// GradeSheetRow is one line of a section grade sheet for a single activity. Grade fields
// are null when the student has not been graded yet.
type GradeSheetRow struct {
	StudentID  string              `db:"student_id" json:"student_id"`
	FirstNames string              `db:"first_names" json:"first_names"`
	LastNames  string              `db:"last_names" json:"last_names"`
	GradeID    *string             `db:"grade_id" json:"grade_id,omitempty"`
	Score      decimal.NullDecimal `db:"score" json:"score"`
	Remark     *string             `db:"remark" json:"remark,omitempty"`
}
