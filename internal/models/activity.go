package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Activity is a gradable unit of work. Root activities belong directly to a subject and
// term; child activities reference their parent by id.
type Activity struct {
	ID               string          `db:"id" json:"id"`
	Name             string          `db:"name" json:"name"`
	Description      *string         `db:"description" json:"description,omitempty"`
	Weight           decimal.Decimal `db:"weight" json:"weight"`
	ScheduledOn      *time.Time      `db:"scheduled_on" json:"scheduled_on,omitempty"`
	AveragesChildren bool            `db:"averages_children" json:"averages_children"`
	SubjectID        string          `db:"subject_id" json:"subject_id"`
	TermID           string          `db:"term_id" json:"term_id"`
	ParentID         *string         `db:"parent_id" json:"parent_id,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`

	Children []Activity `db:"-" json:"children,omitempty"`
}

// IsRoot reports whether the activity has no parent.
func (a *Activity) IsRoot() bool {
	return a.ParentID == nil || *a.ParentID == ""
}

// Scope returns the sibling scope the activity's weight is checked against.
func (a *Activity) Scope() WeightScope {
	if a.IsRoot() {
		return RootScope(a.SubjectID, a.TermID)
	}
	return ChildScope(*a.ParentID)
}

// WeightScope identifies a sibling group: either the roots of a subject and term, or the
// children of one parent activity.
type WeightScope struct {
	SubjectID string
	TermID    string
	ParentID  string
}

// RootScope builds the scope of root activities for a subject and term.
func RootScope(subjectID, termID string) WeightScope {
	return WeightScope{SubjectID: subjectID, TermID: termID}
}

// ChildScope builds the scope of children of parentID.
func ChildScope(parentID string) WeightScope {
	return WeightScope{ParentID: parentID}
}

// IsRoot reports whether the scope is a subject and term root scope.
func (s WeightScope) IsRoot() bool {
	return s.ParentID == ""
}

// LockKey is the advisory lock key serialising writers of the scope.
func (s WeightScope) LockKey() string {
	if s.IsRoot() {
		return "activity-scope:root:" + s.SubjectID + ":" + s.TermID
	}
	return "activity-scope:parent:" + s.ParentID
}
