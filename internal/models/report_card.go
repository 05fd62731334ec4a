package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

const reportCardPlaces = 2

// ReportCardRow holds one subject's term averages for a student.
type ReportCardRow struct {
	SubjectID    string          `json:"subject_id"`
	SubjectName  string          `json:"subject_name"`
	Term1        decimal.Decimal `json:"term1"`
	Term2        decimal.Decimal `json:"term2"`
	Term3        decimal.Decimal `json:"term3"`
	Total        decimal.Decimal `json:"total"`
	FinalAverage decimal.Decimal `json:"final_average"`
}

// MarshalJSON writes every average with exactly two decimal places.
func (r ReportCardRow) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		SubjectID    string `json:"subject_id"`
		SubjectName  string `json:"subject_name"`
		Term1        string `json:"term1"`
		Term2        string `json:"term2"`
		Term3        string `json:"term3"`
		Total        string `json:"total"`
		FinalAverage string `json:"final_average"`
	}{
		SubjectID:    r.SubjectID,
		SubjectName:  r.SubjectName,
		Term1:        r.Term1.StringFixed(reportCardPlaces),
		Term2:        r.Term2.StringFixed(reportCardPlaces),
		Term3:        r.Term3.StringFixed(reportCardPlaces),
		Total:        r.Total.StringFixed(reportCardPlaces),
		FinalAverage: r.FinalAverage.StringFixed(reportCardPlaces),
	})
}

// ReportCard is the aggregated report for a student.
type ReportCard struct {
	StudentID   string          `json:"student_id"`
	StudentName string          `json:"student_name"`
	Rows        []ReportCardRow `json:"rows"`
}
