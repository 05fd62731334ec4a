package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportCardRowJSONHasTwoPlaces(t *testing.T) {
	row := ReportCardRow{
		SubjectID:    "math",
		SubjectName:  "Matematica",
		Term1:        decimal.NewFromInt(88),
		Term2:        decimal.RequireFromString("90.5"),
		Total:        decimal.RequireFromString("178.5"),
		FinalAverage: decimal.RequireFromString("59.5"),
	}

	raw, err := json.Marshal(row)
	require.NoError(t, err)
	assert.JSONEq(t, `{"subject_id":"math","subject_name":"Matematica","term1":"88.00","term2":"90.50","term3":"0.00","total":"178.50","final_average":"59.50"}`, string(raw))

	var back ReportCardRow
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.True(t, back.Term1.Equal(row.Term1))
	assert.True(t, back.Term3.IsZero())
}
