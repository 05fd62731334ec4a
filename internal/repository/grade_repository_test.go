package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/internal/models"
	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/pkg/database"
)

func TestGradeRepositoryFindByStudentAndActivity(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM grades WHERE student_id = $1 AND activity_id = $2")).
		WithArgs("s1", "a1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "activity_id", "score", "remark", "created_at", "updated_at"}).
			AddRow("g1", "s1", "a1", "80.50", nil, now, now))

	grade, err := repo.FindByStudentAndActivity(context.Background(), "s1", "a1")
	require.NoError(t, err)
	assert.Equal(t, "80.50", grade.Score.StringFixed(2))
	assert.Nil(t, grade.Remark)
}

func TestGradeRepositoryFindMissing(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	mock.ExpectQuery("FROM grades").WillReturnError(sql.ErrNoRows)

	_, err := NewGradeRepository(db).FindByStudentAndActivity(context.Background(), "s1", "a1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestGradeRepositoryCreateUniqueViolation(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO grades").WillReturnError(&pq.Error{Code: "23505"})

	err := NewGradeRepository(db).Create(context.Background(), &models.Grade{StudentID: "s1", ActivityID: "a1", Score: decimal.NewFromInt(90)})
	require.Error(t, err)
	assert.True(t, database.IsUniqueViolation(err))
}

func TestGradeRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	mock.ExpectExec("UPDATE grades SET score").WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewGradeRepository(db).Update(context.Background(), &models.Grade{ID: "g1", Score: decimal.NewFromInt(95)}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradeRepositoryListScoredByStudent(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	mock.ExpectQuery("JOIN activities a ON a.id = g.activity_id").
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"grade_id", "score", "weight", "term_name", "subject_id", "subject_name"}).
			AddRow("g1", "80.00", "60.00", "Trimestre 1", "math", "Matematica").
			AddRow("g2", "100.00", "40.00", "Trimestre 1", "math", "Matematica"))

	rows, err := NewGradeRepository(db).ListScoredByStudent(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Trimestre 1", rows[0].TermName)
	assert.True(t, rows[1].Weight.Equal(decimal.NewFromInt(40)))
}

func TestGradeRepositoryListSheet(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	mock.ExpectQuery("LEFT JOIN grades g ON g.student_id = st.id").
		WithArgs("sec1", "a1").
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "first_names", "last_names", "grade_id", "score", "remark"}).
			AddRow("s1", "Ana", "Perez", "g1", "90.00", "ok").
			AddRow("s2", "Luis", "Soto", nil, nil, nil))

	rows, err := NewGradeRepository(db).ListSheet(context.Background(), "sec1", "a1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Score.Valid)
	assert.False(t, rows[1].Score.Valid)
	assert.Nil(t, rows[1].GradeID)
}

func TestGradeRepositoryDeleteByActivities(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewGradeRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM grades WHERE activity_id = ANY($1)")).
		WillReturnResult(sqlmock.NewResult(0, 4))

	deleted, err := repo.DeleteByActivities(context.Background(), []string{"a1", "a2"})
	require.NoError(t, err)
	assert.EqualValues(t, 4, deleted)

	assert.NoError(t, mock.ExpectationsWereMet())
}
