package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/internal/models"
	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/pkg/database"
)

const gradeColumns = `id, student_id, activity_id, score, remark, created_at, updated_at`

// GradeRepository handles grade persistence.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository creates a new grade repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// FindByStudentAndActivity returns the grade for the pair or sql.ErrNoRows.
func (r *GradeRepository) FindByStudentAndActivity(ctx context.Context, studentID, activityID string) (*models.Grade, error) {
	var grade models.Grade
	query := `SELECT ` + gradeColumns + ` FROM grades WHERE student_id = $1 AND activity_id = $2`
	if err := getOne(ctx, r.db, &grade, query, studentID, activityID); err != nil {
		return nil, err
	}
	return &grade, nil
}

// Create inserts a grade. A second grade for the same pair fails with a unique violation.
func (r *GradeRepository) Create(ctx context.Context, grade *models.Grade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	grade.CreatedAt = now
	grade.UpdatedAt = now

	query := `INSERT INTO grades (` + gradeColumns + `)
        VALUES (:id, :student_id, :activity_id, :score, :remark, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, database.Conn(ctx, r.db), query, grade); err != nil {
		return fmt.Errorf("create grade: %w", err)
	}
	return nil
}

// Update overwrites score and remark of an existing grade.
func (r *GradeRepository) Update(ctx context.Context, grade *models.Grade) error {
	grade.UpdatedAt = time.Now().UTC()
	query := `UPDATE grades SET score = :score, remark = :remark, updated_at = :updated_at WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, database.Conn(ctx, r.db), query, grade); err != nil {
		return fmt.Errorf("update grade: %w", err)
	}
	return nil
}

// ListByActivity returns every grade recorded for an activity.
func (r *GradeRepository) ListByActivity(ctx context.Context, activityID string) ([]models.Grade, error) {
	query := `SELECT ` + gradeColumns + ` FROM grades WHERE activity_id = $1 ORDER BY created_at`
	var grades []models.Grade
	if err := sqlx.SelectContext(ctx, database.Conn(ctx, r.db), &grades, query, activityID); err != nil {
		return nil, fmt.Errorf("list grades by activity: %w", err)
	}
	return grades, nil
}

// ListByStudent returns every grade recorded for a student.
func (r *GradeRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Grade, error) {
	query := `SELECT ` + gradeColumns + ` FROM grades WHERE student_id = $1 ORDER BY created_at`
	var grades []models.Grade
	if err := sqlx.SelectContext(ctx, database.Conn(ctx, r.db), &grades, query, studentID); err != nil {
		return nil, fmt.Errorf("list grades by student: %w", err)
	}
	return grades, nil
}

// ListScoredByStudent joins each grade of a student with its activity weight, term name
// and subject.
func (r *GradeRepository) ListScoredByStudent(ctx context.Context, studentID string) ([]models.ScoredGrade, error) {
	query := `SELECT g.id AS grade_id, g.score, a.weight, t.name AS term_name, s.id AS subject_id, s.name AS subject_name
        FROM grades g
        JOIN activities a ON a.id = g.activity_id
        JOIN terms t ON t.id = a.term_id
        JOIN subjects s ON s.id = a.subject_id
        WHERE g.student_id = $1`
	var rows []models.ScoredGrade
	if err := sqlx.SelectContext(ctx, database.Conn(ctx, r.db), &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("list scored grades: %w", err)
	}
	return rows, nil
}

// ListSheet returns one row per student of the section with their grade for activityID,
// if any.
func (r *GradeRepository) ListSheet(ctx context.Context, sectionID, activityID string) ([]models.GradeSheetRow, error) {
	query := `SELECT st.id AS student_id, st.first_names, st.last_names, g.id AS grade_id, g.score, g.remark
        FROM students st
        LEFT JOIN grades g ON g.student_id = st.id AND g.activity_id = $2
        WHERE st.section_id = $1
        ORDER BY st.last_names, st.first_names`
	var rows []models.GradeSheetRow
	if err := sqlx.SelectContext(ctx, database.Conn(ctx, r.db), &rows, query, sectionID, activityID); err != nil {
		return nil, fmt.Errorf("list grade sheet: %w", err)
	}
	return rows, nil
}

// DeleteByActivities removes all grades of the provided activities.
func (r *GradeRepository) DeleteByActivities(ctx context.Context, activityIDs []string) (int64, error) {
	if len(activityIDs) == 0 {
		return 0, nil
	}
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM grades WHERE activity_id = ANY($1)`, pq.Array(activityIDs))
	if err != nil {
		return 0, fmt.Errorf("delete grades: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete grades rows affected: %w", err)
	}
	return affected, nil
}
