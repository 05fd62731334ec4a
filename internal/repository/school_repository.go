package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/internal/models"
)

// SubjectRepository reads subjects.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs the repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// FindByID returns the subject or sql.ErrNoRows.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	var subject models.Subject
	query := `SELECT id, name, description, teacher_id, created_at, updated_at FROM subjects WHERE id = $1`
	if err := getOne(ctx, r.db, &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// TermRepository reads terms.
type TermRepository struct {
	db *sqlx.DB
}

// NewTermRepository constructs the repository.
func NewTermRepository(db *sqlx.DB) *TermRepository {
	return &TermRepository{db: db}
}

// FindByID returns the term or sql.ErrNoRows.
func (r *TermRepository) FindByID(ctx context.Context, id string) (*models.Term, error) {
	var term models.Term
	query := `SELECT id, name, school_year, start_date, end_date, active FROM terms WHERE id = $1`
	if err := getOne(ctx, r.db, &term, query, id); err != nil {
		return nil, err
	}
	return &term, nil
}

// StudentRepository reads students.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID returns the student or sql.ErrNoRows.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	var student models.Student
	query := `SELECT id, first_names, last_names, email, progress_code, section_id, created_at FROM students WHERE id = $1`
	if err := getOne(ctx, r.db, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// SectionRepository reads sections.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs the repository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// FindByID returns the section or sql.ErrNoRows.
func (r *SectionRepository) FindByID(ctx context.Context, id string) (*models.Section, error) {
	var section models.Section
	query := `SELECT id, level, section, school_year, teacher_id FROM sections WHERE id = $1`
	if err := getOne(ctx, r.db, &section, query, id); err != nil {
		return nil, err
	}
	return &section, nil
}
