package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/internal/models"
	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/pkg/database"
	appErrors "github.com/Gabusnow21/Administrador-de-Notas-Matematicas/pkg/errors"
	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/pkg/numeric"
)

type gradeRepository interface {
	FindByStudentAndActivity(ctx context.Context, studentID, activityID string) (*models.Grade, error)
	Create(ctx context.Context, grade *models.Grade) error
	Update(ctx context.Context, grade *models.Grade) error
	ListByActivity(ctx context.Context, activityID string) ([]models.Grade, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Grade, error)
	ListSheet(ctx context.Context, sectionID, activityID string) ([]models.GradeSheetRow, error)
}

type activityReader interface {
	FindByID(ctx context.Context, id string) (*models.Activity, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type sectionReader interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
}

// UpsertGradeRequest records the score of a student in an activity.
type UpsertGradeRequest struct {
	StudentID  string          `json:"student_id" validate:"required"`
	ActivityID string          `json:"activity_id" validate:"required"`
	Score      decimal.Decimal `json:"score"`
	Remark     *string         `json:"remark" validate:"omitempty,max=500"`
}

// GradeSheet is the section roster for one activity.
type GradeSheet struct {
	SectionID  string                 `json:"section_id"`
	ActivityID string                 `json:"activity_id"`
	Rows       []models.GradeSheetRow `json:"rows"`
}

// GradeService keeps one grade per student and activity.
type GradeService struct {
	repo       gradeRepository
	activities activityReader
	subjects   subjectReader
	students   studentReader
	sections   sectionReader
	reports    reportCardCache
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewGradeService wires the grade service.
func NewGradeService(repo gradeRepository, activities activityReader, subjects subjectReader, students studentReader, sections sectionReader, reports *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{
		repo:       repo,
		activities: activities,
		subjects:   subjects,
		students:   students,
		sections:   sections,
		reports:    reportCardCache{cache: reports},
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
	}
}

// Upsert updates the existing grade of the pair in place or creates it. The boolean
// reports whether a new grade was created.
func (s *GradeService) Upsert(ctx context.Context, actor models.Principal, req UpsertGradeRequest) (*models.Grade, bool, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}
	if err := numeric.CheckTwoPlaces(req.Score, "score"); err != nil {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	if _, err := s.loadStudent(ctx, req.StudentID); err != nil {
		return nil, false, err
	}
	activity, err := s.activities.FindByID(ctx, req.ActivityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrScopeNotFound, "activity not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}
	if err := s.authorizeSubject(ctx, actor, activity.SubjectID); err != nil {
		return nil, false, err
	}

	score := numeric.Round2(req.Score)
	grade, err := s.repo.FindByStudentAndActivity(ctx, req.StudentID, req.ActivityID)
	switch {
	case err == nil:
		grade.Score = score
		grade.Remark = req.Remark
		if err := s.repo.Update(ctx, grade); err != nil {
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grade")
		}
		s.afterWrite(ctx, grade, "updated")
		return grade, false, nil
	case errors.Is(err, sql.ErrNoRows):
		grade = &models.Grade{
			StudentID:  req.StudentID,
			ActivityID: req.ActivityID,
			Score:      score,
			Remark:     req.Remark,
		}
		if err := s.repo.Create(ctx, grade); err != nil {
			if database.IsUniqueViolation(err) {
				return nil, false, appErrors.Clone(appErrors.ErrDuplicateGrade, "")
			}
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create grade")
		}
		s.afterWrite(ctx, grade, "created")
		return grade, true, nil
	default:
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade")
	}
}

// ListByActivity returns the grades of an activity. Teachers only see activities of the
// subjects they own.
func (s *GradeService) ListByActivity(ctx context.Context, actor models.Principal, activityID string) ([]models.Grade, error) {
	activity, err := s.activities.FindByID(ctx, activityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}
	if err := s.authorizeSubject(ctx, actor, activity.SubjectID); err != nil {
		return nil, err
	}
	grades, err := s.repo.ListByActivity(ctx, activityID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	return grades, nil
}

// ListByStudent returns the grades of a student. Teachers only see students of the
// sections they own.
func (s *GradeService) ListByStudent(ctx context.Context, actor models.Principal, studentID string) ([]models.Grade, error) {
	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if err := authorizeStudent(ctx, s.sections, actor, student); err != nil {
		return nil, err
	}
	grades, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	return grades, nil
}

// GradeSheet lists every student of a section with their grade for activityID. The owner
// of either the section or the activity's subject may read it.
func (s *GradeService) GradeSheet(ctx context.Context, actor models.Principal, sectionID, activityID string) (*GradeSheet, error) {
	section, err := s.sections.FindByID(ctx, sectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	activity, err := s.activities.FindByID(ctx, activityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}
	if !CanAccess(actor.Role, actor.ID, section.OwnerID()) {
		if err := s.authorizeSubject(ctx, actor, activity.SubjectID); err != nil {
			return nil, err
		}
	}

	rows, err := s.repo.ListSheet(ctx, sectionID, activityID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade sheet")
	}
	if rows == nil {
		rows = []models.GradeSheetRow{}
	}
	return &GradeSheet{SectionID: sectionID, ActivityID: activityID, Rows: rows}, nil
}

func (s *GradeService) afterWrite(ctx context.Context, grade *models.Grade, outcome string) {
	s.metrics.RecordGradeWrite(outcome)
	s.reports.touchStudent(ctx, grade.StudentID)
	s.logger.Debug("grade stored",
		zap.String("grade_id", grade.ID),
		zap.String("student_id", grade.StudentID),
		zap.String("activity_id", grade.ActivityID),
		zap.String("outcome", outcome),
	)
}

func (s *GradeService) authorizeSubject(ctx context.Context, actor models.Principal, subjectID string) error {
	subject, err := s.subjects.FindByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrScopeNotFound, "subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	if !CanAccess(actor.Role, actor.ID, subject.OwnerID()) {
		return appErrors.Clone(appErrors.ErrForbidden, "subject belongs to another teacher")
	}
	return nil
}

func (s *GradeService) loadStudent(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStudentNotFound, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}
