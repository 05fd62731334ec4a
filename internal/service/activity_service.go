package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/internal/models"
	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/pkg/database"
	appErrors "github.com/Gabusnow21/Administrador-de-Notas-Matematicas/pkg/errors"
	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/pkg/numeric"
)

const dateLayout = "2006-01-02"

type activityRepository interface {
	weightReader
	ListBySubjectTerm(ctx context.Context, subjectID, termID string) ([]models.Activity, error)
	ExistsByName(ctx context.Context, subjectID, termID, name, excludeID string) (bool, error)
	Create(ctx context.Context, activity *models.Activity) error
	Update(ctx context.Context, activity *models.Activity) error
	SubtreeIDs(ctx context.Context, id string) ([]string, error)
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)
	LockScopes(ctx context.Context, keys ...string) error
}

type activityGradeRemover interface {
	DeleteByActivities(ctx context.Context, activityIDs []string) (int64, error)
}

type subjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

type termReader interface {
	FindByID(ctx context.Context, id string) (*models.Term, error)
}

type transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// CreateActivityRequest is the payload for a new activity. ParentID places it under an
// existing activity of the same subject and term.
type CreateActivityRequest struct {
	Name             string          `json:"name" validate:"required,max=150"`
	Description      *string         `json:"description" validate:"omitempty,max=1000"`
	Weight           decimal.Decimal `json:"weight"`
	ScheduledOn      *string         `json:"scheduled_on" validate:"omitempty,datetime=2006-01-02"`
	AveragesChildren bool            `json:"averages_children"`
	SubjectID        string          `json:"subject_id" validate:"required"`
	TermID           string          `json:"term_id" validate:"required"`
	ParentID         *string         `json:"parent_id"`
}

// UpdateActivityRequest carries the mutable attributes of an activity. Subject, term and
// parent cannot change.
type UpdateActivityRequest struct {
	Name             string          `json:"name" validate:"required,max=150"`
	Description      *string         `json:"description" validate:"omitempty,max=1000"`
	Weight           decimal.Decimal `json:"weight"`
	ScheduledOn      *string         `json:"scheduled_on" validate:"omitempty,datetime=2006-01-02"`
	AveragesChildren bool            `json:"averages_children"`
}

// ActivityDeletion summarises what a delete removed.
type ActivityDeletion struct {
	ActivityIDs   []string `json:"activity_ids"`
	GradesRemoved int64    `json:"grades_removed"`
}

// ActivityService manages the activity tree of each subject and term.
type ActivityService struct {
	repo      activityRepository
	grades    activityGradeRemover
	subjects  subjectReader
	terms     termReader
	tx        transactor
	weighting *WeightingValidator
	reports   reportCardCache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewActivityService wires the activity service.
func NewActivityService(repo activityRepository, grades activityGradeRemover, subjects subjectReader, terms termReader, tx transactor, weighting *WeightingValidator, reports *CacheService, validate *validator.Validate, logger *zap.Logger) *ActivityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if weighting == nil {
		weighting = NewWeightingValidator(repo, nil, logger)
	}
	return &ActivityService{
		repo:      repo,
		grades:    grades,
		subjects:  subjects,
		terms:     terms,
		tx:        tx,
		weighting: weighting,
		reports:   reportCardCache{cache: reports},
		validator: validate,
		logger:    logger,
	}
}

// ListRoots returns the root activities of a subject and term with their descendants nested.
func (s *ActivityService) ListRoots(ctx context.Context, subjectID, termID string) ([]models.Activity, error) {
	if _, err := s.loadSubject(ctx, subjectID); err != nil {
		return nil, err
	}
	if err := s.ensureTerm(ctx, termID); err != nil {
		return nil, err
	}
	all, err := s.repo.ListBySubjectTerm(ctx, subjectID, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activities")
	}
	return newActivityTree(all).roots(), nil
}

// Get returns one activity with its descendants nested.
func (s *ActivityService) Get(ctx context.Context, id string) (*models.Activity, error) {
	activity, err := s.loadActivity(ctx, id)
	if err != nil {
		return nil, err
	}
	all, err := s.repo.ListBySubjectTerm(ctx, activity.SubjectID, activity.TermID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activities")
	}
	if node, ok := newActivityTree(all).subtree(id); ok {
		return &node, nil
	}
	return activity, nil
}

// Create validates and stores a new activity. The weight check and the insert run in one
// transaction holding the scope lock.
func (s *ActivityService) Create(ctx context.Context, actor models.Principal, req CreateActivityRequest) (*models.Activity, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid activity payload")
	}
	scheduledOn, err := parseScheduledOn(req.ScheduledOn)
	if err != nil {
		return nil, err
	}
	if err := numeric.CheckTwoPlaces(req.Weight, "weight"); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	subject, err := s.loadSubject(ctx, req.SubjectID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureTerm(ctx, req.TermID); err != nil {
		return nil, err
	}
	if !CanAccess(actor.Role, actor.ID, subject.OwnerID()) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "subject belongs to another teacher")
	}

	activity := &models.Activity{
		Name:             strings.TrimSpace(req.Name),
		Description:      req.Description,
		Weight:           numeric.Round2(req.Weight),
		ScheduledOn:      scheduledOn,
		AveragesChildren: req.AveragesChildren,
		SubjectID:        req.SubjectID,
		TermID:           req.TermID,
	}
	scope := models.RootScope(req.SubjectID, req.TermID)
	if req.ParentID != nil && strings.TrimSpace(*req.ParentID) != "" {
		parentID := strings.TrimSpace(*req.ParentID)
		activity.ParentID = &parentID
		scope = models.ChildScope(parentID)
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.LockScopes(ctx, scope.LockKey()); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock activity scope")
		}
		if !scope.IsRoot() {
			parent, err := s.repo.FindByID(ctx, scope.ParentID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return appErrors.Clone(appErrors.ErrScopeNotFound, "parent activity not found")
				}
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load parent activity")
			}
			if parent.SubjectID != activity.SubjectID || parent.TermID != activity.TermID {
				return appErrors.Clone(appErrors.ErrValidation, "parent activity belongs to a different subject or term")
			}
		}
		if err := s.ensureUniqueName(ctx, activity, ""); err != nil {
			return err
		}
		if err := s.weighting.ValidateAndAccept(ctx, activity.Weight, scope, ""); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, activity); err != nil {
			if database.IsUniqueViolation(err) {
				return appErrors.Clone(appErrors.ErrDuplicateActivity, "")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create activity")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateReports(ctx)
	s.logger.Info("activity created",
		zap.String("activity_id", activity.ID),
		zap.String("scope", scope.LockKey()),
		zap.String("weight", numeric.String(activity.Weight)),
	)
	return activity, nil
}

// Update changes the mutable attributes of an activity. The new weight is checked against
// its siblings excluding its own stored weight, and must still cover its children.
func (s *ActivityService) Update(ctx context.Context, actor models.Principal, id string, req UpdateActivityRequest) (*models.Activity, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid activity payload")
	}
	scheduledOn, err := parseScheduledOn(req.ScheduledOn)
	if err != nil {
		return nil, err
	}
	if err := numeric.CheckTwoPlaces(req.Weight, "weight"); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	existing, err := s.loadActivity(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, existing.SubjectID); err != nil {
		return nil, err
	}

	var updated *models.Activity
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		scope := existing.Scope()
		if err := s.repo.LockScopes(ctx, scope.LockKey(), models.ChildScope(id).LockKey()); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock activity scope")
		}
		current, err := s.loadActivity(ctx, id)
		if err != nil {
			return err
		}
		current.Name = strings.TrimSpace(req.Name)
		current.Description = req.Description
		current.Weight = numeric.Round2(req.Weight)
		current.ScheduledOn = scheduledOn
		current.AveragesChildren = req.AveragesChildren

		if err := s.ensureUniqueName(ctx, current, id); err != nil {
			return err
		}
		if err := s.weighting.ValidateAndAccept(ctx, current.Weight, current.Scope(), id); err != nil {
			return err
		}
		if err := s.weighting.ValidateParentFloor(ctx, id, current.Weight); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, current); err != nil {
			if database.IsUniqueViolation(err) {
				return appErrors.Clone(appErrors.ErrDuplicateActivity, "")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update activity")
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateReports(ctx)
	return updated, nil
}

// Delete removes an activity, all of its descendants and every grade recorded against any
// of them.
func (s *ActivityService) Delete(ctx context.Context, actor models.Principal, id string) (*ActivityDeletion, error) {
	existing, err := s.loadActivity(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, existing.SubjectID); err != nil {
		return nil, err
	}

	result := &ActivityDeletion{}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.LockScopes(ctx, existing.Scope().LockKey(), models.ChildScope(id).LockKey()); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock activity scope")
		}
		ids, err := s.repo.SubtreeIDs(ctx, id)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to collect activity subtree")
		}
		if len(ids) == 0 {
			return appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		removed, err := s.grades.DeleteByActivities(ctx, ids)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete activity grades")
		}
		if _, err := s.repo.DeleteByIDs(ctx, ids); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete activities")
		}
		result.ActivityIDs = ids
		result.GradesRemoved = removed
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateReports(ctx)
	s.logger.Info("activity deleted",
		zap.String("activity_id", id),
		zap.Int("activities_removed", len(result.ActivityIDs)),
		zap.Int64("grades_removed", result.GradesRemoved),
	)
	return result, nil
}

func (s *ActivityService) authorize(ctx context.Context, actor models.Principal, subjectID string) error {
	subject, err := s.loadSubject(ctx, subjectID)
	if err != nil {
		return err
	}
	if !CanAccess(actor.Role, actor.ID, subject.OwnerID()) {
		return appErrors.Clone(appErrors.ErrForbidden, "subject belongs to another teacher")
	}
	return nil
}

func (s *ActivityService) ensureUniqueName(ctx context.Context, activity *models.Activity, excludeID string) error {
	exists, err := s.repo.ExistsByName(ctx, activity.SubjectID, activity.TermID, activity.Name, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check activity name")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrDuplicateActivity, "")
	}
	return nil
}

func (s *ActivityService) loadActivity(ctx context.Context, id string) (*models.Activity, error) {
	activity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}
	return activity, nil
}

func (s *ActivityService) loadSubject(ctx context.Context, id string) (*models.Subject, error) {
	subject, err := s.subjects.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrScopeNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	return subject, nil
}

func (s *ActivityService) ensureTerm(ctx context.Context, id string) error {
	if _, err := s.terms.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrScopeNotFound, "term not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}
	return nil
}

// Weights feed every report card of the subject, so any activity write retires them all.
func (s *ActivityService) invalidateReports(ctx context.Context) {
	s.reports.touchAll(ctx)
}

func parseScheduledOn(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(*raw))
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "scheduled_on must be YYYY-MM-DD")
	}
	return &t, nil
}

// activityTree indexes a flat activity list by id and by parent id.
type activityTree struct {
	byID     map[string]models.Activity
	children map[string][]string
	rootIDs  []string
}

func newActivityTree(all []models.Activity) *activityTree {
	tree := &activityTree{
		byID:     make(map[string]models.Activity, len(all)),
		children: make(map[string][]string),
	}
	for _, a := range all {
		tree.byID[a.ID] = a
	}
	for _, a := range all {
		if a.IsRoot() {
			tree.rootIDs = append(tree.rootIDs, a.ID)
			continue
		}
		// Orphans whose parent left the listing are dropped.
		if _, ok := tree.byID[*a.ParentID]; ok {
			tree.children[*a.ParentID] = append(tree.children[*a.ParentID], a.ID)
		}
	}
	return tree
}

func (t *activityTree) roots() []models.Activity {
	out := make([]models.Activity, 0, len(t.rootIDs))
	for _, id := range t.rootIDs {
		node, _ := t.subtree(id)
		out = append(out, node)
	}
	return out
}

func (t *activityTree) subtree(id string) (models.Activity, bool) {
	if _, ok := t.byID[id]; !ok {
		return models.Activity{}, false
	}
	return t.build(id, map[string]bool{}), true
}

func (t *activityTree) build(id string, visited map[string]bool) models.Activity {
	node := t.byID[id]
	node.Children = nil
	visited[id] = true
	for _, childID := range t.children[id] {
		if visited[childID] {
			continue
		}
		node.Children = append(node.Children, t.build(childID, visited))
	}
	return node
}
