package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/internal/models"
	appErrors "github.com/Gabusnow21/Administrador-de-Notas-Matematicas/pkg/errors"
	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/pkg/numeric"
)

type weightReader interface {
	FindByID(ctx context.Context, id string) (*models.Activity, error)
	SumRootWeights(ctx context.Context, subjectID, termID, excludeID string) (decimal.Decimal, error)
	SumChildWeights(ctx context.Context, parentID, excludeID string) (decimal.Decimal, error)
}

// WeightingValidator keeps the declared weights of a scope within its ceiling: 100.00 for
// the roots of a subject and term, the parent's weight for children.
type WeightingValidator struct {
	repo    weightReader
	metrics *MetricsService
	logger  *zap.Logger
}

// NewWeightingValidator constructs the validator.
func NewWeightingValidator(repo weightReader, metrics *MetricsService, logger *zap.Logger) *WeightingValidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WeightingValidator{repo: repo, metrics: metrics, logger: logger}
}

// ValidateAndAccept rejects candidate when the other activities of scope, excluding
// excludeID, already commit enough weight that adding it would pass the ceiling.
func (v *WeightingValidator) ValidateAndAccept(ctx context.Context, candidate decimal.Decimal, scope models.WeightScope, excludeID string) error {
	if err := numeric.CheckTwoPlaces(candidate, "weight"); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	current, ceiling, err := v.scopeTotals(ctx, scope, excludeID)
	if err != nil {
		return err
	}

	if current.Add(candidate).GreaterThan(ceiling) {
		kind := scopeKind(scope)
		v.metrics.RecordWeightRejection(kind)
		v.logger.Info("activity weight rejected",
			zap.String("scope", scope.LockKey()),
			zap.String("candidate", numeric.String(candidate)),
			zap.String("current_sum", numeric.String(current)),
			zap.String("ceiling", numeric.String(ceiling)),
		)
		return appErrors.WeightExceeded(current, ceiling)
	}
	return nil
}

// ValidateParentFloor rejects re-weighting activityID below the weight already committed to
// its children.
func (v *WeightingValidator) ValidateParentFloor(ctx context.Context, activityID string, newWeight decimal.Decimal) error {
	children, err := v.repo.SumChildWeights(ctx, activityID, "")
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum child weights")
	}
	if children.GreaterThan(newWeight) {
		v.metrics.RecordWeightRejection("parent_floor")
		v.logger.Info("activity weight below children",
			zap.String("activity_id", activityID),
			zap.String("candidate", numeric.String(newWeight)),
			zap.String("children_sum", numeric.String(children)),
		)
		return appErrors.WeightExceeded(children, newWeight)
	}
	return nil
}

func (v *WeightingValidator) scopeTotals(ctx context.Context, scope models.WeightScope, excludeID string) (current, ceiling decimal.Decimal, err error) {
	if scope.IsRoot() {
		current, err = v.repo.SumRootWeights(ctx, scope.SubjectID, scope.TermID, excludeID)
		if err != nil {
			return decimal.Zero, decimal.Zero, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum root weights")
		}
		return current, numeric.Hundred, nil
	}

	parent, err := v.repo.FindByID(ctx, scope.ParentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, decimal.Zero, appErrors.Clone(appErrors.ErrScopeNotFound, "parent activity not found")
		}
		return decimal.Zero, decimal.Zero, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load parent activity")
	}
	current, err = v.repo.SumChildWeights(ctx, scope.ParentID, excludeID)
	if err != nil {
		return decimal.Zero, decimal.Zero, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum child weights")
	}
	return current, parent.Weight, nil
}

func scopeKind(scope models.WeightScope) string {
	if scope.IsRoot() {
		return "root"
	}
	return "child"
}
