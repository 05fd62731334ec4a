package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/internal/models"
	"github.com/Gabusnow21/Administrador-de-Notas-Matematicas/pkg/database"
)

const activityColumns = `id, name, description, weight, scheduled_on, averages_children, subject_id, term_id, parent_id, created_at, updated_at`

// ActivityRepository persists activities and answers weight aggregates over their scopes.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository constructs the repository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// FindByID returns the activity or sql.ErrNoRows.
func (r *ActivityRepository) FindByID(ctx context.Context, id string) (*models.Activity, error) {
	var activity models.Activity
	query := `SELECT ` + activityColumns + ` FROM activities WHERE id = $1`
	if err := getOne(ctx, r.db, &activity, query, id); err != nil {
		return nil, err
	}
	return &activity, nil
}

// ListBySubjectTerm returns every activity of a subject and term, roots and descendants.
func (r *ActivityRepository) ListBySubjectTerm(ctx context.Context, subjectID, termID string) ([]models.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE subject_id = $1 AND term_id = $2 ORDER BY created_at, name`
	var activities []models.Activity
	if err := sqlx.SelectContext(ctx, database.Conn(ctx, r.db), &activities, query, subjectID, termID); err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return activities, nil
}

// SumRootWeights sums the root weights of a subject and term, skipping excludeID.
func (r *ActivityRepository) SumRootWeights(ctx context.Context, subjectID, termID, excludeID string) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(weight), 0) FROM activities
        WHERE subject_id = $1 AND term_id = $2 AND parent_id IS NULL AND id::text <> $3`
	var sum decimal.Decimal
	if err := sqlx.GetContext(ctx, database.Conn(ctx, r.db), &sum, query, subjectID, termID, excludeID); err != nil {
		return decimal.Zero, fmt.Errorf("sum root weights: %w", err)
	}
	return sum, nil
}

// SumChildWeights sums the weights of the children of parentID, skipping excludeID.
func (r *ActivityRepository) SumChildWeights(ctx context.Context, parentID, excludeID string) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(weight), 0) FROM activities WHERE parent_id = $1 AND id::text <> $2`
	var sum decimal.Decimal
	if err := sqlx.GetContext(ctx, database.Conn(ctx, r.db), &sum, query, parentID, excludeID); err != nil {
		return decimal.Zero, fmt.Errorf("sum child weights: %w", err)
	}
	return sum, nil
}

// ExistsByName checks the name-per-(subject, term) rule, skipping excludeID.
func (r *ActivityRepository) ExistsByName(ctx context.Context, subjectID, termID, name, excludeID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM activities WHERE subject_id = $1 AND term_id = $2 AND name = $3 AND id::text <> $4)`
	var exists bool
	if err := sqlx.GetContext(ctx, database.Conn(ctx, r.db), &exists, query, subjectID, termID, name, excludeID); err != nil {
		return false, fmt.Errorf("check activity name: %w", err)
	}
	return exists, nil
}

// Create inserts a new activity.
func (r *ActivityRepository) Create(ctx context.Context, activity *models.Activity) error {
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	activity.CreatedAt = now
	activity.UpdatedAt = now

	query := `INSERT INTO activities (` + activityColumns + `)
        VALUES (:id, :name, :description, :weight, :scheduled_on, :averages_children, :subject_id, :term_id, :parent_id, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, database.Conn(ctx, r.db), query, activity); err != nil {
		return fmt.Errorf("create activity: %w", err)
	}
	return nil
}

// Update persists the mutable attributes of an activity.
func (r *ActivityRepository) Update(ctx context.Context, activity *models.Activity) error {
	activity.UpdatedAt = time.Now().UTC()
	query := `UPDATE activities SET name = :name, description = :description, weight = :weight,
        scheduled_on = :scheduled_on, averages_children = :averages_children, updated_at = :updated_at
        WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, database.Conn(ctx, r.db), query, activity); err != nil {
		return fmt.Errorf("update activity: %w", err)
	}
	return nil
}

// SubtreeIDs returns id followed by the ids of all of its descendants.
func (r *ActivityRepository) SubtreeIDs(ctx context.Context, id string) ([]string, error) {
	query := `WITH RECURSIVE tree AS (
            SELECT id, 0 AS depth FROM activities WHERE id = $1
            UNION ALL
            SELECT a.id, t.depth + 1 FROM activities a JOIN tree t ON a.parent_id = t.id
        )
        SELECT id FROM tree ORDER BY depth`
	var ids []string
	if err := sqlx.SelectContext(ctx, database.Conn(ctx, r.db), &ids, query, id); err != nil {
		return nil, fmt.Errorf("collect activity subtree: %w", err)
	}
	return ids, nil
}

// DeleteByIDs removes the given activities.
func (r *ActivityRepository) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `DELETE FROM activities WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("delete activities: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete activities rows affected: %w", err)
	}
	return affected, nil
}

// LockScopes takes transaction scoped advisory locks on each key in order. It must run
// inside a transaction obtained from database.Transactor.
func (r *ActivityRepository) LockScopes(ctx context.Context, keys ...string) error {
	if !database.InTx(ctx) {
		return fmt.Errorf("lock activity scopes: no transaction in context")
	}
	conn := database.Conn(ctx, r.db)
	for _, key := range keys {
		if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
			return fmt.Errorf("lock activity scope %s: %w", key, err)
		}
	}
	return nil
}
