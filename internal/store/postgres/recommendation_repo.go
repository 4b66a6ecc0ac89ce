package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"liqwatch/internal/model"
	"liqwatch/internal/store"
)

type recommendationRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewRecommendationRepo creates the postgres recommendation repository.
func NewRecommendationRepo(db *sqlx.DB, timeout time.Duration) store.RecommendationRepo {
	return &recommendationRepo{db: db, timeout: timeout}
}

func (r *recommendationRepo) DeactivateActive(ctx context.Context, venue *model.Venue, category model.Category) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// NULL venue rows are their own key: a global recommendation does not
	// supersede per-venue ones or vice versa.
	query := `
		UPDATE recommendations
		SET active = FALSE
		WHERE active = TRUE AND category = $1 AND venue IS NOT DISTINCT FROM $2`

	if _, err := r.db.ExecContext(ctx, query, category, venue); err != nil {
		return fmt.Errorf("deactivate recommendations: %w", err)
	}

	return nil
}

func (r *recommendationRepo) Insert(ctx context.Context, rec *model.Recommendation) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO recommendations (venue, category, action, reason, priority, active, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	err := r.db.QueryRowxContext(ctx, query,
		rec.Venue, rec.Category, rec.Action, rec.Reason, rec.Priority,
		rec.Active, rec.CreatedAt, rec.ExpiresAt).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("insert recommendation: %w", err)
	}

	return nil
}

func (r *recommendationRepo) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE recommendations
		SET active = FALSE
		WHERE active = TRUE AND expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("expire recommendations: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire recommendations rows: %w", err)
	}

	return n, nil
}

func (r *recommendationRepo) ListActive(ctx context.Context) ([]model.Recommendation, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryxContext(ctx, `
		SELECT id, venue, category, action, reason, priority, active, created_at, expires_at
		FROM recommendations
		WHERE active = TRUE
		ORDER BY priority DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query active recommendations: %w", err)
	}
	defer rows.Close()

	var recs []model.Recommendation
	for rows.Next() {
		var rec model.Recommendation
		if err := rows.Scan(&rec.ID, &rec.Venue, &rec.Category, &rec.Action, &rec.Reason,
			&rec.Priority, &rec.Active, &rec.CreatedAt, &rec.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		recs = append(recs, rec)
	}

	return recs, rows.Err()
}
