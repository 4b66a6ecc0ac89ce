package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"liqwatch/internal/model"
	"liqwatch/internal/store"
)

type alertLogRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewAlertLogRepo creates the postgres alert audit repository.
func NewAlertLogRepo(db *sqlx.DB, timeout time.Duration) store.AlertLogRepo {
	return &alertLogRepo{db: db, timeout: timeout}
}

func (r *alertLogRepo) CountRecentByType(ctx context.Context, alertType string, since time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// Cooldown matching keys on type alone, not (type, venue).
	var count int64
	err := r.db.QueryRowxContext(ctx, `
		SELECT COUNT(*)
		FROM alert_log
		WHERE type = $1 AND created_at >= $2`,
		alertType, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count recent alerts: %w", err)
	}

	return count, nil
}

func (r *alertLogRepo) Insert(ctx context.Context, entry *model.AlertLogEntry) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	detailsJSON, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("marshal alert details: %w", err)
	}

	query := `
		INSERT INTO alert_log (type, severity, venue, message, details, delivered, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err = r.db.QueryRowxContext(ctx, query,
		entry.Type, entry.Severity, entry.Venue, entry.Message,
		detailsJSON, entry.Delivered, entry.CreatedAt).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("insert alert log entry: %w", err)
	}

	return nil
}
