package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"liqwatch/internal/store"
)

type settingsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewSettingsRepo creates the postgres settings repository.
func NewSettingsRepo(db *sqlx.DB, timeout time.Duration) store.SettingsRepo {
	return &settingsRepo{db: db, timeout: timeout}
}

func (r *settingsRepo) All(ctx context.Context) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryxContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		out[key] = value
	}

	return out, rows.Err()
}
