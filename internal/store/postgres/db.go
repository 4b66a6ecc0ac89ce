package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"liqwatch/internal/store"
)

// Connect opens a postgres connection pool and verifies it is reachable. An
// unreachable store is the one fatal condition for a run.
func Connect(ctx context.Context, dsn string, maxOpen, maxIdle int) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return db, nil
}

// NewStore wires every repository onto one connection pool with a shared
// per-statement timeout.
func NewStore(db *sqlx.DB, timeout time.Duration) *store.Store {
	return &store.Store{
		Settings:        NewSettingsRepo(db, timeout),
		Snapshots:       NewSnapshotRepo(db, timeout),
		Depth:           NewDepthRepo(db, timeout),
		Trades:          NewTradeRepo(db, timeout),
		Metrics:         NewMetricsRepo(db, timeout),
		Positions:       NewPositionRepo(db, timeout),
		AlertLog:        NewAlertLogRepo(db, timeout),
		Recommendations: NewRecommendationRepo(db, timeout),
	}
}
