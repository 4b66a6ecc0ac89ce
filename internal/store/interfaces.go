package store

import (
	"context"
	"time"

	"liqwatch/internal/model"
)

// PriceStats are aggregates over recorded last prices in a trailing window.
type PriceStats struct {
	Min    float64 `db:"min_price"`
	Max    float64 `db:"max_price"`
	Mean   float64 `db:"mean_price"`
	StdDev float64 `db:"stddev_price"`
	Count  int64   `db:"sample_count"`
}

// SettingsRepo reads the flat runtime configuration table.
type SettingsRepo interface {
	// All returns every settings row as key -> value.
	All(ctx context.Context) (map[string]string, error)
}

// SnapshotRepo persists and aggregates per-run ticker snapshots.
type SnapshotRepo interface {
	// Insert appends one snapshot row.
	Insert(ctx context.Context, snap *model.MarketSnapshot) error

	// AvgSpread returns the mean recorded spread percent since the cutoff.
	AvgSpread(ctx context.Context, venue model.Venue, since time.Time) (float64, error)

	// PriceStats returns price aggregates since the cutoff.
	PriceStats(ctx context.Context, venue model.Venue, since time.Time) (PriceStats, error)
}

// DepthRepo persists per-band depth measurements.
type DepthRepo interface {
	InsertBatch(ctx context.Context, measurements []model.DepthMeasurement) error
}

// TradeRepo persists venue trades with identifier-based deduplication.
type TradeRepo interface {
	// InsertBatch appends trades, silently skipping identifiers already seen
	// for the venue. Returns the number of rows actually inserted.
	InsertBatch(ctx context.Context, trades []model.TradeRecord) (int64, error)

	// VolumeStats returns total quote volume and trade count since the cutoff.
	VolumeStats(ctx context.Context, venue model.Venue, since time.Time) (float64, int64, error)
}

// MetricsRepo persists derived metrics snapshots.
type MetricsRepo interface {
	Insert(ctx context.Context, snap *model.MetricsSnapshot) error
}

// PositionRepo persists the operator's balances and open orders.
type PositionRepo interface {
	// InsertBalances appends one balance snapshot row per asset.
	InsertBalances(ctx context.Context, balances []model.BalanceSnapshot) error

	// ReplaceOpenOrders clears the venue's stored orders and inserts the given
	// snapshot. Venue APIs return complete open-order sets, not deltas.
	ReplaceOpenOrders(ctx context.Context, venue model.Venue, orders []model.OpenOrder) error
}

// AlertLogRepo is the alert audit trail and cooldown lookback source.
type AlertLogRepo interface {
	// CountRecentByType counts entries of the given alert type created at or
	// after the cutoff, across all venues.
	CountRecentByType(ctx context.Context, alertType string, since time.Time) (int64, error)

	Insert(ctx context.Context, entry *model.AlertLogEntry) error
}

// RecommendationRepo manages recommendation lifecycle rows.
type RecommendationRepo interface {
	// DeactivateActive clears the active flag on every active recommendation
	// matching (venue, category). A nil venue matches the all-venues rows.
	DeactivateActive(ctx context.Context, venue *model.Venue, category model.Category) error

	Insert(ctx context.Context, rec *model.Recommendation) error

	// ExpireDue deactivates active recommendations whose expiry has passed,
	// returning the number of rows swept.
	ExpireDue(ctx context.Context, now time.Time) (int64, error)

	// ListActive returns currently active recommendations ordered by priority.
	ListActive(ctx context.Context) ([]model.Recommendation, error)
}

// Store bundles every repository behind one handle.
type Store struct {
	Settings        SettingsRepo
	Snapshots       SnapshotRepo
	Depth           DepthRepo
	Trades          TradeRepo
	Metrics         MetricsRepo
	Positions       PositionRepo
	AlertLog        AlertLogRepo
	Recommendations RecommendationRepo
}
