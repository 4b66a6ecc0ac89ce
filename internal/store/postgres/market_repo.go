package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"liqwatch/internal/model"
	"liqwatch/internal/store"
)

type snapshotRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewSnapshotRepo creates the postgres market snapshot repository.
func NewSnapshotRepo(db *sqlx.DB, timeout time.Duration) store.SnapshotRepo {
	return &snapshotRepo{db: db, timeout: timeout}
}

func (r *snapshotRepo) Insert(ctx context.Context, snap *model.MarketSnapshot) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO market_snapshots (
			venue, symbol, last_price, best_bid, best_ask, spread_abs, spread_percent,
			volume_base_24h, volume_quote_24h, high_24h, low_24h,
			price_change_24h, price_change_pct, captured_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`

	err := r.db.QueryRowxContext(ctx, query,
		snap.Venue, snap.Symbol, snap.LastPrice, snap.BestBid, snap.BestAsk,
		snap.SpreadAbs, snap.SpreadPercent, snap.VolumeBase24h, snap.VolumeQuote24h,
		snap.High24h, snap.Low24h, snap.PriceChange24h, snap.PriceChangePct,
		snap.CapturedAt).Scan(&snap.ID)
	if err != nil {
		return fmt.Errorf("insert market snapshot: %w", err)
	}

	return nil
}

func (r *snapshotRepo) AvgSpread(ctx context.Context, venue model.Venue, since time.Time) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var avg sql.NullFloat64
	err := r.db.QueryRowxContext(ctx, `
		SELECT AVG(spread_percent)
		FROM market_snapshots
		WHERE venue = $1 AND captured_at >= $2`,
		venue, since).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("query avg spread: %w", err)
	}

	return avg.Float64, nil
}

func (r *snapshotRepo) PriceStats(ctx context.Context, venue model.Venue, since time.Time) (store.PriceStats, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var stats store.PriceStats
	err := r.db.QueryRowxContext(ctx, `
		SELECT
			COALESCE(MIN(last_price), 0)         AS min_price,
			COALESCE(MAX(last_price), 0)         AS max_price,
			COALESCE(AVG(last_price), 0)         AS mean_price,
			COALESCE(STDDEV_POP(last_price), 0)  AS stddev_price,
			COUNT(*)                             AS sample_count
		FROM market_snapshots
		WHERE venue = $1 AND captured_at >= $2`,
		venue, since).Scan(&stats.Min, &stats.Max, &stats.Mean, &stats.StdDev, &stats.Count)
	if err != nil {
		return stats, fmt.Errorf("query price stats: %w", err)
	}

	return stats, nil
}

type depthRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewDepthRepo creates the postgres depth measurement repository.
func NewDepthRepo(db *sqlx.DB, timeout time.Duration) store.DepthRepo {
	return &depthRepo{db: db, timeout: timeout}
}

func (r *depthRepo) InsertBatch(ctx context.Context, measurements []model.DepthMeasurement) error {
	if len(measurements) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin depth batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO depth_measurements (
			venue, band_percent, bid_amount, bid_value, ask_amount, ask_value, captured_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`)
	if err != nil {
		return fmt.Errorf("prepare depth insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range measurements {
		if _, err := stmt.ExecContext(ctx,
			m.Venue, m.BandPercent, m.BidAmount, m.BidValue,
			m.AskAmount, m.AskValue, m.CapturedAt); err != nil {
			return fmt.Errorf("insert depth measurement: %w", err)
		}
	}

	return tx.Commit()
}

type tradeRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewTradeRepo creates the postgres trade repository.
func NewTradeRepo(db *sqlx.DB, timeout time.Duration) store.TradeRepo {
	return &tradeRepo{db: db, timeout: timeout}
}

func (r *tradeRepo) InsertBatch(ctx context.Context, trades []model.TradeRecord) (int64, error) {
	if len(trades) == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin trade batch: %w", err)
	}
	defer tx.Rollback()

	// Repeat identifiers are a no-op, not an error: venues overlap their
	// recent-trades windows between polls.
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trades (venue, trade_id, price, amount, quote_value, side, traded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (venue, trade_id) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("prepare trade insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, t := range trades {
		res, err := stmt.ExecContext(ctx,
			t.Venue, t.TradeID, t.Price, t.Amount, t.QuoteValue, t.Side, t.TradedAt)
		if err != nil {
			return inserted, fmt.Errorf("insert trade %s: %w", t.TradeID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += n
		}
	}

	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("commit trade batch: %w", err)
	}

	return inserted, nil
}

func (r *tradeRepo) VolumeStats(ctx context.Context, venue model.Venue, since time.Time) (float64, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var volume sql.NullFloat64
	var count int64
	err := r.db.QueryRowxContext(ctx, `
		SELECT COALESCE(SUM(quote_value), 0), COUNT(*)
		FROM trades
		WHERE venue = $1 AND traded_at >= $2`,
		venue, since).Scan(&volume, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("query volume stats: %w", err)
	}

	return volume.Float64, count, nil
}

type metricsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewMetricsRepo creates the postgres metrics snapshot repository.
func NewMetricsRepo(db *sqlx.DB, timeout time.Duration) store.MetricsRepo {
	return &metricsRepo{db: db, timeout: timeout}
}

func (r *metricsRepo) Insert(ctx context.Context, snap *model.MetricsSnapshot) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO metrics_snapshots (
			venue, avg_spread_1h, avg_spread_24h, volume_1h, volume_24h,
			trade_count_1h, trade_count_24h, price_range_24h, volatility_1h, captured_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`

	err := r.db.QueryRowxContext(ctx, query,
		snap.Venue, snap.AvgSpread1h, snap.AvgSpread24h, snap.Volume1h, snap.Volume24h,
		snap.TradeCount1h, snap.TradeCount24h, snap.PriceRange24h, snap.Volatility1h,
		snap.CapturedAt).Scan(&snap.ID)
	if err != nil {
		return fmt.Errorf("insert metrics snapshot: %w", err)
	}

	return nil
}
