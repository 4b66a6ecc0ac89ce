package market

import (
	"context"
	"fmt"
	"time"

	"liqwatch/internal/model"
	"liqwatch/internal/store"
)

// MetricsComputer derives trailing-window metrics from the fact tables.
// Every value is recomputed as an aggregate query each run; no rolling state
// survives between invocations.
type MetricsComputer struct {
	snapshots store.SnapshotRepo
	trades    store.TradeRepo
}

// NewMetricsComputer creates a computer over the snapshot and trade history.
func NewMetricsComputer(snapshots store.SnapshotRepo, trades store.TradeRepo) *MetricsComputer {
	return &MetricsComputer{snapshots: snapshots, trades: trades}
}

// Compute builds the venue's metrics snapshot as of now.
func (c *MetricsComputer) Compute(ctx context.Context, venue model.Venue, now time.Time) (*model.MetricsSnapshot, error) {
	hourAgo := now.Add(-time.Hour)
	dayAgo := now.Add(-24 * time.Hour)

	m := &model.MetricsSnapshot{Venue: venue, CapturedAt: now}

	var err error
	if m.AvgSpread1h, err = c.snapshots.AvgSpread(ctx, venue, hourAgo); err != nil {
		return nil, fmt.Errorf("avg spread 1h: %w", err)
	}
	if m.AvgSpread24h, err = c.snapshots.AvgSpread(ctx, venue, dayAgo); err != nil {
		return nil, fmt.Errorf("avg spread 24h: %w", err)
	}

	if m.Volume1h, m.TradeCount1h, err = c.trades.VolumeStats(ctx, venue, hourAgo); err != nil {
		return nil, fmt.Errorf("volume stats 1h: %w", err)
	}
	if m.Volume24h, m.TradeCount24h, err = c.trades.VolumeStats(ctx, venue, dayAgo); err != nil {
		return nil, fmt.Errorf("volume stats 24h: %w", err)
	}

	day, err := c.snapshots.PriceStats(ctx, venue, dayAgo)
	if err != nil {
		return nil, fmt.Errorf("price stats 24h: %w", err)
	}
	if day.Min > 0 {
		m.PriceRange24h = (day.Max - day.Min) / day.Min * 100
	}

	hour, err := c.snapshots.PriceStats(ctx, venue, hourAgo)
	if err != nil {
		return nil, fmt.Errorf("price stats 1h: %w", err)
	}
	// Coefficient of variation as a percent: population stddev over mean.
	if hour.Mean > 0 {
		m.Volatility1h = hour.StdDev / hour.Mean * 100
	}

	return m, nil
}
