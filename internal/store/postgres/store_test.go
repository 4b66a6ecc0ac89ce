package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liqwatch/internal/model"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestSettingsRepo_All(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSettingsRepo(db, time.Second)

	mock.ExpectQuery(`SELECT key, value FROM settings`).
		WillReturnRows(sqlmock.NewRows([]string{"key", "value"}).
			AddRow("spread_warning_threshold", "1.5").
			AddRow("monitoring_enabled", "true"))

	got, err := repo.All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"spread_warning_threshold": "1.5",
		"monitoring_enabled":       "true",
	}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotRepo_Insert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSnapshotRepo(db, time.Second)

	mock.ExpectQuery(`INSERT INTO market_snapshots`).
		WithArgs(model.VenueMEXC, "BTC/USDT", 100.0, 99.9, 100.1, sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	snap := &model.MarketSnapshot{
		Venue:      model.VenueMEXC,
		Symbol:     "BTC/USDT",
		LastPrice:  100,
		BestBid:    99.9,
		BestAsk:    100.1,
		CapturedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Insert(context.Background(), snap))
	assert.Equal(t, int64(7), snap.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotRepo_AvgSpreadEmptyWindow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSnapshotRepo(db, time.Second)

	// AVG over zero rows is NULL; it must come back as 0, not an error.
	mock.ExpectQuery(`SELECT AVG\(spread_percent\)`).
		WillReturnRows(sqlmock.NewRows([]string{"avg"}).AddRow(nil))

	avg, err := repo.AvgSpread(context.Background(), model.VenueKuCoin, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0.0, avg)
}

func TestTradeRepo_InsertBatchSkipsDuplicates(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTradeRepo(db, time.Second)

	mock.ExpectBegin()
	stmt := mock.ExpectPrepare(`INSERT INTO trades .+ ON CONFLICT \(venue, trade_id\) DO NOTHING`)
	stmt.ExpectExec().
		WithArgs(model.VenueMEXC, "t-1", 100.0, 0.5, 50.0, "buy", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Second trade repeats an identifier: the conflict clause swallows it.
	stmt.ExpectExec().
		WithArgs(model.VenueMEXC, "t-1", 100.0, 0.5, 50.0, "buy", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	now := time.Now().UTC()
	trades := []model.TradeRecord{
		{Venue: model.VenueMEXC, TradeID: "t-1", Price: 100, Amount: 0.5, QuoteValue: 50, Side: "buy", TradedAt: now},
		{Venue: model.VenueMEXC, TradeID: "t-1", Price: 100, Amount: 0.5, QuoteValue: 50, Side: "buy", TradedAt: now},
	}

	inserted, err := repo.InsertBatch(context.Background(), trades)
	require.NoError(t, err)
	assert.Equal(t, int64(1), inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTradeRepo_InsertBatchEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTradeRepo(db, time.Second)

	inserted, err := repo.InsertBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDepthRepo_InsertBatch(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDepthRepo(db, time.Second)

	mock.ExpectBegin()
	stmt := mock.ExpectPrepare(`INSERT INTO depth_measurements`)
	stmt.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	stmt.ExpectExec().WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	now := time.Now().UTC()
	err := repo.InsertBatch(context.Background(), []model.DepthMeasurement{
		{Venue: model.VenueMEXC, BandPercent: 2, BidValue: 100, AskValue: 100, CapturedAt: now},
		{Venue: model.VenueMEXC, BandPercent: 5, BidValue: 200, AskValue: 200, CapturedAt: now},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertLogRepo_CountRecentByTypeIgnoresVenue(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAlertLogRepo(db, time.Second)

	since := time.Now().Add(-30 * time.Minute)
	mock.ExpectQuery(`SELECT COUNT\(\*\)\s+FROM alert_log\s+WHERE type = \$1 AND created_at >= \$2`).
		WithArgs("SPREAD_CRITICAL", since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(2)))

	n, err := repo.CountRecentByType(context.Background(), "SPREAD_CRITICAL", since)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertLogRepo_Insert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAlertLogRepo(db, time.Second)

	mock.ExpectQuery(`INSERT INTO alert_log`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))

	venue := model.VenueKuCoin
	entry := &model.AlertLogEntry{
		Type:      "DEPTH_WARNING",
		Severity:  model.SeverityWarning,
		Venue:     &venue,
		Message:   "2% depth below warning threshold",
		Details:   map[string]float64{"total_value_usd": 4500},
		Delivered: true,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Insert(context.Background(), entry))
	assert.Equal(t, int64(11), entry.ID)
}

func TestRecommendationRepo_DeactivateThenInsert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRecommendationRepo(db, time.Second)
	venue := model.VenueMEXC

	mock.ExpectExec(`UPDATE recommendations\s+SET active = FALSE\s+WHERE active = TRUE AND category = \$1 AND venue IS NOT DISTINCT FROM \$2`).
		WithArgs(model.CategoryDepth, &venue).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.DeactivateActive(context.Background(), &venue, model.CategoryDepth))

	mock.ExpectQuery(`INSERT INTO recommendations`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))

	rec := &model.Recommendation{
		Venue:     &venue,
		Category:  model.CategoryDepth,
		Action:    model.ActionAddLiquidity,
		Reason:    "2% band depth below critical threshold",
		Priority:  10,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Insert(context.Background(), rec))
	assert.Equal(t, int64(3), rec.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecommendationRepo_ExpireDue(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRecommendationRepo(db, time.Second)

	mock.ExpectExec(`UPDATE recommendations\s+SET active = FALSE\s+WHERE active = TRUE AND expires_at IS NOT NULL AND expires_at <= \$1`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.ExpireDue(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
