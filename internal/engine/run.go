package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"liqwatch/internal/alert"
	"liqwatch/internal/cache"
	"liqwatch/internal/config"
	"liqwatch/internal/market"
	"liqwatch/internal/model"
	"liqwatch/internal/notify"
	"liqwatch/internal/obs"
	"liqwatch/internal/recommend"
	"liqwatch/internal/store"
	"liqwatch/internal/venue"
)

const (
	bookDepth  = 100
	tradeLimit = 100
)

// Params wires an Engine.
type Params struct {
	Store   *store.Store
	Clients []venue.Client
	Cache   *cache.HotCache
	Symbol  string
	Bands   []float64
	Logger  zerolog.Logger
}

// Engine executes one monitoring run: fetch, derive, persist, evaluate,
// recommend, dispatch. It holds no state between runs; runtime settings are
// re-read at the start of every invocation.
type Engine struct {
	store   *store.Store
	clients []venue.Client
	cache   *cache.HotCache
	symbol  string
	bands   []float64
	logger  zerolog.Logger
	now     func() time.Time

	// newNotifier is swapped in tests.
	newNotifier func(webhook string) notify.Notifier
}

// New creates an engine.
func New(p Params) *Engine {
	return &Engine{
		store:   p.Store,
		clients: p.Clients,
		cache:   p.Cache,
		symbol:  p.Symbol,
		bands:   p.Bands,
		logger:  p.Logger,
		now:     time.Now,
		newNotifier: func(webhook string) notify.Notifier {
			if webhook == "" {
				return notify.Noop{}
			}
			return notify.NewDiscord(webhook, 30*time.Second)
		},
	}
}

// Run executes a single batch invocation. Venue failures are logged and
// skipped; the only fatal conditions are an unreadable settings table or a
// settings parse error. The external trigger must prevent overlapping runs.
func (e *Engine) Run(ctx context.Context) error {
	start := e.now()
	defer func() {
		obs.RunDuration.Observe(e.now().Sub(start).Seconds())
		obs.RunsTotal.Inc()
	}()

	runID := uuid.NewString()
	logger := e.logger.With().Str("run_id", runID).Logger()

	raw, err := e.store.Settings.All(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	settings, err := config.ParseSettings(raw)
	if err != nil {
		return fmt.Errorf("parse settings: %w", err)
	}

	if !settings.MonitoringEnabled {
		logger.Info().Msg("monitoring disabled, skipping run")
		return nil
	}

	// Venues have no data dependency on each other: process concurrently,
	// each against the same immutable settings value.
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		findings []alert.Finding
	)
	for _, client := range e.clients {
		if !venueEnabled(settings, client.Name()) {
			logger.Debug().Str("venue", string(client.Name())).Msg("venue disabled")
			continue
		}

		wg.Add(1)
		go func(c venue.Client) {
			defer wg.Done()
			vf := e.processVenue(ctx, c, settings, logger)
			mu.Lock()
			findings = append(findings, vf...)
			mu.Unlock()
		}(client)
	}
	wg.Wait()

	manager := recommend.NewManager(e.store.Recommendations, logger)
	for _, f := range findings {
		if f.Rec == nil {
			continue
		}
		if err := manager.Upsert(ctx, *f.Rec); err != nil {
			logger.Error().Err(err).
				Str("category", string(f.Rec.Category)).
				Msg("recommendation upsert failed")
		}
	}

	dispatcher := alert.NewDispatcher(
		e.store.AlertLog,
		e.newNotifier(settings.DiscordWebhook),
		settings.AlertCooldown,
		logger,
	)
	candidates := make([]model.AlertCandidate, 0, len(findings))
	for _, f := range findings {
		candidates = append(candidates, f.Alert)
	}
	if err := dispatcher.Dispatch(ctx, candidates); err != nil {
		logger.Error().Err(err).Msg("alert dispatch failed")
	}

	logger.Info().
		Int("findings", len(findings)).
		Dur("elapsed", e.now().Sub(start)).
		Msg("run complete")

	return nil
}

// processVenue runs the fetch-derive-persist-evaluate pipeline for one venue.
// A missing ticker or order book skips the venue for this run; a trade fetch
// failure alone does not.
func (e *Engine) processVenue(ctx context.Context, c venue.Client, settings config.Settings, logger zerolog.Logger) []alert.Finding {
	name := c.Name()
	vlog := logger.With().Str("venue", string(name)).Logger()

	snap, err := c.FetchTicker(ctx)
	if err != nil {
		vlog.Warn().Err(err).Msg("ticker unavailable, skipping venue")
		obs.FetchFailures.WithLabelValues(string(name), "ticker").Inc()
		obs.VenuesSkipped.WithLabelValues(string(name)).Inc()
		return nil
	}

	book, err := c.FetchOrderBook(ctx, bookDepth)
	if err == nil {
		err = market.ValidateBook(book)
	}
	if err != nil {
		vlog.Warn().Err(err).Msg("order book unavailable, skipping venue")
		obs.FetchFailures.WithLabelValues(string(name), "orderbook").Inc()
		obs.VenuesSkipped.WithLabelValues(string(name)).Inc()
		return nil
	}

	// The validated book is the authority on top-of-book state; ticker bid
	// and ask can lag by a poll interval.
	mid := market.MidPrice(book)
	snap.BestBid = book.Bids[0].Price
	snap.BestAsk = book.Asks[0].Price
	snap.SpreadAbs = snap.BestAsk - snap.BestBid
	snap.SpreadPercent = market.SpreadPercent(book)

	if err := e.store.Snapshots.Insert(ctx, snap); err != nil {
		vlog.Error().Err(err).Msg("persist market snapshot failed")
		return nil
	}

	depths := make(map[float64]model.DepthMeasurement, len(e.bands))
	measurements := make([]model.DepthMeasurement, 0, len(e.bands))
	for _, band := range e.bands {
		m := market.BandDepth(book, band)
		depths[band] = m
		measurements = append(measurements, m)
	}
	if err := e.store.Depth.InsertBatch(ctx, measurements); err != nil {
		vlog.Error().Err(err).Msg("persist depth measurements failed")
		return nil
	}

	if trades, err := c.FetchRecentTrades(ctx, tradeLimit); err != nil {
		vlog.Warn().Err(err).Msg("trade fetch failed, continuing without trades")
		obs.FetchFailures.WithLabelValues(string(name), "trades").Inc()
	} else if inserted, err := e.store.Trades.InsertBatch(ctx, trades); err != nil {
		vlog.Error().Err(err).Msg("persist trades failed")
	} else {
		vlog.Debug().Int("fetched", len(trades)).Int64("new", inserted).Msg("trades stored")
	}

	computer := market.NewMetricsComputer(e.store.Snapshots, e.store.Trades)
	metrics, err := computer.Compute(ctx, name, e.now().UTC())
	if err != nil {
		vlog.Error().Err(err).Msg("metrics computation failed")
		metrics = nil
	} else if err := e.store.Metrics.Insert(ctx, metrics); err != nil {
		vlog.Error().Err(err).Msg("persist metrics snapshot failed")
	}

	userDepths, hasOrders := e.trackUserLiquidity(ctx, c, mid, depths, vlog)

	findings := alert.Evaluate(settings, alert.Input{
		Snapshot:  snap,
		Depths:    depths,
		UserDepth: userDepths,
		HasOrders: hasOrders,
		Metrics:   metrics,
	})

	if e.cache.Enabled() {
		if err := e.cache.SetLatest(ctx, name, snap, metrics); err != nil {
			vlog.Warn().Err(err).Msg("hot cache update failed")
		}
	}

	return findings
}

// trackUserLiquidity fetches the operator's balances and open orders when
// credentials are configured. Failures here degrade to market-only
// monitoring; they never skip the venue.
func (e *Engine) trackUserLiquidity(ctx context.Context, c venue.Client, mid float64, depths map[float64]model.DepthMeasurement, vlog zerolog.Logger) (map[float64]model.UserDepth, bool) {
	if !c.HasCredentials() {
		return nil, false
	}

	name := c.Name()
	now := e.now().UTC()

	base, quote, err := venue.SplitSymbol(e.symbol)
	if err != nil {
		base, quote = "", ""
	}

	if balances, err := c.FetchBalances(ctx); err != nil {
		vlog.Warn().Err(err).Msg("balance fetch failed")
		obs.FetchFailures.WithLabelValues(string(name), "balances").Inc()
	} else {
		rows := make([]model.BalanceSnapshot, 0, len(balances))
		for _, b := range balances {
			row := model.BalanceSnapshot{
				Venue:      name,
				Asset:      b.Asset,
				Free:       b.Free,
				Locked:     b.Locked,
				Total:      b.Total(),
				CapturedAt: now,
			}
			switch b.Asset {
			case base:
				row.QuoteValue = b.Total() * mid
			case quote:
				row.QuoteValue = b.Total()
			}
			rows = append(rows, row)
		}
		if err := e.store.Positions.InsertBalances(ctx, rows); err != nil {
			vlog.Error().Err(err).Msg("persist balances failed")
		}
	}

	orders, err := c.FetchOpenOrders(ctx)
	if err != nil {
		vlog.Warn().Err(err).Msg("open order fetch failed")
		obs.FetchFailures.WithLabelValues(string(name), "orders").Inc()
		return nil, false
	}
	if err := e.store.Positions.ReplaceOpenOrders(ctx, name, orders); err != nil {
		vlog.Error().Err(err).Msg("persist open orders failed")
	}
	if len(orders) == 0 {
		return nil, false
	}

	userDepths := make(map[float64]model.UserDepth, len(depths))
	for band, m := range depths {
		userDepths[band] = market.UserBandDepth(orders, mid, m)
	}

	return userDepths, true
}

func venueEnabled(s config.Settings, v model.Venue) bool {
	switch v {
	case model.VenueMEXC:
		return s.MEXCEnabled
	case model.VenueKuCoin:
		return s.KuCoinEnabled
	default:
		return false
	}
}
