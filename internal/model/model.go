package model

import "time"

// Venue identifies a monitored exchange.
type Venue string

const (
	VenueMEXC   Venue = "mexc"
	VenueKuCoin Venue = "kucoin"
)

// Severity levels for alerts.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert types are stable identifiers used for cooldown matching and display.
const (
	AlertSpreadCritical      = "SPREAD_CRITICAL"
	AlertSpreadWarning       = "SPREAD_WARNING"
	AlertDepthCritical       = "DEPTH_CRITICAL"
	AlertDepthWarning        = "DEPTH_WARNING"
	AlertPriceChangeCritical = "PRICE_CHANGE_CRITICAL"
	AlertPriceChangeWarning  = "PRICE_CHANGE_WARNING"
	AlertPriceChangeNotice   = "PRICE_CHANGE_NOTICE"
	AlertInventorySkew       = "INVENTORY_SKEW"
	AlertLowLiquidityShare   = "LOW_LIQUIDITY_SHARE"
	AlertVolumeSpike         = "VOLUME_SPIKE"
)

// Recommendation categories group rules so at most one recommendation is
// active per (venue, category) at a time.
type Category string

const (
	CategorySpread     Category = "SPREAD"
	CategoryDepth      Category = "DEPTH"
	CategoryVolatility Category = "VOLATILITY"
	CategoryInventory  Category = "INVENTORY"
)

// Action is the remediation a recommendation asks the operator to take.
type Action string

const (
	ActionPullLiquidity  Action = "PULL_LIQUIDITY"
	ActionAddLiquidity   Action = "ADD_LIQUIDITY"
	ActionTightenSpread  Action = "TIGHTEN_SPREAD"
	ActionReduceExposure Action = "REDUCE_EXPOSURE"
	ActionRebalanceBid   Action = "REBALANCE_BID"
	ActionRebalanceAsk   Action = "REBALANCE_ASK"
	ActionHold           Action = "HOLD"
)

// MarketSnapshot is one venue's ticker state captured at run time.
// Rows are append-only, one per venue per run.
type MarketSnapshot struct {
	ID               int64     `json:"id" db:"id"`
	Venue            Venue     `json:"venue" db:"venue"`
	Symbol           string    `json:"symbol" db:"symbol"`
	LastPrice        float64   `json:"last_price" db:"last_price"`
	BestBid          float64   `json:"best_bid" db:"best_bid"`
	BestAsk          float64   `json:"best_ask" db:"best_ask"`
	SpreadAbs        float64   `json:"spread_abs" db:"spread_abs"`
	SpreadPercent    float64   `json:"spread_percent" db:"spread_percent"`
	VolumeBase24h    float64   `json:"volume_base_24h" db:"volume_base_24h"`
	VolumeQuote24h   float64   `json:"volume_quote_24h" db:"volume_quote_24h"`
	High24h          float64   `json:"high_24h" db:"high_24h"`
	Low24h           float64   `json:"low_24h" db:"low_24h"`
	PriceChange24h   float64   `json:"price_change_24h" db:"price_change_24h"`
	PriceChangePct   float64   `json:"price_change_pct" db:"price_change_pct"`
	CapturedAt       time.Time `json:"captured_at" db:"captured_at"`
}

// PriceLevel is a single order book level: price and base-asset amount.
type PriceLevel struct {
	Price  float64 `json:"price"`
	Amount float64 `json:"amount"`
}

// OrderBook holds the two ordered sides of a venue's book. Bids are sorted
// descending by price, asks ascending. Ordering is an input invariant: the
// depth walk relies on it and malformed books are rejected, never re-sorted.
type OrderBook struct {
	Venue      Venue        `json:"venue"`
	Symbol     string       `json:"symbol"`
	Bids       []PriceLevel `json:"bids"`
	Asks       []PriceLevel `json:"asks"`
	CapturedAt time.Time    `json:"captured_at"`
}

// DepthMeasurement is cumulative book depth within one percentage band of
// mid-price, captured per venue per run.
type DepthMeasurement struct {
	ID          int64     `json:"id" db:"id"`
	Venue       Venue     `json:"venue" db:"venue"`
	BandPercent float64   `json:"band_percent" db:"band_percent"`
	BidAmount   float64   `json:"bid_amount" db:"bid_amount"`
	BidValue    float64   `json:"bid_value" db:"bid_value"`
	AskAmount   float64   `json:"ask_amount" db:"ask_amount"`
	AskValue    float64   `json:"ask_value" db:"ask_value"`
	CapturedAt  time.Time `json:"captured_at" db:"captured_at"`
}

// TotalValue returns combined bid and ask quote value within the band.
func (d DepthMeasurement) TotalValue() float64 {
	return d.BidValue + d.AskValue
}

// TradeRecord is a public trade reported by a venue. TradeID is unique per
// venue; re-inserting a seen identifier is a no-op.
type TradeRecord struct {
	ID         int64     `json:"id" db:"id"`
	Venue      Venue     `json:"venue" db:"venue"`
	TradeID    string    `json:"trade_id" db:"trade_id"`
	Price      float64   `json:"price" db:"price"`
	Amount     float64   `json:"amount" db:"amount"`
	QuoteValue float64   `json:"quote_value" db:"quote_value"`
	Side       string    `json:"side" db:"side"`
	TradedAt   time.Time `json:"traded_at" db:"traded_at"`
}

// MetricsSnapshot holds trailing-window aggregates recomputed from the fact
// tables on every run. Nothing here is carried incrementally between runs.
type MetricsSnapshot struct {
	ID             int64     `json:"id" db:"id"`
	Venue          Venue     `json:"venue" db:"venue"`
	AvgSpread1h    float64   `json:"avg_spread_1h" db:"avg_spread_1h"`
	AvgSpread24h   float64   `json:"avg_spread_24h" db:"avg_spread_24h"`
	Volume1h       float64   `json:"volume_1h" db:"volume_1h"`
	Volume24h      float64   `json:"volume_24h" db:"volume_24h"`
	TradeCount1h   int64     `json:"trade_count_1h" db:"trade_count_1h"`
	TradeCount24h  int64     `json:"trade_count_24h" db:"trade_count_24h"`
	PriceRange24h  float64   `json:"price_range_24h" db:"price_range_24h"`
	Volatility1h   float64   `json:"volatility_1h" db:"volatility_1h"`
	CapturedAt     time.Time `json:"captured_at" db:"captured_at"`
}

// AssetBalance is one asset's balance on a venue.
type AssetBalance struct {
	Asset  string  `json:"asset"`
	Free   float64 `json:"free"`
	Locked float64 `json:"locked"`
}

// Total returns free plus locked balance.
func (b AssetBalance) Total() float64 { return b.Free + b.Locked }

// BalanceSnapshot is the operator's position on a venue at run time.
type BalanceSnapshot struct {
	ID          int64     `json:"id" db:"id"`
	Venue       Venue     `json:"venue" db:"venue"`
	Asset       string    `json:"asset" db:"asset"`
	Free        float64   `json:"free" db:"free"`
	Locked      float64   `json:"locked" db:"locked"`
	Total       float64   `json:"total" db:"total"`
	QuoteValue  float64   `json:"quote_value" db:"quote_value"`
	CapturedAt  time.Time `json:"captured_at" db:"captured_at"`
}

// OpenOrder is one of the operator's resting orders. Storage is a full
// replace per venue per run; venue APIs return complete snapshots.
type OpenOrder struct {
	ID         int64     `json:"id" db:"id"`
	Venue      Venue     `json:"venue" db:"venue"`
	OrderID    string    `json:"order_id" db:"order_id"`
	Side       string    `json:"side" db:"side"`
	Price      float64   `json:"price" db:"price"`
	Amount     float64   `json:"amount" db:"amount"`
	Filled     float64   `json:"filled" db:"filled"`
	OrderType  string    `json:"order_type" db:"order_type"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// UserDepth is the operator's own cumulative order depth within a band,
// alongside its share of the market depth for the same band and side.
type UserDepth struct {
	BandPercent float64 `json:"band_percent"`
	BidValue    float64 `json:"bid_value"`
	AskValue    float64 `json:"ask_value"`
	BidShare    float64 `json:"bid_share"` // percent of market bid depth
	AskShare    float64 `json:"ask_share"` // percent of market ask depth
}

// AlertCandidate is a rule-engine output before cooldown filtering.
// A nil Venue means the alert applies to all venues.
type AlertCandidate struct {
	Type     string             `json:"type"`
	Severity Severity           `json:"severity"`
	Venue    *Venue             `json:"venue,omitempty"`
	Message  string             `json:"message"`
	Details  map[string]float64 `json:"details,omitempty"`
}

// AlertLogEntry is the persisted audit record for every candidate that
// survived cooldown, whether or not delivery succeeded. It doubles as the
// cooldown lookback source.
type AlertLogEntry struct {
	ID        int64              `json:"id" db:"id"`
	Type      string             `json:"type" db:"type"`
	Severity  Severity           `json:"severity" db:"severity"`
	Venue     *Venue             `json:"venue,omitempty" db:"venue"`
	Message   string             `json:"message" db:"message"`
	Details   map[string]float64 `json:"details,omitempty" db:"details"`
	Delivered bool               `json:"delivered" db:"delivered"`
	CreatedAt time.Time          `json:"created_at" db:"created_at"`
}

// Recommendation is a remediation suggestion. At most one active row exists
// per (venue, category); new ones supersede prior actives for the same key.
type Recommendation struct {
	ID        int64      `json:"id" db:"id"`
	Venue     *Venue     `json:"venue,omitempty" db:"venue"`
	Category  Category   `json:"category" db:"category"`
	Action    Action     `json:"action" db:"action"`
	Reason    string     `json:"reason" db:"reason"`
	Priority  int        `json:"priority" db:"priority"`
	Active    bool       `json:"active" db:"active"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" db:"expires_at"`
}

// Setting is one row of the flat key/value runtime configuration store.
type Setting struct {
	Key         string    `json:"key" db:"key"`
	Value       string    `json:"value" db:"value"`
	Description string    `json:"description" db:"description"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
