package mexc

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"liqwatch/internal/config"
	"liqwatch/internal/model"
	"liqwatch/internal/venue"
)

// Client fetches market and account data from the MEXC spot REST API.
type Client struct {
	transport *venue.Transport
	cfg       config.VenueConfig
	symbol    string // exchange format, e.g. BTCUSDT
	pair      string // canonical format, e.g. BTC/USDT
	now       func() time.Time
}

// New creates a MEXC client for one trading pair.
func New(cfg config.VenueConfig, pair string) (*Client, error) {
	base, quote, err := venue.SplitSymbol(pair)
	if err != nil {
		return nil, err
	}

	return &Client{
		transport: venue.NewTransport("mexc", cfg.BaseURL, cfg.RequestTimeout, cfg.RateLimitRPS),
		cfg:       cfg,
		symbol:    base + quote,
		pair:      pair,
		now:       time.Now,
	}, nil
}

func (c *Client) Name() model.Venue { return model.VenueMEXC }

func (c *Client) HasCredentials() bool { return c.cfg.HasCredentials() }

type tickerResponse struct {
	LastPrice          string `json:"lastPrice"`
	BidPrice           string `json:"bidPrice"`
	AskPrice           string `json:"askPrice"`
	Volume             string `json:"volume"`
	QuoteVolume        string `json:"quoteVolume"`
	HighPrice          string `json:"highPrice"`
	LowPrice           string `json:"lowPrice"`
	PriceChange        string `json:"priceChange"`
	PriceChangePercent string `json:"priceChangePercent"`
}

// FetchTicker returns the 24h ticker as a normalized snapshot.
func (c *Client) FetchTicker(ctx context.Context) (*model.MarketSnapshot, error) {
	body, err := c.transport.Get(ctx, "/api/v3/ticker/24hr", url.Values{"symbol": {c.symbol}}, nil)
	if err != nil {
		return nil, fmt.Errorf("mexc ticker: %w", err)
	}

	var t tickerResponse
	if err := json.Unmarshal(body, &t); err != nil {
		return nil, fmt.Errorf("mexc ticker decode: %w", err)
	}

	snap := &model.MarketSnapshot{
		Venue:      model.VenueMEXC,
		Symbol:     c.pair,
		CapturedAt: c.now().UTC(),
	}

	fields := []struct {
		name string
		raw  string
		dst  *float64
	}{
		{"lastPrice", t.LastPrice, &snap.LastPrice},
		{"bidPrice", t.BidPrice, &snap.BestBid},
		{"askPrice", t.AskPrice, &snap.BestAsk},
		{"volume", t.Volume, &snap.VolumeBase24h},
		{"quoteVolume", t.QuoteVolume, &snap.VolumeQuote24h},
		{"highPrice", t.HighPrice, &snap.High24h},
		{"lowPrice", t.LowPrice, &snap.Low24h},
		{"priceChange", t.PriceChange, &snap.PriceChange24h},
		{"priceChangePercent", t.PriceChangePercent, &snap.PriceChangePct},
	}
	for _, f := range fields {
		v, err := parseFloat(f.name, f.raw)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}

	// MEXC reports the 24h change as a rate, not a percent.
	snap.PriceChangePct *= 100

	if snap.BestBid > 0 && snap.BestAsk > snap.BestBid {
		snap.SpreadAbs = snap.BestAsk - snap.BestBid
		mid := (snap.BestBid + snap.BestAsk) / 2
		snap.SpreadPercent = snap.SpreadAbs / mid * 100
	}

	return snap, nil
}

type depthResponse struct {
	Bids [][]string `json:"bids"`
	Asks [][]string `json:"asks"`
}

// FetchOrderBook returns the book snapshot, bids descending and asks
// ascending as MEXC delivers them.
func (c *Client) FetchOrderBook(ctx context.Context, depth int) (*model.OrderBook, error) {
	q := url.Values{"symbol": {c.symbol}, "limit": {strconv.Itoa(depth)}}
	body, err := c.transport.Get(ctx, "/api/v3/depth", q, nil)
	if err != nil {
		return nil, fmt.Errorf("mexc depth: %w", err)
	}

	var d depthResponse
	if err := json.Unmarshal(body, &d); err != nil {
		return nil, fmt.Errorf("mexc depth decode: %w", err)
	}

	book := &model.OrderBook{
		Venue:      model.VenueMEXC,
		Symbol:     c.pair,
		CapturedAt: c.now().UTC(),
	}
	if book.Bids, err = parseLevels("bid", d.Bids); err != nil {
		return nil, err
	}
	if book.Asks, err = parseLevels("ask", d.Asks); err != nil {
		return nil, err
	}

	return book, nil
}

type tradeResponse struct {
	ID           json.Number `json:"id"`
	Price        string      `json:"price"`
	Qty          string      `json:"qty"`
	QuoteQty     string      `json:"quoteQty"`
	Time         int64       `json:"time"`
	IsBuyerMaker bool        `json:"isBuyerMaker"`
}

// FetchRecentTrades returns recent public trades. MEXC omits trade IDs on
// some pairs; a composite of time, price and amount stands in so dedup still
// works.
func (c *Client) FetchRecentTrades(ctx context.Context, limit int) ([]model.TradeRecord, error) {
	q := url.Values{"symbol": {c.symbol}, "limit": {strconv.Itoa(limit)}}
	body, err := c.transport.Get(ctx, "/api/v3/trades", q, nil)
	if err != nil {
		return nil, fmt.Errorf("mexc trades: %w", err)
	}

	var raw []tradeResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("mexc trades decode: %w", err)
	}

	trades := make([]model.TradeRecord, 0, len(raw))
	for _, t := range raw {
		price, err := parseFloat("trade price", t.Price)
		if err != nil {
			return nil, err
		}
		amount, err := parseFloat("trade qty", t.Qty)
		if err != nil {
			return nil, err
		}
		quote, err := parseFloat("trade quoteQty", t.QuoteQty)
		if err != nil {
			return nil, err
		}

		id := t.ID.String()
		if id == "" || id == "null" {
			id = fmt.Sprintf("%d-%s-%s", t.Time, t.Price, t.Qty)
		}

		side := "buy"
		if t.IsBuyerMaker {
			side = "sell"
		}

		trades = append(trades, model.TradeRecord{
			Venue:      model.VenueMEXC,
			TradeID:    id,
			Price:      price,
			Amount:     amount,
			QuoteValue: quote,
			Side:       side,
			TradedAt:   time.UnixMilli(t.Time).UTC(),
		})
	}

	return trades, nil
}

type accountResponse struct {
	Balances []struct {
		Asset  string `json:"asset"`
		Free   string `json:"free"`
		Locked string `json:"locked"`
	} `json:"balances"`
}

// FetchBalances returns all non-zero account balances.
func (c *Client) FetchBalances(ctx context.Context) ([]model.AssetBalance, error) {
	body, err := c.signedGet(ctx, "/api/v3/account", url.Values{})
	if err != nil {
		return nil, fmt.Errorf("mexc account: %w", err)
	}

	var acct accountResponse
	if err := json.Unmarshal(body, &acct); err != nil {
		return nil, fmt.Errorf("mexc account decode: %w", err)
	}

	var balances []model.AssetBalance
	for _, b := range acct.Balances {
		free, err := parseFloat("balance free", b.Free)
		if err != nil {
			return nil, err
		}
		locked, err := parseFloat("balance locked", b.Locked)
		if err != nil {
			return nil, err
		}
		if free == 0 && locked == 0 {
			continue
		}
		balances = append(balances, model.AssetBalance{Asset: b.Asset, Free: free, Locked: locked})
	}

	return balances, nil
}

type openOrderResponse struct {
	OrderID     string `json:"orderId"`
	Side        string `json:"side"`
	Price       string `json:"price"`
	OrigQty     string `json:"origQty"`
	ExecutedQty string `json:"executedQty"`
	Type        string `json:"type"`
	Time        int64  `json:"time"`
}

// FetchOpenOrders returns the complete open-order snapshot for the pair.
func (c *Client) FetchOpenOrders(ctx context.Context) ([]model.OpenOrder, error) {
	body, err := c.signedGet(ctx, "/api/v3/openOrders", url.Values{"symbol": {c.symbol}})
	if err != nil {
		return nil, fmt.Errorf("mexc open orders: %w", err)
	}

	var raw []openOrderResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("mexc open orders decode: %w", err)
	}

	orders := make([]model.OpenOrder, 0, len(raw))
	for _, o := range raw {
		price, err := parseFloat("order price", o.Price)
		if err != nil {
			return nil, err
		}
		amount, err := parseFloat("order origQty", o.OrigQty)
		if err != nil {
			return nil, err
		}
		filled, err := parseFloat("order executedQty", o.ExecutedQty)
		if err != nil {
			return nil, err
		}

		orders = append(orders, model.OpenOrder{
			Venue:     model.VenueMEXC,
			OrderID:   o.OrderID,
			Side:      strings.ToLower(o.Side),
			Price:     price,
			Amount:    amount,
			Filled:    filled,
			OrderType: strings.ToLower(o.Type),
			CreatedAt: time.UnixMilli(o.Time).UTC(),
		})
	}

	return orders, nil
}

// signedGet adds the timestamp and HMAC-SHA256 signature MEXC requires on
// authenticated endpoints.
func (c *Client) signedGet(ctx context.Context, path string, query url.Values) ([]byte, error) {
	query.Set("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))

	mac := hmac.New(sha256.New, []byte(c.cfg.APISecret))
	mac.Write([]byte(query.Encode()))
	query.Set("signature", hex.EncodeToString(mac.Sum(nil)))

	headers := http.Header{"X-MEXC-APIKEY": {c.cfg.APIKey}}
	return c.transport.Get(ctx, path, query, headers)
}

func parseFloat(name, raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("mexc %s: non-numeric value %q", name, raw)
	}
	return v, nil
}

func parseLevels(side string, raw [][]string) ([]model.PriceLevel, error) {
	levels := make([]model.PriceLevel, 0, len(raw))
	for _, pair := range raw {
		if len(pair) < 2 {
			return nil, fmt.Errorf("mexc %s level: want [price, amount], got %d fields", side, len(pair))
		}
		price, err := parseFloat(side+" price", pair[0])
		if err != nil {
			return nil, err
		}
		amount, err := parseFloat(side+" amount", pair[1])
		if err != nil {
			return nil, err
		}
		levels = append(levels, model.PriceLevel{Price: price, Amount: amount})
	}
	return levels, nil
}
