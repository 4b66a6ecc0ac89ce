package kucoin

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
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

// Client fetches market and account data from the KuCoin spot REST API.
type Client struct {
	transport *venue.Transport
	cfg       config.VenueConfig
	symbol    string // exchange format, e.g. BTC-USDT
	pair      string // canonical format, e.g. BTC/USDT
	base      string
	quote     string
	now       func() time.Time
}

// New creates a KuCoin client for one trading pair.
func New(cfg config.VenueConfig, pair string) (*Client, error) {
	base, quote, err := venue.SplitSymbol(pair)
	if err != nil {
		return nil, err
	}

	return &Client{
		transport: venue.NewTransport("kucoin", cfg.BaseURL, cfg.RequestTimeout, cfg.RateLimitRPS),
		cfg:       cfg,
		symbol:    base + "-" + quote,
		pair:      pair,
		base:      base,
		quote:     quote,
		now:       time.Now,
	}, nil
}

func (c *Client) Name() model.Venue { return model.VenueKuCoin }

func (c *Client) HasCredentials() bool {
	return c.cfg.HasCredentials() && c.cfg.APIPassphrase != ""
}

// envelope is KuCoin's standard response wrapper.
type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func decodeEnvelope(body []byte, dst interface{}) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("kucoin envelope decode: %w", err)
	}
	if env.Code != "200000" {
		return fmt.Errorf("kucoin error %s: %s", env.Code, env.Msg)
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		return fmt.Errorf("kucoin data decode: %w", err)
	}
	return nil
}

type statsResponse struct {
	Last        string `json:"last"`
	Buy         string `json:"buy"`
	Sell        string `json:"sell"`
	Vol         string `json:"vol"`
	VolValue    string `json:"volValue"`
	High        string `json:"high"`
	Low         string `json:"low"`
	ChangePrice string `json:"changePrice"`
	ChangeRate  string `json:"changeRate"`
}

// FetchTicker returns the 24h market stats as a normalized snapshot.
func (c *Client) FetchTicker(ctx context.Context) (*model.MarketSnapshot, error) {
	body, err := c.transport.Get(ctx, "/api/v1/market/stats", url.Values{"symbol": {c.symbol}}, nil)
	if err != nil {
		return nil, fmt.Errorf("kucoin stats: %w", err)
	}

	var t statsResponse
	if err := decodeEnvelope(body, &t); err != nil {
		return nil, fmt.Errorf("kucoin stats: %w", err)
	}

	snap := &model.MarketSnapshot{
		Venue:      model.VenueKuCoin,
		Symbol:     c.pair,
		CapturedAt: c.now().UTC(),
	}

	fields := []struct {
		name string
		raw  string
		dst  *float64
	}{
		{"last", t.Last, &snap.LastPrice},
		{"buy", t.Buy, &snap.BestBid},
		{"sell", t.Sell, &snap.BestAsk},
		{"vol", t.Vol, &snap.VolumeBase24h},
		{"volValue", t.VolValue, &snap.VolumeQuote24h},
		{"high", t.High, &snap.High24h},
		{"low", t.Low, &snap.Low24h},
		{"changePrice", t.ChangePrice, &snap.PriceChange24h},
		{"changeRate", t.ChangeRate, &snap.PriceChangePct},
	}
	for _, f := range fields {
		v, err := parseFloat(f.name, f.raw)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}

	// changeRate is a fraction, not a percent.
	snap.PriceChangePct *= 100

	if snap.BestBid > 0 && snap.BestAsk > snap.BestBid {
		snap.SpreadAbs = snap.BestAsk - snap.BestBid
		mid := (snap.BestBid + snap.BestAsk) / 2
		snap.SpreadPercent = snap.SpreadAbs / mid * 100
	}

	return snap, nil
}

type orderBookResponse struct {
	Bids [][]string `json:"bids"`
	Asks [][]string `json:"asks"`
	Time int64      `json:"time"`
}

// FetchOrderBook returns the aggregated level-2 book. KuCoin serves fixed
// slices of 20 or 100 levels; anything above 20 uses the 100-level endpoint.
func (c *Client) FetchOrderBook(ctx context.Context, depth int) (*model.OrderBook, error) {
	path := "/api/v1/market/orderbook/level2_100"
	if depth <= 20 {
		path = "/api/v1/market/orderbook/level2_20"
	}

	body, err := c.transport.Get(ctx, path, url.Values{"symbol": {c.symbol}}, nil)
	if err != nil {
		return nil, fmt.Errorf("kucoin orderbook: %w", err)
	}

	var d orderBookResponse
	if err := decodeEnvelope(body, &d); err != nil {
		return nil, fmt.Errorf("kucoin orderbook: %w", err)
	}

	book := &model.OrderBook{
		Venue:      model.VenueKuCoin,
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

type historyResponse struct {
	Sequence string `json:"sequence"`
	Price    string `json:"price"`
	Size     string `json:"size"`
	Side     string `json:"side"`
	Time     int64  `json:"time"` // nanoseconds
}

// FetchRecentTrades returns the recent public trade history. KuCoin serves a
// fixed window of the last 100 trades; limit trims client-side.
func (c *Client) FetchRecentTrades(ctx context.Context, limit int) ([]model.TradeRecord, error) {
	body, err := c.transport.Get(ctx, "/api/v1/market/histories", url.Values{"symbol": {c.symbol}}, nil)
	if err != nil {
		return nil, fmt.Errorf("kucoin histories: %w", err)
	}

	var raw []historyResponse
	if err := decodeEnvelope(body, &raw); err != nil {
		return nil, fmt.Errorf("kucoin histories: %w", err)
	}

	if limit > 0 && len(raw) > limit {
		raw = raw[len(raw)-limit:]
	}

	trades := make([]model.TradeRecord, 0, len(raw))
	for _, t := range raw {
		price, err := parseFloat("trade price", t.Price)
		if err != nil {
			return nil, err
		}
		amount, err := parseFloat("trade size", t.Size)
		if err != nil {
			return nil, err
		}

		trades = append(trades, model.TradeRecord{
			Venue:      model.VenueKuCoin,
			TradeID:    t.Sequence,
			Price:      price,
			Amount:     amount,
			QuoteValue: price * amount,
			Side:       strings.ToLower(t.Side),
			TradedAt:   time.Unix(0, t.Time).UTC(),
		})
	}

	return trades, nil
}

type accountsResponse []struct {
	Currency  string `json:"currency"`
	Type      string `json:"type"`
	Balance   string `json:"balance"`
	Available string `json:"available"`
	Holds     string `json:"holds"`
}

// FetchBalances returns trade-account balances for the pair's two assets.
func (c *Client) FetchBalances(ctx context.Context) ([]model.AssetBalance, error) {
	body, err := c.signedGet(ctx, "/api/v1/accounts", url.Values{"type": {"trade"}})
	if err != nil {
		return nil, fmt.Errorf("kucoin accounts: %w", err)
	}

	var raw accountsResponse
	if err := decodeEnvelope(body, &raw); err != nil {
		return nil, fmt.Errorf("kucoin accounts: %w", err)
	}

	var balances []model.AssetBalance
	for _, a := range raw {
		if a.Currency != c.base && a.Currency != c.quote {
			continue
		}
		available, err := parseFloat("account available", a.Available)
		if err != nil {
			return nil, err
		}
		holds, err := parseFloat("account holds", a.Holds)
		if err != nil {
			return nil, err
		}
		balances = append(balances, model.AssetBalance{Asset: a.Currency, Free: available, Locked: holds})
	}

	return balances, nil
}

type ordersResponse struct {
	Items []struct {
		ID        string `json:"id"`
		Side      string `json:"side"`
		Price     string `json:"price"`
		Size      string `json:"size"`
		DealSize  string `json:"dealSize"`
		Type      string `json:"type"`
		CreatedAt int64  `json:"createdAt"` // milliseconds
	} `json:"items"`
}

// FetchOpenOrders returns the complete active-order snapshot for the pair.
func (c *Client) FetchOpenOrders(ctx context.Context) ([]model.OpenOrder, error) {
	q := url.Values{"status": {"active"}, "symbol": {c.symbol}}
	body, err := c.signedGet(ctx, "/api/v1/orders", q)
	if err != nil {
		return nil, fmt.Errorf("kucoin orders: %w", err)
	}

	var raw ordersResponse
	if err := decodeEnvelope(body, &raw); err != nil {
		return nil, fmt.Errorf("kucoin orders: %w", err)
	}

	orders := make([]model.OpenOrder, 0, len(raw.Items))
	for _, o := range raw.Items {
		price, err := parseFloat("order price", o.Price)
		if err != nil {
			return nil, err
		}
		amount, err := parseFloat("order size", o.Size)
		if err != nil {
			return nil, err
		}
		filled, err := parseFloat("order dealSize", o.DealSize)
		if err != nil {
			return nil, err
		}

		orders = append(orders, model.OpenOrder{
			Venue:     model.VenueKuCoin,
			OrderID:   o.ID,
			Side:      strings.ToLower(o.Side),
			Price:     price,
			Amount:    amount,
			Filled:    filled,
			OrderType: strings.ToLower(o.Type),
			CreatedAt: time.UnixMilli(o.CreatedAt).UTC(),
		})
	}

	return orders, nil
}

// signedGet builds the KC-API v2 signature headers: the signature covers
// timestamp + method + path-with-query, and the passphrase is itself signed.
func (c *Client) signedGet(ctx context.Context, path string, query url.Values) ([]byte, error) {
	ts := strconv.FormatInt(c.now().UnixMilli(), 10)

	endpoint := path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	headers := http.Header{
		"KC-API-KEY":         {c.cfg.APIKey},
		"KC-API-SIGN":        {c.sign(ts + http.MethodGet + endpoint)},
		"KC-API-TIMESTAMP":   {ts},
		"KC-API-PASSPHRASE":  {c.sign(c.cfg.APIPassphrase)},
		"KC-API-KEY-VERSION": {"2"},
	}

	return c.transport.Get(ctx, path, query, headers)
}

func (c *Client) sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(c.cfg.APISecret))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func parseFloat(name, raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("kucoin %s: non-numeric value %q", name, raw)
	}
	return v, nil
}

func parseLevels(side string, raw [][]string) ([]model.PriceLevel, error) {
	levels := make([]model.PriceLevel, 0, len(raw))
	for _, pair := range raw {
		if len(pair) < 2 {
			return nil, fmt.Errorf("kucoin %s level: want [price, amount], got %d fields", side, len(pair))
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
