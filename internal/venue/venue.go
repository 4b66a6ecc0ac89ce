package venue

import (
	"context"
	"fmt"
	"strings"

	"liqwatch/internal/model"
)

// Client is the per-venue data-fetching contract. Every call is bounded by
// the transport timeout and returns an error instead of panicking; the caller
// decides whether a failure skips the venue for the run.
type Client interface {
	Name() model.Venue

	FetchTicker(ctx context.Context) (*model.MarketSnapshot, error)
	FetchOrderBook(ctx context.Context, depth int) (*model.OrderBook, error)
	FetchRecentTrades(ctx context.Context, limit int) ([]model.TradeRecord, error)

	// HasCredentials reports whether the authenticated endpoints below can be
	// used. Absent credentials are a feature toggle, not an error.
	HasCredentials() bool
	FetchBalances(ctx context.Context) ([]model.AssetBalance, error)
	FetchOpenOrders(ctx context.Context) ([]model.OpenOrder, error)
}

// SplitSymbol splits a "BASE/QUOTE" pair into its two assets.
func SplitSymbol(symbol string) (base, quote string, err error) {
	parts := strings.Split(symbol, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid symbol %q, want BASE/QUOTE", symbol)
	}
	return parts[0], parts[1], nil
}
