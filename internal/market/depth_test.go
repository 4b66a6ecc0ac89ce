package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liqwatch/internal/model"
)

func testBook() *model.OrderBook {
	return &model.OrderBook{
		Venue:  model.VenueMEXC,
		Symbol: "BTC/USDT",
		Bids: []model.PriceLevel{
			{Price: 100, Amount: 1},
			{Price: 99, Amount: 2},
			{Price: 97, Amount: 3},
			{Price: 90, Amount: 10},
		},
		Asks: []model.PriceLevel{
			{Price: 102, Amount: 1},
			{Price: 103, Amount: 2},
			{Price: 105, Amount: 3},
			{Price: 112, Amount: 10},
		},
		CapturedAt: time.Now().UTC(),
	}
}

func TestValidateBook(t *testing.T) {
	require.NoError(t, ValidateBook(testBook()))
}

func TestValidateBook_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.OrderBook)
	}{
		{"empty bids", func(b *model.OrderBook) { b.Bids = nil }},
		{"empty asks", func(b *model.OrderBook) { b.Asks = nil }},
		{"bids not descending", func(b *model.OrderBook) { b.Bids[1].Price = 101 }},
		{"duplicate bid level", func(b *model.OrderBook) { b.Bids[1].Price = 100 }},
		{"asks not ascending", func(b *model.OrderBook) { b.Asks[1].Price = 101.5 }},
		{"crossed book", func(b *model.OrderBook) { b.Asks[0].Price = 99.5 }},
		{"zero best bid", func(b *model.OrderBook) {
			b.Bids = []model.PriceLevel{{Price: 0, Amount: 1}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			book := testBook()
			tt.mutate(book)
			assert.Error(t, ValidateBook(book))
		})
	}
}

func TestValidateBook_Nil(t *testing.T) {
	assert.Error(t, ValidateBook(nil))
}

func TestSpreadPercent(t *testing.T) {
	// bid 100, ask 102: mid 101, spread 2/101.
	got := SpreadPercent(testBook())
	assert.InDelta(t, 1.9802, got, 0.0001)
}

func TestMidPrice(t *testing.T) {
	assert.Equal(t, 101.0, MidPrice(testBook()))
}

func TestBandDepth_StopsAtFirstOutOfBandLevel(t *testing.T) {
	book := testBook()

	// 2% band around mid 101: [98.98, 103.02]. Bids 100 and 99 qualify, 97
	// does not; asks 102 and 103 qualify, 105 does not.
	m := BandDepth(book, 2)

	assert.Equal(t, model.VenueMEXC, m.Venue)
	assert.Equal(t, 2.0, m.BandPercent)
	assert.Equal(t, 3.0, m.BidAmount)
	assert.Equal(t, 1*100.0+2*99.0, m.BidValue)
	assert.Equal(t, 3.0, m.AskAmount)
	assert.Equal(t, 1*102.0+2*103.0, m.AskValue)
	assert.Equal(t, m.BidValue+m.AskValue, m.TotalValue())
}

func TestBandDepth_StopsNotSkips(t *testing.T) {
	// Once a level crosses the band bound the walk ends; deeper levels are
	// never inspected even when a huge one sits just past the bound.
	book := testBook()
	book.Bids = []model.PriceLevel{
		{Price: 100, Amount: 1},
		{Price: 95, Amount: 5},
		{Price: 94, Amount: 100},
	}

	m := BandDepth(book, 5)
	// mid = 101, bid bound = 95.95: only the 100 level is in band.
	assert.Equal(t, 1.0, m.BidAmount)
	assert.Equal(t, 100.0, m.BidValue)
}

func TestBandDepth_WiderBandIsMonotonic(t *testing.T) {
	book := testBook()
	narrow := BandDepth(book, 2)
	mid := BandDepth(book, 5)
	wide := BandDepth(book, 10)

	assert.LessOrEqual(t, narrow.TotalValue(), mid.TotalValue())
	assert.LessOrEqual(t, mid.TotalValue(), wide.TotalValue())
}

func TestUserBandDepth(t *testing.T) {
	book := testBook()
	mid := MidPrice(book) // 101
	market := BandDepth(book, 5)

	orders := []model.OpenOrder{
		{Side: "buy", Price: 100, Amount: 2, Filled: 0.5},  // in band, remaining 1.5
		{Side: "buy", Price: 90, Amount: 1},                // below bound
		{Side: "buy", Price: 100, Amount: 1, Filled: 1},    // fully filled
		{Side: "sell", Price: 103, Amount: 1},              // in band
		{Side: "sell", Price: 120, Amount: 5},              // above bound
		{Side: "sell", Price: 100, Amount: 1},              // below mid, ignored
	}

	ud := UserBandDepth(orders, mid, market)

	assert.Equal(t, 5.0, ud.BandPercent)
	assert.InDelta(t, 1.5*100, ud.BidValue, 1e-9)
	assert.InDelta(t, 103.0, ud.AskValue, 1e-9)
	assert.InDelta(t, ud.BidValue/market.BidValue*100, ud.BidShare, 1e-9)
	assert.InDelta(t, ud.AskValue/market.AskValue*100, ud.AskShare, 1e-9)
}

func TestUserBandDepth_ZeroMarketDepth(t *testing.T) {
	orders := []model.OpenOrder{{Side: "buy", Price: 100, Amount: 1}}
	ud := UserBandDepth(orders, 101, model.DepthMeasurement{BandPercent: 2})

	assert.Equal(t, 0.0, ud.BidShare)
	assert.Equal(t, 0.0, ud.AskShare)
	assert.InDelta(t, 100.0, ud.BidValue, 1e-9)
}
