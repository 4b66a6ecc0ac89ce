package market

import (
	"fmt"

	"liqwatch/internal/model"
)

// ValidateBook checks the ordering invariant the band walk depends on: bids
// strictly descending, asks strictly ascending, best bid below best ask.
// Books failing validation are rejected for the run, never re-sorted.
func ValidateBook(book *model.OrderBook) error {
	if book == nil {
		return fmt.Errorf("order book is nil")
	}
	if len(book.Bids) == 0 || len(book.Asks) == 0 {
		return fmt.Errorf("incomplete order book for %s: %d bids, %d asks",
			book.Venue, len(book.Bids), len(book.Asks))
	}

	for i := 1; i < len(book.Bids); i++ {
		if book.Bids[i].Price >= book.Bids[i-1].Price {
			return fmt.Errorf("bids not descending at level %d: %.8f >= %.8f",
				i, book.Bids[i].Price, book.Bids[i-1].Price)
		}
	}
	for i := 1; i < len(book.Asks); i++ {
		if book.Asks[i].Price <= book.Asks[i-1].Price {
			return fmt.Errorf("asks not ascending at level %d: %.8f <= %.8f",
				i, book.Asks[i].Price, book.Asks[i-1].Price)
		}
	}

	bestBid, bestAsk := book.Bids[0].Price, book.Asks[0].Price
	if bestBid <= 0 || bestAsk <= 0 {
		return fmt.Errorf("invalid top of book: bid=%.8f, ask=%.8f", bestBid, bestAsk)
	}
	if bestAsk <= bestBid {
		return fmt.Errorf("crossed book: bid=%.8f >= ask=%.8f", bestBid, bestAsk)
	}

	return nil
}

// MidPrice returns (bestBid + bestAsk) / 2 for a validated book.
func MidPrice(book *model.OrderBook) float64 {
	return (book.Bids[0].Price + book.Asks[0].Price) / 2
}

// SpreadPercent returns the bid-ask spread as a percent of mid-price.
func SpreadPercent(book *model.OrderBook) float64 {
	mid := MidPrice(book)
	return (book.Asks[0].Price - book.Bids[0].Price) / mid * 100
}

// BandDepth walks both sides of a validated book from the top outward,
// accumulating amount and quote value until the first level that crosses the
// band bound. Because the sides are ordered, the walk stops there instead of
// scanning the rest of the book.
func BandDepth(book *model.OrderBook, bandPercent float64) model.DepthMeasurement {
	mid := MidPrice(book)
	bidBound := mid * (1 - bandPercent/100)
	askBound := mid * (1 + bandPercent/100)

	m := model.DepthMeasurement{
		Venue:       book.Venue,
		BandPercent: bandPercent,
		CapturedAt:  book.CapturedAt,
	}

	for _, lvl := range book.Bids {
		if lvl.Price < bidBound {
			break
		}
		m.BidAmount += lvl.Amount
		m.BidValue += lvl.Amount * lvl.Price
	}
	for _, lvl := range book.Asks {
		if lvl.Price > askBound {
			break
		}
		m.AskAmount += lvl.Amount
		m.AskValue += lvl.Amount * lvl.Price
	}

	return m
}

// UserBandDepth applies the same band walk to the operator's own open orders.
// Orders are an unordered snapshot rather than a sorted book, so every order
// is checked against the bound. Share is the user's value as a percent of the
// market measurement for the matching band, zero when market depth is zero.
func UserBandDepth(orders []model.OpenOrder, mid float64, market model.DepthMeasurement) model.UserDepth {
	band := market.BandPercent
	bidBound := mid * (1 - band/100)
	askBound := mid * (1 + band/100)

	ud := model.UserDepth{BandPercent: band}

	for _, o := range orders {
		remaining := o.Amount - o.Filled
		if remaining <= 0 {
			continue
		}
		switch o.Side {
		case "buy":
			if o.Price >= bidBound && o.Price <= mid {
				ud.BidValue += remaining * o.Price
			}
		case "sell":
			if o.Price <= askBound && o.Price >= mid {
				ud.AskValue += remaining * o.Price
			}
		}
	}

	if market.BidValue > 0 {
		ud.BidShare = ud.BidValue / market.BidValue * 100
	}
	if market.AskValue > 0 {
		ud.AskShare = ud.AskValue / market.AskValue * 100
	}

	return ud
}
