package domain

import "time"

// PriceLevel is a single price+size entry in an orderbook.
type PriceLevel struct {
	Price float64
	Size  float64
}

// OrderBook is a point-in-time snapshot of one asset's book. Levels are not
// assumed to be sorted.
type OrderBook struct {
	AssetID   string
	Bids      []PriceLevel
	Asks      []PriceLevel
	Timestamp time.Time
}

// BestAsk returns the lowest-priced ask.
func (b OrderBook) BestAsk() (PriceLevel, bool) {
	if len(b.Asks) == 0 {
		return PriceLevel{}, false
	}
	best := b.Asks[0]
	for _, l := range b.Asks[1:] {
		if l.Price < best.Price {
			best = l
		}
	}
	return best, true
}

// BestBid returns the highest-priced bid.
func (b OrderBook) BestBid() (PriceLevel, bool) {
	if len(b.Bids) == 0 {
		return PriceLevel{}, false
	}
	best := b.Bids[0]
	for _, l := range b.Bids[1:] {
		if l.Price > best.Price {
			best = l
		}
	}
	return best, true
}
