package feed

import "github.com/alanyoungcy/polycopy/internal/domain"

// Aggregator coalesces trades on the same asset and side into one synthetic
// trade with a notional-weighted average price. It is not safe for
// concurrent use.
type Aggregator struct {
	buckets map[string]*domain.AggregatedTrade
	order   []string
}

// NewAggregator creates an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{buckets: make(map[string]*domain.AggregatedTrade)}
}

func bucketKey(e domain.TradeEvent) string {
	return e.Asset + "|" + string(e.Side)
}

// weight is the notional a fill contributes to the average price: USDC for
// buys, shares for everything else.
func weight(side domain.Side, usdc, size float64) float64 {
	if side == domain.SideBuy {
		return usdc
	}
	return size
}

// Add folds e into its bucket. Non-TRADE events are ignored.
func (a *Aggregator) Add(e domain.TradeEvent) {
	if !e.IsTrade() {
		return
	}

	k := bucketKey(e)
	agg, ok := a.buckets[k]
	if !ok {
		a.buckets[k] = &domain.AggregatedTrade{
			TradeEvent:     e,
			BatchCount:     1,
			FirstTimestamp: e.Timestamp,
			LastTimestamp:  e.Timestamp,
		}
		a.order = append(a.order, k)
		return
	}

	prevW := weight(agg.Side, agg.USDCSize, agg.Size)
	addW := weight(e.Side, e.USDCSize, e.Size)
	if total := prevW + addW; total > 0 {
		agg.Price = (agg.Price*prevW + e.Price*addW) / total
	}

	agg.USDCSize += e.USDCSize
	agg.Size += e.Size
	agg.BatchCount++
	if e.Timestamp > agg.LastTimestamp {
		agg.LastTimestamp = e.Timestamp
	}
	if agg.TransactionHash == "" && e.TransactionHash != "" {
		agg.TransactionHash = e.TransactionHash
	}
}

// Flush returns every aggregate in the order its bucket was first seen and
// resets the aggregator.
func (a *Aggregator) Flush() []domain.AggregatedTrade {
	out := make([]domain.AggregatedTrade, 0, len(a.order))
	for _, k := range a.order {
		out = append(out, *a.buckets[k])
	}
	a.buckets = make(map[string]*domain.AggregatedTrade)
	a.order = nil
	return out
}
