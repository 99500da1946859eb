package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

func trade(hash string, ts int64, side domain.Side, asset string, size, price, usdc float64) domain.TradeEvent {
	return domain.TradeEvent{
		TransactionHash: hash,
		Timestamp:       ts,
		ConditionID:     "cond-1",
		Asset:           asset,
		Side:            side,
		Size:            size,
		Price:           price,
		USDCSize:        usdc,
		Type:            domain.ActivityTypeTrade,
	}
}

func TestEligibleFiltersTypeAndAgeAndSorts(t *testing.T) {
	now := time.Unix(10_000, 0)
	events := []domain.TradeEvent{
		trade("c", 9_900, domain.SideBuy, "a", 1, 0.5, 0.5),
		trade("old", 6_400, domain.SideBuy, "a", 1, 0.5, 0.5), // exactly at the horizon
		trade("a", 9_000, domain.SideBuy, "a", 1, 0.5, 0.5),
		{TransactionHash: "redeem", Timestamp: 9_950, Type: "REDEEM"},
		trade("b", 9_500, domain.SideSell, "a", 1, 0.5, 0.5),
	}

	got := Eligible(events, now, time.Hour)

	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].TransactionHash)
	assert.Equal(t, "b", got[1].TransactionHash)
	assert.Equal(t, "c", got[2].TransactionHash)
}

func TestTrackerPrimingYieldsNothing(t *testing.T) {
	tr := NewTracker()
	events := []domain.TradeEvent{
		trade("h1", 1, domain.SideBuy, "a", 1, 0.5, 0.5),
		trade("h2", 2, domain.SideBuy, "a", 1, 0.5, 0.5),
	}

	tr.Prime(events)

	assert.Empty(t, tr.FilterNew(events))
	assert.Len(t, tr.seen, 2)
}

func TestTrackerReturnsEachKeyOnce(t *testing.T) {
	tr := NewTracker()
	e := trade("h1", 1, domain.SideBuy, "a", 1, 0.5, 0.5)

	first := tr.FilterNew([]domain.TradeEvent{e, e})
	second := tr.FilterNew([]domain.TradeEvent{e})

	assert.Len(t, first, 1)
	assert.Empty(t, second)
	assert.Contains(t, tr.seen, e.Key())
}

func TestTrackerCompositeKeyWithoutHash(t *testing.T) {
	tr := NewTracker()
	a := trade("", 100, domain.SideBuy, "tok", 10, 0.5, 5)
	b := a
	b.Price = 0.51

	fresh := tr.FilterNew([]domain.TradeEvent{a, a, b})

	require.Len(t, fresh, 2)
	assert.Equal(t, domain.TradeKey("100|cond-1|BUY|10|0.5|tok"), a.Key())
}

func TestAggregatorWeightedBuy(t *testing.T) {
	agg := NewAggregator()
	agg.Add(trade("", 100, domain.SideBuy, "tok", 20, 0.50, 10))
	agg.Add(trade("0xabc", 105, domain.SideBuy, "tok", 50, 0.60, 30))

	out := agg.Flush()

	require.Len(t, out, 1)
	got := out[0]
	assert.InDelta(t, 0.575, got.Price, 1e-9)
	assert.InDelta(t, 40.0, got.USDCSize, 1e-9)
	assert.InDelta(t, 70.0, got.Size, 1e-9)
	assert.Equal(t, 2, got.BatchCount)
	assert.Equal(t, int64(100), got.FirstTimestamp)
	assert.Equal(t, int64(105), got.LastTimestamp)
	assert.Equal(t, "0xabc", got.TransactionHash)
	assert.Empty(t, agg.Flush())
}

func TestAggregatorSellWeightsByShares(t *testing.T) {
	agg := NewAggregator()
	agg.Add(trade("h1", 100, domain.SideSell, "tok", 10, 0.40, 4))
	agg.Add(trade("h2", 90, domain.SideSell, "tok", 30, 0.60, 18))

	out := agg.Flush()

	require.Len(t, out, 1)
	assert.InDelta(t, 0.55, out[0].Price, 1e-9)
	assert.Equal(t, "h1", out[0].TransactionHash)
	assert.Equal(t, int64(100), out[0].FirstTimestamp)
	assert.Equal(t, int64(100), out[0].LastTimestamp)
}

func TestAggregatorZeroWeightKeepsPrice(t *testing.T) {
	agg := NewAggregator()
	agg.Add(trade("h1", 100, domain.SideBuy, "tok", 0, 0.40, 0))
	agg.Add(trade("h2", 101, domain.SideBuy, "tok", 0, 0.90, 0))

	out := agg.Flush()

	require.Len(t, out, 1)
	assert.InDelta(t, 0.40, out[0].Price, 1e-9)
	assert.Equal(t, 2, out[0].BatchCount)
}

func TestAggregatorKeepsDistinctPairsApartInOrder(t *testing.T) {
	agg := NewAggregator()
	agg.Add(trade("h1", 100, domain.SideBuy, "x", 1, 0.5, 0.5))
	agg.Add(trade("h2", 101, domain.SideSell, "x", 1, 0.5, 0.5))
	agg.Add(trade("h3", 102, domain.SideBuy, "y", 1, 0.5, 0.5))
	agg.Add(domain.TradeEvent{Asset: "z", Side: domain.SideBuy, Type: "SPLIT"})

	out := agg.Flush()

	require.Len(t, out, 3)
	assert.Equal(t, "h1", out[0].TransactionHash)
	assert.Equal(t, "h2", out[1].TransactionHash)
	assert.Equal(t, "h3", out[2].TransactionHash)
	for _, a := range out {
		assert.Equal(t, 1, a.BatchCount)
	}
}
