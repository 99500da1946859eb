package executor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

func TestRetryController(t *testing.T) {
	r := NewRetryController(3)
	key := domain.TradeKey("0xabc")

	assert.Equal(t, 0, r.Attempts(key))
	assert.False(t, r.IsExhausted(key))

	assert.Equal(t, 1, r.RecordAttempt(key))
	assert.Equal(t, 2, r.RecordAttempt(key))
	assert.False(t, r.IsExhausted(key))

	r.MarkDone(key)
	assert.Equal(t, 3, r.Attempts(key))
	assert.True(t, r.IsExhausted(key))

	assert.Equal(t, 1, NewRetryController(0).Ceiling())
}

func TestFloorRounding(t *testing.T) {
	assert.Equal(t, 12.34, FloorNotional(12.3456))
	assert.Equal(t, 0.29, FloorNotional(0.29))
	assert.Equal(t, 12.3456, FloorShares(12.34567))
	assert.Equal(t, 0.6789, FloorPrice(0.6789))
	assert.Equal(t, 0.0, FloorNotional(0.0099))
}

func TestExceedsTolerance(t *testing.T) {
	assert.False(t, exceedsTolerance(0.53, 0.50, 0.03))
	assert.True(t, exceedsTolerance(0.5301, 0.50, 0.03))
	assert.False(t, exceedsTolerance(0.40, 0.50, 0.03))
}

func TestTitleWindowFeePolicy(t *testing.T) {
	fees := TitleWindowFeePolicy(1000)

	tests := []struct {
		title string
		want  int
	}{
		{"Bitcoin Up or Down - October 15, 10:00PM-10:15PM ET", 1000},
		{"Ethereum Up or Down - 9:45 am - 10:00 am ET", 1000},
		{"XRP Up or Down - 11:45PM-12:00AM ET", 1000},
		{"Solana Up or Down - 12:00PM-12:15PM ET", 1000},
		{"Bitcoin Up or Down - 10:00AM-11:00AM ET", 0},
		{"Will the Fed cut rates in December?", 0},
		{"", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, fees(tt.title), tt.title)
	}
}

func TestSelectRatioPolicy(t *testing.T) {
	p := SelectRatioPolicy(100, 1000)
	assert.Equal(t, "starting_balance", p.Name())
	assert.InDelta(t, 0.1, p.Ratio(1, 1, 1), 1e-12)

	for _, bad := range [][2]float64{{0, 1000}, {100, 0}, {-1, 10}, {math.NaN(), 10}, {10, math.Inf(1)}} {
		p := SelectRatioPolicy(bad[0], bad[1])
		assert.Equal(t, "live_balance", p.Name())
	}

	live := LiveBalanceRatio{}
	assert.InDelta(t, 0.5, live.Ratio(50, 80, 20), 1e-12)
	assert.Equal(t, 0.0, live.Ratio(50, 0, 0))
}

func TestSellShares(t *testing.T) {
	assert.Equal(t, 40.0, sellShares(40, 0, 10, false))
	assert.InDelta(t, 10.0, sellShares(40, 30, 10, true), 1e-12)
	assert.Equal(t, 40.0, sellShares(40, 0, 0, true))
}

func TestClassify(t *testing.T) {
	follower := []domain.Position{
		{ConditionID: "c1", Asset: "no", Size: 12},
		{ConditionID: "c2", Asset: "closed", Size: 0},
	}
	buy := func(cond, asset string) domain.AggregatedTrade {
		return domain.AggregatedTrade{TradeEvent: domain.TradeEvent{ConditionID: cond, Asset: asset, Side: domain.SideBuy}}
	}

	assert.Equal(t, domain.StrategyMerge, Classify(buy("c1", "yes"), follower))
	assert.Equal(t, domain.StrategyBuy, Classify(buy("c1", "no"), follower))
	assert.Equal(t, domain.StrategyBuy, Classify(buy("c2", "other"), follower))

	sell := buy("c1", "no")
	sell.Side = domain.SideSell
	assert.Equal(t, domain.StrategySell, Classify(sell, follower))

	odd := buy("c1", "no")
	odd.Side = "REDEEM"
	assert.Equal(t, domain.StrategyUnsupported, Classify(odd, follower))
}
