package domain

import (
	"strconv"
	"strings"
)

// Side is the direction of an observed trade. Values other than BUY and SELL
// are carried verbatim so the engine can report them as unsupported.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ActivityTypeTrade is the only activity type the copier acts on.
const ActivityTypeTrade = "TRADE"

// TradeKey identifies one logical trade for the lifetime of a run.
type TradeKey string

// TradeEvent is a single record from the target's activity feed.
type TradeEvent struct {
	TransactionHash string // empty when the feed omitted it
	Timestamp       int64  // unix seconds
	ConditionID     string
	Asset           string
	Side            Side
	Size            float64
	Price           float64
	USDCSize        float64
	Title           string
	Outcome         string
	Type            string
}

// Key returns the transaction hash when present, otherwise a composite of the
// fields that make a fill unique.
func (e TradeEvent) Key() TradeKey {
	if e.TransactionHash != "" {
		return TradeKey(e.TransactionHash)
	}
	return TradeKey(strings.Join([]string{
		strconv.FormatInt(e.Timestamp, 10),
		e.ConditionID,
		string(e.Side),
		strconv.FormatFloat(e.Size, 'f', -1, 64),
		strconv.FormatFloat(e.Price, 'f', -1, 64),
		e.Asset,
	}, "|"))
}

// IsTrade reports whether the event is a fill, as opposed to a split, merge,
// redeem or reward.
func (e TradeEvent) IsTrade() bool {
	return e.Type == ActivityTypeTrade
}

// AggregatedTrade is one or more events on the same asset and side coalesced
// within a batching window.
type AggregatedTrade struct {
	TradeEvent
	BatchCount     int
	FirstTimestamp int64
	LastTimestamp  int64
}
