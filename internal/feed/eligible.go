// Package feed turns the target wallet's raw activity into new, coalesced
// trades: age/type filtering, first-poll priming, exactly-once dedup and
// per-(asset, side) aggregation.
package feed

import (
	"sort"
	"time"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// Eligible keeps TRADE events younger than maxAge relative to now and returns
// them sorted ascending by timestamp. Events sharing a timestamp keep their
// feed order.
func Eligible(events []domain.TradeEvent, now time.Time, maxAge time.Duration) []domain.TradeEvent {
	cutoff := now.Unix()
	horizon := int64(maxAge / time.Second)

	out := make([]domain.TradeEvent, 0, len(events))
	for _, e := range events {
		if !e.IsTrade() {
			continue
		}
		if e.Timestamp+horizon <= cutoff {
			continue
		}
		out = append(out, e)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp < out[j].Timestamp
	})
	return out
}
