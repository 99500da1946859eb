package feed

import "github.com/alanyoungcy/polycopy/internal/domain"

// Tracker remembers every trade key observed during the run. It is owned by a
// single poll loop and is not safe for concurrent use.
type Tracker struct {
	seen map[domain.TradeKey]struct{}
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{seen: make(map[domain.TradeKey]struct{})}
}

// Prime marks every event as seen without reporting any of them. It is used
// on the first poll so history already on the feed is never copied.
func (t *Tracker) Prime(events []domain.TradeEvent) {
	for _, e := range events {
		t.seen[e.Key()] = struct{}{}
	}
}

// FilterNew returns the events whose key has not been seen, in input order,
// and marks them seen. A key repeated within events is returned once.
func (t *Tracker) FilterNew(events []domain.TradeEvent) []domain.TradeEvent {
	var fresh []domain.TradeEvent
	for _, e := range events {
		k := e.Key()
		if _, ok := t.seen[k]; ok {
			continue
		}
		t.seen[k] = struct{}{}
		fresh = append(fresh, e)
	}
	return fresh
}
