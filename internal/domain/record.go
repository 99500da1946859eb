package domain

import (
	"context"
	"time"
)

// Strategy names how an aggregated trade is mirrored.
type Strategy string

const (
	StrategyBuy         Strategy = "buy"
	StrategySell        Strategy = "sell"
	StrategyMerge       Strategy = "merge"
	StrategyUnsupported Strategy = "unsupported"
)

// OutcomeStatus is the terminal state of a mirrored trade.
type OutcomeStatus string

const (
	OutcomeFilled      OutcomeStatus = "filled"
	OutcomePartial     OutcomeStatus = "partial"
	OutcomeAborted     OutcomeStatus = "aborted"
	OutcomeExhausted   OutcomeStatus = "exhausted"
	OutcomeSkipped     OutcomeStatus = "skipped"
	OutcomeUnsupported OutcomeStatus = "unsupported"
)

// OrderRecord describes a single submission attempt.
type OrderRecord struct {
	RunID     string       `json:"run_id"`
	TradeKey  TradeKey     `json:"trade_key"`
	Strategy  Strategy     `json:"strategy"`
	Request   OrderRequest `json:"request"`
	Result    OrderResult  `json:"result"`
	Error     string       `json:"error,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// TradeOutcome describes how a mirrored trade ended.
type TradeOutcome struct {
	RunID        string        `json:"run_id"`
	TradeKey     TradeKey      `json:"trade_key"`
	Strategy     Strategy      `json:"strategy"`
	Status       OutcomeStatus `json:"status"`
	Reason       string        `json:"reason,omitempty"`
	AssetID      string        `json:"asset_id"`
	Title        string        `json:"title,omitempty"`
	TargetAmount float64       `json:"target_amount"`
	FilledAmount float64       `json:"filled_amount"`
	Orders       int           `json:"orders"`
	Attempts     int           `json:"attempts"`
	BatchCount   int           `json:"batch_count"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Recorder receives execution records. Implementations must not block the
// caller for long; failures are reported but never change execution.
type Recorder interface {
	RecordOrder(ctx context.Context, rec OrderRecord) error
	RecordOutcome(ctx context.Context, out TradeOutcome) error
}

// NopRecorder discards every record.
type NopRecorder struct{}

func (NopRecorder) RecordOrder(context.Context, OrderRecord) error    { return nil }
func (NopRecorder) RecordOutcome(context.Context, TradeOutcome) error { return nil }
