package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// streamMaxLen is the approximate maximum length for Redis streams, enforced
// via XADD MAXLEN ~.
const streamMaxLen int64 = 10000

// EventBus implements domain.EventBus using Redis Pub/Sub for live consumers
// and Redis Streams for durable, ordered delivery.
type EventBus struct {
	rdb *redis.Client
}

// Publish sends a raw payload to a Pub/Sub channel.
func (b *EventBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// StreamAppend appends a payload to a stream, trimming it to roughly
// streamMaxLen entries.
func (b *EventBus) StreamAppend(ctx context.Context, stream string, payload []byte) error {
	args := &redis.XAddArgs{
		Stream: stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]any{
			"payload": payload,
		},
	}
	if err := b.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis: stream append %s: %w", stream, err)
	}
	return nil
}

var _ domain.EventBus = (*EventBus)(nil)

// EventRecorder writes execution records to an EventBus. Every record is
// appended to the stream; outcomes are also published for live consumers.
type EventRecorder struct {
	bus    domain.EventBus
	prefix string
}

// NewEventRecorder creates an EventRecorder. Keys are namespaced under
// prefix, e.g. "polycopy".
func NewEventRecorder(bus domain.EventBus, prefix string) *EventRecorder {
	if prefix == "" {
		prefix = "polycopy"
	}
	return &EventRecorder{bus: bus, prefix: prefix}
}

// OrdersStream is the stream that receives order records.
func (r *EventRecorder) OrdersStream() string { return r.prefix + ":orders" }

// OutcomesStream is the stream that receives trade outcomes.
func (r *EventRecorder) OutcomesStream() string { return r.prefix + ":outcomes" }

// OutcomesChannel is the Pub/Sub channel outcomes are published on.
func (r *EventRecorder) OutcomesChannel() string { return r.prefix + ":outcome" }

// RecordOrder appends rec to the orders stream.
func (r *EventRecorder) RecordOrder(ctx context.Context, rec domain.OrderRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("redis: marshal order record: %w", err)
	}
	return r.bus.StreamAppend(ctx, r.OrdersStream(), payload)
}

// RecordOutcome appends out to the outcomes stream and publishes it.
func (r *EventRecorder) RecordOutcome(ctx context.Context, out domain.TradeOutcome) error {
	payload, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("redis: marshal outcome: %w", err)
	}
	if err := r.bus.StreamAppend(ctx, r.OutcomesStream(), payload); err != nil {
		return err
	}
	return r.bus.Publish(ctx, r.OutcomesChannel(), payload)
}

var _ domain.Recorder = (*EventRecorder)(nil)
