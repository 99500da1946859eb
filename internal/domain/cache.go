package domain

import "context"

// EventBus fans execution records out to external consumers through pub/sub
// and a durable, trimmed stream.
type EventBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	StreamAppend(ctx context.Context, stream string, payload []byte) error
}
