package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// sinkTimeout bounds one delivery to one sink.
const sinkTimeout = 5 * time.Second

type sink struct {
	name string
	rec  domain.Recorder
}

// fanout delivers every record to each sink in registration order. Delivery
// outlives the caller's cancellation so the last trades of a run are still
// journaled during shutdown.
type fanout struct {
	sinks []sink
}

func (f *fanout) add(name string, rec domain.Recorder) {
	f.sinks = append(f.sinks, sink{name: name, rec: rec})
}

func (f *fanout) names() []string {
	out := make([]string, 0, len(f.sinks))
	for _, s := range f.sinks {
		out = append(out, s.name)
	}
	return out
}

func (f *fanout) RecordOrder(ctx context.Context, rec domain.OrderRecord) error {
	return f.each(ctx, func(ctx context.Context, r domain.Recorder) error {
		return r.RecordOrder(ctx, rec)
	})
}

func (f *fanout) RecordOutcome(ctx context.Context, out domain.TradeOutcome) error {
	return f.each(ctx, func(ctx context.Context, r domain.Recorder) error {
		return r.RecordOutcome(ctx, out)
	})
}

func (f *fanout) each(ctx context.Context, deliver func(context.Context, domain.Recorder) error) error {
	base := context.WithoutCancel(ctx)
	var errs []error
	for _, s := range f.sinks {
		sctx, cancel := context.WithTimeout(base, sinkTimeout)
		if err := deliver(sctx, s.rec); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
		cancel()
	}
	return errors.Join(errs...)
}

var _ domain.Recorder = (*fanout)(nil)
