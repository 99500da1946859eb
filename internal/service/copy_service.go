// Package service hosts the long-running loops of the copier.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/polycopy/internal/domain"
	"github.com/alanyoungcy/polycopy/internal/feed"
)

// ActivitySource pages through a wallet's most recent activity.
type ActivitySource interface {
	Activity(ctx context.Context, user string, limit int) ([]domain.TradeEvent, error)
}

// TradeExecutor mirrors one aggregated trade.
type TradeExecutor interface {
	Execute(ctx context.Context, trade domain.AggregatedTrade) (domain.TradeOutcome, error)
}

// RunState is the poll loop's phase. It only ever moves forward.
type RunState int

const (
	Priming RunState = iota
	SteadyState
)

func (s RunState) String() string {
	if s == Priming {
		return "priming"
	}
	return "steady"
}

// CopyConfig holds the poll loop's timing and feed parameters.
type CopyConfig struct {
	Target            string
	FeedLimit         int
	MaxAge            time.Duration
	PollInterval      time.Duration
	BatchWindow       time.Duration
	BatchPollInterval time.Duration
}

// CopyService polls the target's activity, filters out history and repeats,
// coalesces bursts of fills and hands each aggregate to the executor in the
// order it was discovered.
type CopyService struct {
	cfg     CopyConfig
	source  ActivitySource
	exec    TradeExecutor
	tracker *feed.Tracker
	state   RunState
	logger  *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewCopyService creates a CopyService in the Priming state.
func NewCopyService(cfg CopyConfig, source ActivitySource, exec TradeExecutor, tracker *feed.Tracker, logger *slog.Logger) *CopyService {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.FeedLimit <= 0 {
		cfg.FeedLimit = 100
	}
	if tracker == nil {
		tracker = feed.NewTracker()
	}
	return &CopyService{
		cfg:     cfg,
		source:  source,
		exec:    exec,
		tracker: tracker,
		state:   Priming,
		logger:  logger.With(slog.String("component", "copy_service")),
		now:     time.Now,
		sleep:   sleepContext,
	}
}

// State returns the current phase.
func (s *CopyService) State() RunState {
	return s.state
}

// Run executes cycles until ctx is cancelled. Errors from a cycle are logged
// and never stop the loop.
func (s *CopyService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "copy loop running",
		slog.String("target", s.cfg.Target),
		slog.Duration("poll_interval", s.cfg.PollInterval),
		slog.Duration("max_age", s.cfg.MaxAge),
	)
	for {
		if err := s.Cycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.ErrorContext(ctx, "copy cycle failed", slog.String("error", err.Error()))
		}
		if err := s.sleep(ctx, s.cfg.PollInterval); err != nil {
			return err
		}
	}
}

// Cycle performs one poll: prime on the first call, otherwise detect new
// trades, aggregate them over the batch window and execute each aggregate.
func (s *CopyService) Cycle(ctx context.Context) error {
	events, err := s.fetch(ctx)
	if err != nil {
		return fmt.Errorf("service: fetch activity: %w", err)
	}

	if s.state == Priming {
		s.tracker.Prime(events)
		s.state = SteadyState
		s.logger.InfoContext(ctx, "primed with recent trades; copying only new trades from now on",
			slog.Int("trades", len(events)),
		)
		return nil
	}

	fresh := s.tracker.FilterNew(events)
	if len(fresh) == 0 {
		return nil
	}
	s.logger.InfoContext(ctx, "new trade events detected", slog.Int("count", len(fresh)))

	agg := feed.NewAggregator()
	for _, e := range fresh {
		agg.Add(e)
	}
	s.collect(ctx, agg)

	trades := agg.Flush()
	s.logger.InfoContext(ctx, "aggregated trades ready", slog.Int("count", len(trades)))

	for _, t := range trades {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.exec.Execute(ctx, t); err != nil {
			s.logger.WarnContext(ctx, "trade execution deferred",
				slog.String("trade_key", string(t.Key())),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// collect keeps polling for the batch window, folding every further new event
// into agg. Fetch errors inside the window are logged and skipped.
func (s *CopyService) collect(ctx context.Context, agg *feed.Aggregator) {
	if s.cfg.BatchWindow <= 0 || s.cfg.BatchPollInterval <= 0 {
		return
	}
	deadline := s.now().Add(s.cfg.BatchWindow)
	for s.now().Before(deadline) {
		if err := s.sleep(ctx, s.cfg.BatchPollInterval); err != nil {
			return
		}
		more, err := s.fetch(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "batch window fetch failed", slog.String("error", err.Error()))
			continue
		}
		for _, e := range s.tracker.FilterNew(more) {
			agg.Add(e)
		}
	}
}

func (s *CopyService) fetch(ctx context.Context) ([]domain.TradeEvent, error) {
	raw, err := s.source.Activity(ctx, s.cfg.Target, s.cfg.FeedLimit)
	if err != nil {
		return nil, err
	}
	return feed.Eligible(raw, s.now(), s.cfg.MaxAge), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
