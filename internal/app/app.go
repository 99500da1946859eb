// Package app wires the copier together and owns its lifecycle: balance
// capture at startup, the poll loop, and orderly shutdown of every sink.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/polycopy/internal/config"
	"github.com/alanyoungcy/polycopy/internal/executor"
	"github.com/alanyoungcy/polycopy/internal/feed"
	"github.com/alanyoungcy/polycopy/internal/service"
)

// App is the root application object. It owns the configuration, logger and
// the cleanup functions run in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	runID   string
	closers []func()
}

// New creates an App with a fresh run id.
func New(cfg *config.Config, logger *slog.Logger) *App {
	runID := uuid.NewString()
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app"), slog.String("run_id", runID)),
		runID:  runID,
	}
}

// Run wires dependencies, captures starting balances and blocks in the poll
// loop until ctx is cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	started := time.Now()
	a.logger.InfoContext(ctx, "starting copier",
		slog.String("mode", a.cfg.Mode),
		slog.Any("config", config.RedactedConfig(a.cfg)),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.runID, started, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	target, follower := a.cfg.Copy.TargetAddress, a.cfg.Copy.FollowerAddress
	targetStart := a.startingBalance(ctx, deps, "target", target)
	followerStart := a.startingBalance(ctx, deps, "follower", follower)
	sizing := executor.SelectRatioPolicy(followerStart, targetStart)
	a.logger.InfoContext(ctx, "wallets",
		slog.String("target", target),
		slog.Float64("target_balance", targetStart),
		slog.String("follower", follower),
		slog.Float64("follower_balance", followerStart),
		slog.String("sizing", sizing.Name()),
		slog.Any("sinks", deps.Recorder.names()),
	)

	exec := executor.NewExecutor(executor.Config{
		Target:   target,
		Follower: follower,
		RunID:    a.runID,
		Params: executor.Params{
			Amplification:     a.cfg.Copy.RatioAmplification,
			SlippageTolerance: a.cfg.Copy.SlippageTolerance,
			MinOrderNotional:  a.cfg.Copy.MinOrderNotional,
		},
		Sizing: sizing,
		Fees:   executor.TitleWindowFeePolicy(a.cfg.Copy.Fee15mBps),
	}, executor.Venue{
		Positions: deps.Data,
		Balances:  deps.Balances,
		Books:     deps.Clob,
		Orders:    deps.Orders,
	}, executor.NewRetryController(a.cfg.Copy.RetryLimit), deps.Recorder, a.logger)

	copier := service.NewCopyService(service.CopyConfig{
		Target:            target,
		FeedLimit:         a.cfg.Copy.FeedLimit,
		MaxAge:            a.cfg.Copy.MaxAge(),
		PollInterval:      a.cfg.Copy.PollInterval(),
		BatchWindow:       a.cfg.Copy.BatchWindow.Duration,
		BatchPollInterval: a.cfg.Copy.BatchPollInterval.Duration,
	}, deps.Data, exec, feed.NewTracker(), a.logger)

	if deps.Notifier != nil {
		msg := fmt.Sprintf("copying %s into %s (%s, %s sizing)", target, follower, a.cfg.Mode, sizing.Name())
		if err := deps.Notifier.NotifyAll(ctx, "polycopy started", msg); err != nil {
			a.logger.WarnContext(ctx, "startup notification failed", slog.String("error", err.Error()))
		}
	}

	return copier.Run(ctx)
}

// startingBalance returns the wallet's balance, or NaN when it cannot be
// read; SelectRatioPolicy then falls back to live balances.
func (a *App) startingBalance(ctx context.Context, deps *Dependencies, role, wallet string) float64 {
	bal, err := deps.Balances.Balance(ctx, wallet)
	if err != nil {
		a.logger.WarnContext(ctx, "starting balance unavailable",
			slog.String("role", role),
			slog.String("wallet", wallet),
			slog.String("error", err.Error()),
		)
		return math.NaN()
	}
	return bal
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times.
func (a *App) Close() {
	a.logger.Info("shutting down copier")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
