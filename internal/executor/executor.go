// Package executor turns aggregated target trades into sized, liquidity
// bounded follower orders and drives them to a terminal state under a
// per-trade retry ceiling.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// PositionSource lists a wallet's open positions.
type PositionSource interface {
	Positions(ctx context.Context, user string) ([]domain.Position, error)
}

// BalanceSource reports a wallet's collateral balance in USDC.
type BalanceSource interface {
	Balance(ctx context.Context, user string) (float64, error)
}

// BookSource fetches a fresh order book snapshot.
type BookSource interface {
	OrderBook(ctx context.Context, assetID string) (domain.OrderBook, error)
}

// OrderSubmitter signs and submits an order. A rejected order is reported
// through OrderResult.Success; err is reserved for transport failures.
type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error)
}

// Venue bundles the exchange-facing collaborators.
type Venue struct {
	Positions PositionSource
	Balances  BalanceSource
	Books     BookSource
	Orders    OrderSubmitter
}

// Params are the sizing and execution constants.
type Params struct {
	Amplification     float64
	SlippageTolerance float64
	MinOrderNotional  float64
}

// DefaultParams returns the production constants.
func DefaultParams() Params {
	return Params{
		Amplification:     30,
		SlippageTolerance: 0.03,
		MinOrderNotional:  1,
	}
}

// Config identifies the wallets and selects the policies for an Executor.
type Config struct {
	Target   string
	Follower string
	RunID    string
	Params   Params
	Sizing   RatioPolicy
	Fees     FeePolicy
}

// Executor mirrors aggregated trades for the follower wallet.
type Executor struct {
	cfg      Config
	venue    Venue
	retry    *RetryController
	recorder domain.Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewExecutor creates an Executor. A nil recorder discards records; nil
// policies fall back to live-balance sizing and zero fees.
func NewExecutor(cfg Config, venue Venue, retry *RetryController, recorder domain.Recorder, logger *slog.Logger) *Executor {
	if cfg.Sizing == nil {
		cfg.Sizing = LiveBalanceRatio{}
	}
	if cfg.Fees == nil {
		cfg.Fees = FlatFeePolicy(0)
	}
	if recorder == nil {
		recorder = domain.NopRecorder{}
	}
	return &Executor{
		cfg:      cfg,
		venue:    venue,
		retry:    retry,
		recorder: recorder,
		logger:   logger.With(slog.String("component", "executor")),
		now:      time.Now,
	}
}

// Classify picks how trade is mirrored given the follower's open positions.
func Classify(trade domain.AggregatedTrade, follower []domain.Position) domain.Strategy {
	switch trade.Side {
	case domain.SideBuy:
		if _, ok := domain.FindOpposing(follower, trade.ConditionID, trade.Asset); ok {
			return domain.StrategyMerge
		}
		return domain.StrategyBuy
	case domain.SideSell:
		return domain.StrategySell
	default:
		return domain.StrategyUnsupported
	}
}

// snapshot is the wallet state fetched once per trade.
type snapshot struct {
	followerPositions []domain.Position
	targetPositions   []domain.Position
	followerBalance   float64
	targetBalance     float64
}

func (e *Executor) prefetch(ctx context.Context) (snapshot, error) {
	var s snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		s.followerPositions, err = e.venue.Positions.Positions(gctx, e.cfg.Follower)
		if err != nil {
			return fmt.Errorf("follower positions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		s.targetPositions, err = e.venue.Positions.Positions(gctx, e.cfg.Target)
		if err != nil {
			return fmt.Errorf("target positions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		s.followerBalance, err = e.venue.Balances.Balance(gctx, e.cfg.Follower)
		if err != nil {
			return fmt.Errorf("follower balance: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		s.targetBalance, err = e.venue.Balances.Balance(gctx, e.cfg.Target)
		if err != nil {
			return fmt.Errorf("target balance: %w", err)
		}
		return nil
	})
	return s, g.Wait()
}

// Execute mirrors one aggregated trade. The returned outcome describes the
// terminal state; err is non-nil only when wallet state could not be loaded,
// in which case one attempt is charged to the trade and it is left open.
func (e *Executor) Execute(ctx context.Context, trade domain.AggregatedTrade) (domain.TradeOutcome, error) {
	key := trade.Key()
	log := e.logger.With(
		slog.String("trade_key", string(key)),
		slog.String("asset", trade.Asset),
		slog.String("side", string(trade.Side)),
	)

	out := domain.TradeOutcome{
		RunID:      e.cfg.RunID,
		TradeKey:   key,
		AssetID:    trade.Asset,
		Title:      trade.Title,
		BatchCount: trade.BatchCount,
	}

	if e.retry.IsExhausted(key) {
		log.DebugContext(ctx, "trade already retired")
		out.Status = domain.OutcomeSkipped
		out.Reason = "retry ceiling reached"
		out.Attempts = e.retry.Attempts(key)
		out.CreatedAt = e.now().UTC()
		return out, nil
	}

	log.InfoContext(ctx, "copying aggregated trade",
		slog.Int("batch_count", trade.BatchCount),
		slog.Float64("avg_price", trade.Price),
		slog.Float64("usdc_size", trade.USDCSize),
		slog.Float64("size", trade.Size),
		slog.String("outcome", trade.Outcome),
		slog.Int64("first_ts", trade.FirstTimestamp),
		slog.Int64("last_ts", trade.LastTimestamp),
	)

	// Unsupported sides are retired before any wallet I/O.
	if trade.Side != domain.SideBuy && trade.Side != domain.SideSell {
		log.WarnContext(ctx, "unsupported trade side")
		out.Strategy = domain.StrategyUnsupported
		out.Status = domain.OutcomeUnsupported
		out.Reason = fmt.Sprintf("side %q", trade.Side)
		return e.finish(ctx, out, log), nil
	}

	snap, err := e.prefetch(ctx)
	if err != nil {
		n := e.retry.RecordAttempt(key)
		return out, fmt.Errorf("executor: load wallet state for %s (attempt %d/%d): %w", key, n, e.retry.Ceiling(), err)
	}

	log.InfoContext(ctx, "wallet balances",
		slog.Float64("follower_balance", snap.followerBalance),
		slog.Float64("target_balance", snap.targetBalance),
	)

	out.Strategy = Classify(trade, snap.followerPositions)
	switch out.Strategy {
	case domain.StrategyBuy:
		e.buy(ctx, trade, snap, &out, log)
	case domain.StrategySell:
		e.sell(ctx, trade, snap, &out, log)
	case domain.StrategyMerge:
		e.merge(ctx, trade, snap, &out, log)
	default:
		log.WarnContext(ctx, "unsupported trade side")
		out.Status = domain.OutcomeUnsupported
		out.Reason = fmt.Sprintf("side %q", trade.Side)
	}

	return e.finish(ctx, out, log), nil
}

// finish retires the trade and records its outcome.
func (e *Executor) finish(ctx context.Context, out domain.TradeOutcome, log *slog.Logger) domain.TradeOutcome {
	out.Attempts = e.retry.Attempts(out.TradeKey)
	e.retry.MarkDone(out.TradeKey)
	out.CreatedAt = e.now().UTC()

	if err := e.recorder.RecordOutcome(ctx, out); err != nil {
		log.WarnContext(ctx, "record outcome failed", slog.String("error", err.Error()))
	}
	log.InfoContext(ctx, "trade finished",
		slog.String("strategy", string(out.Strategy)),
		slog.String("status", string(out.Status)),
		slog.String("reason", out.Reason),
		slog.Float64("target_amount", out.TargetAmount),
		slog.Float64("filled_amount", out.FilledAmount),
		slog.Int("orders", out.Orders),
	)
	return out
}

func (e *Executor) buy(ctx context.Context, trade domain.AggregatedTrade, snap snapshot, out *domain.TradeOutcome, log *slog.Logger) {
	ratio := e.cfg.Sizing.Ratio(snap.followerBalance, snap.targetBalance, trade.USDCSize) * e.cfg.Params.Amplification
	remaining := math.Min(trade.USDCSize*ratio, snap.followerBalance)
	if math.IsNaN(remaining) || remaining < 0 {
		remaining = 0
	}

	log.DebugContext(ctx, "buy sized",
		slog.String("policy", e.cfg.Sizing.Name()),
		slog.Float64("ratio", ratio),
		slog.Float64("notional", remaining),
	)

	e.fill(ctx, trade, leg{
		strategy:  domain.StrategyBuy,
		side:      domain.OrderSideBuy,
		asset:     trade.Asset,
		orderType: domain.OrderTypeFAK,
	}, remaining, out, log)
}

func (e *Executor) sell(ctx context.Context, trade domain.AggregatedTrade, snap snapshot, out *domain.TradeOutcome, log *slog.Logger) {
	mine, ok := domain.FindByAsset(snap.followerPositions, trade.Asset)
	if !ok {
		log.InfoContext(ctx, "no follower position to sell")
		out.Status = domain.OutcomeAborted
		out.Reason = "no follower position"
		return
	}
	theirs, hasTarget := domain.FindByAsset(snap.targetPositions, trade.Asset)
	remaining := sellShares(mine.Size, theirs.Size, trade.Size, hasTarget)

	e.fill(ctx, trade, leg{
		strategy:  domain.StrategySell,
		side:      domain.OrderSideSell,
		asset:     trade.Asset,
		orderType: domain.OrderTypeFOK,
	}, remaining, out, log)
}

func (e *Executor) merge(ctx context.Context, trade domain.AggregatedTrade, snap snapshot, out *domain.TradeOutcome, log *slog.Logger) {
	opposing, _ := domain.FindOpposing(snap.followerPositions, trade.ConditionID, trade.Asset)
	out.AssetID = opposing.Asset

	log.InfoContext(ctx, "liquidating opposing position",
		slog.String("opposing_asset", opposing.Asset),
		slog.Float64("size", opposing.Size),
	)

	e.fill(ctx, trade, leg{
		strategy:  domain.StrategyMerge,
		side:      domain.OrderSideSell,
		asset:     opposing.Asset,
		orderType: domain.OrderTypeGTC,
	}, opposing.Size, out, log)
}

// leg describes which book is worked and how orders are placed.
type leg struct {
	strategy  domain.Strategy
	side      domain.OrderSide
	asset     string
	orderType domain.OrderType
}

// open reports whether remaining still rounds to a placeable quantity.
func (l leg) open(remaining float64) bool {
	if l.side == domain.OrderSideBuy {
		return FloorNotional(remaining) > 0
	}
	return FloorShares(remaining) > 0
}

// fill works remaining against the top of the book until it is consumed, a
// structural condition stops it, or failures reach the retry ceiling.
func (e *Executor) fill(ctx context.Context, trade domain.AggregatedTrade, l leg, remaining float64, out *domain.TradeOutcome, log *slog.Logger) {
	key := out.TradeKey
	out.TargetAmount = remaining

	if !l.open(remaining) {
		out.Status = domain.OutcomeAborted
		out.Reason = "nothing to fill"
		return
	}

	feeBps := e.cfg.Fees(trade.Title)
	consecutive := 0

	for l.open(remaining) {
		if consecutive >= e.retry.Ceiling() || e.retry.IsExhausted(key) {
			log.WarnContext(ctx, "retry ceiling reached",
				slog.Int("attempts", e.retry.Attempts(key)),
				slog.Float64("remaining", remaining),
			)
			out.Reason = "retry ceiling reached"
			out.Status = domain.OutcomeExhausted
			if out.FilledAmount > 0 {
				out.Status = domain.OutcomePartial
			}
			return
		}
		if err := ctx.Err(); err != nil {
			e.abort(out, "shutdown")
			return
		}

		book, err := e.venue.Books.OrderBook(ctx, l.asset)
		if err != nil {
			consecutive++
			n := e.retry.RecordAttempt(key)
			log.WarnContext(ctx, "order book fetch failed",
				slog.Int("attempt", n),
				slog.String("error", err.Error()),
			)
			continue
		}

		req, reason := e.price(l, trade, book, remaining, feeBps)
		if reason != "" {
			log.InfoContext(ctx, "not copying", slog.String("reason", reason))
			e.abort(out, reason)
			return
		}

		res, err := e.venue.Orders.SubmitOrder(ctx, req)
		out.Orders++
		e.recordOrder(ctx, key, l.strategy, req, res, err, log)

		if err != nil || !res.Success {
			consecutive++
			n := e.retry.RecordAttempt(key)
			attrs := []any{
				slog.Int("attempt", n),
				slog.Float64("amount", req.Amount),
				slog.Float64("price", req.Price),
				slog.String("message", res.Message),
			}
			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
			}
			log.WarnContext(ctx, "order not filled", attrs...)
			continue
		}

		filled := res.Filled
		if filled <= 0 {
			filled = req.Amount
		}
		remaining -= filled
		out.FilledAmount += filled
		consecutive = 0

		log.InfoContext(ctx, "order filled",
			slog.String("order_id", res.OrderID),
			slog.Float64("filled", filled),
			slog.Float64("price", req.Price),
			slog.Float64("remaining", remaining),
		)
	}

	out.Status = domain.OutcomeFilled
}

// price builds the next order from the top of book, or returns the reason
// the trade must not be copied further.
func (e *Executor) price(l leg, trade domain.AggregatedTrade, book domain.OrderBook, remaining float64, feeBps int) (domain.OrderRequest, string) {
	req := domain.OrderRequest{
		Side:       l.side,
		AssetID:    l.asset,
		FeeRateBps: feeBps,
		Type:       l.orderType,
		Title:      trade.Title,
	}

	if l.side == domain.OrderSideBuy {
		ask, ok := book.BestAsk()
		if !ok {
			return req, "no asks"
		}
		if exceedsTolerance(ask.Price, trade.Price, e.cfg.Params.SlippageTolerance) {
			return req, "price moved beyond tolerance"
		}
		req.Amount = FloorNotional(math.Min(remaining, ask.Size*ask.Price))
		req.Price = FloorPrice(ask.Price)
		if req.Amount < e.cfg.Params.MinOrderNotional {
			return req, "below minimum notional"
		}
		return req, ""
	}

	bid, ok := book.BestBid()
	if !ok {
		return req, "no bids"
	}
	req.Amount = FloorShares(math.Min(remaining, bid.Size))
	req.Price = FloorPrice(bid.Price)
	if req.Amount <= 0 {
		return req, "size below share precision"
	}
	return req, ""
}

func (e *Executor) abort(out *domain.TradeOutcome, reason string) {
	out.Reason = reason
	if out.FilledAmount > 0 {
		out.Status = domain.OutcomePartial
		return
	}
	out.Status = domain.OutcomeAborted
}

func (e *Executor) recordOrder(ctx context.Context, key domain.TradeKey, strategy domain.Strategy, req domain.OrderRequest, res domain.OrderResult, err error, log *slog.Logger) {
	rec := domain.OrderRecord{
		RunID:     e.cfg.RunID,
		TradeKey:  key,
		Strategy:  strategy,
		Request:   req,
		Result:    res,
		CreatedAt: e.now().UTC(),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	if rerr := e.recorder.RecordOrder(ctx, rec); rerr != nil {
		log.WarnContext(ctx, "record order failed", slog.String("error", rerr.Error()))
	}
}
