package executor

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// PaperSubmitter fills every order in full without touching the exchange.
type PaperSubmitter struct {
	logger *slog.Logger
}

// NewPaperSubmitter creates a PaperSubmitter.
func NewPaperSubmitter(logger *slog.Logger) *PaperSubmitter {
	return &PaperSubmitter{logger: logger.With(slog.String("component", "paper"))}
}

// SubmitOrder logs req and reports it fully filled.
func (p *PaperSubmitter) SubmitOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	id := "paper-" + uuid.NewString()
	p.logger.InfoContext(ctx, "paper order",
		slog.String("order_id", id),
		slog.String("side", string(req.Side)),
		slog.String("asset", req.AssetID),
		slog.Float64("amount", req.Amount),
		slog.Float64("price", req.Price),
		slog.Int("fee_rate_bps", req.FeeRateBps),
		slog.String("type", string(req.Type)),
	)
	return domain.OrderResult{
		Success: true,
		OrderID: id,
		Status:  "matched",
		Filled:  req.Amount,
	}, nil
}
