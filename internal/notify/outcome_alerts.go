package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// OutcomeEvent is the event name an outcome is alerted under, e.g.
// "trade_filled" or "trade_aborted".
func OutcomeEvent(status domain.OutcomeStatus) string {
	return "trade_" + string(status)
}

// OutcomeAlerts turns trade outcomes into alerts. Order records are not
// alerted.
type OutcomeAlerts struct {
	notifier *Notifier
}

func NewOutcomeAlerts(n *Notifier) *OutcomeAlerts {
	return &OutcomeAlerts{notifier: n}
}

func (a *OutcomeAlerts) RecordOrder(context.Context, domain.OrderRecord) error { return nil }

// RecordOutcome alerts out under OutcomeEvent(out.Status).
func (a *OutcomeAlerts) RecordOutcome(ctx context.Context, out domain.TradeOutcome) error {
	return a.notifier.Notify(ctx, OutcomeEvent(out.Status), outcomeTitle(out), outcomeMessage(out))
}

func outcomeTitle(out domain.TradeOutcome) string {
	return fmt.Sprintf("polycopy %s %s", out.Strategy, out.Status)
}

func outcomeMessage(out domain.TradeOutcome) string {
	var b strings.Builder
	if out.Title != "" {
		fmt.Fprintf(&b, "%s\n", out.Title)
	}
	fmt.Fprintf(&b, "filled %.4f of %.4f in %d order(s), %d attempt(s)", out.FilledAmount, out.TargetAmount, out.Orders, out.Attempts)
	if out.BatchCount > 1 {
		fmt.Fprintf(&b, ", %d target trades", out.BatchCount)
	}
	if out.Reason != "" {
		fmt.Fprintf(&b, "\nreason: %s", out.Reason)
	}
	return b.String()
}

var _ domain.Recorder = (*OutcomeAlerts)(nil)
