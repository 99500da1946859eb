package executor

import "math"

// RatioPolicy decides what fraction of the target's notional the follower
// mirrors on a buy, before amplification.
type RatioPolicy interface {
	Ratio(followerBalance, targetBalance, tradeNotional float64) float64
	Name() string
}

// StartingBalanceRatio scales by the bankrolls captured at startup.
type StartingBalanceRatio struct {
	Follower float64
	Target   float64
}

func (s StartingBalanceRatio) Ratio(_, _, _ float64) float64 {
	return s.Follower / s.Target
}

func (StartingBalanceRatio) Name() string { return "starting_balance" }

// LiveBalanceRatio scales by the current balances, counting the trade's
// notional back into the target's bankroll.
type LiveBalanceRatio struct{}

func (LiveBalanceRatio) Ratio(followerBalance, targetBalance, tradeNotional float64) float64 {
	denom := targetBalance + tradeNotional
	if denom <= 0 {
		return 0
	}
	return followerBalance / denom
}

func (LiveBalanceRatio) Name() string { return "live_balance" }

// SelectRatioPolicy returns StartingBalanceRatio when both starting balances
// are usable and LiveBalanceRatio otherwise.
func SelectRatioPolicy(followerStart, targetStart float64) RatioPolicy {
	if usable(followerStart) && usable(targetStart) {
		return StartingBalanceRatio{Follower: followerStart, Target: targetStart}
	}
	return LiveBalanceRatio{}
}

func usable(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

// sellShares sizes a sell from the follower's holding and the target's
// post-trade holding. hasTarget is false when the target closed out.
func sellShares(followerSize, targetSize, tradeSize float64, hasTarget bool) float64 {
	if !hasTarget {
		return followerSize
	}
	denom := targetSize + tradeSize
	if denom <= 0 {
		return followerSize
	}
	return followerSize * tradeSize / denom
}
