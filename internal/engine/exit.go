package engine

import (
	"context"
	"math"
	"time"

	"ivcrush-trader/internal/logging"
	"ivcrush-trader/internal/metrics"
	"ivcrush-trader/internal/models"
)

// Two deliberately different decay curves model the credit's theta decay.
// The live-monitoring curve floors at 30% of the credit; the exit valuation
// decays faster and floors at 20%. The asymmetry is part of the model, not
// an inconsistency between the two paths.
const (
	monitorDecaySlope = 0.5
	monitorDecayFloor = 0.3
	exitDecaySlope    = 0.6
	exitDecayFloor    = 0.2
)

// nearStrikeBand is the proximity-risk exit threshold: spot within 1% of
// the short strike.
const nearStrikeBand = 0.01

// monitorTimeFactor returns the live-monitoring premium decay factor.
func monitorTimeFactor(timeInTrade, maxTimeMinutes float64) float64 {
	return math.Max(monitorDecayFloor, 1-(timeInTrade/maxTimeMinutes)*monitorDecaySlope)
}

// exitTimeFactor returns the close-valuation premium decay factor.
func exitTimeFactor(timeInTrade, maxTimeMinutes float64) float64 {
	return math.Max(exitDecayFloor, 1-(timeInTrade/maxTimeMinutes)*exitDecaySlope)
}

// unrealizedPnL values an open position under the monitoring decay curve.
func unrealizedPnL(pos *models.Position, timeInTrade, maxTimeMinutes float64) float64 {
	currentPremium := pos.NetCredit * monitorTimeFactor(timeInTrade, maxTimeMinutes)
	return (pos.NetCredit - currentPremium) * float64(pos.Contracts)
}

// shouldExit evaluates the exit rules for an open position in priority
// order: profit target, stop loss, time exit, then strike proximity.
// Callers must hold e.mu.
func (e *Engine) shouldExit(pos *models.Position, spot float64, now time.Time) (bool, models.ExitReason) {
	strategy := e.strategy
	timeInTrade := now.Sub(pos.EntryTime).Minutes()

	pnl := unrealizedPnL(pos, timeInTrade, strategy.MaxTimeMinutes)
	profitPct := pnl / (pos.NetCredit * float64(pos.Contracts)) * 100

	if profitPct >= strategy.TargetProfitPct {
		return true, models.ExitProfitTarget
	}

	if pnl < -pos.MaxLoss*float64(pos.Contracts) {
		return true, models.ExitStopLoss
	}

	if timeInTrade >= strategy.MaxTimeMinutes {
		return true, models.ExitTime
	}

	if math.Abs(spot-pos.SellStrike)/pos.SellStrike < nearStrikeBand {
		return true, models.ExitNearStrike
	}

	return false, ""
}

// closeLocked transitions a position from open to closed, realizes its P&L
// under the exit decay curve, and credits the balance. The transition is
// one-way: a closed position is never mutated again.
// Callers must hold e.mu and must not pass an already-closed position.
func (e *Engine) closeLocked(ctx context.Context, pos *models.Position, spot float64, reason models.ExitReason, now time.Time) {
	timeInTrade := now.Sub(pos.EntryTime).Minutes()

	exitPremium := pos.NetCredit * exitTimeFactor(timeInTrade, e.strategy.MaxTimeMinutes)
	pnl := (pos.NetCredit - exitPremium) * float64(pos.Contracts)

	exitTime := now
	pos.Status = models.PositionClosed
	pos.ExitTime = &exitTime
	pos.ExitSpot = spot
	pos.ExitReason = reason
	pos.PnL = pnl
	pos.TimeInTrade = timeInTrade

	e.balance += pnl

	logging.LogExit(e.logger, pos)
	metrics.PositionsClosed.WithLabelValues(string(reason)).Inc()
	e.notifyClosed(ctx, pos)
}
