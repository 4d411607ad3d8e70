// Package market provides market data access for the trading agent.
package market

import (
	"context"

	"ivcrush-trader/internal/models"
)

// Provider defines the market data operations the engine consumes.
// Implementations must apply bounded network timeouts and surface
// unavailability as errors (or a safe default for LiquiditySweep) rather
// than blocking or panicking.
type Provider interface {
	// SpotPrice returns the current spot price of the underlying.
	SpotPrice(ctx context.Context) (float64, error)

	// OptionChain returns a snapshot of option instruments with any
	// implied-volatility readings the exchange reports.
	OptionChain(ctx context.Context) ([]models.OptionQuote, error)

	// LiquiditySweep reports whether the most recent 1-minute candle shows
	// a sweep/rejection pattern. False on any data unavailability.
	LiquiditySweep(ctx context.Context) bool
}

// minSweepHistory is the minimum candle history required before the sweep
// heuristic produces a judgment.
const minSweepHistory = 5

// SweepFromCandles applies the wick-rejection heuristic to candle history
// ordered newest first. With fewer than five candles there is no signal.
func SweepFromCandles(candles []models.Candle) bool {
	if len(candles) < minSweepHistory {
		return false
	}

	latest := candles[0]
	wick := latest.UpperWick()
	if lw := latest.LowerWick(); lw > wick {
		wick = lw
	}

	return wick > latest.Body()*2
}
