package engine

import (
	"ivcrush-trader/internal/models"
)

// Stats returns a read-only rollup over the position sequence.
// With no closed trades the win rate is zero, never NaN.
func (e *Engine) Stats() models.Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	stats := models.Stats{Balance: e.balance}

	var wins int
	for i := range e.positions {
		p := &e.positions[i]
		if p.IsOpen() {
			stats.OpenPositions++
			continue
		}

		stats.TotalTrades++
		stats.TotalPnL += p.PnL
		if p.PnL > 0 {
			wins++
		}
	}

	if stats.TotalTrades > 0 {
		stats.WinRate = float64(wins) / float64(stats.TotalTrades) * 100
		stats.AvgPnL = stats.TotalPnL / float64(stats.TotalTrades)
	}

	return stats
}
