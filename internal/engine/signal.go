package engine

import (
	"context"

	"ivcrush-trader/internal/logging"
	"ivcrush-trader/internal/metrics"
	"ivcrush-trader/internal/models"
)

// rollingDecay approximates a trailing IV average without maintaining a
// real historical window.
const rollingDecay = 0.92

// minATMIV is the absolute IV floor below which no entry is taken.
const minATMIV = 30.0

// EvaluateEntry derives a fresh entry signal from current market reads.
// It has no side effects on the account and may be called at any frequency.
// When the spot price is unavailable it returns (false, empty signal).
func (e *Engine) EvaluateEntry(ctx context.Context) (bool, models.Signal) {
	e.mu.Lock()
	strategy := e.strategy
	e.mu.Unlock()

	spot, err := e.provider.SpotPrice(ctx)
	if err != nil {
		metrics.DataFetchFailures.WithLabelValues("spot").Inc()
		e.logger.Debug().Err(err).Msg("Spot unavailable, no entry signal")
		return false, models.Signal{}
	}

	chain, err := e.provider.OptionChain(ctx)
	if err != nil {
		metrics.DataFetchFailures.WithLabelValues("chain").Inc()
		chain = nil
	}

	atmIV, synthetic := e.ivMetrics(chain)
	rollingIV := atmIV * rollingDecay

	sig := models.Signal{
		Price:        spot,
		ATMIV:        atmIV,
		RollingIV:    rollingIV,
		IVSpike:      atmIV >= rollingIV*(1+strategy.IVSpikePct/100),
		Sweep:        e.provider.LiquiditySweep(ctx),
		IVSufficient: atmIV >= minATMIV,
		Synthetic:    synthetic,
	}
	sig.EntryReady = sig.IVSpike && sig.Sweep && sig.IVSufficient

	logging.LogSignal(e.logger, sig)
	if sig.EntryReady {
		metrics.SignalsEvaluated.WithLabelValues("true").Inc()
	} else {
		metrics.SignalsEvaluated.WithLabelValues("false").Inc()
	}

	return sig.EntryReady, sig
}

// ivMetrics computes the ATM IV percentage as the mean of all positive IV
// readings in the chain snapshot. With no positive readings it substitutes
// the labeled synthetic baseline: sparse data must not look like absent
// data, and absent data must not look like a live read.
func (e *Engine) ivMetrics(chain []models.OptionQuote) (atmIV float64, synthetic bool) {
	var sum float64
	var n int
	for _, q := range chain {
		if q.IV > 0 {
			sum += q.IV * 100
			n++
		}
	}

	if n == 0 {
		return e.synthetic.ATMIV(), true
	}
	return sum / float64(n), false
}
