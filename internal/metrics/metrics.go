// Package metrics exposes Prometheus metrics for the trading agent.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// SignalsEvaluated counts entry-signal evaluations by readiness.
	SignalsEvaluated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ivcrush_signals_total",
			Help: "Entry signals evaluated, split by readiness",
		},
		[]string{"ready"},
	)

	// PositionsOpened counts opened credit spreads.
	PositionsOpened = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ivcrush_positions_opened_total",
			Help: "Credit spreads opened",
		},
	)

	// PositionsClosed counts closed credit spreads, split by exit reason.
	PositionsClosed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ivcrush_positions_closed_total",
			Help: "Credit spreads closed, split by exit reason",
		},
		[]string{"reason"},
	)

	// Balance reports the current simulated account balance.
	Balance = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ivcrush_balance",
			Help: "Simulated account balance",
		},
	)

	// OpenPositions reports the number of currently open positions.
	OpenPositions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ivcrush_open_positions",
			Help: "Number of currently open positions",
		},
	)

	// DataFetchFailures counts market data reads that degraded to
	// "unavailable", split by data type.
	DataFetchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ivcrush_data_fetch_failures_total",
			Help: "Market data reads that signaled unavailability",
		},
		[]string{"data_type"},
	)
)

// Serve starts the /metrics HTTP endpoint and blocks until ctx is done.
func Serve(ctx context.Context, addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", addr).Msg("Serving Prometheus metrics")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Warn().Err(err).Msg("Metrics server stopped")
	}
}
