// Package engine implements the credit-spread position lifecycle engine:
// entry signals, risk sizing, exit evaluation, and P&L accounting.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ivcrush-trader/internal/config"
	"ivcrush-trader/internal/market"
	"ivcrush-trader/internal/metrics"
	"ivcrush-trader/internal/models"
	"ivcrush-trader/internal/notify"
	"ivcrush-trader/internal/store"
)

// Engine owns the simulated account: the balance and the ordered position
// sequence. All mutation paths (open, close, manage) run under a single
// mutex so balance updates and position appends stay atomic.
type Engine struct {
	provider  market.Provider
	synthetic *market.Synthetic
	store     store.StateStore
	notifier  notify.Notifier
	logger    zerolog.Logger

	mu        sync.Mutex
	strategy  config.StrategyConfig
	symbol    string
	balance   float64
	positions []models.Position

	// now is the clock; injectable for tests.
	now func() time.Time
}

// Options holds the engine's injected dependencies and settings.
type Options struct {
	Strategy       config.StrategyConfig
	Symbol         string
	InitialBalance float64
	Provider       market.Provider
	Synthetic      *market.Synthetic
	Store          store.StateStore // optional; nil disables persistence
	Notifier       notify.Notifier  // optional
	Logger         zerolog.Logger
	Clock          func() time.Time // optional; defaults to time.Now
}

// New creates an engine and restores any persisted account state.
// A missing or unreadable state record is not an error: the engine starts
// from the configured initial balance and an empty position sequence.
func New(opts Options) *Engine {
	e := &Engine{
		provider:  opts.Provider,
		synthetic: opts.Synthetic,
		store:     opts.Store,
		notifier:  opts.Notifier,
		logger:    opts.Logger,
		strategy:  opts.Strategy,
		symbol:    opts.Symbol,
		balance:   opts.InitialBalance,
		now:       opts.Clock,
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.synthetic == nil {
		e.synthetic = market.NewSynthetic(time.Now().UnixNano())
	}

	e.restoreState()
	e.updateGauges()

	return e
}

// restoreState loads persisted state, falling back to defaults on any error.
func (e *Engine) restoreState() {
	if e.store == nil {
		return
	}

	state, err := e.store.Load(context.Background())
	if err != nil {
		e.logger.Warn().Err(err).Msg("No usable persisted state, starting fresh")
		return
	}

	e.balance = state.Balance
	e.positions = state.Positions
	e.logger.Info().
		Float64("balance", e.balance).
		Int("positions", len(e.positions)).
		Msg("Restored account state")
}

// saveState persists a snapshot of the account. Failures are logged and
// swallowed: persistence is best-effort and never interrupts trading.
func (e *Engine) saveState(ctx context.Context) {
	if e.store == nil {
		return
	}

	state := &models.AccountState{
		Balance:   e.balance,
		Positions: e.positions,
	}
	if err := e.store.Save(ctx, state); err != nil {
		e.logger.Error().Err(err).Msg("Failed to persist account state")
	}
}

// updateGauges refreshes the balance and open-position metrics.
// Callers must hold e.mu, or be the constructor.
func (e *Engine) updateGauges() {
	metrics.Balance.Set(e.balance)

	open := 0
	for i := range e.positions {
		if e.positions[i].IsOpen() {
			open++
		}
	}
	metrics.OpenPositions.Set(float64(open))
}

// Strategy returns the current strategy parameters.
func (e *Engine) Strategy() config.StrategyConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.strategy
}

// SetStrategy replaces the strategy parameters at runtime.
func (e *Engine) SetStrategy(s config.StrategyConfig) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.strategy = s
}

// Balance returns the current account balance.
func (e *Engine) Balance() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.balance
}

// Positions returns a copy of the position sequence in insertion order.
func (e *Engine) Positions() []models.Position {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]models.Position, len(e.positions))
	copy(out, e.positions)
	return out
}

// ManagePositions evaluates every open position against the exit rules and
// closes those that match. It returns the positions closed in this pass.
// Without a usable spot price no exit decision is made; that is an expected
// outcome, not an error.
func (e *Engine) ManagePositions(ctx context.Context) []models.Position {
	e.mu.Lock()
	defer e.mu.Unlock()

	spot, err := e.provider.SpotPrice(ctx)
	if err != nil {
		metrics.DataFetchFailures.WithLabelValues("spot").Inc()
		e.logger.Debug().Err(err).Msg("Spot unavailable, deferring exit decisions")
		return nil
	}

	now := e.now()
	var closed []models.Position

	for i := range e.positions {
		pos := &e.positions[i]
		if !pos.IsOpen() {
			continue
		}

		exit, reason := e.shouldExit(pos, spot, now)
		if !exit {
			continue
		}

		e.closeLocked(ctx, pos, spot, reason, now)
		closed = append(closed, *pos)
	}

	if len(closed) > 0 {
		e.saveState(ctx)
		e.updateGauges()
	}

	return closed
}

// notifyOpened sends the open notification outside the hot path.
func (e *Engine) notifyOpened(ctx context.Context, pos *models.Position) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.SendTradeOpened(ctx, pos); err != nil {
		e.logger.Warn().Err(err).Msg("Failed to send open notification")
	}
}

// notifyClosed sends the close notification.
func (e *Engine) notifyClosed(ctx context.Context, pos *models.Position) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.SendTradeClosed(ctx, pos); err != nil {
		e.logger.Warn().Err(err).Msg("Failed to send close notification")
	}
}

// Close releases the engine's persistence resources.
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}
