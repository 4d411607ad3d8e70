package market

import (
	"context"

	"github.com/rs/zerolog"

	"ivcrush-trader/internal/models"
)

// Fallback wraps a primary provider and degrades to synthetic demo data
// when the primary signals unavailability. Every synthetic substitution is
// logged so real and demo values are never blended silently.
type Fallback struct {
	primary   Provider
	synthetic *Synthetic
	logger    zerolog.Logger
}

// NewFallback creates a provider that prefers primary and falls back to
// the synthetic source.
func NewFallback(primary Provider, synthetic *Synthetic, logger zerolog.Logger) *Fallback {
	return &Fallback{
		primary:   primary,
		synthetic: synthetic,
		logger:    logger,
	}
}

// SpotPrice returns the primary spot price, or a labeled synthetic price
// when the primary is unavailable.
func (f *Fallback) SpotPrice(ctx context.Context) (float64, error) {
	price, err := f.primary.SpotPrice(ctx)
	if err == nil {
		return price, nil
	}

	f.logger.Warn().Err(err).Msg("Spot price unavailable, using SYNTHETIC data")
	return f.synthetic.SpotPrice(ctx)
}

// OptionChain returns the primary chain snapshot. On failure it returns an
// empty snapshot; the signal evaluator owns the synthetic IV baseline so the
// resulting signal carries the synthetic label.
func (f *Fallback) OptionChain(ctx context.Context) ([]models.OptionQuote, error) {
	chain, err := f.primary.OptionChain(ctx)
	if err == nil {
		return chain, nil
	}

	f.logger.Warn().Err(err).Msg("Option chain unavailable, IV baseline will be SYNTHETIC")
	return nil, nil
}

// LiquiditySweep returns the primary sweep flag. The primary already folds
// unavailability into false, so no synthetic substitution happens here.
func (f *Fallback) LiquiditySweep(ctx context.Context) bool {
	return f.primary.LiquiditySweep(ctx)
}

// Ensure Fallback implements Provider
var _ Provider = (*Fallback)(nil)
