package market

import (
	"context"
	"math/rand"
	"sync"

	"ivcrush-trader/internal/models"
)

// Synthetic is a clearly-labeled demo data source used only when the real
// provider signals unavailability. Its values are random but stay inside
// documented ranges so downstream math remains well-behaved.
type Synthetic struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSynthetic creates a synthetic provider with the given seed.
func NewSynthetic(seed int64) *Synthetic {
	return &Synthetic{rng: rand.New(rand.NewSource(seed))}
}

// SpotPrice returns a demo spot price of 95000 +/- 500.
func (s *Synthetic) SpotPrice(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return 95000 + (s.rng.Float64()*1000 - 500), nil
}

// OptionChain returns an empty snapshot: synthetic IV generation is the
// signal evaluator's responsibility so it can label the signal.
func (s *Synthetic) OptionChain(ctx context.Context) ([]models.OptionQuote, error) {
	return nil, nil
}

// LiquiditySweep returns a demo sweep flag, true roughly 40% of the time.
func (s *Synthetic) LiquiditySweep(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64() > 0.6
}

// ATMIV returns a demo at-the-money IV percentage in [40, 80).
func (s *Synthetic) ATMIV() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return 40 + s.rng.Float64()*40
}

// Ensure Synthetic implements Provider
var _ Provider = (*Synthetic)(nil)
