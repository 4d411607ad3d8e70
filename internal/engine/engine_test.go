package engine

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"ivcrush-trader/internal/config"
	"ivcrush-trader/internal/errors"
	"ivcrush-trader/internal/models"
)

// stubProvider is a controllable market data source for engine tests.
type stubProvider struct {
	spot     float64
	spotErr  error
	chain    []models.OptionQuote
	chainErr error
	sweep    bool
}

func (s *stubProvider) SpotPrice(ctx context.Context) (float64, error) {
	return s.spot, s.spotErr
}

func (s *stubProvider) OptionChain(ctx context.Context) ([]models.OptionQuote, error) {
	return s.chain, s.chainErr
}

func (s *stubProvider) LiquiditySweep(ctx context.Context) bool {
	return s.sweep
}

func defaultStrategy() config.StrategyConfig {
	return config.StrategyConfig{
		IVSpikePct:             10,
		ProtectionWidthPct:     3.0,
		TargetProfitPct:        40,
		RiskPerTradePct:        1.5,
		MaxTimeMinutes:         30,
		MinTimeToExpiryMinutes: 45,
	}
}

func newTestEngine(provider *stubProvider, strategy config.StrategyConfig, balance float64, clock func() time.Time) *Engine {
	return New(Options{
		Strategy:       strategy,
		Symbol:         "BTCUSD",
		InitialBalance: balance,
		Provider:       provider,
		Logger:         zerolog.Nop(),
		Clock:          clock,
	})
}

func TestBuildSpreadStrikes(t *testing.T) {
	econ := buildSpread(95050, defaultStrategy())

	if econ.SellStrike != 95100 {
		t.Errorf("SellStrike = %.0f, want 95100", econ.SellStrike)
	}
	// width = 95050 * 3% = 2851.5, so buy strike rounds to 98000
	if econ.BuyStrike != 98000 {
		t.Errorf("BuyStrike = %.0f, want 98000", econ.BuyStrike)
	}
	if econ.BuyStrike <= econ.SellStrike {
		t.Errorf("BuyStrike %.0f must be above SellStrike %.0f", econ.BuyStrike, econ.SellStrike)
	}

	wantCredit := 95050 * (sellPremiumRate - buyPremiumRate)
	if math.Abs(econ.NetCredit-wantCredit) > 1e-9 {
		t.Errorf("NetCredit = %.4f, want %.4f", econ.NetCredit, wantCredit)
	}
	wantMaxLoss := (econ.BuyStrike - econ.SellStrike) - econ.NetCredit
	if math.Abs(econ.MaxLoss-wantMaxLoss) > 1e-9 {
		t.Errorf("MaxLoss = %.4f, want %.4f", econ.MaxLoss, wantMaxLoss)
	}
}

func TestSizeContracts(t *testing.T) {
	tests := []struct {
		name    string
		balance float64
		riskPct float64
		maxLoss float64
		want    int
	}{
		{"floor of one when budget below one contract", 10000, 1.5, 2000, 1},
		{"multiple contracts fit", 100000, 2.0, 500, 4},
		{"exact division", 100000, 1.0, 250, 4},
		{"fraction truncates down", 100000, 1.0, 300, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sizeContracts(tt.balance, tt.riskPct, tt.maxLoss)
			if got != tt.want {
				t.Errorf("sizeContracts(%.0f, %.1f, %.0f) = %d, want %d",
					tt.balance, tt.riskPct, tt.maxLoss, got, tt.want)
			}
			if got < 1 {
				t.Errorf("contract count must never drop below 1, got %d", got)
			}
		})
	}
}

func TestOpenPositionInvalidEconomics(t *testing.T) {
	strategy := defaultStrategy()
	strategy.ProtectionWidthPct = 0 // both strikes land on the same grid point

	eng := newTestEngine(&stubProvider{spot: 95050}, strategy, 10000, nil)

	_, err := eng.OpenPosition(context.Background(), "", 95050)
	if !errors.Is(err, errors.ErrInvalidSpreadEconomics) {
		t.Fatalf("err = %v, want ErrInvalidSpreadEconomics", err)
	}
	if len(eng.Positions()) != 0 {
		t.Error("rejected entry must not record a position")
	}
}

func TestOpenPositionRecordsEntry(t *testing.T) {
	entryTime := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	eng := newTestEngine(&stubProvider{spot: 95050}, defaultStrategy(), 10000, func() time.Time { return entryTime })

	pos, err := eng.OpenPosition(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("OpenPosition: %v", err)
	}

	if pos.ID != 1 {
		t.Errorf("ID = %d, want 1", pos.ID)
	}
	if pos.Symbol != "BTCUSD" {
		t.Errorf("Symbol = %q, want BTCUSD", pos.Symbol)
	}
	if !pos.EntryTime.Equal(entryTime) {
		t.Errorf("EntryTime = %v, want %v", pos.EntryTime, entryTime)
	}
	if !pos.IsOpen() {
		t.Error("new position must be open")
	}
	if pos.Contracts < 1 {
		t.Errorf("Contracts = %d, want >= 1", pos.Contracts)
	}
}

func TestDecayCurveAsymmetry(t *testing.T) {
	pos := &models.Position{NetCredit: 500, Contracts: 2}

	// After half the allowed time the monitoring curve has decayed 25%
	// while the exit curve has decayed 30%.
	unrealized := unrealizedPnL(pos, 15, 30)
	if math.Abs(unrealized-250) > 1e-9 {
		t.Errorf("unrealized P&L at t=15 = %.2f, want 250", unrealized)
	}

	realized := (pos.NetCredit - pos.NetCredit*exitTimeFactor(15, 30)) * float64(pos.Contracts)
	if math.Abs(realized-300) > 1e-9 {
		t.Errorf("realized P&L at t=15 = %.2f, want 300", realized)
	}

	if realized <= unrealized {
		t.Error("exit valuation must decay faster than monitoring valuation")
	}
}

func TestDecayFloors(t *testing.T) {
	// Far past max time both curves sit on their floors.
	if got := monitorTimeFactor(300, 30); got != 0.3 {
		t.Errorf("monitorTimeFactor floor = %.2f, want 0.30", got)
	}
	if got := exitTimeFactor(300, 30); got != 0.2 {
		t.Errorf("exitTimeFactor floor = %.2f, want 0.20", got)
	}
}

func TestShouldExitPriority(t *testing.T) {
	strategy := defaultStrategy()
	entryTime := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	newPos := func() *models.Position {
		return &models.Position{
			ID:         1,
			EntryTime:  entryTime,
			EntrySpot:  95050,
			SellStrike: 95100,
			BuyStrike:  98000,
			NetCredit:  665.35,
			MaxLoss:    2234.65,
			Contracts:  1,
			Status:     models.PositionOpen,
		}
	}

	tests := []struct {
		name       string
		elapsed    time.Duration
		spot       float64
		wantExit   bool
		wantReason models.ExitReason
	}{
		// 40% of credit decays at t=24: factor = 1 - 0.8*0.5 = 0.6
		{"profit target", 24 * time.Minute, 97000, true, models.ExitProfitTarget},
		{"profit target outranks time exit", 30 * time.Minute, 97000, true, models.ExitProfitTarget},
		{"near strike", 6 * time.Minute, 95200, true, models.ExitNearStrike},
		{"holds early far from strike", 6 * time.Minute, 97000, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := newTestEngine(&stubProvider{spot: tt.spot}, strategy, 10000, nil)
			exit, reason := eng.shouldExit(newPos(), tt.spot, entryTime.Add(tt.elapsed))
			if exit != tt.wantExit || reason != tt.wantReason {
				t.Errorf("shouldExit = (%v, %q), want (%v, %q)", exit, reason, tt.wantExit, tt.wantReason)
			}
		})
	}
}

func TestShouldExitTimeBeforeNearStrike(t *testing.T) {
	strategy := defaultStrategy()
	strategy.TargetProfitPct = 99 // keep profit target out of the way
	entryTime := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	pos := &models.Position{
		EntryTime:  entryTime,
		SellStrike: 95100,
		NetCredit:  665.35,
		MaxLoss:    2234.65,
		Contracts:  1,
		Status:     models.PositionOpen,
	}

	eng := newTestEngine(&stubProvider{}, strategy, 10000, nil)

	// Spot sits inside the near-strike band, but max time is also reached.
	exit, reason := eng.shouldExit(pos, 95150, entryTime.Add(30*time.Minute))
	if !exit || reason != models.ExitTime {
		t.Errorf("shouldExit = (%v, %q), want (true, %q)", exit, reason, models.ExitTime)
	}
}

func TestManagePositionsClosesAndCredits(t *testing.T) {
	provider := &stubProvider{spot: 95050}
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	eng := newTestEngine(provider, defaultStrategy(), 10000, clock)

	pos, err := eng.OpenPosition(context.Background(), "", 95050)
	if err != nil {
		t.Fatalf("OpenPosition: %v", err)
	}

	// Advance past max time so the time exit fires, with spot far from the
	// short strike.
	now = now.Add(31 * time.Minute)
	provider.spot = 97000

	closed := eng.ManagePositions(context.Background())
	if len(closed) != 1 {
		t.Fatalf("closed %d positions, want 1", len(closed))
	}
	if closed[0].ExitReason != models.ExitTime {
		t.Errorf("ExitReason = %q, want %q", closed[0].ExitReason, models.ExitTime)
	}

	wantPnL := pos.NetCredit * (1 - exitTimeFactor(31, 30)) * float64(pos.Contracts)
	if math.Abs(closed[0].PnL-wantPnL) > 1e-9 {
		t.Errorf("PnL = %.4f, want %.4f", closed[0].PnL, wantPnL)
	}
	if math.Abs(eng.Balance()-(10000+wantPnL)) > 1e-9 {
		t.Errorf("Balance = %.4f, want %.4f", eng.Balance(), 10000+wantPnL)
	}
}

func TestManagePositionsSkipsClosed(t *testing.T) {
	provider := &stubProvider{spot: 95050}
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	eng := newTestEngine(provider, defaultStrategy(), 10000, clock)

	if _, err := eng.OpenPosition(context.Background(), "", 95050); err != nil {
		t.Fatalf("OpenPosition: %v", err)
	}

	now = now.Add(31 * time.Minute)
	provider.spot = 97000

	first := eng.ManagePositions(context.Background())
	if len(first) != 1 {
		t.Fatalf("first pass closed %d, want 1", len(first))
	}
	balanceAfter := eng.Balance()

	second := eng.ManagePositions(context.Background())
	if len(second) != 0 {
		t.Errorf("second pass closed %d positions, want 0", len(second))
	}
	if eng.Balance() != balanceAfter {
		t.Errorf("balance changed on a pass with no open positions: %.4f -> %.4f",
			balanceAfter, eng.Balance())
	}
}

func TestManagePositionsDefersWithoutSpot(t *testing.T) {
	provider := &stubProvider{spot: 95050}
	eng := newTestEngine(provider, defaultStrategy(), 10000, nil)

	if _, err := eng.OpenPosition(context.Background(), "", 95050); err != nil {
		t.Fatalf("OpenPosition: %v", err)
	}

	provider.spotErr = errors.ErrPriceUnavailable
	closed := eng.ManagePositions(context.Background())
	if closed != nil {
		t.Errorf("closed %d positions without a spot price, want none", len(closed))
	}
	if !eng.Positions()[0].IsOpen() {
		t.Error("position must remain open when no spot price is available")
	}
}

func TestEvaluateEntryConjunction(t *testing.T) {
	// A chain whose mean IV of 50% clears both the spike and sufficiency
	// thresholds against the 0.92 rolling baseline.
	strongChain := []models.OptionQuote{
		{Symbol: "C-BTC-95000-300826", IV: 0.45},
		{Symbol: "C-BTC-96000-300826", IV: 0.55},
	}
	// A 20% mean IV fails the absolute sufficiency floor.
	weakChain := []models.OptionQuote{
		{Symbol: "C-BTC-95000-300826", IV: 0.20},
	}

	strategy := defaultStrategy()
	strategy.IVSpikePct = 5 // 1.05 * rolling < ATM holds for the decayed baseline

	tests := []struct {
		name      string
		provider  *stubProvider
		wantReady bool
	}{
		{"all conditions met", &stubProvider{spot: 95050, chain: strongChain, sweep: true}, true},
		{"no sweep", &stubProvider{spot: 95050, chain: strongChain, sweep: false}, false},
		{"iv too low", &stubProvider{spot: 95050, chain: weakChain, sweep: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := newTestEngine(tt.provider, strategy, 10000, nil)
			ready, sig := eng.EvaluateEntry(context.Background())
			if ready != tt.wantReady {
				t.Errorf("ready = %v, want %v (signal %+v)", ready, tt.wantReady, sig)
			}
			if ready != sig.EntryReady {
				t.Error("returned readiness must match the signal flag")
			}
			if sig.Synthetic {
				t.Error("live chain data must not be labeled synthetic")
			}
		})
	}
}

func TestEvaluateEntrySpikeThreshold(t *testing.T) {
	// With a spike threshold above the implied baseline gap the spike flag
	// cannot fire: ATM / rolling = 1/0.92 ~ 1.087, an 8.7% spread.
	strategy := defaultStrategy()
	strategy.IVSpikePct = 10

	chain := []models.OptionQuote{{Symbol: "C-BTC-95000-300826", IV: 0.50}}
	eng := newTestEngine(&stubProvider{spot: 95050, chain: chain, sweep: true}, strategy, 10000, nil)

	ready, sig := eng.EvaluateEntry(context.Background())
	if sig.IVSpike {
		t.Error("IVSpike must not fire when the threshold exceeds the baseline gap")
	}
	if ready {
		t.Error("entry must not be ready without the spike condition")
	}
}

func TestEvaluateEntryNoSpot(t *testing.T) {
	eng := newTestEngine(&stubProvider{spotErr: errors.ErrPriceUnavailable}, defaultStrategy(), 10000, nil)

	ready, sig := eng.EvaluateEntry(context.Background())
	if ready {
		t.Error("entry must not be ready without a spot price")
	}
	if sig != (models.Signal{}) {
		t.Errorf("signal = %+v, want zero value", sig)
	}
}

func TestEvaluateEntrySyntheticLabel(t *testing.T) {
	// An empty chain triggers the synthetic IV baseline, which must be
	// labeled on the signal.
	eng := newTestEngine(&stubProvider{spot: 95050, sweep: true}, defaultStrategy(), 10000, nil)

	_, sig := eng.EvaluateEntry(context.Background())
	if !sig.Synthetic {
		t.Error("signal from a synthetic IV baseline must carry the synthetic label")
	}
	if sig.ATMIV < 40 || sig.ATMIV > 80 {
		t.Errorf("synthetic ATM IV = %.2f, want within [40, 80]", sig.ATMIV)
	}
}

func TestStatsEmptyHistory(t *testing.T) {
	eng := newTestEngine(&stubProvider{spot: 95050}, defaultStrategy(), 10000, nil)

	stats := eng.Stats()
	if stats.TotalTrades != 0 {
		t.Errorf("TotalTrades = %d, want 0", stats.TotalTrades)
	}
	if stats.WinRate != 0 {
		t.Errorf("WinRate = %.2f, want 0 with no closed trades", stats.WinRate)
	}
	if stats.Balance != 10000 {
		t.Errorf("Balance = %.2f, want 10000", stats.Balance)
	}
}

func TestStatsAfterTrades(t *testing.T) {
	provider := &stubProvider{spot: 95050}
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	eng := newTestEngine(provider, defaultStrategy(), 10000, clock)

	if _, err := eng.OpenPosition(context.Background(), "", 95050); err != nil {
		t.Fatalf("OpenPosition: %v", err)
	}
	now = now.Add(31 * time.Minute)
	provider.spot = 97000
	closed := eng.ManagePositions(context.Background())
	if len(closed) != 1 {
		t.Fatalf("closed %d positions, want 1", len(closed))
	}

	stats := eng.Stats()
	if stats.TotalTrades != 1 {
		t.Errorf("TotalTrades = %d, want 1", stats.TotalTrades)
	}
	if stats.WinRate != 100 {
		t.Errorf("WinRate = %.2f, want 100", stats.WinRate)
	}
	if math.Abs(stats.TotalPnL-closed[0].PnL) > 1e-9 {
		t.Errorf("TotalPnL = %.4f, want %.4f", stats.TotalPnL, closed[0].PnL)
	}
	if math.Abs(stats.Balance-(10000+closed[0].PnL)) > 1e-9 {
		t.Errorf("Balance = %.4f, want %.4f", stats.Balance, 10000+closed[0].PnL)
	}
	if stats.OpenPositions != 0 {
		t.Errorf("OpenPositions = %d, want 0", stats.OpenPositions)
	}
}
