package engine

import (
	"context"
	"math"

	"ivcrush-trader/internal/config"
	"ivcrush-trader/internal/errors"
	"ivcrush-trader/internal/logging"
	"ivcrush-trader/internal/metrics"
	"ivcrush-trader/internal/models"
	"ivcrush-trader/pkg/utils"
)

// Modeled premium multipliers standing in for a real options-pricing
// lookup. The spread always collects a positive net credit of 0.7% of spot.
const (
	sellPremiumRate = 0.015
	buyPremiumRate  = 0.008
)

// strikeStep is the strike grid of the exchange.
const strikeStep = 100.0

// spreadEconomics holds the modeled pricing of a candidate spread.
type spreadEconomics struct {
	SellStrike  float64
	BuyStrike   float64
	SellPremium float64
	BuyPremium  float64
	NetCredit   float64
	MaxLoss     float64 // per contract
}

// buildSpread derives strikes and modeled premiums from the spot price.
func buildSpread(spot float64, strategy config.StrategyConfig) spreadEconomics {
	sellStrike := utils.RoundToNearest(spot, strikeStep)
	width := spot * strategy.ProtectionWidthPct / 100
	buyStrike := utils.RoundToNearest(sellStrike+width, strikeStep)

	sellPremium := spot * sellPremiumRate
	buyPremium := spot * buyPremiumRate
	netCredit := sellPremium - buyPremium

	return spreadEconomics{
		SellStrike:  sellStrike,
		BuyStrike:   buyStrike,
		SellPremium: sellPremium,
		BuyPremium:  buyPremium,
		NetCredit:   netCredit,
		MaxLoss:     (buyStrike - sellStrike) - netCredit,
	}
}

// sizeContracts converts the account risk budget into a contract count.
// The floor of one contract is a minimum-exposure policy: a risk budget
// smaller than one contract's max loss still trades a single contract.
func sizeContracts(balance, riskPerTradePct, maxLossPerContract float64) int {
	riskAmount := balance * riskPerTradePct / 100
	contracts := int(math.Floor(riskAmount / maxLossPerContract))
	if contracts < 1 {
		return 1
	}
	return contracts
}

// OpenPosition opens a vertical credit spread sized against the account's
// risk budget. A non-positive spot asks the provider for the current price.
// It fails only when no usable spot price exists or the configured width is
// too narrow for the modeled premiums to leave positive max loss.
func (e *Engine) OpenPosition(ctx context.Context, symbol string, spot float64) (*models.Position, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if symbol == "" {
		symbol = e.symbol
	}

	if spot <= 0 {
		price, err := e.provider.SpotPrice(ctx)
		if err != nil {
			metrics.DataFetchFailures.WithLabelValues("spot").Inc()
			return nil, errors.Wrap(err, "opening position")
		}
		spot = price
	}

	econ := buildSpread(spot, e.strategy)
	if econ.MaxLoss <= 0 {
		return nil, errors.NewSpreadError(symbol, econ.SellStrike, econ.BuyStrike,
			"modeled max loss is not positive", errors.ErrInvalidSpreadEconomics)
	}

	contracts := sizeContracts(e.balance, e.strategy.RiskPerTradePct, econ.MaxLoss)

	pos := models.Position{
		ID:          len(e.positions) + 1,
		Symbol:      symbol,
		EntryTime:   e.now(),
		EntrySpot:   spot,
		SellStrike:  econ.SellStrike,
		BuyStrike:   econ.BuyStrike,
		SellPremium: econ.SellPremium,
		BuyPremium:  econ.BuyPremium,
		NetCredit:   econ.NetCredit,
		MaxLoss:     econ.MaxLoss,
		Contracts:   contracts,
		Status:      models.PositionOpen,
	}

	e.positions = append(e.positions, pos)
	e.saveState(ctx)
	e.updateGauges()

	opened := &e.positions[len(e.positions)-1]
	logging.LogEntry(e.logger, opened)
	metrics.PositionsOpened.Inc()
	e.notifyOpened(ctx, opened)

	result := *opened
	return &result, nil
}
