// Package models provides domain models for the credit-spread trading agent.
package models

import (
	"time"
)

// PositionStatus represents the lifecycle state of a position.
type PositionStatus string

const (
	PositionOpen   PositionStatus = "open"
	PositionClosed PositionStatus = "closed"
)

// ExitReason enumerates why a position was closed.
type ExitReason string

const (
	ExitProfitTarget ExitReason = "profit_target"
	ExitStopLoss     ExitReason = "stop_loss"
	ExitTime         ExitReason = "time_exit"
	ExitNearStrike   ExitReason = "near_strike"
)

// Position represents a vertical credit spread tracked by the engine.
// Pricing fields are fixed at entry; exit fields are written exactly once
// when the position transitions to closed.
type Position struct {
	ID        int
	Symbol    string
	EntryTime time.Time
	EntrySpot float64

	SellStrike  float64
	BuyStrike   float64
	SellPremium float64
	BuyPremium  float64
	NetCredit   float64

	// MaxLoss is the modeled maximum loss per contract:
	// (buy strike - sell strike) - net credit.
	MaxLoss   float64
	Contracts int

	Status      PositionStatus
	ExitTime    *time.Time
	ExitSpot    float64
	ExitReason  ExitReason
	PnL         float64
	TimeInTrade float64 // minutes
}

// IsOpen reports whether the position is still open.
func (p *Position) IsOpen() bool {
	return p.Status == PositionOpen
}

// Width returns the strike width of the spread.
func (p *Position) Width() float64 {
	return p.BuyStrike - p.SellStrike
}

// AccountState is the durable state of the simulated account.
type AccountState struct {
	Balance   float64
	Positions []Position
}

// Candle represents OHLC data for a single interval.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// Body returns the absolute candle body size.
func (c Candle) Body() float64 {
	b := c.Close - c.Open
	if b < 0 {
		return -b
	}
	return b
}

// UpperWick returns the distance from close to high.
func (c Candle) UpperWick() float64 {
	return c.High - c.Close
}

// LowerWick returns the distance from close to low.
func (c Candle) LowerWick() float64 {
	return c.Close - c.Low
}

// OptionQuote is a single instrument sampled from the option chain.
// IV is the raw implied-volatility fraction as reported by the exchange;
// zero means the instrument carried no IV reading.
type OptionQuote struct {
	Symbol string
	IV     float64
}

// Stats is a read-only rollup over closed positions.
type Stats struct {
	TotalTrades   int
	WinRate       float64
	AvgPnL        float64
	TotalPnL      float64
	Balance       float64
	OpenPositions int
}
