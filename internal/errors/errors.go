// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrPriceUnavailable       = errors.New("spot price unavailable")
	ErrChainUnavailable       = errors.New("option chain unavailable")
	ErrInsufficientCandles    = errors.New("insufficient candle history")
	ErrInvalidSpreadEconomics = errors.New("invalid spread economics")
	ErrPositionNotFound       = errors.New("position not found")
	ErrPositionAlreadyClosed  = errors.New("position already closed")
	ErrConfigInvalid          = errors.New("invalid configuration")
	ErrStateUnavailable       = errors.New("persisted state unavailable")
	ErrTimeout                = errors.New("operation timed out")
)

// MarketDataError represents a failed or degraded market-data read.
type MarketDataError struct {
	DataType string
	Symbol   string
	Err      error
}

func (e *MarketDataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("market data error [%s] %s: %v", e.DataType, e.Symbol, e.Err)
	}
	return fmt.Sprintf("market data error [%s] %s", e.DataType, e.Symbol)
}

func (e *MarketDataError) Unwrap() error {
	return e.Err
}

// NewMarketDataError creates a new MarketDataError.
func NewMarketDataError(dataType, symbol string, err error) *MarketDataError {
	return &MarketDataError{
		DataType: dataType,
		Symbol:   symbol,
		Err:      err,
	}
}

// SpreadError represents a rejected spread construction.
type SpreadError struct {
	Symbol     string
	SellStrike float64
	BuyStrike  float64
	Reason     string
	Err        error
}

func (e *SpreadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("spread error %s [%.0f/%.0f]: %s: %v", e.Symbol, e.SellStrike, e.BuyStrike, e.Reason, e.Err)
	}
	return fmt.Sprintf("spread error %s [%.0f/%.0f]: %s", e.Symbol, e.SellStrike, e.BuyStrike, e.Reason)
}

func (e *SpreadError) Unwrap() error {
	return e.Err
}

// NewSpreadError creates a new SpreadError.
func NewSpreadError(symbol string, sellStrike, buyStrike float64, reason string, err error) *SpreadError {
	return &SpreadError{
		Symbol:     symbol,
		SellStrike: sellStrike,
		BuyStrike:  buyStrike,
		Reason:     reason,
		Err:        err,
	}
}

// StateError represents a persistence failure.
type StateError struct {
	Operation string
	Path      string
	Err       error
}

func (e *StateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("state error [%s] %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("state error [%s] %s", e.Operation, e.Path)
}

func (e *StateError) Unwrap() error {
	return e.Err
}

// NewStateError creates a new StateError.
func NewStateError(operation, path string, err error) *StateError {
	return &StateError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
