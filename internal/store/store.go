// Package store provides durable persistence for the simulated account.
package store

import (
	"context"

	"ivcrush-trader/internal/models"
)

// StateStore defines the interface for account state persistence.
// The engine owns the state; the store only serializes snapshots of it.
type StateStore interface {
	// Load returns the persisted account state. Callers treat any error as
	// "start fresh": a missing or malformed record must never be fatal.
	Load(ctx context.Context) (*models.AccountState, error)

	// Save persists a full snapshot of the account state.
	Save(ctx context.Context, state *models.AccountState) error

	// Lifecycle
	Close() error
}
