// Package store provides data persistence implementations.
package store

import (
	"context"

	"tradegate/internal/models"
)

// DataStore persists constraint profiles and the per-signal pipeline record.
type DataStore interface {
	// GetProfile returns the stored constraint profile for an account and
	// venue, or errors.ErrProfileNotFound when none exists.
	GetProfile(ctx context.Context, accountID, venue string) (*models.ConstraintProfile, error)

	// PutProfile inserts or replaces a constraint profile.
	PutProfile(ctx context.Context, profile *models.ConstraintProfile) error

	// DeleteProfile removes a profile so subsequent signals fail closed.
	DeleteProfile(ctx context.Context, accountID, venue string) error

	// ListProfiles returns every stored profile for an account.
	ListProfiles(ctx context.Context, accountID string) ([]*models.ConstraintProfile, error)

	SaveSignal(ctx context.Context, signal *models.TradingSignal) error
	GetSignal(ctx context.Context, signalID string) (*models.TradingSignal, error)

	SaveVerdict(ctx context.Context, verdict *models.ValidationVerdict) error
	SaveDecision(ctx context.Context, decision *models.EnforcementDecision) error
	SaveOrder(ctx context.Context, order *models.Order) error

	// RecentSignals returns the newest signals first, capped at limit.
	RecentSignals(ctx context.Context, limit int) ([]*models.TradingSignal, error)

	Close() error
}
