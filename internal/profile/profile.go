// Package profile provides the authoritative constraint profile read path
// for the signal pipeline.
package profile

import (
	"context"

	"tradegate/internal/models"
)

// Store defines the persistence contract for constraint profiles. Reads
// are fail-closed: a missing profile is errors.ErrProfileNotFound, never a
// permissive default.
type Store interface {
	GetProfile(ctx context.Context, accountID, venue string) (*models.ConstraintProfile, error)
	PutProfile(ctx context.Context, profile *models.ConstraintProfile) error
}

// Resolver wraps a backing Store and applies venue-level hard limits on
// every read. The pipeline always reads through a Resolver so a stale or
// tampered stored profile can never widen what a venue actually supports.
type Resolver struct {
	backing Store
	venues  *VenueRegistry
}

// NewResolver creates a Resolver over the given store and venue registry.
// A nil registry falls back to the built-in venue capabilities.
func NewResolver(backing Store, venues *VenueRegistry) *Resolver {
	if venues == nil {
		venues = DefaultVenueRegistry()
	}
	return &Resolver{backing: backing, venues: venues}
}

// GetProfile returns the constraint profile for (account, venue) with venue
// hard limits applied. Venue identity is case-normalized before lookup.
func (r *Resolver) GetProfile(ctx context.Context, accountID, venue string) (*models.ConstraintProfile, error) {
	venue = models.NormalizeVenue(venue)

	stored, err := r.backing.GetProfile(ctx, accountID, venue)
	if err != nil {
		return nil, err
	}

	return r.venues.Clamp(stored), nil
}

// PutProfile stores a profile after normalizing its venue. Called from
// account configuration paths only; the pipeline itself never writes.
func (r *Resolver) PutProfile(ctx context.Context, p *models.ConstraintProfile) error {
	p.Venue = models.NormalizeVenue(p.Venue)
	return r.backing.PutProfile(ctx, p)
}
