package profile

import (
	"sync"

	"tradegate/internal/models"
)

// VenueCapability describes what a venue itself supports, independent of
// any account's stored configuration. A spot-only venue never supports
// leverage regardless of what an account profile claims.
type VenueCapability struct {
	Venue          string
	SupportedTypes []models.TradingType
	MaxLeverage    float64
}

// VenueRegistry holds per-venue hard limits. Reads are lock-free after
// construction aside from the registration path.
type VenueRegistry struct {
	mu     sync.RWMutex
	venues map[string]VenueCapability
}

// DefaultVenueRegistry returns a registry seeded with the venues the
// pipeline trades against.
func DefaultVenueRegistry() *VenueRegistry {
	r := &VenueRegistry{venues: make(map[string]VenueCapability)}
	for _, vc := range []VenueCapability{
		{
			Venue:          "coinbase",
			SupportedTypes: []models.TradingType{models.TradingTypeSpot},
			MaxLeverage:    1,
		},
		{
			Venue: "kraken",
			SupportedTypes: []models.TradingType{
				models.TradingTypeSpot, models.TradingTypeMargin, models.TradingTypeFutures,
			},
			MaxLeverage: 5,
		},
		{
			Venue: "binance",
			SupportedTypes: []models.TradingType{
				models.TradingTypeSpot, models.TradingTypeMargin, models.TradingTypeFutures,
			},
			MaxLeverage: 20,
		},
	} {
		r.Register(vc)
	}
	return r
}

// Register adds or replaces a venue capability.
func (r *VenueRegistry) Register(vc VenueCapability) {
	r.mu.Lock()
	defer r.mu.Unlock()
	vc.Venue = models.NormalizeVenue(vc.Venue)
	if vc.MaxLeverage <= 0 {
		vc.MaxLeverage = 1
	}
	r.venues[vc.Venue] = vc
}

// Capability returns the hard limits for a venue, if known.
func (r *VenueRegistry) Capability(venue string) (VenueCapability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	vc, ok := r.venues[models.NormalizeVenue(venue)]
	return vc, ok
}

// Clamp intersects a stored profile with the venue's hard limits. An
// unknown venue passes the stored profile through unchanged; a known venue
// narrows the allowed types to what it supports and caps leverage. If the
// intersection would be empty the result is spot-only at 1x, the most
// restrictive coherent profile.
func (r *VenueRegistry) Clamp(stored *models.ConstraintProfile) *models.ConstraintProfile {
	vc, ok := r.Capability(stored.Venue)
	if !ok {
		return stored
	}

	supported := make(map[models.TradingType]bool, len(vc.SupportedTypes))
	for _, t := range vc.SupportedTypes {
		supported[t] = true
	}

	allowed := make([]models.TradingType, 0, len(stored.AllowedTypes))
	for _, t := range stored.AllowedTypes {
		if supported[t] {
			allowed = append(allowed, t)
		}
	}
	if len(allowed) == 0 {
		allowed = []models.TradingType{models.TradingTypeSpot}
	}

	maxLev := stored.MaxLeverage
	if maxLev > vc.MaxLeverage {
		maxLev = vc.MaxLeverage
	}

	clamped := &models.ConstraintProfile{
		AccountID:    stored.AccountID,
		Venue:        stored.Venue,
		AllowedTypes: allowed,
		MaxLeverage:  maxLev,
	}
	if clamped.SpotOnly() {
		clamped.MaxLeverage = 1
	}
	return clamped
}
