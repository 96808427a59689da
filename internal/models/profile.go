package models

import "fmt"

// ConstraintProfile is the authoritative, per-account-per-venue record of
// which trading types and leverage levels are permitted. Profiles are
// created when an account links a venue and mutated only by explicit
// account configuration, never by the pipeline.
type ConstraintProfile struct {
	AccountID    string
	Venue        string
	AllowedTypes []TradingType
	MaxLeverage  float64
}

// NewConstraintProfile builds a validated profile. The allowed set must be
// non-empty and a spot-only profile is forced to 1x leverage regardless of
// the requested ceiling.
func NewConstraintProfile(accountID, venue string, allowed []TradingType, maxLeverage float64) (*ConstraintProfile, error) {
	if accountID == "" {
		return nil, fmt.Errorf("account id is required")
	}
	if venue == "" {
		return nil, fmt.Errorf("venue is required")
	}
	if len(allowed) == 0 {
		return nil, fmt.Errorf("allowed trading types must be non-empty")
	}
	if maxLeverage <= 0 {
		return nil, fmt.Errorf("max leverage must be positive, got %v", maxLeverage)
	}

	seen := make(map[TradingType]bool, len(allowed))
	types := make([]TradingType, 0, len(allowed))
	for _, t := range allowed {
		if _, err := ParseTradingType(string(t)); err != nil {
			return nil, err
		}
		if !seen[t] {
			seen[t] = true
			types = append(types, t)
		}
	}

	p := &ConstraintProfile{
		AccountID:    accountID,
		Venue:        NormalizeVenue(venue),
		AllowedTypes: types,
		MaxLeverage:  maxLeverage,
	}
	if p.SpotOnly() {
		p.MaxLeverage = 1
	}
	return p, nil
}

// Allows reports whether the given trading type is permitted.
func (p *ConstraintProfile) Allows(t TradingType) bool {
	for _, a := range p.AllowedTypes {
		if a == t {
			return true
		}
	}
	return false
}

// SpotOnly reports whether spot is the only permitted trading type.
func (p *ConstraintProfile) SpotOnly() bool {
	return len(p.AllowedTypes) == 1 && p.AllowedTypes[0] == TradingTypeSpot
}

// SoleAllowedType returns the single permitted trading type, if exactly one
// exists. Correction toward a type is only unambiguous in that case.
func (p *ConstraintProfile) SoleAllowedType() (TradingType, bool) {
	if len(p.AllowedTypes) == 1 {
		return p.AllowedTypes[0], true
	}
	return "", false
}
