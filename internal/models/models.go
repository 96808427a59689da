// Package models provides domain models for the signal pipeline.
package models

import (
	"fmt"
	"strings"
)

// TradingType represents a category of market access.
type TradingType string

const (
	TradingTypeSpot    TradingType = "spot"
	TradingTypeMargin  TradingType = "margin"
	TradingTypeFutures TradingType = "futures"
)

// ParseTradingType parses a trading type string. Unrecognized values are
// an error, never defaulted.
func ParseTradingType(s string) (TradingType, error) {
	switch TradingType(strings.ToLower(strings.TrimSpace(s))) {
	case TradingTypeSpot:
		return TradingTypeSpot, nil
	case TradingTypeMargin:
		return TradingTypeMargin, nil
	case TradingTypeFutures:
		return TradingTypeFutures, nil
	default:
		return "", fmt.Errorf("unrecognized trading type %q", s)
	}
}

// Side represents the direction of a proposed trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
	SideHold Side = "hold"
)

// ParseSide parses a trade side string.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	case SideHold:
		return SideHold, nil
	default:
		return "", fmt.Errorf("unrecognized side %q", s)
	}
}

// NormalizeVenue canonicalizes a venue identifier. All venue lookups go
// through this so that "Kraken" and "kraken" resolve to the same profile.
func NormalizeVenue(venue string) string {
	return strings.ToLower(strings.TrimSpace(venue))
}
