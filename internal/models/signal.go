package models

import (
	"fmt"
	"time"
)

// TradingSignal is a proposed trade produced by the generation model. It is
// read-only after creation; only the enforcer may normalize TradingType and
// Leverage, and it does so on a copy.
type TradingSignal struct {
	ID            string
	AccountID     string
	Venue         string
	Symbol        string
	Side          Side
	TradingType   TradingType
	Leverage      float64
	PriceTarget   float64
	StopLoss      float64
	TakeProfit    float64
	Confidence    float64 // 0-100
	Rationale     string
	SourceContext string
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

// Expired reports whether the signal is past its expiry at the given
// instant. An expired signal is terminal and may not be executed.
func (s *TradingSignal) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Validate checks that the signal carries every required field.
func (s *TradingSignal) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("signal id is required")
	}
	if s.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if s.Side == "" {
		return fmt.Errorf("side is required")
	}
	if s.TradingType == "" {
		return fmt.Errorf("trading type is required")
	}
	if s.Leverage <= 0 {
		return fmt.Errorf("leverage must be positive, got %v", s.Leverage)
	}
	if s.Confidence < 0 || s.Confidence > 100 {
		return fmt.Errorf("confidence must be between 0 and 100, got %v", s.Confidence)
	}
	if s.CreatedAt.IsZero() {
		return fmt.Errorf("created_at is required")
	}
	return nil
}

// VerdictStatus is the validation model's judgment on a candidate signal.
type VerdictStatus string

const (
	VerdictApprove VerdictStatus = "approve"
	VerdictRevise  VerdictStatus = "revise"
	VerdictReject  VerdictStatus = "reject"
)

// ParseVerdictStatus parses a verdict status string.
func ParseVerdictStatus(s string) (VerdictStatus, error) {
	switch VerdictStatus(s) {
	case VerdictApprove:
		return VerdictApprove, nil
	case VerdictRevise:
		return VerdictRevise, nil
	case VerdictReject:
		return VerdictReject, nil
	default:
		return "", fmt.Errorf("unrecognized verdict status %q", s)
	}
}

// RiskFlag is a machine-readable tag for a constraint breach or quality
// issue detected during validation.
type RiskFlag string

const (
	FlagLeverageNotAllowed    RiskFlag = "leverage_not_allowed"
	FlagTradingTypeNotAllowed RiskFlag = "trading_type_not_allowed"
	FlagMissingStopLoss       RiskFlag = "missing_stop_loss"
	FlagStopLossWrongSide     RiskFlag = "stop_loss_wrong_side"
	FlagMissingTakeProfit     RiskFlag = "missing_take_profit"
)

// ValidationVerdict is the independent validation model's verdict on a
// TradingSignal. Produced once per signal; immutable after creation.
type ValidationVerdict struct {
	SignalID          string
	Status            VerdictStatus
	RiskFlags         []RiskFlag
	Reasoning         string
	ValidatorIdentity string
	CreatedAt         time.Time
}

// HasFlag reports whether the verdict carries the given risk flag.
func (v *ValidationVerdict) HasFlag(flag RiskFlag) bool {
	for _, f := range v.RiskFlags {
		if f == flag {
			return true
		}
	}
	return false
}
