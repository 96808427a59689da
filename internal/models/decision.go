package models

import "time"

// DecisionAction is the enforcer's final, binding authorization.
type DecisionAction string

const (
	ActionExecute          DecisionAction = "execute"
	ActionExecuteCorrected DecisionAction = "execute_corrected"
	ActionReject           DecisionAction = "reject"
)

// Invariant identifies which rule a rejected signal violated.
type Invariant string

const (
	InvariantExpired               Invariant = "expired"
	InvariantValidatorRejected     Invariant = "validator_rejected"
	InvariantTradingTypeNotAllowed Invariant = "trading_type_not_allowed"
	InvariantProfileUnavailable    Invariant = "profile_unavailable"
)

// EnforcementDecision is the authoritative outcome for a signal. Corrected
// fields are set only when Action is execute_corrected; ViolatedInvariant
// only when Action is reject. Immutable once produced.
type EnforcementDecision struct {
	SignalID             string
	Action               DecisionAction
	CorrectedTradingType TradingType
	CorrectedLeverage    float64
	ViolatedInvariant    Invariant
	DecidedAt            time.Time
}

// Executable reports whether the decision authorizes order creation.
func (d *EnforcementDecision) Executable() bool {
	return d.Action == ActionExecute || d.Action == ActionExecuteCorrected
}

// EffectiveTradingType returns the trading type an order built from this
// decision must carry.
func (d *EnforcementDecision) EffectiveTradingType(signal *TradingSignal) TradingType {
	if d.Action == ActionExecuteCorrected && d.CorrectedTradingType != "" {
		return d.CorrectedTradingType
	}
	return signal.TradingType
}

// EffectiveLeverage returns the leverage an order built from this decision
// must carry.
func (d *EnforcementDecision) EffectiveLeverage(signal *TradingSignal) float64 {
	if d.Action == ActionExecuteCorrected && d.CorrectedLeverage > 0 {
		return d.CorrectedLeverage
	}
	return signal.Leverage
}
