package models

import "time"

// Stage identifies where in the pipeline a constraint check happened.
type Stage string

const (
	StageGeneration  Stage = "generation"
	StageValidation  Stage = "validation"
	StageEnforcement Stage = "enforcement"
	StageExecution   Stage = "execution"
)

// Order returns the pipeline position of the stage. Entries for a signal
// must be recorded in ascending stage order.
func (s Stage) Order() int {
	switch s {
	case StageGeneration:
		return 0
	case StageValidation:
		return 1
	case StageEnforcement:
		return 2
	case StageExecution:
		return 3
	default:
		return -1
	}
}

// AuditEntry is an immutable record of a constraint check outcome. Entries
// are append-only; retention and rotation belong to the sink.
type AuditEntry struct {
	Timestamp            time.Time     `json:"timestamp"`
	Stage                Stage         `json:"stage"`
	SignalID             string        `json:"signal_id"`
	AccountID            string        `json:"account_id"`
	Venue                string        `json:"venue"`
	AttemptedTradingType TradingType   `json:"attempted_trading_type"`
	AllowedTradingTypes  []TradingType `json:"allowed_trading_types"`
	LeverageAttempted    float64       `json:"leverage_attempted"`
	LeverageAllowed      float64       `json:"leverage_allowed"`
	Outcome              string        `json:"outcome"`
	Detail               string        `json:"detail,omitempty"`
}
