package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tradegate/internal/errors"
	"tradegate/internal/models"
)

const validatorSystemPrompt = `You are a senior quantitative risk officer reviewing a trade proposed by a
separate analysis engine. Judge it independently; do not assume its
reasoning is correct. Respond in valid JSON only, with fields: status
(approve|revise|reject), reasoning (string), risk_flags (array of strings).
Reject any trade whose trading type or leverage breaches the stated venue
constraints. Flag missing or implausible stop-loss and take-profit levels.`

// Validator cross-checks candidate signals with an independent validation
// model. The constraint decision rule is applied locally on top of the
// model's judgment, so a lenient model response can widen the verdict's
// reasoning but never its permissions.
type Validator struct {
	client LLMClient
	log    zerolog.Logger
}

// NewValidator creates a new signal validator.
func NewValidator(client LLMClient, log zerolog.Logger) *Validator {
	return &Validator{client: client, log: log}
}

// validationResponse is the strict parse target for the model's output.
type validationResponse struct {
	Status    string   `json:"status"`
	Reasoning string   `json:"reasoning"`
	RiskFlags []string `json:"risk_flags"`
}

// Validate issues the independent check request and returns exactly one
// verdict. Infrastructure and parse failures are ValidationErrors and are
// never conflated with a reject verdict, which is a content judgment.
func (v *Validator) Validate(ctx context.Context, signal *models.TradingSignal, profile *models.ConstraintProfile) (*models.ValidationVerdict, error) {
	if profile == nil {
		return nil, errors.NewValidationError(v.client.Identity(), "missing constraint profile", nil)
	}

	userPrompt, err := v.buildPrompt(signal, profile)
	if err != nil {
		return nil, errors.NewValidationError(v.client.Identity(), "building prompt", err)
	}

	raw, err := v.client.Complete(ctx, validatorSystemPrompt, userPrompt)
	if err != nil {
		return nil, errors.NewValidationError(v.client.Identity(), "model call failed", err)
	}

	var resp validationResponse
	if !extractJSON(raw, &resp) {
		return nil, errors.NewValidationError(v.client.Identity(), "unparseable model output", nil)
	}

	status, err := models.ParseVerdictStatus(resp.Status)
	if err != nil {
		return nil, errors.NewValidationError(v.client.Identity(), "malformed model output", err)
	}

	verdict := &models.ValidationVerdict{
		SignalID:          signal.ID,
		Status:            status,
		Reasoning:         resp.Reasoning,
		ValidatorIdentity: v.client.Identity(),
		CreatedAt:         time.Now(),
	}
	for _, f := range resp.RiskFlags {
		verdict.RiskFlags = append(verdict.RiskFlags, models.RiskFlag(f))
	}

	applyDecisionRule(verdict, signal, profile)

	v.log.Debug().
		Str("signal_id", signal.ID).
		Str("status", string(verdict.Status)).
		Msg("Validation verdict issued")

	return verdict, nil
}

func (v *Validator) buildPrompt(signal *models.TradingSignal, profile *models.ConstraintProfile) (string, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"candidate_signal": map[string]interface{}{
			"symbol":       signal.Symbol,
			"side":         signal.Side,
			"trading_type": signal.TradingType,
			"leverage":     signal.Leverage,
			"price_target": signal.PriceTarget,
			"stop_loss":    signal.StopLoss,
			"take_profit":  signal.TakeProfit,
			"confidence":   signal.Confidence,
			"rationale":    signal.Rationale,
		},
		"venue_constraints": map[string]interface{}{
			"venue":                 profile.Venue,
			"allowed_trading_types": profile.AllowedTypes,
			"max_leverage":          profile.MaxLeverage,
		},
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("[Review Request]\n%s", payload), nil
}

// applyDecisionRule enforces the deterministic verdict rules over whatever
// the model returned: constraint breaches force reject, missing or
// implausible parameters force at least revise, and every detected breach
// carries a machine-readable risk flag even when the status stays softer.
func applyDecisionRule(verdict *models.ValidationVerdict, signal *models.TradingSignal, profile *models.ConstraintProfile) {
	ensureFlag := func(flag models.RiskFlag) {
		if !verdict.HasFlag(flag) {
			verdict.RiskFlags = append(verdict.RiskFlags, flag)
		}
	}
	escalate := func(to models.VerdictStatus) {
		switch to {
		case models.VerdictReject:
			verdict.Status = models.VerdictReject
		case models.VerdictRevise:
			if verdict.Status == models.VerdictApprove {
				verdict.Status = models.VerdictRevise
			}
		}
	}

	if !profile.Allows(signal.TradingType) {
		ensureFlag(models.FlagTradingTypeNotAllowed)
		escalate(models.VerdictReject)
	}
	if signal.Leverage > profile.MaxLeverage {
		ensureFlag(models.FlagLeverageNotAllowed)
		escalate(models.VerdictReject)
	}

	// Directional trades need coherent exit parameters.
	if signal.Side != models.SideHold {
		if signal.StopLoss <= 0 {
			ensureFlag(models.FlagMissingStopLoss)
			escalate(models.VerdictRevise)
		} else if stopLossWrongSide(signal) {
			ensureFlag(models.FlagStopLossWrongSide)
			escalate(models.VerdictRevise)
		}
		if signal.TakeProfit <= 0 {
			ensureFlag(models.FlagMissingTakeProfit)
			escalate(models.VerdictRevise)
		}
	}
}

// stopLossWrongSide reports whether the stop-loss sits on the wrong side of
// the entry for the stated direction: above entry for a buy, below for a
// sell.
func stopLossWrongSide(signal *models.TradingSignal) bool {
	if signal.PriceTarget <= 0 || signal.StopLoss <= 0 {
		return false
	}
	switch signal.Side {
	case models.SideBuy:
		return signal.StopLoss >= signal.PriceTarget
	case models.SideSell:
		return signal.StopLoss <= signal.PriceTarget
	default:
		return false
	}
}
