// Package enforce is the trust boundary between model-generated signals and
// order execution. Everything upstream (generation, validation) is advisory;
// the enforcer's decision is the only thing the executor acts on.
package enforce

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tradegate/internal/audit"
	"tradegate/internal/errors"
	"tradegate/internal/models"
	"tradegate/internal/profile"
)

// Enforcer applies the constraint decision rules to a validated signal.
// It re-fetches the constraint profile at decision time rather than trusting
// the copy embedded in the generation prompt, because the prompt copy is
// advisory input to a model, not an enforcement artifact.
type Enforcer struct {
	profiles *profile.Resolver
	recorder audit.Recorder
	clock    *audit.StageClock
	now      func() time.Time
	log      zerolog.Logger
}

// NewEnforcer creates a constraint enforcer backed by the given profile
// resolver and audit recorder.
func NewEnforcer(profiles *profile.Resolver, recorder audit.Recorder, clock *audit.StageClock, log zerolog.Logger) *Enforcer {
	return &Enforcer{
		profiles: profiles,
		recorder: recorder,
		clock:    clock,
		now:      time.Now,
		log:      log,
	}
}

// Decide evaluates a signal and its validation verdict against the freshly
// fetched constraint profile and returns exactly one enforcement decision.
// The checks run in a fixed order and the first terminal condition wins:
//
//  1. expired signal: reject
//  2. validator reject: reject
//  3. trading type not allowed: correct when exactly one type is allowed,
//     otherwise reject
//  4. leverage above maximum: clamp to the profile maximum
//
// A profile lookup failure is fail-closed: the signal is rejected, never
// executed on stale or assumed permissions.
func (e *Enforcer) Decide(ctx context.Context, signal *models.TradingSignal, verdict *models.ValidationVerdict) (*models.EnforcementDecision, error) {
	if signal == nil {
		return nil, fmt.Errorf("enforce: nil signal")
	}
	if verdict == nil || verdict.SignalID != signal.ID {
		return nil, fmt.Errorf("enforce: verdict does not match signal %s", signal.ID)
	}

	now := e.now()

	prof, err := e.profiles.GetProfile(ctx, signal.AccountID, signal.Venue)
	if err != nil {
		decision := e.reject(signal, nil, models.InvariantProfileUnavailable,
			fmt.Sprintf("constraint profile unavailable: %v", err))
		return decision, errors.NewConstraintViolation(signal.ID, string(models.InvariantProfileUnavailable), err.Error())
	}

	if signal.Expired(now) {
		decision := e.reject(signal, prof, models.InvariantExpired,
			fmt.Sprintf("signal expired at %s", signal.ExpiresAt.Format(time.RFC3339)))
		return decision, nil
	}

	if verdict.Status == models.VerdictReject {
		decision := e.reject(signal, prof, models.InvariantValidatorRejected,
			fmt.Sprintf("validator %s rejected: %s", verdict.ValidatorIdentity, verdict.Reasoning))
		return decision, nil
	}

	decision := &models.EnforcementDecision{
		SignalID:  signal.ID,
		Action:    models.ActionExecute,
		DecidedAt: now,
	}

	if !prof.Allows(signal.TradingType) {
		sole, ok := prof.SoleAllowedType()
		if !ok {
			return e.reject(signal, prof, models.InvariantTradingTypeNotAllowed,
				fmt.Sprintf("trading type %s not allowed and no unambiguous correction among %v",
					signal.TradingType, prof.AllowedTypes)), nil
		}
		decision.Action = models.ActionExecuteCorrected
		decision.CorrectedTradingType = sole
		e.record(signal, prof, "corrected",
			fmt.Sprintf("trading type %s not allowed, corrected to %s", signal.TradingType, sole))
	}

	effectiveType := decision.EffectiveTradingType(signal)
	maxLeverage := prof.MaxLeverage
	if effectiveType == models.TradingTypeSpot {
		maxLeverage = 1
	}
	if signal.Leverage > maxLeverage {
		decision.Action = models.ActionExecuteCorrected
		decision.CorrectedLeverage = maxLeverage
		e.record(signal, prof, "corrected",
			fmt.Sprintf("leverage %.2f exceeds maximum %.2f, clamped", signal.Leverage, maxLeverage))
	}

	if decision.Action == models.ActionExecute {
		e.log.Debug().Str("signal_id", signal.ID).Msg("Signal passed enforcement unchanged")
	} else {
		e.log.Info().
			Str("signal_id", signal.ID).
			Str("action", string(decision.Action)).
			Msg("Signal corrected by enforcement")
	}

	return decision, nil
}

func (e *Enforcer) reject(signal *models.TradingSignal, prof *models.ConstraintProfile, invariant models.Invariant, detail string) *models.EnforcementDecision {
	decision := &models.EnforcementDecision{
		SignalID:          signal.ID,
		Action:            models.ActionReject,
		ViolatedInvariant: invariant,
		DecidedAt:         e.now(),
	}
	if detail != "" {
		e.record(signal, prof, "rejected", detail)
		e.log.Warn().
			Str("signal_id", signal.ID).
			Str("invariant", string(invariant)).
			Str("detail", detail).
			Msg("Signal rejected by enforcement")
	}
	return decision
}

func (e *Enforcer) record(signal *models.TradingSignal, prof *models.ConstraintProfile, outcome, detail string) {
	entry := models.AuditEntry{
		Timestamp:            e.clock.Next(signal.ID),
		Stage:                models.StageEnforcement,
		SignalID:             signal.ID,
		AccountID:            signal.AccountID,
		Venue:                signal.Venue,
		AttemptedTradingType: signal.TradingType,
		LeverageAttempted:    signal.Leverage,
		Outcome:              outcome,
		Detail:               detail,
	}
	if prof != nil {
		for _, t := range prof.AllowedTypes {
			entry.AllowedTradingTypes = append(entry.AllowedTradingTypes, t)
		}
		entry.LeverageAllowed = prof.MaxLeverage
	}
	e.recorder.Record(entry)
}
