// Package trading coordinates the signal pipeline: generation, independent
// validation, constraint enforcement, and order execution.
package trading

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"tradegate/internal/audit"
	"tradegate/internal/config"
	"tradegate/internal/enforce"
	apperrors "tradegate/internal/errors"
	"tradegate/internal/exec"
	"tradegate/internal/models"
	"tradegate/internal/profile"
	"tradegate/internal/resilience"
	"tradegate/internal/signal"
	"tradegate/internal/store"
	"tradegate/pkg/utils"
)

// Outcome summarizes how a pipeline run ended.
type Outcome string

const (
	OutcomeExecuted  Outcome = "executed"
	OutcomeCorrected Outcome = "executed_corrected"
	OutcomeRejected  Outcome = "rejected"
	OutcomeFailed    Outcome = "failed"
)

// Result carries every artifact a pipeline run produced. Later stages are
// nil when an earlier stage ended the run.
type Result struct {
	Signal   *models.TradingSignal
	Verdict  *models.ValidationVerdict
	Decision *models.EnforcementDecision
	Order    *models.Order
	Outcome  Outcome
	Reason   string
}

// Request describes one analysis run for one account on one venue.
type Request struct {
	AccountID     string
	Venue         string
	Symbol        string
	MarketContext string
}

// Pipeline wires the stages together. Model calls get bounded retries with
// backoff because their failures are infrastructure; verdicts and decisions
// are content and are never retried.
type Pipeline struct {
	generator *signal.Generator
	validator *signal.Validator
	enforcer  *enforce.Enforcer
	executor  *exec.Executor
	profiles  *profile.Resolver
	store     store.DataStore
	recorder  audit.Recorder
	clock     *audit.StageClock
	cfg       config.PipelineConfig
	log       zerolog.Logger

	genBreaker *resilience.CircuitBreaker
	valBreaker *resilience.CircuitBreaker
}

// PipelineDeps collects the constructor dependencies.
type PipelineDeps struct {
	Generator *signal.Generator
	Validator *signal.Validator
	Enforcer  *enforce.Enforcer
	Executor  *exec.Executor
	Profiles  *profile.Resolver
	Store     store.DataStore
	Recorder  audit.Recorder
	Clock     *audit.StageClock
	Config    config.PipelineConfig
	Logger    zerolog.Logger
}

// NewPipeline creates a signal pipeline.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		generator: deps.Generator,
		validator: deps.Validator,
		enforcer:  deps.Enforcer,
		executor:  deps.Executor,
		profiles:  deps.Profiles,
		store:     deps.Store,
		recorder:  deps.Recorder,
		clock:     deps.Clock,
		cfg:       deps.Config,
		log:       deps.Logger,

		genBreaker: resilience.NewCircuitBreaker("generation", resilience.DefaultCircuitBreakerConfig()),
		valBreaker: resilience.NewCircuitBreaker("validation", resilience.DefaultCircuitBreakerConfig()),
	}
}

// Process runs one signal through all four stages and returns whatever the
// run produced. Safe for concurrent use; each call works on its own signal.
func (p *Pipeline) Process(ctx context.Context, req Request) (*Result, error) {
	log := p.log.With().
		Str("account_id", req.AccountID).
		Str("venue", req.Venue).
		Str("symbol", req.Symbol).
		Logger()

	prof, err := p.profiles.GetProfile(ctx, req.AccountID, req.Venue)
	if err != nil {
		log.Error().Err(err).Msg("No constraint profile, refusing to generate")
		return &Result{Outcome: OutcomeFailed, Reason: "constraint profile unavailable"}, err
	}

	result := &Result{}

	// Stage 1: generation
	sig, err := p.generate(ctx, req, prof)
	if err != nil {
		log.Error().Err(err).Msg("Signal generation failed")
		return &Result{Outcome: OutcomeFailed, Reason: "generation failed"}, err
	}
	result.Signal = sig
	defer p.clock.Forget(sig.ID)

	p.record(sig, prof, models.StageGeneration, "generated",
		fmt.Sprintf("model proposed %s %s at %gx", sig.Side, sig.TradingType, sig.Leverage))
	if err := p.store.SaveSignal(ctx, sig); err != nil {
		log.Warn().Err(err).Msg("Persisting signal failed")
	}

	// Stage 2: independent validation
	verdict, err := p.validate(ctx, sig, prof)
	if err != nil {
		p.record(sig, prof, models.StageValidation, "failed",
			fmt.Sprintf("validation unavailable: %v", err))
		log.Error().Err(err).Str("signal_id", sig.ID).Msg("Validation failed, not executing")
		result.Outcome = OutcomeFailed
		result.Reason = "validation unavailable"
		return result, err
	}
	result.Verdict = verdict

	p.record(sig, prof, models.StageValidation, string(verdict.Status), verdict.Reasoning)
	if err := p.store.SaveVerdict(ctx, verdict); err != nil {
		log.Warn().Err(err).Msg("Persisting verdict failed")
	}

	// Stage 3: enforcement
	decision, err := p.enforcer.Decide(ctx, sig, verdict)
	if err != nil && decision == nil {
		result.Outcome = OutcomeFailed
		result.Reason = "enforcement failed"
		return result, err
	}
	result.Decision = decision
	if err := p.store.SaveDecision(ctx, decision); err != nil {
		log.Warn().Err(err).Msg("Persisting decision failed")
	}

	if !decision.Executable() {
		result.Outcome = OutcomeRejected
		result.Reason = string(decision.ViolatedInvariant)
		log.Info().
			Str("signal_id", sig.ID).
			Str("invariant", string(decision.ViolatedInvariant)).
			Msg("Signal rejected, no order placed")
		return result, nil
	}

	// Stage 4: execution
	order, err := p.executor.Execute(ctx, sig, decision)
	if order != nil {
		result.Order = order
		if saveErr := p.store.SaveOrder(ctx, order); saveErr != nil {
			log.Warn().Err(saveErr).Msg("Persisting order failed")
		}
	}
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Reason = "execution failed"
		return result, err
	}

	if decision.Action == models.ActionExecuteCorrected {
		result.Outcome = OutcomeCorrected
	} else {
		result.Outcome = OutcomeExecuted
	}

	log.Info().
		Str("signal_id", sig.ID).
		Str("client_order_id", order.ClientOrderID).
		Str("outcome", string(result.Outcome)).
		Msg("Pipeline run complete")

	return result, nil
}

func (p *Pipeline) generate(ctx context.Context, req Request, prof *models.ConstraintProfile) (*models.TradingSignal, error) {
	return utils.RetryWithResult(ctx, p.retryConfig(), func() (*models.TradingSignal, error) {
		callCtx, cancel := context.WithTimeout(ctx, p.cfg.ModelTimeout)
		defer cancel()
		return resilience.ExecuteWithResult(p.genBreaker, callCtx, func() (*models.TradingSignal, error) {
			return p.generator.Generate(callCtx, signal.GenerateRequest{
				AccountID:     req.AccountID,
				Venue:         req.Venue,
				Symbol:        req.Symbol,
				MarketContext: req.MarketContext,
				Profile:       prof,
				TTL:           p.cfg.SignalTTL,
			})
		})
	})
}

func (p *Pipeline) validate(ctx context.Context, sig *models.TradingSignal, prof *models.ConstraintProfile) (*models.ValidationVerdict, error) {
	return utils.RetryWithResult(ctx, p.retryConfig(), func() (*models.ValidationVerdict, error) {
		callCtx, cancel := context.WithTimeout(ctx, p.cfg.ModelTimeout)
		defer cancel()
		return resilience.ExecuteWithResult(p.valBreaker, callCtx, func() (*models.ValidationVerdict, error) {
			return p.validator.Validate(callCtx, sig, prof)
		})
	})
}

// retryConfig bounds model-call retries. Empty market context is a caller
// bug, not a transient fault, so it is excluded.
func (p *Pipeline) retryConfig() utils.RetryConfig {
	cfg := utils.DefaultRetryConfig()
	if p.cfg.MaxModelRetries > 0 {
		cfg.MaxAttempts = p.cfg.MaxModelRetries + 1
	}
	if p.cfg.RetryInitialDelay > 0 {
		cfg.InitialDelay = p.cfg.RetryInitialDelay
	}
	cfg.RetryIf = func(err error) bool {
		if apperrors.Is(err, apperrors.ErrEmptyMarketContext) {
			return false
		}
		return !apperrors.Is(err, resilience.ErrCircuitOpen)
	}
	return cfg
}

func (p *Pipeline) record(sig *models.TradingSignal, prof *models.ConstraintProfile, stage models.Stage, outcome, detail string) {
	entry := models.AuditEntry{
		Timestamp:            p.clock.Next(sig.ID),
		Stage:                stage,
		SignalID:             sig.ID,
		AccountID:            sig.AccountID,
		Venue:                sig.Venue,
		AttemptedTradingType: sig.TradingType,
		LeverageAttempted:    sig.Leverage,
		Outcome:              outcome,
		Detail:               detail,
	}
	if prof != nil {
		for _, t := range prof.AllowedTypes {
			entry.AllowedTradingTypes = append(entry.AllowedTradingTypes, t)
		}
		entry.LeverageAllowed = prof.MaxLeverage
	}
	p.recorder.Record(entry)
}
