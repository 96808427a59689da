// Package exec turns executable enforcement decisions into venue orders.
package exec

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tradegate/internal/audit"
	"tradegate/internal/broker"
	"tradegate/internal/config"
	"tradegate/internal/errors"
	"tradegate/internal/models"
)

// Executor submits orders for signals the enforcer authorized. Each signal
// is one-shot: a second submission attempt for the same signal ID fails with
// ErrAlreadySubmitted regardless of how the first attempt ended.
type Executor struct {
	broker   broker.Broker
	recorder audit.Recorder
	clock    *audit.StageClock
	cfg      config.ExecutionConfig
	log      zerolog.Logger

	submitted map[string]string
	mu        sync.Mutex
}

// NewExecutor creates an order executor over the given broker connection.
func NewExecutor(b broker.Broker, recorder audit.Recorder, clock *audit.StageClock, cfg config.ExecutionConfig, log zerolog.Logger) *Executor {
	return &Executor{
		broker:    b,
		recorder:  recorder,
		clock:     clock,
		cfg:       cfg,
		log:       log,
		submitted: make(map[string]string),
	}
}

// Execute builds and submits the order a decision authorizes. The client
// order ID is minted fresh here, never taken from model output, and stays
// fixed across retries so an acknowledgment lost in transit cannot turn
// into a duplicate fill.
func (e *Executor) Execute(ctx context.Context, signal *models.TradingSignal, decision *models.EnforcementDecision) (*models.Order, error) {
	if decision == nil || decision.SignalID != signal.ID {
		return nil, errors.NewOrderError(signal.ID, "", "decision does not match signal", nil)
	}
	if !decision.Executable() {
		return nil, errors.NewOrderError(signal.ID, string(decision.Action), "decision does not authorize execution", nil)
	}

	e.mu.Lock()
	if prior, ok := e.submitted[signal.ID]; ok {
		e.mu.Unlock()
		return nil, errors.NewOrderError(signal.ID, string(decision.Action),
			fmt.Sprintf("already submitted as %s", prior), errors.ErrAlreadySubmitted)
	}
	clientOrderID := newClientOrderID()
	e.submitted[signal.ID] = clientOrderID
	e.mu.Unlock()

	order := e.buildOrder(signal, decision, clientOrderID)

	if e.cfg.RequireStopLoss && order.StopLoss <= 0 {
		e.record(signal, "rejected", "order lacks stop loss required by account policy")
		e.log.Warn().
			Str("signal_id", signal.ID).
			Str("client_order_id", clientOrderID).
			Msg("Order rejected by local stop loss policy")
		return nil, errors.NewOrderError(signal.ID, string(decision.Action),
			"stop loss missing", errors.ErrStopLossRequired)
	}

	result, err := e.submitWithRetry(ctx, order)
	if err != nil {
		e.record(signal, "failed", fmt.Sprintf("submission failed: %v", err))
		return nil, err
	}

	switch result.State {
	case broker.StateRejected:
		order.Status = models.OrderStatusRejected
		e.record(signal, "rejected", fmt.Sprintf("venue rejected: %s", result.Reason))
		e.log.Warn().
			Str("signal_id", signal.ID).
			Str("client_order_id", clientOrderID).
			Str("reason", result.Reason).
			Msg("Order rejected by venue")
		return order, errors.NewOrderError(signal.ID, string(decision.Action),
			fmt.Sprintf("venue rejected: %s", result.Reason), nil)
	case broker.StateAlreadyExists:
		// The venue already held this ID from an attempt whose ack was
		// lost. The original submission stands; nothing was duplicated.
		order.Status = models.OrderStatusPending
		order.BrokerOrderID = result.BrokerOrderID
		e.record(signal, "submitted", "venue confirmed prior submission")
	default:
		order.Status = models.OrderStatusPending
		order.BrokerOrderID = result.BrokerOrderID
		e.record(signal, "submitted", fmt.Sprintf("accepted as %s", result.BrokerOrderID))
	}

	e.log.Info().
		Str("signal_id", signal.ID).
		Str("client_order_id", clientOrderID).
		Str("broker_order_id", order.BrokerOrderID).
		Msg("Order submitted")

	return order, nil
}

// submitWithRetry retries only attempts that ended without any venue
// acknowledgment. A definitive answer, acceptance or rejection alike, is
// final on the first attempt.
func (e *Executor) submitWithRetry(ctx context.Context, order *models.Order) (*broker.SubmitResult, error) {
	maxAttempts := e.cfg.SubmitMaxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := e.broker.SubmitOrder(ctx, order)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !errors.Is(err, errors.ErrTimeout) {
			return nil, err
		}
		e.log.Warn().
			Str("client_order_id", order.ClientOrderID).
			Int("attempt", attempt).
			Msg("No acknowledgment from venue, retrying with same client order ID")

		select {
		case <-ctx.Done():
			return nil, errors.NewBrokerError(order.ClientOrderID, "context canceled", ctx.Err())
		case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
		}
	}
	return nil, errors.NewBrokerError(order.ClientOrderID, "no acknowledgment after retries", lastErr)
}

func (e *Executor) buildOrder(signal *models.TradingSignal, decision *models.EnforcementDecision, clientOrderID string) *models.Order {
	return &models.Order{
		ClientOrderID: clientOrderID,
		SignalID:      signal.ID,
		AccountID:     signal.AccountID,
		Venue:         signal.Venue,
		Symbol:        signal.Symbol,
		Side:          signal.Side,
		TradingType:   decision.EffectiveTradingType(signal),
		Leverage:      decision.EffectiveLeverage(signal),
		Quantity:      e.cfg.DefaultQuantity,
		Price:         signal.PriceTarget,
		StopLoss:      signal.StopLoss,
		TakeProfit:    signal.TakeProfit,
		Status:        models.OrderStatusPending,
	}
}

func (e *Executor) record(signal *models.TradingSignal, outcome, detail string) {
	e.recorder.Record(models.AuditEntry{
		Timestamp:            e.clock.Next(signal.ID),
		Stage:                models.StageExecution,
		SignalID:             signal.ID,
		AccountID:            signal.AccountID,
		Venue:                signal.Venue,
		AttemptedTradingType: signal.TradingType,
		LeverageAttempted:    signal.Leverage,
		Outcome:              outcome,
		Detail:               detail,
	})
}

var orderCounter struct {
	mu   sync.Mutex
	last int64
	seq  int
}

// newClientOrderID mints a process-unique identifier. The nanosecond stamp
// alone can collide under rapid calls, so a sequence number disambiguates
// same-tick IDs.
func newClientOrderID() string {
	orderCounter.mu.Lock()
	defer orderCounter.mu.Unlock()
	now := time.Now().UnixNano()
	if now == orderCounter.last {
		orderCounter.seq++
	} else {
		orderCounter.last = now
		orderCounter.seq = 0
	}
	return fmt.Sprintf("ORD-%d-%d", now, orderCounter.seq)
}
