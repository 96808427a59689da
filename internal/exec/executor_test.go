package exec

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tradegate/internal/audit"
	"tradegate/internal/broker"
	"tradegate/internal/config"
	"tradegate/internal/errors"
	"tradegate/internal/models"
)

type captureRecorder struct {
	mu      sync.Mutex
	entries []models.AuditEntry
}

func (r *captureRecorder) Record(entry models.AuditEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func execConfig() config.ExecutionConfig {
	return config.ExecutionConfig{
		Mode:             "paper",
		RequireStopLoss:  true,
		DefaultQuantity:  0.5,
		SubmitMaxRetries: 2,
	}
}

func newExecutor(b broker.Broker, cfg config.ExecutionConfig) (*Executor, *captureRecorder) {
	recorder := &captureRecorder{}
	return NewExecutor(b, recorder, audit.NewStageClock(), cfg, zerolog.Nop()), recorder
}

func execSignal(id string, mutate func(*models.TradingSignal)) *models.TradingSignal {
	now := time.Now()
	sig := &models.TradingSignal{
		ID:          id,
		AccountID:   "acct-1",
		Venue:       "kraken",
		Symbol:      "BTC-USD",
		Side:        models.SideBuy,
		TradingType: models.TradingTypeFutures,
		Leverage:    3,
		PriceTarget: 65000,
		StopLoss:    63000,
		TakeProfit:  70000,
		Confidence:  70,
		Rationale:   "test",
		CreatedAt:   now,
		ExpiresAt:   now.Add(15 * time.Minute),
	}
	if mutate != nil {
		mutate(sig)
	}
	return sig
}

func executeDecision(signalID string) *models.EnforcementDecision {
	return &models.EnforcementDecision{
		SignalID:  signalID,
		Action:    models.ActionExecute,
		DecidedAt: time.Now(),
	}
}

func TestExecute_SubmitsOrder(t *testing.T) {
	pb := broker.NewPaperBroker("kraken")
	ex, _ := newExecutor(pb, execConfig())
	sig := execSignal("SIG-1", nil)

	order, err := ex.Execute(context.Background(), sig, executeDecision(sig.ID))
	if err != nil {
		t.Fatal(err)
	}
	if order.ClientOrderID == "" {
		t.Error("order missing client order ID")
	}
	if order.SignalID != sig.ID {
		t.Errorf("SignalID = %q, want %q", order.SignalID, sig.ID)
	}
	if order.Quantity != 0.5 {
		t.Errorf("Quantity = %v, want configured default", order.Quantity)
	}
}

func TestExecute_CorrectedDecisionShapesOrder(t *testing.T) {
	pb := broker.NewPaperBroker("kraken")
	ex, _ := newExecutor(pb, execConfig())
	sig := execSignal("SIG-1", func(s *models.TradingSignal) {
		s.TradingType = models.TradingTypeMargin
		s.Leverage = 4
	})
	decision := &models.EnforcementDecision{
		SignalID:             sig.ID,
		Action:               models.ActionExecuteCorrected,
		CorrectedTradingType: models.TradingTypeSpot,
		CorrectedLeverage:    1,
		DecidedAt:            time.Now(),
	}

	order, err := ex.Execute(context.Background(), sig, decision)
	if err != nil {
		t.Fatal(err)
	}
	if order.TradingType != models.TradingTypeSpot {
		t.Errorf("TradingType = %v, want corrected spot", order.TradingType)
	}
	if order.Leverage != 1 {
		t.Errorf("Leverage = %v, want corrected 1", order.Leverage)
	}
}

func TestExecute_SecondAttemptIsAlreadySubmitted(t *testing.T) {
	pb := broker.NewPaperBroker("kraken")
	ex, _ := newExecutor(pb, execConfig())
	sig := execSignal("SIG-1", nil)

	if _, err := ex.Execute(context.Background(), sig, executeDecision(sig.ID)); err != nil {
		t.Fatal(err)
	}
	_, err := ex.Execute(context.Background(), sig, executeDecision(sig.ID))
	if !errors.Is(err, errors.ErrAlreadySubmitted) {
		t.Fatalf("error = %v, want ErrAlreadySubmitted", err)
	}
	if pb.OrderCount() != 1 {
		t.Errorf("OrderCount = %d, want 1", pb.OrderCount())
	}
}

func TestExecute_StopLossPolicyRejectsLocally(t *testing.T) {
	pb := broker.NewPaperBroker("kraken")
	ex, recorder := newExecutor(pb, execConfig())
	sig := execSignal("SIG-1", func(s *models.TradingSignal) { s.StopLoss = 0 })

	_, err := ex.Execute(context.Background(), sig, executeDecision(sig.ID))
	if !errors.Is(err, errors.ErrStopLossRequired) {
		t.Fatalf("error = %v, want ErrStopLossRequired", err)
	}
	// Rejected before any submission: the venue never saw the order.
	if pb.OrderCount() != 0 {
		t.Errorf("OrderCount = %d, want 0", pb.OrderCount())
	}

	found := false
	for _, e := range recorder.entries {
		if e.Stage == models.StageExecution && e.Outcome == "rejected" {
			found = true
		}
	}
	if !found {
		t.Error("local policy rejection not audited at execution stage")
	}
}

func TestExecute_StopLossOptionalWhenPolicyOff(t *testing.T) {
	cfg := execConfig()
	cfg.RequireStopLoss = false
	pb := broker.NewPaperBroker("kraken")
	ex, _ := newExecutor(pb, cfg)
	sig := execSignal("SIG-1", func(s *models.TradingSignal) { s.StopLoss = 0 })

	if _, err := ex.Execute(context.Background(), sig, executeDecision(sig.ID)); err != nil {
		t.Fatal(err)
	}
}

func TestExecute_RetriesOnlyAckLessTimeouts(t *testing.T) {
	pb := broker.NewPaperBroker("kraken")
	pb.DropNextAcks(1)
	ex, _ := newExecutor(pb, execConfig())
	sig := execSignal("SIG-1", nil)

	order, err := ex.Execute(context.Background(), sig, executeDecision(sig.ID))
	if err != nil {
		t.Fatal(err)
	}
	// The retry reused the client order ID, so the venue confirmed the
	// original submission instead of creating a second order.
	if pb.OrderCount() != 1 {
		t.Errorf("OrderCount = %d, want 1 after ack-less retry", pb.OrderCount())
	}
	if order.Status != models.OrderStatusPending {
		t.Errorf("Status = %v, want pending", order.Status)
	}
}

func TestExecute_VenueRejectionIsNotRetried(t *testing.T) {
	pb := broker.NewPaperBroker("kraken")
	pb.RejectSymbol("BTC-USD", "symbol suspended")
	ex, _ := newExecutor(pb, execConfig())
	sig := execSignal("SIG-1", nil)

	order, err := ex.Execute(context.Background(), sig, executeDecision(sig.ID))
	if err == nil {
		t.Fatal("expected error for venue rejection")
	}
	if order == nil || order.Status != models.OrderStatusRejected {
		t.Fatal("venue rejection must surface a rejected order")
	}
	// One recorded attempt only: a definitive rejection is final.
	if pb.OrderCount() != 1 {
		t.Errorf("OrderCount = %d, want 1", pb.OrderCount())
	}
}

func TestExecute_RejectDecisionRefused(t *testing.T) {
	pb := broker.NewPaperBroker("kraken")
	ex, _ := newExecutor(pb, execConfig())
	sig := execSignal("SIG-1", nil)
	decision := &models.EnforcementDecision{
		SignalID:          sig.ID,
		Action:            models.ActionReject,
		ViolatedInvariant: models.InvariantExpired,
		DecidedAt:         time.Now(),
	}

	if _, err := ex.Execute(context.Background(), sig, decision); err == nil {
		t.Fatal("expected error executing a reject decision")
	}
	if pb.OrderCount() != 0 {
		t.Errorf("OrderCount = %d, want 0", pb.OrderCount())
	}
}

func TestExecute_ConcurrentSameSignalSubmitsOnce(t *testing.T) {
	pb := broker.NewPaperBroker("kraken")
	ex, _ := newExecutor(pb, execConfig())
	sig := execSignal("SIG-1", nil)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ex.Execute(context.Background(), sig, executeDecision(sig.ID))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, errors.ErrAlreadySubmitted) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("successful submissions = %d, want 1", succeeded)
	}
	if pb.OrderCount() != 1 {
		t.Errorf("OrderCount = %d, want 1", pb.OrderCount())
	}
}
