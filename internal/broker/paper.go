package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tradegate/internal/errors"
	"tradegate/internal/models"
)

// PaperBroker simulates a venue's order endpoint in memory. It enforces the
// same idempotency contract a real venue would: at most one accepted order
// per client order ID, and StateAlreadyExists for every repeat.
type PaperBroker struct {
	venue string

	orders       map[string]*models.Order
	orderCounter int

	// rejectSymbols lets tests and dry runs force venue-side rejections.
	rejectSymbols map[string]string

	// failNext makes the next N submissions fail without an
	// acknowledgment, after recording the order, to simulate an ack that
	// was produced but lost in transit.
	failNext int

	mu sync.RWMutex
}

// NewPaperBroker creates a simulated broker for the given venue.
func NewPaperBroker(venue string) *PaperBroker {
	return &PaperBroker{
		venue:         venue,
		orders:        make(map[string]*models.Order),
		rejectSymbols: make(map[string]string),
	}
}

// SubmitOrder simulates venue-side submission handling.
func (p *PaperBroker) SubmitOrder(ctx context.Context, order *models.Order) (*SubmitResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewBrokerError(order.ClientOrderID, "context canceled", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.orders[order.ClientOrderID]; ok {
		return &SubmitResult{
			State:         StateAlreadyExists,
			BrokerOrderID: existing.BrokerOrderID,
		}, nil
	}

	if reason, ok := p.rejectSymbols[order.Symbol]; ok {
		rejected := *order
		rejected.Status = models.OrderStatusRejected
		rejected.PlacedAt = time.Now()
		p.orders[order.ClientOrderID] = &rejected
		return &SubmitResult{State: StateRejected, Reason: reason}, nil
	}

	p.orderCounter++
	accepted := *order
	accepted.Status = models.OrderStatusFilled
	accepted.BrokerOrderID = fmt.Sprintf("PAPER_%d_%d", time.Now().Unix(), p.orderCounter)
	accepted.FilledQty = order.Quantity
	accepted.PlacedAt = time.Now()
	p.orders[order.ClientOrderID] = &accepted

	if p.failNext > 0 {
		p.failNext--
		return nil, errors.NewBrokerError(order.ClientOrderID, "acknowledgment lost",
			errors.ErrTimeout)
	}

	return &SubmitResult{
		State:         StateAccepted,
		BrokerOrderID: accepted.BrokerOrderID,
	}, nil
}

// OrderStatus returns the recorded state for a client order ID.
func (p *PaperBroker) OrderStatus(ctx context.Context, clientOrderID string) (*models.Order, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	order, ok := p.orders[clientOrderID]
	if !ok {
		return nil, errors.NewBrokerError(clientOrderID, "order not found", nil)
	}
	copy := *order
	return &copy, nil
}

// Name returns the simulated venue identifier.
func (p *PaperBroker) Name() string {
	return fmt.Sprintf("paper:%s", p.venue)
}

// RejectSymbol makes every future submission for the symbol come back
// venue-rejected with the given reason.
func (p *PaperBroker) RejectSymbol(symbol, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rejectSymbols[symbol] = reason
}

// DropNextAcks makes the next n submissions record the order but return a
// timeout instead of the acknowledgment.
func (p *PaperBroker) DropNextAcks(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failNext = n
}

// OrderCount reports how many distinct client order IDs the venue has
// recorded.
func (p *PaperBroker) OrderCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.orders)
}

var _ Broker = (*PaperBroker)(nil)
