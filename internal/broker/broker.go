// Package broker provides venue connectivity for order submission.
package broker

import (
	"context"

	"tradegate/internal/models"
)

// SubmitState classifies the venue's response to an order submission.
type SubmitState string

const (
	// StateAccepted means the venue acknowledged the order.
	StateAccepted SubmitState = "accepted"
	// StateRejected means the venue refused the order for a stated reason.
	StateRejected SubmitState = "rejected"
	// StateAlreadyExists means the venue has already seen this
	// client_order_id, which makes a retried submission a confirmed no-op.
	StateAlreadyExists SubmitState = "already_exists"
)

// SubmitResult is the venue's answer to a single submission attempt.
type SubmitResult struct {
	State         SubmitState
	BrokerOrderID string
	Reason        string
}

// Broker submits orders to a trading venue. Implementations must treat the
// client order ID as the idempotency key: re-submitting an ID the venue has
// already accepted returns StateAlreadyExists, never a second execution.
type Broker interface {
	// SubmitOrder sends the order to the venue. A non-nil error means the
	// attempt produced no acknowledgment at all (timeout, transport
	// failure) and the caller cannot know whether the venue recorded it.
	SubmitOrder(ctx context.Context, order *models.Order) (*SubmitResult, error)

	// OrderStatus fetches the current state of a previously submitted
	// order by client order ID.
	OrderStatus(ctx context.Context, clientOrderID string) (*models.Order, error)

	// Name identifies the venue connection for logging and audit detail.
	Name() string
}
