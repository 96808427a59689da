package models

import "time"

// OrderStatus represents the terminal or in-flight state of an order.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "PENDING"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusRejected        OrderStatus = "REJECTED_BY_BROKER"
	OrderStatusCanceled        OrderStatus = "CANCELED"
)

// Order is the instruction sent to the broker. ClientOrderID is generated
// by the executor, globally unique, and reused verbatim on idempotent
// retries.
type Order struct {
	ClientOrderID string
	SignalID      string
	AccountID     string
	Venue         string
	Symbol        string
	Side          Side
	TradingType   TradingType
	Leverage      float64
	Quantity      float64
	Price         float64
	StopLoss      float64
	TakeProfit    float64
	Status        OrderStatus
	BrokerOrderID string
	FilledQty     float64
	PlacedAt      time.Time
}
