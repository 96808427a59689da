package broker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"tradegate/internal/errors"
	"tradegate/internal/models"
)

func paperOrder(clientOrderID string) *models.Order {
	return &models.Order{
		ClientOrderID: clientOrderID,
		SignalID:      "SIG-1",
		AccountID:     "acct-1",
		Venue:         "kraken",
		Symbol:        "BTC-USD",
		Side:          models.SideBuy,
		TradingType:   models.TradingTypeSpot,
		Leverage:      1,
		Quantity:      0.5,
		Price:         65000,
		StopLoss:      63000,
		Status:        models.OrderStatusPending,
	}
}

func TestPaperBroker_SubmitAndStatus(t *testing.T) {
	pb := NewPaperBroker("kraken")

	result, err := pb.SubmitOrder(context.Background(), paperOrder("ORD-1"))
	if err != nil {
		t.Fatal(err)
	}
	if result.State != StateAccepted {
		t.Fatalf("State = %v, want accepted", result.State)
	}
	if result.BrokerOrderID == "" {
		t.Error("accepted order missing broker order ID")
	}

	order, err := pb.OrderStatus(context.Background(), "ORD-1")
	if err != nil {
		t.Fatal(err)
	}
	if order.BrokerOrderID != result.BrokerOrderID {
		t.Errorf("BrokerOrderID = %q, want %q", order.BrokerOrderID, result.BrokerOrderID)
	}
}

func TestPaperBroker_DuplicateClientOrderID(t *testing.T) {
	pb := NewPaperBroker("kraken")

	first, err := pb.SubmitOrder(context.Background(), paperOrder("ORD-1"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := pb.SubmitOrder(context.Background(), paperOrder("ORD-1"))
	if err != nil {
		t.Fatal(err)
	}
	if second.State != StateAlreadyExists {
		t.Fatalf("State = %v, want already_exists", second.State)
	}
	if second.BrokerOrderID != first.BrokerOrderID {
		t.Error("duplicate submission surfaced a different broker order ID")
	}
	if pb.OrderCount() != 1 {
		t.Errorf("OrderCount = %d, want 1", pb.OrderCount())
	}
}

func TestPaperBroker_RejectedSymbolIsRecorded(t *testing.T) {
	pb := NewPaperBroker("kraken")
	pb.RejectSymbol("BTC-USD", "symbol suspended")

	result, err := pb.SubmitOrder(context.Background(), paperOrder("ORD-1"))
	if err != nil {
		t.Fatal(err)
	}
	if result.State != StateRejected {
		t.Fatalf("State = %v, want rejected", result.State)
	}

	// Resubmission of the same ID returns the recorded rejection, not a
	// second pass through the book.
	again, err := pb.SubmitOrder(context.Background(), paperOrder("ORD-1"))
	if err != nil {
		t.Fatal(err)
	}
	if again.State != StateAlreadyExists {
		t.Errorf("State = %v, want already_exists", again.State)
	}
}

func TestPaperBroker_DroppedAckRecordsOrder(t *testing.T) {
	pb := NewPaperBroker("kraken")
	pb.DropNextAcks(1)

	_, err := pb.SubmitOrder(context.Background(), paperOrder("ORD-1"))
	if !errors.Is(err, errors.ErrTimeout) {
		t.Fatalf("error = %v, want ErrTimeout", err)
	}
	// The venue recorded the order even though the ack was lost.
	if pb.OrderCount() != 1 {
		t.Errorf("OrderCount = %d, want 1", pb.OrderCount())
	}

	result, err := pb.SubmitOrder(context.Background(), paperOrder("ORD-1"))
	if err != nil {
		t.Fatal(err)
	}
	if result.State != StateAlreadyExists {
		t.Errorf("retry State = %v, want already_exists", result.State)
	}
}

// Property: however many times an order is resubmitted under the same
// client order ID, the venue holds exactly one order for it.
func TestProperty_SubmissionIdempotentPerClientOrderID(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("at most one accepted order per client order ID", prop.ForAll(
		func(ids []int, repeats int) bool {
			pb := NewPaperBroker("kraken")
			distinct := make(map[string]bool)
			for _, id := range ids {
				clientOrderID := fmt.Sprintf("ORD-%d", id)
				distinct[clientOrderID] = true
				for r := 0; r <= repeats; r++ {
					if _, err := pb.SubmitOrder(context.Background(), paperOrder(clientOrderID)); err != nil {
						return false
					}
				}
			}
			return pb.OrderCount() == len(distinct)
		},
		gen.SliceOf(gen.IntRange(0, 20)),
		gen.IntRange(0, 3),
	))

	properties.TestingRun(t)
}
