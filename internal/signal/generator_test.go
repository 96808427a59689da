package signal

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tradegate/internal/errors"
	"tradegate/internal/models"
)

// fakeLLM returns a canned response and records the prompts it was given.
type fakeLLM struct {
	response     string
	err          error
	systemPrompt string
	userPrompt   string
	calls        int
}

func (f *fakeLLM) Complete(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	f.calls++
	f.systemPrompt = systemPrompt
	f.userPrompt = userPrompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeLLM) Identity() string { return "fake-model" }

func testProfile(t *testing.T) *models.ConstraintProfile {
	t.Helper()
	p, err := models.NewConstraintProfile("acct-1", "kraken",
		[]models.TradingType{models.TradingTypeSpot, models.TradingTypeFutures}, 5)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

const validGeneration = `{
	"symbol": "BTC-USD",
	"side": "buy",
	"trading_type": "futures",
	"leverage": 3,
	"price_target": 65000,
	"stop_loss": 63000,
	"take_profit": 70000,
	"confidence": 72,
	"rationale": "Momentum breakout above resistance."
}`

func TestGenerator_Generate(t *testing.T) {
	client := &fakeLLM{response: validGeneration}
	g := NewGenerator(client, zerolog.Nop())

	sig, err := g.Generate(context.Background(), GenerateRequest{
		AccountID:     "acct-1",
		Venue:         "kraken",
		Symbol:        "BTC-USD",
		MarketContext: "BTC trending up on volume.",
		Profile:       testProfile(t),
		TTL:           10 * time.Minute,
	})
	if err != nil {
		t.Fatal(err)
	}

	if sig.Symbol != "BTC-USD" {
		t.Errorf("Symbol = %q", sig.Symbol)
	}
	if sig.Side != models.SideBuy || sig.TradingType != models.TradingTypeFutures {
		t.Errorf("Side/TradingType = %v/%v", sig.Side, sig.TradingType)
	}
	if sig.Leverage != 3 {
		t.Errorf("Leverage = %v, want 3", sig.Leverage)
	}
	if !strings.HasPrefix(sig.ID, "SIG-") {
		t.Errorf("ID = %q, want SIG- prefix", sig.ID)
	}
	if got := sig.ExpiresAt.Sub(sig.CreatedAt); got != 10*time.Minute {
		t.Errorf("TTL = %v, want 10m", got)
	}
}

func TestGenerator_ConstraintsEmbeddedInPrompt(t *testing.T) {
	client := &fakeLLM{response: validGeneration}
	g := NewGenerator(client, zerolog.Nop())

	_, err := g.Generate(context.Background(), GenerateRequest{
		AccountID:     "acct-1",
		Venue:         "kraken",
		Symbol:        "BTC-USD",
		MarketContext: "context",
		Profile:       testProfile(t),
	})
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{"allowed_trading_types", "max_leverage", "kraken", "futures"} {
		if !strings.Contains(client.userPrompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestGenerator_EmptyMarketContext(t *testing.T) {
	client := &fakeLLM{response: validGeneration}
	g := NewGenerator(client, zerolog.Nop())

	_, err := g.Generate(context.Background(), GenerateRequest{
		AccountID:     "acct-1",
		Venue:         "kraken",
		MarketContext: "   ",
		Profile:       testProfile(t),
	})
	if !errors.Is(err, errors.ErrEmptyMarketContext) {
		t.Fatalf("error = %v, want ErrEmptyMarketContext", err)
	}
	if client.calls != 0 {
		t.Error("model called despite empty context")
	}
}

func TestGenerator_MalformedOutputFails(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"not json", "buy BTC with 3x leverage"},
		{"missing leverage", `{"symbol":"BTC-USD","side":"buy","trading_type":"spot","confidence":50,"rationale":"x"}`},
		{"missing confidence", `{"symbol":"BTC-USD","side":"buy","trading_type":"spot","leverage":1,"rationale":"x"}`},
		{"unrecognized side", `{"symbol":"BTC-USD","side":"long","trading_type":"spot","leverage":1,"confidence":50,"rationale":"x"}`},
		{"unrecognized trading type", `{"symbol":"BTC-USD","side":"buy","trading_type":"options","leverage":1,"confidence":50,"rationale":"x"}`},
		{"negative leverage", `{"symbol":"BTC-USD","side":"buy","trading_type":"spot","leverage":-2,"confidence":50,"rationale":"x"}`},
		{"confidence out of range", `{"symbol":"BTC-USD","side":"buy","trading_type":"spot","leverage":1,"confidence":150,"rationale":"x"}`},
		{"missing rationale", `{"symbol":"BTC-USD","side":"buy","trading_type":"spot","leverage":1,"confidence":50}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGenerator(&fakeLLM{response: tt.response}, zerolog.Nop())
			_, err := g.Generate(context.Background(), GenerateRequest{
				AccountID:     "acct-1",
				Venue:         "kraken",
				MarketContext: "context",
				Profile:       testProfile(t),
			})
			var genErr *errors.GenerationError
			if !errors.As(err, &genErr) {
				t.Fatalf("error = %v, want GenerationError", err)
			}
		})
	}
}

func TestGenerator_ModelFailureIsGenerationError(t *testing.T) {
	g := NewGenerator(&fakeLLM{err: errors.ErrTimeout}, zerolog.Nop())
	_, err := g.Generate(context.Background(), GenerateRequest{
		AccountID:     "acct-1",
		Venue:         "kraken",
		MarketContext: "context",
		Profile:       testProfile(t),
	})
	var genErr *errors.GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("error = %v, want GenerationError", err)
	}
}
