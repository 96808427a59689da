package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tradegate/internal/errors"
	"tradegate/internal/models"
)

const generatorSystemPrompt = `You are a quantitative crypto strategist. Propose exactly one trade for the
requested symbol, respecting the venue constraints you are given. Respond in
valid JSON only, with fields: symbol (string), side (buy|sell|hold),
trading_type (one of the permitted types), leverage (number, at most the
permitted ceiling), price_target (number), stop_loss (number), take_profit
(number), confidence (0-100), rationale (string). Never propose a trading
type or leverage outside the stated constraints.`

// Generator produces candidate trading signals from a generation model. It
// has no side effects beyond returning the signal: it neither persists nor
// executes.
type Generator struct {
	client LLMClient
	log    zerolog.Logger
}

// NewGenerator creates a new signal generator.
func NewGenerator(client LLMClient, log zerolog.Logger) *Generator {
	return &Generator{client: client, log: log}
}

// GenerateRequest carries everything the generation model needs. The
// market context is opaque to this component; the constraint profile is
// embedded into the prompt so the model is told the permitted trading
// types and leverage ceiling up front.
type GenerateRequest struct {
	AccountID     string
	Venue         string
	Symbol        string
	MarketContext string
	Profile       *models.ConstraintProfile
	TTL           time.Duration
}

// generationResponse is the strict parse target for the model's output.
// Pointers distinguish absent fields from zero values.
type generationResponse struct {
	Symbol      string   `json:"symbol"`
	Side        string   `json:"side"`
	TradingType string   `json:"trading_type"`
	Leverage    *float64 `json:"leverage"`
	PriceTarget *float64 `json:"price_target"`
	StopLoss    *float64 `json:"stop_loss"`
	TakeProfit  *float64 `json:"take_profit"`
	Confidence  *float64 `json:"confidence"`
	Rationale   string   `json:"rationale"`
}

// Generate calls the generation model and returns exactly one candidate
// signal. Empty market context, timeouts, and malformed model output are
// all GenerationErrors; a response outside the recognized enums is never
// silently coerced.
func (g *Generator) Generate(ctx context.Context, req GenerateRequest) (*models.TradingSignal, error) {
	if strings.TrimSpace(req.MarketContext) == "" {
		return nil, errors.NewGenerationError(g.client.Identity(), "empty market context", errors.ErrEmptyMarketContext)
	}
	if req.Profile == nil {
		return nil, errors.NewGenerationError(g.client.Identity(), "missing constraint profile", nil)
	}

	userPrompt, err := g.buildPrompt(req)
	if err != nil {
		return nil, errors.NewGenerationError(g.client.Identity(), "building prompt", err)
	}

	raw, err := g.client.Complete(ctx, generatorSystemPrompt, userPrompt)
	if err != nil {
		return nil, errors.NewGenerationError(g.client.Identity(), "model call failed", err)
	}

	var resp generationResponse
	if !extractJSON(raw, &resp) {
		return nil, errors.NewGenerationError(g.client.Identity(), "unparseable model output", nil)
	}

	signal, err := g.toSignal(req, &resp)
	if err != nil {
		return nil, errors.NewGenerationError(g.client.Identity(), "malformed model output", err)
	}

	g.log.Debug().
		Str("signal_id", signal.ID).
		Str("symbol", signal.Symbol).
		Str("trading_type", string(signal.TradingType)).
		Msg("Signal generated")

	return signal, nil
}

// buildPrompt assembles the generation request with the venue constraints
// stated explicitly.
func (g *Generator) buildPrompt(req GenerateRequest) (string, error) {
	constraints, err := json.Marshal(map[string]interface{}{
		"venue":                 req.Profile.Venue,
		"allowed_trading_types": req.Profile.AllowedTypes,
		"max_leverage":          req.Profile.MaxLeverage,
	})
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("[Venue Constraints]\n")
	sb.Write(constraints)
	sb.WriteString("\n\n[Target]\n")
	sb.WriteString(fmt.Sprintf("symbol: %s\nvenue: %s\n", req.Symbol, req.Profile.Venue))
	sb.WriteString("\n[Market Context]\n")
	sb.WriteString(req.MarketContext)
	return sb.String(), nil
}

// toSignal converts a parsed model response into a TradingSignal, failing
// on any missing required field or out-of-enum value.
func (g *Generator) toSignal(req GenerateRequest, resp *generationResponse) (*models.TradingSignal, error) {
	if resp.Symbol == "" {
		return nil, fmt.Errorf("missing symbol")
	}
	side, err := models.ParseSide(resp.Side)
	if err != nil {
		return nil, err
	}
	tradingType, err := models.ParseTradingType(resp.TradingType)
	if err != nil {
		return nil, err
	}
	if resp.Leverage == nil {
		return nil, fmt.Errorf("missing leverage")
	}
	if *resp.Leverage <= 0 {
		return nil, fmt.Errorf("leverage must be positive, got %v", *resp.Leverage)
	}
	if resp.Confidence == nil {
		return nil, fmt.Errorf("missing confidence")
	}
	if *resp.Confidence < 0 || *resp.Confidence > 100 {
		return nil, fmt.Errorf("confidence out of range: %v", *resp.Confidence)
	}
	if resp.Rationale == "" {
		return nil, fmt.Errorf("missing rationale")
	}

	now := time.Now()
	ttl := req.TTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	signal := &models.TradingSignal{
		ID:            generateSignalID(),
		AccountID:     req.AccountID,
		Venue:         req.Profile.Venue,
		Symbol:        resp.Symbol,
		Side:          side,
		TradingType:   tradingType,
		Leverage:      *resp.Leverage,
		Confidence:    *resp.Confidence,
		Rationale:     resp.Rationale,
		SourceContext: req.MarketContext,
		CreatedAt:     now,
		ExpiresAt:     now.Add(ttl),
	}
	if resp.PriceTarget != nil {
		signal.PriceTarget = *resp.PriceTarget
	}
	if resp.StopLoss != nil {
		signal.StopLoss = *resp.StopLoss
	}
	if resp.TakeProfit != nil {
		signal.TakeProfit = *resp.TakeProfit
	}

	if err := signal.Validate(); err != nil {
		return nil, err
	}
	return signal, nil
}

func generateSignalID() string {
	return fmt.Sprintf("SIG-%d", time.Now().UnixNano())
}
