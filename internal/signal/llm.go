// Package signal provides the two-stage AI analysis: signal generation and
// independent validation.
package signal

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"tradegate/internal/security"
)

// LLMClient defines the model-call interface shared by the generator and
// the validator. The two stages hold separate clients so validation never
// echoes the generator's own session.
type LLMClient interface {
	// Complete sends a system+user prompt pair and returns the raw response.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	// Identity returns the model identity for audit and verdict records.
	Identity() string
}

// OpenAIClient implements LLMClient using the OpenAI chat completion API.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// OpenAIClientConfig holds construction options for an OpenAIClient.
type OpenAIClientConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
}

// NewOpenAIClient creates a new OpenAI LLM client.
func NewOpenAIClient(cfg OpenAIClientConfig) *OpenAIClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2048
	}
	return &OpenAIClient{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
	}
}

// Complete sends a prompt to the model and returns the response text.
func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		// Provider errors can echo request headers back; never let a
		// credential reach the log through the error chain.
		return "", fmt.Errorf("completion failed: %s", security.MaskSensitive(err.Error()))
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from model")
	}
	return resp.Choices[0].Message.Content, nil
}

// Identity returns the configured model name.
func (c *OpenAIClient) Identity() string {
	return c.model
}
