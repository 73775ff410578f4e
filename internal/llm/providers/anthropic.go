// Package providers implements provider bindings for the llm façade (C1),
// following the teacher's internal/agent/providers package: each binding
// converts between the façade's provider-neutral types and one backend
// SDK's request/response shapes.
package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/nexus-vision/agentcore/internal/llm"
)

// AnthropicProvider implements llm.Provider for Anthropic's Claude API. The
// façade contract (§4.1) is synchronous, so unlike the teacher's streaming
// binding, Complete drains a single non-streaming Messages.New call.
type AnthropicProvider struct {
	client       anthropic.Client
	maxRetries   int
	retryDelay   time.Duration
	defaultModel string
}

// AnthropicConfig configures an AnthropicProvider.
type AnthropicConfig struct {
	APIKey       string
	BaseURL      string
	MaxRetries   int
	RetryDelay   time.Duration
	DefaultModel string
}

// NewAnthropicProvider builds a provider from config, applying the same
// defaults as the teacher's binding: 3 retries, 1s base delay, Sonnet 4.
func NewAnthropicProvider(config AnthropicConfig) (*AnthropicProvider, error) {
	if config.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = time.Second
	}
	if config.DefaultModel == "" {
		config.DefaultModel = "claude-sonnet-4-20250514"
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if strings.TrimSpace(config.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	return &AnthropicProvider{
		client:       anthropic.NewClient(opts...),
		maxRetries:   config.MaxRetries,
		retryDelay:   config.RetryDelay,
		defaultModel: config.DefaultModel,
	}, nil
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

// Models lists the Claude models this binding recognizes.
func (p *AnthropicProvider) Models() []llm.Model {
	return []llm.Model{
		{ID: "claude-sonnet-4-20250514", Provider: "anthropic", ContextSize: 200000, SupportsVision: true},
		{ID: "claude-opus-4-20250514", Provider: "anthropic", ContextSize: 200000, SupportsVision: true},
		{ID: "claude-3-5-sonnet-20241022", Provider: "anthropic", ContextSize: 200000, SupportsVision: true},
		{ID: "claude-3-haiku-20240307", Provider: "anthropic", ContextSize: 200000, SupportsVision: true},
	}
}

// Supports reports feature support. Every current Claude model supports
// text and vision; none in this binding expose native web search.
func (p *AnthropicProvider) Supports(model string, feature llm.Feature) bool {
	switch feature {
	case llm.FeatureText, llm.FeatureVision:
		return true
	default:
		return false
	}
}

// Complete sends one message and retries transient failures with linear
// backoff, mirroring the teacher's BaseProvider.Retry policy.
func (p *AnthropicProvider) Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  convertMessages(req),
		MaxTokens: int64(maxTokensOrDefault(req.MaxTokens)),
	}

	var msg *anthropic.Message
	var err error
	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		msg, err = p.client.Messages.New(ctx, params)
		if err == nil {
			break
		}
		if !isRetryable(err) || attempt == p.maxRetries {
			return llm.CompletionResponse{}, fmt.Errorf("anthropic: %w", err)
		}
		select {
		case <-ctx.Done():
			return llm.CompletionResponse{}, ctx.Err()
		case <-time.After(p.retryDelay * time.Duration(attempt)):
		}
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return llm.CompletionResponse{
		Messages:     []llm.CompletionMessage{{Role: "assistant", Content: text.String()}},
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}, nil
}

func convertMessages(req llm.CompletionRequest) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		content := anthropic.NewTextBlock(m.Content)
		if m.Role == "assistant" {
			out = append(out, anthropic.NewAssistantMessage(content))
		} else {
			out = append(out, anthropic.NewUserMessage(content))
		}
	}
	return out
}

func maxTokensOrDefault(n int) int {
	if n <= 0 {
		return 4096
	}
	return n
}

func isRetryable(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 408, 429, 500, 502, 503, 504:
			return true
		}
		return false
	}
	return true
}
