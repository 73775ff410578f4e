package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/nexus-vision/agentcore/internal/llm"
)

// OpenAIProvider implements llm.Provider for OpenAI's chat completions API,
// following the same synchronous-wrapper shape as AnthropicProvider: one
// Complete call drains a single non-streaming response.
type OpenAIProvider struct {
	client       *openai.Client
	maxRetries   int
	retryDelay   time.Duration
	defaultModel string
}

// OpenAIConfig configures an OpenAIProvider.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	MaxRetries   int
	RetryDelay   time.Duration
	DefaultModel string
}

// NewOpenAIProvider builds a provider from config, applying the same
// retry/backoff defaults as AnthropicProvider.
func NewOpenAIProvider(config OpenAIConfig) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = time.Second
	}
	if config.DefaultModel == "" {
		config.DefaultModel = "gpt-4o"
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if strings.TrimSpace(config.BaseURL) != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIProvider{
		client:       openai.NewClientWithConfig(clientConfig),
		maxRetries:   config.MaxRetries,
		retryDelay:   config.RetryDelay,
		defaultModel: config.DefaultModel,
	}, nil
}

func (p *OpenAIProvider) Name() string { return "openai" }

// Models lists the chat models this binding recognizes.
func (p *OpenAIProvider) Models() []llm.Model {
	return []llm.Model{
		{ID: "gpt-4o", Provider: "openai", ContextSize: 128000, SupportsVision: true},
		{ID: "gpt-4o-mini", Provider: "openai", ContextSize: 128000, SupportsVision: true},
		{ID: "gpt-4-turbo", Provider: "openai", ContextSize: 128000, SupportsVision: true},
	}
}

// Supports reports feature support. Every model in this binding supports
// text and vision; none expose native web search through the chat
// completions endpoint this binding uses.
func (p *OpenAIProvider) Supports(model string, feature llm.Feature) bool {
	switch feature {
	case llm.FeatureText, llm.FeatureVision:
		return true
	default:
		return false
	}
}

// Complete sends one chat completion request, retrying transient failures
// with linear backoff, matching AnthropicProvider's retry policy.
func (p *OpenAIProvider) Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	params := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    convertOpenAIMessages(req),
		Temperature: float32(req.Temperature),
		MaxTokens:   maxTokensOrDefault(req.MaxTokens),
	}

	var resp openai.ChatCompletionResponse
	var err error
	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		resp, err = p.client.CreateChatCompletion(ctx, params)
		if err == nil {
			break
		}
		if !isOpenAIRetryable(err) || attempt == p.maxRetries {
			return llm.CompletionResponse{}, fmt.Errorf("openai: %w", err)
		}
		select {
		case <-ctx.Done():
			return llm.CompletionResponse{}, ctx.Err()
		case <-time.After(p.retryDelay * time.Duration(attempt)):
		}
	}

	if len(resp.Choices) == 0 {
		return llm.CompletionResponse{}, errors.New("openai: response had no choices")
	}

	return llm.CompletionResponse{
		Messages:     []llm.CompletionMessage{{Role: "assistant", Content: resp.Choices[0].Message.Content}},
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

func convertOpenAIMessages(req llm.CompletionRequest) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		if m.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		} else if m.Role == "system" {
			role = openai.ChatMessageRoleSystem
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}

func isOpenAIRetryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusRequestTimeout, http.StatusTooManyRequests,
			http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	return true
}
