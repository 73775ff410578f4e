package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/nexus-vision/agentcore/internal/llm"
)

// GeminiProvider implements llm.Provider for Google's Gemini API via the
// unified google.golang.org/genai client, following the same
// synchronous-wrapper/retry shape as AnthropicProvider and OpenAIProvider.
type GeminiProvider struct {
	client       *genai.Client
	maxRetries   int
	retryDelay   time.Duration
	defaultModel string
}

// GeminiConfig configures a GeminiProvider.
type GeminiConfig struct {
	APIKey       string
	MaxRetries   int
	RetryDelay   time.Duration
	DefaultModel string
}

// NewGeminiProvider builds a provider from config, applying the same
// retry/backoff defaults as the other bindings.
func NewGeminiProvider(ctx context.Context, config GeminiConfig) (*GeminiProvider, error) {
	if config.APIKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = time.Second
	}
	if config.DefaultModel == "" {
		config.DefaultModel = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: could not build client: %w", err)
	}

	return &GeminiProvider{
		client:       client,
		maxRetries:   config.MaxRetries,
		retryDelay:   config.RetryDelay,
		defaultModel: config.DefaultModel,
	}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

// Models lists the Gemini models this binding recognizes. Vision support is
// probed through this list (§4.1's "vision feature probe"): every current
// Gemini model is natively multimodal.
func (p *GeminiProvider) Models() []llm.Model {
	return []llm.Model{
		{ID: "gemini-2.0-flash", Provider: "gemini", ContextSize: 1000000, SupportsVision: true},
		{ID: "gemini-1.5-pro", Provider: "gemini", ContextSize: 2000000, SupportsVision: true},
	}
}

// Supports reports feature support. Gemini models in this binding support
// text and vision; native web search (grounding) is not wired here.
func (p *GeminiProvider) Supports(model string, feature llm.Feature) bool {
	switch feature {
	case llm.FeatureText, llm.FeatureVision:
		return true
	default:
		return false
	}
}

// Complete sends one generateContent request, retrying any failure with
// linear backoff up to maxRetries attempts; errors are not classified as
// retryable or permanent.
func (p *GeminiProvider) Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	prompt := flattenGeminiPrompt(req)
	temp := float32(req.Temperature)
	maxTokens := int32(maxTokensOrDefault(req.MaxTokens))
	genConfig := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: maxTokens,
	}

	var result *genai.GenerateContentResponse
	var err error
	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		result, err = p.client.Models.GenerateContent(ctx, model, genai.Text(prompt), genConfig)
		if err == nil {
			break
		}
		if attempt == p.maxRetries {
			return llm.CompletionResponse{}, fmt.Errorf("gemini: %w", err)
		}
		select {
		case <-ctx.Done():
			return llm.CompletionResponse{}, ctx.Err()
		case <-time.After(p.retryDelay * time.Duration(attempt)):
		}
	}

	resp := llm.CompletionResponse{
		Messages: []llm.CompletionMessage{{Role: "assistant", Content: result.Text()}},
	}
	if result.UsageMetadata != nil {
		resp.InputTokens = int(result.UsageMetadata.PromptTokenCount)
		resp.OutputTokens = int(result.UsageMetadata.CandidatesTokenCount)
	}
	return resp, nil
}

// flattenGeminiPrompt joins the request's conversation into one prompt
// string of "role: content" lines: the façade's CompletionRequest carries
// provider-neutral role/content pairs rather than Gemini's native
// multi-turn Content type.
func flattenGeminiPrompt(req llm.CompletionRequest) string {
	var out string
	for _, m := range req.Messages {
		out += m.Role + ": " + m.Content + "\n"
	}
	return out
}
