package main

import (
	"context"
	"fmt"

	"github.com/nexus-vision/agentcore/internal/config"
	"github.com/nexus-vision/agentcore/internal/llm"
	"github.com/nexus-vision/agentcore/internal/llm/providers"
	"github.com/nexus-vision/agentcore/internal/observability"
)

// buildFacade constructs the C1 provider façade from cfg.LLM.Providers,
// mapping each configured provider key to its concrete binding. Keys not
// matching a known binding are rejected rather than silently skipped, so a
// typo in nexusvision.yaml surfaces at startup instead of at first turn.
func buildFacade(ctx context.Context, cfg *config.Config, logger *observability.Logger, metrics *observability.Metrics, tracer *observability.Tracer) (*llm.Facade, error) {
	var bound []llm.Provider
	for name, pc := range cfg.LLM.Providers {
		p, err := buildProvider(ctx, name, pc)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", name, err)
		}
		bound = append(bound, p)
	}
	if len(bound) == 0 {
		return nil, fmt.Errorf("no llm.providers configured")
	}

	return llm.NewFacade(bound,
		llm.WithVisionRetryBudget(cfg.Session.VisionRetryBudget),
		llm.WithObservability(logger, metrics, tracer),
	), nil
}

func buildProvider(ctx context.Context, name string, pc config.LLMProviderConfig) (llm.Provider, error) {
	switch name {
	case "anthropic":
		return providers.NewAnthropicProvider(providers.AnthropicConfig{
			APIKey: pc.APIKey, BaseURL: pc.BaseURL, DefaultModel: pc.DefaultModel,
		})
	case "openai":
		return providers.NewOpenAIProvider(providers.OpenAIConfig{
			APIKey: pc.APIKey, BaseURL: pc.BaseURL, DefaultModel: pc.DefaultModel,
		})
	case "gemini":
		return providers.NewGeminiProvider(ctx, providers.GeminiConfig{
			APIKey: pc.APIKey, DefaultModel: pc.DefaultModel,
		})
	case "bedrock":
		return providers.NewBedrockProvider(ctx, providers.BedrockConfig{
			Region: pc.Region, DefaultModel: pc.DefaultModel,
		})
	default:
		return nil, fmt.Errorf("unknown provider binding %q (known: anthropic, openai, gemini, bedrock)", name)
	}
}
