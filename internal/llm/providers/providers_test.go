package providers

import (
	"context"
	"testing"

	"github.com/nexus-vision/agentcore/internal/llm"
)

func TestNewOpenAIProvider_RequiresAPIKey(t *testing.T) {
	if _, err := NewOpenAIProvider(OpenAIConfig{}); err == nil {
		t.Fatalf("expected an error when APIKey is empty")
	}
}

func TestNewOpenAIProvider_SupportsTextAndVisionOnly(t *testing.T) {
	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("NewOpenAIProvider() error = %v", err)
	}
	if !p.Supports("gpt-4o", llm.FeatureText) || !p.Supports("gpt-4o", llm.FeatureVision) {
		t.Fatalf("expected text and vision support")
	}
	if p.Supports("gpt-4o", llm.FeatureWebSearch) {
		t.Fatalf("expected no web-search support")
	}
	if len(p.Models()) == 0 {
		t.Fatalf("expected a non-empty model list")
	}
}

func TestNewGeminiProvider_RequiresAPIKey(t *testing.T) {
	if _, err := NewGeminiProvider(context.Background(), GeminiConfig{}); err == nil {
		t.Fatalf("expected an error when APIKey is empty")
	}
}

func TestNewBedrockProvider_RequiresRegion(t *testing.T) {
	if _, err := NewBedrockProvider(context.Background(), BedrockConfig{}); err == nil {
		t.Fatalf("expected an error when Region is empty")
	}
}

func TestBedrockProvider_SupportsChecksModelList(t *testing.T) {
	p := &BedrockProvider{defaultModel: "anthropic.claude-3-5-sonnet-20241022-v2:0"}
	if !p.Supports("anthropic.claude-3-5-sonnet-20241022-v2:0", llm.FeatureVision) {
		t.Fatalf("expected the Claude Bedrock model to support vision")
	}
	if p.Supports("amazon.titan-text-premier-v1:0", llm.FeatureVision) {
		t.Fatalf("expected Titan to not support vision")
	}
	if p.Supports("no-such-model", llm.FeatureText) {
		t.Fatalf("expected an unknown model to support nothing")
	}
}
