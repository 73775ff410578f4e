package main

import (
	"context"
	"testing"

	"github.com/nexus-vision/agentcore/internal/config"
)

func TestBuildProviderUnknownBindingFails(t *testing.T) {
	_, err := buildProvider(context.Background(), "not-a-real-provider", config.LLMProviderConfig{})
	if err == nil {
		t.Fatal("expected an error for an unrecognized provider binding")
	}
}

func TestBuildProviderKnownBindingsRequireCredentials(t *testing.T) {
	for _, name := range []string{"anthropic", "openai", "gemini"} {
		if _, err := buildProvider(context.Background(), name, config.LLMProviderConfig{}); err == nil {
			t.Fatalf("expected provider %q to fail construction without an API key", name)
		}
	}
}

func TestBuildFacadeFailsWithNoProvidersConfigured(t *testing.T) {
	cfg := &config.Config{}
	if _, err := buildFacade(context.Background(), cfg, nil, nil, nil); err == nil {
		t.Fatal("expected an error when cfg.LLM.Providers is empty")
	}
}

func TestBuildFacadeRejectsUnknownProviderKey(t *testing.T) {
	cfg := &config.Config{
		LLM: config.LLMConfig{
			Providers: map[string]config.LLMProviderConfig{
				"not-a-real-provider": {APIKey: "x"},
			},
		},
	}
	if _, err := buildFacade(context.Background(), cfg, nil, nil, nil); err == nil {
		t.Fatal("expected an error for an unrecognized provider key")
	}
}
