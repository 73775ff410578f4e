package main

import (
	"context"
	"testing"

	"github.com/nexus-vision/agentcore/internal/bridge"
	"github.com/nexus-vision/agentcore/internal/coderepair"
	"github.com/nexus-vision/agentcore/internal/llm"
	"github.com/nexus-vision/agentcore/internal/llm/providers"
	"github.com/nexus-vision/agentcore/internal/models"
	"github.com/nexus-vision/agentcore/internal/registry"
)

type nopResolver struct{}

func (nopResolver) NameExists(ctx context.Context, name string) bool { return true }
func (nopResolver) InstalledPackages(ctx context.Context) []string   { return nil }

type nopAdvisor struct{}

func (nopAdvisor) ProposeMissingImports(ctx context.Context, code string, unresolved []string) ([]string, error) {
	return nil, nil
}
func (nopAdvisor) ProposeCallFix(ctx context.Context, originalCall, fqn string) (string, error) {
	return originalCall, nil
}
func (nopAdvisor) ProposeMissingPackages(ctx context.Context, code string) ([]string, error) {
	return nil, nil
}

type nopInstaller struct{}

func (nopInstaller) Install(ctx context.Context, packages []string) error { return nil }

type nopSubAgent struct{}

func (nopSubAgent) RunToCompletion(ctx context.Context, systemPrompt, userInput string, toolset *registry.Registry) (string, error) {
	return "", nil
}

func TestBuildFakeToolsRegistersRunCodeAndMakeWidget(t *testing.T) {
	host := NewFakeHost()
	br := bridge.New[*FakeHost](host)
	defer br.Shutdown(context.Background())

	reg := registry.New()
	pipeline := coderepair.NewPipeline(nopResolver{}, nopAdvisor{}, nopInstaller{})
	facade := llm.NewFacade([]llm.Provider{providers.NewFakeProvider()})

	buildFakeTools(reg, br, nopSubAgent{}, pipeline, facade, "fake-model")

	for _, name := range []string{"run_code", "widget_maker"} {
		if _, ok := reg.Get(name); !ok {
			t.Fatalf("expected tool %q to be registered", name)
		}
	}
}
