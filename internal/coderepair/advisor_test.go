package coderepair

import (
	"context"
	"testing"

	"github.com/nexus-vision/agentcore/internal/llm"
	"github.com/nexus-vision/agentcore/internal/llm/providers"
)

func newAdvisorFacade(t *testing.T, respond func(llm.CompletionRequest) (llm.CompletionResponse, error)) *llm.Facade {
	t.Helper()
	fp := providers.NewFakeProvider()
	fp.Respond = respond
	return llm.NewFacade([]llm.Provider{fp})
}

func reply(text string) func(llm.CompletionRequest) (llm.CompletionResponse, error) {
	return func(req llm.CompletionRequest) (llm.CompletionResponse, error) {
		return llm.CompletionResponse{Messages: []llm.CompletionMessage{{Role: "assistant", Content: text}}}, nil
	}
}

func TestLLMAdvisor_ProposeMissingImports_ValidReply(t *testing.T) {
	facade := newAdvisorFacade(t, reply(`here you go: {"imports": ["import skimage.filters"]} thanks`))
	advisor := NewLLMAdvisor(facade, "fake-model", AdvisorPrompts{})

	imports, err := advisor.ProposeMissingImports(context.Background(), "skimage.filters.gaussian(x)", []string{"skimage.filters.gaussian"})
	if err != nil {
		t.Fatalf("ProposeMissingImports() error = %v", err)
	}
	if len(imports) != 1 || imports[0] != "import skimage.filters" {
		t.Fatalf("unexpected imports: %+v", imports)
	}
}

func TestLLMAdvisor_ProposeMissingImports_SchemaInvalidReplyYieldsNothing(t *testing.T) {
	facade := newAdvisorFacade(t, reply(`{"imports": "not a list"}`))
	advisor := NewLLMAdvisor(facade, "fake-model", AdvisorPrompts{})

	imports, err := advisor.ProposeMissingImports(context.Background(), "code", []string{"x.y"})
	if err != nil {
		t.Fatalf("expected a schema-invalid reply to be treated as no proposal, got error = %v", err)
	}
	if imports != nil {
		t.Fatalf("expected no imports proposed, got %+v", imports)
	}
}

func TestLLMAdvisor_ProposeMissingImports_NonJSONReplyYieldsNothing(t *testing.T) {
	facade := newAdvisorFacade(t, reply("I cannot help with that."))
	advisor := NewLLMAdvisor(facade, "fake-model", AdvisorPrompts{})

	imports, err := advisor.ProposeMissingImports(context.Background(), "code", []string{"x.y"})
	if err != nil {
		t.Fatalf("expected a non-JSON reply to be treated as no proposal, got error = %v", err)
	}
	if imports != nil {
		t.Fatalf("expected no imports proposed, got %+v", imports)
	}
}

func TestLLMAdvisor_ProposeCallFix_ValidReply(t *testing.T) {
	facade := newAdvisorFacade(t, reply(`{"replacement": "skimage.filters.gaussian(image, sigma=1)"}`))
	advisor := NewLLMAdvisor(facade, "fake-model", AdvisorPrompts{})

	fix, err := advisor.ProposeCallFix(context.Background(), "skimage.gaussian(image, sigma=1)", "skimage.filters.gaussian")
	if err != nil {
		t.Fatalf("ProposeCallFix() error = %v", err)
	}
	if fix != "skimage.filters.gaussian(image, sigma=1)" {
		t.Fatalf("unexpected fix: %q", fix)
	}
}

func TestLLMAdvisor_ProposeMissingPackages_ValidReply(t *testing.T) {
	facade := newAdvisorFacade(t, reply(`{"packages": ["scikit-image", "tifffile"]}`))
	advisor := NewLLMAdvisor(facade, "fake-model", AdvisorPrompts{})

	pkgs, err := advisor.ProposeMissingPackages(context.Background(), "import skimage\nimport tifffile")
	if err != nil {
		t.Fatalf("ProposeMissingPackages() error = %v", err)
	}
	if len(pkgs) != 2 || pkgs[0] != "scikit-image" || pkgs[1] != "tifffile" {
		t.Fatalf("unexpected packages: %+v", pkgs)
	}
}
