package registry_test

import (
	"context"
	"strings"
	"testing"

	"github.com/nexus-vision/agentcore/internal/models"
	"github.com/nexus-vision/agentcore/internal/registry"
)

func echoDescriptor(name string) models.ToolDescriptor {
	return models.ToolDescriptor{
		Name:        name,
		Description: "echoes its input",
		Handler: func(ctx context.Context, tc models.ToolContext, input string) models.ToolResult {
			return models.SuccessResult(tc.ToolCallID, "echo: "+input)
		},
	}
}

func TestRegistry_RegisterGetInvoke(t *testing.T) {
	r := registry.New()
	if err := r.Register(echoDescriptor("echo")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	td, ok := r.Get("echo")
	if !ok || td.Name != "echo" {
		t.Fatalf("expected to find registered tool, got %+v ok=%v", td, ok)
	}

	result := r.Invoke(context.Background(), models.ToolContext{ToolCallID: "1"}, "echo", "hi")
	if !result.Success || result.Text != "echo: hi" {
		t.Fatalf("unexpected invoke result: %+v", result)
	}
}

func TestRegistry_InvokeUnknownToolReturnsErrorResult(t *testing.T) {
	r := registry.New()
	result := r.Invoke(context.Background(), models.ToolContext{}, "nope", "x")
	if result.Success {
		t.Fatalf("expected an Error result for an unknown tool")
	}
	if result.ErrorKind != "UnknownTool" {
		t.Fatalf("unexpected error kind: %q", result.ErrorKind)
	}
}

func TestRegistry_RegisterRejectsEmptyName(t *testing.T) {
	r := registry.New()
	if err := r.Register(models.ToolDescriptor{Name: ""}); err == nil {
		t.Fatalf("expected an error for an empty tool name")
	}
}

func TestRegistry_RegisterRejectsOverlongName(t *testing.T) {
	r := registry.New()
	if err := r.Register(models.ToolDescriptor{Name: strings.Repeat("x", registry.MaxToolNameLength+1)}); err == nil {
		t.Fatalf("expected an error for an overlong tool name")
	}
}

func TestRegistry_UnregisterRemovesTool(t *testing.T) {
	r := registry.New()
	_ = r.Register(echoDescriptor("echo"))
	r.Unregister("echo")
	if _, ok := r.Get("echo"); ok {
		t.Fatalf("expected tool to be gone after Unregister")
	}
}

func TestRegistry_ListIsSortedByName(t *testing.T) {
	r := registry.New()
	_ = r.Register(echoDescriptor("zeta"))
	_ = r.Register(echoDescriptor("alpha"))
	_ = r.Register(echoDescriptor("mid"))

	list := r.List()
	if len(list) != 3 {
		t.Fatalf("expected 3 tools, got %d", len(list))
	}
	if list[0].Name != "alpha" || list[1].Name != "mid" || list[2].Name != "zeta" {
		t.Fatalf("expected tools sorted by name, got %v", []string{list[0].Name, list[1].Name, list[2].Name})
	}
}

func TestRegistry_RegisterReplacesExisting(t *testing.T) {
	r := registry.New()
	_ = r.Register(echoDescriptor("tool"))
	_ = r.Register(models.ToolDescriptor{
		Name: "tool",
		Handler: func(ctx context.Context, tc models.ToolContext, input string) models.ToolResult {
			return models.SuccessResult(tc.ToolCallID, "replaced")
		},
	})

	result := r.Invoke(context.Background(), models.ToolContext{}, "tool", "x")
	if result.Text != "replaced" {
		t.Fatalf("expected replaced handler to run, got %q", result.Text)
	}
}
