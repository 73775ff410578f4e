package tools_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nexus-vision/agentcore/internal/bridge"
	"github.com/nexus-vision/agentcore/internal/models"
	"github.com/nexus-vision/agentcore/internal/registry"
	"github.com/nexus-vision/agentcore/internal/tools"
)

// fakeSubAgent simulates the nested sub-agent's tool-calling behavior
// without depending on agentloop: it drives the registered
// submit_widget_code tool directly, once per entry in codes.
type fakeSubAgent struct {
	codes []string
}

func (f *fakeSubAgent) RunToCompletion(ctx context.Context, systemPrompt, userInput string, toolset *registry.Registry) (string, error) {
	var lastText string
	for _, code := range f.codes {
		result := toolset.Invoke(ctx, models.ToolContext{}, "submit_widget_code", code)
		lastText = result.AsText()
		if strings.HasPrefix(lastText, "STOP:") {
			break
		}
		if strings.HasPrefix(lastText, "Success") {
			break
		}
	}
	return lastText, nil
}

func TestWidgetMakerTool_SucceedsOnFirstSubmission(t *testing.T) {
	host := &fakeHost{}
	br := bridge.New[*fakeHost](host)
	defer br.Shutdown(context.Background())

	sub := &fakeSubAgent{codes: []string{"def widget(): pass"}}
	tool := tools.NewWidgetMakerTool[*fakeHost](tools.WidgetMakerConfig{
		SystemPromptTemplate: "you are a widget sub-agent",
	}, nil, "", newTestPipeline(), br, runnerFor(host), sub)

	result := tool.Run(context.Background(), models.ToolContext{}, "make me a histogram widget")
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if !strings.Contains(result.Text, "successfully created") {
		t.Fatalf("unexpected success text: %q", result.Text)
	}
	if len(host.executed) != 1 {
		t.Fatalf("expected exactly 1 bridge submission, got %d", len(host.executed))
	}
}

func TestWidgetMakerTool_RetriesAcrossSubmissionsThenSucceeds(t *testing.T) {
	host := &fakeHost{}
	br := bridge.New[*fakeHost](host)
	defer br.Shutdown(context.Background())

	attempt := 0
	runner := func(code string) models.Task[*fakeHost] {
		return func(h *fakeHost) (any, error) {
			attempt++
			h.executed = append(h.executed, code)
			if attempt == 1 {
				return nil, errors.New("NameError: bad ref")
			}
			return "Success: widget docked.", nil
		}
	}

	sub := &fakeSubAgent{codes: []string{"def widget(): bad()", "def widget(): pass"}}
	tool := tools.NewWidgetMakerTool[*fakeHost](tools.WidgetMakerConfig{
		SystemPromptTemplate: "you are a widget sub-agent",
	}, nil, "", newTestPipeline(), br, runner, sub)

	result := tool.Run(context.Background(), models.ToolContext{}, "make a widget")
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if len(host.executed) != 2 {
		t.Fatalf("expected 2 submissions (1 failure + 1 success), got %d", len(host.executed))
	}
}

func TestWidgetMakerTool_StopSentinelAfterMaxAttempts(t *testing.T) {
	host := &fakeHost{fail: true}
	br := bridge.New[*fakeHost](host)
	defer br.Shutdown(context.Background())

	sub := &fakeSubAgent{codes: []string{"a()", "b()", "c()", "d()"}}
	tool := tools.NewWidgetMakerTool[*fakeHost](tools.WidgetMakerConfig{
		SystemPromptTemplate: "you are a widget sub-agent",
		MaxAttempts:          2,
	}, nil, "", newTestPipeline(), br, runnerFor(host), sub)

	result := tool.Run(context.Background(), models.ToolContext{}, "make a widget that keeps failing")
	if !result.Success {
		t.Fatalf("a STOP sentinel is reported as tool output text, not a Go error: got %+v", result)
	}
	if len(host.executed) != 2 {
		t.Fatalf("expected exactly maxAttempts (2) submissions before the STOP sentinel, got %d", len(host.executed))
	}
}

func TestWidgetMakerTool_DescriptorIsReturnDirect(t *testing.T) {
	host := &fakeHost{}
	br := bridge.New[*fakeHost](host)
	defer br.Shutdown(context.Background())

	tool := tools.NewWidgetMakerTool[*fakeHost](tools.WidgetMakerConfig{}, nil, "", newTestPipeline(), br, runnerFor(host), &fakeSubAgent{})
	td := tool.Descriptor()
	if td.Name != "widget_maker" || !td.ReturnDirect {
		t.Fatalf("unexpected descriptor: %+v", td)
	}
}
