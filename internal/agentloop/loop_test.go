package agentloop_test

import (
	"context"
	"strings"
	"testing"

	"github.com/nexus-vision/agentcore/internal/agentloop"
	"github.com/nexus-vision/agentcore/internal/llm"
	"github.com/nexus-vision/agentcore/internal/llm/providers"
	"github.com/nexus-vision/agentcore/internal/models"
	"github.com/nexus-vision/agentcore/internal/registry"
)

func reply(text string) func(llm.CompletionRequest) (llm.CompletionResponse, error) {
	return func(llm.CompletionRequest) (llm.CompletionResponse, error) {
		return llm.CompletionResponse{Messages: []llm.CompletionMessage{{Role: "assistant", Content: text}}}, nil
	}
}

func sequencedReplies(texts ...string) func(llm.CompletionRequest) (llm.CompletionResponse, error) {
	i := 0
	return func(llm.CompletionRequest) (llm.CompletionResponse, error) {
		t := texts[i]
		if i < len(texts)-1 {
			i++
		}
		return llm.CompletionResponse{Messages: []llm.CompletionMessage{{Role: "assistant", Content: t}}}, nil
	}
}

type recordingSink struct {
	events []models.ChatEvent
}

func (s *recordingSink) Emit(_ context.Context, e models.ChatEvent) {
	s.events = append(s.events, e)
}

func (s *recordingSink) typeSequence() []models.ChatEventType {
	out := make([]models.ChatEventType, len(s.events))
	for i, e := range s.events {
		out[i] = e.Type
	}
	return out
}

func newFacade(respond func(llm.CompletionRequest) (llm.CompletionResponse, error)) *llm.Facade {
	fake := providers.NewFakeProvider()
	fake.Respond = respond
	return llm.NewFacade([]llm.Provider{fake})
}

func TestLoop_DirectAnswerNoToolCall(t *testing.T) {
	facade := newFacade(reply("The answer is 42."))
	sink := &recordingSink{}
	loop := agentloop.New(facade, "fake-model", "You are a helpful agent.", registry.New(), agentloop.Config{}, agentloop.WithEventSink(sink))

	history := models.NewConversationHistory(0)
	out, err := loop.Run(context.Background(), history, "sess-1", "what is the answer?")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out != "The answer is 42." {
		t.Fatalf("unexpected output: %q", out)
	}

	seq := sink.typeSequence()
	if seq[0] != models.ChatEventStream || seq[len(seq)-1] != models.ChatEventFinal {
		t.Fatalf("unexpected event sequence: %v", seq)
	}
}

func TestLoop_ToolCallThenFinalAnswer(t *testing.T) {
	facade := newFacade(sequencedReplies(
		"TOOL: echo\nINPUT: hello",
		"The tool said: hello",
	))
	reg := registry.New()
	_ = reg.Register(models.ToolDescriptor{
		Name: "echo",
		Handler: func(ctx context.Context, tc models.ToolContext, input string) models.ToolResult {
			return models.SuccessResult(tc.ToolCallID, "echoed: "+input)
		},
	})

	sink := &recordingSink{}
	loop := agentloop.New(facade, "fake-model", "", reg, agentloop.Config{}, agentloop.WithEventSink(sink))

	history := models.NewConversationHistory(0)
	out, err := loop.Run(context.Background(), history, "sess-2", "please echo hello")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out != "The tool said: hello" {
		t.Fatalf("unexpected output: %q", out)
	}

	seq := sink.typeSequence()
	if !containsInOrder(seq, models.ChatEventStream, models.ChatEventThinking, models.ChatEventToolStart, models.ChatEventToolResult, models.ChatEventFinal) {
		t.Fatalf("expected stream, thinking, tool_start, tool_result, final in order, got %v", seq)
	}

	found := false
	for _, m := range history.Messages() {
		if m.Role == models.RoleTool && strings.Contains(m.Text(), "echoed: hello") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected tool result recorded in history")
	}
}

func TestLoop_ReturnDirectShortCircuits(t *testing.T) {
	facade := newFacade(reply("TOOL: widget_maker\nINPUT: make me a histogram widget"))
	reg := registry.New()
	_ = reg.Register(models.ToolDescriptor{
		Name:         "widget_maker",
		ReturnDirect: true,
		Handler: func(ctx context.Context, tc models.ToolContext, input string) models.ToolResult {
			return models.SuccessResult(tc.ToolCallID, "Success: widget created.")
		},
	})

	loop := agentloop.New(facade, "fake-model", "", reg, agentloop.Config{})
	out, err := loop.Run(context.Background(), models.NewConversationHistory(0), "sess-3", "build a widget")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out != "Success: widget created." {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestLoop_UnknownToolNameContinuesInsteadOfFailing(t *testing.T) {
	facade := newFacade(sequencedReplies(
		"TOOL: does_not_exist\nINPUT: x",
		"falling back to a plain answer",
	))
	loop := agentloop.New(facade, "fake-model", "", registry.New(), agentloop.Config{})

	out, err := loop.Run(context.Background(), models.NewConversationHistory(0), "sess-4", "try something")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out != "falling back to a plain answer" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestLoop_ExceedsMaxIterationsFails(t *testing.T) {
	facade := newFacade(reply("TOOL: loopy\nINPUT: again"))
	reg := registry.New()
	_ = reg.Register(models.ToolDescriptor{
		Name: "loopy",
		Handler: func(ctx context.Context, tc models.ToolContext, input string) models.ToolResult {
			return models.SuccessResult(tc.ToolCallID, "ok, try again")
		},
	})

	loop := agentloop.New(facade, "fake-model", "", reg, agentloop.Config{MaxIterations: 3})
	_, err := loop.Run(context.Background(), models.NewConversationHistory(0), "sess-5", "loop forever")
	if err == nil {
		t.Fatalf("expected an error after exceeding max iterations")
	}
}

func TestLoop_MaxToolCallsBudgetExhausted(t *testing.T) {
	facade := newFacade(reply("TOOL: loopy\nINPUT: again"))
	reg := registry.New()
	_ = reg.Register(models.ToolDescriptor{
		Name: "loopy",
		Handler: func(ctx context.Context, tc models.ToolContext, input string) models.ToolResult {
			return models.SuccessResult(tc.ToolCallID, "ok")
		},
	})

	loop := agentloop.New(facade, "fake-model", "", reg, agentloop.Config{MaxIterations: 20, MaxToolCalls: 2})
	_, err := loop.Run(context.Background(), models.NewConversationHistory(0), "sess-6", "loop")
	if err == nil {
		t.Fatalf("expected tool-call budget error")
	}
}

func containsInOrder(seq []models.ChatEventType, want ...models.ChatEventType) bool {
	i := 0
	for _, s := range seq {
		if i < len(want) && s == want[i] {
			i++
		}
	}
	return i == len(want)
}
