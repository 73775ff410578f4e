package session_test

import (
	"context"
	"testing"

	"github.com/nexus-vision/agentcore/internal/bridge"
	"github.com/nexus-vision/agentcore/internal/coderepair"
	"github.com/nexus-vision/agentcore/internal/config"
	"github.com/nexus-vision/agentcore/internal/llm"
	"github.com/nexus-vision/agentcore/internal/llm/providers"
	"github.com/nexus-vision/agentcore/internal/models"
	"github.com/nexus-vision/agentcore/internal/registry"
	"github.com/nexus-vision/agentcore/internal/session"
	"github.com/nexus-vision/agentcore/internal/tools"
)

type fakeHost struct{}

func reply(text string) func(llm.CompletionRequest) (llm.CompletionResponse, error) {
	return func(llm.CompletionRequest) (llm.CompletionResponse, error) {
		return llm.CompletionResponse{Messages: []llm.CompletionMessage{{Role: "assistant", Content: text}}}, nil
	}
}

func newFacade(respond func(llm.CompletionRequest) (llm.CompletionResponse, error)) *llm.Facade {
	fake := providers.NewFakeProvider()
	fake.Respond = respond
	return llm.NewFacade([]llm.Provider{fake})
}

func noopBuildTools[H any](reg *registry.Registry, br *bridge.Bridge[H], subAgent tools.SubAgentRunner, pipeline *coderepair.Pipeline) {
}

type recordingSink struct {
	events []models.ChatEvent
}

func (s *recordingSink) Emit(_ context.Context, e models.ChatEvent) { s.events = append(s.events, e) }

func testConfig() *config.Config {
	cfg := &config.Config{}
	return cfg
}

func TestController_HandleTurn_PersistsAndForwards(t *testing.T) {
	facade := newFacade(reply("The answer is 42."))
	store := session.NewMemoryStore()

	ctrl, err := session.NewController[fakeHost](fakeHost{}, testConfig(), facade, "fake-model", "You are a helpful agent.", nil, store, noopBuildTools[fakeHost])
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}
	defer ctrl.Shutdown(context.Background())

	sink := &recordingSink{}
	out, err := ctrl.HandleTurn(context.Background(), "sess-1", "what is the answer?", sink)
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if out != "The answer is 42." {
		t.Fatalf("unexpected output: %q", out)
	}
	if len(sink.events) == 0 {
		t.Fatalf("expected forwarded events, got none")
	}

	history, err := store.History(context.Background(), "sess-1", 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 persisted messages (user, assistant), got %d", len(history))
	}
	if history[0].Role != models.RoleUser || history[0].Text() != "what is the answer?" {
		t.Fatalf("unexpected first persisted message: %+v", history[0])
	}
	if history[1].Role != models.RoleAssistant || history[1].Text() != "The answer is 42." {
		t.Fatalf("unexpected second persisted message: %+v", history[1])
	}
}

func TestController_HandleTurn_ReplaysPersistedHistoryOnFirstUse(t *testing.T) {
	facade := newFacade(reply("second answer"))
	store := session.NewMemoryStore()
	ctx := context.Background()

	if _, err := store.EnsureSession(ctx, "sess-2"); err != nil {
		t.Fatalf("EnsureSession() error = %v", err)
	}
	if err := store.AppendMessage(ctx, "sess-2", models.NewTextMessage(models.RoleUser, "first question")); err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}

	ctrl, err := session.NewController[fakeHost](fakeHost{}, testConfig(), facade, "fake-model", "", nil, store, noopBuildTools[fakeHost])
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}
	defer ctrl.Shutdown(ctx)

	if _, err := ctrl.HandleTurn(ctx, "sess-2", "second question", nil); err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}

	msgs, err := ctrl.History(ctx, "sess-2")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(msgs) < 3 {
		t.Fatalf("expected replayed history plus new turn, got %d messages", len(msgs))
	}
	if msgs[0].Text() != "first question" {
		t.Fatalf("expected replayed message first, got %+v", msgs[0])
	}
}

func TestController_Peers_NilWhenPeerDisabled(t *testing.T) {
	facade := newFacade(reply("ok"))
	store := session.NewMemoryStore()

	ctrl, err := session.NewController[fakeHost](fakeHost{}, testConfig(), facade, "fake-model", "", nil, store, noopBuildTools[fakeHost])
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}
	defer ctrl.Shutdown(context.Background())

	if peers := ctrl.Peers(); peers != nil {
		t.Fatalf("expected nil peers with peer services disabled, got %v", peers)
	}
	if err := ctrl.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
}
