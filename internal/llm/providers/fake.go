package providers

import (
	"context"
	"sync/atomic"

	"github.com/nexus-vision/agentcore/internal/llm"
)

// FakeProvider is a deterministic llm.Provider used in tests and in
// environments with no configured API keys, grounded on the teacher's
// pattern of a hand-rolled in-memory provider for unit tests.
type FakeProvider struct {
	ModelsList []llm.Model
	// Respond, when set, computes the response for a given request.
	// Defaults to echoing the last message's content.
	Respond func(req llm.CompletionRequest) (llm.CompletionResponse, error)
	// FailUntilAttempt causes the first N calls to fail with err before
	// succeeding, to exercise bounded-retry callers.
	FailUntilAttempt int32
	FailErr          error

	calls int32
}

func NewFakeProvider(models ...llm.Model) *FakeProvider {
	if len(models) == 0 {
		models = []llm.Model{{ID: "fake-model", Provider: "fake", ContextSize: 8192, SupportsVision: true, SupportsSearch: true}}
	}
	return &FakeProvider{ModelsList: models}
}

func (p *FakeProvider) Name() string       { return "fake" }
func (p *FakeProvider) Models() []llm.Model { return p.ModelsList }

func (p *FakeProvider) Supports(model string, feature llm.Feature) bool {
	for _, m := range p.ModelsList {
		if m.ID != model {
			continue
		}
		switch feature {
		case llm.FeatureText:
			return true
		case llm.FeatureVision:
			return m.SupportsVision
		case llm.FeatureWebSearch:
			return m.SupportsSearch
		}
	}
	return false
}

func (p *FakeProvider) Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	n := atomic.AddInt32(&p.calls, 1)
	if n <= p.FailUntilAttempt {
		if p.FailErr != nil {
			return llm.CompletionResponse{}, p.FailErr
		}
		return llm.CompletionResponse{}, context.DeadlineExceeded
	}
	if p.Respond != nil {
		return p.Respond(req)
	}
	last := ""
	if len(req.Messages) > 0 {
		last = req.Messages[len(req.Messages)-1].Content
	}
	return llm.CompletionResponse{
		Messages: []llm.CompletionMessage{{Role: "assistant", Content: last}},
	}, nil
}
