package llm

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/nexus-vision/agentcore/internal/observability"
)

// Facade is C1: a uniform generate()/supports()/best_model()/list_models()
// surface over any number of registered providers. Callers never see a
// provider identity, only a model id (§4.1).
type Facade struct {
	providers    map[string]Provider
	modelOwner   map[string]string // model id -> provider name
	visionRetry  int
	retryBackoff time.Duration
	logger       *observability.Logger
	metrics      *observability.Metrics
	tracer       *observability.Tracer
}

// FacadeOption configures optional Facade behavior.
type FacadeOption func(*Facade)

// WithVisionRetryBudget overrides the default bounded retry count (4) applied
// transparently to vision calls (§4.1).
func WithVisionRetryBudget(n int) FacadeOption {
	return func(f *Facade) { f.visionRetry = n }
}

// WithObservability attaches logging, metrics, and tracing to the façade.
func WithObservability(logger *observability.Logger, metrics *observability.Metrics, tracer *observability.Tracer) FacadeOption {
	return func(f *Facade) { f.logger, f.metrics, f.tracer = logger, metrics, tracer }
}

// NewFacade builds a façade from a set of registered providers.
func NewFacade(providers []Provider, opts ...FacadeOption) *Facade {
	f := &Facade{
		providers:    map[string]Provider{},
		modelOwner:   map[string]string{},
		visionRetry:  4,
		retryBackoff: 250 * time.Millisecond,
	}
	for _, p := range providers {
		f.providers[p.Name()] = p
		for _, m := range p.Models() {
			f.modelOwner[m.ID] = p.Name()
		}
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Generate implements generate(prompt_template, variables, temperature) →
// Message[] (§4.1). modelID selects both the model and, transitively, the
// owning provider.
func (f *Facade) Generate(ctx context.Context, modelID, promptTemplate string, variables map[string]string, temperature float64) ([]CompletionMessage, error) {
	provider, ok := f.providerFor(modelID)
	if !ok {
		return nil, newProviderUnavailable(modelID)
	}

	prompt := RenderTemplate(promptTemplate, variables)
	req := CompletionRequest{
		Model:       modelID,
		Messages:    []CompletionMessage{{Role: "user", Content: prompt}},
		Temperature: temperature,
	}

	if f.tracer != nil {
		var span trace.Span
		ctx, span = f.tracer.TraceLLMRequest(ctx, provider.Name(), modelID)
		defer span.End()
	}

	start := time.Now()
	resp, err := provider.Complete(ctx, req)
	f.recordRequest(provider.Name(), modelID, time.Since(start), err, resp)
	if err != nil {
		return nil, newTransportError(provider.Name(), modelID, err)
	}
	return resp.Messages, nil
}

// GenerateVision performs a vision-capable call with a bounded transparent
// retry (§4.1 default 4), rejecting models that do not support vision
// before ever calling out.
func (f *Facade) GenerateVision(ctx context.Context, modelID, imageRef, prompt string) (string, error) {
	provider, ok := f.providerFor(modelID)
	if !ok {
		return "", newProviderUnavailable(modelID)
	}
	if !provider.Supports(modelID, FeatureVision) {
		return "", newUnsupportedFeature(provider.Name(), modelID, FeatureVision)
	}

	req := CompletionRequest{
		Model:    modelID,
		Messages: []CompletionMessage{{Role: "user", Content: prompt}},
		ImageRef: imageRef,
	}

	var lastErr error
	attempts := f.visionRetry
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := provider.Complete(ctx, req)
		if err == nil {
			if len(resp.Messages) == 0 {
				lastErr = fmt.Errorf("vision call returned no messages")
			} else {
				return resp.Messages[0].Content, nil
			}
		} else {
			lastErr = err
		}
		if attempt < attempts {
			select {
			case <-ctx.Done():
				return "", newTransportError(provider.Name(), modelID, ctx.Err())
			case <-time.After(f.retryBackoff * time.Duration(attempt)):
			}
		}
	}
	return "", newTransportError(provider.Name(), modelID, lastErr)
}

// Supports implements supports(model, feature) → bool (§4.1).
func (f *Facade) Supports(modelID string, feature Feature) bool {
	provider, ok := f.providerFor(modelID)
	if !ok {
		return false
	}
	return provider.Supports(modelID, feature)
}

// BestModel implements best_model(features) → model_id: a model that
// supports every requested feature. Within a provider, models are checked
// in list order; providers are visited in map order, so when several
// providers have a matching model, which one is returned is not defined.
func (f *Facade) BestModel(features ...Feature) (string, bool) {
	for _, p := range f.providers {
		for _, m := range p.Models() {
			if modelHasFeatures(m, features) {
				return m.ID, true
			}
		}
	}
	return "", false
}

// ListModels implements list_models() → [model_id].
func (f *Facade) ListModels() []string {
	ids := make([]string, 0, len(f.modelOwner))
	for id := range f.modelOwner {
		ids = append(ids, id)
	}
	return ids
}

func (f *Facade) providerFor(modelID string) (Provider, bool) {
	name, ok := f.modelOwner[modelID]
	if !ok {
		return nil, false
	}
	p, ok := f.providers[name]
	return p, ok
}

func (f *Facade) recordRequest(provider, model string, d time.Duration, err error, resp CompletionResponse) {
	if f.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	f.metrics.RecordLLMRequest(provider, model, status, d.Seconds(), resp.InputTokens, resp.OutputTokens)
}

func modelHasFeatures(m Model, features []Feature) bool {
	for _, feat := range features {
		switch feat {
		case FeatureVision:
			if !m.SupportsVision {
				return false
			}
		case FeatureWebSearch:
			if !m.SupportsSearch {
				return false
			}
		case FeatureText:
			// all registered models support text generation
		}
	}
	return true
}
