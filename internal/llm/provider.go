// Package llm provides the provider façade (C1): a uniform text-generation
// call over heterogeneous LLM backends, modeled on the teacher's
// internal/agent LLMProvider interface and provider_types.go.
package llm

import "context"

// Provider is the interface each backend SDK binding implements. The
// façade selects among registered providers at startup; callers above the
// façade never see a provider identity, only a model id.
type Provider interface {
	// Name returns the provider's identifier (e.g. "anthropic", "openai").
	Name() string

	// Complete sends one completion request and returns the full
	// response. Providers that stream internally must drain their own
	// stream and assemble the result before returning, since the façade
	// contract (§4.1) is synchronous from the caller's perspective.
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)

	// Models lists the models this provider exposes.
	Models() []Model

	// Supports reports whether the given model supports the named feature.
	Supports(model string, feature Feature) bool
}

// Feature names a capability a model may or may not support.
type Feature string

const (
	FeatureText      Feature = "text"
	FeatureVision    Feature = "vision"
	FeatureWebSearch Feature = "web_search"
)

// Model describes one model a provider exposes.
type Model struct {
	ID             string
	Provider       string
	ContextSize    int
	SupportsVision bool
	SupportsSearch bool
}

// CompletionRequest is a single generate() call (§4.1).
type CompletionRequest struct {
	Model       string
	Messages    []CompletionMessage
	Temperature float64
	MaxTokens   int
	// ImageRef, when set, is a URI or local path convertible to one, for
	// a vision call. Providers that do not support vision reject it via
	// Supports before Complete is invoked.
	ImageRef string
}

// CompletionMessage is one turn of conversation passed to a provider.
type CompletionMessage struct {
	Role    string
	Content string
}

// CompletionResponse is the façade's generate() result: zero or more
// output messages, per §4.1's `Message[]` return.
type CompletionResponse struct {
	Messages     []CompletionMessage
	InputTokens  int
	OutputTokens int
}
