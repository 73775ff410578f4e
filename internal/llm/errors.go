package llm

import "fmt"

// Reason categorizes why a façade call failed (§4.1 Failure modes).
type Reason string

const (
	ReasonProviderUnavailable Reason = "provider_unavailable"
	ReasonUnsupportedFeature  Reason = "model_unsupported_feature"
	ReasonTransport           Reason = "transport_error"
)

// CallError is the façade's error type. Generate and the vision call never
// swallow errors (§4.1): every failure surfaces to the caller as a CallError.
type CallError struct {
	Reason   Reason
	Provider string
	Model    string
	Cause    error
}

func (e *CallError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("llm: %s (provider=%s model=%s): %v", e.Reason, e.Provider, e.Model, e.Cause)
	}
	return fmt.Sprintf("llm: %s (provider=%s model=%s)", e.Reason, e.Provider, e.Model)
}

func (e *CallError) Unwrap() error { return e.Cause }

func newProviderUnavailable(provider string) *CallError {
	return &CallError{Reason: ReasonProviderUnavailable, Provider: provider}
}

func newUnsupportedFeature(provider, model string, feature Feature) *CallError {
	return &CallError{Reason: ReasonUnsupportedFeature, Provider: provider, Model: model,
		Cause: fmt.Errorf("model does not support feature %q", feature)}
}

func newTransportError(provider, model string, cause error) *CallError {
	return &CallError{Reason: ReasonTransport, Provider: provider, Model: model, Cause: cause}
}
