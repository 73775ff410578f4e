// Package tools implements the code-generating tool base (C5) and the
// widget-maker nested sub-agent tool (C6). Grounded on
// napari_base_tool.py's NapariBaseTool: a tool that delegates code
// generation to an LLM, prepares the result through the repair pipeline,
// submits it to the host bridge, and retries with the failure fed back to
// the LLM on error.
package tools

import (
	"context"
	"fmt"

	"github.com/nexus-vision/agentcore/internal/bridge"
	"github.com/nexus-vision/agentcore/internal/coderepair"
	"github.com/nexus-vision/agentcore/internal/llm"
	"github.com/nexus-vision/agentcore/internal/models"
	"github.com/nexus-vision/agentcore/internal/observability"
)

// CodeGenSpec describes one BaseTool instance's prompt material: the
// free-text template, tool-specific codegen instructions appended to the
// generic preamble, and the repair-stage configuration it runs with.
type CodeGenSpec struct {
	Name           string
	Description    string
	PromptTemplate string
	Instructions   string
	CodePrefix     string
	ReturnDirect   bool
	RepairOptions  coderepair.Options
	MaxRetries     int // retries with the execution error fed back to the LLM
}

// genericCodegenPreamble mirrors omega_generic_codegen_instructions: a
// fixed block of ambient guidance prepended ahead of every tool's own
// instructions, parameterized in the original by the running Python
// version and installed package list; here it stays host-neutral since
// that material is injected by the repair pipeline's advisor instead.
const genericCodegenPreamble = `You are writing Python code that will run inside an already-running, already-initialized host application. Do not construct a new application instance, do not start a new event loop, and do not open a new top-level window: all of that already exists. Only reference the host handle and libraries made available to you. Return ONLY a single fenced Python code block, with no commentary before or after it.

`

// CodeRunner builds the Task a BaseTool submits to the bridge for one
// prepared code string: the host-specific half of "run this code against
// the live handle", kept out of BaseTool itself so it stays host-agnostic.
type CodeRunner[H any] func(code string) models.Task[H]

// BaseTool is one code-generating tool (C5): given free-text input, it
// asks the LLM for Python code, repairs it via the C3 pipeline, submits it
// to the host bridge, and on failure retries up to MaxRetries times with
// the error message appended to the prompt.
type BaseTool[H any] struct {
	spec     CodeGenSpec
	facade   *llm.Facade
	model    string
	pipeline *coderepair.Pipeline
	bridge   *bridge.Bridge[H]
	runner   CodeRunner[H]

	lastGeneratedCode string

	logger  *observability.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer
}

// Option configures optional BaseTool behavior.
type Option[H any] func(*BaseTool[H])

// WithObservability attaches logging, metrics, and tracing.
func WithObservability[H any](logger *observability.Logger, metrics *observability.Metrics, tracer *observability.Tracer) Option[H] {
	return func(t *BaseTool[H]) { t.logger, t.metrics, t.tracer = logger, metrics, tracer }
}

// NewBaseTool builds a BaseTool bound to one LLM model, repair pipeline,
// host bridge, and code-to-Task runner.
func NewBaseTool[H any](spec CodeGenSpec, facade *llm.Facade, model string, pipeline *coderepair.Pipeline, br *bridge.Bridge[H], runner CodeRunner[H], opts ...Option[H]) *BaseTool[H] {
	if spec.MaxRetries <= 0 {
		spec.MaxRetries = 2
	}
	t := &BaseTool[H]{spec: spec, facade: facade, model: model, pipeline: pipeline, bridge: br, runner: runner}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Descriptor builds the models.ToolDescriptor the registry and agent loop
// see, wiring Handler to Run.
func (t *BaseTool[H]) Descriptor() models.ToolDescriptor {
	return models.ToolDescriptor{
		Name:         t.spec.Name,
		Description:  t.spec.Description,
		ReturnDirect: t.spec.ReturnDirect,
		Handler: func(ctx context.Context, tc models.ToolContext, input string) models.ToolResult {
			return t.Run(ctx, tc, input)
		},
	}
}

// Run implements the generate/repair/submit/retry contract (§4.5). A
// retry re-prompts the LLM with the original request, the code that
// failed, and the failure text, exactly once per remaining attempt.
func (t *BaseTool[H]) Run(ctx context.Context, tc models.ToolContext, input string) models.ToolResult {
	var lastErr string
	var failedCode string

	for attempt := 0; attempt <= t.spec.MaxRetries; attempt++ {
		generated, err := t.generate(ctx, input, failedCode, lastErr)
		if err != nil {
			return models.ErrorResult(tc.ToolCallID, "GenerationFailed", err.Error(), "")
		}

		prepared, repairErr := t.prepare(ctx, generated)
		if repairErr != nil {
			lastErr = repairErr.Error()
			failedCode = generated
			continue
		}

		t.lastGeneratedCode = prepared

		value, guard, submitErr := t.bridge.Submit(ctx, t.runner(prepared))
		if submitErr != nil {
			return models.ErrorResult(tc.ToolCallID, "BridgeUnavailable", submitErr.Error(), "")
		}
		if guard != nil {
			lastErr = guard.Error()
			failedCode = prepared
			continue
		}

		text, _ := value.(string)
		return models.SuccessResult(tc.ToolCallID, text)
	}

	return models.ErrorResult(tc.ToolCallID, "ToolExecutionFailed",
		fmt.Sprintf("exhausted %d attempt(s); last error: %s", t.spec.MaxRetries+1, lastErr), "")
}

func (t *BaseTool[H]) generate(ctx context.Context, input, previousCode, previousError string) (string, error) {
	variables := map[string]string{
		"input":               input,
		"instructions":        genericCodegenPreamble + t.spec.Instructions,
		"last_generated_code": t.lastGeneratedCode,
	}
	if previousCode != "" {
		variables["previous_code"] = previousCode
		variables["previous_error"] = previousError
	}

	messages, err := t.facade.Generate(ctx, t.model, t.spec.PromptTemplate, variables, 0.0)
	if err != nil {
		return "", err
	}
	var out string
	for _, m := range messages {
		out += m.Content
	}
	return out, nil
}

func (t *BaseTool[H]) prepare(ctx context.Context, rawCode string) (string, error) {
	result, err := t.pipeline.Run(ctx, t.spec.CodePrefix+rawCode, t.spec.RepairOptions)
	if err != nil {
		return "", err
	}
	return result.Code, nil
}
