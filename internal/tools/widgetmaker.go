package tools

import (
	"context"
	"fmt"
	"regexp"

	"github.com/nexus-vision/agentcore/internal/bridge"
	"github.com/nexus-vision/agentcore/internal/coderepair"
	"github.com/nexus-vision/agentcore/internal/llm"
	"github.com/nexus-vision/agentcore/internal/models"
	"github.com/nexus-vision/agentcore/internal/registry"
)

// submitWidgetCodeTool is the name of the single tool exposed to the
// widget-maker's nested sub-agent (C6), grounded on
// widget_maker_tool.py's _WidgetCodeSubmitTool.
const submitWidgetCodeTool = "submit_widget_code"

// SubAgentRunner drives a throwaway one-tool agent loop to completion and
// returns its final text response. It is the seam between this package and
// agentloop, kept as an interface so tools never imports agentloop
// directly (agentloop imports tools' Descriptor shape, not the reverse).
type SubAgentRunner interface {
	RunToCompletion(ctx context.Context, systemPrompt, userInput string, tools *registry.Registry) (string, error)
}

// WidgetMakerConfig configures the nested sub-agent and its bound code
// submission tool.
type WidgetMakerConfig struct {
	SystemPromptTemplate string
	CodePrefix           string
	RepairOptions        coderepair.Options
	MaxAttempts          int // default 3, matching widget_maker_tool.py
}

// WidgetMakerTool is the nested single-tool sub-agent (C6): it spins up a
// fresh sub-agent per invocation whose only tool is submit_widget_code,
// bounds it to MaxAttempts submissions, and returns a STOP sentinel once
// the budget is exhausted so the sub-agent does not retry forever.
type WidgetMakerTool[H any] struct {
	config   WidgetMakerConfig
	facade   *llm.Facade
	model    string
	pipeline *coderepair.Pipeline
	bridge   *bridge.Bridge[H]
	runner   CodeRunner[H]
	subAgent SubAgentRunner
}

// NewWidgetMakerTool builds a WidgetMakerTool.
func NewWidgetMakerTool[H any](config WidgetMakerConfig, facade *llm.Facade, model string, pipeline *coderepair.Pipeline, br *bridge.Bridge[H], runner CodeRunner[H], subAgent SubAgentRunner) *WidgetMakerTool[H] {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	return &WidgetMakerTool[H]{
		config: config, facade: facade, model: model,
		pipeline: pipeline, bridge: br, runner: runner, subAgent: subAgent,
	}
}

// Descriptor builds the outer-facing tool descriptor. ReturnDirect is true,
// matching the original's `return_direct = True`: a widget result is the
// turn's final answer, no further reasoning over it.
func (t *WidgetMakerTool[H]) Descriptor() models.ToolDescriptor {
	return models.ToolDescriptor{
		Name:         "widget_maker",
		Description:  "Creates a napari-style widget from a plain-text description of the requested function and its parameters. The description must fully restate the widget every time, including any requested modifications.",
		ReturnDirect: true,
		Handler: func(ctx context.Context, tc models.ToolContext, input string) models.ToolResult {
			return t.Run(ctx, tc, input)
		},
	}
}

// Run builds a fresh submission counter and submit_widget_code tool for
// this invocation (the counter must reset per call, never shared across
// widget requests), registers it as the sub-agent's only tool, and drives
// the sub-agent to completion.
func (t *WidgetMakerTool[H]) Run(ctx context.Context, tc models.ToolContext, input string) models.ToolResult {
	submit := &submitState[H]{
		maxAttempts: t.config.MaxAttempts,
		pipeline:    t.pipeline,
		codePrefix:  t.config.CodePrefix,
		repairOpts:  t.config.RepairOptions,
		bridge:      t.bridge,
		runner:      t.runner,
	}

	subTools := registry.New()
	_ = subTools.Register(models.ToolDescriptor{
		Name:        submitWidgetCodeTool,
		Description: "Submit widget code for execution. The code argument must contain a complete widget function. Returns 'Success: ...' if the widget was created, or an error message describing what to fix.",
		Handler: func(ctx context.Context, subTC models.ToolContext, code string) models.ToolResult {
			return submit.submit(ctx, subTC, code)
		},
	})

	finalText, err := t.subAgent.RunToCompletion(ctx, t.config.SystemPromptTemplate, input, subTools)
	if err != nil {
		return models.ErrorResult(tc.ToolCallID, "SubAgentFailed", err.Error(), "")
	}

	if submit.lastSuccessfulCode != "" {
		if submit.lastFunctionName != "" {
			return models.SuccessResult(tc.ToolCallID, fmt.Sprintf(
				"The requested widget '%s' has been successfully created and registered to the viewer.", submit.lastFunctionName))
		}
		return models.SuccessResult(tc.ToolCallID, "The requested widget has been successfully created and registered to the viewer.")
	}
	if finalText == "" {
		finalText = "Could not create the requested widget after multiple attempts. Please try rephrasing the request or simplifying the widget."
	}
	return models.SuccessResult(tc.ToolCallID, finalText)
}

// submitState backs one invocation's submit_widget_code tool: its attempt
// counter and last-successful-code slot exist only for the lifetime of one
// Run call, so concurrent widget requests never share a budget.
type submitState[H any] struct {
	maxAttempts int
	attempts    int

	pipeline   *coderepair.Pipeline
	codePrefix string
	repairOpts coderepair.Options
	bridge     *bridge.Bridge[H]
	runner     CodeRunner[H]

	lastSuccessfulCode string
	lastFunctionName   string
}

// functionDefPattern finds the name of the first function defined in a
// block of widget code, grounded on find_function_name's "first def
// statement wins" semantics.
var functionDefPattern = regexp.MustCompile(`(?m)^\s*def\s+(\w+)\s*\(`)

// findFunctionName returns the name of the first function defined in code,
// or "" if none is found.
func findFunctionName(code string) string {
	m := functionDefPattern.FindStringSubmatch(code)
	if m == nil {
		return ""
	}
	return m[1]
}

func (s *submitState[H]) submit(ctx context.Context, tc models.ToolContext, code string) models.ToolResult {
	s.attempts++
	if s.attempts > s.maxAttempts {
		return models.SuccessResult(tc.ToolCallID, fmt.Sprintf(
			"STOP: Maximum attempts (%d) exceeded. The widget could not be created. Do not retry.", s.maxAttempts))
	}

	prepared, err := s.pipeline.Run(ctx, s.codePrefix+code, s.repairOpts)
	if err != nil {
		return models.SuccessResult(tc.ToolCallID, fmt.Sprintf(
			"Error on attempt %d/%d: %s. Please fix the code and call %s again.",
			s.attempts, s.maxAttempts, err.Error(), submitWidgetCodeTool))
	}

	value, guard, submitErr := s.bridge.Submit(ctx, s.runner(prepared.Code))
	if submitErr != nil {
		return models.ErrorResult(tc.ToolCallID, "BridgeUnavailable", submitErr.Error(), "")
	}
	if guard != nil {
		return models.SuccessResult(tc.ToolCallID, fmt.Sprintf(
			"Error on attempt %d/%d: %s: %s\nPlease fix the code and call %s again.",
			s.attempts, s.maxAttempts, guard.ExceptionTypeName, guard.ExceptionValue, submitWidgetCodeTool))
	}

	s.lastSuccessfulCode = prepared.Code
	s.lastFunctionName = findFunctionName(prepared.Code)
	text, _ := value.(string)
	if text == "" {
		if s.lastFunctionName != "" {
			text = fmt.Sprintf("Success: widget '%s' created and docked.", s.lastFunctionName)
		} else {
			text = "Success: widget created and docked."
		}
	}
	return models.SuccessResult(tc.ToolCallID, text)
}
