package main

import (
	"fmt"
	"sync"

	"github.com/nexus-vision/agentcore/internal/bridge"
	"github.com/nexus-vision/agentcore/internal/coderepair"
	"github.com/nexus-vision/agentcore/internal/llm"
	"github.com/nexus-vision/agentcore/internal/models"
	"github.com/nexus-vision/agentcore/internal/registry"
	"github.com/nexus-vision/agentcore/internal/tools"
)

// FakeHost stands in for a real host application (§6 "Host handle"): it
// never opens a window or evaluates code, it only records what a tool
// submitted, matching SPEC_FULL.md's framing that nexusvision wires a fake
// host for local testing rather than a concrete viewer integration.
type FakeHost struct {
	mu       sync.Mutex
	executed []string
}

// NewFakeHost builds an empty FakeHost.
func NewFakeHost() *FakeHost {
	return &FakeHost{}
}

func (h *FakeHost) record(code string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.executed = append(h.executed, code)
}

// Executed returns every code string submitted through the bridge so far.
func (h *FakeHost) Executed() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.executed))
	copy(out, h.executed)
	return out
}

// fakeCodeRunner builds the CodeRunner a BaseTool/WidgetMakerTool submits
// to the bridge: recording the prepared code against the fake host and
// returning an acknowledgement string as the tool's visible result.
func fakeCodeRunner(label string) tools.CodeRunner[*FakeHost] {
	return func(code string) models.Task[*FakeHost] {
		return func(host *FakeHost) (any, error) {
			host.record(code)
			return fmt.Sprintf("%s: executed %d line(s) against the fake host", label, lineCount(code)), nil
		}
	}
}

func lineCount(s string) int {
	n := 1
	for _, r := range s {
		if r == '\n' {
			n++
		}
	}
	return n
}

// buildFakeTools is the session.ToolFactory for the fake host: it registers
// one code-generating tool and the widget-maker sub-agent tool, both bound
// to fakeCodeRunner, demonstrating the C5/C6 contract without a real host.
func buildFakeTools(reg *registry.Registry, br *bridge.Bridge[*FakeHost], subAgent tools.SubAgentRunner, pipeline *coderepair.Pipeline, facade *llm.Facade, model string) {
	runCode := tools.NewBaseTool(tools.CodeGenSpec{
		Name:        "run_code",
		Description: "Generate and execute Python code against the host viewer.",
		PromptTemplate: "Write Python code to satisfy this request: {input}\n\n{instructions}\n" +
			"Previously failed code:\n{previous_code}\nError:\n{previous_error}",
		Instructions:  "Use the host handle already in scope. Do not import viewer libraries that are not already available.",
		RepairOptions: coderepair.Options{Stages: coderepair.AllStages(), MaxRounds: 2},
	}, facade, model, pipeline, br, fakeCodeRunner("run_code"))

	if err := reg.Register(runCode.Descriptor()); err != nil {
		panic(fmt.Sprintf("nexusvision: failed to register run_code tool: %v", err))
	}

	widgetMaker := tools.NewWidgetMakerTool(tools.WidgetMakerConfig{
		SystemPromptTemplate: "You build a single widget for the host viewer. Submit code via submit_widget_code.",
		RepairOptions:        coderepair.Options{Stages: coderepair.AllStages(), MaxRounds: 2},
	}, facade, model, pipeline, br, fakeCodeRunner("make_widget"), subAgent)

	if err := reg.Register(widgetMaker.Descriptor()); err != nil {
		panic(fmt.Sprintf("nexusvision: failed to register widget_maker tool: %v", err))
	}
}
