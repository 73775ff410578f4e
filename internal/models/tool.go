package models

import "context"

// ToolDescriptor describes one agent-invocable tool for the LLM's benefit:
// a unique name, a human-readable description used by the LLM to decide
// invocation, and a single free-text input field (§3). ReturnDirect, when
// true, short-circuits further reasoning: the tool's result becomes the
// turn's final answer.
type ToolDescriptor struct {
	Name         string
	Description  string
	ReturnDirect bool
	ParallelSafe bool
	Handler      ToolHandler
}

// ToolHandler executes a tool given its free-text input and returns a
// ToolResult. It has no Go error return: failures are encoded as the Error
// variant of ToolResult.
type ToolHandler func(ctx context.Context, tc ToolContext, input string) ToolResult

// ToolContext carries the per-call correlation data a handler needs without
// forcing every tool to import the agent loop package.
type ToolContext struct {
	ToolCallID string
	SessionID  string
}
