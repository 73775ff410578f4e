package models

// Sender identifies who produced a ChatEvent.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderAgent Sender = "agent"
)

// ChatEventType enumerates the event kinds the agent loop streams to the
// UI within one turn (§6 "Chat event sink"). Events within a turn are
// emitted in causal order: user, thinking, tool_start, tool_result, ...,
// final (or error).
type ChatEventType string

const (
	ChatEventStream     ChatEventType = "stream"
	ChatEventToolStart  ChatEventType = "tool_start"
	ChatEventToolResult ChatEventType = "tool_result"
	ChatEventThinking   ChatEventType = "thinking"
	ChatEventError      ChatEventType = "error"
	ChatEventFinal      ChatEventType = "final"
)

// ChatEvent is one unit the agent loop (C7) pushes to its event sink.
type ChatEvent struct {
	Sender  Sender
	Type    ChatEventType
	Message string
	// ToolName is set on tool_start/tool_result events.
	ToolName string
}
