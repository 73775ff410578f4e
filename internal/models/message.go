// Package models defines the core data types shared across the agent loop,
// the host bridge, the code-repair pipeline, and the peer services: messages,
// conversation history, tool descriptors/results, bridge tasks, exception
// guards, and peer records.
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a message block.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// BlockType identifies the kind of content carried by a Block.
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockToolCall   BlockType = "tool_call"
	BlockToolResult BlockType = "tool_result"
	BlockError      BlockType = "error"
)

// Block is one typed unit of message content. A Message is an ordered
// sequence of Blocks; most messages carry exactly one.
type Block struct {
	Type       BlockType       `json:"type"`
	Text       string          `json:"text,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
	ToolName   string          `json:"tool_name,omitempty"`
	Input      json.RawMessage `json:"input,omitempty"`
	Result     *ToolResult     `json:"result,omitempty"`
	ErrorText  string          `json:"error_text,omitempty"`
}

// Message is an ordered, append-only sequence of typed blocks produced by a
// single role within one turn.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Blocks    []Block   `json:"blocks"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTextMessage builds a single-block text message for the given role.
func NewTextMessage(role Role, text string) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Role:      role,
		Blocks:    []Block{{Type: BlockText, Text: text}},
		CreatedAt: time.Now(),
	}
}

// Text concatenates all text blocks of the message.
func (m *Message) Text() string {
	var out string
	for _, b := range m.Blocks {
		if b.Type == BlockText {
			out += b.Text
		}
	}
	return out
}

// ToolCall represents an LLM's request to invoke a tool by name with a
// single free-text input field (see ToolDescriptor).
type ToolCall struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Input string `json:"input"`
}

// ToolResult is a tagged Success/Error union. Errors are values: they are
// never raised across the agent<->tool boundary (see ExceptionGuard for the
// bridge<->task boundary, which is the one place a Go panic/error is
// captured rather than propagated as a value).
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Success    bool   `json:"success"`
	Text       string `json:"text,omitempty"`
	ErrorKind  string `json:"error_kind,omitempty"`
	ErrorMsg   string `json:"error_msg,omitempty"`
	Traceback  string `json:"traceback,omitempty"`
}

// SuccessResult builds a Success-typed ToolResult.
func SuccessResult(toolCallID, text string) ToolResult {
	return ToolResult{ToolCallID: toolCallID, Success: true, Text: text}
}

// ErrorResult builds an Error-typed ToolResult.
func ErrorResult(toolCallID, kind, msg, traceback string) ToolResult {
	return ToolResult{
		ToolCallID: toolCallID,
		Success:    false,
		ErrorKind:  kind,
		ErrorMsg:   msg,
		Traceback:  traceback,
	}
}

// AsText renders the result the way the agent sees it: a plain string,
// prefixed with "Error:" for the Error variant, matching C5's §4.5 step 5
// convention so the outer loop can reason about failures textually.
func (r ToolResult) AsText() string {
	if r.Success {
		return r.Text
	}
	if r.Traceback != "" {
		return "Error: " + r.ErrorKind + ": " + r.ErrorMsg + "\n" + r.Traceback
	}
	return "Error: " + r.ErrorKind + ": " + r.ErrorMsg
}
