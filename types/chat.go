package types

import (
	"context"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of the conversation shown to the user.
type ChatMessage struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// ToolCall records a tool invocation made while answering.
type ToolCall struct {
	Name   string `json:"name"`
	Input  string `json:"input"`
	Output string `json:"output"`
}

// RunEventType discriminates RunEvent payloads.
type RunEventType string

const (
	RunEventContent    RunEventType = "content"
	RunEventToolCall   RunEventType = "tool_call"
	RunEventReferences RunEventType = "references"
)

// RunEvent is one item of a streamed agent response. Exactly one of the
// optional fields is set, according to Type.
type RunEvent struct {
	Type       RunEventType `json:"type"`
	Content    string       `json:"content,omitempty"`
	ToolCall   *ToolCall    `json:"tool_call,omitempty"`
	References []Document   `json:"references,omitempty"`
}

func ContentEvent(fragment string) RunEvent {
	return RunEvent{Type: RunEventContent, Content: fragment}
}

func ToolCallEvent(call ToolCall) RunEvent {
	return RunEvent{Type: RunEventToolCall, ToolCall: &call}
}

func ReferencesEvent(docs []Document) RunEvent {
	return RunEvent{Type: RunEventReferences, References: docs}
}

// StreamHandler receives agent output as it is produced. Returning an error
// aborts the run.
type StreamHandler func(event RunEvent) error

// FunctionHandler is a type for handling function calls
type FunctionHandler func(ctx context.Context, args []byte) (string, error)

// Message is a provider-neutral conversation entry sent to a model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type ChatResponse struct {
	SessionID string       `json:"session_id"`
	Message   *ChatMessage `json:"message"`
}
