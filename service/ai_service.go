package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/tieubaoca/support-assistant/types"
)

var (
	ErrNoResponse  = errors.New("no response generated")
	ErrUnknownTool = errors.New("unknown function")
	ErrToolRounds  = errors.New("too many tool call rounds")
)

// ToolParameter is a required string argument of a Tool.
type ToolParameter struct {
	Name        string
	Description string
}

// Tool is a function the model may call while answering.
type Tool struct {
	Name        string
	Description string
	Parameters  []ToolParameter
	Handler     types.FunctionHandler
}

// ChatRequest is a provider-neutral model invocation.
type ChatRequest struct {
	SystemPrompt string
	History      []types.Message
	Prompt       string
	Tools        []Tool
}

// ChatModel runs one model turn, executing tool calls until the model
// produces its final answer. Text fragments and tool invocations are
// reported to handler in the order they happen.
type ChatModel interface {
	ChatStream(ctx context.Context, req ChatRequest, handler types.StreamHandler) error
}

func toolIndex(tools []Tool) map[string]Tool {
	m := make(map[string]Tool, len(tools))
	for _, t := range tools {
		m[t.Name] = t
	}
	return m
}

// callTool executes a tool and reports the call. Handler failures are
// returned to the model as the tool output so it can recover.
func callTool(ctx context.Context, tools map[string]Tool, name string, args []byte, handler types.StreamHandler) (string, error) {
	tool, ok := tools[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	output, err := tool.Handler(ctx, args)
	if err != nil {
		output = fmt.Sprintf("error: %v", err)
	}
	if err := handler(types.ToolCallEvent(types.ToolCall{
		Name:   name,
		Input:  string(args),
		Output: output,
	})); err != nil {
		return "", err
	}
	return output, nil
}
