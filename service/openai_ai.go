package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/tieubaoca/support-assistant/types"
	"go.uber.org/zap"
)

type OpenAIService struct {
	client        *openai.Client
	model         string
	maxToolRounds int
	logger        *zap.Logger
}

func NewOpenAIService(baseURL, apiKey, model string, maxToolRounds int, logger *zap.Logger) *OpenAIService {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if maxToolRounds <= 0 {
		maxToolRounds = 5
	}
	return &OpenAIService{
		client:        openai.NewClientWithConfig(config),
		model:         model,
		maxToolRounds: maxToolRounds,
		logger:        logger,
	}
}

// Client exposes the underlying client so the embedder can share it.
func (s *OpenAIService) Client() *openai.Client {
	return s.client
}

func openaiTool(tool Tool) openai.Tool {
	params := jsonschema.Definition{
		Type:       jsonschema.Object,
		Properties: make(map[string]jsonschema.Definition, len(tool.Parameters)),
		Required:   make([]string, 0, len(tool.Parameters)),
	}
	for _, p := range tool.Parameters {
		params.Properties[p.Name] = jsonschema.Definition{
			Type:        jsonschema.String,
			Description: p.Description,
		}
		params.Required = append(params.Required, p.Name)
	}
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  params,
		},
	}
}

func openaiMessages(req ChatRequest) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	for _, msg := range req.History {
		role := openai.ChatMessageRoleUser
		if msg.Role == types.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}
	return append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})
}

func (s *OpenAIService) ChatStream(ctx context.Context, req ChatRequest, handler types.StreamHandler) error {
	messages := openaiMessages(req)
	tools := toolIndex(req.Tools)
	defs := make([]openai.Tool, 0, len(req.Tools))
	for _, t := range req.Tools {
		defs = append(defs, openaiTool(t))
	}

	answered := false
	for round := 0; ; round++ {
		reply, err := s.streamOnce(ctx, messages, defs, handler)
		if err != nil {
			return err
		}
		answered = answered || reply.Content != ""
		if len(reply.ToolCalls) == 0 {
			if !answered {
				return ErrNoResponse
			}
			return nil
		}
		if round >= s.maxToolRounds {
			return fmt.Errorf("%w (%d)", ErrToolRounds, s.maxToolRounds)
		}

		messages = append(messages, reply)
		for _, toolCall := range reply.ToolCalls {
			s.logger.Debug("Handle function call",
				zap.String("function", toolCall.Function.Name),
				zap.String("args", toolCall.Function.Arguments),
			)
			result, err := callTool(ctx, tools, toolCall.Function.Name, []byte(toolCall.Function.Arguments), handler)
			if err != nil {
				return err
			}
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    result,
				Name:       toolCall.Function.Name,
				ToolCallID: toolCall.ID,
			})
		}
	}
}

// streamOnce forwards content deltas and reassembles the assistant message,
// including tool calls whose arguments arrive in fragments.
func (s *OpenAIService) streamOnce(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool, handler types.StreamHandler) (openai.ChatCompletionMessage, error) {
	request := openai.ChatCompletionRequest{
		Model:    s.model,
		Messages: messages,
		Stream:   true,
	}
	if len(tools) > 0 {
		request.Tools = tools
	}
	stream, err := s.client.CreateChatCompletionStream(ctx, request)
	if err != nil {
		return openai.ChatCompletionMessage{}, fmt.Errorf("openai stream: %w", err)
	}
	defer stream.Close()

	var content strings.Builder
	calls := make(map[int]*openai.ToolCall)
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return openai.ChatCompletionMessage{}, fmt.Errorf("openai stream: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta
		if delta.Content != "" {
			content.WriteString(delta.Content)
			if err := handler(types.ContentEvent(delta.Content)); err != nil {
				return openai.ChatCompletionMessage{}, err
			}
		}
		for i, tc := range delta.ToolCalls {
			idx := i
			if tc.Index != nil {
				idx = *tc.Index
			}
			call, ok := calls[idx]
			if !ok {
				call = &openai.ToolCall{Type: openai.ToolTypeFunction}
				calls[idx] = call
			}
			if tc.ID != "" {
				call.ID = tc.ID
			}
			if tc.Function.Name != "" {
				call.Function.Name = tc.Function.Name
			}
			call.Function.Arguments += tc.Function.Arguments
		}
	}

	reply := openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleAssistant,
		Content: content.String(),
	}
	indexes := make([]int, 0, len(calls))
	for idx := range calls {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	for _, idx := range indexes {
		reply.ToolCalls = append(reply.ToolCalls, *calls[idx])
	}
	return reply, nil
}
