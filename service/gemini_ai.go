package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/tieubaoca/support-assistant/types"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type GeminiService struct {
	client        *genai.Client
	modelName     string
	maxToolRounds int
	logger        *zap.Logger
}

// NewGeminiService creates a Gemini chat model. Extra client options are
// appended after the API key.
func NewGeminiService(ctx context.Context, apiKey, modelName string, maxToolRounds int, logger *zap.Logger, opts ...option.ClientOption) (*GeminiService, error) {
	if apiKey == "" {
		return nil, errors.New("no API key provided")
	}
	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	if maxToolRounds <= 0 {
		maxToolRounds = 5
	}
	return &GeminiService{
		client:        client,
		modelName:     modelName,
		maxToolRounds: maxToolRounds,
		logger:        logger,
	}, nil
}

func (s *GeminiService) Close() error {
	return s.client.Close()
}

// Client exposes the underlying client so the embedder can share it.
func (s *GeminiService) Client() *genai.Client {
	return s.client
}

// newModel builds a per-request model so concurrent sessions do not share
// system instructions or tool lists.
func (s *GeminiService) newModel(req ChatRequest) *genai.GenerativeModel {
	model := s.client.GenerativeModel(s.modelName)
	if req.SystemPrompt != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(req.SystemPrompt))
	}
	for _, tool := range req.Tools {
		model.Tools = append(model.Tools, &genai.Tool{
			FunctionDeclarations: []*genai.FunctionDeclaration{geminiDeclaration(tool)},
		})
	}
	return model
}

func geminiDeclaration(tool Tool) *genai.FunctionDeclaration {
	decl := &genai.FunctionDeclaration{
		Name:        tool.Name,
		Description: tool.Description,
		Parameters: &genai.Schema{
			Type:       genai.TypeObject,
			Properties: make(map[string]*genai.Schema, len(tool.Parameters)),
			Required:   make([]string, 0, len(tool.Parameters)),
		},
	}
	for _, p := range tool.Parameters {
		decl.Parameters.Properties[p.Name] = &genai.Schema{
			Type:        genai.TypeString,
			Description: p.Description,
		}
		decl.Parameters.Required = append(decl.Parameters.Required, p.Name)
	}
	return decl
}

func geminiHistory(messages []types.Message) []*genai.Content {
	history := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		role := "user"
		if msg.Role == types.RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{
			Parts: []genai.Part{genai.Text(msg.Content)},
			Role:  role,
		})
	}
	return history
}

func (s *GeminiService) ChatStream(ctx context.Context, req ChatRequest, handler types.StreamHandler) error {
	chat := s.newModel(req).StartChat()
	chat.History = geminiHistory(req.History)
	tools := toolIndex(req.Tools)

	parts := []genai.Part{genai.Text(req.Prompt)}
	answered := false
	for round := 0; ; round++ {
		calls, produced, err := s.streamOnce(ctx, chat, parts, handler)
		if err != nil {
			return err
		}
		answered = answered || produced
		if len(calls) == 0 {
			if !answered {
				return ErrNoResponse
			}
			return nil
		}
		if round >= s.maxToolRounds {
			return fmt.Errorf("%w (%d)", ErrToolRounds, s.maxToolRounds)
		}

		parts = make([]genai.Part, 0, len(calls))
		for _, call := range calls {
			args, err := json.Marshal(call.Args)
			if err != nil {
				return fmt.Errorf("failed to marshal function args: %w", err)
			}
			s.logger.Debug("Handle function call", zap.String("function", call.Name), zap.ByteString("args", args))
			result, err := callTool(ctx, tools, call.Name, args, handler)
			if err != nil {
				return err
			}
			parts = append(parts, genai.FunctionResponse{
				Name:     call.Name,
				Response: map[string]any{"result": result},
			})
		}
	}
}

// streamOnce sends parts and forwards text as it arrives. It returns the
// function calls requested by the model, if any.
func (s *GeminiService) streamOnce(ctx context.Context, chat *genai.ChatSession, parts []genai.Part, handler types.StreamHandler) ([]genai.FunctionCall, bool, error) {
	iter := chat.SendMessageStream(ctx, parts...)
	var (
		calls    []genai.FunctionCall
		produced bool
	)
	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, produced, fmt.Errorf("gemini stream: %w", err)
		}
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				switch p := part.(type) {
				case genai.Text:
					if p == "" {
						continue
					}
					produced = true
					if err := handler(types.ContentEvent(string(p))); err != nil {
						return nil, produced, err
					}
				case genai.FunctionCall:
					calls = append(calls, p)
				}
			}
		}
	}
	return calls, produced, nil
}
