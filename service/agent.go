package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tieubaoca/support-assistant/metrics"
	"github.com/tieubaoca/support-assistant/types"
	"go.uber.org/zap"
)

const (
	ToolSearchKnowledgeBase = "search_knowledge_base"
	ToolWebSearch           = "web_search"
)

type AgentOptions struct {
	Name                string
	UserID              string
	SessionID           string
	NumHistoryResponses int
	Markdown            bool
	DebugMode           bool
}

// RunResult is the completed answer of one Run.
type RunResult struct {
	Content    string
	ToolCalls  []types.ToolCall
	References []types.Document
}

type exchange struct {
	question  string
	answer    string
	toolCalls []types.ToolCall
}

// SupportAgent answers one question at a time, grounding each answer in
// knowledge-base references and remembering the last few exchanges.
type SupportAgent struct {
	model     ChatModel
	retriever Retriever
	web       WebSearcher
	opts      AgentOptions
	metrics   *metrics.Metrics
	logger    *zap.Logger

	mu     sync.Mutex
	memory []exchange
}

// NewSupportAgent builds an agent. web may be nil when no search engine is
// configured.
func NewSupportAgent(model ChatModel, retriever Retriever, web WebSearcher, opts AgentOptions, m *metrics.Metrics, logger *zap.Logger) *SupportAgent {
	if opts.NumHistoryResponses < 0 {
		opts.NumHistoryResponses = 0
	}
	return &SupportAgent{
		model:     model,
		retriever: retriever,
		web:       web,
		opts:      opts,
		metrics:   m,
		logger: logger.With(
			zap.String("agent", opts.Name),
			zap.String("session_id", opts.SessionID),
			zap.String("user_id", opts.UserID),
		),
	}
}

type queryArgs struct {
	Query string `json:"query"`
}

func parseQuery(args []byte) (string, error) {
	var q queryArgs
	if err := json.Unmarshal(args, &q); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if strings.TrimSpace(q.Query) == "" {
		return "", fmt.Errorf("query must not be empty")
	}
	return q.Query, nil
}

func (a *SupportAgent) tools() []Tool {
	tools := []Tool{{
		Name:        ToolSearchKnowledgeBase,
		Description: "Search the JioPay help-center knowledge base. Returns the most relevant passages with their source IDs and URLs.",
		Parameters:  []ToolParameter{{Name: "query", Description: "The search query"}},
		Handler: func(ctx context.Context, args []byte) (string, error) {
			query, err := parseQuery(args)
			if err != nil {
				return "", err
			}
			docs, err := a.retriever.Retrieve(ctx, query)
			if err != nil {
				return "", err
			}
			return referencesJSON(docs)
		},
	}}
	if a.web != nil {
		tools = append(tools, Tool{
			Name:        ToolWebSearch,
			Description: "Search the web for up-to-date information. Returns titles, links and snippets.",
			Parameters:  []ToolParameter{{Name: "query", Description: "The search query"}},
			Handler: func(ctx context.Context, args []byte) (string, error) {
				query, err := parseQuery(args)
				if err != nil {
					return "", err
				}
				return a.web.SearchJSON(ctx, query)
			},
		})
	}
	return tools
}

type reference struct {
	SourceID string `json:"source_id"`
	Source   string `json:"source"`
	Title    string `json:"title,omitempty"`
	Content  string `json:"content"`
}

func referencesJSON(docs []types.Document) (string, error) {
	refs := make([]reference, 0, len(docs))
	for _, d := range docs {
		refs = append(refs, reference{
			SourceID: d.Metadata.SourceID,
			Source:   d.Metadata.Source,
			Title:    d.Metadata.Title,
			Content:  d.Content,
		})
	}
	b, err := json.Marshal(refs)
	if err != nil {
		return "", fmt.Errorf("failed to marshal references: %w", err)
	}
	return string(b), nil
}

// withReferences appends the retrieved passages to the user's question.
func withReferences(question string, docs []types.Document) (string, error) {
	if len(docs) == 0 {
		return question, nil
	}
	refs, err := referencesJSON(docs)
	if err != nil {
		return "", err
	}
	return question + "\n\nUse the following references from the knowledge base if it helps:\n<references>\n" +
		refs + "\n</references>", nil
}

func (a *SupportAgent) history() []types.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	messages := make([]types.Message, 0, 2*len(a.memory))
	for _, ex := range a.memory {
		answer := ex.answer
		if len(ex.toolCalls) > 0 {
			names := make([]string, 0, len(ex.toolCalls))
			for _, tc := range ex.toolCalls {
				names = append(names, fmt.Sprintf("%s(%s)", tc.Name, tc.Input))
			}
			answer += "\n\n[tool calls: " + strings.Join(names, ", ") + "]"
		}
		messages = append(messages,
			types.Message{Role: types.RoleUser, Content: ex.question},
			types.Message{Role: types.RoleAssistant, Content: answer},
		)
	}
	return messages
}

func (a *SupportAgent) remember(ex exchange) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.opts.NumHistoryResponses == 0 {
		return
	}
	a.memory = append(a.memory, ex)
	if over := len(a.memory) - a.opts.NumHistoryResponses; over > 0 {
		a.memory = append([]exchange(nil), a.memory[over:]...)
	}
}

// Run answers question, streaming events to handler. The references event
// always comes first.
func (a *SupportAgent) Run(ctx context.Context, question string, handler types.StreamHandler) (RunResult, error) {
	if handler == nil {
		handler = func(types.RunEvent) error { return nil }
	}
	var result RunResult

	refs, err := a.retriever.Retrieve(ctx, question)
	if err != nil {
		return result, fmt.Errorf("retrieve references: %w", err)
	}
	result.References = refs
	if err := handler(types.ReferencesEvent(refs)); err != nil {
		return result, err
	}

	prompt, err := withReferences(question, refs)
	if err != nil {
		return result, err
	}
	req := ChatRequest{
		SystemPrompt: BuildSystemPrompt(PromptOptions{
			Markdown:  a.opts.Markdown,
			WebSearch: a.web != nil,
			Now:       time.Now(),
		}),
		History: a.history(),
		Prompt:  prompt,
		Tools:   a.tools(),
	}
	if a.opts.DebugMode {
		a.logger.Debug("Running agent",
			zap.Int("history", len(req.History)),
			zap.Int("references", len(refs)),
			zap.String("prompt", prompt),
		)
	}

	var content strings.Builder
	err = a.model.ChatStream(ctx, req, func(event types.RunEvent) error {
		switch event.Type {
		case types.RunEventContent:
			content.WriteString(event.Content)
		case types.RunEventToolCall:
			if event.ToolCall != nil {
				result.ToolCalls = append(result.ToolCalls, *event.ToolCall)
				a.metrics.ToolCall(event.ToolCall.Name)
			}
		}
		return handler(event)
	})
	result.Content = content.String()
	if err != nil {
		return result, err
	}

	a.remember(exchange{question: question, answer: result.Content, toolCalls: result.ToolCalls})
	return result, nil
}
