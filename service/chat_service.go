package service

import (
	"context"
	"fmt"
	"time"

	"github.com/tieubaoca/support-assistant/metrics"
	"github.com/tieubaoca/support-assistant/types"
	"go.uber.org/zap"
)

// AgentFactory builds the agent for a session's first turn.
type AgentFactory func(session *Session) *SupportAgent

// ChatService runs conversation turns for both the terminal and the web UI.
type ChatService struct {
	newAgent AgentFactory
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewChatService(newAgent AgentFactory, m *metrics.Metrics, logger *zap.Logger) *ChatService {
	return &ChatService{newAgent: newAgent, metrics: m, logger: logger}
}

// HandleTurn records prompt, runs the agent and records its answer. Events
// are forwarded to render while the answer streams. A failed turn is
// recorded as an apology carrying the error text, so the conversation can
// continue; the returned message is what was appended.
func (c *ChatService) HandleTurn(ctx context.Context, session *Session, prompt string, render types.StreamHandler) types.ChatMessage {
	session.turn.Lock()
	defer session.turn.Unlock()
	start := time.Now()

	session.mu.Lock()
	session.appendMessage(types.ChatMessage{Role: types.RoleUser, Content: prompt})
	agent := session.agent
	if agent == nil {
		agent = c.newAgent(session)
		session.agent = agent
	}
	session.mu.Unlock()

	result, err := c.run(ctx, agent, prompt, render)

	reply := types.ChatMessage{
		Role:      types.RoleAssistant,
		Content:   result.Content,
		ToolCalls: result.ToolCalls,
	}
	status := "ok"
	if err != nil {
		status = "error"
		c.logger.Error("Chat turn failed", zap.String("session_id", session.ID), zap.Error(err))
		reply = types.ChatMessage{
			Role:    types.RoleAssistant,
			Content: fmt.Sprintf("Sorry, I encountered an error: %v", err),
		}
	}
	reply.CreatedAt = time.Now()

	session.mu.Lock()
	session.appendMessage(reply)
	session.mu.Unlock()

	c.metrics.ChatTurn(status, time.Since(start))
	return reply
}

func (c *ChatService) run(ctx context.Context, agent *SupportAgent, prompt string, render types.StreamHandler) (result RunResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return agent.Run(ctx, prompt, render)
}
