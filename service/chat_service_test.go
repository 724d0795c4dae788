package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/support-assistant/database"
	"github.com/tieubaoca/support-assistant/metrics"
	"github.com/tieubaoca/support-assistant/repository"
	"github.com/tieubaoca/support-assistant/types"
	"go.uber.org/zap"
)

func newTestSessions() *SessionManager {
	return NewSessionManager(repository.NewSessionRepo[*Session](time.Hour, time.Minute), zap.NewNop())
}

func TestHandleTurnAppendsMessages(t *testing.T) {
	retriever := &staticRetriever{docs: []types.Document{faqDoc}}
	chat := NewChatService(func(s *Session) *SupportAgent {
		return NewSupportAgent(echoModel("Refund in 5-7 days."), retriever, nil, AgentOptions{NumHistoryResponses: 3}, nil, zap.NewNop())
	}, metrics.New(), zap.NewNop())
	session := newTestSessions().Create("u1")

	var fragments []string
	reply := chat.HandleTurn(context.Background(), session, "My payment failed", func(e types.RunEvent) error {
		if e.Type == types.RunEventContent {
			fragments = append(fragments, e.Content)
		}
		return nil
	})

	assert.Equal(t, "Refund in 5-7 days.", reply.Content)
	assert.Equal(t, "Refund in 5-7 days.", strings.Join(fragments, ""))
	msgs := session.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, types.RoleUser, msgs[0].Role)
	assert.Equal(t, "My payment failed", msgs[0].Content)
	assert.Equal(t, types.RoleAssistant, msgs[1].Role)
}

func TestHandleTurnConvertsErrorsAndPanics(t *testing.T) {
	calls := 0
	model := &fakeModel{respond: func(ctx context.Context, req ChatRequest, handler types.StreamHandler) error {
		calls++
		switch calls {
		case 1:
			return errors.New("model unavailable")
		case 2:
			panic("nil pointer")
		}
		return handler(types.ContentEvent("back online"))
	}}
	chat := NewChatService(func(s *Session) *SupportAgent {
		return NewSupportAgent(model, &staticRetriever{}, nil, AgentOptions{NumHistoryResponses: 3}, nil, zap.NewNop())
	}, nil, zap.NewNop())
	session := newTestSessions().Create("")

	r1 := chat.HandleTurn(context.Background(), session, "one", nil)
	assert.Equal(t, "Sorry, I encountered an error: model unavailable", r1.Content)
	r2 := chat.HandleTurn(context.Background(), session, "two", nil)
	assert.Equal(t, "Sorry, I encountered an error: panic: nil pointer", r2.Content)
	r3 := chat.HandleTurn(context.Background(), session, "three", nil)
	assert.Equal(t, "back online", r3.Content)

	assert.Len(t, session.Messages(), 6)
}

func TestResetForcesNewAgent(t *testing.T) {
	var mu sync.Mutex
	built := 0
	model := echoModel("hi there")
	chat := NewChatService(func(s *Session) *SupportAgent {
		mu.Lock()
		built++
		mu.Unlock()
		return NewSupportAgent(model, &staticRetriever{}, nil, AgentOptions{NumHistoryResponses: 3}, nil, zap.NewNop())
	}, nil, zap.NewNop())
	sessions := newTestSessions()
	session := sessions.Create("")

	chat.HandleTurn(context.Background(), session, "first", nil)
	chat.HandleTurn(context.Background(), session, "second", nil)
	assert.Equal(t, 1, built)

	_, err := sessions.Reset(session.ID)
	require.NoError(t, err)
	assert.Empty(t, session.Messages())

	chat.HandleTurn(context.Background(), session, "third", nil)
	assert.Equal(t, 2, built)

	reqs := model.calls()
	require.Len(t, reqs, 3)
	assert.Len(t, reqs[1].History, 2)
	assert.Empty(t, reqs[2].History, "fresh agent has no memory")
}

func TestSessionManagerLifecycle(t *testing.T) {
	sessions := newTestSessions()
	s := sessions.Create("u")

	got, err := sessions.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, sessions.Destroy(s.ID))
	_, err = sessions.Get(s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, sessions.Destroy(s.ID), ErrSessionNotFound)
	_, err = sessions.Reset("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

// End to end: empty store, eight help pages, one question.
func TestEndToEndPaymentFailedQuestion(t *testing.T) {
	ctx := context.Background()
	site := newHelpSite(t)
	store, err := database.NewSQLiteStore(filepath.Join(t.TempDir(), "db", "CustomerSupport.db"), zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	embedder := &hashEmbedder{}
	ingest := newTestIngest(t, store, embedder)
	report, err := ingest.EnsureIngested(ctx, site.sources(defaultSourceIDs...))
	require.NoError(t, err)
	count, err := store.Count(ctx)
	require.NoError(t, err)
	require.Greater(t, count, 0)
	assert.Equal(t, report.ChunkCount, count)

	retriever := NewVectorRetriever(store, embedder, 4)
	model := &fakeModel{respond: func(ctx context.Context, req ChatRequest, handler types.StreamHandler) error {
		out, err := callTool(ctx, toolIndex(req.Tools), ToolSearchKnowledgeBase, []byte(`{"query":"payment failed refund"}`), handler)
		if err != nil {
			return err
		}
		if !strings.Contains(out, "source_id") {
			return errors.New("no references")
		}
		return handler(types.ContentEvent("Failed payments are refunded within 5-7 working days. Source: " + site.srv.URL))
	}}
	chat := NewChatService(func(s *Session) *SupportAgent {
		return NewSupportAgent(model, retriever, nil, AgentOptions{NumHistoryResponses: 3}, nil, zap.NewNop())
	}, nil, zap.NewNop())
	session := newTestSessions().Create("")

	var refs []types.Document
	reply := chat.HandleTurn(ctx, session, "My payment failed", func(e types.RunEvent) error {
		if e.Type == types.RunEventReferences {
			refs = e.References
		}
		return nil
	})

	assert.NotEmpty(t, reply.Content)
	assert.NotContains(t, reply.Content, "Sorry")
	require.NotEmpty(t, refs)
	assert.Contains(t, reply.Content, site.srv.URL)
	assert.Contains(t, refs[0].Metadata.Source, site.srv.URL)
	require.Len(t, reply.ToolCalls, 1)
}
