package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/support-assistant/types"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// geminiServer answers streamGenerateContent calls with the scripted
// responses, one JSON array per request, and keeps the request bodies.
type geminiServer struct {
	srv *httptest.Server

	mu       sync.Mutex
	requests []map[string]any
}

func newGeminiServer(t *testing.T, respond func(n int) string) *geminiServer {
	t.Helper()
	g := &geminiServer{}
	g.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":streamGenerateContent") {
			http.NotFound(w, r)
			return
		}
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		g.mu.Lock()
		g.requests = append(g.requests, body)
		n := len(g.requests)
		g.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, respond(n))
	}))
	t.Cleanup(g.srv.Close)
	return g
}

func (g *geminiServer) calls() []map[string]any {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]map[string]any(nil), g.requests...)
}

func newTestGemini(t *testing.T, g *geminiServer, maxToolRounds int) *GeminiService {
	t.Helper()
	svc, err := NewGeminiService(context.Background(), "test-key", "gemini-2.0-flash-exp", maxToolRounds, zap.NewNop(),
		option.WithEndpoint(g.srv.URL),
		option.WithHTTPClient(g.srv.Client()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc
}

const (
	geminiToolCall = `[{"candidates":[{"content":{"role":"model","parts":[{"functionCall":{"name":"search_knowledge_base","args":{"query":"refund"}}}]}}]}]`
	geminiAnswer   = `[{"candidates":[{"content":{"role":"model","parts":[{"text":"Refunds take "}]}}]},` +
		`{"candidates":[{"content":{"role":"model","parts":[{"text":"5-7 days."}]},"finishReason":1}]}]`
	geminiEmpty = `[{"candidates":[{"content":{"role":"model","parts":[]},"finishReason":1}]}]`
)

func refundTool(gotArgs *string) Tool {
	return Tool{
		Name:        "search_knowledge_base",
		Description: "search",
		Parameters:  []ToolParameter{{Name: "query", Description: "The search query"}},
		Handler: func(ctx context.Context, args []byte) (string, error) {
			*gotArgs = string(args)
			return "Refunds are credited in 5-7 days.", nil
		},
	}
}

func TestGeminiServiceToolLoop(t *testing.T) {
	g := newGeminiServer(t, func(n int) string {
		if n == 1 {
			return geminiToolCall
		}
		return geminiAnswer
	})
	svc := newTestGemini(t, g, 3)

	var gotArgs string
	var events []types.RunEvent
	err := svc.ChatStream(context.Background(), ChatRequest{
		SystemPrompt: "be helpful",
		History:      []types.Message{{Role: types.RoleUser, Content: "hi"}, {Role: types.RoleAssistant, Content: "hello"}},
		Prompt:       "refund time?",
		Tools:        []Tool{refundTool(&gotArgs)},
	}, func(e types.RunEvent) error {
		events = append(events, e)
		return nil
	})
	require.NoError(t, err)

	assert.JSONEq(t, `{"query":"refund"}`, gotArgs)
	require.Len(t, events, 3)
	assert.Equal(t, types.RunEventToolCall, events[0].Type)
	assert.Equal(t, "search_knowledge_base", events[0].ToolCall.Name)
	assert.Equal(t, "Refunds are credited in 5-7 days.", events[0].ToolCall.Output)
	assert.Equal(t, "Refunds take ", events[1].Content)
	assert.Equal(t, "5-7 days.", events[2].Content)

	reqs := g.calls()
	require.Len(t, reqs, 2)
	// hi, hello, prompt, function call, function response
	contents, _ := reqs[1]["contents"].([]any)
	require.Len(t, contents, 5)
	last, _ := contents[4].(map[string]any)
	parts, _ := last["parts"].([]any)
	require.Len(t, parts, 1)
	part, _ := parts[0].(map[string]any)
	resp, _ := part["functionResponse"].(map[string]any)
	require.NotNil(t, resp)
	assert.Equal(t, "search_knowledge_base", resp["name"])
	result, _ := resp["response"].(map[string]any)
	assert.Equal(t, "Refunds are credited in 5-7 days.", result["result"])
}

func TestGeminiServiceNoResponse(t *testing.T) {
	g := newGeminiServer(t, func(int) string { return geminiEmpty })
	svc := newTestGemini(t, g, 3)

	err := svc.ChatStream(context.Background(), ChatRequest{Prompt: "hello"}, func(types.RunEvent) error { return nil })
	assert.ErrorIs(t, err, ErrNoResponse)
}

func TestGeminiServiceToolRoundLimit(t *testing.T) {
	g := newGeminiServer(t, func(int) string { return geminiToolCall })
	svc := newTestGemini(t, g, 1)

	var gotArgs string
	toolCalls := 0
	err := svc.ChatStream(context.Background(), ChatRequest{
		Prompt: "refund time?",
		Tools:  []Tool{refundTool(&gotArgs)},
	}, func(e types.RunEvent) error {
		if e.Type == types.RunEventToolCall {
			toolCalls++
		}
		return nil
	})
	assert.ErrorIs(t, err, ErrToolRounds)
	assert.Equal(t, 1, toolCalls)
	assert.Len(t, g.calls(), 2)
}

func TestGeminiServiceHandlerErrorStopsStream(t *testing.T) {
	g := newGeminiServer(t, func(int) string { return geminiAnswer })
	svc := newTestGemini(t, g, 3)

	stop := errors.New("client gone")
	err := svc.ChatStream(context.Background(), ChatRequest{Prompt: "hello"}, func(types.RunEvent) error { return stop })
	assert.ErrorIs(t, err, stop)
}
