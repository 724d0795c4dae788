package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/support-assistant/types"
	"go.uber.org/zap"
)

func sseChunk(w http.ResponseWriter, delta string) {
	fmt.Fprintf(w, "data: {\"id\":\"x\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":%s}]}\n\n", delta)
}

func TestOpenAIServiceToolLoop(t *testing.T) {
	var calls int32
	var secondRequest map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			sseChunk(w, `{"tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"search_knowledge_base","arguments":"{\"query\":"}}]}`)
			sseChunk(w, `{"tool_calls":[{"index":0,"function":{"arguments":"\"refund\"}"}}]}`)
		} else {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&secondRequest))
			sseChunk(w, `{"content":"Refunds take "}`)
			sseChunk(w, `{"content":"5-7 days."}`)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	svc := NewOpenAIService(srv.URL+"/v1", "test-key", "gpt-4o-mini", 3, zap.NewNop())
	var gotArgs string
	tool := Tool{
		Name:       "search_knowledge_base",
		Parameters: []ToolParameter{{Name: "query"}},
		Handler: func(ctx context.Context, args []byte) (string, error) {
			gotArgs = string(args)
			return "Refunds are credited in 5-7 days.", nil
		},
	}

	var events []types.RunEvent
	err := svc.ChatStream(context.Background(), ChatRequest{
		SystemPrompt: "be helpful",
		History:      []types.Message{{Role: types.RoleUser, Content: "hi"}, {Role: types.RoleAssistant, Content: "hello"}},
		Prompt:       "refund time?",
		Tools:        []Tool{tool},
	}, func(e types.RunEvent) error {
		events = append(events, e)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, `{"query":"refund"}`, gotArgs)
	require.Len(t, events, 3)
	assert.Equal(t, types.RunEventToolCall, events[0].Type)
	assert.Equal(t, "search_knowledge_base", events[0].ToolCall.Name)
	assert.Equal(t, "Refunds are credited in 5-7 days.", events[0].ToolCall.Output)
	assert.Equal(t, "Refunds take ", events[1].Content)
	assert.Equal(t, "5-7 days.", events[2].Content)

	msgs, _ := secondRequest["messages"].([]any)
	require.Len(t, msgs, 6)
	last, _ := msgs[5].(map[string]any)
	assert.Equal(t, "tool", last["role"])
	assert.Equal(t, "call_1", last["tool_call_id"])
}

func TestOpenAIServiceUnknownTool(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		sseChunk(w, `{"tool_calls":[{"index":0,"id":"c","type":"function","function":{"name":"nope","arguments":"{}"}}]}`)
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	svc := NewOpenAIService(srv.URL+"/v1", "k", "m", 3, zap.NewNop())
	err := svc.ChatStream(context.Background(), ChatRequest{Prompt: "x"}, func(types.RunEvent) error { return nil })
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestOpenAIServiceEmptyAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	svc := NewOpenAIService(srv.URL+"/v1", "k", "m", 3, zap.NewNop())
	err := svc.ChatStream(context.Background(), ChatRequest{Prompt: "x"}, func(types.RunEvent) error { return nil })
	assert.ErrorIs(t, err, ErrNoResponse)
}

func TestOpenAIMessagesMapsRoles(t *testing.T) {
	msgs := openaiMessages(ChatRequest{
		SystemPrompt: "sys",
		History:      []types.Message{{Role: types.RoleAssistant, Content: "a"}},
		Prompt:       "q",
	})
	require.Len(t, msgs, 3)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "assistant", msgs[1].Role)
	assert.True(t, strings.HasPrefix(msgs[2].Content, "q"))
}
