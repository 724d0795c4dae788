package service

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/tieubaoca/support-assistant/types"
)

// fakeModel answers by calling respond, recording every request.
type fakeModel struct {
	mu       sync.Mutex
	requests []ChatRequest
	respond  func(ctx context.Context, req ChatRequest, handler types.StreamHandler) error
}

func (m *fakeModel) ChatStream(ctx context.Context, req ChatRequest, handler types.StreamHandler) error {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.respond == nil {
		return handler(types.ContentEvent("ok"))
	}
	return m.respond(ctx, req, handler)
}

func (m *fakeModel) calls() []ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ChatRequest(nil), m.requests...)
}

// echoModel streams a fixed answer in two fragments.
func echoModel(answer string) *fakeModel {
	return &fakeModel{respond: func(ctx context.Context, req ChatRequest, handler types.StreamHandler) error {
		half := len(answer) / 2
		if err := handler(types.ContentEvent(answer[:half])); err != nil {
			return err
		}
		return handler(types.ContentEvent(answer[half:]))
	}}
}

// hashEmbedder maps words into a small bag-of-words vector.
type hashEmbedder struct {
	mu       sync.Mutex
	docCalls int
	texts    int
}

const hashDim = 32

func hashVector(text string) []float32 {
	v := make([]float32, hashDim)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(strings.Trim(w, ".,?!:;")))
		v[h.Sum32()%hashDim]++
	}
	v[0] += 0.01
	return v
}

func (e *hashEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.docCalls++
	e.texts += len(texts)
	e.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = hashVector(t)
	}
	return out, nil
}

func (e *hashEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return hashVector(text), nil
}

type staticRetriever struct {
	docs  []types.Document
	err   error
	calls []string
}

func (r *staticRetriever) Retrieve(ctx context.Context, query string) ([]types.Document, error) {
	r.calls = append(r.calls, query)
	return r.docs, r.err
}

type fakeWeb struct{ queries []string }

func (w *fakeWeb) SearchJSON(ctx context.Context, query string) (string, error) {
	w.queries = append(w.queries, query)
	return `[{"title":"JioPay","link":"https://example.com","snippet":"news"}]`, nil
}
