package service

import (
	"context"
	"fmt"

	"github.com/tieubaoca/support-assistant/database"
	"github.com/tieubaoca/support-assistant/types"
)

// Retriever returns the knowledge-base chunks most relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]types.Document, error)
}

// VectorRetriever embeds the query with the ingestion embedder and runs a
// similarity search against the store.
type VectorRetriever struct {
	store    database.VectorStore
	embedder Embedder
	topK     int
}

func NewVectorRetriever(store database.VectorStore, embedder Embedder, topK int) *VectorRetriever {
	if topK <= 0 {
		topK = 4
	}
	return &VectorRetriever{store: store, embedder: embedder, topK: topK}
}

func (r *VectorRetriever) Retrieve(ctx context.Context, query string) ([]types.Document, error) {
	docs, _, err := r.Search(ctx, query, r.topK)
	return docs, err
}

// Search is Retrieve with an explicit limit and the cosine distances.
func (r *VectorRetriever) Search(ctx context.Context, query string, limit int) ([]types.Document, []float32, error) {
	if limit <= 0 {
		limit = r.topK
	}
	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("embed query: %w", err)
	}
	docs, distances, err := r.store.SearchSimilar(ctx, vector, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("search knowledge base: %w", err)
	}
	return docs, distances, nil
}
