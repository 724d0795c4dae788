package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/tieubaoca/support-assistant/config"
	"github.com/tieubaoca/support-assistant/types"
	"go.uber.org/zap"
)

var ErrDimensionMismatch = errors.New("embedding dimension does not match collection")

// VectorStore defines the operations the knowledge base needs from a
// vector database. Entries are immutable once added.
type VectorStore interface {
	// Count returns the number of chunks in the collection.
	Count(ctx context.Context) (int, error)
	// AddDocuments stores docs with their embeddings; len(docs) must equal len(embeddings).
	AddDocuments(ctx context.Context, docs []types.Document, embeddings [][]float32) error
	// SearchSimilar returns up to limit documents ordered by decreasing similarity,
	// with their cosine distances.
	SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]types.Document, []float32, error)

	// IngestionMarker returns the stored marker, or nil when ingestion never completed.
	IngestionMarker(ctx context.Context) (*types.IngestionMarker, error)
	SetIngestionMarker(ctx context.Context, marker types.IngestionMarker) error

	// Reset drops every chunk and the ingestion marker.
	Reset(ctx context.Context) error
	Close() error
}

// NewVectorStore opens the backend selected in cfg.
func NewVectorStore(ctx context.Context, cfg config.VectorStoreConfig, logger *zap.Logger) (VectorStore, error) {
	switch cfg.Backend {
	case config.BackendSQLite, "":
		return NewSQLiteStore(cfg.DBPath(), logger)
	case config.BackendWeaviate:
		return NewWeaviateStore(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown vector store backend %q", cfg.Backend)
	}
}
