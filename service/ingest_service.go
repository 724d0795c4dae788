package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/tieubaoca/support-assistant/database"
	"github.com/tieubaoca/support-assistant/metrics"
	"github.com/tieubaoca/support-assistant/types"
	"go.uber.org/zap"
)

// IngestService populates the knowledge base from the configured help-center
// pages exactly once per store.
type IngestService struct {
	store    database.VectorStore
	loader   Loader
	splitter *TextSplitter
	embedder Embedder
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewIngestService(
	store database.VectorStore,
	loader Loader,
	splitter *TextSplitter,
	embedder Embedder,
	m *metrics.Metrics,
	logger *zap.Logger,
) *IngestService {
	return &IngestService{
		store:    store,
		loader:   loader,
		splitter: splitter,
		embedder: embedder,
		metrics:  m,
		logger:   logger,
	}
}

// EnsureIngested fills the store from sources unless a previous run already
// completed. Sources that cannot be fetched are logged and skipped.
func (s *IngestService) EnsureIngested(ctx context.Context, sources map[string]string) (types.IngestReport, error) {
	var report types.IngestReport

	marker, err := s.store.IngestionMarker(ctx)
	if err != nil {
		return report, err
	}
	count, err := s.store.Count(ctx)
	if err != nil {
		return report, err
	}

	if marker != nil && marker.Completed {
		report.Skipped = true
		report.ExistingChunks = count
		s.logger.Info("Using existing collection", zap.Int("documents", count))
		for _, id := range sortedIDs(sources) {
			if !marker.HasSource(id) {
				s.logger.Warn("Configured source is not in the existing collection; run ingest --reinit to add it",
					zap.String("source_id", id))
			}
		}
		return report, nil
	}

	if count > 0 {
		s.logger.Warn("Collection has documents but no completed ingestion; rebuilding", zap.Int("documents", count))
		if err := s.store.Reset(ctx); err != nil {
			return report, fmt.Errorf("reset partial collection: %w", err)
		}
	}

	s.logger.Info("No documents found in collection. Loading from URLs...", zap.Int("sources", len(sources)))
	for _, id := range sortedIDs(sources) {
		url := sources[id]
		doc, err := s.loader.Load(ctx, id, url)
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			s.logger.Error("Error loading source", zap.String("source_id", id), zap.String("url", url), zap.Error(err))
			s.metrics.IngestSource("failed")
			report.Failed = append(report.Failed, id)
			continue
		}

		stored, err := s.storeDocument(ctx, doc)
		if err != nil {
			return report, fmt.Errorf("store source %s: %w", id, err)
		}
		s.metrics.IngestSource("loaded")
		report.Loaded = append(report.Loaded, id)
		report.ChunkCount += stored
		s.logger.Info("Successfully loaded source", zap.String("source_id", id), zap.Int("chunks", stored))
	}

	if report.ChunkCount == 0 {
		s.logger.Warn("No chunks stored; ingestion will be retried on next start", zap.Strings("failed", report.Failed))
		return report, nil
	}

	err = s.store.SetIngestionMarker(ctx, types.IngestionMarker{
		Completed:   true,
		Sources:     report.Loaded,
		ChunkCount:  report.ChunkCount,
		CompletedAt: time.Now().UTC(),
	})
	if err != nil {
		return report, err
	}
	s.logger.Info("Documents added successfully",
		zap.Int("chunks", report.ChunkCount),
		zap.Strings("loaded", report.Loaded),
		zap.Strings("failed", report.Failed),
	)
	return report, nil
}

func (s *IngestService) storeDocument(ctx context.Context, doc types.SourceDocument) (int, error) {
	chunks := s.splitter.SplitDocument(doc)
	if len(chunks) == 0 {
		return 0, nil
	}

	now := time.Now().Unix()
	texts := make([]string, len(chunks))
	for i := range chunks {
		chunks[i].ID = chunkID(doc.SourceID, doc.URL, chunks[i].Metadata.ChunkIndex)
		chunks[i].CreatedAt = now
		texts[i] = chunks[i].Content
	}

	embeddings, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return 0, err
	}
	if err := s.store.AddDocuments(ctx, chunks, embeddings); err != nil {
		return 0, err
	}
	s.metrics.IngestChunks(len(chunks))
	return len(chunks), nil
}

// chunkID is stable per source and position, so two source IDs sharing one
// URL still get distinct chunks.
func chunkID(sourceID, url string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, fmt.Appendf(nil, "%s#%s#%d", sourceID, url, index)).String()
}

// Reinit drops every chunk and the completion marker.
func (s *IngestService) Reinit(ctx context.Context) error {
	if err := s.store.Reset(ctx); err != nil {
		return fmt.Errorf("reinit collection: %w", err)
	}
	return nil
}

func sortedIDs(sources map[string]string) []string {
	ids := make([]string, 0, len(sources))
	for id := range sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
