package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/tieubaoca/support-assistant/types"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS chunks (
	id           TEXT PRIMARY KEY,
	content      TEXT NOT NULL,
	source_id    TEXT NOT NULL,
	source       TEXT NOT NULL,
	title        TEXT NOT NULL,
	chunk_offset INTEGER NOT NULL,
	chunk_index  INTEGER NOT NULL,
	created_at   INTEGER NOT NULL,
	dimension    INTEGER NOT NULL,
	embedding    BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_source_id ON chunks(source_id);
CREATE TABLE IF NOT EXISTS ingestion_marker (
	id      INTEGER PRIMARY KEY CHECK (id = 1),
	payload TEXT NOT NULL
);
`

// SQLiteStore is an on-disk collection: one sqlite file per collection inside
// the persist directory. Similarity search is an exhaustive cosine scan,
// which is adequate for a help-center sized corpus.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

func NewSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create persist directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	logger.Debug("Opened sqlite vector store", zap.String("path", path))
	return &SQLiteStore{db: db, path: path, logger: logger}, nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) dimension(ctx context.Context) (int, error) {
	var dim int
	err := s.db.QueryRowContext(ctx, `SELECT dimension FROM chunks LIMIT 1`).Scan(&dim)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return dim, err
}

func (s *SQLiteStore) AddDocuments(ctx context.Context, docs []types.Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return fmt.Errorf("got %d documents but %d embeddings", len(docs), len(embeddings))
	}
	if len(docs) == 0 {
		return nil
	}

	dim, err := s.dimension(ctx)
	if err != nil {
		return fmt.Errorf("read collection dimension: %w", err)
	}
	if dim == 0 {
		dim = len(embeddings[0])
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks
		(id, content, source_id, source, title, chunk_offset, chunk_index, created_at, dimension, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for i, doc := range docs {
		if len(embeddings[i]) != dim {
			return fmt.Errorf("document %d: %w (got %d, want %d)", i, ErrDimensionMismatch, len(embeddings[i]), dim)
		}
		id := doc.ID
		if id == "" {
			id = uuid.New().String()
		}
		createdAt := doc.CreatedAt
		if createdAt == 0 {
			createdAt = now
		}
		if _, err := stmt.ExecContext(ctx, id, doc.Content, doc.Metadata.SourceID, doc.Metadata.Source,
			doc.Metadata.Title, doc.Metadata.Offset, doc.Metadata.ChunkIndex, createdAt, dim,
			encodeVector(embeddings[i])); err != nil {
			return fmt.Errorf("insert document %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit documents: %w", err)
	}
	s.logger.Debug("Inserted documents", zap.Int("count", len(docs)))
	return nil
}

func (s *SQLiteStore) SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]types.Document, []float32, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, content, source_id, source, title, chunk_offset,
		chunk_index, created_at, embedding FROM chunks`)
	if err != nil {
		return nil, nil, fmt.Errorf("search failed: %w", err)
	}
	defer rows.Close()

	type scored struct {
		doc   types.Document
		score float64
	}
	var results []scored
	for rows.Next() {
		var (
			doc  types.Document
			blob []byte
		)
		if err := rows.Scan(&doc.ID, &doc.Content, &doc.Metadata.SourceID, &doc.Metadata.Source,
			&doc.Metadata.Title, &doc.Metadata.Offset, &doc.Metadata.ChunkIndex, &doc.CreatedAt, &blob); err != nil {
			return nil, nil, fmt.Errorf("scan chunk: %w", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, nil, fmt.Errorf("chunk %s: %w", doc.ID, err)
		}
		if len(vec) != len(embedding) {
			return nil, nil, fmt.Errorf("%w (got %d, want %d)", ErrDimensionMismatch, len(embedding), len(vec))
		}
		results = append(results, scored{doc: doc, score: cosine(embedding, vec)})
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate chunks: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].score > results[j].score })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	docs := make([]types.Document, 0, len(results))
	distances := make([]float32, 0, len(results))
	for _, r := range results {
		docs = append(docs, r.doc)
		distances = append(distances, float32(1-r.score))
	}
	return docs, distances, nil
}

func (s *SQLiteStore) IngestionMarker(ctx context.Context) (*types.IngestionMarker, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM ingestion_marker WHERE id = 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ingestion marker: %w", err)
	}
	var marker types.IngestionMarker
	if err := json.Unmarshal([]byte(payload), &marker); err != nil {
		return nil, fmt.Errorf("decode ingestion marker: %w", err)
	}
	return &marker, nil
}

func (s *SQLiteStore) SetIngestionMarker(ctx context.Context, marker types.IngestionMarker) error {
	payload, err := json.Marshal(marker)
	if err != nil {
		return fmt.Errorf("encode ingestion marker: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO ingestion_marker (id, payload) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload`, string(payload))
	if err != nil {
		return fmt.Errorf("write ingestion marker: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM ingestion_marker`); err != nil {
		return fmt.Errorf("delete ingestion marker: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.logger.Info("Reset sqlite vector store", zap.String("path", s.path))
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
