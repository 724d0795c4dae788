package types

import "time"

// Document represents a chunk stored in the knowledge base
type Document struct {
	ID        string   `json:"id"`
	Content   string   `json:"content"`
	Metadata  Metadata `json:"metadata"`
	CreatedAt int64    `json:"created_at"`
}

// Metadata contains additional document information
type Metadata struct {
	SourceID   string `json:"source_id"`
	Source     string `json:"source"`
	Title      string `json:"title"`
	Offset     int    `json:"offset"`
	ChunkIndex int    `json:"chunk_index"`
}

// SourceDocument is a fetched help-center page before chunking.
type SourceDocument struct {
	SourceID  string
	URL       string
	Title     string
	Content   string
	FetchedAt time.Time
}

// DocumentServiceConfig contains configuration options for text chunking
type DocumentServiceConfig struct {
	MaxChunkSize int // Maximum size for text chunks, in runes
	OverlapSize  int // Size of overlap between consecutive chunks, in runes
}

// IngestionMarker records a completed knowledge-base population.
type IngestionMarker struct {
	Completed   bool      `json:"completed"`
	Sources     []string  `json:"sources"`
	ChunkCount  int       `json:"chunk_count"`
	CompletedAt time.Time `json:"completed_at"`
}

// HasSource reports whether the marker lists the given source ID.
func (m *IngestionMarker) HasSource(id string) bool {
	for _, s := range m.Sources {
		if s == id {
			return true
		}
	}
	return false
}

// IngestReport summarises one EnsureIngested call.
type IngestReport struct {
	Skipped        bool     `json:"skipped"`
	Loaded         []string `json:"loaded"`
	Failed         []string `json:"failed"`
	ChunkCount     int      `json:"chunk_count"`
	ExistingChunks int      `json:"existing_chunks"`
}
