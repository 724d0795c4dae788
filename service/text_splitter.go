package service

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/tieubaoca/support-assistant/types"
)

var ErrInvalidChunkConfig = errors.New("invalid chunking configuration")

var DefaultDocumentServiceConfig = types.DocumentServiceConfig{
	MaxChunkSize: 1024,
	OverlapSize:  50,
}

// TextSplitter cuts page text into fixed-size overlapping rune windows.
type TextSplitter struct {
	maxChunkSize int // Maximum size of each chunk, in runes
	overlapSize  int // Runes shared by consecutive chunks
}

func NewTextSplitter(config types.DocumentServiceConfig) (*TextSplitter, error) {
	if config.MaxChunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidChunkConfig, config.MaxChunkSize)
	}
	if config.OverlapSize < 0 || config.OverlapSize >= config.MaxChunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrInvalidChunkConfig, config.OverlapSize, config.MaxChunkSize)
	}
	return &TextSplitter{
		maxChunkSize: config.MaxChunkSize,
		overlapSize:  config.OverlapSize,
	}, nil
}

// SplitDocument cleans the page text and returns its chunks, each tagged
// with the page's source ID, URL and title.
func (s *TextSplitter) SplitDocument(doc types.SourceDocument) []types.Document {
	text := cleanText(doc.Content)
	metadata := types.Metadata{
		SourceID: doc.SourceID,
		Source:   doc.URL,
		Title:    doc.Title,
	}
	return s.createChunks(text, metadata)
}

// createChunks slides a window of maxChunkSize runes over text, advancing by
// maxChunkSize-overlapSize. The last window always ends at the end of text.
func (s *TextSplitter) createChunks(text string, metadata types.Metadata) []types.Document {
	runes := []rune(text)
	total := len(runes)
	if total == 0 {
		return nil
	}

	step := s.maxChunkSize - s.overlapSize
	var chunks []types.Document
	for start := 0; ; start += step {
		end := min(start+s.maxChunkSize, total)
		md := metadata
		md.Offset = start
		md.ChunkIndex = len(chunks)
		chunks = append(chunks, types.Document{
			Content:  string(runes[start:end]),
			Metadata: md,
		})
		if end == total {
			break
		}
	}
	return chunks
}

func cleanText(text string) string {
	replacements := map[string]string{
		"\u0000": "",  // Null character
		"\ufffd": "",  // Unicode replacement character
		"\u001b": "",  // Escape character
		"\u00a0": " ", // Non-breaking space
		"‡":      "",
		"†":      "",
	}
	cleaned := text
	for old, repl := range replacements {
		cleaned = strings.ReplaceAll(cleaned, old, repl)
	}

	cleaned = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, cleaned)

	// Collapse whitespace runs
	return strings.Join(strings.Fields(cleaned), " ")
}
