package service

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Embedder turns text into vectors. Documents and queries may use different
// task types, but both land in the same vector space.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Gemini caps batch embedding requests at 100 contents.
const maxGeminiBatch = 100

type GeminiEmbedder struct {
	client    *genai.Client
	model     string
	batchSize int
	logger    *zap.Logger
}

func NewGeminiEmbedder(client *genai.Client, model string, batchSize int, logger *zap.Logger) *GeminiEmbedder {
	if batchSize <= 0 || batchSize > maxGeminiBatch {
		batchSize = maxGeminiBatch
	}
	return &GeminiEmbedder{client: client, model: model, batchSize: batchSize, logger: logger}
}

func (e *GeminiEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	em := e.client.EmbeddingModel(e.model)
	em.TaskType = genai.TaskTypeRetrievalDocument

	vectors := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += e.batchSize {
		end := min(i+e.batchSize, len(texts))
		batch := em.NewBatch()
		for _, text := range texts[i:end] {
			batch.AddContent(genai.Text(text))
		}
		res, err := em.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", i, end, err)
		}
		if len(res.Embeddings) != end-i {
			return nil, fmt.Errorf("embed batch %d-%d: got %d embeddings", i, end, len(res.Embeddings))
		}
		for _, emb := range res.Embeddings {
			vectors = append(vectors, emb.Values)
		}
		e.logger.Debug("Embedded batch", zap.Int("from", i), zap.Int("to", end))
	}
	return vectors, nil
}

func (e *GeminiEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	em := e.client.EmbeddingModel(e.model)
	em.TaskType = genai.TaskTypeRetrievalQuery
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if res.Embedding == nil {
		return nil, fmt.Errorf("embed query: %w", ErrNoResponse)
	}
	return res.Embedding.Values, nil
}

type OpenAIEmbedder struct {
	client    *openai.Client
	model     openai.EmbeddingModel
	batchSize int
	logger    *zap.Logger
}

func NewOpenAIEmbedder(client *openai.Client, model string, batchSize int, logger *zap.Logger) *OpenAIEmbedder {
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	if batchSize <= 0 {
		batchSize = maxGeminiBatch
	}
	return &OpenAIEmbedder{client: client, model: openai.EmbeddingModel(model), batchSize: batchSize, logger: logger}
}

func (e *OpenAIEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += e.batchSize {
		end := min(i+e.batchSize, len(texts))
		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts[i:end],
			Model: e.model,
		})
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", i, end, err)
		}
		if len(resp.Data) != end-i {
			return nil, fmt.Errorf("embed batch %d-%d: got %d embeddings", i, end, len(resp.Data))
		}
		batch := make([][]float32, end-i)
		for _, d := range resp.Data {
			if d.Index < 0 || d.Index >= len(batch) {
				return nil, fmt.Errorf("embed batch %d-%d: index %d out of range", i, end, d.Index)
			}
			batch[d.Index] = d.Embedding
		}
		vectors = append(vectors, batch...)
		e.logger.Debug("Embedded batch", zap.Int("from", i), zap.Int("to", end))
	}
	return vectors, nil
}

func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
