/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/sashabaranov/go-openai"
	"github.com/tieubaoca/support-assistant/config"
	"github.com/tieubaoca/support-assistant/database"
	"github.com/tieubaoca/support-assistant/metrics"
	"github.com/tieubaoca/support-assistant/repository"
	"github.com/tieubaoca/support-assistant/service"
	"github.com/tieubaoca/support-assistant/types"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// application holds the services shared by every command.
type application struct {
	store     database.VectorStore
	embedder  service.Embedder
	model     service.ChatModel
	web       service.WebSearcher
	retriever *service.VectorRetriever
	ingest    *service.IngestService
	sessions  *service.SessionManager
	chat      *service.ChatService
	export    *service.ExportService
	metrics   *metrics.Metrics

	closers []func() error
}

func newApplication(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*application, error) {
	app := &application{metrics: metrics.New()}

	store, err := database.NewVectorStore(ctx, cfg.VectorStore, logger)
	if err != nil {
		return nil, fmt.Errorf("open vector store: %w", err)
	}
	app.store = store
	app.closers = append(app.closers, store.Close)

	var (
		geminiClient *genai.Client
		openaiClient *openai.Client
	)
	switch cfg.Model.Provider {
	case config.ProviderGemini:
		gemini, err := service.NewGeminiService(ctx, cfg.GoogleAPIKey, cfg.Model.Name, cfg.Agent.MaxToolRounds, logger)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.closers = append(app.closers, gemini.Close)
		app.model = gemini
		geminiClient = gemini.Client()
	case config.ProviderOpenAI:
		oa := service.NewOpenAIService(cfg.Model.BaseURL, cfg.OpenAIAPIKey, cfg.Model.Name, cfg.Agent.MaxToolRounds, logger)
		app.model = oa
		openaiClient = oa.Client()
	default:
		app.Close()
		return nil, fmt.Errorf("unsupported model provider %q", cfg.Model.Provider)
	}

	switch cfg.Embedding.Provider {
	case config.ProviderGemini:
		if geminiClient == nil {
			geminiClient, err = genai.NewClient(ctx, option.WithAPIKey(cfg.GoogleAPIKey))
			if err != nil {
				app.Close()
				return nil, fmt.Errorf("failed to create gemini client: %w", err)
			}
			app.closers = append(app.closers, geminiClient.Close)
		}
		app.embedder = service.NewGeminiEmbedder(geminiClient, cfg.Embedding.Model, cfg.Embedding.BatchSize, logger)
	case config.ProviderOpenAI:
		if openaiClient == nil {
			oc := openai.DefaultConfig(cfg.OpenAIAPIKey)
			if cfg.Model.BaseURL != "" {
				oc.BaseURL = cfg.Model.BaseURL
			}
			openaiClient = openai.NewClientWithConfig(oc)
		}
		app.embedder = service.NewOpenAIEmbedder(openaiClient, cfg.Embedding.Model, cfg.Embedding.BatchSize, logger)
	default:
		app.Close()
		return nil, fmt.Errorf("unsupported embedding provider %q", cfg.Embedding.Provider)
	}

	if cfg.WebSearch.Enabled() {
		app.web = service.NewSearchService(cfg.WebSearch.APIKey, cfg.WebSearch.EngineID, cfg.WebSearch.MaxResults)
	}

	splitter, err := service.NewTextSplitter(types.DocumentServiceConfig{
		MaxChunkSize: cfg.Chunking.ChunkSize,
		OverlapSize:  cfg.Chunking.ChunkOverlap,
	})
	if err != nil {
		app.Close()
		return nil, err
	}
	loader := service.NewWebLoader(cfg.Fetch, logger)
	app.ingest = service.NewIngestService(app.store, loader, splitter, app.embedder, app.metrics, logger)
	app.retriever = service.NewVectorRetriever(app.store, app.embedder, cfg.Retrieval.TopK)

	app.sessions = service.NewSessionManager(
		repository.NewSessionRepo[*service.Session](cfg.Session.TTL, cfg.Session.CleanupInterval),
		logger,
	)
	app.chat = service.NewChatService(app.agentFactory(cfg, logger), app.metrics, logger)
	app.export = service.NewExportService(cfg.AssistantName)
	return app, nil
}

// agentFactory builds a fresh agent for a session on its first turn.
func (app *application) agentFactory(cfg *config.Config, logger *zap.Logger) service.AgentFactory {
	return func(session *service.Session) *service.SupportAgent {
		userID := session.UserID
		if userID == "" {
			userID = cfg.Agent.UserID
		}
		return service.NewSupportAgent(app.model, app.retriever, app.web, service.AgentOptions{
			Name:                cfg.Agent.Name,
			UserID:              userID,
			SessionID:           session.ID,
			NumHistoryResponses: cfg.Agent.NumHistoryResponses,
			Markdown:            cfg.Agent.Markdown,
			DebugMode:           cfg.Agent.DebugMode,
		}, app.metrics, logger)
	}
}

// ensureIngested populates the knowledge base on first use.
func (app *application) ensureIngested(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	report, err := app.ingest.EnsureIngested(ctx, cfg.SourceMap())
	if err != nil {
		return fmt.Errorf("ingest knowledge base: %w", err)
	}
	if report.Skipped {
		logger.Info("Knowledge base already populated", zap.Int("chunks", report.ExistingChunks))
		return nil
	}
	logger.Info("Knowledge base populated",
		zap.Strings("loaded", report.Loaded),
		zap.Strings("failed", report.Failed),
		zap.Int("chunks", report.ChunkCount),
	)
	return nil
}

func (app *application) Close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		app.closers[i]()
	}
	app.closers = nil
}
