package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/tieubaoca/support-assistant/config"
	"github.com/tieubaoca/support-assistant/types"
	"go.uber.org/zap"
)

// Loader fetches one help-center page and returns its visible text.
type Loader interface {
	Load(ctx context.Context, sourceID, url string) (types.SourceDocument, error)
}

type WebLoader struct {
	client    *http.Client
	userAgent string
	logger    *zap.Logger
}

func NewWebLoader(cfg config.FetchConfig, logger *zap.Logger) *WebLoader {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &WebLoader{
		client:    &http.Client{Timeout: timeout},
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

func (l *WebLoader) Load(ctx context.Context, sourceID, url string) (types.SourceDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return types.SourceDocument{}, fmt.Errorf("build request for %s: %w", url, err)
	}
	if l.userAgent != "" {
		req.Header.Set("User-Agent", l.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := l.client.Do(req)
	if err != nil {
		return types.SourceDocument{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return types.SourceDocument{}, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return types.SourceDocument{}, fmt.Errorf("parse %s: %w", url, err)
	}
	doc.Find("script, style, noscript, svg, iframe").Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())
	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	text := strings.Join(strings.Fields(body.Text()), " ")

	l.logger.Debug("Loaded source",
		zap.String("source_id", sourceID),
		zap.String("url", url),
		zap.Int("chars", len(text)),
	)
	return types.SourceDocument{
		SourceID:  sourceID,
		URL:       url,
		Title:     title,
		Content:   text,
		FetchedAt: time.Now(),
	}, nil
}
