package service

import (
	"context"
	"encoding/json"
	"fmt"

	customsearch "google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// SearchResult represents a single search result from Google Custom Search API
type SearchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// WebSearcher is the web-search tool backend.
type WebSearcher interface {
	SearchJSON(ctx context.Context, query string) (string, error)
}

// SearchService handles Google Custom Search operations
type SearchService struct {
	apiKey     string
	engineID   string
	maxResults int64
	opts       []option.ClientOption
}

// NewSearchService creates a search service for the given key and engine.
// Extra client options are appended after the API key.
func NewSearchService(apiKey, engineID string, maxResults int64, opts ...option.ClientOption) *SearchService {
	if maxResults <= 0 || maxResults > 10 {
		maxResults = 5
	}
	return &SearchService{
		apiKey:     apiKey,
		engineID:   engineID,
		maxResults: maxResults,
		opts:       opts,
	}
}

// Search performs a Google Custom Search and returns structured results
func (s *SearchService) Search(ctx context.Context, query string) ([]SearchResult, error) {
	opts := []option.ClientOption{}
	if s.apiKey != "" {
		opts = append(opts, option.WithAPIKey(s.apiKey))
	}
	opts = append(opts, s.opts...)
	searchService, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create search service: %w", err)
	}

	search := searchService.Cse.List().Context(ctx)
	search.Q(query)
	search.Cx(s.engineID)
	search.Num(s.maxResults)

	result, err := search.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}

	searchResults := make([]SearchResult, 0, len(result.Items))
	for _, item := range result.Items {
		searchResults = append(searchResults, SearchResult{
			Title:   item.Title,
			Link:    item.Link,
			Snippet: item.Snippet,
		})
	}
	return searchResults, nil
}

// SearchJSON performs a search and returns results as a JSON string
func (s *SearchService) SearchJSON(ctx context.Context, query string) (string, error) {
	results, err := s.Search(ctx, query)
	if err != nil {
		return "", err
	}
	jsonResult, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("failed to marshal results: %w", err)
	}
	return string(jsonResult), nil
}
