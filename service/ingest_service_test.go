package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/support-assistant/config"
	"github.com/tieubaoca/support-assistant/database"
	"github.com/tieubaoca/support-assistant/metrics"
	"github.com/tieubaoca/support-assistant/types"
	"go.uber.org/zap"
)

// helpSite serves one long page per source ID and counts requests.
type helpSite struct {
	srv  *httptest.Server
	hits atomic.Int32
}

func pageText(id string) string {
	var sb strings.Builder
	for i := 0; i < 80; i++ {
		fmt.Fprintf(&sb, "%s article %d: if your payment failed the amount is refunded within 5-7 working days. ", id, i)
	}
	return sb.String()
}

func newHelpSite(t *testing.T, broken ...string) *helpSite {
	t.Helper()
	site := &helpSite{}
	site.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		site.hits.Add(1)
		id := strings.TrimPrefix(r.URL.Path, "/")
		for _, b := range broken {
			if b == id {
				http.Error(w, "down", http.StatusServiceUnavailable)
				return
			}
		}
		fmt.Fprintf(w, "<html><head><title>%s</title></head><body><p>%s</p></body></html>", id, pageText(id))
	}))
	t.Cleanup(site.srv.Close)
	return site
}

func (s *helpSite) sources(ids ...string) map[string]string {
	m := make(map[string]string, len(ids))
	for _, id := range ids {
		m[id] = s.srv.URL + "/" + id
	}
	return m
}

var defaultSourceIDs = []string{"JIOBIZ", "JIOHELP", "JIOMAIN", "KOTAKFAQ", "JIOPG", "KOTAKJIO", "JIOCOMPLAINT", "PAYMENTGATEWAY"}

func newTestIngest(t *testing.T, store database.VectorStore, embedder Embedder) *IngestService {
	t.Helper()
	splitter, err := NewTextSplitter(DefaultDocumentServiceConfig)
	require.NoError(t, err)
	return NewIngestService(store, NewWebLoader(config.FetchConfig{}, zap.NewNop()), splitter, embedder, metrics.New(), zap.NewNop())
}

func newTestStore(t *testing.T) *database.SQLiteStore {
	t.Helper()
	store, err := database.NewSQLiteStore(filepath.Join(t.TempDir(), "CustomerSupport.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestEnsureIngestedPopulatesAndTagsChunks(t *testing.T) {
	ctx := context.Background()
	site := newHelpSite(t)
	store := newTestStore(t)
	svc := newTestIngest(t, store, &hashEmbedder{})

	report, err := svc.EnsureIngested(ctx, site.sources(defaultSourceIDs...))
	require.NoError(t, err)
	assert.False(t, report.Skipped)
	assert.Len(t, report.Loaded, 8)
	assert.Empty(t, report.Failed)
	assert.Greater(t, report.ChunkCount, 8)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, report.ChunkCount, count)

	docs, _, err := store.SearchSimilar(ctx, hashVector("KOTAKFAQ article"), count)
	require.NoError(t, err)
	for _, d := range docs {
		assert.Contains(t, defaultSourceIDs, d.Metadata.SourceID)
		assert.True(t, strings.HasSuffix(d.Metadata.Source, "/"+d.Metadata.SourceID))
		assert.LessOrEqual(t, len([]rune(d.Content)), 1024)
	}

	marker, err := store.IngestionMarker(ctx)
	require.NoError(t, err)
	require.NotNil(t, marker)
	assert.True(t, marker.Completed)
	assert.Len(t, marker.Sources, 8)
}

func TestEnsureIngestedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	site := newHelpSite(t)
	store := newTestStore(t)
	embedder := &hashEmbedder{}
	svc := newTestIngest(t, store, embedder)
	sources := site.sources("JIOHELP", "KOTAKFAQ")

	first, err := svc.EnsureIngested(ctx, sources)
	require.NoError(t, err)
	hits := site.hits.Load()
	calls := embedder.docCalls

	second, err := svc.EnsureIngested(ctx, sources)
	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.Equal(t, first.ChunkCount, second.ExistingChunks)
	assert.Equal(t, hits, site.hits.Load(), "no fetch on second run")
	assert.Equal(t, calls, embedder.docCalls, "no embedding on second run")

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ChunkCount, count)
}

func TestEnsureIngestedSkipsUnreachableSource(t *testing.T) {
	ctx := context.Background()
	site := newHelpSite(t, "JIOMAIN")
	store := newTestStore(t)
	svc := newTestIngest(t, store, &hashEmbedder{})

	report, err := svc.EnsureIngested(ctx, site.sources("JIOMAIN", "JIOHELP", "KOTAKFAQ"))
	require.NoError(t, err)
	assert.Equal(t, []string{"JIOMAIN"}, report.Failed)
	assert.Equal(t, []string{"JIOHELP", "KOTAKFAQ"}, report.Loaded)

	marker, err := store.IngestionMarker(ctx)
	require.NoError(t, err)
	require.NotNil(t, marker)
	assert.False(t, marker.HasSource("JIOMAIN"))
}

func TestEnsureIngestedAllFailedLeavesNoMarker(t *testing.T) {
	ctx := context.Background()
	site := newHelpSite(t, "A", "B")
	store := newTestStore(t)
	svc := newTestIngest(t, store, &hashEmbedder{})

	report, err := svc.EnsureIngested(ctx, site.sources("A", "B"))
	require.NoError(t, err)
	assert.Zero(t, report.ChunkCount)

	marker, err := store.IngestionMarker(ctx)
	require.NoError(t, err)
	assert.Nil(t, marker)
}

func TestEnsureIngestedRebuildsPartialStore(t *testing.T) {
	ctx := context.Background()
	site := newHelpSite(t)
	store := newTestStore(t)
	stale := types.Document{Content: "stale", Metadata: types.Metadata{SourceID: "OLD"}}
	require.NoError(t, store.AddDocuments(ctx, []types.Document{stale}, [][]float32{hashVector("stale")}))

	svc := newTestIngest(t, store, &hashEmbedder{})
	report, err := svc.EnsureIngested(ctx, site.sources("JIOHELP"))
	require.NoError(t, err)
	assert.False(t, report.Skipped)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, report.ChunkCount, count)

	docs, _, err := store.SearchSimilar(ctx, hashVector("stale"), count)
	require.NoError(t, err)
	for _, d := range docs {
		assert.NotEqual(t, "OLD", d.Metadata.SourceID)
	}
}

func TestReinitClearsStore(t *testing.T) {
	ctx := context.Background()
	site := newHelpSite(t)
	store := newTestStore(t)
	svc := newTestIngest(t, store, &hashEmbedder{})

	_, err := svc.EnsureIngested(ctx, site.sources("JIOHELP"))
	require.NoError(t, err)
	require.NoError(t, svc.Reinit(ctx))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	report, err := svc.EnsureIngested(ctx, site.sources("JIOHELP"))
	require.NoError(t, err)
	assert.False(t, report.Skipped)
}

func TestEnsureIngestedSourcesSharingURL(t *testing.T) {
	ctx := context.Background()
	site := newHelpSite(t)
	store := newTestStore(t)
	svc := newTestIngest(t, store, &hashEmbedder{})

	shared := site.srv.URL + "/payment-gateway"
	sources := map[string]string{
		"JIOPG":          shared,
		"PAYMENTGATEWAY": shared,
		"JIOHELP":        site.srv.URL + "/JIOHELP",
	}
	report, err := svc.EnsureIngested(ctx, sources)
	require.NoError(t, err)
	assert.Equal(t, []string{"JIOHELP", "JIOPG", "PAYMENTGATEWAY"}, report.Loaded)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	docs, _, err := store.SearchSimilar(ctx, hashVector("payment"), count)
	require.NoError(t, err)
	perSource := map[string]int{}
	for _, d := range docs {
		perSource[d.Metadata.SourceID]++
	}
	assert.Positive(t, perSource["JIOPG"])
	assert.Equal(t, perSource["JIOPG"], perSource["PAYMENTGATEWAY"])

	marker, err := store.IngestionMarker(ctx)
	require.NoError(t, err)
	require.NotNil(t, marker)
	assert.True(t, marker.HasSource("PAYMENTGATEWAY"))
}

func TestChunkIDScopedBySource(t *testing.T) {
	url := "https://www.jiopay.com/business/paymentgateway"
	assert.Equal(t, chunkID("JIOPG", url, 0), chunkID("JIOPG", url, 0))
	assert.NotEqual(t, chunkID("JIOPG", url, 0), chunkID("PAYMENTGATEWAY", url, 0))
	assert.NotEqual(t, chunkID("JIOPG", url, 0), chunkID("JIOPG", url, 1))
}
