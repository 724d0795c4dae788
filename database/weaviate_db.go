package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/tieubaoca/support-assistant/config"
	"github.com/tieubaoca/support-assistant/types"
	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
	"go.uber.org/zap"
)

const BATCH_SIZE = 200

// markerSuffix names the companion class that holds the ingestion marker.
const markerSuffix = "Ingestion"

var documentFields = []graphql.Field{
	{Name: "content"},
	{Name: "title"},
	{Name: "source"},
	{Name: "sourceId"},
	{Name: "chunkOffset"},
	{Name: "chunkIndex"},
	{Name: "createdAt"},
	{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}, {Name: "id"}}},
}

// WeaviateStore keeps the collection in a Weaviate class. Vectors are
// supplied by the embedder, so the class is created without a vectorizer.
type WeaviateStore struct {
	client      *weaviate.Client
	className   string
	markerClass string
	logger      *zap.Logger
}

func NewWeaviateStore(ctx context.Context, cfg config.VectorStoreConfig, logger *zap.Logger) (*WeaviateStore, error) {
	var scheme string
	if strings.HasPrefix(cfg.Weaviate.Host, "https") {
		scheme = "https"
	} else {
		scheme = "http"
	}
	host := strings.TrimPrefix(cfg.Weaviate.Host, scheme+"://")
	wcfg := weaviate.Config{
		Host:   host,
		Scheme: scheme,
	}
	if cfg.Weaviate.APIKey != "" {
		wcfg.AuthConfig = auth.ApiKey{
			Value: cfg.Weaviate.APIKey,
		}
		wcfg.Headers = map[string]string{
			"X-Weaviate-Api-Key":     cfg.Weaviate.APIKey,
			"X-Weaviate-Cluster-Url": fmt.Sprintf("%s://%s", scheme, host),
		}
	}
	client, err := weaviate.NewClient(wcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %w", err)
	}

	s := &WeaviateStore{
		client:      client,
		className:   className(cfg.Collection),
		markerClass: className(cfg.Collection) + markerSuffix,
		logger:      logger,
	}
	if err := s.ensureClasses(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// className turns a collection name into a valid Weaviate class name.
func className(collection string) string {
	if collection == "" {
		return "Document"
	}
	return strings.ToUpper(collection[:1]) + collection[1:]
}

func (s *WeaviateStore) documentClass() *models.Class {
	return &models.Class{
		Class: s.className,
		Properties: []*models.Property{
			{Name: "content", DataType: []string{"text"}},
			{Name: "title", DataType: []string{"text"}},
			{Name: "source", DataType: []string{"text"}},
			{Name: "sourceId", DataType: []string{"text"}},
			{Name: "chunkOffset", DataType: []string{"int"}},
			{Name: "chunkIndex", DataType: []string{"int"}},
			{Name: "createdAt", DataType: []string{"int"}},
		},
		Vectorizer:      "none",
		VectorIndexType: "hnsw",
		VectorIndexConfig: map[string]interface{}{
			"distance": "cosine",
		},
	}
}

func (s *WeaviateStore) markerClassObject() *models.Class {
	return &models.Class{
		Class: s.markerClass,
		Properties: []*models.Property{
			{Name: "completed", DataType: []string{"boolean"}},
			{Name: "sources", DataType: []string{"text[]"}},
			{Name: "chunkCount", DataType: []string{"int"}},
			{Name: "completedAt", DataType: []string{"text"}},
		},
		Vectorizer: "none",
	}
}

func (s *WeaviateStore) ensureClasses(ctx context.Context) error {
	schema, err := s.client.Schema().Getter().Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to get schema: %w", err)
	}
	existing := make(map[string]bool, len(schema.Classes))
	for _, class := range schema.Classes {
		existing[class.Class] = true
	}
	for _, class := range []*models.Class{s.documentClass(), s.markerClassObject()} {
		if existing[class.Class] {
			continue
		}
		if err := s.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
			return fmt.Errorf("failed to create %s class: %w", class.Class, err)
		}
		s.logger.Info("Created weaviate class", zap.String("class", class.Class))
	}
	return nil
}

func (s *WeaviateStore) Count(ctx context.Context) (int, error) {
	result, err := s.client.GraphQL().Aggregate().
		WithClassName(s.className).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	if len(result.Errors) > 0 {
		return 0, fmt.Errorf("count failed: %s", result.Errors[0].Message)
	}
	return parseAggregateCount(result.Data, s.className), nil
}

// documentObject maps a chunk to a Weaviate object. The chunk ID becomes the
// object ID when it is a UUID, so re-inserting a chunk is idempotent.
func documentObject(class string, doc types.Document, embedding []float32, now int64) *models.Object {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		id = uuid.New()
	}
	createdAt := doc.CreatedAt
	if createdAt == 0 {
		createdAt = now
	}
	return &models.Object{
		ID:    strfmt.UUID(id.String()),
		Class: class,
		Properties: map[string]interface{}{
			"content":     doc.Content,
			"title":       doc.Metadata.Title,
			"source":      doc.Metadata.Source,
			"sourceId":    doc.Metadata.SourceID,
			"chunkOffset": doc.Metadata.Offset,
			"chunkIndex":  doc.Metadata.ChunkIndex,
			"createdAt":   createdAt,
		},
		Vector: embedding,
	}
}

func (s *WeaviateStore) AddDocuments(ctx context.Context, docs []types.Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return fmt.Errorf("got %d documents but %d embeddings", len(docs), len(embeddings))
	}
	now := time.Now().Unix()
	total := len(docs)
	for i := 0; i < total; i += BATCH_SIZE {
		end := min(i+BATCH_SIZE, total)

		batcher := s.client.Batch().ObjectsBatcher()
		for j := i; j < end; j++ {
			if j > 0 && len(embeddings[j]) != len(embeddings[0]) {
				return fmt.Errorf("document %d: %w", j, ErrDimensionMismatch)
			}
			obj := documentObject(s.className, docs[j], embeddings[j], now)
			batcher = batcher.WithObjects(obj)
		}

		resp, err := batcher.Do(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert batch %d-%d: %w", i, end, err)
		}
		for _, r := range resp {
			if r.Result != nil && r.Result.Errors != nil && len(r.Result.Errors.Error) > 0 {
				return fmt.Errorf("failed to insert batch %d-%d: %s", i, end, r.Result.Errors.Error[0].Message)
			}
		}
		s.logger.Debug("Inserted batch", zap.Int("from", i), zap.Int("to", end), zap.Int("total", total))
	}
	return nil
}

func (s *WeaviateStore) SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]types.Document, []float32, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(embedding)
	getBuilder := s.client.GraphQL().Get().
		WithClassName(s.className).
		WithFields(documentFields...).
		WithNearVector(nearVector)
	if limit > 0 {
		getBuilder = getBuilder.WithLimit(limit)
	}

	result, err := getBuilder.Do(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("search failed: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, nil, fmt.Errorf("search failed: %s", result.Errors[0].Message)
	}
	docs, distances := parseDocuments(result.Data, s.className)
	return docs, distances, nil
}

func (s *WeaviateStore) markerID() string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(s.markerClass)).String()
}

func (s *WeaviateStore) IngestionMarker(ctx context.Context) (*types.IngestionMarker, error) {
	exists, err := s.client.Data().Checker().WithClassName(s.markerClass).WithID(s.markerID()).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("check ingestion marker: %w", err)
	}
	if !exists {
		return nil, nil
	}
	objs, err := s.client.Data().ObjectsGetter().WithClassName(s.markerClass).WithID(s.markerID()).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("read ingestion marker: %w", err)
	}
	if len(objs) == 0 {
		return nil, nil
	}
	props, _ := objs[0].Properties.(map[string]interface{})
	return parseMarker(props), nil
}

func (s *WeaviateStore) SetIngestionMarker(ctx context.Context, marker types.IngestionMarker) error {
	id := s.markerID()
	exists, err := s.client.Data().Checker().WithClassName(s.markerClass).WithID(id).Do(ctx)
	if err != nil {
		return fmt.Errorf("check ingestion marker: %w", err)
	}
	if exists {
		if err := s.client.Data().Deleter().WithClassName(s.markerClass).WithID(id).Do(ctx); err != nil {
			return fmt.Errorf("replace ingestion marker: %w", err)
		}
	}
	_, err = s.client.Data().Creator().
		WithClassName(s.markerClass).
		WithID(id).
		WithProperties(map[string]interface{}{
			"completed":   marker.Completed,
			"sources":     marker.Sources,
			"chunkCount":  marker.ChunkCount,
			"completedAt": marker.CompletedAt.UTC().Format(time.RFC3339),
		}).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("write ingestion marker: %w", err)
	}
	return nil
}

// Reset deletes both classes and recreates them empty.
func (s *WeaviateStore) Reset(ctx context.Context) error {
	for _, class := range []string{s.className, s.markerClass} {
		exists, err := s.client.Schema().ClassExistenceChecker().WithClassName(class).Do(ctx)
		if err != nil {
			return fmt.Errorf("failed to check %s class: %w", class, err)
		}
		if !exists {
			continue
		}
		if err := s.client.Schema().ClassDeleter().WithClassName(class).Do(ctx); err != nil {
			return fmt.Errorf("failed to delete %s class: %w", class, err)
		}
	}
	if err := s.ensureClasses(ctx); err != nil {
		return err
	}
	s.logger.Info("Reset weaviate vector store", zap.String("class", s.className))
	return nil
}

func (s *WeaviateStore) Close() error {
	return nil
}

// Helper functions

func parseAggregateCount(data map[string]models.JSONObject, class string) int {
	agg, ok := data["Aggregate"].(map[string]interface{})
	if !ok {
		return 0
	}
	rows, ok := agg[class].([]interface{})
	if !ok || len(rows) == 0 {
		return 0
	}
	row, _ := rows[0].(map[string]interface{})
	meta, _ := row["meta"].(map[string]interface{})
	return int(asFloat(meta["count"]))
}

func parseDocuments(data map[string]models.JSONObject, class string) ([]types.Document, []float32) {
	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return nil, nil
	}
	items, ok := get[class].([]interface{})
	if !ok {
		return nil, nil
	}
	docs := make([]types.Document, 0, len(items))
	distances := make([]float32, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		document := types.Document{
			Content: asString(obj["content"]),
			Metadata: types.Metadata{
				SourceID:   asString(obj["sourceId"]),
				Source:     asString(obj["source"]),
				Title:      asString(obj["title"]),
				Offset:     int(asFloat(obj["chunkOffset"])),
				ChunkIndex: int(asFloat(obj["chunkIndex"])),
			},
			CreatedAt: int64(asFloat(obj["createdAt"])),
		}
		var distance float32
		if additional, ok := obj["_additional"].(map[string]interface{}); ok {
			document.ID = asString(additional["id"])
			distance = float32(asFloat(additional["distance"]))
		}
		docs = append(docs, document)
		distances = append(distances, distance)
	}
	return docs, distances
}

func parseMarker(props map[string]interface{}) *types.IngestionMarker {
	marker := &types.IngestionMarker{
		Completed:  props["completed"] == true,
		Sources:    parseStringArray(props["sources"]),
		ChunkCount: int(asFloat(props["chunkCount"])),
	}
	if ts, err := time.Parse(time.RFC3339, asString(props["completedAt"])); err == nil {
		marker.CompletedAt = ts
	}
	return marker
}

func parseStringArray(v interface{}) []string {
	arr, ok := v.([]interface{})
	if !ok {
		return nil
	}
	result := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			result = append(result, s)
		}
	}
	return result
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}
