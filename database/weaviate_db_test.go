package database

import (
	"testing"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tieubaoca/support-assistant/types"
	"github.com/weaviate/weaviate/entities/models"
)

func TestClassName(t *testing.T) {
	assert.Equal(t, "CustomerSupport", className("customerSupport"))
	assert.Equal(t, "Document", className(""))
}

func TestParseDocuments(t *testing.T) {
	data := map[string]models.JSONObject{
		"Get": map[string]interface{}{
			"CustomerSupport": []interface{}{
				map[string]interface{}{
					"content":     "Refunds are processed in 5-7 days.",
					"title":       "FAQ",
					"source":      "https://example.com/faq",
					"sourceId":    "FAQ",
					"chunkOffset": float64(974),
					"chunkIndex":  float64(1),
					"createdAt":   float64(1700000000),
					"_additional": map[string]interface{}{"id": "abc", "distance": 0.12},
				},
				"garbage",
			},
		},
	}
	docs, distances := parseDocuments(data, "CustomerSupport")
	require.Len(t, docs, 1)
	assert.Equal(t, "abc", docs[0].ID)
	assert.Equal(t, "FAQ", docs[0].Metadata.SourceID)
	assert.Equal(t, 974, docs[0].Metadata.Offset)
	assert.Equal(t, 1, docs[0].Metadata.ChunkIndex)
	assert.InDelta(t, 0.12, distances[0], 1e-6)

	docs, _ = parseDocuments(map[string]models.JSONObject{}, "CustomerSupport")
	assert.Empty(t, docs)
}

func TestParseAggregateCount(t *testing.T) {
	data := map[string]models.JSONObject{
		"Aggregate": map[string]interface{}{
			"CustomerSupport": []interface{}{
				map[string]interface{}{"meta": map[string]interface{}{"count": float64(42)}},
			},
		},
	}
	assert.Equal(t, 42, parseAggregateCount(data, "CustomerSupport"))
	assert.Zero(t, parseAggregateCount(data, "Other"))
}

func TestParseMarker(t *testing.T) {
	marker := parseMarker(map[string]interface{}{
		"completed":   true,
		"sources":     []interface{}{"FAQ", "HOME"},
		"chunkCount":  float64(12),
		"completedAt": "2025-01-02T03:04:05Z",
	})
	assert.True(t, marker.Completed)
	assert.Equal(t, []string{"FAQ", "HOME"}, marker.Sources)
	assert.Equal(t, 12, marker.ChunkCount)
	assert.Equal(t, 2025, marker.CompletedAt.Year())
}

func TestDocumentObjectUsesChunkID(t *testing.T) {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte("JIOPG#https://jiopay.com/pg#0")).String()
	doc := types.Document{
		ID:       id,
		Content:  "Payment gateway setup",
		Metadata: types.Metadata{SourceID: "JIOPG", Source: "https://jiopay.com/pg", ChunkIndex: 0},
	}
	obj := documentObject("CustomerSupport", doc, []float32{0.1, 0.2}, 1700000000)
	assert.Equal(t, strfmt.UUID(id), obj.ID)
	assert.Equal(t, "CustomerSupport", obj.Class)
	props := obj.Properties.(map[string]interface{})
	assert.Equal(t, "JIOPG", props["sourceId"])
	assert.Equal(t, int64(1700000000), props["createdAt"])

	other := documentObject("CustomerSupport", types.Document{ID: "not-a-uuid"}, []float32{0.1}, 1)
	_, err := uuid.Parse(other.ID.String())
	assert.NoError(t, err)
}
