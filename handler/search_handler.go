package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/support-assistant/types"
)

const maxSearchLimit = 50

// DocumentSearcher is the knowledge-base lookup used by the search endpoint.
type DocumentSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]types.Document, []float32, error)
}

type SearchHandler struct {
	searcher DocumentSearcher
}

func NewSearchHandler(searcher DocumentSearcher) *SearchHandler {
	return &SearchHandler{
		searcher: searcher,
	}
}

func (h *SearchHandler) HandleSearch(c *gin.Context) {
	var req types.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, types.DataResponse{Status: false, Message: "Invalid request body"})
		return
	}
	if req.Limit <= 0 {
		req.Limit = 5
	}
	req.Limit = min(req.Limit, maxSearchLimit)

	docs, distances, err := h.searcher.Search(c.Request.Context(), req.Query, req.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.DataResponse{Status: false, Message: "Search failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, types.DataResponse{
		Status: true,
		Data: types.SearchResponse{
			Documents: docs,
			Distances: distances,
		},
	})
}
