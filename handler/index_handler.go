package handler

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/support-assistant/types"
)

//go:embed static/index.html
var staticFS embed.FS

var indexTemplate = template.Must(template.ParseFS(staticFS, "static/index.html"))

// IndexHandler serves the single-page chat UI and its static data.
type IndexHandler struct {
	page    []byte
	samples []types.SampleQuestion
}

func NewIndexHandler(assistantName string, samples []types.SampleQuestion) (*IndexHandler, error) {
	var buf bytes.Buffer
	err := indexTemplate.Execute(&buf, struct{ AssistantName string }{assistantName})
	if err != nil {
		return nil, err
	}
	return &IndexHandler{page: buf.Bytes(), samples: samples}, nil
}

func (h *IndexHandler) HandleIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", h.page)
}

func (h *IndexHandler) HandleSamples(c *gin.Context) {
	c.JSON(http.StatusOK, types.DataResponse{Status: true, Data: h.samples})
}

func (h *IndexHandler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, types.DataResponse{Status: true, Message: "OK"})
}
