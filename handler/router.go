package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/support-assistant/metrics"
	"github.com/tieubaoca/support-assistant/middleware"
	"go.uber.org/zap"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Index   *IndexHandler
	Chat    *ChatHandler
	Session *SessionHandler
	Search  *SearchHandler
	Cors    *CorsHandler
	Metrics *metrics.Metrics
}

func SetupRouter(h Handlers, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestLogger(logger))
	router.Use(h.Cors.CorsMiddleware)

	router.GET("/", h.Index.HandleIndex)
	router.GET("/health", h.Index.HandleHealth)
	if h.Metrics != nil {
		router.GET("/metrics", gin.WrapH(h.Metrics.Handler()))
	}

	apiV1 := router.Group("/api/v1")
	{
		apiV1.GET("/samples", h.Index.HandleSamples)

		apiV1.POST("/sessions", h.Session.HandleCreateSession)
		apiV1.GET("/sessions/:id/messages", h.Session.HandleGetMessages)
		apiV1.POST("/sessions/:id/reset", h.Session.HandleResetSession)
		apiV1.DELETE("/sessions/:id", h.Session.HandleDeleteSession)
		apiV1.GET("/sessions/:id/export", h.Session.HandleExport)

		apiV1.POST("/chat", h.Chat.HandleChat)
		apiV1.GET("/ws", h.Chat.HandleWebSocket)

		apiV1.POST("/documents/search", h.Search.HandleSearch)
	}
	return router
}
