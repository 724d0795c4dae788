package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/support-assistant/service"
	"github.com/tieubaoca/support-assistant/types"
)

type ChatHandler struct {
	chat     *service.ChatService
	sessions *service.SessionManager
	ws       *service.WebSocketService
}

func NewChatHandler(chat *service.ChatService, sessions *service.SessionManager, ws *service.WebSocketService) *ChatHandler {
	return &ChatHandler{
		chat:     chat,
		sessions: sessions,
		ws:       ws,
	}
}

// resolveSession returns the named session, or a new one when id is empty.
func (h *ChatHandler) resolveSession(c *gin.Context, id string) (*service.Session, bool) {
	if id == "" {
		return h.sessions.Create(""), true
	}
	session, err := h.sessions.Get(id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrSessionNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, types.DataResponse{Status: false, Message: err.Error()})
		return nil, false
	}
	return session, true
}

// HandleChat runs one turn and returns the assistant message once complete.
func (h *ChatHandler) HandleChat(c *gin.Context) {
	var req types.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "Invalid request body",
		})
		return
	}
	session, ok := h.resolveSession(c, req.SessionID)
	if !ok {
		return
	}

	reply := h.chat.HandleTurn(c.Request.Context(), session, req.Message, nil)
	c.JSON(http.StatusOK, types.DataResponse{
		Status: true,
		Data: types.ChatResponse{
			SessionID: session.ID,
			Message:   &reply,
		},
	})
}

// HandleWebSocket upgrades the connection and streams turns for the session
// named by the session_id query parameter.
func (h *ChatHandler) HandleWebSocket(c *gin.Context) {
	session, ok := h.resolveSession(c, c.Query("session_id"))
	if !ok {
		return
	}
	h.ws.HandleChat(c.Writer, c.Request, session)
}
