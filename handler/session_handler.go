package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tieubaoca/support-assistant/service"
	"github.com/tieubaoca/support-assistant/types"
)

type SessionHandler struct {
	sessions *service.SessionManager
	export   *service.ExportService
}

func NewSessionHandler(sessions *service.SessionManager, export *service.ExportService) *SessionHandler {
	return &SessionHandler{sessions: sessions, export: export}
}

func sessionError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, service.ErrSessionNotFound) {
		status = http.StatusNotFound
	}
	c.JSON(status, types.DataResponse{Status: false, Message: err.Error()})
}

func sessionResponse(s *service.Session) types.SessionResponse {
	return types.SessionResponse{
		SessionID: s.ID,
		UserID:    s.UserID,
		Messages:  s.Messages(),
	}
}

func (h *SessionHandler) HandleCreateSession(c *gin.Context) {
	var req types.CreateSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, types.DataResponse{Status: false, Message: "Invalid request body"})
			return
		}
	}
	session := h.sessions.Create(req.UserID)
	c.JSON(http.StatusCreated, types.DataResponse{Status: true, Data: sessionResponse(session)})
}

func (h *SessionHandler) HandleGetMessages(c *gin.Context) {
	session, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		sessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.DataResponse{Status: true, Data: sessionResponse(session)})
}

func (h *SessionHandler) HandleResetSession(c *gin.Context) {
	session, err := h.sessions.Reset(c.Param("id"))
	if err != nil {
		sessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.DataResponse{Status: true, Data: sessionResponse(session)})
}

func (h *SessionHandler) HandleDeleteSession(c *gin.Context) {
	if err := h.sessions.Destroy(c.Param("id")); err != nil {
		sessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.DataResponse{Status: true})
}

func (h *SessionHandler) HandleExport(c *gin.Context) {
	session, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		sessionError(c, err)
		return
	}
	var req types.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{Status: false, Message: "Invalid query"})
		return
	}
	data, f, err := h.export.ExportHistory(session, req.Format)
	if err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{Status: false, Message: err.Error()})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s%s", service.ExportBaseName, f.FileExtension()))
	c.Data(http.StatusOK, f.ContentType(), data)
}
