package service

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tieubaoca/support-assistant/types"
	"go.uber.org/zap"
)

const (
	wsReadLimit   = 512 * 1024
	wsIdleTimeout = 5 * time.Minute
	wsWriteWait   = 10 * time.Second
)

// WebSocketService streams chat turns to the browser. Each connection is
// bound to one session; messages are handled in order.
type WebSocketService struct {
	chat     *ChatService
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewWebSocketService(chat *ChatService, logger *zap.Logger) *WebSocketService {
	return &WebSocketService{
		chat: chat,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger,
	}
}

func (s *WebSocketService) HandleChat(w http.ResponseWriter, r *http.Request, session *Session) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Upgrade error", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsReadLimit)

	ctx := r.Context()
	log := s.logger.With(zap.String("session_id", session.ID))

	write := func(msgType string, payload interface{}) error {
		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(types.WebSocketResponse{Type: msgType, Payload: payload})
	}

	for {
		conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		_, p, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}

		var req types.WebsocketRequest
		if err := json.Unmarshal(p, &req); err != nil {
			log.Debug("Unmarshal error", zap.Error(err))
			if err := write(types.TypeWebsocketError, types.WebSocketErrorResponse{Message: "invalid message"}); err != nil {
				return
			}
			continue
		}

		switch req.Type {
		case types.TypeWebsocketChat:
			payloadBytes, err := json.Marshal(req.Payload)
			if err != nil {
				return
			}
			var payload types.WebSocketChatPayload
			if err := json.Unmarshal(payloadBytes, &payload); err != nil || payload.Message == "" {
				if err := write(types.TypeWebsocketError, types.WebSocketErrorResponse{Message: "message must not be empty"}); err != nil {
					return
				}
				continue
			}
			if err := write(types.TypeWebsocketProcessing, nil); err != nil {
				return
			}
			reply := s.chat.HandleTurn(ctx, session, payload.Message, func(event types.RunEvent) error {
				switch event.Type {
				case types.RunEventContent:
					return write(types.TypeWebsocketContent, types.WebSocketContentResponse{Delta: event.Content})
				case types.RunEventToolCall:
					return write(types.TypeWebsocketToolCall, event.ToolCall)
				case types.RunEventReferences:
					return write(types.TypeWebsocketReferences, event.References)
				}
				return nil
			})
			if err := write(types.TypeWebsocketDone, types.WebSocketDoneResponse{
				Message: reply,
				HTML:    MarkdownToHTML(reply.Content),
			}); err != nil {
				return
			}

		case types.TypeWebsocketReset:
			session.Reset()
			if err := write(types.TypeWebsocketReset, nil); err != nil {
				return
			}

		case types.TypeWebsocketPing:
			if err := write(types.TypeWebsocketPong, nil); err != nil {
				return
			}

		default:
			log.Debug("Invalid message type", zap.String("type", req.Type))
			if err := write(types.TypeWebsocketError, types.WebSocketErrorResponse{Message: "unknown message type"}); err != nil {
				return
			}
		}
	}
}
