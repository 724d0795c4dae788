package types

const (
	TypeWebsocketPing       = "ping"
	TypeWebsocketPong       = "pong"
	TypeWebsocketChat       = "chat"
	TypeWebsocketReset      = "reset"
	TypeWebsocketProcessing = "processing"
	TypeWebsocketContent    = "content"
	TypeWebsocketToolCall   = "tool_call"
	TypeWebsocketReferences = "references"
	TypeWebsocketDone       = "done"
	TypeWebsocketError      = "error"
)

type WebsocketRequest struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type WebSocketChatPayload struct {
	Message string `json:"message"`
}

type WebSocketResponse struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type WebSocketContentResponse struct {
	Delta string `json:"delta"`
}

type WebSocketDoneResponse struct {
	Message ChatMessage `json:"message"`
	HTML    string      `json:"html"`
}

type WebSocketErrorResponse struct {
	Message string `json:"message"`
}
