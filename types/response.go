package types

type DataResponse struct {
	Status  bool        `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type SearchResponse struct {
	Documents []Document `json:"documents"`
	Distances []float32  `json:"distances"`
}

type SessionResponse struct {
	SessionID string        `json:"session_id"`
	UserID    string        `json:"user_id,omitempty"`
	Messages  []ChatMessage `json:"messages"`
}

type SampleQuestion struct {
	Label  string `json:"label"`
	Prompt string `json:"prompt"`
}
