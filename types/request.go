package types

type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

type CreateSessionRequest struct {
	UserID string `json:"user_id"`
}

type ExportRequest struct {
	Format string `form:"format"`
}
