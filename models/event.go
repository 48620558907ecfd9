package models

// GenerationEvent 生成结束后推送给 SSE 订阅者并发布到 AMQP
type GenerationEvent struct {
	Code         int    `json:"code"`
	GenerationID string `json:"generation_id"`
	UserID       string `json:"user_id"`
	ImagePath    string `json:"image_path"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
	CreatedAt    int64  `json:"created_at"`
}
