package models

import "time"

// FeedbackRecord 对应 marked_images 表，只插入不更新
type FeedbackRecord struct {
	ID        int64     `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	ImageURL  string    `db:"image_url" json:"image_url"`
	Result    bool      `db:"result" json:"result"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// MarkRequest POST /mark 请求体，generation_id 为空时使用该用户最近一次生成
// result 用指针区分 false 与缺省
type MarkRequest struct {
	UserID       string `json:"user_id" binding:"required"`
	GenerationID string `json:"generation_id"`
	Result       *bool  `json:"result" binding:"required"`
}

// SessionEntry 反馈会话中记住的一次生成
type SessionEntry struct {
	GenerationID string `json:"generation_id"`
	UserID       string `json:"user_id"`
	ImageURL     string `json:"image_url"`
}
