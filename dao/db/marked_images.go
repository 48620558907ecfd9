package db

import (
	"context"
	"time"

	"go.uber.org/zap"

	"promogen/models"
)

// InsertFeedback 记录一次好/坏标注，不去重
func (s *Store) InsertFeedback(ctx context.Context, rec *models.FeedbackRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	query := `INSERT INTO marked_images (user_id, image_url, result, created_at) VALUES (?, ?, ?, ?)`
	id, err := s.insert(ctx, query, rec.UserID, rec.ImageURL, rec.Result, rec.CreatedAt)
	if err != nil {
		zap.L().Error("insert marked image failed", zap.String("user_id", rec.UserID), zap.Error(err))
		return err
	}
	rec.ID = id
	return nil
}

// ListFeedback userID 为空时返回全部标注
func (s *Store) ListFeedback(ctx context.Context, userID string) ([]models.FeedbackRecord, error) {
	recs := make([]models.FeedbackRecord, 0)
	var err error
	if userID == "" {
		err = s.db.SelectContext(ctx, &recs, `SELECT id, user_id, image_url, result, created_at FROM marked_images ORDER BY id`)
	} else {
		err = s.db.SelectContext(ctx, &recs, `SELECT id, user_id, image_url, result, created_at FROM marked_images WHERE user_id = ? ORDER BY id`, userID)
	}
	if err != nil {
		return nil, err
	}
	return recs, nil
}
