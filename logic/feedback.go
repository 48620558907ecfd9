package logic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"promogen/dao/store"
	"promogen/models"
)

// FeedbackStore marked_images 的写入能力
type FeedbackStore interface {
	InsertFeedback(ctx context.Context, rec *models.FeedbackRecord) error
}

// FeedbackSession 记住用户生成过的图片，之后的好/坏标注不需要再指定图片
// 会话按 generation_id 保存；不带 generation_id 的标注落到该用户最近一次生成上
type FeedbackSession struct {
	sessions store.SessionStore
	feedback FeedbackStore
	ttl      time.Duration
}

func NewFeedbackSession(sessions store.SessionStore, feedback FeedbackStore, ttl time.Duration) *FeedbackSession {
	return &FeedbackSession{sessions: sessions, feedback: feedback, ttl: ttl}
}

// Remember 生成成功后调用
func (s *FeedbackSession) Remember(ctx context.Context, userID, generationID, imageRef string) error {
	entry := models.SessionEntry{GenerationID: generationID, UserID: userID, ImageURL: imageRef}
	if err := s.sessions.Save(ctx, entry, s.ttl); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}
	return nil
}

// Mark 查出要标注的图片并写入一条反馈记录
func (s *FeedbackSession) Mark(ctx context.Context, userID, generationID string, result bool) (*models.FeedbackRecord, error) {
	var (
		entry *models.SessionEntry
		err   error
	)
	if generationID != "" {
		entry, err = s.sessions.Get(ctx, generationID)
	} else {
		entry, err = s.sessions.Latest(ctx, userID)
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoRememberedImage
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}
	if entry.UserID != userID {
		zap.L().Warn("mark with another user's generation",
			zap.String("user_id", userID),
			zap.String("generation_id", generationID))
		return nil, ErrForeignGeneration
	}

	rec := &models.FeedbackRecord{
		UserID:    userID,
		ImageURL:  entry.ImageURL,
		Result:    result,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := s.feedback.InsertFeedback(ctx, rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	return rec, nil
}
