package db

import (
	"context"
	"time"

	"go.uber.org/zap"

	"promogen/models"
)

// InsertGeneration 写入一条生成记录，成功后回填 ID
func (s *Store) InsertGeneration(ctx context.Context, rec *models.GenerationRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	query := `INSERT INTO interactions (generation_id, user_id, image_url, metadata, created_at) VALUES (?, ?, ?, ?, ?)`
	id, err := s.insert(ctx, query, rec.GenerationID, rec.UserID, rec.ImageURL, rec.Metadata, rec.CreatedAt)
	if err != nil {
		zap.L().Error("insert interaction failed",
			zap.String("user_id", rec.UserID),
			zap.String("generation_id", rec.GenerationID),
			zap.Error(err))
		return err
	}
	rec.ID = id
	return nil
}

// ListGenerations 按写入顺序返回用户的全部生成记录
func (s *Store) ListGenerations(ctx context.Context, userID string) ([]models.GenerationRecord, error) {
	recs := make([]models.GenerationRecord, 0)
	query := `SELECT id, generation_id, user_id, image_url, metadata, created_at FROM interactions WHERE user_id = ? ORDER BY id`
	if err := s.db.SelectContext(ctx, &recs, query, userID); err != nil {
		return nil, err
	}
	return recs, nil
}

// GetGeneration 按 generation_id 查询
func (s *Store) GetGeneration(ctx context.Context, generationID string) (*models.GenerationRecord, error) {
	rec := &models.GenerationRecord{}
	query := `SELECT id, generation_id, user_id, image_url, metadata, created_at FROM interactions WHERE generation_id = ?`
	if err := s.db.GetContext(ctx, rec, query, generationID); err != nil {
		return nil, err
	}
	return rec, nil
}

// ListImageReferences 用户成功生成的图片路径，失败的记录没有图片文件
func (s *Store) ListImageReferences(ctx context.Context, userID string) ([]string, error) {
	recs, err := s.ListGenerations(ctx, userID)
	if err != nil {
		return nil, err
	}
	refs := make([]string, 0, len(recs))
	for i := range recs {
		if recs[i].Succeeded() {
			refs = append(refs, recs[i].ImageURL)
		}
	}
	return refs, nil
}
