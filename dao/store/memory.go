package store

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"promogen/models"
)

// MemorySession 单进程会话，重启后丢失
type MemorySession struct {
	cache *cache.Cache
}

func NewMemory(defaultTTL time.Duration) *MemorySession {
	return &MemorySession{cache: cache.New(defaultTTL, 10*time.Minute)}
}

func (s *MemorySession) Save(ctx context.Context, entry models.SessionEntry, ttl time.Duration) error {
	s.cache.Set(generationKey(entry.GenerationID), entry, ttl)
	s.cache.Set(latestKey(entry.UserID), entry.GenerationID, ttl)
	return nil
}

func (s *MemorySession) Get(ctx context.Context, generationID string) (*models.SessionEntry, error) {
	v, ok := s.cache.Get(generationKey(generationID))
	if !ok {
		return nil, ErrNotFound
	}
	entry := v.(models.SessionEntry)
	return &entry, nil
}

func (s *MemorySession) Latest(ctx context.Context, userID string) (*models.SessionEntry, error) {
	v, ok := s.cache.Get(latestKey(userID))
	if !ok {
		return nil, ErrNotFound
	}
	return s.Get(ctx, v.(string))
}

func (s *MemorySession) Ping(ctx context.Context) error {
	return nil
}
