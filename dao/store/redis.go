package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"promogen/models"
)

// ErrNotFound 会话中没有对应记录或已过期
var ErrNotFound = errors.New("session entry not found")

// SessionStore 反馈会话存储，按 generation_id 保存，另记录每个用户最近一次生成
type SessionStore interface {
	Save(ctx context.Context, entry models.SessionEntry, ttl time.Duration) error
	Get(ctx context.Context, generationID string) (*models.SessionEntry, error)
	Latest(ctx context.Context, userID string) (*models.SessionEntry, error)
	Ping(ctx context.Context) error
}

func generationKey(generationID string) string {
	return "session:generation:" + generationID
}

func latestKey(userID string) string {
	return "session:user:" + userID + ":latest"
}

// RedisSession 多副本共享的会话
type RedisSession struct {
	client *redis.Client
}

// NewRedis 连接 redis 并 ping 一次
func NewRedis(ctx context.Context, addr, password string, db int) (*RedisSession, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &RedisSession{client: client}, nil
}

func NewRedisWithClient(client *redis.Client) *RedisSession {
	return &RedisSession{client: client}
}

func (s *RedisSession) Save(ctx context.Context, entry models.SessionEntry, ttl time.Duration) error {
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	// 两个 key 放在同一个事务管道里写入
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, generationKey(entry.GenerationID), b, ttl)
	pipe.Set(ctx, latestKey(entry.UserID), entry.GenerationID, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		zap.L().Error("save session entry failed",
			zap.String("user_id", entry.UserID),
			zap.String("generation_id", entry.GenerationID),
			zap.Error(err))
		return err
	}
	return nil
}

func (s *RedisSession) Get(ctx context.Context, generationID string) (*models.SessionEntry, error) {
	b, err := s.client.Get(ctx, generationKey(generationID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	entry := &models.SessionEntry{}
	if err := json.Unmarshal(b, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *RedisSession) Latest(ctx context.Context, userID string) (*models.SessionEntry, error) {
	generationID, err := s.client.Get(ctx, latestKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, generationID)
}

func (s *RedisSession) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisSession) Close() error {
	return s.client.Close()
}
