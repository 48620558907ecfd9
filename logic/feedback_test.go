package logic

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promogen/dao/store"
	"promogen/models"
)

type memFeedback struct {
	mu   sync.Mutex
	recs []models.FeedbackRecord
	err  error
}

func (m *memFeedback) InsertFeedback(_ context.Context, rec *models.FeedbackRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	rec.ID = int64(len(m.recs) + 1)
	m.recs = append(m.recs, *rec)
	return nil
}

func TestFeedbackSession_MarkLatest(t *testing.T) {
	ctx := context.Background()
	fb := &memFeedback{}
	s := NewFeedbackSession(store.NewMemory(time.Hour), fb, time.Hour)

	require.NoError(t, s.Remember(ctx, "u2", "g1", "data/images/image_u2_g1.jpg"))
	rec, err := s.Mark(ctx, "u2", "", true)
	require.NoError(t, err)
	assert.Equal(t, "data/images/image_u2_g1.jpg", rec.ImageURL)
	assert.True(t, rec.Result)
	assert.Equal(t, time.UTC, rec.CreatedAt.Location())

	require.NoError(t, s.Remember(ctx, "u2", "g2", "data/images/image_u2_g2.jpg"))
	rec, err = s.Mark(ctx, "u2", "", false)
	require.NoError(t, err)
	assert.Equal(t, "data/images/image_u2_g2.jpg", rec.ImageURL)
	assert.False(t, rec.Result)

	// 指定 generation_id 时可以标注更早的图片
	rec, err = s.Mark(ctx, "u2", "g1", false)
	require.NoError(t, err)
	assert.Equal(t, "data/images/image_u2_g1.jpg", rec.ImageURL)

	assert.Len(t, fb.recs, 3)
}

func TestFeedbackSession_MarkErrors(t *testing.T) {
	ctx := context.Background()
	fb := &memFeedback{}
	s := NewFeedbackSession(store.NewMemory(time.Hour), fb, time.Hour)

	_, err := s.Mark(ctx, "nobody", "", true)
	assert.ErrorIs(t, err, ErrNoRememberedImage)

	_, err = s.Mark(ctx, "u1", "missing", true)
	assert.ErrorIs(t, err, ErrNoRememberedImage)

	require.NoError(t, s.Remember(ctx, "u1", "g1", "img"))
	_, err = s.Mark(ctx, "intruder", "g1", true)
	assert.ErrorIs(t, err, ErrForeignGeneration)
	assert.Empty(t, fb.recs)

	fb.err = errors.New("disk full")
	_, err = s.Mark(ctx, "u1", "", true)
	assert.ErrorIs(t, err, ErrStoreFailure)
}

type brokenSessions struct{ store.SessionStore }

func (brokenSessions) Save(context.Context, models.SessionEntry, time.Duration) error {
	return errors.New("connection refused")
}

func (brokenSessions) Latest(context.Context, string) (*models.SessionEntry, error) {
	return nil, errors.New("connection refused")
}

func TestFeedbackSession_SessionUnavailable(t *testing.T) {
	ctx := context.Background()
	s := NewFeedbackSession(brokenSessions{}, &memFeedback{}, time.Hour)

	assert.ErrorIs(t, s.Remember(ctx, "u1", "g1", "img"), ErrSessionUnavailable)
	_, err := s.Mark(ctx, "u1", "", true)
	assert.ErrorIs(t, err, ErrSessionUnavailable)
}
