package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promogen/models"
	"promogen/settings"
)

// NewTestStore 每个测试一个独立的内存库
func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := settings.DBConfig{
		Driver:       "sqlite",
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
		ReadyTimeout: 5 * time.Second,
	}
	s, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleRecord(userID, generationID, status string) *models.GenerationRecord {
	return &models.GenerationRecord{
		GenerationID: generationID,
		UserID:       userID,
		ImageURL:     "data/images/image_" + userID + "_" + generationID + ".jpg",
		Metadata: models.Metadata{
			Age:            20,
			Sex:            "male",
			Product:        "people",
			Height:         723,
			Width:          65,
			Prompt:         "The image must include the colors light salmon, pale turquoise, royal blue.",
			NegativePrompt: "avoid any depiction of animals or objects.",
			Strength:       0.81,
			GuidanceScale:  12,
			Status:         status,
		},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestStore_GenerationRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := sampleRecord("u1", "g1", models.StatusSucceeded)
	second := sampleRecord("u1", "g2", models.StatusFailed)
	second.Metadata.Error = "CUDA out of memory"
	other := sampleRecord("u2", "g3", models.StatusSucceeded)

	for _, rec := range []*models.GenerationRecord{first, other, second} {
		require.NoError(t, s.InsertGeneration(ctx, rec))
		assert.NotZero(t, rec.ID)
	}

	recs, err := s.ListGenerations(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, recs, 2)

	// 按写入顺序
	assert.Equal(t, "g1", recs[0].GenerationID)
	assert.Equal(t, "g2", recs[1].GenerationID)

	assert.Equal(t, first.UserID, recs[0].UserID)
	assert.Equal(t, first.ImageURL, recs[0].ImageURL)
	assert.Equal(t, first.Metadata, recs[0].Metadata)
	assert.Equal(t, second.Metadata, recs[1].Metadata)
	assert.Equal(t, "CUDA out of memory", recs[1].Metadata.Error)
	assert.True(t, first.CreatedAt.Equal(recs[0].CreatedAt))

	got, err := s.GetGeneration(ctx, "g3")
	require.NoError(t, err)
	assert.Equal(t, "u2", got.UserID)
}

func TestStore_ListGenerationsEmpty(t *testing.T) {
	s := newTestStore(t)

	recs, err := s.ListGenerations(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestStore_ListImageReferencesSkipsFailed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertGeneration(ctx, sampleRecord("u1", "ok1", models.StatusSucceeded)))
	require.NoError(t, s.InsertGeneration(ctx, sampleRecord("u1", "bad", models.StatusFailed)))
	require.NoError(t, s.InsertGeneration(ctx, sampleRecord("u1", "ok2", models.StatusSucceeded)))

	refs, err := s.ListImageReferences(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"data/images/image_u1_ok1.jpg",
		"data/images/image_u1_ok2.jpg",
	}, refs)
}

func TestStore_DuplicateGenerationIDRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertGeneration(ctx, sampleRecord("u1", "same", models.StatusSucceeded)))
	assert.Error(t, s.InsertGeneration(ctx, sampleRecord("u1", "same", models.StatusSucceeded)))

	// 失败的事务已回滚
	recs, err := s.ListGenerations(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestStore_Feedback(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	good := &models.FeedbackRecord{UserID: "u1", ImageURL: "a.jpg", Result: true}
	bad := &models.FeedbackRecord{UserID: "u1", ImageURL: "a.jpg", Result: false}
	other := &models.FeedbackRecord{UserID: "u2", ImageURL: "b.jpg", Result: true}
	for _, rec := range []*models.FeedbackRecord{good, bad, other} {
		require.NoError(t, s.InsertFeedback(ctx, rec))
	}

	// 同一张图可以被多次标注
	recs, err := s.ListFeedback(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.True(t, recs[0].Result)
	assert.False(t, recs[1].Result)
	assert.Equal(t, good.ID, recs[0].ID)

	all, err := s.ListFeedback(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestStore_WaitReadyHonoursContext(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	assert.Error(t, s.WaitReady(ctx, time.Minute))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(settings.DBConfig{Driver: "postgres"})
	assert.Error(t, err)
}
