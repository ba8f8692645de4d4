package repository

import (
	"context"
	"testing"
	"time"

	"docflow-go/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionRepo(t *testing.T) (UploadSessionRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewUploadSessionRepository(rdb, time.Hour), mr
}

func TestUploadSessionRepository_SaveGetDelete(t *testing.T) {
	ctx := context.Background()
	repo, mr := newTestSessionRepo(t)

	created := time.Now().Add(-time.Minute).Truncate(time.Millisecond)
	require.NoError(t, repo.Save(ctx, &model.UploadSession{
		UploadID:    "up-1",
		Filename:    "a.pdf",
		ContentType: "application/pdf",
		CreatedAt:   created,
	}))
	assert.True(t, mr.Exists("upload:session:up-1"))
	assert.Equal(t, time.Hour, mr.TTL("upload:session:up-1"))

	session, err := repo.Get(ctx, "up-1")
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", session.Filename)
	assert.Equal(t, "application/pdf", session.ContentType)
	assert.True(t, created.Equal(session.CreatedAt))
	assert.Empty(t, session.PresignedParts)

	require.NoError(t, repo.Delete(ctx, "up-1"))
	_, err = repo.Get(ctx, "up-1")
	assert.ErrorIs(t, err, model.ErrUploadNotFound)
	assert.False(t, mr.Exists("upload:parts:up-1"))
}

func TestUploadSessionRepository_PresignedParts(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestSessionRepo(t)

	for _, n := range []int{3, 1, 10, 3} {
		require.NoError(t, repo.MarkPartPresigned(ctx, "up-1", n))
	}
	parts, err := repo.PresignedParts(ctx, "up-1")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 10}, parts)

	none, err := repo.PresignedParts(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUploadSessionRepository_MarkPartPresignedRange(t *testing.T) {
	ctx := context.Background()
	repo, mr := newTestSessionRepo(t)

	assert.Error(t, repo.MarkPartPresigned(ctx, "up-big", model.MaxPartNumber+1))
	assert.Error(t, repo.MarkPartPresigned(ctx, "up-big", 4_294_967_295))
	assert.Error(t, repo.MarkPartPresigned(ctx, "up-big", 0))
	assert.False(t, mr.Exists("upload:parts:up-big"))

	require.NoError(t, repo.MarkPartPresigned(ctx, "up-max", model.MaxPartNumber))
	parts, err := repo.PresignedParts(ctx, "up-max")
	require.NoError(t, err)
	assert.Equal(t, []int{model.MaxPartNumber}, parts)
}

func TestUploadSessionRepository_ListStale(t *testing.T) {
	ctx := context.Background()
	repo, mr := newTestSessionRepo(t)

	now := time.Now()
	require.NoError(t, repo.Save(ctx, &model.UploadSession{UploadID: "old", Filename: "old.pdf", CreatedAt: now.Add(-48 * time.Hour)}))
	require.NoError(t, repo.Save(ctx, &model.UploadSession{UploadID: "expired", Filename: "gone.pdf", CreatedAt: now.Add(-47 * time.Hour)}))
	require.NoError(t, repo.Save(ctx, &model.UploadSession{UploadID: "fresh", Filename: "new.pdf", CreatedAt: now}))
	mr.Del("upload:session:expired")

	stale, err := repo.ListStale(ctx, now.Add(-24*time.Hour), 100)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "old", stale[0].UploadID)
	assert.Equal(t, "old.pdf", stale[0].Filename)

	members, err := mr.ZMembers("upload:sessions")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"old", "fresh"}, members)
}
