package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pranavkumar2025/DakPad-For-Updates-sub001/internal/models"
	appErrors "github.com/Pranavkumar2025/DakPad-For-Updates-sub001/pkg/errors"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCacheRepositoryRoundTrip(t *testing.T) {
	mr, client := newRedis(t)
	repo := NewCacheRepository(client, "dakpad:")
	ctx := context.Background()

	var view models.TrackingView
	assert.ErrorIs(t, repo.Get(ctx, "track:APP001", &view), appErrors.ErrCacheMiss)

	require.NoError(t, repo.Set(ctx, "track:APP001", models.TrackingView{ApplicantID: "APP001", Status: models.StatusInProcess}, time.Minute))
	assert.True(t, mr.Exists("dakpad:track:APP001"))

	require.NoError(t, repo.Get(ctx, "track:APP001", &view))
	assert.Equal(t, models.StatusInProcess, view.Status)

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, repo.Get(ctx, "track:APP001", &view), appErrors.ErrCacheMiss)
}

func TestCacheRepositoryDelete(t *testing.T) {
	mr, client := newRedis(t)
	repo := NewCacheRepository(client, "dakpad:")
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "track:APP001", "a", time.Minute))
	require.NoError(t, repo.Set(ctx, "dashboard:all", "b", time.Minute))
	require.NoError(t, repo.Set(ctx, "dashboard:Ara Sadar", "c", time.Minute))

	require.NoError(t, repo.Delete(ctx, "track:APP001"))
	assert.False(t, mr.Exists("dakpad:track:APP001"))

	require.NoError(t, repo.DeleteByPattern(ctx, "dashboard:*"))
	assert.False(t, mr.Exists("dakpad:dashboard:all"))
	assert.False(t, mr.Exists("dakpad:dashboard:Ara Sadar"))
}

func TestCacheRepositoryDeleteByPatternBatches(t *testing.T) {
	mr, client := newRedis(t)
	repo := NewCacheRepository(client, "dakpad:")
	ctx := context.Background()

	for i := 0; i < 2*scanBatch+17; i++ {
		require.NoError(t, repo.Set(ctx, fmt.Sprintf("dashboard:block-%d", i), i, time.Minute))
	}
	require.NoError(t, repo.Set(ctx, "track:APP001", "kept", time.Minute))

	require.NoError(t, repo.DeleteByPattern(ctx, "dashboard:*"))
	assert.Equal(t, []string{"dakpad:track:APP001"}, mr.Keys())
}

func TestCacheRepositoryVersionedSetRefusesRetiredVersions(t *testing.T) {
	mr, client := newRedis(t)
	repo := NewCacheRepository(client, "dakpad:")
	ctx := context.Background()

	written, err := repo.SetVersioned(ctx, "track:APP001", models.TrackingView{Status: models.StatusNotAssignedYet}, 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, written)

	require.NoError(t, repo.Retire(ctx, "track:APP001", 2, time.Hour))
	assert.False(t, mr.Exists("dakpad:track:APP001"))
	version, err := mr.Get("dakpad:track:APP001:version")
	require.NoError(t, err)
	assert.Equal(t, "2", version)

	written, err = repo.SetVersioned(ctx, "track:APP001", models.TrackingView{Status: models.StatusNotAssignedYet}, 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, written)
	assert.False(t, mr.Exists("dakpad:track:APP001"))

	written, err = repo.SetVersioned(ctx, "track:APP001", models.TrackingView{Status: models.StatusInProcess}, 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, written)
	assert.Equal(t, time.Minute, mr.TTL("dakpad:track:APP001"))

	// An out-of-order retire never lowers the recorded version.
	require.NoError(t, repo.Retire(ctx, "track:APP001", 1, time.Hour))
	version, err = mr.Get("dakpad:track:APP001:version")
	require.NoError(t, err)
	assert.Equal(t, "2", version)
}

func TestCacheRepositoryNilClient(t *testing.T) {
	repo := NewCacheRepository(nil, "")
	var out string
	assert.ErrorIs(t, repo.Get(context.Background(), "k", &out), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(context.Background(), "k", "v", time.Minute))
}

func TestIdempotencyReserveCompleteRelease(t *testing.T) {
	_, client := newRedis(t)
	repo := NewIdempotencyRepository(client, "idem:")
	ctx := context.Background()

	existing, reserved, err := repo.Reserve(ctx, "key-1", "fp", time.Hour)
	require.NoError(t, err)
	assert.True(t, reserved)
	assert.Nil(t, existing)

	existing, reserved, err = repo.Reserve(ctx, "key-1", "fp", time.Hour)
	require.NoError(t, err)
	assert.False(t, reserved)
	require.NotNil(t, existing)
	assert.Equal(t, models.IdempotencyPending, existing.State)

	require.NoError(t, repo.Complete(ctx, "key-1", models.IdempotencyRecord{Fingerprint: "fp", StatusCode: 201, Body: []byte(`{"ok":true}`)}, time.Hour))
	existing, reserved, err = repo.Reserve(ctx, "key-1", "fp", time.Hour)
	require.NoError(t, err)
	assert.False(t, reserved)
	assert.Equal(t, models.IdempotencyCompleted, existing.State)
	assert.Equal(t, 201, existing.StatusCode)
	assert.JSONEq(t, `{"ok":true}`, string(existing.Body))

	require.NoError(t, repo.Release(ctx, "key-1"))
	_, reserved, err = repo.Reserve(ctx, "key-1", "fp", time.Hour)
	require.NoError(t, err)
	assert.True(t, reserved)
}
