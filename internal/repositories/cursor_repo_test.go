package repositories

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prudhvinik1/eventrelay/internal/models"
)

// getTestRedisClient returns a Redis client for testing, skipping when no
// test instance is configured.
func getTestRedisClient(t *testing.T) *redis.Client {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)

	err = client.Ping(context.Background()).Err()
	require.NoError(t, err, "Failed to connect to test Redis")

	t.Cleanup(func() { client.Close() })
	return client
}

func TestCursorRepository_AdvanceIsMonotonic(t *testing.T) {
	client := getTestRedisClient(t)
	repo := NewRedisCursorRepository(client)
	ctx := context.Background()

	accountID := uuid.New()
	deviceID := uuid.New()

	// No cursor yet
	_, err := repo.Get(ctx, accountID, deviceID)
	assert.ErrorIs(t, err, ErrNotFound)

	// First ack creates the cursor
	advanced, err := repo.Advance(ctx, accountID, deviceID, models.FormatPosition(3))
	require.NoError(t, err)
	assert.True(t, advanced)

	// A higher position moves it forward
	advanced, err = repo.Advance(ctx, accountID, deviceID, models.FormatPosition(7))
	require.NoError(t, err)
	assert.True(t, advanced)

	// Stale and duplicate acks are ignored, not errors
	advanced, err = repo.Advance(ctx, accountID, deviceID, models.FormatPosition(5))
	require.NoError(t, err)
	assert.False(t, advanced)

	advanced, err = repo.Advance(ctx, accountID, deviceID, models.FormatPosition(7))
	require.NoError(t, err)
	assert.False(t, advanced)

	position, err := repo.Get(ctx, accountID, deviceID)
	require.NoError(t, err)
	assert.Equal(t, models.FormatPosition(7), position, "the stored cursor equals the max of all acks")
}

func TestCursorRepository_DevicesProgressIndependently(t *testing.T) {
	client := getTestRedisClient(t)
	repo := NewRedisCursorRepository(client)
	ctx := context.Background()

	accountID := uuid.New()
	deviceA := uuid.New()
	deviceB := uuid.New()

	_, err := repo.Advance(ctx, accountID, deviceA, models.FormatPosition(10))
	require.NoError(t, err)
	_, err = repo.Advance(ctx, accountID, deviceB, models.FormatPosition(2))
	require.NoError(t, err)

	positionA, err := repo.Get(ctx, accountID, deviceA)
	require.NoError(t, err)
	positionB, err := repo.Get(ctx, accountID, deviceB)
	require.NoError(t, err)

	assert.Equal(t, models.FormatPosition(10), positionA)
	assert.Equal(t, models.FormatPosition(2), positionB, "one device's acks never touch another's cursor")
}

func TestPresenceRepository_RefreshGetDelete(t *testing.T) {
	client := getTestRedisClient(t)
	repo := NewRedisPresenceRepository(client, 30*time.Second)
	ctx := context.Background()

	accountID := uuid.New()
	deviceID := uuid.New()

	presence := &models.Presence{AccountID: accountID, DeviceID: deviceID}
	require.NoError(t, repo.Refresh(ctx, presence))
	assert.Equal(t, string(models.StatusOnline), presence.Status)
	assert.False(t, presence.ExpiresAt.IsZero())

	got, err := repo.Get(ctx, deviceID)
	require.NoError(t, err)
	assert.Equal(t, string(models.StatusOnline), got.Status)

	require.NoError(t, repo.Delete(ctx, deviceID))

	got, err = repo.Get(ctx, deviceID)
	require.NoError(t, err)
	assert.Equal(t, string(models.StatusOffline), got.Status, "a missing key reads as offline")
}

func TestPresenceRepository_GetBulkMixesOnlineAndOffline(t *testing.T) {
	client := getTestRedisClient(t)
	repo := NewRedisPresenceRepository(client, 30*time.Second)
	ctx := context.Background()

	accountID := uuid.New()
	online := uuid.New()
	offline := uuid.New()

	require.NoError(t, repo.Refresh(ctx, &models.Presence{AccountID: accountID, DeviceID: online}))

	presenceMap, err := repo.GetBulk(ctx, []uuid.UUID{online, offline})
	require.NoError(t, err)
	assert.Equal(t, string(models.StatusOnline), presenceMap[online].Status)
	assert.Equal(t, string(models.StatusOffline), presenceMap[offline].Status)
}
