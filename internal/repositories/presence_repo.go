package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/eventrelay/internal/models"
	"github.com/redis/go-redis/v9"
)

const presenceKeyPrefix = "presence:"

type RedisPresenceRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisPresenceRepository(client *redis.Client, ttl time.Duration) *RedisPresenceRepository {
	return &RedisPresenceRepository{client: client, ttl: ttl}
}

// Refresh sets or extends the presence flag for a device. The hub calls this
// on connect and on every ack, so the key expires shortly after a device
// goes quiet.
func (r *RedisPresenceRepository) Refresh(ctx context.Context, presence *models.Presence) error {
	now := time.Now()
	presence.Status = string(models.StatusOnline)
	presence.LastSeen = now
	presence.ExpiresAt = now.Add(r.ttl)

	data, err := json.Marshal(presence)
	if err != nil {
		return fmt.Errorf("failed to marshal presence: %w", err)
	}

	err = r.client.Set(ctx, presenceKey(presence.DeviceID), data, r.ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set presence: %w", err)
	}

	return nil
}

func (r *RedisPresenceRepository) Get(ctx context.Context, deviceID uuid.UUID) (*models.Presence, error) {
	data, err := r.client.Get(ctx, presenceKey(deviceID)).Result()
	if err == redis.Nil {
		// No presence = device is offline
		return offlinePresence(deviceID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get presence: %w", err)
	}

	var presence models.Presence
	if err := json.Unmarshal([]byte(data), &presence); err != nil {
		return nil, fmt.Errorf("failed to unmarshal presence: %w", err)
	}

	return &presence, nil
}

// GetBulk retrieves presence for multiple devices in a single round trip.
func (r *RedisPresenceRepository) GetBulk(ctx context.Context, deviceIDs []uuid.UUID) (map[uuid.UUID]models.Presence, error) {
	if len(deviceIDs) == 0 {
		return make(map[uuid.UUID]models.Presence), nil
	}

	keys := make([]string, len(deviceIDs))
	for i, id := range deviceIDs {
		keys[i] = presenceKey(id)
	}

	results, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get bulk presence: %w", err)
	}

	presenceMap := make(map[uuid.UUID]models.Presence)
	for i, result := range results {
		deviceID := deviceIDs[i]

		data, ok := result.(string)
		if !ok {
			presenceMap[deviceID] = *offlinePresence(deviceID)
			continue
		}

		var presence models.Presence
		if err := json.Unmarshal([]byte(data), &presence); err != nil {
			// Unreadable entry, treat as offline
			presenceMap[deviceID] = *offlinePresence(deviceID)
			continue
		}

		presenceMap[deviceID] = presence
	}

	return presenceMap, nil
}

func (r *RedisPresenceRepository) Delete(ctx context.Context, deviceID uuid.UUID) error {
	err := r.client.Del(ctx, presenceKey(deviceID)).Err()
	if err != nil {
		return fmt.Errorf("failed to delete presence: %w", err)
	}
	return nil
}

func offlinePresence(deviceID uuid.UUID) *models.Presence {
	return &models.Presence{
		DeviceID: deviceID,
		Status:   string(models.StatusOffline),
	}
}

// Helper: build Redis key for presence
func presenceKey(deviceID uuid.UUID) string {
	return presenceKeyPrefix + deviceID.String()
}
