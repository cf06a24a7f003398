package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const cursorKeyPrefix = "cursor:"

// advanceScript moves a cursor forward only. Positions are fixed-width
// decimal strings, so Lua's string comparison is the position order.
var advanceScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if current and current >= ARGV[1] then
    return 0
end
redis.call('SET', KEYS[1], ARGV[1])
return 1
`)

// RedisCursorRepository stores one key per (account, device) with no TTL.
// Stale cursors are harmless; they only mean more replay on reconnect.
type RedisCursorRepository struct {
	client *redis.Client
}

func NewRedisCursorRepository(client *redis.Client) *RedisCursorRepository {
	return &RedisCursorRepository{client: client}
}

func (r *RedisCursorRepository) Get(ctx context.Context, accountID, deviceID uuid.UUID) (string, error) {
	position, err := r.client.Get(ctx, cursorKey(accountID, deviceID)).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get cursor: %w", err)
	}
	return position, nil
}

// Advance overwrites the cursor only if position is greater than the stored
// value. Duplicate and out-of-order acks return false with no error.
func (r *RedisCursorRepository) Advance(ctx context.Context, accountID, deviceID uuid.UUID, position string) (bool, error) {
	moved, err := advanceScript.Run(ctx, r.client, []string{cursorKey(accountID, deviceID)}, position).Int()
	if err != nil {
		return false, fmt.Errorf("failed to advance cursor: %w", err)
	}
	return moved == 1, nil
}

// Helper: build Redis key for a device cursor
func cursorKey(accountID, deviceID uuid.UUID) string {
	return fmt.Sprintf("%s%s:%s", cursorKeyPrefix, accountID, deviceID)
}
