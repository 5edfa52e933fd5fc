package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	historyKeyPrefix = "chat:history:"
	historyMaxLen    = 50
	historyTTL       = 24 * time.Hour
)

// RedisHistory stores per-user conversation turns in a capped Redis list
type RedisHistory struct {
	client *redis.Client
}

// NewRedisHistory creates a Redis-backed history store
func NewRedisHistory(client *redis.Client) *RedisHistory {
	return &RedisHistory{client: client}
}

// Recent returns the last n turns for the user, oldest first
func (h *RedisHistory) Recent(ctx context.Context, userID string, n int) ([]Turn, error) {
	key := historyKeyPrefix + userID

	raw, err := h.client.LRange(ctx, key, int64(-n), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read chat history: %w", err)
	}

	turns := make([]Turn, 0, len(raw))
	for _, item := range raw {
		var turn Turn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			continue
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// Append pushes turns onto the user's history, trimming to the cap and
// refreshing the TTL
func (h *RedisHistory) Append(ctx context.Context, userID string, turns ...Turn) error {
	if len(turns) == 0 {
		return nil
	}

	key := historyKeyPrefix + userID

	values := make([]interface{}, 0, len(turns))
	for _, turn := range turns {
		data, err := json.Marshal(turn)
		if err != nil {
			return fmt.Errorf("failed to marshal turn: %w", err)
		}
		values = append(values, data)
	}

	pipe := h.client.TxPipeline()
	pipe.RPush(ctx, key, values...)
	pipe.LTrim(ctx, key, int64(-historyMaxLen), -1)
	pipe.Expire(ctx, key, historyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append chat history: %w", err)
	}
	return nil
}
