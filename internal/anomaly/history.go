package anomaly

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// History stores the most recent invoice amounts per key, newest first.
type History interface {
	// Push prepends amount, trims the list to keep entries and returns it.
	Push(ctx context.Context, key string, amount float64, keep int) ([]float64, error)

	// Range returns up to limit amounts, newest first.
	Range(ctx context.Context, key string, limit int) ([]float64, error)

	// Delete drops the list.
	Delete(ctx context.Context, key string) error
}

// Connect opens a Redis client for url and checks it with PING.
// Returns nil if the URL is empty (Redis not configured).
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// RedisHistory keeps amounts in Redis lists.
type RedisHistory struct {
	client *redis.Client
}

// NewRedisHistory wraps client.
func NewRedisHistory(client *redis.Client) *RedisHistory {
	return &RedisHistory{client: client}
}

// Push runs LPUSH, LTRIM and LRANGE in one MULTI/EXEC.
func (h *RedisHistory) Push(ctx context.Context, key string, amount float64, keep int) ([]float64, error) {
	var values *redis.StringSliceCmd
	_, err := h.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, strconv.FormatFloat(amount, 'f', -1, 64))
		pipe.LTrim(ctx, key, 0, int64(keep-1))
		values = pipe.LRange(ctx, key, 0, int64(keep-1))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return parseAmounts(values.Val()), nil
}

func (h *RedisHistory) Range(ctx context.Context, key string, limit int) ([]float64, error) {
	if limit < 1 {
		limit = 1
	}
	raw, err := h.client.LRange(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	return parseAmounts(raw), nil
}

func (h *RedisHistory) Delete(ctx context.Context, key string) error {
	return h.client.Del(ctx, key).Err()
}

// parseAmounts skips entries that are not numbers.
func parseAmounts(raw []string) []float64 {
	out := make([]float64, 0, len(raw))
	for _, s := range raw {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			out = append(out, v)
		}
	}
	return out
}
