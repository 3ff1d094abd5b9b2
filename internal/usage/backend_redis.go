package usage

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

const redisLogKey = "antigravity_gateway:usage:log"

// RedisBackend persists the retained log slice as a single JSON blob under
// one key, mirroring FileBackend's whole-slice load/save contract so
// swapping backends never changes Store's observable behavior.
type RedisBackend struct {
	client *redis.Client
	key    string
}

// NewRedisBackend returns a Backend backed by a Redis string key.
func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client, key: redisLogKey}
}

func (b *RedisBackend) LoadAll(ctx context.Context) ([]LogEntry, error) {
	data, err := b.client.Get(ctx, b.key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	var entries []LogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (b *RedisBackend) SaveAll(ctx context.Context, entries []LogEntry) error {
	if entries == nil {
		entries = []LogEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return b.client.Set(ctx, b.key, data, 0).Err()
}
