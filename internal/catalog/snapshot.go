package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrSnapshotMissing = errors.New("SNAPSHOT_MISSING")

// SnapshotStore keeps a copy of the last good catalog outside the process.
type SnapshotStore interface {
	Save(ctx context.Context, records []Record) error
	Load(ctx context.Context) ([]Record, error)
}

// RedisSnapshotStore stores the catalog as one JSON value with a TTL.
type RedisSnapshotStore struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
}

func NewRedisSnapshotStore(client redis.Cmdable, key string, ttl time.Duration) *RedisSnapshotStore {
	return &RedisSnapshotStore{client: client, key: key, ttl: ttl}
}

func (s *RedisSnapshotStore) Save(ctx context.Context, records []Record) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *RedisSnapshotStore) Load(ctx context.Context) ([]Record, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSnapshotMissing
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return DecodeRecords(data)
}
