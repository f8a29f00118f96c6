package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/osforge/osforge/graph"
)

// RedisConfig configures the Redis-backed TaskStore.
type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	PoolSize  int
	KeyPrefix string
}

// RedisTaskStore is a Redis-backed alternative to FileTaskStore for
// multi-process deployments, grounded on the teacher's
// RedisTaskStore/RedisMessageStore key-per-entity-plus-index-set shape.
type RedisTaskStore struct {
	client    *redis.Client
	keyPrefix string
	logger    *zap.Logger
}

// NewRedisTaskStore connects to Redis and returns a TaskStore backed by
// it.
func NewRedisTaskStore(cfg RedisConfig, logger *zap.Logger) (*RedisTaskStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "osforge:tasks:"
	}
	return &RedisTaskStore{client: client, keyPrefix: prefix, logger: logger.With(zap.String("component", "redis_task_store"))}, nil
}

func (s *RedisTaskStore) dataKey(id string) string { return s.keyPrefix + "data:" + id }
func (s *RedisTaskStore) indexKey() string         { return s.keyPrefix + "index" }

// Save persists the task and registers its id in the store's index set.
func (s *RedisTaskStore) Save(t *graph.Task) error {
	ctx := context.Background()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	t.UpdatedAt = time.Now()

	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal task %s: %w", t.ID, err)
	}
	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.dataKey(t.ID), data, 0)
	pipe.SAdd(ctx, s.indexKey(), t.ID)
	_, err = pipe.Exec(ctx)
	return err
}

// Load returns the task with the given id.
func (s *RedisTaskStore) Load(id string) (*graph.Task, error) {
	ctx := context.Background()
	data, err := s.client.Get(ctx, s.dataKey(id)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("load task %s: %w", id, ErrTaskNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load task %s: %w", id, err)
	}
	var t graph.Task
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("unmarshal task %s: %w", id, err)
	}
	return &t, nil
}

// LoadAll returns every stored task sorted by created-at.
func (s *RedisTaskStore) LoadAll() ([]*graph.Task, error) {
	ctx := context.Background()
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list task index: %w", err)
	}
	out := make([]*graph.Task, 0, len(ids))
	for _, id := range ids {
		t, err := s.Load(id)
		if err != nil {
			s.logger.Warn("skipping unreadable task", zap.String("id", id), zap.Error(err))
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Close closes the underlying Redis client.
func (s *RedisTaskStore) Close() error { return s.client.Close() }
