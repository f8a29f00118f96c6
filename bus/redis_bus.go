package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisConfig configures the Redis-backed Bus, grounded on the
// teacher's RedisStoreConfig shape.
type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	PoolSize  int
	KeyPrefix string
}

// RedisBus is a Redis-backed alternative to FileBus for multi-process
// deployments, selected by configuration rather than call site.
// Messages are hashed by id; each recipient's inbox is a Redis list of
// message ids, mirroring the teacher's topic-list-plus-data-hash shape
// from RedisMessageStore.
type RedisBus struct {
	client    *redis.Client
	keyPrefix string
	logger    *zap.Logger
}

// NewRedisBus connects to Redis and returns a Bus backed by it.
func NewRedisBus(cfg RedisConfig, logger *zap.Logger) (*RedisBus, error) {
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
		prefix = "osforge:bus:"
	}
	return &RedisBus{client: client, keyPrefix: prefix, logger: logger.With(zap.String("component", "redis_bus"))}, nil
}

func (b *RedisBus) inboxKey(agentID string) string  { return b.keyPrefix + "inbox:" + agentID }
func (b *RedisBus) dataKey(msgID string) string     { return b.keyPrefix + "msg:" + msgID }
func (b *RedisBus) inboxesKey() string               { return b.keyPrefix + "inboxes" }

// Send persists the message and appends its id to the recipient's
// inbox list, atomically via a pipeline.
func (b *RedisBus) Send(msg *Message) error {
	ctx := context.Background()
	if msg.ID == "" {
		msg.ID = uuid.New().String()[:12]
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	pipe := b.client.Pipeline()
	pipe.Set(ctx, b.dataKey(msg.ID), data, 0)
	pipe.RPush(ctx, b.inboxKey(msg.To), msg.ID)
	pipe.SAdd(ctx, b.inboxesKey(), msg.To)
	_, err = pipe.Exec(ctx)
	return err
}

// Receive reads every message id in the agent's inbox list in
// insertion order, filtering read messages when requested.
func (b *RedisBus) Receive(agentID string, unreadOnly bool) ([]*Message, error) {
	ctx := context.Background()
	ids, err := b.client.LRange(ctx, b.inboxKey(agentID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list inbox for %s: %w", agentID, err)
	}
	var out []*Message
	for _, id := range ids {
		msg, err := b.load(ctx, id)
		if err != nil {
			b.logger.Warn("skipping unreadable message", zap.String("id", id), zap.Error(err))
			continue
		}
		if unreadOnly && msg.Read {
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

func (b *RedisBus) load(ctx context.Context, msgID string) (*Message, error) {
	data, err := b.client.Get(ctx, b.dataKey(msgID)).Bytes()
	if err != nil {
		return nil, err
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// MarkRead sets the read flag on a persisted message. A mark on a
// nonexistent message is a no-op.
func (b *RedisBus) MarkRead(agentID, msgID string) error {
	ctx := context.Background()
	msg, err := b.load(ctx, msgID)
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("mark read %s: %w", msgID, err)
	}
	if msg.Read {
		return nil
	}
	msg.Read = true
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.client.Set(ctx, b.dataKey(msgID), data, 0).Err()
}

// Broadcast sends a copy of the message to every known inbox except the
// sender's.
func (b *RedisBus) Broadcast(fromAgent string, msgType MessageType, payload map[string]any) error {
	ctx := context.Background()
	agents, err := b.client.SMembers(ctx, b.inboxesKey()).Result()
	if err != nil {
		return fmt.Errorf("list inboxes: %w", err)
	}
	for _, agentID := range agents {
		if agentID == fromAgent {
			continue
		}
		if err := b.Send(&Message{Type: msgType, From: fromAgent, To: agentID, Payload: payload}); err != nil {
			return err
		}
	}
	return nil
}

// GetConversation returns messages between a and b sorted by timestamp.
func (b *RedisBus) GetConversation(a, b2 string) ([]*Message, error) {
	var out []*Message
	for _, inbox := range []string{a, b2} {
		msgs, err := b.Receive(inbox, false)
		if err != nil {
			return nil, err
		}
		for _, m := range msgs {
			if (m.From == a || m.From == b2) && (m.To == a || m.To == b2) {
				out = append(out, m)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// Close closes the underlying Redis client.
func (b *RedisBus) Close() error { return b.client.Close() }
