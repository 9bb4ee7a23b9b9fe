package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	logx "github.com/tanpawarit/Chative-Customer-Support-Orchestration/pkg/logger"
)

// RedisStore persists conversation records through a pooled go-redis client.
// Functionally interchangeable with UpstashRedisStore; pick per deployment.
type RedisStore struct {
	rdb       redis.Cmdable
	keyPrefix string
	ttl       time.Duration
}

func NewRedisStore(rdb redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{
		rdb:       rdb,
		keyPrefix: defaultStoreKeyPrefix,
		ttl:       ttl,
	}
}

func (s *RedisStore) recordKey(conversationID string) string {
	return s.keyPrefix + conversationID
}

func (s *RedisStore) Load(ctx context.Context, conversationID string) (*Record, error) {
	if conversationID == "" {
		return nil, ErrInvalidConversationID
	}
	key := s.recordKey(conversationID)

	raw, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRecordNotFound
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load conversation record from redis")
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		logx.Error().Err(err).Str("conversation_id", conversationID).Msg("failed to unmarshal conversation record")
		return nil, fmt.Errorf("unmarshal conversation record: %w", err)
	}
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid conversation record loaded from store: %w", err)
	}
	return &rec, nil
}

func (s *RedisStore) Save(ctx context.Context, rec *Record) error {
	if rec == nil {
		return ErrNilRecord
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal conversation record: %w", err)
	}

	key := s.recordKey(rec.ConversationID)
	if err := s.rdb.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to save conversation record to redis")
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, conversationID string) error {
	if conversationID == "" {
		return ErrInvalidConversationID
	}
	key := s.recordKey(conversationID)
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to delete conversation record from redis")
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
var _ Store = (*UpstashRedisStore)(nil)
