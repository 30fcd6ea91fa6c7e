package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	"github.com/sherlock-relay/server/internal/agent/model"
	errx "github.com/sherlock-relay/server/internal/core/error"
	logx "github.com/sherlock-relay/server/pkg/logger"
)

const (
	metaResourceID = "resource_id"
	metaTitle      = "title"
	metaCreatedAt  = "created_at"
)

// RedisThreadRepository keeps each thread as a Redis list of JSON turns plus a
// metadata hash.
type RedisThreadRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisThreadRepository(rdb redis.Cmdable, ttl time.Duration) *RedisThreadRepository {
	return &RedisThreadRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisThreadRepository) messagesKey(threadID string) string {
	return fmt.Sprintf("thread:%s:messages", threadID)
}

func (r *RedisThreadRepository) metaKey(threadID string) string {
	return fmt.Sprintf("thread:%s:meta", threadID)
}

func (r *RedisThreadRepository) Append(ctx context.Context, threadID string, turn *schema.Message) error {
	b, err := json.Marshal(turn)
	if err != nil {
		logx.Error().Err(err).Str("thread_id", threadID).Msg("failed to marshal turn")
		return fmt.Errorf("marshal turn: %w", err)
	}
	key := r.messagesKey(threadID)

	if err := r.rdb.RPush(ctx, key, b).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to push turn to redis")
		return errx.WrapRedis(err)
	}
	return r.touch(ctx, key, r.metaKey(threadID))
}

func (r *RedisThreadRepository) History(ctx context.Context, threadID string, limit int) ([]*schema.Message, error) {
	key := r.messagesKey(threadID)

	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}
	rows, err := r.rdb.LRange(ctx, key, start, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return []*schema.Message{}, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load thread history from redis")
		return nil, errx.WrapRedis(err)
	}

	msgs := make([]*schema.Message, 0, len(rows))
	for i, s := range rows {
		var m schema.Message
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			logx.Error().Err(err).Str("thread_id", threadID).Int("index", i).Msg("failed to unmarshal turn")
			return nil, fmt.Errorf("unmarshal turn at index %d: %w", i, err)
		}
		msgs = append(msgs, &m)
	}
	return msgs, nil
}

func (r *RedisThreadRepository) EnsureThread(ctx context.Context, threadID, resourceID string) (bool, error) {
	key := r.metaKey(threadID)

	created, err := r.rdb.HSetNX(ctx, key, metaResourceID, resourceID).Result()
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to ensure thread")
		return false, errx.WrapRedis(err)
	}
	if created {
		if err := r.rdb.HSet(ctx, key, metaCreatedAt, time.Now().UTC().Format(time.RFC3339)).Err(); err != nil {
			return false, errx.WrapRedis(err)
		}
	}
	if err := r.touch(ctx, key); err != nil {
		return false, err
	}
	return created, nil
}

func (r *RedisThreadRepository) SetTitle(ctx context.Context, threadID, title string) error {
	key := r.metaKey(threadID)
	if err := r.rdb.HSet(ctx, key, metaTitle, title).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to set thread title")
		return errx.WrapRedis(err)
	}
	return nil
}

// Thread returns the stored metadata, or nil when the thread is unknown.
func (r *RedisThreadRepository) Thread(ctx context.Context, threadID string) (*model.Thread, error) {
	fields, err := r.rdb.HGetAll(ctx, r.metaKey(threadID)).Result()
	if err != nil {
		return nil, errx.WrapRedis(err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return &model.Thread{
		ID:         threadID,
		ResourceID: fields[metaResourceID],
		Title:      fields[metaTitle],
	}, nil
}

// touch extends the TTL of the given keys when one is configured.
func (r *RedisThreadRepository) touch(ctx context.Context, keys ...string) error {
	if r.ttl <= 0 {
		return nil
	}
	for _, key := range keys {
		ok, err := r.rdb.Expire(ctx, key, r.ttl).Result()
		if err != nil {
			logx.Error().Err(err).Str("key", key).Msg("failed to set expire")
			return errx.WrapRedis(err)
		}
		if !ok {
			logx.Debug().Str("key", key).Dur("ttl", r.ttl).Msg("expire skipped, key does not exist yet")
		}
	}
	return nil
}

var _ model.ThreadStore = (*RedisThreadRepository)(nil)
