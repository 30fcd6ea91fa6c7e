package repo

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/sherlock-relay/server/internal/core/error"
)

func newTestRepo(t *testing.T, ttl time.Duration) (*RedisThreadRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisThreadRepository(rdb, ttl), mr
}

func TestAppendAndHistory(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t, 0)

	require.NoError(t, r.Append(ctx, "telegram-42", schema.UserMessage("Hello")))
	require.NoError(t, r.Append(ctx, "telegram-42", schema.AssistantMessage("Elementary.", nil)))
	require.NoError(t, r.Append(ctx, "telegram-42", schema.UserMessage("How?")))

	all, err := r.History(ctx, "telegram-42", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, schema.User, all[0].Role)
	assert.Equal(t, "Elementary.", all[1].Content)

	last, err := r.History(ctx, "telegram-42", 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "Elementary.", last[0].Content)
	assert.Equal(t, "How?", last[1].Content)
}

func TestHistoryIsPartitionedByThread(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t, 0)

	require.NoError(t, r.Append(ctx, "telegram-1", schema.UserMessage("one")))

	other, err := r.History(ctx, "telegram-2", 20)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestEnsureThreadReportsCreationOnce(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t, 0)

	created, err := r.EnsureThread(ctx, "telegram-42", "telegram-bot")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = r.EnsureThread(ctx, "telegram-42", "telegram-bot")
	require.NoError(t, err)
	assert.False(t, created)

	require.NoError(t, r.SetTitle(ctx, "telegram-42", "The Red-Headed League"))

	th, err := r.Thread(ctx, "telegram-42")
	require.NoError(t, err)
	require.NotNil(t, th)
	assert.Equal(t, "telegram-bot", th.ResourceID)
	assert.Equal(t, "The Red-Headed League", th.Title)

	missing, err := r.Thread(ctx, "telegram-7")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTTLIsRefreshed(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestRepo(t, time.Hour)

	_, err := r.EnsureThread(ctx, "telegram-42", "telegram-bot")
	require.NoError(t, err)
	require.NoError(t, r.Append(ctx, "telegram-42", schema.UserMessage("Hello")))

	assert.Equal(t, time.Hour, mr.TTL("thread:telegram-42:messages"))
	assert.Equal(t, time.Hour, mr.TTL("thread:telegram-42:meta"))
}

func TestRedisFailureIsWrapped(t *testing.T) {
	ctx := context.Background()
	r, mr := newTestRepo(t, 0)
	mr.Close()

	err := r.Append(ctx, "telegram-42", schema.UserMessage("Hello"))
	require.Error(t, err)
	assert.True(t, errx.IsKind(err, errx.KindStorage))
}
