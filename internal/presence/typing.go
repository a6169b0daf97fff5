// Package presence tracks ephemeral typing state. Nothing here is durable:
// keys live in Redis with a short TTL so a lost typing-stop clears itself.
package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type TypingStore interface {
	Start(ctx context.Context, conversationID, userID string) error
	Stop(ctx context.Context, conversationID, userID string) error
}

type RedisTyping struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisTyping(client *redis.Client, prefix string, ttl time.Duration) *RedisTyping {
	if prefix == "" {
		prefix = "msg"
	}
	return &RedisTyping{client: client, prefix: prefix, ttl: ttl}
}

func (t *RedisTyping) key(conversationID, userID string) string {
	return fmt.Sprintf("%s:typing:%s:%s", t.prefix, conversationID, userID)
}

func (t *RedisTyping) Start(ctx context.Context, conversationID, userID string) error {
	return t.client.Set(ctx, t.key(conversationID, userID), time.Now().Unix(), t.ttl).Err()
}

func (t *RedisTyping) Stop(ctx context.Context, conversationID, userID string) error {
	return t.client.Del(ctx, t.key(conversationID, userID)).Err()
}

// Noop satisfies TypingStore when Redis is not configured; the broadcast
// still happens, only the TTL backstop is lost.
type Noop struct{}

func (Noop) Start(context.Context, string, string) error { return nil }
func (Noop) Stop(context.Context, string, string) error  { return nil }
