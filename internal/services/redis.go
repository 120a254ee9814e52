package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"mockmate-backend/internal/logger"
	"mockmate-backend/internal/models"
)

// EventPublisher pushes live events to a user's websocket connections.
type EventPublisher interface {
	Publish(ctx context.Context, userID, eventType string, payload interface{})
}

// Locker is a best-effort distributed mutex. Acquire returns a release
// func when the lock was taken and ok=false when someone else holds it.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// BalanceCache holds recently read credit balances.
type BalanceCache interface {
	Get(ctx context.Context, userID string) (*models.CreditBalance, error)
	Set(ctx context.Context, userID string, b *models.CreditBalance)
	Invalidate(ctx context.Context, userID string)
}

type RedisPublisher struct {
	redis *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{redis: client}
}

// Publish sends a WebSocket update via Redis pub/sub. Failures are logged,
// never returned: live events are advisory.
func (p *RedisPublisher) Publish(ctx context.Context, userID, eventType string, payload interface{}) {
	data, err := json.Marshal(models.WSMessage{Type: eventType, Payload: payload})
	if err != nil {
		logger.WithContext(ctx).WithError(err).Warn("failed to encode live event")
		return
	}
	if err := p.redis.Publish(ctx, models.UserChannel(userID), data).Err(); err != nil {
		logger.WithContext(ctx).WithError(err).WithField("event", eventType).Warn("failed to publish live event")
	}
}

// releaseScript deletes the key only if it still holds our token, so an
// expired lock re-taken by another caller is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	redis *redis.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{redis: client}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()
	locked, err := l.redis.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !locked {
		return nil, false, nil
	}

	release := func() {
		// Release must run even when the request context is already done.
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, l.redis, []string{key}, token).Err(); err != nil {
			logger.L().WithError(err).WithField("key", key).Warn("failed to release lock")
		}
	}
	return release, true, nil
}

type RedisBalanceCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewRedisBalanceCache(client *redis.Client, ttl time.Duration) *RedisBalanceCache {
	return &RedisBalanceCache{redis: client, ttl: ttl}
}

func balanceKey(userID string) string {
	return "credits:" + userID
}

// Get returns (nil, nil) on a cache miss.
func (c *RedisBalanceCache) Get(ctx context.Context, userID string) (*models.CreditBalance, error) {
	raw, err := c.redis.Get(ctx, balanceKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var b models.CreditBalance
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, nil
	}
	return &b, nil
}

func (c *RedisBalanceCache) Set(ctx context.Context, userID string, b *models.CreditBalance) {
	data, err := json.Marshal(b)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, balanceKey(userID), data, c.ttl).Err(); err != nil {
		logger.WithContext(ctx).WithError(err).Warn("failed to cache credit balance")
	}
}

func (c *RedisBalanceCache) Invalidate(ctx context.Context, userID string) {
	if err := c.redis.Del(ctx, balanceKey(userID)).Err(); err != nil {
		logger.WithContext(ctx).WithError(err).Warn("failed to invalidate credit balance")
	}
}
