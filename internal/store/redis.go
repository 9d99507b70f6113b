package store

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisClient is the subset of *redis.Client used by the lock and the ladder cache
type RedisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// ErrLockTimeout is returned when another holder kept the lock for the whole wait
var ErrLockTimeout = errors.New("match lock wait timed out")

const (
	lockPrefix     = "dowstats:lock:"
	lockRetryDelay = 50 * time.Millisecond
)

// releaseScript deletes the lock only while it still holds our token
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// RedisLocker is a single-instance advisory lock (SET NX PX with a random token)
type RedisLocker struct {
	client RedisClient
	logger *zap.SugaredLogger
	delay  time.Duration
}

func NewRedisLocker(client RedisClient, logger *zap.Logger) *RedisLocker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLocker{client: client, logger: logger.Sugar(), delay: lockRetryDelay}
}

// Acquire waits at most ttl for the key. The returned release func is safe to
// call after the lock expired.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	fullKey := lockPrefix + key
	deadline := time.Now().Add(ttl)

	for {
		ok, err := l.client.SetNX(ctx, fullKey, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire %s: %w", key, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.delay):
		}
	}

	release := func() {
		// The request context may already be canceled when the lock is released.
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := l.client.Eval(ctx, releaseScript, []string{fullKey}, token).Err(); err != nil {
			l.logger.Warnw("Failed to release match lock", "key", key, "error", err)
		}
	}
	return release, nil
}

const (
	ladderPrefix = "dowstats:ladder:"

	DefaultLadderTTL = 60 * time.Second
)

// LadderCache stores rendered ladder pages. Every (mod, season) has a
// generation counter; bumping it orphans all pages of the old generation.
type LadderCache struct {
	client RedisClient
	ttl    time.Duration
}

func NewLadderCache(client RedisClient, ttl time.Duration) *LadderCache {
	if ttl <= 0 {
		ttl = DefaultLadderTTL
	}
	return &LadderCache{client: client, ttl: ttl}
}

func generationKey(modID, seasonID int) string {
	return fmt.Sprintf("%sgen:%d:%d", ladderPrefix, modID, seasonID)
}

func (c *LadderCache) pageKey(ctx context.Context, modID, seasonID int, query string) (string, error) {
	gen, err := c.client.Get(ctx, generationKey(modID, seasonID)).Result()
	if errors.Is(err, redis.Nil) {
		gen = "0"
	} else if err != nil {
		return "", err
	}
	sum := sha1.Sum([]byte(query))
	return fmt.Sprintf("%spage:%d:%d:%s:%s", ladderPrefix, modID, seasonID, gen, hex.EncodeToString(sum[:])), nil
}

// Get returns the cached page for a normalized query string.
func (c *LadderCache) Get(ctx context.Context, modID, seasonID int, query string) ([]byte, bool, error) {
	key, err := c.pageKey(ctx, modID, seasonID, query)
	if err != nil {
		return nil, false, fmt.Errorf("ladder cache generation: %w", err)
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("ladder cache get: %w", err)
	}
	return data, true, nil
}

func (c *LadderCache) Set(ctx context.Context, modID, seasonID int, query string, data []byte) error {
	key, err := c.pageKey(ctx, modID, seasonID, query)
	if err != nil {
		return fmt.Errorf("ladder cache generation: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("ladder cache set: %w", err)
	}
	return nil
}

func (c *LadderCache) Invalidate(ctx context.Context, modID, seasonID int) error {
	if err := c.client.Incr(ctx, generationKey(modID, seasonID)).Err(); err != nil {
		return fmt.Errorf("ladder cache invalidate: %w", err)
	}
	return nil
}
