package results

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Guard claims a dedupe key for a window. Claim returns false when the key
// was already claimed and has not yet expired. Release drops a claim early.
type Guard interface {
	Claim(ctx context.Context, key string, window time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

func dedupeKey(userID int64, testID, fingerprint string) string {
	return fmt.Sprintf("dedupe:%d:%s:%s", userID, testID, fingerprint)
}

type RedisGuard struct {
	client *redis.Client
}

// NewRedisGuard connects to url and verifies the connection.
func NewRedisGuard(ctx context.Context, url string) (*RedisGuard, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return &RedisGuard{client: client}, nil
}

func (g *RedisGuard) Claim(ctx context.Context, key string, window time.Duration) (bool, error) {
	ok, err := g.client.SetNX(ctx, key, 1, window).Result()
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return ok, nil
}

func (g *RedisGuard) Release(ctx context.Context, key string) error {
	if err := g.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}

func (g *RedisGuard) Close() error {
	return g.client.Close()
}

// MemoryGuard is the single-process fallback used when no Redis URL is
// configured.
type MemoryGuard struct {
	mu      sync.Mutex
	now     func() time.Time
	expires map[string]time.Time
}

func NewMemoryGuard(now func() time.Time) *MemoryGuard {
	if now == nil {
		now = time.Now
	}
	return &MemoryGuard{now: now, expires: make(map[string]time.Time)}
}

func (g *MemoryGuard) Claim(ctx context.Context, key string, window time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for k, exp := range g.expires {
		if !now.Before(exp) {
			delete(g.expires, k)
		}
	}
	if _, taken := g.expires[key]; taken {
		return false, nil
	}
	g.expires[key] = now.Add(window)
	return true, nil
}

func (g *MemoryGuard) Release(ctx context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.expires, key)
	return nil
}
