package service

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const submissionKeyPrefix = "puppychop:submission:"

// SubmissionGuard claims client supplied idempotency keys so that a form
// submitted twice only creates one appointment.
type SubmissionGuard interface {
	// Acquire claims key for ttl and reports false when it is already held.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type redisSubmissionGuard struct {
	client *redis.Client
}

func NewRedisSubmissionGuard(client *redis.Client) SubmissionGuard {
	return &redisSubmissionGuard{client: client}
}

func (g *redisSubmissionGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return g.client.SetNX(ctx, submissionKeyPrefix+key, time.Now().Unix(), ttl).Result()
}

func (g *redisSubmissionGuard) Release(ctx context.Context, key string) error {
	return g.client.Del(ctx, submissionKeyPrefix+key).Err()
}

type memorySubmissionGuard struct {
	mu   sync.Mutex
	keys map[string]time.Time
	now  func() time.Time
}

func NewMemorySubmissionGuard() SubmissionGuard {
	return &memorySubmissionGuard{
		keys: make(map[string]time.Time),
		now:  time.Now,
	}
}

func (g *memorySubmissionGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for k, expires := range g.keys {
		if !now.Before(expires) {
			delete(g.keys, k)
		}
	}

	if _, held := g.keys[key]; held {
		return false, nil
	}
	g.keys[key] = now.Add(ttl)
	return true, nil
}

func (g *memorySubmissionGuard) Release(ctx context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.keys, key)
	return nil
}
