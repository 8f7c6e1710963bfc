package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDedupeIndex backs the dedupe window with SET NX EX, so the window
// holds across processes and restarts.
type RedisDedupeIndex struct {
	client *redis.Client
}

func NewRedisDedupeIndex(ctx context.Context, addr, password string, db int) (*RedisDedupeIndex, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisDedupeIndex{client: client}, nil
}

func (r *RedisDedupeIndex) Claim(ctx context.Context, key string, window time.Duration) (bool, error) {
	claimed, err := r.client.SetNX(ctx, key, "1", window).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim dedupe key: %w", err)
	}

	return claimed, nil
}

func (r *RedisDedupeIndex) Close() error {
	return r.client.Close()
}

// MemoryDedupeIndex is the in-process fallback for development and tests.
type MemoryDedupeIndex struct {
	mu     sync.Mutex
	claims map[string]time.Time
	now    func() time.Time
}

func NewMemoryDedupeIndex() *MemoryDedupeIndex {
	return &MemoryDedupeIndex{
		claims: make(map[string]time.Time),
		now:    time.Now,
	}
}

func (m *MemoryDedupeIndex) Claim(_ context.Context, key string, window time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if expiry, ok := m.claims[key]; ok && now.Before(expiry) {
		return false, nil
	}

	m.claims[key] = now.Add(window)

	return true, nil
}
