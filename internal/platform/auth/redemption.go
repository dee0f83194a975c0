package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redeemer records that a login token has been used. Redeem reports true
// only for the first call with a given jti.
type Redeemer interface {
	Redeem(ctx context.Context, jti string, ttl time.Duration) (bool, error)
}

// MemoryRedeemer keeps redeemed JTIs in process memory. Entries are dropped
// once the token they belong to would have expired anyway.
type MemoryRedeemer struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

// NewMemoryRedeemer starts a background cleanup every interval.
func NewMemoryRedeemer(interval time.Duration) *MemoryRedeemer {
	r := &MemoryRedeemer{
		entries: make(map[string]time.Time),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	if interval > 0 {
		go r.cleanupLoop(interval)
	}
	return r
}

func (r *MemoryRedeemer) Redeem(_ context.Context, jti string, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if exp, ok := r.entries[jti]; ok && now.Before(exp) {
		return false, nil
	}
	r.entries[jti] = now.Add(ttl)
	return true, nil
}

// Len returns the number of tracked JTIs.
func (r *MemoryRedeemer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Cleanup drops expired entries.
func (r *MemoryRedeemer) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for jti, exp := range r.entries {
		if !now.Before(exp) {
			delete(r.entries, jti)
		}
	}
}

// Stop ends the cleanup goroutine.
func (r *MemoryRedeemer) Stop() {
	r.once.Do(func() { close(r.done) })
}

func (r *MemoryRedeemer) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.Cleanup()
		case <-r.done:
			return
		}
	}
}

// RedisRedeemer shares redemption state between server instances.
type RedisRedeemer struct {
	client *redis.Client
	prefix string
}

func NewRedisRedeemer(client *redis.Client) *RedisRedeemer {
	return &RedisRedeemer{client: client, prefix: "clinic:login-token:"}
}

func (r *RedisRedeemer) Redeem(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.prefix+jti, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redeem login token: %w", err)
	}
	return ok, nil
}

// NewRedisClient parses url, connects and pings.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
